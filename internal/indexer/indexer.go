// Package indexer orchestrates scan, parse, build, and store across the
// discovered session set. Each session is an independent unit of work: one
// failure is recorded in the batch report and never aborts the rest.
package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jasperwreed/recall/internal/scanner"
	"github.com/jasperwreed/recall/internal/storage"
	"github.com/jasperwreed/recall/internal/transcript"
)

// Mode selects how much of the discovered set gets reprocessed.
type Mode int

const (
	// ModeIncremental reprocesses only sessions whose fingerprint changed
	// or that have none stored.
	ModeIncremental Mode = iota
	// ModeFull reprocesses every discovered session.
	ModeFull
)

const defaultWorkers = 4

type Indexer struct {
	store   *storage.Store
	scan    *scanner.Scanner
	build   transcript.BuildConfig
	log     *slog.Logger
	workers int
}

func New(store *storage.Store, scan *scanner.Scanner, build transcript.BuildConfig) *Indexer {
	return &Indexer{
		store:   store,
		scan:    scan,
		build:   build,
		log:     slog.Default(),
		workers: defaultWorkers,
	}
}

// SetWorkers bounds the number of concurrently indexed sessions.
func (ix *Indexer) SetWorkers(n int) {
	if n > 0 {
		ix.workers = n
	}
}

// SessionError records one failed unit of work within a batch.
type SessionError struct {
	SessionID string
	Path      string
	Err       error
}

func (e SessionError) Error() string {
	return fmt.Sprintf("session %s (%s): %v", e.SessionID, e.Path, e.Err)
}

// Report summarizes a batch run. Batches are never all-or-nothing.
type Report struct {
	Indexed    int
	Skipped    int
	Failed     int
	Errors     []SessionError
	ScanErrors []error
	Elapsed    time.Duration
}

// Run indexes the discovered session set. Sessions whose stored fingerprint
// matches the current one are skipped in incremental mode with zero writes,
// which makes duplicate triggers harmless.
func (ix *Indexer) Run(ctx context.Context, mode Mode) (*Report, error) {
	start := time.Now()

	refs, scanErrs := ix.scan.Scan()
	report := &Report{ScanErrors: scanErrs}

	known := map[string]string{}
	if mode == ModeIncremental {
		var err error
		known, err = ix.store.Fingerprints()
		if err != nil {
			return nil, fmt.Errorf("load fingerprints: %w", err)
		}
	}

	jobs := make(chan scanner.SessionRef)
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < ix.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ref := range jobs {
				err := ix.indexOne(ref)
				mu.Lock()
				if err != nil {
					report.Failed++
					report.Errors = append(report.Errors, SessionError{
						SessionID: ref.ID, Path: ref.Path, Err: err,
					})
				} else {
					report.Indexed++
				}
				mu.Unlock()
			}
		}()
	}

	for _, ref := range refs {
		if ctx.Err() != nil {
			break
		}
		if mode == ModeIncremental && known[ref.ID] == ref.Fingerprint.String() {
			mu.Lock()
			report.Skipped++
			mu.Unlock()
			ix.log.Debug("session unchanged", "session", ref.ID)
			continue
		}
		jobs <- ref
	}
	close(jobs)
	wg.Wait()

	report.Elapsed = time.Since(start)
	ix.log.Info("index pass complete",
		"indexed", report.Indexed, "skipped", report.Skipped,
		"failed", report.Failed, "elapsed", report.Elapsed)

	if err := ctx.Err(); err != nil {
		return report, err
	}
	return report, nil
}

// IndexSession reprocesses a single session by id regardless of its
// fingerprint.
func (ix *Indexer) IndexSession(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ref, ok := ix.scan.Lookup(id)
	if !ok {
		return fmt.Errorf("session %s: %w", id, storage.ErrNotFound)
	}
	return ix.indexOne(ref)
}

func (ix *Indexer) indexOne(ref scanner.SessionRef) error {
	t, err := transcript.ParseFile(ref.Path)
	if err != nil {
		return fmt.Errorf("parse: %w", err)
	}

	sess := transcript.BuildSession(ref.ID, ref.Path, ref.Project, t, ix.build)
	if err := ix.store.Upsert(sess, ref.Fingerprint.String()); err != nil {
		return fmt.Errorf("upsert: %w", err)
	}

	ix.log.Debug("session indexed",
		"session", ref.ID, "exchanges", sess.ExchangeCount,
		"parse_errors", sess.ParseErrors)
	return nil
}
