// Package synth turns a natural-language query into a bounded, ranked
// evidence set and hands it to an external summarizer. The summarizer is an
// untrusted collaborator: when it fails or times out, the caller still gets
// the ranked sources.
package synth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jasperwreed/recall/internal/models"
	"github.com/jasperwreed/recall/internal/retriever"
	"github.com/jasperwreed/recall/internal/storage"
)

// ErrTimeout marks a summarizer call that exceeded its deadline.
var ErrTimeout = errors.New("summarizer timed out")

// ProviderError wraps any other failure from the external summarizer.
type ProviderError struct {
	Err error
}

func (e *ProviderError) Error() string { return fmt.Sprintf("summarizer provider: %v", e.Err) }
func (e *ProviderError) Unwrap() error { return e.Err }

// Summarizer is the narrow capability the orchestrator needs from the
// external language model.
type Summarizer interface {
	Summarize(ctx context.Context, contextText, query string) (string, error)
}

const (
	defaultContextBudget = 32 * 1024
	defaultTimeout       = 30 * time.Second
	maxExchangeBytes     = 2048
	oversample           = 4
)

type Orchestrator struct {
	store   *storage.Store
	retr    *retriever.Retriever
	summ    Summarizer
	budget  int
	timeout time.Duration
	log     *slog.Logger
}

func New(store *storage.Store, retr *retriever.Retriever, summ Summarizer) *Orchestrator {
	return &Orchestrator{
		store:   store,
		retr:    retr,
		summ:    summ,
		budget:  defaultContextBudget,
		timeout: defaultTimeout,
		log:     slog.Default(),
	}
}

// SetBudget bounds the assembled context size in bytes.
func (o *Orchestrator) SetBudget(n int) {
	if n > 0 {
		o.budget = n
	}
}

// SetTimeout bounds the external summarizer call.
func (o *Orchestrator) SetTimeout(d time.Duration) {
	if d > 0 {
		o.timeout = d
	}
}

// Source cites one session that contributed evidence.
type Source struct {
	SessionID    string    `json:"session_id"`
	Title        string    `json:"title"`
	Project      string    `json:"project"`
	StartTime    time.Time `json:"start_time"`
	ExchangeSeqs []int     `json:"exchange_seqs"`
	Snippet      string    `json:"snippet"`
}

// Result is the synthesis output. Degraded is set when the summarizer
// failed and only the ranked sources are usable.
type Result struct {
	Summary  string   `json:"summary,omitempty"`
	Degraded bool     `json:"degraded,omitempty"`
	Sources  []Source `json:"sources"`
}

// Synthesize ranks candidate sessions, pulls their matching exchanges,
// assembles a bounded context, and delegates prose to the summarizer.
// Selection is deterministic for a fixed index state; only the prose is not.
func (o *Orchestrator) Synthesize(ctx context.Context, query string, limit int) (*Result, error) {
	if limit <= 0 {
		limit = 5
	}

	hits, err := o.store.Search(query, storage.Filters{}, limit*oversample)
	if err != nil {
		return nil, fmt.Errorf("rank candidates: %w", err)
	}
	if len(hits) == 0 {
		return &Result{}, nil
	}

	sources := groupHits(hits, limit)
	contextText := o.assembleContext(sources)

	sctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	summary, err := o.summ.Summarize(sctx, contextText, query)
	if err != nil {
		o.log.Warn("summarizer failed, returning sources only", "error", err)
		return &Result{Degraded: true, Sources: sources}, nil
	}

	return &Result{Summary: summary, Sources: sources}, nil
}

// groupHits folds exchange-level hits into per-session sources, preserving
// rank order: the first hit for a session decides the session's position.
func groupHits(hits []models.SearchHit, limit int) []Source {
	byID := make(map[string]int)
	var sources []Source

	for _, h := range hits {
		if i, ok := byID[h.ID]; ok {
			sources[i].ExchangeSeqs = append(sources[i].ExchangeSeqs, h.ExchangeSeq)
			continue
		}
		if len(sources) >= limit {
			continue
		}
		byID[h.ID] = len(sources)
		sources = append(sources, Source{
			SessionID:    h.ID,
			Title:        h.Title,
			Project:      h.Project,
			StartTime:    h.StartTime,
			ExchangeSeqs: []int{h.ExchangeSeq},
			Snippet:      cleanSnippet(h.Snippet),
		})
	}
	return sources
}

// assembleContext renders the selected exchanges in rank order until the
// budget is spent. Everything past the budget is the least relevant
// material, so it is what gets dropped.
func (o *Orchestrator) assembleContext(sources []Source) string {
	var b strings.Builder

	for _, src := range sources {
		if b.Len() >= o.budget {
			break
		}

		exchanges, err := o.retr.ExchangesBySeq(src.SessionID, src.ExchangeSeqs)
		if err != nil {
			// The source file may be gone or unreadable; the remaining
			// sessions still make a usable context.
			o.log.Warn("skipping session context", "session", src.SessionID, "error", err)
			continue
		}

		header := fmt.Sprintf("## Session %.8s", src.SessionID)
		if src.Title != "" {
			header += " — " + src.Title
		}
		if !src.StartTime.IsZero() {
			header += " (" + src.StartTime.Format("2006-01-02") + ")"
		}
		b.WriteString(header)
		b.WriteString("\n\n")

		for _, ex := range exchanges {
			if b.Len() >= o.budget {
				break
			}
			block := renderExchange(ex)
			if remaining := o.budget - b.Len(); len(block) > remaining {
				block = block[:remaining]
			}
			b.WriteString(block)
		}
		b.WriteString("\n")
	}

	return strings.TrimSpace(b.String())
}

func renderExchange(ex models.Exchange) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[exchange %d]\n", ex.Seq)
	if user := clip(ex.UserText(), maxExchangeBytes); user != "" {
		b.WriteString("User: " + user + "\n")
	}
	if asst := clip(ex.AssistantText(), maxExchangeBytes); asst != "" {
		b.WriteString("Assistant: " + asst + "\n")
	}
	b.WriteString("\n")
	return b.String()
}

func clip(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

func cleanSnippet(s string) string {
	s = strings.ReplaceAll(s, ">>>", "")
	s = strings.ReplaceAll(s, "<<<", "")
	return strings.Join(strings.Fields(s), " ")
}
