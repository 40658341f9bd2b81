package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jasperwreed/recall/internal/models"
)

// ErrNotFound is returned when a requested session has no indexed record.
var ErrNotFound = errors.New("session not found")

// Store is the durable index over all discovered sessions. Writes go through
// a single connection and are serialized per session, so concurrent indexing
// of different sessions proceeds unimpeded while two indexers racing on the
// same id cannot interleave.
type Store struct {
	writeDB *sql.DB // single connection for writes
	readDB  *sql.DB // pool of connections for reads
	dbPath  string
	locks   sync.Map // session id -> *sync.Mutex
}

func NewStore(dbPath string) (*Store, error) {
	if dbPath == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		dbPath = filepath.Join(homeDir, ".recall", "index.db")
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	writeDB, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open write database: %w", err)
	}
	writeDB.SetMaxOpenConns(1)

	readDB, err := sql.Open("sqlite", dbPath)
	if err != nil {
		writeDB.Close()
		return nil, fmt.Errorf("failed to open read database: %w", err)
	}
	readDB.SetMaxOpenConns(5)
	readDB.SetMaxIdleConns(5)

	store := &Store{
		writeDB: writeDB,
		readDB:  readDB,
		dbPath:  dbPath,
	}

	if err := store.initializeDB(); err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if err := store.createTables(); err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return store, nil
}

func (s *Store) initializeDB() error {
	for _, pragma := range DefaultConfig().pragmas() {
		if _, err := s.writeDB.Exec(pragma); err != nil {
			return fmt.Errorf("failed to set %s: %w", pragma, err)
		}
	}
	return nil
}

func (s *Store) createTables() error {
	queries := []string{
		queryCreateSessionsTable,
		queryCreateContentTable,
		queryCreateToolsTable,
		queryCreateAgentsTable,
		queryCreateTopicsTable,
		queryCreateFingerprintsTable,
		queryCreateIndexSessionsProject,
		queryCreateIndexSessionsClient,
		queryCreateIndexSessionsStart,
		queryCreateIndexToolsName,
		queryCreateIndexAgentsSession,
		queryCreateIndexTopicsSession,
	}
	for _, query := range queries {
		if _, err := s.writeDB.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
	}
	return nil
}

func (s *Store) sessionLock(id string) *sync.Mutex {
	v, _ := s.locks.LoadOrStore(id, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// Upsert replaces every file-derived row for a session and records its
// fingerprint in one transaction. Topic snapshots are externally captured
// and survive reindexing. A failure mid-write leaves the prior complete
// state intact.
func (s *Store) Upsert(sess *models.Session, fingerprint string) error {
	mu := s.sessionLock(sess.ID)
	mu.Lock()
	defer mu.Unlock()

	tx, err := s.writeDB.Begin()
	if err != nil {
		return fmt.Errorf("begin upsert: %w", err)
	}
	defer tx.Rollback()

	for _, q := range []string{queryDeleteSession, queryDeleteContent, queryDeleteTools, queryDeleteAgents, queryDeleteFingerprint} {
		if _, err := tx.Exec(q, sess.ID); err != nil {
			return fmt.Errorf("clear session %s: %w", sess.ID, err)
		}
	}

	if _, err := tx.Exec(queryInsertSession,
		sess.ID, sess.Project, nullable(sess.Client), sess.Title,
		timeString(sess.StartTime), timeString(sess.EndTime),
		sess.DurationMinutes, sess.ExchangeCount,
		boolInt(sess.Compacted), sess.ParseErrors, sess.SourcePath,
	); err != nil {
		return fmt.Errorf("insert session %s: %w", sess.ID, err)
	}

	for _, doc := range sess.Exchanges {
		if _, err := tx.Exec(queryInsertContent, sess.ID, doc.Seq, doc.Content); err != nil {
			return fmt.Errorf("insert content %s#%d: %w", sess.ID, doc.Seq, err)
		}
	}
	for name, count := range sess.Tools {
		if _, err := tx.Exec(queryInsertTool, sess.ID, name, count); err != nil {
			return fmt.Errorf("insert tool %s/%s: %w", sess.ID, name, err)
		}
	}
	for _, a := range sess.Agents {
		if _, err := tx.Exec(queryInsertAgent, sess.ID, a.ExchangeSeq, a.AgentType); err != nil {
			return fmt.Errorf("insert agent %s#%d: %w", sess.ID, a.ExchangeSeq, err)
		}
	}

	if _, err := tx.Exec(queryInsertFingerprint, sess.ID, fingerprint, timeString(time.Now().UTC())); err != nil {
		return fmt.Errorf("record fingerprint %s: %w", sess.ID, err)
	}

	return tx.Commit()
}

// Fingerprint returns the stored fingerprint for a session, if any.
func (s *Store) Fingerprint(sessionID string) (string, bool, error) {
	var fp string
	err := s.readDB.QueryRow(querySelectFingerprint, sessionID).Scan(&fp)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return fp, true, nil
}

// Fingerprints returns every stored fingerprint keyed by session id.
func (s *Store) Fingerprints() (map[string]string, error) {
	rows, err := s.readDB.Query(querySelectFingerprints)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fps := make(map[string]string)
	for rows.Next() {
		var id, fp string
		if err := rows.Scan(&id, &fp); err != nil {
			return nil, err
		}
		fps[id] = fp
	}
	return fps, rows.Err()
}

// IndexedAt returns when a session was last indexed.
func (s *Store) IndexedAt(sessionID string) (time.Time, error) {
	var raw string
	err := s.readDB.QueryRow(querySelectIndexedAt, sessionID).Scan(&raw)
	if err == sql.ErrNoRows {
		return time.Time{}, ErrNotFound
	}
	if err != nil {
		return time.Time{}, err
	}
	return parseTimeString(raw), nil
}

// GetSession returns a session's indexed metadata, or ErrNotFound.
func (s *Store) GetSession(sessionID string) (*models.Session, error) {
	var sess models.Session
	var client sql.NullString
	var start, end string
	var compacted int

	err := s.readDB.QueryRow(querySelectSession, sessionID).Scan(
		&sess.ID, &sess.Project, &client, &sess.Title, &start, &end,
		&sess.DurationMinutes, &sess.ExchangeCount, &compacted,
		&sess.ParseErrors, &sess.SourcePath,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	sess.Client = client.String
	sess.StartTime = parseTimeString(start)
	sess.EndTime = parseTimeString(end)
	sess.Compacted = compacted != 0
	return &sess, nil
}

// SourcePath returns the transcript path backing an indexed session.
func (s *Store) SourcePath(sessionID string) (string, error) {
	sess, err := s.GetSession(sessionID)
	if err != nil {
		return "", err
	}
	return sess.SourcePath, nil
}

// ResolveID expands a session id prefix to a full id, so commands accept
// the 8-char short form shown in listings.
func (s *Store) ResolveID(prefix string) (string, error) {
	var id string
	err := s.readDB.QueryRow(queryResolvePrefix, prefix+"%").Scan(&id)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return id, nil
}

// AppendTopic adds one immutable topic snapshot. The single write connection
// serializes concurrent appends; insertion order breaks timestamp ties.
func (s *Store) AppendTopic(snap models.TopicSnapshot) error {
	_, err := s.writeDB.Exec(queryInsertTopic,
		snap.SessionID, snap.Topic, snap.Trigger, timeString(snap.CapturedAt.UTC()))
	return err
}

// TopicTimeline returns a session's topic snapshots in timeline order.
func (s *Store) TopicTimeline(sessionID string) ([]models.TopicSnapshot, error) {
	rows, err := s.readDB.Query(querySelectTopics, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var topics []models.TopicSnapshot
	for rows.Next() {
		var t models.TopicSnapshot
		var at string
		if err := rows.Scan(&t.SessionID, &t.Topic, &t.Trigger, &at); err != nil {
			return nil, err
		}
		t.CapturedAt = parseTimeString(at)
		topics = append(topics, t)
	}
	return topics, rows.Err()
}

func (s *Store) Close() error {
	var errs []error

	if _, err := s.writeDB.Exec("PRAGMA optimize"); err != nil {
		errs = append(errs, fmt.Errorf("failed to optimize: %w", err))
	}
	if err := s.readDB.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close read db: %w", err))
	}
	if err := s.writeDB.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close write db: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

func timeString(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTimeString(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
