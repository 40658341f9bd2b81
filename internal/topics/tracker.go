// Package topics keeps the append-only timeline of externally captured
// topic snapshots. The tracker is trigger-agnostic: it records what the
// hook mechanism delivers and never derives topics itself.
package topics

import (
	"errors"
	"sync"
	"time"

	"github.com/jasperwreed/recall/internal/models"
	"github.com/jasperwreed/recall/internal/storage"
)

type Tracker struct {
	store *storage.Store
	mu    sync.Mutex
}

func New(store *storage.Store) *Tracker {
	return &Tracker{store: store}
}

// Append records one topic snapshot. Concurrent appends are serialized so
// arrival order breaks timestamp ties in the stored timeline. A zero
// timestamp means "now".
func (t *Tracker) Append(sessionID, text, trigger string, at time.Time) error {
	if sessionID == "" {
		return errors.New("topic append: empty session id")
	}
	if text == "" {
		return errors.New("topic append: empty topic text")
	}
	if at.IsZero() {
		at = time.Now()
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	return t.store.AppendTopic(models.TopicSnapshot{
		SessionID:  sessionID,
		Topic:      text,
		Trigger:    trigger,
		CapturedAt: at.UTC(),
	})
}

// Timeline returns a session's snapshots ordered by timestamp, ties broken
// by insertion order.
func (t *Tracker) Timeline(sessionID string) ([]models.TopicSnapshot, error) {
	return t.store.TopicTimeline(sessionID)
}
