// Package retriever reconstructs ordered conversation exchanges by
// re-reading the raw source file. Full text is never duplicated into the
// index, so context views always come from here.
package retriever

import (
	"fmt"
	"strings"

	"github.com/jasperwreed/recall/internal/models"
	"github.com/jasperwreed/recall/internal/storage"
	"github.com/jasperwreed/recall/internal/transcript"
)

type Retriever struct {
	store *storage.Store
}

func New(store *storage.Store) *Retriever {
	return &Retriever{store: store}
}

// Exchanges returns a session's exchanges in file order. Boundaries come
// from transcript.SplitExchanges, the same function indexing uses, so the
// sequence numbers here always line up with search results.
//
// With a term, only exchanges containing it (case-insensitive) are returned;
// they keep their original sequence numbers.
func (r *Retriever) Exchanges(sessionID, term string) ([]models.Exchange, error) {
	path, err := r.store.SourcePath(sessionID)
	if err != nil {
		return nil, err
	}

	t, err := transcript.ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("reread session %s: %w", sessionID, err)
	}

	exchanges := transcript.SplitExchanges(t.Records)
	if term == "" {
		return exchanges, nil
	}

	needle := strings.ToLower(term)
	var matched []models.Exchange
	for _, ex := range exchanges {
		if strings.Contains(strings.ToLower(ex.Content()), needle) {
			matched = append(matched, ex)
		}
	}
	return matched, nil
}

// ExchangesBySeq returns the named exchanges only, in ascending sequence
// order. Sequence numbers that no longer exist (the file shrank or was
// rewritten since indexing) are silently dropped.
func (r *Retriever) ExchangesBySeq(sessionID string, seqs []int) ([]models.Exchange, error) {
	exchanges, err := r.Exchanges(sessionID, "")
	if err != nil {
		return nil, err
	}

	want := make(map[int]bool, len(seqs))
	for _, seq := range seqs {
		want[seq] = true
	}

	var selected []models.Exchange
	for _, ex := range exchanges {
		if want[ex.Seq] {
			selected = append(selected, ex)
		}
	}
	return selected, nil
}
