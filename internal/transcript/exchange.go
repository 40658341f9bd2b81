package transcript

import "github.com/jasperwreed/recall/internal/models"

// SplitExchanges derives exchange boundaries from a record sequence: a user
// turn opens a new exchange and everything up to the next user turn belongs
// to it. Indexing and context retrieval both go through this function so the
// sequence numbers they report can never diverge.
//
// Records before the first user turn (summary lines, orphan tool results)
// belong to no exchange.
func SplitExchanges(records []models.Record) []models.Exchange {
	var exchanges []models.Exchange
	idx := -1

	for _, rec := range records {
		if rec.Kind == models.RecordUser {
			exchanges = append(exchanges, models.Exchange{
				Seq:       len(exchanges) + 1,
				StartTime: rec.Timestamp,
			})
			idx = len(exchanges) - 1
		}
		if idx < 0 {
			continue
		}
		exchanges[idx].Records = append(exchanges[idx].Records, rec)
	}

	return exchanges
}
