package transcript

import (
	"strings"

	"github.com/jasperwreed/recall/internal/models"
)

const defaultTitleLimit = 80

// BuildConfig carries the externally supplied knobs for session reduction.
// Client names come from configuration; the builder never computes them.
type BuildConfig struct {
	Clients    []string
	TitleLimit int
}

// BuildSession reduces a parsed transcript into the derived session model.
// The reduction is pure: the same records always yield the same model.
func BuildSession(id, path, project string, t *Transcript, cfg BuildConfig) *models.Session {
	titleLimit := cfg.TitleLimit
	if titleLimit <= 0 {
		titleLimit = defaultTitleLimit
	}

	sess := &models.Session{
		ID:          id,
		Project:     project,
		SourcePath:  path,
		ParseErrors: t.ParseErrors,
		Tools:       make(map[string]int),
	}

	for _, rec := range t.Records {
		if !rec.Timestamp.IsZero() {
			if sess.StartTime.IsZero() {
				sess.StartTime = rec.Timestamp
			}
			sess.EndTime = rec.Timestamp
		}
		switch rec.Kind {
		case models.RecordToolCall:
			sess.Tools[rec.ToolName]++
		case models.RecordCompaction:
			sess.Compacted = true
		}
	}
	if !sess.StartTime.IsZero() && !sess.EndTime.IsZero() {
		sess.DurationMinutes = int(sess.EndTime.Sub(sess.StartTime).Minutes())
	}

	exchanges := SplitExchanges(t.Records)
	sess.ExchangeCount = len(exchanges)
	for _, ex := range exchanges {
		sess.Exchanges = append(sess.Exchanges, models.ExchangeDoc{
			Seq:     ex.Seq,
			Content: ex.Content(),
		})
		for _, rec := range ex.Records {
			if rec.Kind == models.RecordAgent {
				sess.Agents = append(sess.Agents, models.AgentUse{
					ExchangeSeq: ex.Seq,
					AgentType:   rec.AgentType,
				})
			}
		}
	}

	sess.Title = inferTitle(t.Records, titleLimit)
	sess.Client = matchClient(t.Records, cfg.Clients)

	return sess
}

// inferTitle picks the first substantive user text. Command transcripts and
// caveat banners are noise, not titles.
func inferTitle(records []models.Record, limit int) string {
	for _, rec := range records {
		if rec.Kind != models.RecordUser {
			continue
		}
		text := strings.TrimSpace(rec.Text)
		if text == "" || strings.HasPrefix(text, "<") || strings.HasPrefix(text, "Caveat:") {
			continue
		}
		text = strings.Join(strings.Fields(text), " ")
		return truncate(text, limit)
	}
	return ""
}

// matchClient returns the first configured client name appearing anywhere in
// the session's prose, case-insensitively. No match leaves the session
// untagged.
func matchClient(records []models.Record, clients []string) string {
	if len(clients) == 0 {
		return ""
	}
	for _, rec := range records {
		if rec.Text == "" {
			continue
		}
		lower := strings.ToLower(rec.Text)
		for _, c := range clients {
			if c != "" && strings.Contains(lower, strings.ToLower(c)) {
				return c
			}
		}
	}
	return ""
}
