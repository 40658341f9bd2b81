package storage

import (
	"database/sql"
	"strings"
	"time"

	"github.com/jasperwreed/recall/internal/models"
)

// Filters narrow search and find results. Zero values mean "no filter".
type Filters struct {
	Client         string
	Project        string
	ExcludeProject string
	Tool           string
	Agent          string
	Date           string // YYYY-MM-DD prefix match on start time
	Since          time.Time
	Compacted      *bool
}

func (f Filters) clauses() (string, []any) {
	var conds []string
	var args []any

	if f.Client != "" {
		conds = append(conds, "s.client LIKE ?")
		args = append(args, "%"+f.Client+"%")
	}
	if f.Project != "" {
		conds = append(conds, "s.project LIKE ?")
		args = append(args, "%"+f.Project+"%")
	}
	if f.ExcludeProject != "" {
		conds = append(conds, "s.project NOT LIKE ?")
		args = append(args, "%"+f.ExcludeProject+"%")
	}
	if f.Tool != "" {
		conds = append(conds, "s.session_id IN (SELECT session_id FROM session_tools WHERE tool_name LIKE ?)")
		args = append(args, "%"+f.Tool+"%")
	}
	if f.Agent != "" {
		conds = append(conds, "s.session_id IN (SELECT session_id FROM session_agents WHERE agent_type LIKE ?)")
		args = append(args, "%"+f.Agent+"%")
	}
	if f.Date != "" {
		conds = append(conds, "s.start_time LIKE ?")
		args = append(args, f.Date+"%")
	}
	if !f.Since.IsZero() {
		conds = append(conds, "s.start_time >= ?")
		args = append(args, timeString(f.Since))
	}
	if f.Compacted != nil {
		conds = append(conds, "s.has_compaction = ?")
		args = append(args, boolInt(*f.Compacted))
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " AND " + strings.Join(conds, " AND "), args
}

// Search runs a full-text query over exchange documents. Results are ranked
// by bm25 relevance with session recency breaking ties, so repeated searches
// against an unchanged index return the same ordering.
func (s *Store) Search(query string, f Filters, limit int) ([]models.SearchHit, error) {
	match := EscapeQuery(query)
	if match == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}

	where, filterArgs := f.clauses()
	sqlStr := querySearch + where + " ORDER BY bm25(session_content), s.start_time DESC, c.session_id, c.exchange_seq LIMIT ?"

	args := append([]any{match}, filterArgs...)
	args = append(args, limit)

	rows, err := s.readDB.Query(sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hits []models.SearchHit
	for rows.Next() {
		var h models.SearchHit
		var client sql.NullString
		var start string
		var compacted int
		if err := rows.Scan(
			&h.ID, &h.ExchangeSeq, &h.Snippet, &h.Rank,
			&h.Project, &client, &h.Title, &start,
			&h.DurationMinutes, &h.ExchangeCount, &compacted,
		); err != nil {
			return nil, err
		}
		h.Client = client.String
		h.StartTime = parseTimeString(start)
		h.Compacted = compacted != 0
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// Find filters session metadata with no ranking, newest first.
func (s *Store) Find(f Filters, limit int) ([]models.SessionSummary, error) {
	if limit <= 0 {
		limit = 20
	}

	where, args := f.clauses()
	sqlStr := `SELECT s.session_id, s.project, s.client, s.title, s.start_time,
			s.duration_minutes, s.exchange_count, s.has_compaction
		FROM sessions s WHERE 1=1` + where + `
		ORDER BY s.start_time DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.readDB.Query(sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sums []models.SessionSummary
	for rows.Next() {
		var sum models.SessionSummary
		var client sql.NullString
		var start string
		var compacted int
		if err := rows.Scan(&sum.ID, &sum.Project, &client, &sum.Title, &start,
			&sum.DurationMinutes, &sum.ExchangeCount, &compacted); err != nil {
			return nil, err
		}
		sum.Client = client.String
		sum.StartTime = parseTimeString(start)
		sum.Compacted = compacted != 0
		sums = append(sums, sum)
	}
	return sums, rows.Err()
}

// Stats aggregates the whole index.
func (s *Store) Stats() (*models.Stats, error) {
	stats := &models.Stats{ByProject: make(map[string]int)}

	scalars := []struct {
		query string
		dst   *int
	}{
		{queryCountSessions, &stats.TotalSessions},
		{queryCountExchanges, &stats.TotalExchanges},
		{queryCountTopics, &stats.TotalTopics},
		{queryCountTools, &stats.DistinctTools},
		{queryCountAgents, &stats.DistinctAgents},
	}
	for _, sc := range scalars {
		if err := s.readDB.QueryRow(sc.query).Scan(sc.dst); err != nil {
			return nil, err
		}
	}

	var earliest, latest string
	if err := s.readDB.QueryRow(queryDateRange).Scan(&earliest, &latest); err != nil {
		return nil, err
	}
	stats.Earliest = parseTimeString(earliest)
	stats.Latest = parseTimeString(latest)

	rows, err := s.readDB.Query(queryGroupByProject)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var project string
		var count int
		if err := rows.Scan(&project, &count); err != nil {
			return nil, err
		}
		stats.ByProject[project] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	stats.TopTools, err = s.TopTools(10)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// TopTools returns global per-tool totals, most used first.
func (s *Store) TopTools(limit int) ([]models.ToolCount, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.readDB.Query(queryTopTools, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tools []models.ToolCount
	for rows.Next() {
		var tc models.ToolCount
		if err := rows.Scan(&tc.Name, &tc.Uses, &tc.Sessions); err != nil {
			return nil, err
		}
		tools = append(tools, tc)
	}
	return tools, rows.Err()
}

// SessionsUsingTool lists sessions that used a tool, heaviest users first.
func (s *Store) SessionsUsingTool(name string, limit int) ([]models.ToolSessionUse, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.readDB.Query(queryToolSessions, "%"+name+"%", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var uses []models.ToolSessionUse
	for rows.Next() {
		var u models.ToolSessionUse
		var start string
		if err := rows.Scan(&u.SessionID, &u.Title, &start, &u.ToolName, &u.UseCount); err != nil {
			return nil, err
		}
		u.StartTime = parseTimeString(start)
		uses = append(uses, u)
	}
	return uses, rows.Err()
}

// EscapeQuery makes a user query safe for FTS5 MATCH by wrapping each token
// in double quotes, so periods, hyphens, and reserved words (AND, OR, NOT,
// NEAR) read as literals. Phrases the user already quoted pass through
// intact.
func EscapeQuery(query string) string {
	query = strings.TrimSpace(query)
	if query == "" {
		return ""
	}

	var tokens []string
	i := 0
	for i < len(query) {
		switch {
		case query[i] == ' ' || query[i] == '\t' || query[i] == '\n':
			i++
		case query[i] == '"':
			end := strings.IndexByte(query[i+1:], '"')
			if end < 0 {
				// Unterminated quote: wrap the remainder as one phrase.
				tokens = append(tokens, `"`+strings.ReplaceAll(query[i+1:], `"`, `""`)+`"`)
				i = len(query)
				break
			}
			tokens = append(tokens, query[i:i+end+2])
			i += end + 2
		default:
			start := i
			for i < len(query) && query[i] != ' ' && query[i] != '\t' && query[i] != '\n' && query[i] != '"' {
				i++
			}
			tokens = append(tokens, `"`+strings.ReplaceAll(query[start:i], `"`, `""`)+`"`)
		}
	}

	return strings.Join(tokens, " ")
}
