package models

import (
	"fmt"
	"strings"
	"time"
)

// Fingerprint is a cheap proxy for file content, used to decide whether a
// session needs reindexing without reading the file.
type Fingerprint struct {
	Size    int64
	ModTime time.Time
}

func (f Fingerprint) String() string {
	return fmt.Sprintf("%d:%d", f.Size, f.ModTime.UnixNano())
}

// Session is the fully derived model for one transcript file. Everything in
// it is recomputed from the source file on each index pass.
type Session struct {
	ID              string    `json:"session_id"`
	Project         string    `json:"project"`
	Client          string    `json:"client,omitempty"`
	Title           string    `json:"title"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	DurationMinutes int       `json:"duration_minutes"`
	ExchangeCount   int       `json:"exchange_count"`
	Compacted       bool      `json:"compacted"`
	ParseErrors     int       `json:"parse_errors"`
	SourcePath      string    `json:"source_path"`

	Tools     map[string]int `json:"tools,omitempty"`
	Agents    []AgentUse     `json:"agents,omitempty"`
	Exchanges []ExchangeDoc  `json:"-"`
}

// AgentUse records one sub-agent invocation within a session.
type AgentUse struct {
	ExchangeSeq int    `json:"exchange_seq"`
	AgentType   string `json:"agent_type"`
}

// ExchangeDoc is the full-text document indexed for one exchange.
type ExchangeDoc struct {
	Seq     int
	Content string
}

// Exchange is one user turn plus all assistant activity up to the next user
// turn. Seq starts at 1 and is strictly increasing within a session.
type Exchange struct {
	Seq       int
	StartTime time.Time
	Records   []Record
}

func (e Exchange) UserText() string      { return e.textOf(RecordUser) }
func (e Exchange) AssistantText() string { return e.textOf(RecordAssistant) }

func (e Exchange) textOf(kind RecordKind) string {
	var parts []string
	for _, r := range e.Records {
		if r.Kind == kind && r.Text != "" {
			parts = append(parts, r.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// Content renders the exchange as a single searchable document: prose plus
// tool names, previews, and agent types.
func (e Exchange) Content() string {
	var b strings.Builder
	for _, r := range e.Records {
		switch r.Kind {
		case RecordUser, RecordAssistant:
			if r.Text != "" {
				b.WriteString(r.Text)
				b.WriteByte('\n')
			}
		case RecordToolCall:
			b.WriteString(r.ToolName)
			if r.Preview != "" {
				b.WriteString(": ")
				b.WriteString(r.Preview)
			}
			b.WriteByte('\n')
		case RecordToolResult:
			if r.Preview != "" {
				b.WriteString(r.Preview)
				b.WriteByte('\n')
			}
		case RecordAgent:
			if r.AgentType != "" {
				b.WriteString(r.AgentType)
				b.WriteByte('\n')
			}
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// EndTime returns the last timestamp carried by any record in the exchange.
func (e Exchange) EndTime() time.Time {
	var last time.Time
	for _, r := range e.Records {
		if !r.Timestamp.IsZero() {
			last = r.Timestamp
		}
	}
	return last
}

// SessionSummary is the metadata-only view returned by find and search.
type SessionSummary struct {
	ID              string    `json:"session_id"`
	Project         string    `json:"project"`
	Client          string    `json:"client,omitempty"`
	Title           string    `json:"title"`
	StartTime       time.Time `json:"start_time"`
	DurationMinutes int       `json:"duration_minutes"`
	ExchangeCount   int       `json:"exchange_count"`
	Compacted       bool      `json:"compacted"`
}

// ResumeHandle is the stable identifier a caller can use to re-open the
// original conversation.
func (s SessionSummary) ResumeHandle() string { return s.ID }

// SearchHit is one ranked full-text match, citing the specific exchange.
type SearchHit struct {
	SessionSummary
	ExchangeSeq int     `json:"exchange_seq"`
	Snippet     string  `json:"snippet"`
	Rank        float64 `json:"rank"`
}

// TopicSnapshot is an externally captured description of session activity.
// Rows are append-only and immutable once written.
type TopicSnapshot struct {
	SessionID  string    `json:"session_id"`
	Topic      string    `json:"topic"`
	Trigger    string    `json:"trigger"`
	CapturedAt time.Time `json:"captured_at"`
}

// Topic snapshot triggers delivered by the external hook mechanism.
const (
	TriggerPeriodic      = "periodic"
	TriggerPreCompaction = "pre-compaction"
	TriggerSessionEnd    = "session-end"
)

// Stats is the aggregate analytics view over the whole index.
type Stats struct {
	TotalSessions  int            `json:"total_sessions"`
	TotalExchanges int            `json:"total_exchanges"`
	TotalTopics    int            `json:"total_topics"`
	DistinctTools  int            `json:"distinct_tools"`
	DistinctAgents int            `json:"distinct_agents"`
	Earliest       time.Time      `json:"earliest,omitempty"`
	Latest         time.Time      `json:"latest,omitempty"`
	ByProject      map[string]int `json:"by_project"`
	TopTools       []ToolCount    `json:"top_tools"`
}

// ToolCount is an aggregate row for one tool across sessions.
type ToolCount struct {
	Name     string `json:"name"`
	Uses     int    `json:"uses"`
	Sessions int    `json:"sessions"`
}

// ToolSessionUse is one session's usage of a particular tool.
type ToolSessionUse struct {
	SessionID string    `json:"session_id"`
	Title     string    `json:"title"`
	StartTime time.Time `json:"start_time"`
	ToolName  string    `json:"tool_name"`
	UseCount  int       `json:"use_count"`
}
