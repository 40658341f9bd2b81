package models

import "time"

// RecordKind discriminates the typed records a transcript line can yield.
// Unrecognized line shapes map to RecordOther rather than failing the parse.
type RecordKind int

const (
	RecordUser RecordKind = iota
	RecordAssistant
	RecordToolCall
	RecordToolResult
	RecordAgent
	RecordCompaction
	RecordOther
)

func (k RecordKind) String() string {
	switch k {
	case RecordUser:
		return "user"
	case RecordAssistant:
		return "assistant"
	case RecordToolCall:
		return "tool_call"
	case RecordToolResult:
		return "tool_result"
	case RecordAgent:
		return "agent"
	case RecordCompaction:
		return "compaction"
	default:
		return "other"
	}
}

// Record is one typed event from a session transcript. A single JSONL line
// may yield several records: an assistant message carries text and tool
// calls as separate content blocks.
type Record struct {
	Kind      RecordKind
	Timestamp time.Time // normalized to UTC; zero when the line carried none
	Text      string    // user or assistant prose
	ToolName  string    // RecordToolCall
	Preview   string    // bounded tool input/result preview
	AgentType string    // RecordAgent
}
