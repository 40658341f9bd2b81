package transcript

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/jasperwreed/recall/internal/models"
)

// previewLimit bounds tool input/result previews stored in the index. The
// unabridged payload stays in the source file only.
const previewLimit = 240

// Transcript is the parsed view of one session file.
type Transcript struct {
	Records     []models.Record
	ParseErrors int
}

// ParseFile reads a session file and parses it line by line.
func ParseFile(path string) (*Transcript, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open transcript: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse consumes one JSON record per line. Malformed lines are skipped and
// counted, never fatal. A trailing line without a newline is treated as not
// yet written out by the producer and ignored entirely.
func Parse(r io.Reader) (*Transcript, error) {
	br := bufio.NewReaderSize(r, 256*1024)
	t := &Transcript{}

	for {
		line, err := br.ReadString('\n')
		if err == io.EOF {
			// Any bytes here belong to a line the producer has not
			// finished writing.
			return t, nil
		}
		if err != nil {
			return t, fmt.Errorf("read transcript: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		recs, ok := parseLine(line)
		if !ok {
			t.ParseErrors++
			continue
		}
		t.Records = append(t.Records, recs...)
	}
}

// rawLine is the envelope shared by every transcript line shape.
type rawLine struct {
	Type             string          `json:"type"`
	Message          json.RawMessage `json:"message"`
	Timestamp        string          `json:"timestamp"`
	SessionID        string          `json:"sessionId"`
	CWD              string          `json:"cwd"`
	Subtype          string          `json:"subtype"`
	IsMeta           bool            `json:"isMeta"`
	IsCompactSummary bool            `json:"isCompactSummary"`
}

type rawMessage struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

type contentBlock struct {
	Type    string          `json:"type"`
	Text    string          `json:"text,omitempty"`
	Name    string          `json:"name,omitempty"`
	Input   json.RawMessage `json:"input,omitempty"`
	Content json.RawMessage `json:"content,omitempty"`
}

func parseLine(line string) ([]models.Record, bool) {
	var raw rawLine
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
		return nil, false
	}

	ts := parseTimestamp(raw.Timestamp)

	switch raw.Type {
	case "user":
		return parseUserLine(raw, ts), true
	case "assistant":
		return parseAssistantLine(raw, ts), true
	case "summary":
		// Post-compaction summary line.
		return []models.Record{{Kind: models.RecordCompaction, Timestamp: ts}}, true
	case "system":
		if raw.Subtype == "compact_boundary" {
			return []models.Record{{Kind: models.RecordCompaction, Timestamp: ts}}, true
		}
		return []models.Record{{Kind: models.RecordOther, Timestamp: ts}}, true
	default:
		return []models.Record{{Kind: models.RecordOther, Timestamp: ts}}, true
	}
}

func parseUserLine(raw rawLine, ts time.Time) []models.Record {
	if raw.IsCompactSummary {
		// The continuation message injected after compaction is a marker,
		// not a real user turn; letting it open an exchange would inflate
		// the count relative to what the user actually typed.
		return []models.Record{{Kind: models.RecordCompaction, Timestamp: ts}}
	}

	var msg rawMessage
	if err := json.Unmarshal(raw.Message, &msg); err != nil {
		return []models.Record{{Kind: models.RecordOther, Timestamp: ts}}
	}

	// Plain string content is the common case.
	var text string
	if err := json.Unmarshal(msg.Content, &text); err == nil {
		if raw.IsMeta || text == "" {
			return []models.Record{{Kind: models.RecordOther, Timestamp: ts}}
		}
		return []models.Record{{Kind: models.RecordUser, Timestamp: ts, Text: text}}
	}

	// Structured content: text blocks and tool results interleaved.
	var blocks []contentBlock
	if err := json.Unmarshal(msg.Content, &blocks); err != nil {
		return []models.Record{{Kind: models.RecordOther, Timestamp: ts}}
	}

	var recs []models.Record
	var textParts []string
	for _, b := range blocks {
		switch b.Type {
		case "text":
			if b.Text != "" {
				textParts = append(textParts, b.Text)
			}
		case "tool_result":
			recs = append(recs, models.Record{
				Kind:      models.RecordToolResult,
				Timestamp: ts,
				Preview:   previewOf(b.Content),
			})
		}
	}
	if len(textParts) > 0 && !raw.IsMeta {
		recs = append([]models.Record{{
			Kind:      models.RecordUser,
			Timestamp: ts,
			Text:      strings.Join(textParts, "\n"),
		}}, recs...)
	}
	if len(recs) == 0 {
		recs = append(recs, models.Record{Kind: models.RecordOther, Timestamp: ts})
	}
	return recs
}

func parseAssistantLine(raw rawLine, ts time.Time) []models.Record {
	var msg struct {
		Role    string         `json:"role"`
		Content []contentBlock `json:"content"`
	}
	if err := json.Unmarshal(raw.Message, &msg); err != nil {
		return []models.Record{{Kind: models.RecordOther, Timestamp: ts}}
	}

	var recs []models.Record
	for _, b := range msg.Content {
		switch b.Type {
		case "text":
			if b.Text != "" {
				recs = append(recs, models.Record{
					Kind:      models.RecordAssistant,
					Timestamp: ts,
					Text:      b.Text,
				})
			}
		case "tool_use":
			recs = append(recs, models.Record{
				Kind:      models.RecordToolCall,
				Timestamp: ts,
				ToolName:  b.Name,
				Preview:   previewOf(b.Input),
			})
			if b.Name == "Task" {
				recs = append(recs, models.Record{
					Kind:      models.RecordAgent,
					Timestamp: ts,
					AgentType: agentTypeOf(b.Input),
				})
			}
		}
	}
	if len(recs) == 0 {
		recs = append(recs, models.Record{Kind: models.RecordOther, Timestamp: ts})
	}
	return recs
}

// previewOf reduces an arbitrary tool payload to a bounded plain-text
// preview. Payloads can be a bare string, a block list, or any JSON object.
func previewOf(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return truncate(s, previewLimit)
	}

	var blocks []contentBlock
	if err := json.Unmarshal(raw, &blocks); err == nil {
		var parts []string
		for _, b := range blocks {
			if b.Type == "text" && b.Text != "" {
				parts = append(parts, b.Text)
			}
		}
		return truncate(strings.Join(parts, "\n"), previewLimit)
	}

	return truncate(string(raw), previewLimit)
}

func agentTypeOf(raw json.RawMessage) string {
	var input struct {
		SubagentType string `json:"subagent_type"`
	}
	if err := json.Unmarshal(raw, &input); err != nil || input.SubagentType == "" {
		return "general-purpose"
	}
	return input.SubagentType
}

func parseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	cut := s[:max]
	// Avoid splitting a multi-byte rune.
	for len(cut) > 0 && cut[len(cut)-1]&0xC0 == 0x80 {
		cut = cut[:len(cut)-1]
	}
	if len(cut) > 0 && cut[len(cut)-1] >= 0xC0 {
		cut = cut[:len(cut)-1]
	}
	return cut + "..."
}
