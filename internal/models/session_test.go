package models

import (
	"strings"
	"testing"
	"time"
)

func TestFingerprintString(t *testing.T) {
	fp := Fingerprint{Size: 1024, ModTime: time.Unix(1709290800, 500)}
	want := "1024:1709290800000000500"
	if got := fp.String(); got != want {
		t.Errorf("Fingerprint.String() = %q, want %q", got, want)
	}

	a := Fingerprint{Size: 10, ModTime: time.Unix(100, 0)}
	b := Fingerprint{Size: 11, ModTime: time.Unix(100, 0)}
	if a.String() == b.String() {
		t.Error("size change must change the fingerprint")
	}
}

func TestExchangeContent(t *testing.T) {
	ex := Exchange{
		Seq: 1,
		Records: []Record{
			{Kind: RecordUser, Text: "why is the webhook failing"},
			{Kind: RecordAssistant, Text: "checking the handler"},
			{Kind: RecordToolCall, ToolName: "Bash", Preview: "curl -v localhost:8080"},
			{Kind: RecordToolResult, Preview: "HTTP 500"},
			{Kind: RecordAgent, AgentType: "debugger"},
			{Kind: RecordCompaction},
		},
	}

	content := ex.Content()
	for _, want := range []string{"webhook failing", "checking the handler", "Bash: curl", "HTTP 500", "debugger"} {
		if !strings.Contains(content, want) {
			t.Errorf("content missing %q:\n%s", want, content)
		}
	}

	if ex.UserText() != "why is the webhook failing" {
		t.Errorf("UserText = %q", ex.UserText())
	}
	if ex.AssistantText() != "checking the handler" {
		t.Errorf("AssistantText = %q", ex.AssistantText())
	}
}

func TestExchangeEndTime(t *testing.T) {
	t0 := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	ex := Exchange{Records: []Record{
		{Kind: RecordUser, Timestamp: t0},
		{Kind: RecordAssistant}, // no timestamp
		{Kind: RecordAssistant, Timestamp: t0.Add(time.Minute)},
	}}
	if !ex.EndTime().Equal(t0.Add(time.Minute)) {
		t.Errorf("EndTime = %v", ex.EndTime())
	}
}

func TestResumeHandle(t *testing.T) {
	sum := SessionSummary{ID: "5a1ed4a0-9e9b-4c7a-8f2e-0c3d9b6a1e22"}
	if sum.ResumeHandle() != sum.ID {
		t.Errorf("resume handle must be the full session id, got %q", sum.ResumeHandle())
	}
}
