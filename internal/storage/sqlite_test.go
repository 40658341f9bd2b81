package storage

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jasperwreed/recall/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func testSession(id, project, title string, start time.Time, exchanges ...string) *models.Session {
	sess := &models.Session{
		ID:         id,
		Project:    project,
		Title:      title,
		StartTime:  start,
		EndTime:    start.Add(10 * time.Minute),
		SourcePath: "/tmp/" + id + ".jsonl",
		Tools:      map[string]int{},
	}
	sess.DurationMinutes = 10
	sess.ExchangeCount = len(exchanges)
	for i, content := range exchanges {
		sess.Exchanges = append(sess.Exchanges, models.ExchangeDoc{Seq: i + 1, Content: content})
	}
	return sess
}

func mustUpsert(t *testing.T, store *Store, sess *models.Session) {
	t.Helper()
	if err := store.Upsert(sess, "1:1"); err != nil {
		t.Fatalf("upsert %s: %v", sess.ID, err)
	}
}

func TestUpsert(t *testing.T) {
	start := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	t.Run("Roundtrip", func(t *testing.T) {
		store := newTestStore(t)
		sess := testSession("aaaa1111-0000-0000-0000-000000000001", "app", "fix webhook retries", start,
			"User: debug webhook\nAssistant: checking logs")
		sess.Client = "Acme"
		sess.Tools = map[string]int{"Bash": 3, "Read": 1}
		sess.Agents = []models.AgentUse{{ExchangeSeq: 1, AgentType: "code-reviewer"}}
		sess.Compacted = true
		sess.ParseErrors = 2
		mustUpsert(t, store, sess)

		got, err := store.GetSession(sess.ID)
		if err != nil {
			t.Fatalf("get session: %v", err)
		}
		if got.Project != "app" || got.Client != "Acme" || got.Title != "fix webhook retries" {
			t.Errorf("metadata mismatch: %+v", got)
		}
		if !got.StartTime.Equal(start) {
			t.Errorf("start time %v, want %v", got.StartTime, start)
		}
		if !got.Compacted || got.ParseErrors != 2 || got.ExchangeCount != 1 {
			t.Errorf("derived fields mismatch: %+v", got)
		}
		if got.SourcePath != sess.SourcePath {
			t.Errorf("source path %q, want %q", got.SourcePath, sess.SourcePath)
		}
	})

	t.Run("ReplaceRemovesStaleRows", func(t *testing.T) {
		store := newTestStore(t)
		id := "aaaa1111-0000-0000-0000-000000000002"
		first := testSession(id, "app", "v1", start, "talks about kubernetes", "talks about terraform")
		first.Tools = map[string]int{"Bash": 5}
		mustUpsert(t, store, first)

		second := testSession(id, "app", "v2", start, "talks about caching only")
		mustUpsert(t, store, second)

		if hits, _ := store.Search("terraform", Filters{}, 10); len(hits) != 0 {
			t.Errorf("stale exchange content still searchable: %+v", hits)
		}
		hits, err := store.Search("caching", Filters{}, 10)
		if err != nil || len(hits) != 1 {
			t.Fatalf("expected 1 hit for replacement content, got %d (%v)", len(hits), err)
		}
		if tools, _ := store.TopTools(10); len(tools) != 0 {
			t.Errorf("stale tool rows survived replacement: %+v", tools)
		}
		got, _ := store.GetSession(id)
		if got.Title != "v2" {
			t.Errorf("expected replaced title, got %q", got.Title)
		}
	})

	t.Run("TopicsSurviveReindex", func(t *testing.T) {
		store := newTestStore(t)
		id := "aaaa1111-0000-0000-0000-000000000003"
		mustUpsert(t, store, testSession(id, "app", "v1", start, "one"))

		snap := models.TopicSnapshot{
			SessionID:  id,
			Topic:      "debugging webhook retries",
			Trigger:    models.TriggerPeriodic,
			CapturedAt: start.Add(time.Minute),
		}
		if err := store.AppendTopic(snap); err != nil {
			t.Fatalf("append topic: %v", err)
		}

		mustUpsert(t, store, testSession(id, "app", "v2", start, "two"))

		topics, err := store.TopicTimeline(id)
		if err != nil || len(topics) != 1 {
			t.Fatalf("expected topic to survive reindex, got %d (%v)", len(topics), err)
		}
		if topics[0].Topic != snap.Topic || topics[0].Trigger != models.TriggerPeriodic {
			t.Errorf("topic row mangled: %+v", topics[0])
		}
	})

	t.Run("FingerprintRecorded", func(t *testing.T) {
		store := newTestStore(t)
		id := "aaaa1111-0000-0000-0000-000000000004"
		sess := testSession(id, "app", "t", start, "one")
		if err := store.Upsert(sess, "120:99"); err != nil {
			t.Fatal(err)
		}

		fp, ok, err := store.Fingerprint(id)
		if err != nil || !ok || fp != "120:99" {
			t.Errorf("fingerprint = %q ok=%v err=%v", fp, ok, err)
		}
		fps, err := store.Fingerprints()
		if err != nil || fps[id] != "120:99" {
			t.Errorf("fingerprints map = %v err=%v", fps, err)
		}
		if _, err := store.IndexedAt(id); err != nil {
			t.Errorf("indexed_at missing: %v", err)
		}
	})
}

func TestSearch(t *testing.T) {
	start := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	seed := func(t *testing.T) *Store {
		store := newTestStore(t)

		a := testSession("aaaa1111-0000-0000-0000-00000000000a", "app", "webhook work", start,
			"User: debug the webhook retries\nAssistant: found the bug",
			"User: unrelated chatter")
		a.Client = "Acme"
		a.Tools = map[string]int{"Bash": 2}
		mustUpsert(t, store, a)

		b := testSession("bbbb2222-0000-0000-0000-00000000000b", "infra", "terraform day", start.Add(24*time.Hour),
			"User: webhook timeout in terraform apply")
		b.Agents = []models.AgentUse{{ExchangeSeq: 1, AgentType: "debugger"}}
		b.Compacted = true
		mustUpsert(t, store, b)

		return store
	}

	t.Run("HitsCarrySnippetAndSeq", func(t *testing.T) {
		store := seed(t)
		hits, err := store.Search("webhook", Filters{}, 10)
		if err != nil {
			t.Fatal(err)
		}
		if len(hits) != 2 {
			t.Fatalf("expected a hit per matching exchange, got %d", len(hits))
		}
		for _, h := range hits {
			if h.ExchangeSeq < 1 {
				t.Errorf("hit missing exchange seq: %+v", h)
			}
			if !strings.Contains(h.Snippet, ">>>") || !strings.Contains(h.Snippet, "<<<") {
				t.Errorf("snippet not highlighted: %q", h.Snippet)
			}
		}
	})

	t.Run("Deterministic", func(t *testing.T) {
		store := seed(t)
		first, err := store.Search("webhook", Filters{}, 10)
		if err != nil {
			t.Fatal(err)
		}
		for i := 0; i < 3; i++ {
			again, err := store.Search("webhook", Filters{}, 10)
			if err != nil {
				t.Fatal(err)
			}
			if len(again) != len(first) {
				t.Fatalf("result count changed between runs")
			}
			for j := range again {
				if again[j].ID != first[j].ID || again[j].ExchangeSeq != first[j].ExchangeSeq {
					t.Fatalf("ordering changed between identical searches")
				}
			}
		}
	})

	t.Run("Filters", func(t *testing.T) {
		store := seed(t)
		cases := []struct {
			name string
			f    Filters
			want string // expected sole session id prefix
		}{
			{"Client", Filters{Client: "acme"}, "aaaa1111"},
			{"Project", Filters{Project: "infra"}, "bbbb2222"},
			{"ExcludeProject", Filters{ExcludeProject: "infra"}, "aaaa1111"},
			{"Tool", Filters{Tool: "Bash"}, "aaaa1111"},
			{"Agent", Filters{Agent: "debugger"}, "bbbb2222"},
			{"Date", Filters{Date: "2024-03-02"}, "bbbb2222"},
			{"Since", Filters{Since: start.Add(12 * time.Hour)}, "bbbb2222"},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				hits, err := store.Search("webhook", tc.f, 10)
				if err != nil {
					t.Fatal(err)
				}
				for _, h := range hits {
					if h.ID[:8] != tc.want {
						t.Errorf("filter leaked session %s", h.ID)
					}
				}
				if len(hits) == 0 {
					t.Error("filter excluded the expected session too")
				}
			})
		}

		compacted := true
		hits, err := store.Search("webhook", Filters{Compacted: &compacted}, 10)
		if err != nil || len(hits) != 1 || hits[0].ID[:8] != "bbbb2222" {
			t.Errorf("compacted filter wrong: %+v (%v)", hits, err)
		}
	})

	t.Run("EmptyQueryAndNoMatch", func(t *testing.T) {
		store := seed(t)
		if hits, err := store.Search("   ", Filters{}, 10); err != nil || hits != nil {
			t.Errorf("blank query should return nothing, got %v (%v)", hits, err)
		}
		hits, err := store.Search("zzzznomatch", Filters{}, 10)
		if err != nil || len(hits) != 0 {
			t.Errorf("no-match query should return empty, got %v (%v)", hits, err)
		}
	})

	t.Run("PunctuationIsLiteral", func(t *testing.T) {
		store := newTestStore(t)
		sess := testSession("cccc3333-0000-0000-0000-00000000000c", "app", "t", start,
			"error in config.yaml near retry-policy AND backoff")
		mustUpsert(t, store, sess)

		for _, q := range []string{"config.yaml", "retry-policy", "AND"} {
			hits, err := store.Search(q, Filters{}, 10)
			if err != nil {
				t.Fatalf("query %q errored: %v", q, err)
			}
			if len(hits) != 1 {
				t.Errorf("query %q returned %d hits, want 1", q, len(hits))
			}
		}
	})
}

func TestEscapeQuery(t *testing.T) {
	cases := map[string]string{
		"":                  "",
		"   ":               "",
		"webhook":           `"webhook"`,
		"config.yaml retry": `"config.yaml" "retry"`,
		`"exact phrase" x`:  `"exact phrase" "x"`,
		`"unterminated`:     `"unterminated"`,
		"a AND b":           `"a" "AND" "b"`,
	}
	for in, want := range cases {
		if got := EscapeQuery(in); got != want {
			t.Errorf("EscapeQuery(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFindAndStats(t *testing.T) {
	start := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	store := newTestStore(t)

	older := testSession("aaaa1111-0000-0000-0000-0000000000f1", "app", "older", start, "one")
	older.Tools = map[string]int{"Bash": 4}
	mustUpsert(t, store, older)

	newer := testSession("bbbb2222-0000-0000-0000-0000000000f2", "infra", "newer", start.Add(time.Hour), "two")
	newer.Tools = map[string]int{"Bash": 1, "Grep": 2}
	mustUpsert(t, store, newer)

	t.Run("FindNewestFirst", func(t *testing.T) {
		sums, err := store.Find(Filters{}, 10)
		if err != nil {
			t.Fatal(err)
		}
		if len(sums) != 2 || sums[0].Title != "newer" || sums[1].Title != "older" {
			t.Errorf("expected newest-first ordering, got %+v", sums)
		}
	})

	t.Run("FindRespectsLimit", func(t *testing.T) {
		sums, err := store.Find(Filters{}, 1)
		if err != nil || len(sums) != 1 {
			t.Errorf("limit ignored: %d results (%v)", len(sums), err)
		}
	})

	t.Run("Stats", func(t *testing.T) {
		stats, err := store.Stats()
		if err != nil {
			t.Fatal(err)
		}
		if stats.TotalSessions != 2 || stats.TotalExchanges != 2 {
			t.Errorf("totals wrong: %+v", stats)
		}
		if stats.ByProject["app"] != 1 || stats.ByProject["infra"] != 1 {
			t.Errorf("by-project wrong: %v", stats.ByProject)
		}
		if !stats.Earliest.Equal(start) || !stats.Latest.Equal(start.Add(time.Hour)) {
			t.Errorf("date range wrong: %v .. %v", stats.Earliest, stats.Latest)
		}
		if stats.DistinctTools != 2 {
			t.Errorf("distinct tools = %d, want 2", stats.DistinctTools)
		}
	})

	t.Run("TopTools", func(t *testing.T) {
		tools, err := store.TopTools(10)
		if err != nil {
			t.Fatal(err)
		}
		if len(tools) != 2 || tools[0].Name != "Bash" || tools[0].Uses != 5 || tools[0].Sessions != 2 {
			t.Errorf("tool aggregation wrong: %+v", tools)
		}
	})

	t.Run("SessionsUsingTool", func(t *testing.T) {
		uses, err := store.SessionsUsingTool("Grep", 10)
		if err != nil || len(uses) != 1 || uses[0].Title != "newer" {
			t.Errorf("tool session lookup wrong: %+v (%v)", uses, err)
		}
	})
}

func TestResolveID(t *testing.T) {
	start := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	store := newTestStore(t)
	id := "deadbeef-0000-0000-0000-000000000001"
	mustUpsert(t, store, testSession(id, "app", "t", start, "one"))

	got, err := store.ResolveID("deadbeef")
	if err != nil || got != id {
		t.Errorf("ResolveID = %q, %v", got, err)
	}
	if _, err := store.ResolveID("ffffffff"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown prefix, got %v", err)
	}
}

func TestGetSessionMissing(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.GetSession("deadbeef-0000-0000-0000-000000000009"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestTopicTimelineOrdering(t *testing.T) {
	start := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	store := newTestStore(t)
	id := "aaaa1111-0000-0000-0000-0000000000t1"
	mustUpsert(t, store, testSession(id, "app", "t", start, "one"))

	// Append out of timestamp order; the timeline sorts by captured_at with
	// insertion order breaking ties.
	snaps := []models.TopicSnapshot{
		{SessionID: id, Topic: "later", Trigger: models.TriggerSessionEnd, CapturedAt: start.Add(2 * time.Hour)},
		{SessionID: id, Topic: "earlier", Trigger: models.TriggerPeriodic, CapturedAt: start.Add(time.Hour)},
		{SessionID: id, Topic: "tie-a", Trigger: models.TriggerPreCompaction, CapturedAt: start.Add(3 * time.Hour)},
		{SessionID: id, Topic: "tie-b", Trigger: models.TriggerPreCompaction, CapturedAt: start.Add(3 * time.Hour)},
	}
	for _, snap := range snaps {
		if err := store.AppendTopic(snap); err != nil {
			t.Fatal(err)
		}
	}

	topics, err := store.TopicTimeline(id)
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	for _, tp := range topics {
		got = append(got, tp.Topic)
	}
	want := []string{"earlier", "later", "tie-a", "tie-b"}
	if len(got) != len(want) {
		t.Fatalf("expected %d topics, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("timeline[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
