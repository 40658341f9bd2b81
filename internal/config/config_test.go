package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	t.Run("MissingFileYieldsDefaults", func(t *testing.T) {
		cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		if err != nil {
			t.Fatal(err)
		}
		if len(cfg.Roots) != 1 || !strings.HasSuffix(cfg.Roots[0], filepath.Join(".claude", "projects")) {
			t.Errorf("default roots wrong: %v", cfg.Roots)
		}
		if !strings.HasSuffix(cfg.DBPath, filepath.Join(".recall", "index.db")) {
			t.Errorf("default db path wrong: %q", cfg.DBPath)
		}
		if cfg.Summarizer.Model != "gpt-4o-mini" || cfg.Summarizer.Timeout() != 30*time.Second {
			t.Errorf("default summarizer wrong: %+v", cfg.Summarizer)
		}
	})

	t.Run("FileOverridesDefaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		body := `
roots:
  - /srv/sessions
db_path: /srv/index.db
clients:
  - Acme
project_overrides:
  "-Users-jane-src-app": "App (prod)"
summarizer:
  model: gpt-4o
  timeout_seconds: 5
  max_context_bytes: 1024
`
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}

		cfg, err := Load(path)
		if err != nil {
			t.Fatal(err)
		}
		if len(cfg.Roots) != 1 || cfg.Roots[0] != "/srv/sessions" {
			t.Errorf("roots not overridden: %v", cfg.Roots)
		}
		if cfg.DBPath != "/srv/index.db" {
			t.Errorf("db path not overridden: %q", cfg.DBPath)
		}
		if len(cfg.Clients) != 1 || cfg.Clients[0] != "Acme" {
			t.Errorf("clients wrong: %v", cfg.Clients)
		}
		if cfg.ProjectOverrides["-Users-jane-src-app"] != "App (prod)" {
			t.Errorf("overrides wrong: %v", cfg.ProjectOverrides)
		}
		if cfg.Summarizer.Model != "gpt-4o" || cfg.Summarizer.Timeout() != 5*time.Second {
			t.Errorf("summarizer wrong: %+v", cfg.Summarizer)
		}
		if cfg.Summarizer.MaxContextBytes != 1024 {
			t.Errorf("context budget wrong: %d", cfg.Summarizer.MaxContextBytes)
		}
	})

	t.Run("TildeExpansion", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		body := "roots:\n  - ~/sessions\ndb_path: ~/idx/index.db\n"
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}

		cfg, err := Load(path)
		if err != nil {
			t.Fatal(err)
		}
		home, _ := os.UserHomeDir()
		if cfg.Roots[0] != filepath.Join(home, "sessions") {
			t.Errorf("root not expanded: %q", cfg.Roots[0])
		}
		if cfg.DBPath != filepath.Join(home, "idx", "index.db") {
			t.Errorf("db path not expanded: %q", cfg.DBPath)
		}
	})

	t.Run("MalformedYAML", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		if err := os.WriteFile(path, []byte("roots: ["), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := Load(path); err == nil {
			t.Error("expected parse error")
		}
	})
}

func TestSummarizerTimeout(t *testing.T) {
	if (SummarizerConfig{}).Timeout() != 30*time.Second {
		t.Error("zero timeout should fall back to 30s")
	}
	if (SummarizerConfig{TimeoutSeconds: -1}).Timeout() != 30*time.Second {
		t.Error("negative timeout should fall back to 30s")
	}
}
