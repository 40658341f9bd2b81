// Package config loads the externally owned configuration: session roots,
// the index database path, client names for tagging, project label
// overrides, and summarizer settings. Components receive these values; they
// never read config files themselves.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Roots            []string          `yaml:"roots"`
	DBPath           string            `yaml:"db_path"`
	Clients          []string          `yaml:"clients"`
	ProjectOverrides map[string]string `yaml:"project_overrides"`
	Summarizer       SummarizerConfig  `yaml:"summarizer"`
}

type SummarizerConfig struct {
	Model           string `yaml:"model"`
	BaseURL         string `yaml:"base_url"`
	TimeoutSeconds  int    `yaml:"timeout_seconds"`
	MaxContextBytes int    `yaml:"max_context_bytes"`
}

func (s SummarizerConfig) Timeout() time.Duration {
	if s.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// Default returns the configuration used when no config file exists.
func Default() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		Roots:  []string{filepath.Join(home, ".claude", "projects")},
		DBPath: filepath.Join(home, ".recall", "index.db"),
		Summarizer: SummarizerConfig{
			Model:           "gpt-4o-mini",
			TimeoutSeconds:  30,
			MaxContextBytes: 32 * 1024,
		},
	}
}

// DefaultPath is where Load looks when no explicit path is given.
func DefaultPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".recall", "config.yaml")
}

// Load reads a YAML config file, filling unset fields from Default. A
// missing file is not an error; the defaults apply.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}

	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	for i, root := range cfg.Roots {
		cfg.Roots[i] = expandHome(root)
	}
	cfg.DBPath = expandHome(cfg.DBPath)
	if len(cfg.Roots) == 0 {
		cfg.Roots = Default().Roots
	}
	if cfg.DBPath == "" {
		cfg.DBPath = Default().DBPath
	}

	return cfg, nil
}

func expandHome(p string) string {
	if !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, p[2:])
}
