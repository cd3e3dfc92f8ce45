package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadExpandsEnvironment(t *testing.T) {
	t.Setenv("TEST_DEEPSEEK_KEY", "sk-from-env")
	path := writeConfig(t, `
ai:
  primary_provider: deepseek
  providers:
    deepseek:
      enabled: true
      api_key: ${TEST_DEEPSEEK_KEY}
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := cfg.AI.Providers["deepseek"].APIKey; got != "sk-from-env" {
		t.Errorf("APIKey = %q, want sk-from-env", got)
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "{}"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Data.TTLHours != 24 || cfg.Data.Periods != 30 || cfg.Data.Window != 30 {
		t.Errorf("data defaults = %+v", cfg.Data)
	}
	if cfg.Fetch.MaxRetries != 3 || cfg.Fetch.TimeoutSeconds != 30 {
		t.Errorf("fetch defaults = %+v", cfg.Fetch)
	}
	if cfg.Fetch.UserAgent == "" {
		t.Error("missing default user agent")
	}
	if cfg.Recommend.Count != 5 || cfg.Recommend.Strategy != "mixed" {
		t.Errorf("recommend defaults = %+v", cfg.Recommend)
	}
	if cfg.AI.Primary != "deepseek" {
		t.Errorf("AI primary = %q", cfg.AI.Primary)
	}

	src, ok := cfg.Fetch.Sources["ssq"]
	if !ok || src.HistoryURL == "" || src.LandingURL == "" || src.DetailURL == "" {
		t.Errorf("ssq source defaults = %+v", src)
	}
	if _, ok := cfg.Fetch.Sources["dlt"]; !ok {
		t.Error("missing default dlt source")
	}

	if g := cfg.Games["ssq"]; g.Name != "双色球" || g.DrawTime != "21:15" {
		t.Errorf("ssq game defaults = %+v", g)
	}
}

func TestLoadKeepsExplicitValues(t *testing.T) {
	path := writeConfig(t, `
data:
  ttl_hours: 6
  window: 50
fetch:
  max_retries: 1
  sources:
    ssq:
      history_url: http://mirror/history.php
games:
  ssq:
    draw_time: "22:00"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Data.TTLHours != 6 || cfg.Data.Window != 50 {
		t.Errorf("data = %+v", cfg.Data)
	}
	if cfg.Fetch.MaxRetries != 1 {
		t.Errorf("MaxRetries = %d", cfg.Fetch.MaxRetries)
	}

	// explicit fields survive, missing ones are backfilled
	src := cfg.Fetch.Sources["ssq"]
	if src.HistoryURL != "http://mirror/history.php" {
		t.Errorf("HistoryURL = %q", src.HistoryURL)
	}
	if src.LandingURL == "" {
		t.Error("LandingURL not backfilled")
	}
	g := cfg.Games["ssq"]
	if g.DrawTime != "22:00" || g.Name != "双色球" {
		t.Errorf("ssq game = %+v", g)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("Load() expected error for missing file")
	}
}

func TestLoadMalformedYAML(t *testing.T) {
	if _, err := Load(writeConfig(t, "data: [unclosed")); err == nil {
		t.Error("Load() expected error for malformed yaml")
	}
}

func TestTTL(t *testing.T) {
	d := DataConfig{TTLHours: 6}
	if got := d.TTL(); got != 6*time.Hour {
		t.Errorf("TTL() = %v, want 6h", got)
	}
}
