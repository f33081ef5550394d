package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.toml"))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.Port != 8080 {
		t.Errorf("default port = %d, want 8080", cfg.App.Port)
	}
	if cfg.Pipeline.DataDir != "data" {
		t.Errorf("default data dir = %q, want data", cfg.Pipeline.DataDir)
	}
	if cfg.Pipeline.SlideTipLimit != 3 || cfg.Pipeline.SummaryTipLimit != 5 {
		t.Errorf("default tip limits = %d/%d, want 3/5",
			cfg.Pipeline.SlideTipLimit, cfg.Pipeline.SummaryTipLimit)
	}
	if cfg.Whisper.Model != "tiny" {
		t.Errorf("default whisper model = %q, want tiny", cfg.Whisper.Model)
	}
	if cfg.MySQL.MaxOpenConns != 50 {
		t.Errorf("default mysql max open conns = %d, want 50", cfg.MySQL.MaxOpenConns)
	}
	if cfg.Redis.PoolSize != 10 {
		t.Errorf("default redis pool size = %d, want 10", cfg.Redis.PoolSize)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[app]
port = 9090

[pipeline]
language = "en"
slide_tip_limit = 2
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.App.Port)
	}
	if cfg.Pipeline.Language != "en" {
		t.Errorf("language = %q, want en", cfg.Pipeline.Language)
	}
	if cfg.Pipeline.SlideTipLimit != 2 {
		t.Errorf("slide tip limit = %d, want 2", cfg.Pipeline.SlideTipLimit)
	}
	// untouched sections keep their defaults
	if cfg.Pipeline.TranscriptClip != 500 {
		t.Errorf("transcript clip = %d, want 500", cfg.Pipeline.TranscriptClip)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.toml"))
	t.Setenv("PIPELINE_LANGUAGE", "en")
	t.Setenv("APP_PORT", "7070")
	t.Setenv("PIPELINE_DISABLE_TRANSCRIPTION", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Pipeline.Language != "en" {
		t.Errorf("language = %q, want en", cfg.Pipeline.Language)
	}
	if cfg.App.Port != 7070 {
		t.Errorf("port = %d, want 7070", cfg.App.Port)
	}
	if !cfg.Pipeline.DisableTranscription {
		t.Error("disable transcription not picked up from env")
	}
}

func TestMySQLDSN(t *testing.T) {
	cfg := defaultConfig()
	cfg.MySQL.User = "coach"
	cfg.MySQL.Password = "secret"
	cfg.MySQL.Host = "db"
	cfg.MySQL.Port = 3307
	cfg.MySQL.DB = "sessions"
	cfg.MySQL.Params = "parseTime=true"

	want := "coach:secret@tcp(db:3307)/sessions?parseTime=true"
	if got := cfg.MySQLDSN(); got != want {
		t.Errorf("dsn = %q, want %q", got, want)
	}
}
