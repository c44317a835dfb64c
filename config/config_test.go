package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	mruntime "github.com/gosuda/mlrdsl/runtime"
)

func TestLoadOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mlrdsl.yaml")
	body := "input_format: csv\ninfer: float\nlog_level: debug\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path, false)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.InputFormat != "csv" || cfg.OutputFormat != "dkvp" || cfg.FlattenSep != ":" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.InferMode() != mruntime.InferStringFloat {
		t.Fatalf("unexpected infer mode: %v", cfg.InferMode())
	}
	if cfg.SlogLevel() != slog.LevelDebug {
		t.Fatalf("unexpected level: %v", cfg.SlogLevel())
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate failed: %v", err)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mlrdsl.yaml")
	if err := os.WriteFile(path, []byte("colour: blue\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path, false); err == nil {
		t.Fatalf("expected unknown key error")
	}
}

func TestLoadMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.yaml")
	cfg, err := Load(path, true)
	if err != nil {
		t.Fatalf("optional load failed: %v", err)
	}
	if cfg != Default() {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
	if _, err := Load(path, false); err == nil {
		t.Fatalf("expected error for required missing file")
	}
}

func TestDecodeEmptyInput(t *testing.T) {
	cfg := Default()
	if err := Decode(strings.NewReader(""), &cfg); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if cfg != Default() {
		t.Fatalf("empty input changed config: %+v", cfg)
	}
}

func TestApplyEnvOverridesFile(t *testing.T) {
	t.Setenv("MLRDSL_OFORMAT", "json")
	t.Setenv("MLRDSL_FLATSEP", ".")
	t.Setenv("MLRDSL_IMPLICIT_HEADER", "true")
	cfg := Default()
	cfg.OutputFormat = "csv"
	cfg.ApplyEnv()
	if cfg.OutputFormat != "json" {
		t.Fatalf("expected env to win, got %q", cfg.OutputFormat)
	}
	if cfg.FlattenSep != "." {
		t.Fatalf("unexpected flatten separator %q", cfg.FlattenSep)
	}
	if !cfg.ImplicitHeader {
		t.Fatalf("expected implicit header from env")
	}
	if cfg.InputFormat != "dkvp" {
		t.Fatalf("unset variable changed input format: %q", cfg.InputFormat)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"input", func(c *Config) { c.InputFormat = "xls" }},
		{"output", func(c *Config) { c.OutputFormat = "html" }},
		{"flatsep", func(c *Config) { c.FlattenSep = "" }},
		{"infer", func(c *Config) { c.Infer = "octal" }},
		{"level", func(c *Config) { c.LogLevel = "loud" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.OutputFormat = "pprint"
	cfg.OFS = ";"
	var buf bytes.Buffer
	if err := Save(&buf, cfg); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if !strings.Contains(buf.String(), "output_format: pprint\n") {
		t.Fatalf("unexpected yaml:\n%s", buf.String())
	}
	got := Default()
	if err := Decode(&buf, &got); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if got != cfg {
		t.Fatalf("round trip mismatch: %+v vs %+v", got, cfg)
	}
}
