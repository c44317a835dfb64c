// Package config loads mlrdsl settings from a YAML file and the environment.
//
// Later sources win: defaults, then the file, then MLRDSL_* variables, then
// command-line flags (applied by the caller).
package config

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/xyproto/env/v2"
	"gopkg.in/yaml.v3"

	mruntime "github.com/gosuda/mlrdsl/runtime"
)

type Config struct {
	InputFormat    string `yaml:"input_format"`
	OutputFormat   string `yaml:"output_format"`
	FlattenSep     string `yaml:"flatten_separator"`
	Infer          string `yaml:"infer"`
	LogLevel       string `yaml:"log_level"`
	HistoryFile    string `yaml:"history_file,omitempty"`
	OFS            string `yaml:"ofs,omitempty"`
	OPS            string `yaml:"ops,omitempty"`
	ImplicitHeader bool   `yaml:"implicit_header,omitempty"`
	Headerless     bool   `yaml:"headerless_output,omitempty"`
}

func Default() Config {
	return Config{
		InputFormat:  "dkvp",
		OutputFormat: "dkvp",
		FlattenSep:   ":",
		Infer:        "int",
		LogLevel:     "warn",
	}
}

// DefaultPath is $HOME/.mlrdsl.yaml, or "" when there is no home directory.
func DefaultPath() string {
	home := env.HomeDir()
	if home == "" {
		return ""
	}
	return filepath.Join(home, ".mlrdsl.yaml")
}

// Load reads path over the defaults. A missing file is not an error when
// optional is set.
func Load(path string, optional bool) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	file, err := os.Open(path)
	if err != nil {
		if optional && os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer file.Close()
	if err := Decode(file, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Decode overlays YAML from r onto cfg. Unknown keys are rejected.
func Decode(r io.Reader, cfg *Config) error {
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && err != io.EOF {
		return err
	}
	return nil
}

// ApplyEnv overlays MLRDSL_* environment variables.
func (c *Config) ApplyEnv() {
	env.Load()
	c.InputFormat = env.Str("MLRDSL_IFORMAT", c.InputFormat)
	c.OutputFormat = env.Str("MLRDSL_OFORMAT", c.OutputFormat)
	c.FlattenSep = env.Str("MLRDSL_FLATSEP", c.FlattenSep)
	c.Infer = env.Str("MLRDSL_INFER", c.Infer)
	c.LogLevel = env.Str("MLRDSL_LOG_LEVEL", c.LogLevel)
	c.HistoryFile = env.ExpandUser(env.Str("MLRDSL_HISTORY", c.HistoryFile))
	if env.Has("MLRDSL_IMPLICIT_HEADER") {
		c.ImplicitHeader = env.Bool("MLRDSL_IMPLICIT_HEADER")
	}
}

func (c Config) Validate() error {
	if !slices.Contains(mruntime.InputFormats, c.InputFormat) {
		return fmt.Errorf("config: unknown input format %q", c.InputFormat)
	}
	if !slices.Contains(mruntime.OutputFormats, c.OutputFormat) {
		return fmt.Errorf("config: unknown output format %q", c.OutputFormat)
	}
	if c.FlattenSep == "" {
		return fmt.Errorf("config: flatten_separator must not be empty")
	}
	if _, ok := mruntime.ParseInferMode(c.Infer); !ok {
		return fmt.Errorf("config: unknown infer mode %q", c.Infer)
	}
	if _, ok := parseLevel(c.LogLevel); !ok {
		return fmt.Errorf("config: unknown log level %q", c.LogLevel)
	}
	return nil
}

func (c Config) InferMode() mruntime.InferMode {
	m, _ := mruntime.ParseInferMode(c.Infer)
	return m
}

func (c Config) SlogLevel() slog.Level {
	l, _ := parseLevel(c.LogLevel)
	return l
}

func (c Config) ReaderOptions() mruntime.ReaderOptions {
	return mruntime.ReaderOptions{
		ImplicitHeader: c.ImplicitHeader,
		FlattenSep:     c.FlattenSep,
	}
}

func (c Config) WriterOptions() mruntime.WriterOptions {
	return mruntime.WriterOptions{
		OFS:        c.OFS,
		OPS:        c.OPS,
		Headerless: c.Headerless,
	}
}

func parseLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, true
	case "", "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	}
	return slog.LevelInfo, false
}

// Save writes cfg as YAML.
func Save(w io.Writer, cfg Config) error {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("config: encoder close: %w", err)
	}
	_, err := w.Write(buf.Bytes())
	return err
}
