package types

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

const (
	LevelTrace slog.Level = slog.LevelDebug - 4
	// levelNone disables logging
	levelNone slog.Level = math.MinInt

	fmtTEXT    = "text"
	fmtJSON    = "json"
	fmtCONSOLE = "console"

	redacted = "[redacted]"
)

// secretAttrs are attribute keys whose values never reach the log output.
var secretAttrs = map[string]struct{}{
	"mnemonic":     {},
	"password":     {},
	"passphrase":   {},
	"secret_key":   {},
	"spending_key": {},
}

type LogConfiguration struct {
	Level      string `yaml:"defaultLevel"`
	Format     string `yaml:"format"`
	OutputPath string `yaml:"outputPath"`
	TimeFormat string `yaml:"timeFormat"`
	NoColor    bool   `yaml:"noColor"`
}

// NewLogger builds logger based on the configuration, unassigned fields get default values.
func NewLogger(cfg *LogConfiguration) (*slog.Logger, error) {
	out, err := filenameToWriter(cfg.OutputPath)
	if err != nil {
		return nil, fmt.Errorf("creating writer for log output: %w", err)
	}
	h, err := cfg.handler(out)
	if err != nil {
		return nil, fmt.Errorf("creating logger handler: %w", err)
	}
	return slog.New(h), nil
}

func (cfg *LogConfiguration) handler(out io.Writer) (slog.Handler, error) {
	cfg.initDefaults(out)
	level := cfg.LogLevel()

	switch strings.ToLower(cfg.Format) {
	case fmtTEXT:
		return slog.NewTextHandler(out, &slog.HandlerOptions{AddSource: true, Level: level, ReplaceAttr: redactSecrets}), nil
	case fmtJSON:
		return slog.NewJSONHandler(out, &slog.HandlerOptions{AddSource: true, Level: level, ReplaceAttr: redactSecrets}), nil
	case fmtCONSOLE:
		return tint.NewHandler(out, &tint.Options{
			Level:       level,
			NoColor:     cfg.NoColor,
			TimeFormat:  cfg.TimeFormat,
			ReplaceAttr: redactSecrets,
		}), nil
	}
	return nil, fmt.Errorf("unknown log format %q", cfg.Format)
}

func (cfg *LogConfiguration) initDefaults(out io.Writer) {
	if cfg.Level == "" {
		cfg.Level = slog.LevelInfo.String()
	}
	if cfg.Format == "" {
		cfg.Format = fmtCONSOLE
	}
	if cfg.TimeFormat == "" {
		cfg.TimeFormat = "2006-01-02T15:04:05.0000Z0700"
		if cfg.Format == fmtCONSOLE {
			cfg.TimeFormat = "15:04:05.0000"
		}
	}
	// https://no-color.org
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		cfg.NoColor = true
	}
	if !cfg.NoColor {
		f, ok := out.(interface{ Fd() uintptr })
		cfg.NoColor = !ok || !isatty.IsTerminal(f.Fd())
	}
}

func (cfg *LogConfiguration) LogLevel() slog.Level {
	if isDiscard(cfg.OutputPath) {
		return levelNone
	}
	switch strings.ToLower(cfg.Level) {
	case "warning":
		return slog.LevelWarn
	case "trace":
		return LevelTrace
	case "none":
		return levelNone
	}
	var lvl slog.Level
	_ = lvl.UnmarshalText([]byte(cfg.Level))
	return lvl
}

func redactSecrets(groups []string, a slog.Attr) slog.Attr {
	if _, ok := secretAttrs[strings.ToLower(a.Key)]; ok {
		return slog.String(a.Key, redacted)
	}
	return a
}

func isDiscard(name string) bool {
	return strings.EqualFold(name, "discard") || name == os.DevNull
}

func filenameToWriter(name string) (io.Writer, error) {
	switch {
	case strings.EqualFold(name, "stdout"):
		return os.Stdout, nil
	case name == "" || strings.EqualFold(name, "stderr"):
		return os.Stderr, nil
	case isDiscard(name):
		return io.Discard, nil
	}
	dir := filepath.Dir(name)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create dir %q for log output: %w", dir, err)
	}
	file, err := os.OpenFile(filepath.Clean(name), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("open file %q for log output: %w", name, err)
	}
	return file, nil
}
