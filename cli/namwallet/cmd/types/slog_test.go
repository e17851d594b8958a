package types

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_LogConfiguration_LogLevel(t *testing.T) {
	var cases = []struct {
		name  string
		level slog.Level
	}{
		{"", slog.LevelInfo},
		{"error", slog.LevelError},
		{"InfO", slog.LevelInfo},
		{"WARNING", slog.LevelWarn},
		{"WARN", slog.LevelWarn},
		{"DEBUG", slog.LevelDebug},
		{"TRACE", LevelTrace},
		{"NONE", levelNone},
		{"info-1", slog.LevelInfo - 1},
		{"info+1", slog.LevelInfo + 1},
		{"foobar", slog.LevelInfo}, // invalid value, expect default level
	}

	for _, tc := range cases {
		cfg := LogConfiguration{Level: tc.name}
		require.Equal(t, tc.level, cfg.LogLevel(), "level %q", tc.name)
	}

	// special case - when OutputPath is "discard" return levelNone
	cfg := LogConfiguration{Level: "info", OutputPath: "discard"}
	require.Equal(t, levelNone, cfg.LogLevel())
	cfg = LogConfiguration{Level: "info", OutputPath: os.DevNull}
	require.Equal(t, levelNone, cfg.LogLevel())
}

func Test_LogConfiguration_handler(t *testing.T) {
	buf := &bytes.Buffer{}
	cfg := &LogConfiguration{Level: "debug", Format: "json"}
	h, err := cfg.handler(buf)
	require.NoError(t, err)
	require.True(t, cfg.NoColor, "buffer is not a terminal")
	require.Equal(t, "2006-01-02T15:04:05.0000Z0700", cfg.TimeFormat)

	slog.New(h).InfoContext(context.Background(), "hello", slog.String("alias", "alice"))
	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	require.Equal(t, "hello", rec["msg"])
	require.Equal(t, "alice", rec["alias"])

	buf.Reset()
	slog.New(h).Info("key added", slog.String("alias", "bob"), slog.String("mnemonic", "dinosaur simple"), slog.String("Password", "pw"))
	rec = nil
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	require.Equal(t, "bob", rec["alias"])
	require.Equal(t, "[redacted]", rec["mnemonic"])
	require.Equal(t, "[redacted]", rec["Password"])

	cfg = &LogConfiguration{Format: "xml"}
	_, err = cfg.handler(buf)
	require.EqualError(t, err, `unknown log format "xml"`)
}

func Test_NewLogger_file(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "logs", "wallet.log")
	log, err := NewLogger(&LogConfiguration{OutputPath: fn, Format: "text"})
	require.NoError(t, err)
	log.Info("written to file")

	data, err := os.ReadFile(fn)
	require.NoError(t, err)
	require.Contains(t, string(data), "written to file")

	log, err = NewLogger(&LogConfiguration{OutputPath: "discard", Level: "debug"})
	require.NoError(t, err)
	require.False(t, log.Enabled(context.Background(), slog.LevelError))
}
