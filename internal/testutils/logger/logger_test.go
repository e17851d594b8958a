package logger

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_testLogCfg(t *testing.T) {
	cfg := testLogCfg("")
	require.Equal(t, slog.LevelDebug, cfg.LogLevel())
	require.False(t, cfg.NoColor)

	t.Setenv(envNoColor, "true")
	cfg = testLogCfg("WARN")
	require.Equal(t, slog.LevelWarn, cfg.LogLevel())
	require.True(t, cfg.NoColor)
}

func Test_logger_for_tests(t *testing.T) {
	t.Skip("only for visually checking the output")

	l := NewLvl(t, slog.LevelInfo)
	l.Error("request failed", slog.Any("err", errors.New("connection refused")))
	l.Info("transaction sent", slog.String("hash", "0xabcd"))
	l.Debug("this shouldn't show up in the log")
	t.Fail()
}
