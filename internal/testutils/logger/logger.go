package logger

import (
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/knowable-run/namwallet/cli/namwallet/cmd/types"
	"github.com/lmittmann/tint"
	"github.com/neilotoole/slogt"
)

const (
	envLevel   = "NW_TEST_LOG_LEVEL"
	envNoColor = "NW_TEST_LOG_NO_COLORS"
)

/*
New returns logger for test t. Level is debug unless overridden with the
NW_TEST_LOG_LEVEL environment variable.
*/
func New(t testing.TB) *slog.Logger {
	return newLogger(t, testLogCfg(os.Getenv(envLevel)))
}

/*
NewLvl returns logger for test t on level "level".

Source location printed by slogt points to the logger itself, not to the caller.
*/
func NewLvl(t testing.TB, level slog.Level) *slog.Logger {
	return newLogger(t, testLogCfg(level.String()))
}

func newLogger(t testing.TB, cfg types.LogConfiguration) *slog.Logger {
	return slogt.New(t, slogt.Factory(func(w io.Writer) slog.Handler {
		return tint.NewHandler(w, &tint.Options{
			Level:      cfg.LogLevel(),
			NoColor:    cfg.NoColor,
			TimeFormat: cfg.TimeFormat,
		})
	}))
}

func testLogCfg(level string) types.LogConfiguration {
	if level == "" {
		level = slog.LevelDebug.String()
	}
	return types.LogConfiguration{
		Level:      level,
		Format:     "console",
		TimeFormat: "15:04:05.0000",
		// output goes to the test log buffer, not a terminal we could check
		NoColor: os.Getenv(envNoColor) == "true",
	}
}
