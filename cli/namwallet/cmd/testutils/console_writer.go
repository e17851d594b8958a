package testutils

import (
	"fmt"
	"strings"
)

// TestConsoleWriter collects the output of a command, every print call is a line.
type TestConsoleWriter struct {
	Lines []string
}

func (w *TestConsoleWriter) String() string {
	return strings.Join(w.Lines, "\n")
}

func (w *TestConsoleWriter) Println(a ...any) {
	w.Lines = append(w.Lines, strings.TrimSuffix(fmt.Sprintln(a...), "\n"))
}

func (w *TestConsoleWriter) Print(a ...any) {
	w.Lines = append(w.Lines, fmt.Sprint(a...))
}

func (w *TestConsoleWriter) Printf(format string, a ...any) {
	w.Lines = append(w.Lines, fmt.Sprintf(format, a...))
}
