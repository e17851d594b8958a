package types

import (
	"fmt"
	"io"
	"os"
)

type (
	// ConsoleWrapper is the output of the commands meant for the user, logs go elsewhere.
	ConsoleWrapper interface {
		Println(a ...any)
		Print(a ...any)
		// Printf formats the line, line break is added.
		Printf(format string, a ...any)
	}

	StdoutWrapper struct {
		w io.Writer
	}
)

func NewStdoutWriter() ConsoleWrapper {
	return &StdoutWrapper{w: os.Stdout}
}

func (w *StdoutWrapper) Println(a ...any) {
	_, _ = fmt.Fprintln(w.w, a...)
}

func (w *StdoutWrapper) Print(a ...any) {
	_, _ = fmt.Fprint(w.w, a...)
}

func (w *StdoutWrapper) Printf(format string, a ...any) {
	_, _ = fmt.Fprintf(w.w, format+"\n", a...)
}
