package status

import (
	"fmt"
	"io"

	"github.com/morikuni/aec"
)

// Writer prints the one-line run feedback: warnings and results.
// Color only happens on a terminal; piped output gets the plain
// prefixes.
type Writer struct {
	Out io.Writer
	TTY bool
}

func (w *Writer) Warn(format string, args ...interface{}) {
	w.line(aec.YellowF, "!", format, args...)
}

func (w *Writer) OK(format string, args ...interface{}) {
	w.line(aec.GreenF, "*", format, args...)
}

func (w *Writer) Fail(format string, args ...interface{}) {
	w.line(aec.RedF, "!", format, args...)
}

func (w *Writer) line(color aec.ANSI, prefix, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)

	if w.TTY {
		fmt.Fprintf(w.Out, "%s %s\n", color.Apply(prefix), msg)
		return
	}

	fmt.Fprintf(w.Out, "%s %s\n", prefix, msg)
}
