package report

import (
	"encoding/json"
	"fmt"
	"io"
)

// ANSI styles for terminal output.
const (
	ansiReset  = "\x1b[0m"
	ansiBold   = "\x1b[1m"
	ansiRed    = "\x1b[31m"
	ansiYellow = "\x1b[33m"
	ansiCyan   = "\x1b[36m"
)

func severityColor(s Severity) string {
	switch s {
	case SeverityHigh:
		return ansiRed
	case SeverityLow:
		return ansiCyan
	default:
		return ansiYellow
	}
}

// stickyWriter keeps the first write error so rendering code can run
// straight through.
type stickyWriter struct {
	w   io.Writer
	err error
}

func (s *stickyWriter) printf(format string, args ...any) {
	if s.err != nil {
		return
	}
	_, s.err = fmt.Fprintf(s.w, format, args...)
}

// WriteText renders a summary for humans, one line per diagnostic.
func WriteText(w io.Writer, s Summary, color bool) error {
	sw := &stickyWriter{w: w}
	for _, d := range s.Diagnostics {
		tag := fmt.Sprintf("[%s]", d.Detector)
		if color {
			tag = severityColor(d.Severity) + tag + ansiReset
		}
		pos := d.Position()
		if color {
			pos = ansiBold + pos + ansiReset
		}
		sw.printf("%s: %s %s.%s%s pc=%d: %s\n",
			pos, tag, d.Class, d.Method, d.Descriptor, d.PC, d.Message)
	}
	for _, name := range s.MissingClasses {
		sw.printf("missing class: %s (hierarchy checks degraded)\n", name)
	}
	return sw.err
}

// WriteJSON renders a summary as a single indented JSON document.
func WriteJSON(w io.Writer, s Summary) error {
	if s.Diagnostics == nil {
		s.Diagnostics = []Diagnostic{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}
