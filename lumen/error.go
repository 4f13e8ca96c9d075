package lumen

import (
	"fmt"
	"io"
	"os"

	"github.com/muesli/reflow/wordwrap"
)

// LumenError is the one error type the interpreter raises internally (via
// panic/recover around Eval) and the one builtin `error` raises from user
// code. It carries a source location when one could be resolved for the
// offending expression, plus an ordered call chain (macro call-site,
// macro-def-site, fn call-site labels) accumulated during macro expansion
// and function application.
type LumenError struct {
	Message string
	Loc     SourceLoc
	HasLoc  bool
	Chain   []ChainEntry
}

func (e *LumenError) Error() string {
	if e.HasLoc {
		return fmt.Sprintf("%s:%d:%d: %s", e.Loc.File, e.Loc.Line, e.Loc.Col, e.Message)
	}
	return e.Message
}

func (s *State) newError(culprit Value, msg string) *LumenError {
	e := &LumenError{Message: msg}
	if loc, ok := s.GetSourceLoc(culprit); ok {
		e.Loc = loc
		e.HasLoc = true
	}
	if !culprit.IsNil() {
		e.Chain = s.callChain(culprit)
	}
	return e
}

// WithChain returns a copy of e with chain prepended/merged in front of its
// existing chain, used when a LumenError propagates up through nested
// macro/function call sites.
func (e *LumenError) WithChain(entries ...ChainEntry) *LumenError {
	merged := make([]ChainEntry, 0, len(entries)+len(e.Chain))
	merged = append(merged, entries...)
	merged = append(merged, e.Chain...)
	return &LumenError{Message: e.Message, Loc: e.Loc, HasLoc: e.HasLoc, Chain: merged}
}

const colorEnvVar = "LUMEN_COLOR"

func colorEnabled(w *os.File) bool {
	if os.Getenv(colorEnvVar) != "" {
		return true
	}
	fi, err := w.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}

// WriteTrace renders e to w: a colored "error: file:line:col: msg" header
// (when w is a terminal or LUMEN_COLOR is set), the offending source line in
// bold, a caret underneath it, and then every call-chain entry in order,
// word-wrapped to a reasonable terminal width.
func (s *State) WriteTrace(w io.Writer, e *LumenError) {
	out, isFile := w.(*os.File)
	color := isFile && colorEnabled(out)

	const red = "\x1b[1;31m"
	const bold = "\x1b[1m"
	const reset = "\x1b[0m"

	if color {
		io.WriteString(w, red)
	}
	fmt.Fprintf(w, "error: %s\n", e.Error())
	if color {
		io.WriteString(w, reset)
	}

	if e.HasLoc {
		if line, ok := s.getSourceLine(e.Loc.File, e.Loc.Line); ok {
			if color {
				io.WriteString(w, bold)
			}
			fmt.Fprintln(w, line)
			if color {
				io.WriteString(w, reset)
			}
			caret := caretLine(line, e.Loc.Col)
			if color {
				io.WriteString(w, red)
			}
			fmt.Fprintln(w, caret)
			if color {
				io.WriteString(w, reset)
			}
		}
	}

	for _, entry := range e.Chain {
		line := fmt.Sprintf("  at %s (%s:%d:%d)", entry.Label, entry.Loc.File, entry.Loc.Line, entry.Loc.Col)
		fmt.Fprintln(w, wordwrap.String(line, 100))
	}
}

func isLumenError(r interface{}) (*LumenError, bool) {
	e, ok := r.(*LumenError)
	return e, ok
}

func (s *State) runtimeError(format string, args ...interface{}) *LumenError {
	return &LumenError{Message: fmt.Sprintf(format, args...)}
}
