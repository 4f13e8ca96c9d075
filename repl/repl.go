// Package repl implements lumen's interactive read-eval-print loop: line
// editing and history via ergochat/readline, balanced-form accumulation
// across multiple lines, and colored error rendering through the same
// lumen.State.WriteTrace path the CLI's run command uses.
package repl

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ergochat/readline"
	"github.com/lumenlisp/lumen/jit"
	"github.com/lumenlisp/lumen/lumen"
)

type config struct {
	stdin  io.ReadCloser
	stdout io.Writer
	stderr io.Writer
}

func newConfig(opts ...Option) *config {
	c := &config{stdout: os.Stdout, stderr: os.Stderr}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Option customizes a REPL session's I/O, primarily for tests.
type Option func(*config)

// WithStdin overrides the input the REPL reads lines from.
func WithStdin(stdin io.ReadCloser) Option {
	return func(c *config) { c.stdin = stdin }
}

// WithStdout overrides where evaluation results are printed.
func WithStdout(stdout io.Writer) Option {
	return func(c *config) { c.stdout = stdout }
}

// WithStderr overrides where errors are printed.
func WithStderr(stderr io.Writer) Option {
	return func(c *config) { c.stderr = stderr }
}

// Run starts a fresh lumen.State, wires in the amd64 JIT tier (or its stub
// on other architectures), and runs an interactive session until EOF; an
// interrupt discards the unfinished form and the session continues. prompt
// is shown before each top-level form; continuation lines for an unfinished
// form are indented to match the prompt's width.
func Run(prompt string, opts ...Option) {
	s := lumen.NewState(nil)
	s.SetJITTier(jit.NewCompiler())
	defer s.Shutdown()

	RunEnv(s, prompt, strings.Repeat(" ", len(prompt)), opts...)
}

// RunEnv drives the read-eval-print loop against an already-initialized
// State, so callers (tests, or a future embedding) can pre-load definitions
// before the session starts.
func RunEnv(s *lumen.State, prompt, cont string, opts ...Option) {
	cfg := newConfig(opts...)

	histFile := historyPath()
	ensureHistoryFilePermissions(histFile)
	rlCfg := &readline.Config{
		Stdout:            cfg.stdout,
		Stderr:            cfg.stderr,
		Prompt:            prompt,
		HistoryFile:       histFile,
		HistorySearchFold: true,
		AutoComplete:      &symbolCompleter{state: s},
	}
	if cfg.stdin != nil {
		rlCfg.Stdin = cfg.stdin
	}
	rl, err := readline.NewEx(rlCfg)
	if err != nil {
		panic(err)
	}
	defer rl.Close() //nolint:errcheck // best-effort cleanup

	var buf strings.Builder
	depth := 0
	for {
		if buf.Len() == 0 {
			rl.SetPrompt(prompt)
		} else {
			rl.SetPrompt(cont)
		}
		line, err := rl.ReadSlice()
		if err == readline.ErrInterrupt {
			buf.Reset()
			depth = 0
			continue
		}
		if err != nil {
			break
		}
		depth += parenDelta(line)
		buf.Write(line)
		buf.WriteByte('\n')
		if depth > 0 {
			continue
		}
		src := buf.String()
		buf.Reset()
		depth = 0
		if strings.TrimSpace(src) == "" {
			continue
		}

		evalAndPrint(s, src, cfg)
	}
}

func evalAndPrint(s *lumen.State, src string, cfg *config) {
	forms := func() (v lumen.Value) {
		defer func() {
			if r := recover(); r != nil {
				if e, ok := r.(*lumen.LumenError); ok {
					s.WriteTrace(cfg.stderr, e)
					v = lumen.Nil
					return
				}
				panic(r)
			}
		}()
		return s.ParseAll(src, "<repl>")
	}()

	for !forms.IsNil() {
		result, lerr := s.EvalTopLevel(s.Car(forms), s.Global)
		if lerr != nil {
			s.WriteTrace(cfg.stderr, lerr)
		} else {
			io.WriteString(cfg.stdout, s.ToString(result)+"\n") //nolint:errcheck // best-effort REPL output
		}
		forms = s.Cdr(forms)
	}
}

// parenDelta counts the net paren/quote-balance contribution of one line,
// ignoring delimiters inside string literals and comments, so the REPL
// knows whether to keep reading continuation lines.
func parenDelta(line []byte) int {
	delta := 0
	inString := false
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case inString:
			if c == '\\' {
				i++
			} else if c == '"' {
				inString = false
			}
		case c == ';':
			return delta // rest of line is a comment
		case c == '"':
			inString = true
		case c == '(':
			delta++
		case c == ')':
			delta--
		}
	}
	return delta
}

func historyPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".lumen_history")
}

// ensureHistoryFilePermissions restricts the history file to user-only
// read/write, creating it first if necessary: session history can contain
// anything a user typed at the prompt, so it gets the same treatment a
// shell gives its own history file.
func ensureHistoryFilePermissions(path string) {
	if path == "" {
		return
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o600)
		if err != nil {
			return
		}
		f.Close() //nolint:errcheck // best-effort history file setup
		return
	}
	os.Chmod(path, 0o600) //nolint:errcheck // best-effort permission restriction
}
