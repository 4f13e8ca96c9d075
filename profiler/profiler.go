// Package profiler implements lumen.Profiler, an optional hook into every
// function application. A profiler is never part of the evaluator's
// correctness path: Start's returned stop function is the only contract it
// must honor.
package profiler

import (
	"github.com/lumenlisp/lumen/lumen"
)

// SkipFilter decides whether a given function call should be excluded from
// profiling (e.g. tiny, extremely hot helpers that would dominate a trace).
type SkipFilter func(s *lumen.State, fn lumen.Value) bool

// FunLabeler overrides the label used for a function in profiling output;
// an empty return falls back to the default label.
type FunLabeler func(s *lumen.State, fn lumen.Value) string

type profiler struct {
	state      *lumen.State
	enabled    bool
	skipFilter SkipFilter
	funLabeler FunLabeler
}

var _ lumen.Profiler = &profiler{}

// New returns a minimal profiler that records nothing; it exists mainly as
// the embeddable base for the otel annotator and as a way to exercise the
// Profiler hook without pulling in a tracing backend.
func New(s *lumen.State, opts ...Option) *profiler {
	p := &profiler{state: s}
	p.applyOptions(opts...)
	return p
}

type Option func(*profiler)

// WithSkipFilter installs a predicate for excluding specific calls from
// profiling.
func WithSkipFilter(f SkipFilter) Option {
	return func(p *profiler) { p.skipFilter = f }
}

// WithFunLabeler overrides how a function's profiling label is derived.
func WithFunLabeler(f FunLabeler) Option {
	return func(p *profiler) { p.funLabeler = f }
}

func (p *profiler) applyOptions(opts ...Option) {
	for _, opt := range opts {
		opt(p)
	}
}

func (p *profiler) Start(fn lumen.Value) func() {
	return func() {}
}

// Enable turns on tracing for implementations (like the otel annotator)
// that gate their work behind skipTrace; the base profiler ignores it since
// it never records anything regardless.
func (p *profiler) Enable() {
	p.enabled = true
}

func (p *profiler) label(fn lumen.Value) string {
	if p.funLabeler != nil {
		if l := p.funLabeler(p.state, fn); l != "" {
			return l
		}
	}
	return p.state.FuncLabel(fn)
}

func (p *profiler) skipTrace(fn lumen.Value) bool {
	return !p.enabled || (p.skipFilter != nil && p.skipFilter(p.state, fn))
}
