package profiler

import (
	"context"
	"errors"

	"github.com/lumenlisp/lumen/lumen"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

// ContextTracerKey looks up a parent tracer name from a context key, mirroring
// the corpus's own convention for naming the tracer a profiling session
// attaches its spans to.
const ContextTracerKey = "otelParentTracer"

// OpenTelemetryAnnotator is a Profiler that opens one span per function
// application, annotated with the function's definition-site code
// attributes, nested under whatever span is active in its context.
type OpenTelemetryAnnotator struct {
	profiler
	ctx  context.Context
	span trace.Span
}

var _ lumen.Profiler = (*OpenTelemetryAnnotator)(nil)

// NewOpenTelemetryAnnotator returns a disabled annotator; call EnableTracing
// before running any code to actually start recording spans.
func NewOpenTelemetryAnnotator(s *lumen.State, parentContext context.Context, opts ...Option) *OpenTelemetryAnnotator {
	p := &OpenTelemetryAnnotator{
		profiler: profiler{state: s},
		ctx:      parentContext,
	}
	p.profiler.applyOptions(opts...)
	return p
}

// EnableTracing turns on span recording; it requires a non-nil context, the
// same requirement the corpus's annotator enforces since a span with no
// tracer-bearing parent context has nowhere to attach.
func (p *OpenTelemetryAnnotator) EnableTracing() error {
	if p.ctx == nil {
		return errors.New("opentelemetry annotator requires a context carrying a tracer")
	}
	p.Enable()
	return nil
}

// Complete ends whatever span is currently open, for use at shutdown.
func (p *OpenTelemetryAnnotator) Complete() {
	if p.span != nil {
		p.span.End()
	}
}

func contextTracer(ctx context.Context) trace.Tracer {
	name, ok := ctx.Value(ContextTracerKey).(string)
	if !ok {
		name = "lumen"
	}
	return otel.GetTracerProvider().Tracer(name)
}

// Start opens a span named after fn's label, sets its code.* attributes from
// fn's definition-site location, and returns a stop function that ends the
// span and restores the previously active one -- nested calls therefore
// nest as child spans automatically.
func (p *OpenTelemetryAnnotator) Start(fn lumen.Value) func() {
	if p.skipTrace(fn) {
		return func() {}
	}
	prevCtx, prevSpan := p.ctx, p.span
	label := p.label(fn)
	p.ctx, p.span = contextTracer(p.ctx).Start(p.ctx, label)
	p.addCodeAttributes(fn, label)
	return func() {
		p.span.End()
		p.ctx, p.span = prevCtx, prevSpan
	}
}

func (p *OpenTelemetryAnnotator) addCodeAttributes(fn lumen.Value, label string) {
	attrs := []attribute.KeyValue{semconv.CodeFunction(label)}
	if loc, ok := p.state.GetSourceLoc(p.state.FuncBody(fn)); ok {
		attrs = append(attrs,
			semconv.CodeFilepath(loc.File),
			semconv.CodeLineNumber(loc.Line),
			semconv.CodeColumn(loc.Col),
		)
	}
	p.span.SetAttributes(attrs...)
}
