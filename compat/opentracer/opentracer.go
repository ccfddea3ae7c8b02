// Package opentracer adapts this engine's Span to opentracing.Tracer.
// Cross-process propagation (Inject/Extract) is intentionally
// unsupported: this engine's CollectToken only has meaning inside one
// process, so Extract cannot reconstruct a usable parent and returns
// opentracing.ErrUnsupportedFormat rather than silently producing a span
// with no real trace membership.
package opentracer

import (
	"fmt"
	"sync"

	opentracing "github.com/opentracing/opentracing-go"
	otlog "github.com/opentracing/opentracing-go/log"

	"github.com/minitrace/minitrace-go/ddtrace/tracer"
)

// New returns an opentracing.Tracer backed by this engine.
func New() opentracing.Tracer {
	return &otTracer{}
}

type otTracer struct{}

var _ opentracing.Tracer = (*otTracer)(nil)

func (t *otTracer) StartSpan(operationName string, opts ...opentracing.StartSpanOption) opentracing.Span {
	var sso opentracing.StartSpanOptions
	for _, o := range opts {
		o.Apply(&sso)
	}

	var parent *tracer.Span
	for _, ref := range sso.References {
		if sc, ok := ref.ReferencedContext.(*otSpanContext); ok && sc.span != nil {
			parent = sc.span
			break // this engine's Span has no concept of FollowsFrom vs ChildOf; first wins
		}
	}

	var s *tracer.Span
	if parent != nil {
		s = tracer.EnterWithParent(operationName, parent)
	} else {
		s = tracer.Root(operationName)
	}

	os := &otSpan{span: s, tracer: t}
	for k, v := range sso.Tags {
		os.SetTag(k, v)
	}
	return os
}

func (t *otTracer) Inject(opentracing.SpanContext, interface{}, interface{}) error {
	return opentracing.ErrUnsupportedFormat
}

func (t *otTracer) Extract(interface{}, interface{}) (opentracing.SpanContext, error) {
	return nil, opentracing.ErrUnsupportedFormat
}

type otSpanContext struct {
	span *tracer.Span

	mu      sync.RWMutex
	baggage map[string]string
}

var _ opentracing.SpanContext = (*otSpanContext)(nil)

func (c *otSpanContext) ForeachBaggageItem(handler func(k, v string) bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for k, v := range c.baggage {
		if !handler(k, v) {
			return
		}
	}
}

// otSpan implements opentracing.Span on top of a single *tracer.Span.
// Baggage is kept purely in-process (this engine's wire format carries no
// baggage section), which matches the "Inject/Extract unsupported" stance
// above: baggage that can't cross a process boundary anyway doesn't need
// to round-trip through one.
type otSpan struct {
	span   *tracer.Span
	tracer *otTracer
	ctx    *otSpanContext
}

var _ opentracing.Span = (*otSpan)(nil)

func (s *otSpan) Finish() {
	s.span.Finish()
}

func (s *otSpan) FinishWithOptions(opentracing.FinishOptions) {
	s.span.Finish()
}

func (s *otSpan) Context() opentracing.SpanContext {
	if s.ctx == nil {
		s.ctx = &otSpanContext{span: s.span, baggage: make(map[string]string)}
	}
	return s.ctx
}

func (s *otSpan) SetOperationName(operationName string) opentracing.Span {
	s.span.Rename(operationName)
	return s
}

func (s *otSpan) SetTag(key string, value interface{}) opentracing.Span {
	s.span.AddProperty(tracer.StringTag(key, fmt.Sprint(value)))
	return s
}

func (s *otSpan) LogFields(fields ...otlog.Field) {
	for _, f := range fields {
		s.span.AddProperty(tracer.StringTag(f.Key(), fmt.Sprint(f.Value())))
	}
}

func (s *otSpan) LogKV(alternatingKV ...interface{}) {
	for i := 0; i+1 < len(alternatingKV); i += 2 {
		key, _ := alternatingKV[i].(string)
		s.span.AddProperty(tracer.StringTag(key, fmt.Sprint(alternatingKV[i+1])))
	}
}

func (s *otSpan) SetBaggageItem(restrictedKey, value string) opentracing.Span {
	ctx := s.Context().(*otSpanContext)
	ctx.mu.Lock()
	ctx.baggage[restrictedKey] = value
	ctx.mu.Unlock()
	return s
}

func (s *otSpan) BaggageItem(restrictedKey string) string {
	ctx := s.Context().(*otSpanContext)
	ctx.mu.RLock()
	defer ctx.mu.RUnlock()
	return ctx.baggage[restrictedKey]
}

func (s *otSpan) Tracer() opentracing.Tracer { return s.tracer }

func (s *otSpan) LogEvent(event string) {
	s.span.AddProperty(tracer.StringTag("event", event))
}

func (s *otSpan) LogEventWithPayload(event string, payload interface{}) {
	s.span.AddProperty(tracer.StringTag("event", fmt.Sprintf("%s: %v", event, payload)))
}

func (s *otSpan) Log(data opentracing.LogData) {
	s.span.AddProperty(tracer.StringTag(data.Event, fmt.Sprint(data.Payload)))
}
