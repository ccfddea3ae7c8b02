package tracer

import (
	"context"
	"runtime"
)

// LocalSpans is an immutable, shareable batch of spans collected off the
// local stack. Once built it is never mutated again, so concurrent readers
// (the collector actor fanning the same batch out to several parent
// traces) need no lock around it — plain pointer sharing is enough once a
// value is guaranteed never to change again. EndTime is stamped when the
// batch leaves the local-span stack (at drain time), not when it is
// eventually grafted onto a trace or flushed — a batch built now and
// pushed onto a real span much later must not have its still-open spans
// stretch to cover that gap.
type LocalSpans struct {
	Spans   []RawSpan
	EndTime Instant
}

// LocalCollector gathers spans under a detached span line — one with no
// collect-token and no trace membership — so that call trees can be built
// and later grafted onto a real trace (via Span.PushChildSpans) without
// knowing in advance whether the result will ever be reported.
type LocalCollector struct {
	stack *LocalSpanStack
	line  *SpanLine
	epoch uint64
	done  bool
}

// StartLocalCollector registers a detached line on ctx's stack and returns
// the context carrying it alongside the collector handle. Local spans and
// events recorded against the returned context (via EnterLocal and Event)
// become members of this collector's tree until Collect is called; a Span
// started with EnterWithLocalParent there carries no trace membership and
// is not part of the tree.
func StartLocalCollector(ctx context.Context) (context.Context, *LocalCollector) {
	ctx, stack := ensureLocalStack(ctx)
	line, epoch, ok := stack.register(nil, 0)
	c := &LocalCollector{stack: stack, line: line, epoch: epoch}
	if !ok {
		c.done = true // stack at capacity: degrade to an inert collector
	} else {
		runtime.SetFinalizer(c, (*LocalCollector).finalize)
	}
	return ctx, c
}

// Collect unregisters the line and drains its queue into a LocalSpans
// batch. Calling Collect more than once, or on a collector that failed to
// register, returns an empty batch — never nil, so callers can range over
// the result unconditionally.
func (c *LocalCollector) Collect() *LocalSpans {
	if c == nil || c.done {
		return &LocalSpans{}
	}
	c.done = true
	runtime.SetFinalizer(c, nil)
	if c.stack.unregister(c.epoch) == nil {
		return &LocalSpans{}
	}
	at := now()
	return &LocalSpans{Spans: c.line.queue.drain(at), EndTime: at}
}

// finalize runs only if a LocalCollector is garbage-collected without ever
// having Collect called on it — the Go analogue of relying on a scope
// guard to close a span on unwind. It discards the line rather than
// leaking its pooled backing slice.
func (c *LocalCollector) finalize() {
	if c.done {
		return
	}
	c.Collect()
}
