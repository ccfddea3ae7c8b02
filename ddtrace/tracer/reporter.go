package tracer

import "context"

// SpanRecord is one committed trace's worth of spans, handed to a Reporter
// exactly once CommitCollect has run. Spans is already
// flattened and reparented — a Reporter never sees a zero ParentID that
// wasn't genuinely the trace root.
type SpanRecord struct {
	TraceID TraceID
	Spans   []RawSpan
}

// Reporter is the boundary between the collector actor and wherever
// finished traces actually go. Report must not block the caller for long:
// the collector actor calls it synchronously from its run loop, so a slow
// Reporter implementation should hand batches to its own buffered
// goroutine rather than perform network I/O inline (see
// reporter.ConsoleReporter and reporter.MsgpackReporter for two concrete
// shapes).
type Reporter interface {
	Report(ctx context.Context, record SpanRecord)
}

// NoopReporter discards everything — useful in tests that only care about
// local span trees. It is not installed by default: before SetReporter is
// called there is no collector at all and spans are dropped at the ring
// boundary.
type NoopReporter struct{}

func (NoopReporter) Report(context.Context, SpanRecord) {}
