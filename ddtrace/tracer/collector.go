package tracer

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/minitrace/minitrace-go/internal/minilog"
)

// collectorCmdKind tags which of the five shapes a collectorCmd carries.
// Two of them exist purely to distinguish the owned-vs-shared fan-out:
// cmdSubmitSpans carries one RawSpan per token item (Span.Finish, the
// common case), while cmdSubmitLocalSpans carries a single shared
// *LocalSpans pointer fanned out across every token item at once
// (Span.PushChildSpans) — duplicating the RawSpan slice per trace would
// undo the whole point of building it as an immutable, shareable batch.
type collectorCmdKind uint8

const (
	cmdSubmitSpans collectorCmdKind = iota
	cmdSubmitLocalSpans
	cmdStartCollect
	cmdCommitCollect
	cmdDropCollect
)

type collectorCmd struct {
	kind      collectorCmdKind
	collectID uint32

	// cmdStartCollect
	traceID  TraceID
	parentID SpanID

	// isRoot marks a cmdStartCollect for a trace's root, and separately
	// marks a cmdSubmitSpans carrying that root's own finished span — the
	// latter use exempts it from the per-trace span cap so the root is
	// never the one silently dropped when children filled the quota
	// first.
	isRoot bool

	// cmdSubmitSpans: exactly one span, reparented below if stored
	// parentID is zero.
	span RawSpan

	// cmdSubmitLocalSpans: a batch shared across every token item fanned
	// out to it; never mutated once published. reparentID is the
	// grafting span's own id — every span in local with a zero ParentID
	// is a root of the local tree and is rewritten to hang off this id.
	local      *LocalSpans
	reparentID SpanID
}

// inFlightTrace is the collector's per-trace accumulator: spans arrive in
// any order across many cmdSubmitSpans/cmdSubmitLocalSpans messages and
// are held here until CommitCollect flushes them to the reporter or the
// dangling sweep gives up on them.
type inFlightTrace struct {
	traceID      TraceID
	rootParentID SpanID
	isRoot       bool
	spans        []RawSpan
	lastActivity time.Time
	committed    bool
}

// collector is the single actor owning all in-flight trace state: the
// lone consumer of a channel fed by arbitrarily many producer goroutines,
// which maps directly onto a goroutine draining a Go channel — no extra
// synchronization needed around the map itself.
type collector struct {
	ring         *ring
	reporter     Reporter
	maxSpans     int
	grace        time.Duration
	limiter      *rate.Limiter
	warnThrottle interface{ Allow() bool }
	stopCh       chan struct{}
	doneCh       chan struct{}
	syncCh       chan chan struct{}
	traces       map[uint32]*inFlightTrace
}

func newCollector(r *ring, reporter Reporter, maxSpans int, grace time.Duration) *collector {
	return &collector{
		ring:         r,
		reporter:     reporter,
		maxSpans:     maxSpans,
		grace:        grace,
		limiter:      rate.NewLimiter(rate.Every(100*time.Millisecond), 1),
		warnThrottle: minilog.NewRateLimited(time.Second),
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
		syncCh:       make(chan chan struct{}),
		traces:       make(map[uint32]*inFlightTrace),
	}
}

func (c *collector) start() {
	go c.run()
}

func (c *collector) stop() {
	close(c.stopCh)
	<-c.doneCh
}

func (c *collector) run() {
	defer close(c.doneCh)
	sweep := time.NewTicker(c.grace / 4)
	defer sweep.Stop()
	for {
		select {
		case <-c.stopCh:
			c.drainPending()
			c.flushAll(time.Now())
			return
		case cmd := <-c.ring.ch:
			c.handle(cmd)
		case done := <-c.syncCh:
			// select picks among ready cases at random, so commands sent
			// before Flush may still be queued in the ring or its spill
			// buffer; handle all of them before echoing, so that closing
			// done proves the actor has processed everything ahead of it.
			c.drainPending()
			close(done)
		case <-sweep.C:
			c.ring.drainSpill()
			c.sweepDangling(time.Now())
		}
	}
}

// drainPending handles every command currently queued in the ring,
// including ones waiting in the spill buffer, until both are empty.
func (c *collector) drainPending() {
	for {
		c.ring.drainSpill()
		select {
		case cmd := <-c.ring.ch:
			c.handle(cmd)
			continue
		default:
		}
		return
	}
}

func (c *collector) handle(cmd collectorCmd) {
	switch cmd.kind {
	case cmdStartCollect:
		c.traces[cmd.collectID] = &inFlightTrace{
			traceID:      cmd.traceID,
			rootParentID: cmd.parentID,
			isRoot:       cmd.isRoot,
			lastActivity: time.Now(),
		}
	case cmdSubmitSpans:
		t, ok := c.traces[cmd.collectID]
		if !ok || t.committed {
			return
		}
		if len(t.spans) >= c.maxSpans && !cmd.isRoot {
			return
		}
		span := cmd.span
		if span.ParentID == 0 {
			span.ParentID = t.rootParentID
		}
		t.spans = append(t.spans, span)
		t.lastActivity = time.Now()
	case cmdSubmitLocalSpans:
		t, ok := c.traces[cmd.collectID]
		if !ok || t.committed || cmd.local == nil {
			return
		}
		for _, span := range cmd.local.Spans {
			if len(t.spans) >= c.maxSpans {
				break
			}
			if span.ParentID == 0 {
				span.ParentID = cmd.reparentID
			}
			if isOpen(span.End) {
				span.End = cmd.local.EndTime
			}
			t.spans = append(t.spans, span)
		}
		t.lastActivity = time.Now()
	case cmdCommitCollect:
		t, ok := c.traces[cmd.collectID]
		if !ok {
			return
		}
		t.committed = true
		c.flushTrace(cmd.collectID, t, now())
	case cmdDropCollect:
		delete(c.traces, cmd.collectID)
	}
}

// sweepDangling evicts traces that received a StartCollect but no
// CommitCollect within the grace period — e.g. a root Span whose handle
// was dropped without Finish ever being called. Paced by a rate.Limiter so
// a pathological burst of abandoned traces can't turn the sweep itself
// into the bottleneck.
func (c *collector) sweepDangling(now time.Time) {
	if !c.limiter.Allow() {
		return
	}
	for id, t := range c.traces {
		if t.committed {
			continue
		}
		if now.Sub(t.lastActivity) > c.grace {
			if c.warnThrottle.Allow() {
				minilog.Warn("dropping dangling trace",
					zap.String("trace_id", t.traceID.String()),
					zap.Duration("grace", c.grace))
			}
			delete(c.traces, id)
		}
	}
}

// flushTrace hands a committed trace's spans to the reporter. Local-span
// batches are already closed at the instant they left the stack
// (SpanQueue.drain stamps LocalSpans.EndTime), so a lingering open span
// here is a defensive fallback rather than the common case; closing it to
// flushedAt means a Reporter never has to special-case one. The resulting
// root-to-last-close span is logged for diagnostics via durationNanos/the
// anchor, which otherwise only exist to make that resolution happen here
// rather than on the instrumentation hot path.
func (c *collector) flushTrace(id uint32, t *inFlightTrace, flushedAt Instant) {
	delete(c.traces, id)
	if len(t.spans) == 0 {
		return
	}
	begin, end := t.spans[0].Begin, t.spans[0].End
	for i := range t.spans {
		if isOpen(t.spans[i].End) {
			t.spans[i].End = flushedAt
		}
		if t.spans[i].Begin.Before(begin) {
			begin = t.spans[i].Begin
		}
		if t.spans[i].End.After(end) {
			end = t.spans[i].End
		}
	}
	globalAnchor.init()
	minilog.Debug("flushing trace",
		zap.String("trace_id", t.traceID.String()),
		zap.Int("spans", len(t.spans)),
		zap.Int64("duration_ns", durationNanos(begin, end, flushedAt)),
		zap.Int64("begin_unix_ns", globalAnchor.resolve(begin)))
	c.reporter.Report(context.Background(), SpanRecord{
		TraceID: t.traceID,
		Spans:   t.spans,
	})
}

func (c *collector) flushAll(now time.Time) {
	for id, t := range c.traces {
		if t.committed {
			c.flushTrace(id, t, now)
		}
	}
}
