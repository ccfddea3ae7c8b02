package tracer

import (
	"context"
	"time"
)

// Span is the cross-thread handle: unlike the spans recorded
// inside a SpanQueue, a Span can be captured by a closure, stashed in a
// struct, or handed across a channel to another goroutine, and carries
// enough state (a cloned CollectToken) to submit itself to the right
// trace(s) whenever it is finished, regardless of which goroutine does so.
type Span struct {
	id       SpanID
	name     string
	begin    Instant
	token    *CollectToken
	props    []Property
	finished bool
}

// rethreadToken returns a clone of token with every item's ParentID overwritten
// to parentID and IsRoot cleared — the transformation applied whenever a
// new Span is entered under an existing one.
func rethreadToken(token *CollectToken, parentID SpanID) *CollectToken {
	if token == nil {
		return nil
	}
	c := token.clone()
	for i := range c.items {
		c.items[i].ParentID = parentID
		c.items[i].IsRoot = false
	}
	return c
}

// Root starts a brand new trace and returns its first Span. The returned
// Span is not yet registered as any goroutine's local parent — call
// SetLocalParent if nested EnterWithLocalParent calls should find it.
func Root(name string) *Span {
	collectID := nextCollectID()
	traceID := NewTraceID()
	token := newCollectToken()
	token.append(CollectTokenItem{TraceID: traceID, ParentID: 0, CollectID: collectID, IsRoot: true})
	if r := currentRing(); r != nil {
		r.forceSend(collectorCmd{kind: cmdStartCollect, collectID: collectID, traceID: traceID, parentID: 0, isRoot: true})
	}
	return &Span{id: nextSpanID(), name: name, begin: now(), token: token}
}

// EnterWithParent starts a child of a single cross-thread parent Span. A
// nil or already-finished parent yields a detached Span: it behaves like
// any other Span, but Finish on it is a no-op.
func EnterWithParent(name string, parent *Span) *Span {
	if parent == nil {
		return &Span{id: nextSpanID(), name: name, begin: now()}
	}
	return &Span{
		id:    nextSpanID(),
		name:  name,
		begin: now(),
		token: rethreadToken(parent.token, parent.id),
	}
}

// EnterWithParents starts a child belonging to every trace any of parents
// belongs to, deduplicated by trace — used when a span genuinely joins
// multiple traces, e.g. a fan-in point.
func EnterWithParents(name string, parents []*Span) *Span {
	rethreaded := make([]*CollectToken, 0, len(parents))
	for _, p := range parents {
		if p == nil || p.token == nil {
			continue
		}
		rethreaded = append(rethreaded, rethreadToken(p.token, p.id))
	}
	merged := mergeTokensDedup(rethreaded)
	for _, t := range rethreaded {
		t.release()
	}
	return &Span{id: nextSpanID(), name: name, begin: now(), token: merged}
}

// EnterWithLocalParent starts a child of whatever is current on ctx's
// local span stack — a RawSpan open in the topmost SpanLine's queue, or
// that line's own inherited parent if the queue has nothing open. If no
// line is registered, the result is a detached Span, same as
// EnterWithParent(name, nil).
func EnterWithLocalParent(ctx context.Context, name string) *Span {
	stack := localStackFrom(ctx)
	if stack == nil || stack.topLine() == nil {
		return &Span{id: nextSpanID(), name: name, begin: now()}
	}
	parentID := stack.currentParentID()
	token := stack.currentToken()
	return &Span{
		id:    nextSpanID(),
		name:  name,
		begin: now(),
		token: rethreadToken(token, parentID),
	}
}

// SetLocalParent registers s as the local parent for ctx's goroutine: any
// EnterWithLocalParent, or EnterLocal/Event recorded directly on the
// returned context's top line, becomes a descendant of s. The returned
// func pops the registration and grafts anything EnterLocal recorded
// during the registration onto s via PushChildSpans, so those spans reach
// the same trace(s) s belongs to; callers should call Finish on s only
// after this func has run (defer Finish first, then SetLocalParent and
// defer this func, so LIFO unwinds it before Finish).
func (s *Span) SetLocalParent(ctx context.Context) (context.Context, func()) {
	ctx, stack := ensureLocalStack(ctx)
	_, epoch, ok := stack.register(s.token.clone(), s.id)
	if !ok {
		return ctx, func() {}
	}
	return ctx, func() {
		popped := stack.unregister(epoch)
		if popped == nil {
			return
		}
		defer popped.token.release()
		at := now()
		if spans := popped.queue.drain(at); len(spans) > 0 {
			s.PushChildSpans(&LocalSpans{Spans: spans, EndTime: at})
		}
	}
}

// AddProperty attaches a tag to s, to be carried on the RawSpan it
// eventually submits. A no-op on an already-finished Span.
func (s *Span) AddProperty(tag Tag) *Span {
	if s == nil || s.finished {
		return s
	}
	s.props = append(s.props, tag.Render())
	return s
}

// AddEvent records a zero-duration event parented to s, submitted through
// the same per-trace fan-out Finish uses. This is the add_to_parent
// counterpart to the package-level Event function, which instead records
// against whatever local span is open on a context.Context — AddEvent is
// for code holding a cross-thread Span handle directly, with no local
// stack involved. A no-op on a nil, detached, or already-finished Span.
func (s *Span) AddEvent(name string, at Instant, tags ...Tag) {
	if s == nil || s.finished || s.token == nil {
		return
	}
	r := currentRing()
	if r == nil {
		return
	}
	props := RenderAll(tags)
	for _, item := range s.token.items {
		raw := newRawSpan(nextSpanID(), s.id, name, at, true)
		raw.close(at)
		raw.Properties = append(raw.Properties, props...)
		r.trySend(collectorCmd{kind: cmdSubmitSpans, collectID: item.CollectID, span: raw})
	}
}

// Rename changes s's recorded name, provided it hasn't finished yet — used
// by compat/opentracer to support opentracing.Span.SetOperationName, which
// this engine's own API has no reason to expose directly since the name is
// normally fixed at Root/Enter time.
func (s *Span) Rename(name string) {
	if s != nil && !s.finished {
		s.name = name
	}
}

// ID returns s's own span id, for callers (e.g. compat/opentracer) that
// need to render a stable identifier without reaching into unexported
// state.
func (s *Span) ID() SpanID {
	if s == nil {
		return 0
	}
	return s.id
}

// Elapsed reports how long s has been open.
func (s *Span) Elapsed() time.Duration {
	if s == nil {
		return 0
	}
	return now().Sub(s.begin)
}

// PushChildSpans grafts a LocalSpans batch onto s as children, without
// finishing s itself — the bridge that lets a LocalCollector's tree join
// a real trace after the fact. Every span in batch with a zero ParentID
// is treated as a root of the local tree and rewritten to hang off s. Like
// Finish, the submission is non-critical and is dropped rather than
// blocking if the collector's ring is full.
func (s *Span) PushChildSpans(batch *LocalSpans) {
	if s == nil || s.finished || s.token == nil || batch == nil || len(batch.Spans) == 0 {
		return
	}
	r := currentRing()
	if r == nil {
		return
	}
	for _, item := range s.token.items {
		r.trySend(collectorCmd{
			kind:       cmdSubmitLocalSpans,
			collectID:  item.CollectID,
			local:      batch,
			reparentID: s.id,
		})
	}
}

// Cancel discards s without ever submitting it. If s was created via Root,
// this also tears down the trace it started.
func (s *Span) Cancel() {
	if s == nil || s.finished {
		return
	}
	s.finished = true
	if s.token == nil {
		return
	}
	r := currentRing()
	for _, item := range s.token.items {
		if item.IsRoot && r != nil {
			r.forceSend(collectorCmd{kind: cmdDropCollect, collectID: item.CollectID})
		}
	}
	s.token.release()
	s.token = nil
}

// Finish closes s and submits it to every trace it belongs to. Calling
// Finish more than once, or on a detached Span, is a no-op. The submission
// itself is non-critical: under backpressure it is dropped rather than
// blocking the caller, bounded anyway by the per-trace span cap. Only the
// control messages that open and close a trace (StartCollect/CommitCollect/
// DropCollect) are guaranteed delivery.
func (s *Span) Finish() {
	if s == nil || s.finished {
		return
	}
	s.finished = true
	if s.token == nil {
		return
	}
	end := now()
	r := currentRing()
	if r != nil {
		for _, item := range s.token.items {
			raw := newRawSpan(s.id, item.ParentID, s.name, s.begin, false)
			raw.close(end)
			raw.Properties = append(raw.Properties, s.props...)
			r.trySend(collectorCmd{kind: cmdSubmitSpans, collectID: item.CollectID, span: raw, isRoot: item.IsRoot})
			if item.IsRoot {
				r.forceSend(collectorCmd{kind: cmdCommitCollect, collectID: item.CollectID})
			}
		}
	}
	s.token.release()
	s.token = nil
}
