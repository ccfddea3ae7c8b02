package tracer

import (
	"context"
)

// defaultStackCapacity bounds how many span lines may be simultaneously
// registered on one stack — in practice only a handful are ever live at
// once.
const defaultStackCapacity = 4096

// SpanLine is one queue plus the collect-token inherited from the
// enclosing cross-thread span at the moment the line was registered.
// parentID is the id the line's own top-level children should carry as
// their parent when there is no open span yet inside the queue.
type SpanLine struct {
	queue    *SpanQueue
	epoch    uint64
	token    *CollectToken // nil => detached ("LocalCollector") line
	parentID SpanID
}

// LocalSpanStack is the thread-confined (here: context-confined) stack of
// span lines. An epoch counter, not a pointer,
// identifies a registered line, so a handle that outlives its line
// degrades to an inert no-op instead of dangling.
type LocalSpanStack struct {
	lines     []*SpanLine
	capacity  int
	nextEpoch uint64
}

func newLocalSpanStack(capacity int) *LocalSpanStack {
	return &LocalSpanStack{capacity: capacity}
}

func (s *LocalSpanStack) register(token *CollectToken, parentID SpanID) (*SpanLine, uint64, bool) {
	if s == nil || len(s.lines) >= s.capacity {
		return nil, 0, false
	}
	epoch := s.nextEpoch
	s.nextEpoch++
	line := &SpanLine{
		queue:    newSpanQueue(defaultQueueCapacity),
		epoch:    epoch,
		token:    token,
		parentID: parentID,
	}
	s.lines = append(s.lines, line)
	return line, epoch, true
}

// unregister pops the top line if its epoch matches; a stale epoch (the
// line was already popped, or something else is on top) is a silent no-op
// that returns nil.
func (s *LocalSpanStack) unregister(epoch uint64) *SpanLine {
	if s == nil || len(s.lines) == 0 {
		return nil
	}
	top := s.lines[len(s.lines)-1]
	if top.epoch != epoch {
		return nil
	}
	s.lines = s.lines[:len(s.lines)-1]
	return top
}

func (s *LocalSpanStack) topLine() *SpanLine {
	if s == nil || len(s.lines) == 0 {
		return nil
	}
	return s.lines[len(s.lines)-1]
}

// lineAt returns the current top line if it matches epoch, else nil — used
// by guards so an operation against a line that is no longer on top
// degrades silently instead of corrupting an unrelated line.
func (s *LocalSpanStack) lineAt(epoch uint64) *SpanLine {
	line := s.topLine()
	if line == nil || line.epoch != epoch {
		return nil
	}
	return line
}

// currentToken clones the topmost line's token, used to propagate trace
// membership into children created via EnterWithLocalParent. Returns nil
// if there is no registered line or the topmost line is detached
// (LocalCollector path, which carries no trace membership).
func (s *LocalSpanStack) currentToken() *CollectToken {
	line := s.topLine()
	if line == nil || line.token == nil {
		return nil
	}
	return line.token.clone()
}

// currentParentID resolves the id a new cross-thread child should carry as
// its parent: the current top-of-queue span if one is open, else the
// line's own inherited parent.
func (s *LocalSpanStack) currentParentID() SpanID {
	line := s.topLine()
	if line == nil {
		return 0
	}
	if top := line.queue.topOpenID(); top != 0 {
		return top
	}
	return line.parentID
}

type localStackKeyType struct{}

var localStackKey localStackKeyType

func localStackFrom(ctx context.Context) *LocalSpanStack {
	if ctx == nil {
		return nil
	}
	s, _ := ctx.Value(localStackKey).(*LocalSpanStack)
	return s
}

// ensureLocalStack returns ctx unchanged (with its existing stack) if one
// is already present, or a derived context carrying a freshly allocated
// stack otherwise. The returned *LocalSpanStack is a shared, mutable
// object: every context.Context derived from the result observes the same
// underlying push/pop state, which is what lets enter/exit operate without
// threading an explicit handle through every call site — the Go-idiomatic
// stand-in for an ambient thread-local.
func ensureLocalStack(ctx context.Context) (context.Context, *LocalSpanStack) {
	if s := localStackFrom(ctx); s != nil {
		return ctx, s
	}
	s := newLocalSpanStack(defaultStackCapacity)
	return context.WithValue(ctx, localStackKey, s), s
}
