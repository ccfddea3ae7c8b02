package tracer

import "context"

// LocalSpanGuard is the handle returned by EnterLocal — Go's stand-in for
// a scope guard that closes a span when it goes out of scope. Callers are
// expected to `defer guard.Exit()`.
type LocalSpanGuard struct {
	stack  *LocalSpanStack
	epoch  uint64
	handle int
	closed bool
}

// ensureTopLine returns the current top line, lazily registering a
// detached one (no trace membership) if the stack is empty — so EnterLocal
// works even before any SetLocalParent call. Nothing ever unregisters or
// drains a line registered this way, so the timings recorded on it never
// reach a Reporter; only lines registered by StartLocalCollector or
// SetLocalParent are drained and grafted onto a trace.
func ensureTopLine(stack *LocalSpanStack) *SpanLine {
	if line := stack.topLine(); line != nil {
		return line
	}
	line, _, ok := stack.register(nil, 0)
	if !ok {
		return nil
	}
	return line
}

// EnterLocal opens a local span on ctx's goroutine-confined stack,
// parented to whatever is already open on the topmost line.
func EnterLocal(ctx context.Context, name string) (context.Context, *LocalSpanGuard) {
	ctx, stack := ensureLocalStack(ctx)
	line := ensureTopLine(stack)
	if line == nil {
		return ctx, &LocalSpanGuard{closed: true}
	}
	handle, ok := line.queue.enter(name, now())
	if !ok {
		return ctx, &LocalSpanGuard{closed: true}
	}
	return ctx, &LocalSpanGuard{stack: stack, epoch: line.epoch, handle: handle}
}

// Exit closes g. A second call, or a call after the owning line has
// already been unregistered, is a no-op.
func (g *LocalSpanGuard) Exit() {
	if g == nil || g.closed {
		return
	}
	g.closed = true
	line := g.stack.lineAt(g.epoch)
	if line == nil {
		return
	}
	line.queue.exit(g.handle, now())
}

// AddProperty attaches a tag to g's span, provided it is still open.
func (g *LocalSpanGuard) AddProperty(tag Tag) {
	if g == nil || g.closed {
		return
	}
	line := g.stack.lineAt(g.epoch)
	if line == nil {
		return
	}
	line.queue.addProperty(g.handle, tag.Render())
}

// Event records a zero-duration event parented to whatever local span is
// currently open on ctx. Silently dropped if nothing is open — an event
// can never become its own root.
func Event(ctx context.Context, name string, tags ...Tag) {
	stack := localStackFrom(ctx)
	line := stack.topLine()
	if line == nil {
		return
	}
	line.queue.addEvent(name, now(), RenderAll(tags))
}
