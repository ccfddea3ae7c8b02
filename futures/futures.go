// Package futures adapts the local-span API to code that crosses an
// execution boundary — a spawned goroutine, or a function that hands work
// to a worker pool. Go has no poll-based Future, so there is nothing to
// implement a Poller trait against; a plain function call already runs to
// completion in one step, and the boundary that actually matters in Go is
// "which goroutine is this running on."
package futures

import (
	"context"

	"github.com/minitrace/minitrace-go/ddtrace/tracer"
)

// InSpan runs fn with a local span entered for its duration and exited
// when fn returns, propagating whatever local parent ctx already carries.
func InSpan(ctx context.Context, name string, fn func(context.Context) error) error {
	ctx, guard := tracer.EnterLocal(ctx, name)
	defer guard.Exit()
	return fn(ctx)
}

// Go launches fn on a new goroutine with a fresh local span stack rooted
// under parent (or detached, if parent is nil), and a top-level local span
// named name spanning fn's execution — the goroutine boundary is where a
// new "thread-local" stack has to begin, since nothing is shared with the
// launching goroutine's own stack.
func Go(parent *tracer.Span, name string, fn func(context.Context)) {
	go func() {
		ctx := context.Background()
		if parent != nil {
			var pop func()
			ctx, pop = parent.SetLocalParent(ctx)
			defer pop()
		}
		ctx, guard := tracer.EnterLocal(ctx, name)
		defer guard.Exit()
		fn(ctx)
	}()
}
