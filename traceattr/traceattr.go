// Package traceattr provides the manual equivalent of a compile-time
// tracing attribute macro: wrapping a function body to open a local span
// on entry and close it on return. Go has no procedural macros, so this
// package exposes the same transformation as an explicit higher-order
// function — call sites wrap a function once, spelled out instead of
// generated.
package traceattr

import (
	"context"

	"github.com/minitrace/minitrace-go/ddtrace/tracer"
)

// Wrap returns fn instrumented with a local span named name: entered
// immediately before fn runs, exited immediately after, tags applied to
// the span before fn starts (mirroring the macro's `#[trace("name",
// enter_on_poll = true)]` attribute arguments).
func Wrap(name string, fn func(context.Context) error, tags ...tracer.Tag) func(context.Context) error {
	return func(ctx context.Context) error {
		ctx, guard := tracer.EnterLocal(ctx, name)
		for _, t := range tags {
			guard.AddProperty(t)
		}
		defer guard.Exit()
		return fn(ctx)
	}
}

// WrapValue is Wrap for functions returning a value alongside an error —
// the shape most handler/middleware call sites actually have.
func WrapValue[T any](name string, fn func(context.Context) (T, error), tags ...tracer.Tag) func(context.Context) (T, error) {
	return func(ctx context.Context) (T, error) {
		ctx, guard := tracer.EnterLocal(ctx, name)
		for _, t := range tags {
			guard.AddProperty(t)
		}
		defer guard.Exit()
		return fn(ctx)
	}
}
