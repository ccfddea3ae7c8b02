package traceattr_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minitrace/minitrace-go/ddtrace/tracer"
	"github.com/minitrace/minitrace-go/mocktrace"
	"github.com/minitrace/minitrace-go/traceattr"
)

func TestWrapEntersAndExitsALocalSpan(t *testing.T) {
	reporter := mocktrace.New()
	tracer.SetReporter(reporter)
	defer tracer.Stop()

	root := tracer.Root("root")
	ctx, exit := root.SetLocalParent(context.Background())

	called := false
	wrapped := traceattr.Wrap("wrapped-fn", func(context.Context) error {
		called = true
		return nil
	}, tracer.StringTag("k", "v"))

	require.NoError(t, wrapped(ctx))
	assert.True(t, called)

	exit()
	root.Finish()
	tracer.Flush()

	spans := reporter.SpansByName("wrapped-fn")
	require.Len(t, spans, 1)
	assert.Equal(t, "v", spans[0].Properties[0].Value)
}

func TestWrapPropagatesError(t *testing.T) {
	sentinel := errors.New("boom")
	wrapped := traceattr.Wrap("fails", func(context.Context) error {
		return sentinel
	})
	assert.ErrorIs(t, wrapped(context.Background()), sentinel)
}

func TestWrapValueReturnsFnResult(t *testing.T) {
	wrapped := traceattr.WrapValue("compute", func(context.Context) (int, error) {
		return 42, nil
	})
	v, err := wrapped(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}
