package tracer_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/minitrace/minitrace-go/ddtrace/tracer"
	"github.com/minitrace/minitrace-go/mocktrace"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestRootFinishReportsASingleSpanTrace(t *testing.T) {
	reporter := mocktrace.New()
	tracer.SetReporter(reporter)
	defer tracer.Stop()

	span := tracer.Root("root")
	span.Finish()
	tracer.Flush()

	spans := reporter.SpansByName("root")
	require.Len(t, spans, 1)
	assert.Zero(t, spans[0].ParentID)
	assert.False(t, spans[0].End.Before(spans[0].Begin))
}

func TestSetReporterIsIdempotentWhileActive(t *testing.T) {
	first := mocktrace.New()
	tracer.SetReporter(first)
	defer tracer.Stop()

	second := mocktrace.New()
	tracer.SetReporter(second, tracer.MaxSpansPerTrace(1))

	span := tracer.Root("still-on-first")
	span.Finish()
	tracer.Flush()

	assert.Len(t, first.SpansByName("still-on-first"), 1, "the second SetReporter call must be a no-op while the first reporter is still installed")
	assert.Empty(t, second.SpansByName("still-on-first"))
}

func TestEnterWithParentChainsParentID(t *testing.T) {
	reporter := mocktrace.New()
	tracer.SetReporter(reporter)
	defer tracer.Stop()

	root := tracer.Root("root")
	child := tracer.EnterWithParent("child", root)
	child.Finish()
	root.Finish()
	tracer.Flush()

	children := reporter.SpansByName("child")
	roots := reporter.SpansByName("root")
	require.Len(t, children, 1)
	require.Len(t, roots, 1)
	assert.Equal(t, roots[0].ID, children[0].ParentID)
}

func TestEnterWithParentsJoinsMultipleTraces(t *testing.T) {
	reporter := mocktrace.New()
	tracer.SetReporter(reporter)
	defer tracer.Stop()

	rootA := tracer.Root("rootA")
	rootB := tracer.Root("rootB")
	fanIn := tracer.EnterWithParents("fan-in", []*tracer.Span{rootA, rootB})
	fanIn.Finish()
	rootA.Finish()
	rootB.Finish()
	tracer.Flush()

	fanInSpans := reporter.SpansByName("fan-in")
	assert.Len(t, fanInSpans, 2, "a span joining two traces should be reported once per trace")
}

func TestSpanAddEventSubmitsToEveryJoinedTrace(t *testing.T) {
	reporter := mocktrace.New()
	tracer.SetReporter(reporter)
	defer tracer.Stop()

	rootA := tracer.Root("rootA")
	rootB := tracer.Root("rootB")
	fanIn := tracer.EnterWithParents("fan-in", []*tracer.Span{rootA, rootB})

	fanIn.AddEvent("checkpoint", time.Now())

	fanIn.Finish()
	rootA.Finish()
	rootB.Finish()
	tracer.Flush()

	events := reporter.SpansByName("checkpoint")
	require.Len(t, events, 2, "an event on a span joining two traces should be reported once per trace")
	fanInSpans := reporter.SpansByName("fan-in")
	require.Len(t, fanInSpans, 2)
	for _, e := range events {
		assert.Equal(t, e.Begin, e.End, "an event span records a single instant, not a duration")
	}
}

func TestCancelDropsTraceWithoutReporting(t *testing.T) {
	reporter := mocktrace.New()
	tracer.SetReporter(reporter)
	defer tracer.Stop()

	root := tracer.Root("cancelled-root")
	root.Cancel()
	tracer.Flush()

	assert.Empty(t, reporter.Records())
	assert.Empty(t, reporter.SpansByName("cancelled-root"))
}

func TestEnterWithLocalParentAndSetLocalParent(t *testing.T) {
	reporter := mocktrace.New()
	tracer.SetReporter(reporter)
	defer tracer.Stop()

	root := tracer.Root("root")
	ctx, exit := root.SetLocalParent(context.Background())

	child := tracer.EnterWithLocalParent(ctx, "local-child")
	child.Finish()
	exit()
	root.Finish()
	tracer.Flush()

	children := reporter.SpansByName("local-child")
	roots := reporter.SpansByName("root")
	require.Len(t, children, 1)
	require.Len(t, roots, 1)
	assert.Equal(t, roots[0].ID, children[0].ParentID)
}

func TestEnterLocalUnderSetLocalParentReachesTheRealTrace(t *testing.T) {
	reporter := mocktrace.New()
	tracer.SetReporter(reporter)
	defer tracer.Stop()

	root := tracer.Root("root")
	ctx, exit := root.SetLocalParent(context.Background())

	_, guard := tracer.EnterLocal(ctx, "local-grandchild")
	guard.Exit()

	exit() // must drain the local queue onto root before root.Finish
	root.Finish()
	tracer.Flush()

	grandchildren := reporter.SpansByName("local-grandchild")
	roots := reporter.SpansByName("root")
	require.Len(t, grandchildren, 1)
	require.Len(t, roots, 1)
	assert.Equal(t, roots[0].ID, grandchildren[0].ParentID, "a span recorded via EnterLocal under SetLocalParent should graft onto the real parent")
}

func TestEnterWithLocalParentDetachedWithoutRegisteredLine(t *testing.T) {
	reporter := mocktrace.New()
	tracer.SetReporter(reporter)
	defer tracer.Stop()

	span := tracer.EnterWithLocalParent(context.Background(), "detached")
	span.Finish()
	tracer.Flush()

	assert.Empty(t, reporter.SpansByName("detached"), "a detached span has no trace membership to report into")
}

func TestLocalCollectorGraftsOntoRealTraceViaPushChildSpans(t *testing.T) {
	reporter := mocktrace.New()
	tracer.SetReporter(reporter)
	defer tracer.Stop()

	ctx, collector := tracer.StartLocalCollector(context.Background())
	ctx, exitA := tracer.EnterLocal(ctx, "local-a")
	_, exitB := tracer.EnterLocal(ctx, "local-b")
	exitB.Exit()
	exitA.Exit()

	batch := collector.Collect()
	require.Len(t, batch.Spans, 2)

	root := tracer.Root("root")
	root.PushChildSpans(batch)
	root.Finish()
	tracer.Flush()

	assert.Len(t, reporter.SpansByName("local-a"), 1)
	assert.Len(t, reporter.SpansByName("local-b"), 1)
}

func TestEventRecordsUnderOpenLocalSpanAndReachesTheRealTrace(t *testing.T) {
	reporter := mocktrace.New()
	tracer.SetReporter(reporter)
	defer tracer.Stop()

	root := tracer.Root("root")
	ctx, exit := root.SetLocalParent(context.Background())
	ctx, guard := tracer.EnterLocal(ctx, "span-with-event")
	tracer.Event(ctx, "something happened", tracer.StringTag("key", "value"))
	guard.Exit()
	exit()
	root.Finish()
	tracer.Flush()

	events := reporter.SpansByName("something happened")
	require.Len(t, events, 1)
	assert.Len(t, reporter.SpansByName("root"), 1)
}

func TestFlushWaitsForPriorSubmissions(t *testing.T) {
	reporter := mocktrace.New()
	tracer.SetReporter(reporter)
	defer tracer.Stop()

	for i := 0; i < 50; i++ {
		s := tracer.Root("batch")
		s.Finish()
	}
	tracer.Flush()
	assert.Len(t, reporter.SpansByName("batch"), 50)
}

func TestDanglingTraceIsEvictedWithoutReporting(t *testing.T) {
	reporter := mocktrace.New()
	tracer.SetReporter(reporter, tracer.DanglingGrace(20*time.Millisecond))
	defer tracer.Stop()

	tracer.Root("abandoned") // never Finished, never Cancelled
	time.Sleep(250 * time.Millisecond)
	tracer.Flush()

	assert.Empty(t, reporter.SpansByName("abandoned"))
}

func TestMaxSpansPerTraceBoundsAccumulation(t *testing.T) {
	reporter := mocktrace.New()
	tracer.SetReporter(reporter, tracer.MaxSpansPerTrace(2))
	defer tracer.Stop()

	root := tracer.Root("root")
	ctx, exit := root.SetLocalParent(context.Background())
	for i := 0; i < 10; i++ {
		_, guard := tracer.EnterLocal(ctx, "child")
		guard.Exit()
	}
	exit()
	root.Finish()
	tracer.Flush()

	records := reporter.Records()
	require.Len(t, records, 1)
	spans := records[0].Spans
	assert.LessOrEqual(t, len(spans), 3, "cap plus one guaranteed root slot bounds accumulation even with many children arriving")

	var sawRoot bool
	for _, s := range spans {
		if s.Name == "root" {
			sawRoot = true
		}
	}
	assert.True(t, sawRoot, "the root span must always be reported even when children filled the cap first")
}
