package reporter_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/minitrace/minitrace-go/ddtrace/tracer"
	"github.com/minitrace/minitrace-go/reporter"
)

type wireSpan struct {
	ID         uint64            `msgpack:"id"`
	ParentID   uint64            `msgpack:"parent_id"`
	Name       string            `msgpack:"name"`
	BeginNanos int64             `msgpack:"begin"`
	EndNanos   int64             `msgpack:"end"`
	Properties map[string]string `msgpack:"properties,omitempty"`
}

type wireBatch struct {
	TraceID string     `msgpack:"trace_id"`
	Spans   []wireSpan `msgpack:"spans"`
}

func TestMsgpackReporterEncodesDecodableFrames(t *testing.T) {
	var buf bytes.Buffer
	r, err := reporter.NewMsgpackReporter(&buf, nil)
	require.NoError(t, err)

	traceID := tracer.NewTraceID()
	r.Report(context.Background(), tracer.SpanRecord{
		TraceID: traceID,
		Spans: []tracer.RawSpan{
			{ID: 1, Name: "root", Properties: []tracer.Property{{Key: "k", Value: "v"}}},
			{ID: 2, ParentID: 1, Name: "child"},
		},
	})

	dec := msgpack.NewDecoder(&buf)
	var got wireBatch
	require.NoError(t, dec.Decode(&got))

	assert.Equal(t, traceID.String(), got.TraceID)
	require.Len(t, got.Spans, 2)
	assert.Equal(t, "root", got.Spans[0].Name)
	assert.Equal(t, "v", got.Spans[0].Properties["k"])
}

func TestMsgpackReporterShardsLargeBatches(t *testing.T) {
	var buf bytes.Buffer
	r, err := reporter.NewMsgpackReporter(&buf, nil)
	require.NoError(t, err)

	spans := make([]tracer.RawSpan, 600) // > one default shard of 256
	for i := range spans {
		spans[i] = tracer.RawSpan{ID: tracer.SpanID(i + 1), Name: "s"}
	}
	r.Report(context.Background(), tracer.SpanRecord{TraceID: tracer.NewTraceID(), Spans: spans})

	dec := msgpack.NewDecoder(&buf)
	total := 0
	for {
		var batch wireBatch
		if err := dec.Decode(&batch); err != nil {
			break
		}
		total += len(batch.Spans)
	}
	assert.Equal(t, 600, total, "sharded encoding must not drop or duplicate spans")
}

func TestMsgpackReporterSpanCountQuantile(t *testing.T) {
	var buf bytes.Buffer
	r, err := reporter.NewMsgpackReporter(&buf, nil)
	require.NoError(t, err)

	for _, n := range []int{1, 5, 10} {
		r.Report(context.Background(), tracer.SpanRecord{
			TraceID: tracer.NewTraceID(),
			Spans:   make([]tracer.RawSpan, n),
		})
	}

	q, err := r.SpanCountQuantile(0.5)
	require.NoError(t, err)
	assert.Greater(t, q, 0.0)
}
