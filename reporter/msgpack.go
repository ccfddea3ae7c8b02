package reporter

import (
	"context"
	"io"
	"sync"

	"github.com/DataDog/datadog-go/v5/statsd"
	"github.com/DataDog/sketches-go/ddsketch"
	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/sync/errgroup"

	"github.com/minitrace/minitrace-go/ddtrace/tracer"
)

// wireSpan is the msgpack-tagged shape written to the wire — a separate
// type from tracer.RawSpan so the wire format doesn't have to track every
// field the in-memory representation happens to carry (IsEvent is not
// written).
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

// MsgpackReporter msgpack-encodes flushed batches and writes them to an
// io.Writer, one frame per shard of up to 256 spans, so a Report call
// writes several frames for a large batch. Large batches are sharded and
// encoded concurrently (mirroring how a tracing agent's own payload
// encoder parallelizes across trace chunks) — encoding is normally the
// cheapest part of reporting, but this keeps pace with a reporter that
// wraps a slow io.Writer (e.g. a buffered network connection) without
// serializing shard encoding behind it.
type MsgpackReporter struct {
	mu        sync.Mutex
	w         io.Writer
	shardSize int

	statsd     *statsd.Client // optional; nil is valid and simply skips emission
	spanCounts *ddsketch.DDSketch
	sketchMu   sync.Mutex
}

// NewMsgpackReporter wraps w. statsdClient may be nil to disable client-side
// metrics emission entirely.
func NewMsgpackReporter(w io.Writer, statsdClient *statsd.Client) (*MsgpackReporter, error) {
	sketch, err := ddsketch.NewDefaultDDSketch(0.01)
	if err != nil {
		return nil, err
	}
	return &MsgpackReporter{
		w:          w,
		shardSize:  256,
		statsd:     statsdClient,
		spanCounts: sketch,
	}, nil
}

func (r *MsgpackReporter) Report(ctx context.Context, record tracer.SpanRecord) {
	r.observe(record)

	shards := shardSpans(record.Spans, r.shardSize)
	encoded := make([][]byte, len(shards))

	g, _ := errgroup.WithContext(ctx)
	for i, shard := range shards {
		i, shard := i, shard
		g.Go(func() error {
			buf, err := msgpack.Marshal(wireBatch{
				TraceID: record.TraceID.String(),
				Spans:   toWireSpans(shard),
			})
			if err != nil {
				return err
			}
			encoded[i] = buf
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return // best-effort reporter: a shard encoding failure drops this batch, not the process
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, buf := range encoded {
		_, _ = r.w.Write(buf)
	}
}

func (r *MsgpackReporter) observe(record tracer.SpanRecord) {
	r.sketchMu.Lock()
	_ = r.spanCounts.Add(float64(len(record.Spans)))
	r.sketchMu.Unlock()

	if r.statsd == nil {
		return
	}
	_ = r.statsd.Count("minitrace.spans_reported", int64(len(record.Spans)), nil, 1)
	_ = r.statsd.Incr("minitrace.batches_reported", nil, 1)
}

// SpanCountQuantile reports the q-quantile (0..1) of spans-per-batch seen so
// far, letting an operator sanity-check trace size without a full metrics
// backend wired up.
func (r *MsgpackReporter) SpanCountQuantile(q float64) (float64, error) {
	r.sketchMu.Lock()
	defer r.sketchMu.Unlock()
	return r.spanCounts.GetValueAtQuantile(q)
}

func shardSpans(spans []tracer.RawSpan, size int) [][]tracer.RawSpan {
	if len(spans) == 0 {
		return nil
	}
	var shards [][]tracer.RawSpan
	for len(spans) > 0 {
		n := size
		if n > len(spans) {
			n = len(spans)
		}
		shards = append(shards, spans[:n])
		spans = spans[n:]
	}
	return shards
}

func toWireSpans(spans []tracer.RawSpan) []wireSpan {
	out := make([]wireSpan, len(spans))
	for i, s := range spans {
		var props map[string]string
		if len(s.Properties) > 0 {
			props = make(map[string]string, len(s.Properties))
			for _, p := range s.Properties {
				props[p.Key] = p.Value
			}
		}
		out[i] = wireSpan{
			ID:         uint64(s.ID),
			ParentID:   uint64(s.ParentID),
			Name:       s.Name,
			BeginNanos: s.Begin.UnixNano(),
			EndNanos:   s.End.UnixNano(),
			Properties: props,
		}
	}
	return out
}
