// Package mocktrace is a test-only Reporter that records every flushed
// trace in memory for assertions.
package mocktrace

import (
	"context"
	"sort"
	"sync"

	"github.com/minitrace/minitrace-go/ddtrace/tracer"
)

// Reporter captures every SpanRecord handed to it. Safe for concurrent use
// since the collector actor may call Report from its own goroutine while
// a test is concurrently asserting on earlier records.
type Reporter struct {
	mu      sync.Mutex
	records []tracer.SpanRecord
}

// New returns an empty Reporter ready to be passed to tracer.SetReporter.
func New() *Reporter {
	return &Reporter{}
}

func (r *Reporter) Report(_ context.Context, record tracer.SpanRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, record)
}

// Records returns a snapshot of every trace reported so far, in the order
// they were flushed.
func (r *Reporter) Records() []tracer.SpanRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]tracer.SpanRecord, len(r.records))
	copy(out, r.records)
	return out
}

// Reset discards every recorded trace, for reuse across subtests.
func (r *Reporter) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = nil
}

// FindByTraceID returns the single record for traceID, or ok=false if no
// trace with that id has been reported yet.
func (r *Reporter) FindByTraceID(traceID tracer.TraceID) (tracer.SpanRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.records {
		if rec.TraceID == traceID {
			return rec, true
		}
	}
	return tracer.SpanRecord{}, false
}

// SpansByName returns every span across every recorded trace whose Name
// matches name, ordered by Begin for deterministic assertions.
func (r *Reporter) SpansByName(name string) []tracer.RawSpan {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []tracer.RawSpan
	for _, rec := range r.records {
		for _, s := range rec.Spans {
			if s.Name == name {
				out = append(out, s)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Begin.Before(out[j].Begin) })
	return out
}
