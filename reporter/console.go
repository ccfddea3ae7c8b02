// Package reporter holds concrete Reporter implementations. The tracer
// package only depends on the Reporter interface, and concrete back-ends
// live outside the core pipeline; this package is the first consumer of
// that boundary.
package reporter

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/minitrace/minitrace-go/ddtrace/tracer"
)

// ConsoleReporter writes a header line per trace followed by one line per
// span to an io.Writer, guarded by a
// mutex since tracer.Reporter.Report can be called from the collector
// actor goroutine at any time relative to other writers sharing the same
// destination.
type ConsoleReporter struct {
	mu  sync.Mutex
	out io.Writer
}

// NewConsoleReporter returns a ConsoleReporter writing to os.Stdout.
func NewConsoleReporter() *ConsoleReporter {
	return &ConsoleReporter{out: os.Stdout}
}

// NewConsoleReporterTo returns a ConsoleReporter writing to w, useful in
// tests that want to assert on captured output.
func NewConsoleReporterTo(w io.Writer) *ConsoleReporter {
	return &ConsoleReporter{out: w}
}

func (r *ConsoleReporter) Report(_ context.Context, record tracer.SpanRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.out, "trace %s (%d spans)\n", record.TraceID, len(record.Spans))
	for _, s := range record.Spans {
		fmt.Fprintf(r.out, "  span=%d parent=%d name=%q begin=%s end=%s props=%v\n",
			s.ID, s.ParentID, s.Name, s.Begin.Format("15:04:05.000000"), s.End.Format("15:04:05.000000"), s.Properties)
	}
}
