// Package tracer implements the span-collection pipeline: local span
// stacks rooted in a context.Context, a cross-thread span type that can be
// pushed across goroutine boundaries, and a single collector actor that
// fans committed traces out to a Reporter. Everything under ddtrace/ mimics
// the shape of a vendor-specific tracer package without depending on one.
package tracer

import (
	"sync"
	"time"
)

// Config holds the process-wide knobs governing the collector actor.
// Built only through functional options, the same shape as a StartOption
// convention on tracer.Start(...StartOption).
type Config struct {
	maxSpansPerTrace int
	danglingGrace    time.Duration
	ringCapacity     int
}

func defaultConfig() Config {
	return Config{
		maxSpansPerTrace: 10_000,
		danglingGrace:    30 * time.Second,
		ringCapacity:     4096,
	}
}

// ConfigOption mutates a Config at SetReporter time.
type ConfigOption func(*Config)

// MaxSpansPerTrace bounds how many spans a single trace may accumulate in
// the collector before further submissions for it are silently dropped.
// The root span's own submission is always accepted, so a trace whose
// children filled the cap first reports at most n+1 spans.
func MaxSpansPerTrace(n int) ConfigOption {
	return func(c *Config) { c.maxSpansPerTrace = n }
}

// DanglingGrace sets how long the collector waits for CommitCollect before
// evicting a trace that was started but never finished.
func DanglingGrace(d time.Duration) ConfigOption {
	return func(c *Config) { c.danglingGrace = d }
}

// RingCapacity sets the shared command channel's buffer size.
func RingCapacity(n int) ConfigOption {
	return func(c *Config) { c.ringCapacity = n }
}

type processState struct {
	ring      *ring
	collector *collector
}

var (
	stateMu sync.RWMutex
	state   *processState
)

// SetReporter installs the process-wide collector actor with r as its
// report sink. It must be called once during process start-up before any
// Span is entered; spans entered before SetReporter is called are
// silently dropped at the ring boundary rather than panicking. It is
// idempotent: once a reporter is installed, later calls are no-ops until
// Stop reverts to the uninitialized state — SetReporter never hot-swaps a
// running collector out from under in-flight traces.
func SetReporter(r Reporter, opts ...ConfigOption) {
	stateMu.Lock()
	defer stateMu.Unlock()
	if state != nil {
		return
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	rg := newRing(cfg.ringCapacity)
	c := newCollector(rg, r, cfg.maxSpansPerTrace, cfg.danglingGrace)
	c.start()
	state = &processState{ring: rg, collector: c}
}

// Stop drains and stops the process-wide collector (commands still queued
// in the ring are handled first), reverting to the
// pre-SetReporter state where spans are dropped at the ring boundary.
func Stop() {
	stateMu.Lock()
	prev := state
	state = nil
	stateMu.Unlock()
	if prev != nil {
		prev.collector.stop()
	}
}

func currentRing() *ring {
	stateMu.RLock()
	defer stateMu.RUnlock()
	if state == nil {
		return nil
	}
	return state.ring
}

// Flush blocks until every trace committed before the call returns has
// been handed to the Reporter. It works by sending a synchronization
// marker to the collector on a dedicated channel and waiting for it to be
// echoed back; the collector handles every command still queued in the
// ring before echoing, so Flush reflects the actor's actual processing
// rather than a fixed sleep.
func Flush() {
	stateMu.RLock()
	c := state
	stateMu.RUnlock()
	if c == nil {
		return
	}
	done := make(chan struct{})
	c.collector.syncCh <- done
	<-done
}
