// Package minilog provides the small internal logging shim the tracer uses
// for diagnostics that must never reach the instrumentation API boundary as
// errors: dangling-trace eviction warnings and a debug line per
// flushed trace. Spans dropped under backpressure and reporter failures are
// not logged. It
// wraps a package-level zap.Logger rather than calling a global logger
// directly from call sites.
package minilog

import (
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

var (
	mu  sync.Mutex
	log atomic.Pointer[zap.Logger]
)

func init() {
	l, err := zap.NewProduction(zap.IncreaseLevel(zap.WarnLevel))
	if err != nil {
		l = zap.NewNop()
	}
	log.Store(l)
}

// SetLogger replaces the logger used for all subsequent diagnostics. Tests
// typically install zap.NewNop() or an observer core.
func SetLogger(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	if l == nil {
		l = zap.NewNop()
	}
	log.Store(l)
}

func current() *zap.Logger { return log.Load() }

func Debug(msg string, fields ...zap.Field) { current().Debug(msg, fields...) }
func Warn(msg string, fields ...zap.Field)  { current().Warn(msg, fields...) }
func Error(msg string, fields ...zap.Field) { current().Error(msg, fields...) }

// rateLimited gates a noisy call site to at most once per window, so a
// hot loop hammering a capacity limit doesn't turn into a logging storm.
type rateLimited struct {
	mu     sync.Mutex
	last   time.Time
	window time.Duration
}

func NewRateLimited(window time.Duration) *rateLimited {
	return &rateLimited{window: window}
}

func (r *rateLimited) Allow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	if now.Sub(r.last) < r.window {
		return false
	}
	r.last = now
	return true
}
