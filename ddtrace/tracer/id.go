package tracer

import (
	crand "crypto/rand"
	"math/rand"
	"sync"

	"go.uber.org/atomic"
)

// SpanID is a 64-bit opaque identifier, unique within a process with
// overwhelming probability. Zero is reserved for "no parent".
type SpanID uint64

// idGenerator produces span ids as (prefix<<32 | wrapping suffix). prefix is
// drawn once per generator from a process-wide seeded RNG; suffix wraps
// after 2^32 ids. Generators are pooled rather than kept in a true
// goroutine-local (Go has none): sync.Pool already maintains a per-P private
// cache, which is this repository's idiom for "thread-local puller over a
// shared free list", and a fresh random prefix per generator keeps
// collision odds negligible even when the pool hands a caller a generator
// some other goroutine used last.
type idGenerator struct {
	prefix uint32
	suffix atomic.Uint32
}

var processRand = struct {
	mu  sync.Mutex
	rng *rand.Rand
}{rng: rand.New(rand.NewSource(seedFromTime()))}

func seedFromTime() int64 {
	// Non-cryptographic on purpose: only uniqueness-by-chance is
	// required, not unpredictability.
	var b [8]byte
	_, _ = crand.Read(b[:])
	var s int64
	for _, c := range b {
		s = s<<8 | int64(c)
	}
	if s == 0 {
		s = 1
	}
	return s
}

func randomPrefix() uint32 {
	processRand.mu.Lock()
	defer processRand.mu.Unlock()
	return processRand.rng.Uint32()
}

var idGenPool = sync.Pool{
	New: func() any {
		return &idGenerator{prefix: randomPrefix()}
	},
}

// nextSpanID returns a fresh, process-unique-with-overwhelming-probability
// span id. Suffix starts at one, so zero is never returned.
func nextSpanID() SpanID {
	g := idGenPool.Get().(*idGenerator)
	suffix := g.suffix.Add(1)
	id := SpanID(uint64(g.prefix)<<32 | uint64(suffix))
	idGenPool.Put(g)
	return id
}

// collectIDCounter hands out small process-local identifiers for
// in-flight traces; it doesn't need the collision properties of SpanID,
// just monotone uniqueness, so a single atomic counter suffices.
var collectIDCounter atomic.Uint32

func nextCollectID() uint32 {
	return collectIDCounter.Add(1)
}
