package tracer

import "sync"

// maxPooledCap bounds how large a reusable slice we'll keep; anything
// bigger is let go to the GC instead of hoarded in the free list.
const maxPooledCap = 256

// rawSpanSlicePool is the shared free list for []RawSpan backing arrays —
// the hottest allocation in the pipeline, since every SpanQueue needs one.
// sync.Pool already implements "per-thread pullers that batch-pull N
// empties from a shared free list on miss" via its internal per-P private
// caches, so this wraps sync.Pool rather than reimplementing that
// machinery by hand.
var rawSpanSlicePool = sync.Pool{
	New: func() any {
		s := make([]RawSpan, 0, 16)
		return &s
	},
}

func getRawSpanSlice() *[]RawSpan {
	return rawSpanSlicePool.Get().(*[]RawSpan)
}

func putRawSpanSlice(s *[]RawSpan) {
	if cap(*s) > maxPooledCap {
		return
	}
	old := *s
	for i := range old {
		old[i].reset()
	}
	*s = old[:0]
	rawSpanSlicePool.Put(s)
}

// tokenItemSlicePool is the free list for []CollectTokenItem backing
// arrays, used by CollectToken when cloning or merging tokens.
var tokenItemSlicePool = sync.Pool{
	New: func() any {
		s := make([]CollectTokenItem, 0, 4)
		return &s
	},
}

func getTokenItemSlice() *[]CollectTokenItem {
	return tokenItemSlicePool.Get().(*[]CollectTokenItem)
}

func putTokenItemSlice(s *[]CollectTokenItem) {
	if cap(*s) > maxPooledCap {
		return
	}
	*s = (*s)[:0]
	tokenItemSlicePool.Put(s)
}
