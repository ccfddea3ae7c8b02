package tracer

import "github.com/google/uuid"

// TraceID is a 128-bit opaque identifier chosen by the caller — usually
// randomly generated or propagated in from an upstream carrier. Its shape
// (uuid.UUID is exactly a [16]byte) lets NewTraceID reuse a well-vetted
// random source instead of hand-rolling one.
type TraceID [16]byte

// NewTraceID returns a fresh random TraceID for callers that aren't
// propagating one in from elsewhere (e.g. a locally-initiated trace root).
func NewTraceID() TraceID {
	return TraceID(uuid.New())
}

// IsZero reports whether t is the zero value, used to detect an
// unpropagated/absent trace id.
func (t TraceID) IsZero() bool {
	return t == TraceID{}
}

func (t TraceID) String() string {
	return uuid.UUID(t).String()
}
