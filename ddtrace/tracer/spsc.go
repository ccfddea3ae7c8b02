package tracer

import "sync"

// ring is the bounded delivery channel for collector commands,
// plus a sender-side "force-send" spill path for messages that must never
// be lost (StartCollect/CommitCollect/DropCollect). This is one shared
// channel rather than one per producer goroutine: Go's buffered channel
// is already a safe, efficient
// many-producers/one-consumer queue, so collapsing "N per-thread SPSC
// rings + an actor that multiplexes N receivers" down to "one ring" keeps
// the same delivery contract without re-deriving what the channel
// implementation already provides.
type ring struct {
	ch chan collectorCmd

	spillMu sync.Mutex
	spill   []collectorCmd
}

func newRing(capacity int) *ring {
	return &ring{ch: make(chan collectorCmd, capacity)}
}

// trySend delivers a non-critical message (SubmitSpans); if the ring is
// full, the message is dropped — acceptable because
// per-trace max_spans bounds the damage regardless.
func (r *ring) trySend(c collectorCmd) bool {
	r.drainSpill()
	select {
	case r.ch <- c:
		return true
	default:
		return false
	}
}

// forceSend delivers a critical control message (StartCollect, CommitCollect,
// DropCollect), guaranteeing eventual delivery via the spill buffer if the
// ring is momentarily full.
func (r *ring) forceSend(c collectorCmd) {
	r.drainSpill()
	select {
	case r.ch <- c:
		return
	default:
	}
	r.spillMu.Lock()
	r.spill = append(r.spill, c)
	r.spillMu.Unlock()
}

// drainSpill opportunistically moves spilled messages back into the ring.
// Called by senders before every send attempt, and by the actor itself on
// every dangling-sweep tick and before answering Flush or Stop, so a burst
// of force-sent messages doesn't sit in the spill slice indefinitely once
// the ring has room again.
func (r *ring) drainSpill() {
	r.spillMu.Lock()
	if len(r.spill) == 0 {
		r.spillMu.Unlock()
		return
	}
	pending := r.spill
	r.spill = nil
	r.spillMu.Unlock()

	var stillPending []collectorCmd
	for _, c := range pending {
		select {
		case r.ch <- c:
		default:
			stillPending = append(stillPending, c)
		}
	}
	if len(stillPending) > 0 {
		r.spillMu.Lock()
		r.spill = append(stillPending, r.spill...)
		r.spillMu.Unlock()
	}
}
