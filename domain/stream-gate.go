package domain

import (
	"sync"

	"github.com/gammazero/deque"
)

// RawMessage is an undecoded stream frame held with its arrival order.
type RawMessage struct {
	Payload []byte
	Seq     uint64
}

// StreamGate serializes asynchronous stream delivery against the
// synchronous order-submission window. While a submission is in flight
// the gate is held and every arriving frame is parked in a FIFO buffer;
// on release the backlog is replayed in arrival order before any live
// frame is dispatched.
//
// The gate counts overlapping holders. A plain boolean here loses the
// lock when two submissions overlap, so Lock/Unlock pair up and the
// stream only resumes once every holder has released.
type StreamGate struct {
	mu       sync.Mutex
	holds    int
	draining bool
	seq      uint64
	buffer   deque.Deque[RawMessage]

	dispatch func(RawMessage) error
	diag     DiagnosticSink
}

func NewStreamGate(dispatch func(RawMessage) error, diag DiagnosticSink) *StreamGate {
	return &StreamGate{dispatch: dispatch, diag: diag}
}

// Lock holds the gate. Stream frames arriving until the matching
// Unlock are buffered instead of dispatched.
func (g *StreamGate) Lock() {
	g.mu.Lock()
	g.holds++
	g.mu.Unlock()
}

// Unlock releases one hold. When the last hold drops, the buffered
// backlog is drained synchronously in strict arrival order; frames
// arriving mid-drain queue up behind the backlog and keep their
// relative order. A handler error for one buffered frame is reported
// as a diagnostic and the drain continues with the next frame.
func (g *StreamGate) Unlock() {
	g.mu.Lock()
	if g.holds > 0 {
		g.holds--
	}
	if g.holds > 0 || g.draining {
		g.mu.Unlock()
		return
	}
	g.draining = true

	for g.buffer.Len() > 0 {
		msg := g.buffer.PopFront()
		g.mu.Unlock()

		if err := g.dispatch(msg); err != nil {
			g.diag.Errorf("stream.drain", "handler failed for buffered message seq=%d: %s", msg.Seq, err)
		}

		g.mu.Lock()
		// A re-lock during the drain takes over the remaining backlog.
		if g.holds > 0 {
			break
		}
	}

	g.draining = false
	g.mu.Unlock()
}

// Deliver accepts one raw stream frame. Unless the gate is held (or a
// drain is in flight) the frame is dispatched immediately on the
// caller's goroutine.
func (g *StreamGate) Deliver(payload []byte) {
	g.mu.Lock()
	g.seq++
	msg := RawMessage{Payload: payload, Seq: g.seq}

	if g.holds > 0 || g.draining {
		g.buffer.PushBack(msg)
		g.mu.Unlock()
		return
	}
	g.mu.Unlock()

	if err := g.dispatch(msg); err != nil {
		g.diag.Errorf("stream.dispatch", "handler failed for message seq=%d: %s", msg.Seq, err)
	}
}

// Buffered reports the current backlog length.
func (g *StreamGate) Buffered() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.buffer.Len()
}

// Held reports whether at least one submission currently holds the gate.
func (g *StreamGate) Held() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.holds > 0
}
