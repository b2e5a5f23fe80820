package biometrics

import (
	"sync"
)

// Buffer capacities and sampling limits for one tracking session.
const (
	moveBufferSize  = 100
	keyBufferSize   = 100
	clickBufferSize = 50

	// Pointer moves are sampled at most once per 100ms.
	moveThrottleMs = 100
)

type moveSample struct {
	x, y float64
	ts   int64
}

type clickSample struct {
	x, y     float64
	ts       int64
	onTarget bool
}

// ring is a fixed-capacity buffer that silently evicts the oldest entry once
// full.
type ring[T any] struct {
	buf  []T
	head int
	n    int
}

func newRing[T any](capacity int) *ring[T] {
	return &ring[T]{buf: make([]T, capacity)}
}

func (r *ring[T]) push(v T) {
	if r.n < len(r.buf) {
		r.buf[(r.head+r.n)%len(r.buf)] = v
		r.n++
		return
	}
	r.buf[r.head] = v
	r.head = (r.head + 1) % len(r.buf)
}

// snapshot returns the buffered entries oldest-first.
func (r *ring[T]) snapshot() []T {
	out := make([]T, r.n)
	for i := 0; i < r.n; i++ {
		out[i] = r.buf[(r.head+i)%len(r.buf)]
	}
	return out
}

// Tracker passively observes one session's input-event stream and reduces it
// into a Snapshot on demand. One Tracker per session; construct it, Start it,
// and Stop it from the same session owner. Event delivery and Analyze may race
// from different goroutines, so buffer mutations are mutex-guarded.
type Tracker struct {
	mu       sync.Mutex
	src      Source
	cancel   func()
	active   bool
	firstTS  int64 // timestamp of the first recorded event; session origin
	prevMove int64

	moves  *ring[moveSample]
	keys   *ring[int64]
	clicks *ring[clickSample]
}

// NewTracker creates a tracker fed by src. A nil src is allowed: the tracker
// simply never receives events and yields zero-count snapshots.
func NewTracker(src Source) *Tracker {
	return &Tracker{
		src:    src,
		moves:  newRing[moveSample](moveBufferSize),
		keys:   newRing[int64](keyBufferSize),
		clicks: newRing[clickSample](clickBufferSize),
	}
}

// Start subscribes to the event source and begins recording. Calling Start
// while already active is a no-op. A source that cannot be subscribed to is
// not fatal: the tracker stays active and later snapshots carry zero counts.
func (t *Tracker) Start() {
	t.mu.Lock()
	if t.active {
		t.mu.Unlock()
		return
	}
	t.active = true
	src := t.src
	t.mu.Unlock()

	if src == nil {
		return
	}
	// Subscribe outside the lock: sources may deliver events synchronously.
	cancel, err := src.Subscribe(t.record)
	if err != nil {
		return
	}

	t.mu.Lock()
	if !t.active {
		t.mu.Unlock()
		cancel()
		return
	}
	t.cancel = cancel
	t.mu.Unlock()
}

// record is the subscription callback. Events arriving while inactive are
// ignored.
func (t *Tracker) record(ev Event) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.active {
		return
	}
	if t.firstTS == 0 {
		t.firstTS = ev.Timestamp
	}

	switch ev.Kind {
	case KindPointerMove:
		if t.prevMove != 0 && ev.Timestamp-t.prevMove < moveThrottleMs {
			return
		}
		t.prevMove = ev.Timestamp
		t.moves.push(moveSample{x: ev.X, y: ev.Y, ts: ev.Timestamp})
	case KindKeyDown:
		if ev.Printable {
			t.keys.push(ev.Timestamp)
		}
	case KindClick:
		t.clicks.push(clickSample{x: ev.X, y: ev.Y, ts: ev.Timestamp, onTarget: ev.OnTarget})
	}
}

// Analyze reduces the current buffers into a Snapshot. It does not clear them
// and may be called repeatedly mid-session.
func (t *Tracker) Analyze() Snapshot {
	t.mu.Lock()
	moves := t.moves.snapshot()
	keys := t.keys.snapshot()
	clicks := t.clicks.snapshot()
	origin := t.firstTS
	t.mu.Unlock()

	return reduce(moves, keys, clicks, origin)
}

// Stop marks the tracker inactive, detaches it from the source, and returns
// the final snapshot. Events delivered after Stop are ignored.
func (t *Tracker) Stop() Snapshot {
	t.mu.Lock()
	t.active = false
	cancel := t.cancel
	t.cancel = nil
	t.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	return t.Analyze()
}

// Active reports whether the tracker is currently recording.
func (t *Tracker) Active() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active
}
