package biometrics

// EventKind identifies the type of an input event.
type EventKind int

const (
	KindPointerMove EventKind = iota
	KindKeyDown
	KindClick
)

func (k EventKind) String() string {
	switch k {
	case KindPointerMove:
		return "pointer_move"
	case KindKeyDown:
		return "keydown"
	case KindClick:
		return "click"
	default:
		return "unknown"
	}
}

// Event is a single input event observed during a session.
// Timestamps are Unix milliseconds, supplied by the event source.
//
// For keydown events only Printable is carried - whether the key produced a
// visible character. The key value itself is never collected.
type Event struct {
	Kind      EventKind `json:"kind"`
	X         float64   `json:"x,omitempty"`
	Y         float64   `json:"y,omitempty"`
	Timestamp int64     `json:"timestamp"`
	Printable bool      `json:"printable,omitempty"`
	OnTarget  bool      `json:"on_target,omitempty"`
}

// Source delivers live input events to a subscriber. Implementations wrap
// whatever input surface the host provides (a browser bridge, a replayed
// capture, a synthetic generator). Subscribe returns a cancel function that
// detaches the subscriber; events may be delivered synchronously from inside
// Subscribe itself.
type Source interface {
	Subscribe(fn func(Event)) (cancel func(), err error)
}

// ReplaySource is a Source that synchronously replays a fixed event sequence
// to each subscriber. It is the plumbing for scoring previously captured
// sessions and for tests.
type ReplaySource struct {
	Events []Event
}

func (s *ReplaySource) Subscribe(fn func(Event)) (func(), error) {
	for _, ev := range s.Events {
		fn(ev)
	}
	return func() {}, nil
}
