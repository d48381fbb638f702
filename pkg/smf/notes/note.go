// Package notes implements the note pairing engine: reconstructing Note
// objects (Note-On/Note-Off pairs) from an interleaved timed-event stream,
// and note-level process/remove operations built on top of it.
package notes

import (
	"github.com/kurenai-sound/smf/pkg/smf"
)

// NoteID identifies a Note-On/Note-Off match candidate: the pair that must
// agree for a Note-Off to close a Note-On (spec.md §4.5).
type NoteID struct {
	Channel uint8
	Note    uint8
}

// Note is a reconstructed view over a matched Note-On/Note-Off pair. Notes
// are ephemeral: editing Time/Length mutates the underlying events, not
// some independent record (spec.md §3).
type Note struct {
	onEvent  *smf.NoteOnEvent
	offEvent *smf.NoteOffEvent

	// OnTimedEvent and OffTimedEvent are the originating timed events, kept
	// so callers (and the indexed variant) can recover track provenance.
	OnTimedEvent  smf.TimedEvent
	OffTimedEvent smf.TimedEvent

	// OnIndex and OffIndex are the originating track indices, used by the
	// indexed pairing variant (spec.md §4.5) to restore events to their
	// originating track after a bulk time mutation. Both are 0 for the
	// single-track variant.
	OnIndex  int
	OffIndex int
}

// Channel returns the note's channel (identical on both constituent events).
func (n *Note) Channel() uint8 { return n.onEvent.Channel() }

// NoteNumber returns the note's pitch (identical on both constituent events).
func (n *Note) NoteNumber() uint8 { return n.onEvent.Note }

// Velocity returns the onset (Note-On) velocity.
func (n *Note) Velocity() uint8 { return n.onEvent.Velocity }

// SetVelocity sets the onset velocity.
func (n *Note) SetVelocity(v uint8) { n.onEvent.Velocity = v }

// OffVelocity returns the release (Note-Off) velocity.
func (n *Note) OffVelocity() uint8 { return n.offEvent.OffVelocity }

// SetOffVelocity sets the release velocity.
func (n *Note) SetOffVelocity(v uint8) { n.offEvent.OffVelocity = v }

// Time returns the Note-On's absolute time.
func (n *Note) Time() int64 { return n.OnTimedEvent.AbsoluteTime }

// Length returns the distance, in ticks, from onset to release. Length is
// always non-negative (spec.md §3): a Note-Off can never precede the
// Note-On it closes, since pairing only ever matches a Note-Off against a
// Note-On already seen earlier in the stream.
func (n *Note) Length() int64 { return n.OffTimedEvent.AbsoluteTime - n.OnTimedEvent.AbsoluteTime }

// SetTime moves the note's onset to t, shifting the release by the same
// amount so Length is preserved, and mutates the underlying timed events.
// The track must be re-canonicalized (stable sort + delta-time recompute)
// after any call to SetTime/SetLength — see ProcessNotes in process.go.
func (n *Note) SetTime(t int64) {
	length := n.Length()
	n.OnTimedEvent.AbsoluteTime = t
	n.OffTimedEvent.AbsoluteTime = t + length
}

// SetLength changes the note's length, moving only the release.
func (n *Note) SetLength(length int64) {
	if length < 0 {
		length = 0
	}
	n.OffTimedEvent.AbsoluteTime = n.OnTimedEvent.AbsoluteTime + length
}

// NoteOnEvent returns the underlying Note-On event.
func (n *Note) NoteOnEvent() *smf.NoteOnEvent { return n.onEvent }

// NoteOffEvent returns the underlying Note-Off event.
func (n *Note) NoteOffEvent() *smf.NoteOffEvent { return n.offEvent }
