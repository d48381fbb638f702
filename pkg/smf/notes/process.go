package notes

import (
	"github.com/kurenai-sound/smf/pkg/smf"
)

// ProcessNotes runs the pairing engine over tc's events and invokes action
// once per reconstructed Note, in pairing order (spec.md §4.6). action may
// mutate the Note's Time/Length freely (and any other Note field).
//
// If any Note's time or length changed, ProcessNotes re-canonicalizes the
// track: every event belonging to a processed note or passed through as a
// residual is stable-sorted by absolute time and delta-times are
// recomputed (spec.md §4.4), and tc.Events is replaced with the result.
// If nothing changed, tc.Events is left untouched — in particular its
// original delta-time encoding survives byte-for-byte.
func ProcessNotes(tc *smf.TrackChunk, action func(*Note)) {
	timed := smf.ToTimedEvents(tc.Events)
	items := Pair(timed)

	var timesChanged, lengthsChanged bool
	for _, it := range items {
		if !it.IsNote() {
			continue
		}
		n := it.Note
		beforeTime, beforeLength := n.Time(), n.Length()
		action(n)
		if n.Time() != beforeTime {
			timesChanged = true
		}
		if n.Length() != beforeLength {
			lengthsChanged = true
		}
	}

	if !timesChanged && !lengthsChanged {
		return
	}

	var rebuilt []smf.TimedEvent
	for _, it := range items {
		if it.IsNote() {
			rebuilt = append(rebuilt, it.Note.OnTimedEvent, it.Note.OffTimedEvent)
		} else {
			rebuilt = append(rebuilt, it.Residual.TimedEvent)
		}
	}

	tc.Events = smf.Canonicalize(rebuilt)
}

// sentinel tags the events belonging to one matched note, for RemoveNotes
// to find again via RemoveTimedEvents without re-running pairing or risking
// a NoteId collision with an event it didn't actually tag.
type sentinel struct{}

// RemoveNotes removes every note from tc for which match returns true,
// along with their underlying Note-On and Note-Off events, and returns the
// count removed (spec.md §4.6). Residual events, and notes for which match
// returns false, are left untouched in their original order.
func RemoveNotes(tc *smf.TrackChunk, match func(*Note) bool) int {
	timed := smf.ToTimedEvents(tc.Events)
	items := Pair(timed)

	tagged := make(map[smf.MidiEvent]*sentinel)
	var removed int
	for _, it := range items {
		if !it.IsNote() {
			continue
		}
		if match(it.Note) {
			s := &sentinel{}
			tagged[it.Note.OnTimedEvent.Event] = s
			tagged[it.Note.OffTimedEvent.Event] = s
			removed++
		}
	}

	RemoveTimedEvents(tc, func(ev smf.MidiEvent) bool {
		_, ok := tagged[ev]
		return ok
	})

	return removed
}

// RemoveTimedEvents removes every event from tc for which match returns
// true, preserving the relative order of the survivors and recomputing
// delta-times so the result remains a valid, canonical event list. match is
// evaluated exactly once per event (spec.md §4.6).
func RemoveTimedEvents(tc *smf.TrackChunk, match func(smf.MidiEvent) bool) {
	timed := smf.ToTimedEvents(tc.Events)
	kept := make([]smf.TimedEvent, 0, len(timed))
	for _, te := range timed {
		if !match(te.Event) {
			kept = append(kept, te)
		}
	}
	tc.Events = smf.Canonicalize(kept)
}
