package notes

import (
	"container/list"

	"github.com/kurenai-sound/smf/pkg/smf"
)

// ResidualEvent is a timed event that passed through the pairing engine
// without becoming part of a Note — either a non-note event, or an orphan
// Note-Off with no open match (spec.md §4.5, invariant 7).
type ResidualEvent struct {
	TimedEvent smf.TimedEvent
	TrackIndex int
}

// Item is one element of a Pairer's output sequence: exactly one of Note or
// Residual is meaningful, distinguished by IsNote.
type Item struct {
	Note     *Note
	Residual ResidualEvent
}

// IsNote reports whether this item is a matched note rather than a
// residual event.
func (it Item) IsNote() bool { return it.Note != nil }

// pendingNote is a descriptor for an open (and possibly now-completed)
// Note-On, linked into a Pairer's pending list.
type pendingNote struct {
	id       NoteID
	onEvent  *smf.NoteOnEvent
	onTimed  smf.TimedEvent
	onIndex  int
	complete bool
	offEvent *smf.NoteOffEvent
	offTimed smf.TimedEvent
	offIndex int
}

// pendingResidual is a descriptor for a non-note event (or orphan
// Note-Off) buffered because it arrived while earlier notes were still
// unresolved, linked into a Pairer's pending list alongside pendingNotes.
type pendingResidual struct {
	te         smf.TimedEvent
	trackIndex int
}

// Pairer reconstructs an ordered Note/residual sequence from a stream of
// timed events (spec.md §4.5). It is the streaming, O(n)-amortized
// algorithm described there: a doubly-linked descriptor list (container/list,
// for O(1) interior removal — spec.md §9 explicitly rules out a slice,
// which would make removal O(n^2)) holding both note descriptors and
// residual-event descriptors in arrival order, plus a per-NoteId LIFO stack
// of handles into that list for matching.
//
// Feed each timed event in stream order, then call Flush once to drain any
// notes/events still buffered at end of stream.
type Pairer struct {
	pending *list.List
	stacks  map[NoteID][]*list.Element
	output  []Item
}

// NewPairer returns an empty Pairer ready to consume a single logical
// stream of timed events (one track, or several tracks merged by the
// caller while preserving each event's own track index).
func NewPairer() *Pairer {
	return &Pairer{
		pending: list.New(),
		stacks:  make(map[NoteID][]*list.Element),
	}
}

// Feed consumes one timed event originating from track trackIndex (0 for a
// single-track caller), appending to the Pairer's output sequence as items
// complete. Events must be fed in their stream's original order.
func (p *Pairer) Feed(te smf.TimedEvent, trackIndex int) {
	switch ev := te.Event.(type) {
	case *smf.NoteOnEvent:
		id := NoteID{Channel: ev.Channel(), Note: ev.Note}
		pn := &pendingNote{id: id, onEvent: ev, onTimed: te, onIndex: trackIndex}
		elem := p.pending.PushBack(pn)
		p.stacks[id] = append(p.stacks[id], elem)

	case *smf.NoteOffEvent:
		id := NoteID{Channel: ev.Channel(), Note: ev.Note}
		stack := p.stacks[id]
		if len(stack) == 0 {
			// Orphan release: no open Note-On for this NoteId. Unlike other
			// non-note events it is always appended to pending, even when
			// pending is empty; it is emitted by a later head drain that
			// reaches it, or by Flush.
			p.pending.PushBack(&pendingResidual{te: te, trackIndex: trackIndex})
			return
		}

		top := len(stack) - 1
		elem := stack[top]
		p.stacks[id] = stack[:top]
		if len(p.stacks[id]) == 0 {
			delete(p.stacks, id)
		}

		pn := elem.Value.(*pendingNote)
		pn.complete = true
		pn.offEvent = ev
		pn.offTimed = te
		pn.offIndex = trackIndex

		if elem == p.pending.Front() {
			p.drainHead()
		}

	default:
		if p.pending.Len() == 0 {
			p.emitResidual(te, trackIndex)
			return
		}
		p.pending.PushBack(&pendingResidual{te: te, trackIndex: trackIndex})
	}
}

// drainHead emits every consecutive completed/residual descriptor starting
// at the head of pending, stopping at the first still-open Note-On — the
// drain described in spec.md §4.5.
func (p *Pairer) drainHead() {
	for {
		front := p.pending.Front()
		if front == nil {
			return
		}
		if pn, ok := front.Value.(*pendingNote); ok && !pn.complete {
			return
		}
		p.pending.Remove(front)
		switch v := front.Value.(type) {
		case *pendingNote:
			p.emitNote(v)
		case *pendingResidual:
			p.emitResidual(v.te, v.trackIndex)
		}
	}
}

func (p *Pairer) emitNote(pn *pendingNote) {
	p.output = append(p.output, Item{Note: &Note{
		onEvent:       pn.onEvent,
		offEvent:      pn.offEvent,
		OnTimedEvent:  pn.onTimed,
		OffTimedEvent: pn.offTimed,
		OnIndex:       pn.onIndex,
		OffIndex:      pn.offIndex,
	}})
}

func (p *Pairer) emitResidual(te smf.TimedEvent, trackIndex int) {
	p.output = append(p.output, Item{Residual: ResidualEvent{TimedEvent: te, TrackIndex: trackIndex}})
}

// Flush drains whatever remains buffered at end of stream: completed notes
// emit as Notes, still-open Note-Ons emit as bare residual events (their
// own timed event), and buffered residuals emit as residuals — all in
// their original pending order (spec.md §4.5). Flush returns the complete
// output sequence accumulated over the Pairer's lifetime; call it exactly
// once, after the last Feed.
func (p *Pairer) Flush() []Item {
	for e := p.pending.Front(); e != nil; e = e.Next() {
		switch v := e.Value.(type) {
		case *pendingNote:
			if v.complete {
				p.emitNote(v)
			} else {
				p.emitResidual(v.onTimed, v.onIndex)
			}
		case *pendingResidual:
			p.emitResidual(v.te, v.trackIndex)
		}
	}
	p.pending.Init()
	p.stacks = make(map[NoteID][]*list.Element)
	return p.output
}

// Pair runs a Pairer over a single track's already-projected timed events
// and returns the complete ordered Note/residual sequence.
func Pair(timed []smf.TimedEvent) []Item {
	p := NewPairer()
	for _, te := range timed {
		p.Feed(te, 0)
	}
	return p.Flush()
}

// PairIndexed runs pairing across multiple tracks merged by absolute time,
// preserving each event's originating track index — the indexed variant
// spec.md §4.5 calls for so a bulk note-time edit can restore events to
// their source tracks. Tracks are merged by a stable merge on AbsoluteTime
// so that, as in a single track, ties keep their original per-track order.
func PairIndexed(tracksTimed [][]smf.TimedEvent) []Item {
	type cursor struct {
		events []smf.TimedEvent
		pos    int
		track  int
	}
	cursors := make([]*cursor, 0, len(tracksTimed))
	for i, events := range tracksTimed {
		if len(events) > 0 {
			cursors = append(cursors, &cursor{events: events, track: i})
		}
	}

	p := NewPairer()
	for len(cursors) > 0 {
		best := 0
		for i := 1; i < len(cursors); i++ {
			if cursors[i].events[cursors[i].pos].AbsoluteTime < cursors[best].events[cursors[best].pos].AbsoluteTime {
				best = i
			}
		}
		c := cursors[best]
		p.Feed(c.events[c.pos], c.track)
		c.pos++
		if c.pos >= len(c.events) {
			cursors = append(cursors[:best], cursors[best+1:]...)
		}
	}

	return p.Flush()
}

// Notes extracts just the matched notes from an Item sequence, in order.
func Notes(items []Item) []*Note {
	out := make([]*Note, 0, len(items))
	for _, it := range items {
		if it.IsNote() {
			out = append(out, it.Note)
		}
	}
	return out
}

// Residuals extracts just the residual events from an Item sequence, in
// order.
func Residuals(items []Item) []ResidualEvent {
	var out []ResidualEvent
	for _, it := range items {
		if !it.IsNote() {
			out = append(out, it.Residual)
		}
	}
	return out
}
