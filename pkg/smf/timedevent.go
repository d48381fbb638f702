package smf

import "sort"

// TimedEvent pairs a MidiEvent with its absolute time, in ticks from the
// start of its track. For any contiguous sequence of TimedEvents,
// AbsoluteTime is non-decreasing (spec.md §3).
type TimedEvent struct {
	Event        MidiEvent
	AbsoluteTime int64
}

// ToTimedEvents runs the forward projection of spec.md §4.4: a running sum
// of delta-times yields each event's absolute time.
func ToTimedEvents(events []MidiEvent) []TimedEvent {
	out := make([]TimedEvent, len(events))
	var t int64
	for i, e := range events {
		t += int64(e.DeltaTime())
		out[i] = TimedEvent{Event: e, AbsoluteTime: t}
	}
	return out
}

// Canonicalize runs the inverse projection: stable-sort the timed events by
// absolute time, then recompute every event's delta-time as the difference
// from its predecessor's absolute time (predecessor of the first event is
// defined as time 0). This is the required step after any bulk operation
// that mutates absolute times directly (spec.md §4.4, §4.6) — stability is
// required so that two events originally at the same absolute time keep
// their relative order.
func Canonicalize(timed []TimedEvent) []MidiEvent {
	sorted := make([]TimedEvent, len(timed))
	copy(sorted, timed)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].AbsoluteTime < sorted[j].AbsoluteTime
	})

	out := make([]MidiEvent, len(sorted))
	var prev int64
	for i, te := range sorted {
		delta := te.AbsoluteTime - prev
		if delta < 0 {
			delta = 0
		}
		te.Event.SetDeltaTime(uint32(delta))
		out[i] = te.Event
		prev = te.AbsoluteTime
	}
	return out
}
