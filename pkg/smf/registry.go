package smf

import (
	"encoding/binary"

	"github.com/kurenai-sound/smf/pkg/logger"
)

// metaDecoderFunc parses a meta event's payload (and delta-time) into a
// concrete MidiEvent. Built-in decoders never fail on length mismatches in
// a way that aborts the whole track — they fill what's present and leave
// the rest at the constructor's value (zero, or the shipped default for
// SetTempo and TimeSignature), matching the general leniency of spec.md §6's reading
// policies; a genuinely unparseable payload (wrong type entirely) is the
// custom-registry's problem, not the built-in table's.
type metaDecoderFunc func(payload []byte) MidiEvent

// builtinMetaDecoders is the meta_type_byte → decoder table spec.md §9
// calls for (status-byte dispatch happens in decodeOneEvent). It is built once, at package init, and never
// mutated — the only user-extensible part of meta dispatch is
// ReadingSettings.CustomMetaEventTypes.
var builtinMetaDecoders = map[byte]metaDecoderFunc{
	metaSequenceNumber: func(p []byte) MidiEvent {
		e := newSequenceNumberEvent()
		if len(p) >= 2 {
			e.Number = binary.BigEndian.Uint16(p)
		}
		return e
	},
	metaText: func(p []byte) MidiEvent {
		e := newTextEvent()
		e.Payload = p
		return e
	},
	metaCopyright: func(p []byte) MidiEvent {
		e := newCopyrightEvent()
		e.Payload = p
		return e
	},
	metaTrackName: func(p []byte) MidiEvent {
		e := newTrackNameEvent()
		e.Payload = p
		return e
	},
	metaInstrumentName: func(p []byte) MidiEvent {
		e := newInstrumentNameEvent()
		e.Payload = p
		return e
	},
	metaLyric: func(p []byte) MidiEvent {
		e := newLyricEvent()
		e.Payload = p
		return e
	},
	metaMarker: func(p []byte) MidiEvent {
		e := newMarkerEvent()
		e.Payload = p
		return e
	},
	metaCuePoint: func(p []byte) MidiEvent {
		e := newCuePointEvent()
		e.Payload = p
		return e
	},
	metaChannelPrefix: func(p []byte) MidiEvent {
		e := newChannelPrefixEvent()
		if len(p) >= 1 {
			e.Channel = p[0]
		}
		return e
	},
	metaPortPrefix: func(p []byte) MidiEvent {
		e := newPortPrefixEvent()
		if len(p) >= 1 {
			e.Port = p[0]
		}
		return e
	},
	metaEndOfTrack: func(p []byte) MidiEvent {
		return newEndOfTrackEvent()
	},
	metaSetTempo: func(p []byte) MidiEvent {
		e := newSetTempoEvent()
		if len(p) >= 3 {
			e.MicrosecondsPerQuarter = uint32(p[0])<<16 | uint32(p[1])<<8 | uint32(p[2])
		}
		return e
	},
	metaSmpteOffset: func(p []byte) MidiEvent {
		e := newSmpteOffsetEvent()
		for i, dst := range []*uint8{&e.Hour, &e.Minute, &e.Second, &e.Frame, &e.FractionalFrame} {
			if i < len(p) {
				*dst = p[i]
			}
		}
		return e
	},
	metaTimeSignature: func(p []byte) MidiEvent {
		e := newTimeSignatureEvent()
		for i, dst := range []*uint8{&e.Numerator, &e.DenominatorPower, &e.ClocksPerClick, &e.ThirtySecondNotesPerBeat} {
			if i < len(p) {
				*dst = p[i]
			}
		}
		return e
	},
	metaKeySignature: func(p []byte) MidiEvent {
		e := newKeySignatureEvent()
		if len(p) >= 1 {
			e.Key = int8(p[0])
		}
		if len(p) >= 2 {
			e.Scale = KeyScale(p[1])
		}
		return e
	},
	metaSequencerSpecific: func(p []byte) MidiEvent {
		e := newSequencerSpecificEvent()
		e.Payload = p
		return e
	},
}

// CustomMetaEvent holds the result of a user-registered CustomMetaDecoder
// (spec.md §6's CustomMetaEventTypes), alongside the raw bytes so the
// writer can still round-trip it even if Parsed is nil.
type CustomMetaEvent struct {
	metaBase
	Parsed any
	Raw    []byte
}

func decodeMetaEvent(typeByte byte, payload []byte, delta uint32, settings *ReadingSettings) (MidiEvent, error) {
	if dec, ok := builtinMetaDecoders[typeByte]; ok {
		ev := dec(payload)
		ev.SetDeltaTime(delta)
		return ev, nil
	}

	if settings != nil && settings.CustomMetaEventTypes != nil {
		if custom, ok := settings.CustomMetaEventTypes[typeByte]; ok {
			parsed, err := custom(payload)
			if err == nil {
				e := &CustomMetaEvent{Parsed: parsed, Raw: payload}
				e.typeByte = typeByte
				e.Delta = delta
				return e, nil
			}
			// A malformed custom registrant is silently ignored (spec.md
			// §6) — fall through to the generic unknown-meta fallback
			// rather than aborting the whole track decode.
			logger.FellBackToUnknownMeta(-1, typeByte)
		}
	}

	e := newUnknownMetaEvent(typeByte)
	e.Payload = payload
	e.Delta = delta
	return e, nil
}
