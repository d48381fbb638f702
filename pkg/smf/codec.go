package smf

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/kurenai-sound/smf/pkg/smf/vlq"
)

// decodeReader is satisfied by *bytes.Reader: a whole track chunk's content
// is read into memory up front (its length is known from the MTrk header),
// so event decoding never needs a streaming, push-back-capable reader of
// its own — bytes.Reader already provides ReadByte/UnreadByte/Len.
type decodeReader interface {
	io.ByteScanner
	Len() int
}

// decodeOneEvent decodes a single event from r, applying and updating
// running status per spec.md §4.2. currentStatus is 0 when no status byte
// has been established yet; channel events update it, meta/sysex events
// clear it (spec.md §9's resolution: non-channel events reset running
// status, the same rule the spec states explicitly for SysEx).
func decodeOneEvent(r decodeReader, currentStatus *byte, settings *ReadingSettings) (MidiEvent, error) {
	delta, err := vlq.Decode(r)
	if err != nil {
		return nil, newError(ErrKindMalformedVLQ, -1, -1, "delta-time: %v", err)
	}

	b, err := r.ReadByte()
	if err != nil {
		return nil, newError(ErrKindMalformedEvent, -1, -1, "expected status or data byte, got EOF")
	}

	var status byte
	if b < 0x80 {
		if *currentStatus == 0 {
			return nil, newError(ErrKindUnexpectedRunningStatus, -1, -1, "data byte %#x with no running status established", b)
		}
		status = *currentStatus
		if err := r.UnreadByte(); err != nil {
			return nil, wrapIoError(-1, -1, err)
		}
	} else {
		status = b
	}

	switch {
	case status >= 0x80 && status <= 0xEF:
		ev, err := decodeChannelEvent(r, status, delta)
		if err != nil {
			return nil, err
		}
		*currentStatus = status
		if settings != nil && settings.SilentNoteOnPolicy == SilentNoteOnAsNoteOff {
			ev = normalizeSilentNoteOn(ev).(ChannelEvent)
		}
		return ev, nil

	case status == sysExNormal:
		payload, err := readLengthPrefixed(r)
		if err != nil {
			return nil, err
		}
		*currentStatus = 0
		return &NormalSysExEvent{base: base{Delta: delta}, Payload: payload}, nil

	case status == sysExEscape:
		payload, err := readLengthPrefixed(r)
		if err != nil {
			return nil, err
		}
		*currentStatus = 0
		return &EscapeSysExEvent{base: base{Delta: delta}, Payload: payload}, nil

	case status == 0xFF:
		typeByte, err := r.ReadByte()
		if err != nil {
			return nil, newError(ErrKindMalformedEvent, -1, -1, "meta event: missing type byte")
		}
		payload, err := readLengthPrefixed(r)
		if err != nil {
			return nil, err
		}
		*currentStatus = 0
		return decodeMetaEvent(typeByte, payload, delta, settings)

	case status >= 0xF8 && status <= 0xFE:
		return nil, newError(ErrKindMalformedEvent, -1, -1, "system real-time byte %#x not expected in SMF payload", status)

	default:
		return nil, newError(ErrKindMalformedEvent, -1, -1, "unrecognized status byte %#x", status)
	}
}

// normalizeSilentNoteOn rewrites a Note-On with velocity 0 into a Note-Off,
// preserving channel, note, and delta-time; off-velocity defaults to 0.
func normalizeSilentNoteOn(ev MidiEvent) MidiEvent {
	on, ok := ev.(*NoteOnEvent)
	if !ok || on.Velocity != 0 {
		return ev
	}
	off := &NoteOffEvent{Note: on.Note, OffVelocity: 0}
	off.Delta = on.Delta
	off.Ch = on.Ch
	return off
}

func readLengthPrefixed(r decodeReader) ([]byte, error) {
	length, err := vlq.Decode(r)
	if err != nil {
		return nil, newError(ErrKindMalformedVLQ, -1, -1, "length prefix: %v", err)
	}
	if int(length) > r.Len() {
		return nil, newError(ErrKindMalformedEvent, -1, -1, "payload length %d exceeds remaining track bytes %d", length, r.Len())
	}
	buf := make([]byte, length)
	for i := range buf {
		b, err := r.ReadByte()
		if err != nil {
			return nil, newError(ErrKindMalformedEvent, -1, -1, "truncated payload: %v", err)
		}
		buf[i] = b
	}
	return buf, nil
}

func decodeChannelEvent(r decodeReader, status byte, delta uint32) (ChannelEvent, error) {
	nibble := status >> 4
	channel := status & 0x0F

	read := func() (byte, error) {
		b, err := r.ReadByte()
		if err != nil {
			return 0, newError(ErrKindMalformedEvent, -1, -1, "channel event %#x: truncated data", status)
		}
		return b, nil
	}

	switch nibble {
	case statusNoteOff:
		note, err := read()
		if err != nil {
			return nil, err
		}
		vel, err := read()
		if err != nil {
			return nil, err
		}
		e := &NoteOffEvent{Note: note, OffVelocity: vel}
		e.Delta, e.Ch = delta, channel
		return e, nil

	case statusNoteOn:
		note, err := read()
		if err != nil {
			return nil, err
		}
		vel, err := read()
		if err != nil {
			return nil, err
		}
		e := &NoteOnEvent{Note: note, Velocity: vel}
		e.Delta, e.Ch = delta, channel
		return e, nil

	case statusPolyPressure:
		note, err := read()
		if err != nil {
			return nil, err
		}
		pressure, err := read()
		if err != nil {
			return nil, err
		}
		e := &PolyphonicKeyPressureEvent{Note: note, Pressure: pressure}
		e.Delta, e.Ch = delta, channel
		return e, nil

	case statusControlChange:
		controller, err := read()
		if err != nil {
			return nil, err
		}
		value, err := read()
		if err != nil {
			return nil, err
		}
		e := &ControlChangeEvent{Controller: controller, Value: value}
		e.Delta, e.Ch = delta, channel
		return e, nil

	case statusProgramChange:
		program, err := read()
		if err != nil {
			return nil, err
		}
		e := &ProgramChangeEvent{Program: program}
		e.Delta, e.Ch = delta, channel
		return e, nil

	case statusChannelPressure:
		pressure, err := read()
		if err != nil {
			return nil, err
		}
		e := &ChannelPressureEvent{Pressure: pressure}
		e.Delta, e.Ch = delta, channel
		return e, nil

	case statusPitchBend:
		lsb, err := read()
		if err != nil {
			return nil, err
		}
		msb, err := read()
		if err != nil {
			return nil, err
		}
		e := &PitchBendEvent{Value: uint16(msb&0x7F)<<7 | uint16(lsb&0x7F)}
		e.Delta, e.Ch = delta, channel
		return e, nil

	default:
		return nil, newError(ErrKindMalformedEvent, -1, -1, "unrecognized channel status nibble %#x", nibble)
	}
}

// encodeChannelData returns the 1 or 2 data bytes following a channel
// event's status byte (the status byte itself is written by the caller,
// which decides whether running status suppresses it).
func encodeChannelData(e ChannelEvent) []byte {
	switch ev := e.(type) {
	case *NoteOnEvent:
		return []byte{ev.Note, ev.Velocity}
	case *NoteOffEvent:
		return []byte{ev.Note, ev.OffVelocity}
	case *PolyphonicKeyPressureEvent:
		return []byte{ev.Note, ev.Pressure}
	case *ControlChangeEvent:
		return []byte{ev.Controller, ev.Value}
	case *ProgramChangeEvent:
		return []byte{ev.Program}
	case *ChannelPressureEvent:
		return []byte{ev.Pressure}
	case *PitchBendEvent:
		return []byte{byte(ev.Value & 0x7F), byte((ev.Value >> 7) & 0x7F)}
	default:
		panic(fmt.Sprintf("smf: unhandled channel event type %T", e))
	}
}

// rawPayload is implemented (via promotion) by every text-bearing meta
// event variant, letting encodeMetaPayload treat all seven uniformly.
type rawPayload interface {
	RawText() []byte
}

func encodeMetaPayload(e MetaEvent) ([]byte, error) {
	if tp, ok := e.(rawPayload); ok {
		return tp.RawText(), nil
	}

	switch ev := e.(type) {
	case *SequenceNumberEvent:
		buf := make([]byte, 2)
		binary.BigEndian.PutUint16(buf, ev.Number)
		return buf, nil
	case *ChannelPrefixEvent:
		return []byte{ev.Channel}, nil
	case *PortPrefixEvent:
		return []byte{ev.Port}, nil
	case *EndOfTrackEvent:
		return []byte{}, nil
	case *SetTempoEvent:
		v := ev.MicrosecondsPerQuarter & 0x00FFFFFF
		return []byte{byte(v >> 16), byte(v >> 8), byte(v)}, nil
	case *SmpteOffsetEvent:
		return []byte{ev.Hour, ev.Minute, ev.Second, ev.Frame, ev.FractionalFrame}, nil
	case *TimeSignatureEvent:
		return []byte{ev.Numerator, ev.DenominatorPower, ev.ClocksPerClick, ev.ThirtySecondNotesPerBeat}, nil
	case *KeySignatureEvent:
		return []byte{byte(ev.Key), byte(ev.Scale)}, nil
	case *SequencerSpecificEvent:
		return ev.Payload, nil
	case *UnknownMetaEvent:
		return ev.Payload, nil
	case *CustomMetaEvent:
		return ev.Raw, nil
	default:
		return nil, fmt.Errorf("smf: unhandled meta event type %T", e)
	}
}

func encodeSysExPayload(e SysExEvent) []byte {
	switch ev := e.(type) {
	case *NormalSysExEvent:
		return ev.Payload
	case *EscapeSysExEvent:
		return ev.Payload
	default:
		panic(fmt.Sprintf("smf: unhandled sysex event type %T", e))
	}
}

// serializeEvent returns the full on-wire bytes for e: VLQ delta-time,
// then (for channel events) an optional status byte followed by data
// bytes, or (for meta/sysex events) an unconditional status/type-byte
// preamble followed by a VLQ length and payload.
//
// WriteEvent and SizeOfEvent both call this, which is what guarantees
// spec.md §8 invariant 3 (the size pass and the write pass agree) — they
// are, byte for byte, the same computation.
func serializeEvent(e MidiEvent, writeStatusByte bool) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(vlq.Encode(e.DeltaTime()))

	switch ev := e.(type) {
	case ChannelEvent:
		if writeStatusByte {
			buf.WriteByte(StatusByte(ev))
		}
		buf.Write(encodeChannelData(ev))

	case MetaEvent:
		buf.WriteByte(0xFF)
		buf.WriteByte(ev.metaTypeByte())
		payload, err := encodeMetaPayload(ev)
		if err != nil {
			return nil, err
		}
		buf.Write(vlq.Encode(uint32(len(payload))))
		buf.Write(payload)

	case SysExEvent:
		buf.WriteByte(ev.sysExStatusByte())
		payload := encodeSysExPayload(ev)
		buf.Write(vlq.Encode(uint32(len(payload))))
		buf.Write(payload)

	default:
		return nil, fmt.Errorf("smf: event %T implements neither ChannelEvent, MetaEvent, nor SysExEvent", e)
	}

	return buf.Bytes(), nil
}

// WriteEvent writes e to w, returning the number of bytes written.
func WriteEvent(w io.Writer, e MidiEvent, writeStatusByte bool) (int64, error) {
	bs, err := serializeEvent(e, writeStatusByte)
	if err != nil {
		return 0, err
	}
	n, err := w.Write(bs)
	if err != nil {
		return int64(n), wrapIoError(-1, -1, err)
	}
	return int64(n), nil
}

// SizeOfEvent returns the number of bytes WriteEvent would write for e,
// without writing anything.
func SizeOfEvent(e MidiEvent, writeStatusByte bool) (int64, error) {
	bs, err := serializeEvent(e, writeStatusByte)
	if err != nil {
		return 0, err
	}
	return int64(len(bs)), nil
}
