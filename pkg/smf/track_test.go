package smf

import (
	"bytes"
	"errors"
	"testing"
)

// TestRunningStatusWriteOmitsRepeatedStatusByte implements spec.md §8
// scenario S3: two consecutive NoteOn events on the same channel, encoded
// with UseRunningStatus, write the status byte only once.
func TestRunningStatusWriteOmitsRepeatedStatusByte(t *testing.T) {
	tc := &TrackChunk{Events: []MidiEvent{
		&NoteOnEvent{Note: 60, Velocity: 100},
		&NoteOnEvent{Note: 64, Velocity: 90},
	}}
	settings := &WritingSettings{Compression: UseRunningStatus}

	content, err := EncodeTrackChunk(tc, settings)
	if err != nil {
		t.Fatalf("EncodeTrackChunk: %v", err)
	}

	// delta(0) 0x90 note vel | delta(0) note vel [no status byte] | EndOfTrack
	want := []byte{0x00, 0x90, 60, 100, 0x00, 64, 90, 0x00, 0xFF, 0x2F, 0x00}
	if !bytes.Equal(content, want) {
		t.Errorf("content = % X, want % X", content, want)
	}
}

// TestDefaultTempoSuppressionLatch implements spec.md §8 scenario S4: a
// leading default SetTempo is dropped; a later non-default SetTempo is
// kept and turns the latch off permanently, so a third default-valued
// SetTempo after that is retained.
func TestDefaultTempoSuppressionLatch(t *testing.T) {
	tc := &TrackChunk{Events: []MidiEvent{
		&SetTempoEvent{MicrosecondsPerQuarter: DefaultTempo},
		&SetTempoEvent{MicrosecondsPerQuarter: 400000},
		&SetTempoEvent{MicrosecondsPerQuarter: DefaultTempo},
	}}
	settings := &WritingSettings{Compression: DeleteDefaultSetTempo}

	out := &TrackChunk{}
	content, err := EncodeTrackChunk(tc, settings)
	if err != nil {
		t.Fatalf("EncodeTrackChunk: %v", err)
	}
	decoded, _, err := DecodeTrackChunk(content, 0, NewReadingSettings())
	if err != nil {
		t.Fatalf("DecodeTrackChunk: %v", err)
	}
	out.Events = decoded.Events

	if len(out.Events) != 2 {
		t.Fatalf("got %d events, want 2 (leading default dropped, other two kept)", len(out.Events))
	}
	first, ok := out.Events[0].(*SetTempoEvent)
	if !ok || first.MicrosecondsPerQuarter != 400000 {
		t.Errorf("first surviving event = %+v, want SetTempo(400000)", out.Events[0])
	}
	second, ok := out.Events[1].(*SetTempoEvent)
	if !ok || !second.IsDefault() {
		t.Errorf("second surviving event = %+v, want default SetTempo (latch stayed off)", out.Events[1])
	}
}

// TestMissedEndOfTrackPolicy implements spec.md §8 scenario S6.
func TestMissedEndOfTrackPolicy(t *testing.T) {
	raw := []byte{0x00, 0x90, 60, 100} // no EndOfTrack

	if _, _, err := DecodeTrackChunk(raw, 0, NewReadingSettings()); err != nil {
		t.Fatalf("Ignore policy should succeed, got %v", err)
	}

	abortSettings := NewReadingSettings()
	abortSettings.MissedEndOfTrackPolicy = MissedEndOfTrackAbort
	_, _, err := DecodeTrackChunk(raw, 0, abortSettings)
	var serr *Error
	if !errors.As(err, &serr) || serr.Kind != ErrKindMissedEndOfTrack {
		t.Fatalf("err = %v, want ErrKindMissedEndOfTrack", err)
	}
}

// TestRoundTripByteExact implements spec.md §8 invariant 1: decoding with
// default policies and re-encoding with no compression reproduces the
// original bytes exactly.
func TestRoundTripByteExact(t *testing.T) {
	original := []byte{
		0x00, 0x90, 60, 100, // NoteOn
		0x60, 0x80, 60, 0, // NoteOff, explicit status byte (no running status)
		0x00, 0xFF, 0x51, 0x03, 0x07, 0xA1, 0x20, // SetTempo(500000)
		0x00, 0xFF, 0x2F, 0x00, // EndOfTrack
	}

	tc, consumed, err := DecodeTrackChunk(original, 0, NewReadingSettings())
	if err != nil {
		t.Fatalf("DecodeTrackChunk: %v", err)
	}
	if consumed != len(original) {
		t.Fatalf("consumed %d of %d bytes", consumed, len(original))
	}

	reencoded, err := EncodeTrackChunk(tc, NewWritingSettings())
	if err != nil {
		t.Fatalf("EncodeTrackChunk: %v", err)
	}
	if !bytes.Equal(reencoded, original) {
		t.Errorf("re-encoded = % X\nwant       = % X", reencoded, original)
	}
}

func TestInvalidChunkSizePolicy(t *testing.T) {
	tc := &TrackChunk{Events: []MidiEvent{&NoteOnEvent{Note: 60, Velocity: 100}}}
	content, err := EncodeTrackChunk(tc, NewWritingSettings())
	if err != nil {
		t.Fatalf("EncodeTrackChunk: %v", err)
	}

	// Declare one byte more than EndOfTrack actually consumes.
	padded := append(content, 0x00)
	declaredSize := uint32(len(padded))

	if _, err := ReadTrackChunk(bytes.NewReader(padded), declaredSize, 0, NewReadingSettings()); err != nil {
		t.Fatalf("Ignore policy should succeed despite the size mismatch, got %v", err)
	}

	abortSettings := NewReadingSettings()
	abortSettings.InvalidChunkSizePolicy = InvalidChunkSizeAbort
	_, err = ReadTrackChunk(bytes.NewReader(padded), declaredSize, 0, abortSettings)
	var serr *Error
	if !errors.As(err, &serr) || serr.Kind != ErrKindInvalidChunkSize {
		t.Fatalf("err = %v, want ErrKindInvalidChunkSize", err)
	}
}

func TestDeleteUnknownMetaEvents(t *testing.T) {
	tc := &TrackChunk{Events: []MidiEvent{
		&UnknownMetaEvent{Payload: []byte{0x01}},
		&NoteOnEvent{Note: 60, Velocity: 100},
	}}
	tc.Events[0].(*UnknownMetaEvent).typeByte = 0x10

	content, err := EncodeTrackChunk(tc, &WritingSettings{Compression: DeleteUnknownMetaEvents})
	if err != nil {
		t.Fatalf("EncodeTrackChunk: %v", err)
	}
	decoded, _, err := DecodeTrackChunk(content, 0, NewReadingSettings())
	if err != nil {
		t.Fatalf("DecodeTrackChunk: %v", err)
	}
	if len(decoded.Events) != 1 {
		t.Fatalf("got %d events, want 1 (unknown meta dropped)", len(decoded.Events))
	}
}
