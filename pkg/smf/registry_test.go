package smf

import (
	"bytes"
	"errors"
	"testing"
)

// TestCustomMetaEventTypesDecodesRegisteredType covers spec.md §6: a meta
// type byte not reserved by the built-in table, with a registered decoder,
// comes back as a CustomMetaEvent carrying the parsed value.
func TestCustomMetaEventTypesDecodesRegisteredType(t *testing.T) {
	raw := []byte{0x00, 0xFF, 0x30, 0x02, 0x01, 0x02, 0x00, 0xFF, 0x2F, 0x00}

	settings := NewReadingSettings()
	settings.CustomMetaEventTypes = map[byte]CustomMetaDecoder{
		0x30: func(payload []byte) (any, error) {
			return append([]byte{}, payload...), nil
		},
	}

	tc, _, err := DecodeTrackChunk(raw, 0, settings)
	if err != nil {
		t.Fatalf("DecodeTrackChunk: %v", err)
	}
	if len(tc.Events) != 1 {
		t.Fatalf("got %d events, want 1", len(tc.Events))
	}
	custom, ok := tc.Events[0].(*CustomMetaEvent)
	if !ok {
		t.Fatalf("event = %T, want *CustomMetaEvent", tc.Events[0])
	}
	if custom.typeByte != 0x30 {
		t.Errorf("typeByte = %#x, want 0x30", custom.typeByte)
	}
	parsed, ok := custom.Parsed.([]byte)
	if !ok || !bytes.Equal(parsed, []byte{0x01, 0x02}) {
		t.Errorf("Parsed = %v, want [1 2]", custom.Parsed)
	}
}

// TestCustomMetaEventTypesFallsBackOnError covers spec.md §6: a registered
// decoder that errors never aborts the track decode — the event is kept as
// an UnknownMetaEvent instead.
func TestCustomMetaEventTypesFallsBackOnError(t *testing.T) {
	raw := []byte{0x00, 0xFF, 0x30, 0x01, 0x09, 0x00, 0xFF, 0x2F, 0x00}

	settings := NewReadingSettings()
	settings.CustomMetaEventTypes = map[byte]CustomMetaDecoder{
		0x30: func(payload []byte) (any, error) {
			return nil, errors.New("malformed payload")
		},
	}

	tc, _, err := DecodeTrackChunk(raw, 0, settings)
	if err != nil {
		t.Fatalf("DecodeTrackChunk: %v", err)
	}
	if len(tc.Events) != 1 {
		t.Fatalf("got %d events, want 1", len(tc.Events))
	}
	unknown, ok := tc.Events[0].(*UnknownMetaEvent)
	if !ok {
		t.Fatalf("event = %T, want *UnknownMetaEvent", tc.Events[0])
	}
	if unknown.typeByte != 0x30 {
		t.Errorf("typeByte = %#x, want 0x30", unknown.typeByte)
	}
}
