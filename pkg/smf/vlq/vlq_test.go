package vlq

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

func TestEncode(t *testing.T) {
	tests := []struct {
		name string
		in   uint32
		want []byte
	}{
		{"zero", 0, []byte{0x00}},
		{"max single byte", 0x7F, []byte{0x7F}},
		{"smallest two byte", 0x80, []byte{0x81, 0x00}},
		{"mid range", 0x3FFF, []byte{0xFF, 0x7F}},
		{"three byte boundary", 0x4000, []byte{0x81, 0x80, 0x00}},
		{"max value", MaxValue, []byte{0xFF, 0xFF, 0xFF, 0x7F}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Encode(tt.in)
			if !bytes.Equal(got, tt.want) {
				t.Errorf("Encode(%#x) = %#v, want %#v", tt.in, got, tt.want)
			}
		})
	}
}

func TestEncodePanicsAboveMax(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for value above MaxValue")
		}
	}()
	Encode(MaxValue + 1)
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want uint32
	}{
		{"zero", []byte{0x00}, 0},
		{"max single byte", []byte{0x7F}, 0x7F},
		{"smallest two byte", []byte{0x81, 0x00}, 0x80},
		{"mid range", []byte{0xFF, 0x7F}, 0x3FFF},
		{"max value", []byte{0xFF, 0xFF, 0xFF, 0x7F}, MaxValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(bytes.NewReader(tt.in))
			if err != nil {
				t.Fatalf("Decode(%#v) returned error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("Decode(%#v) = %#x, want %#x", tt.in, got, tt.want)
			}
		})
	}
}

func TestDecodeOverrun(t *testing.T) {
	_, err := Decode(bytes.NewReader([]byte{0xFF, 0xFF, 0xFF, 0xFF, 0x7F}))
	if !errors.Is(err, ErrMalformed) {
		t.Errorf("expected ErrMalformed, got %v", err)
	}
}

func TestDecodeTruncated(t *testing.T) {
	_, err := Decode(bytes.NewReader([]byte{0xFF, 0xFF}))
	if !errors.Is(err, ErrMalformed) {
		t.Errorf("expected ErrMalformed, got %v", err)
	}
}

func TestDecodeEmpty(t *testing.T) {
	_, err := Decode(bytes.NewReader(nil))
	if !errors.Is(err, io.EOF) && !errors.Is(err, ErrMalformed) {
		t.Errorf("expected EOF-derived ErrMalformed, got %v", err)
	}
}

func TestRoundTrip(t *testing.T) {
	values := []uint32{0, 1, 0x7F, 0x80, 0x3FFF, 0x4000, 0x1FFFFF, 0x200000, MaxValue}
	for _, v := range values {
		encoded := Encode(v)
		decoded, err := Decode(bytes.NewReader(encoded))
		if err != nil {
			t.Fatalf("Decode(Encode(%#x)) returned error: %v", v, err)
		}
		if decoded != v {
			t.Errorf("Decode(Encode(%#x)) = %#x", v, decoded)
		}
	}
}
