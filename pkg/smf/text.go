package smf

import (
	"golang.org/x/text/encoding/charmap"
)

// decodeLatin1 converts raw meta-event text bytes (conventionally Latin-1
// per SMF practice) into a UTF-8 Go string. Decoding never fails: every
// byte value is a valid Latin-1 code point.
func decodeLatin1(raw []byte) string {
	out, err := charmap.ISO8859_1.NewDecoder().String(string(raw))
	if err != nil {
		// charmap.ISO8859_1 has no invalid encodings to decode; this path
		// is unreachable in practice, but return the raw bytes rather than
		// an empty string if it is ever hit.
		return string(raw)
	}
	return out
}

// encodeLatin1 converts a UTF-8 Go string to Latin-1 bytes for storage in a
// text-bearing meta event's payload.
func encodeLatin1(s string) ([]byte, error) {
	out, err := charmap.ISO8859_1.NewEncoder().String(s)
	if err != nil {
		return nil, err
	}
	return []byte(out), nil
}
