package smf

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/kurenai-sound/smf/pkg/logger"
)

// TrackChunk is an ordered sequence of events. On disk it is terminated by
// exactly one EndOfTrack meta event; in memory that terminator is never
// stored — the event list is always implicitly EndOfTrack-terminated
// (spec.md §3).
type TrackChunk struct {
	Events []MidiEvent
}

// DecodeTrackChunk decodes a track chunk's raw content (the bytes between
// the MTrk length field and the end of the declared chunk size), stopping
// at the first EndOfTrack or when content is exhausted, whichever comes
// first (spec.md §4.3). It returns the number of bytes actually consumed,
// which may be less than len(content) if EndOfTrack left trailing bytes
// unread.
func DecodeTrackChunk(content []byte, trackIndex int, settings *ReadingSettings) (*TrackChunk, int, error) {
	if settings == nil {
		settings = NewReadingSettings()
	}

	r := bytes.NewReader(content)
	var currentStatus byte
	var events []MidiEvent
	sawEndOfTrack := false

	for r.Len() > 0 {
		offset := int64(len(content) - r.Len())
		ev, err := decodeOneEvent(r, &currentStatus, settings)
		if err != nil {
			return nil, 0, attachPosition(err, trackIndex, offset)
		}
		if _, ok := ev.(*EndOfTrackEvent); ok {
			sawEndOfTrack = true
			break
		}
		events = append(events, ev)
	}

	consumed := len(content) - r.Len()

	if !sawEndOfTrack {
		if settings.MissedEndOfTrackPolicy == MissedEndOfTrackAbort {
			return nil, 0, &Error{
				Kind:       ErrKindMissedEndOfTrack,
				Message:    "track content exhausted without an EndOfTrack event",
				TrackIndex: trackIndex,
				ByteOffset: int64(consumed),
			}
		}
		logger.IgnoredMissingEndOfTrack(trackIndex)
	}

	return &TrackChunk{Events: events}, consumed, nil
}

func attachPosition(err error, trackIndex int, offset int64) error {
	if serr, ok := err.(*Error); ok {
		if serr.TrackIndex < 0 {
			serr.TrackIndex = trackIndex
		}
		if serr.ByteOffset < 0 {
			serr.ByteOffset = offset
		}
		return serr
	}
	return err
}

// ReadTrackChunk reads exactly declaredSize bytes from r as a track
// chunk's content, decodes it, and applies InvalidChunkSizePolicy if
// EndOfTrack left trailing bytes within the declared size unconsumed.
func ReadTrackChunk(r io.Reader, declaredSize uint32, trackIndex int, settings *ReadingSettings) (*TrackChunk, error) {
	if settings == nil {
		settings = NewReadingSettings()
	}

	content := make([]byte, declaredSize)
	if _, err := io.ReadFull(r, content); err != nil {
		return nil, wrapIoError(trackIndex, -1, err)
	}

	tc, consumed, err := DecodeTrackChunk(content, trackIndex, settings)
	if err != nil {
		return nil, err
	}

	if consumed != len(content) {
		if settings.InvalidChunkSizePolicy == InvalidChunkSizeAbort {
			return nil, &Error{
				Kind:       ErrKindInvalidChunkSize,
				Message:    "declared chunk size disagrees with bytes consumed",
				TrackIndex: trackIndex,
				ByteOffset: int64(consumed),
			}
		}
		logger.IgnoredInvalidChunkSize(trackIndex, len(content), consumed)
	}

	return tc, nil
}

// traverseForEncoding walks events (plus a synthetic trailing EndOfTrack)
// applying the compression filters and default-suppression skip latches of
// spec.md §4.3, invoking emit with the event to serialize and whether its
// status byte (for channel events) should be written. The three latches and
// running_status are local to this one traversal — no state survives
// across calls (spec.md §5).
func traverseForEncoding(events []MidiEvent, settings *WritingSettings, emit func(ev MidiEvent, writeStatusByte bool) error) error {
	if settings == nil {
		settings = NewWritingSettings()
	}
	comp := settings.Compression

	var runningStatus byte
	skipSetTempo := true
	skipKeySignature := true
	skipTimeSignature := true

	process := func(ev MidiEvent) error {
		if comp.Has(DeleteUnknownMetaEvents) {
			if ume, ok := ev.(*UnknownMetaEvent); ok {
				logger.DroppedUnknownMeta(-1, ume.typeByte)
				return nil
			}
		}

		if comp.Has(NoteOffAsSilentNoteOn) {
			if off, ok := ev.(*NoteOffEvent); ok {
				on := &NoteOnEvent{Note: off.Note, Velocity: 0}
				on.Delta, on.Ch = off.Delta, off.Ch
				ev = on
			}
		}

		switch e := ev.(type) {
		case *SetTempoEvent:
			if skipSetTempo {
				if comp.Has(DeleteDefaultSetTempo) && e.IsDefault() {
					logger.SuppressedDefaultTempo(-1)
					return nil
				}
				skipSetTempo = false
			}
		case *KeySignatureEvent:
			if skipKeySignature {
				if comp.Has(DeleteDefaultKeySignature) && e.IsDefault() {
					logger.SuppressedDefaultKeySignature(-1)
					return nil
				}
				skipKeySignature = false
			}
		case *TimeSignatureEvent:
			if skipTimeSignature {
				if comp.Has(DeleteDefaultTimeSignature) && e.IsDefault() {
					logger.SuppressedDefaultTimeSignature(-1)
					return nil
				}
				skipTimeSignature = false
			}
		}

		writeStatusByte := true
		if ce, ok := ev.(ChannelEvent); ok {
			newStatus := StatusByte(ce)
			if comp.Has(UseRunningStatus) && runningStatus != 0 && runningStatus == newStatus {
				writeStatusByte = false
			}
			runningStatus = newStatus
		} else {
			runningStatus = 0
		}

		return emit(ev, writeStatusByte)
	}

	for _, ev := range events {
		if err := process(ev); err != nil {
			return err
		}
	}
	return process(newEndOfTrackEvent())
}

// EncodeTrackChunk returns the on-wire content bytes of tc (not including
// the "MTrk" identifier or length field).
func EncodeTrackChunk(tc *TrackChunk, settings *WritingSettings) ([]byte, error) {
	var buf bytes.Buffer
	err := traverseForEncoding(tc.Events, settings, func(ev MidiEvent, writeStatusByte bool) error {
		bs, err := serializeEvent(ev, writeStatusByte)
		if err != nil {
			return err
		}
		buf.Write(bs)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// SizeOfTrackChunk returns len(EncodeTrackChunk(tc, settings)) without
// producing the bytes (spec.md §8, invariant 3).
func SizeOfTrackChunk(tc *TrackChunk, settings *WritingSettings) (int64, error) {
	var total int64
	err := traverseForEncoding(tc.Events, settings, func(ev MidiEvent, writeStatusByte bool) error {
		n, err := SizeOfEvent(ev, writeStatusByte)
		if err != nil {
			return err
		}
		total += n
		return nil
	})
	return total, err
}

// WriteTrackChunk writes tc as a complete "MTrk" chunk: identifier,
// big-endian length, then content.
func WriteTrackChunk(w io.Writer, tc *TrackChunk, settings *WritingSettings) (int64, error) {
	content, err := EncodeTrackChunk(tc, settings)
	if err != nil {
		return 0, err
	}

	var written int64
	n, err := w.Write([]byte("MTrk"))
	written += int64(n)
	if err != nil {
		return written, wrapIoError(-1, -1, err)
	}

	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(content)))
	n, err = w.Write(lenBuf[:])
	written += int64(n)
	if err != nil {
		return written, wrapIoError(-1, -1, err)
	}

	n, err = w.Write(content)
	written += int64(n)
	if err != nil {
		return written, wrapIoError(-1, -1, err)
	}

	return written, nil
}
