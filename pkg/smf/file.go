package smf

import (
	"encoding/binary"
	"io"

	"github.com/kurenai-sound/smf/pkg/logger"
)

// Format is the SMF header's format field.
type Format uint16

const (
	FormatSingleTrack  Format = 0
	FormatSimultaneous Format = 1
	FormatIndependent  Format = 2
)

// UnknownChunk preserves a chunk whose 4-byte identifier is neither "MThd"
// nor "MTrk", read under UnknownChunkIDReadAsUnknownChunk.
type UnknownChunk struct {
	ID      string
	Content []byte
}

// CustomChunk holds the result of a user-registered ReadingSettings.
// CustomChunkTypes decoder for a chunk whose identifier matched.
type CustomChunk struct {
	ID     string
	Parsed any
}

// File is the minimal SMF container needed to drive the track-chunk codec
// against real bytes: the header chunk plus track assembly. It does not
// grow into tempo maps or time conversion — those are out of scope
// (spec.md §1).
type File struct {
	Format   Format
	Division uint16
	Tracks   []*TrackChunk

	// UnknownChunks holds chunks read under UnknownChunkIDReadAsUnknownChunk,
	// in file order relative to each other (interleaving with tracks is not
	// preserved — this module has no use for chunk order beyond tracks).
	UnknownChunks []UnknownChunk

	// CustomChunks holds chunks decoded by a ReadingSettings.CustomChunkTypes
	// registrant, in file order relative to each other.
	CustomChunks []CustomChunk
}

// ReadFile decodes a complete SMF byte stream per the policies in
// settings (spec.md §6). A nil settings uses NewReadingSettings().
func ReadFile(r io.Reader, settings *ReadingSettings) (*File, error) {
	if settings == nil {
		settings = NewReadingSettings()
	}

	id, length, err := readChunkHeader(r)
	if err != nil {
		return nil, err
	}
	if id != "MThd" || length != 6 {
		return nil, &Error{Kind: ErrKindUnknownFileFormat, Message: "file does not begin with a valid MThd header", TrackIndex: -1, ByteOffset: 0}
	}

	headerContent := make([]byte, 6)
	if _, err := io.ReadFull(r, headerContent); err != nil {
		return nil, wrapIoError(-1, 8, err)
	}
	format := Format(binary.BigEndian.Uint16(headerContent[0:2]))
	declaredTracks := binary.BigEndian.Uint16(headerContent[2:4])
	division := binary.BigEndian.Uint16(headerContent[4:6])

	if format > FormatIndependent {
		if settings.UnknownFileFormatPolicy == UnknownFileFormatAbort {
			return nil, &Error{Kind: ErrKindUnknownFileFormat, Message: "unrecognized format field", TrackIndex: -1, ByteOffset: 8}
		}
		logger.IgnoredUnknownFileFormat(uint16(format))
	}

	f := &File{Format: format, Division: division}

	var totalMTrkSeen int
	for {
		id, length, err := readChunkHeader(r)
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, err
		}

		switch id {
		case "MTrk":
			totalMTrkSeen++
			if totalMTrkSeen > int(declaredTracks) && settings.ExtraTrackChunkPolicy == ExtraTrackChunkSkip {
				if err := skipChunk(r, length); err != nil {
					return nil, err
				}
				logger.SkippedExtraTrackChunk(totalMTrkSeen - 1)
				continue
			}
			tc, err := ReadTrackChunk(r, length, len(f.Tracks), settings)
			if err != nil {
				return nil, err
			}
			f.Tracks = append(f.Tracks, tc)

		default:
			if dec, ok := settings.CustomChunkTypes[id]; ok {
				content := make([]byte, length)
				if _, err := io.ReadFull(r, content); err != nil {
					return nil, wrapIoError(-1, -1, err)
				}
				parsed, err := dec(content)
				if err != nil {
					logger.FellBackToUnknownChunk(id)
					f.UnknownChunks = append(f.UnknownChunks, UnknownChunk{ID: id, Content: content})
					continue
				}
				f.CustomChunks = append(f.CustomChunks, CustomChunk{ID: id, Parsed: parsed})
				continue
			}

			switch settings.UnknownChunkIDPolicy {
			case UnknownChunkIDAbort:
				return nil, &Error{Kind: ErrKindUnknownChunkID, Message: "unrecognized chunk id " + id, TrackIndex: -1, ByteOffset: -1}
			case UnknownChunkIDSkip:
				if err := skipChunk(r, length); err != nil {
					return nil, err
				}
			default: // UnknownChunkIDReadAsUnknownChunk
				content := make([]byte, length)
				if _, err := io.ReadFull(r, content); err != nil {
					return nil, wrapIoError(-1, -1, err)
				}
				f.UnknownChunks = append(f.UnknownChunks, UnknownChunk{ID: id, Content: content})
			}
		}
	}

	if totalMTrkSeen != int(declaredTracks) {
		if settings.UnexpectedTrackChunksCountPolicy == UnexpectedTrackChunksCountAbort {
			return nil, &Error{
				Kind:       ErrKindUnexpectedTrackChunksCount,
				Message:    "declared track count disagrees with chunks encountered",
				TrackIndex: -1,
				ByteOffset: -1,
			}
		}
		logger.IgnoredUnexpectedTrackChunksCount(int(declaredTracks), totalMTrkSeen)
	}

	return f, nil
}

func readChunkHeader(r io.Reader) (id string, length uint32, err error) {
	var hdr [8]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		if err == io.EOF {
			return "", 0, io.EOF
		}
		return "", 0, wrapIoError(-1, -1, err)
	}
	return string(hdr[0:4]), binary.BigEndian.Uint32(hdr[4:8]), nil
}

func skipChunk(r io.Reader, length uint32) error {
	if sk, ok := r.(io.Seeker); ok {
		if _, err := sk.Seek(int64(length), io.SeekCurrent); err == nil {
			return nil
		}
	}
	if _, err := io.CopyN(io.Discard, r, int64(length)); err != nil {
		return wrapIoError(-1, -1, err)
	}
	return nil
}

// WriteFile writes f as a complete SMF byte stream.
func WriteFile(w io.Writer, f *File, settings *WritingSettings) (int64, error) {
	var written int64

	var hdr [14]byte
	copy(hdr[0:4], "MThd")
	binary.BigEndian.PutUint32(hdr[4:8], 6)
	binary.BigEndian.PutUint16(hdr[8:10], uint16(f.Format))
	binary.BigEndian.PutUint16(hdr[10:12], uint16(len(f.Tracks)))
	binary.BigEndian.PutUint16(hdr[12:14], f.Division)

	n, err := w.Write(hdr[:])
	written += int64(n)
	if err != nil {
		return written, wrapIoError(-1, -1, err)
	}

	for i, tc := range f.Tracks {
		n, err := WriteTrackChunk(w, tc, settings)
		written += n
		if err != nil {
			return written, attachPosition(err, i, -1)
		}
	}

	return written, nil
}
