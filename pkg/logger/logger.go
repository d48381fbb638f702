// Package logger provides a small slog wrapper shared by the smf codec
// packages for structured diagnostic output.
package logger

import (
	"fmt"
	"log/slog"
	"os"
)

var globalLogger *slog.Logger

// InitLogger configures the package-level logger for the given level
// ("debug", "info", "warn", "error"). Callers that don't need diagnostics
// can skip this entirely; GetLogger falls back to slog.Default().
func InitLogger(level string) error {
	var slogLevel slog.Level

	switch level {
	case "debug":
		slogLevel = slog.LevelDebug
	case "info":
		slogLevel = slog.LevelInfo
	case "warn":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	default:
		return fmt.Errorf("invalid log level: %s", level)
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slogLevel,
	})

	globalLogger = slog.New(handler)
	slog.SetDefault(globalLogger)

	return nil
}

// GetLogger returns the package-level logger, defaulting to slog.Default()
// when InitLogger has not been called.
func GetLogger() *slog.Logger {
	if globalLogger == nil {
		return slog.Default()
	}
	return globalLogger
}

// The helpers below name the specific decode/encode decisions the codec
// logs at Debug: choices that are silent per policy but operationally
// interesting. trackIndex of -1 means the caller had no track index to
// report (the track encoder and the meta-event registry always pass -1).

// DroppedUnknownMeta logs a meta event discarded by DeleteUnknownMetaEvents.
func DroppedUnknownMeta(trackIndex int, typeByte byte) {
	GetLogger().Debug("dropped unknown meta event", "track", trackIndex, "type", typeByte)
}

// SuppressedDefaultTempo logs a default-valued SetTempo dropped by
// DeleteDefaultSetTempo before its skip latch turned off.
func SuppressedDefaultTempo(trackIndex int) {
	GetLogger().Debug("suppressed default tempo event", "track", trackIndex)
}

// SuppressedDefaultKeySignature logs a default-valued KeySignature dropped
// by DeleteDefaultKeySignature before its skip latch turned off.
func SuppressedDefaultKeySignature(trackIndex int) {
	GetLogger().Debug("suppressed default key signature event", "track", trackIndex)
}

// SuppressedDefaultTimeSignature logs a default-valued TimeSignature
// dropped by DeleteDefaultTimeSignature before its skip latch turned off.
func SuppressedDefaultTimeSignature(trackIndex int) {
	GetLogger().Debug("suppressed default time signature event", "track", trackIndex)
}

// SkippedExtraTrackChunk logs an MTrk chunk beyond the header's declared
// track count, dropped by ExtraTrackChunkSkip.
func SkippedExtraTrackChunk(index int) {
	GetLogger().Debug("skipped extra track chunk", "index", index)
}

// IgnoredMissingEndOfTrack logs a track whose content was exhausted
// without an EndOfTrack event, tolerated by MissedEndOfTrackIgnore.
func IgnoredMissingEndOfTrack(trackIndex int) {
	GetLogger().Debug("missed end-of-track ignored", "track", trackIndex)
}

// IgnoredInvalidChunkSize logs a track chunk whose declared size disagreed
// with the bytes actually consumed, tolerated by InvalidChunkSizeIgnore.
func IgnoredInvalidChunkSize(trackIndex, declared, consumed int) {
	GetLogger().Debug("invalid chunk size ignored", "track", trackIndex, "declared", declared, "consumed", consumed)
}

// FellBackToUnknownMeta logs a registered CustomMetaDecoder that returned
// an error; the event is kept as an UnknownMetaEvent instead of aborting
// the track decode.
func FellBackToUnknownMeta(trackIndex int, typeByte byte) {
	GetLogger().Debug("custom meta decoder failed, falling back to unknown meta event", "track", trackIndex, "type", typeByte)
}

// FellBackToUnknownChunk logs a registered CustomChunkTypes decoder that
// returned an error; the chunk is kept as an UnknownChunk instead of
// aborting the file decode.
func FellBackToUnknownChunk(id string) {
	GetLogger().Debug("custom chunk decoder failed, falling back to raw chunk", "id", id)
}

// The two helpers below recover from a file-format discrepancy without
// failing outright, so they log at Warn rather than Debug.

// IgnoredUnknownFileFormat logs a header format field outside 0..2,
// tolerated by UnknownFileFormatIgnore.
func IgnoredUnknownFileFormat(format uint16) {
	GetLogger().Warn("unknown file format ignored", "format", format)
}

// IgnoredUnexpectedTrackChunksCount logs a header track count that
// disagreed with the MTrk chunks actually encountered, tolerated by
// UnexpectedTrackChunksCountIgnore.
func IgnoredUnexpectedTrackChunksCount(declared, encountered int) {
	GetLogger().Warn("unexpected track chunk count ignored", "declared", declared, "encountered", encountered)
}
