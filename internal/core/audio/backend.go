// Package audio declares the Audio Backend Interface (component A) and ships
// two implementations: an in-memory mock for tests and an exec-based backend
// adapted from the teacher's ffmpeg streaming encoder.
package audio

import "context"

// Backend is the set of capabilities the core consumes from an audio
// backend. Exactly one implementation is wired per process lifetime.
//
// Failures are returned as *core.CoreError values by the caller's wrapping
// layer (the coordinator); Backend implementations themselves return plain
// errors and let the coordinator classify them.
type Backend interface {
	// Play loads filePath and starts playback at startPositionMs.
	Play(ctx context.Context, filePath string, startPositionMs int64) error
	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
	// Stop halts playback. It never returns an error: a backend that cannot
	// stop cleanly is expected to force-kill its underlying resource.
	Stop(ctx context.Context) error
	Seek(ctx context.Context, positionMs int64) error
	// GetPosition reports the current playback position. ok is false when
	// the backend cannot determine position (e.g. nothing loaded).
	GetPosition() (ms int64, ok bool)
	GetDuration() (ms int64, ok bool)
	SetVolume(ctx context.Context, percent int) error
	// OnTrackEnded registers a callback invoked exactly once when the
	// currently loaded file completes naturally. Only one callback is ever
	// registered; a later call replaces the former.
	OnTrackEnded(callback func())
}
