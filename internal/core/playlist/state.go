// Package playlist implements the Playlist State Manager (component C): the
// in-memory current playlist, current track index, and cursor movement.
//
// Deliberately unlike the teacher's playlist.Playlist and playlist.MasterPlaylist,
// this type holds no mutex of its own. The spec assigns the Playback
// Coordinator (component D) as the sole caller, under its single-writer
// discipline; adding a second internal lock here would let a caller acquire
// two component locks at once, which the resource policy in SPEC_FULL.md
// section 5 forbids. All operations assume external serialization.
package playlist

import (
	"strconv"

	core "github.com/arung-agamani/musicbox-core/internal/core"
)

// State is the Playlist State Manager. Zero value is ready to use (no
// playlist loaded).
type State struct {
	current *core.Playlist
	index   int // zero-based index into current.Tracks
	loaded  bool
}

// New constructs an empty State.
func New() *State {
	return &State{}
}

// Load installs playlist as the current playlist, positioned at its first
// track. An empty playlist (no tracks) is accepted; Current then reports ok=false
// until a track exists.
func (s *State) Load(p *core.Playlist) {
	cp := *p
	cp.Tracks = append([]core.Track(nil), p.Tracks...)
	s.current = &cp
	s.index = 0
	s.loaded = true
}

// Clear discards the current playlist.
func (s *State) Clear() {
	s.current = nil
	s.index = 0
	s.loaded = false
}

// GotoTrack moves the cursor to the 1-based track number. Returns
// core.ErrOutOfRange if no track has that number, or if nothing is loaded.
// The cursor is left unchanged on failure.
func (s *State) GotoTrack(number int) error {
	if !s.loaded {
		return core.NewError(core.ErrOutOfRange, "no playlist loaded")
	}
	for i, t := range s.current.Tracks {
		if t.TrackNumber == number {
			s.index = i
			return nil
		}
	}
	return core.NewError(core.ErrOutOfRange, "no track numbered "+strconv.Itoa(number))
}

// Next advances the cursor by one. It does not wrap: at the last track it
// returns core.ErrOutOfRange and leaves the cursor unchanged. This is a
// deliberate divergence from the teacher's MasterPlaylist.Next(), which
// wraps via modulo — SPEC_FULL.md section 9 resolves the source's
// wrap-vs-stop ambiguity in favor of stopping.
func (s *State) Next() (core.Track, error) {
	if !s.loaded || len(s.current.Tracks) == 0 {
		return core.Track{}, core.NewError(core.ErrOutOfRange, "no playlist loaded")
	}
	if s.index+1 >= len(s.current.Tracks) {
		return core.Track{}, core.NewError(core.ErrOutOfRange, "already at last track")
	}
	s.index++
	return s.current.Tracks[s.index], nil
}

// Previous retreats the cursor by one, failing at the first track.
func (s *State) Previous() (core.Track, error) {
	if !s.loaded || len(s.current.Tracks) == 0 {
		return core.Track{}, core.NewError(core.ErrOutOfRange, "no playlist loaded")
	}
	if s.index == 0 {
		return core.Track{}, core.NewError(core.ErrOutOfRange, "already at first track")
	}
	s.index--
	return s.current.Tracks[s.index], nil
}

// Current returns the current playlist, track, and zero-based index. ok is
// false if nothing is loaded or the playlist has no tracks.
func (s *State) Current() (playlist *core.Playlist, track core.Track, index int, ok bool) {
	if !s.loaded || len(s.current.Tracks) == 0 {
		return nil, core.Track{}, 0, false
	}
	return s.current, s.current.Tracks[s.index], s.index, true
}

// AtLastTrack reports whether the cursor is on the final track of the
// current playlist.
func (s *State) AtLastTrack() bool {
	if !s.loaded || len(s.current.Tracks) == 0 {
		return false
	}
	return s.index == len(s.current.Tracks)-1
}
