package playlist_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	core "github.com/arung-agamani/musicbox-core/internal/core"
	"github.com/arung-agamani/musicbox-core/internal/core/playlist"
)

func threeTrackPlaylist() *core.Playlist {
	return &core.Playlist{
		ID:    "p1",
		Title: "Three Tracks",
		Tracks: []core.Track{
			{ID: "t1", TrackNumber: 1, Title: "one"},
			{ID: "t2", TrackNumber: 2, Title: "two"},
			{ID: "t3", TrackNumber: 3, Title: "three"},
		},
	}
}

func TestState_LoadAndCurrent(t *testing.T) {
	defer goleak.VerifyNone(t)
	s := playlist.New()
	s.Load(threeTrackPlaylist())

	_, track, idx, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, 0, idx)
	assert.Equal(t, "t1", track.ID)
}

func TestState_NextDoesNotWrapAtLastTrack(t *testing.T) {
	defer goleak.VerifyNone(t)
	s := playlist.New()
	s.Load(threeTrackPlaylist())

	_, err := s.Next()
	require.NoError(t, err)
	_, err = s.Next()
	require.NoError(t, err)
	assert.True(t, s.AtLastTrack())

	_, err = s.Next()
	assert.True(t, core.IsKind(err, core.ErrOutOfRange))

	_, _, idx, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, 2, idx, "cursor must not move past the last track")
}

func TestState_PreviousFailsAtFirstTrack(t *testing.T) {
	defer goleak.VerifyNone(t)
	s := playlist.New()
	s.Load(threeTrackPlaylist())

	_, err := s.Previous()
	assert.True(t, core.IsKind(err, core.ErrOutOfRange))
}

func TestState_GotoTrackLeavesCursorUnchangedOnFailure(t *testing.T) {
	defer goleak.VerifyNone(t)
	s := playlist.New()
	s.Load(threeTrackPlaylist())
	require.NoError(t, s.GotoTrack(2))

	err := s.GotoTrack(99)
	assert.True(t, core.IsKind(err, core.ErrOutOfRange))

	_, track, _, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, "t2", track.ID)
}

func TestState_ClearResetsToEmpty(t *testing.T) {
	defer goleak.VerifyNone(t)
	s := playlist.New()
	s.Load(threeTrackPlaylist())
	s.Clear()

	_, _, _, ok := s.Current()
	assert.False(t, ok)
	assert.False(t, s.AtLastTrack())
}

func TestState_EmptyPlaylistHasNoCurrentTrack(t *testing.T) {
	defer goleak.VerifyNone(t)
	s := playlist.New()
	s.Load(&core.Playlist{ID: "empty", Title: "Empty"})

	_, _, _, ok := s.Current()
	assert.False(t, ok)

	_, err := s.Next()
	assert.True(t, core.IsKind(err, core.ErrOutOfRange))
}
