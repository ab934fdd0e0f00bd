package coordinator

import (
	"context"

	core "github.com/arung-agamani/musicbox-core/internal/core"
)

// Play loads playlistID and starts playback, optionally at a specific
// 1-based trackNumber (default: the first track).
func (c *Coordinator) Play(ctx context.Context, playlistID string, trackNumber *int) (*core.PlayerStatus, error) {
	return c.submit(ctx, request{kind: cmdPlay, playlistID: playlistID, trackNumber: trackNumber})
}

// PlayByNFC resolves uid to a playlist via the repository's NFC-tag lookup
// and behaves as Play(playlist.ID, nil) on success.
func (c *Coordinator) PlayByNFC(ctx context.Context, uid string) (*core.PlayerStatus, error) {
	return c.submit(ctx, request{kind: cmdPlayByNFC, tagUID: uid})
}

// Control dispatches one of the simple transport actions.
func (c *Coordinator) Control(ctx context.Context, action core.ControlAction) (*core.PlayerStatus, error) {
	var kind commandKind
	switch action {
	case core.ActionPause:
		kind = cmdPause
	case core.ActionResume:
		kind = cmdResume
	case core.ActionStop:
		kind = cmdStop
	case core.ActionNext:
		kind = cmdNext
	case core.ActionPrevious:
		kind = cmdPrevious
	default:
		return nil, core.NewError(core.ErrInternal, "unknown control action "+string(action))
	}
	return c.submit(ctx, request{kind: kind})
}

// Seek moves the playback position of the currently loaded track.
func (c *Coordinator) Seek(ctx context.Context, positionMs int64) (*core.PlayerStatus, error) {
	return c.submit(ctx, request{kind: cmdSeek, positionMs: positionMs})
}

// SetVolume sets the output volume as a 0-100 percentage.
func (c *Coordinator) SetVolume(ctx context.Context, percent int) (*core.PlayerStatus, error) {
	return c.submit(ctx, request{kind: cmdSetVolume, volume: percent})
}

// GetStatus returns a snapshot of current playback state.
func (c *Coordinator) GetStatus(ctx context.Context) (*core.PlayerStatus, error) {
	return c.submit(ctx, request{kind: cmdGetStatus})
}
