package coordinator

import (
	"context"

	core "github.com/arung-agamani/musicbox-core/internal/core"
)

func (c *Coordinator) handlePlay(ctx context.Context, playlistID string, trackNumber *int) (*core.PlayerStatus, error) {
	if err := c.requireStarted(); err != nil {
		return nil, err
	}

	pl, err := c.repository.FindPlaylistByID(ctx, playlistID)
	if err != nil {
		return nil, wrapRepositoryError(err)
	}

	if c.status.Status != core.StatusStopped {
		c.stopCurrentLocked(ctx)
	}

	c.state.Load(pl)
	if trackNumber != nil {
		if err := c.state.GotoTrack(*trackNumber); err != nil {
			c.state.Clear()
			return nil, err
		}
	}
	_, track, idx, ok := c.state.Current()
	if !ok {
		c.state.Clear()
		return nil, core.NewError(core.ErrOutOfRange, "playlist "+playlistID+" has no tracks")
	}

	bctx, cancel := c.backendCtx(ctx)
	defer cancel()
	if err := c.backend.Play(bctx, track.FilePath, 0); err != nil {
		c.state.Clear()
		c.publishPlayerError(core.ErrHardwareUnavailable, err.Error())
		return nil, core.WrapError(core.ErrHardwareUnavailable, "backend play failed", err)
	}

	c.status = core.PlayerStatus{
		Status:      core.StatusPlaying,
		PlaylistID:  pl.ID,
		TrackIndex:  idx,
		TrackNumber: track.TrackNumber,
		PositionMs:  0,
		VolumePct:   c.status.VolumePct,
	}
	c.lastPosSec = -1

	c.publish(core.EventPlayerState, pl.ID, statusData(c.status))
	c.publish(core.EventPlaylistStarted, pl.ID, map[string]any{"playlist_id": pl.ID})
	c.publish(core.EventTrackChanged, pl.ID, trackData(track, idx))

	snapshot := c.status
	return &snapshot, nil
}

func (c *Coordinator) handlePlayByNFC(ctx context.Context, uid string) (*core.PlayerStatus, error) {
	if err := c.requireStarted(); err != nil {
		return nil, err
	}
	pl, err := c.repository.FindPlaylistByNFC(ctx, uid)
	if err != nil {
		if !core.IsKind(err, core.ErrNotFound) {
			return nil, wrapRepositoryError(err)
		}
		return nil, core.NewError(core.ErrNotFound, "no playlist associated with tag "+uid)
	}
	return c.handlePlay(ctx, pl.ID, nil)
}

// stopCurrentLocked stops the backend and emits playlist_ended for the
// playlist that was playing. Caller must be the worker goroutine.
func (c *Coordinator) stopCurrentLocked(ctx context.Context) {
	bctx, cancel := c.backendCtx(ctx)
	defer cancel()
	_ = c.backend.Stop(bctx)
	prevPlaylist := c.status.PlaylistID
	c.publish(core.EventPlaylistEnded, prevPlaylist, map[string]any{"playlist_id": prevPlaylist})
}

func (c *Coordinator) handlePause(ctx context.Context) (*core.PlayerStatus, error) {
	if err := c.requireStarted(); err != nil {
		return nil, err
	}
	if c.status.Status != core.StatusPlaying {
		snapshot := c.status
		return &snapshot, nil
	}
	bctx, cancel := c.backendCtx(ctx)
	defer cancel()
	if err := c.backend.Pause(bctx); err != nil {
		c.publishPlayerError(core.ErrHardwareUnavailable, err.Error())
		return nil, core.WrapError(core.ErrHardwareUnavailable, "backend pause failed", err)
	}
	if pos, ok := c.backend.GetPosition(); ok {
		c.status.PositionMs = pos
	}
	c.status.Status = core.StatusPaused
	c.publish(core.EventPlayerState, c.status.PlaylistID, statusData(c.status))
	snapshot := c.status
	return &snapshot, nil
}

func (c *Coordinator) handleResume(ctx context.Context) (*core.PlayerStatus, error) {
	if err := c.requireStarted(); err != nil {
		return nil, err
	}
	if c.status.Status != core.StatusPaused {
		snapshot := c.status
		return &snapshot, nil
	}
	bctx, cancel := c.backendCtx(ctx)
	defer cancel()
	if err := c.backend.Resume(bctx); err != nil {
		c.publishPlayerError(core.ErrHardwareUnavailable, err.Error())
		return nil, core.WrapError(core.ErrHardwareUnavailable, "backend resume failed", err)
	}
	c.status.Status = core.StatusPlaying
	c.publish(core.EventPlayerState, c.status.PlaylistID, statusData(c.status))
	snapshot := c.status
	return &snapshot, nil
}

func (c *Coordinator) handleStop(ctx context.Context) (*core.PlayerStatus, error) {
	if err := c.requireStarted(); err != nil {
		return nil, err
	}
	if c.status.Status == core.StatusStopped {
		snapshot := c.status
		return &snapshot, nil
	}
	c.stopCurrentLocked(ctx)
	c.state.Clear()
	c.status = core.PlayerStatus{Status: core.StatusStopped, VolumePct: c.status.VolumePct}
	c.publish(core.EventPlayerState, "", statusData(c.status))
	snapshot := c.status
	return &snapshot, nil
}

// handleAdvance implements both the user-issued next() command and the
// internal on_track_ended reaction. Past the last track both stop playback
// and emit a single playlist_ended. They differ only when nothing is
// playing: next() reports out_of_range, on_track_ended is a no-op.
func (c *Coordinator) handleAdvance(ctx context.Context, fromTrackEnded bool) (*core.PlayerStatus, error) {
	if err := c.requireStarted(); err != nil {
		return nil, err
	}
	if c.status.Status == core.StatusStopped {
		if fromTrackEnded {
			snapshot := c.status
			return &snapshot, nil
		}
		return nil, core.NewError(core.ErrOutOfRange, "nothing is playing")
	}

	track, err := c.state.Next()
	if err != nil {
		// End of playlist: stop and emit playlist_ended, never track_changed.
		playlistID := c.status.PlaylistID
		bctx, cancel := c.backendCtx(ctx)
		_ = c.backend.Stop(bctx)
		cancel()
		c.state.Clear()
		c.status = core.PlayerStatus{Status: core.StatusStopped, VolumePct: c.status.VolumePct}
		c.publish(core.EventPlaylistEnded, playlistID, map[string]any{"playlist_id": playlistID})
		c.publish(core.EventPlayerState, "", statusData(c.status))
		snapshot := c.status
		return &snapshot, nil
	}

	bctx, cancel := c.backendCtx(ctx)
	playErr := c.backend.Play(bctx, track.FilePath, 0)
	cancel()
	if playErr != nil {
		c.publishPlayerError(core.ErrHardwareUnavailable, playErr.Error())
		return nil, core.WrapError(core.ErrHardwareUnavailable, "backend play failed", playErr)
	}

	_, _, idx, _ := c.state.Current()
	c.status.TrackIndex = idx
	c.status.TrackNumber = track.TrackNumber
	c.status.PositionMs = 0
	c.status.Status = core.StatusPlaying
	c.lastPosSec = -1
	c.publish(core.EventTrackChanged, c.status.PlaylistID, trackData(track, idx))
	snapshot := c.status
	return &snapshot, nil
}

func (c *Coordinator) handlePrevious(ctx context.Context) (*core.PlayerStatus, error) {
	if err := c.requireStarted(); err != nil {
		return nil, err
	}
	if c.status.Status == core.StatusStopped {
		return nil, core.NewError(core.ErrOutOfRange, "nothing is playing")
	}
	track, err := c.state.Previous()
	if err != nil {
		// Before the first track: stop, the same as next() past the last one.
		playlistID := c.status.PlaylistID
		bctx, cancel := c.backendCtx(ctx)
		_ = c.backend.Stop(bctx)
		cancel()
		c.state.Clear()
		c.status = core.PlayerStatus{Status: core.StatusStopped, VolumePct: c.status.VolumePct}
		c.publish(core.EventPlaylistEnded, playlistID, map[string]any{"playlist_id": playlistID})
		c.publish(core.EventPlayerState, "", statusData(c.status))
		snapshot := c.status
		return &snapshot, nil
	}
	bctx, cancel := c.backendCtx(ctx)
	playErr := c.backend.Play(bctx, track.FilePath, 0)
	cancel()
	if playErr != nil {
		c.publishPlayerError(core.ErrHardwareUnavailable, playErr.Error())
		return nil, core.WrapError(core.ErrHardwareUnavailable, "backend play failed", playErr)
	}
	_, _, idx, _ := c.state.Current()
	c.status.TrackIndex = idx
	c.status.TrackNumber = track.TrackNumber
	c.status.PositionMs = 0
	c.status.Status = core.StatusPlaying
	c.lastPosSec = -1
	c.publish(core.EventTrackChanged, c.status.PlaylistID, trackData(track, idx))
	snapshot := c.status
	return &snapshot, nil
}

func (c *Coordinator) handleSeek(ctx context.Context, positionMs int64) (*core.PlayerStatus, error) {
	if err := c.requireStarted(); err != nil {
		return nil, err
	}
	if c.status.Status == core.StatusStopped {
		return nil, core.NewError(core.ErrOutOfRange, "nothing is playing")
	}
	bctx, cancel := c.backendCtx(ctx)
	defer cancel()
	if err := c.backend.Seek(bctx, positionMs); err != nil {
		c.publishPlayerError(core.ErrHardwareUnavailable, err.Error())
		return nil, core.WrapError(core.ErrHardwareUnavailable, "backend seek failed", err)
	}
	c.status.PositionMs = positionMs
	c.lastPosSec = -1
	snapshot := c.status
	return &snapshot, nil
}

func (c *Coordinator) handleSetVolume(ctx context.Context, volume int) (*core.PlayerStatus, error) {
	if err := c.requireStarted(); err != nil {
		return nil, err
	}
	if volume < 0 || volume > 100 {
		return nil, core.NewError(core.ErrOutOfRange, "volume percent must be between 0 and 100")
	}
	bctx, cancel := c.backendCtx(ctx)
	defer cancel()
	if err := c.backend.SetVolume(bctx, volume); err != nil {
		c.publishPlayerError(core.ErrHardwareUnavailable, err.Error())
		return nil, core.WrapError(core.ErrHardwareUnavailable, "backend set volume failed", err)
	}
	c.status.VolumePct = volume
	c.publish(core.EventVolumeChanged, c.status.PlaylistID, map[string]any{"volume_pct": volume})
	snapshot := c.status
	return &snapshot, nil
}

func (c *Coordinator) handlePositionPoll() {
	if c.status.Status != core.StatusPlaying {
		return
	}
	pos, ok := c.backend.GetPosition()
	if !ok {
		return
	}
	c.status.PositionMs = pos
	sec := pos / 1000
	if sec != c.lastPosSec && c.posLimiter.Allow() {
		c.lastPosSec = sec
		c.publish(core.EventPositionChanged, c.status.PlaylistID, map[string]any{"position_ms": pos})
	}
}

func (c *Coordinator) publish(eventType core.EventType, playlistID string, data any) {
	if c.hub == nil {
		return
	}
	c.hub.Publish(eventType, playlistID, data)
}

func (c *Coordinator) publishPlayerError(kind core.ErrorKind, message string) {
	c.publish(core.EventPlayerError, c.status.PlaylistID, map[string]any{
		"kind":    string(kind),
		"message": message,
	})
}

func wrapRepositoryError(err error) error {
	if core.IsKind(err, core.ErrNotFound) {
		return err
	}
	return core.WrapError(core.ErrRepositoryError, "repository lookup failed", err)
}

func statusData(s core.PlayerStatus) map[string]any {
	return map[string]any{
		"status":       string(s.Status),
		"playlist_id":  s.PlaylistID,
		"track_index":  s.TrackIndex,
		"track_number": s.TrackNumber,
		"position_ms":  s.PositionMs,
		"volume_pct":   s.VolumePct,
	}
}

func trackData(t core.Track, index int) map[string]any {
	return map[string]any{
		"track_id":     t.ID,
		"track_number": t.TrackNumber,
		"track_index":  index,
		"title":        t.Title,
		"file_path":    t.FilePath,
		"duration_ms":  t.DurationMs,
	}
}
