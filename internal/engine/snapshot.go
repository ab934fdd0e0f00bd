package engine

import (
	"context"

	core "github.com/arung-agamani/musicbox-core/internal/core"
)

// PlaylistsSnapshot implements hub.SnapshotProvider for the "playlists"
// room: the full index of known playlists.
func (e *Engine) PlaylistsSnapshot(ctx context.Context) (any, error) {
	playlists, err := e.Repository.ListPlaylists(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]map[string]any, 0, len(playlists))
	for _, p := range playlists {
		out = append(out, playlistSummary(p))
	}
	return map[string]any{"playlists": out}, nil
}

// PlaylistSnapshot implements hub.SnapshotProvider for a single playlist's
// detail room.
func (e *Engine) PlaylistSnapshot(ctx context.Context, playlistID string) (any, error) {
	p, err := e.Repository.FindPlaylistByID(ctx, playlistID)
	if err != nil {
		return nil, err
	}
	return playlistDetail(p), nil
}

// PlayerSnapshot implements hub.SnapshotProvider for the "player" room: the
// current playback status.
func (e *Engine) PlayerSnapshot(ctx context.Context) (any, error) {
	status, err := e.Coordinator.GetStatus(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"status":       string(status.Status),
		"playlist_id":  status.PlaylistID,
		"track_index":  status.TrackIndex,
		"track_number": status.TrackNumber,
		"position_ms":  status.PositionMs,
		"volume_pct":   status.VolumePct,
	}, nil
}

// NFCSnapshot implements hub.SnapshotProvider for the "nfc" room: every
// known association session plus hardware availability, the same payload
// shape as GetNFCStatus.
func (e *Engine) NFCSnapshot(ctx context.Context) (any, error) {
	status := e.NFC.Status()
	sessions := make([]map[string]any, 0, len(status.Sessions))
	for _, s := range status.Sessions {
		sessions = append(sessions, map[string]any{
			"session_id":           s.SessionID,
			"playlist_id":          s.PlaylistID,
			"state":                string(s.State),
			"timeout_seconds":      s.TimeoutSeconds,
			"detected_tag_uid":     s.DetectedTagUID,
			"conflict_playlist_id": s.ConflictPlaylistID,
			"error_message":        s.ErrorMessage,
		})
	}
	return map[string]any{
		"sessions":           sessions,
		"hardware_available": status.HardwareAvailable,
	}, nil
}

func playlistSummary(p *core.Playlist) map[string]any {
	tag := ""
	if p.NFCTagUID != nil {
		tag = *p.NFCTagUID
	}
	return map[string]any{
		"id":          p.ID,
		"title":       p.Title,
		"nfc_tag_uid": tag,
		"track_count": len(p.Tracks),
	}
}

func playlistDetail(p *core.Playlist) map[string]any {
	tracks := make([]map[string]any, 0, len(p.Tracks))
	for _, t := range p.Tracks {
		tracks = append(tracks, map[string]any{
			"id":           t.ID,
			"track_number": t.TrackNumber,
			"title":        t.Title,
			"file_path":    t.FilePath,
			"duration_ms":  t.DurationMs,
		})
	}
	summary := playlistSummary(p)
	summary["tracks"] = tracks
	return summary
}
