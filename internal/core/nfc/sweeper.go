package nfc

import (
	"context"
	"time"

	core "github.com/arung-agamani/musicbox-core/internal/core"
)

// Run drives the timeout sweeper on a fixed ticker until ctx is cancelled,
// grounded on the teacher's playlist.Scheduler ticker-loop idiom (check()
// immediately, then on every tick thereafter until ctx.Done()).
func (s *Service) Run(ctx context.Context) error {
	interval := s.cfg.SweepInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	s.sweep()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.sweep()
		}
	}
}

// sweep transitions every Listening session whose deadline has passed to
// Timeout and emits nfc_timeout for each.
func (s *Service) sweep() {
	now := s.now()
	for _, sess := range s.sessions.all() {
		if sess.State != core.AssocListening {
			continue
		}
		deadline := sess.StartedAt.Add(time.Duration(sess.TimeoutSeconds) * time.Second)
		if now.Before(deadline) {
			continue
		}
		id := sess.SessionID
		playlistID := sess.PlaylistID
		s.sessions.transition(id, func(sess *core.Session) {
			if sess.State == core.AssocListening {
				sess.State = core.AssocTimeout
			}
		})
		s.hub.Publish(core.EventNFCTimeout, playlistID, map[string]any{
			"session_id":  id,
			"playlist_id": playlistID,
		})
	}
}
