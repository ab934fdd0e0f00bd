package nfc

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	core "github.com/arung-agamani/musicbox-core/internal/core"
	"github.com/arung-agamani/musicbox-core/internal/core/hardware"
	"github.com/arung-agamani/musicbox-core/internal/core/repo"
)

// Coordinator is the slice of the Playback Coordinator the NFC service
// depends on. Held as an interface so the service never references the
// coordinator's concrete type, breaking the cyclic reference the original
// source patched at runtime via set_nfc_service (SPEC_FULL.md section 9).
type Coordinator interface {
	PlayByNFC(ctx context.Context, uid string) (*core.PlayerStatus, error)
}

// Publisher is the slice of the Broadcast Hub the NFC service depends on.
type Publisher interface {
	Publish(eventType core.EventType, playlistID string, data any) core.Envelope
}

// Config bounds the service's background sweeper.
type Config struct {
	SweepInterval time.Duration
}

// DefaultConfig sweeps for timed-out sessions every two seconds, within the
// "every few seconds" bound SPEC_FULL.md section 4.E allows.
func DefaultConfig() Config {
	return Config{SweepInterval: 2 * time.Second}
}

// Service is the NFC Association Service (component E).
type Service struct {
	cfg         Config
	sessions    *sessionStore
	repository  repo.Repository
	coordinator Coordinator
	hub         Publisher
	reader      hardware.NFCReader
	log         *slog.Logger
	now         func() time.Time
}

// NewService constructs a Service and subscribes to reader's tag_detected
// callback immediately (not per-session), per SPEC_FULL.md section 4.E.
func NewService(cfg Config, repository repo.Repository, coordinator Coordinator, hub Publisher, reader hardware.NFCReader, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	s := &Service{
		cfg:         cfg,
		sessions:    newSessionStore(),
		repository:  repository,
		coordinator: coordinator,
		hub:         hub,
		reader:      reader,
		log:         log,
		now:         time.Now,
	}
	if reader != nil {
		reader.RegisterTagDetected(s.onTagDetected)
	}
	return s
}

// StartSession creates a Listening session for playlistID, rejecting with
// core.ErrNotFound if the repository does not know the playlist and with
// core.ErrAlreadyActive if another Listening session already targets the
// same playlist.
func (s *Service) StartSession(playlistID string, timeoutSeconds int) (core.SessionDescriptor, error) {
	if playlistID == "" {
		return core.SessionDescriptor{}, core.NewError(core.ErrNotFound, "playlist id required")
	}
	if _, err := s.repository.FindPlaylistByID(context.Background(), playlistID); err != nil {
		return core.SessionDescriptor{}, err
	}
	if s.sessions.listeningForPlaylist(playlistID) {
		return core.SessionDescriptor{}, core.NewError(core.ErrAlreadyActive, "playlist "+playlistID+" already has an active association session")
	}
	sess := &core.Session{
		SessionID:      uuid.NewString(),
		PlaylistID:     playlistID,
		State:          core.AssocListening,
		StartedAt:      s.now(),
		TimeoutSeconds: timeoutSeconds,
	}
	s.sessions.put(sess)
	return sess.Descriptor(), nil
}

// CancelSession transitions a Listening session to Cancelled. Cancelling a
// non-Listening (or unknown) session is a no-op per SPEC_FULL.md section 4.E,
// except an unknown session ID is reported as not_found.
func (s *Service) CancelSession(sessionID string) error {
	sess, ok := s.sessions.get(sessionID)
	if !ok {
		return core.NewError(core.ErrNotFound, "session "+sessionID+" not found")
	}
	if sess.State != core.AssocListening {
		return nil
	}
	s.sessions.transition(sessionID, func(sess *core.Session) {
		sess.State = core.AssocCancelled
	})
	s.hub.Publish(core.EventNFCCancelled, sess.PlaylistID, map[string]any{
		"session_id":  sessionID,
		"playlist_id": sess.PlaylistID,
	})
	return nil
}

// Status returns every known session plus hardware availability, for
// GetNFCStatus.
func (s *Service) Status() core.NFCStatus {
	sessions := s.sessions.all()
	descriptors := make([]core.SessionDescriptor, 0, len(sessions))
	for _, sess := range sessions {
		descriptors = append(descriptors, sess.Descriptor())
	}
	available := s.reader != nil && s.reader.Available()
	return core.NFCStatus{Sessions: descriptors, HardwareAvailable: available}
}

// onTagDetected implements SPEC_FULL.md section 4.E's tag_detected routing:
// if a session is Listening, it resolves the association; otherwise the
// scan is forwarded to the coordinator as ordinary NFC-triggered playback.
func (s *Service) onTagDetected(uid string) {
	target := s.sessions.oldestListening()
	if target == nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if _, err := s.coordinator.PlayByNFC(ctx, uid); err != nil {
			s.log.Info("nfc tag did not resolve to playback", "uid", uid, "error", err)
		}
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := s.repository.UpdatePlaylistNFC(ctx, target.PlaylistID, &uid)

	switch {
	case err == nil:
		s.sessions.transition(target.SessionID, func(sess *core.Session) {
			sess.State = core.AssocSuccess
			sess.DetectedTagUID = uid
		})
		s.hub.Publish(core.EventNFCAssociated, target.PlaylistID, map[string]any{
			"playlist_id": target.PlaylistID,
			"tag_uid":     uid,
			"session_id":  target.SessionID,
		})
	case core.IsKind(err, core.ErrConflict):
		conflictID := conflictPlaylistID(err)
		s.sessions.transition(target.SessionID, func(sess *core.Session) {
			sess.State = core.AssocDuplicate
			sess.ConflictPlaylistID = conflictID
		})
		s.hub.Publish(core.EventNFCDuplicate, target.PlaylistID, map[string]any{
			"playlist_id":          target.PlaylistID,
			"tag_uid":              uid,
			"session_id":           target.SessionID,
			"conflict_playlist_id": conflictID,
		})
	default:
		s.sessions.transition(target.SessionID, func(sess *core.Session) {
			sess.State = core.AssocError
			sess.ErrorMessage = err.Error()
		})
		s.hub.Publish(core.EventNFCError, target.PlaylistID, map[string]any{
			"playlist_id": target.PlaylistID,
			"session_id":  target.SessionID,
			"message":     err.Error(),
		})
	}
}

func conflictPlaylistID(err error) string {
	var ce *core.CoreError
	if !errors.As(err, &ce) {
		return ""
	}
	return ce.ConflictPlaylistID
}
