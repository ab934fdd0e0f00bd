// Package nfc implements the NFC Association Service (component E):
// time-bounded association sessions that rebind a physical tag to a
// playlist, and the tag_detected routing between association and playback.
//
// Grounded on, and a deliberate correction of, the original Python
// NFCService (original_source/app/src/services/nfc_service.py), which
// tracks exactly one current_playlist_id/waiting_for_tag pair at a time.
// This implementation replaces that single mutable field with a session map
// so multiple playlists may independently await a scan, each with its own
// timeout, matching SPEC_FULL.md section 4.E.
package nfc

import (
	"sync"

	core "github.com/arung-agamani/musicbox-core/internal/core"
)

// sessionStore is a mutex-guarded map of association sessions, keyed by
// session ID. The NFC Association Service is the sole owner and mutator.
type sessionStore struct {
	mu       sync.Mutex
	sessions map[string]*core.Session
}

func newSessionStore() *sessionStore {
	return &sessionStore{sessions: make(map[string]*core.Session)}
}

// listeningForPlaylist reports whether a Listening session already exists
// for playlistID, enforcing the at-most-one-Listening-per-playlist
// invariant at StartSession time.
func (s *sessionStore) listeningForPlaylist(playlistID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sess := range s.sessions {
		if sess.PlaylistID == playlistID && sess.State == core.AssocListening {
			return true
		}
	}
	return false
}

func (s *sessionStore) put(sess *core.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.SessionID] = sess
}

func (s *sessionStore) get(sessionID string) (*core.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	return sess, ok
}

// oldestListening returns the longest-waiting Listening session, or nil if
// none is active. Used by onTagDetected to pick a single recipient when
// several playlists are simultaneously listening.
func (s *sessionStore) oldestListening() *core.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	var oldest *core.Session
	for _, sess := range s.sessions {
		if sess.State != core.AssocListening {
			continue
		}
		if oldest == nil || sess.StartedAt.Before(oldest.StartedAt) {
			oldest = sess
		}
	}
	return oldest
}

// transition applies fn to the session under lock, if it still exists.
func (s *sessionStore) transition(sessionID string, fn func(*core.Session)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[sessionID]; ok {
		fn(sess)
	}
}

// all returns a snapshot copy of every session, for GetNFCStatus and the
// timeout sweeper.
func (s *sessionStore) all() []*core.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*core.Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		cp := *sess
		out = append(out, &cp)
	}
	return out
}
