package repo

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	core "github.com/arung-agamani/musicbox-core/internal/core"
)

// InMemoryRepository is a mutex-guarded map of playlists with an optional
// JSON-file snapshot, the same shape as the teacher's playlist.Store: reads
// and writes are served from memory, and Save persists via a temp-file then
// os.Rename so a crash mid-write never leaves a corrupt or partial file.
//
// UpdatePlaylistNFC holds the single write lock across the
// lookup-for-conflict step and the binding step, which is what makes the
// operation atomic: no other goroutine can observe an intermediate state
// where a uid is bound to two playlists.
type InMemoryRepository struct {
	mu        sync.RWMutex
	playlists map[string]*core.Playlist
	byTag     map[string]string // uid -> playlist id

	// snapshotPath, when non-empty, is where Save persists a JSON snapshot.
	// Empty disables persistence (the default for tests).
	snapshotPath string
}

// NewInMemoryRepository constructs an empty repository. snapshotPath may be
// empty to disable on-disk persistence entirely.
func NewInMemoryRepository(snapshotPath string) *InMemoryRepository {
	return &InMemoryRepository{
		playlists:    make(map[string]*core.Playlist),
		byTag:        make(map[string]string),
		snapshotPath: snapshotPath,
	}
}

// Seed inserts a playlist directly, bypassing the conflict check — intended
// for test fixtures and initial load, not for use from the coordinator.
func (r *InMemoryRepository) Seed(p *core.Playlist) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.playlists[p.ID] = p
	if p.NFCTagUID != nil {
		r.byTag[*p.NFCTagUID] = p.ID
	}
}

func (r *InMemoryRepository) FindPlaylistByID(ctx context.Context, id string) (*core.Playlist, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.playlists[id]
	if !ok {
		return nil, core.NewError(core.ErrNotFound, "playlist "+id+" not found")
	}
	cp := clonePlaylist(p)
	return &cp, nil
}

func (r *InMemoryRepository) FindPlaylistByNFC(ctx context.Context, uid string) (*core.Playlist, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byTag[uid]
	if !ok {
		return nil, core.NewError(core.ErrNotFound, "no playlist bound to tag "+uid)
	}
	p := r.playlists[id]
	cp := clonePlaylist(p)
	return &cp, nil
}

func (r *InMemoryRepository) ListPlaylists(ctx context.Context) ([]*core.Playlist, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*core.Playlist, 0, len(r.playlists))
	for _, p := range r.playlists {
		cp := clonePlaylist(p)
		out = append(out, &cp)
	}
	return out, nil
}

func (r *InMemoryRepository) UpdatePlaylistNFC(ctx context.Context, playlistID string, uid *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.playlists[playlistID]
	if !ok {
		return core.NewError(core.ErrNotFound, "playlist "+playlistID+" not found")
	}

	if uid != nil {
		if existingID, bound := r.byTag[*uid]; bound && existingID != playlistID {
			return &core.CoreError{
				Kind:               core.ErrConflict,
				Message:            "tag " + *uid + " already bound to playlist " + existingID,
				ConflictPlaylistID: existingID,
			}
		}
	}

	if p.NFCTagUID != nil {
		delete(r.byTag, *p.NFCTagUID)
	}
	p.NFCTagUID = uid
	if uid != nil {
		r.byTag[*uid] = playlistID
	}

	if r.snapshotPath != "" {
		if err := r.saveLocked(); err != nil {
			return core.WrapError(core.ErrRepositoryError, "persisting nfc binding", err)
		}
	}
	return nil
}

// saveLocked writes the current playlist set to snapshotPath atomically.
// Caller must hold the write lock.
func (r *InMemoryRepository) saveLocked() error {
	dir := filepath.Dir(r.snapshotPath)
	tmp, err := os.CreateTemp(dir, ".repo-snapshot-*.json")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r.playlists); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), r.snapshotPath)
}

// Load reads a previously saved snapshot from snapshotPath, replacing the
// in-memory state. A missing file is not an error (fresh install).
func (r *InMemoryRepository) Load() error {
	if r.snapshotPath == "" {
		return nil
	}
	data, err := os.ReadFile(r.snapshotPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var playlists map[string]*core.Playlist
	if err := json.Unmarshal(data, &playlists); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.playlists = playlists
	r.byTag = make(map[string]string, len(playlists))
	for id, p := range playlists {
		if p.NFCTagUID != nil {
			r.byTag[*p.NFCTagUID] = id
		}
	}
	return nil
}

func clonePlaylist(p *core.Playlist) core.Playlist {
	cp := *p
	cp.Tracks = append([]core.Track(nil), p.Tracks...)
	if p.NFCTagUID != nil {
		uid := *p.NFCTagUID
		cp.NFCTagUID = &uid
	}
	return cp
}
