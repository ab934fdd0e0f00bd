// Package repo declares the Repository Interface (component B) and ships an
// in-memory implementation with an atomic JSON snapshot, grounded on the
// teacher's playlist.Store persistence idiom.
package repo

import (
	"context"

	core "github.com/arung-agamani/musicbox-core/internal/core"
)

// Repository is the persistence boundary the core consumes. It never
// exposes raw storage errors: failures are wrapped as *core.CoreError with
// kind core.ErrRepositoryError, core.ErrNotFound, or core.ErrConflict.
type Repository interface {
	FindPlaylistByID(ctx context.Context, id string) (*core.Playlist, error)
	FindPlaylistByNFC(ctx context.Context, uid string) (*core.Playlist, error)
	// UpdatePlaylistNFC rebinds playlistID's NFC tag to uid (nil clears the
	// binding). Must be atomic: no observer may ever see uid bound to two
	// playlists simultaneously.
	UpdatePlaylistNFC(ctx context.Context, playlistID string, uid *string) error
	// ListPlaylists returns every known playlist. Not named in the
	// distilled spec's component B, but required to serve the Broadcast
	// Hub's "state:playlists" snapshot (SPEC_FULL.md section 4.F) — without
	// it the index room could never produce a snapshot.
	ListPlaylists(ctx context.Context) ([]*core.Playlist, error)
}
