package repo_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	core "github.com/arung-agamani/musicbox-core/internal/core"
	"github.com/arung-agamani/musicbox-core/internal/core/repo"
)

func seedPlaylist(id, title string) *core.Playlist {
	return &core.Playlist{
		ID:    id,
		Title: title,
		Tracks: []core.Track{
			{ID: id + "-t1", TrackNumber: 1, Title: "one", FilePath: "/music/" + id + "/1.mp3"},
		},
	}
}

func TestInMemoryRepository_FindByID(t *testing.T) {
	defer goleak.VerifyNone(t)
	r := repo.NewInMemoryRepository("")
	r.Seed(seedPlaylist("p1", "First"))

	got, err := r.FindPlaylistByID(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "First", got.Title)

	_, err = r.FindPlaylistByID(context.Background(), "missing")
	assert.True(t, core.IsKind(err, core.ErrNotFound))
}

func TestInMemoryRepository_UpdatePlaylistNFC_ConflictReportsExistingID(t *testing.T) {
	defer goleak.VerifyNone(t)
	r := repo.NewInMemoryRepository("")
	r.Seed(seedPlaylist("p1", "First"))
	r.Seed(seedPlaylist("p2", "Second"))

	uid := "uid-abc"
	require.NoError(t, r.UpdatePlaylistNFC(context.Background(), "p1", &uid))

	err := r.UpdatePlaylistNFC(context.Background(), "p2", &uid)
	require.Error(t, err)
	assert.True(t, core.IsKind(err, core.ErrConflict))

	var ce *core.CoreError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "p1", ce.ConflictPlaylistID)
}

func TestInMemoryRepository_UpdatePlaylistNFC_RebindingSameTagToSamePlaylistSucceeds(t *testing.T) {
	defer goleak.VerifyNone(t)
	r := repo.NewInMemoryRepository("")
	r.Seed(seedPlaylist("p1", "First"))

	uid := "uid-abc"
	require.NoError(t, r.UpdatePlaylistNFC(context.Background(), "p1", &uid))
	require.NoError(t, r.UpdatePlaylistNFC(context.Background(), "p1", &uid))

	found, err := r.FindPlaylistByNFC(context.Background(), uid)
	require.NoError(t, err)
	assert.Equal(t, "p1", found.ID)
}

func TestInMemoryRepository_UpdatePlaylistNFC_ClearingFreesTheTag(t *testing.T) {
	defer goleak.VerifyNone(t)
	r := repo.NewInMemoryRepository("")
	r.Seed(seedPlaylist("p1", "First"))
	r.Seed(seedPlaylist("p2", "Second"))

	uid := "uid-abc"
	require.NoError(t, r.UpdatePlaylistNFC(context.Background(), "p1", &uid))
	require.NoError(t, r.UpdatePlaylistNFC(context.Background(), "p1", nil))
	require.NoError(t, r.UpdatePlaylistNFC(context.Background(), "p2", &uid))

	found, err := r.FindPlaylistByNFC(context.Background(), uid)
	require.NoError(t, err)
	assert.Equal(t, "p2", found.ID)
}

func TestInMemoryRepository_ListPlaylists(t *testing.T) {
	defer goleak.VerifyNone(t)
	r := repo.NewInMemoryRepository("")
	r.Seed(seedPlaylist("p1", "First"))
	r.Seed(seedPlaylist("p2", "Second"))

	all, err := r.ListPlaylists(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestInMemoryRepository_SaveAndLoadRoundTrip(t *testing.T) {
	defer goleak.VerifyNone(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "snapshot.json")

	r := repo.NewInMemoryRepository(path)
	r.Seed(seedPlaylist("p1", "First"))
	uid := "uid-abc"
	require.NoError(t, r.UpdatePlaylistNFC(context.Background(), "p1", &uid))

	_, err := os.Stat(path)
	require.NoError(t, err, "UpdatePlaylistNFC should have persisted a snapshot")

	r2 := repo.NewInMemoryRepository(path)
	require.NoError(t, r2.Load())

	found, err := r2.FindPlaylistByNFC(context.Background(), uid)
	require.NoError(t, err)
	assert.Equal(t, "p1", found.ID)
}

func TestInMemoryRepository_LoadMissingFileIsNotAnError(t *testing.T) {
	defer goleak.VerifyNone(t)
	dir := t.TempDir()
	r := repo.NewInMemoryRepository(filepath.Join(dir, "does-not-exist.json"))
	assert.NoError(t, r.Load())
}
