package coordinator_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	core "github.com/arung-agamani/musicbox-core/internal/core"
	"github.com/arung-agamani/musicbox-core/internal/core/audio"
	"github.com/arung-agamani/musicbox-core/internal/core/coordinator"
	"github.com/arung-agamani/musicbox-core/internal/core/repo"
)

// fakePublisher records every published envelope, standing in for the
// Broadcast Hub in coordinator-only tests.
type fakePublisher struct {
	mu     sync.Mutex
	events []core.Envelope
}

func (f *fakePublisher) Publish(eventType core.EventType, playlistID string, data any) core.Envelope {
	env := core.Envelope{EventType: eventType, PlaylistID: playlistID, Data: data}
	f.mu.Lock()
	f.events = append(f.events, env)
	f.mu.Unlock()
	return env
}

func (f *fakePublisher) eventTypes() []core.EventType {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]core.EventType, len(f.events))
	for i, e := range f.events {
		out[i] = e.EventType
	}
	return out
}

// newTestCoordinator returns a running Coordinator plus a stop func. Callers
// must `defer stop()` AFTER `defer goleak.VerifyNone(t)` so that, since
// defers unwind in LIFO order, the Run goroutine is torn down before
// goleak inspects the goroutine dump.
func newTestCoordinator(t *testing.T) (c *coordinator.Coordinator, backend *audio.MockBackend, repository *repo.InMemoryRepository, pub *fakePublisher, stop func()) {
	t.Helper()
	backend = audio.NewMockBackend()
	repository = repo.NewInMemoryRepository("")
	pub = &fakePublisher{}
	c = coordinator.New(coordinator.DefaultConfig(), backend, repository, pub, nil, nil)
	c.Start()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() { defer close(done); _ = c.Run(ctx) }()
	stop = func() {
		cancel()
		<-done
		c.StopAll(context.Background())
	}
	return c, backend, repository, pub, stop
}

func seedPlaylist(r *repo.InMemoryRepository, id string, trackCount int) {
	p := &core.Playlist{ID: id, Title: id}
	for i := 1; i <= trackCount; i++ {
		p.Tracks = append(p.Tracks, core.Track{
			ID: id + "-t", TrackNumber: i, Title: "track", FilePath: "/music/" + id + "/" + string(rune('0'+i)) + ".mp3",
		})
	}
	r.Seed(p)
}

func TestCoordinator_PlayRequiresStart(t *testing.T) {
	defer goleak.VerifyNone(t)
	backend := audio.NewMockBackend()
	repository := repo.NewInMemoryRepository("")
	seedPlaylist(repository, "p1", 2)
	pub := &fakePublisher{}
	c := coordinator.New(coordinator.DefaultConfig(), backend, repository, pub, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = c.Run(ctx) }()

	_, err := c.Play(context.Background(), "p1", nil)
	assert.True(t, core.IsKind(err, core.ErrBackendNotStarted))
}

func TestCoordinator_PlayStartsPlaybackAndEmitsEvents(t *testing.T) {
	defer goleak.VerifyNone(t)
	c, _, repository, pub, stop := newTestCoordinator(t)
	defer stop()
	seedPlaylist(repository, "p1", 2)

	status, err := c.Play(context.Background(), "p1", nil)
	require.NoError(t, err)
	assert.Equal(t, core.StatusPlaying, status.Status)
	assert.Equal(t, 1, status.TrackNumber)

	assert.Contains(t, pub.eventTypes(), core.EventPlaylistStarted)
	assert.Contains(t, pub.eventTypes(), core.EventTrackChanged)
}

func TestCoordinator_PlayUnknownPlaylistWrapsRepositoryError(t *testing.T) {
	defer goleak.VerifyNone(t)
	c, _, _, _, stop := newTestCoordinator(t)
	defer stop()

	_, err := c.Play(context.Background(), "missing", nil)
	assert.True(t, core.IsKind(err, core.ErrNotFound))
}

func TestCoordinator_PauseResumeRoundTrip(t *testing.T) {
	defer goleak.VerifyNone(t)
	c, _, repository, _, stop := newTestCoordinator(t)
	defer stop()
	seedPlaylist(repository, "p1", 1)
	_, err := c.Play(context.Background(), "p1", nil)
	require.NoError(t, err)

	status, err := c.Control(context.Background(), core.ActionPause)
	require.NoError(t, err)
	assert.Equal(t, core.StatusPaused, status.Status)

	status, err = c.Control(context.Background(), core.ActionResume)
	require.NoError(t, err)
	assert.Equal(t, core.StatusPlaying, status.Status)
}

func TestCoordinator_NextAtLastTrackStopsAndEmitsPlaylistEnded(t *testing.T) {
	defer goleak.VerifyNone(t)
	c, _, repository, pub, stop := newTestCoordinator(t)
	defer stop()
	seedPlaylist(repository, "p1", 1)
	_, err := c.Play(context.Background(), "p1", nil)
	require.NoError(t, err)

	status, err := c.Control(context.Background(), core.ActionNext)
	require.NoError(t, err)
	assert.Equal(t, core.StatusStopped, status.Status)
	assert.Contains(t, pub.eventTypes(), core.EventPlaylistEnded,
		"a user-issued next() past the last track must stop and emit playlist_ended")
}

func TestCoordinator_TrackEndedAtLastTrackStopsAndEmitsPlaylistEnded(t *testing.T) {
	defer goleak.VerifyNone(t)
	c, backend, repository, pub, stop := newTestCoordinator(t)
	defer stop()
	seedPlaylist(repository, "p1", 1)
	_, err := c.Play(context.Background(), "p1", nil)
	require.NoError(t, err)

	backend.End()

	require.Eventually(t, func() bool {
		status, err := c.GetStatus(context.Background())
		return err == nil && status.Status == core.StatusStopped
	}, time.Second, 5*time.Millisecond)

	assert.Contains(t, pub.eventTypes(), core.EventPlaylistEnded)
}

func TestCoordinator_NextAndTrackEndedBackToBackBothAdvance(t *testing.T) {
	defer goleak.VerifyNone(t)
	c, backend, repository, _, stop := newTestCoordinator(t)
	defer stop()
	seedPlaylist(repository, "p1", 3)
	_, err := c.Play(context.Background(), "p1", nil)
	require.NoError(t, err)

	// Enqueue a user Next() and a backend-driven track-ended reaction before
	// either is processed; the single command queue serializes them, so both
	// advances must land even though they raced in.
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = c.Control(context.Background(), core.ActionNext)
	}()
	backend.End()
	wg.Wait()

	require.Eventually(t, func() bool {
		status, err := c.GetStatus(context.Background())
		if err != nil {
			return false
		}
		return status.Status == core.StatusPlaying && status.TrackNumber == 3
	}, time.Second, 5*time.Millisecond)
}

func TestCoordinator_SeekWhileStoppedFails(t *testing.T) {
	defer goleak.VerifyNone(t)
	c, _, _, _, stop := newTestCoordinator(t)
	defer stop()

	_, err := c.Seek(context.Background(), 1000)
	assert.True(t, core.IsKind(err, core.ErrOutOfRange))
}

func TestCoordinator_SetVolumeEmitsVolumeChanged(t *testing.T) {
	defer goleak.VerifyNone(t)
	c, _, _, pub, stop := newTestCoordinator(t)
	defer stop()

	status, err := c.SetVolume(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, 42, status.VolumePct)
	assert.Contains(t, pub.eventTypes(), core.EventVolumeChanged)
}

func TestCoordinator_SetVolumeOutOfRangeIsRejected(t *testing.T) {
	defer goleak.VerifyNone(t)
	c, _, _, pub, stop := newTestCoordinator(t)
	defer stop()

	_, err := c.SetVolume(context.Background(), -50)
	assert.True(t, core.IsKind(err, core.ErrOutOfRange))

	_, err = c.SetVolume(context.Background(), 999)
	assert.True(t, core.IsKind(err, core.ErrOutOfRange))

	assert.NotContains(t, pub.eventTypes(), core.EventVolumeChanged,
		"an out-of-range volume must not be stored or broadcast")
}

func TestCoordinator_CommandTimeoutWhenContextExpiresBeforeStart(t *testing.T) {
	defer goleak.VerifyNone(t)
	backend := audio.NewMockBackend()
	repository := repo.NewInMemoryRepository("")
	pub := &fakePublisher{}
	// A Coordinator whose Run loop is never started: the worker never drains
	// the queue, so the reply never arrives and the context deadline wins.
	c := coordinator.New(coordinator.DefaultConfig(), backend, repository, pub, nil, nil)
	c.Start()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := c.Play(ctx, "p1", nil)
	assert.True(t, core.IsKind(err, core.ErrTimeout))
}
