package nfc_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	core "github.com/arung-agamani/musicbox-core/internal/core"
	"github.com/arung-agamani/musicbox-core/internal/core/hardware"
	"github.com/arung-agamani/musicbox-core/internal/core/nfc"
	"github.com/arung-agamani/musicbox-core/internal/core/repo"
)

type fakeCoordinator struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakeCoordinator) PlayByNFC(ctx context.Context, uid string) (*core.PlayerStatus, error) {
	f.mu.Lock()
	f.calls = append(f.calls, uid)
	f.mu.Unlock()
	return &core.PlayerStatus{Status: core.StatusPlaying}, nil
}

func (f *fakeCoordinator) calledWith() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

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

func (f *fakePublisher) last() core.Envelope {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.events[len(f.events)-1]
}

func (f *fakePublisher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}

func newTestService(t *testing.T) (*nfc.Service, *repo.InMemoryRepository, *fakeCoordinator, *fakePublisher, *hardware.FakeNFCReader) {
	t.Helper()
	repository := repo.NewInMemoryRepository("")
	repository.Seed(&core.Playlist{ID: "p1", Title: "First"})
	repository.Seed(&core.Playlist{ID: "p2", Title: "Second"})
	coord := &fakeCoordinator{}
	pub := &fakePublisher{}
	reader := hardware.NewFakeNFCReader(true)
	svc := nfc.NewService(nfc.DefaultConfig(), repository, coord, pub, reader, nil)
	return svc, repository, coord, pub, reader
}

func TestService_StartSessionRejectsSecondListeningForSamePlaylist(t *testing.T) {
	defer goleak.VerifyNone(t)
	svc, _, _, _, _ := newTestService(t)

	_, err := svc.StartSession("p1", 30)
	require.NoError(t, err)

	_, err = svc.StartSession("p1", 30)
	assert.True(t, core.IsKind(err, core.ErrAlreadyActive))
}

func TestService_TagDetectedDuringListeningAssociatesTag(t *testing.T) {
	defer goleak.VerifyNone(t)
	svc, repository, _, pub, reader := newTestService(t)

	desc, err := svc.StartSession("p1", 30)
	require.NoError(t, err)

	reader.Emit("uid-123")

	require.Eventually(t, func() bool {
		status := svc.Status()
		for _, s := range status.Sessions {
			if s.SessionID == desc.SessionID {
				return s.State == core.AssocSuccess
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, core.EventNFCAssociated, pub.last().EventType)

	found, err := repository.FindPlaylistByNFC(context.Background(), "uid-123")
	require.NoError(t, err)
	assert.Equal(t, "p1", found.ID)
}

func TestService_TagDetectedWithConflictReportsOriginalPlaylist(t *testing.T) {
	defer goleak.VerifyNone(t)
	svc, repository, _, pub, reader := newTestService(t)

	uid := "uid-shared"
	require.NoError(t, repository.UpdatePlaylistNFC(context.Background(), "p1", &uid))

	desc, err := svc.StartSession("p2", 30)
	require.NoError(t, err)

	reader.Emit(uid)

	require.Eventually(t, func() bool {
		status := svc.Status()
		for _, s := range status.Sessions {
			if s.SessionID == desc.SessionID {
				return s.State == core.AssocDuplicate
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, core.EventNFCDuplicate, pub.last().EventType)
	data, ok := pub.last().Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "p1", data["conflict_playlist_id"])
}

func TestService_TagDetectedWithoutListeningSessionRoutesToPlayback(t *testing.T) {
	defer goleak.VerifyNone(t)
	svc, _, coord, _, reader := newTestService(t)
	_ = svc

	reader.Emit("uid-999")

	require.Eventually(t, func() bool {
		return len(coord.calledWith()) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, "uid-999", coord.calledWith()[0])
}

func TestService_CancelSessionTransitionsListeningToCancelled(t *testing.T) {
	defer goleak.VerifyNone(t)
	svc, _, _, pub, _ := newTestService(t)

	desc, err := svc.StartSession("p1", 30)
	require.NoError(t, err)

	require.NoError(t, svc.CancelSession(desc.SessionID))

	status := svc.Status()
	var found bool
	for _, s := range status.Sessions {
		if s.SessionID == desc.SessionID {
			found = true
			assert.Equal(t, core.AssocCancelled, s.State)
		}
	}
	assert.True(t, found)
	assert.Equal(t, core.EventNFCCancelled, pub.last().EventType)
	assert.Equal(t, 1, pub.count())
}

func TestService_CancelSessionUnknownIDReturnsNotFound(t *testing.T) {
	defer goleak.VerifyNone(t)
	svc, _, _, _, _ := newTestService(t)

	err := svc.CancelSession("does-not-exist")
	assert.True(t, core.IsKind(err, core.ErrNotFound))
}

func TestService_CancelSessionOnTerminalStateIsNoOp(t *testing.T) {
	defer goleak.VerifyNone(t)
	svc, _, _, pub, reader := newTestService(t)

	desc, err := svc.StartSession("p1", 30)
	require.NoError(t, err)
	reader.Emit("uid-1")

	require.Eventually(t, func() bool {
		status := svc.Status()
		for _, s := range status.Sessions {
			if s.SessionID == desc.SessionID {
				return s.State == core.AssocSuccess
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)

	countBefore := pub.count()
	require.NoError(t, svc.CancelSession(desc.SessionID))
	assert.Equal(t, countBefore, pub.count(), "cancelling a terminal session must not publish anything")
}

func TestService_SweepTimesOutListeningSession(t *testing.T) {
	defer goleak.VerifyNone(t)
	svc, _, _, pub, _ := newTestService(t)

	desc, err := svc.StartSession("p1", 0) // already expired
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() { defer close(done); _ = svc.Run(ctx) }()
	defer func() {
		cancel()
		<-done
	}()

	require.Eventually(t, func() bool {
		status := svc.Status()
		for _, s := range status.Sessions {
			if s.SessionID == desc.SessionID {
				return s.State == core.AssocTimeout
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, core.EventNFCTimeout, pub.last().EventType)
}

func TestService_StatusReportsHardwareAvailability(t *testing.T) {
	defer goleak.VerifyNone(t)
	repository := repo.NewInMemoryRepository("")
	coord := &fakeCoordinator{}
	pub := &fakePublisher{}
	reader := hardware.NewFakeNFCReader(false)
	svc := nfc.NewService(nfc.DefaultConfig(), repository, coord, pub, reader, nil)

	assert.False(t, svc.Status().HardwareAvailable)
}
