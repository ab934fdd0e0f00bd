package audio

import (
	"context"
	"sync"
)

// MockBackend is a deterministic in-memory Backend used by coordinator and
// end-to-end tests. Tracks have a configured duration; playback position
// only advances when AdvancePosition is called, or immediately completes when End is
// called, so tests can drive track-ended without real time passing.
type MockBackend struct {
	mu sync.Mutex

	loaded     string
	playing    bool
	positionMs int64
	durationMs int64
	volume     int

	// durations maps file paths to a canned duration, consulted by Play.
	// Tests can pre-populate this to control GetDuration's response.
	durations map[string]int64

	onEnded func()

	// FailPlay, when non-nil, is returned by Play instead of succeeding.
	// Reset after one use so tests can inject one-shot failures.
	FailPlay error
}

// NewMockBackend constructs an empty MockBackend.
func NewMockBackend() *MockBackend {
	return &MockBackend{durations: make(map[string]int64), volume: 100}
}

// SetDuration pre-registers the duration reported for a given file path.
func (m *MockBackend) SetDuration(filePath string, ms int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.durations[filePath] = ms
}

func (m *MockBackend) Play(ctx context.Context, filePath string, startPositionMs int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailPlay != nil {
		err := m.FailPlay
		m.FailPlay = nil
		return err
	}
	m.loaded = filePath
	m.playing = true
	m.positionMs = startPositionMs
	m.durationMs = m.durations[filePath]
	return nil
}

func (m *MockBackend) Pause(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playing = false
	return nil
}

func (m *MockBackend) Resume(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loaded == "" {
		return nil
	}
	m.playing = true
	return nil
}

func (m *MockBackend) Stop(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loaded = ""
	m.playing = false
	m.positionMs = 0
	m.durationMs = 0
	return nil
}

func (m *MockBackend) Seek(ctx context.Context, positionMs int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loaded == "" {
		return nil
	}
	m.positionMs = positionMs
	return nil
}

func (m *MockBackend) GetPosition() (int64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loaded == "" {
		return 0, false
	}
	return m.positionMs, true
}

func (m *MockBackend) GetDuration() (int64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loaded == "" {
		return 0, false
	}
	return m.durationMs, true
}

func (m *MockBackend) SetVolume(ctx context.Context, percent int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.volume = percent
	return nil
}

func (m *MockBackend) OnTrackEnded(callback func()) {
	m.mu.Lock()
	m.onEnded = callback
	m.mu.Unlock()
}

// AdvancePosition moves the simulated clock forward by deltaMs, capping at
// the track's duration. Tests call this from the ticker path.
func (m *MockBackend) AdvancePosition(deltaMs int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.playing {
		return
	}
	m.positionMs += deltaMs
	if m.durationMs > 0 && m.positionMs >= m.durationMs {
		m.positionMs = m.durationMs
	}
}

// End simulates natural completion of the currently loaded track, invoking
// the registered OnTrackEnded callback exactly once, outside the lock so the
// callback may safely call back into the backend.
func (m *MockBackend) End() {
	m.mu.Lock()
	cb := m.onEnded
	m.playing = false
	m.mu.Unlock()
	if cb != nil {
		cb()
	}
}
