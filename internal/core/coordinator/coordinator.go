// Package coordinator implements the Playback Coordinator (component D):
// the single writer to playback state and the audio backend, serializing
// every command through one logical worker. Grounded on the teacher's
// single-goroutine internal/radio.Broadcaster.Start loop, generalized from
// "one media loop" to "one command-processing loop with typed commands and
// reply channels".
package coordinator

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	core "github.com/arung-agamani/musicbox-core/internal/core"
	"github.com/arung-agamani/musicbox-core/internal/core/audio"
	"github.com/arung-agamani/musicbox-core/internal/core/metrics"
	"github.com/arung-agamani/musicbox-core/internal/core/playlist"
	"github.com/arung-agamani/musicbox-core/internal/core/repo"
)

// Publisher is the slice of the Broadcast Hub the coordinator depends on.
type Publisher interface {
	Publish(eventType core.EventType, playlistID string, data any) core.Envelope
}

// Config bounds the coordinator's queue size and background poll rate.
type Config struct {
	QueueSize            int
	PositionPollInterval time.Duration
	BackendCallTimeout   time.Duration
}

// DefaultConfig matches SPEC_FULL.md's 5-20Hz polling band at 10Hz, a
// generous command queue, and a short backend-call timeout so a wedged
// backend cannot stall the worker.
func DefaultConfig() Config {
	return Config{
		QueueSize:            256,
		PositionPollInterval: 100 * time.Millisecond,
		BackendCallTimeout:   5 * time.Second,
	}
}

// Coordinator is the Playback Coordinator. Callers only ever interact
// through the command methods, which cross into the worker via the command
// channel; the fields under "worker-owned state" are touched exclusively by
// the worker goroutine running in Run.
type Coordinator struct {
	cfg        Config
	backend    audio.Backend
	repository repo.Repository
	state      *playlist.State
	hub        Publisher
	metrics    *metrics.Metrics
	log        *slog.Logger

	cmdCh   chan request
	started atomic.Bool
	stopped atomic.Bool

	// worker-owned state; never touched outside the Run goroutine.
	status     core.PlayerStatus
	posLimiter *rate.Limiter
	lastPosSec int64
}

// New constructs a Coordinator. Start must be called once before any
// state-changing command is accepted.
func New(cfg Config, backend audio.Backend, repository repo.Repository, hub Publisher, m *metrics.Metrics, log *slog.Logger) *Coordinator {
	if log == nil {
		log = slog.Default()
	}
	c := &Coordinator{
		cfg:        cfg,
		backend:    backend,
		repository: repository,
		state:      playlist.New(),
		hub:        hub,
		metrics:    m,
		log:        log,
		cmdCh:      make(chan request, maxQueueSize(cfg)),
		status:     core.PlayerStatus{Status: core.StatusStopped, VolumePct: 100},
		posLimiter: newPositionLimiter(),
		lastPosSec: -1,
	}
	backend.OnTrackEnded(func() { c.enqueueFireAndForget(request{kind: cmdTrackEnded}) })
	return c
}

func maxQueueSize(cfg Config) int {
	if cfg.QueueSize <= 0 {
		return 256
	}
	return cfg.QueueSize
}

// Start is the one-shot precondition gate: state-changing commands are
// refused with core.ErrBackendNotStarted until Start has been called and
// StopAll has not yet been called. This catches the latent bug class
// SPEC_FULL.md section 4.D calls out, where the source let commands
// silently succeed against an unstarted engine.
func (c *Coordinator) Start() {
	c.started.Store(true)
}

// StopAll marks the coordinator as torn down; subsequent state-changing
// commands fail with core.ErrBackendNotStarted, and a later Start does not
// re-arm it.
func (c *Coordinator) StopAll(ctx context.Context) {
	_ = c.backend.Stop(ctx)
	c.stopped.Store(true)
}

// Run processes commands from the queue and drives the position ticker
// until ctx is cancelled. Intended to run under an errgroup.
func (c *Coordinator) Run(ctx context.Context) error {
	go c.runPositionTicker(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case req := <-c.cmdCh:
			c.handle(ctx, req)
		}
	}
}

func (c *Coordinator) handle(ctx context.Context, req request) {
	start := time.Now()
	var status *core.PlayerStatus
	var err error

	switch req.kind {
	case cmdPlay:
		status, err = c.handlePlay(ctx, req.playlistID, req.trackNumber)
	case cmdPlayByNFC:
		status, err = c.handlePlayByNFC(ctx, req.tagUID)
	case cmdPause:
		status, err = c.handlePause(ctx)
	case cmdResume:
		status, err = c.handleResume(ctx)
	case cmdStop:
		status, err = c.handleStop(ctx)
	case cmdNext:
		status, err = c.handleAdvance(ctx, false)
	case cmdPrevious:
		status, err = c.handlePrevious(ctx)
	case cmdSeek:
		status, err = c.handleSeek(ctx, req.positionMs)
	case cmdSetVolume:
		status, err = c.handleSetVolume(ctx, req.volume)
	case cmdGetStatus:
		snapshot := c.status
		status = &snapshot
	case cmdTrackEnded:
		status, err = c.handleAdvance(ctx, true)
	case cmdPositionPoll:
		c.handlePositionPoll()
	}

	if c.metrics != nil && req.kind != cmdPositionPoll {
		c.metrics.CommandLatency.WithLabelValues(commandName(req.kind)).Observe(time.Since(start).Seconds())
	}
	if req.reply != nil {
		req.reply <- response{status: status, err: err}
	}
}

func commandName(k commandKind) string {
	switch k {
	case cmdPlay:
		return "play"
	case cmdPlayByNFC:
		return "play_by_nfc"
	case cmdPause:
		return "pause"
	case cmdResume:
		return "resume"
	case cmdStop:
		return "stop"
	case cmdNext:
		return "next"
	case cmdPrevious:
		return "previous"
	case cmdSeek:
		return "seek"
	case cmdSetVolume:
		return "set_volume"
	case cmdGetStatus:
		return "get_status"
	case cmdTrackEnded:
		return "track_ended"
	default:
		return "unknown"
	}
}

// requireStarted enforces the backend-not-started precondition. It never
// emits an event: this is a wiring bug, not a runtime failure, per
// SPEC_FULL.md section 4.D.
func (c *Coordinator) requireStarted() error {
	if !c.started.Load() || c.stopped.Load() {
		return core.NewError(core.ErrBackendNotStarted, "coordinator has not been started")
	}
	return nil
}

func (c *Coordinator) backendCtx(parent context.Context) (context.Context, context.CancelFunc) {
	timeout := c.cfg.BackendCallTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return context.WithTimeout(parent, timeout)
}
