// Package engine wires the six core components into one process-wide
// object with explicit construction and teardown, replacing the source's
// module-level singletons with lazy initialization, per SPEC_FULL.md
// section 9's re-architecture guidance. Engine is the concrete type behind
// the Command and Event external interfaces declared in SPEC_FULL.md
// section 6; it does not itself expose HTTP or WebSocket endpoints.
package engine

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	core "github.com/arung-agamani/musicbox-core/internal/core"
	"github.com/arung-agamani/musicbox-core/internal/core/audio"
	"github.com/arung-agamani/musicbox-core/internal/core/coordinator"
	"github.com/arung-agamani/musicbox-core/internal/core/hardware"
	"github.com/arung-agamani/musicbox-core/internal/core/hub"
	"github.com/arung-agamani/musicbox-core/internal/core/metrics"
	"github.com/arung-agamani/musicbox-core/internal/core/nfc"
	"github.com/arung-agamani/musicbox-core/internal/core/repo"
)

// Config bundles every component's configuration.
type Config struct {
	Coordinator coordinator.Config
	Hub         hub.Config
	NFC         nfc.Config
}

// DefaultConfig returns the recommended defaults for every sub-component.
func DefaultConfig() Config {
	return Config{
		Coordinator: coordinator.DefaultConfig(),
		Hub:         hub.DefaultConfig(),
		NFC:         nfc.DefaultConfig(),
	}
}

// Engine owns construction, lifecycle, and teardown of every core
// component. Constructed once via New, started once via Run, shut down
// once via Shutdown — mirroring the teacher's main.go lifecycle.
type Engine struct {
	cfg Config
	log *slog.Logger

	Backend    audio.Backend
	Repository repo.Repository
	Metrics    *metrics.Metrics

	Coordinator *coordinator.Coordinator
	Hub         *hub.Hub
	NFC         *nfc.Service
}

// New constructs every component and wires their interface dependencies.
// The caller supplies the audio backend, repository, and hardware adapters;
// Engine builds the coordinator, hub, and NFC service around them.
func New(cfg Config, backend audio.Backend, repository repo.Repository, reader hardware.NFCReader, buttons hardware.ButtonSource, m *metrics.Metrics, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	e := &Engine{cfg: cfg, log: log, Backend: backend, Repository: repository, Metrics: m}

	e.Hub = hub.New(cfg.Hub, e, m, log.With("component", "hub"))
	e.Coordinator = coordinator.New(cfg.Coordinator, backend, repository, e.Hub, m, log.With("component", "coordinator"))
	e.NFC = nfc.NewService(cfg.NFC, repository, e.Coordinator, e.Hub, reader, log.With("component", "nfc"))

	if buttons != nil {
		buttons.RegisterButton(e.onButton)
	}
	return e
}

// onButton maps a physical GPIO button event 1:1 to a coordinator command,
// per SPEC_FULL.md section 6's hardware callback interface.
func (e *Engine) onButton(event string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var err error
	switch core.ButtonEvent(event) {
	case core.ButtonNext:
		_, err = e.Coordinator.Control(ctx, core.ActionNext)
	case core.ButtonPrevious:
		_, err = e.Coordinator.Control(ctx, core.ActionPrevious)
	case core.ButtonPlayPause:
		status, statusErr := e.Coordinator.GetStatus(ctx)
		if statusErr != nil {
			err = statusErr
			break
		}
		if status.Status == core.StatusPlaying {
			_, err = e.Coordinator.Control(ctx, core.ActionPause)
		} else {
			_, err = e.Coordinator.Control(ctx, core.ActionResume)
		}
	case core.ButtonVolumeUp:
		status, statusErr := e.Coordinator.GetStatus(ctx)
		if statusErr != nil {
			err = statusErr
			break
		}
		_, err = e.Coordinator.SetVolume(ctx, clampVolume(status.VolumePct+5))
	case core.ButtonVolumeDown:
		status, statusErr := e.Coordinator.GetStatus(ctx)
		if statusErr != nil {
			err = statusErr
			break
		}
		_, err = e.Coordinator.SetVolume(ctx, clampVolume(status.VolumePct-5))
	}
	if err != nil {
		e.log.Warn("button event handling failed", "event", event, "error", err)
	}
}

func clampVolume(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// Start arms the coordinator, allowing state-changing commands to be
// processed. Must be called once before Run, after all components are
// constructed.
func (e *Engine) Start() {
	e.Coordinator.Start()
}

// Run starts every background worker (coordinator queue processor, hub
// outbox drain and idempotency sweep, NFC timeout sweeper) under a shared
// errgroup: the first worker to return an error cancels the group's
// context, and Run waits for the rest to unwind before returning. This is
// the process's cooperative shutdown mechanism described in SPEC_FULL.md
// section 5.
func (e *Engine) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return e.Coordinator.Run(gctx) })
	g.Go(func() error { return e.Hub.Run(gctx) })
	g.Go(func() error { return e.NFC.Run(gctx) })
	return g.Wait()
}

// Shutdown performs the two-phase cooperative shutdown: the caller is
// expected to have already cancelled the context passed to Run (phase 1,
// stop accepting new commands); Shutdown then sleeps for the full timeout
// before force-stopping the audio backend (phase 2). It does not observe
// the background workers itself.
func (e *Engine) Shutdown(timeout time.Duration) {
	time.Sleep(timeout)
	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	e.Coordinator.StopAll(stopCtx)
}
