package audio

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"sync"
	"time"
)

// ExecBackend plays audio by shelling out to an external player process,
// the same os/exec.CommandContext idiom the teacher's ffmpeg.Encoder uses to
// drive ffmpeg, generalized from one-shot streaming to a controllable
// play/pause/resume/stop/seek lifecycle.
//
// Pause/Resume are implemented by signaling the child process with the
// package's pauseSignal/resumeSignal (SIGSTOP / SIGCONT);
// Seek restarts the process at an offset because most CLI players do not
// support live seeking over stdin. This is a documented limitation, not a
// silent failure: Seek audibly restarts playback, returns the restart's
// error if the process cannot be started, and does nothing when no file is
// loaded.
type ExecBackend struct {
	command string   // e.g. "ffplay"
	args    []string // extra args appended before the file path

	mu         sync.Mutex
	cmd        *exec.Cmd
	cancel     context.CancelFunc
	loaded     string
	playing    bool
	startedAt  time.Time
	pausedAt   time.Duration
	durationMs int64
	volume     int

	onEnded func()

	logger *slog.Logger
}

// NewExecBackend constructs an ExecBackend that shells out to command with
// the given extra args (e.g. "-nodisp", "-autoexit" for ffplay).
func NewExecBackend(command string, args []string, logger *slog.Logger) *ExecBackend {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExecBackend{command: command, args: args, volume: 100, logger: logger}
}

func (e *ExecBackend) Play(ctx context.Context, filePath string, startPositionMs int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.killLocked()

	runCtx, cancel := context.WithCancel(context.Background())
	args := append(append([]string{}, e.args...), "-ss", fmt.Sprintf("%.3f", float64(startPositionMs)/1000), filePath)
	cmd := exec.CommandContext(runCtx, e.command, args...)

	stderr, err := cmd.StderrPipe()
	if err != nil {
		cancel()
		return fmt.Errorf("exec backend: stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		cancel()
		return fmt.Errorf("exec backend: start %s: %w", e.command, err)
	}

	e.cmd = cmd
	e.cancel = cancel
	e.loaded = filePath
	e.playing = true
	e.startedAt = time.Now()
	e.pausedAt = time.Duration(startPositionMs) * time.Millisecond

	// Log child stderr in the background, same idiom as ffmpeg.Encoder.Stream.
	go func() {
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			e.logger.Debug("exec backend output", "line", scanner.Text())
		}
	}()

	// Reap the process and fire the track-ended callback when it exits on
	// its own, not as a result of Stop/kill.
	go func(cmd *exec.Cmd, runCtx context.Context) {
		waitErr := cmd.Wait()
		if runCtx.Err() != nil {
			return // Stop() cancelled us; not a natural end.
		}
		if waitErr != nil {
			e.logger.Warn("exec backend process exited with error", "error", waitErr)
		}
		e.mu.Lock()
		cb := e.onEnded
		e.playing = false
		e.mu.Unlock()
		if cb != nil {
			cb()
		}
	}(cmd, runCtx)

	return nil
}

func (e *ExecBackend) Pause(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cmd == nil || e.cmd.Process == nil {
		return nil
	}
	e.pausedAt = e.elapsedLocked()
	e.playing = false
	return e.cmd.Process.Signal(pauseSignal)
}

func (e *ExecBackend) Resume(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cmd == nil || e.cmd.Process == nil {
		return nil
	}
	e.playing = true
	e.startedAt = time.Now().Add(-e.pausedAt)
	return e.cmd.Process.Signal(resumeSignal)
}

func (e *ExecBackend) Stop(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.killLocked()
	e.loaded = ""
	e.playing = false
	e.pausedAt = 0
	return nil
}

// killLocked terminates any running child process. Caller must hold mu.
func (e *ExecBackend) killLocked() {
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	e.cmd = nil
}

func (e *ExecBackend) Seek(ctx context.Context, positionMs int64) error {
	e.mu.Lock()
	filePath := e.loaded
	e.mu.Unlock()
	if filePath == "" {
		return nil
	}
	return e.Play(ctx, filePath, positionMs)
}

func (e *ExecBackend) elapsedLocked() time.Duration {
	if !e.playing {
		return e.pausedAt
	}
	return time.Since(e.startedAt)
}

func (e *ExecBackend) GetPosition() (int64, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.loaded == "" {
		return 0, false
	}
	return e.elapsedLocked().Milliseconds(), true
}

func (e *ExecBackend) GetDuration() (int64, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.durationMs == 0 {
		return 0, false
	}
	return e.durationMs, true
}

func (e *ExecBackend) SetVolume(ctx context.Context, percent int) error {
	e.mu.Lock()
	e.volume = percent
	e.mu.Unlock()
	// Most CLI players take volume only at startup; a live volume change
	// would require restarting the process. The value is only recorded:
	// Play does not pass it to the player process, so it has no audible
	// effect.
	return nil
}

func (e *ExecBackend) OnTrackEnded(callback func()) {
	e.mu.Lock()
	e.onEnded = callback
	e.mu.Unlock()
}
