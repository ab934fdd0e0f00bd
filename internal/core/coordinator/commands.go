package coordinator

import (
	"context"

	core "github.com/arung-agamani/musicbox-core/internal/core"
)

type commandKind int

const (
	cmdPlay commandKind = iota
	cmdPlayByNFC
	cmdPause
	cmdResume
	cmdStop
	cmdNext
	cmdPrevious
	cmdSeek
	cmdSetVolume
	cmdGetStatus
	cmdTrackEnded
	cmdPositionPoll
)

// request is one entry on the coordinator's command queue. Only one
// goroutine — the worker loop in Run — ever reads or mutates coordinator
// state in response to a request, which is what makes the coordinator the
// single writer described in SPEC_FULL.md section 4.D.
type request struct {
	kind        commandKind
	playlistID  string
	trackNumber *int
	tagUID      string
	positionMs  int64
	volume      int
	reply       chan response // nil for fire-and-forget internal commands
}

type response struct {
	status *core.PlayerStatus
	err    error
}

// submit enqueues req and waits for its reply, honoring ctx for the wait.
// A full queue fails fast with core.ErrQueueOverflow rather than blocking
// the caller; ctx expiry while waiting for the worker to process the
// request fails with core.ErrTimeout.
func (c *Coordinator) submit(ctx context.Context, req request) (*core.PlayerStatus, error) {
	req.reply = make(chan response, 1)
	select {
	case c.cmdCh <- req:
	default:
		return nil, core.NewError(core.ErrQueueOverflow, "command queue full")
	}
	if c.metrics != nil {
		c.metrics.CommandQueueDepth.Set(float64(len(c.cmdCh)))
	}
	select {
	case resp := <-req.reply:
		return resp.status, resp.err
	case <-ctx.Done():
		return nil, core.NewError(core.ErrTimeout, "command timed out waiting for processing")
	}
}

// enqueueFireAndForget is used by the position ticker and track-ended
// callback, which have no caller awaiting a reply. A full queue silently
// drops the request: the next tick or the coordinator's own state will
// catch up.
func (c *Coordinator) enqueueFireAndForget(req request) {
	select {
	case c.cmdCh <- req:
	default:
	}
}
