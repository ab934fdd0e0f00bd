package coordinator

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// runPositionTicker asks the backend for position on a fixed interval and
// enqueues a positionPoll request for the worker to process, grounded on
// the teacher's playlist.Scheduler ticker-loop idiom. The tick rate and the
// emission rate are deliberately different: we poll frequently (5-20Hz) but
// only emit position_changed when the integer second bucket changes, gated
// additionally by a rate.Limiter so emission never exceeds 2/s even under
// clock skew.
func (c *Coordinator) runPositionTicker(ctx context.Context) {
	interval := c.cfg.PositionPollInterval
	if interval <= 0 {
		interval = 100 * time.Millisecond // 10Hz, within the 5-20Hz band
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.enqueueFireAndForget(request{kind: cmdPositionPoll})
		}
	}
}

// newPositionLimiter builds the rate gate bounding position_changed
// emission to at most once per 500ms, per SPEC_FULL.md section 4.D.
func newPositionLimiter() *rate.Limiter {
	return rate.NewLimiter(rate.Every(500*time.Millisecond), 1)
}
