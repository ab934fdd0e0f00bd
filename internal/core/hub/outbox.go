package hub

import (
	"context"
	"log/slog"
	"sync"
	"time"

	core "github.com/arung-agamani/musicbox-core/internal/core"
	"github.com/arung-agamani/musicbox-core/internal/core/metrics"
)

// entry is one outbox entry: an envelope awaiting delivery to targetRooms,
// with retry bookkeeping. Mirrors SPEC_FULL.md section 3's Outbox entry.
type entry struct {
	envelope      core.Envelope
	targetRooms   []string
	attempts      int
	nextAttemptAt time.Time
}

// outbox is the at-least-once delivery worker for non-ephemeral events.
// Grounded on the teacher's auth.rateLimiter background-ticker-plus-mutex
// idiom for the drain loop's shape, generalized from "prune" to "retry with
// backoff".
type outbox struct {
	hub *Hub
	cfg Config
	m   *metrics.Metrics
	log *slog.Logger

	mu      sync.Mutex
	pending []*entry
}

func newOutbox(h *Hub, cfg Config, m *metrics.Metrics, log *slog.Logger) *outbox {
	return &outbox{hub: h, cfg: cfg, m: m, log: log}
}

func (o *outbox) enqueue(env core.Envelope, rooms []string) {
	o.mu.Lock()
	o.pending = append(o.pending, &entry{envelope: env, targetRooms: rooms, nextAttemptAt: time.Now()})
	size := len(o.pending)
	o.mu.Unlock()
	if o.m != nil {
		o.m.OutboxSize.Set(float64(size))
	}
}

// run drains due entries on a fixed interval until ctx is cancelled.
func (o *outbox) run(ctx context.Context) {
	interval := o.cfg.OutboxDrainInterval
	if interval <= 0 {
		interval = 50 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			o.drainOnShutdown()
			return
		case <-ticker.C:
			o.drainDue()
		}
	}
}

func (o *outbox) drainDue() {
	now := time.Now()
	o.mu.Lock()
	snapshotLen := len(o.pending)
	due := o.pending[:0:0]
	remaining := o.pending[:0:0]
	for _, e := range o.pending {
		if !e.nextAttemptAt.After(now) {
			due = append(due, e)
		} else {
			remaining = append(remaining, e)
		}
	}
	o.mu.Unlock()

	var retained []*entry
	for _, e := range due {
		if o.hub.deliver(e.envelope, e.targetRooms) {
			continue // delivered to every subscriber, drop the entry
		}
		e.attempts++
		if e.attempts >= maxAttempts(o.cfg) {
			o.log.Warn("outbox entry dropped after exhausting retry budget",
				"event_id", e.envelope.EventID, "event_type", e.envelope.EventType, "attempts", e.attempts)
			if o.m != nil {
				o.m.OutboxDropped.Inc()
			}
			continue
		}
		if o.m != nil {
			o.m.OutboxRetries.Inc()
		}
		e.nextAttemptAt = time.Now().Add(backoff(o.cfg, e.attempts))
		retained = append(retained, e)
	}

	o.mu.Lock()
	// Keep entries enqueued while this pass was delivering.
	added := o.pending[snapshotLen:]
	o.pending = append(append(remaining, retained...), added...)
	size := len(o.pending)
	o.mu.Unlock()
	if o.m != nil {
		o.m.OutboxSize.Set(float64(size))
	}
}

// drainOnShutdown makes one final best-effort delivery pass so subscribers
// connected at shutdown get whatever is still pending, per the two-phase
// shutdown sequence in SPEC_FULL.md section 5. It does not retry further.
func (o *outbox) drainOnShutdown() {
	o.mu.Lock()
	pending := o.pending
	o.pending = nil
	o.mu.Unlock()
	for _, e := range pending {
		o.hub.deliver(e.envelope, e.targetRooms)
	}
}

func maxAttempts(cfg Config) int {
	if cfg.OutboxMaxAttempts <= 0 {
		return 5
	}
	return cfg.OutboxMaxAttempts
}

// backoff computes an exponential delay from the configured base, doubling
// per attempt: attempt 1 -> base, attempt 2 -> 2*base, etc.
func backoff(cfg Config, attempt int) time.Duration {
	base := cfg.OutboxBaseBackoff
	if base <= 0 {
		base = 100 * time.Millisecond
	}
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
	}
	return d
}
