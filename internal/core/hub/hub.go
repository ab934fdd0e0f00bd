// Package hub implements the Broadcast Hub (component F): sequence numbers,
// rooms/subscriptions, snapshot-on-subscribe, idempotency cache, and an
// at-least-once outbox. Grounded on the teacher's internal/radio.Broadcaster
// pub-sub fan-out (clientSub channels, non-blocking writer-side send,
// per-client unsubscribe), generalized from one implicit "stream" room to
// named rooms and from best-effort delivery to a retrying outbox.
package hub

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	core "github.com/arung-agamani/musicbox-core/internal/core"
	"github.com/arung-agamani/musicbox-core/internal/core/metrics"
)

// SnapshotProvider builds the full current-state payload for each snapshot
// room. The Hub calls back into it immediately after recording a new
// subscription. A failing provider yields an empty payload, logged but
// non-fatal: the subscription still stands, per SPEC_FULL.md section 4.F.
type SnapshotProvider interface {
	PlaylistsSnapshot(ctx context.Context) (any, error)
	PlaylistSnapshot(ctx context.Context, playlistID string) (any, error)
	PlayerSnapshot(ctx context.Context) (any, error)
	NFCSnapshot(ctx context.Context) (any, error)
}

// Config bounds the Hub's background resource usage.
type Config struct {
	SubscriberBuffer int           // per-subscriber channel buffer depth
	OutboxMaxAttempts int          // retry budget before a non-ephemeral entry is dropped
	OutboxBaseBackoff time.Duration // first retry delay; doubles per attempt
	OutboxDrainInterval time.Duration
	IdempotencyTTL    time.Duration
	IdempotencySweep  time.Duration
}

// DefaultConfig matches the recommended defaults from SPEC_FULL.md section 9:
// 10 minute idempotency TTL, 5 retry attempts from a 100ms base backoff.
func DefaultConfig() Config {
	return Config{
		SubscriberBuffer:    64,
		OutboxMaxAttempts:   5,
		OutboxBaseBackoff:   100 * time.Millisecond,
		OutboxDrainInterval: 50 * time.Millisecond,
		IdempotencyTTL:      10 * time.Minute,
		IdempotencySweep:    time.Minute,
	}
}

// Hub is the Broadcast Hub. Construct with New, then call Run(ctx) in its
// own goroutine to start the outbox drain and idempotency sweep workers.
type Hub struct {
	cfg Config
	log *slog.Logger
	m   *metrics.Metrics

	snapshots SnapshotProvider

	serverSeq atomic.Int64

	mu            sync.Mutex // guards playlistSeq, subs, below
	playlistSeq   map[string]*atomic.Int64
	subs          map[string]map[string]chan core.Envelope // room -> clientID -> chan

	idem *idempotencyCache
	box  *outbox
}

// New constructs a Hub. snapshots may be nil in tests that never subscribe.
func New(cfg Config, snapshots SnapshotProvider, m *metrics.Metrics, log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	h := &Hub{
		cfg:         cfg,
		log:         log,
		m:           m,
		snapshots:   snapshots,
		playlistSeq: make(map[string]*atomic.Int64),
		subs:        make(map[string]map[string]chan core.Envelope),
		idem:        newIdempotencyCache(cfg.IdempotencyTTL, cfg.IdempotencySweep),
	}
	h.box = newOutbox(h, cfg, m, log)
	return h
}

// Run starts the Hub's background workers and blocks until ctx is
// cancelled. Intended to be run under an errgroup alongside the
// coordinator's workers.
func (h *Hub) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); h.box.run(ctx) }()
	go func() { defer wg.Done(); h.idem.run(ctx) }()
	wg.Wait()
	return nil
}

// nextPlaylistSeq returns the *atomic.Int64 counter for playlistID,
// creating it on first use. Caller must hold h.mu.
func (h *Hub) nextPlaylistSeq(playlistID string) *atomic.Int64 {
	c, ok := h.playlistSeq[playlistID]
	if !ok {
		c = &atomic.Int64{}
		h.playlistSeq[playlistID] = c
	}
	return c
}

// roomsForEvent maps an event type and optional playlist scope to the set
// of rooms that should receive it.
func roomsForEvent(eventType core.EventType, playlistID string) []string {
	switch eventType {
	case core.EventNFCAssociated, core.EventNFCDuplicate, core.EventNFCTimeout, core.EventNFCCancelled, core.EventNFCError:
		return []string{core.RoomNFC}
	case core.EventStatePlaylists:
		return []string{core.RoomPlaylists}
	case core.EventStatePlaylist:
		return []string{core.RoomForPlaylist(playlistID)}
	case core.EventStatePlayer:
		return []string{core.RoomPlayer}
	default:
		rooms := []string{core.RoomPlayer}
		if playlistID != "" {
			rooms = append(rooms, core.RoomForPlaylist(playlistID))
		}
		return rooms
	}
}

// Publish assigns sequence numbers to a new event and enqueues it for
// delivery. position_changed events bypass the outbox's retry machinery
// entirely, matching SPEC_FULL.md's "ephemeral" classification.
func (h *Hub) Publish(eventType core.EventType, playlistID string, data any) core.Envelope {
	env := core.Envelope{
		EventID:     uuid.NewString(),
		EventType:   eventType,
		ServerSeq:   h.serverSeq.Add(1),
		TimestampMs: time.Now().UnixMilli(),
		PlaylistID:  playlistID,
		Data:        data,
	}
	if playlistID != "" {
		h.mu.Lock()
		c := h.nextPlaylistSeq(playlistID)
		h.mu.Unlock()
		seq := c.Add(1)
		env.PlaylistSeq = &seq
	}
	if h.m != nil {
		h.m.ServerSeq.Set(float64(env.ServerSeq))
		h.m.EventsPublished.WithLabelValues(string(eventType)).Inc()
	}

	rooms := roomsForEvent(eventType, playlistID)
	if eventType == core.EventPositionChanged {
		h.deliverBestEffort(env, rooms)
		return env
	}
	h.box.enqueue(env, rooms)
	return env
}

// deliverBestEffort fans out an envelope immediately without outbox
// tracking, dropping on any full subscriber channel.
func (h *Hub) deliverBestEffort(env core.Envelope, rooms []string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, room := range rooms {
		for _, ch := range h.subs[room] {
			select {
			case ch <- env:
			default:
			}
		}
	}
}

// deliver attempts to fan out env to every subscriber of rooms, returning
// false if at least one subscriber's channel was full (a delivery
// failure warranting a retry at the outbox level).
func (h *Hub) deliver(env core.Envelope, rooms []string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	ok := true
	for _, room := range rooms {
		for _, ch := range h.subs[room] {
			select {
			case ch <- env:
			default:
				ok = false
			}
		}
	}
	return ok
}

// Subscribe records a subscription for clientID to room and returns an
// immediate snapshot plus a channel of subsequent events. Calling the
// returned unsubscribe function removes the pairing.
func (h *Hub) Subscribe(ctx context.Context, clientID, room string) (core.Envelope, <-chan core.Envelope, func()) {
	ch := make(chan core.Envelope, h.cfg.SubscriberBuffer)

	h.mu.Lock()
	if h.subs[room] == nil {
		h.subs[room] = make(map[string]chan core.Envelope)
	}
	h.subs[room][clientID] = ch
	h.mu.Unlock()

	snapshot := h.buildSnapshot(ctx, room)
	unsubscribe := func() { h.Unsubscribe(clientID, room) }
	return snapshot, ch, unsubscribe
}

// Unsubscribe removes clientID's pairing with room, if any.
func (h *Hub) Unsubscribe(clientID, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if clients, ok := h.subs[room]; ok {
		if ch, ok := clients[clientID]; ok {
			close(ch)
			delete(clients, clientID)
		}
	}
}

// UnsubscribeAll removes every pairing for clientID across all rooms,
// called on client disconnection.
func (h *Hub) UnsubscribeAll(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for room, clients := range h.subs {
		if ch, ok := clients[clientID]; ok {
			close(ch)
			delete(clients, clientID)
		}
		_ = room
	}
}

func (h *Hub) buildSnapshot(ctx context.Context, room string) core.Envelope {
	var (
		eventType core.EventType
		data      any
		err       error
	)
	switch {
	case room == core.RoomPlaylists:
		eventType = core.EventStatePlaylists
		if h.snapshots != nil {
			data, err = h.snapshots.PlaylistsSnapshot(ctx)
		}
	case room == core.RoomPlayer:
		eventType = core.EventStatePlayer
		if h.snapshots != nil {
			data, err = h.snapshots.PlayerSnapshot(ctx)
		}
	case room == core.RoomNFC:
		eventType = core.EventStateNFC
		if h.snapshots != nil {
			data, err = h.snapshots.NFCSnapshot(ctx)
		}
	default:
		eventType = core.EventStatePlaylist
		playlistID := room[len("playlist:"):]
		if h.snapshots != nil {
			data, err = h.snapshots.PlaylistSnapshot(ctx, playlistID)
		}
	}
	if err != nil {
		h.log.Warn("snapshot build failed, sending empty payload", "room", room, "error", err)
		data = nil
	}
	return core.Envelope{
		EventID:     uuid.NewString(),
		EventType:   eventType,
		ServerSeq:   h.serverSeq.Load(),
		TimestampMs: time.Now().UnixMilli(),
		Data:        data,
	}
}

// Idempotent executes fn only if key has not been seen within the TTL
// window; otherwise it returns the cached result without re-executing fn
// or emitting any new events. Concurrent callers sharing the same in-flight
// key are collapsed onto a single execution via singleflight.
func (h *Hub) Idempotent(key string, fn func() (any, error)) (any, error) {
	if key == "" {
		return fn()
	}
	return h.idem.execute(key, fn)
}
