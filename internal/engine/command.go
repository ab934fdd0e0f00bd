package engine

import (
	"context"

	core "github.com/arung-agamani/musicbox-core/internal/core"
)

// PlayPlaylist implements the Command interface's play_playlist operation.
// Idempotency is a Broadcast Hub concern: when idempotencyKey is non-empty
// the call is deduplicated against the Hub's TTL cache before it ever
// reaches the coordinator, per SPEC_FULL.md section 4.F.
func (e *Engine) PlayPlaylist(ctx context.Context, playlistID string, trackNumber *int, idempotencyKey string) (*core.PlayerStatus, error) {
	result, err := e.Hub.Idempotent(idempotencyKey, func() (any, error) {
		return e.Coordinator.Play(ctx, playlistID, trackNumber)
	})
	return asStatus(result), err
}

// Control implements the Command interface's control operation.
func (e *Engine) Control(ctx context.Context, action core.ControlAction, idempotencyKey string) (*core.PlayerStatus, error) {
	result, err := e.Hub.Idempotent(idempotencyKey, func() (any, error) {
		return e.Coordinator.Control(ctx, action)
	})
	return asStatus(result), err
}

// Seek implements the Command interface's seek operation.
func (e *Engine) Seek(ctx context.Context, positionMs int64) error {
	_, err := e.Coordinator.Seek(ctx, positionMs)
	return err
}

// SetVolume implements the Command interface's set_volume operation.
func (e *Engine) SetVolume(ctx context.Context, percent int) error {
	_, err := e.Coordinator.SetVolume(ctx, percent)
	return err
}

// GetStatus implements the Command interface's get_status operation.
func (e *Engine) GetStatus(ctx context.Context) (*core.PlayerStatus, error) {
	return e.Coordinator.GetStatus(ctx)
}

// StartNFCAssociation implements the Command interface's
// start_nfc_association operation.
func (e *Engine) StartNFCAssociation(playlistID string, timeoutSeconds int) (core.SessionDescriptor, error) {
	return e.NFC.StartSession(playlistID, timeoutSeconds)
}

// CancelNFCAssociation implements the Command interface's
// cancel_nfc_association operation.
func (e *Engine) CancelNFCAssociation(sessionID string) error {
	return e.NFC.CancelSession(sessionID)
}

// GetNFCStatus implements the Command interface's get_nfc_status operation.
func (e *Engine) GetNFCStatus() core.NFCStatus {
	return e.NFC.Status()
}

// Subscribe implements the Event interface's subscribe operation.
func (e *Engine) Subscribe(ctx context.Context, clientID, room string) (core.Envelope, <-chan core.Envelope, func()) {
	return e.Hub.Subscribe(ctx, clientID, room)
}

// Unsubscribe implements the Event interface's unsubscribe operation.
func (e *Engine) Unsubscribe(clientID, room string) {
	e.Hub.Unsubscribe(clientID, room)
}

func asStatus(v any) *core.PlayerStatus {
	if v == nil {
		return nil
	}
	status, _ := v.(*core.PlayerStatus)
	return status
}
