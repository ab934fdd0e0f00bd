package audio_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/arung-agamani/musicbox-core/internal/core/audio"
)

func TestMockBackend_PlayReportsPositionAndDuration(t *testing.T) {
	defer goleak.VerifyNone(t)
	m := audio.NewMockBackend()
	m.SetDuration("track1.mp3", 5000)

	require.NoError(t, m.Play(context.Background(), "track1.mp3", 0))

	pos, ok := m.GetPosition()
	require.True(t, ok)
	assert.Zero(t, pos)

	dur, ok := m.GetDuration()
	require.True(t, ok)
	assert.EqualValues(t, 5000, dur)
}

func TestMockBackend_AdvancePositionCapsAtDuration(t *testing.T) {
	defer goleak.VerifyNone(t)
	m := audio.NewMockBackend()
	m.SetDuration("track1.mp3", 1000)
	require.NoError(t, m.Play(context.Background(), "track1.mp3", 0))

	m.AdvancePosition(1500)

	pos, ok := m.GetPosition()
	require.True(t, ok)
	assert.EqualValues(t, 1000, pos)
}

func TestMockBackend_EndInvokesCallbackExactlyOnce(t *testing.T) {
	defer goleak.VerifyNone(t)
	m := audio.NewMockBackend()
	m.SetDuration("track1.mp3", 1000)
	require.NoError(t, m.Play(context.Background(), "track1.mp3", 0))

	calls := 0
	m.OnTrackEnded(func() { calls++ })
	m.End()

	assert.Equal(t, 1, calls)
	pos, ok := m.GetPosition()
	require.True(t, ok, "End does not clear the loaded track, only Stop does")
	assert.Zero(t, pos)
}

func TestMockBackend_FailPlayIsOneShot(t *testing.T) {
	defer goleak.VerifyNone(t)
	m := audio.NewMockBackend()
	boom := assert.AnError
	m.FailPlay = boom

	err := m.Play(context.Background(), "track1.mp3", 0)
	assert.ErrorIs(t, err, boom)

	err = m.Play(context.Background(), "track1.mp3", 0)
	assert.NoError(t, err, "FailPlay must reset after one use")
}
