package conn

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackerStartsDisconnected(t *testing.T) {
	tr := NewTracker()
	assert.Equal(t, Disconnected, tr.State())
}

func TestTrackerAllowedTransitions(t *testing.T) {
	tests := []struct {
		name string
		path []State
	}{
		{"connect success", []State{Connecting, Connected}},
		{"connect failure", []State{Connecting, Failed}},
		{"loss and recover", []State{Connecting, Connected, Reconnecting, Connected}},
		{"loss and give up", []State{Connecting, Connected, Reconnecting, Failed}},
		{"failed is recoverable", []State{Connecting, Failed, Connecting, Connected}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := NewTracker()
			for _, next := range tt.path {
				require.NoError(t, tr.Transition(next))
			}
			assert.Equal(t, tt.path[len(tt.path)-1], tr.State())
		})
	}
}

func TestTrackerNeverSkipsConnecting(t *testing.T) {
	tr := NewTracker()
	err := tr.Transition(Connected)
	require.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, Disconnected, tr.State())
}

func TestTrackerRejectsInvalidTransitions(t *testing.T) {
	tests := []struct {
		name string
		from []State
		to   State
	}{
		{"disconnected to reconnecting", nil, Reconnecting},
		{"disconnected to failed", nil, Failed},
		{"connecting to reconnecting", []State{Connecting}, Reconnecting},
		{"connected to connecting", []State{Connecting, Connected}, Connecting},
		{"connected to failed", []State{Connecting, Connected}, Failed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := NewTracker()
			for _, s := range tt.from {
				require.NoError(t, tr.Transition(s))
			}
			assert.ErrorIs(t, tr.Transition(tt.to), ErrInvalidTransition)
		})
	}
}

func TestTrackerNotifiesEveryTransitionOnce(t *testing.T) {
	tr := NewTracker()
	var seen []State
	tr.Subscribe(func(s State) { seen = append(seen, s) })

	require.NoError(t, tr.Transition(Connecting))
	require.NoError(t, tr.Transition(Connected))
	require.NoError(t, tr.Transition(Reconnecting))
	require.NoError(t, tr.Transition(Connected))

	assert.Equal(t, []State{Connecting, Connected, Reconnecting, Connected}, seen,
		"no coalescing, no skipped intermediate states")
}

func TestForceDisconnect(t *testing.T) {
	for _, start := range [][]State{
		{Connecting},
		{Connecting, Connected},
		{Connecting, Connected, Reconnecting},
		{Connecting, Failed},
	} {
		tr := NewTracker()
		for _, s := range start {
			require.NoError(t, tr.Transition(s))
		}
		tr.ForceDisconnect()
		assert.Equal(t, Disconnected, tr.State())
	}
}

func TestForceDisconnectWhileDisconnectedDoesNotNotify(t *testing.T) {
	tr := NewTracker()
	calls := 0
	tr.Subscribe(func(State) { calls++ })

	tr.ForceDisconnect()
	assert.Zero(t, calls)
}

func TestReconnectPolicyBackoff(t *testing.T) {
	p := DefaultReconnectPolicy()

	assert.Equal(t, 1*time.Second, p.NextDelay(0))
	assert.Equal(t, 2*time.Second, p.NextDelay(1))
	assert.Equal(t, 4*time.Second, p.NextDelay(2))
	assert.Equal(t, 8*time.Second, p.NextDelay(3))
	assert.Equal(t, 16*time.Second, p.NextDelay(4))
	assert.Equal(t, 16*time.Second, p.NextDelay(10), "delay is capped at MaxDelay")
}

func TestReconnectorEpisode(t *testing.T) {
	r := NewReconnector(ReconnectPolicy{
		MaxRetries:   2,
		InitialDelay: time.Second,
		MaxDelay:     4 * time.Second,
		Multiplier:   2.0,
	})

	require.True(t, r.ShouldRetry())
	assert.Equal(t, time.Second, r.NextDelay())
	require.True(t, r.ShouldRetry())
	assert.Equal(t, 2*time.Second, r.NextDelay())
	assert.False(t, r.ShouldRetry(), "retries exhausted")

	r.Reset()
	assert.True(t, r.ShouldRetry())
	assert.Zero(t, r.RetryCount())
}
