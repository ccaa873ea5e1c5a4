package approval

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tavern/pkg/protocol"
)

type fakeSender struct {
	sent []protocol.ClientMessage
	err  error
}

func (s *fakeSender) SendMessage(msg protocol.ClientMessage) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

type fakeStore struct {
	entries []HistoryEntry
}

func (s *fakeStore) AppendHistory(entry HistoryEntry) error {
	s.entries = append(s.entries, entry)
	return nil
}

func fixedClock() func() time.Time {
	ts := time.Date(2026, 3, 14, 20, 0, 0, 0, time.UTC)
	return func() time.Time { return ts }
}

func newTestManager() (*Manager, *fakeSender, *fakeStore) {
	sender := &fakeSender{}
	store := &fakeStore{}
	m := NewManager(sender, store)
	m.SetClock(fixedClock())
	return m, sender, store
}

func TestAddPending(t *testing.T) {
	m, _, _ := newTestManager()

	require.NoError(t, m.AddPending(&PendingApproval{RequestID: "r1", NPCName: "Innkeeper"}))
	assert.Equal(t, 1, m.PendingCount())

	p, ok := m.Get("r1")
	require.True(t, ok)
	assert.Equal(t, "Innkeeper", p.NPCName)
	assert.False(t, p.ReceivedAt.IsZero())
}

func TestAddPendingDuplicateKeepsOriginal(t *testing.T) {
	m, _, _ := newTestManager()

	require.NoError(t, m.AddPending(&PendingApproval{RequestID: "r1", NPCName: "Innkeeper"}))
	err := m.AddPending(&PendingApproval{RequestID: "r1", NPCName: "Impostor"})
	require.ErrorIs(t, err, ErrDuplicateRequest)

	assert.Equal(t, 1, m.PendingCount())
	p, _ := m.Get("r1")
	assert.Equal(t, "Innkeeper", p.NPCName, "the original pending request is kept")
}

func TestRecordDecision(t *testing.T) {
	tests := []struct {
		name     string
		decision protocol.Decision
		outcome  string
	}{
		{"accept", protocol.Accept{}, "accepted"},
		{"modify", protocol.AcceptWithModification{ModifiedDialogue: "softer"}, "modified"},
		{"reject", protocol.Reject{Feedback: "off tone"}, "rejected"},
		{"take over", protocol.TakeOver{DMResponse: "my line"}, "takeover"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, sender, store := newTestManager()
			require.NoError(t, m.AddPending(&PendingApproval{RequestID: "r1", NPCName: "Innkeeper"}))

			require.NoError(t, m.RecordDecision("r1", tt.decision))

			_, stillPending := m.Get("r1")
			assert.False(t, stillPending)

			history := m.History()
			require.Len(t, history, 1)
			assert.Equal(t, "r1", history[0].RequestID)
			assert.Equal(t, tt.outcome, history[0].Outcome)
			assert.Equal(t, fixedClock()(), history[0].Timestamp)

			require.Len(t, sender.sent, 1)
			sent, ok := sender.sent[0].(protocol.ApprovalDecision)
			require.True(t, ok)
			assert.Equal(t, "r1", sent.RequestID)
			assert.Equal(t, tt.decision, sent.Decision)

			require.Len(t, store.entries, 1)
			assert.Equal(t, history[0], store.entries[0])
		})
	}
}

func TestRecordDecisionUnknownRequest(t *testing.T) {
	m, sender, _ := newTestManager()

	err := m.RecordDecision("nope", protocol.Accept{})
	require.ErrorIs(t, err, ErrRequestNotFound)
	assert.Empty(t, sender.sent)
	assert.Empty(t, m.History())
}

func TestRecordDecisionTwiceIsNoOpForHistory(t *testing.T) {
	m, _, _ := newTestManager()
	require.NoError(t, m.AddPending(&PendingApproval{RequestID: "r1"}))
	require.NoError(t, m.RecordDecision("r1", protocol.Accept{}))

	err := m.RecordDecision("r1", protocol.Reject{Feedback: "changed my mind"})
	require.ErrorIs(t, err, ErrRequestNotFound)
	assert.Len(t, m.History(), 1, "exactly one history entry per request_id")
}

func TestRecordDecisionSendFailureStillRetires(t *testing.T) {
	sender := &fakeSender{err: errors.New("boom")}
	m := NewManager(sender, nil)
	m.SetClock(fixedClock())
	require.NoError(t, m.AddPending(&PendingApproval{RequestID: "r1"}))

	err := m.RecordDecision("r1", protocol.Accept{})
	require.Error(t, err)

	_, stillPending := m.Get("r1")
	assert.False(t, stillPending)
	assert.Len(t, m.History(), 1)
}

func TestRecordDecisionNilVariant(t *testing.T) {
	m, _, _ := newTestManager()
	require.NoError(t, m.AddPending(&PendingApproval{RequestID: "r1"}))

	require.ErrorIs(t, m.RecordDecision("r1", nil), ErrNoDecision)
	assert.Equal(t, 1, m.PendingCount())
}

func TestPendingOrder(t *testing.T) {
	m, _, _ := newTestManager()
	for _, id := range []string{"r1", "r2", "r3"} {
		require.NoError(t, m.AddPending(&PendingApproval{RequestID: id}))
	}
	require.NoError(t, m.RecordDecision("r2", protocol.Accept{}))

	pending := m.Pending()
	require.Len(t, pending, 2)
	assert.Equal(t, "r1", pending[0].RequestID)
	assert.Equal(t, "r3", pending[1].RequestID)
}

func TestClearDropsPendingKeepsHistory(t *testing.T) {
	m, _, _ := newTestManager()
	require.NoError(t, m.AddPending(&PendingApproval{RequestID: "r1"}))
	require.NoError(t, m.RecordDecision("r1", protocol.Accept{}))
	require.NoError(t, m.AddPending(&PendingApproval{RequestID: "r2"}))

	m.Clear()
	assert.Zero(t, m.PendingCount())
	assert.Len(t, m.History(), 1)
}
