// Package approval tracks outstanding DM-approval requests, applies DM
// decisions, and maintains the decision history.
package approval

import (
	"sync"
	"time"

	"tavern/pkg/logger"
	"tavern/pkg/protocol"
)

// PendingApproval is an NPC response awaiting a DM decision. Created on
// ApprovalRequired; destroyed when a decision is recorded for its
// request_id, at most once. There is no timeout expiry: a request stays
// pending until the DM decides.
type PendingApproval struct {
	RequestID                string                             `json:"request_id"`
	NPCName                  string                             `json:"npc_name"`
	ProposedDialogue         string                             `json:"proposed_dialogue"`
	InternalReasoning        string                             `json:"internal_reasoning,omitempty"`
	ProposedTools            []protocol.ToolCall                `json:"proposed_tools,omitempty"`
	ChallengeSuggestion      *protocol.ChallengeSuggestion      `json:"challenge_suggestion,omitempty"`
	NarrativeEventSuggestion *protocol.NarrativeEventSuggestion `json:"narrative_event_suggestion,omitempty"`
	ReceivedAt               time.Time                          `json:"received_at"`
}

// HistoryEntry records one resolved approval. Appended once per decision,
// never mutated afterward.
type HistoryEntry struct {
	RequestID string    `json:"request_id"`
	NPCName   string    `json:"npc_name"`
	Outcome   string    `json:"outcome"` // accepted|modified|rejected|takeover
	Timestamp time.Time `json:"timestamp"`
}

// Sender transmits the outbound decision message. The session client is
// the production implementation.
type Sender interface {
	SendMessage(msg protocol.ClientMessage) error
}

// HistoryStore persists resolved decisions. Implementations must tolerate
// a nil receiver so the workflow runs without a database.
type HistoryStore interface {
	AppendHistory(entry HistoryEntry) error
}

// Manager owns the pending-approvals set and the decision history. Mutated
// only by the event dispatcher (inbound) and DM decision calls (outbound),
// one writer at a time.
type Manager struct {
	mu      sync.RWMutex
	pending map[string]*PendingApproval
	order   []string // request_ids in arrival order
	history []HistoryEntry

	sender Sender
	store  HistoryStore
	now    func() time.Time
}

// NewManager creates a manager. sender is required for RecordDecision;
// store may be nil for ephemeral sessions.
func NewManager(sender Sender, store HistoryStore) *Manager {
	return &Manager{
		pending: make(map[string]*PendingApproval),
		sender:  sender,
		store:   store,
		now:     time.Now,
	}
}

// SetClock overrides the timestamp source. Intended for tests.
func (m *Manager) SetClock(now func() time.Time) {
	m.now = now
}

// AddPending registers a new approval request. A duplicate request_id is a
// protocol violation: the original is kept and ErrDuplicateRequest
// returned for the caller to log.
func (m *Manager) AddPending(p *PendingApproval) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.pending[p.RequestID]; exists {
		return ErrDuplicateRequest
	}
	if p.ReceivedAt.IsZero() {
		p.ReceivedAt = m.now()
	}
	m.pending[p.RequestID] = p
	m.order = append(m.order, p.RequestID)
	return nil
}

// RecordDecision sends the DM's decision, appends exactly one history
// entry with the normalized outcome label, and retires the pending
// request. This is the only path by which a pending approval is retired.
// A decision for an unknown request_id skips all local bookkeeping.
func (m *Manager) RecordDecision(requestID string, decision protocol.Decision) error {
	if decision == nil {
		return ErrNoDecision
	}

	m.mu.Lock()
	p, ok := m.pending[requestID]
	if !ok {
		m.mu.Unlock()
		return ErrRequestNotFound
	}
	delete(m.pending, requestID)
	for i, id := range m.order {
		if id == requestID {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	entry := HistoryEntry{
		RequestID: requestID,
		NPCName:   p.NPCName,
		Outcome:   decision.Label(),
		Timestamp: m.now(),
	}
	m.history = append(m.history, entry)
	m.mu.Unlock()

	if err := m.sender.SendMessage(protocol.ApprovalDecision{
		RequestID: requestID,
		Decision:  decision,
	}); err != nil {
		// The decision is recorded locally either way; the server will
		// re-prompt if it never saw it.
		logger.Error().Err(err).Str("request_id", requestID).Msg("Failed to send approval decision")
		return err
	}

	if m.store != nil {
		if err := m.store.AppendHistory(entry); err != nil {
			logger.Warn().Err(err).Str("request_id", requestID).Msg("Failed to persist approval history")
		}
	}

	logger.Info().
		Str("request_id", requestID).
		Str("npc", p.NPCName).
		Str("outcome", entry.Outcome).
		Msg("Approval decision recorded")
	return nil
}

// Get returns a pending approval by id.
func (m *Manager) Get(requestID string) (*PendingApproval, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.pending[requestID]
	return p, ok
}

// Pending returns all pending approvals in arrival order.
func (m *Manager) Pending() []*PendingApproval {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*PendingApproval, 0, len(m.order))
	for _, id := range m.order {
		result = append(result, m.pending[id])
	}
	return result
}

// PendingCount returns the number of pending approvals.
func (m *Manager) PendingCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.pending)
}

// History returns the recorded decisions, oldest first.
func (m *Manager) History() []HistoryEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]HistoryEntry, len(m.history))
	copy(result, m.history)
	return result
}

// Clear drops all pending approvals without recording decisions. Used when
// leaving a session; history is kept.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = make(map[string]*PendingApproval)
	m.order = nil
}
