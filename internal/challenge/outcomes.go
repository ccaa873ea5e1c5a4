package challenge

import (
	"errors"
	"sync"

	"tavern/pkg/protocol"
)

// ErrDuplicateResolution indicates a resolution_id that is already pending.
var ErrDuplicateResolution = errors.New("challenge resolution already pending")

// PendingOutcome is a resolved challenge awaiting DM approval. Created on
// a ChallengeResolved carrying a resolution_id; removed when the DM
// finalizes or discards it.
type PendingOutcome struct {
	ResolutionID           string                   `json:"resolution_id"`
	ChallengeName          string                   `json:"challenge_name"`
	CharacterID            string                   `json:"character_id"`
	CharacterName          string                   `json:"character_name"`
	Roll                   int                      `json:"roll"`
	Modifier               int                      `json:"modifier"`
	Total                  int                      `json:"total"`
	OutcomeType            string                   `json:"outcome_type"`
	OutcomeDescription     string                   `json:"outcome_description"`
	OutcomeTriggers        []string                 `json:"outcome_triggers,omitempty"`
	RollBreakdown          *string                  `json:"roll_breakdown,omitempty"`
	Suggestions            []string                 `json:"suggestions,omitempty"`
	Branches               []protocol.OutcomeBranch `json:"branches,omitempty"`
	IsGeneratingSuggestions bool                    `json:"is_generating_suggestions"`
}

// OutcomeFromResolved builds a pending outcome from a DM-flow resolution.
func OutcomeFromResolved(msg *protocol.ChallengeResolved) *PendingOutcome {
	return &PendingOutcome{
		ResolutionID:       msg.ResolutionID,
		ChallengeName:      msg.ChallengeName,
		CharacterID:        msg.CharacterID,
		CharacterName:      msg.CharacterName,
		Roll:               msg.Roll,
		Modifier:           msg.Modifier,
		Total:              msg.Total,
		OutcomeType:        msg.Outcome,
		OutcomeDescription: msg.OutcomeDescription,
		OutcomeTriggers:    msg.OutcomeTriggers,
		RollBreakdown:      msg.RollBreakdown,
		Suggestions:        msg.Suggestions,
		Branches:           msg.Branches,
	}
}

// Outcomes is the DM-side set of pending challenge outcomes, keyed by
// resolution_id.
type Outcomes struct {
	mu    sync.RWMutex
	byID  map[string]*PendingOutcome
	order []string
}

// NewOutcomes returns an empty pending-outcomes set.
func NewOutcomes() *Outcomes {
	return &Outcomes{byID: make(map[string]*PendingOutcome)}
}

// Add registers a pending outcome. A duplicate resolution_id is a protocol
// violation; the original is kept.
func (o *Outcomes) Add(p *PendingOutcome) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if _, exists := o.byID[p.ResolutionID]; exists {
		return ErrDuplicateResolution
	}
	o.byID[p.ResolutionID] = p
	o.order = append(o.order, p.ResolutionID)
	return nil
}

// Get returns a pending outcome by resolution_id.
func (o *Outcomes) Get(resolutionID string) (*PendingOutcome, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	p, ok := o.byID[resolutionID]
	return p, ok
}

// List returns pending outcomes in arrival order.
func (o *Outcomes) List() []*PendingOutcome {
	o.mu.RLock()
	defer o.mu.RUnlock()

	result := make([]*PendingOutcome, 0, len(o.order))
	for _, id := range o.order {
		result = append(result, o.byID[id])
	}
	return result
}

// Count returns the number of pending outcomes.
func (o *Outcomes) Count() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.byID)
}

// ApplyRegenerated replaces the outcome's description, suggestions and
// branches. Returns false when the id is no longer pending: the DM already
// resolved it, and last-writer-loses is acceptable.
func (o *Outcomes) ApplyRegenerated(msg *protocol.OutcomeRegenerated) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	p, ok := o.byID[msg.ResolutionID]
	if !ok {
		return false
	}
	if msg.OutcomeType != "" {
		p.OutcomeType = msg.OutcomeType
	}
	if msg.OutcomeDescription != "" {
		p.OutcomeDescription = msg.OutcomeDescription
	}
	p.Suggestions = msg.Suggestions
	p.Branches = msg.Branches
	p.IsGeneratingSuggestions = false
	return true
}

// ApplySuggestions attaches generated suggestions to a pending outcome.
func (o *Outcomes) ApplySuggestions(resolutionID string, suggestions []string, branches []protocol.OutcomeBranch) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	p, ok := o.byID[resolutionID]
	if !ok {
		return false
	}
	p.Suggestions = suggestions
	p.Branches = branches
	p.IsGeneratingSuggestions = false
	return true
}

// SetGenerating flags a pending outcome as waiting on suggestion
// generation.
func (o *Outcomes) SetGenerating(resolutionID string, generating bool) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	p, ok := o.byID[resolutionID]
	if !ok {
		return false
	}
	p.IsGeneratingSuggestions = generating
	return true
}

// Remove drops a pending outcome, either because the DM finalized it or
// because the server confirmed a discard. Returns false when unknown.
func (o *Outcomes) Remove(resolutionID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if _, ok := o.byID[resolutionID]; !ok {
		return false
	}
	delete(o.byID, resolutionID)
	for i, id := range o.order {
		if id == resolutionID {
			o.order = append(o.order[:i], o.order[i+1:]...)
			break
		}
	}
	return true
}

// Clear drops all pending outcomes. Used when leaving a session.
func (o *Outcomes) Clear() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.byID = make(map[string]*PendingOutcome)
	o.order = nil
}
