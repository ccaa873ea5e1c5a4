// Package challenge tracks the active dice-challenge prompt through
// submission, server-side resolution, and DM outcome approval.
package challenge

import (
	"errors"
	"sync"

	"tavern/pkg/protocol"
)

// RollState is the player-facing submission state for the active
// challenge. Transitions are strictly forward; only Clear resets.
type RollState int

const (
	NotSubmitted RollState = iota
	AwaitingApproval
	ResultReady
	Dismissed
)

func (s RollState) String() string {
	switch s {
	case NotSubmitted:
		return "not_submitted"
	case AwaitingApproval:
		return "awaiting_approval"
	case ResultReady:
		return "result_ready"
	case Dismissed:
		return "dismissed"
	default:
		return "unknown"
	}
}

var (
	// ErrNoActiveChallenge indicates a roll without an active prompt.
	ErrNoActiveChallenge = errors.New("no active challenge")

	// ErrInvalidRollTransition indicates an out-of-order submission or
	// resolution, e.g. a result before a roll was submitted.
	ErrInvalidRollTransition = errors.New("invalid roll state transition")
)

// Submission holds the client-computed provisional values shown while the
// server resolves the roll. They are discarded when the authoritative
// result arrives.
type Submission struct {
	Roll     int    `json:"roll"`
	Modifier int    `json:"modifier"`
	Total    int    `json:"total"`
	Outcome  string `json:"outcome,omitempty"`
}

// Workflow drives the player-facing roll experience. Only one challenge is
// active per client at a time.
type Workflow struct {
	mu         sync.RWMutex
	prompt     *protocol.ChallengePrompt
	state      RollState
	submission *Submission
	result     *protocol.ChallengeResolved
}

// NewWorkflow returns a workflow with no active challenge.
func NewWorkflow() *Workflow {
	return &Workflow{state: NotSubmitted}
}

// SetPrompt activates a challenge prompt, replacing any previous one and
// resetting the roll state. No queueing of simultaneous prompts.
func (w *Workflow) SetPrompt(prompt *protocol.ChallengePrompt) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.prompt = prompt
	w.state = NotSubmitted
	w.submission = nil
	w.result = nil
}

// Prompt returns the active challenge prompt, if any.
func (w *Workflow) Prompt() (*protocol.ChallengePrompt, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.prompt, w.prompt != nil
}

// State returns the current roll state.
func (w *Workflow) State() RollState {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.state
}

// Submission returns the provisional client-side values, valid while
// awaiting approval.
func (w *Workflow) Submission() (*Submission, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.submission, w.submission != nil
}

// Result returns the authoritative server result once ready.
func (w *Workflow) Result() (*protocol.ChallengeResolved, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.result, w.result != nil
}

// Submit records a roll for the active challenge and moves NotSubmitted ->
// AwaitingApproval. The modifier and total are provisional until the
// server resolves.
func (w *Workflow) Submit(roll, modifier int, outcomeHint string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.prompt == nil {
		return ErrNoActiveChallenge
	}
	if w.state != NotSubmitted {
		return ErrInvalidRollTransition
	}

	w.state = AwaitingApproval
	w.submission = &Submission{
		Roll:     roll,
		Modifier: modifier,
		Total:    roll + modifier,
		Outcome:  outcomeHint,
	}
	return nil
}

// Resolve applies the authoritative server result and moves
// AwaitingApproval -> ResultReady. Provisional values are discarded. A
// resolution without a prior submission is rejected: no transition skips a
// state.
func (w *Workflow) Resolve(result *protocol.ChallengeResolved) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state != AwaitingApproval {
		return ErrInvalidRollTransition
	}

	w.state = ResultReady
	w.submission = nil
	w.result = result
	return nil
}

// DismissResult moves ResultReady -> Dismissed. Only the UI triggers this,
// never the dispatcher.
func (w *Workflow) DismissResult() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state != ResultReady {
		return ErrInvalidRollTransition
	}
	w.state = Dismissed
	return nil
}

// Clear resets to NotSubmitted and drops the active prompt. Used when
// leaving the scene or on disconnect.
func (w *Workflow) Clear() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.prompt = nil
	w.state = NotSubmitted
	w.submission = nil
	w.result = nil
}
