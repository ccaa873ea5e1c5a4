// Package protocol defines the tagged-message wire protocol spoken between
// the client and the Engine server. Every message is a single JSON object
// with a string discriminator field "type" and the variant's fields inline.
package protocol

import "encoding/json"

// Role identifies a participant's role in a session. Immutable once joined.
type Role string

const (
	RoleDungeonMaster Role = "DungeonMaster"
	RolePlayer        Role = "Player"
	RoleSpectator     Role = "Spectator"
)

// Valid reports whether the role is one of the known wire values.
func (r Role) Valid() bool {
	switch r {
	case RoleDungeonMaster, RolePlayer, RoleSpectator:
		return true
	}
	return false
}

// Participant describes one member of the session roster.
type Participant struct {
	UserID string `json:"user_id"`
	Name   string `json:"name,omitempty"`
	Role   Role   `json:"role"`
}

// ToolCall is an LLM-proposed tool invocation awaiting DM review.
type ToolCall struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// ChallengeSuggestion is an LLM-proposed dice challenge attached to an
// approval request. The DM accepts or discards it alongside the dialogue.
type ChallengeSuggestion struct {
	ChallengeName     string `json:"challenge_name"`
	Stat              string `json:"stat"`
	Difficulty        int    `json:"difficulty"`
	TargetCharacterID string `json:"target_character_id"`
	Reasoning         string `json:"reasoning,omitempty"`
}

// NarrativeEventSuggestion is an LLM-proposed narrative beat attached to an
// approval request.
type NarrativeEventSuggestion struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Reasoning   string `json:"reasoning,omitempty"`
}

// OutcomeBranch is one alternative outcome the DM can pick when finalizing
// a resolved challenge.
type OutcomeBranch struct {
	OutcomeType string `json:"outcome_type"`
	Description string `json:"description"`
}

// Dice input methods for ChallengeRollInput.
const (
	DiceInputManual   = "manual"
	DiceInputPhysical = "physical"
	DiceInputDigital  = "digital"
)

// DiceInput describes how a player produced a roll. Manual and physical
// inputs carry the rolled value; digital asks the server to roll.
type DiceInput struct {
	Type  string `json:"type"`
	Value *int   `json:"value,omitempty"`
}
