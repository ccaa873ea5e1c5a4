package protocol

// ClientMessage is the closed set of messages the client sends to the
// Engine. Each variant carries exactly one tag and that tag's payload.
type ClientMessage interface {
	// Tag returns the wire discriminator for the variant.
	Tag() string
}

// Client message tags.
const (
	TagJoinSession                      = "JoinSession"
	TagPlayerAction                     = "PlayerAction"
	TagRequestSceneChange               = "RequestSceneChange"
	TagDirectorialUpdate                = "DirectorialUpdate"
	TagApprovalDecision                 = "ApprovalDecision"
	TagTriggerChallenge                 = "TriggerChallenge"
	TagChallengeRoll                    = "ChallengeRoll"
	TagChallengeRollInput               = "ChallengeRollInput"
	TagChallengeSuggestionDecision      = "ChallengeSuggestionDecision"
	TagNarrativeEventSuggestionDecision = "NarrativeEventSuggestionDecision"
	TagHeartbeat                        = "Heartbeat"
	TagRegenerateOutcome                = "RegenerateOutcome"
	TagDiscardChallenge                 = "DiscardChallenge"
	TagCreateAdHocChallenge             = "CreateAdHocChallenge"
)

// JoinSession enters a session with the given role. WorldID selects a world
// snapshot and may be null.
type JoinSession struct {
	UserID  string  `json:"user_id"`
	Role    Role    `json:"role"`
	WorldID *string `json:"world_id"`
}

func (JoinSession) Tag() string { return TagJoinSession }

// PlayerAction is a free-form in-character action.
type PlayerAction struct {
	ActionType string `json:"action_type"`
	Target     string `json:"target,omitempty"`
	Dialogue   string `json:"dialogue,omitempty"`
}

func (PlayerAction) Tag() string { return TagPlayerAction }

// RequestSceneChange asks the Engine to move the party to another scene.
type RequestSceneChange struct {
	SceneID string `json:"scene_id"`
}

func (RequestSceneChange) Tag() string { return TagRequestSceneChange }

// DirectorialUpdate sends DM guidance to the Engine's narrative layer.
type DirectorialUpdate struct {
	Context string `json:"context"`
}

func (DirectorialUpdate) Tag() string { return TagDirectorialUpdate }

// TriggerChallenge starts a dice challenge against a character (DM only).
type TriggerChallenge struct {
	ChallengeID       string `json:"challenge_id"`
	TargetCharacterID string `json:"target_character_id"`
}

func (TriggerChallenge) Tag() string { return TagTriggerChallenge }

// ChallengeRoll submits a raw d20 roll for the active challenge.
type ChallengeRoll struct {
	ChallengeID string `json:"challenge_id"`
	Roll        int    `json:"roll"`
}

func (ChallengeRoll) Tag() string { return TagChallengeRoll }

// ChallengeRollInput submits a roll via a specific input method.
type ChallengeRollInput struct {
	ChallengeID string    `json:"challenge_id"`
	InputType   DiceInput `json:"input_type"`
}

func (ChallengeRollInput) Tag() string { return TagChallengeRollInput }

// ChallengeSuggestionDecision accepts or discards an LLM-suggested
// challenge attached to an approval request.
type ChallengeSuggestionDecision struct {
	RequestID string `json:"request_id"`
	Accept    bool   `json:"accept"`
}

func (ChallengeSuggestionDecision) Tag() string { return TagChallengeSuggestionDecision }

// NarrativeEventSuggestionDecision accepts or discards an LLM-suggested
// narrative event attached to an approval request.
type NarrativeEventSuggestionDecision struct {
	RequestID string `json:"request_id"`
	Accept    bool   `json:"accept"`
}

func (NarrativeEventSuggestionDecision) Tag() string {
	return TagNarrativeEventSuggestionDecision
}

// Heartbeat is an advisory liveness signal; the Engine answers with Pong.
type Heartbeat struct{}

func (Heartbeat) Tag() string { return TagHeartbeat }

// RegenerateOutcome asks the Engine to re-generate a pending challenge
// outcome, optionally forcing an outcome tier or adding DM guidance.
type RegenerateOutcome struct {
	RequestID   string `json:"request_id"`
	OutcomeType string `json:"outcome_type,omitempty"`
	Guidance    string `json:"guidance,omitempty"`
}

func (RegenerateOutcome) Tag() string { return TagRegenerateOutcome }

// DiscardChallenge drops a pending challenge outcome without applying it.
type DiscardChallenge struct {
	RequestID string `json:"request_id"`
	Feedback  string `json:"feedback,omitempty"`
}

func (DiscardChallenge) Tag() string { return TagDiscardChallenge }

// CreateAdHocChallenge creates a challenge on the fly (DM only).
type CreateAdHocChallenge struct {
	ChallengeName     string `json:"challenge_name"`
	Stat              string `json:"stat"`
	Difficulty        int    `json:"difficulty"`
	TargetCharacterID string `json:"target_character_id"`
	Description       string `json:"description,omitempty"`
}

func (CreateAdHocChallenge) Tag() string { return TagCreateAdHocChallenge }
