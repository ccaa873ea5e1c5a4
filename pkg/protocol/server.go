package protocol

// ServerMessage is the closed set of messages the Engine pushes to the
// client.
type ServerMessage interface {
	// Tag returns the wire discriminator for the variant.
	Tag() string
}

// Server message tags.
const (
	TagSessionJoined           = "SessionJoined"
	TagPlayerJoined            = "PlayerJoined"
	TagPlayerLeft              = "PlayerLeft"
	TagActionReceived          = "ActionReceived"
	TagSceneUpdate             = "SceneUpdate"
	TagDialogueResponse        = "DialogueResponse"
	TagLLMProcessing           = "LLMProcessing"
	TagApprovalRequired        = "ApprovalRequired"
	TagResponseApproved        = "ResponseApproved"
	TagChallengePrompt         = "ChallengePrompt"
	TagChallengeResolved       = "ChallengeResolved"
	TagNarrativeEventTriggered = "NarrativeEventTriggered"
	TagSplitPartyNotification  = "SplitPartyNotification"
	TagError                   = "Error"
	TagPong                    = "Pong"
	TagGenerationQueued        = "GenerationQueued"
	TagGenerationProgress      = "GenerationProgress"
	TagGenerationComplete      = "GenerationComplete"
	TagGenerationFailed        = "GenerationFailed"
	TagSuggestionQueued        = "SuggestionQueued"
	TagSuggestionProgress      = "SuggestionProgress"
	TagSuggestionComplete      = "SuggestionComplete"
	TagSuggestionFailed        = "SuggestionFailed"
	TagComfyUIStateChanged     = "ComfyUIStateChanged"
	TagOutcomeRegenerated      = "OutcomeRegenerated"
	TagChallengeDiscarded      = "ChallengeDiscarded"
	TagAdHocChallengeCreated   = "AdHocChallengeCreated"
)

// SessionJoined confirms the client's own join and seeds the roster.
type SessionJoined struct {
	SessionID     string        `json:"session_id"`
	UserID        string        `json:"user_id"`
	Role          Role          `json:"role"`
	Participants  []Participant `json:"participants,omitempty"`
	WorldID       string        `json:"world_id,omitempty"`
	EngineVersion string        `json:"engine_version,omitempty"`
}

func (SessionJoined) Tag() string { return TagSessionJoined }

func (m *SessionJoined) validate() error {
	if m.SessionID == "" {
		return missingField(TagSessionJoined, "session_id")
	}
	return nil
}

// PlayerJoined announces another participant entering the session.
type PlayerJoined struct {
	UserID string `json:"user_id"`
	Name   string `json:"name,omitempty"`
	Role   Role   `json:"role"`
}

func (PlayerJoined) Tag() string { return TagPlayerJoined }

func (m *PlayerJoined) validate() error {
	if m.UserID == "" {
		return missingField(TagPlayerJoined, "user_id")
	}
	return nil
}

// PlayerLeft announces a participant leaving the session.
type PlayerLeft struct {
	UserID string `json:"user_id"`
}

func (PlayerLeft) Tag() string { return TagPlayerLeft }

func (m *PlayerLeft) validate() error {
	if m.UserID == "" {
		return missingField(TagPlayerLeft, "user_id")
	}
	return nil
}

// ActionReceived echoes a player action to the whole session.
type ActionReceived struct {
	UserID     string `json:"user_id"`
	ActionType string `json:"action_type"`
	Target     string `json:"target,omitempty"`
	Dialogue   string `json:"dialogue,omitempty"`
}

func (ActionReceived) Tag() string { return TagActionReceived }

// SceneUpdate replaces the current scene presentation state.
type SceneUpdate struct {
	SceneID     string   `json:"scene_id"`
	Name        string   `json:"name,omitempty"`
	Description string   `json:"description"`
	NPCs        []string `json:"npcs,omitempty"`
}

func (SceneUpdate) Tag() string { return TagSceneUpdate }

func (m *SceneUpdate) validate() error {
	if m.SceneID == "" {
		return missingField(TagSceneUpdate, "scene_id")
	}
	return nil
}

// DialogueResponse is an approved NPC line ready for display.
type DialogueResponse struct {
	NPCName  string `json:"npc_name"`
	Dialogue string `json:"dialogue"`
}

func (DialogueResponse) Tag() string { return TagDialogueResponse }

// LLMProcessing toggles the "Engine is thinking" indicator.
type LLMProcessing struct {
	Active bool `json:"active"`
}

func (LLMProcessing) Tag() string { return TagLLMProcessing }

// ApprovalRequired asks the DM to review a proposed NPC response before it
// is applied.
type ApprovalRequired struct {
	RequestID                string                    `json:"request_id"`
	NPCName                  string                    `json:"npc_name"`
	ProposedDialogue         string                    `json:"proposed_dialogue"`
	InternalReasoning        string                    `json:"internal_reasoning,omitempty"`
	ProposedTools            []ToolCall                `json:"proposed_tools,omitempty"`
	ChallengeSuggestion      *ChallengeSuggestion      `json:"challenge_suggestion,omitempty"`
	NarrativeEventSuggestion *NarrativeEventSuggestion `json:"narrative_event_suggestion,omitempty"`
}

func (ApprovalRequired) Tag() string { return TagApprovalRequired }

func (m *ApprovalRequired) validate() error {
	if m.RequestID == "" {
		return missingField(TagApprovalRequired, "request_id")
	}
	return nil
}

// ResponseApproved announces that a pending response was applied.
type ResponseApproved struct {
	RequestID string `json:"request_id"`
	NPCName   string `json:"npc_name"`
	Dialogue  string `json:"dialogue"`
}

func (ResponseApproved) Tag() string { return TagResponseApproved }

// ChallengePrompt asks a player to roll. Only one challenge is active per
// client; a new prompt replaces any previous one.
type ChallengePrompt struct {
	ChallengeID       string `json:"challenge_id"`
	ChallengeName     string `json:"challenge_name"`
	Stat              string `json:"stat"`
	Difficulty        int    `json:"difficulty"`
	TargetCharacterID string `json:"target_character_id"`
	Description       string `json:"description,omitempty"`
}

func (ChallengePrompt) Tag() string { return TagChallengePrompt }

func (m *ChallengePrompt) validate() error {
	if m.ChallengeID == "" {
		return missingField(TagChallengePrompt, "challenge_id")
	}
	return nil
}

// ChallengeResolved carries the authoritative server-side result of a roll.
// When ResolutionID is set the outcome awaits DM approval; otherwise it is
// final for the player who rolled.
type ChallengeResolved struct {
	ChallengeID        string  `json:"challenge_id"`
	ChallengeName      string  `json:"challenge_name"`
	CharacterName      string  `json:"character_name"`
	Roll               int     `json:"roll"`
	Modifier           int     `json:"modifier"`
	Total              int     `json:"total"`
	Outcome            string  `json:"outcome"`
	OutcomeDescription string  `json:"outcome_description"`
	RollBreakdown      *string `json:"roll_breakdown"`
	IndividualRolls    []int   `json:"individual_rolls"`

	// DM-approval flow fields, omitted for plain player results.
	ResolutionID    string          `json:"resolution_id,omitempty"`
	CharacterID     string          `json:"character_id,omitempty"`
	OutcomeTriggers []string        `json:"outcome_triggers,omitempty"`
	Suggestions     []string        `json:"suggestions,omitempty"`
	Branches        []OutcomeBranch `json:"branches,omitempty"`
}

func (ChallengeResolved) Tag() string { return TagChallengeResolved }

func (m *ChallengeResolved) validate() error {
	if m.ChallengeID == "" {
		return missingField(TagChallengeResolved, "challenge_id")
	}
	return nil
}

// NarrativeEventTriggered announces a narrative beat fired by the Engine.
type NarrativeEventTriggered struct {
	EventID     string `json:"event_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (NarrativeEventTriggered) Tag() string { return TagNarrativeEventTriggered }

// SplitPartyNotification tells the client the party now occupies multiple
// scenes.
type SplitPartyNotification struct {
	Message string     `json:"message"`
	Groups  [][]string `json:"groups,omitempty"`
}

func (SplitPartyNotification) Tag() string { return TagSplitPartyNotification }

// Error is a non-fatal, user-visible error pushed by the Engine.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (Error) Tag() string { return TagError }

// Pong acknowledges a prior Heartbeat.
type Pong struct{}

func (Pong) Tag() string { return TagPong }

// GenerationQueued reports an asset-generation job entering the queue.
type GenerationQueued struct {
	JobID     string `json:"job_id"`
	AssetType string `json:"asset_type"`
}

func (GenerationQueued) Tag() string { return TagGenerationQueued }

// GenerationProgress reports asset-generation progress in [0,1].
type GenerationProgress struct {
	JobID    string  `json:"job_id"`
	Progress float64 `json:"progress"`
	Stage    string  `json:"stage,omitempty"`
}

func (GenerationProgress) Tag() string { return TagGenerationProgress }

// GenerationComplete reports a finished asset-generation job.
type GenerationComplete struct {
	JobID     string `json:"job_id"`
	AssetType string `json:"asset_type,omitempty"`
	URL       string `json:"url,omitempty"`
}

func (GenerationComplete) Tag() string { return TagGenerationComplete }

// GenerationFailed reports a failed asset-generation job.
type GenerationFailed struct {
	JobID string `json:"job_id"`
	Error string `json:"error"`
}

func (GenerationFailed) Tag() string { return TagGenerationFailed }

// SuggestionQueued reports that outcome suggestions are being generated for
// a pending challenge resolution.
type SuggestionQueued struct {
	ResolutionID string `json:"resolution_id"`
}

func (SuggestionQueued) Tag() string { return TagSuggestionQueued }

// SuggestionProgress reports suggestion-generation progress in [0,1].
type SuggestionProgress struct {
	ResolutionID string  `json:"resolution_id"`
	Progress     float64 `json:"progress"`
}

func (SuggestionProgress) Tag() string { return TagSuggestionProgress }

// SuggestionComplete delivers generated suggestions for a pending
// resolution.
type SuggestionComplete struct {
	ResolutionID string          `json:"resolution_id"`
	Suggestions  []string        `json:"suggestions,omitempty"`
	Branches     []OutcomeBranch `json:"branches,omitempty"`
}

func (SuggestionComplete) Tag() string { return TagSuggestionComplete }

func (m *SuggestionComplete) validate() error {
	if m.ResolutionID == "" {
		return missingField(TagSuggestionComplete, "resolution_id")
	}
	return nil
}

// SuggestionFailed reports failed suggestion generation.
type SuggestionFailed struct {
	ResolutionID string `json:"resolution_id,omitempty"`
	Error        string `json:"error"`
}

func (SuggestionFailed) Tag() string { return TagSuggestionFailed }

// ComfyUIStateChanged reports the asset-generation backend's availability.
type ComfyUIStateChanged struct {
	State string `json:"state"`
}

func (ComfyUIStateChanged) Tag() string { return TagComfyUIStateChanged }

// OutcomeRegenerated replaces the description, suggestions and branches of
// a pending challenge outcome.
type OutcomeRegenerated struct {
	ResolutionID       string          `json:"resolution_id"`
	OutcomeType        string          `json:"outcome_type,omitempty"`
	OutcomeDescription string          `json:"outcome_description,omitempty"`
	Suggestions        []string        `json:"suggestions,omitempty"`
	Branches           []OutcomeBranch `json:"branches,omitempty"`
}

func (OutcomeRegenerated) Tag() string { return TagOutcomeRegenerated }

func (m *OutcomeRegenerated) validate() error {
	if m.ResolutionID == "" {
		return missingField(TagOutcomeRegenerated, "resolution_id")
	}
	return nil
}

// ChallengeDiscarded confirms a pending challenge outcome was dropped.
type ChallengeDiscarded struct {
	ResolutionID string `json:"resolution_id"`
}

func (ChallengeDiscarded) Tag() string { return TagChallengeDiscarded }

func (m *ChallengeDiscarded) validate() error {
	if m.ResolutionID == "" {
		return missingField(TagChallengeDiscarded, "resolution_id")
	}
	return nil
}

// AdHocChallengeCreated confirms a DM-created ad hoc challenge.
type AdHocChallengeCreated struct {
	ChallengeID       string `json:"challenge_id"`
	ChallengeName     string `json:"challenge_name"`
	TargetCharacterID string `json:"target_character_id"`
}

func (AdHocChallengeCreated) Tag() string { return TagAdHocChallengeCreated }
