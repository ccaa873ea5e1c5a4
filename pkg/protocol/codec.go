package protocol

import (
	"encoding/json"
	"fmt"
)

// DecodeError reports a malformed inbound message: unknown tag, missing
// required field, or type mismatch. The dispatcher logs it and drops the
// message; it never crashes the session.
type DecodeError struct {
	Tag    string
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Tag != "" {
		return fmt.Sprintf("decode %s: %s", e.Tag, e.Reason)
	}
	return fmt.Sprintf("decode: %s", e.Reason)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func missingField(tag, field string) error {
	return &DecodeError{Tag: tag, Reason: "missing required field " + field}
}

// validator is implemented by variants with required fields beyond what
// JSON decoding can enforce.
type validator interface {
	validate() error
}

var clientRegistry = map[string]func() ClientMessage{
	TagJoinSession:                      func() ClientMessage { return new(JoinSession) },
	TagPlayerAction:                     func() ClientMessage { return new(PlayerAction) },
	TagRequestSceneChange:               func() ClientMessage { return new(RequestSceneChange) },
	TagDirectorialUpdate:                func() ClientMessage { return new(DirectorialUpdate) },
	TagApprovalDecision:                 func() ClientMessage { return new(ApprovalDecision) },
	TagTriggerChallenge:                 func() ClientMessage { return new(TriggerChallenge) },
	TagChallengeRoll:                    func() ClientMessage { return new(ChallengeRoll) },
	TagChallengeRollInput:               func() ClientMessage { return new(ChallengeRollInput) },
	TagChallengeSuggestionDecision:      func() ClientMessage { return new(ChallengeSuggestionDecision) },
	TagNarrativeEventSuggestionDecision: func() ClientMessage { return new(NarrativeEventSuggestionDecision) },
	TagHeartbeat:                        func() ClientMessage { return new(Heartbeat) },
	TagRegenerateOutcome:                func() ClientMessage { return new(RegenerateOutcome) },
	TagDiscardChallenge:                 func() ClientMessage { return new(DiscardChallenge) },
	TagCreateAdHocChallenge:             func() ClientMessage { return new(CreateAdHocChallenge) },
}

var serverRegistry = map[string]func() ServerMessage{
	TagSessionJoined:           func() ServerMessage { return new(SessionJoined) },
	TagPlayerJoined:            func() ServerMessage { return new(PlayerJoined) },
	TagPlayerLeft:              func() ServerMessage { return new(PlayerLeft) },
	TagActionReceived:          func() ServerMessage { return new(ActionReceived) },
	TagSceneUpdate:             func() ServerMessage { return new(SceneUpdate) },
	TagDialogueResponse:        func() ServerMessage { return new(DialogueResponse) },
	TagLLMProcessing:           func() ServerMessage { return new(LLMProcessing) },
	TagApprovalRequired:        func() ServerMessage { return new(ApprovalRequired) },
	TagResponseApproved:        func() ServerMessage { return new(ResponseApproved) },
	TagChallengePrompt:         func() ServerMessage { return new(ChallengePrompt) },
	TagChallengeResolved:       func() ServerMessage { return new(ChallengeResolved) },
	TagNarrativeEventTriggered: func() ServerMessage { return new(NarrativeEventTriggered) },
	TagSplitPartyNotification:  func() ServerMessage { return new(SplitPartyNotification) },
	TagError:                   func() ServerMessage { return new(Error) },
	TagPong:                    func() ServerMessage { return new(Pong) },
	TagGenerationQueued:        func() ServerMessage { return new(GenerationQueued) },
	TagGenerationProgress:      func() ServerMessage { return new(GenerationProgress) },
	TagGenerationComplete:      func() ServerMessage { return new(GenerationComplete) },
	TagGenerationFailed:        func() ServerMessage { return new(GenerationFailed) },
	TagSuggestionQueued:        func() ServerMessage { return new(SuggestionQueued) },
	TagSuggestionProgress:      func() ServerMessage { return new(SuggestionProgress) },
	TagSuggestionComplete:      func() ServerMessage { return new(SuggestionComplete) },
	TagSuggestionFailed:        func() ServerMessage { return new(SuggestionFailed) },
	TagComfyUIStateChanged:     func() ServerMessage { return new(ComfyUIStateChanged) },
	TagOutcomeRegenerated:      func() ServerMessage { return new(OutcomeRegenerated) },
	TagChallengeDiscarded:      func() ServerMessage { return new(ChallengeDiscarded) },
	TagAdHocChallengeCreated:   func() ServerMessage { return new(AdHocChallengeCreated) },
}

// Encode serializes an outbound message, splicing the "type" discriminator
// next to the variant's fields. A marshal failure here is programmer error
// (malformed payload construction), reported loudly to the caller.
func Encode(m ClientMessage) ([]byte, error) {
	return encode(m.Tag(), m)
}

// EncodeServer serializes a server message. The client only needs this for
// tests and for the inspector's snapshot output.
func EncodeServer(m ServerMessage) ([]byte, error) {
	return encode(m.Tag(), m)
}

func encode(tag string, m any) ([]byte, error) {
	body, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", tag, err)
	}

	fields := make(map[string]json.RawMessage)
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("encode %s: variant is not an object: %w", tag, err)
	}

	fields["type"], _ = json.Marshal(tag)
	return json.Marshal(fields)
}

// Decode parses an inbound server message. Unknown tags are rejected, not
// silently dropped, so protocol drift is noticed.
func Decode(data []byte) (ServerMessage, error) {
	tag, err := peekTag(data)
	if err != nil {
		return nil, err
	}

	ctor, ok := serverRegistry[tag]
	if !ok {
		return nil, &DecodeError{Tag: tag, Reason: "unknown message type"}
	}

	msg := ctor()
	if err := json.Unmarshal(data, msg); err != nil {
		return nil, &DecodeError{Tag: tag, Reason: "malformed payload", Err: err}
	}

	if v, ok := msg.(validator); ok {
		if err := v.validate(); err != nil {
			return nil, err
		}
	}
	return msg, nil
}

// DecodeClient parses an outbound message back into its typed form.
func DecodeClient(data []byte) (ClientMessage, error) {
	tag, err := peekTag(data)
	if err != nil {
		return nil, err
	}

	ctor, ok := clientRegistry[tag]
	if !ok {
		return nil, &DecodeError{Tag: tag, Reason: "unknown message type"}
	}

	msg := ctor()
	if err := json.Unmarshal(data, msg); err != nil {
		return nil, &DecodeError{Tag: tag, Reason: "malformed payload", Err: err}
	}
	return msg, nil
}

func peekTag(data []byte) (string, error) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return "", &DecodeError{Reason: "malformed JSON", Err: err}
	}
	if env.Type == "" {
		return "", &DecodeError{Reason: "missing type discriminator"}
	}
	return env.Type, nil
}
