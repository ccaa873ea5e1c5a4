package protocol

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }

func TestEncodeInjectsTypeTag(t *testing.T) {
	data, err := Encode(ChallengeRoll{ChallengeID: "c1", Roll: 14})
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(data, &fields))
	assert.Equal(t, "ChallengeRoll", fields["type"])
	assert.Equal(t, "c1", fields["challenge_id"])
	assert.Equal(t, float64(14), fields["roll"])
}

func TestClientRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		msg  ClientMessage
	}{
		{"join session", JoinSession{UserID: "u1", Role: RolePlayer, WorldID: strPtr("w1")}},
		{"join session nil world", JoinSession{UserID: "u1", Role: RoleDungeonMaster}},
		{"player action", PlayerAction{ActionType: "speak", Target: "innkeeper", Dialogue: "hello"}},
		{"scene change", RequestSceneChange{SceneID: "s9"}},
		{"directorial update", DirectorialUpdate{Context: "raise the stakes"}},
		{"trigger challenge", TriggerChallenge{ChallengeID: "c1", TargetCharacterID: "ch2"}},
		{"challenge roll", ChallengeRoll{ChallengeID: "c1", Roll: 14}},
		{"roll input manual", ChallengeRollInput{ChallengeID: "c1", InputType: DiceInput{Type: DiceInputManual, Value: intPtr(11)}}},
		{"roll input digital", ChallengeRollInput{ChallengeID: "c1", InputType: DiceInput{Type: DiceInputDigital}}},
		{"suggestion decision", ChallengeSuggestionDecision{RequestID: "r1", Accept: true}},
		{"narrative suggestion decision", NarrativeEventSuggestionDecision{RequestID: "r1"}},
		{"heartbeat", Heartbeat{}},
		{"regenerate outcome", RegenerateOutcome{RequestID: "r1", OutcomeType: "failure", Guidance: "harsher"}},
		{"discard challenge", DiscardChallenge{RequestID: "r1", Feedback: "too easy"}},
		{"ad hoc challenge", CreateAdHocChallenge{ChallengeName: "Climb", Stat: "str", Difficulty: 12, TargetCharacterID: "ch2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := Encode(tt.msg)
			require.NoError(t, err)

			decoded, err := DecodeClient(data)
			require.NoError(t, err)

			// DecodeClient returns pointers to the variant structs.
			require.Equal(t, tt.msg.Tag(), decoded.Tag())
			got := reflect.ValueOf(decoded).Elem().Interface()
			assert.Equal(t, tt.msg, got, "decode(encode(m)) must preserve the message")
		})
	}
}

func TestApprovalDecisionRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		msg   ApprovalDecision
		label string
	}{
		{"accept", ApprovalDecision{RequestID: "r1", Decision: Accept{}}, "accepted"},
		{"modify", ApprovalDecision{RequestID: "r2", Decision: AcceptWithModification{
			ModifiedDialogue: "softer line",
			ApprovedTools:    []ToolCall{{Name: "give_item", Arguments: json.RawMessage(`{"item":"key"}`)}},
		}}, "modified"},
		{"reject", ApprovalDecision{RequestID: "r3", Decision: Reject{Feedback: "off tone"}}, "rejected"},
		{"take over", ApprovalDecision{RequestID: "r4", Decision: TakeOver{DMResponse: "my line"}}, "takeover"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := Encode(tt.msg)
			require.NoError(t, err)

			decoded, err := DecodeClient(data)
			require.NoError(t, err)

			got, ok := decoded.(*ApprovalDecision)
			require.True(t, ok)
			assert.Equal(t, tt.msg.RequestID, got.RequestID)
			assert.Equal(t, tt.msg.Decision, got.Decision)
			assert.Equal(t, tt.label, got.Decision.Label())
		})
	}
}

func TestApprovalDecisionWireShape(t *testing.T) {
	data, err := Encode(ApprovalDecision{RequestID: "r1", Decision: Reject{Feedback: "redo"}})
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(data, &fields))
	assert.Equal(t, "ApprovalDecision", fields["type"])
	assert.Equal(t, "Reject", fields["decision"])
	assert.Equal(t, "r1", fields["request_id"])
	assert.Equal(t, "redo", fields["feedback"])
}

func TestEncodeApprovalDecisionWithoutVariantFails(t *testing.T) {
	_, err := Encode(ApprovalDecision{RequestID: "r1"})
	require.Error(t, err)
}

func TestServerRoundTrip(t *testing.T) {
	breakdown := "1d20+3"
	tests := []struct {
		name string
		msg  ServerMessage
	}{
		{"session joined", &SessionJoined{
			SessionID: "s1", UserID: "u1", Role: RolePlayer,
			Participants:  []Participant{{UserID: "u2", Name: "Mira", Role: RoleDungeonMaster}},
			EngineVersion: "1.4.0",
		}},
		{"player joined", &PlayerJoined{UserID: "u3", Role: RoleSpectator}},
		{"player left", &PlayerLeft{UserID: "u3"}},
		{"scene update", &SceneUpdate{SceneID: "s2", Description: "a dim tavern", NPCs: []string{"Innkeeper"}}},
		{"dialogue response", &DialogueResponse{NPCName: "Innkeeper", Dialogue: "What'll it be?"}},
		{"llm processing", &LLMProcessing{Active: true}},
		{"approval required", &ApprovalRequired{
			RequestID: "r1", NPCName: "Innkeeper", ProposedDialogue: "Leave now.",
			InternalReasoning: "hostile",
			ProposedTools:     []ToolCall{{Name: "lock_door"}},
			ChallengeSuggestion: &ChallengeSuggestion{
				ChallengeName: "Persuade", Stat: "cha", Difficulty: 14, TargetCharacterID: "ch1",
			},
		}},
		{"challenge prompt", &ChallengePrompt{
			ChallengeID: "c1", ChallengeName: "Climb", Stat: "str", Difficulty: 12, TargetCharacterID: "ch1",
		}},
		{"challenge resolved player", &ChallengeResolved{
			ChallengeID: "c1", ChallengeName: "Climb", CharacterName: "Brynn",
			Roll: 14, Modifier: 3, Total: 17, Outcome: "success",
			OutcomeDescription: "You reach the ledge.", RollBreakdown: &breakdown,
			IndividualRolls: []int{14},
		}},
		{"challenge resolved dm", &ChallengeResolved{
			ChallengeID: "c1", ChallengeName: "Climb", CharacterName: "Brynn",
			Roll: 2, Modifier: 3, Total: 5, Outcome: "failure",
			OutcomeDescription: "You slip.",
			ResolutionID:       "res1", CharacterID: "ch1",
			OutcomeTriggers: []string{"fall_damage"},
			Branches:        []OutcomeBranch{{OutcomeType: "critical_failure", Description: "You fall hard."}},
		}},
		{"error", &Error{Code: "SESSION_FULL", Message: "no free seats"}},
		{"pong", &Pong{}},
		{"generation progress", &GenerationProgress{JobID: "j1", Progress: 0.5, Stage: "sampling"}},
		{"suggestion complete", &SuggestionComplete{
			ResolutionID: "res1", Suggestions: []string{"let them retry"},
		}},
		{"comfyui state", &ComfyUIStateChanged{State: "offline"}},
		{"outcome regenerated", &OutcomeRegenerated{ResolutionID: "res1", OutcomeDescription: "A rope snaps."}},
		{"challenge discarded", &ChallengeDiscarded{ResolutionID: "res1"}},
		{"ad hoc created", &AdHocChallengeCreated{ChallengeID: "c9", ChallengeName: "Sneak", TargetCharacterID: "ch2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := EncodeServer(tt.msg)
			require.NoError(t, err)

			decoded, err := Decode(data)
			require.NoError(t, err)
			assert.Equal(t, tt.msg, decoded)
		})
	}
}

func TestDecodeRepresentativeWirePayloads(t *testing.T) {
	t.Run("challenge resolved", func(t *testing.T) {
		raw := `{"type":"ChallengeResolved","challenge_id":"c1","challenge_name":"Climb",
			"character_name":"Brynn","roll":14,"modifier":3,"total":17,"outcome":"success",
			"outcome_description":"You reach the ledge.","roll_breakdown":null,"individual_rolls":null}`
		msg, err := Decode([]byte(raw))
		require.NoError(t, err)

		resolved, ok := msg.(*ChallengeResolved)
		require.True(t, ok)
		assert.Equal(t, 17, resolved.Total)
		assert.Equal(t, "success", resolved.Outcome)
		assert.Nil(t, resolved.RollBreakdown)
	})

	t.Run("error", func(t *testing.T) {
		msg, err := Decode([]byte(`{"type":"Error","code":"E42","message":"bad"}`))
		require.NoError(t, err)
		assert.Equal(t, &Error{Code: "E42", Message: "bad"}, msg)
	})
}

func TestDecodeRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"unknown tag", `{"type":"UnknownVariant","x":1}`},
		{"missing tag", `{"code":"E1"}`},
		{"malformed json", `{"type":"Error",`},
		{"type mismatch", `{"type":"ChallengeResolved","challenge_id":"c1","roll":"fourteen"}`},
		{"missing request_id", `{"type":"ApprovalRequired","npc_name":"Innkeeper"}`},
		{"missing resolution_id", `{"type":"ChallengeDiscarded"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.data))
			require.Error(t, err)

			var decodeErr *DecodeError
			assert.ErrorAs(t, err, &decodeErr)
		})
	}
}
