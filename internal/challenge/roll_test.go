package challenge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tavern/pkg/protocol"
)

func climbPrompt() *protocol.ChallengePrompt {
	return &protocol.ChallengePrompt{
		ChallengeID:       "c1",
		ChallengeName:     "Climb",
		Stat:              "str",
		Difficulty:        12,
		TargetCharacterID: "ch1",
	}
}

func TestWorkflowHappyPath(t *testing.T) {
	w := NewWorkflow()
	assert.Equal(t, NotSubmitted, w.State())

	w.SetPrompt(climbPrompt())
	require.NoError(t, w.Submit(14, 3, "success"))
	assert.Equal(t, AwaitingApproval, w.State())

	sub, ok := w.Submission()
	require.True(t, ok)
	assert.Equal(t, 17, sub.Total, "provisional total is roll+modifier")

	require.NoError(t, w.Resolve(&protocol.ChallengeResolved{
		ChallengeID: "c1", Roll: 14, Modifier: 3, Total: 17, Outcome: "success",
	}))
	assert.Equal(t, ResultReady, w.State())

	_, hasSubmission := w.Submission()
	assert.False(t, hasSubmission, "provisional values are discarded")

	result, ok := w.Result()
	require.True(t, ok)
	assert.Equal(t, 17, result.Total)

	require.NoError(t, w.DismissResult())
	assert.Equal(t, Dismissed, w.State())
}

func TestWorkflowServerValuesWin(t *testing.T) {
	w := NewWorkflow()
	w.SetPrompt(climbPrompt())
	require.NoError(t, w.Submit(14, 5, "success"))

	// The server applied a different modifier.
	require.NoError(t, w.Resolve(&protocol.ChallengeResolved{
		ChallengeID: "c1", Roll: 14, Modifier: 3, Total: 17, Outcome: "success",
	}))

	result, _ := w.Result()
	assert.Equal(t, 17, result.Total, "authoritative server total replaces the provisional 19")
}

func TestWorkflowNoBackwardTransitions(t *testing.T) {
	w := NewWorkflow()
	w.SetPrompt(climbPrompt())

	// Resolve before submit skips a state.
	err := w.Resolve(&protocol.ChallengeResolved{ChallengeID: "c1"})
	require.ErrorIs(t, err, ErrInvalidRollTransition)

	require.NoError(t, w.Submit(10, 0, ""))
	require.ErrorIs(t, w.Submit(11, 0, ""), ErrInvalidRollTransition)
	require.ErrorIs(t, w.DismissResult(), ErrInvalidRollTransition)

	require.NoError(t, w.Resolve(&protocol.ChallengeResolved{ChallengeID: "c1", Total: 10}))
	require.ErrorIs(t, w.Resolve(&protocol.ChallengeResolved{ChallengeID: "c1"}), ErrInvalidRollTransition)

	require.NoError(t, w.DismissResult())
	require.ErrorIs(t, w.DismissResult(), ErrInvalidRollTransition)
}

func TestWorkflowSubmitWithoutPrompt(t *testing.T) {
	w := NewWorkflow()
	require.ErrorIs(t, w.Submit(10, 0, ""), ErrNoActiveChallenge)
}

func TestWorkflowNewPromptReplacesOld(t *testing.T) {
	w := NewWorkflow()
	w.SetPrompt(climbPrompt())
	require.NoError(t, w.Submit(10, 0, ""))

	second := &protocol.ChallengePrompt{ChallengeID: "c2", ChallengeName: "Sneak"}
	w.SetPrompt(second)

	prompt, ok := w.Prompt()
	require.True(t, ok)
	assert.Equal(t, "c2", prompt.ChallengeID)
	assert.Equal(t, NotSubmitted, w.State(), "roll state resets with the new prompt")
}

func TestWorkflowClear(t *testing.T) {
	w := NewWorkflow()
	w.SetPrompt(climbPrompt())
	require.NoError(t, w.Submit(10, 0, ""))

	w.Clear()
	assert.Equal(t, NotSubmitted, w.State())
	_, ok := w.Prompt()
	assert.False(t, ok)
}
