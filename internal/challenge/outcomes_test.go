package challenge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tavern/pkg/protocol"
)

func resolvedForDM() *protocol.ChallengeResolved {
	return &protocol.ChallengeResolved{
		ChallengeID:        "c1",
		ChallengeName:      "Climb",
		CharacterName:      "Brynn",
		Roll:               2,
		Modifier:           3,
		Total:              5,
		Outcome:            "failure",
		OutcomeDescription: "You slip.",
		ResolutionID:       "res1",
		CharacterID:        "ch1",
		OutcomeTriggers:    []string{"fall_damage"},
	}
}

func TestOutcomeFromResolved(t *testing.T) {
	p := OutcomeFromResolved(resolvedForDM())
	assert.Equal(t, "res1", p.ResolutionID)
	assert.Equal(t, "failure", p.OutcomeType)
	assert.Equal(t, 5, p.Total)
	assert.Equal(t, []string{"fall_damage"}, p.OutcomeTriggers)
	assert.False(t, p.IsGeneratingSuggestions)
}

func TestOutcomesAddAndDuplicate(t *testing.T) {
	o := NewOutcomes()
	first := OutcomeFromResolved(resolvedForDM())
	require.NoError(t, o.Add(first))

	dup := OutcomeFromResolved(resolvedForDM())
	dup.OutcomeDescription = "changed"
	require.ErrorIs(t, o.Add(dup), ErrDuplicateResolution)

	p, ok := o.Get("res1")
	require.True(t, ok)
	assert.Equal(t, "You slip.", p.OutcomeDescription, "original kept")
	assert.Equal(t, 1, o.Count())
}

func TestOutcomesApplyRegenerated(t *testing.T) {
	o := NewOutcomes()
	require.NoError(t, o.Add(OutcomeFromResolved(resolvedForDM())))

	ok := o.ApplyRegenerated(&protocol.OutcomeRegenerated{
		ResolutionID:       "res1",
		OutcomeDescription: "A rope snaps and you tumble.",
		Suggestions:        []string{"offer a second attempt"},
		Branches:           []protocol.OutcomeBranch{{OutcomeType: "critical_failure", Description: "You fall hard."}},
	})
	require.True(t, ok)

	p, _ := o.Get("res1")
	assert.Equal(t, "A rope snaps and you tumble.", p.OutcomeDescription)
	assert.Len(t, p.Suggestions, 1)
	assert.Len(t, p.Branches, 1)
}

func TestOutcomesApplyRegeneratedUnknownIsNoOp(t *testing.T) {
	o := NewOutcomes()
	ok := o.ApplyRegenerated(&protocol.OutcomeRegenerated{ResolutionID: "gone"})
	assert.False(t, ok, "already-resolved outcome: last-writer-loses")
}

func TestOutcomesSuggestionLifecycle(t *testing.T) {
	o := NewOutcomes()
	require.NoError(t, o.Add(OutcomeFromResolved(resolvedForDM())))

	require.True(t, o.SetGenerating("res1", true))
	p, _ := o.Get("res1")
	assert.True(t, p.IsGeneratingSuggestions)

	require.True(t, o.ApplySuggestions("res1", []string{"let them retry"}, nil))
	p, _ = o.Get("res1")
	assert.False(t, p.IsGeneratingSuggestions)
	assert.Equal(t, []string{"let them retry"}, p.Suggestions)
}

func TestOutcomesRemove(t *testing.T) {
	o := NewOutcomes()
	require.NoError(t, o.Add(OutcomeFromResolved(resolvedForDM())))

	assert.True(t, o.Remove("res1"))
	assert.False(t, o.Remove("res1"))
	assert.Zero(t, o.Count())
}

func TestOutcomesListOrder(t *testing.T) {
	o := NewOutcomes()
	for _, id := range []string{"res1", "res2", "res3"} {
		msg := resolvedForDM()
		msg.ResolutionID = id
		require.NoError(t, o.Add(OutcomeFromResolved(msg)))
	}
	o.Remove("res2")

	list := o.List()
	require.Len(t, list, 2)
	assert.Equal(t, "res1", list[0].ResolutionID)
	assert.Equal(t, "res3", list[1].ResolutionID)
}
