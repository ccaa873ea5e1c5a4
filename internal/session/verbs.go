package session

import (
	"tavern/internal/challenge"
	"tavern/internal/conn"
	"tavern/pkg/protocol"
)

// The verb methods below are the UI-facing surface of the client. Every
// one of them fails fast with conn.ErrNotConnected, before any local
// bookkeeping or transport call, unless the connection is Connected.

// SendAction submits an in-character player action.
func (c *Client) SendAction(actionType, target, dialogue string) error {
	return c.SendMessage(protocol.PlayerAction{
		ActionType: actionType,
		Target:     target,
		Dialogue:   dialogue,
	})
}

// RequestSceneChange asks the Engine to move the party to another scene.
func (c *Client) RequestSceneChange(sceneID string) error {
	return c.SendMessage(protocol.RequestSceneChange{SceneID: sceneID})
}

// SendDirectorialUpdate sends DM guidance to the narrative layer.
func (c *Client) SendDirectorialUpdate(guidance string) error {
	return c.SendMessage(protocol.DirectorialUpdate{Context: guidance})
}

// DecideApproval records and transmits the DM's decision for a pending
// approval request.
func (c *Client) DecideApproval(requestID string, decision protocol.Decision) error {
	if c.tracker.State() != conn.Connected {
		return conn.ErrNotConnected
	}
	return c.Approvals.RecordDecision(requestID, decision)
}

// TriggerChallenge starts a predefined challenge against a character.
func (c *Client) TriggerChallenge(challengeID, targetCharacterID string) error {
	return c.SendMessage(protocol.TriggerChallenge{
		ChallengeID:       challengeID,
		TargetCharacterID: targetCharacterID,
	})
}

// SubmitChallengeRoll submits a raw d20 roll for the active challenge and
// moves the roll state to awaiting approval.
func (c *Client) SubmitChallengeRoll(roll int) error {
	if c.tracker.State() != conn.Connected {
		return conn.ErrNotConnected
	}
	prompt, ok := c.Roll.Prompt()
	if !ok {
		return challenge.ErrNoActiveChallenge
	}
	if err := c.Roll.Submit(roll, 0, ""); err != nil {
		return err
	}
	return c.SendMessage(protocol.ChallengeRoll{
		ChallengeID: prompt.ChallengeID,
		Roll:        roll,
	})
}

// SubmitRollInput submits a roll through a specific input method. Digital
// input asks the server to roll; manual and physical carry the value.
func (c *Client) SubmitRollInput(input protocol.DiceInput) error {
	if c.tracker.State() != conn.Connected {
		return conn.ErrNotConnected
	}
	prompt, ok := c.Roll.Prompt()
	if !ok {
		return challenge.ErrNoActiveChallenge
	}

	value := 0
	if input.Value != nil {
		value = *input.Value
	}
	if err := c.Roll.Submit(value, 0, ""); err != nil {
		return err
	}
	return c.SendMessage(protocol.ChallengeRollInput{
		ChallengeID: prompt.ChallengeID,
		InputType:   input,
	})
}

// SendChallengeSuggestionDecision accepts or discards an LLM-suggested
// challenge attached to an approval request.
func (c *Client) SendChallengeSuggestionDecision(requestID string, accept bool) error {
	return c.SendMessage(protocol.ChallengeSuggestionDecision{
		RequestID: requestID,
		Accept:    accept,
	})
}

// SendNarrativeEventSuggestionDecision accepts or discards an
// LLM-suggested narrative event.
func (c *Client) SendNarrativeEventSuggestionDecision(requestID string, accept bool) error {
	return c.SendMessage(protocol.NarrativeEventSuggestionDecision{
		RequestID: requestID,
		Accept:    accept,
	})
}

// Heartbeat sends one advisory liveness message.
func (c *Client) Heartbeat() error {
	return c.SendMessage(protocol.Heartbeat{})
}

// RegenerateOutcome asks the Engine to re-generate a pending challenge
// outcome and flags it as generating locally.
func (c *Client) RegenerateOutcome(resolutionID, outcomeType, guidance string) error {
	if err := c.SendMessage(protocol.RegenerateOutcome{
		RequestID:   resolutionID,
		OutcomeType: outcomeType,
		Guidance:    guidance,
	}); err != nil {
		return err
	}
	c.Outcomes.SetGenerating(resolutionID, true)
	return nil
}

// DiscardChallenge drops a pending challenge outcome. The local entry is
// removed when the server confirms with ChallengeDiscarded.
func (c *Client) DiscardChallenge(resolutionID, feedback string) error {
	return c.SendMessage(protocol.DiscardChallenge{
		RequestID: resolutionID,
		Feedback:  feedback,
	})
}

// CreateAdHocChallenge creates a challenge on the fly (DM only).
func (c *Client) CreateAdHocChallenge(msg protocol.CreateAdHocChallenge) error {
	return c.SendMessage(msg)
}

// DismissRollResult acknowledges the displayed challenge result. Local
// only; the server is not involved.
func (c *Client) DismissRollResult() error {
	return c.Roll.DismissResult()
}
