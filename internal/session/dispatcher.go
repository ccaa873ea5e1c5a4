package session

import (
	"errors"
	"fmt"

	"github.com/Masterminds/semver/v3"

	"tavern/internal/approval"
	"tavern/internal/challenge"
	"tavern/pkg/logger"
	"tavern/pkg/protocol"
)

// dispatch applies exactly one state effect per inbound message. Called
// only from the run loop, in arrival order. Protocol violations are
// logged and dropped; nothing here ends the session.
func (c *Client) dispatch(msg protocol.ServerMessage) {
	switch m := msg.(type) {
	case *protocol.SessionJoined:
		c.State.ApplyJoined(m)
		c.checkEngineVersion(m.EngineVersion)
		logger.Info().
			Str("session_id", m.SessionID).
			Str("role", string(m.Role)).
			Str("engine_version", m.EngineVersion).
			Msg("Session joined")

	case *protocol.PlayerJoined:
		c.State.UpsertParticipant(protocol.Participant{
			UserID: m.UserID,
			Name:   m.Name,
			Role:   m.Role,
		})

	case *protocol.PlayerLeft:
		c.State.RemoveParticipant(m.UserID)

	case *protocol.ActionReceived:
		c.State.Append(EntryAction, m.UserID, actionText(m))

	case *protocol.SceneUpdate:
		c.State.SetScene(m)

	case *protocol.DialogueResponse:
		c.State.Append(EntryDialogue, m.NPCName, m.Dialogue)

	case *protocol.LLMProcessing:
		c.State.SetLLMActive(m.Active)

	case *protocol.ApprovalRequired:
		err := c.Approvals.AddPending(&approval.PendingApproval{
			RequestID:                m.RequestID,
			NPCName:                  m.NPCName,
			ProposedDialogue:         m.ProposedDialogue,
			InternalReasoning:        m.InternalReasoning,
			ProposedTools:            m.ProposedTools,
			ChallengeSuggestion:      m.ChallengeSuggestion,
			NarrativeEventSuggestion: m.NarrativeEventSuggestion,
		})
		if errors.Is(err, approval.ErrDuplicateRequest) {
			logger.Warn().Str("request_id", m.RequestID).Msg("Duplicate approval request ignored")
		}

	case *protocol.ResponseApproved:
		c.State.Append(EntryDialogue, m.NPCName, m.Dialogue)

	case *protocol.ChallengePrompt:
		c.Roll.SetPrompt(m)
		logger.Info().Str("challenge_id", m.ChallengeID).Str("stat", m.Stat).Msg("Challenge prompt")

	case *protocol.ChallengeResolved:
		c.handleChallengeResolved(m)

	case *protocol.NarrativeEventTriggered:
		c.State.Append(EntryEvent, m.Name, m.Description)

	case *protocol.SplitPartyNotification:
		c.State.AddNotice("info", "", m.Message)

	case *protocol.Error:
		logger.Warn().Str("code", m.Code).Str("message", m.Message).Msg("Engine error")
		c.State.AddNotice("error", m.Code, m.Message)

	case *protocol.Pong:
		c.State.MarkPong()

	case *protocol.GenerationQueued:
		c.State.UpdateGeneration(m.JobID, func(j *GenerationJob) {
			j.AssetType = m.AssetType
		})

	case *protocol.GenerationProgress:
		c.State.UpdateGeneration(m.JobID, func(j *GenerationJob) {
			j.Progress = m.Progress
			j.Stage = m.Stage
		})

	case *protocol.GenerationComplete:
		c.State.UpdateGeneration(m.JobID, func(j *GenerationJob) {
			j.Progress = 1
			j.URL = m.URL
			j.Done = true
		})

	case *protocol.GenerationFailed:
		c.State.UpdateGeneration(m.JobID, func(j *GenerationJob) {
			j.Error = m.Error
			j.Done = true
		})
		c.State.AddNotice("warn", "", "Asset generation failed: "+m.Error)

	case *protocol.SuggestionQueued:
		c.Outcomes.SetGenerating(m.ResolutionID, true)

	case *protocol.SuggestionProgress:
		// Progress for suggestions is not surfaced beyond the flag.

	case *protocol.SuggestionComplete:
		if !c.Outcomes.ApplySuggestions(m.ResolutionID, m.Suggestions, m.Branches) {
			logger.Debug().Str("resolution_id", m.ResolutionID).Msg("Suggestions for retired outcome")
		}

	case *protocol.SuggestionFailed:
		c.Outcomes.SetGenerating(m.ResolutionID, false)
		c.State.AddNotice("warn", "", "Outcome suggestion generation failed")

	case *protocol.ComfyUIStateChanged:
		c.State.SetAssetBackend(m.State)

	case *protocol.OutcomeRegenerated:
		if !c.Outcomes.ApplyRegenerated(m) {
			// The DM already finalized it; last writer loses.
			logger.Debug().Str("resolution_id", m.ResolutionID).Msg("Regeneration for retired outcome")
		}

	case *protocol.ChallengeDiscarded:
		c.Outcomes.Remove(m.ResolutionID)

	case *protocol.AdHocChallengeCreated:
		logger.Info().Str("challenge_id", m.ChallengeID).Str("name", m.ChallengeName).Msg("Ad hoc challenge created")

	default:
		logger.Warn().Str("tag", msg.Tag()).Msg("Unhandled server message")
	}
}

// handleChallengeResolved routes between the DM-approval flow (a present
// resolution_id) and the plain player result.
func (c *Client) handleChallengeResolved(m *protocol.ChallengeResolved) {
	if m.ResolutionID != "" {
		if err := c.Outcomes.Add(challenge.OutcomeFromResolved(m)); err != nil {
			logger.Warn().Str("resolution_id", m.ResolutionID).Msg("Duplicate challenge resolution ignored")
		}
		return
	}

	if err := c.Roll.Resolve(m); err != nil {
		logger.Warn().
			Err(err).
			Str("challenge_id", m.ChallengeID).
			Msg("Challenge result without a matching submission")
	}
}

// checkEngineVersion compares the reported version against the configured
// constraint. A mismatch is advisory only.
func (c *Client) checkEngineVersion(version string) {
	if c.constraint == nil || version == "" {
		return
	}

	v, err := semver.NewVersion(version)
	if err != nil {
		logger.Warn().Str("engine_version", version).Msg("Unparseable engine version")
		return
	}
	if !c.constraint.Check(v) {
		msg := fmt.Sprintf("Engine version %s is outside the supported range %s", version, c.constraint)
		logger.Warn().Msg(msg)
		c.State.AddNotice("warn", "engine_version", msg)
	}
}

func actionText(m *protocol.ActionReceived) string {
	text := m.ActionType
	if m.Target != "" {
		text += " -> " + m.Target
	}
	if m.Dialogue != "" {
		text += ": " + m.Dialogue
	}
	return text
}
