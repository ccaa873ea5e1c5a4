package protocol

import (
	"encoding/json"
	"fmt"
)

// Decision is the DM's verdict on a pending approval request. Exactly one
// variant is sent per request_id. On the wire the variant is identified by
// a secondary discriminator field "decision", with the variant's fields
// inline next to it.
type Decision interface {
	// Label returns the normalized outcome label recorded in history.
	Label() string

	decisionTag() string
}

// Decision discriminator values.
const (
	decisionAccept   = "Accept"
	decisionModify   = "AcceptWithModification"
	decisionReject   = "Reject"
	decisionTakeOver = "TakeOver"
)

// Accept applies the proposed response as-is.
type Accept struct{}

func (Accept) Label() string       { return "accepted" }
func (Accept) decisionTag() string { return decisionAccept }

// AcceptWithModification applies an edited response and a filtered tool set.
type AcceptWithModification struct {
	ModifiedDialogue string     `json:"modified_dialogue"`
	ApprovedTools    []ToolCall `json:"approved_tools"`
	RejectedTools    []ToolCall `json:"rejected_tools"`
}

func (AcceptWithModification) Label() string       { return "modified" }
func (AcceptWithModification) decisionTag() string { return decisionModify }

// Reject discards the proposed response with feedback for regeneration.
type Reject struct {
	Feedback string `json:"feedback"`
}

func (Reject) Label() string       { return "rejected" }
func (Reject) decisionTag() string { return decisionReject }

// TakeOver replaces the proposed response with the DM's own.
type TakeOver struct {
	DMResponse string `json:"dm_response"`
}

func (TakeOver) Label() string       { return "takeover" }
func (TakeOver) decisionTag() string { return decisionTakeOver }

// ApprovalDecision carries the DM's decision for a pending request.
type ApprovalDecision struct {
	RequestID string
	Decision  Decision
}

func (ApprovalDecision) Tag() string { return TagApprovalDecision }

// MarshalJSON flattens the decision variant's fields next to the
// request_id and the "decision" discriminator.
func (m ApprovalDecision) MarshalJSON() ([]byte, error) {
	if m.Decision == nil {
		return nil, fmt.Errorf("approval decision for %q has no decision variant", m.RequestID)
	}

	body, err := json.Marshal(m.Decision)
	if err != nil {
		return nil, fmt.Errorf("marshal decision: %w", err)
	}

	fields := make(map[string]json.RawMessage)
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("flatten decision: %w", err)
	}

	fields["request_id"], _ = json.Marshal(m.RequestID)
	fields["decision"], _ = json.Marshal(m.Decision.decisionTag())
	return json.Marshal(fields)
}

// UnmarshalJSON restores the decision variant from the secondary
// discriminator.
func (m *ApprovalDecision) UnmarshalJSON(data []byte) error {
	var head struct {
		RequestID string `json:"request_id"`
		Decision  string `json:"decision"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return err
	}

	m.RequestID = head.RequestID

	switch head.Decision {
	case decisionAccept:
		m.Decision = Accept{}
	case decisionModify:
		var d AcceptWithModification
		if err := json.Unmarshal(data, &d); err != nil {
			return err
		}
		m.Decision = d
	case decisionReject:
		var d Reject
		if err := json.Unmarshal(data, &d); err != nil {
			return err
		}
		m.Decision = d
	case decisionTakeOver:
		var d TakeOver
		if err := json.Unmarshal(data, &d); err != nil {
			return err
		}
		m.Decision = d
	default:
		return fmt.Errorf("unknown decision %q", head.Decision)
	}
	return nil
}
