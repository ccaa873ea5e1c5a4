package approval

import "errors"

var (
	// ErrDuplicateRequest indicates an ApprovalRequired arrived with a
	// request_id that is already pending. The original request is kept.
	ErrDuplicateRequest = errors.New("approval request already pending")

	// ErrRequestNotFound indicates a decision for an unknown request_id.
	ErrRequestNotFound = errors.New("approval request not found")

	// ErrNoDecision indicates a decision message without a variant.
	ErrNoDecision = errors.New("approval decision has no variant")
)
