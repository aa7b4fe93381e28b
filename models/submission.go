package models

import (
	"time"

	"github.com/gagliardetto/solana-go"
)

type SubmissionState string

const (
	SubmissionStateIdle              SubmissionState = "idle"
	SubmissionStateBuilding          SubmissionState = "building"
	SubmissionStateAwaitingSignature SubmissionState = "awaiting_signature"
	SubmissionStateBroadcasting      SubmissionState = "broadcasting"
	SubmissionStateConfirming        SubmissionState = "confirming"
	SubmissionStateSucceeded         SubmissionState = "succeeded"
	SubmissionStateFailed            SubmissionState = "failed"
)

// SubmissionAttempt lives for one user-initiated action and is never persisted.
type SubmissionAttempt struct {
	ID           string
	Action       string
	State        SubmissionState
	Instructions []solana.Instruction
	Transactions []*solana.Transaction
	Signatures   []solana.Signature
	Result       *ConfirmationResult
	Err          error
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type ConfirmationOutcome string

const (
	ConfirmationOutcomeConfirmed ConfirmationOutcome = "confirmed"
	ConfirmationOutcomeFailed    ConfirmationOutcome = "failed"
	ConfirmationOutcomeTimedOut  ConfirmationOutcome = "timed_out"
)

type SignatureState string

const (
	SignatureStateConfirmed SignatureState = "confirmed"
	SignatureStateFailed    SignatureState = "failed"
	SignatureStateUnknown   SignatureState = "unknown"
)

type SignatureStatus struct {
	Signature          solana.Signature `json:"signature"`
	State              SignatureState   `json:"state"`
	ConfirmationStatus string           `json:"confirmation_status"`
	Err                interface{}      `json:"err,omitempty"`
}

type ConfirmationResult struct {
	Outcome  ConfirmationOutcome `json:"outcome"`
	Statuses []SignatureStatus   `json:"statuses"`
}

func (r *ConfirmationResult) Confirmed() bool {
	return r != nil && r.Outcome == ConfirmationOutcomeConfirmed
}
