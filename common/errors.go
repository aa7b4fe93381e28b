package common

import (
	"errors"
	"fmt"

	"github.com/dan13ram/squads-treasury/models"
)

var ErrNoSigner = &NoSignerError{}

// ValidationError is raised before any network call is made.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func NewValidationError(field string, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

type NoSignerError struct{}

func (e *NoSignerError) Error() string {
	return "no wallet connected"
}

// BuildError wraps failures while deriving addresses, fetching program
// state, compiling or signing a transaction.
type BuildError struct {
	Op  string
	Err error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("failed to %s: %v", e.Op, e.Err)
}

func (e *BuildError) Unwrap() error {
	return e.Err
}

type BroadcastError struct {
	Err error
}

func (e *BroadcastError) Error() string {
	return fmt.Sprintf("transaction rejected by network: %v", e.Err)
}

func (e *BroadcastError) Unwrap() error {
	return e.Err
}

// ConfirmationError means the transaction reached the network but did
// not confirm cleanly.
type ConfirmationError struct {
	Result *models.ConfirmationResult
	Err    error
}

func (e *ConfirmationError) TimedOut() bool {
	return e.Result != nil && e.Result.Outcome == models.ConfirmationOutcomeTimedOut
}

func (e *ConfirmationError) Error() string {
	if e.TimedOut() {
		return "transaction confirmation timed out"
	}
	if e.Err != nil {
		return fmt.Sprintf("transaction failed on-chain: %v", e.Err)
	}
	return "transaction failed on-chain"
}

func (e *ConfirmationError) Unwrap() error {
	return e.Err
}

// UserMessage converts any error into text suitable for direct display.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var validationErr *ValidationError
	var noSignerErr *NoSignerError
	var buildErr *BuildError
	var broadcastErr *BroadcastError
	var confirmationErr *ConfirmationError

	switch {
	case errors.As(err, &validationErr):
		if validationErr.Field == "" {
			return validationErr.Message
		}
		return validationErr.Error()
	case errors.As(err, &noSignerErr):
		return "Please connect your wallet."
	case errors.As(err, &confirmationErr):
		if confirmationErr.TimedOut() {
			return "Failed to confirm transaction: timed out waiting for confirmation"
		}
		return "Failed to confirm transaction: " + confirmationErr.Error()
	case errors.As(err, &broadcastErr):
		return "Failed to send transaction: " + broadcastErr.Err.Error()
	case errors.As(err, &buildErr):
		return "Failed to build transaction: " + buildErr.Error()
	}
	return err.Error()
}
