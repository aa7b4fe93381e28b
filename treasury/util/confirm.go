package util

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/multierr"

	"github.com/dan13ram/squads-treasury/models"

	log "github.com/sirupsen/logrus"
)

const (
	DefaultConfirmationTimeout  = 60 * time.Second
	DefaultConfirmationInterval = 500 * time.Millisecond
)

var ErrNoSignatures = errors.New("no signatures to confirm")

var errPending = errors.New("signatures pending")

type SignatureStatusGetter interface {
	GetSignatureStatuses(ctx context.Context, signatures ...solana.Signature) ([]*rpc.SignatureStatusesResult, error)
}

func signatureStatus(signature solana.Signature, status *rpc.SignatureStatusesResult) models.SignatureStatus {
	result := models.SignatureStatus{
		Signature: signature,
		State:     models.SignatureStateUnknown,
	}
	if status == nil {
		return result
	}
	result.ConfirmationStatus = string(status.ConfirmationStatus)
	result.Err = status.Err

	terminal := status.ConfirmationStatus == rpc.ConfirmationStatusConfirmed ||
		status.ConfirmationStatus == rpc.ConfirmationStatusFinalized
	switch {
	case terminal && status.Err != nil:
		result.State = models.SignatureStateFailed
	case terminal:
		result.State = models.SignatureStateConfirmed
	}
	return result
}

// evaluateStatuses reports the outcome once every signature is terminal.
func evaluateStatuses(statuses []models.SignatureStatus) (models.ConfirmationOutcome, bool) {
	failed := false
	for _, status := range statuses {
		switch status.State {
		case models.SignatureStateUnknown:
			return "", false
		case models.SignatureStateFailed:
			failed = true
		}
	}
	if failed {
		return models.ConfirmationOutcomeFailed, true
	}
	return models.ConfirmationOutcomeConfirmed, true
}

// WaitForConfirmation polls the statuses of signatures at a fixed interval
// until all of them are confirmed, all of them are terminal with at least
// one on-chain error, or timeout elapses. It always resolves with the last
// observed statuses; only empty input is an error.
func WaitForConfirmation(
	ctx context.Context,
	client SignatureStatusGetter,
	signatures []solana.Signature,
	timeout time.Duration,
	interval time.Duration,
) (*models.ConfirmationResult, error) {
	if len(signatures) == 0 {
		return nil, ErrNoSignatures
	}
	if timeout <= 0 {
		timeout = DefaultConfirmationTimeout
	}
	if interval <= 0 {
		interval = DefaultConfirmationInterval
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	statuses := make([]models.SignatureStatus, len(signatures))
	for i, signature := range signatures {
		statuses[i] = signatureStatus(signature, nil)
	}
	result := &models.ConfirmationResult{
		Outcome:  models.ConfirmationOutcomeTimedOut,
		Statuses: statuses,
	}

	attempt := 0
	err := retry.Do(
		func() error {
			attempt++
			values, err := client.GetSignatureStatuses(ctx, signatures...)
			if err != nil {
				log.WithError(err).Debug("[WAITER] Error fetching signature statuses")
				return err
			}

			next := make([]models.SignatureStatus, len(signatures))
			for i, signature := range signatures {
				var value *rpc.SignatureStatusesResult
				if i < len(values) {
					value = values[i]
				}
				next[i] = signatureStatus(signature, value)
			}
			result.Statuses = next

			outcome, done := evaluateStatuses(next)
			if !done {
				return errPending
			}
			result.Outcome = outcome
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(0),
		retry.Delay(interval),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	)

	logger := log.WithField("signatures", len(signatures)).WithField("attempts", attempt)
	if err != nil {
		result.Outcome = models.ConfirmationOutcomeTimedOut
		logger.Warn("[WAITER] Timed out waiting for confirmation")
		return result, nil
	}

	logger.WithField("outcome", result.Outcome).Debug("[WAITER] Signatures resolved")
	return result, nil
}

// ConfirmationErrors combines the on-chain errors of every failed signature.
func ConfirmationErrors(result *models.ConfirmationResult) error {
	if result == nil {
		return nil
	}
	var err error
	for _, status := range result.Statuses {
		switch status.State {
		case models.SignatureStateFailed:
			err = multierr.Append(err, fmt.Errorf("%s: %v", status.Signature, status.Err))
		case models.SignatureStateUnknown:
			if result.Outcome == models.ConfirmationOutcomeTimedOut {
				err = multierr.Append(err, fmt.Errorf("%s: not confirmed", status.Signature))
			}
		}
	}
	return err
}
