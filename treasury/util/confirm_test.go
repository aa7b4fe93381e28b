package util

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/dan13ram/squads-treasury/models"
	"github.com/dan13ram/squads-treasury/solana/client/mocks"
)

func status(confirmation rpc.ConfirmationStatusType, err interface{}) *rpc.SignatureStatusesResult {
	return &rpc.SignatureStatusesResult{ConfirmationStatus: confirmation, Err: err}
}

func TestWaitForConfirmation(t *testing.T) {
	sigA := solana.Signature{1}
	sigB := solana.Signature{2}
	signatures := []solana.Signature{sigA, sigB}

	t.Run("Empty Input", func(t *testing.T) {
		mockClient := new(mocks.MockSolanaClient)
		result, err := WaitForConfirmation(context.Background(), mockClient, nil, time.Second, 10*time.Millisecond)
		assert.ErrorIs(t, err, ErrNoSignatures)
		assert.Nil(t, result)
		mockClient.AssertNotCalled(t, "GetSignatureStatuses", mock.Anything, mock.Anything)
	})

	t.Run("Confirmed", func(t *testing.T) {
		mockClient := new(mocks.MockSolanaClient)
		mockClient.On("GetSignatureStatuses", mock.Anything, signatures).
			Return([]*rpc.SignatureStatusesResult{nil, status(rpc.ConfirmationStatusProcessed, nil)}, nil).Once()
		mockClient.On("GetSignatureStatuses", mock.Anything, signatures).
			Return([]*rpc.SignatureStatusesResult{
				status(rpc.ConfirmationStatusConfirmed, nil),
				status(rpc.ConfirmationStatusFinalized, nil),
			}, nil).Once()

		start := time.Now()
		result, err := WaitForConfirmation(context.Background(), mockClient, signatures, 5*time.Second, 10*time.Millisecond)
		assert.NoError(t, err)
		assert.Less(t, time.Since(start), 5*time.Second)

		assert.True(t, result.Confirmed())
		assert.Len(t, result.Statuses, 2)
		assert.Equal(t, models.SignatureStateConfirmed, result.Statuses[0].State)
		assert.Equal(t, "finalized", result.Statuses[1].ConfirmationStatus)
		assert.NoError(t, ConfirmationErrors(result))
		mockClient.AssertNumberOfCalls(t, "GetSignatureStatuses", 2)
	})

	t.Run("Transient Error", func(t *testing.T) {
		mockClient := new(mocks.MockSolanaClient)
		mockClient.On("GetSignatureStatuses", mock.Anything, signatures).
			Return(nil, errors.New("rpc unavailable")).Once()
		mockClient.On("GetSignatureStatuses", mock.Anything, signatures).
			Return([]*rpc.SignatureStatusesResult{
				status(rpc.ConfirmationStatusConfirmed, nil),
				status(rpc.ConfirmationStatusConfirmed, nil),
			}, nil).Once()

		result, err := WaitForConfirmation(context.Background(), mockClient, signatures, 5*time.Second, 10*time.Millisecond)
		assert.NoError(t, err)
		assert.True(t, result.Confirmed())
	})

	t.Run("Failed", func(t *testing.T) {
		mockClient := new(mocks.MockSolanaClient)
		onChainErr := map[string]interface{}{"InstructionError": []interface{}{0, "Custom"}}
		mockClient.On("GetSignatureStatuses", mock.Anything, signatures).
			Return([]*rpc.SignatureStatusesResult{
				status(rpc.ConfirmationStatusConfirmed, nil),
				status(rpc.ConfirmationStatusConfirmed, onChainErr),
			}, nil).Once()

		result, err := WaitForConfirmation(context.Background(), mockClient, signatures, 5*time.Second, 10*time.Millisecond)
		assert.NoError(t, err)
		assert.Equal(t, models.ConfirmationOutcomeFailed, result.Outcome)
		assert.Equal(t, models.SignatureStateConfirmed, result.Statuses[0].State)
		assert.Equal(t, models.SignatureStateFailed, result.Statuses[1].State)
		assert.Equal(t, onChainErr, result.Statuses[1].Err)
		assert.ErrorContains(t, ConfirmationErrors(result), sigB.String())
		mockClient.AssertNumberOfCalls(t, "GetSignatureStatuses", 1)
	})

	t.Run("Timed Out", func(t *testing.T) {
		mockClient := new(mocks.MockSolanaClient)
		mockClient.On("GetSignatureStatuses", mock.Anything, signatures).
			Return([]*rpc.SignatureStatusesResult{
				status(rpc.ConfirmationStatusConfirmed, nil),
				status(rpc.ConfirmationStatusProcessed, nil),
			}, nil)

		timeout := 100 * time.Millisecond
		interval := 20 * time.Millisecond

		start := time.Now()
		result, err := WaitForConfirmation(context.Background(), mockClient, signatures, timeout, interval)
		elapsed := time.Since(start)

		assert.NoError(t, err)
		assert.GreaterOrEqual(t, elapsed, timeout)
		assert.Less(t, elapsed, timeout+interval+time.Second)

		assert.Equal(t, models.ConfirmationOutcomeTimedOut, result.Outcome)
		assert.False(t, result.Confirmed())
		assert.Equal(t, models.SignatureStateConfirmed, result.Statuses[0].State)
		assert.Equal(t, models.SignatureStateUnknown, result.Statuses[1].State)
		assert.Equal(t, "processed", result.Statuses[1].ConfirmationStatus)

		errs := ConfirmationErrors(result)
		assert.ErrorContains(t, errs, "not confirmed")
		assert.NotContains(t, errs.Error(), sigA.String())
	})

	t.Run("Parent Cancelled", func(t *testing.T) {
		mockClient := new(mocks.MockSolanaClient)
		mockClient.On("GetSignatureStatuses", mock.Anything, signatures).
			Return([]*rpc.SignatureStatusesResult{nil, nil}, nil)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		result, err := WaitForConfirmation(ctx, mockClient, signatures, time.Minute, 10*time.Millisecond)
		assert.NoError(t, err)
		assert.Equal(t, models.ConfirmationOutcomeTimedOut, result.Outcome)
		assert.Len(t, result.Statuses, 2)
	})
}
