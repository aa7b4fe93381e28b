package treasury

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/dan13ram/squads-treasury/common"
	"github.com/dan13ram/squads-treasury/models"
	"github.com/dan13ram/squads-treasury/treasury/util"
)

func memoGroup(payer solana.PublicKey, text string) []solana.Instruction {
	return []solana.Instruction{
		solana.NewInstruction(memoProgramID, solana.AccountMetaSlice{solana.Meta(payer).SIGNER().WRITE()}, []byte(text)),
	}
}

func newTestPipeline(f *fixture, signer common.Signer, invalidator Invalidator, states *[]models.SubmissionState) *Pipeline {
	return NewPipeline(f.client, signer, invalidator, models.ConfirmationConfig{TimeoutMillis: 1000, IntervalMillis: 10}, func(attempt models.SubmissionAttempt) {
		*states = append(*states, attempt.State)
	})
}

func TestPipelineSubmit(t *testing.T) {
	t.Run("No Signer", func(t *testing.T) {
		f := newFixture(t)
		var states []models.SubmissionState
		built := false

		pipeline := newTestPipeline(f, nil, nil, &states)
		attempt, err := pipeline.Submit(context.Background(), "test", func(ctx context.Context, payer solana.PublicKey) ([][]solana.Instruction, error) {
			built = true
			return nil, nil
		})

		assert.ErrorIs(t, err, common.ErrNoSigner)
		assert.Equal(t, "Please connect your wallet.", common.UserMessage(err))
		assert.Equal(t, models.SubmissionStateIdle, attempt.State)
		assert.False(t, built)
		assert.Empty(t, states)
		f.client.AssertNotCalled(t, "GetLatestBlockhash", mock.Anything)
	})

	t.Run("Succeeded", func(t *testing.T) {
		f := newFixture(t)
		sent := f.onSubmit()
		confirmations := stubConfirmation(t)
		invalidator := &recordingInvalidator{}
		var states []models.SubmissionState

		pipeline := newTestPipeline(f, f.signer, invalidator, &states)
		attempt, err := pipeline.Submit(context.Background(), "test", func(ctx context.Context, payer solana.PublicKey) ([][]solana.Instruction, error) {
			assert.Equal(t, f.signer.PublicKey(), payer)
			return [][]solana.Instruction{memoGroup(payer, "hello")}, nil
		}, KeyTransactions)

		assert.NoError(t, err)
		assert.NotEmpty(t, attempt.ID)
		assert.Equal(t, "test", attempt.Action)
		assert.Equal(t, models.SubmissionStateSucceeded, attempt.State)
		assert.Equal(t, []solana.Signature{{7}}, attempt.Signatures)
		assert.True(t, attempt.Result.Confirmed())
		assert.Len(t, attempt.Instructions, 1)

		assert.Equal(t, []models.SubmissionState{
			models.SubmissionStateBuilding,
			models.SubmissionStateAwaitingSignature,
			models.SubmissionStateBroadcasting,
			models.SubmissionStateConfirming,
			models.SubmissionStateSucceeded,
		}, states)

		assert.Len(t, *sent, 1)
		tx := (*sent)[0]
		assert.Equal(t, solana.Hash{1}, tx.Message.RecentBlockhash)
		assert.Equal(t, f.signer.PublicKey(), tx.Message.AccountKeys[0])
		assert.Len(t, tx.Signatures, 1)
		assert.NotEqual(t, solana.Signature{}, tx.Signatures[0])

		assert.Equal(t, 1, *confirmations)
		assert.Equal(t, [][]string{{KeyTransactions}}, invalidator.calls)
	})

	t.Run("Batch Stops At First Failure", func(t *testing.T) {
		f := newFixture(t)
		sent := f.onSubmit()
		confirmations := stubConfirmation(t, models.ConfirmationOutcomeFailed)
		invalidator := &recordingInvalidator{}
		var states []models.SubmissionState

		pipeline := newTestPipeline(f, f.signer, invalidator, &states)
		attempt, err := pipeline.Submit(context.Background(), "test", func(ctx context.Context, payer solana.PublicKey) ([][]solana.Instruction, error) {
			return [][]solana.Instruction{memoGroup(payer, "one"), memoGroup(payer, "two")}, nil
		}, KeyTransactions)

		var confirmationErr *common.ConfirmationError
		assert.True(t, errors.As(err, &confirmationErr))
		assert.False(t, confirmationErr.TimedOut())
		assert.Contains(t, common.UserMessage(err), "Failed to confirm transaction")

		assert.Equal(t, models.SubmissionStateFailed, attempt.State)
		assert.Len(t, attempt.Transactions, 2)
		for _, tx := range attempt.Transactions {
			assert.NotEqual(t, solana.Signature{}, tx.Signatures[0])
		}
		assert.Len(t, *sent, 1)
		assert.Equal(t, 1, *confirmations)
		assert.Empty(t, invalidator.calls)
		assert.Equal(t, models.SubmissionStateFailed, states[len(states)-1])
	})

	t.Run("Batch Confirms In Order", func(t *testing.T) {
		f := newFixture(t)
		sent := f.onSubmit()
		confirmations := stubConfirmation(t)
		var states []models.SubmissionState

		pipeline := newTestPipeline(f, f.signer, nil, &states)
		attempt, err := pipeline.Submit(context.Background(), "test", func(ctx context.Context, payer solana.PublicKey) ([][]solana.Instruction, error) {
			return [][]solana.Instruction{memoGroup(payer, "one"), memoGroup(payer, "two"), memoGroup(payer, "three")}, nil
		})

		assert.NoError(t, err)
		assert.Len(t, *sent, 3)
		assert.Equal(t, 3, *confirmations)
		assert.Len(t, attempt.Signatures, 3)
		assert.Len(t, attempt.Result.Statuses, 3)
		assert.Equal(t, []models.SubmissionState{
			models.SubmissionStateBuilding,
			models.SubmissionStateAwaitingSignature,
			models.SubmissionStateBroadcasting,
			models.SubmissionStateConfirming,
			models.SubmissionStateBroadcasting,
			models.SubmissionStateConfirming,
			models.SubmissionStateBroadcasting,
			models.SubmissionStateConfirming,
			models.SubmissionStateSucceeded,
		}, states)
	})

	t.Run("Timed Out", func(t *testing.T) {
		f := newFixture(t)
		f.onSubmit()
		stubConfirmation(t, models.ConfirmationOutcomeTimedOut)
		var states []models.SubmissionState

		pipeline := newTestPipeline(f, f.signer, nil, &states)
		attempt, err := pipeline.Submit(context.Background(), "test", func(ctx context.Context, payer solana.PublicKey) ([][]solana.Instruction, error) {
			return [][]solana.Instruction{memoGroup(payer, "hello")}, nil
		})

		var confirmationErr *common.ConfirmationError
		assert.True(t, errors.As(err, &confirmationErr))
		assert.True(t, confirmationErr.TimedOut())
		assert.Equal(t, models.ConfirmationOutcomeTimedOut, attempt.Result.Outcome)
		assert.Len(t, attempt.Result.Statuses, 1)
	})

	t.Run("Broadcast Rejected", func(t *testing.T) {
		f := newFixture(t)
		f.client.On("GetLatestBlockhash", mock.Anything).Return(solana.Hash{1}, nil)
		f.client.On("SendTransaction", mock.Anything, mock.Anything).Return(solana.Signature{}, errors.New("blockhash not found"))
		confirmations := stubConfirmation(t)
		var states []models.SubmissionState

		pipeline := newTestPipeline(f, f.signer, nil, &states)
		attempt, err := pipeline.Submit(context.Background(), "test", func(ctx context.Context, payer solana.PublicKey) ([][]solana.Instruction, error) {
			return [][]solana.Instruction{memoGroup(payer, "hello")}, nil
		})

		var broadcastErr *common.BroadcastError
		assert.True(t, errors.As(err, &broadcastErr))
		assert.Equal(t, "Failed to send transaction: blockhash not found", common.UserMessage(err))
		assert.Equal(t, models.SubmissionStateFailed, attempt.State)
		assert.Empty(t, attempt.Signatures)
		assert.Equal(t, 0, *confirmations)
		f.client.AssertNumberOfCalls(t, "SendTransaction", 1)
	})

	t.Run("Build Failure", func(t *testing.T) {
		f := newFixture(t)
		var states []models.SubmissionState

		pipeline := newTestPipeline(f, f.signer, nil, &states)
		_, err := pipeline.Submit(context.Background(), "test", func(ctx context.Context, payer solana.PublicKey) ([][]solana.Instruction, error) {
			return nil, errors.New("rpc down")
		})

		var buildErr *common.BuildError
		assert.True(t, errors.As(err, &buildErr))
		assert.Equal(t, []models.SubmissionState{models.SubmissionStateBuilding, models.SubmissionStateFailed}, states)
		f.client.AssertNotCalled(t, "GetLatestBlockhash", mock.Anything)
	})

	t.Run("Validation Failure Passes Through", func(t *testing.T) {
		f := newFixture(t)
		var states []models.SubmissionState

		pipeline := newTestPipeline(f, f.signer, nil, &states)
		_, err := pipeline.Submit(context.Background(), "test", func(ctx context.Context, payer solana.PublicKey) ([][]solana.Instruction, error) {
			return nil, &common.ValidationError{Message: "Member already exists"}
		})

		assert.Equal(t, "Member already exists", common.UserMessage(err))
	})
}

func TestTransactionSize(t *testing.T) {
	payer := solana.NewWallet().PublicKey()
	tx, err := NewTransaction(memoGroup(payer, "hello"), payer, solana.Hash{})
	assert.NoError(t, err)

	message, err := tx.Message.MarshalBinary()
	assert.NoError(t, err)

	size, err := TransactionSize(tx)
	assert.NoError(t, err)
	assert.Equal(t, 1+64+len(message), size)
}

func TestPipelineBlockhashLifetime(t *testing.T) {
	batch := func(ctx context.Context, payer solana.PublicKey) ([][]solana.Instruction, error) {
		return [][]solana.Instruction{memoGroup(payer, "one"), memoGroup(payer, "two")}, nil
	}

	t.Run("Confirmation Bounded By Blockhash", func(t *testing.T) {
		f := newFixture(t)
		f.onSubmit()
		stubConfirmation(t)
		waitWith := utilWaitForConfirmation
		var timeouts []time.Duration
		utilWaitForConfirmation = func(ctx context.Context, client util.SignatureStatusGetter, signatures []solana.Signature, timeout time.Duration, interval time.Duration) (*models.ConfirmationResult, error) {
			timeouts = append(timeouts, timeout)
			return waitWith(ctx, client, signatures, timeout, interval)
		}

		pipeline := NewPipeline(f.client, f.signer, nil, models.ConfirmationConfig{TimeoutMillis: 10 * 60 * 1000}, nil)
		_, err := pipeline.Submit(context.Background(), "test", batch)

		assert.NoError(t, err)
		assert.Len(t, timeouts, 2)
		for _, timeout := range timeouts {
			assert.Greater(t, timeout, time.Duration(0))
			assert.LessOrEqual(t, timeout, blockhashLifetime)
		}
		assert.LessOrEqual(t, timeouts[1], timeouts[0])
	})

	t.Run("Expired Before Broadcast", func(t *testing.T) {
		f := newFixture(t)
		sent := f.onSubmit()
		confirmations := stubConfirmation(t)
		original := blockhashLifetime
		t.Cleanup(func() { blockhashLifetime = original })
		blockhashLifetime = 0

		var states []models.SubmissionState
		pipeline := newTestPipeline(f, f.signer, nil, &states)
		attempt, err := pipeline.Submit(context.Background(), "test", batch)

		var broadcastErr *common.BroadcastError
		assert.True(t, errors.As(err, &broadcastErr))
		assert.ErrorIs(t, err, ErrBlockhashExpired)
		assert.Equal(t, models.SubmissionStateFailed, attempt.State)
		assert.Empty(t, *sent)
		assert.Equal(t, 0, *confirmations)
	})
}
