package treasury

import (
	"context"
	"errors"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/dan13ram/squads-treasury/common"
	"github.com/dan13ram/squads-treasury/models"
	"github.com/dan13ram/squads-treasury/solana/client"
	"github.com/dan13ram/squads-treasury/treasury/util"

	log "github.com/sirupsen/logrus"
)

var submissionMetrics = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "treasury_submissions_total",
		Help: "Submitted actions by final state",
	},
	[]string{
		"action",
		"state",
	},
)

const signatureLength = 64

var (
	utilWaitForConfirmation = util.WaitForConfirmation

	// blockhashLifetime approximates 150 slots, after which a transaction
	// signed with the blockhash is no longer accepted.
	blockhashLifetime = 60 * time.Second
)

var ErrBlockhashExpired = errors.New("blockhash expired before the transaction was sent")

// Notifier receives the attempt after every state transition.
type Notifier func(attempt models.SubmissionAttempt)

// BuildFunc returns the instructions of one action, one group per
// transaction, for the given fee payer.
type BuildFunc func(ctx context.Context, payer solana.PublicKey) ([][]solana.Instruction, error)

type Pipeline struct {
	client      client.SolanaClient
	signer      common.Signer
	invalidator Invalidator
	notifier    Notifier

	confirmationTimeout  time.Duration
	confirmationInterval time.Duration
}

func NewPipeline(
	solanaClient client.SolanaClient,
	signer common.Signer,
	invalidator Invalidator,
	config models.ConfirmationConfig,
	notifier Notifier,
) *Pipeline {
	return &Pipeline{
		client:               solanaClient,
		signer:               signer,
		invalidator:          invalidator,
		notifier:             notifier,
		confirmationTimeout:  time.Duration(config.TimeoutMillis) * time.Millisecond,
		confirmationInterval: time.Duration(config.IntervalMillis) * time.Millisecond,
	}
}

func (p *Pipeline) Signer() common.Signer {
	return p.signer
}

func (p *Pipeline) transition(attempt *models.SubmissionAttempt, state models.SubmissionState) {
	attempt.State = state
	attempt.UpdatedAt = time.Now()

	log.WithField("id", attempt.ID).
		WithField("action", attempt.Action).
		WithField("state", state).
		Debug("[PIPELINE] State changed")

	if p.notifier != nil {
		p.notifier(*attempt)
	}
}

func (p *Pipeline) fail(attempt *models.SubmissionAttempt, err error) (*models.SubmissionAttempt, error) {
	attempt.Err = err
	p.transition(attempt, models.SubmissionStateFailed)
	submissionMetrics.WithLabelValues(attempt.Action, string(models.SubmissionStateFailed)).Inc()

	log.WithError(err).
		WithField("id", attempt.ID).
		WithField("action", attempt.Action).
		Error("[PIPELINE] Submission failed")
	return attempt, err
}

func asBuildError(op string, err error) error {
	var validationErr *common.ValidationError
	var buildErr *common.BuildError
	if errors.As(err, &validationErr) || errors.As(err, &buildErr) {
		return err
	}
	return &common.BuildError{Op: op, Err: err}
}

// Submit runs one action through build, sign, broadcast and confirm.
// Transactions are signed together, then broadcast one at a time with
// each confirmed before the next is sent. The read cache keys are
// invalidated only after every transaction confirmed.
func (p *Pipeline) Submit(ctx context.Context, action string, build BuildFunc, invalidate ...string) (*models.SubmissionAttempt, error) {
	now := time.Now()
	attempt := &models.SubmissionAttempt{
		ID:        uuid.NewString(),
		Action:    action,
		State:     models.SubmissionStateIdle,
		CreatedAt: now,
		UpdatedAt: now,
	}
	logger := log.WithField("id", attempt.ID).WithField("action", action)

	if p.signer == nil {
		logger.Warn("[PIPELINE] No wallet connected")
		attempt.Err = common.ErrNoSigner
		return attempt, common.ErrNoSigner
	}
	payer := p.signer.PublicKey()

	p.transition(attempt, models.SubmissionStateBuilding)

	groups, err := build(ctx, payer)
	if err != nil {
		return p.fail(attempt, asBuildError("build instructions", err))
	}
	if len(groups) == 0 {
		return p.fail(attempt, &common.BuildError{Op: "build instructions", Err: errors.New("nothing to submit")})
	}

	blockhash, err := p.client.GetLatestBlockhash(ctx)
	if err != nil {
		return p.fail(attempt, asBuildError("fetch recent blockhash", err))
	}
	expiry := time.Now().Add(blockhashLifetime)

	txs := make([]*solana.Transaction, 0, len(groups))
	for _, instructions := range groups {
		tx, err := NewTransaction(instructions, payer, blockhash)
		if err != nil {
			return p.fail(attempt, asBuildError("compile transaction", err))
		}
		attempt.Instructions = append(attempt.Instructions, instructions...)
		txs = append(txs, tx)
	}
	attempt.Transactions = txs

	p.transition(attempt, models.SubmissionStateAwaitingSignature)

	if err := common.SignTransactions(p.signer, txs...); err != nil {
		return p.fail(attempt, asBuildError("sign transaction", err))
	}

	for i, tx := range txs {
		p.transition(attempt, models.SubmissionStateBroadcasting)

		// every transaction of a batch shares one blockhash
		timeout := p.confirmationWindow(expiry)
		if timeout <= 0 {
			return p.fail(attempt, &common.BroadcastError{Err: ErrBlockhashExpired})
		}

		signature, err := p.client.SendTransaction(ctx, tx)
		if err != nil {
			return p.fail(attempt, &common.BroadcastError{Err: err})
		}
		attempt.Signatures = append(attempt.Signatures, signature)
		logger.WithField("signature", signature.String()).
			WithField("transaction", i+1).
			WithField("total", len(txs)).
			Info("[PIPELINE] Transaction sent")

		p.transition(attempt, models.SubmissionStateConfirming)

		result, err := utilWaitForConfirmation(ctx, p.client, []solana.Signature{signature}, timeout, p.confirmationInterval)
		if err != nil {
			return p.fail(attempt, &common.ConfirmationError{Err: err})
		}
		attempt.Result = mergeResults(attempt.Result, result)
		if !result.Confirmed() {
			return p.fail(attempt, &common.ConfirmationError{Result: result, Err: util.ConfirmationErrors(result)})
		}
	}

	if p.invalidator != nil && len(invalidate) > 0 {
		p.invalidator.Invalidate(invalidate...)
	}

	p.transition(attempt, models.SubmissionStateSucceeded)
	submissionMetrics.WithLabelValues(action, string(models.SubmissionStateSucceeded)).Inc()
	logger.WithField("signatures", len(attempt.Signatures)).Info("[PIPELINE] Submission succeeded")

	return attempt, nil
}

// confirmationWindow is the configured confirmation timeout, cut short
// when the blockhash expires first.
func (p *Pipeline) confirmationWindow(expiry time.Time) time.Duration {
	timeout := p.confirmationTimeout
	if timeout <= 0 {
		timeout = util.DefaultConfirmationTimeout
	}
	if remaining := time.Until(expiry); remaining < timeout {
		return remaining
	}
	return timeout
}

func mergeResults(previous *models.ConfirmationResult, next *models.ConfirmationResult) *models.ConfirmationResult {
	if previous == nil {
		return next
	}
	return &models.ConfirmationResult{
		Outcome:  next.Outcome,
		Statuses: append(append([]models.SignatureStatus{}, previous.Statuses...), next.Statuses...),
	}
}

// NewTransaction compiles instructions into an unsigned legacy transaction.
func NewTransaction(instructions []solana.Instruction, payer solana.PublicKey, blockhash solana.Hash) (*solana.Transaction, error) {
	return solana.NewTransaction(instructions, blockhash, solana.TransactionPayer(payer))
}

// TransactionSize is the wire size of tx once fully signed.
func TransactionSize(tx *solana.Transaction) (int, error) {
	message, err := tx.Message.MarshalBinary()
	if err != nil {
		return 0, err
	}
	signatures := int(tx.Message.Header.NumRequiredSignatures)
	return compactU16Len(signatures) + signatures*signatureLength + len(message), nil
}

func compactU16Len(n int) int {
	switch {
	case n < 0x80:
		return 1
	case n < 0x4000:
		return 2
	}
	return 3
}
