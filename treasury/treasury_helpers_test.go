package treasury

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/dan13ram/squads-treasury/common"
	"github.com/dan13ram/squads-treasury/models"
	"github.com/dan13ram/squads-treasury/solana/client"
	"github.com/dan13ram/squads-treasury/solana/client/mocks"
	"github.com/dan13ram/squads-treasury/squads"
	"github.com/dan13ram/squads-treasury/treasury/util"

	log "github.com/sirupsen/logrus"
)

func init() {
	log.SetOutput(io.Discard)
}

var memoProgramID = solana.MustPublicKeyFromBase58("MemoSq4gqABAXKb96qnH8TysNcWxMyWCqXgDLGmfcHr")

type fixture struct {
	client   *mocks.MockSolanaClient
	signer   *common.KeypairSigner
	multisig solana.PublicKey
	vault    solana.PublicKey
}

func newFixture(t *testing.T) *fixture {
	signer, err := common.NewKeypairSigner(solana.NewWallet().PrivateKey)
	assert.NoError(t, err)

	multisig, _, err := squads.GetMultisigPDA(solana.NewWallet().PublicKey(), squads.DefaultProgramID)
	assert.NoError(t, err)
	vault, err := squads.GetVaultPDA(multisig, squads.DefaultProgramID)
	assert.NoError(t, err)

	return &fixture{
		client:   new(mocks.MockSolanaClient),
		signer:   signer,
		multisig: multisig,
		vault:    vault,
	}
}

func (f *fixture) settings() models.Settings {
	return models.Settings{
		RPCURL:          "http://localhost:8899",
		ProgramID:       squads.DefaultProgramID,
		MultisigAddress: f.multisig,
	}
}

func (f *fixture) treasury(signer common.Signer) *Treasury {
	return NewTreasury(f.client, signer, f.settings(), Config{
		Confirmation: models.ConfirmationConfig{TimeoutMillis: 1000, IntervalMillis: 10},
	})
}

func (f *fixture) transaction(t *testing.T, index uint32) solana.PublicKey {
	address, _, err := squads.GetTransactionPDA(f.multisig, index, squads.DefaultProgramID)
	assert.NoError(t, err)
	return address
}

func encode(t *testing.T, name string, v interface{}) []byte {
	data, err := squads.EncodeAccount(name, v)
	assert.NoError(t, err)
	return data
}

func (f *fixture) onMultisig(t *testing.T, transactionIndex uint32, members ...solana.PublicKey) *mock.Call {
	return f.client.On("GetAccountData", mock.Anything, f.multisig).Return(encode(t, squads.AccountMs, squads.Ms{
		Threshold:        1,
		AuthorityIndex:   1,
		TransactionIndex: transactionIndex,
		Keys:             members,
	}), nil)
}

func (f *fixture) onProposal(t *testing.T, index uint32, status models.ProposalStatus, instructionIndex uint8, executedIndex uint8) *mock.Call {
	return f.client.On("GetAccountData", mock.Anything, f.transaction(t, index)).Return(encode(t, squads.AccountMsTransaction, squads.MsTransaction{
		Ms:               f.multisig,
		TransactionIndex: index,
		AuthorityIndex:   squads.AuthorityIndexVault,
		Status:           uint8(status),
		InstructionIndex: instructionIndex,
		ExecutedIndex:    executedIndex,
	}), nil)
}

func (f *fixture) onMissing(t *testing.T, index uint32) *mock.Call {
	return f.client.On("GetAccountData", mock.Anything, f.transaction(t, index)).Return(nil, client.ErrAccountNotFound)
}

func (f *fixture) onInstruction(t *testing.T, proposal uint32, index uint8, ix solana.Instruction) {
	incoming, err := squads.NewIncomingInstruction(ix)
	assert.NoError(t, err)
	address, _, err := squads.GetInstructionPDA(f.transaction(t, proposal), index, squads.DefaultProgramID)
	assert.NoError(t, err)
	f.client.On("GetAccountData", mock.Anything, address).Return(encode(t, squads.AccountMsInstruction, squads.MsInstruction{
		ProgramID:        incoming.ProgramID,
		Keys:             incoming.Keys,
		Data:             incoming.Data,
		InstructionIndex: index,
	}), nil)
}

// onSubmit accepts every broadcast and records the sent transactions.
func (f *fixture) onSubmit() *[]*solana.Transaction {
	var sent []*solana.Transaction
	f.client.On("GetLatestBlockhash", mock.Anything).Return(solana.Hash{1}, nil)
	f.client.On("SendTransaction", mock.Anything, mock.Anything).
		Return(solana.Signature{7}, nil).
		Run(func(args mock.Arguments) {
			sent = append(sent, args.Get(1).(*solana.Transaction))
		})
	return &sent
}

// stubConfirmation replaces the confirmation waiter. Each call resolves
// with the next outcome, then with confirmed.
func stubConfirmation(t *testing.T, outcomes ...models.ConfirmationOutcome) *int {
	calls := 0
	original := utilWaitForConfirmation
	t.Cleanup(func() { utilWaitForConfirmation = original })

	utilWaitForConfirmation = func(ctx context.Context, _ util.SignatureStatusGetter, signatures []solana.Signature, _ time.Duration, _ time.Duration) (*models.ConfirmationResult, error) {
		outcome := models.ConfirmationOutcomeConfirmed
		if calls < len(outcomes) {
			outcome = outcomes[calls]
		}
		calls++

		state := models.SignatureStateConfirmed
		var onChainErr interface{}
		switch outcome {
		case models.ConfirmationOutcomeFailed:
			state = models.SignatureStateFailed
			onChainErr = "InstructionError"
		case models.ConfirmationOutcomeTimedOut:
			state = models.SignatureStateUnknown
		}

		statuses := make([]models.SignatureStatus, len(signatures))
		for i, signature := range signatures {
			statuses[i] = models.SignatureStatus{Signature: signature, State: state, Err: onChainErr}
		}
		return &models.ConfirmationResult{Outcome: outcome, Statuses: statuses}, nil
	}
	return &calls
}

func discriminatorOf(t *testing.T, ix solana.Instruction) squads.Discriminator {
	data, err := ix.Data()
	assert.NoError(t, err)
	var d squads.Discriminator
	copy(d[:], data)
	return d
}

type recordingInvalidator struct {
	mu    sync.Mutex
	calls [][]string
}

func (r *recordingInvalidator) Invalidate(keys ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, keys)
}
