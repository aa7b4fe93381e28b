package treasury

import (
	"context"
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/dan13ram/squads-treasury/models"
	"github.com/dan13ram/squads-treasury/squads"
)

func newTestQueries(f *fixture) *Queries {
	program := squads.NewProgram(squads.DefaultProgramID, f.client)
	return NewQueries(f.client, program, NewReadCache(0, 0), f.multisig)
}

func TestQueriesProposals(t *testing.T) {
	t.Run("Descending With Gaps", func(t *testing.T) {
		f := newFixture(t)
		f.onProposal(t, 5, models.ProposalStatusActive, 1, 0)
		f.onMissing(t, 4)
		f.onProposal(t, 3, models.ProposalStatusExecuted, 1, 1)
		f.onProposal(t, 2, models.ProposalStatusCancelled, 1, 0)
		f.onProposal(t, 1, models.ProposalStatusDraft, 0, 0)
		queries := newTestQueries(f)

		proposals, err := queries.Proposals(context.Background(), 5, 0)
		assert.NoError(t, err)

		var indexes []uint32
		for _, proposal := range proposals {
			indexes = append(indexes, proposal.Index)
		}
		assert.Equal(t, []uint32{5, 3, 2, 1}, indexes)
		assert.Equal(t, models.ProposalStatusExecuted, proposals[1].Status)
		f.client.AssertNumberOfCalls(t, "GetAccountData", 5)
	})

	t.Run("Empty Range", func(t *testing.T) {
		f := newFixture(t)
		queries := newTestQueries(f)

		proposals, err := queries.Proposals(context.Background(), 1, 3)
		assert.NoError(t, err)
		assert.Empty(t, proposals)
		f.client.AssertNotCalled(t, "GetAccountData", mock.Anything, mock.Anything)
	})

	t.Run("Fetch Error", func(t *testing.T) {
		f := newFixture(t)
		f.onProposal(t, 2, models.ProposalStatusActive, 1, 0)
		f.client.On("GetAccountData", mock.Anything, f.transaction(t, 1)).Return(nil, errors.New("rate limited"))
		queries := newTestQueries(f)

		proposals, err := queries.Proposals(context.Background(), 2, 1)
		assert.Nil(t, proposals)
		assert.ErrorContains(t, err, "rate limited")
	})
}

func TestQueriesCaching(t *testing.T) {
	f := newFixture(t)
	f.onMultisig(t, 3, f.signer.PublicKey())
	f.onProposal(t, 3, models.ProposalStatusActive, 1, 0)
	f.client.On("GetBalance", mock.Anything, f.vault).Return(uint64(2_000_000_000), nil)
	queries := newTestQueries(f)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		multisig, err := queries.Multisig(ctx)
		assert.NoError(t, err)
		assert.Equal(t, uint32(3), multisig.TransactionIndex)

		proposal, err := queries.Proposal(ctx, 3)
		assert.NoError(t, err)
		assert.Equal(t, f.transaction(t, 3), proposal.Address)

		balance, err := queries.VaultBalance(ctx)
		assert.NoError(t, err)
		assert.Equal(t, uint64(2_000_000_000), balance)
	}
	f.client.AssertNumberOfCalls(t, "GetAccountData", 2)
	f.client.AssertNumberOfCalls(t, "GetBalance", 1)

	queries.Invalidate(KeyTransactions)
	queries.Invalidate(KeyTransactions)

	_, err := queries.Multisig(ctx)
	assert.NoError(t, err)
	_, err = queries.Proposal(ctx, 3)
	assert.NoError(t, err)
	f.client.AssertNumberOfCalls(t, "GetAccountData", 3)
}

func TestQueriesVaultTokens(t *testing.T) {
	f := newFixture(t)
	mint := solana.NewWallet().PublicKey()
	f.client.On("GetTokenAccountsByOwner", mock.Anything, f.vault).Return([]models.TokenBalance{
		{Account: solana.NewWallet().PublicKey(), Mint: mint, Amount: 1500, Decimals: 3, UIAmount: "1.5"},
	}, nil)
	queries := newTestQueries(f)

	tokens, err := queries.VaultTokens(context.Background())
	assert.NoError(t, err)
	assert.Len(t, tokens, 1)
	assert.Equal(t, mint, tokens[0].Mint)

	vault, err := queries.Vault()
	assert.NoError(t, err)
	assert.Equal(t, f.vault, vault)
	assert.Equal(t, f.multisig, queries.MultisigAddress())
}
