package treasury

import (
	"context"
	"errors"
	"strconv"

	"github.com/gagliardetto/solana-go"
	"github.com/sourcegraph/conc/iter"

	"github.com/dan13ram/squads-treasury/models"
	"github.com/dan13ram/squads-treasury/solana/client"
	"github.com/dan13ram/squads-treasury/squads"

	log "github.com/sirupsen/logrus"
)

const maxProposalFetches = 8

// Queries are the cached reads of one multisig and its vault.
type Queries struct {
	client   client.SolanaClient
	program  *squads.Program
	cache    *ReadCache
	multisig solana.PublicKey
}

func NewQueries(solanaClient client.SolanaClient, program *squads.Program, readCache *ReadCache, multisig solana.PublicKey) *Queries {
	return &Queries{
		client:   solanaClient,
		program:  program,
		cache:    readCache,
		multisig: multisig,
	}
}

func (q *Queries) MultisigAddress() solana.PublicKey {
	return q.multisig
}

func (q *Queries) Vault() (solana.PublicKey, error) {
	return q.program.VaultAddress(q.multisig)
}

func (q *Queries) Multisig(ctx context.Context) (*models.Multisig, error) {
	return cached(q.cache, cacheKey(KeyMultisig, q.multisig.String()), func() (*models.Multisig, error) {
		return q.program.GetMultisig(ctx, q.multisig)
	})
}

func (q *Queries) Proposal(ctx context.Context, index uint32) (*models.Proposal, error) {
	key := cacheKey(KeyTransactions, q.multisig.String(), strconv.FormatUint(uint64(index), 10))
	return cached(q.cache, key, func() (*models.Proposal, error) {
		return q.program.GetProposal(ctx, q.multisig, index)
	})
}

// Proposals returns the proposals from index start down to index end.
// Indexes without a transaction account are skipped.
func (q *Queries) Proposals(ctx context.Context, start uint32, end uint32) ([]*models.Proposal, error) {
	if end == 0 {
		end = 1
	}
	if start < end {
		return []*models.Proposal{}, nil
	}

	indexes := make([]uint32, 0, start-end+1)
	for index := start; index >= end; index-- {
		indexes = append(indexes, index)
	}

	mapper := iter.Mapper[uint32, *models.Proposal]{MaxGoroutines: maxProposalFetches}
	results, err := mapper.MapErr(indexes, func(index *uint32) (*models.Proposal, error) {
		proposal, err := q.Proposal(ctx, *index)
		if errors.Is(err, client.ErrAccountNotFound) {
			log.WithField("index", *index).Debug("[CACHE] Skipping missing proposal")
			return nil, nil
		}
		return proposal, err
	})
	if err != nil {
		return nil, err
	}

	proposals := make([]*models.Proposal, 0, len(results))
	for _, proposal := range results {
		if proposal != nil {
			proposals = append(proposals, proposal)
		}
	}
	return proposals, nil
}

func (q *Queries) VaultBalance(ctx context.Context) (uint64, error) {
	vault, err := q.Vault()
	if err != nil {
		return 0, err
	}
	return cached(q.cache, cacheKey(KeyBalance, vault.String()), func() (uint64, error) {
		return q.client.GetBalance(ctx, vault)
	})
}

func (q *Queries) VaultTokens(ctx context.Context) ([]models.TokenBalance, error) {
	vault, err := q.Vault()
	if err != nil {
		return nil, err
	}
	return cached(q.cache, cacheKey(KeyTokenBalances, vault.String()), func() ([]models.TokenBalance, error) {
		return q.client.GetTokenAccountsByOwner(ctx, vault)
	})
}

func (q *Queries) Invalidate(keys ...string) {
	q.cache.Invalidate(keys...)
}
