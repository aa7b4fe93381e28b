package squads

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/dan13ram/squads-treasury/models"
)

// AccountFetcher reads raw account data. Missing accounts return
// client.ErrAccountNotFound.
type AccountFetcher interface {
	GetAccountData(ctx context.Context, account solana.PublicKey) ([]byte, error)
}

type Program struct {
	programID solana.PublicKey
	fetcher   AccountFetcher
}

func NewProgram(programID solana.PublicKey, fetcher AccountFetcher) *Program {
	if programID.IsZero() {
		programID = DefaultProgramID
	}
	return &Program{
		programID: programID,
		fetcher:   fetcher,
	}
}

func (p *Program) ProgramID() solana.PublicKey {
	return p.programID
}

func (p *Program) VaultAddress(multisig solana.PublicKey) (solana.PublicKey, error) {
	return GetVaultPDA(multisig, p.programID)
}

func (p *Program) TransactionAddress(multisig solana.PublicKey, index uint32) (solana.PublicKey, error) {
	address, _, err := GetTransactionPDA(multisig, index, p.programID)
	return address, err
}

func (p *Program) GetMultisig(ctx context.Context, address solana.PublicKey) (*models.Multisig, error) {
	data, err := p.fetcher.GetAccountData(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch multisig %s: %w", address, err)
	}
	ms, err := DecodeMs(data)
	if err != nil {
		return nil, err
	}
	return ms.ToModel(address), nil
}

// NextTransactionIndex always reads fresh state; the result is never cached.
func (p *Program) NextTransactionIndex(ctx context.Context, multisig solana.PublicKey) (uint32, error) {
	ms, err := p.GetMultisig(ctx, multisig)
	if err != nil {
		return 0, err
	}
	return ms.TransactionIndex + 1, nil
}

func (p *Program) GetTransaction(ctx context.Context, address solana.PublicKey) (*models.Proposal, error) {
	data, err := p.fetcher.GetAccountData(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch transaction %s: %w", address, err)
	}
	tx, err := DecodeMsTransaction(data)
	if err != nil {
		return nil, err
	}
	return tx.ToModel(address), nil
}

func (p *Program) GetProposal(ctx context.Context, multisig solana.PublicKey, index uint32) (*models.Proposal, error) {
	address, err := p.TransactionAddress(multisig, index)
	if err != nil {
		return nil, err
	}
	return p.GetTransaction(ctx, address)
}

func (p *Program) GetInstruction(ctx context.Context, address solana.PublicKey) (*models.ProposalInstruction, error) {
	data, err := p.fetcher.GetAccountData(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch instruction %s: %w", address, err)
	}
	ix, err := DecodeMsInstruction(data)
	if err != nil {
		return nil, err
	}
	return ix.ToModel(address), nil
}
