package mocks

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/mock"

	"github.com/dan13ram/squads-treasury/models"
)

// MockSolanaClient is a mock implementation of client.SolanaClient
type MockSolanaClient struct {
	mock.Mock
}

func (m *MockSolanaClient) ValidateNetwork() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockSolanaClient) GetLatestBlockhash(ctx context.Context) (solana.Hash, error) {
	args := m.Called(ctx)
	return args.Get(0).(solana.Hash), args.Error(1)
}

func (m *MockSolanaClient) GetSignatureStatuses(ctx context.Context, signatures ...solana.Signature) ([]*rpc.SignatureStatusesResult, error) {
	args := m.Called(ctx, signatures)
	statuses, _ := args.Get(0).([]*rpc.SignatureStatusesResult)
	return statuses, args.Error(1)
}

func (m *MockSolanaClient) SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	args := m.Called(ctx, tx)
	return args.Get(0).(solana.Signature), args.Error(1)
}

func (m *MockSolanaClient) GetBalance(ctx context.Context, account solana.PublicKey) (uint64, error) {
	args := m.Called(ctx, account)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *MockSolanaClient) GetTokenAccountsByOwner(ctx context.Context, owner solana.PublicKey) ([]models.TokenBalance, error) {
	args := m.Called(ctx, owner)
	balances, _ := args.Get(0).([]models.TokenBalance)
	return balances, args.Error(1)
}

func (m *MockSolanaClient) GetAccountData(ctx context.Context, account solana.PublicKey) ([]byte, error) {
	args := m.Called(ctx, account)
	data, _ := args.Get(0).([]byte)
	return data, args.Error(1)
}
