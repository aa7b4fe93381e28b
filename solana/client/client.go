package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/shopspring/decimal"

	"github.com/dan13ram/squads-treasury/models"

	log "github.com/sirupsen/logrus"
)

var ErrAccountNotFound = errors.New("account not found")

type SolanaClient interface {
	ValidateNetwork() error
	GetLatestBlockhash(ctx context.Context) (solana.Hash, error)
	GetSignatureStatuses(ctx context.Context, signatures ...solana.Signature) ([]*rpc.SignatureStatusesResult, error)
	SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
	GetBalance(ctx context.Context, account solana.PublicKey) (uint64, error)
	GetTokenAccountsByOwner(ctx context.Context, owner solana.PublicKey) ([]models.TokenBalance, error)
	GetAccountData(ctx context.Context, account solana.PublicKey) ([]byte, error)
}

type solanaClient struct {
	client  *rpc.Client
	rpcURL  string
	timeout time.Duration
}

var _ SolanaClient = &solanaClient{}

func (c *solanaClient) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

func (c *solanaClient) ValidateNetwork() error {
	log.Debugln("[SOLANA]", "Validating network")
	log.Debugln("[SOLANA]", "uri", c.rpcURL)

	ctx, cancel := c.withTimeout(context.Background())
	defer cancel()

	version, err := c.client.GetVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to get node version: %w", err)
	}
	log.Debugln("[SOLANA]", "version", version.SolanaCore)

	if _, err := c.GetLatestBlockhash(context.Background()); err != nil {
		return fmt.Errorf("failed to get latest blockhash: %w", err)
	}

	log.Infoln("[SOLANA]", "Validated network")
	return nil
}

func (c *solanaClient) GetLatestBlockhash(ctx context.Context) (solana.Hash, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	result, err := c.client.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return solana.Hash{}, err
	}
	return result.Value.Blockhash, nil
}

// GetSignatureStatuses searches the full transaction history. Entries are
// nil for signatures the node has not seen.
func (c *solanaClient) GetSignatureStatuses(ctx context.Context, signatures ...solana.Signature) ([]*rpc.SignatureStatusesResult, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	result, err := c.client.GetSignatureStatuses(ctx, true, signatures...)
	if err != nil {
		return nil, err
	}
	return result.Value, nil
}

// SendTransaction broadcasts without preflight simulation.
func (c *solanaClient) SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	return c.client.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		SkipPreflight:       true,
		PreflightCommitment: rpc.CommitmentConfirmed,
	})
}

func (c *solanaClient) GetBalance(ctx context.Context, account solana.PublicKey) (uint64, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	result, err := c.client.GetBalance(ctx, account, rpc.CommitmentConfirmed)
	if err != nil {
		return 0, err
	}
	return result.Value, nil
}

type parsedTokenAccount struct {
	Parsed struct {
		Info struct {
			Mint        string `json:"mint"`
			TokenAmount struct {
				Amount         string `json:"amount"`
				Decimals       uint8  `json:"decimals"`
				UIAmountString string `json:"uiAmountString"`
			} `json:"tokenAmount"`
		} `json:"info"`
	} `json:"parsed"`
}

func (c *solanaClient) GetTokenAccountsByOwner(ctx context.Context, owner solana.PublicKey) ([]models.TokenBalance, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	result, err := c.client.GetTokenAccountsByOwner(
		ctx,
		owner,
		&rpc.GetTokenAccountsConfig{ProgramId: solana.TokenProgramID.ToPointer()},
		&rpc.GetTokenAccountsOpts{Encoding: solana.EncodingJSONParsed, Commitment: rpc.CommitmentConfirmed},
	)
	if err != nil {
		return nil, err
	}

	balances := make([]models.TokenBalance, 0, len(result.Value))
	for _, account := range result.Value {
		if account == nil || account.Account.Data == nil {
			continue
		}
		balance, err := parseTokenBalance(account.Pubkey, account.Account.Data.GetRawJSON())
		if err != nil {
			log.WithError(err).WithField("account", account.Pubkey.String()).Warn("[SOLANA] Skipping unparsable token account")
			continue
		}
		balances = append(balances, balance)
	}
	return balances, nil
}

func parseTokenBalance(account solana.PublicKey, raw json.RawMessage) (models.TokenBalance, error) {
	var parsed parsedTokenAccount
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return models.TokenBalance{}, err
	}
	info := parsed.Parsed.Info

	mint, err := solana.PublicKeyFromBase58(info.Mint)
	if err != nil {
		return models.TokenBalance{}, fmt.Errorf("invalid mint: %w", err)
	}
	amount, err := decimal.NewFromString(info.TokenAmount.Amount)
	if err != nil {
		return models.TokenBalance{}, fmt.Errorf("invalid amount: %w", err)
	}

	uiAmount := info.TokenAmount.UIAmountString
	if uiAmount == "" {
		uiAmount = amount.Shift(-int32(info.TokenAmount.Decimals)).String()
	}

	return models.TokenBalance{
		Account:  account,
		Mint:     mint,
		Amount:   amount.BigInt().Uint64(),
		Decimals: info.TokenAmount.Decimals,
		UIAmount: uiAmount,
	}, nil
}

func (c *solanaClient) GetAccountData(ctx context.Context, account solana.PublicKey) ([]byte, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	result, err := c.client.GetAccountInfoWithOpts(ctx, account, &rpc.GetAccountInfoOpts{
		Encoding:   solana.EncodingBase64,
		Commitment: rpc.CommitmentConfirmed,
	})
	if errors.Is(err, rpc.ErrNotFound) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	if result == nil || result.Value == nil || result.Value.Data == nil {
		return nil, ErrAccountNotFound
	}
	return result.Value.Data.GetBinary(), nil
}

func NewClient(rpcURL string, timeout time.Duration) SolanaClient {
	return &solanaClient{
		client:  rpc.New(rpcURL),
		rpcURL:  rpcURL,
		timeout: timeout,
	}
}
