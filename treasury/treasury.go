// Package treasury proposes, votes on and executes Squads multisig
// transactions for one active multisig and its vault.
package treasury

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/dan13ram/squads-treasury/common"
	"github.com/dan13ram/squads-treasury/models"
	"github.com/dan13ram/squads-treasury/solana/client"
	"github.com/dan13ram/squads-treasury/squads"
	"github.com/dan13ram/squads-treasury/treasury/util"

	log "github.com/sirupsen/logrus"
)

const (
	ActionCreateMultisig         = "create_multisig"
	ActionAddMember              = "add_member"
	ActionRemoveMember           = "remove_member"
	ActionChangeThreshold        = "change_threshold"
	ActionSendSol                = "send_sol"
	ActionSendToken              = "send_token"
	ActionChangeUpgradeAuthority = "change_upgrade_authority"
	ActionImportTransaction      = "import_transaction"
	ActionApprove                = "approve"
	ActionReject                 = "reject"
	ActionCancel                 = "cancel"
	ActionExecute                = "execute"
)

var ErrUnknownStatus = errors.New("unknown proposal status")

var (
	utilDecodeMessage       = util.DecodeMessage
	utilResolveInstructions = util.ResolveInstructions
)

type Config struct {
	Confirmation models.ConfirmationConfig
	Execution    models.ExecutionConfig
	Cache        models.CacheConfig
	Notifier     Notifier
}

type Treasury struct {
	settings models.Settings
	client   client.SolanaClient
	program  *squads.Program
	queries  *Queries
	pipeline *Pipeline
	executor *Executor
}

// ExecuteOptions override the configured compute budget of one execution.
type ExecuteOptions struct {
	PriorityFeeMicroLamports uint64
	ComputeUnitLimit         uint32
}

func NewTreasury(solanaClient client.SolanaClient, signer common.Signer, settings models.Settings, config Config) *Treasury {
	program := squads.NewProgram(settings.ProgramID, solanaClient)
	readCache := NewReadCache(config.Cache.Capacity, time.Duration(config.Cache.TTLMillis)*time.Millisecond)
	queries := NewQueries(solanaClient, program, readCache, settings.MultisigAddress)

	return &Treasury{
		settings: settings,
		client:   solanaClient,
		program:  program,
		queries:  queries,
		pipeline: NewPipeline(solanaClient, signer, queries, config.Confirmation, config.Notifier),
		executor: NewExecutor(program, config.Execution),
	}
}

func (t *Treasury) Queries() *Queries {
	return t.queries
}

func (t *Treasury) Program() *squads.Program {
	return t.program
}

func (t *Treasury) Settings() models.Settings {
	return t.settings
}

func (t *Treasury) requireMultisig() error {
	if t.settings.MultisigAddress.IsZero() {
		return &common.ValidationError{Message: "No multisig selected."}
	}
	return nil
}

// requireMember checks the connected wallet against the cached member list.
func (t *Treasury) requireMember(ctx context.Context) (*models.Multisig, solana.PublicKey, error) {
	signer := t.pipeline.Signer()
	if signer == nil {
		return nil, solana.PublicKey{}, common.ErrNoSigner
	}
	if err := t.requireMultisig(); err != nil {
		return nil, solana.PublicKey{}, err
	}

	multisig, err := t.queries.Multisig(ctx)
	if err != nil {
		return nil, solana.PublicKey{}, &common.BuildError{Op: "load multisig", Err: err}
	}

	member := signer.PublicKey()
	if !multisig.IsMember(member) {
		return nil, solana.PublicKey{}, &common.ValidationError{Message: "Connected wallet is not a member of this multisig."}
	}
	return multisig, member, nil
}

func (t *Treasury) vault() (solana.PublicKey, error) {
	vault, err := t.queries.Vault()
	if err != nil {
		return solana.PublicKey{}, &common.BuildError{Op: "derive vault address", Err: err}
	}
	return vault, nil
}

// propose assembles actions into a new proposal and submits it.
func (t *Treasury) propose(ctx context.Context, action string, authorityIndex uint32, actions []solana.Instruction, invalidate ...string) (*models.SubmissionAttempt, error) {
	multisig := t.settings.MultisigAddress
	build := func(ctx context.Context, payer solana.PublicKey) ([][]solana.Instruction, error) {
		proposal, err := Assemble(ctx, t.program, multisig, payer, authorityIndex, actions)
		if err != nil {
			return nil, err
		}
		log.WithField("action", action).WithField("index", proposal.Index).Info("[TREASURY] Proposing transaction")
		return [][]solana.Instruction{proposal.Instructions}, nil
	}
	return t.pipeline.Submit(ctx, action, build, append([]string{KeyMultisig, KeyTransactions}, invalidate...)...)
}

func (t *Treasury) CreateMultisig(ctx context.Context, members []string, threshold int) (*models.SubmissionAttempt, solana.PublicKey, error) {
	keys := make([]solana.PublicKey, 0, len(members))
	for _, member := range members {
		key, err := util.ParsePublicKey("member", member)
		if err != nil {
			return nil, solana.PublicKey{}, err
		}
		keys = append(keys, key)
	}

	signer := t.pipeline.Signer()
	if signer == nil {
		return nil, solana.PublicKey{}, common.ErrNoSigner
	}

	createKey := solana.NewWallet().PublicKey()
	ix, multisig, err := util.CreateMultisigInstruction(t.program.ProgramID(), signer.PublicKey(), createKey, keys, threshold)
	if err != nil {
		return nil, solana.PublicKey{}, err
	}

	build := func(ctx context.Context, payer solana.PublicKey) ([][]solana.Instruction, error) {
		return [][]solana.Instruction{{ix}}, nil
	}
	attempt, err := t.pipeline.Submit(ctx, ActionCreateMultisig, build, KeyMultisig)
	if err != nil {
		return attempt, solana.PublicKey{}, err
	}
	log.WithField("multisig", multisig.String()).Info("[TREASURY] Created multisig")
	return attempt, multisig, nil
}

func (t *Treasury) AddMember(ctx context.Context, member string) (*models.SubmissionAttempt, error) {
	key, err := util.ParsePublicKey("member", member)
	if err != nil {
		return nil, err
	}
	multisig, _, err := t.requireMember(ctx)
	if err != nil {
		return nil, err
	}
	ixs, err := util.AddMemberInstructions(t.program.ProgramID(), multisig, key)
	if err != nil {
		return nil, err
	}
	return t.propose(ctx, ActionAddMember, squads.AuthorityIndexInternal, ixs)
}

func (t *Treasury) RemoveMember(ctx context.Context, member string) (*models.SubmissionAttempt, error) {
	key, err := util.ParsePublicKey("member", member)
	if err != nil {
		return nil, err
	}
	multisig, _, err := t.requireMember(ctx)
	if err != nil {
		return nil, err
	}
	ixs, err := util.RemoveMemberInstructions(t.program.ProgramID(), multisig, key)
	if err != nil {
		return nil, err
	}
	return t.propose(ctx, ActionRemoveMember, squads.AuthorityIndexInternal, ixs)
}

func (t *Treasury) ChangeThreshold(ctx context.Context, threshold int) (*models.SubmissionAttempt, error) {
	// The upper bound needs the member list, the lower bound does not.
	if threshold < 1 {
		return nil, common.NewValidationError("threshold", "must be at least 1")
	}
	multisig, _, err := t.requireMember(ctx)
	if err != nil {
		return nil, err
	}
	ixs, err := util.ChangeThresholdInstructions(t.program.ProgramID(), multisig, threshold)
	if err != nil {
		return nil, err
	}
	return t.propose(ctx, ActionChangeThreshold, squads.AuthorityIndexInternal, ixs)
}

func (t *Treasury) SendSol(ctx context.Context, recipient string, amount string) (*models.SubmissionAttempt, error) {
	to, err := util.ParsePublicKey("recipient", recipient)
	if err != nil {
		return nil, err
	}
	lamports, err := util.ToBaseUnits(amount, common.SolDecimals)
	if err != nil {
		return nil, err
	}
	if _, _, err := t.requireMember(ctx); err != nil {
		return nil, err
	}
	vault, err := t.vault()
	if err != nil {
		return nil, err
	}
	ixs, err := util.TransferSolInstructions(vault, to, lamports)
	if err != nil {
		return nil, err
	}
	return t.propose(ctx, ActionSendSol, squads.AuthorityIndexVault, ixs)
}

// SendToken transfers from the vault's token account of mint. Decimals
// come from the cached vault token balances.
func (t *Treasury) SendToken(ctx context.Context, mint string, recipient string, amount string) (*models.SubmissionAttempt, error) {
	mintKey, err := util.ParsePublicKey("mint", mint)
	if err != nil {
		return nil, err
	}
	to, err := util.ParsePublicKey("recipient", recipient)
	if err != nil {
		return nil, err
	}
	if _, _, err := t.requireMember(ctx); err != nil {
		return nil, err
	}

	balances, err := t.queries.VaultTokens(ctx)
	if err != nil {
		return nil, &common.BuildError{Op: "load vault tokens", Err: err}
	}
	var source *models.TokenBalance
	for i := range balances {
		if balances[i].Mint.Equals(mintKey) {
			source = &balances[i]
			break
		}
	}
	if source == nil {
		return nil, common.NewValidationError("mint", "vault holds no %s tokens", mintKey)
	}

	baseUnits, err := util.ToBaseUnits(amount, source.Decimals)
	if err != nil {
		return nil, err
	}
	vault, err := t.vault()
	if err != nil {
		return nil, err
	}
	ixs, err := util.TransferTokenInstructions(vault, source.Account, mintKey, to, baseUnits, source.Decimals)
	if err != nil {
		return nil, err
	}
	return t.propose(ctx, ActionSendToken, squads.AuthorityIndexVault, ixs)
}

func (t *Treasury) ChangeUpgradeAuthority(ctx context.Context, program string, newAuthority string) (*models.SubmissionAttempt, error) {
	programKey, err := util.ParsePublicKey("program", program)
	if err != nil {
		return nil, err
	}
	authority, err := util.ParsePublicKey("authority", newAuthority)
	if err != nil {
		return nil, err
	}
	if _, _, err := t.requireMember(ctx); err != nil {
		return nil, err
	}
	vault, err := t.vault()
	if err != nil {
		return nil, err
	}
	ixs, err := util.ChangeUpgradeAuthorityInstructions(vault, programKey, authority)
	if err != nil {
		return nil, err
	}
	return t.propose(ctx, ActionChangeUpgradeAuthority, squads.AuthorityIndexVault, ixs)
}

// ImportTransaction proposes the instructions of an encoded transaction
// message for the vault to sign.
func (t *Treasury) ImportTransaction(ctx context.Context, encoded string) (*models.SubmissionAttempt, error) {
	message, err := utilDecodeMessage(encoded)
	if err != nil {
		return nil, err
	}
	if _, _, err := t.requireMember(ctx); err != nil {
		return nil, err
	}

	ixs, err := utilResolveInstructions(ctx, message, t.client)
	if err != nil {
		return nil, asBuildError("resolve imported instructions", err)
	}
	return t.propose(ctx, ActionImportTransaction, squads.AuthorityIndexVault, ixs)
}

func (t *Treasury) loadProposal(ctx context.Context, index uint32) (*models.Proposal, error) {
	if index == 0 {
		return nil, common.NewValidationError("index", "must be greater than zero")
	}
	proposal, err := t.program.GetProposal(ctx, t.settings.MultisigAddress, index)
	if err != nil {
		return nil, &common.BuildError{Op: fmt.Sprintf("load proposal %d", index), Err: err}
	}
	return proposal, nil
}

func statusError(proposal *models.Proposal, verb string) error {
	return &common.ValidationError{Message: fmt.Sprintf("Proposal %d is %s and cannot be %s.", proposal.Index, proposal.Status, verb)}
}

// unknownStatusError rejects a status outside the known enumeration
// instead of treating it like any other terminal status.
func unknownStatusError(proposal *models.Proposal) error {
	return fmt.Errorf("proposal %d: %w %d", proposal.Index, ErrUnknownStatus, uint8(proposal.Status))
}

func containsKey(keys []solana.PublicKey, key solana.PublicKey) bool {
	for _, k := range keys {
		if k.Equals(key) {
			return true
		}
	}
	return false
}

// vote builds approve or reject for a Draft or Active proposal. A Draft
// proposal is activated first.
func (t *Treasury) vote(ctx context.Context, action string, index uint32) (*models.SubmissionAttempt, error) {
	_, member, err := t.requireMember(ctx)
	if err != nil {
		return nil, err
	}
	proposal, err := t.loadProposal(ctx, index)
	if err != nil {
		return nil, err
	}

	verb, voted, build := "approved", proposal.Approved, squads.NewApproveTransactionInstruction
	if action == ActionReject {
		verb, voted, build = "rejected", proposal.Rejected, squads.NewRejectTransactionInstruction
	}

	programID := t.program.ProgramID()
	multisig := t.settings.MultisigAddress
	var ixs []solana.Instruction

	switch proposal.Status {
	case models.ProposalStatusDraft:
		activate, err := squads.NewActivateTransactionInstruction(programID, multisig, proposal.Address, member)
		if err != nil {
			return nil, &common.BuildError{Op: "build activate_transaction", Err: err}
		}
		ixs = append(ixs, activate)
	case models.ProposalStatusActive:
	case models.ProposalStatusExecuteReady,
		models.ProposalStatusExecuted,
		models.ProposalStatusRejected,
		models.ProposalStatusCancelled:
		return nil, statusError(proposal, verb)
	default:
		return nil, unknownStatusError(proposal)
	}

	if containsKey(voted, member) {
		return nil, &common.ValidationError{Message: fmt.Sprintf("You have already %s proposal %d.", verb, proposal.Index)}
	}

	ix, err := build(programID, multisig, proposal.Address, member)
	if err != nil {
		return nil, &common.BuildError{Op: "build " + action, Err: err}
	}
	ixs = append(ixs, ix)

	return t.pipeline.Submit(ctx, action, func(ctx context.Context, payer solana.PublicKey) ([][]solana.Instruction, error) {
		return [][]solana.Instruction{ixs}, nil
	}, KeyTransactions)
}

func (t *Treasury) ApproveProposal(ctx context.Context, index uint32) (*models.SubmissionAttempt, error) {
	return t.vote(ctx, ActionApprove, index)
}

func (t *Treasury) RejectProposal(ctx context.Context, index uint32) (*models.SubmissionAttempt, error) {
	return t.vote(ctx, ActionReject, index)
}

func (t *Treasury) CancelProposal(ctx context.Context, index uint32) (*models.SubmissionAttempt, error) {
	_, member, err := t.requireMember(ctx)
	if err != nil {
		return nil, err
	}
	proposal, err := t.loadProposal(ctx, index)
	if err != nil {
		return nil, err
	}

	switch proposal.Status {
	case models.ProposalStatusExecuteReady:
	case models.ProposalStatusDraft,
		models.ProposalStatusActive,
		models.ProposalStatusExecuted,
		models.ProposalStatusRejected,
		models.ProposalStatusCancelled:
		return nil, statusError(proposal, "cancelled")
	default:
		return nil, unknownStatusError(proposal)
	}

	if containsKey(proposal.Cancelled, member) {
		return nil, &common.ValidationError{Message: fmt.Sprintf("You have already cancelled proposal %d.", proposal.Index)}
	}

	ix, err := squads.NewCancelTransactionInstruction(t.program.ProgramID(), t.settings.MultisigAddress, proposal.Address, member)
	if err != nil {
		return nil, &common.BuildError{Op: "build cancel", Err: err}
	}
	return t.pipeline.Submit(ctx, ActionCancel, func(ctx context.Context, payer solana.PublicKey) ([][]solana.Instruction, error) {
		return [][]solana.Instruction{{ix}}, nil
	}, KeyTransactions)
}

// ExecuteProposal runs an ExecuteReady proposal. The execution is split
// into one transaction per instruction when it does not fit in one.
func (t *Treasury) ExecuteProposal(ctx context.Context, index uint32, options ExecuteOptions) (*models.SubmissionAttempt, error) {
	_, member, err := t.requireMember(ctx)
	if err != nil {
		return nil, err
	}
	proposal, err := t.loadProposal(ctx, index)
	if err != nil {
		return nil, err
	}

	switch proposal.Status {
	case models.ProposalStatusExecuteReady:
	case models.ProposalStatusDraft,
		models.ProposalStatusActive:
		return nil, &common.ValidationError{Message: "Proposal has not reached threshold."}
	case models.ProposalStatusExecuted,
		models.ProposalStatusRejected,
		models.ProposalStatusCancelled:
		return nil, statusError(proposal, "executed")
	default:
		return nil, unknownStatusError(proposal)
	}

	executor := t.executor.WithBudget(options.PriorityFeeMicroLamports, options.ComputeUnitLimit)
	multisig := t.settings.MultisigAddress
	build := func(ctx context.Context, payer solana.PublicKey) ([][]solana.Instruction, error) {
		return executor.Build(ctx, multisig, proposal, member)
	}
	return t.pipeline.Submit(ctx, ActionExecute, build, KeyMultisig, KeyTransactions, KeyBalance, KeyTokenBalances)
}
