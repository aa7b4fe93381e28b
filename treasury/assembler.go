package treasury

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/gagliardetto/solana-go"

	"github.com/dan13ram/squads-treasury/common"
	"github.com/dan13ram/squads-treasury/squads"

	log "github.com/sirupsen/logrus"
)

// Proposal is an assembled propose-and-approve instruction sequence.
type Proposal struct {
	Index        uint32
	Address      solana.PublicKey
	Instructions []solana.Instruction
}

// Assemble wraps actions into a new proposal on multisig: create, one
// add_instruction per action numbered from 1, activate, then approve by
// creator. The transaction index is read from the chain right before
// assembly. Nothing is returned when any step fails.
func Assemble(
	ctx context.Context,
	program *squads.Program,
	multisig solana.PublicKey,
	creator solana.PublicKey,
	authorityIndex uint32,
	actions []solana.Instruction,
) (*Proposal, error) {
	if len(actions) == 0 {
		return nil, common.NewValidationError("instructions", "at least one instruction is required")
	}
	if len(actions) > math.MaxUint8 {
		return nil, common.NewValidationError("instructions", "at most %d instructions per proposal", math.MaxUint8)
	}

	index, err := program.NextTransactionIndex(ctx, multisig)
	if err != nil {
		return nil, &common.BuildError{Op: "fetch transaction index", Err: err}
	}

	programID := program.ProgramID()
	transaction, err := program.TransactionAddress(multisig, index)
	if err != nil {
		return nil, &common.BuildError{Op: "derive transaction address", Err: err}
	}

	instructions := make([]solana.Instruction, 0, len(actions)+3)

	create, err := squads.NewCreateTransactionInstruction(programID, multisig, creator, index, authorityIndex)
	if err != nil {
		return nil, &common.BuildError{Op: "build create_transaction", Err: err}
	}
	instructions = append(instructions, create)

	for i, action := range actions {
		if action == nil {
			return nil, &common.BuildError{Op: "build add_instruction", Err: errors.New("nil instruction")}
		}
		incoming, err := squads.NewIncomingInstruction(action)
		if err != nil {
			return nil, &common.BuildError{Op: "build add_instruction", Err: err}
		}
		add, err := squads.NewAddInstructionInstruction(programID, multisig, transaction, creator, uint8(i+1), incoming)
		if err != nil {
			return nil, &common.BuildError{Op: fmt.Sprintf("build add_instruction %d", i+1), Err: err}
		}
		instructions = append(instructions, add)
	}

	activate, err := squads.NewActivateTransactionInstruction(programID, multisig, transaction, creator)
	if err != nil {
		return nil, &common.BuildError{Op: "build activate_transaction", Err: err}
	}
	approve, err := squads.NewApproveTransactionInstruction(programID, multisig, transaction, creator)
	if err != nil {
		return nil, &common.BuildError{Op: "build approve_transaction", Err: err}
	}
	instructions = append(instructions, activate, approve)

	log.WithField("multisig", multisig.String()).
		WithField("index", index).
		WithField("actions", len(actions)).
		Debug("[ASSEMBLER] Assembled proposal")

	return &Proposal{
		Index:        index,
		Address:      transaction,
		Instructions: instructions,
	}, nil
}
