package treasury

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"

	"github.com/dan13ram/squads-treasury/common"
	"github.com/dan13ram/squads-treasury/models"
	"github.com/dan13ram/squads-treasury/squads"

	log "github.com/sirupsen/logrus"
)

const (
	DefaultPriorityFeeMicroLamports uint64 = 5000
	DefaultComputeUnitLimit         uint32 = 200_000
)

// Executor builds the transactions that execute an approved proposal.
type Executor struct {
	program *squads.Program

	priorityFee      uint64
	computeUnitLimit uint32
	maxSize          int
}

func NewExecutor(program *squads.Program, config models.ExecutionConfig) *Executor {
	executor := &Executor{
		program:          program,
		priorityFee:      config.PriorityFeeMicroLamports,
		computeUnitLimit: config.ComputeUnitLimit,
		maxSize:          config.MaxTransactionSize,
	}
	if executor.priorityFee == 0 {
		executor.priorityFee = DefaultPriorityFeeMicroLamports
	}
	if executor.computeUnitLimit == 0 {
		executor.computeUnitLimit = DefaultComputeUnitLimit
	}
	if executor.maxSize <= 0 || executor.maxSize > common.MaxTransactionSize {
		executor.maxSize = common.MaxTransactionSize
	}
	return executor
}

// WithBudget returns a copy using the given priority fee and compute unit
// limit. Zero values keep the current setting.
func (e *Executor) WithBudget(priorityFee uint64, computeUnitLimit uint32) *Executor {
	executor := *e
	if priorityFee > 0 {
		executor.priorityFee = priorityFee
	}
	if computeUnitLimit > 0 {
		executor.computeUnitLimit = computeUnitLimit
	}
	return &executor
}

func (e *Executor) budgetInstructions() []solana.Instruction {
	return []solana.Instruction{
		computebudget.NewSetComputeUnitPriceInstruction(e.priorityFee).Build(),
		computebudget.NewSetComputeUnitLimitInstruction(e.computeUnitLimit).Build(),
	}
}

func (e *Executor) withBudget(ix solana.Instruction) []solana.Instruction {
	return append(e.budgetInstructions(), ix)
}

// Build returns one transaction executing the whole proposal, or, when
// that transaction would not fit on the wire, one execute_instruction
// transaction for every instruction not yet executed.
func (e *Executor) Build(ctx context.Context, multisig solana.PublicKey, proposal *models.Proposal, member solana.PublicKey) ([][]solana.Instruction, error) {
	executeIx, err := e.program.BuildExecuteTransaction(ctx, multisig, proposal, member)
	if err != nil {
		return nil, &common.BuildError{Op: "build execute_transaction", Err: err}
	}

	single := e.withBudget(executeIx)
	tx, err := NewTransaction(single, member, solana.Hash{})
	if err != nil {
		return nil, &common.BuildError{Op: "compile execute_transaction", Err: err}
	}
	size, err := TransactionSize(tx)
	if err != nil {
		return nil, &common.BuildError{Op: "measure execute_transaction", Err: err}
	}

	logger := log.WithField("proposal", proposal.Index).WithField("size", size).WithField("max_size", e.maxSize)
	if size <= e.maxSize {
		logger.Debug("[EXECUTOR] Executing proposal in one transaction")
		return [][]solana.Instruction{single}, nil
	}

	first := int(proposal.ExecutedIndex) + 1
	last := int(proposal.InstructionIndex)
	if first > last {
		return nil, &common.BuildError{Op: "split execution", Err: fmt.Errorf("no instructions left to execute")}
	}
	logger.WithField("from", first).WithField("to", last).Info("[EXECUTOR] Splitting execution per instruction")

	groups := make([][]solana.Instruction, 0, last-first+1)
	for index := first; index <= last; index++ {
		ix, err := e.program.BuildExecuteInstruction(ctx, multisig, proposal, uint8(index), member)
		if err != nil {
			return nil, &common.BuildError{Op: fmt.Sprintf("build execute_instruction %d", index), Err: err}
		}
		groups = append(groups, e.withBudget(ix))
	}
	return groups, nil
}
