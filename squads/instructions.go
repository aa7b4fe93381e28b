package squads

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// MsAccountMeta is the account meta layout stored inside a proposal.
type MsAccountMeta struct {
	Pubkey     solana.PublicKey
	IsSigner   bool
	IsWritable bool
}

// IncomingInstruction is the add_instruction argument.
type IncomingInstruction struct {
	ProgramID solana.PublicKey
	Keys      []MsAccountMeta
	Data      []byte
}

type createArgs struct {
	Threshold uint16
	CreateKey solana.PublicKey
	Members   []solana.PublicKey
	Meta      string
}

type createTransactionArgs struct {
	AuthorityIndex uint32
}

type executeTransactionArgs struct {
	AccountList []byte
}

type memberArgs struct {
	Member solana.PublicKey
}

type thresholdArgs struct {
	NewThreshold uint16
}

func newInstruction(programID solana.PublicKey, name string, args interface{}, accounts ...*solana.AccountMeta) (solana.Instruction, error) {
	data, err := encodeInstructionData(name, args)
	if err != nil {
		return nil, err
	}
	return solana.NewInstruction(programID, accounts, data), nil
}

func NewIncomingInstruction(ix solana.Instruction) (IncomingInstruction, error) {
	data, err := ix.Data()
	if err != nil {
		return IncomingInstruction{}, fmt.Errorf("failed to read instruction data: %w", err)
	}
	accounts := ix.Accounts()
	keys := make([]MsAccountMeta, len(accounts))
	for i, account := range accounts {
		keys[i] = MsAccountMeta{
			Pubkey:     account.PublicKey,
			IsSigner:   account.IsSigner,
			IsWritable: account.IsWritable,
		}
	}
	return IncomingInstruction{
		ProgramID: ix.ProgramID(),
		Keys:      keys,
		Data:      data,
	}, nil
}

func NewCreateInstruction(
	programID solana.PublicKey,
	creator solana.PublicKey,
	createKey solana.PublicKey,
	threshold uint16,
	members []solana.PublicKey,
	meta string,
) (solana.Instruction, error) {
	multisig, _, err := GetMultisigPDA(createKey, programID)
	if err != nil {
		return nil, err
	}
	return newInstruction(programID, InstructionCreate,
		createArgs{Threshold: threshold, CreateKey: createKey, Members: members, Meta: meta},
		solana.Meta(multisig).WRITE(),
		solana.Meta(creator).WRITE().SIGNER(),
		solana.Meta(solana.SystemProgramID),
	)
}

func NewCreateTransactionInstruction(
	programID solana.PublicKey,
	multisig solana.PublicKey,
	creator solana.PublicKey,
	transactionIndex uint32,
	authorityIndex uint32,
) (solana.Instruction, error) {
	transaction, _, err := GetTransactionPDA(multisig, transactionIndex, programID)
	if err != nil {
		return nil, err
	}
	return newInstruction(programID, InstructionCreateTransaction,
		createTransactionArgs{AuthorityIndex: authorityIndex},
		solana.Meta(multisig).WRITE(),
		solana.Meta(transaction).WRITE(),
		solana.Meta(creator).WRITE().SIGNER(),
		solana.Meta(solana.SystemProgramID),
	)
}

func NewAddInstructionInstruction(
	programID solana.PublicKey,
	multisig solana.PublicKey,
	transaction solana.PublicKey,
	creator solana.PublicKey,
	instructionIndex uint8,
	incoming IncomingInstruction,
) (solana.Instruction, error) {
	instruction, _, err := GetInstructionPDA(transaction, instructionIndex, programID)
	if err != nil {
		return nil, err
	}
	return newInstruction(programID, InstructionAddInstruction,
		incoming,
		solana.Meta(multisig),
		solana.Meta(transaction).WRITE(),
		solana.Meta(instruction).WRITE(),
		solana.Meta(creator).WRITE().SIGNER(),
		solana.Meta(solana.SystemProgramID),
	)
}

func NewActivateTransactionInstruction(programID, multisig, transaction, creator solana.PublicKey) (solana.Instruction, error) {
	return newInstruction(programID, InstructionActivateTransaction, nil,
		solana.Meta(multisig),
		solana.Meta(transaction).WRITE(),
		solana.Meta(creator).WRITE().SIGNER(),
	)
}

func NewApproveTransactionInstruction(programID, multisig, transaction, member solana.PublicKey) (solana.Instruction, error) {
	return newInstruction(programID, InstructionApproveTransaction, nil,
		solana.Meta(multisig).WRITE(),
		solana.Meta(transaction).WRITE(),
		solana.Meta(member).WRITE().SIGNER(),
	)
}

func NewRejectTransactionInstruction(programID, multisig, transaction, member solana.PublicKey) (solana.Instruction, error) {
	return newInstruction(programID, InstructionRejectTransaction, nil,
		solana.Meta(multisig).WRITE(),
		solana.Meta(transaction).WRITE(),
		solana.Meta(member).WRITE().SIGNER(),
	)
}

func NewCancelTransactionInstruction(programID, multisig, transaction, member solana.PublicKey) (solana.Instruction, error) {
	return newInstruction(programID, InstructionCancelTransaction, nil,
		solana.Meta(multisig).WRITE(),
		solana.Meta(transaction).WRITE(),
		solana.Meta(member).WRITE().SIGNER(),
		solana.Meta(solana.SystemProgramID),
	)
}

func newExecuteTransactionInstruction(
	programID, multisig, transaction, member solana.PublicKey,
	accountList []byte,
	remaining []*solana.AccountMeta,
) (solana.Instruction, error) {
	accounts := []*solana.AccountMeta{
		solana.Meta(multisig).WRITE(),
		solana.Meta(transaction).WRITE(),
		solana.Meta(member).WRITE().SIGNER(),
	}
	return newInstruction(programID, InstructionExecuteTransaction,
		executeTransactionArgs{AccountList: accountList},
		append(accounts, remaining...)...,
	)
}

func newExecuteInstructionInstruction(
	programID, multisig, transaction, instruction, member solana.PublicKey,
	remaining []*solana.AccountMeta,
) (solana.Instruction, error) {
	accounts := []*solana.AccountMeta{
		solana.Meta(multisig).WRITE(),
		solana.Meta(transaction).WRITE(),
		solana.Meta(instruction).WRITE(),
		solana.Meta(member).WRITE().SIGNER(),
	}
	return newInstruction(programID, InstructionExecuteInstruction, nil, append(accounts, remaining...)...)
}

// NewAddMemberInstruction is executed by the multisig itself. The payer is
// replaced by the executing member when the proposal runs.
func NewAddMemberInstruction(programID, multisig, member solana.PublicKey) (solana.Instruction, error) {
	return newInstruction(programID, InstructionAddMember,
		memberArgs{Member: member},
		solana.Meta(multisig).WRITE().SIGNER(),
		solana.Meta(multisig).WRITE().SIGNER(),
		solana.Meta(solana.SysVarRentPubkey),
		solana.Meta(solana.SystemProgramID),
	)
}

func NewRemoveMemberInstruction(programID, multisig, member solana.PublicKey) (solana.Instruction, error) {
	return newInstruction(programID, InstructionRemoveMember,
		memberArgs{Member: member},
		solana.Meta(multisig).WRITE().SIGNER(),
	)
}

func NewChangeThresholdInstruction(programID, multisig solana.PublicKey, threshold uint16) (solana.Instruction, error) {
	return newInstruction(programID, InstructionChangeThreshold,
		thresholdArgs{NewThreshold: threshold},
		solana.Meta(multisig).WRITE().SIGNER(),
	)
}
