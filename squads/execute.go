package squads

import (
	"bytes"
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/dan13ram/squads-treasury/models"
)

var addMemberDiscriminator = InstructionDiscriminator(InstructionAddMember)

// remainingAccounts lists the accounts a stored instruction needs at
// execution: its own address, its program, then its keys. Signer flags are
// dropped since the program signs for its authorities.
func remainingAccounts(ix *models.ProposalInstruction, payer solana.PublicKey) []*solana.AccountMeta {
	isAddMember := bytes.HasPrefix(ix.Data, addMemberDiscriminator[:])

	accounts := []*solana.AccountMeta{
		solana.Meta(ix.Address),
		solana.Meta(ix.ProgramID),
	}
	for i, key := range ix.Keys {
		meta := &solana.AccountMeta{PublicKey: key.PublicKey, IsWritable: key.IsWritable}
		if isAddMember {
			switch i {
			case 1:
				meta = solana.Meta(payer).WRITE()
			case 2:
				meta.IsWritable = false
			}
		}
		accounts = append(accounts, meta)
	}
	return accounts
}

// dedupeAccounts collapses accounts with the same key and write flag and
// returns the index of every input account in the unique list.
func dedupeAccounts(accounts []*solana.AccountMeta) ([]*solana.AccountMeta, []byte, error) {
	unique := make([]*solana.AccountMeta, 0, len(accounts))
	indexes := make([]byte, len(accounts))

	for i, account := range accounts {
		found := -1
		for j, u := range unique {
			if u.PublicKey.Equals(account.PublicKey) && u.IsWritable == account.IsWritable {
				found = j
				break
			}
		}
		if found < 0 {
			found = len(unique)
			unique = append(unique, &solana.AccountMeta{PublicKey: account.PublicKey, IsWritable: account.IsWritable})
		}
		if found > 255 {
			return nil, nil, fmt.Errorf("too many accounts to execute in one transaction")
		}
		indexes[i] = byte(found)
	}
	return unique, indexes, nil
}

func (p *Program) fetchInstructions(ctx context.Context, transaction solana.PublicKey, from uint8, to uint8) ([]*models.ProposalInstruction, error) {
	instructions := make([]*models.ProposalInstruction, 0, int(to)-int(from)+1)
	for index := int(from); index <= int(to); index++ {
		address, _, err := GetInstructionPDA(transaction, uint8(index), p.programID)
		if err != nil {
			return nil, err
		}
		ix, err := p.GetInstruction(ctx, address)
		if err != nil {
			return nil, err
		}
		instructions = append(instructions, ix)
	}
	return instructions, nil
}

// BuildExecuteTransaction executes every attached instruction of a
// proposal in one program call.
func (p *Program) BuildExecuteTransaction(ctx context.Context, multisig solana.PublicKey, proposal *models.Proposal, member solana.PublicKey) (solana.Instruction, error) {
	if proposal.InstructionIndex == 0 {
		return nil, fmt.Errorf("transaction %s has no instructions", proposal.Address)
	}

	instructions, err := p.fetchInstructions(ctx, proposal.Address, 1, proposal.InstructionIndex)
	if err != nil {
		return nil, err
	}

	var flat []*solana.AccountMeta
	for _, ix := range instructions {
		flat = append(flat, remainingAccounts(ix, member)...)
	}

	unique, accountList, err := dedupeAccounts(flat)
	if err != nil {
		return nil, err
	}

	return newExecuteTransactionInstruction(p.programID, multisig, proposal.Address, member, accountList, unique)
}

// BuildExecuteInstruction executes a single attached instruction.
func (p *Program) BuildExecuteInstruction(ctx context.Context, multisig solana.PublicKey, proposal *models.Proposal, instructionIndex uint8, member solana.PublicKey) (solana.Instruction, error) {
	if instructionIndex == 0 || instructionIndex > proposal.InstructionIndex {
		return nil, fmt.Errorf("instruction %d out of range 1..%d", instructionIndex, proposal.InstructionIndex)
	}

	address, _, err := GetInstructionPDA(proposal.Address, instructionIndex, p.programID)
	if err != nil {
		return nil, err
	}
	ix, err := p.GetInstruction(ctx, address)
	if err != nil {
		return nil, err
	}

	// the instruction account is passed explicitly, not as a remaining account
	remaining := remainingAccounts(ix, member)[1:]

	return newExecuteInstructionInstruction(p.programID, multisig, proposal.Address, address, member, remaining)
}
