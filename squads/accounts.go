package squads

import (
	"github.com/gagliardetto/solana-go"

	"github.com/dan13ram/squads-treasury/models"
)

type Ms struct {
	Threshold            uint16
	AuthorityIndex       uint16
	TransactionIndex     uint32
	MsChangeIndex        uint32
	Bump                 uint8
	CreateKey            solana.PublicKey
	AllowExternalExecute bool
	Keys                 []solana.PublicKey
}

type MsTransaction struct {
	Creator          solana.PublicKey
	Ms               solana.PublicKey
	TransactionIndex uint32
	AuthorityIndex   uint32
	AuthorityBump    uint8
	Status           uint8
	InstructionIndex uint8
	Bump             uint8
	Approved         []solana.PublicKey
	Rejected         []solana.PublicKey
	Cancelled        []solana.PublicKey
	ExecutedIndex    uint8
}

type MsInstruction struct {
	ProgramID        solana.PublicKey
	Keys             []MsAccountMeta
	Data             []byte
	InstructionIndex uint8
	Bump             uint8
	Executed         bool
}

func DecodeMs(data []byte) (*Ms, error) {
	var ms Ms
	if err := decodeAccount(AccountMs, data, &ms); err != nil {
		return nil, err
	}
	return &ms, nil
}

func DecodeMsTransaction(data []byte) (*MsTransaction, error) {
	var tx MsTransaction
	if err := decodeAccount(AccountMsTransaction, data, &tx); err != nil {
		return nil, err
	}
	return &tx, nil
}

func DecodeMsInstruction(data []byte) (*MsInstruction, error) {
	var ix MsInstruction
	if err := decodeAccount(AccountMsInstruction, data, &ix); err != nil {
		return nil, err
	}
	return &ix, nil
}

func (ms *Ms) ToModel(address solana.PublicKey) *models.Multisig {
	keys := make([]solana.PublicKey, len(ms.Keys))
	copy(keys, ms.Keys)
	return &models.Multisig{
		Address:              address,
		CreateKey:            ms.CreateKey,
		Threshold:            ms.Threshold,
		AuthorityIndex:       ms.AuthorityIndex,
		TransactionIndex:     ms.TransactionIndex,
		MsChangeIndex:        ms.MsChangeIndex,
		AllowExternalExecute: ms.AllowExternalExecute,
		Keys:                 keys,
	}
}

func (tx *MsTransaction) ToModel(address solana.PublicKey) *models.Proposal {
	return &models.Proposal{
		Address:          address,
		Multisig:         tx.Ms,
		Creator:          tx.Creator,
		Index:            tx.TransactionIndex,
		AuthorityIndex:   tx.AuthorityIndex,
		Status:           models.ProposalStatus(tx.Status),
		InstructionIndex: tx.InstructionIndex,
		ExecutedIndex:    tx.ExecutedIndex,
		Approved:         tx.Approved,
		Rejected:         tx.Rejected,
		Cancelled:        tx.Cancelled,
	}
}

func (ix *MsInstruction) ToModel(address solana.PublicKey) *models.ProposalInstruction {
	keys := make([]*solana.AccountMeta, len(ix.Keys))
	for i, key := range ix.Keys {
		keys[i] = &solana.AccountMeta{
			PublicKey:  key.Pubkey,
			IsSigner:   key.IsSigner,
			IsWritable: key.IsWritable,
		}
	}
	return &models.ProposalInstruction{
		Address:   address,
		ProgramID: ix.ProgramID,
		Keys:      keys,
		Data:      ix.Data,
		Index:     ix.InstructionIndex,
		Executed:  ix.Executed,
	}
}
