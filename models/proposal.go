package models

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// ProposalStatus mirrors the on-chain transaction status enum, in declaration order.
type ProposalStatus uint8

const (
	ProposalStatusDraft ProposalStatus = iota
	ProposalStatusActive
	ProposalStatusExecuteReady
	ProposalStatusExecuted
	ProposalStatusRejected
	ProposalStatusCancelled
)

func (s ProposalStatus) String() string {
	switch s {
	case ProposalStatusDraft:
		return "Draft"
	case ProposalStatusActive:
		return "Active"
	case ProposalStatusExecuteReady:
		return "ExecuteReady"
	case ProposalStatusExecuted:
		return "Executed"
	case ProposalStatusRejected:
		return "Rejected"
	case ProposalStatusCancelled:
		return "Cancelled"
	}
	return fmt.Sprintf("Unknown(%d)", uint8(s))
}

func (s ProposalStatus) Valid() bool {
	return s <= ProposalStatusCancelled
}

type Proposal struct {
	Address          solana.PublicKey   `json:"address"`
	Multisig         solana.PublicKey   `json:"multisig"`
	Creator          solana.PublicKey   `json:"creator"`
	Index            uint32             `json:"index"`
	AuthorityIndex   uint32             `json:"authority_index"`
	Status           ProposalStatus     `json:"status"`
	InstructionIndex uint8              `json:"instruction_index"`
	ExecutedIndex    uint8              `json:"executed_index"`
	Approved         []solana.PublicKey `json:"approved"`
	Rejected         []solana.PublicKey `json:"rejected"`
	Cancelled        []solana.PublicKey `json:"cancelled"`
}

type ProposalInstruction struct {
	Address   solana.PublicKey      `json:"address"`
	ProgramID solana.PublicKey      `json:"program_id"`
	Keys      []*solana.AccountMeta `json:"keys"`
	Data      []byte                `json:"data"`
	Index     uint8                 `json:"index"`
	Executed  bool                  `json:"executed"`
}
