// Package squads is a client for the Squads v3 multisig program: address
// derivation, instruction encoding and account decoding.
package squads

import (
	"bytes"
	"crypto/sha256"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"github.com/dan13ram/squads-treasury/common"
)

var DefaultProgramID = solana.MustPublicKeyFromBase58(common.DefaultProgramID)

const (
	InstructionCreate              = "create"
	InstructionCreateTransaction   = "create_transaction"
	InstructionAddInstruction      = "add_instruction"
	InstructionActivateTransaction = "activate_transaction"
	InstructionApproveTransaction  = "approve_transaction"
	InstructionRejectTransaction   = "reject_transaction"
	InstructionCancelTransaction   = "cancel_transaction"
	InstructionExecuteTransaction  = "execute_transaction"
	InstructionExecuteInstruction  = "execute_instruction"
	InstructionAddMember           = "add_member"
	InstructionRemoveMember        = "remove_member"
	InstructionChangeThreshold     = "change_threshold"

	AccountMs            = "Ms"
	AccountMsTransaction = "MsTransaction"
	AccountMsInstruction = "MsInstruction"
)

// Discriminator is the 8 byte anchor prefix for an instruction or account.
type Discriminator [8]byte

func sighash(namespace string, name string) Discriminator {
	sum := sha256.Sum256([]byte(namespace + ":" + name))
	var d Discriminator
	copy(d[:], sum[:8])
	return d
}

func InstructionDiscriminator(name string) Discriminator {
	return sighash("global", name)
}

func AccountDiscriminator(name string) Discriminator {
	return sighash("account", name)
}

func encodeInstructionData(name string, args interface{}) ([]byte, error) {
	d := InstructionDiscriminator(name)
	buf := new(bytes.Buffer)
	buf.Write(d[:])
	if args != nil {
		if err := bin.NewBorshEncoder(buf).Encode(args); err != nil {
			return nil, fmt.Errorf("failed to encode %s args: %w", name, err)
		}
	}
	return buf.Bytes(), nil
}

func decodeAccount(name string, data []byte, into interface{}) error {
	d := AccountDiscriminator(name)
	if len(data) < len(d) || !bytes.Equal(data[:len(d)], d[:]) {
		return fmt.Errorf("account is not a %s", name)
	}
	if err := bin.NewBorshDecoder(data[len(d):]).Decode(into); err != nil {
		return fmt.Errorf("failed to decode %s: %w", name, err)
	}
	return nil
}

// EncodeAccount serializes v with the account discriminator of name, the
// layout read back by the Decode functions.
func EncodeAccount(name string, v interface{}) ([]byte, error) {
	d := AccountDiscriminator(name)
	buf := new(bytes.Buffer)
	buf.Write(d[:])
	if err := bin.NewBorshEncoder(buf).Encode(v); err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", name, err)
	}
	return buf.Bytes(), nil
}
