package util

import (
	"encoding/binary"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"

	"github.com/dan13ram/squads-treasury/common"
	"github.com/dan13ram/squads-treasury/models"
	"github.com/dan13ram/squads-treasury/squads"
)

const (
	bpfLoaderSetAuthority uint32 = 4
	ataCreateIdempotent   byte   = 1
)

// ParsePublicKey checks that value is a well formed base58 address.
func ParsePublicKey(field string, value string) (solana.PublicKey, error) {
	key, err := solana.PublicKeyFromBase58(strings.TrimSpace(value))
	if err != nil {
		return solana.PublicKey{}, common.NewValidationError(field, "%q is not a valid address", value)
	}
	return key, nil
}

func AddMemberInstructions(programID solana.PublicKey, multisig *models.Multisig, member solana.PublicKey) ([]solana.Instruction, error) {
	if multisig.IsMember(member) {
		return nil, &common.ValidationError{Message: "Member already exists"}
	}
	ix, err := squads.NewAddMemberInstruction(programID, multisig.Address, member)
	if err != nil {
		return nil, err
	}
	return []solana.Instruction{ix}, nil
}

func RemoveMemberInstructions(programID solana.PublicKey, multisig *models.Multisig, member solana.PublicKey) ([]solana.Instruction, error) {
	if !multisig.IsMember(member) {
		return nil, &common.ValidationError{Message: "Member does not exist"}
	}
	if len(multisig.Keys) <= 1 {
		return nil, &common.ValidationError{Message: "Cannot remove the last member"}
	}
	ix, err := squads.NewRemoveMemberInstruction(programID, multisig.Address, member)
	if err != nil {
		return nil, err
	}
	return []solana.Instruction{ix}, nil
}

func ChangeThresholdInstructions(programID solana.PublicKey, multisig *models.Multisig, threshold int) ([]solana.Instruction, error) {
	if threshold < 1 || threshold > len(multisig.Keys) {
		return nil, common.NewValidationError("threshold", "must be between 1 and %d", len(multisig.Keys))
	}
	ix, err := squads.NewChangeThresholdInstruction(programID, multisig.Address, uint16(threshold))
	if err != nil {
		return nil, err
	}
	return []solana.Instruction{ix}, nil
}

func TransferSolInstructions(vault solana.PublicKey, recipient solana.PublicKey, lamports uint64) ([]solana.Instruction, error) {
	if lamports == 0 {
		return nil, common.NewValidationError("amount", "must be greater than zero")
	}
	return []solana.Instruction{
		system.NewTransferInstruction(lamports, vault, recipient).Build(),
	}, nil
}

// TransferTokenInstructions creates the recipient's associated token
// account when missing, paid by the vault, then transfers from source.
func TransferTokenInstructions(
	vault solana.PublicKey,
	source solana.PublicKey,
	mint solana.PublicKey,
	recipient solana.PublicKey,
	amount uint64,
	decimals uint8,
) ([]solana.Instruction, error) {
	if amount == 0 {
		return nil, common.NewValidationError("amount", "must be greater than zero")
	}

	if source.IsZero() {
		vaultATA, _, err := solana.FindAssociatedTokenAddress(vault, mint)
		if err != nil {
			return nil, err
		}
		source = vaultATA
	}

	recipientATA, _, err := solana.FindAssociatedTokenAddress(recipient, mint)
	if err != nil {
		return nil, err
	}

	createATA := solana.NewInstruction(
		solana.SPLAssociatedTokenAccountProgramID,
		solana.AccountMetaSlice{
			solana.Meta(vault).WRITE().SIGNER(),
			solana.Meta(recipientATA).WRITE(),
			solana.Meta(recipient),
			solana.Meta(mint),
			solana.Meta(solana.SystemProgramID),
			solana.Meta(solana.TokenProgramID),
		},
		[]byte{ataCreateIdempotent},
	)

	transfer := token.NewTransferCheckedInstruction(
		amount,
		decimals,
		source,
		mint,
		recipientATA,
		vault,
		nil,
	).Build()

	return []solana.Instruction{createATA, transfer}, nil
}

// ChangeUpgradeAuthorityInstructions hands the upgrade authority of program
// from the vault to newAuthority.
func ChangeUpgradeAuthorityInstructions(vault solana.PublicKey, program solana.PublicKey, newAuthority solana.PublicKey) ([]solana.Instruction, error) {
	if newAuthority.Equals(vault) {
		return nil, common.NewValidationError("authority", "vault is already the upgrade authority")
	}

	programData, err := squads.GetProgramDataAddress(program)
	if err != nil {
		return nil, err
	}

	data := binary.LittleEndian.AppendUint32(nil, bpfLoaderSetAuthority)

	return []solana.Instruction{
		solana.NewInstruction(
			solana.BPFLoaderUpgradeableProgramID,
			solana.AccountMetaSlice{
				solana.Meta(programData).WRITE(),
				solana.Meta(vault).SIGNER(),
				solana.Meta(newAuthority),
			},
			data,
		),
	}, nil
}

// CreateMultisigInstruction validates the member set and returns the
// create instruction with the derived multisig address.
func CreateMultisigInstruction(
	programID solana.PublicKey,
	creator solana.PublicKey,
	createKey solana.PublicKey,
	members []solana.PublicKey,
	threshold int,
) (solana.Instruction, solana.PublicKey, error) {
	if len(members) == 0 {
		return nil, solana.PublicKey{}, common.NewValidationError("members", "at least one member is required")
	}
	seen := make(map[solana.PublicKey]bool, len(members))
	for _, member := range members {
		if seen[member] {
			return nil, solana.PublicKey{}, common.NewValidationError("members", "duplicate member %s", member)
		}
		seen[member] = true
	}
	if threshold < 1 || threshold > len(members) {
		return nil, solana.PublicKey{}, common.NewValidationError("threshold", "must be between 1 and %d", len(members))
	}

	multisig, _, err := squads.GetMultisigPDA(createKey, programID)
	if err != nil {
		return nil, solana.PublicKey{}, err
	}

	ix, err := squads.NewCreateInstruction(programID, creator, createKey, uint16(threshold), members, "")
	if err != nil {
		return nil, solana.PublicKey{}, err
	}
	return ix, multisig, nil
}
