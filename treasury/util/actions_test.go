package util

import (
	"encoding/binary"
	"errors"
	"io"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"

	"github.com/dan13ram/squads-treasury/common"
	"github.com/dan13ram/squads-treasury/models"
	"github.com/dan13ram/squads-treasury/squads"

	log "github.com/sirupsen/logrus"
)

func init() {
	log.SetOutput(io.Discard)
}

func newTestMultisig(members int) *models.Multisig {
	keys := make([]solana.PublicKey, members)
	for i := range keys {
		keys[i] = solana.NewWallet().PublicKey()
	}
	return &models.Multisig{
		Address:   solana.NewWallet().PublicKey(),
		Threshold: 1,
		Keys:      keys,
	}
}

func assertValidationError(t *testing.T, err error, message string) {
	var validationErr *common.ValidationError
	if assert.True(t, errors.As(err, &validationErr), "expected validation error, got %v", err) && message != "" {
		assert.Equal(t, message, common.UserMessage(err))
	}
}

func TestParsePublicKey(t *testing.T) {
	key := solana.NewWallet().PublicKey()

	parsed, err := ParsePublicKey("member", " "+key.String()+" ")
	assert.NoError(t, err)
	assert.Equal(t, key, parsed)

	_, err = ParsePublicKey("member", "not-an-address")
	assertValidationError(t, err, "")
}

func TestAddMemberInstructions(t *testing.T) {
	multisig := newTestMultisig(2)

	t.Run("New Member", func(t *testing.T) {
		member := solana.NewWallet().PublicKey()
		ixs, err := AddMemberInstructions(squads.DefaultProgramID, multisig, member)
		assert.NoError(t, err)
		assert.Len(t, ixs, 1)
		assert.Equal(t, squads.DefaultProgramID, ixs[0].ProgramID())
	})

	t.Run("Existing Member", func(t *testing.T) {
		ixs, err := AddMemberInstructions(squads.DefaultProgramID, multisig, multisig.Keys[1])
		assert.Nil(t, ixs)
		assertValidationError(t, err, "Member already exists")
	})
}

func TestRemoveMemberInstructions(t *testing.T) {
	t.Run("Existing Member", func(t *testing.T) {
		multisig := newTestMultisig(2)
		ixs, err := RemoveMemberInstructions(squads.DefaultProgramID, multisig, multisig.Keys[0])
		assert.NoError(t, err)
		assert.Len(t, ixs, 1)
	})

	t.Run("Unknown Member", func(t *testing.T) {
		multisig := newTestMultisig(2)
		_, err := RemoveMemberInstructions(squads.DefaultProgramID, multisig, solana.NewWallet().PublicKey())
		assertValidationError(t, err, "Member does not exist")
	})

	t.Run("Last Member", func(t *testing.T) {
		multisig := newTestMultisig(1)
		_, err := RemoveMemberInstructions(squads.DefaultProgramID, multisig, multisig.Keys[0])
		assertValidationError(t, err, "Cannot remove the last member")
	})
}

func TestChangeThresholdInstructions(t *testing.T) {
	multisig := newTestMultisig(3)

	for threshold := -1; threshold <= 5; threshold++ {
		ixs, err := ChangeThresholdInstructions(squads.DefaultProgramID, multisig, threshold)
		if threshold >= 1 && threshold <= 3 {
			assert.NoError(t, err, "threshold %d", threshold)
			assert.Len(t, ixs, 1)
		} else {
			assertValidationError(t, err, "invalid threshold: must be between 1 and 3")
			assert.Nil(t, ixs)
		}
	}
}

func TestTransferSolInstructions(t *testing.T) {
	vault := solana.NewWallet().PublicKey()
	recipient := solana.NewWallet().PublicKey()

	ixs, err := TransferSolInstructions(vault, recipient, 5)
	assert.NoError(t, err)
	assert.Len(t, ixs, 1)
	assert.Equal(t, solana.SystemProgramID, ixs[0].ProgramID())
	assert.Equal(t, vault, ixs[0].Accounts()[0].PublicKey)
	assert.True(t, ixs[0].Accounts()[0].IsSigner)

	_, err = TransferSolInstructions(vault, recipient, 0)
	assertValidationError(t, err, "")
}

func TestTransferTokenInstructions(t *testing.T) {
	vault := solana.NewWallet().PublicKey()
	recipient := solana.NewWallet().PublicKey()
	mint := solana.NewWallet().PublicKey()

	t.Run("From Vault ATA", func(t *testing.T) {
		ixs, err := TransferTokenInstructions(vault, solana.PublicKey{}, mint, recipient, 100, 6)
		assert.NoError(t, err)
		assert.Len(t, ixs, 2)

		recipientATA, _, _ := solana.FindAssociatedTokenAddress(recipient, mint)
		vaultATA, _, _ := solana.FindAssociatedTokenAddress(vault, mint)

		assert.Equal(t, solana.SPLAssociatedTokenAccountProgramID, ixs[0].ProgramID())
		data, _ := ixs[0].Data()
		assert.Equal(t, []byte{1}, data)
		assert.Equal(t, recipientATA, ixs[0].Accounts()[1].PublicKey)

		assert.Equal(t, solana.TokenProgramID, ixs[1].ProgramID())
		accounts := ixs[1].Accounts()
		assert.Equal(t, vaultATA, accounts[0].PublicKey)
		assert.Equal(t, mint, accounts[1].PublicKey)
		assert.Equal(t, recipientATA, accounts[2].PublicKey)
		assert.Equal(t, vault, accounts[3].PublicKey)
	})

	t.Run("Explicit Source", func(t *testing.T) {
		source := solana.NewWallet().PublicKey()
		ixs, err := TransferTokenInstructions(vault, source, mint, recipient, 100, 6)
		assert.NoError(t, err)
		assert.Equal(t, source, ixs[1].Accounts()[0].PublicKey)
	})

	t.Run("Zero Amount", func(t *testing.T) {
		ixs, err := TransferTokenInstructions(vault, solana.PublicKey{}, mint, recipient, 0, 6)
		assertValidationError(t, err, "")
		assert.Nil(t, ixs)
	})
}

func TestChangeUpgradeAuthorityInstructions(t *testing.T) {
	vault := solana.NewWallet().PublicKey()
	newAuthority := solana.NewWallet().PublicKey()

	ixs, err := ChangeUpgradeAuthorityInstructions(vault, squads.DefaultProgramID, newAuthority)
	assert.NoError(t, err)
	assert.Len(t, ixs, 1)
	assert.Equal(t, solana.BPFLoaderUpgradeableProgramID, ixs[0].ProgramID())

	data, _ := ixs[0].Data()
	assert.Equal(t, uint32(4), binary.LittleEndian.Uint32(data))

	accounts := ixs[0].Accounts()
	assert.Equal(t, solana.MustPublicKeyFromBase58("Q1xCTDDfdfB4jk2Wicw1HdutFVdRik5LMKYMcZdT2rU"), accounts[0].PublicKey)
	assert.True(t, accounts[0].IsWritable)
	assert.True(t, accounts[1].IsSigner)
	assert.Equal(t, newAuthority, accounts[2].PublicKey)

	_, err = ChangeUpgradeAuthorityInstructions(vault, squads.DefaultProgramID, vault)
	assertValidationError(t, err, "")
}

func TestCreateMultisigInstruction(t *testing.T) {
	creator := solana.NewWallet().PublicKey()
	createKey := solana.MustPublicKeyFromBase58("FAe4sisG95oZ42w7buUn5qEE4TAnfTTFPiguZUHmhiF")
	other := solana.NewWallet().PublicKey()

	t.Run("Valid", func(t *testing.T) {
		ix, multisig, err := CreateMultisigInstruction(squads.DefaultProgramID, creator, createKey, []solana.PublicKey{creator, other}, 2)
		assert.NoError(t, err)
		assert.NotNil(t, ix)
		assert.Equal(t, solana.MustPublicKeyFromBase58("FWKVuRbtCmfR6NtBXpn28MnKNHpym78WjCJ4qMFpYQna"), multisig)
	})

	t.Run("Duplicate Member", func(t *testing.T) {
		_, _, err := CreateMultisigInstruction(squads.DefaultProgramID, creator, createKey, []solana.PublicKey{creator, creator}, 1)
		assertValidationError(t, err, "")
	})

	t.Run("No Members", func(t *testing.T) {
		_, _, err := CreateMultisigInstruction(squads.DefaultProgramID, creator, createKey, nil, 1)
		assertValidationError(t, err, "")
	})

	t.Run("Threshold Too High", func(t *testing.T) {
		_, _, err := CreateMultisigInstruction(squads.DefaultProgramID, creator, createKey, []solana.PublicKey{creator}, 2)
		assertValidationError(t, err, "invalid threshold: must be between 1 and 1")
	})
}
