package squads

import (
	"encoding/binary"

	"github.com/gagliardetto/solana-go"
)

var (
	seedPrefix      = []byte("squad")
	seedMultisig    = []byte("multisig")
	seedTransaction = []byte("transaction")
	seedInstruction = []byte("instruction")
	seedAuthority   = []byte("authority")
)

const (
	// AuthorityIndexInternal runs proposals signed by the multisig itself.
	AuthorityIndexInternal uint32 = 0
	// AuthorityIndexVault is the default treasury vault.
	AuthorityIndexVault uint32 = 1
)

func u32LE(v uint32) []byte {
	return binary.LittleEndian.AppendUint32(nil, v)
}

func GetMultisigPDA(createKey solana.PublicKey, programID solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{seedPrefix, createKey.Bytes(), seedMultisig}, programID)
}

func GetTransactionPDA(multisig solana.PublicKey, transactionIndex uint32, programID solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{seedPrefix, multisig.Bytes(), u32LE(transactionIndex), seedTransaction}, programID)
}

func GetInstructionPDA(transaction solana.PublicKey, instructionIndex uint8, programID solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{seedPrefix, transaction.Bytes(), {instructionIndex}, seedInstruction}, programID)
}

func GetAuthorityPDA(multisig solana.PublicKey, authorityIndex uint32, programID solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{seedPrefix, multisig.Bytes(), u32LE(authorityIndex), seedAuthority}, programID)
}

func GetVaultPDA(multisig solana.PublicKey, programID solana.PublicKey) (solana.PublicKey, error) {
	vault, _, err := GetAuthorityPDA(multisig, AuthorityIndexVault, programID)
	return vault, err
}

// GetProgramDataAddress derives the data account of an upgradeable program.
func GetProgramDataAddress(program solana.PublicKey) (solana.PublicKey, error) {
	address, _, err := solana.FindProgramAddress([][]byte{program.Bytes()}, solana.BPFLoaderUpgradeableProgramID)
	return address, err
}
