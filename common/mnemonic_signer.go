package common

import (
	"crypto/ed25519"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"github.com/cosmos/go-bip39"
	"github.com/gagliardetto/solana-go"
)

const hardenedOffset = 0x80000000

// Struct Definition
type MnemonicSigner struct {
	*KeypairSigner
}

var _ Signer = &MnemonicSigner{}

// Constructor Function
func NewMnemonicSigner(mnemonic string) (*MnemonicSigner, error) {
	privateKey, err := SolanaPrivateKeyFromMnemonic(mnemonic, DefaultSolanaHDPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create solana private key: %w", err)
	}

	keypair, err := NewKeypairSigner(privateKey)
	if err != nil {
		return nil, err
	}

	return &MnemonicSigner{KeypairSigner: keypair}, nil
}

func SolanaPrivateKeyFromMnemonic(mnemonic string, hdPath string) (solana.PrivateKey, error) {
	seed, err := bip39.NewSeedWithErrorChecking(mnemonic, DefaultBIP39Passphrase)
	if err != nil {
		return nil, fmt.Errorf("invalid mnemonic: %w", err)
	}

	path, err := parseHardenedPath(hdPath)
	if err != nil {
		return nil, err
	}

	key := deriveEd25519Seed(seed, path)
	return solana.PrivateKey(ed25519.NewKeyFromSeed(key)), nil
}

// ed25519 only supports hardened derivation (SLIP-0010)
func deriveEd25519Seed(seed []byte, path []uint32) []byte {
	mac := hmac.New(sha512.New, []byte("ed25519 seed"))
	mac.Write(seed)
	sum := mac.Sum(nil)
	key, chainCode := sum[:32], sum[32:]

	for _, index := range path {
		data := make([]byte, 0, 37)
		data = append(data, 0)
		data = append(data, key...)
		data = binary.BigEndian.AppendUint32(data, index)

		mac = hmac.New(sha512.New, chainCode)
		mac.Write(data)
		sum = mac.Sum(nil)
		key, chainCode = sum[:32], sum[32:]
	}

	return key
}

func parseHardenedPath(hdPath string) ([]uint32, error) {
	parts := strings.Split(hdPath, "/")
	if len(parts) == 0 || parts[0] != "m" {
		return nil, fmt.Errorf("invalid derivation path %q", hdPath)
	}

	path := make([]uint32, 0, len(parts)-1)
	for _, part := range parts[1:] {
		if !strings.HasSuffix(part, "'") {
			return nil, fmt.Errorf("derivation path %q has non-hardened segment %q", hdPath, part)
		}
		index, err := strconv.ParseUint(strings.TrimSuffix(part, "'"), 10, 31)
		if err != nil {
			return nil, fmt.Errorf("invalid derivation path segment %q: %w", part, err)
		}
		path = append(path, uint32(index)+hardenedOffset)
	}
	return path, nil
}
