package common

import (
	"crypto/ed25519"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

type KeypairSigner struct {
	privateKey solana.PrivateKey
	publicKey  solana.PublicKey
}

var _ Signer = &KeypairSigner{}

func NewKeypairSigner(privateKey solana.PrivateKey) (*KeypairSigner, error) {
	if len(privateKey) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("invalid private key length %d", len(privateKey))
	}
	return &KeypairSigner{
		privateKey: privateKey,
		publicKey:  privateKey.PublicKey(),
	}, nil
}

// NewKeypairSignerFromFile reads a keypair in the solana-keygen JSON format.
func NewKeypairSignerFromFile(path string) (*KeypairSigner, error) {
	privateKey, err := solana.PrivateKeyFromSolanaKeygenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read keypair file: %w", err)
	}
	return NewKeypairSigner(privateKey)
}

func NewKeypairSignerFromBase58(encoded string) (*KeypairSigner, error) {
	privateKey, err := solana.PrivateKeyFromBase58(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode private key: %w", err)
	}
	return NewKeypairSigner(privateKey)
}

func (s *KeypairSigner) Destroy() {
	// nothing to do
}

func (s *KeypairSigner) PublicKey() solana.PublicKey {
	return s.publicKey
}

func (s *KeypairSigner) Sign(message []byte) (solana.Signature, error) {
	return s.privateKey.Sign(message)
}
