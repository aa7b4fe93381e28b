package common

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Signer is the connected wallet: a public identity able to sign
// compiled transaction messages.
type Signer interface {
	PublicKey() solana.PublicKey
	Sign(message []byte) (solana.Signature, error)
	Destroy()
}

// SignTransactions adds the signer's signature to every transaction.
// The signer must be one of the message's required signers.
func SignTransactions(signer Signer, txs ...*solana.Transaction) error {
	for i, tx := range txs {
		if err := signTransaction(signer, tx); err != nil {
			return fmt.Errorf("failed to sign transaction %d: %w", i, err)
		}
	}
	return nil
}

func signTransaction(signer Signer, tx *solana.Transaction) error {
	messageContent, err := tx.Message.MarshalBinary()
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	required := int(tx.Message.Header.NumRequiredSignatures)
	if len(tx.Signatures) != required {
		signatures := make([]solana.Signature, required)
		copy(signatures, tx.Signatures)
		tx.Signatures = signatures
	}

	index := -1
	for i, key := range tx.Message.Signers() {
		if key.Equals(signer.PublicKey()) {
			index = i
			break
		}
	}
	if index < 0 {
		return fmt.Errorf("%s is not a required signer", signer.PublicKey())
	}

	signature, err := signer.Sign(messageContent)
	if err != nil {
		return err
	}
	tx.Signatures[index] = signature
	return nil
}
