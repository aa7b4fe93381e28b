package app

import (
	log "github.com/sirupsen/logrus"

	"github.com/dan13ram/squads-treasury/common"
)

// NewWallet builds the connected wallet from the first configured source:
// keypair file, base58 private key, mnemonic, then GCP KMS. It returns a
// nil wallet when nothing is configured.
func NewWallet() (common.Signer, error) {
	config := Config.Wallet

	switch {
	case config.KeypairPath != "":
		log.Debug("[WALLET] Loading keypair file")
		signer, err := common.NewKeypairSignerFromFile(config.KeypairPath)
		if err != nil {
			return nil, err
		}
		return signer, nil
	case config.PrivateKey != "":
		log.Debug("[WALLET] Loading base58 private key")
		signer, err := common.NewKeypairSignerFromBase58(config.PrivateKey)
		if err != nil {
			return nil, err
		}
		return signer, nil
	case config.Mnemonic != "":
		log.Debug("[WALLET] Deriving key from mnemonic")
		signer, err := common.NewMnemonicSigner(config.Mnemonic)
		if err != nil {
			return nil, err
		}
		return signer, nil
	case config.GcpKmsKeyName != "":
		log.Debug("[WALLET] Connecting to GCP KMS")
		return common.NewGcpKmsSigner(config.GcpKmsKeyName)
	}

	log.Warn("[WALLET] No wallet configured")
	return nil, nil
}
