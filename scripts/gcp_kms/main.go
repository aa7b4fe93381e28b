package main

import (
	"fmt"
	"log"
	"os"

	"github.com/dan13ram/squads-treasury/common"
)

// Main Function
func main() {
	GoogleKeyName := os.Getenv("WALLET_GCP_KMS_KEY_NAME")

	fmt.Println("Google KMS Key Name: ", GoogleKeyName)
	if GoogleKeyName == "" {
		log.Fatalf("GCP KMS Key Name not set")
	}

	signer, err := common.NewGcpKmsSigner(GoogleKeyName)
	if err != nil {
		log.Fatalf("failed to create GCP KMS signer: %v", err)
	}
	defer signer.Destroy()

	publicKey := signer.PublicKey()
	fmt.Println("Solana Address: ", publicKey)

	message := []byte("example transaction message")

	signature, err := signer.Sign(message)
	if err != nil {
		log.Fatalf("failed to sign message: %v", err)
	}
	fmt.Println("Signature: ", signature)

	if !signature.Verify(publicKey, message) {
		log.Fatalf("signature does not verify against %s", publicKey)
	}
	fmt.Println("Signature verified")
}
