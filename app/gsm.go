package app

import (
	"context"
	"fmt"
	"strings"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"
	log "github.com/sirupsen/logrus"
)

type SecretAccessor interface {
	AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest, opts ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error)
	Close() error
}

var newSecretAccessor = func(ctx context.Context) (SecretAccessor, error) {
	return secretmanager.NewClient(ctx)
}

func accessSecretVersion(client SecretAccessor, name string) (string, error) {
	req := &secretmanagerpb.AccessSecretVersionRequest{
		Name: fmt.Sprintf("projects/%s/secrets/%s/versions/latest", Config.GoogleSecretManager.ProjectId, name),
	}

	result, err := client.AccessSecretVersion(context.Background(), req)
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(string(result.Payload.Data)), nil
}

func hasWalletMaterial() bool {
	wallet := Config.Wallet
	return wallet.KeypairPath != "" || wallet.PrivateKey != "" || wallet.Mnemonic != "" || wallet.GcpKmsKeyName != ""
}

// readKeysFromGSM fills the wallet private key from secret manager when
// no other wallet source is configured.
func readKeysFromGSM() {
	if !Config.GoogleSecretManager.Enabled {
		log.Debug("[GSM] Google Secret Manager is disabled")
		return
	}
	if hasWalletMaterial() {
		log.Debug("[GSM] Wallet already configured, skipping secret manager")
		return
	}

	if Config.GoogleSecretManager.ProjectId == "" {
		log.Fatalf("[GSM] ProjectId is empty")
	}
	if Config.GoogleSecretManager.WalletSecretName == "" {
		log.Fatalf("[GSM] Wallet secret name is empty")
	}

	client, err := newSecretAccessor(context.Background())
	if err != nil {
		log.Fatalf("[GSM] Failed to create secretmanager client: %v", err)
	}
	defer client.Close()

	log.Debug("[GSM] Reading wallet private key")
	Config.Wallet.PrivateKey, err = accessSecretVersion(client, Config.GoogleSecretManager.WalletSecretName)
	if err != nil {
		log.Fatalf("[GSM] Failed to access wallet private key: %v", err)
	}
	log.Info("[GSM] Successfully read wallet private key")
}
