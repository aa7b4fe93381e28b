package common

import (
	"context"
	"crypto/ed25519"
	"crypto/x509/pkix"
	"encoding/asn1"
	"encoding/pem"
	"fmt"

	kms "cloud.google.com/go/kms/apiv1"
	"cloud.google.com/go/kms/apiv1/kmspb"
	"github.com/gagliardetto/solana-go"

	gax "github.com/googleapis/gax-go/v2"
)

type GCPKeyManagementClient interface {
	Close() error
	GetPublicKey(ctx context.Context, req *kmspb.GetPublicKeyRequest, opts ...gax.CallOption) (*kmspb.PublicKey, error)
	AsymmetricSign(ctx context.Context, req *kmspb.AsymmetricSignRequest, opts ...gax.CallOption) (*kmspb.AsymmetricSignResponse, error)
	GetCryptoKeyVersion(ctx context.Context, req *kmspb.GetCryptoKeyVersionRequest, opts ...gax.CallOption) (*kmspb.CryptoKeyVersion, error)
}

// Struct Definition
type GcpKmsSigner struct {
	client    GCPKeyManagementClient
	keyName   string
	publicKey solana.PublicKey
}

var _ Signer = &GcpKmsSigner{}

var NewGCPKeyManagementClient = func(ctx context.Context) (GCPKeyManagementClient, error) {
	return kms.NewKeyManagementClient(ctx)
}

// Constructor Function
func NewGcpKmsSigner(keyName string) (Signer, error) {
	client, err := NewGCPKeyManagementClient(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to create KMS client: %w", err)
	}

	// verify key algorithm
	keyVersionDetails, err := resolveKeyVersionDetails(client, keyName)
	if err != nil {
		return nil, fmt.Errorf("failed to get key version details: %w", err)
	}

	if keyVersionDetails.Algorithm != kmspb.CryptoKeyVersion_EC_SIGN_ED25519 {
		return nil, fmt.Errorf("key algorithm is not EC_SIGN_ED25519")
	}

	pubKeyBytes, err := resolvePubKeyBytes(client, keyName)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve public key: %w", err)
	}

	if len(pubKeyBytes) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("public key has %d bytes instead of %d", len(pubKeyBytes), ed25519.PublicKeySize)
	}

	return &GcpKmsSigner{
		client:    client,
		keyName:   keyName,
		publicKey: solana.PublicKeyFromBytes(pubKeyBytes),
	}, nil
}

// Destructor Function
func (s *GcpKmsSigner) Destroy() {
	s.client.Close()
}

func (s *GcpKmsSigner) PublicKey() solana.PublicKey {
	return s.publicKey
}

// Sign sends the full message to KMS; Ed25519 keys sign raw data, not digests.
func (s *GcpKmsSigner) Sign(message []byte) (solana.Signature, error) {
	req := &kmspb.AsymmetricSignRequest{
		Name: s.keyName,
		Data: message,
	}

	resp, err := s.client.AsymmetricSign(context.Background(), req)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("asymmetric sign operation: %w", err)
	}

	if len(resp.Signature) != ed25519.SignatureSize {
		return solana.Signature{}, fmt.Errorf("asymmetric signature has %d bytes", len(resp.Signature))
	}

	if !ed25519.Verify(ed25519.PublicKey(s.publicKey[:]), message, resp.Signature) {
		return solana.Signature{}, fmt.Errorf("signature verification failed")
	}

	return solana.SignatureFromBytes(resp.Signature), nil
}

func resolvePubKeyBytes(client GCPKeyManagementClient, keyName string) ([]byte, error) {
	publicKeyResp, err := client.GetPublicKey(context.Background(), &kmspb.GetPublicKeyRequest{Name: keyName})
	if err != nil {
		return nil, fmt.Errorf("failed to get public key: %w", err)
	}

	publicKeyPem := publicKeyResp.Pem

	block, _ := pem.Decode([]byte(publicKeyPem))
	if block == nil {
		return nil, fmt.Errorf("public key %q PEM empty: %.130q", keyName, publicKeyPem)
	}

	var info struct {
		AlgID pkix.AlgorithmIdentifier
		Key   asn1.BitString
	}
	_, err = asn1.Unmarshal(block.Bytes, &info)
	if err != nil {
		return nil, fmt.Errorf("public key %q PEM block %q: %w", keyName, block.Type, err)
	}

	if gotAlg := info.AlgID.Algorithm; !gotAlg.Equal(oidPublicKeyEd25519) {
		return nil, fmt.Errorf("public key %q ASN.1 algorithm %s instead of %s", keyName, gotAlg, oidPublicKeyEd25519)
	}

	return info.Key.Bytes, nil
}

func resolveKeyVersionDetails(client GCPKeyManagementClient, keyName string) (*kmspb.CryptoKeyVersion, error) {
	req := &kmspb.GetCryptoKeyVersionRequest{
		Name: keyName,
	}

	resp, err := client.GetCryptoKeyVersion(context.Background(), req)
	if err != nil {
		return nil, fmt.Errorf("failed to get key version details: %w", err)
	}

	return resp, nil
}
