package common

import "encoding/asn1"

const (
	DefaultBIP39Passphrase = ""
	DefaultSolanaHDPath    = "m/44'/501'/0'/0'"
	DefaultProgramID       = "SMPLecH534NA9acpos4G6x7uf3LWbCAwZQE9e8ZekMu"
	MaxTransactionSize     = 1232
	LamportsPerSol         = 1_000_000_000
	SolDecimals            = 9
)

var oidPublicKeyEd25519 = asn1.ObjectIdentifier{1, 3, 101, 112}
