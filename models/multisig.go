package models

import (
	"github.com/gagliardetto/solana-go"
)

type Multisig struct {
	Address              solana.PublicKey   `json:"address"`
	CreateKey            solana.PublicKey   `json:"create_key"`
	Threshold            uint16             `json:"threshold"`
	AuthorityIndex       uint16             `json:"authority_index"`
	TransactionIndex     uint32             `json:"transaction_index"`
	MsChangeIndex        uint32             `json:"ms_change_index"`
	AllowExternalExecute bool               `json:"allow_external_execute"`
	Keys                 []solana.PublicKey `json:"keys"`
}

func (m *Multisig) IsMember(key solana.PublicKey) bool {
	for _, k := range m.Keys {
		if k.Equals(key) {
			return true
		}
	}
	return false
}

type TokenBalance struct {
	Account  solana.PublicKey `json:"account"`
	Mint     solana.PublicKey `json:"mint"`
	Amount   uint64           `json:"amount"`
	Decimals uint8            `json:"decimals"`
	UIAmount string           `json:"ui_amount"`
}
