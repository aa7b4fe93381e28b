package models

import (
	"time"

	"github.com/gagliardetto/solana-go"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	CollectionSettings = "settings"
	SettingsKey        = "active"
)

// Settings is the explicit context handed to every treasury component.
type Settings struct {
	RPCURL          string
	ProgramID       solana.PublicKey
	MultisigAddress solana.PublicKey
}

// SettingsDocument is the persisted form of Settings.
type SettingsDocument struct {
	Id              *primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Key             string              `bson:"key" json:"key"`
	RPCURL          string              `bson:"rpc_url" json:"rpc_url"`
	ProgramID       string              `bson:"program_id" json:"program_id"`
	MultisigAddress string              `bson:"multisig_address" json:"multisig_address"`
	UpdatedAt       time.Time           `bson:"updated_at" json:"updated_at"`
}
