package util

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	addresslookuptable "github.com/gagliardetto/solana-go/programs/address-lookup-table"
	"github.com/mr-tron/base58"

	"github.com/dan13ram/squads-treasury/common"
)

type AccountDataGetter interface {
	GetAccountData(ctx context.Context, account solana.PublicKey) ([]byte, error)
}

func decodeEncoded(encoded string) ([]byte, error) {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return nil, common.NewValidationError("transaction", "empty input")
	}
	if data, err := base58.Decode(encoded); err == nil && len(data) > 0 {
		return data, nil
	}
	if data, err := base64.StdEncoding.DecodeString(encoded); err == nil && len(data) > 0 {
		return data, nil
	}
	return nil, common.NewValidationError("transaction", "not base58 or base64 encoded")
}

func decodeMessage(data []byte) (*solana.Message, error) {
	decoder := bin.NewBinDecoder(data)
	message := new(solana.Message)
	if err := message.UnmarshalWithDecoder(decoder); err != nil {
		return nil, err
	}
	if decoder.Remaining() > 0 {
		return nil, fmt.Errorf("%d trailing bytes", decoder.Remaining())
	}
	return message, nil
}

// DecodeMessage reads a serialized transaction message, legacy or v0. A
// full signed transaction is also accepted and its message returned.
func DecodeMessage(encoded string) (*solana.Message, error) {
	data, err := decodeEncoded(encoded)
	if err != nil {
		return nil, err
	}

	message, err := decodeMessage(data)
	if err == nil {
		return message, nil
	}

	tx, txErr := solana.TransactionFromDecoder(bin.NewBinDecoder(data))
	if txErr != nil {
		return nil, common.NewValidationError("transaction", "could not decode message: %v", err)
	}
	return &tx.Message, nil
}

// ResolveInstructions loads the address lookup tables of a v0 message and
// returns its instructions with full account metas.
func ResolveInstructions(ctx context.Context, message *solana.Message, fetcher AccountDataGetter) ([]solana.Instruction, error) {
	if message.IsVersioned() && len(message.AddressTableLookups) > 0 {
		tables := make(map[solana.PublicKey]solana.PublicKeySlice, len(message.AddressTableLookups))
		for _, lookup := range message.AddressTableLookups {
			if _, ok := tables[lookup.AccountKey]; ok {
				continue
			}
			data, err := fetcher.GetAccountData(ctx, lookup.AccountKey)
			if err != nil {
				return nil, fmt.Errorf("failed to fetch lookup table %s: %w", lookup.AccountKey, err)
			}
			state, err := addresslookuptable.DecodeAddressLookupTableState(data)
			if err != nil {
				return nil, fmt.Errorf("failed to decode lookup table %s: %w", lookup.AccountKey, err)
			}
			tables[lookup.AccountKey] = state.Addresses
		}
		if err := message.SetAddressTables(tables); err != nil {
			return nil, err
		}
		if err := message.ResolveLookups(); err != nil {
			return nil, err
		}
	}

	if len(message.Instructions) == 0 {
		return nil, common.NewValidationError("transaction", "message has no instructions")
	}

	instructions := make([]solana.Instruction, 0, len(message.Instructions))
	for i := range message.Instructions {
		compiled := message.Instructions[i]
		programID, err := message.ResolveProgramIDIndex(compiled.ProgramIDIndex)
		if err != nil {
			return nil, fmt.Errorf("instruction %d: %w", i, err)
		}
		accounts, err := compiled.ResolveInstructionAccounts(message)
		if err != nil {
			return nil, fmt.Errorf("instruction %d: %w", i, err)
		}
		instructions = append(instructions, solana.NewInstruction(programID, accounts, []byte(compiled.Data)))
	}
	return instructions, nil
}
