package main

import (
	"flag"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"

	"github.com/dan13ram/squads-treasury/squads"
	"github.com/dan13ram/squads-treasury/treasury/util"
)

func main() {
	var members string
	var threshold int
	var createKey string
	var programID string
	flag.StringVar(&members, "members", "", "comma separated list of member addresses")
	flag.IntVar(&threshold, "threshold", 0, "threshold for multisig")
	flag.StringVar(&createKey, "create-key", "", "create key, random when empty")
	flag.StringVar(&programID, "program-id", squads.DefaultProgramID.String(), "squads program id")
	flag.Parse()

	if members == "" {
		fmt.Printf("members is required\n")
		return
	}

	program, err := solana.PublicKeyFromBase58(programID)
	if err != nil {
		fmt.Printf("invalid program id: %v\n", err)
		return
	}

	var keys []solana.PublicKey
	for i, member := range strings.Split(members, ",") {
		key, err := util.ParsePublicKey("member", strings.TrimSpace(member))
		if err != nil {
			fmt.Printf("invalid member %d: %v\n", i, err)
			return
		}
		keys = append(keys, key)
	}

	create := solana.NewWallet().PublicKey()
	if createKey != "" {
		create, err = solana.PublicKeyFromBase58(createKey)
		if err != nil {
			fmt.Printf("invalid create key: %v\n", err)
			return
		}
	}

	_, multisig, err := util.CreateMultisigInstruction(program, keys[0], create, keys, threshold)
	if err != nil {
		fmt.Printf("invalid multisig: %v\n", err)
		return
	}

	vault, err := squads.GetVaultPDA(multisig, program)
	if err != nil {
		fmt.Printf("error deriving vault: %v\n", err)
		return
	}

	fmt.Printf("Create Key: %s\n", create)
	fmt.Printf("Multisig: %s\n", multisig)
	fmt.Printf("Vault: %s\n", vault)
	fmt.Printf("Threshold: %d of %d\n", threshold, len(keys))
}
