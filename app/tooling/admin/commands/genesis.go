// Package commands contains the functionality for the admin tooling.
package commands

import (
	"fmt"

	"github.com/ardanlabs/utxochain/foundation/blockchain/genesis"
	"github.com/ardanlabs/utxochain/foundation/blockchain/state"
	"go.uber.org/zap"
)

// Genesis mines the genesis block described by the file and prints it.
// Every node of the network must print the same block id.
func Genesis(path string, log *zap.SugaredLogger) error {
	gen, err := genesis.Load(path)
	if err != nil {
		return err
	}

	ev := func(v string, args ...any) {
		log.Infow(fmt.Sprintf(v, args...))
	}

	st, err := state.New(state.Config{
		BeneficiaryID:  gen.Payout,
		Genesis:        gen,
		SelectStrategy: "fee",
		EvHandler:      ev,
	})
	if err != nil {
		return err
	}

	block := st.RetrieveLatestBlock()

	fmt.Printf("Genesis Block: %s\n", block.ID())
	fmt.Printf("Merkle Root:   %s\n", block.Header.MerkleRoot)
	fmt.Printf("TimeStamp:     %d\n", block.Header.TimeStamp)
	fmt.Printf("NBits:         %#08x\n", block.Header.NBits)
	fmt.Printf("Nonce:         %d\n", block.Header.Nonce)
	fmt.Printf("Payout:        %s  Balance: %d\n", gen.Payout, st.QueryBalance(gen.Payout))

	return nil
}
