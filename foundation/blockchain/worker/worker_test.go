package worker_test

import (
	"testing"
	"time"

	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
	"github.com/ardanlabs/utxochain/foundation/blockchain/genesis"
	"github.com/ardanlabs/utxochain/foundation/blockchain/state"
	"github.com/ardanlabs/utxochain/foundation/blockchain/wallet"
	"github.com/ardanlabs/utxochain/foundation/blockchain/worker"
	"github.com/ethereum/go-ethereum/crypto"
)

// Success and failure markers.
const (
	success = "✓"
	failed  = "✗"
)

const (
	pkHexKey = "fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959"
	alice    = database.AccountID("0xdd6B972ffcc631a62CAE1BB9d80b7ff429c8ebA4")
	bob      = database.AccountID("0xF01813E4B85e178A83e29B8E7bF26BD830a25f32")
	minerA   = database.AccountID("0xFef311483Cc040e1A89fb9bb469eeB8A70935EF8")
)

func Test_MiningOperation(t *testing.T) {
	t.Log("Given the need to mine submitted transactions in the background.")
	{
		ev := func(v string, args ...any) { t.Logf(v, args...) }

		st, err := state.New(state.Config{
			BeneficiaryID: minerA,
			Host:          "localhost:9080",
			Genesis: genesis.Genesis{
				Date:    time.Date(2023, time.November, 14, 22, 13, 20, 0, time.UTC),
				Version: 1,
				NBits:   0x207fffff,
				Subsidy: 500000,
				Payout:  alice,
			},
			SelectStrategy: "fee",
			EvHandler:      ev,
		})
		if err != nil {
			t.Fatalf("\t%s\tShould be able to construct the state: %s", failed, err)
		}

		w := worker.Run(st, ev)
		t.Logf("\t%s\tShould be able to start the worker.", success)

		pk, err := crypto.HexToECDSA(pkHexKey)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to generate a private key: %s", failed, err)
		}

		tx, err := wallet.BuildTransaction(pk, st.QuerySpendable(alice), bob, 50000, 1000)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to build the transaction: %s", failed, err)
		}

		if err := st.SubmitWalletTransaction(tx); err != nil {
			t.Fatalf("\t%s\tShould be able to submit the transaction: %s", failed, err)
		}

		deadline := time.Now().Add(30 * time.Second)
		for st.RetrieveStatus().TipHeight < 1 {
			if time.Now().After(deadline) {
				t.Fatalf("\t%s\tShould mine the transaction in the background.", failed)
			}
			time.Sleep(10 * time.Millisecond)
		}
		t.Logf("\t%s\tShould mine the transaction in the background.", success)

		if got := st.QueryBalance(bob); got != 50000 {
			t.Fatalf("\t%s\tShould pay bob, got %d.", failed, got)
		}
		t.Logf("\t%s\tShould pay bob.", success)

		w.Shutdown()
		t.Logf("\t%s\tShould be able to shut the worker down.", success)
	}
}
