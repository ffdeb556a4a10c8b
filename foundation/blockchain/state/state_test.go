package state_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/ardanlabs/utxochain/foundation/blockchain/chain"
	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
	"github.com/ardanlabs/utxochain/foundation/blockchain/genesis"
	"github.com/ardanlabs/utxochain/foundation/blockchain/state"
	"github.com/ardanlabs/utxochain/foundation/blockchain/wallet"
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
	minerB   = database.AccountID("0xbEE6ACE826eC3DE1B6349888B9151B92522F7F76")
)

// =============================================================================

type fakeWorker struct {
	mu          sync.Mutex
	startMining int
	sharedTxs   []database.Tx
}

func (w *fakeWorker) Shutdown()                             {}
func (w *fakeWorker) Sync()                                 {}
func (w *fakeWorker) SignalCancelMining()                   {}
func (w *fakeWorker) SignalShareBlock(block database.Block) {}

func (w *fakeWorker) SignalStartMining() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.startMining++
}

func (w *fakeWorker) SignalShareTx(tx database.Tx) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.sharedTxs = append(w.sharedTxs, tx)
}

func testGenesis() genesis.Genesis {
	return genesis.Genesis{
		Date:    time.Date(2023, time.November, 14, 22, 13, 20, 0, time.UTC),
		ChainID: 1,
		Version: 1,
		NBits:   0x207fffff,
		Subsidy: 500000,
		Payout:  alice,
	}
}

func newState(t *testing.T, beneficiary database.AccountID, mineEmpty bool, shutdown chan os.Signal) (*state.State, *fakeWorker) {
	st, err := state.New(state.Config{
		BeneficiaryID:   beneficiary,
		Host:            "localhost:9080",
		Genesis:         testGenesis(),
		SelectStrategy:  "fee",
		MineEmptyBlocks: mineEmpty,
		Shutdown:        shutdown,
		EvHandler:       func(v string, args ...any) { t.Logf(v, args...) },
	})
	if err != nil {
		t.Fatalf("\t%s\tShould be able to construct the state: %s", failed, err)
	}

	w := fakeWorker{}
	st.Worker = &w

	return st, &w
}

// =============================================================================

func Test_SubmitAndMine(t *testing.T) {
	t.Log("Given the need to accept wallet transactions and mine them.")
	{
		ctx := context.Background()
		st, w := newState(t, minerA, false, nil)

		if balance := st.QueryBalance(alice); balance != 500000 {
			t.Fatalf("\t%s\tShould pay the genesis reward to alice, got %d.", failed, balance)
		}
		t.Logf("\t%s\tShould pay the genesis reward to alice.", success)

		if _, err := st.MineNewBlock(ctx); !errors.Is(err, state.ErrNoTransactions) {
			t.Fatalf("\t%s\tShould not mine without transactions: %v", failed, err)
		}
		t.Logf("\t%s\tShould not mine without transactions.", success)

		pk, err := crypto.HexToECDSA(pkHexKey)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to generate a private key: %s", failed, err)
		}

		spendable := st.QuerySpendable(alice)
		tx, err := wallet.BuildTransaction(pk, spendable, bob, 50000, 1000)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to build the transaction: %s", failed, err)
		}

		if err := st.SubmitWalletTransaction(tx); err != nil {
			t.Fatalf("\t%s\tShould be able to submit the transaction: %s", failed, err)
		}
		t.Logf("\t%s\tShould be able to submit the transaction.", success)

		if len(w.sharedTxs) != 1 || w.startMining != 1 {
			t.Fatalf("\t%s\tShould share the transaction and start mining: %d %d", failed, len(w.sharedTxs), w.startMining)
		}
		t.Logf("\t%s\tShould share the transaction and start mining.", success)

		if len(st.QuerySpendable(alice)) != 0 {
			t.Fatalf("\t%s\tShould not report outputs spent by pending transactions.", failed)
		}
		t.Logf("\t%s\tShould not report outputs spent by pending transactions.", success)

		double, err := wallet.BuildTransaction(pk, spendable, minerB, 1000, 10)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to build the second transaction: %s", failed, err)
		}
		if err := st.SubmitWalletTransaction(double); !errors.Is(err, state.ErrDoubleSpend) {
			t.Fatalf("\t%s\tShould reject a double spend of a pending output: %v", failed, err)
		}
		t.Logf("\t%s\tShould reject a double spend of a pending output.", success)

		forged := tx.WithUnlockProof(0, make([]byte, 65))
		forged.TxOuts[0].Value = 1
		if err := st.SubmitWalletTransaction(forged); err == nil {
			t.Fatalf("\t%s\tShould reject a transaction with a bad unlock proof.", failed)
		}
		t.Logf("\t%s\tShould reject a transaction with a bad unlock proof.", success)

		block, err := st.MineNewBlock(ctx)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to mine a block: %s", failed, err)
		}
		t.Logf("\t%s\tShould be able to mine a block.", success)

		if latest := st.RetrieveLatestBlock(); latest.ID() != block.ID() {
			t.Fatalf("\t%s\tShould make the mined block the tip.", failed)
		}
		t.Logf("\t%s\tShould make the mined block the tip.", success)

		balances := map[database.AccountID]uint64{alice: 449000, bob: 50000, minerA: 501000}
		for owner, exp := range balances {
			if got := st.QueryBalance(owner); got != exp {
				t.Fatalf("\t%s\tShould have balance %d for %s, got %d.", failed, exp, owner, got)
			}
		}
		t.Logf("\t%s\tShould have the expected balances.", success)

		if st.QueryMempoolLength() != 0 {
			t.Fatalf("\t%s\tShould empty the mempool.", failed)
		}
		t.Logf("\t%s\tShould empty the mempool.", success)

		blocks := st.QueryBlocksByNumber(0, state.QueryLatest)
		if len(blocks) != 2 {
			t.Fatalf("\t%s\tShould return the active chain, got %d blocks.", failed, len(blocks))
		}
		t.Logf("\t%s\tShould return the active chain.", success)
	}
}

func Test_PeerFork(t *testing.T) {
	t.Log("Given the need to follow the longest chain built by a peer.")
	{
		ctx := context.Background()

		nodeA, _ := newState(t, minerA, false, nil)
		nodeB, _ := newState(t, minerB, true, nil)

		if nodeA.RetrieveLatestBlock().ID() != nodeB.RetrieveLatestBlock().ID() {
			t.Fatalf("\t%s\tShould mine the same genesis block on every node.", failed)
		}
		t.Logf("\t%s\tShould mine the same genesis block on every node.", success)

		pk, err := crypto.HexToECDSA(pkHexKey)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to generate a private key: %s", failed, err)
		}

		tx, err := wallet.BuildTransaction(pk, nodeA.QuerySpendable(alice), bob, 50000, 1000)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to build the transaction: %s", failed, err)
		}
		if err := nodeA.SubmitWalletTransaction(tx); err != nil {
			t.Fatalf("\t%s\tShould be able to submit the transaction: %s", failed, err)
		}
		if _, err := nodeA.MineNewBlock(ctx); err != nil {
			t.Fatalf("\t%s\tShould be able to mine on node A: %s", failed, err)
		}
		t.Logf("\t%s\tShould be able to mine the transaction on node A.", success)

		var fork []database.Block
		for n := 0; n < 2; n++ {
			block, err := nodeB.MineNewBlock(ctx)
			if err != nil {
				t.Fatalf("\t%s\tShould be able to mine on node B: %s", failed, err)
			}
			fork = append(fork, block)
		}
		t.Logf("\t%s\tShould be able to mine two empty blocks on node B.", success)

		idx, err := nodeA.ProcessProposedBlock(fork[0])
		if err != nil || idx != 1 {
			t.Fatalf("\t%s\tShould keep the first peer block on a side branch: %d, %v", failed, idx, err)
		}
		t.Logf("\t%s\tShould keep the first peer block on a side branch.", success)

		idx, err = nodeA.ProcessProposedBlock(fork[1])
		if err != nil || idx != chain.ActiveChain {
			t.Fatalf("\t%s\tShould adopt the longer peer chain: %d, %v", failed, idx, err)
		}
		t.Logf("\t%s\tShould adopt the longer peer chain.", success)

		if nodeA.RetrieveLatestBlock().ID() != fork[1].ID() {
			t.Fatalf("\t%s\tShould have the peer tip as the tip.", failed)
		}
		t.Logf("\t%s\tShould have the peer tip as the tip.", success)

		mempool := nodeA.RetrieveMempool()
		if len(mempool) != 1 || mempool[0].ID() != tx.ID() {
			t.Fatalf("\t%s\tShould return the transaction to the mempool: %d", failed, len(mempool))
		}
		t.Logf("\t%s\tShould return the transaction to the mempool.", success)

		if nodeA.QueryBalance(alice) != 500000 || nodeA.QueryBalance(minerB) != 1000000 || nodeA.QueryBalance(minerA) != 0 {
			t.Fatalf("\t%s\tShould have the balances of the peer chain.", failed)
		}
		t.Logf("\t%s\tShould have the balances of the peer chain.", success)

		if branches := nodeA.QueryBranches(); len(branches) != 1 || len(branches[0]) != 1 {
			t.Fatalf("\t%s\tShould keep the old block on a side branch: %d", failed, len(branches))
		}
		t.Logf("\t%s\tShould keep the old block on a side branch.", success)
	}
}

func Test_PeerOrphans(t *testing.T) {
	t.Log("Given the need to accept peer blocks out of order.")
	{
		ctx := context.Background()

		nodeA, w := newState(t, minerA, false, nil)
		nodeB, _ := newState(t, minerB, true, nil)

		var blocks []database.Block
		for n := 0; n < 3; n++ {
			block, err := nodeB.MineNewBlock(ctx)
			if err != nil {
				t.Fatalf("\t%s\tShould be able to mine on node B: %s", failed, err)
			}
			blocks = append(blocks, block)
		}

		for _, i := range []int{2, 1} {
			idx, err := nodeA.ProcessProposedBlock(blocks[i])
			if err != nil || idx != chain.NotConnected {
				t.Fatalf("\t%s\tShould hold block %d as an orphan: %d, %v", failed, i, idx, err)
			}
		}
		if len(nodeA.QueryOrphans()) != 2 {
			t.Fatalf("\t%s\tShould hold two orphans.", failed)
		}
		t.Logf("\t%s\tShould hold blocks without a parent as orphans.", success)

		if _, err := nodeA.ProcessProposedBlock(blocks[0]); err != nil {
			t.Fatalf("\t%s\tShould be able to connect the missing parent: %s", failed, err)
		}

		if nodeA.RetrieveLatestBlock().ID() != blocks[2].ID() || len(nodeA.QueryOrphans()) != 0 {
			t.Fatalf("\t%s\tShould connect the orphans once the parent arrives.", failed)
		}
		t.Logf("\t%s\tShould connect the orphans once the parent arrives.", success)

		if w.startMining == 0 {
			t.Fatalf("\t%s\tShould start a new mining operation on a new tip.", failed)
		}
		t.Logf("\t%s\tShould start a new mining operation on a new tip.", success)

		if status := nodeA.RetrieveStatus(); status.TipHeight != 3 || status.TipHash != blocks[2].ID() {
			t.Fatalf("\t%s\tShould report the tip in the status: %+v", failed, status)
		}
		t.Logf("\t%s\tShould report the tip in the status.", success)
	}
}
