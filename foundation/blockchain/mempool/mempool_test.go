package mempool_test

import (
	"testing"

	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
	"github.com/ardanlabs/utxochain/foundation/blockchain/hashing"
	"github.com/ardanlabs/utxochain/foundation/blockchain/mempool"
	"github.com/ardanlabs/utxochain/foundation/blockchain/mempool/selector"
	"github.com/ardanlabs/utxochain/foundation/blockchain/utxo"
)

// Success and failure markers.
const (
	success = "✓"
	failed  = "✗"
)

const (
	alice = database.AccountID("0xdd6B972ffcc631a62CAE1BB9d80b7ff429c8ebA4")
	bob   = database.AccountID("0xF01813E4B85e178A83e29B8E7bF26BD830a25f32")
)

// spend constructs a transaction spending the specified outpoints.
func spend(value uint64, ops ...database.OutPoint) database.Tx {
	txIns := make([]database.TxIn, len(ops))
	for i := range ops {
		txIns[i] = database.TxIn{OutPoint: &ops[i]}
	}

	return database.NewTx(txIns, []database.TxOut{{Value: value, Owner: bob}})
}

// funded returns a utxo set with n outputs of 1000 owned by alice.
func funded(t *testing.T, n int) (*utxo.Set, []database.OutPoint) {
	set := utxo.New()

	var ops []database.OutPoint
	for i := 0; i < n; i++ {
		cb := database.NewCoinbase(alice, 1000, uint64(i))
		if err := set.Add(cb.TxOuts[0], cb.ID(), 0, true, i); err != nil {
			t.Fatalf("\t%s\tShould be able to add an output: %s", failed, err)
		}
		ops = append(ops, database.NewOutPoint(cb.ID(), 0))
	}

	return set, ops
}

func ids(txs []database.Tx) []hashing.Hash {
	ids := make([]hashing.Hash, len(txs))
	for i, tx := range txs {
		ids[i] = tx.ID()
	}
	return ids
}

// =============================================================================

func TestCRUD(t *testing.T) {
	set, ops := funded(t, 3)

	t.Log("Given the need to validate mempool api.")
	{
		mp, err := mempool.New(set)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to construct the mempool: %s", failed, err)
		}

		tx1 := spend(900, ops[0])
		tx2 := spend(800, ops[1])
		tx3 := spend(700, ops[2])

		for _, tx := range []database.Tx{tx1, tx2, tx3} {
			if !mp.Add(tx, false) {
				t.Fatalf("\t%s\tShould be able to add new transaction: %s", failed, tx.ID())
			}
		}
		t.Logf("\t%s\tShould be able to add new transactions.", success)

		if mp.Add(tx1, false) {
			t.Fatalf("\t%s\tShould reject a known transaction.", failed)
		}
		t.Logf("\t%s\tShould reject a known transaction.", success)

		if !mp.Add(tx1, true) {
			t.Fatalf("\t%s\tShould accept a known transaction when forced.", failed)
		}
		t.Logf("\t%s\tShould accept a known transaction when forced.", success)

		exp := []hashing.Hash{tx2.ID(), tx3.ID(), tx1.ID()}
		for i, id := range ids(mp.Copy()) {
			if id != exp[i] {
				t.Logf("\t%s\tgot: %s", failed, id)
				t.Logf("\t%s\texp: %s", failed, exp[i])
				t.Fatalf("\t%s\tShould get back the transactions in arrival order.", failed)
			}
		}
		t.Logf("\t%s\tShould get back the transactions in arrival order.", success)

		if _, ok := mp.Spends(ops[1]); !ok {
			t.Fatalf("\t%s\tShould find the pending spend of an outpoint.", failed)
		}
		t.Logf("\t%s\tShould find the pending spend of an outpoint.", success)

		mp.Delete(tx2.ID())
		if mp.Count() != 2 || mp.Contains(tx2.ID()) {
			t.Fatalf("\t%s\tShould be able to remove a transaction.", failed)
		}
		t.Logf("\t%s\tShould be able to remove a transaction.", success)

		mp.Truncate()
		if mp.Count() != 0 {
			t.Fatalf("\t%s\tShould be able to truncate mempool.", failed)
		}
		t.Logf("\t%s\tShould be able to truncate mempool.", success)
	}
}

func TestRemoveConflicts(t *testing.T) {
	set, ops := funded(t, 2)

	t.Log("Given the need to drop pending transactions a block double spends.")
	{
		mp, err := mempool.New(set)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to construct the mempool: %s", failed, err)
		}

		pending := spend(900, ops[0])
		child := spend(800, database.NewOutPoint(pending.ID(), 0))
		unrelated := spend(700, ops[1])

		for _, tx := range []database.Tx{pending, child, unrelated} {
			mp.Add(tx, false)
		}

		confirmed := spend(500, ops[0])
		removed := mp.RemoveConflicts([]database.Tx{database.NewCoinbase(alice, 1000, 9), confirmed})

		if len(removed) != 2 || mp.Contains(pending.ID()) || mp.Contains(child.ID()) {
			t.Fatalf("\t%s\tShould remove the conflict and its descendant: %d", failed, len(removed))
		}
		t.Logf("\t%s\tShould remove the conflict and its descendant.", success)

		if !mp.Contains(unrelated.ID()) || mp.Count() != 1 {
			t.Fatalf("\t%s\tShould keep the unrelated transaction.", failed)
		}
		t.Logf("\t%s\tShould keep the unrelated transaction.", success)

		if removed := mp.RemoveConflicts([]database.Tx{unrelated}); len(removed) != 0 || !mp.Contains(unrelated.ID()) {
			t.Fatalf("\t%s\tShould not treat a transaction as its own conflict.", failed)
		}
		t.Logf("\t%s\tShould not treat a transaction as its own conflict.", success)
	}
}

func TestFindUTXO(t *testing.T) {
	set, ops := funded(t, 1)

	t.Log("Given the need to resolve outputs of pending transactions.")
	{
		mp, _ := mempool.New(set)

		tx := spend(900, ops[0])
		mp.Add(tx, false)

		uo, ok := mp.FindUTXO(database.NewOutPoint(tx.ID(), 0))
		if !ok {
			t.Fatalf("\t%s\tShould find the output of a pending transaction.", failed)
		}
		if uo.Value != 900 || uo.Height != -1 || uo.IsCoinbase {
			t.Fatalf("\t%s\tShould get back an unconfirmed output: %+v", failed, uo)
		}
		t.Logf("\t%s\tShould find the output of a pending transaction.", success)

		if _, ok := mp.FindUTXO(database.NewOutPoint(tx.ID(), 1)); ok {
			t.Fatalf("\t%s\tShould not find an output index out of range.", failed)
		}
		t.Logf("\t%s\tShould not find an output index out of range.", success)
	}
}

func TestSelectForBlock(t *testing.T) {
	set, ops := funded(t, 3)
	coinbase := database.NewCoinbase(alice, 500000, 10)
	candidate := database.NewBlock(database.BlockHeader{Version: 1, NBits: 0x207fffff}, []database.Tx{coinbase})

	// Fees: low 10, high 100, child 590, conflict 50. The conflict spends
	// the same output as high.
	low := spend(990, ops[0])
	high := spend(900, ops[1])
	child := spend(400, database.NewOutPoint(low.ID(), 0))
	conflict := spend(950, ops[1])
	orphan := spend(1, database.NewOutPoint(hashing.DoubleHash([]byte("unknown")), 0))

	t.Log("Given the need to select pending transactions for a block.")
	{
		mp, err := mempool.NewWithStrategy(set, selector.StrategyFee)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to construct the mempool: %s", failed, err)
		}

		// The child pays the best fee so it's considered first, its
		// parent must still come first in the block.
		mp.Add(child, false)
		mp.Add(low, false)
		mp.Add(high, false)
		mp.Add(conflict, false)
		mp.Add(orphan, false)

		t.Logf("\tTest 0:\tWhen selecting with no limit.")
		{
			block := mp.SelectForBlock(candidate, -1)

			exp := []hashing.Hash{coinbase.ID(), low.ID(), child.ID(), high.ID()}
			got := ids(block.Trans)
			if len(got) != len(exp) {
				t.Fatalf("\t%s\tTest 0:\tShould get %d transactions, got %d.", failed, len(exp), len(got))
			}
			for i := range exp {
				if got[i] != exp[i] {
					t.Logf("\t%s\tTest 0:\tgot: %s", failed, got[i])
					t.Logf("\t%s\tTest 0:\texp: %s", failed, exp[i])
					t.Fatalf("\t%s\tTest 0:\tShould include parents first, then by fee.", failed)
				}
			}
			t.Logf("\t%s\tTest 0:\tShould include parents first, then by fee.", success)
			t.Logf("\t%s\tTest 0:\tShould skip the conflicting and unresolved transactions.", success)

			if mp.Count() != 5 {
				t.Fatalf("\t%s\tTest 0:\tShould not change the mempool.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould not change the mempool.", success)
		}

		t.Logf("\tTest 1:\tWhen selecting with a limit of two transactions.")
		{
			block := mp.SelectForBlock(candidate, 2)

			got := ids(block.Trans)
			if len(got) != 2 || got[1] != high.ID() {
				t.Fatalf("\t%s\tTest 1:\tShould only include what fits with its parents.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould only include what fits with its parents.", success)
		}
	}
}
