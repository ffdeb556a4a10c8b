package utxo_test

import (
	"errors"
	"testing"

	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
	"github.com/ardanlabs/utxochain/foundation/blockchain/hashing"
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

// =============================================================================

func Test_Set(t *testing.T) {
	tx1 := hashing.DoubleHash([]byte("tx1"))
	op1 := database.NewOutPoint(tx1, 0)

	t.Log("Given the need to maintain the unspent outputs.")
	{
		set := utxo.New()

		if err := set.Add(database.TxOut{Value: 100, Owner: alice}, tx1, 0, true, 0); err != nil {
			t.Fatalf("\t%s\tShould be able to add an output: %s", failed, err)
		}
		if err := set.Add(database.TxOut{Value: 50, Owner: alice}, tx1, 1, true, 1); err != nil {
			t.Fatalf("\t%s\tShould be able to add an output: %s", failed, err)
		}
		t.Logf("\t%s\tShould be able to add outputs.", success)

		if err := set.Add(database.TxOut{Value: 1, Owner: bob}, tx1, 0, false, 2); !errors.Is(err, utxo.ErrExists) {
			t.Fatalf("\t%s\tShould reject an existing outpoint: %v", failed, err)
		}
		t.Logf("\t%s\tShould reject an existing outpoint.", success)

		if balance := set.Balance(alice); balance != 150 {
			t.Fatalf("\t%s\tShould get the balance of 150, got %d.", failed, balance)
		}
		t.Logf("\t%s\tShould get the balance for the owner.", success)

		entries := set.ForOwner(alice)
		if len(entries) != 2 || entries[0].OutPoint() != op1 || !entries[0].IsCoinbase {
			t.Fatalf("\t%s\tShould get the outputs for the owner, oldest first.", failed)
		}
		t.Logf("\t%s\tShould get the outputs for the owner, oldest first.", success)

		entry, err := set.Remove(tx1, 0)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to remove an output: %s", failed, err)
		}
		if entry.Value != 100 {
			t.Fatalf("\t%s\tShould get back the removed output.", failed)
		}
		t.Logf("\t%s\tShould be able to remove an output.", success)

		if _, err := set.Remove(tx1, 0); !errors.Is(err, utxo.ErrMissing) {
			t.Fatalf("\t%s\tShould reject a missing outpoint: %v", failed, err)
		}
		t.Logf("\t%s\tShould reject a missing outpoint.", success)

		if set.Count() != 1 {
			t.Fatalf("\t%s\tShould have one output left, got %d.", failed, set.Count())
		}
		t.Logf("\t%s\tShould have one output left.", success)
	}
}

func Test_View(t *testing.T) {
	tx1 := hashing.DoubleHash([]byte("tx1"))
	tx2 := hashing.DoubleHash([]byte("tx2"))
	tx3 := hashing.DoubleHash([]byte("tx3"))
	op1 := database.NewOutPoint(tx1, 0)
	op2 := database.NewOutPoint(tx2, 0)
	op3 := database.NewOutPoint(tx3, 0)

	t.Log("Given the need to stage changes to the unspent outputs.")
	{
		set := utxo.New()
		set.Add(database.TxOut{Value: 100, Owner: alice}, tx1, 0, true, 0)

		view := set.NewView()
		if _, err := view.Remove(tx1, 0); err != nil {
			t.Fatalf("\t%s\tShould be able to stage a removal: %s", failed, err)
		}
		if err := view.Add(database.TxOut{Value: 60, Owner: bob}, tx2, 0, false, 1); err != nil {
			t.Fatalf("\t%s\tShould be able to stage an insert: %s", failed, err)
		}
		if err := view.Add(database.TxOut{Value: 40, Owner: alice}, tx3, 0, false, 1); err != nil {
			t.Fatalf("\t%s\tShould be able to stage an insert: %s", failed, err)
		}
		if _, err := view.Remove(tx3, 0); err != nil {
			t.Fatalf("\t%s\tShould be able to remove a staged insert: %s", failed, err)
		}

		if _, exists := view.Get(op1); exists {
			t.Fatalf("\t%s\tShould not see a removed output through the view.", failed)
		}
		if _, exists := set.Get(op1); !exists {
			t.Fatalf("\t%s\tShould not change the set before commit.", failed)
		}
		t.Logf("\t%s\tShould not change the set before commit.", success)

		if _, err := view.Remove(tx1, 0); !errors.Is(err, utxo.ErrMissing) {
			t.Fatalf("\t%s\tShould reject removing an output twice: %v", failed, err)
		}
		t.Logf("\t%s\tShould reject removing an output twice.", success)

		if err := set.Commit(view); err != nil {
			t.Fatalf("\t%s\tShould be able to commit the view: %s", failed, err)
		}

		if _, exists := set.Get(op1); exists {
			t.Fatalf("\t%s\tShould have removed the spent output.", failed)
		}
		if _, exists := set.Get(op3); exists {
			t.Fatalf("\t%s\tShould not have the output spent inside the view.", failed)
		}
		if entry, exists := set.Get(op2); !exists || entry.Height != 1 {
			t.Fatalf("\t%s\tShould have the new output at height 1.", failed)
		}
		t.Logf("\t%s\tShould apply the staged changes on commit.", success)
	}

	t.Log("Given the need to commit views atomically.")
	{
		set := utxo.New()
		set.Add(database.TxOut{Value: 100, Owner: alice}, tx1, 0, true, 0)

		view := set.NewView()
		view.Remove(tx1, 0)
		view.Add(database.TxOut{Value: 100, Owner: bob}, tx2, 0, false, 1)

		if _, err := set.Remove(tx1, 0); err != nil {
			t.Fatalf("\t%s\tShould be able to remove the output from the set: %s", failed, err)
		}

		if err := set.Commit(view); !errors.Is(err, utxo.ErrMissing) {
			t.Fatalf("\t%s\tShould fail to commit a stale view: %v", failed, err)
		}
		if _, exists := set.Get(op2); exists {
			t.Fatalf("\t%s\tShould not apply any change of a failed commit.", failed)
		}
		t.Logf("\t%s\tShould not apply any change of a failed commit.", success)
	}
}
