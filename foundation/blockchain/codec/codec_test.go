package codec_test

import (
	"errors"
	"testing"

	"github.com/ardanlabs/utxochain/foundation/blockchain/codec"
	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
	"github.com/ardanlabs/utxochain/foundation/blockchain/hashing"
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

func Test_Codec(t *testing.T) {
	t.Log("Given the need to move ledger entities across the wire.")
	{
		registry := codec.NewRegistry()

		op := database.NewOutPoint(hashing.DoubleHash([]byte("parent")), 1)
		tx := database.NewTx([]database.TxIn{{OutPoint: &op, UnlockProof: []byte{1, 2, 3}}}, []database.TxOut{{Value: 10, Owner: bob}})
		coinbase := database.NewCoinbase(alice, 500000, 7)
		block := database.NewBlock(database.BlockHeader{
			Version:       1,
			PrevBlockHash: hashing.DoubleHash([]byte("prev")),
			TimeStamp:     1700000000,
			NBits:         0x207fffff,
			Nonce:         42,
		}, []database.Tx{coinbase, tx})

		data, err := codec.Encode(tx)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to encode a transaction: %s", failed, err)
		}

		typ, v, err := registry.Decode(data)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to decode a transaction: %s", failed, err)
		}
		got, ok := v.(database.Tx)
		if typ != codec.TypeTx || !ok || got.ID() != tx.ID() {
			t.Fatalf("\t%s\tShould keep the transaction id: %s %T", failed, typ, v)
		}
		t.Logf("\t%s\tShould keep the transaction id.", success)

		data, err = codec.Encode(block)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to encode a block: %s", failed, err)
		}

		typ, v, err = registry.Decode(data)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to decode a block: %s", failed, err)
		}
		gotBlock, ok := v.(database.Block)
		if typ != codec.TypeBlock || !ok || gotBlock.ID() != block.ID() {
			t.Fatalf("\t%s\tShould keep the block id: %s %T", failed, typ, v)
		}
		t.Logf("\t%s\tShould keep the block id.", success)

		if gotBlock.Trans[0].ID() != coinbase.ID() || !gotBlock.Trans[0].IsCoinbase() {
			t.Fatalf("\t%s\tShould keep the coinbase.", failed)
		}
		t.Logf("\t%s\tShould keep the coinbase.", success)

		if _, _, err := registry.Decode([]byte(`{"_type":"Peer","payload":{}}`)); !errors.Is(err, codec.ErrUnknownType) {
			t.Fatalf("\t%s\tShould reject an unregistered type: %v", failed, err)
		}
		t.Logf("\t%s\tShould reject an unregistered type.", success)

		if _, err := codec.Encode("text"); !errors.Is(err, codec.ErrUnknownType) {
			t.Fatalf("\t%s\tShould refuse to encode an unknown entity: %v", failed, err)
		}
		t.Logf("\t%s\tShould refuse to encode an unknown entity.", success)

		if err := registry.Register(codec.TypeTx, nil); !errors.Is(err, codec.ErrRegistered) {
			t.Fatalf("\t%s\tShould refuse to register a type twice: %v", failed, err)
		}
		t.Logf("\t%s\tShould refuse to register a type twice.", success)
	}
}
