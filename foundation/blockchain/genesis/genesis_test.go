package genesis_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ardanlabs/utxochain/foundation/blockchain/genesis"
)

// Success and failure markers.
const (
	success = "✓"
	failed  = "✗"
)

const jsonDoc = `{
	"date": "2023-11-14T22:13:20Z",
	"chain_id": 1,
	"version": 1,
	"nbits": 504382016,
	"subsidy": 500000,
	"trans_per_block": 10,
	"payout": "0xdd6B972ffcc631a62CAE1BB9d80b7ff429c8ebA4"
}`

const yamlDoc = `date: 2023-11-14T22:13:20Z
chain_id: 1
version: 1
nbits: 504382016
subsidy: 500000
trans_per_block: 10
payout: "0xdd6B972ffcc631a62CAE1BB9d80b7ff429c8ebA4"
`

func Test_Load(t *testing.T) {
	tt := []struct {
		name string
		file string
		doc  string
	}{
		{"json", "genesis.json", jsonDoc},
		{"yaml", "genesis.yaml", yamlDoc},
	}

	t.Log("Given the need to load the genesis file.")
	{
		for testID, tst := range tt {
			f := func(t *testing.T) {
				t.Logf("\tTest %d:\tWhen handling a %s document.", testID, tst.name)
				{
					path := filepath.Join(t.TempDir(), tst.file)
					if err := os.WriteFile(path, []byte(tst.doc), 0644); err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould be able to write the file: %s", failed, testID, err)
					}

					gen, err := genesis.Load(path)
					if err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould be able to load the file: %s", failed, testID, err)
					}
					t.Logf("\t%s\tTest %d:\tShould be able to load the file.", success, testID)

					if gen.NBits != 504382016 || gen.Subsidy != 500000 || gen.TransPerBlock != 10 || gen.Version != 1 {
						t.Fatalf("\t%s\tTest %d:\tShould read the chain parameters: %+v", failed, testID, gen)
					}
					t.Logf("\t%s\tTest %d:\tShould read the chain parameters.", success, testID)

					if gen.TimeStamp() != 1700000000 {
						t.Fatalf("\t%s\tTest %d:\tShould read the date, got %d.", failed, testID, gen.TimeStamp())
					}
					t.Logf("\t%s\tTest %d:\tShould read the date.", success, testID)
				}
			}

			t.Run(tst.name, f)
		}
	}
}

func Test_LoadInvalid(t *testing.T) {
	t.Log("Given the need to reject an unusable genesis file.")
	{
		path := filepath.Join(t.TempDir(), "genesis.json")
		if err := os.WriteFile(path, []byte(`{"date":"2023-11-14T22:13:20Z","nbits":504382016,"payout":"bill"}`), 0644); err != nil {
			t.Fatalf("\t%s\tShould be able to write the file: %s", failed, err)
		}

		if _, err := genesis.Load(path); err == nil {
			t.Fatalf("\t%s\tShould reject a badly formatted payout account.", failed)
		}
		t.Logf("\t%s\tShould reject a badly formatted payout account.", success)

		if _, err := genesis.Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
			t.Fatalf("\t%s\tShould fail on a missing file.", failed)
		}
		t.Logf("\t%s\tShould fail on a missing file.", success)
	}
}
