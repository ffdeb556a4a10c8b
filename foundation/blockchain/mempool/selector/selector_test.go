package selector_test

import (
	"testing"

	"github.com/ardanlabs/utxochain/foundation/blockchain/mempool/selector"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func TestSelect(t *testing.T) {
	type test struct {
		name     string
		strategy string
		fees     []uint64
		best     []uint64
	}

	tt := []test{
		{
			name:     "fee",
			strategy: selector.StrategyFee,
			fees:     []uint64{10, 50, 100, 10, 75},
			best:     []uint64{2, 4, 1, 0, 3},
		},
		{
			name:     "fee-ties",
			strategy: selector.StrategyFee,
			fees:     []uint64{5, 5, 5, 5},
			best:     []uint64{0, 1, 2, 3},
		},
		{
			name:     "arrival",
			strategy: selector.StrategyArrival,
			fees:     []uint64{10, 50, 100, 10, 75},
			best:     []uint64{0, 1, 2, 3, 4},
		},
	}

	t.Log("Given the need to order pending transactions for a block.")
	{
		for testID, tst := range tt {
			f := func(t *testing.T) {
				t.Logf("\tTest %d:\tWhen handling the %s strategy.", testID, tst.strategy)
				{
					fn, err := selector.Retrieve(tst.strategy)
					if err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould be able to retrieve the strategy: %s", failed, testID, err)
					}
					t.Logf("\t%s\tTest %d:\tShould be able to retrieve the strategy.", success, testID)

					// Build the candidates in reverse so the input order
					// doesn't match the discovery order.
					var candidates []selector.Candidate
					for i := len(tst.fees) - 1; i >= 0; i-- {
						candidates = append(candidates, selector.Candidate{Fee: tst.fees[i], Seq: uint64(i)})
					}

					got := fn(candidates)
					if len(got) != len(tst.best) {
						t.Fatalf("\t%s\tTest %d:\tShould get back %d candidates, got %d.", failed, testID, len(tst.best), len(got))
					}

					for i, c := range got {
						if c.Seq != tst.best[i] {
							t.Logf("\t%s\tTest %d:\tgot: %d", failed, testID, c.Seq)
							t.Logf("\t%s\tTest %d:\texp: %d", failed, testID, tst.best[i])
							t.Fatalf("\t%s\tTest %d:\tShould get back the right order.", failed, testID)
						}
					}
					t.Logf("\t%s\tTest %d:\tShould get back the right order.", success, testID)
				}
			}

			t.Run(tst.name, f)
		}
	}

	t.Log("Given the need to reject unknown strategies.")
	{
		if _, err := selector.Retrieve("tip"); err == nil {
			t.Fatalf("\t%s\tShould not be able to retrieve an unknown strategy.", failed)
		}
		t.Logf("\t%s\tShould not be able to retrieve an unknown strategy.", success)
	}
}
