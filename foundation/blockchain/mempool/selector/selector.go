// Package selector provides different transaction selecting algorithms.
package selector

import (
	"fmt"

	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
	"github.com/ardanlabs/utxochain/foundation/blockchain/hashing"
)

// List of different select strategies.
const (
	StrategyFee     = "fee"
	StrategyArrival = "arrival"
)

// Map of different select strategies with functions.
var strategies = map[string]Func{
	StrategyFee:     feeSelect,
	StrategyArrival: arrivalSelect,
}

// Candidate represents a pending transaction being considered for a block.
// Seq is the order in which the mempool discovered the transaction.
type Candidate struct {
	ID  hashing.Hash
	Tx  database.Tx
	Fee uint64
	Seq uint64
}

// Func defines a function that takes the pending transactions and returns
// them in the order they should be considered for the next block. The
// caller is responsible for including unconfirmed parents before their
// dependents, a selector function only decides the priority.
type Func func(candidates []Candidate) []Candidate

// Retrieve returns the specified select strategy function.
func Retrieve(strategy string) (Func, error) {
	fn, exists := strategies[strategy]
	if !exists {
		return nil, fmt.Errorf("strategy %q does not exist", strategy)
	}
	return fn, nil
}

// =============================================================================

// byArrival provides sorting support by the order of discovery.
type byArrival []Candidate

// Len returns the number of transactions in the list.
func (ba byArrival) Len() int {
	return len(ba)
}

// Less helps to sort the list by sequence in ascending order to keep the
// transactions in the order they were received.
func (ba byArrival) Less(i, j int) bool {
	return ba[i].Seq < ba[j].Seq
}

// Swap moves transactions in the order of the sequence value.
func (ba byArrival) Swap(i, j int) {
	ba[i], ba[j] = ba[j], ba[i]
}
