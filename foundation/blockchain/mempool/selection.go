package mempool

import (
	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
	"github.com/ardanlabs/utxochain/foundation/blockchain/hashing"
)

// selection tracks the state of a block being assembled from the pool.
type selection struct {
	ledger   Ledger
	trans    []database.Tx
	included map[hashing.Hash]database.Tx
	spent    map[database.OutPoint]struct{}
	howMany  int
}

// newSelection starts a selection with the transactions already in the
// candidate block.
func newSelection(ledger Ledger, trans []database.Tx, howMany int) *selection {
	sel := selection{
		ledger:   ledger,
		included: make(map[hashing.Hash]database.Tx),
		spent:    make(map[database.OutPoint]struct{}),
		howMany:  howMany,
	}
	sel.commit(trans)

	return &sel
}

// full reports whether the block can't take any more transactions.
func (sel *selection) full() bool {
	return sel.howMany >= 0 && len(sel.trans) >= sel.howMany
}

// include adds the transaction and any of its pending ancestors to the
// block. Nothing is added if any of them can't be resolved, spends an
// output already spent, or if they don't all fit.
func (sel *selection) include(tx database.Tx, pending map[hashing.Hash]database.Tx) bool {
	chain, ok := sel.ancestry(tx, pending, make(map[hashing.Hash]bool))
	if !ok {
		return false
	}

	if len(chain) == 0 {
		return true
	}

	if sel.howMany >= 0 && len(sel.trans)+len(chain) > sel.howMany {
		return false
	}

	spends := make(map[database.OutPoint]struct{})
	for _, t := range chain {
		for _, txIn := range t.TxIns {
			op := *txIn.OutPoint
			if _, exists := sel.spent[op]; exists {
				return false
			}
			if _, exists := spends[op]; exists {
				return false
			}
			spends[op] = struct{}{}
		}
	}

	sel.commit(chain)
	return true
}

// ancestry returns the transactions not yet in the block that must be added
// for the transaction to be valid, parents first and the transaction last.
func (sel *selection) ancestry(tx database.Tx, pending map[hashing.Hash]database.Tx, seen map[hashing.Hash]bool) ([]database.Tx, bool) {
	id := tx.ID()
	if _, exists := sel.included[id]; exists || seen[id] {
		return nil, true
	}
	seen[id] = true

	var chain []database.Tx
	for _, txIn := range tx.TxIns {
		if txIn.OutPoint == nil {
			return nil, false
		}
		op := *txIn.OutPoint

		if _, ok := sel.ledger.Lookup(op); ok {
			continue
		}

		if parent, exists := sel.included[op.TxID]; exists {
			if int(op.Index) >= len(parent.TxOuts) {
				return nil, false
			}
			continue
		}

		parent, exists := pending[op.TxID]
		if !exists || int(op.Index) >= len(parent.TxOuts) {
			return nil, false
		}

		ancestors, ok := sel.ancestry(parent, pending, seen)
		if !ok {
			return nil, false
		}
		chain = append(chain, ancestors...)
	}

	return append(chain, tx), true
}

// commit adds the transactions to the block in order.
func (sel *selection) commit(trans []database.Tx) {
	for _, tx := range trans {
		sel.trans = append(sel.trans, tx)
		sel.included[tx.ID()] = tx

		for _, txIn := range tx.TxIns {
			if txIn.OutPoint != nil {
				sel.spent[*txIn.OutPoint] = struct{}{}
			}
		}
	}
}
