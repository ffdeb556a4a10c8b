// Package mempool maintains the mempool for the blockchain.
package mempool

import (
	"sync"

	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
	"github.com/ardanlabs/utxochain/foundation/blockchain/hashing"
	"github.com/ardanlabs/utxochain/foundation/blockchain/mempool/selector"
	"github.com/ardanlabs/utxochain/foundation/blockchain/utxo"
)

// Ledger represents the confirmed outputs pending transactions are resolved
// against. The utxo set implements this interface.
type Ledger interface {
	Lookup(op database.OutPoint) (database.TxOut, bool)
}

// entry represents a pending transaction and the order it was received.
type entry struct {
	tx  database.Tx
	seq uint64
}

// Mempool represents a cache of transactions not yet included in a block
// on the active chain, keyed by transaction id.
type Mempool struct {
	pool     map[hashing.Hash]entry
	seq      uint64
	ledger   Ledger
	selectFn selector.Func
	mu       sync.RWMutex
}

// New constructs a new mempool using the default select strategy.
func New(ledger Ledger) (*Mempool, error) {
	return NewWithStrategy(ledger, selector.StrategyFee)
}

// NewWithStrategy constructs a new mempool with specified select strategy.
func NewWithStrategy(ledger Ledger, strategy string) (*Mempool, error) {
	selectFn, err := selector.Retrieve(strategy)
	if err != nil {
		return nil, err
	}

	mp := Mempool{
		pool:     make(map[hashing.Hash]entry),
		ledger:   ledger,
		selectFn: selectFn,
	}

	return &mp, nil
}

// Count returns the current number of transaction in the pool.
func (mp *Mempool) Count() int {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	return len(mp.pool)
}

// Add inserts the transaction into the pool. A transaction already in the
// pool is rejected unless force is set, which replaces it and moves it to
// the end of the arrival order.
func (mp *Mempool) Add(tx database.Tx, force bool) bool {
	id := tx.ID()

	mp.mu.Lock()
	defer mp.mu.Unlock()

	if _, exists := mp.pool[id]; exists && !force {
		return false
	}

	mp.seq++
	mp.pool[id] = entry{tx: tx, seq: mp.seq}

	return true
}

// Contains reports whether the transaction is in the pool.
func (mp *Mempool) Contains(id hashing.Hash) bool {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	_, exists := mp.pool[id]
	return exists
}

// Delete removes a transaction from the mempool.
func (mp *Mempool) Delete(id hashing.Hash) {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	delete(mp.pool, id)
}

// Truncate clears all the transactions from the pool.
func (mp *Mempool) Truncate() {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.pool = make(map[hashing.Hash]entry)
}

// Copy returns a list of the current transactions in the pool in the order
// they were received.
func (mp *Mempool) Copy() []database.Tx {
	candidates := mp.candidates()

	fn, _ := selector.Retrieve(selector.StrategyArrival)
	candidates = fn(candidates)

	txs := make([]database.Tx, len(candidates))
	for i, c := range candidates {
		txs[i] = c.Tx
	}

	return txs
}

// FindUTXO resolves the outpoint to an output created by a pending
// transaction. The output has no height since it's not in a block yet.
func (mp *Mempool) FindUTXO(op database.OutPoint) (utxo.UnspentOutput, bool) {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	e, exists := mp.pool[op.TxID]
	if !exists || int(op.Index) >= len(e.tx.TxOuts) {
		return utxo.UnspentOutput{}, false
	}

	return utxo.NewUnspentOutput(e.tx.TxOuts[op.Index], op.TxID, op.Index, false, -1), true
}

// Spends returns the id of a pending transaction spending the outpoint.
func (mp *Mempool) Spends(op database.OutPoint) (hashing.Hash, bool) {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	for id, e := range mp.pool {
		for _, txIn := range e.tx.TxIns {
			if txIn.OutPoint != nil && *txIn.OutPoint == op {
				return id, true
			}
		}
	}

	return hashing.Hash{}, false
}

// RemoveConflicts removes the pending transactions that spend an output the
// specified transactions already spent, along with every pending transaction
// that depends on one removed. It returns the ids of the removed transactions.
func (mp *Mempool) RemoveConflicts(trans []database.Tx) []hashing.Hash {
	spent := make(map[database.OutPoint]hashing.Hash)
	for _, tx := range trans {
		if tx.IsCoinbase() {
			continue
		}
		id := tx.ID()
		for _, txIn := range tx.TxIns {
			if txIn.OutPoint != nil {
				spent[*txIn.OutPoint] = id
			}
		}
	}

	mp.mu.Lock()
	defer mp.mu.Unlock()

	removed := make(map[hashing.Hash]bool)
	for id, e := range mp.pool {
		for _, txIn := range e.tx.TxIns {
			if txIn.OutPoint == nil {
				continue
			}
			if by, exists := spent[*txIn.OutPoint]; exists && by != id {
				removed[id] = true
				break
			}
		}
	}

	// Descendants of a removed transaction can never resolve.
	for changed := len(removed) > 0; changed; {
		changed = false
		for id, e := range mp.pool {
			if removed[id] {
				continue
			}
			for _, txIn := range e.tx.TxIns {
				if txIn.OutPoint != nil && removed[txIn.OutPoint.TxID] {
					removed[id] = true
					changed = true
					break
				}
			}
		}
	}

	ids := make([]hashing.Hash, 0, len(removed))
	for id := range removed {
		delete(mp.pool, id)
		ids = append(ids, id)
	}

	return ids
}

// SelectForBlock folds pending transactions into the candidate block using
// the configured select strategy, up to howMany transactions in total. Pass
// -1 for no limit. A transaction spending the output of another pending
// transaction is only included after its parent. Transactions that can't be
// resolved or that spend an output already spent in the block are skipped.
// The pool is not changed.
func (mp *Mempool) SelectForBlock(candidate database.Block, howMany int) database.Block {
	candidates := mp.selectFn(mp.candidates())

	pending := make(map[hashing.Hash]database.Tx, len(candidates))
	for _, c := range candidates {
		pending[c.ID] = c.Tx
	}

	sel := newSelection(mp.ledger, candidate.Trans, howMany)
	for _, c := range candidates {
		if sel.full() {
			break
		}
		sel.include(c.Tx, pending)
	}

	return candidate.WithTransactions(sel.trans)
}

// =============================================================================

// candidates returns the pending transactions with their fee and sequence.
// The fee of a transaction that can't be resolved is zero.
func (mp *Mempool) candidates() []selector.Candidate {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	candidates := make([]selector.Candidate, 0, len(mp.pool))
	for id, e := range mp.pool {
		candidates = append(candidates, selector.Candidate{
			ID:  id,
			Tx:  e.tx,
			Fee: mp.fee(e.tx),
			Seq: e.seq,
		})
	}

	return candidates
}

// fee calculates the fee of the pending transaction resolving its inputs
// against the ledger and the pool. The caller must hold the lock.
func (mp *Mempool) fee(tx database.Tx) uint64 {
	var in uint64
	for _, txIn := range tx.TxIns {
		if txIn.OutPoint == nil {
			return 0
		}

		txOut, ok := mp.ledger.Lookup(*txIn.OutPoint)
		if !ok {
			e, exists := mp.pool[txIn.OutPoint.TxID]
			if !exists || int(txIn.OutPoint.Index) >= len(e.tx.TxOuts) {
				return 0
			}
			txOut = e.tx.TxOuts[txIn.OutPoint.Index]
		}
		in += txOut.Value
	}

	out, err := tx.OutputTotal()
	if err != nil || out > in {
		return 0
	}

	return in - out
}
