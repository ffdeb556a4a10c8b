package chain

import (
	"fmt"
	"math/bits"

	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
	"github.com/ardanlabs/utxochain/foundation/blockchain/hashing"
	"github.com/ardanlabs/utxochain/foundation/blockchain/signature"
	"github.com/ardanlabs/utxochain/foundation/blockchain/utxo"
)

// connect performs the work for Connect. When called as part of a reorg,
// duplicates are only searched for on the active chain, the block must land
// on the active chain, and no reorg is evaluated. The caller must hold the
// lock.
func (m *Manager) connect(block database.Block, doingReorg bool) (int, error) {
	id := block.ID()

	if err := block.ValidateStructure(m.nbits); err != nil {
		m.evHandler("chain: connect: block[%s]: REJECTED: %s", id, err)
		return NotConnected, err
	}

	// Check if this block is already known.
	if m.known(id, doingReorg) {
		m.evHandler("chain: connect: block[%s]: duplicate", id)
		return NotConnected, nil
	}

	chainIdx, blocks, ok := m.resolve(block)
	if !ok {
		if block.IsGenesis() {
			m.evHandler("chain: connect: block[%s]: REJECTED: second genesis", id)
			return NotConnected, fmt.Errorf("%w: genesis block already exists", database.ErrStructural)
		}

		if doingReorg {
			return NotConnected, nil
		}

		m.orphans[id] = block
		m.evHandler("chain: connect: block[%s]: orphan: parent[%s]", id, block.Header.PrevBlockHash)
		return NotConnected, nil
	}

	if doingReorg && chainIdx != ActiveChain {
		return NotConnected, nil
	}

	if chainIdx == ActiveChain {
		if err := m.applyBlock(block, len(m.active)); err != nil {
			m.evHandler("chain: connect: block[%s]: REJECTED: %s", id, err)
			return NotConnected, err
		}

		m.active = append(m.active, block)
		m.evHandler("chain: connect: block[%s]: active chain: height[%d]", id, len(m.active)-1)
		m.interrupt()
	} else {
		if chainIdx > len(m.branches) {
			m.branches = append(m.branches, blocks)
		} else {
			m.setChain(chainIdx, blocks)
		}
		m.evHandler("chain: connect: block[%s]: side branch[%d]: length[%d]", id, chainIdx, len(blocks))
	}

	if doingReorg {
		return chainIdx, nil
	}

	if _, err := m.reorgIfNecessary(); err != nil {
		return NotConnected, err
	}

	// A reorg can move the block to a different chain or drop it when the
	// branch it extends turns out to be invalid.
	_, _, chainIdx, found := m.locate(id)
	if !found {
		return NotConnected, fmt.Errorf("%w: block[%s] rejected while adopting its branch", ErrLedger, id)
	}

	return chainIdx, nil
}

// known reports whether the block is already in the chain state. During a
// reorg only the active chain is searched. The caller must hold the lock.
func (m *Manager) known(id hashing.Hash, doingReorg bool) bool {
	if doingReorg {
		_, found := m.heightInActive(id)
		return found
	}

	if _, exists := m.orphans[id]; exists {
		return true
	}

	_, _, _, found := m.locate(id)
	return found
}

// resolve finds the chain the block extends. It returns the chain index and
// the blocks the chain will hold once the block is appended. A side branch
// index past the last branch means a new branch must be created. The
// caller must hold the lock.
func (m *Manager) resolve(block database.Block) (int, []database.Block, bool) {
	if block.IsGenesis() {
		if len(m.active) == 0 {
			return ActiveChain, nil, true
		}
		return NotConnected, nil, false
	}

	prev := block.Header.PrevBlockHash

	// Extending the tip of the active chain.
	if n := len(m.active); n > 0 && m.active[n-1].ID() == prev {
		return ActiveChain, nil, true
	}

	// Forking from an interior block of the active chain.
	if _, found := m.heightInActive(prev); found {
		return len(m.branches) + 1, []database.Block{block}, true
	}

	// Extending or forking from a side branch. The most recent branch wins.
	for i := len(m.branches) - 1; i >= 0; i-- {
		branch := m.branches[i]
		for h := len(branch) - 1; h >= 0; h-- {
			if branch[h].ID() != prev {
				continue
			}

			if h == len(branch)-1 {
				return i + 1, append(copyBlocks(branch), block), true
			}

			// The new branch carries a copy of the shared prefix so its
			// first block still has its parent on the active chain.
			blocks := append(copyBlocks(branch[:h+1]), block)
			return len(m.branches) + 1, blocks, true
		}
	}

	return NotConnected, nil, false
}

// applyBlock validates the block against the ledger and applies it to the
// utxo set and the mempool. Either every change is applied or none is. The
// caller must hold the lock.
func (m *Manager) applyBlock(block database.Block, height int) error {
	view := m.utxos.NewView()

	var fees uint64
	for _, tx := range block.Trans {
		txID := tx.ID()

		if tx.IsCoinbase() {
			if err := addOutputs(view, tx, txID, height); err != nil {
				return err
			}
			continue
		}

		var in uint64
		for i, txIn := range tx.TxIns {
			op := *txIn.OutPoint

			uo, exists := view.Get(op)
			if !exists {
				return fmt.Errorf("%w: tx[%s] input[%d]: %w", ErrLedger, txID, i, database.ErrUnresolved)
			}

			msg, err := tx.SpendMessage(i)
			if err != nil {
				return fmt.Errorf("%w: tx[%s] input[%d]: %s", ErrLedger, txID, i, err)
			}

			if err := signature.Verify(msg, txIn.UnlockProof, string(uo.Owner)); err != nil {
				return fmt.Errorf("%w: tx[%s] input[%d]: %w", ErrLedger, txID, i, err)
			}

			if _, err := view.Remove(op.TxID, op.Index); err != nil {
				return fmt.Errorf("%w: tx[%s] input[%d]: %w", ErrLedger, txID, i, err)
			}

			sum, carry := bits.Add64(in, uo.Value, 0)
			if carry != 0 {
				return fmt.Errorf("%w: tx[%s]: input total overflows", ErrLedger, txID)
			}
			in = sum
		}

		out, err := tx.OutputTotal()
		if err != nil {
			return err
		}

		if out > in {
			return fmt.Errorf("%w: tx[%s]: %w: spends %d, has %d", ErrLedger, txID, database.ErrOverspend, out, in)
		}
		fees += in - out

		if err := addOutputs(view, tx, txID, height); err != nil {
			return err
		}
	}

	coinbase, _ := block.Coinbase()
	minted, err := coinbase.OutputTotal()
	if err != nil {
		return err
	}

	if minted > m.subsidy+fees {
		return fmt.Errorf("%w: coinbase mints %d, allowed %d", ErrLedger, minted, m.subsidy+fees)
	}

	if err := m.utxos.Commit(view); err != nil {
		return fmt.Errorf("%w: %w", ErrLedger, err)
	}

	for _, tx := range block.Trans {
		m.mempool.Delete(tx.ID())
	}

	if ids := m.mempool.RemoveConflicts(block.Trans); len(ids) > 0 {
		m.evHandler("chain: applyBlock: evicted conflicting txs[%d]: blk[%s]", len(ids), block.ID())
	}

	return nil
}

// disconnect performs the work for Disconnect. The caller must hold the
// lock.
func (m *Manager) disconnect(chainIdx int) (database.Block, error) {
	blocks, ok := m.chain(chainIdx)
	if !ok {
		return database.Block{}, fmt.Errorf("%w: %d", ErrChainIndex, chainIdx)
	}

	if len(blocks) == 0 {
		return database.Block{}, fmt.Errorf("%w: chain %d is empty", ErrNotTip, chainIdx)
	}

	tip := blocks[len(blocks)-1]

	if chainIdx != ActiveChain {
		if len(blocks) == 1 {
			m.branches = append(m.branches[:chainIdx-1], m.branches[chainIdx:]...)
		} else {
			m.setChain(chainIdx, blocks[:len(blocks)-1])
		}

		m.evHandler("chain: disconnect: block[%s]: side branch[%d]", tip.ID(), chainIdx)
		return tip, nil
	}

	if err := m.revertBlock(tip, len(blocks)-1); err != nil {
		return database.Block{}, err
	}

	m.active = blocks[:len(blocks)-1]
	m.evHandler("chain: disconnect: block[%s]: active chain: height[%d]", tip.ID(), len(m.active))

	return tip, nil
}

// revertBlock undoes the changes the block at the tip of the active chain
// made to the utxo set and returns its transactions to the mempool. The
// transactions are walked in reverse so an output created and spent in the
// same block cancels out. The caller must hold the lock.
func (m *Manager) revertBlock(block database.Block, height int) error {
	view := m.utxos.NewView()

	for i := len(block.Trans) - 1; i >= 0; i-- {
		tx := block.Trans[i]
		txID := tx.ID()

		for idx := range tx.TxOuts {
			if _, err := view.Remove(txID, uint32(idx)); err != nil {
				return fmt.Errorf("remove output of tx[%s]: %w", txID, err)
			}
		}

		if tx.IsCoinbase() {
			continue
		}

		for _, txIn := range tx.TxIns {
			op := *txIn.OutPoint

			uo, err := m.spentOutput(block, height, op)
			if err != nil {
				return err
			}

			if err := view.Add(uo.TxOut, uo.TxID, uo.Index, uo.IsCoinbase, uo.Height); err != nil {
				return fmt.Errorf("restore output %s: %w", op, err)
			}
		}
	}

	if err := m.utxos.Commit(view); err != nil {
		return err
	}

	for _, tx := range block.Trans {
		if tx.IsCoinbase() {
			continue
		}
		m.mempool.Add(tx, true)
	}

	return nil
}

// spentOutput locates the output the outpoint referenced by searching the
// block being reverted and then the active chain below it. The caller must
// hold the lock.
func (m *Manager) spentOutput(block database.Block, height int, op database.OutPoint) (utxo.UnspentOutput, error) {
	find := func(b database.Block, h int) (utxo.UnspentOutput, bool) {
		for _, tx := range b.Trans {
			if tx.ID() != op.TxID {
				continue
			}

			if int(op.Index) >= len(tx.TxOuts) {
				return utxo.UnspentOutput{}, false
			}

			return utxo.NewUnspentOutput(tx.TxOuts[op.Index], op.TxID, op.Index, tx.IsCoinbase(), h), true
		}

		return utxo.UnspentOutput{}, false
	}

	if uo, ok := find(block, height); ok {
		return uo, nil
	}

	for h := height - 1; h >= 0; h-- {
		if uo, ok := find(m.active[h], h); ok {
			return uo, nil
		}
	}

	return utxo.UnspentOutput{}, fmt.Errorf("%w: spent output %s not found in chain history", utxo.ErrMissing, op)
}

// addOutputs stages every output of the transaction into the view.
func addOutputs(view *utxo.View, tx database.Tx, txID hashing.Hash, height int) error {
	for idx, txOut := range tx.TxOuts {
		if err := view.Add(txOut, txID, uint32(idx), tx.IsCoinbase(), height); err != nil {
			return fmt.Errorf("%w: tx[%s] output[%d]: %w", ErrLedger, txID, idx, err)
		}
	}

	return nil
}
