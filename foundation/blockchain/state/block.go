package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ardanlabs/utxochain/foundation/blockchain/chain"
	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
)

// ErrNoTransactions is returned when a block is requested to be created
// and there are no transactions.
var ErrNoTransactions = errors.New("no transactions in mempool")

// =============================================================================

// MineNewBlock assembles a block on top of the current tip with the best
// transactions from the mempool, solves it, and connects it. The search
// stops when the context is cancelled or the tip changes.
func (s *State) MineNewBlock(ctx context.Context) (database.Block, error) {
	s.evHandler("state: MineNewBlock: MINING: check mempool count")

	if s.mempool.Count() == 0 && !s.mineEmptyBlocks {
		return database.Block{}, ErrNoTransactions
	}

	// Reset the signal before reading the tip. A block connected from here
	// on interrupts the search on this parent.
	s.miner.Clear()

	tip, exists := s.chain.Tip()
	if !exists {
		return database.Block{}, errors.New("no genesis block")
	}

	s.evHandler("state: MineNewBlock: MINING: perform POW: prevBlk[%s]", tip.ID())

	block, err := s.miner.Assemble(ctx, tip.ID(), s.beneficiaryID, nil)
	if err != nil {
		return database.Block{}, err
	}

	// Just check one more time we were not cancelled.
	if ctx.Err() != nil {
		return database.Block{}, ctx.Err()
	}

	s.evHandler("state: MineNewBlock: MINING: connect block")

	chainIdx, err := s.connectBlock(block)
	if err != nil {
		return database.Block{}, err
	}

	if chainIdx != chain.ActiveChain {
		return database.Block{}, fmt.Errorf("mined block[%s] landed on chain %d", block.ID(), chainIdx)
	}

	return block, nil
}

// ProcessProposedBlock takes a block received from a peer and connects it.
// It returns the index of the chain the block ended up on.
func (s *State) ProcessProposedBlock(block database.Block) (int, error) {
	s.evHandler("state: ProcessProposedBlock: started: prevBlk[%s]: newBlk[%s]: numTrans[%d]", block.Header.PrevBlockHash, block.ID(), len(block.Trans))
	defer s.evHandler("state: ProcessProposedBlock: completed: newBlk[%s]", block.ID())

	before, _ := s.chain.Tip()

	chainIdx, err := s.connectBlock(block)
	if err != nil {
		return chain.NotConnected, err
	}

	// A new tip means the current mining operation is working on a stale
	// template. The chain already signaled the miner, start a new one.
	if after, _ := s.chain.Tip(); after.ID() != before.ID() {
		s.Worker.SignalStartMining()
	}

	return chainIdx, nil
}

// =============================================================================

// connectBlock hands the block to the chain manager and then retries the
// orphans that might now have a parent.
func (s *State) connectBlock(block database.Block) (int, error) {
	chainIdx, err := s.chain.Connect(block)
	if err != nil {
		return chain.NotConnected, s.checkIntegrity(err)
	}

	if chainIdx == chain.NotConnected {
		return chainIdx, nil
	}

	n, err := s.chain.ProcessOrphans()
	if err != nil {
		return chainIdx, s.checkIntegrity(err)
	}
	if n > 0 {
		s.evHandler("state: connectBlock: orphans connected[%d]", n)
	}

	// The orphans can trigger a reorg that moves the block.
	if _, _, idx, found := s.chain.Locate(block.ID()); found {
		chainIdx = idx
	}

	s.blockEvent(block, chainIdx)

	return chainIdx, nil
}

// blockEvent provides a specific event about a new block in the chain for
// application specific support.
func (s *State) blockEvent(block database.Block, chainIdx int) {
	blockHeaderJSON, err := json.Marshal(block.Header)
	if err != nil {
		blockHeaderJSON = []byte(fmt.Sprintf("%q", err.Error()))
	}

	blockTransJSON, err := json.Marshal(block.Trans)
	if err != nil {
		blockTransJSON = []byte(fmt.Sprintf("%q", err.Error()))
	}

	s.evHandler(`viewer: block: {"hash":%q,"chain":%d,"header":%s,"trans":%s}`, block.ID(), chainIdx, string(blockHeaderJSON), string(blockTransJSON))
}
