// Package chain maintains the active chain, the side branches, and the
// orphan blocks of the blockchain, and keeps the utxo set and the mempool in
// step with the active chain.
package chain

import (
	"errors"
	"sync"

	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
	"github.com/ardanlabs/utxochain/foundation/blockchain/hashing"
	"github.com/ardanlabs/utxochain/foundation/blockchain/mempool"
	"github.com/ardanlabs/utxochain/foundation/blockchain/utxo"
)

// Set of chain indexes with special meaning.
const (
	ActiveChain  = 0
	NotConnected = -1
)

// Set of error variables for the chain manager.
var (
	// ErrReorgInvariant is returned when the rollback of a failed reorg
	// can't restore the prior active chain. Ledger consistency can no longer
	// be guaranteed and the process must not continue.
	ErrReorgInvariant = errors.New("reorg invariant violated")

	// ErrNotTip is returned when a block other than the tip of a chain is
	// asked to be disconnected.
	ErrNotTip = errors.New("block is not the tip of the chain")

	// ErrChainIndex is returned when a chain index doesn't exist.
	ErrChainIndex = errors.New("chain index out of range")

	// ErrLedger is returned when a block landing on the active chain breaks
	// the ledger rules.
	ErrLedger = errors.New("ledger rule violated")
)

// EventHandler defines a function that is called when events
// occur in the processing of blocks.
type EventHandler func(v string, args ...any)

// Canceler represents the flag a mining operation polls to know its block
// template has been superseded by a new tip.
type Canceler interface {
	Interrupt()
}

// =============================================================================

// Config represents the configuration required to construct the chain
// manager.
type Config struct {
	NBits     uint32
	Subsidy   uint64
	UTXOs     *utxo.Set
	Mempool   *mempool.Mempool
	Canceler  Canceler
	EvHandler EventHandler
}

// Manager owns the active chain, the side branches, and the orphan blocks.
// Index 0 is the active chain, side branches use the indexes 1 to n. The
// first block of every side branch has its parent on the active chain.
type Manager struct {
	nbits     uint32
	subsidy   uint64
	utxos     *utxo.Set
	mempool   *mempool.Mempool
	canceler  Canceler
	evHandler EventHandler

	active   []database.Block
	branches [][]database.Block
	orphans  map[hashing.Hash]database.Block
	mu       sync.Mutex
}

// New constructs a chain manager with no blocks.
func New(cfg Config) *Manager {

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	return &Manager{
		nbits:     cfg.NBits,
		subsidy:   cfg.Subsidy,
		utxos:     cfg.UTXOs,
		mempool:   cfg.Mempool,
		canceler:  cfg.Canceler,
		evHandler: ev,
		orphans:   make(map[hashing.Hash]database.Block),
	}
}

// Connect adds the block to the chain it extends and returns the index of
// the chain the block ends up on. A block whose parent is unknown is kept
// as an orphan and a block already known is ignored, both return
// NotConnected with no error. An error is returned when the block is
// rejected.
func (m *Manager) Connect(block database.Block) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.connect(block, false)
}

// Disconnect removes the tip of the specified chain and returns it. For
// the active chain the ledger is rolled back to the parent block.
func (m *Manager) Disconnect(chainIdx int) (database.Block, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.disconnect(chainIdx)
}

// ReorgIfNecessary makes the longest side branch the active chain when it
// is longer than the active chain. It reports whether a reorg took place.
func (m *Manager) ReorgIfNecessary() (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.reorgIfNecessary()
}

// Locate searches for the block across the active chain and the side
// branches, or only the specified chains. It returns the block, its height
// in the chain, and the chain index. A match in a later chain wins.
func (m *Manager) Locate(id hashing.Hash, chainIdxs ...int) (database.Block, int, int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.locate(id, chainIdxs...)
}

// Tip returns the last block of the active chain.
func (m *Manager) Tip() (database.Block, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.active) == 0 {
		return database.Block{}, false
	}

	return m.active[len(m.active)-1], true
}

// Height returns the height of the tip of the active chain. It returns -1
// when there are no blocks.
func (m *Manager) Height() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.active) - 1
}

// BlockAt returns the block at the specified height of the active chain.
func (m *Manager) BlockAt(height int) (database.Block, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if height < 0 || height >= len(m.active) {
		return database.Block{}, false
	}

	return m.active[height], true
}

// ActiveChain returns a copy of the active chain from genesis to tip.
func (m *Manager) ActiveChain() []database.Block {
	m.mu.Lock()
	defer m.mu.Unlock()

	return copyBlocks(m.active)
}

// Branches returns a copy of the side branches. The branch at position 0
// has the chain index 1.
func (m *Manager) Branches() [][]database.Block {
	m.mu.Lock()
	defer m.mu.Unlock()

	branches := make([][]database.Block, len(m.branches))
	for i, branch := range m.branches {
		branches[i] = copyBlocks(branch)
	}

	return branches
}

// Orphans returns a copy of the blocks waiting for their parent.
func (m *Manager) Orphans() []database.Block {
	m.mu.Lock()
	defer m.mu.Unlock()

	orphans := make([]database.Block, 0, len(m.orphans))
	for _, block := range m.orphans {
		orphans = append(orphans, block)
	}

	return orphans
}

// =============================================================================

// chain returns the blocks of the specified chain. The caller must hold
// the lock.
func (m *Manager) chain(chainIdx int) ([]database.Block, bool) {
	switch {
	case chainIdx == ActiveChain:
		return m.active, true
	case chainIdx > 0 && chainIdx <= len(m.branches):
		return m.branches[chainIdx-1], true
	}

	return nil, false
}

// setChain replaces the blocks of the specified chain. The caller must hold
// the lock.
func (m *Manager) setChain(chainIdx int, blocks []database.Block) {
	if chainIdx == ActiveChain {
		m.active = blocks
		return
	}

	m.branches[chainIdx-1] = blocks
}

// locate performs the search for Locate. The caller must hold the lock.
func (m *Manager) locate(id hashing.Hash, chainIdxs ...int) (database.Block, int, int, bool) {
	if len(chainIdxs) == 0 {
		chainIdxs = make([]int, len(m.branches)+1)
		for i := range chainIdxs {
			chainIdxs[i] = i
		}
	}

	var found database.Block
	height, chainIdx := -1, NotConnected

	for _, idx := range chainIdxs {
		blocks, ok := m.chain(idx)
		if !ok {
			continue
		}

		for h, block := range blocks {
			if block.ID() == id {
				found, height, chainIdx = block, h, idx
			}
		}
	}

	return found, height, chainIdx, chainIdx != NotConnected
}

// heightInActive returns the height of the block on the active chain. The
// caller must hold the lock.
func (m *Manager) heightInActive(id hashing.Hash) (int, bool) {
	for h := len(m.active) - 1; h >= 0; h-- {
		if m.active[h].ID() == id {
			return h, true
		}
	}

	return -1, false
}

// interrupt signals a mining operation its template is stale.
func (m *Manager) interrupt() {
	if m.canceler != nil {
		m.canceler.Interrupt()
	}
}

// copyBlocks returns a copy of the list of blocks.
func copyBlocks(blocks []database.Block) []database.Block {
	cpy := make([]database.Block, len(blocks))
	copy(cpy, blocks)
	return cpy
}
