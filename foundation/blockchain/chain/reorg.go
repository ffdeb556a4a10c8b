package chain

import (
	"fmt"

	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
	"github.com/ardanlabs/utxochain/foundation/blockchain/hashing"
)

// reorgIfNecessary performs the work for ReorgIfNecessary. Branches are
// evaluated until none is longer than the active chain. The caller must
// hold the lock.
func (m *Manager) reorgIfNecessary() (bool, error) {
	var reorged bool

	for {
		attempted := false

		for i, branch := range m.branches {
			forkIdx, found := m.heightInActive(branch[0].Header.PrevBlockHash)
			if !found {
				continue
			}

			// The branch height counts the active blocks up to and
			// including the fork point plus the blocks in the branch.
			branchHeight := forkIdx + 1 + len(branch)
			if branchHeight <= len(m.active) {
				continue
			}

			ok, err := m.tryReorg(i+1, forkIdx)
			if err != nil {
				return reorged, err
			}

			if ok {
				reorged = true
			}

			// The set of branches changed, start the evaluation over. A
			// failed attempt cuts the branch down so this terminates.
			attempted = true
			break
		}

		if !attempted {
			return reorged, nil
		}
	}
}

// tryReorg replaces the active chain above the fork point with the blocks
// of the specified branch. If any block of the branch can't be connected to
// the active chain, the active chain is restored and the branch is cut
// down to the blocks that could be connected. The caller must hold the lock.
func (m *Manager) tryReorg(branchIdx int, forkIdx int) (bool, error) {
	branch := copyBlocks(m.branches[branchIdx-1])
	m.branches = append(m.branches[:branchIdx-1], m.branches[branchIdx:]...)

	m.evHandler("chain: tryReorg: started: branch[%d]: fork[%d]: blocks[%d]", branchIdx, forkIdx, len(branch))

	// Disconnect the active chain down to the fork point. The blocks are
	// collected tip first and then put back in chain order.
	var removed []database.Block
	for len(m.active)-1 > forkIdx {
		block, err := m.disconnect(ActiveChain)
		if err != nil {
			return false, fmt.Errorf("%w: disconnect active block: %s", ErrReorgInvariant, err)
		}
		removed = append(removed, block)
	}
	reverse(removed)

	var connected int
	for _, block := range branch {
		idx, err := m.connect(block, true)
		if err != nil || idx != ActiveChain {
			m.evHandler("chain: tryReorg: block[%s]: FAILED: idx[%d]: %v", block.ID(), idx, err)
			return false, m.rollback(branch, branchIdx, connected, removed)
		}
		connected++
	}

	// The old active suffix becomes a side branch.
	if len(removed) > 0 {
		m.branches = append(m.branches, removed)
	}
	m.rebaseBranches()

	m.evHandler("chain: tryReorg: completed: new tip[%s]: height[%d]", m.active[len(m.active)-1].ID(), len(m.active)-1)
	m.interrupt()

	return true, nil
}

// rollback undoes a failed reorg. The blocks connected from the branch are
// disconnected and the removed blocks are connected back. A failure to
// restore the active chain is a ErrReorgInvariant error. The caller must
// hold the lock.
func (m *Manager) rollback(branch []database.Block, branchIdx int, connected int, removed []database.Block) error {
	for i := 0; i < connected; i++ {
		if _, err := m.disconnect(ActiveChain); err != nil {
			return fmt.Errorf("%w: disconnect branch block: %s", ErrReorgInvariant, err)
		}
	}

	for _, block := range removed {
		idx, err := m.connect(block, true)
		if err != nil {
			return fmt.Errorf("%w: reconnect block[%s]: %s", ErrReorgInvariant, block.ID(), err)
		}
		if idx != ActiveChain {
			return fmt.Errorf("%w: reconnect block[%s]: landed on chain %d", ErrReorgInvariant, block.ID(), idx)
		}
	}

	// Keep the part of the branch that was valid. The rest is dropped.
	if connected > 0 {
		valid := branch[:connected]
		m.branches = append(m.branches[:branchIdx-1], append([][]database.Block{valid}, m.branches[branchIdx-1:]...)...)
	}

	m.evHandler("chain: tryReorg: rolled back: branch[%d]: kept[%d]: dropped[%d]", branchIdx, connected, len(branch)-connected)

	return nil
}

// rebaseBranches keeps every side branch rooted on the active chain after a
// reorg. Blocks now on the active chain are dropped from the front of a
// branch, and a branch whose parent left the active chain takes a copy of
// the blocks leading to it. The caller must hold the lock.
func (m *Manager) rebaseBranches() {
	inActive := make(map[hashing.Hash]bool, len(m.active))
	for _, block := range m.active {
		inActive[block.ID()] = true
	}

	// Capture where every side branch block lives.
	type position struct {
		branch int
		height int
	}
	positions := make(map[hashing.Hash]position)
	for i, branch := range m.branches {
		for h, block := range branch {
			positions[block.ID()] = position{branch: i, height: h}
		}
	}

	var branches [][]database.Block
	seen := make(map[hashing.Hash]bool)

	for _, branch := range m.branches {
		for {
			for len(branch) > 0 && inActive[branch[0].ID()] {
				branch = branch[1:]
			}

			if len(branch) == 0 || inActive[branch[0].Header.PrevBlockHash] {
				break
			}

			pos, found := positions[branch[0].Header.PrevBlockHash]
			if !found {
				break
			}

			prefix := m.branches[pos.branch][:pos.height+1]
			branch = append(copyBlocks(prefix), branch...)
		}

		if len(branch) == 0 {
			continue
		}

		if !inActive[branch[0].Header.PrevBlockHash] {
			m.evHandler("chain: rebaseBranches: dropped branch: tip[%s]: no path to active chain", branch[len(branch)-1].ID())
			continue
		}

		// Two branches ending with the same block are the same branch.
		tip := branch[len(branch)-1].ID()
		if seen[tip] {
			continue
		}
		seen[tip] = true

		branches = append(branches, copyBlocks(branch))
	}

	m.branches = branches
}

// reverse reverses the order of the blocks in place.
func reverse(blocks []database.Block) {
	for i, j := 0, len(blocks)-1; i < j; i, j = i+1, j-1 {
		blocks[i], blocks[j] = blocks[j], blocks[i]
	}
}
