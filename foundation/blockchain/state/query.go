package state

import (
	"github.com/ardanlabs/utxochain/foundation/blockchain/chain"
	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
	"github.com/ardanlabs/utxochain/foundation/blockchain/genesis"
	"github.com/ardanlabs/utxochain/foundation/blockchain/hashing"
	"github.com/ardanlabs/utxochain/foundation/blockchain/peer"
	"github.com/ardanlabs/utxochain/foundation/blockchain/utxo"
)

// QueryLatest represents to query the latest block in the chain.
const QueryLatest = -1

// =============================================================================

// RetrieveHost returns a copy of host information.
func (s *State) RetrieveHost() string {
	return s.host
}

// RetrieveGenesis returns a copy of the genesis information.
func (s *State) RetrieveGenesis() genesis.Genesis {
	return s.genesis
}

// RetrieveLatestBlock returns a copy the current latest block.
func (s *State) RetrieveLatestBlock() database.Block {
	block, _ := s.chain.Tip()
	return block
}

// RetrieveMempool returns a copy of the mempool in arrival order.
func (s *State) RetrieveMempool() []database.Tx {
	return s.mempool.Copy()
}

// RetrieveKnownPeers retrieves a copy of the known peer list.
func (s *State) RetrieveKnownPeers() []peer.Peer {
	return s.knownPeers.Copy(s.host)
}

// RetrieveStatus returns the status this node reports to its peers.
func (s *State) RetrieveStatus() peer.Status {
	tip := s.RetrieveLatestBlock()

	return peer.Status{
		TipHash:    tip.ID(),
		TipHeight:  s.chain.Height(),
		Mempool:    s.mempool.Count(),
		KnownPeers: s.RetrieveKnownPeers(),
	}
}

// =============================================================================

// AddKnownPeer provides the ability to add a new peer.
func (s *State) AddKnownPeer(peer peer.Peer) bool {
	if peer.Match(s.host) {
		return false
	}

	return s.knownPeers.Add(peer)
}

// RemoveKnownPeer removes a peer that stopped responding.
func (s *State) RemoveKnownPeer(peer peer.Peer) {
	s.knownPeers.Remove(peer)
}

// =============================================================================

// QueryMempoolLength returns the current length of the mempool.
func (s *State) QueryMempoolLength() int {
	return s.mempool.Count()
}

// QueryBalance returns the value of the unspent outputs of the owner.
func (s *State) QueryBalance(owner database.AccountID) uint64 {
	return s.utxos.Balance(owner)
}

// QueryUTXOs returns the unspent outputs of the owner.
func (s *State) QueryUTXOs(owner database.AccountID) []utxo.UnspentOutput {
	return s.utxos.ForOwner(owner)
}

// QuerySpendable returns the unspent outputs of the owner that no pending
// transaction spends yet.
func (s *State) QuerySpendable(owner database.AccountID) []utxo.UnspentOutput {
	var spendable []utxo.UnspentOutput
	for _, uo := range s.utxos.ForOwner(owner) {
		if _, spent := s.mempool.Spends(uo.OutPoint()); !spent {
			spendable = append(spendable, uo)
		}
	}

	return spendable
}

// QueryBlocksByNumber returns the blocks of the active chain between the
// two heights inclusive. QueryLatest selects the tip.
func (s *State) QueryBlocksByNumber(from int, to int) []database.Block {
	height := s.chain.Height()

	if from == QueryLatest {
		from = height
		to = from
	}
	if to == QueryLatest || to > height {
		to = height
	}
	if from < 0 {
		from = 0
	}

	var out []database.Block
	for i := from; i <= to; i++ {
		block, exists := s.chain.BlockAt(i)
		if !exists {
			break
		}
		out = append(out, block)
	}

	return out
}

// QueryBlockByID returns the block along with its height and the index of
// the chain holding it.
func (s *State) QueryBlockByID(id hashing.Hash) (database.Block, int, int, bool) {
	return s.chain.Locate(id)
}

// QueryKnownBlock reports whether the block is already held by the node and
// the index of the chain holding it. A held orphan reports NotConnected.
func (s *State) QueryKnownBlock(id hashing.Hash) (int, bool) {
	if _, _, chainIdx, found := s.chain.Locate(id); found {
		return chainIdx, true
	}

	for _, block := range s.chain.Orphans() {
		if block.ID() == id {
			return chain.NotConnected, true
		}
	}

	return chain.NotConnected, false
}

// QueryBranches returns the side branches.
func (s *State) QueryBranches() [][]database.Block {
	return s.chain.Branches()
}

// QueryOrphans returns the blocks waiting for their parent.
func (s *State) QueryOrphans() []database.Block {
	return s.chain.Orphans()
}

// MinesEmptyBlocks reports whether the node keeps mining when the mempool
// is empty.
func (s *State) MinesEmptyBlocks() bool {
	return s.mineEmptyBlocks
}
