// Package state is the core API for the blockchain and implements all the
// business rules and processing.
package state

import (
	"context"
	"errors"
	"fmt"
	"os"
	"syscall"

	"github.com/ardanlabs/utxochain/foundation/blockchain/chain"
	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
	"github.com/ardanlabs/utxochain/foundation/blockchain/genesis"
	"github.com/ardanlabs/utxochain/foundation/blockchain/hashing"
	"github.com/ardanlabs/utxochain/foundation/blockchain/mempool"
	"github.com/ardanlabs/utxochain/foundation/blockchain/miner"
	"github.com/ardanlabs/utxochain/foundation/blockchain/peer"
	"github.com/ardanlabs/utxochain/foundation/blockchain/utxo"
)

// EventHandler defines a function that is called when events
// occur in the processing of blocks and transactions.
type EventHandler func(v string, args ...any)

// Worker interface represents the behavior required to be implemented by any
// package providing support for mining, peer updates, and sharing of
// transactions and blocks.
type Worker interface {
	Shutdown()
	Sync()
	SignalStartMining()
	SignalCancelMining()
	SignalShareTx(tx database.Tx)
	SignalShareBlock(block database.Block)
}

// =============================================================================

// Config represents the configuration required to start
// the blockchain node.
type Config struct {
	BeneficiaryID   database.AccountID
	Host            string
	Genesis         genesis.Genesis
	SelectStrategy  string
	KnownPeers      *peer.PeerSet
	MineEmptyBlocks bool
	Shutdown        chan<- os.Signal
	EvHandler       EventHandler
}

// State manages the blockchain node.
type State struct {
	beneficiaryID   database.AccountID
	host            string
	mineEmptyBlocks bool
	shutdown        chan<- os.Signal
	evHandler       EventHandler

	knownPeers *peer.PeerSet
	genesis    genesis.Genesis
	utxos      *utxo.Set
	mempool    *mempool.Mempool
	chain      *chain.Manager
	miner      *miner.Miner

	Worker Worker
}

// New constructs the node, mines the genesis block described by the
// genesis file, and connects it.
func New(cfg Config) (*State, error) {

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	if err := cfg.Genesis.Validate(); err != nil {
		return nil, fmt.Errorf("genesis: %w", err)
	}

	// The utxo set and the mempool are shared by the chain manager and the
	// miner.
	utxos := utxo.New()

	mp, err := mempool.NewWithStrategy(utxos, cfg.SelectStrategy)
	if err != nil {
		return nil, err
	}

	// The chain sets the signal when the tip changes and the miner polls it.
	signal := miner.Signal{}

	chn := chain.New(chain.Config{
		NBits:     cfg.Genesis.NBits,
		Subsidy:   cfg.Genesis.Subsidy,
		UTXOs:     utxos,
		Mempool:   mp,
		Canceler:  &signal,
		EvHandler: chain.EventHandler(ev),
	})

	mnr := miner.New(miner.Config{
		Version:       cfg.Genesis.Version,
		NBits:         cfg.Genesis.NBits,
		Subsidy:       cfg.Genesis.Subsidy,
		TransPerBlock: int(cfg.Genesis.TransPerBlock),
		Chain:         chn,
		Mempool:       mp,
		UTXOs:         utxos,
		Signal:        &signal,
		EvHandler:     miner.EventHandler(ev),
	})

	state := State{
		beneficiaryID:   cfg.BeneficiaryID,
		host:            cfg.Host,
		mineEmptyBlocks: cfg.MineEmptyBlocks,
		shutdown:        cfg.Shutdown,
		evHandler:       ev,

		knownPeers: cfg.KnownPeers,
		genesis:    cfg.Genesis,
		utxos:      utxos,
		mempool:    mp,
		chain:      chn,
		miner:      mnr,
	}

	if state.knownPeers == nil {
		state.knownPeers = peer.NewPeerSet()
	}

	if err := state.connectGenesis(); err != nil {
		return nil, err
	}

	// The Worker is not set here. The call to worker.Run will assign itself
	// and start everything up and running for the node.

	return &state, nil
}

// Shutdown cleanly brings the node down.
func (s *State) Shutdown() error {
	s.evHandler("state: shutdown: started")
	defer s.evHandler("state: shutdown: completed")

	// Stop all blockchain writing activity.
	if s.Worker != nil {
		s.Worker.Shutdown()
	}

	return nil
}

// =============================================================================

// connectGenesis mines the genesis block. Every node starts the nonce
// search from zero over the same template so every node finds the same
// block.
func (s *State) connectGenesis() error {
	s.evHandler("state: connectGenesis: started: nbits[%#08x]", s.genesis.NBits)

	template, err := s.miner.Template(hashing.ZeroHash, 0, s.genesis.TimeStamp(), s.genesis.Payout, []database.Tx{})
	if err != nil {
		return fmt.Errorf("genesis template: %w", err)
	}

	block, err := s.miner.Mine(context.Background(), template)
	if err != nil {
		return fmt.Errorf("genesis mining: %w", err)
	}

	if _, err := s.chain.Connect(block); err != nil {
		return fmt.Errorf("genesis connect: %w", err)
	}

	s.evHandler("state: connectGenesis: completed: blk[%s]", block.ID())

	return nil
}

// checkIntegrity requests the process to shut down when the error means the
// ledger can no longer be trusted.
func (s *State) checkIntegrity(err error) error {
	if !errors.Is(err, chain.ErrReorgInvariant) {
		return err
	}

	s.evHandler("state: checkIntegrity: FATAL: %s", err)

	if s.shutdown != nil {
		select {
		case s.shutdown <- syscall.SIGTERM:
		default:
		}
	}

	return err
}
