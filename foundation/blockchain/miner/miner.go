// Package miner assembles block templates from the mempool and performs the
// proof of work search for a nonce that solves them.
package miner

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/ardanlabs/utxochain/foundation/blockchain/chain"
	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
	"github.com/ardanlabs/utxochain/foundation/blockchain/hashing"
	"github.com/ardanlabs/utxochain/foundation/blockchain/mempool"
	"github.com/ardanlabs/utxochain/foundation/blockchain/utxo"
)

// checkInterval is the number of attempts between checks of the
// cancellation signal.
const checkInterval = 1_000_000

// Set of error variables for mining.
var (
	// ErrCancelled is returned when the search is abandoned because a new
	// tip superseded the template.
	ErrCancelled = errors.New("mining cancelled")

	// ErrNonceExhausted is returned when every nonce was tried without a
	// solution. The caller must build a new template.
	ErrNonceExhausted = errors.New("nonce space exhausted")

	// ErrUnknownParent is returned when the parent of the template is not
	// on the active chain.
	ErrUnknownParent = errors.New("parent block not on the active chain")
)

// EventHandler defines a function that is called when events
// occur in the processing of mining.
type EventHandler func(v string, args ...any)

// Locator represents the behavior required to find the parent of a new
// block. The chain manager implements this interface.
type Locator interface {
	Locate(id hashing.Hash, chainIdxs ...int) (database.Block, int, int, bool)
}

// =============================================================================

// Signal is the cancellation flag shared by the chain and the miner. The
// chain sets it when the tip changes and the miner polls it while searching.
type Signal struct {
	flag atomic.Bool
}

// Interrupt sets the flag.
func (s *Signal) Interrupt() {
	s.flag.Store(true)
}

// Clear resets the flag before a new attempt.
func (s *Signal) Clear() {
	s.flag.Store(false)
}

// IsSet reports whether the flag is set.
func (s *Signal) IsSet() bool {
	return s.flag.Load()
}

// =============================================================================

// Config represents the configuration required to construct a miner.
type Config struct {
	Version       uint32
	NBits         uint32
	Subsidy       uint64
	TransPerBlock int
	Chain         Locator
	Mempool       *mempool.Mempool
	UTXOs         *utxo.Set
	Signal        *Signal
	EvHandler     EventHandler
}

// Miner builds and solves new blocks.
type Miner struct {
	version       uint32
	nbits         uint32
	subsidy       uint64
	transPerBlock int
	chain         Locator
	mempool       *mempool.Mempool
	utxos         *utxo.Set
	signal        *Signal
	evHandler     EventHandler
	now           func() time.Time
}

// New constructs a miner.
func New(cfg Config) *Miner {

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	signal := cfg.Signal
	if signal == nil {
		signal = &Signal{}
	}

	return &Miner{
		version:       cfg.Version,
		nbits:         cfg.NBits,
		subsidy:       cfg.Subsidy,
		transPerBlock: cfg.TransPerBlock,
		chain:         cfg.Chain,
		mempool:       cfg.Mempool,
		utxos:         cfg.UTXOs,
		signal:        signal,
		evHandler:     ev,
		now:           time.Now,
	}
}

// Interrupt signals the current search to stop.
func (m *Miner) Interrupt() {
	m.signal.Interrupt()
}

// Clear resets the signal ahead of a new attempt. It must be called before
// the caller reads the tip it builds on, so a tip change that lands in
// between still cancels the search.
func (m *Miner) Clear() {
	m.signal.Clear()
}

// Assemble builds a template on top of the specified parent with a coinbase
// paying the subsidy plus the fees to the payout account, and mines it. When
// extra is nil the transactions are selected from the mempool. A signal set
// before the call cancels the search.
func (m *Miner) Assemble(ctx context.Context, prevHash hashing.Hash, payout database.AccountID, extra []database.Tx) (database.Block, error) {
	var height int
	if !prevHash.IsZero() {
		_, h, _, found := m.chain.Locate(prevHash, chain.ActiveChain)
		if !found {
			return database.Block{}, fmt.Errorf("%w: %s", ErrUnknownParent, prevHash)
		}
		height = h + 1
	}

	template, err := m.Template(prevHash, height, uint32(m.now().UTC().Unix()), payout, extra)
	if err != nil {
		return database.Block{}, err
	}

	m.evHandler("miner: Assemble: MINING: template: height[%d]: prevBlk[%s]: txs[%d]", height, prevHash, len(template.Trans))

	return m.Mine(ctx, template)
}

// Template builds the block to be mined at the specified height. The
// coinbase is placed first and the merkle root covers the final order of
// the transactions.
func (m *Miner) Template(prevHash hashing.Hash, height int, timestamp uint32, payout database.AccountID, extra []database.Tx) (database.Block, error) {
	header := database.BlockHeader{
		Version:       m.version,
		PrevBlockHash: prevHash,
		TimeStamp:     timestamp,
		NBits:         m.nbits,
	}
	candidate := database.NewBlock(header, nil)

	switch {
	case extra != nil:
		candidate = candidate.WithTransactions(extra)
	case m.mempool != nil:
		howMany := m.transPerBlock
		if howMany <= 0 {
			howMany = -1
		}
		candidate = m.mempool.SelectForBlock(candidate, howMany)
	}

	var lookup func(database.OutPoint) (database.TxOut, bool)
	if m.utxos != nil {
		lookup = m.utxos.Lookup
	}

	fees, err := candidate.Fees(lookup)
	if err != nil {
		return database.Block{}, err
	}

	coinbase := database.NewCoinbase(payout, m.subsidy+fees, uint64(height))
	block := candidate.WithTransactions(append([]database.Tx{coinbase}, candidate.Trans...))

	root, err := block.ComputeMerkleRoot()
	if err != nil {
		return database.Block{}, err
	}

	return block.WithMerkleRoot(root), nil
}

// Mine searches for the nonce that makes the hash of the block header fall
// below the target. The search starts at 0 and checks the cancellation
// signal and the context every checkInterval attempts.
func (m *Miner) Mine(ctx context.Context, template database.Block) (database.Block, error) {
	m.evHandler("miner: Mine: MINING: started")
	defer m.evHandler("miner: Mine: MINING: completed")

	target := template.Target()

	// Only the nonce changes between attempts.
	header := make([]byte, 0, database.HeaderSize)
	header = append(header, template.Template()...)
	header = append(header, 0, 0, 0, 0)

	for nonce := uint64(0); nonce <= math.MaxUint32; nonce++ {
		if nonce%checkInterval == 0 {
			if nonce > 0 {
				m.evHandler("miner: Mine: MINING: attempts[%d]", nonce)
			}

			if m.signal.IsSet() {
				m.evHandler("miner: Mine: MINING: CANCELLED: new tip")
				return database.Block{}, ErrCancelled
			}

			if err := ctx.Err(); err != nil {
				m.evHandler("miner: Mine: MINING: CANCELLED: %s", err)
				return database.Block{}, fmt.Errorf("%w: %w", ErrCancelled, err)
			}
		}

		copy(header[database.HeaderSize-4:], hashing.Uint32LE(uint32(nonce)))

		hash := hashing.DoubleHash(header)
		if !hash.MeetsTarget(target) {
			continue
		}

		block := template.WithNonce(uint32(nonce))
		m.evHandler("miner: Mine: MINING: SOLVED: prevBlk[%s]: newBlk[%s]: attempts[%d]", template.Header.PrevBlockHash, block.ID(), nonce+1)

		return block, nil
	}

	return database.Block{}, ErrNonceExhausted
}
