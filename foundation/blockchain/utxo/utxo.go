// Package utxo maintains the set of unspent transaction outputs in memory.
package utxo

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
	"github.com/ardanlabs/utxochain/foundation/blockchain/hashing"
)

// Set of error variables for the utxo set.
var (
	ErrExists  = errors.New("outpoint already exists")
	ErrMissing = errors.New("outpoint not found")
)

// UnspentOutput represents an output that hasn't been spent yet, with the
// information about the transaction and the block that created it. The
// height is the index of the block on the active chain, genesis being 0.
type UnspentOutput struct {
	database.TxOut
	TxID       hashing.Hash `json:"txid"`
	Index      uint32       `json:"index"`
	IsCoinbase bool         `json:"is_coinbase"`
	Height     int          `json:"height"`
}

// NewUnspentOutput constructs an unspent output for the specified output.
func NewUnspentOutput(txOut database.TxOut, txID hashing.Hash, index uint32, isCoinbase bool, height int) UnspentOutput {
	return UnspentOutput{
		TxOut:      txOut,
		TxID:       txID,
		Index:      index,
		IsCoinbase: isCoinbase,
		Height:     height,
	}
}

// OutPoint returns the key of the unspent output.
func (uo UnspentOutput) OutPoint() database.OutPoint {
	return database.NewOutPoint(uo.TxID, uo.Index)
}

// =============================================================================

// Set represents the data representation to maintain unspent outputs.
type Set struct {
	entries map[database.OutPoint]UnspentOutput
	mu      sync.RWMutex
}

// New constructs an empty utxo set for use.
func New() *Set {
	return &Set{
		entries: make(map[database.OutPoint]UnspentOutput),
	}
}

// Add inserts the output keyed by the transaction id and output index.
func (s *Set) Add(txOut database.TxOut, txID hashing.Hash, index uint32, isCoinbase bool, height int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	op := database.NewOutPoint(txID, index)
	if _, exists := s.entries[op]; exists {
		return fmt.Errorf("%w: %s", ErrExists, op)
	}

	s.entries[op] = NewUnspentOutput(txOut, txID, index, isCoinbase, height)
	return nil
}

// Remove deletes the output keyed by the transaction id and output index
// and returns it.
func (s *Set) Remove(txID hashing.Hash, index uint32) (UnspentOutput, error) {
	op := database.NewOutPoint(txID, index)

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, exists := s.entries[op]
	if !exists {
		return UnspentOutput{}, fmt.Errorf("%w: %s", ErrMissing, op)
	}

	delete(s.entries, op)
	return entry, nil
}

// Get returns the entry for the specified outpoint.
func (s *Set) Get(op database.OutPoint) (UnspentOutput, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, exists := s.entries[op]
	return entry, exists
}

// Lookup returns the output for the specified outpoint.
func (s *Set) Lookup(op database.OutPoint) (database.TxOut, bool) {
	entry, exists := s.Get(op)
	return entry.TxOut, exists
}

// Balance returns the sum of the unspent outputs owned by the account.
func (s *Set) Balance(owner database.AccountID) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var balance uint64
	for _, entry := range s.entries {
		if sameOwner(entry.Owner, owner) {
			balance += entry.Value
		}
	}

	return balance
}

// ForOwner returns the unspent outputs owned by the account, oldest first.
func (s *Set) ForOwner(owner database.AccountID) []UnspentOutput {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var entries []UnspentOutput
	for _, entry := range s.entries {
		if sameOwner(entry.Owner, owner) {
			entries = append(entries, entry)
		}
	}

	sortEntries(entries)
	return entries
}

// Count returns the number of unspent outputs.
func (s *Set) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.entries)
}

// Copy returns a copy of the unspent outputs, oldest first.
func (s *Set) Copy() []UnspentOutput {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]UnspentOutput, 0, len(s.entries))
	for _, entry := range s.entries {
		entries = append(entries, entry)
	}

	sortEntries(entries)
	return entries
}

// Clone makes a copy of the current utxo set.
func (s *Set) Clone() *Set {
	s.mu.RLock()
	defer s.mu.RUnlock()

	set := New()
	for op, entry := range s.entries {
		set.entries[op] = entry
	}

	return set
}

// NewView returns a view that stages changes against the set. Nothing is
// applied to the set until the view is committed.
func (s *Set) NewView() *View {
	return &View{
		base:    s,
		added:   make(map[database.OutPoint]UnspentOutput),
		removed: make(map[database.OutPoint]UnspentOutput),
	}
}

// Commit applies the changes staged in the view. Either all the changes are
// applied or none are.
func (s *Set) Commit(v *View) error {
	if v.base != s {
		return errors.New("view does not belong to this set")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for op := range v.removed {
		if _, exists := s.entries[op]; !exists {
			return fmt.Errorf("%w: %s", ErrMissing, op)
		}
	}

	for op := range v.added {
		if _, exists := s.entries[op]; exists {
			if _, removed := v.removed[op]; !removed {
				return fmt.Errorf("%w: %s", ErrExists, op)
			}
		}
	}

	for op := range v.removed {
		delete(s.entries, op)
	}

	for op, entry := range v.added {
		s.entries[op] = entry
	}

	return nil
}

// =============================================================================

// View stages additions and removals on top of a set. A view is not safe
// for concurrent use.
type View struct {
	base    *Set
	added   map[database.OutPoint]UnspentOutput
	removed map[database.OutPoint]UnspentOutput
}

// Get returns the entry for the specified outpoint as seen through the view.
func (v *View) Get(op database.OutPoint) (UnspentOutput, bool) {
	if entry, exists := v.added[op]; exists {
		return entry, true
	}

	if _, removed := v.removed[op]; removed {
		return UnspentOutput{}, false
	}

	return v.base.Get(op)
}

// Lookup returns the output for the specified outpoint as seen through
// the view.
func (v *View) Lookup(op database.OutPoint) (database.TxOut, bool) {
	entry, exists := v.Get(op)
	return entry.TxOut, exists
}

// Add stages the insert of the output keyed by the transaction id and
// output index.
func (v *View) Add(txOut database.TxOut, txID hashing.Hash, index uint32, isCoinbase bool, height int) error {
	op := database.NewOutPoint(txID, index)
	if _, exists := v.Get(op); exists {
		return fmt.Errorf("%w: %s", ErrExists, op)
	}

	v.added[op] = NewUnspentOutput(txOut, txID, index, isCoinbase, height)
	return nil
}

// Remove stages the delete of the output keyed by the transaction id and
// output index.
func (v *View) Remove(txID hashing.Hash, index uint32) (UnspentOutput, error) {
	op := database.NewOutPoint(txID, index)

	if entry, exists := v.added[op]; exists {
		delete(v.added, op)
		return entry, nil
	}

	if _, removed := v.removed[op]; removed {
		return UnspentOutput{}, fmt.Errorf("%w: %s", ErrMissing, op)
	}

	entry, exists := v.base.Get(op)
	if !exists {
		return UnspentOutput{}, fmt.Errorf("%w: %s", ErrMissing, op)
	}

	v.removed[op] = entry
	return entry, nil
}

// =============================================================================

// sameOwner compares account ids ignoring the checksum casing.
func sameOwner(a, b database.AccountID) bool {
	return strings.EqualFold(string(a), string(b))
}

// sortEntries orders entries by height, then by outpoint.
func sortEntries(entries []UnspentOutput) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Height != entries[j].Height {
			return entries[i].Height < entries[j].Height
		}

		if c := bytes.Compare(entries[i].TxID[:], entries[j].TxID[:]); c != 0 {
			return c < 0
		}

		return entries[i].Index < entries[j].Index
	})
}
