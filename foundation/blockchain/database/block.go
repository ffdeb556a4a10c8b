package database

import (
	"fmt"
	"math/big"
	"math/bits"

	"github.com/ardanlabs/utxochain/foundation/blockchain/hashing"
	"github.com/ardanlabs/utxochain/foundation/blockchain/merkle"
)

// HeaderSize is the number of bytes in a serialized block header.
const HeaderSize = 80

// BlockHeader represents common information required for each block.
type BlockHeader struct {
	Version       uint32       `json:"version"`         // Version of the block rules.
	PrevBlockHash hashing.Hash `json:"prev_block_hash"` // Id of the parent block, zero for genesis.
	MerkleRoot    hashing.Hash `json:"merkle_root"`     // Merkle root of the ordered transactions.
	TimeStamp     uint32       `json:"timestamp"`       // Time the block was assembled in seconds.
	NBits         uint32       `json:"nbits"`           // Compact encoding of the proof of work target.
	Nonce         uint32       `json:"nonce"`           // Value identified to solve the hash solution.
}

// Block represents a group of transactions batched together. A block is a
// value: changing any field produces a new block with a new id.
type Block struct {
	Header BlockHeader `json:"header"`
	Trans  []Tx        `json:"trans"`
}

// NewBlock constructs a block from a header and an ordered set of
// transactions.
func NewBlock(header BlockHeader, trans []Tx) Block {
	txs := make([]Tx, len(trans))
	copy(txs, trans)

	return Block{
		Header: header,
		Trans:  txs,
	}
}

// WithNonce returns a copy of the block with the specified nonce.
func (b Block) WithNonce(nonce uint32) Block {
	nb := NewBlock(b.Header, b.Trans)
	nb.Header.Nonce = nonce
	return nb
}

// WithTransactions returns a copy of the block with the specified
// transactions. The merkle root is not recalculated.
func (b Block) WithTransactions(trans []Tx) Block {
	return NewBlock(b.Header, trans)
}

// WithMerkleRoot returns a copy of the block with the specified merkle root.
func (b Block) WithMerkleRoot(root hashing.Hash) Block {
	nb := NewBlock(b.Header, b.Trans)
	nb.Header.MerkleRoot = root
	return nb
}

// Template returns the serialized header without the nonce. Mining only
// needs to append the nonce bytes to this value for each attempt.
func (b Block) Template() []byte {
	data := make([]byte, 0, HeaderSize)
	data = append(data, hashing.Uint32LE(b.Header.Version)...)
	data = append(data, b.Header.PrevBlockHash[:]...)
	data = append(data, b.Header.MerkleRoot[:]...)
	data = append(data, hashing.Uint32LE(b.Header.TimeStamp)...)
	data = append(data, hashing.Uint32LE(b.Header.NBits)...)
	return data
}

// HeaderBytes returns the full serialized header.
func (b Block) HeaderBytes() []byte {
	return append(b.Template(), hashing.Uint32LE(b.Header.Nonce)...)
}

// ID returns the unique id of the block, the double hash of the header.
func (b Block) ID() hashing.Hash {

	// Only the header is hashed so the chain can be checked with block
	// headers alone. The transactions are committed through the merkle root.

	return hashing.DoubleHash(b.HeaderBytes())
}

// Target returns the proof of work target for this block.
func (b Block) Target() *big.Int {
	return hashing.TargetFromCompact(b.Header.NBits)
}

// IsGenesis reports whether the block claims to be the first block.
func (b Block) IsGenesis() bool {
	return b.Header.PrevBlockHash.IsZero()
}

// ComputeMerkleRoot returns the merkle root over the block's transactions
// in their current order.
func (b Block) ComputeMerkleRoot() (hashing.Hash, error) {
	return merkle.GenerateRoot(b.Trans)
}

// Coinbase returns the first transaction if it's a coinbase.
func (b Block) Coinbase() (Tx, bool) {
	if len(b.Trans) == 0 || !b.Trans[0].IsCoinbase() {
		return Tx{}, false
	}

	return b.Trans[0], true
}

// ValidateStructure performs the checks on the block that don't require
// any ledger state: the expected difficulty, the proof of work, the
// coinbase placement, each transaction's structure, and the merkle root.
func (b Block) ValidateStructure(nbits uint32) error {
	if b.Header.NBits != nbits {
		return fmt.Errorf("%w: block nbits %#08x doesn't match expected %#08x", ErrStructural, b.Header.NBits, nbits)
	}

	id := b.ID()
	if !id.MeetsTarget(b.Target()) {
		return fmt.Errorf("%w: block hash %s doesn't meet the target", ErrStructural, id)
	}

	if _, ok := b.Coinbase(); !ok {
		return fmt.Errorf("%w: first transaction is not a coinbase", ErrStructural)
	}

	for i, tx := range b.Trans {
		if i > 0 && tx.IsCoinbase() {
			return fmt.Errorf("%w: coinbase transaction at position %d", ErrStructural, i)
		}

		if err := tx.Validate(); err != nil {
			return fmt.Errorf("transaction %d: %w", i, err)
		}
	}

	root, err := b.ComputeMerkleRoot()
	if err != nil {
		return fmt.Errorf("%w: %s", ErrStructural, err)
	}

	if root != b.Header.MerkleRoot {
		return fmt.Errorf("%w: merkle root does not match transactions, got %s, exp %s", ErrStructural, b.Header.MerkleRoot, root)
	}

	return nil
}

// TransactionFees returns the fee paid by each non-coinbase transaction in
// the block. An input is resolved with the lookup function first and then
// against the outputs of a transaction earlier in the same block, which
// covers a transaction spending a sibling's output.
func (b Block) TransactionFees(lookup func(OutPoint) (TxOut, bool)) (map[hashing.Hash]uint64, error) {
	siblings := make(map[hashing.Hash]Tx)
	fees := make(map[hashing.Hash]uint64)

	for _, tx := range b.Trans {
		id := tx.ID()
		if tx.IsCoinbase() {
			siblings[id] = tx
			continue
		}

		var spent uint64
		for _, txIn := range tx.TxIns {
			txOut, ok := resolve(*txIn.OutPoint, lookup, siblings)
			if !ok {
				return nil, fmt.Errorf("%w: %s", ErrUnresolved, txIn.OutPoint)
			}

			sum, carry := bits.Add64(spent, txOut.Value, 0)
			if carry != 0 {
				return nil, fmt.Errorf("%w: input total overflows", ErrStructural)
			}
			spent = sum
		}

		sent, err := tx.OutputTotal()
		if err != nil {
			return nil, err
		}

		if sent > spent {
			return nil, fmt.Errorf("%w: tx %s spends %d, has %d", ErrOverspend, id, sent, spent)
		}

		fees[id] = spent - sent
		siblings[id] = tx
	}

	return fees, nil
}

// Fees returns the sum of all the fees paid by the transactions in the block.
func (b Block) Fees(lookup func(OutPoint) (TxOut, bool)) (uint64, error) {
	fees, err := b.TransactionFees(lookup)
	if err != nil {
		return 0, err
	}

	var total uint64
	for _, fee := range fees {
		total += fee
	}

	return total, nil
}

// String implements the fmt.Stringer interface for logging.
func (b Block) String() string {
	return fmt.Sprintf("%s:prev[%s]:txs[%d]", b.ID(), b.Header.PrevBlockHash, len(b.Trans))
}

// =============================================================================

// resolve locates the output for the outpoint in the ledger or in the
// transactions already seen in this block.
func resolve(op OutPoint, lookup func(OutPoint) (TxOut, bool), siblings map[hashing.Hash]Tx) (TxOut, bool) {
	if lookup != nil {
		if txOut, ok := lookup(op); ok {
			return txOut, true
		}
	}

	tx, ok := siblings[op.TxID]
	if !ok || int(op.Index) >= len(tx.TxOuts) {
		return TxOut{}, false
	}

	return tx.TxOuts[op.Index], true
}
