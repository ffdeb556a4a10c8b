package database

import (
	"encoding/json"
	"fmt"
	"math/bits"

	"github.com/ardanlabs/utxochain/foundation/blockchain/hashing"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// =============================================================================

// OutPoint is the unique key of a transaction output. Two outpoints are the
// same when both the transaction id and the output index match.
type OutPoint struct {
	TxID  hashing.Hash `json:"txid"`
	Index uint32       `json:"index"`
}

// NewOutPoint constructs an outpoint for the specified output.
func NewOutPoint(txID hashing.Hash, index uint32) OutPoint {
	return OutPoint{
		TxID:  txID,
		Index: index,
	}
}

// Bytes returns the txid followed by the little endian index.
func (op OutPoint) Bytes() []byte {
	b := make([]byte, 0, hashing.HashSize+4)
	b = append(b, op.TxID[:]...)
	b = append(b, hashing.Uint32LE(op.Index)...)
	return b
}

// String implements the fmt.Stringer interface for logging.
func (op OutPoint) String() string {
	return fmt.Sprintf("%s:%d", op.TxID, op.Index)
}

// =============================================================================

// TxIn references a prior output being spent and carries the credential
// that authorizes the spend. A coinbase input has no outpoint.
type TxIn struct {
	OutPoint    *OutPoint     `json:"outpoint"`
	UnlockProof hexutil.Bytes `json:"unlock_proof"`
	Sequence    uint32        `json:"sequence"`
}

// TxOut is an amount of value assigned to an owner.
type TxOut struct {
	Value uint64    `json:"value"`
	Owner AccountID `json:"owner"`
}

// =============================================================================

// Tx represents a transfer of value. Its identity is the double hash of its
// canonical encoding.
type Tx struct {
	TxIns  []TxIn  `json:"txins"`
	TxOuts []TxOut `json:"txouts"`
}

// NewTx constructs a new transaction. The slices are copied so the caller
// can't change the transaction after construction.
func NewTx(txIns []TxIn, txOuts []TxOut) Tx {
	ins := make([]TxIn, len(txIns))
	copy(ins, txIns)

	outs := make([]TxOut, len(txOuts))
	copy(outs, txOuts)

	return Tx{
		TxIns:  ins,
		TxOuts: outs,
	}
}

// NewCoinbase constructs the transaction that mints the block subsidy plus
// fees to the payout account. The block height is carried in the unlock
// proof so coinbase transactions for the same account never share an id.
func NewCoinbase(payout AccountID, value uint64, height uint64) Tx {
	proof, _ := hashing.LittleEndian(height, 8)

	txIn := TxIn{
		OutPoint:    nil,
		UnlockProof: proof,
		Sequence:    0,
	}

	txOut := TxOut{
		Value: value,
		Owner: payout,
	}

	return NewTx([]TxIn{txIn}, []TxOut{txOut})
}

// ID returns the double hash of the canonical encoding of the transaction.
func (tx Tx) ID() hashing.Hash {
	data, err := json.Marshal(tx)
	if err != nil {
		return hashing.ZeroHash
	}

	return hashing.DoubleHash(data)
}

// IsCoinbase reports whether this transaction mints new value.
func (tx Tx) IsCoinbase() bool {
	return len(tx.TxIns) == 1 && tx.TxIns[0].OutPoint == nil
}

// OutputTotal sums the value of all the outputs.
func (tx Tx) OutputTotal() (uint64, error) {
	var total uint64
	for _, txOut := range tx.TxOuts {
		sum, carry := bits.Add64(total, txOut.Value, 0)
		if carry != 0 {
			return 0, fmt.Errorf("%w: output total overflows", ErrStructural)
		}
		total = sum
	}

	return total, nil
}

// SpendMessage returns the message the owner of the output referenced by
// the specified input signs. It commits to the outpoint, the sequence, and
// every output of the transaction.
func (tx Tx) SpendMessage(input int) ([]byte, error) {
	if input < 0 || input >= len(tx.TxIns) {
		return nil, fmt.Errorf("input index %d out of range", input)
	}

	txIn := tx.TxIns[input]
	if txIn.OutPoint == nil {
		return nil, fmt.Errorf("input %d is a coinbase input", input)
	}

	outs, err := json.Marshal(tx.TxOuts)
	if err != nil {
		return nil, err
	}

	var data []byte
	data = append(data, txIn.OutPoint.Bytes()...)
	data = append(data, hashing.Uint32LE(txIn.Sequence)...)
	data = append(data, outs...)

	h := hashing.DoubleHash(data)
	return h[:], nil
}

// WithUnlockProof returns a new transaction with the unlock proof of the
// specified input replaced.
func (tx Tx) WithUnlockProof(input int, proof []byte) Tx {
	ntx := NewTx(tx.TxIns, tx.TxOuts)
	ntx.TxIns[input].UnlockProof = append(hexutil.Bytes{}, proof...)
	return ntx
}

// Validate performs the structural checks on the transaction that don't
// require any ledger state.
func (tx Tx) Validate() error {
	if len(tx.TxIns) == 0 {
		return fmt.Errorf("%w: transaction has no inputs", ErrStructural)
	}

	if len(tx.TxOuts) == 0 {
		return fmt.Errorf("%w: transaction has no outputs", ErrStructural)
	}

	seen := make(map[OutPoint]struct{})
	for i, txIn := range tx.TxIns {
		if txIn.OutPoint == nil {
			if !tx.IsCoinbase() {
				return fmt.Errorf("%w: input %d has no outpoint", ErrStructural, i)
			}
			continue
		}

		if _, exists := seen[*txIn.OutPoint]; exists {
			return fmt.Errorf("%w: outpoint %s spent twice", ErrStructural, txIn.OutPoint)
		}
		seen[*txIn.OutPoint] = struct{}{}
	}

	for i, txOut := range tx.TxOuts {
		if !txOut.Owner.IsAccountID() {
			return fmt.Errorf("%w: output %d owner %q is not properly formatted", ErrStructural, i, txOut.Owner)
		}
	}

	if _, err := tx.OutputTotal(); err != nil {
		return err
	}

	return nil
}

// Hash implements the merkle Hashable interface. The leaf of a transaction
// is its id.
func (tx Tx) Hash() ([]byte, error) {
	id := tx.ID()
	return id[:], nil
}

// Equals implements the merkle Hashable interface.
func (tx Tx) Equals(otherTx Tx) bool {
	return tx.ID() == otherTx.ID()
}

// String implements the fmt.Stringer interface for logging.
func (tx Tx) String() string {
	return fmt.Sprintf("%s:in[%d]:out[%d]", tx.ID(), len(tx.TxIns), len(tx.TxOuts))
}
