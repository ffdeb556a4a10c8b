package state

import (
	"errors"
	"fmt"
	"math/bits"

	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
	"github.com/ardanlabs/utxochain/foundation/blockchain/signature"
)

// Set of error variables for transaction admission.
var (
	// ErrCoinbase is returned when a coinbase transaction is submitted on
	// its own. A coinbase only exists inside a block.
	ErrCoinbase = errors.New("coinbase transactions can't be submitted")

	// ErrDoubleSpend is returned when an input is already spent by a
	// transaction waiting in the mempool.
	ErrDoubleSpend = errors.New("output already spent by a pending transaction")
)

// SubmitWalletTransaction accepts a transaction from a wallet for inclusion
// and shares it with the known peers.
func (s *State) SubmitWalletTransaction(tx database.Tx) error {
	if err := s.validateTransaction(tx); err != nil {
		return err
	}

	if !s.mempool.Add(tx, false) {
		s.evHandler("state: SubmitWalletTransaction: tx[%s]: duplicate", tx.ID())
		return nil
	}

	s.evHandler("state: SubmitWalletTransaction: tx[%s]: added to mempool", tx.ID())

	s.Worker.SignalShareTx(tx)
	s.Worker.SignalStartMining()

	return nil
}

// SubmitNodeTransaction accepts a transaction from a peer for inclusion. It
// isn't shared again since the peer did that.
func (s *State) SubmitNodeTransaction(tx database.Tx) error {
	if err := s.validateTransaction(tx); err != nil {
		return err
	}

	if !s.mempool.Add(tx, false) {
		return nil
	}

	s.evHandler("state: SubmitNodeTransaction: tx[%s]: added to mempool", tx.ID())

	s.Worker.SignalStartMining()

	return nil
}

// =============================================================================

// validateTransaction checks the structure of the transaction, that every
// input resolves to an output of the ledger or of a pending transaction not
// spent by another pending transaction, that every unlock proof verifies
// against the owner of the output, and that no value is created.
func (s *State) validateTransaction(tx database.Tx) error {
	if err := tx.Validate(); err != nil {
		return err
	}

	if tx.IsCoinbase() {
		return ErrCoinbase
	}

	id := tx.ID()

	var in uint64
	for i, txIn := range tx.TxIns {
		op := *txIn.OutPoint

		uo, exists := s.utxos.Get(op)
		if !exists {
			if uo, exists = s.mempool.FindUTXO(op); !exists {
				return fmt.Errorf("%w: input %d: %s", database.ErrUnresolved, i, op)
			}
		}

		if spender, spent := s.mempool.Spends(op); spent && spender != id {
			return fmt.Errorf("%w: input %d: %s by tx[%s]", ErrDoubleSpend, i, op, spender)
		}

		msg, err := tx.SpendMessage(i)
		if err != nil {
			return err
		}

		if err := signature.Verify(msg, txIn.UnlockProof, string(uo.Owner)); err != nil {
			return fmt.Errorf("input %d: %w", i, err)
		}

		sum, carry := bits.Add64(in, uo.Value, 0)
		if carry != 0 {
			return fmt.Errorf("%w: input total overflows", database.ErrStructural)
		}
		in = sum
	}

	out, err := tx.OutputTotal()
	if err != nil {
		return err
	}

	if out > in {
		return fmt.Errorf("%w: spends %d, has %d", database.ErrOverspend, out, in)
	}

	return nil
}
