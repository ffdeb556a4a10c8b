// Package wallet builds signed transactions that spend the outputs owned
// by a private key.
package wallet

import (
	"bytes"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/bits"
	"sort"
	"strings"

	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
	"github.com/ardanlabs/utxochain/foundation/blockchain/signature"
	"github.com/ardanlabs/utxochain/foundation/blockchain/utxo"
)

// ErrInsufficientFunds is returned when the spendable outputs can't cover
// the value plus the fee.
var ErrInsufficientFunds = errors.New("insufficient funds")

// BuildTransaction selects outputs owned by the key, smallest value first,
// until they cover the value plus the fee. The remainder returns to the
// owner as a change output and every input is signed.
func BuildTransaction(privateKey *ecdsa.PrivateKey, outputs []utxo.UnspentOutput, to database.AccountID, value uint64, fee uint64) (database.Tx, error) {
	if !to.IsAccountID() {
		return database.Tx{}, fmt.Errorf("invalid recipient %q", to)
	}

	if value == 0 {
		return database.Tx{}, errors.New("value must be greater than zero")
	}

	need, carry := bits.Add64(value, fee, 0)
	if carry != 0 {
		return database.Tx{}, errors.New("value plus fee overflows")
	}

	owner := database.PublicKeyToAccountID(privateKey.PublicKey)

	selected, total, err := selectOutputs(owner, outputs, need)
	if err != nil {
		return database.Tx{}, err
	}

	txIns := make([]database.TxIn, len(selected))
	for i, uo := range selected {
		op := uo.OutPoint()
		txIns[i] = database.TxIn{OutPoint: &op}
	}

	txOuts := []database.TxOut{{Value: value, Owner: to}}
	if change := total - need; change > 0 {
		txOuts = append(txOuts, database.TxOut{Value: change, Owner: owner})
	}

	tx := database.NewTx(txIns, txOuts)

	for i := range tx.TxIns {
		msg, err := tx.SpendMessage(i)
		if err != nil {
			return database.Tx{}, err
		}

		proof, err := signature.Sign(msg, privateKey)
		if err != nil {
			return database.Tx{}, fmt.Errorf("sign input %d: %w", i, err)
		}

		tx = tx.WithUnlockProof(i, proof)
	}

	return tx, nil
}

// selectOutputs returns the smallest outputs of the owner whose total
// covers the amount needed.
func selectOutputs(owner database.AccountID, outputs []utxo.UnspentOutput, need uint64) ([]utxo.UnspentOutput, uint64, error) {
	var owned []utxo.UnspentOutput
	for _, uo := range outputs {
		if strings.EqualFold(string(uo.Owner), string(owner)) {
			owned = append(owned, uo)
		}
	}

	sort.Slice(owned, func(i, j int) bool {
		if owned[i].Value != owned[j].Value {
			return owned[i].Value < owned[j].Value
		}
		if c := bytes.Compare(owned[i].TxID[:], owned[j].TxID[:]); c != 0 {
			return c < 0
		}
		return owned[i].Index < owned[j].Index
	})

	var total uint64
	for i, uo := range owned {
		sum, carry := bits.Add64(total, uo.Value, 0)
		if carry != 0 {
			return nil, 0, errors.New("output total overflows")
		}
		total = sum

		if total >= need {
			return owned[:i+1], total, nil
		}
	}

	return nil, 0, fmt.Errorf("%w: need %d, have %d", ErrInsufficientFunds, need, total)
}
