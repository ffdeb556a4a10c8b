// Package database defines the ledger entities of the blockchain: blocks,
// transactions, their inputs and outputs, and the rules for their identity.
package database

import "errors"

// Set of error variables for the ledger entities.
var (
	// ErrStructural is returned when an entity is malformed and can't be
	// considered by the mempool or the chain.
	ErrStructural = errors.New("structural error")

	// ErrUnresolved is returned when a transaction input can't be resolved
	// to an existing output.
	ErrUnresolved = errors.New("unresolved dependency")

	// ErrOverspend is returned when a transaction sends more value than its
	// inputs provide.
	ErrOverspend = errors.New("outputs exceed inputs")
)
