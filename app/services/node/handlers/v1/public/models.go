package public

import (
	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
	"github.com/ardanlabs/utxochain/foundation/blockchain/hashing"
)

type output struct {
	Value     uint64             `json:"value"`
	Owner     database.AccountID `json:"owner"`
	OwnerName string             `json:"owner_name"`
}

type input struct {
	OutPoint *database.OutPoint `json:"outpoint,omitempty"`
	Proof    string             `json:"unlock_proof"`
}

type tx struct {
	ID         hashing.Hash `json:"id"`
	IsCoinbase bool         `json:"is_coinbase"`
	Inputs     []input      `json:"inputs"`
	Outputs    []output     `json:"outputs"`
}

type block struct {
	ID            hashing.Hash `json:"id"`
	Height        int          `json:"height"`
	Chain         int          `json:"chain"`
	Version       uint32       `json:"version"`
	PrevBlockHash hashing.Hash `json:"prev_block_hash"`
	MerkleRoot    hashing.Hash `json:"merkle_root"`
	TimeStamp     uint32       `json:"timestamp"`
	NBits         uint32       `json:"nbits"`
	Nonce         uint32       `json:"nonce"`
	Trans         []tx         `json:"trans"`
}

type accountInfo struct {
	Account   database.AccountID `json:"account"`
	Name      string             `json:"name"`
	Balance   uint64             `json:"balance"`
	Spendable uint64             `json:"spendable"`
	Outputs   int                `json:"outputs"`
}

type accounts struct {
	LatestBlock hashing.Hash  `json:"latest_block"`
	Uncommitted int           `json:"uncommitted"`
	Accounts    []accountInfo `json:"accounts"`
}
