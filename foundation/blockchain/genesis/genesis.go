// Package genesis maintains access to the genesis file.
package genesis

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
	"gopkg.in/yaml.v2"
)

// Genesis represents the genesis file. Every node mines the same genesis
// block from these values.
type Genesis struct {
	Date          time.Time          `json:"date" yaml:"date"`                       // Timestamp of the genesis block.
	ChainID       uint16             `json:"chain_id" yaml:"chain_id"`               // The chain id represents an unique id for this running instance.
	Version       uint32             `json:"version" yaml:"version"`                 // Version written in every block header.
	NBits         uint32             `json:"nbits" yaml:"nbits"`                     // Compact proof of work target every block must meet.
	Subsidy       uint64             `json:"subsidy" yaml:"subsidy"`                 // Value a coinbase may mint on top of the fees.
	TransPerBlock uint16             `json:"trans_per_block" yaml:"trans_per_block"` // The maximum number of transactions that can be in a block, 0 means no limit.
	Payout        database.AccountID `json:"payout" yaml:"payout"`                   // Account receiving the genesis coinbase.
}

// Load opens and consumes the genesis file. Files ending in .yaml or .yml
// are read as YAML, anything else as JSON.
func Load(path string) (Genesis, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Genesis{}, err
	}

	var genesis Genesis
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(content, &genesis)
	default:
		err = json.Unmarshal(content, &genesis)
	}
	if err != nil {
		return Genesis{}, fmt.Errorf("unable to parse %s: %w", path, err)
	}

	if err := genesis.Validate(); err != nil {
		return Genesis{}, err
	}

	return genesis, nil
}

// Validate checks the genesis values are usable.
func (g Genesis) Validate() error {
	if g.Date.IsZero() {
		return errors.New("genesis date is required")
	}

	if g.Date.Unix() < 0 || g.Date.Unix() > int64(^uint32(0)) {
		return fmt.Errorf("genesis date %s doesn't fit in a block timestamp", g.Date)
	}

	if g.NBits == 0 {
		return errors.New("genesis nbits is required")
	}

	if !g.Payout.IsAccountID() {
		return fmt.Errorf("genesis payout %q is not properly formatted", g.Payout)
	}

	return nil
}

// TimeStamp returns the genesis date as a block timestamp.
func (g Genesis) TimeStamp() uint32 {
	return uint32(g.Date.UTC().Unix())
}
