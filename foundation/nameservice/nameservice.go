// Package nameservice reads the zblock/accounts folder and creates a name
// service lookup for the account ids owning outputs.
package nameservice

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
	"github.com/ethereum/go-ethereum/crypto"
)

// keyExtension is the file extension of the private key files.
const keyExtension = ".ecdsa"

// NameService maintains a map of account ids for name lookup.
type NameService struct {
	accounts map[database.AccountID]string
}

// New constructs a name service with the accounts of every key file found
// under the root folder. The name is the key file name.
func New(root string) (*NameService, error) {
	ns := NameService{
		accounts: make(map[database.AccountID]string),
	}

	fn := func(fileName string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("walkdir failure: %w", err)
		}

		if d.IsDir() || filepath.Ext(fileName) != keyExtension {
			return nil
		}

		privateKey, err := crypto.LoadECDSA(fileName)
		if err != nil {
			return fmt.Errorf("loading %s: %w", fileName, err)
		}

		accountID := database.PublicKeyToAccountID(privateKey.PublicKey)
		ns.accounts[accountID] = strings.TrimSuffix(filepath.Base(fileName), keyExtension)

		return nil
	}

	if err := filepath.WalkDir(root, fn); err != nil {
		return nil, fmt.Errorf("walking directory: %w", err)
	}

	return &ns, nil
}

// Lookup returns the name for the specified account id. Unknown ids are
// returned as is.
func (ns *NameService) Lookup(accountID database.AccountID) string {
	for id, name := range ns.accounts {
		if strings.EqualFold(string(id), string(accountID)) {
			return name
		}
	}
	return string(accountID)
}

// AccountID returns the account id registered under the name.
func (ns *NameService) AccountID(name string) (database.AccountID, bool) {
	for id, n := range ns.accounts {
		if n == name {
			return id, true
		}
	}
	return "", false
}

// Copy returns a copy of the map of names and account ids.
func (ns *NameService) Copy() map[database.AccountID]string {
	cpy := make(map[database.AccountID]string, len(ns.accounts))
	for accountID, name := range ns.accounts {
		cpy[accountID] = name
	}
	return cpy
}
