package cmd

import (
	"bytes"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
	"github.com/ardanlabs/utxochain/foundation/blockchain/utxo"
	"github.com/ardanlabs/utxochain/foundation/blockchain/wallet"
	"github.com/ardanlabs/utxochain/foundation/nameservice"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
)

var (
	to    string
	value uint64
	fee   uint64
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send transaction",
	Run: func(cmd *cobra.Command, args []string) {
		privateKey, err := crypto.LoadECDSA(getPrivateKeyPath())
		if err != nil {
			log.Fatal(err)
		}

		sendWithDetails(privateKey)
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringVarP(&to, "to", "t", "", "Account id or key file name of the receiver.")
	sendCmd.Flags().Uint64VarP(&value, "value", "v", 0, "Value to send.")
	sendCmd.Flags().Uint64VarP(&fee, "fee", "f", 0, "Fee left to the miner.")
}

func sendWithDetails(privateKey *ecdsa.PrivateKey) {
	toID, err := resolve(to)
	if err != nil {
		log.Fatal(err)
	}

	accountID := database.PublicKeyToAccountID(privateKey.PublicKey)

	var outputs []utxo.UnspentOutput
	if err := get(fmt.Sprintf("/v1/utxos/list/%s", accountID), &outputs); err != nil {
		log.Fatal(err)
	}

	tx, err := wallet.BuildTransaction(privateKey, outputs, toID, value, fee)
	if err != nil {
		log.Fatal(err)
	}

	data, err := json.Marshal(tx)
	if err != nil {
		log.Fatal(err)
	}

	resp, err := http.Post(fmt.Sprintf("%s/v1/tx/submit", url), "application/json", bytes.NewReader(data))
	if err != nil {
		log.Fatal(err)
	}
	defer resp.Body.Close()

	var status struct {
		Status string `json:"status"`
		ID     string `json:"id"`
	}
	if err := decode(resp, &status); err != nil {
		log.Fatal(err)
	}

	fmt.Println(status.Status, status.ID)
}

// resolve accepts an account id or the name of a key file in the
// account path.
func resolve(receiver string) (database.AccountID, error) {
	if id, err := database.ToAccountID(receiver); err == nil {
		return id, nil
	}

	ns, err := nameservice.New(accountPath)
	if err != nil {
		return "", err
	}

	id, exists := ns.AccountID(receiver)
	if !exists {
		return "", fmt.Errorf("unknown receiver %q", receiver)
	}

	return id, nil
}
