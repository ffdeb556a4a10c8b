package cmd

import (
	"fmt"
	"log"

	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
)

type accountInfo struct {
	Account   string `json:"account"`
	Name      string `json:"name"`
	Balance   uint64 `json:"balance"`
	Spendable uint64 `json:"spendable"`
	Outputs   int    `json:"outputs"`
}

type accounts struct {
	LatestBlock string        `json:"latest_block"`
	Uncommitted int           `json:"uncommitted"`
	Accounts    []accountInfo `json:"accounts"`
}

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Print your balance.",
	Run:   balanceRun,
}

func init() {
	rootCmd.AddCommand(balanceCmd)
}

func balanceRun(cmd *cobra.Command, args []string) {
	privateKey, err := crypto.LoadECDSA(getPrivateKeyPath())
	if err != nil {
		log.Fatal(err)
	}

	accountID := database.PublicKeyToAccountID(privateKey.PublicKey)
	fmt.Println("For Account:", accountID)

	var acts accounts
	if err := get(fmt.Sprintf("/v1/accounts/list/%s", accountID), &acts); err != nil {
		log.Fatal(err)
	}

	fmt.Println("Latest Block:", acts.LatestBlock)
	for _, act := range acts.Accounts {
		fmt.Printf("Balance: %d  Spendable: %d  Outputs: %d\n", act.Balance, act.Spendable, act.Outputs)
	}
}
