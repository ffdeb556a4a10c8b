// This program is a wallet for the ledger. It manages key files and builds
// signed transactions from the outputs a node reports as spendable.
package main

import "github.com/ardanlabs/utxochain/app/wallet/cli/cmd"

func main() {
	cmd.Execute()
}
