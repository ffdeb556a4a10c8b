// This program performs administrative tasks for the ledger.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/ardanlabs/utxochain/app/tooling/admin/commands"
	"github.com/ardanlabs/utxochain/foundation/logger"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

func main() {

	// Construct the application logger.
	log, err := logger.New("ADMIN")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	// Perform the startup and shutdown sequence.
	if err := run(log); err != nil {
		log.Errorw("startup", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger) error {
	log.Infow("startup", "version", build)

	return processCommands(os.Args, log)
}

// processCommands handles the execution of the commands specified on
// the command line.
func processCommands(args []string, log *zap.SugaredLogger) error {
	if len(args) < 2 {
		return errors.New("usage: admin genesis [path] | chain [url]")
	}

	switch args[1] {
	case "genesis":
		path := "zblock/genesis.json"
		if len(args) == 3 {
			path = args[2]
		}
		if err := commands.Genesis(path, log); err != nil {
			return fmt.Errorf("mining genesis: %w", err)
		}

	case "chain":
		url := "http://localhost:8080"
		if len(args) == 3 {
			url = args[2]
		}
		if err := commands.Chain(url); err != nil {
			return fmt.Errorf("getting chain: %w", err)
		}

	default:
		return fmt.Errorf("unknown command %q", args[1])
	}

	return nil
}
