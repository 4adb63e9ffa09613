// Package cmd contains the admin commands for the ledger service.
package cmd

import (
	"database/sql"
	"os"

	"github.com/ecoledger/ecoledger/business/sys/database"
	"github.com/ecoledger/ecoledger/foundation/ledger/genesis"
	"github.com/ecoledger/ecoledger/foundation/ledger/state"
	"github.com/spf13/cobra"
)

var (
	dbPath      string
	genesisPath string
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "zledger/ledger.db", "Path to the ledger database.")
	rootCmd.PersistentFlags().StringVarP(&genesisPath, "genesis", "g", "zledger/genesis.json", "Path to the genesis document.")
}

var rootCmd = &cobra.Command{
	Use:   "admin",
	Short: "Administrative tooling for the ledger service",
}

// Execute runs the command specified on the command line.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// openDatabase opens the ledger database and brings the schema up to date.
func openDatabase() (*sql.DB, error) {
	db, err := database.Open(database.Config{Path: dbPath})
	if err != nil {
		return nil, err
	}

	if err := database.Migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// openState loads the genesis document and hydrates the chain state on top
// of the specified database handle.
func openState(db *sql.DB) (*state.State, error) {
	gen, err := genesis.Load(genesisPath)
	if err != nil {
		return nil, err
	}

	return state.New(state.Config{
		Genesis: gen,
		Storage: database.NewLedgerStore(db),
	})
}
