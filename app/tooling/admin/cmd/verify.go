package cmd

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/ecoledger/ecoledger/foundation/ledger/state"
	"github.com/spf13/cobra"
)

var verifyOwner string

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Re-walk the record chain and report tampering",
	Run:   verifyRun,
}

func init() {
	rootCmd.AddCommand(verifyCmd)
	verifyCmd.Flags().StringVarP(&verifyOwner, "owner", "o", "", "Verify only the records of this owner.")
}

func verifyRun(cmd *cobra.Command, args []string) {
	db, err := openDatabase()
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	st, err := openState(db)
	if err != nil {
		log.Fatal(err)
	}
	defer st.Shutdown()

	ctx := context.Background()

	var report state.VerifyReport
	if verifyOwner != "" {
		report, err = st.VerifyOwner(ctx, verifyOwner)
	} else {
		report, err = st.VerifyAll(ctx)
	}
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println("scope:", report.Scope)
	if report.Owner != "" {
		fmt.Println("owner:", report.Owner)
	}
	fmt.Println("records:", report.TotalRecords)
	fmt.Println("status:", report.Message)

	if !report.Valid {
		fmt.Println("failing record:", report.FailingRecordID)
		os.Exit(1)
	}
}
