// This program performs administrative tasks for the ledger service.
package main

import (
	"github.com/ecoledger/ecoledger/app/tooling/admin/cmd"
)

func main() {
	cmd.Execute()
}
