package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/ecoledger/ecoledger/business/core/user"
	"github.com/ecoledger/ecoledger/business/sys/auth"
	"github.com/ecoledger/ecoledger/business/sys/database"
	"github.com/ecoledger/ecoledger/foundation/emissions"
	ledgerdb "github.com/ecoledger/ecoledger/foundation/ledger/database"
	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the database with demo users and activity records",
	Run:   seedRun,
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

// seedFactors holds offline emission factors in kg per unit so seeding does
// not need the calculator service.
var seedFactors = map[string]float64{
	"car":         0.192,
	"motorcycle":  0.084,
	"bus":         0.089,
	"electricity": 0.85,
}

type seedActivity struct {
	kind        string
	quantity    float64
	description string
}

func seedRun(cmd *cobra.Command, args []string) {
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

	core := user.NewCore(database.NewUserStore(db))
	ctx := context.Background()

	admin, err := core.Create(ctx, user.NewUser{
		Name:     "Admin",
		Email:    "admin@ecoledger.com",
		Role:     auth.RoleAdmin,
		Password: "Administrator",
	})
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("admin created:", admin.Email)

	demo := []struct {
		user       user.NewUser
		activities []seedActivity
	}{
		{
			user: user.NewUser{Name: "Ana Pereira", Email: "ana@example.com", Role: auth.RoleUser, Password: "gophers123"},
			activities: []seedActivity{
				{kind: "car", quantity: 12.5, description: "commute to the office"},
				{kind: "bus", quantity: 30, description: "airport shuttle"},
				{kind: "electricity", quantity: 210, description: "april electricity bill"},
			},
		},
		{
			user: user.NewUser{Name: "Bruno Costa", Email: "bruno@example.com", Role: auth.RoleUser, Password: "gophers123"},
			activities: []seedActivity{
				{kind: "motorcycle", quantity: 8, description: "grocery run"},
				{kind: "car", quantity: 220, description: "weekend trip"},
			},
		},
	}

	for _, d := range demo {
		usr, err := core.Create(ctx, d.user)
		if err != nil {
			log.Fatal(err)
		}

		for _, act := range d.activities {
			factor, err := emissions.Lookup(act.kind)
			if err != nil {
				log.Fatal(err)
			}

			record, err := st.Append(ctx, ledgerdb.Activity{
				Owner:        usr.ID,
				Kind:         act.kind,
				Emission:     seedFactors[act.kind] * act.quantity,
				EmissionUnit: st.Genesis().EmissionUnit,
				Quantity:     act.quantity,
				QuantityUnit: factor.Unit(),
				FactorID:     factor.ActivityID,
				Description:  act.description,
			})
			if err != nil {
				log.Fatal(err)
			}

			fmt.Printf("record %d: %s %s %.3f %s\n", record.ID, usr.Email, act.kind, record.Emission, record.EmissionUnit)
		}
	}

	fmt.Println("seeding complete")
}
