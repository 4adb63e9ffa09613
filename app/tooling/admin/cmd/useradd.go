package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/ecoledger/ecoledger/business/core/user"
	"github.com/ecoledger/ecoledger/business/sys/auth"
	"github.com/ecoledger/ecoledger/business/sys/database"
	"github.com/spf13/cobra"
)

var (
	userName     string
	userEmail    string
	userPassword string
	userRole     string
)

var useraddCmd = &cobra.Command{
	Use:   "useradd",
	Short: "Add a user to the service",
	Run:   useraddRun,
}

func init() {
	rootCmd.AddCommand(useraddCmd)
	useraddCmd.Flags().StringVarP(&userName, "name", "n", "Admin", "Name of the user.")
	useraddCmd.Flags().StringVarP(&userEmail, "email", "e", "admin@ecoledger.com", "Email of the user.")
	useraddCmd.Flags().StringVarP(&userPassword, "password", "p", "Administrator", "Password for the user.")
	useraddCmd.Flags().StringVarP(&userRole, "role", "r", auth.RoleAdmin, "Role of the user, admin or user.")
}

func useraddRun(cmd *cobra.Command, args []string) {
	if userRole != auth.RoleAdmin && userRole != auth.RoleUser {
		log.Fatalf("invalid role %q, must be %s or %s", userRole, auth.RoleAdmin, auth.RoleUser)
	}

	db, err := openDatabase()
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	core := user.NewCore(database.NewUserStore(db))

	usr, err := core.Create(context.Background(), user.NewUser{
		Name:     userName,
		Email:    userEmail,
		Role:     userRole,
		Password: userPassword,
	})
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println("user created")
	fmt.Println("id:", usr.ID)
	fmt.Println("email:", usr.Email)
	fmt.Println("role:", usr.Role)
}
