package auth_test

import (
	"testing"
	"time"

	"github.com/ecoledger/ecoledger/business/sys/auth"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func Test_Auth(t *testing.T) {
	t.Log("Given the need to authenticate and authorize access.")
	{
		t.Logf("\tTest 0:\tWhen handling a single user token.")
		{
			a, err := auth.New(auth.Config{
				Secret: "top-secret-test-value",
				Issuer: "ecoledger",
				TTL:    time.Hour,
			})
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to construct the authenticator: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould be able to construct the authenticator.", success)

			token, err := a.GenerateToken("5cf37266-3473-4006-984f-9325122678b7", "Ana Pereira", "ana@example.com", auth.RoleUser)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to generate a token: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould be able to generate a token.", success)

			claims, err := a.Authenticate(token)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to authenticate the token: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould be able to authenticate the token.", success)

			if claims.Subject != "5cf37266-3473-4006-984f-9325122678b7" {
				t.Errorf("\t%s\tTest 0:\tShould carry the user id in the subject: got %q.", failed, claims.Subject)
			} else {
				t.Logf("\t%s\tTest 0:\tShould carry the user id in the subject.", success)
			}

			if claims.Issuer != "ecoledger" || claims.Email != "ana@example.com" || claims.Role != auth.RoleUser {
				t.Errorf("\t%s\tTest 0:\tShould carry the issuer, email and role: got %+v.", failed, claims)
			} else {
				t.Logf("\t%s\tTest 0:\tShould carry the issuer, email and role.", success)
			}

			if !claims.Authorized(auth.RoleUser) {
				t.Errorf("\t%s\tTest 0:\tShould authorize the user role.", failed)
			} else {
				t.Logf("\t%s\tTest 0:\tShould authorize the user role.", success)
			}

			if claims.Authorized(auth.RoleAdmin) {
				t.Errorf("\t%s\tTest 0:\tShould not authorize the admin role.", failed)
			} else {
				t.Logf("\t%s\tTest 0:\tShould not authorize the admin role.", success)
			}
		}

		t.Logf("\tTest 1:\tWhen handling an admin token.")
		{
			a, err := auth.New(auth.Config{
				Secret: "top-secret-test-value",
				Issuer: "ecoledger",
				TTL:    time.Hour,
			})
			if err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to construct the authenticator: %v", failed, err)
			}

			token, err := a.GenerateToken("45b5fbd3-755f-4379-8f07-a58d4a30fa2f", "Admin", "admin@ecoledger.com", auth.RoleAdmin)
			if err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to generate a token: %v", failed, err)
			}

			claims, err := a.Authenticate(token)
			if err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to authenticate the token: %v", failed, err)
			}

			if !claims.Authorized(auth.RoleUser) || !claims.Authorized(auth.RoleAdmin) {
				t.Errorf("\t%s\tTest 1:\tShould authorize every role for an admin.", failed)
			} else {
				t.Logf("\t%s\tTest 1:\tShould authorize every role for an admin.", success)
			}
		}
	}
}

func Test_AuthFailures(t *testing.T) {
	t.Log("Given the need to reject tokens that cannot be trusted.")
	{
		a, err := auth.New(auth.Config{
			Secret: "top-secret-test-value",
			Issuer: "ecoledger",
			TTL:    time.Hour,
		})
		if err != nil {
			t.Fatalf("constructing auth: %v", err)
		}

		t.Logf("\tTest 0:\tWhen the token is signed with a different secret.")
		{
			other, err := auth.New(auth.Config{
				Secret: "a-different-secret",
				Issuer: "ecoledger",
				TTL:    time.Hour,
			})
			if err != nil {
				t.Fatalf("constructing auth: %v", err)
			}

			token, err := other.GenerateToken("user-id", "Eve", "eve@example.com", auth.RoleUser)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to generate a token: %v", failed, err)
			}

			if _, err := a.Authenticate(token); err == nil {
				t.Fatalf("\t%s\tTest 0:\tShould reject a token signed with a different secret.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould reject a token signed with a different secret.", success)
		}

		t.Logf("\tTest 1:\tWhen the token is expired.")
		{
			expired, err := auth.New(auth.Config{
				Secret: "top-secret-test-value",
				Issuer: "ecoledger",
				TTL:    -time.Hour,
			})
			if err != nil {
				t.Fatalf("constructing auth: %v", err)
			}

			token, err := expired.GenerateToken("user-id", "Ana", "ana@example.com", auth.RoleUser)
			if err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to generate a token: %v", failed, err)
			}

			if _, err := a.Authenticate(token); err == nil {
				t.Fatalf("\t%s\tTest 1:\tShould reject an expired token.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould reject an expired token.", success)
		}

		t.Logf("\tTest 2:\tWhen the token is not a token at all.")
		{
			if _, err := a.Authenticate("not-a-token"); err == nil {
				t.Fatalf("\t%s\tTest 2:\tShould reject a malformed token.", failed)
			}
			t.Logf("\t%s\tTest 2:\tShould reject a malformed token.", success)
		}
	}
}
