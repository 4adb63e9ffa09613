// Package user provides user management for the service. Users are the
// principals activity records are attributed to.
package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ecoledger/ecoledger/business/sys/auth"
	"github.com/ecoledger/ecoledger/business/sys/validate"
	"golang.org/x/crypto/bcrypt"
)

// Set of error variables for CRUD operations.
var (
	ErrNotFound              = errors.New("user not found")
	ErrUniqueEmail           = errors.New("email is not unique")
	ErrAuthenticationFailure = errors.New("authentication failed")
)

// Storer interface declares the behavior this package needs to persist and
// retrieve data.
type Storer interface {
	Create(ctx context.Context, usr User) error
	QueryByID(ctx context.Context, userID string) (User, error)
	QueryByEmail(ctx context.Context, email string) (User, error)
}

// User represents information about an individual user.
type User struct {
	ID           string
	Name         string
	Email        string
	Role         string
	PasswordHash []byte
	DateCreated  time.Time
	DateUpdated  time.Time
}

// NewUser contains information needed to create a new user.
type NewUser struct {
	Name     string
	Email    string
	Role     string
	Password string
}

// =============================================================================

// Core manages the set of APIs for user access.
type Core struct {
	storer Storer
}

// NewCore constructs a core for user api access.
func NewCore(storer Storer) *Core {
	return &Core{
		storer: storer,
	}
}

// Create adds a new user to the system.
func (c *Core) Create(ctx context.Context, nu NewUser) (User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(nu.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, fmt.Errorf("generating password hash: %w", err)
	}

	role := nu.Role
	if role == "" {
		role = auth.RoleUser
	}

	now := time.Now().UTC()

	usr := User{
		ID:           validate.GenerateID(),
		Name:         nu.Name,
		Email:        strings.ToLower(nu.Email),
		Role:         role,
		PasswordHash: hash,
		DateCreated:  now,
		DateUpdated:  now,
	}

	if err := c.storer.Create(ctx, usr); err != nil {
		return User{}, fmt.Errorf("create: %w", err)
	}

	return usr, nil
}

// QueryByID finds the user by the specified ID.
func (c *Core) QueryByID(ctx context.Context, userID string) (User, error) {
	if err := validate.CheckID(userID); err != nil {
		return User{}, ErrNotFound
	}

	usr, err := c.storer.QueryByID(ctx, userID)
	if err != nil {
		return User{}, fmt.Errorf("query: %w", err)
	}

	return usr, nil
}

// Authenticate finds a user by their email and verifies their password. On
// success it returns the user, otherwise it reports an authentication
// failure without saying which part was wrong.
func (c *Core) Authenticate(ctx context.Context, email string, password string) (User, error) {
	usr, err := c.storer.QueryByEmail(ctx, strings.ToLower(email))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, ErrAuthenticationFailure
		}
		return User{}, fmt.Errorf("query: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword(usr.PasswordHash, []byte(password)); err != nil {
		return User{}, ErrAuthenticationFailure
	}

	return usr, nil
}
