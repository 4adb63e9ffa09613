package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ecoledger/ecoledger/business/core/user"
)

// UserStore provides user persistence over SQLite. This implements the
// user.Storer interface.
type UserStore struct {
	db *sql.DB
}

// NewUserStore constructs a UserStore for use.
func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{
		db: db,
	}
}

// Create inserts the specified user into the database.
func (us *UserStore) Create(ctx context.Context, usr user.User) error {
	const q = `
	INSERT INTO users
		(user_id, name, email, role, password_hash, date_created, date_updated)
	VALUES
		(?, ?, ?, ?, ?, ?, ?)`

	_, err := us.db.ExecContext(ctx, q,
		usr.ID, usr.Name, usr.Email, usr.Role, string(usr.PasswordHash),
		usr.DateCreated.UnixMilli(), usr.DateUpdated.UnixMilli())
	if err != nil {
		if isConstraintError(err) && strings.Contains(strings.ToLower(err.Error()), "users.email") {
			return fmt.Errorf("execcontext: %w", user.ErrUniqueEmail)
		}
		return fmt.Errorf("execcontext: %w", err)
	}

	return nil
}

// QueryByID retrieves the user with the specified id.
func (us *UserStore) QueryByID(ctx context.Context, userID string) (user.User, error) {
	const q = `
	SELECT user_id, name, email, role, password_hash, date_created, date_updated
	FROM users
	WHERE user_id = ?`

	return us.scanUser(us.db.QueryRowContext(ctx, q, userID))
}

// QueryByEmail retrieves the user with the specified email.
func (us *UserStore) QueryByEmail(ctx context.Context, email string) (user.User, error) {
	const q = `
	SELECT user_id, name, email, role, password_hash, date_created, date_updated
	FROM users
	WHERE email = ?`

	return us.scanUser(us.db.QueryRowContext(ctx, q, email))
}

func (us *UserStore) scanUser(row *sql.Row) (user.User, error) {
	var usr user.User
	var hash string
	var created, updated int64

	err := row.Scan(&usr.ID, &usr.Name, &usr.Email, &usr.Role, &hash, &created, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return user.User{}, fmt.Errorf("scan: %w", user.ErrNotFound)
		}
		return user.User{}, fmt.Errorf("scan: %w", err)
	}

	usr.PasswordHash = []byte(hash)
	usr.DateCreated = time.UnixMilli(created).UTC()
	usr.DateUpdated = time.UnixMilli(updated).UTC()

	return usr, nil
}
