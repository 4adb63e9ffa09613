// Package auth provides authentication and authorization support.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Set of known roles.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// ErrForbidden is returned when an authenticated caller lacks the role an
// endpoint requires.
var ErrForbidden = errors.New("attempted action is not allowed")

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.RegisteredClaims
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Authorized checks the claims cover the specified role. The admin role
// covers every role.
func (c Claims) Authorized(role string) bool {
	if c.Role == RoleAdmin {
		return true
	}

	return c.Role == role
}

// =============================================================================

// Config represents information required to construct an Auth.
type Config struct {
	Secret string
	Issuer string
	TTL    time.Duration
}

// Auth is used to authenticate clients. Tokens are signed with a symmetric
// secret shared by every instance of the service.
type Auth struct {
	secret []byte
	issuer string
	ttl    time.Duration
	method jwt.SigningMethod
	parser *jwt.Parser
}

// New creates an Auth to support authentication/authorization.
func New(cfg Config) (*Auth, error) {
	if cfg.Secret == "" {
		return nil, errors.New("secret is required")
	}

	a := Auth{
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
		ttl:    cfg.TTL,
		method: jwt.SigningMethodHS256,
		parser: jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name})),
	}

	return &a, nil
}

// GenerateToken generates a signed JWT token string representing the
// user Claims.
func (a *Auth) GenerateToken(userID string, name string, email string, role string) (string, error) {
	now := time.Now().UTC()

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    a.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
		Name:  name,
		Email: email,
		Role:  role,
	}

	token := jwt.NewWithClaims(a.method, claims)
	str, err := token.SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}

	return str, nil
}

// Authenticate processes the token to validate the sender's token is valid.
func (a *Auth) Authenticate(tokenStr string) (Claims, error) {
	var claims Claims
	token, err := a.parser.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	})
	if err != nil {
		return Claims{}, fmt.Errorf("parsing token: %w", err)
	}

	if !token.Valid {
		return Claims{}, errors.New("invalid token")
	}

	return claims, nil
}
