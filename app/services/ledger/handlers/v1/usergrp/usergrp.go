// Package usergrp maintains the group of handlers for user access.
package usergrp

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/ecoledger/ecoledger/business/core/audit"
	"github.com/ecoledger/ecoledger/business/core/user"
	"github.com/ecoledger/ecoledger/business/sys/auth"
	"github.com/ecoledger/ecoledger/business/web/errs"
	"github.com/ecoledger/ecoledger/foundation/web"
	"go.uber.org/zap"
)

// Handlers manages the set of user endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	User  *user.Core
	Auth  *auth.Auth
	Audit *audit.Core
}

// Create registers a new user. Registration always produces a plain user,
// admins are minted with the admin tooling.
func (h Handlers) Create(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var app AppNewUser
	if err := web.Decode(r, &app); err != nil {
		return fmt.Errorf("unable to decode payload: %w", err)
	}

	usr, err := h.User.Create(ctx, user.NewUser{
		Name:     app.Name,
		Email:    app.Email,
		Password: app.Password,
		Role:     auth.RoleUser,
	})
	if err != nil {
		if errors.Is(err, user.ErrUniqueEmail) {
			return errs.NewTrusted(err, http.StatusConflict)
		}
		return fmt.Errorf("creating user: email[%s]: %w", app.Email, err)
	}

	h.Log.Infow("user registered", "traceid", v.TraceID, "userid", usr.ID, "email", usr.Email)

	h.Audit.Record(ctx, audit.Event{
		Actor:       usr.ID,
		Action:      audit.ActionRegister,
		Entity:      "user",
		EntityID:    usr.ID,
		Description: fmt.Sprintf("registered email[%s]", usr.Email),
		IPAddress:   r.RemoteAddr,
	})

	return web.Respond(ctx, w, toAppUser(usr), http.StatusCreated)
}

// Token exchanges the credentials in the Basic auth header for a signed JWT.
func (h Handlers) Token(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	email, pass, ok := r.BasicAuth()
	if !ok {
		err := errors.New("must provide email and password in Basic auth")
		return errs.NewTrusted(err, http.StatusUnauthorized)
	}

	usr, err := h.User.Authenticate(ctx, email, pass)
	if err != nil {
		switch {
		case errors.Is(err, user.ErrAuthenticationFailure):
			return errs.NewTrusted(err, http.StatusUnauthorized)
		default:
			return fmt.Errorf("authenticating: %w", err)
		}
	}

	token, err := h.Auth.GenerateToken(usr.ID, usr.Name, usr.Email, usr.Role)
	if err != nil {
		return fmt.Errorf("generating token: %w", err)
	}

	h.Audit.Record(ctx, audit.Event{
		Actor:       usr.ID,
		Action:      audit.ActionLogin,
		Entity:      "user",
		EntityID:    usr.ID,
		Description: "token issued",
		IPAddress:   r.RemoteAddr,
	})

	tkn := struct {
		Token string `json:"token"`
	}{
		Token: token,
	}

	return web.Respond(ctx, w, tkn, http.StatusOK)
}

// Me returns the profile of the authenticated caller.
func (h Handlers) Me(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	claims, err := auth.GetClaims(ctx)
	if err != nil {
		return errs.NewTrusted(errors.New("not authorized"), http.StatusUnauthorized)
	}

	usr, err := h.User.QueryByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return errs.NewTrusted(err, http.StatusNotFound)
		}
		return fmt.Errorf("querying user: id[%s]: %w", claims.Subject, err)
	}

	return web.Respond(ctx, w, toAppUser(usr), http.StatusOK)
}
