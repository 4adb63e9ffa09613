// Package chaingrp maintains the group of handlers for chain integrity
// access, the genesis document and the event feed.
package chaingrp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ecoledger/ecoledger/business/core/audit"
	"github.com/ecoledger/ecoledger/business/sys/auth"
	"github.com/ecoledger/ecoledger/business/web/errs"
	"github.com/ecoledger/ecoledger/foundation/events"
	ledgerdb "github.com/ecoledger/ecoledger/foundation/ledger/database"
	"github.com/ecoledger/ecoledger/foundation/ledger/state"
	"github.com/ecoledger/ecoledger/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handlers manages the set of chain endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	State *state.State
	Audit *audit.Core
	WS    websocket.Upgrader
	Evts  *events.Events
}

// Genesis returns the ledger's genesis document.
func (h Handlers) Genesis(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	gen := h.State.Genesis()
	return web.Respond(ctx, w, gen, http.StatusOK)
}

// Verify replays the whole chain and reports the first broken record, if
// any. Anyone can run it, tamper evidence is not a privilege.
func (h Handlers) Verify(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	report, err := h.State.VerifyAll(ctx)
	if err != nil {
		if errors.Is(err, ledgerdb.ErrStoreUnavailable) {
			return errs.NewTrusted(err, http.StatusServiceUnavailable)
		}
		return fmt.Errorf("verifying chain: %w", err)
	}

	actor := "anonymous"
	if claims, err := auth.GetClaims(ctx); err == nil {
		actor = claims.Subject
	}

	h.Audit.Record(ctx, audit.Event{
		Actor:       actor,
		Action:      audit.ActionVerify,
		Entity:      "chain",
		Description: report.Message,
		IPAddress:   r.RemoteAddr,
	})

	return web.Respond(ctx, w, toAppReport(report), http.StatusOK)
}

// VerifyOwner checks that the specified owner's records still reproduce
// their stored digests. Owners can check themselves, admins anyone.
func (h Handlers) VerifyOwner(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	claims, err := auth.GetClaims(ctx)
	if err != nil {
		return errs.NewTrusted(errors.New("not authorized"), http.StatusUnauthorized)
	}

	owner := web.Param(r, "owner")
	if owner != claims.Subject && !claims.Authorized(auth.RoleAdmin) {
		return errs.NewTrusted(auth.ErrForbidden, http.StatusForbidden)
	}

	report, err := h.State.VerifyOwner(ctx, owner)
	if err != nil {
		switch {
		case errors.Is(err, state.ErrInvalidOwner):
			return errs.NewTrusted(err, http.StatusBadRequest)
		case errors.Is(err, ledgerdb.ErrStoreUnavailable):
			return errs.NewTrusted(err, http.StatusServiceUnavailable)
		default:
			return fmt.Errorf("verifying owner: %s: %w", owner, err)
		}
	}

	h.Audit.Record(ctx, audit.Event{
		Actor:       claims.Subject,
		Action:      audit.ActionVerify,
		Entity:      "chain",
		EntityID:    owner,
		Description: report.Message,
		IPAddress:   r.RemoteAddr,
	})

	return web.Respond(ctx, w, toAppReport(report), http.StatusOK)
}

// Events handles a web socket to provide events to a client.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	ch := h.Evts.Acquire(v.TraceID)
	defer h.Evts.Release(v.TraceID)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, wd := <-ch:
			if !wd {
				return nil
			}

			if err := c.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return err
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}
