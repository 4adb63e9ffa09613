// Package v1 contains the full set of handler functions and routes
// supported by the v1 web api.
package v1

import (
	"database/sql"
	"net/http"

	"github.com/ecoledger/ecoledger/app/services/ledger/handlers/v1/activitygrp"
	"github.com/ecoledger/ecoledger/app/services/ledger/handlers/v1/auditgrp"
	"github.com/ecoledger/ecoledger/app/services/ledger/handlers/v1/chaingrp"
	"github.com/ecoledger/ecoledger/app/services/ledger/handlers/v1/healthgrp"
	"github.com/ecoledger/ecoledger/app/services/ledger/handlers/v1/usergrp"
	"github.com/ecoledger/ecoledger/business/core/audit"
	"github.com/ecoledger/ecoledger/business/core/user"
	"github.com/ecoledger/ecoledger/business/sys/auth"
	"github.com/ecoledger/ecoledger/business/web/mid"
	"github.com/ecoledger/ecoledger/foundation/emissions"
	"github.com/ecoledger/ecoledger/foundation/events"
	"github.com/ecoledger/ecoledger/foundation/ledger/state"
	"github.com/ecoledger/ecoledger/foundation/web"
	"go.uber.org/zap"
)

const version = "v1"

// Config contains all the mandatory systems required by handlers.
type Config struct {
	Build     string
	Log       *zap.SugaredLogger
	State     *state.State
	DB        *sql.DB
	Auth      *auth.Auth
	User      *user.Core
	Audit     *audit.Core
	Emissions *emissions.Client
	Evts      *events.Events
}

// Routes binds all the version 1 routes.
func Routes(app *web.App, cfg Config) {
	authen := mid.Authenticate(cfg.Auth)
	admin := mid.Authorize(auth.RoleAdmin)

	hgh := healthgrp.Handlers{
		Build: cfg.Build,
		Log:   cfg.Log,
		DB:    cfg.DB,
		State: cfg.State,
	}
	app.Handle(http.MethodGet, version, "/health", hgh.Health)

	ugh := usergrp.Handlers{
		Log:   cfg.Log,
		User:  cfg.User,
		Auth:  cfg.Auth,
		Audit: cfg.Audit,
	}
	app.Handle(http.MethodPost, version, "/users", ugh.Create)
	app.Handle(http.MethodPost, version, "/users/token", ugh.Token)
	app.Handle(http.MethodGet, version, "/users/me", ugh.Me, authen)

	agh := activitygrp.Handlers{
		Log:       cfg.Log,
		State:     cfg.State,
		Emissions: cfg.Emissions,
		Audit:     cfg.Audit,
	}
	app.Handle(http.MethodGet, version, "/activities/kinds", agh.Kinds)
	app.Handle(http.MethodPost, version, "/activities/estimate", agh.Estimate)
	app.Handle(http.MethodGet, version, "/factors/search", agh.SearchFactors)
	app.Handle(http.MethodPost, version, "/activities", agh.Create, authen)
	app.Handle(http.MethodGet, version, "/activities", agh.Query, authen)
	app.Handle(http.MethodGet, version, "/activities/summary", agh.Summary, authen)
	app.Handle(http.MethodGet, version, "/activities/:id", agh.QueryByID, authen)

	cgh := chaingrp.Handlers{
		Log:   cfg.Log,
		State: cfg.State,
		Audit: cfg.Audit,
		Evts:  cfg.Evts,
	}
	app.Handle(http.MethodGet, version, "/chain/genesis", cgh.Genesis)
	app.Handle(http.MethodGet, version, "/chain/verify", cgh.Verify)
	app.Handle(http.MethodGet, version, "/chain/verify/:owner", cgh.VerifyOwner, authen)
	app.Handle(http.MethodGet, version, "/chain/events", cgh.Events)

	adg := auditgrp.Handlers{
		Log:   cfg.Log,
		Audit: cfg.Audit,
	}
	app.Handle(http.MethodGet, version, "/audit", adg.Query, authen, admin)
}
