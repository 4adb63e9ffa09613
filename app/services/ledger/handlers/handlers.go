// Package handlers manages the different versions of the API.
package handlers

import (
	"context"
	"database/sql"
	"expvar"
	"net/http"
	"net/http/pprof"
	"os"

	"github.com/ecoledger/ecoledger/app/services/ledger/handlers/debug/checkgrp"
	v1 "github.com/ecoledger/ecoledger/app/services/ledger/handlers/v1"
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

// MuxConfig contains all the mandatory systems required by handlers.
type MuxConfig struct {
	Build     string
	Shutdown  chan os.Signal
	Log       *zap.SugaredLogger
	State     *state.State
	DB        *sql.DB
	Auth      *auth.Auth
	User      *user.Core
	Audit     *audit.Core
	Emissions *emissions.Client
	Evts      *events.Events
}

// APIMux constructs a http.Handler with all application routes defined.
func APIMux(cfg MuxConfig) http.Handler {

	// Construct the web.App which holds all routes as well as common Middleware.
	app := web.NewApp(
		cfg.Shutdown,
		mid.Logger(cfg.Log),
		mid.Errors(cfg.Log),
		mid.Metrics(),
		mid.Cors("*"),
		mid.Panics(),
	)

	// Accept CORS 'OPTIONS' preflight requests if config has been provided.
	// Don't forget to apply the CORS middleware to the routes that need it.
	// Example Config: `conf:"default:https://MY_DOMAIN.COM"`
	h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		return nil
	}
	app.Handle(http.MethodOptions, "", "/*", h, mid.Cors("*"))

	// Load the v1 routes.
	v1.Routes(app, v1.Config{
		Build:     cfg.Build,
		Log:       cfg.Log,
		State:     cfg.State,
		DB:        cfg.DB,
		Auth:      cfg.Auth,
		User:      cfg.User,
		Audit:     cfg.Audit,
		Emissions: cfg.Emissions,
		Evts:      cfg.Evts,
	})

	return app
}

// DebugStandardLibraryMux registers all the debug routes from the standard library
// into a new mux bypassing the use of the DefaultServerMux. Using the
// DefaultServerMux would be a security risk since a dependency could inject a
// handler into our service without us knowing it.
func DebugStandardLibraryMux() *http.ServeMux {
	mux := http.NewServeMux()

	// Register all the standard library debug endpoints.
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	mux.Handle("/debug/vars", expvar.Handler())

	return mux
}

// DebugMux registers all the debug standard library routes and then custom
// debug application routes for the service. This bypassing the use of the
// DefaultServerMux. Using the DefaultServerMux would be a security risk since
// a dependency could inject a handler into our service without us knowing it.
func DebugMux(build string, log *zap.SugaredLogger, db *sql.DB) http.Handler {
	mux := DebugStandardLibraryMux()

	// Register debug check endpoints.
	cgh := checkgrp.Handlers{
		Build: build,
		Log:   log,
		DB:    db,
	}
	mux.HandleFunc("/debug/readiness", cgh.Readiness)
	mux.HandleFunc("/debug/liveness", cgh.Liveness)

	return mux
}
