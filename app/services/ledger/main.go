package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ardanlabs/conf/v3"
	"github.com/ecoledger/ecoledger/app/services/ledger/handlers"
	"github.com/ecoledger/ecoledger/business/core/audit"
	"github.com/ecoledger/ecoledger/business/core/user"
	"github.com/ecoledger/ecoledger/business/sys/auth"
	"github.com/ecoledger/ecoledger/business/sys/database"
	"github.com/ecoledger/ecoledger/foundation/emissions"
	"github.com/ecoledger/ecoledger/foundation/events"
	"github.com/ecoledger/ecoledger/foundation/ledger/genesis"
	"github.com/ecoledger/ecoledger/foundation/ledger/state"
	"github.com/ecoledger/ecoledger/foundation/ledger/worker"
	"github.com/ecoledger/ecoledger/foundation/logger"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

func main() {

	// Construct the application logger.
	log, err := logger.New("LEDGER")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	// Perform the startup and shutdown sequence.
	if err := run(log); err != nil {
		log.Errorw("startup", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger) error {

	// =========================================================================
	// Configuration

	cfg := struct {
		conf.Version
		Web struct {
			ReadTimeout     time.Duration `conf:"default:5s"`
			WriteTimeout    time.Duration `conf:"default:10s"`
			IdleTimeout     time.Duration `conf:"default:120s"`
			ShutdownTimeout time.Duration `conf:"default:20s"`
			APIHost         string        `conf:"default:0.0.0.0:3000"`
			DebugHost       string        `conf:"default:0.0.0.0:4000"`
		}
		DB struct {
			Path string `conf:"default:zledger/ledger.db"`
		}
		Ledger struct {
			GenesisPath   string        `conf:"default:zledger/genesis.json"`
			SweepInterval time.Duration `conf:"default:1h"`
		}
		Auth struct {
			Secret string        `conf:"default:dev-only-do-not-use-in-production,mask"`
			Issuer string        `conf:"default:ecoledger"`
			TTL    time.Duration `conf:"default:24h"`
		}
		Emissions struct {
			URL         string        `conf:"default:https://api.climatiq.io/data/v1"`
			APIKey      string        `conf:"mask"`
			DataVersion string        `conf:"default:^29"`
			Timeout     time.Duration `conf:"default:10s"`
		}
	}{
		Version: conf.Version{
			Build: build,
			Desc:  "copyright information here",
		},
	}

	const prefix = "LEDGER"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	// =========================================================================
	// App Starting

	log.Infow("starting service", "version", build)
	defer log.Infow("shutdown complete")

	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Infow("startup", "config", out)

	// =========================================================================
	// Genesis Support

	// The genesis document pins the ledger identity and the digest contract.
	// Refusing to start without it beats silently minting a second ledger.
	gen, err := genesis.Load(cfg.Ledger.GenesisPath)
	if err != nil {
		return fmt.Errorf("unable to load genesis document: %w", err)
	}

	log.Infow("startup", "status", "genesis loaded", "ledger", gen.Name, "digestscheme", gen.DigestScheme)

	// =========================================================================
	// Database Support

	log.Infow("startup", "status", "initializing database support", "path", cfg.DB.Path)

	db, err := database.Open(database.Config{Path: cfg.DB.Path})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Infow("shutdown", "status", "stopping database support", "path", cfg.DB.Path)
		db.Close()
	}()

	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}

	// =========================================================================
	// Ledger Support

	// The events package allows websocket clients to follow what the chain
	// is doing in real time.
	evts := events.New()

	// The ledger packages accept a function of this signature to allow the
	// application to log. These raw messages are also sent to any websocket
	// client that is connected into the system through the events package.
	ev := func(v string, args ...any) {
		s := fmt.Sprintf(v, args...)
		log.Infow(s, "traceid", "00000000-0000-0000-0000-000000000000")
		evts.Send(s)
	}

	// The state value manages the record chain and provides an API for
	// application support.
	st, err := state.New(state.Config{
		Genesis:   gen,
		Storage:   database.NewLedgerStore(db),
		EvHandler: ev,
	})
	if err != nil {
		return err
	}
	defer st.Shutdown()

	// The worker runs the background integrity sweep. The worker will
	// register itself with the state.
	worker.Run(st, cfg.Ledger.SweepInterval, ev)

	// =========================================================================
	// Identity Support

	a, err := auth.New(auth.Config{
		Secret: cfg.Auth.Secret,
		Issuer: cfg.Auth.Issuer,
		TTL:    cfg.Auth.TTL,
	})
	if err != nil {
		return fmt.Errorf("constructing auth: %w", err)
	}

	usrCore := user.NewCore(database.NewUserStore(db))
	auditCore := audit.NewCore(log, database.NewAuditStore(db))

	// =========================================================================
	// Emission Calculator Support

	if cfg.Emissions.APIKey == "" {
		log.Infow("startup", "status", "WARNING: no calculator api key configured, estimates will fail")
	}

	calc := emissions.New(cfg.Emissions.URL, cfg.Emissions.APIKey, cfg.Emissions.DataVersion, cfg.Emissions.Timeout)

	// =========================================================================
	// Start Debug Service

	log.Infow("startup", "status", "debug router started", "host", cfg.Web.DebugHost)

	// The Debug function returns a mux to listen and serve on for all the debug
	// related endpoints. This includes the standard library endpoints.

	// Construct the mux for the debug calls.
	debugMux := handlers.DebugMux(build, log, db)

	// Start the service listening for debug requests.
	// Not concerned with shutting this down with load shedding.
	go func() {
		if err := http.ListenAndServe(cfg.Web.DebugHost, debugMux); err != nil {
			log.Errorw("shutdown", "status", "debug router closed", "host", cfg.Web.DebugHost, "ERROR", err)
		}
	}()

	// =========================================================================
	// Start API Service

	log.Infow("startup", "status", "initializing V1 API support")

	// Make a channel to listen for an interrupt or terminate signal from the OS.
	// Use a buffered channel because the signal package requires it.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	// Construct the mux for the API calls.
	apiMux := handlers.APIMux(handlers.MuxConfig{
		Build:     build,
		Shutdown:  shutdown,
		Log:       log,
		State:     st,
		DB:        db,
		Auth:      a,
		User:      usrCore,
		Audit:     auditCore,
		Emissions: calc,
		Evts:      evts,
	})

	// Construct a server to service the requests against the mux.
	api := http.Server{
		Addr:         cfg.Web.APIHost,
		Handler:      apiMux,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     zap.NewStdLog(log.Desugar()),
	}

	// Make a channel to listen for errors coming from the listener. Use a
	// buffered channel so the goroutine can exit if we don't collect this error.
	serverErrors := make(chan error, 1)

	// Start the service listening for api requests.
	go func() {
		log.Infow("startup", "status", "api router started", "host", api.Addr)
		serverErrors <- api.ListenAndServe()
	}()

	// =========================================================================
	// Shutdown

	// Blocking main and waiting for shutdown.
	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		log.Infow("shutdown", "status", "shutdown started", "signal", sig)
		defer log.Infow("shutdown", "status", "shutdown complete", "signal", sig)

		// Release any web sockets that are currently active.
		log.Infow("shutdown", "status", "shutdown web socket channels")
		evts.Shutdown()

		// Give outstanding requests a deadline for completion.
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancel()

		// Asking listener to shut down and shed load.
		if err := api.Shutdown(ctx); err != nil {
			api.Close()
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
	}

	return nil
}
