// Package healthgrp maintains the public health endpoint.
package healthgrp

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"time"

	"github.com/ecoledger/ecoledger/business/sys/database"
	"github.com/ecoledger/ecoledger/foundation/ledger/state"
	"github.com/ecoledger/ecoledger/foundation/web"
	"go.uber.org/zap"
)

// Handlers manages the set of health endpoints.
type Handlers struct {
	Build string
	Log   *zap.SugaredLogger
	DB    *sql.DB
	State *state.State
}

// Health reports whether the service and its record store are usable,
// along with the current chain height.
func (h Handlers) Health(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	status := "ok"
	statusCode := http.StatusOK

	dbCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if err := database.StatusCheck(dbCtx, h.DB); err != nil {
		status = "store not ready"
		statusCode = http.StatusInternalServerError
	}

	host, err := os.Hostname()
	if err != nil {
		host = "unavailable"
	}

	resp := struct {
		Status  string `json:"status"`
		Build   string `json:"build"`
		Host    string `json:"host"`
		Ledger  string `json:"ledger"`
		Records int64  `json:"records"`
	}{
		Status:  status,
		Build:   h.Build,
		Host:    host,
		Ledger:  h.State.Genesis().Name,
		Records: h.State.LatestRecord().ID,
	}

	return web.Respond(ctx, w, resp, statusCode)
}
