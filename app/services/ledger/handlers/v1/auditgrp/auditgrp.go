// Package auditgrp maintains the group of handlers for reading the audit
// trail.
package auditgrp

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/ecoledger/ecoledger/business/core/audit"
	"github.com/ecoledger/ecoledger/business/web/errs"
	"github.com/ecoledger/ecoledger/foundation/web"
	"go.uber.org/zap"
)

// Handlers manages the set of audit endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	Audit *audit.Core
}

// Query returns a page of audit events, newest first, optionally filtered
// by actor.
func (h Handlers) Query(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	page := r.URL.Query().Get("page")
	if page == "" {
		page = "1"
	}
	pageNumber, err := strconv.Atoi(page)
	if err != nil || pageNumber < 1 {
		return errs.NewTrusted(fmt.Errorf("invalid page format [%s]", page), http.StatusBadRequest)
	}

	rows := r.URL.Query().Get("rows")
	if rows == "" {
		rows = "20"
	}
	rowsPerPage, err := strconv.Atoi(rows)
	if err != nil || rowsPerPage < 1 || rowsPerPage > 100 {
		return errs.NewTrusted(fmt.Errorf("invalid rows format [%s]", rows), http.StatusBadRequest)
	}

	actor := r.URL.Query().Get("actor")

	evts, err := h.Audit.Query(ctx, actor, pageNumber, rowsPerPage)
	if err != nil {
		return fmt.Errorf("querying audit trail: %w", err)
	}

	total, err := h.Audit.Count(ctx, actor)
	if err != nil {
		return fmt.Errorf("counting audit trail: %w", err)
	}

	items := make([]appEvent, len(evts))
	for i, evt := range evts {
		items[i] = toAppEvent(evt)
	}

	resp := appEventPage{
		Total:       total,
		Page:        pageNumber,
		RowsPerPage: rowsPerPage,
		Events:      items,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// =============================================================================

type appEvent struct {
	ID          string    `json:"id"`
	Actor       string    `json:"actor"`
	Action      string    `json:"action"`
	Entity      string    `json:"entity"`
	EntityID    string    `json:"entity_id,omitempty"`
	Description string    `json:"description,omitempty"`
	IPAddress   string    `json:"ip_address,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func toAppEvent(evt audit.Event) appEvent {
	return appEvent{
		ID:          evt.ID,
		Actor:       evt.Actor,
		Action:      evt.Action,
		Entity:      evt.Entity,
		EntityID:    evt.EntityID,
		Description: evt.Description,
		IPAddress:   evt.IPAddress,
		CreatedAt:   evt.CreatedAt,
	}
}

type appEventPage struct {
	Total       int        `json:"total"`
	Page        int        `json:"page"`
	RowsPerPage int        `json:"rows_per_page"`
	Events      []appEvent `json:"events"`
}
