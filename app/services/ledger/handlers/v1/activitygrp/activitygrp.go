// Package activitygrp maintains the group of handlers for recording and
// reading carbon activities.
package activitygrp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/ecoledger/ecoledger/business/core/audit"
	"github.com/ecoledger/ecoledger/business/sys/auth"
	"github.com/ecoledger/ecoledger/business/web/errs"
	"github.com/ecoledger/ecoledger/foundation/emissions"
	ledgerdb "github.com/ecoledger/ecoledger/foundation/ledger/database"
	"github.com/ecoledger/ecoledger/foundation/ledger/digest"
	"github.com/ecoledger/ecoledger/foundation/ledger/state"
	"github.com/ecoledger/ecoledger/foundation/web"
	"go.uber.org/zap"
)

// Handlers manages the set of activity endpoints.
type Handlers struct {
	Log       *zap.SugaredLogger
	State     *state.State
	Emissions *emissions.Client
	Audit     *audit.Core
}

// Kinds returns the catalog of activity kinds grouped by category.
func (h Handlers) Kinds(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	groups := emissions.Kinds()

	resp := appKinds{
		Categories: make(map[string]appKindGroup, len(groups)),
	}
	for category, kinds := range groups {
		resp.Total += len(kinds)
		resp.Categories[category] = appKindGroup{
			Count: len(kinds),
			Kinds: kinds,
		}
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Estimate prices an activity without recording it.
func (h Handlers) Estimate(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var app AppNewEstimate
	if err := web.Decode(r, &app); err != nil {
		return fmt.Errorf("unable to decode payload: %w", err)
	}

	factor, err := emissions.Lookup(app.Kind)
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	est, err := h.Emissions.Estimate(ctx, app.Kind, app.Quantity)
	if err != nil {
		if errors.Is(err, emissions.ErrUnavailable) {
			return errs.NewTrusted(err, http.StatusServiceUnavailable)
		}
		return fmt.Errorf("estimating: kind[%s]: %w", app.Kind, err)
	}

	resp := appEstimate{
		Kind:         strings.ToLower(app.Kind),
		Quantity:     app.Quantity,
		QuantityUnit: factor.Unit(),
		Emission:     est.CO2e,
		EmissionUnit: est.CO2eUnit,
		FactorID:     est.ActivityID,
		FactorSource: est.Factor.Source,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// SearchFactors passes a factor search through to the calculator.
func (h Handlers) SearchFactors(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	filter := emissions.SearchFilter{
		Query:    r.URL.Query().Get("query"),
		Category: r.URL.Query().Get("category"),
		Source:   r.URL.Query().Get("source"),
		Region:   r.URL.Query().Get("region"),
	}

	if limit := r.URL.Query().Get("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 1 || n > 100 {
			return errs.NewTrusted(fmt.Errorf("invalid limit format [%s]", limit), http.StatusBadRequest)
		}
		filter.ResultsPerPage = n
	}

	page, err := h.Emissions.Search(ctx, filter)
	if err != nil {
		if errors.Is(err, emissions.ErrUnavailable) {
			return errs.NewTrusted(err, http.StatusServiceUnavailable)
		}
		return fmt.Errorf("searching factors: %w", err)
	}

	return web.Respond(ctx, w, page, http.StatusOK)
}

// Create prices the submitted activity and appends it to the caller's chain.
// The record owner is always the authenticated caller, never the payload.
func (h Handlers) Create(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	claims, err := auth.GetClaims(ctx)
	if err != nil {
		return errs.NewTrusted(errors.New("not authorized"), http.StatusUnauthorized)
	}

	var app AppNewActivity
	if err := web.Decode(r, &app); err != nil {
		return fmt.Errorf("unable to decode payload: %w", err)
	}

	factor, err := emissions.Lookup(app.Kind)
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	est, err := h.Emissions.Estimate(ctx, app.Kind, app.Quantity)
	if err != nil {
		if errors.Is(err, emissions.ErrUnavailable) {
			return errs.NewTrusted(err, http.StatusServiceUnavailable)
		}
		return fmt.Errorf("estimating: kind[%s]: %w", app.Kind, err)
	}

	activity := ledgerdb.Activity{
		Owner:        claims.Subject,
		Kind:         strings.ToLower(app.Kind),
		Emission:     est.CO2e,
		EmissionUnit: est.CO2eUnit,
		Quantity:     app.Quantity,
		QuantityUnit: factor.Unit(),
		FactorID:     est.ActivityID,
		Description:  app.Description,
	}

	record, err := h.State.Append(ctx, activity)
	if err != nil {
		switch {
		case errors.Is(err, ledgerdb.ErrInvalidActivity):
			return errs.NewTrusted(err, http.StatusBadRequest)
		case errors.Is(err, state.ErrAppendConflict):
			return errs.NewTrusted(err, http.StatusConflict)
		case errors.Is(err, ledgerdb.ErrStoreUnavailable):
			return errs.NewTrusted(err, http.StatusServiceUnavailable)
		default:
			return fmt.Errorf("appending activity: %w", err)
		}
	}

	h.Log.Infow("activity committed", "traceid", v.TraceID, "record", record.ID, "owner", record.Owner, "kind", record.ActivityKind, "co2e", record.Emission)

	h.Audit.Record(ctx, audit.Event{
		Actor:       claims.Subject,
		Action:      audit.ActionCreate,
		Entity:      "activity",
		EntityID:    strconv.FormatInt(record.ID, 10),
		Description: fmt.Sprintf("kind[%s] co2e[%s %s]", record.ActivityKind, digest.FormatEmission(record.Emission), record.EmissionUnit),
		IPAddress:   r.RemoteAddr,
	})

	return web.Respond(ctx, w, toAppActivity(record), http.StatusCreated)
}

// Query returns a page of activity records, newest first. Admins may select
// any owner or all owners, everyone else gets their own records.
func (h Handlers) Query(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	claims, err := auth.GetClaims(ctx)
	if err != nil {
		return errs.NewTrusted(errors.New("not authorized"), http.StatusUnauthorized)
	}

	pageNumber, rowsPerPage, err := paging(r)
	if err != nil {
		return err
	}

	owner := claims.Subject
	if claims.Authorized(auth.RoleAdmin) {
		owner = r.URL.Query().Get("owner")
	}

	records, err := h.State.Query(ctx, owner, pageNumber, rowsPerPage)
	if err != nil {
		if errors.Is(err, ledgerdb.ErrStoreUnavailable) {
			return errs.NewTrusted(err, http.StatusServiceUnavailable)
		}
		return fmt.Errorf("querying activities: %w", err)
	}

	total, err := h.State.Count(ctx, owner)
	if err != nil {
		if errors.Is(err, ledgerdb.ErrStoreUnavailable) {
			return errs.NewTrusted(err, http.StatusServiceUnavailable)
		}
		return fmt.Errorf("counting activities: %w", err)
	}

	items := make([]appActivity, len(records))
	for i, record := range records {
		item := toAppActivity(record)

		item.DigestStatus = digestValid
		if err := record.ValidateDigest(); err != nil {
			item.DigestStatus = digestInvalid
		}

		items[i] = item
	}

	resp := appActivityPage{
		Total:       total,
		Page:        pageNumber,
		RowsPerPage: rowsPerPage,
		Activities:  items,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Summary returns the caller's running tally across all their records.
func (h Handlers) Summary(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	claims, err := auth.GetClaims(ctx)
	if err != nil {
		return errs.NewTrusted(errors.New("not authorized"), http.StatusUnauthorized)
	}

	tally := h.State.OwnerTally(claims.Subject)

	resp := appSummary{
		Owner:         claims.Subject,
		Records:       tally.Records,
		TotalEmission: tally.TotalEmission,
		EmissionUnit:  h.State.Genesis().EmissionUnit,
		ByKind:        tally.ByKind,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// QueryByID returns a single record by commit sequence number. Only the
// record's owner and admins can read it.
func (h Handlers) QueryByID(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	claims, err := auth.GetClaims(ctx)
	if err != nil {
		return errs.NewTrusted(errors.New("not authorized"), http.StatusUnauthorized)
	}

	id := web.Param(r, "id")
	recordID, err := strconv.ParseInt(id, 10, 64)
	if err != nil || recordID < 1 {
		return errs.NewTrusted(fmt.Errorf("invalid record id [%s]", id), http.StatusBadRequest)
	}

	record, err := h.State.QueryByID(ctx, recordID)
	if err != nil {
		switch {
		case errors.Is(err, ledgerdb.ErrNoRecord):
			return errs.NewTrusted(err, http.StatusNotFound)
		case errors.Is(err, ledgerdb.ErrStoreUnavailable):
			return errs.NewTrusted(err, http.StatusServiceUnavailable)
		default:
			return fmt.Errorf("querying record: id[%d]: %w", recordID, err)
		}
	}

	if record.Owner != claims.Subject && !claims.Authorized(auth.RoleAdmin) {
		return errs.NewTrusted(auth.ErrForbidden, http.StatusForbidden)
	}

	item := toAppActivity(record)
	item.DigestStatus = digestValid
	if err := record.ValidateDigest(); err != nil {
		item.DigestStatus = digestInvalid
	}

	return web.Respond(ctx, w, item, http.StatusOK)
}

// paging extracts the page and rows query parameters.
func paging(r *http.Request) (pageNumber int, rowsPerPage int, err error) {
	page := r.URL.Query().Get("page")
	if page == "" {
		page = "1"
	}
	pageNumber, err = strconv.Atoi(page)
	if err != nil || pageNumber < 1 {
		return 0, 0, errs.NewTrusted(fmt.Errorf("invalid page format [%s]", page), http.StatusBadRequest)
	}

	rows := r.URL.Query().Get("rows")
	if rows == "" {
		rows = "20"
	}
	rowsPerPage, err = strconv.Atoi(rows)
	if err != nil || rowsPerPage < 1 || rowsPerPage > 100 {
		return 0, 0, errs.NewTrusted(fmt.Errorf("invalid rows format [%s]", rows), http.StatusBadRequest)
	}

	return pageNumber, rowsPerPage, nil
}
