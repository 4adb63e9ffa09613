package activitygrp

import (
	"github.com/ecoledger/ecoledger/business/sys/validate"
	ledgerdb "github.com/ecoledger/ecoledger/foundation/ledger/database"
)

// Digest states reported for individual records.
const (
	digestValid   = "valid"
	digestInvalid = "invalid"
)

// AppNewEstimate is the payload for pricing an activity without recording it.
type AppNewEstimate struct {
	Kind     string  `json:"kind" validate:"required"`
	Quantity float64 `json:"quantity" validate:"required,gt=0"`
}

// Validate checks the data in the model is considered clean.
func (app AppNewEstimate) Validate() error {
	if err := validate.Check(app); err != nil {
		return err
	}
	return nil
}

// AppNewActivity is the payload for recording an activity on the chain.
type AppNewActivity struct {
	Kind        string  `json:"kind" validate:"required"`
	Quantity    float64 `json:"quantity" validate:"required,gt=0"`
	Description string  `json:"description" validate:"max=280"`
}

// Validate checks the data in the model is considered clean.
func (app AppNewActivity) Validate() error {
	if err := validate.Check(app); err != nil {
		return err
	}
	return nil
}

// =============================================================================

type appKindGroup struct {
	Count int      `json:"count"`
	Kinds []string `json:"kinds"`
}

type appKinds struct {
	Total      int                     `json:"total"`
	Categories map[string]appKindGroup `json:"categories"`
}

type appEstimate struct {
	Kind         string  `json:"kind"`
	Quantity     float64 `json:"quantity"`
	QuantityUnit string  `json:"quantity_unit"`
	Emission     float64 `json:"co2e"`
	EmissionUnit string  `json:"co2e_unit"`
	FactorID     string  `json:"factor_id"`
	FactorSource string  `json:"factor_source,omitempty"`
}

type appActivity struct {
	ID             int64   `json:"id"`
	Owner          string  `json:"owner"`
	Kind           string  `json:"kind"`
	Emission       float64 `json:"co2e"`
	EmissionUnit   string  `json:"co2e_unit"`
	Quantity       float64 `json:"quantity"`
	QuantityUnit   string  `json:"quantity_unit"`
	FactorID       string  `json:"factor_id,omitempty"`
	Description    string  `json:"description,omitempty"`
	RecordedAt     string  `json:"recorded_at"`
	PreviousDigest string  `json:"previous_digest"`
	CurrentDigest  string  `json:"current_digest"`
	DigestStatus   string  `json:"digest_status,omitempty"`
}

func toAppActivity(record ledgerdb.Record) appActivity {
	return appActivity{
		ID:             record.ID,
		Owner:          record.Owner,
		Kind:           record.ActivityKind,
		Emission:       record.Emission,
		EmissionUnit:   record.EmissionUnit,
		Quantity:       record.Quantity,
		QuantityUnit:   record.QuantityUnit,
		FactorID:       record.FactorID,
		Description:    record.Description,
		RecordedAt:     record.RecordedAt,
		PreviousDigest: record.PreviousDigest,
		CurrentDigest:  record.CurrentDigest,
	}
}

type appActivityPage struct {
	Total       int           `json:"total"`
	Page        int           `json:"page"`
	RowsPerPage int           `json:"rows_per_page"`
	Activities  []appActivity `json:"activities"`
}

type appSummary struct {
	Owner         string             `json:"owner"`
	Records       int                `json:"records"`
	TotalEmission float64            `json:"total_co2e"`
	EmissionUnit  string             `json:"co2e_unit"`
	ByKind        map[string]float64 `json:"by_kind,omitempty"`
}
