package chaingrp

import (
	"github.com/ecoledger/ecoledger/foundation/ledger/state"
)

type appReport struct {
	Valid           bool   `json:"valid"`
	Scope           string `json:"scope"`
	Owner           string `json:"owner,omitempty"`
	TotalRecords    int    `json:"total_records"`
	FailingRecordID int64  `json:"failing_record_id,omitempty"`
	Message         string `json:"message"`
}

func toAppReport(report state.VerifyReport) appReport {
	return appReport{
		Valid:           report.Valid,
		Scope:           report.Scope,
		Owner:           report.Owner,
		TotalRecords:    report.TotalRecords,
		FailingRecordID: report.FailingRecordID,
		Message:         report.Message,
	}
}
