package api

import (
	"context"

	"github.com/vizuhealth/report-whisperer/common"
)

// getPatientSummary returns the full long-term report for one patient: the
// patient record plus every summary category, weight history averaged.
func (a *API) getPatientSummary(ctx context.Context, res *common.HttpResponseWriter) error {
	patientID := res.VARS["patientID"]

	report, err := a.report.GetFullReport(ctx, res.TraceID, patientID)
	if err != nil {
		return res.WriteError(err)
	}
	return res.WriteJSON(report)
}

// getDailySamples returns the per-day sample documents for one patient and
// one calendar date.
func (a *API) getDailySamples(ctx context.Context, res *common.HttpResponseWriter) error {
	patientID := res.VARS["patientID"]
	date := res.VARS["date"]

	samples, err := a.report.GetDailySamples(ctx, res.TraceID, patientID, date)
	if err != nil {
		return res.WriteError(err)
	}
	return res.WriteJSON(samples)
}
