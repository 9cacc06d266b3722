package api

import (
	"context"
	"net/http"

	"github.com/vizuhealth/report-whisperer/common"
)

// exportReport pushes the full report of a patient to blob storage.
// The export runs in the background and the route always answers 200, the
// outcome is visible in the service logs.
func (a *API) exportReport(ctx context.Context, res *common.HttpResponseWriter) error {
	patientID := res.VARS["patientID"]

	go a.exporter.Export(patientID, res.TraceID)

	res.WriteHeader(http.StatusOK)
	return res.WriteJSON(map[string]string{"status": "export started"})
}
