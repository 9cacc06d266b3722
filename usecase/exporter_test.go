package usecase

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vizuhealth/report-whisperer/infrastructure"
	"github.com/vizuhealth/report-whisperer/schema"
)

func TestExportUploadsFullReport(t *testing.T) {
	store := infrastructure.NewMockPatientStore()
	seedPatient(store)
	store.SetCategory(testPatientID, "dailyCaloriesSummary", []schema.GenericDocument{
		{"start_time": "2024-06-01T00:00:00Z", "calories": float64(1800)},
	})
	uploader := &infrastructure.MockUploader{}

	exporter := NewExporter(testLogger, NewPatientReport(testLogger, store), uploader)
	exporter.Export(testPatientID, testTraceID)

	require.Len(t, uploader.Uploads, 1)
	for filename, data := range uploader.Uploads {
		assert.True(t, strings.HasPrefix(filename, testPatientID+"_"))

		var report map[string]interface{}
		require.NoError(t, json.Unmarshal(data, &report))
		assert.Contains(t, report, "patient")
		assert.Contains(t, report, "dailyCaloriesSummary")
	}
}

func TestExportSkipsUploadOnReportError(t *testing.T) {
	store := infrastructure.NewMockPatientStore()
	uploader := &infrastructure.MockUploader{}

	exporter := NewExporter(testLogger, NewPatientReport(testLogger, store), uploader)
	// unknown patient: the report fails and nothing is uploaded
	exporter.Export("nobody", testTraceID)

	assert.Empty(t, uploader.Uploads)
}
