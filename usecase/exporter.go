package usecase

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"time"

	"github.com/vizuhealth/report-whisperer/common"
)

// Exporter writes a patient's full report to blob storage. Runs in the
// background: the HTTP caller already got its 200 and failures are only
// logged.
type Exporter struct {
	logger   *log.Logger
	report   ReportUseCase
	uploader Uploader
}

func NewExporter(logger *log.Logger, report ReportUseCase, uploader Uploader) Exporter {
	return Exporter{
		logger:   logger,
		report:   report,
		uploader: uploader,
	}
}

func (e Exporter) Export(patientID string, traceID string) {
	e.logger.Println("launching export process")
	backgroundCtx := common.TimeItContext(context.Background())
	startExportTime := strings.ReplaceAll(time.Now().UTC().Round(time.Second).String(), " ", "_")

	report, detailedErr := e.report.GetFullReport(backgroundCtx, traceID, patientID)
	if detailedErr != nil {
		e.logger.Printf("get full report failed: %v \n", detailedErr)
		return
	}
	data, err := json.Marshal(report)
	if err != nil {
		e.logger.Printf("marshal report failed: %v \n", err)
		return
	}

	filename := strings.Join([]string{patientID, startExportTime}, "_")
	if err := e.uploader.Upload(backgroundCtx, filename, data); err != nil {
		e.logger.Printf("S3 upload failed: %v \n", err)
		return
	}
	e.logger.Println("upload to S3 done with success, terminating go routine")
}
