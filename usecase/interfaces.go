package usecase

import (
	"context"
	"time"

	"github.com/vizuhealth/report-whisperer/common"
	"github.com/vizuhealth/report-whisperer/schema"
)

// PatientStore is the document-store boundary. The mongo implementation
// lives in infrastructure, tests use the in-memory mock.
type PatientStore interface {
	GetPatient(ctx context.Context, traceID string, patientID string) (schema.GenericDocument, error)

	// GetBucket resolves one bucketed document by its deterministic ID,
	// (nil, nil) when the bucket is empty.
	GetBucket(ctx context.Context, traceID string, patientID string, category string, bucketID string) (schema.GenericDocument, error)
	GetSleepBucket(ctx context.Context, traceID string, patientID string, category string, bucketID string) (*schema.SleepSummary, error)

	// GetCategory returns every document of a category, in date order.
	// Unbounded for now; pagination can land behind this same boundary.
	GetCategory(ctx context.Context, traceID string, patientID string, category string) ([]schema.GenericDocument, error)
	// GetCategorySince returns the documents whose timestamp is at or after
	// the cutoff (start_time for summaries, DateAndTime for symptoms).
	GetCategorySince(ctx context.Context, traceID string, patientID string, category string, cutoff time.Time) ([]schema.GenericDocument, error)

	GetReminder(ctx context.Context, patientID string, professionalID string) (*schema.Reminder, error)
	SetReminder(ctx context.Context, reminder *schema.Reminder) error
	DeleteReminder(ctx context.Context, patientID string, professionalID string) error

	CreateAccessRequest(ctx context.Context, request *schema.AccessRequest) error
	GetAccessRequest(ctx context.Context, id string) (*schema.AccessRequest, error)
	SaveAccessRequest(ctx context.Context, request *schema.AccessRequest) error
	// DeleteAccessRequest is idempotent: deleting an absent document is not
	// an error.
	DeleteAccessRequest(ctx context.Context, id string) error

	GetMessages(ctx context.Context, patientID string, professionalID string) ([]schema.Message, error)
	InsertMessage(ctx context.Context, patientID string, message *schema.Message) (string, error)
}

// DatabaseAdapter is what the status endpoint needs from the store.
type DatabaseAdapter interface {
	Ping() error
}

// TaskScheduler is the external "run this callback at time T" service.
// Scheduling returns an opaque task handle used later to cancel the task.
type TaskScheduler interface {
	Schedule(ctx context.Context, queue string, url string, payload []byte, at time.Time) (string, error)
	// DeleteTask cancels a scheduled task. Cancelling an already-fired or
	// unknown task is not an error.
	DeleteTask(ctx context.Context, taskID string) error
}

// Mailer delivers reminder emails to healthcare professionals.
type Mailer interface {
	SendReminder(ctx context.Context, toEmail string, patientName string, reportURL string) error
}

// ReportURLBuilder asks the auth-URL service for a signed report link.
type ReportURLBuilder interface {
	BuildReportURL(ctx context.Context, professionalID string, patientID string) (string, error)
}

// Uploader pushes an export buffer to blob storage.
type Uploader interface {
	Upload(ctx context.Context, filename string, data []byte) error
}

// ReportUseCase is the report-assembly surface consumed by the API and the
// exporter.
type ReportUseCase interface {
	GetFullReport(ctx context.Context, traceID string, patientID string) (map[string]interface{}, *common.DetailedError)
	GetDailySamples(ctx context.Context, traceID string, patientID string, date string) (map[string]interface{}, *common.DetailedError)
	GetQuickShareReport(ctx context.Context, traceID string, patientID string) (map[string]interface{}, *common.DetailedError)
}
