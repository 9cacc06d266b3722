package api

import (
	"context"

	"github.com/vizuhealth/report-whisperer/schema"
	"github.com/vizuhealth/report-whisperer/usecase"
)

type (
	// ShareUseCase is the access-request lifecycle behind the share routes.
	ShareUseCase interface {
		Generate(ctx context.Context) (string, error)
		Approve(ctx context.Context, id string) error
		VerifyShareToken(ctx context.Context, token string) (string, error)
		Delete(ctx context.Context, id string) error
	}

	// ReminderUseCase schedules and fires report reminders.
	ReminderUseCase interface {
		Set(ctx context.Context, params usecase.ReminderParams) (string, error)
		Delete(ctx context.Context, patientID string, professionalID string) error
		HandleFired(ctx context.Context, params usecase.ReminderParams) error
	}

	// MessageUseCase is the patient/professional message thread.
	MessageUseCase interface {
		List(ctx context.Context, patientID string, professionalID string) ([]schema.Message, error)
		Send(ctx context.Context, patientID string, text string, professional usecase.Professional) (string, error)
	}

	// ExportUseCase runs the asynchronous report export.
	ExportUseCase interface {
		Export(patientID string, traceID string)
	}
)
