package usecase

import (
	"context"
	"log"
	"time"

	"github.com/vizuhealth/report-whisperer/schema"
)

// Professional identifies the sender of a message.
type Professional struct {
	UID        string `json:"uid"`
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	ClinicName string `json:"clinicName"`
}

// Messages is the patient/professional message thread.
type Messages struct {
	logger *log.Logger
	store  PatientStore
	now    func() time.Time
}

func NewMessages(logger *log.Logger, store PatientStore) *Messages {
	return &Messages{
		logger: logger,
		store:  store,
		now:    time.Now,
	}
}

// List returns the messages a professional exchanged with a patient. An
// empty thread is an empty slice, not an error.
func (m *Messages) List(ctx context.Context, patientID string, professionalID string) ([]schema.Message, error) {
	messages, err := m.store.GetMessages(ctx, patientID, professionalID)
	if err != nil {
		return nil, err
	}
	if messages == nil {
		messages = []schema.Message{}
	}
	return messages, nil
}

// Send persists a message and returns the new document ID.
func (m *Messages) Send(ctx context.Context, patientID string, text string, professional Professional) (string, error) {
	message := &schema.Message{
		Message:                    text,
		Timestamp:                  m.now().UTC(),
		HealthcareProfessionalUID:  professional.UID,
		HealthcareProfessionalName: professional.FirstName + " " + professional.LastName,
		ClinicName:                 professional.ClinicName,
	}
	return m.store.InsertMessage(ctx, patientID, message)
}
