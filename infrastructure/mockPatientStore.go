package infrastructure

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/vizuhealth/report-whisperer/schema"
)

// MockPatientStore use for unit tests
type MockPatientStore struct {
	Patients       map[string]schema.GenericDocument
	Buckets        map[string]schema.GenericDocument
	SleepBuckets   map[string]*schema.SleepSummary
	Categories     map[string][]schema.GenericDocument
	Reminders      map[string]*schema.Reminder
	AccessRequests map[string]*schema.AccessRequest
	Messages       map[string][]schema.Message

	// Err fails every read/write when set; SleepErr only the sleep bucket
	// reads, to exercise the soft-fail path
	Err      error
	SleepErr error

	PingErr error
}

func NewMockPatientStore() *MockPatientStore {
	return &MockPatientStore{
		Patients:       make(map[string]schema.GenericDocument),
		Buckets:        make(map[string]schema.GenericDocument),
		SleepBuckets:   make(map[string]*schema.SleepSummary),
		Categories:     make(map[string][]schema.GenericDocument),
		Reminders:      make(map[string]*schema.Reminder),
		AccessRequests: make(map[string]*schema.AccessRequest),
		Messages:       make(map[string][]schema.Message),
	}
}

func mockKey(parts ...string) string {
	return strings.Join(parts, "|")
}

func (m *MockPatientStore) SetBucket(patientID, category, bucketID string, doc schema.GenericDocument) {
	m.Buckets[mockKey(patientID, category, bucketID)] = doc
}

func (m *MockPatientStore) SetSleepBucket(patientID, category, bucketID string, doc *schema.SleepSummary) {
	m.SleepBuckets[mockKey(patientID, category, bucketID)] = doc
}

func (m *MockPatientStore) SetCategory(patientID, category string, docs []schema.GenericDocument) {
	m.Categories[mockKey(patientID, category)] = docs
}

func (m *MockPatientStore) Ping() error {
	return m.PingErr
}

func (m *MockPatientStore) GetPatient(ctx context.Context, traceID string, patientID string) (schema.GenericDocument, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Patients[patientID], nil
}

func (m *MockPatientStore) GetBucket(ctx context.Context, traceID string, patientID string, category string, bucketID string) (schema.GenericDocument, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Buckets[mockKey(patientID, category, bucketID)], nil
}

func (m *MockPatientStore) GetSleepBucket(ctx context.Context, traceID string, patientID string, category string, bucketID string) (*schema.SleepSummary, error) {
	if m.SleepErr != nil {
		return nil, m.SleepErr
	}
	if m.Err != nil {
		return nil, m.Err
	}
	return m.SleepBuckets[mockKey(patientID, category, bucketID)], nil
}

func (m *MockPatientStore) GetCategory(ctx context.Context, traceID string, patientID string, category string) ([]schema.GenericDocument, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	docs := m.Categories[mockKey(patientID, category)]
	if docs == nil {
		docs = []schema.GenericDocument{}
	}
	return docs, nil
}

// GetCategorySince filters the seeded category the same way the mongo query
// would: start_time as RFC3339 string compare, DateAndTime as timestamp,
// boundary inclusive.
func (m *MockPatientStore) GetCategorySince(ctx context.Context, traceID string, patientID string, category string, cutoff time.Time) ([]schema.GenericDocument, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	docs := m.Categories[mockKey(patientID, category)]
	filtered := make([]schema.GenericDocument, 0)
	for _, doc := range docs {
		if category == "selfReportedSymptoms" {
			t, ok := doc["DateAndTime"].(time.Time)
			if ok && !t.Before(cutoff) {
				filtered = append(filtered, doc)
			}
			continue
		}
		startTime, ok := doc["start_time"].(string)
		if ok && startTime >= cutoff.Format(time.RFC3339) {
			filtered = append(filtered, doc)
		}
	}
	return filtered, nil
}

func (m *MockPatientStore) GetReminder(ctx context.Context, patientID string, professionalID string) (*schema.Reminder, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Reminders[mockKey(patientID, professionalID)], nil
}

func (m *MockPatientStore) SetReminder(ctx context.Context, reminder *schema.Reminder) error {
	if m.Err != nil {
		return m.Err
	}
	m.Reminders[mockKey(reminder.PatientUID, reminder.HealthcareProfessionalUID)] = reminder
	return nil
}

func (m *MockPatientStore) DeleteReminder(ctx context.Context, patientID string, professionalID string) error {
	if m.Err != nil {
		return m.Err
	}
	delete(m.Reminders, mockKey(patientID, professionalID))
	return nil
}

func (m *MockPatientStore) CreateAccessRequest(ctx context.Context, request *schema.AccessRequest) error {
	if m.Err != nil {
		return m.Err
	}
	copied := *request
	m.AccessRequests[request.UID] = &copied
	return nil
}

func (m *MockPatientStore) GetAccessRequest(ctx context.Context, id string) (*schema.AccessRequest, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	request, present := m.AccessRequests[id]
	if !present {
		return nil, nil
	}
	copied := *request
	return &copied, nil
}

func (m *MockPatientStore) SaveAccessRequest(ctx context.Context, request *schema.AccessRequest) error {
	if m.Err != nil {
		return m.Err
	}
	copied := *request
	m.AccessRequests[request.UID] = &copied
	return nil
}

func (m *MockPatientStore) DeleteAccessRequest(ctx context.Context, id string) error {
	if m.Err != nil {
		return m.Err
	}
	delete(m.AccessRequests, id)
	return nil
}

func (m *MockPatientStore) GetMessages(ctx context.Context, patientID string, professionalID string) ([]schema.Message, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	messages := make([]schema.Message, 0)
	for _, message := range m.Messages[patientID] {
		if message.HealthcareProfessionalUID == professionalID {
			messages = append(messages, message)
		}
	}
	return messages, nil
}

func (m *MockPatientStore) InsertMessage(ctx context.Context, patientID string, message *schema.Message) (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	stored := *message
	stored.ID = mockKey("msg", patientID, strconv.Itoa(len(m.Messages[patientID])))
	m.Messages[patientID] = append(m.Messages[patientID], stored)
	return stored.ID, nil
}
