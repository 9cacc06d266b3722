package infrastructure

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// ScheduledTask records one Schedule call made against the mock scheduler.
type ScheduledTask struct {
	TaskID  string
	Queue   string
	URL     string
	Payload []byte
	At      time.Time
}

// MockTaskScheduler use for unit tests
type MockTaskScheduler struct {
	mu        sync.Mutex
	Scheduled []ScheduledTask
	Deleted   []string

	ScheduleErr error
	DeleteErr   error

	counter int
}

func (m *MockTaskScheduler) Schedule(ctx context.Context, queue string, url string, payload []byte, at time.Time) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ScheduleErr != nil {
		return "", m.ScheduleErr
	}
	m.counter++
	task := ScheduledTask{
		TaskID:  fmt.Sprintf("task-%d", m.counter),
		Queue:   queue,
		URL:     url,
		Payload: payload,
		At:      at,
	}
	m.Scheduled = append(m.Scheduled, task)
	return task.TaskID, nil
}

func (m *MockTaskScheduler) DeleteTask(ctx context.Context, taskID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	m.Deleted = append(m.Deleted, taskID)
	return nil
}

// Live returns the tasks scheduled and not yet deleted.
func (m *MockTaskScheduler) Live() []ScheduledTask {
	m.mu.Lock()
	defer m.mu.Unlock()
	deleted := make(map[string]bool, len(m.Deleted))
	for _, id := range m.Deleted {
		deleted[id] = true
	}
	live := []ScheduledTask{}
	for _, task := range m.Scheduled {
		if !deleted[task.TaskID] {
			live = append(live, task)
		}
	}
	return live
}

type SentMail struct {
	ToEmail     string
	PatientName string
	ReportURL   string
}

// MockMailer use for unit tests
type MockMailer struct {
	Sent []SentMail
	Err  error
}

func (m *MockMailer) SendReminder(ctx context.Context, toEmail string, patientName string, reportURL string) error {
	if m.Err != nil {
		return m.Err
	}
	m.Sent = append(m.Sent, SentMail{ToEmail: toEmail, PatientName: patientName, ReportURL: reportURL})
	return nil
}

// MockReportURLBuilder use for unit tests
type MockReportURLBuilder struct {
	URL string
	Err error
}

func (m *MockReportURLBuilder) BuildReportURL(ctx context.Context, professionalID string, patientID string) (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	return m.URL, nil
}

// MockUploader use for unit tests
type MockUploader struct {
	mu      sync.Mutex
	Uploads map[string][]byte
	Err     error
}

func (m *MockUploader) Upload(ctx context.Context, filename string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	if m.Uploads == nil {
		m.Uploads = make(map[string][]byte)
	}
	m.Uploads[filename] = data
	return nil
}
