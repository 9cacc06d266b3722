package usecase

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vizuhealth/report-whisperer/infrastructure"
	"github.com/vizuhealth/report-whisperer/schema"
)

const testUTCOffset = 2 * time.Hour

// Wednesday, 10:00 UTC
var wednesdayMorning = time.Date(2025, 3, 12, 10, 0, 0, 0, time.UTC)

func newTestReminders(store *infrastructure.MockPatientStore, scheduler *infrastructure.MockTaskScheduler, mailer *infrastructure.MockMailer, urls *infrastructure.MockReportURLBuilder) *Reminders {
	reminders := NewReminders(testLogger, store, scheduler, mailer, urls, ReminderConfig{
		Queue:           "reminders",
		FireCallbackURL: "https://report.vizuhealth.test/v1/tasks/reminder-fire",
		UTCOffset:       testUTCOffset,
	})
	reminders.now = func() time.Time { return wednesdayMorning }
	return reminders
}

func testReminderParams() ReminderParams {
	return ReminderParams{
		HealthcareProfessionalUID:   "pro-1",
		HealthcareProfessionalEmail: "doc@clinic.test",
		PatientName:                 "Ada",
		PatientUID:                  testPatientID,
		ReminderFrequency:           schema.FrequencyWeekly,
		ReminderTime:                "08:00",
		StartDay:                    3, // Wednesday
	}
}

func TestNextOccurrenceDaily(t *testing.T) {
	// 08:00 clinic time is 06:00 UTC, already past: tomorrow
	fireAt, err := NextOccurrence(wednesdayMorning, schema.FrequencyDaily, "08:00", 0, testUTCOffset)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 13, 6, 0, 0, 0, time.UTC), fireAt)

	// 15:00 clinic time is 13:00 UTC, still ahead: today
	fireAt, err = NextOccurrence(wednesdayMorning, schema.FrequencyDaily, "15:00", 0, testUTCOffset)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 12, 13, 0, 0, 0, time.UTC), fireAt)
}

func TestNextOccurrenceWeekly(t *testing.T) {
	// startDay is today but today's time has passed: skip a full week
	fireAt, err := NextOccurrence(wednesdayMorning, schema.FrequencyWeekly, "08:00", 3, testUTCOffset)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 19, 6, 0, 0, 0, time.UTC), fireAt)

	// startDay is today and today's time is still ahead: today
	fireAt, err = NextOccurrence(wednesdayMorning, schema.FrequencyWeekly, "15:00", 3, testUTCOffset)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 12, 13, 0, 0, 0, time.UTC), fireAt)

	// next Monday is five days out
	fireAt, err = NextOccurrence(wednesdayMorning, schema.FrequencyWeekly, "08:00", 1, testUTCOffset)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 17, 6, 0, 0, 0, time.UTC), fireAt)

	// from a Monday, a Wednesday reminder is two days out
	mondayMorning := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)
	fireAt, err = NextOccurrence(mondayMorning, schema.FrequencyWeekly, "08:00", 3, testUTCOffset)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 12, 6, 0, 0, 0, time.UTC), fireAt)
}

func TestNextOccurrenceBiWeekly(t *testing.T) {
	fireAt, err := NextOccurrence(wednesdayMorning, schema.FrequencyBiWeekly, "08:00", 3, testUTCOffset)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 26, 6, 0, 0, 0, time.UTC), fireAt)
}

func TestNextOccurrenceInvalidTime(t *testing.T) {
	_, err := NextOccurrence(wednesdayMorning, schema.FrequencyDaily, "8 o'clock", 0, testUTCOffset)
	assert.ErrorIs(t, err, ErrInvalidReminderTime)
}

func TestSetValidation(t *testing.T) {
	store := infrastructure.NewMockPatientStore()
	scheduler := &infrastructure.MockTaskScheduler{}
	reminders := newTestReminders(store, scheduler, &infrastructure.MockMailer{}, &infrastructure.MockReportURLBuilder{})

	params := testReminderParams()
	params.ReminderFrequency = "hourly"
	_, err := reminders.Set(context.Background(), params)
	assert.ErrorIs(t, err, ErrInvalidFrequency)

	params = testReminderParams()
	params.StartDay = 7
	_, err = reminders.Set(context.Background(), params)
	assert.ErrorIs(t, err, ErrInvalidStartDay)

	params = testReminderParams()
	params.ReminderTime = "25:99"
	_, err = reminders.Set(context.Background(), params)
	assert.ErrorIs(t, err, ErrInvalidReminderTime)

	assert.Empty(t, scheduler.Scheduled)
}

func TestSetSchedulesAndPersists(t *testing.T) {
	store := infrastructure.NewMockPatientStore()
	scheduler := &infrastructure.MockTaskScheduler{}
	reminders := newTestReminders(store, scheduler, &infrastructure.MockMailer{}, &infrastructure.MockReportURLBuilder{})

	taskID, err := reminders.Set(context.Background(), testReminderParams())
	require.NoError(t, err)
	assert.Equal(t, "task-1", taskID)

	live := scheduler.Live()
	require.Len(t, live, 1)
	assert.Equal(t, "reminders", live[0].Queue)
	assert.Equal(t, time.Date(2025, 3, 19, 6, 0, 0, 0, time.UTC), live[0].At)

	// the task payload carries the clinic wall-clock time, not UTC
	var payload ReminderParams
	require.NoError(t, json.Unmarshal(live[0].Payload, &payload))
	assert.Equal(t, "08:00", payload.ReminderTime)
	assert.Equal(t, 3, payload.StartDay)

	stored, err := store.GetReminder(context.Background(), testPatientID, "pro-1")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "task-1", stored.TaskID)
	assert.Equal(t, time.Date(2025, 3, 19, 6, 0, 0, 0, time.UTC), stored.ReminderTime)
}

func TestSetReplacesPreviousTask(t *testing.T) {
	store := infrastructure.NewMockPatientStore()
	scheduler := &infrastructure.MockTaskScheduler{}
	reminders := newTestReminders(store, scheduler, &infrastructure.MockMailer{}, &infrastructure.MockReportURLBuilder{})

	_, err := reminders.Set(context.Background(), testReminderParams())
	require.NoError(t, err)

	params := testReminderParams()
	params.ReminderTime = "18:30"
	taskID, err := reminders.Set(context.Background(), params)
	require.NoError(t, err)
	assert.Equal(t, "task-2", taskID)

	// only the replacement task is left alive
	live := scheduler.Live()
	require.Len(t, live, 1)
	assert.Equal(t, "task-2", live[0].TaskID)
	assert.Equal(t, []string{"task-1"}, scheduler.Deleted)
}

func TestDeleteReminder(t *testing.T) {
	store := infrastructure.NewMockPatientStore()
	scheduler := &infrastructure.MockTaskScheduler{}
	reminders := newTestReminders(store, scheduler, &infrastructure.MockMailer{}, &infrastructure.MockReportURLBuilder{})

	err := reminders.Delete(context.Background(), testPatientID, "pro-1")
	assert.ErrorIs(t, err, ErrReminderNotFound)

	require.NoError(t, store.SetReminder(context.Background(), &schema.Reminder{
		PatientUID:                testPatientID,
		HealthcareProfessionalUID: "pro-1",
	}))
	err = reminders.Delete(context.Background(), testPatientID, "pro-1")
	assert.ErrorIs(t, err, ErrReminderTaskMissing)

	_, err = reminders.Set(context.Background(), testReminderParams())
	require.NoError(t, err)
	require.NoError(t, reminders.Delete(context.Background(), testPatientID, "pro-1"))

	assert.Empty(t, scheduler.Live())
	stored, err := store.GetReminder(context.Background(), testPatientID, "pro-1")
	require.NoError(t, err)
	assert.Nil(t, stored)
}

func TestHandleFiredChainsNextOccurrence(t *testing.T) {
	store := infrastructure.NewMockPatientStore()
	scheduler := &infrastructure.MockTaskScheduler{}
	mailer := &infrastructure.MockMailer{}
	urls := &infrastructure.MockReportURLBuilder{URL: "https://portal.vizuhealth.test/report/abc"}
	reminders := newTestReminders(store, scheduler, mailer, urls)

	require.NoError(t, reminders.HandleFired(context.Background(), testReminderParams()))

	require.Len(t, mailer.Sent, 1)
	assert.Equal(t, "doc@clinic.test", mailer.Sent[0].ToEmail)
	assert.Equal(t, "Ada", mailer.Sent[0].PatientName)
	assert.Equal(t, "https://portal.vizuhealth.test/report/abc", mailer.Sent[0].ReportURL)

	live := scheduler.Live()
	require.Len(t, live, 1)
	assert.Equal(t, time.Date(2025, 3, 19, 6, 0, 0, 0, time.UTC), live[0].At)

	stored, err := store.GetReminder(context.Background(), testPatientID, "pro-1")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, live[0].TaskID, stored.TaskID)
}

func TestHandleFiredMailFailureStopsChain(t *testing.T) {
	store := infrastructure.NewMockPatientStore()
	scheduler := &infrastructure.MockTaskScheduler{}
	mailer := &infrastructure.MockMailer{Err: assert.AnError}
	urls := &infrastructure.MockReportURLBuilder{URL: "https://portal.vizuhealth.test/report/abc"}
	reminders := newTestReminders(store, scheduler, mailer, urls)

	err := reminders.HandleFired(context.Background(), testReminderParams())
	require.Error(t, err)
	assert.Empty(t, scheduler.Scheduled)
}
