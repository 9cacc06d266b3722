package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/vizuhealth/report-whisperer/schema"
)

var (
	ErrReminderNotFound    = errors.New("no reminder found for this healthcare professional")
	ErrReminderTaskMissing = errors.New("task id not found for this reminder")
	ErrInvalidFrequency    = errors.New("invalid reminder frequency")
	ErrInvalidStartDay     = errors.New("invalid start day, must be an integer between 0 (Sunday) and 6 (Saturday)")
	ErrInvalidReminderTime = errors.New("invalid reminder time, expected HH:MM")
)

type (
	ReminderConfig struct {
		Queue           string
		FireCallbackURL string
		// UTCOffset compensates for the clinic timezone: the configured
		// HH:MM is clinic wall-clock time, the scheduler wants UTC.
		UTCOffset time.Duration
	}

	// ReminderParams is both the Set request body and the payload carried by
	// the scheduled task back into HandleFired.
	ReminderParams struct {
		HealthcareProfessionalUID   string                   `json:"healthcareProfessional_uid"`
		HealthcareProfessionalEmail string                   `json:"healthcareProfessionalEmail"`
		PatientName                 string                   `json:"patientName"`
		PatientUID                  string                   `json:"patientUID"`
		ReminderFrequency           schema.ReminderFrequency `json:"reminderFrequency"`
		ReminderTime                string                   `json:"reminderTime"`
		StartDay                    int                      `json:"startDay"`
	}

	// Reminders manages the recurring report-reminder chain. One reminder
	// per (patient, professional) pair; replacing it deletes the previous
	// external task before creating the new one. The delete-then-create is
	// not atomic: two concurrent Set calls for the same pair can leave two
	// live tasks.
	Reminders struct {
		logger     *log.Logger
		store      PatientStore
		scheduler  TaskScheduler
		mailer     Mailer
		reportURLs ReportURLBuilder
		config     ReminderConfig
		now        func() time.Time
	}
)

func NewReminders(logger *log.Logger, store PatientStore, scheduler TaskScheduler, mailer Mailer, reportURLs ReportURLBuilder, config ReminderConfig) *Reminders {
	return &Reminders{
		logger:     logger,
		store:      store,
		scheduler:  scheduler,
		mailer:     mailer,
		reportURLs: reportURLs,
		config:     config,
		now:        time.Now,
	}
}

// NextOccurrence computes the next fire timestamp of a reminder. Daily
// reminders fire today at the configured time, or tomorrow when that moment
// has already passed. Weekly-family reminders fire on the next startDay; when
// that is today and today's time has passed, they skip a full period instead.
func NextOccurrence(now time.Time, frequency schema.ReminderFrequency, reminderTime string, startDay int, utcOffset time.Duration) (time.Time, error) {
	parsed, err := time.Parse("15:04", reminderTime)
	if err != nil {
		return time.Time{}, ErrInvalidReminderTime
	}

	fireAt := time.Date(now.Year(), now.Month(), now.Day(), parsed.Hour(), parsed.Minute(), 0, 0, now.Location()).Add(-utcOffset)

	if frequency == schema.FrequencyDaily {
		if fireAt.Before(now) {
			fireAt = fireAt.AddDate(0, 0, 1)
		}
		return fireAt, nil
	}

	daysToAdd := (startDay - int(now.Weekday()) + 7) % 7
	if daysToAdd == 0 && now.After(fireAt) {
		daysToAdd = frequency.PeriodDays()
	}
	return fireAt.AddDate(0, 0, daysToAdd), nil
}

// Set validates, cancels the previously scheduled task for the pair if any,
// schedules the next fire and persists the reminder. Scheduler and store
// failures are hard errors: a silent write failure here would corrupt the
// scheduling state and the clinician would never know.
func (r *Reminders) Set(ctx context.Context, params ReminderParams) (string, error) {
	if !params.ReminderFrequency.Valid() {
		return "", ErrInvalidFrequency
	}
	if params.StartDay < 0 || params.StartDay > 6 {
		return "", ErrInvalidStartDay
	}

	now := r.now()
	fireAt, err := NextOccurrence(now, params.ReminderFrequency, params.ReminderTime, params.StartDay, r.config.UTCOffset)
	if err != nil {
		return "", err
	}

	existing, err := r.store.GetReminder(ctx, params.PatientUID, params.HealthcareProfessionalUID)
	if err != nil {
		return "", err
	}
	if existing != nil && existing.TaskID != "" {
		if err := r.scheduler.DeleteTask(ctx, existing.TaskID); err != nil {
			return "", fmt.Errorf("unable to delete old task %s: %w", existing.TaskID, err)
		}
		r.logger.Printf("deleted old task [%s] for patient=[%s]", existing.TaskID, params.PatientUID)
	}

	taskID, err := r.scheduleFire(ctx, params, fireAt)
	if err != nil {
		return "", err
	}

	reminder := &schema.Reminder{
		PatientUID:                params.PatientUID,
		HealthcareProfessionalUID: params.HealthcareProfessionalUID,
		PatientName:               params.PatientName,
		ReminderFrequency:         params.ReminderFrequency,
		ReminderTime:              fireAt,
		TaskID:                    taskID,
		CreatedAt:                 now,
	}
	if err := r.store.SetReminder(ctx, reminder); err != nil {
		return "", err
	}
	return taskID, nil
}

// Delete cancels the external task and removes the reminder document.
func (r *Reminders) Delete(ctx context.Context, patientID string, professionalID string) error {
	existing, err := r.store.GetReminder(ctx, patientID, professionalID)
	if err != nil {
		return err
	}
	if existing == nil {
		return ErrReminderNotFound
	}
	if existing.TaskID == "" {
		return ErrReminderTaskMissing
	}
	if err := r.scheduler.DeleteTask(ctx, existing.TaskID); err != nil {
		return fmt.Errorf("unable to delete task %s: %w", existing.TaskID, err)
	}
	return r.store.DeleteReminder(ctx, patientID, professionalID)
}

// HandleFired runs when a scheduled reminder fires: it emails the
// professional a fresh report link, then re-arms itself with the next
// occurrence, chaining indefinitely until the reminder is deleted.
func (r *Reminders) HandleFired(ctx context.Context, params ReminderParams) error {
	reportURL, err := r.reportURLs.BuildReportURL(ctx, params.HealthcareProfessionalUID, params.PatientUID)
	if err != nil {
		return fmt.Errorf("unable to build report url: %w", err)
	}
	if err := r.mailer.SendReminder(ctx, params.HealthcareProfessionalEmail, params.PatientName, reportURL); err != nil {
		return fmt.Errorf("unable to send reminder email: %w", err)
	}
	r.logger.Printf("reminder email sent to [%s] for patient=[%s]", params.HealthcareProfessionalEmail, params.PatientUID)

	now := r.now()
	nextFireAt, err := NextOccurrence(now, params.ReminderFrequency, params.ReminderTime, params.StartDay, r.config.UTCOffset)
	if err != nil {
		return err
	}
	taskID, err := r.scheduleFire(ctx, params, nextFireAt)
	if err != nil {
		return err
	}

	reminder := &schema.Reminder{
		PatientUID:                params.PatientUID,
		HealthcareProfessionalUID: params.HealthcareProfessionalUID,
		PatientName:               params.PatientName,
		ReminderFrequency:         params.ReminderFrequency,
		ReminderTime:              nextFireAt,
		TaskID:                    taskID,
		CreatedAt:                 now,
	}
	return r.store.SetReminder(ctx, reminder)
}

func (r *Reminders) scheduleFire(ctx context.Context, params ReminderParams, fireAt time.Time) (string, error) {
	// the payload carries the clinic wall-clock time of the computed fire,
	// so the chain keeps honoring the configured time of day
	params.ReminderTime = fireAt.Add(r.config.UTCOffset).Format("15:04")
	payload, err := json.Marshal(params)
	if err != nil {
		return "", err
	}
	taskID, err := r.scheduler.Schedule(ctx, r.config.Queue, r.config.FireCallbackURL, payload, fireAt)
	if err != nil {
		return "", fmt.Errorf("unable to create reminder task: %w", err)
	}
	return taskID, nil
}
