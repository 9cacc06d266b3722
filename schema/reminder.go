package schema

import "time"

// ReminderFrequency is the recurrence of a report reminder.
type ReminderFrequency string

const (
	FrequencyDaily     ReminderFrequency = "daily"
	FrequencyWeekly    ReminderFrequency = "weekly"
	FrequencyBiWeekly  ReminderFrequency = "bi-weekly"
	FrequencyTriWeekly ReminderFrequency = "tri-weekly"
)

// Valid reports whether the frequency is one of the accepted values.
func (f ReminderFrequency) Valid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyBiWeekly, FrequencyTriWeekly:
		return true
	}
	return false
}

// PeriodDays is the full period of a weekly-family frequency. Daily has no
// week period and returns 0.
func (f ReminderFrequency) PeriodDays() int {
	switch f {
	case FrequencyWeekly:
		return 7
	case FrequencyBiWeekly:
		return 14
	case FrequencyTriWeekly:
		return 21
	}
	return 0
}

// Reminder is the persisted schedule state for one (patient, professional)
// pair. At most one reminder exists per pair: creating a new one first
// cancels the previously scheduled external task so two live tasks never
// fire for the same pair.
type Reminder struct {
	PatientUID                string            `json:"patientUID" bson:"patientUID"`
	HealthcareProfessionalUID string            `json:"healthcareProfessional_uid" bson:"healthcareProfessional_uid"`
	PatientName               string            `json:"patientName" bson:"patientName"`
	ReminderFrequency         ReminderFrequency `json:"reminderFrequency" bson:"reminderFrequency"`
	ReminderTime              time.Time         `json:"reminderTime" bson:"reminderTime"`
	TaskID                    string            `json:"task_id" bson:"task_id"`
	CreatedAt                 time.Time         `json:"created_at" bson:"created_at"`
}
