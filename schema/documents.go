package schema

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// GenericDocument is a raw biomarker document. Most of the ~20 category
// schemas are passed through to the client untouched, so they stay maps and
// only the categories the server computes on (sleep, body measurements) get
// typed structs.
type GenericDocument map[string]interface{}

// Message is one entry of a patient/professional message thread.
type Message struct {
	ID                         string    `json:"id,omitempty" bson:"-"`
	Message                    string    `json:"message" bson:"message"`
	Timestamp                  time.Time `json:"timestamp" bson:"timestamp"`
	HealthcareProfessionalUID  string    `json:"healthcareProfessional_uid" bson:"healthcareProfessional_uid"`
	HealthcareProfessionalName string    `json:"healthcareProfessional_name" bson:"healthcareProfessional_name"`
	ClinicName                 string    `json:"clinic_name" bson:"clinic_name"`
}

// FormatPatient normalizes a raw patient document for API responses:
// date_of_birth is serialized as a plain "YYYY-MM-DD" string.
func FormatPatient(patient GenericDocument) GenericDocument {
	if patient == nil {
		return nil
	}
	if dob, ok := timeValue(patient["date_of_birth"]); ok {
		patient["date_of_birth"] = dob.UTC().Format("2006-01-02")
	}
	return patient
}

// DayOf returns the "YYYYMMDD" calendar day of a stored timestamp, or ""
// when the value is not a recognizable time. Symptom documents carry a
// single DateAndTime instead of a start/end pair.
func DayOf(v interface{}) string {
	if t, ok := timeValue(v); ok {
		return t.UTC().Format("20060102")
	}
	return ""
}

func timeValue(v interface{}) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case primitive.DateTime:
		return t.Time(), true
	case string:
		if parsed, err := time.Parse(time.RFC3339, t); err == nil {
			return parsed, true
		}
		if parsed, err := time.Parse("2006-01-02", t); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}
