package schema

import "go.mongodb.org/mongo-driver/bson/primitive"

// Body-measurement documents hold a "measurements" array of same-day scale
// samples. The daily view reduces them to one record with independently
// averaged fields; the long-term views only overlay an averaged weight.

// AveragedMeasurementFields are reduced field by field: a sample missing
// bodyfat_percentage must not count in that field's denominator even if it
// has weight_kg.
var AveragedMeasurementFields = []string{
	"weight_kg",
	"bodyfat_percentage",
	"bone_mass_g",
	"muscle_mass_g",
	"water_percentage",
}

// Measurement is one scale sample. Kept as a loose map: the set of fields
// varies by device generation.
type Measurement map[string]interface{}

// Numeric coerces the decoded value of a measurement field. Mongo hands back
// float64, int32 or int64 depending on how the document was written.
func Numeric(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// AverageField computes the arithmetic mean of one field over the samples
// that define it with a non-zero value. Zero is treated as "missing", not
// "measured zero": these physical quantities cannot legitimately be zero.
// Returns nil when no sample survives the filter.
func AverageField(measurements []Measurement, key string) *float64 {
	sum := 0.0
	count := 0
	for _, m := range measurements {
		v, ok := Numeric(m[key])
		if !ok || v == 0 {
			continue
		}
		sum += v
		count++
	}
	if count == 0 {
		return nil
	}
	avg := sum / float64(count)
	return &avg
}

// MeasurementsIn extracts the measurements array from a raw document.
// Mongo decodes nested values as primitive.A / primitive.M, JSON fixtures as
// plain slices and maps; both are accepted.
func MeasurementsIn(doc GenericDocument) []Measurement {
	var raw []interface{}
	switch arr := doc["measurements"].(type) {
	case []interface{}:
		raw = arr
	case primitive.A:
		raw = []interface{}(arr)
	default:
		return nil
	}
	measurements := make([]Measurement, 0, len(raw))
	for _, entry := range raw {
		switch m := entry.(type) {
		case map[string]interface{}:
			measurements = append(measurements, Measurement(m))
		case primitive.M:
			measurements = append(measurements, Measurement(m))
		}
	}
	return measurements
}

// ApplyMeasurementAverages overlays the daily-sample reduction on a
// body-measurement document: the five averaged fields, plus BMI and
// estimated_fitness_age copied verbatim from the first sample (even when the
// first sample does not define them).
func ApplyMeasurementAverages(doc GenericDocument) GenericDocument {
	measurements := MeasurementsIn(doc)
	if measurements == nil {
		return doc
	}
	for _, field := range AveragedMeasurementFields {
		if avg := AverageField(measurements, field); avg != nil {
			doc[field] = *avg
		} else {
			doc[field] = nil
		}
	}
	if len(measurements) > 0 {
		doc["BMI"] = measurements[0]["BMI"]
		doc["estimated_fitness_age"] = measurements[0]["estimated_fitness_age"]
	}
	return doc
}

// ApplyWeightAverage overlays the long-term view reduction: a plain mean of
// weight_kg over every sample. Unlike ApplyMeasurementAverages, zeros count
// in the denominator and the sum here.
func ApplyWeightAverage(doc GenericDocument) GenericDocument {
	measurements := MeasurementsIn(doc)
	if len(measurements) == 0 {
		return doc
	}
	total := 0.0
	for _, m := range measurements {
		v, _ := Numeric(m["weight_kg"])
		total += v
	}
	doc["weight_kg"] = total / float64(len(measurements))
	return doc
}
