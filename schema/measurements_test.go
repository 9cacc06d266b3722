package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_AverageField_ZeroTreatedAsMissing(t *testing.T) {
	measurements := []Measurement{
		{"weight_kg": 70.0, "bodyfat_percentage": 0.0},
		{"weight_kg": 72.0, "bodyfat_percentage": 18.0},
	}
	avgWeight := AverageField(measurements, "weight_kg")
	assert.NotNil(t, avgWeight)
	assert.Equal(t, 71.0, *avgWeight)

	// the zero-valued bodyfat sample is excluded from that field's
	// average only
	avgBodyFat := AverageField(measurements, "bodyfat_percentage")
	assert.NotNil(t, avgBodyFat)
	assert.Equal(t, 18.0, *avgBodyFat)
}

func Test_AverageField_NoSurvivors(t *testing.T) {
	measurements := []Measurement{
		{"weight_kg": 70.0},
		{"weight_kg": 72.0, "bone_mass_g": 0.0},
	}
	assert.Nil(t, AverageField(measurements, "bone_mass_g"))
	assert.Nil(t, AverageField(nil, "weight_kg"))
}

func Test_AverageField_IntegerSamples(t *testing.T) {
	// mongo can hand back int32/int64 for values written without a decimal
	measurements := []Measurement{
		{"muscle_mass_g": int32(30000)},
		{"muscle_mass_g": int64(32000)},
	}
	avg := AverageField(measurements, "muscle_mass_g")
	assert.NotNil(t, avg)
	assert.Equal(t, 31000.0, *avg)
}

func Test_ApplyMeasurementAverages(t *testing.T) {
	doc := GenericDocument{
		"start_time": "2024-03-14T06:00:00Z",
		"measurements": []interface{}{
			map[string]interface{}{"weight_kg": 70.0, "bodyfat_percentage": 0.0, "BMI": 22.5, "estimated_fitness_age": 31.0},
			map[string]interface{}{"weight_kg": 72.0, "bodyfat_percentage": 18.0},
		},
	}
	reduced := ApplyMeasurementAverages(doc)
	assert.Equal(t, 71.0, reduced["weight_kg"])
	assert.Equal(t, 18.0, reduced["bodyfat_percentage"])
	assert.Nil(t, reduced["bone_mass_g"])
	// BMI and fitness age come verbatim from the first sample
	assert.Equal(t, 22.5, reduced["BMI"])
	assert.Equal(t, 31.0, reduced["estimated_fitness_age"])
	// original payload is preserved
	assert.Equal(t, "2024-03-14T06:00:00Z", reduced["start_time"])
}

func Test_ApplyMeasurementAverages_FirstSampleMissingBMI(t *testing.T) {
	doc := GenericDocument{
		"measurements": []interface{}{
			map[string]interface{}{"weight_kg": 70.0},
			map[string]interface{}{"weight_kg": 72.0, "BMI": 23.0},
		},
	}
	reduced := ApplyMeasurementAverages(doc)
	// copied unconditionally from the first sample, even when absent
	assert.Nil(t, reduced["BMI"])
}

func Test_ApplyMeasurementAverages_NoMeasurementsArray(t *testing.T) {
	doc := GenericDocument{"start_time": "2024-03-14T06:00:00Z"}
	reduced := ApplyMeasurementAverages(doc)
	_, present := reduced["weight_kg"]
	assert.False(t, present)
}

func Test_ApplyWeightAverage_ZerosIncluded(t *testing.T) {
	doc := GenericDocument{
		"measurements": []interface{}{
			map[string]interface{}{"weight_kg": 70.0},
			map[string]interface{}{"weight_kg": 0.0},
		},
	}
	reduced := ApplyWeightAverage(doc)
	// the long-term view keeps the naive mean, zeros and all
	assert.Equal(t, 35.0, reduced["weight_kg"])
}
