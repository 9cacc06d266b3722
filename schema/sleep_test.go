package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func f(v float64) *float64 { return &v }

func Test_CombineSleep_NoDocuments(t *testing.T) {
	combined := CombineSleep(nil)
	assert.Equal(t, 0.0, combined.DurationInBedSeconds)
	assert.Equal(t, 0.0, combined.DurationAsleepStateSeconds)
	assert.Equal(t, 0.0, combined.NumREMEvents)
	// averaged fields stay at their zero value, not NaN
	assert.Equal(t, 0.0, combined.SleepEfficiency)
	assert.Equal(t, 0.0, combined.AvgBreathsPerMin)
	assert.Equal(t, 0, combined.StartTime)
	assert.Equal(t, 0, combined.EndTime)
}

func Test_CombineSleep_SumsAdditiveFields(t *testing.T) {
	doc1 := &SleepSummary{
		DurationInBedSeconds:          3600,
		DurationDeepSleepStateSeconds: 1200,
		NumREMEvents:                  3,
		NumSnoringEvents:              1,
		StartTime:                     "2024-03-13T22:10:00Z",
		EndTime:                       "2024-03-14T02:00:00Z",
	}
	doc2 := &SleepSummary{
		DurationInBedSeconds:          1800,
		DurationDeepSleepStateSeconds: 600,
		NumREMEvents:                  2,
		StartTime:                     "2024-03-14T13:00:00Z",
		EndTime:                       "2024-03-14T13:30:00Z",
	}
	combined := CombineSleep([]*SleepSummary{doc1, doc2})
	assert.Equal(t, 5400.0, combined.DurationInBedSeconds)
	assert.Equal(t, 1800.0, combined.DurationDeepSleepStateSeconds)
	assert.Equal(t, 5.0, combined.NumREMEvents)
	assert.Equal(t, 1.0, combined.NumSnoringEvents)
	// last document wins for the window bounds
	assert.Equal(t, "2024-03-14T13:00:00Z", combined.StartTime)
	assert.Equal(t, "2024-03-14T13:30:00Z", combined.EndTime)
}

func Test_CombineSleep_EfficiencyDenominatorCountsDefiningDocsOnly(t *testing.T) {
	withEfficiency := &SleepSummary{SleepEfficiency: f(0.8)}
	without := &SleepSummary{}
	combined := CombineSleep([]*SleepSummary{withEfficiency, without})
	// denominator is 1, not 2
	assert.Equal(t, 0.8, combined.SleepEfficiency)

	combined = CombineSleep([]*SleepSummary{withEfficiency, {SleepEfficiency: f(0.6)}})
	assert.InDelta(t, 0.7, combined.SleepEfficiency, 1e-9)
}

func Test_CombineSleep_BreathsPerMinRounded(t *testing.T) {
	doc1 := &SleepSummary{AvgBreathsPerMin: f(14)}
	doc2 := &SleepSummary{AvgBreathsPerMin: f(15)}
	combined := CombineSleep([]*SleepSummary{doc1, doc2})
	// 14.5 rounds away from zero
	assert.Equal(t, 15.0, combined.AvgBreathsPerMin)

	combined = CombineSleep([]*SleepSummary{doc1, nil})
	assert.Equal(t, 14.0, combined.AvgBreathsPerMin)
}

func Test_CombineSleep_EmptyTimesFallBackToZero(t *testing.T) {
	doc1 := &SleepSummary{StartTime: "2024-03-13T22:10:00Z", EndTime: "2024-03-14T06:00:00Z"}
	doc2 := &SleepSummary{StartTime: "", EndTime: float64(0)}
	combined := CombineSleep([]*SleepSummary{doc1, doc2})
	// an empty or zero-valued time in the last document is missing, not a value
	assert.Equal(t, 0, combined.StartTime)
	assert.Equal(t, 0, combined.EndTime)
}

func Test_CombineSleep_SingleDocument(t *testing.T) {
	doc := &SleepSummary{
		DurationAsleepStateSeconds: 25200,
		SleepEfficiency:            f(0.92),
		StartTime:                  "2024-03-13T23:00:00Z",
	}
	combined := CombineSleep([]*SleepSummary{doc})
	assert.Equal(t, 25200.0, combined.DurationAsleepStateSeconds)
	assert.Equal(t, 0.92, combined.SleepEfficiency)
	assert.Equal(t, "2024-03-13T23:00:00Z", combined.StartTime)
	// the missing end time falls back to 0, matching the zero-initialized record
	assert.Equal(t, 0, combined.EndTime)
}
