package schema

import "math"

type (
	// SleepSummary is one stored night document, in any of the sleep*
	// categories. The two rate fields are pointers: a document that does not
	// define them must not count in their average.
	SleepSummary struct {
		DurationREMSleepStateSeconds   float64     `json:"duration_REM_sleep_state_seconds" bson:"duration_REM_sleep_state_seconds"`
		DurationAsleepStateSeconds     float64     `json:"duration_asleep_state_seconds" bson:"duration_asleep_state_seconds"`
		DurationDeepSleepStateSeconds  float64     `json:"duration_deep_sleep_state_seconds" bson:"duration_deep_sleep_state_seconds"`
		DurationInBedSeconds           float64     `json:"duration_in_bed_seconds" bson:"duration_in_bed_seconds"`
		DurationLightSleepStateSeconds float64     `json:"duration_light_sleep_state_seconds" bson:"duration_light_sleep_state_seconds"`
		NumREMEvents                   float64     `json:"num_REM_events" bson:"num_REM_events"`
		NumSnoringEvents               float64     `json:"num_snoring_events" bson:"num_snoring_events"`
		RestingHrBpm                   float64     `json:"resting_hr_bpm" bson:"resting_hr_bpm"`
		AvgHrvRmssd                    float64     `json:"avg_hrv_rmssd" bson:"avg_hrv_rmssd"`
		SleepEfficiency                *float64    `json:"sleep_efficiency,omitempty" bson:"sleep_efficiency,omitempty"`
		AvgBreathsPerMin               *float64    `json:"avg_breaths_per_min,omitempty" bson:"avg_breaths_per_min,omitempty"`
		StartTime                      interface{} `json:"start_time" bson:"start_time"`
		EndTime                        interface{} `json:"end_time" bson:"end_time"`
	}

	// CombinedSleepRecord is the derived value for one calendar day, merged
	// from the at-most-two contributing night documents. Never stored.
	CombinedSleepRecord struct {
		DurationREMSleepStateSeconds   float64     `json:"duration_REM_sleep_state_seconds"`
		DurationAsleepStateSeconds     float64     `json:"duration_asleep_state_seconds"`
		DurationDeepSleepStateSeconds  float64     `json:"duration_deep_sleep_state_seconds"`
		DurationInBedSeconds           float64     `json:"duration_in_bed_seconds"`
		DurationLightSleepStateSeconds float64     `json:"duration_light_sleep_state_seconds"`
		NumREMEvents                   float64     `json:"num_REM_events"`
		NumSnoringEvents               float64     `json:"num_snoring_events"`
		RestingHrBpm                   float64     `json:"resting_hr_bpm"`
		AvgHrvRmssd                    float64     `json:"avg_hrv_rmssd"`
		SleepEfficiency                float64     `json:"sleep_efficiency"`
		AvgBreathsPerMin               float64     `json:"avg_breaths_per_min"`
		StartTime                      interface{} `json:"start_time"`
		EndTime                        interface{} `json:"end_time"`
	}
)

// NewCombinedSleepRecord returns the zero-initialized merge accumulator.
// All numeric fields start at 0 so a day without data still serializes as a
// complete record, not as nulls.
func NewCombinedSleepRecord() CombinedSleepRecord {
	return CombinedSleepRecord{StartTime: 0, EndTime: 0}
}

// timeOrZero normalizes an absent timestamp to 0. Stored documents carry
// nil, an empty string or a numeric 0 when the device sent no time.
func timeOrZero(v interface{}) interface{} {
	if v == nil || v == "" || v == 0 || v == float64(0) {
		return 0
	}
	return v
}

// CombineSleep merges the contributing night documents of one calendar day.
// Additive fields (durations, event counts) are summed. sleep_efficiency and
// avg_breaths_per_min are averaged over the documents that define them only,
// and left at 0 when none does. start_time/end_time are last-document-wins,
// so callers must pass the documents in bucket order [prevDay_day, day_day].
func CombineSleep(docs []*SleepSummary) CombinedSleepRecord {
	combined := NewCombinedSleepRecord()
	sleepEfficiencyCount := 0
	avgBreathsPerMinCount := 0

	for _, doc := range docs {
		if doc == nil {
			continue
		}
		combined.DurationREMSleepStateSeconds += doc.DurationREMSleepStateSeconds
		combined.DurationAsleepStateSeconds += doc.DurationAsleepStateSeconds
		combined.DurationDeepSleepStateSeconds += doc.DurationDeepSleepStateSeconds
		combined.DurationInBedSeconds += doc.DurationInBedSeconds
		combined.DurationLightSleepStateSeconds += doc.DurationLightSleepStateSeconds
		combined.NumREMEvents += doc.NumREMEvents
		combined.NumSnoringEvents += doc.NumSnoringEvents
		combined.RestingHrBpm += doc.RestingHrBpm
		combined.AvgHrvRmssd += doc.AvgHrvRmssd

		combined.StartTime = timeOrZero(doc.StartTime)
		combined.EndTime = timeOrZero(doc.EndTime)

		if doc.SleepEfficiency != nil {
			combined.SleepEfficiency += *doc.SleepEfficiency
			sleepEfficiencyCount++
		}
		if doc.AvgBreathsPerMin != nil {
			combined.AvgBreathsPerMin += *doc.AvgBreathsPerMin
			avgBreathsPerMinCount++
		}
	}

	if sleepEfficiencyCount > 0 {
		combined.SleepEfficiency /= float64(sleepEfficiencyCount)
	}
	if avgBreathsPerMinCount > 0 {
		combined.AvgBreathsPerMin = math.Round(combined.AvgBreathsPerMin / float64(avgBreathsPerMinCount))
	}

	return combined
}
