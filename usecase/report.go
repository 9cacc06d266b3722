package usecase

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/vizuhealth/report-whisperer/common"
	"github.com/vizuhealth/report-whisperer/schema"
)

const (
	categoryBodyMeasurements = "bodyMeasurementsSamples"
	categorySymptoms         = "selfReportedSymptoms"

	// quick share exposes a trailing window of this many years
	quickShareYears = 2
)

// longTermReportCategories feed the full-history accordion view and the
// quick-share report.
var longTermReportCategories = []string{
	"bodySaturationSummary",
	"bodyMeasurementsSamples",
	"bodyBloodPressureSamples",
	"dailyActiveDurationsSummary",
	"dailyCaloriesSummary",
	"dailyDistanceSummary",
	"dailyHeartRateSummary",
	"dailyOxygenSummary",
	"dailyStressSummary",
	"selfReportedSymptoms",
	"sleepBreathsSummary",
	"sleepHeartRateSummary",
	"sleepSummary",
}

// dailySampleCategories resolve to exactly one logical record per day.
// Symptoms are handled separately: they are matched on their own DateAndTime
// field rather than a bucket ID.
var dailySampleCategories = []string{
	"sleepSummary",
	"sleepHypnogramSamples",
	"sleepHeartRateSummary",
	"sleepHeartRateSamples",
	"sleepBreathsSummary",
	"sleepSnoringSummary",
	"sleepSaturationSummary",
	"dailyOxygenSummary",
	"dailyDistanceSummary",
	"dailyHeartRateSummary",
	"dailyHeartRateSamples",
	"dailyActiveDurationsSummary",
	"dailyStressSummary",
	"dailyScoresSummary",
	"bodyBloodPressureSamples",
	"bodyMeasurementsSamples",
	"bodyGlucoseSummary",
	"bodyGlucoseSamples",
	"preventivePlans",
}

var (
	errorRunningQuery    = common.DetailedError{Status: http.StatusInternalServerError, Code: "data_store_error", Message: "internal server error"}
	errorPatientNotFound = common.DetailedError{Status: http.StatusNotFound, Code: "patient_not_found", Message: "patient not found"}
	errorInvalidParams   = common.DetailedError{Status: http.StatusBadRequest, Code: "invalid_parameters", Message: "one or more parameters are invalid"}
)

var categoryFetchTimer = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:      "category_fetch_time",
	Help:      "A histogram for per-category store fetch time (ms)",
	Buckets:   prometheus.LinearBuckets(5, 5, 100),
	Subsystem: "reportwhisperer",
	Namespace: "vizu",
})

var reportAssemblyTimer = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:      "report_assembly_time",
	Help:      "A histogram for full report assembly time (ms)",
	Buckets:   prometheus.LinearBuckets(20, 20, 150),
	Subsystem: "reportwhisperer",
	Namespace: "vizu",
})

// PatientReport assembles biomarker reports from the document store. All
// entry points are read-only.
type PatientReport struct {
	store  PatientStore
	logger *log.Logger
	now    func() time.Time
}

func NewPatientReport(logger *log.Logger, store PatientStore) *PatientReport {
	return &PatientReport{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// GetFullReport returns the patient document plus the complete history of
// every long-term category, keyed by category name. No date windowing: the
// calendar UI slices by month on the client.
func (r *PatientReport) GetFullReport(ctx context.Context, traceID string, patientID string) (map[string]interface{}, *common.DetailedError) {
	start := time.Now()
	defer func() { reportAssemblyTimer.Observe(float64(time.Since(start).Milliseconds())) }()

	report, detailedErr := r.patientEnvelope(ctx, traceID, patientID)
	if detailedErr != nil {
		return nil, detailedErr
	}

	for _, category := range longTermReportCategories {
		docs, err := r.fetchCategory(ctx, traceID, patientID, category, nil)
		if err != nil {
			return nil, r.queryError("GetFullReport", traceID, patientID, err)
		}
		if category == categoryBodyMeasurements {
			for i := range docs {
				docs[i] = schema.ApplyWeightAverage(docs[i])
			}
		}
		report[category] = docs
	}

	return report, nil
}

// GetQuickShareReport is the token-gated variant: the same categories as the
// full report, bounded server-side to the trailing two years so a grantee
// never sees older data. The cutoff itself is inclusive.
func (r *PatientReport) GetQuickShareReport(ctx context.Context, traceID string, patientID string) (map[string]interface{}, *common.DetailedError) {
	report, detailedErr := r.patientEnvelope(ctx, traceID, patientID)
	if detailedErr != nil {
		return nil, detailedErr
	}

	cutoff := r.now().UTC().AddDate(-quickShareYears, 0, 0)
	for _, category := range longTermReportCategories {
		docs, err := r.fetchCategory(ctx, traceID, patientID, category, &cutoff)
		if err != nil {
			return nil, r.queryError("GetQuickShareReport", traceID, patientID, err)
		}
		if category == categoryBodyMeasurements {
			for i := range docs {
				docs[i] = schema.ApplyWeightAverage(docs[i])
			}
		}
		report[category] = docs
	}

	return report, nil
}

// GetDailySamples resolves every sample category to one logical record for
// the given "YYYY-MM-DD" date, or nil when the day has no data. Sleep
// categories merge their two night buckets, body measurements are reduced to
// per-field averages, symptoms are matched on their calendar day.
func (r *PatientReport) GetDailySamples(ctx context.Context, traceID string, patientID string, date string) (map[string]interface{}, *common.DetailedError) {
	if _, err := time.Parse("2006-01-02", date); err != nil {
		detailedErr := errorInvalidParams.SetInternalMessage(err)
		return nil, &detailedErr
	}

	report, detailedErr := r.patientEnvelope(ctx, traceID, patientID)
	if detailedErr != nil {
		return nil, detailedErr
	}

	bucketID := schema.DailyDocID(date)
	for _, category := range dailySampleCategories {
		if strings.HasPrefix(category, "sleep") {
			report[category] = r.combineSleepForDate(ctx, traceID, patientID, category, date)
			continue
		}

		common.TimeIt(ctx, category)
		doc, err := r.store.GetBucket(ctx, traceID, patientID, category, bucketID)
		common.TimeEnd(ctx, category)
		if err != nil {
			return nil, r.queryError("GetDailySamples", traceID, patientID, err)
		}
		if doc == nil {
			report[category] = nil
			continue
		}
		if category == categoryBodyMeasurements {
			doc = schema.ApplyMeasurementAverages(doc)
		}
		report[category] = doc
	}

	symptoms, err := r.symptomsOn(ctx, traceID, patientID, date)
	if err != nil {
		return nil, r.queryError("GetDailySamples", traceID, patientID, err)
	}
	report[categorySymptoms] = symptoms

	return report, nil
}

// combineSleepForDate merges the two candidate night buckets. Store errors
// are swallowed here on purpose: a failed sleep read must not take down the
// whole report, the category just contributes nothing for that date.
func (r *PatientReport) combineSleepForDate(ctx context.Context, traceID string, patientID string, category string, date string) schema.CombinedSleepRecord {
	bucketIDs := schema.SleepDocIDs(date)
	common.TimeIt(ctx, category)
	defer common.TimeEnd(ctx, category)
	docs := make([]*schema.SleepSummary, 0, 2)
	for _, bucketID := range bucketIDs {
		doc, err := r.store.GetSleepBucket(ctx, traceID, patientID, category, bucketID)
		if err != nil {
			r.logger.Printf("{%s} sleep fetch failed patient=[%s] category=[%s] bucket=[%s]: %v", traceID, patientID, category, bucketID, err)
			continue
		}
		docs = append(docs, doc)
	}
	return schema.CombineSleep(docs)
}

// symptomsOn returns the self-reported symptoms whose DateAndTime falls on
// the requested calendar day. The category is small so it is filtered here
// instead of in the store.
func (r *PatientReport) symptomsOn(ctx context.Context, traceID string, patientID string, date string) ([]schema.GenericDocument, error) {
	docs, err := r.fetchCategory(ctx, traceID, patientID, categorySymptoms, nil)
	if err != nil {
		return nil, err
	}
	day := schema.FormatDate(date)
	matching := make([]schema.GenericDocument, 0)
	for _, doc := range docs {
		if schema.DayOf(doc["DateAndTime"]) == day {
			matching = append(matching, doc)
		}
	}
	return matching, nil
}

func (r *PatientReport) patientEnvelope(ctx context.Context, traceID string, patientID string) (map[string]interface{}, *common.DetailedError) {
	patient, err := r.store.GetPatient(ctx, traceID, patientID)
	if err != nil {
		return nil, r.queryError("patientEnvelope", traceID, patientID, err)
	}
	if patient == nil {
		notFound := errorPatientNotFound
		return nil, &notFound
	}
	return map[string]interface{}{
		"patient": schema.FormatPatient(patient),
	}, nil
}

func (r *PatientReport) fetchCategory(ctx context.Context, traceID string, patientID string, category string, cutoff *time.Time) ([]schema.GenericDocument, error) {
	start := time.Now()
	common.TimeIt(ctx, category)
	defer func() {
		common.TimeEnd(ctx, category)
		categoryFetchTimer.Observe(float64(time.Since(start).Milliseconds()))
	}()
	if cutoff != nil {
		return r.store.GetCategorySince(ctx, traceID, patientID, category, *cutoff)
	}
	return r.store.GetCategory(ctx, traceID, patientID, category)
}

func (r *PatientReport) queryError(method string, traceID string, patientID string, err error) *common.DetailedError {
	detailedErr := errorRunningQuery
	detailedErr.InternalMessage = method + " failed: patient=[" + patientID + "], traceID=[" + traceID + "] : " + err.Error()
	return &detailedErr
}
