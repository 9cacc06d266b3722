package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/vizuhealth/report-whisperer/auth"
	"github.com/vizuhealth/report-whisperer/common"
	"github.com/vizuhealth/report-whisperer/usecase"
)

type (
	// API struct for report-whisperer
	API struct {
		report          usecase.ReportUseCase
		share           ShareUseCase
		reminders       ReminderUseCase
		messages        MessageUseCase
		exporter        ExportUseCase
		databaseAdapter usecase.DatabaseAdapter
		authClient      auth.ClientInterface
		shareLimiter    *ShareRateLimiter
		logger          *log.Logger
	}

	apiStatus struct {
		Code   int    `json:"code"`
		Reason string `json:"reason"`
	}
)

const (
	// ReportAPIPrefix logging prefix
	ReportAPIPrefix = "api/report "
)

var (
	errorStatusCheck      = common.DetailedError{Status: http.StatusInternalServerError, Code: "status_check_error", Message: "checking of the status endpoint showed an error"}
	errorNoViewPermission = common.DetailedError{Status: http.StatusForbidden, Code: "report_cant_view", Message: "user is not authorized to view data"}
	errorUnauthorized     = common.DetailedError{Status: http.StatusUnauthorized, Code: "unauthorized", Message: "Unauthorized"}
	errorLoadingEvents    = common.DetailedError{Status: http.StatusInternalServerError, Code: "json_marshal_error", Message: "internal server error"}
	errorInvalidBody      = common.DetailedError{Status: http.StatusBadRequest, Code: "invalid_body", Message: "invalid request body"}
	errorTooManyRequests  = common.DetailedError{Status: http.StatusTooManyRequests, Code: "too_many_requests", Message: "Too many requests, please try again later"}
)

func InitAPI(report usecase.ReportUseCase, share ShareUseCase, reminders ReminderUseCase, messages MessageUseCase, exporter ExportUseCase, dbAdapter usecase.DatabaseAdapter, authClient auth.ClientInterface, limiter *ShareRateLimiter, logger *log.Logger) *API {
	return &API{
		report:          report,
		share:           share,
		reminders:       reminders,
		messages:        messages,
		exporter:        exporter,
		databaseAdapter: dbAdapter,
		authClient:      authClient,
		shareLimiter:    limiter,
		logger:          logger,
	}
}

// SetHandlers set the API routes
func (a *API) SetHandlers(prefix string, rtr *mux.Router) {

	a.setHandlersV1(prefix+"/v1", rtr)

	rtr.HandleFunc("/export/{patientID}", a.middleware(a.exportReport, policyStaff, "patientID")).Methods(http.MethodGet)

	rtr.HandleFunc("/status", a.getStatus).Methods(http.MethodGet)
}

func (a *API) setHandlersV1(prefix string, rtr *mux.Router) {
	rtr.HandleFunc(prefix+"/patientsummary/{patientID}", a.middleware(a.getPatientSummary, policyStaff, "patientID")).Methods(http.MethodGet)
	rtr.HandleFunc(prefix+"/samples/{patientID}/{date}", a.middleware(a.getDailySamples, policyStaff, "patientID", "date")).Methods(http.MethodGet)

	rtr.HandleFunc(prefix+"/share/access-request", a.rateLimited(a.middleware(a.generateAccessRequest, policyPublic))).Methods(http.MethodPost)
	rtr.HandleFunc(prefix+"/share/access-request/approve", a.middleware(a.approveAccessRequest, policyStaff)).Methods(http.MethodPost)
	rtr.HandleFunc(prefix+"/share/patientsummary/{patientID}", a.middleware(a.getSharedSummary, policyShareToken, "patientID")).Methods(http.MethodGet)
	rtr.HandleFunc(prefix+"/share/samples/{patientID}/{date}", a.middleware(a.getSharedSamples, policyShareToken, "patientID", "date")).Methods(http.MethodGet)

	rtr.HandleFunc(prefix+"/reminders", a.middleware(a.setReminder, policyProfessional)).Methods(http.MethodPost)
	rtr.HandleFunc(prefix+"/reminders/{patientID}/{professionalID}", a.middleware(a.deleteReminder, policyProfessional, "patientID", "professionalID")).Methods(http.MethodDelete)

	rtr.HandleFunc(prefix+"/tasks/reminder-fire", a.middleware(a.handleReminderFired, policyServer)).Methods(http.MethodPost)
	rtr.HandleFunc(prefix+"/tasks/delete-access-request", a.middleware(a.handleDeleteAccessRequest, policyServer)).Methods(http.MethodPost)

	rtr.HandleFunc(prefix+"/messages/{patientID}/{professionalID}", a.middleware(a.getMessages, policyStaff, "patientID", "professionalID")).Methods(http.MethodGet)
	rtr.HandleFunc(prefix+"/messages/{patientID}", a.middleware(a.postMessage, policyProfessional, "patientID")).Methods(http.MethodPost)

	rtr.HandleFunc(prefix+"/{.*}", a.middleware(a.getNotFound, policyPublic)).Methods(http.MethodGet)
}

// getNotFound should it be version free?
func (a *API) getNotFound(ctx context.Context, res *common.HttpResponseWriter) error {
	res.WriteHeader(http.StatusNotFound)
	return nil
}

func (a *API) getStatus(res http.ResponseWriter, req *http.Request) {
	start := time.Now()
	var s apiStatus
	if err := a.databaseAdapter.Ping(); err != nil {
		errorLog := errorStatusCheck.SetInternalMessage(err)
		a.logError(&errorLog, start)
		s = apiStatus{Code: errorLog.Status, Reason: err.Error()}
	} else {
		s = apiStatus{Code: http.StatusOK, Reason: "OK"}
	}
	if jsonDetails, err := json.Marshal(s); err != nil {
		a.jsonError(res, errorLoadingEvents.SetInternalMessage(err), start)
	} else {
		res.Header().Add("content-type", "application/json")
		res.WriteHeader(s.Code)
		res.Write(jsonDetails)
	}
}

// log error detail and write as application/json
func (a *API) jsonError(res http.ResponseWriter, err common.DetailedError, startedAt time.Time) {
	a.logError(&err, startedAt)
	jsonErr, _ := json.Marshal(err)

	res.Header().Add("content-type", "application/json")
	res.WriteHeader(err.Status)
	res.Write(jsonErr)
}

func (a *API) logError(err *common.DetailedError, startedAt time.Time) {
	err.ID = uuid.New().String()
	a.logger.Println(ReportAPIPrefix, fmt.Sprintf("[%s][%s] failed after [%.3f]secs with error [%s][%s] ", err.ID, err.Code, time.Since(startedAt).Seconds(), err.Message, err.InternalMessage))
}
