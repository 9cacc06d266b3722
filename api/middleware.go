package api

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"golang.org/x/time/rate"

	"github.com/vizuhealth/report-whisperer/common"
)

// HandlerLoggerFunc expose our httpResponseWriter API
type HandlerLoggerFunc func(context.Context, *common.HttpResponseWriter) error

// maxBodyBytes caps how much of a request body the middleware buffers.
const maxBodyBytes = 1 << 20

type accessPolicy int

const (
	// policyPublic performs no authentication at all.
	policyPublic accessPolicy = iota
	// policyStaff accepts healthcare professionals, backend services and the
	// patient reading their own record.
	policyStaff
	// policyProfessional accepts healthcare professionals and backend services.
	policyProfessional
	// policyServer accepts backend services only, used by the task callbacks.
	policyServer
	// policyShareToken accepts a valid x-share-token header, no account needed.
	policyShareToken
)

// middleware logs received requests, resolves the trace session and applies
// the route access policy before handing over to the handler.
func (a *API) middleware(fn HandlerLoggerFunc, policy accessPolicy, params ...string) http.HandlerFunc {
	// The mux handler func:
	return func(w http.ResponseWriter, r *http.Request) {
		var err error
		start := time.Now().UTC()

		// It is recommended by go to get the request information before writing
		// So get theses now

		logErrors := make([]string, 0, 5)
		logRequest := fmt.Sprintf("%s - %s %s HTTP/%d.%d", r.RemoteAddr, r.Method, r.URL.String(), r.ProtoMajor, r.ProtoMinor)

		traceID := r.Header.Get("x-trace-session")
		if !common.IsValidUUID(traceID) {
			// We want a trace id, but for now we do not enforce it
			logErrors = append(logErrors, fmt.Sprintf("no-trace:\"%s\"", traceID))
			traceID = uuid.New().String()
		}

		// Make our context
		ctx := common.TimeItContext(r.Context())

		var body []byte
		if r.Body != nil {
			body, _ = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
		}

		res := common.HttpResponseWriter{
			Header:     r.Header.Clone(), // Clone the header, to be sure
			URL:        r.URL,
			VARS:       nil,
			TraceID:    traceID,
			Body:       body,
			StatusCode: http.StatusOK, // Default status
			Err:        nil,
		}

		var targetPatientID string
		// The handler have parameters, get them
		if len(params) > 0 {
			res.VARS = mux.Vars(r) // Decode route parameter

			if common.Contains(params, "patientID") {
				// patientID is a commonly used parameter
				// See if we can view the data
				targetPatientID = res.VARS["patientID"]

				if len(targetPatientID) > 64 {
					// Quick verification on the patientID for security reason
					// Partial but may help without beeing a burden
					// 64 characters is probably a good compromise
					res.WriteError(&common.DetailedError{
						Status:          http.StatusBadRequest,
						Code:            "invalid_patientid",
						Message:         "Invalid parameter patientId",
						InternalMessage: "patientID do not match the regex",
					})
				}
			}
		}

		if res.Err == nil {
			if errAuth := a.authorize(r, policy, targetPatientID); errAuth != nil {
				err = res.WriteError(errAuth)
			}
		}

		// Mainteners: No read from the request below this point!

		// Make the call to the API function if we can:
		if res.Err == nil {
			err = fn(ctx, &res)
			if err != nil {
				logErrors = append(logErrors, fmt.Sprintf("efn:\"%s\"", err))
			}
		}

		// We will send a JSON, so advertise it for all of our requests
		w.Header().Add("Content-Type", "application/json")
		w.WriteHeader(res.StatusCode)
		_, err = w.Write([]byte(res.WriteBuffer.String()))
		if err != nil {
			logErrors = append(logErrors, fmt.Sprintf("eww:\"%s\"", err))
		}

		// Log errors management
		if res.Err != nil {
			if res.Err.Code != "" {
				logErrors = append(logErrors, fmt.Sprintf("code:\"%s\"", res.Err.Code))
			}
			if res.Err.InternalMessage != "" {
				logErrors = append(logErrors, fmt.Sprintf("err:\"%s\"", res.Err.InternalMessage))
			}
		}

		// Get the time spent on it
		end := time.Now().UTC()
		dur := end.Sub(start).Milliseconds()
		// Log the message
		var logError string
		if len(logErrors) > 0 {
			logError = fmt.Sprintf("{%s} - ", strings.Join(logErrors, ","))
		}

		timerResults := common.TimeResults(ctx)
		if len(timerResults) > 0 {
			timerResults = fmt.Sprintf("{%s} %d ms", timerResults, dur)
		} else {
			timerResults = fmt.Sprintf("%d ms", dur)
		}
		a.logger.Printf("{%s} %s %d - %s%s - %d bytes", traceID, logRequest, res.StatusCode, logError, timerResults, res.Size)
	}
}

func (a *API) authorize(r *http.Request, policy accessPolicy, targetPatientID string) *common.DetailedError {
	switch policy {
	case policyPublic:
		return nil

	case policyShareToken:
		token := r.Header.Get("x-share-token")
		if token == "" {
			return &errorUnauthorized
		}
		if _, err := a.share.VerifyShareToken(r.Context(), token); err != nil {
			return &errorUnauthorized
		}
		return nil

	default:
		td := a.authClient.Authenticate(r)
		if td == nil {
			a.logger.Printf("%s - %s %s HTTP/%d.%d - Missing header token", r.RemoteAddr, r.Method, r.URL.String(), r.ProtoMajor, r.ProtoMinor)
			return &errorUnauthorized
		}
		if td.IsServer {
			return nil
		}
		switch policy {
		case policyServer:
			return &errorNoViewPermission
		case policyProfessional:
			if td.IsHealthcareProfessional {
				return nil
			}
			return &errorNoViewPermission
		default: // policyStaff
			if td.IsHealthcareProfessional {
				return nil
			}
			if targetPatientID != "" && td.UserID == targetPatientID {
				return nil
			}
			return &errorNoViewPermission
		}
	}
}

// ShareRateLimiter throttles the public access-request route per client IP.
type ShareRateLimiter struct {
	mu       sync.Mutex
	clients  map[string]*rate.Limiter
	lastSeen map[string]time.Time
	limit    rate.Limit
	burst    int
	window   time.Duration
}

// NewShareRateLimiter allows maxRequests per window for each client IP.
func NewShareRateLimiter(maxRequests int, window time.Duration) *ShareRateLimiter {
	return &ShareRateLimiter{
		clients:  make(map[string]*rate.Limiter),
		lastSeen: make(map[string]time.Time),
		limit:    rate.Limit(float64(maxRequests) / window.Seconds()),
		burst:    maxRequests,
		window:   window,
	}
}

func (l *ShareRateLimiter) allow(clientIP string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	// Drop idle clients so the map does not grow without bound
	for ip, seen := range l.lastSeen {
		if now.Sub(seen) > l.window {
			delete(l.clients, ip)
			delete(l.lastSeen, ip)
		}
	}

	limiter, present := l.clients[clientIP]
	if !present {
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.clients[clientIP] = limiter
	}
	l.lastSeen[clientIP] = now
	return limiter.Allow()
}

func (a *API) rateLimited(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clientIP, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			clientIP = r.RemoteAddr
		}
		if !a.shareLimiter.allow(clientIP) {
			a.jsonError(w, errorTooManyRequests, time.Now())
			return
		}
		next(w, r)
	}
}
