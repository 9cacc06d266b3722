package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/vizuhealth/report-whisperer/common"
	"github.com/vizuhealth/report-whisperer/usecase"
)

type (
	accessRequestBody struct {
		AccessRequestID string `json:"accessRequestId"`
	}

	accessRequestResponse struct {
		Data accessRequestBody `json:"data"`
	}
)

// generateAccessRequest creates a pending access request and returns its
// encrypted token. The caller shows the token to a professional who approves
// it from their own session.
func (a *API) generateAccessRequest(ctx context.Context, res *common.HttpResponseWriter) error {
	token, err := a.share.Generate(ctx)
	if err != nil {
		return res.WriteError(&common.DetailedError{
			Status:          http.StatusInternalServerError,
			Code:            "access_request_error",
			Message:         "internal server error",
			InternalMessage: err.Error(),
		})
	}
	res.WriteHeader(http.StatusCreated)
	return res.WriteJSON(accessRequestResponse{Data: accessRequestBody{AccessRequestID: token}})
}

// approveAccessRequest moves a pending request to approved. The body carries
// the plain request id, not the encrypted token: only an authenticated staff
// session ever sees it.
func (a *API) approveAccessRequest(ctx context.Context, res *common.HttpResponseWriter) error {
	var body accessRequestBody
	if err := json.Unmarshal(res.Body, &body); err != nil || body.AccessRequestID == "" {
		return res.WriteError(&errorInvalidBody)
	}

	if err := a.share.Approve(ctx, body.AccessRequestID); err != nil {
		switch {
		case errors.Is(err, usecase.ErrAccessRequestNotFound):
			return res.WriteError(&common.DetailedError{
				Status:  http.StatusNotFound,
				Code:    "access_request_not_found",
				Message: "no access request for specified id",
			})
		default:
			return res.WriteError(&common.DetailedError{
				Status:          http.StatusConflict,
				Code:            "access_request_conflict",
				Message:         err.Error(),
				InternalMessage: err.Error(),
			})
		}
	}
	return res.WriteJSON(map[string]string{"status": "approved"})
}

// getSharedSummary serves the quick-share report. The share token was
// already verified by the route policy.
func (a *API) getSharedSummary(ctx context.Context, res *common.HttpResponseWriter) error {
	patientID := res.VARS["patientID"]

	report, err := a.report.GetQuickShareReport(ctx, res.TraceID, patientID)
	if err != nil {
		return res.WriteError(err)
	}
	return res.WriteJSON(report)
}

// getSharedSamples serves one day of samples behind the share token.
func (a *API) getSharedSamples(ctx context.Context, res *common.HttpResponseWriter) error {
	return a.getDailySamples(ctx, res)
}

// handleDeleteAccessRequest is the expiry task callback. Deleting an already
// deleted request succeeds, the scheduler may retry.
func (a *API) handleDeleteAccessRequest(ctx context.Context, res *common.HttpResponseWriter) error {
	var body accessRequestBody
	if err := json.Unmarshal(res.Body, &body); err != nil || body.AccessRequestID == "" {
		return res.WriteError(&errorInvalidBody)
	}

	if err := a.share.Delete(ctx, body.AccessRequestID); err != nil {
		return res.WriteError(&common.DetailedError{
			Status:          http.StatusInternalServerError,
			Code:            "access_request_error",
			Message:         "internal server error",
			InternalMessage: err.Error(),
		})
	}
	return res.WriteJSON(map[string]string{"status": "deleted"})
}
