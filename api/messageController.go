package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/vizuhealth/report-whisperer/common"
	"github.com/vizuhealth/report-whisperer/usecase"
)

type postMessageBody struct {
	Text         string               `json:"text"`
	Professional usecase.Professional `json:"professional"`
}

// getMessages returns the thread between one patient and one professional.
func (a *API) getMessages(ctx context.Context, res *common.HttpResponseWriter) error {
	patientID := res.VARS["patientID"]
	professionalID := res.VARS["professionalID"]

	messages, err := a.messages.List(ctx, patientID, professionalID)
	if err != nil {
		return res.WriteError(&common.DetailedError{
			Status:          http.StatusInternalServerError,
			Code:            "data_store_error",
			Message:         "internal server error",
			InternalMessage: err.Error(),
		})
	}
	return res.WriteJSON(messages)
}

// postMessage appends a message to the patient thread.
func (a *API) postMessage(ctx context.Context, res *common.HttpResponseWriter) error {
	patientID := res.VARS["patientID"]

	var body postMessageBody
	if err := json.Unmarshal(res.Body, &body); err != nil || body.Text == "" || body.Professional.UID == "" {
		return res.WriteError(&errorInvalidBody)
	}

	id, err := a.messages.Send(ctx, patientID, body.Text, body.Professional)
	if err != nil {
		return res.WriteError(&common.DetailedError{
			Status:          http.StatusInternalServerError,
			Code:            "data_store_error",
			Message:         "internal server error",
			InternalMessage: err.Error(),
		})
	}
	res.WriteHeader(http.StatusCreated)
	return res.WriteJSON(map[string]string{"id": id})
}
