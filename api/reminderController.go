package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/vizuhealth/report-whisperer/common"
	"github.com/vizuhealth/report-whisperer/usecase"
)

// setReminder creates or replaces the reminder a professional holds for one
// patient. Replacing cancels the previous scheduled task first.
func (a *API) setReminder(ctx context.Context, res *common.HttpResponseWriter) error {
	var params usecase.ReminderParams
	if err := json.Unmarshal(res.Body, &params); err != nil {
		return res.WriteError(&errorInvalidBody)
	}

	taskID, err := a.reminders.Set(ctx, params)
	if err != nil {
		return res.WriteError(reminderError(err))
	}
	return res.WriteJSON(map[string]string{"taskId": taskID})
}

// deleteReminder cancels the reminder and its scheduled task.
func (a *API) deleteReminder(ctx context.Context, res *common.HttpResponseWriter) error {
	patientID := res.VARS["patientID"]
	professionalID := res.VARS["professionalID"]

	if err := a.reminders.Delete(ctx, patientID, professionalID); err != nil {
		return res.WriteError(reminderError(err))
	}
	return res.WriteJSON(map[string]string{"status": "deleted"})
}

// handleReminderFired is the scheduler callback: send the reminder email and
// schedule the next occurrence.
func (a *API) handleReminderFired(ctx context.Context, res *common.HttpResponseWriter) error {
	var params usecase.ReminderParams
	if err := json.Unmarshal(res.Body, &params); err != nil {
		return res.WriteError(&errorInvalidBody)
	}

	if err := a.reminders.HandleFired(ctx, params); err != nil {
		return res.WriteError(reminderError(err))
	}
	return res.WriteJSON(map[string]string{"status": "ok"})
}

func reminderError(err error) *common.DetailedError {
	switch {
	case errors.Is(err, usecase.ErrInvalidFrequency),
		errors.Is(err, usecase.ErrInvalidStartDay),
		errors.Is(err, usecase.ErrInvalidReminderTime):
		return &common.DetailedError{
			Status:          http.StatusBadRequest,
			Code:            "invalid_parameters",
			Message:         err.Error(),
			InternalMessage: err.Error(),
		}
	case errors.Is(err, usecase.ErrReminderNotFound):
		return &common.DetailedError{
			Status:  http.StatusNotFound,
			Code:    "reminder_not_found",
			Message: err.Error(),
		}
	case errors.Is(err, usecase.ErrReminderTaskMissing):
		return &common.DetailedError{
			Status:  http.StatusNotFound,
			Code:    "task_not_found",
			Message: err.Error(),
		}
	default:
		return &common.DetailedError{
			Status:          http.StatusInternalServerError,
			Code:            "task_scheduler_error",
			Message:         "internal server error",
			InternalMessage: err.Error(),
		}
	}
}
