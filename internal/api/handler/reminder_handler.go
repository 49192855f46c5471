package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"reminder-engine/internal/api/handler/dto"
	"reminder-engine/internal/batch"
	"reminder-engine/internal/domain/reminder"
	"reminder-engine/internal/pkg/apperrors"
	"reminder-engine/internal/transport/whatsapp"
)

// Runner is the slice of the reminder job the control surface needs.
type Runner interface {
	Run(ctx context.Context) (*batch.RunResult, error)
	Running() bool
}

type ReminderHandler struct {
	runner Runner
	sender whatsapp.Sender
	logger *slog.Logger
}

func NewReminderHandler(runner Runner, sender whatsapp.Sender, logger *slog.Logger) *ReminderHandler {
	return &ReminderHandler{
		runner: runner,
		sender: sender,
		logger: logger.With("component", "ReminderHandler"),
	}
}

func decodeJSON(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return fmt.Errorf("no request body")
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(v)
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		slog.Default().Error("Failed to marshal JSON response", "error", err)
		http.Error(w, `{"error":{"message":"Internal server error"}}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(response)
}

func respondError(w http.ResponseWriter, err error) {
	status, message, field := http.StatusInternalServerError, "An unexpected error occurred.", ""
	var validationError *apperrors.ValidationError

	switch {
	case errors.Is(err, apperrors.ErrTransportUnavailable):
		status, message = http.StatusServiceUnavailable, "Messaging transport unavailable."
	case errors.Is(err, apperrors.ErrRunInProgress):
		status, message = http.StatusConflict, "A reminder run is already in progress."
	case errors.As(err, &validationError):
		status, message, field = http.StatusBadRequest, validationError.Message, validationError.Field
	case errors.Is(err, apperrors.ErrInvalidPhoneNumber), errors.Is(err, apperrors.ErrInvalidArgument), errors.Is(err, apperrors.ErrValidation):
		status, message = http.StatusBadRequest, err.Error()
	default:
		slog.Default().Error("Unhandled internal error", "error", err)
	}

	respondJSON(w, status, dto.ErrorResponse{
		Error: dto.ErrorDetail{Message: message, Field: field},
	})
}

// SendMessage delivers one ad hoc message through the gateway. It applies
// the same contact normalization as the dispatch engine.
func (h *ReminderHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req dto.SendMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	if err := req.Validate(); err != nil {
		respondError(w, err)
		return
	}

	if reminder.NormalizeJID(req.To) == "" {
		respondError(w, fmt.Errorf("%w: %q", apperrors.ErrInvalidPhoneNumber, req.To))
		return
	}

	if !h.sender.IsAvailable(r.Context()) {
		respondError(w, apperrors.ErrTransportUnavailable)
		return
	}

	messageID, err := h.sender.SendText(r.Context(), req.To, strings.TrimSpace(req.Message))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Failed to send message via API", "to", req.To, "error", err)
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.SendMessageResponse{OK: true, MessageID: messageID})
}

// RunNow triggers a dispatch run on demand. It is rejected when the
// transport is down or a run is already in progress; otherwise it blocks
// until the run finishes and reports its counters.
func (h *ReminderHandler) RunNow(w http.ResponseWriter, r *http.Request) {
	if !h.sender.IsAvailable(r.Context()) {
		respondError(w, apperrors.ErrTransportUnavailable)
		return
	}

	res, err := h.runner.Run(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	if res.Skip == batch.SkipAlreadyRunning {
		respondError(w, apperrors.ErrRunInProgress)
		return
	}

	respondJSON(w, http.StatusOK, dto.RunResponse{
		OK:      true,
		Outcome: string(res.Outcome),
		Skip:    string(res.Skip),
		Sent:    res.Sent,
		Errors:  res.Errors,
	})
}
