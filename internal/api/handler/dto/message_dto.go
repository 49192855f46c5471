package dto

import (
	"strings"

	"reminder-engine/internal/pkg/apperrors"
)

const maxMessageLength = 4000

type SendMessageRequest struct {
	To      string `json:"to"`
	Message string `json:"message"`
}

func (r *SendMessageRequest) Validate() error {
	if r.To == "" || r.Message == "" {
		return apperrors.NewValidationError("", "to and message are required")
	}
	if strings.TrimSpace(r.Message) == "" {
		return apperrors.NewValidationError("message", "message is empty")
	}
	if len(r.Message) > maxMessageLength {
		return apperrors.NewValidationError("message", "message too long")
	}
	return nil
}

type SendMessageResponse struct {
	OK        bool   `json:"ok"`
	MessageID string `json:"messageId"`
}

type RunResponse struct {
	OK      bool   `json:"ok"`
	Outcome string `json:"outcome"`
	Skip    string `json:"skip,omitempty"`
	Sent    int    `json:"sent"`
	Errors  int    `json:"errors"`
}

type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}
