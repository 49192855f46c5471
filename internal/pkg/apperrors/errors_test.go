package apperrors

import (
	"errors"
	"testing"
)

func TestAppErrorError(t *testing.T) {
	tests := []struct {
		name     string
		appError *AppError
		expected string
	}{
		{
			name: "With Code",
			appError: &AppError{
				Code:    "TEST_CODE",
				Message: "This is a test error",
			},
			expected: "[TEST_CODE] This is a test error",
		},
		{
			name: "Without Code",
			appError: &AppError{
				Message: "This is a test error without code",
			},
			expected: "This is a test error without code",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.appError.Error()
			if result != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, result)
			}
		})
	}
}

func TestNewValidationError(t *testing.T) {
	err := NewValidationError("message", "message is empty")

	if !errors.Is(err, ErrValidation) {
		t.Errorf("expected error to match ErrValidation")
	}

	var validationError *ValidationError
	if !errors.As(err, &validationError) {
		t.Fatalf("expected error to unwrap to *ValidationError")
	}
	if validationError.Field != "message" {
		t.Errorf("expected field %q, got %q", "message", validationError.Field)
	}

	expected := "validation failed for field 'message': message is empty"
	if validationError.Error() != expected {
		t.Errorf("expected %q, got %q", expected, validationError.Error())
	}
}
