package domain

import (
	"fmt"
	"testing"
	"time"
)

func TestAppError(t *testing.T) {
	tests := []struct {
		name      string
		code      string
		message   string
		details   string
		requestID string
	}{
		{
			name:      "Invalid period",
			code:      ErrInvalidInput,
			message:   "Unknown trend period",
			details:   "period must be daily, weekly or monthly",
			requestID: "req-123",
		},
		{
			name:      "View failure",
			code:      ErrViewFailed,
			message:   "Failed to get trends",
			details:   "panic in aggregation",
			requestID: "req-456",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewAppError(tt.code, tt.message, tt.details, tt.requestID)

			if err.Code != tt.code {
				t.Errorf("Expected code %s, got %s", tt.code, err.Code)
			}
			if err.Message != tt.message {
				t.Errorf("Expected message %s, got %s", tt.message, err.Message)
			}
			if err.Details != tt.details {
				t.Errorf("Expected details %s, got %s", tt.details, err.Details)
			}
			if err.RequestID != tt.requestID {
				t.Errorf("Expected requestID %s, got %s", tt.requestID, err.RequestID)
			}
			if time.Since(err.Timestamp) > time.Minute {
				t.Errorf("Timestamp should be recent, got %v", err.Timestamp)
			}

			expectedError := tt.code + ": " + tt.message
			if err.Error() != expectedError {
				t.Errorf("Expected error string %s, got %s", expectedError, err.Error())
			}
		})
	}
}

func TestValidationError(t *testing.T) {
	err := NewValidationError("period", "unknown period", "hourly")

	if err.Field != "period" {
		t.Errorf("Expected field period, got %s", err.Field)
	}
	if err.Value != "hourly" {
		t.Errorf("Expected value hourly, got %v", err.Value)
	}

	expectedError := "validation error for field 'period': unknown period"
	if err.Error() != expectedError {
		t.Errorf("Expected error string %s, got %s", expectedError, err.Error())
	}
}

func TestErrorCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"app error", NewAppError(ErrStorage, "down", "", ""), ErrStorage},
		{"wrapped app error", fmt.Errorf("loading: %w", NewAppError(ErrRateLimit, "slow down", "", "")), ErrRateLimit},
		{"validation error", NewValidationError("period", "bad", "x"), ErrValidation},
		{"plain error", fmt.Errorf("boom"), ErrInternalServer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ErrorCode(tt.err); got != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, got)
			}
		})
	}
}
