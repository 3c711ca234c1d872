package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appErr   *AppError
		expected string
	}{
		{
			name:     "without underlying error",
			appErr:   New(CodeNotFound, "nudge not found", http.StatusNotFound),
			expected: "NOT_FOUND: nudge not found",
		},
		{
			name:     "with underlying error",
			appErr:   Internal("failed to persist message", errors.New("connection reset")),
			expected: "INTERNAL_ERROR: failed to persist message (caused by: connection reset)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.appErr.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestConstructors_StatusAndCode(t *testing.T) {
	tests := []struct {
		name   string
		err    *AppError
		code   string
		status int
	}{
		{"not found", NotFound("Venue"), CodeNotFound, http.StatusNotFound},
		{"validation", Validation("bad", nil), CodeValidation, http.StatusUnprocessableEntity},
		{"invalid input", InvalidInput("bad"), CodeInvalidInput, http.StatusBadRequest},
		{"unauthorized", Unauthorized("no token"), CodeUnauthorized, http.StatusUnauthorized},
		{"forbidden", Forbidden("locked"), CodeForbidden, http.StatusForbidden},
		{"conflict", Conflict("busy"), CodeConflict, http.StatusConflict},
		{"verification", VerificationFailed("too far"), CodeVerificationFailed, http.StatusForbidden},
		{"rate limited", RateLimited("slow down"), CodeRateLimited, http.StatusTooManyRequests},
		{"timeout", Timeout("slow"), CodeTimeout, http.StatusGatewayTimeout},
		{"unavailable", Unavailable("Receipt verifier"), CodeUnavailable, http.StatusServiceUnavailable},
		{"internal", Internal("boom", nil), CodeInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.code {
				t.Errorf("expected code %s, got %s", tt.code, tt.err.Code)
			}
			if tt.err.StatusCode() != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, tt.err.StatusCode())
			}
		})
	}
}

func TestNotFoundWithID(t *testing.T) {
	err := NotFoundWithID("Nudge", "65f0c0ffee")

	if err.Message != "Nudge not found" {
		t.Errorf("expected message 'Nudge not found', got %s", err.Message)
	}
	if err.Details["id"] != "65f0c0ffee" {
		t.Errorf("expected id detail, got %v", err.Details["id"])
	}
	if err.Details["resource"] != "Nudge" {
		t.Errorf("expected resource detail, got %v", err.Details["resource"])
	}
}

func TestAppError_Unwrap(t *testing.T) {
	originalErr := errors.New("original error")
	appErr := Wrap(originalErr, CodeInternal, "wrapped", http.StatusInternalServerError)

	if !errors.Is(appErr, originalErr) {
		t.Errorf("errors.Is should reach the original error")
	}
}

func TestAsAppError(t *testing.T) {
	appErr := Forbidden("lobby locked")
	wrapped := fmt.Errorf("send: %w", appErr)
	regularErr := errors.New("regular error")

	if got := AsAppError(wrapped); got != appErr {
		t.Errorf("AsAppError() should unwrap to the same AppError")
	}
	if !IsAppError(wrapped) {
		t.Errorf("IsAppError() should see through wrapping")
	}
	if IsAppError(regularErr) {
		t.Errorf("IsAppError() should return false for regular error")
	}

	result := AsAppError(regularErr)
	if result.Code != CodeInternal {
		t.Errorf("AsAppError() should wrap regular error as internal error")
	}
	if result.Err != regularErr {
		t.Errorf("AsAppError() should wrap the original error")
	}
}

func TestHasCode(t *testing.T) {
	err := fmt.Errorf("verify: %w", VerificationFailed("document mismatch"))

	if !HasCode(err, CodeVerificationFailed) {
		t.Errorf("expected HasCode to match VERIFICATION_FAILED")
	}
	if HasCode(err, CodeNotFound) {
		t.Errorf("expected HasCode not to match NOT_FOUND")
	}
	if HasCode(errors.New("plain"), CodeInternal) {
		t.Errorf("plain errors carry no code")
	}
}

func TestAppError_ToJSON(t *testing.T) {
	data := string(NotFoundWithID("User", "12345").ToJSON())

	if !strings.Contains(data, CodeNotFound) {
		t.Errorf("ToJSON() should contain error code, got %s", data)
	}
	if !strings.Contains(data, "User not found") {
		t.Errorf("ToJSON() should contain error message, got %s", data)
	}
}
