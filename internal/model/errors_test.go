package model

import (
	"strings"
	"testing"
)

func TestAPIErrorFormat(t *testing.T) {
	err := &APIError{Code: "DATASET_NOT_FOUND", Message: "Dataset not found: gdp"}
	want := "[DATASET_NOT_FOUND] Dataset not found: gdp"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestErrorConstructors(t *testing.T) {
	tests := []struct {
		name         string
		err          *APIError
		wantCode     string
		wantCategory string
	}{
		{"auth required", NewAuthRequiredError(), ErrCodeAuthRequired, "auth"},
		{"invalid token", NewInvalidIDTokenError("expired"), ErrCodeInvalidIDToken, "auth"},
		{"sign-in rejected", NewSignInRejectedError(), ErrCodeSignInRejected, "auth"},
		{"missing fields", NewMissingFieldsError("idToken"), ErrCodeMissingFields, "validation"},
		{"dataset not found", NewDatasetNotFoundError("gdp"), ErrCodeDatasetNotFound, "dataset"},
		{"user not found", NewUserNotFoundError(), ErrCodeUserNotFound, "auth"},
		{"session expired", NewSessionExpiredError(), ErrCodeSessionExpired, "auth"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.wantCode {
				t.Errorf("Code = %q, want %q", tt.err.Code, tt.wantCode)
			}
			if tt.err.Category != tt.wantCategory {
				t.Errorf("Category = %q, want %q", tt.err.Category, tt.wantCategory)
			}
			if tt.err.Message == "" || tt.err.Action == "" {
				t.Errorf("message and action should be populated: %+v", tt.err)
			}
		})
	}
}

func TestAuthRequiredErrorActionGuidesSignIn(t *testing.T) {
	err := NewAuthRequiredError()
	if !strings.Contains(err.Action, "sign in to download") {
		t.Errorf("action should tell the user to sign in: %q", err.Action)
	}
}

func TestErrorMessagesCarryContext(t *testing.T) {
	if err := NewDatasetNotFoundError("gdp-2024"); !strings.Contains(err.Message, "gdp-2024") {
		t.Errorf("dataset name should appear in the message: %q", err.Message)
	}
	if err := NewInvalidIDTokenError("audience mismatch"); !strings.Contains(err.Message, "audience mismatch") {
		t.Errorf("reason should appear in the message: %q", err.Message)
	}
	if err := NewMissingFieldsError("googleId", "idToken"); !strings.Contains(err.Message, "googleId") {
		t.Errorf("field names should appear in the message: %q", err.Message)
	}
}
