package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gghhxx11299/finedata/internal/middleware"
	"github.com/gghhxx11299/finedata/internal/model"
)

type mockUserService struct {
	profileFn  func(ctx context.Context, userID string) (*model.User, int, error)
	withdrawFn func(ctx context.Context, userID string) error
}

func (m *mockUserService) Profile(ctx context.Context, userID string) (*model.User, int, error) {
	if m.profileFn != nil {
		return m.profileFn(ctx, userID)
	}
	return nil, 0, errors.New("not configured")
}

func (m *mockUserService) Withdraw(ctx context.Context, userID string) error {
	if m.withdrawFn != nil {
		return m.withdrawFn(ctx, userID)
	}
	return nil
}

// compile-time interface check
var _ UserServiceInterface = (*mockUserService)(nil)

func TestProfileReturnsUserWithDownloadCount(t *testing.T) {
	service := &mockUserService{
		profileFn: func(_ context.Context, userID string) (*model.User, int, error) {
			if userID != "u1" {
				t.Errorf("userID = %q, want u1", userID)
			}
			return &model.User{ID: "u1", Name: "Abel", Email: "abel@example.et"}, 7, nil
		},
	}
	h := NewUserHandler(service)

	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	req = req.WithContext(middleware.ContextWithUserID(req.Context(), "u1"))
	rec := httptest.NewRecorder()

	h.Profile(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body struct {
		User struct {
			Name  string `json:"name"`
			Email string `json:"email"`
		} `json:"user"`
		DownloadCount int `json:"downloadCount"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("body should be JSON: %v", err)
	}
	if body.User.Name != "Abel" || body.User.Email != "abel@example.et" {
		t.Errorf("unexpected user: %+v", body.User)
	}
	if body.DownloadCount != 7 {
		t.Errorf("downloadCount = %d, want 7", body.DownloadCount)
	}
}

func TestProfileRequiresAuthentication(t *testing.T) {
	h := NewUserHandler(&mockUserService{})

	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	rec := httptest.NewRecorder()

	h.Profile(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestProfileUserNotFound(t *testing.T) {
	service := &mockUserService{
		profileFn: func(_ context.Context, _ string) (*model.User, int, error) {
			return nil, 0, model.NewUserNotFoundError()
		},
	}
	h := NewUserHandler(service)

	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	req = req.WithContext(middleware.ContextWithUserID(req.Context(), "gone"))
	rec := httptest.NewRecorder()

	h.Profile(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestWithdrawSuccess(t *testing.T) {
	var calledWith string
	service := &mockUserService{
		withdrawFn: func(_ context.Context, userID string) error {
			calledWith = userID
			return nil
		},
	}
	h := NewUserHandler(service)

	req := httptest.NewRequest(http.MethodDelete, "/api/users/me", nil)
	req = req.WithContext(middleware.ContextWithUserID(req.Context(), "u1"))
	rec := httptest.NewRecorder()

	h.Withdraw(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rec.Code)
	}
	if calledWith != "u1" {
		t.Errorf("withdraw called with %q, want u1", calledWith)
	}

	cookie := findCookie(t, rec, "session_id")
	if cookie == nil {
		t.Fatal("session cookie should be cleared")
	}
	if cookie.Value != "" || cookie.MaxAge >= 0 {
		t.Errorf("cookie should be expired: %+v", cookie)
	}
}

func TestWithdrawRequiresAuthentication(t *testing.T) {
	called := false
	service := &mockUserService{
		withdrawFn: func(_ context.Context, _ string) error {
			called = true
			return nil
		},
	}
	h := NewUserHandler(service)

	req := httptest.NewRequest(http.MethodDelete, "/api/users/me", nil)
	rec := httptest.NewRecorder()

	h.Withdraw(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
	if called {
		t.Error("service should not be called without a user in context")
	}
}

func TestWithdrawUserNotFound(t *testing.T) {
	service := &mockUserService{
		withdrawFn: func(_ context.Context, _ string) error {
			return model.NewUserNotFoundError()
		},
	}
	h := NewUserHandler(service)

	req := httptest.NewRequest(http.MethodDelete, "/api/users/me", nil)
	req = req.WithContext(middleware.ContextWithUserID(req.Context(), "gone"))
	rec := httptest.NewRecorder()

	h.Withdraw(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestWithdrawInternalError(t *testing.T) {
	service := &mockUserService{
		withdrawFn: func(_ context.Context, _ string) error {
			return errors.New("db down")
		},
	}
	h := NewUserHandler(service)

	req := httptest.NewRequest(http.MethodDelete, "/api/users/me", nil)
	req = req.WithContext(middleware.ContextWithUserID(req.Context(), "u1"))
	rec := httptest.NewRecorder()

	h.Withdraw(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}
