package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gghhxx11299/finedata/internal/model"
)

type mockSessionFinder struct {
	findByIDFn func(ctx context.Context, id string) (*model.Session, error)
}

func (m *mockSessionFinder) FindByID(ctx context.Context, id string) (*model.Session, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

// compile-time interface check
var _ SessionFinder = (*mockSessionFinder)(nil)

func TestSessionMiddlewareInjectsUserID(t *testing.T) {
	finder := &mockSessionFinder{
		findByIDFn: func(_ context.Context, id string) (*model.Session, error) {
			if id != "sess-1" {
				t.Errorf("unexpected session lookup: %s", id)
			}
			return &model.Session{ID: id, UserID: "u1", ExpiresAt: time.Now().Add(time.Hour)}, nil
		},
	}

	var gotUserID string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID, _ = UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	handler := NewSessionMiddleware(finder)(next)

	req := httptest.NewRequest(http.MethodGet, "/api/datasets/x", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "sess-1"})
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if gotUserID != "u1" {
		t.Errorf("user ID = %q, want u1", gotUserID)
	}
}

func TestSessionMiddlewareRejectsUnauthenticated(t *testing.T) {
	tests := []struct {
		name   string
		cookie *http.Cookie
		finder *mockSessionFinder
	}{
		{
			name:   "no cookie",
			cookie: nil,
			finder: &mockSessionFinder{},
		},
		{
			name:   "unknown session",
			cookie: &http.Cookie{Name: "session_id", Value: "unknown"},
			finder: &mockSessionFinder{},
		},
		{
			name:   "lookup error",
			cookie: &http.Cookie{Name: "session_id", Value: "x"},
			finder: &mockSessionFinder{
				findByIDFn: func(_ context.Context, _ string) (*model.Session, error) {
					return nil, errors.New("db down")
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			next := http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
				called = true
			})
			handler := NewSessionMiddleware(tt.finder)(next)

			req := httptest.NewRequest(http.MethodGet, "/api/datasets/x", nil)
			if tt.cookie != nil {
				req.AddCookie(tt.cookie)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			if called {
				t.Error("next handler should not be called")
			}
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", rec.Code)
			}

			// 401は{"authenticated":false}のJSONボディを持つ
			var body map[string]interface{}
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("body should be JSON: %v", err)
			}
			if auth, ok := body["authenticated"].(bool); !ok || auth {
				t.Errorf("body should carry authenticated=false, got %v", body)
			}
		})
	}
}

func TestUserIDFromContext(t *testing.T) {
	if _, err := UserIDFromContext(context.Background()); err == nil {
		t.Error("missing user ID should be an error")
	}

	ctx := ContextWithUserID(context.Background(), "u1")
	userID, err := UserIDFromContext(ctx)
	if err != nil || userID != "u1" {
		t.Errorf("UserIDFromContext = (%q, %v), want (u1, nil)", userID, err)
	}
}
