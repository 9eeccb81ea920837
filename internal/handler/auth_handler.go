// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gghhxx11299/finedata/internal/auth"
	"github.com/gghhxx11299/finedata/internal/middleware"
	"github.com/gghhxx11299/finedata/internal/model"
)

const sessionCookieName = "session_id"

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	SignInWithGoogle(ctx context.Context, input auth.SignInInput) (*model.User, *model.Session, error)
	Logout(ctx context.Context, sessionID string) error
	GetCurrentUser(ctx context.Context, sessionID string) (*model.User, error)
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	CookieDomain  string
	CookieSecure  bool
	SessionMaxAge int // セッションCookieの有効期間（秒）
}

// AuthMetrics は認証ハンドラーのメトリクス記録インターフェース。
type AuthMetrics interface {
	RecordSessionCheck(authenticated bool)
	RecordSignInLatency(duration time.Duration)
}

// AuthHandler はGoogleサインイン関連のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	config  AuthHandlerConfig
	metrics AuthMetrics
}

// NewAuthHandler はAuthHandlerを生成する。metricsはnil許容。
func NewAuthHandler(service AuthServiceInterface, config AuthHandlerConfig, metrics AuthMetrics) *AuthHandler {
	return &AuthHandler{
		service: service,
		config:  config,
		metrics: metrics,
	}
}

// signInRequest はGoogleサインインのリクエストボディ。
type signInRequest struct {
	GoogleID string `json:"googleId"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	ImageURL string `json:"imageUrl"`
	IDToken  string `json:"idToken"`
}

// userResponse はAPIレスポンスに含めるユーザー情報。
type userResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// GoogleSignIn はGoogleサインインのペイロードを受け取り、セッションを発行する。
// POST /api/auth/google
func (h *AuthHandler) GoogleSignIn(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	// 1. リクエストボディのデコード
	var req signInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewMissingFieldsError("googleId", "email", "idToken"))
		return
	}

	// 2. サインイン処理
	user, session, err := h.service.SignInWithGoogle(r.Context(), auth.SignInInput{
		GoogleID: req.GoogleID,
		Name:     req.Name,
		Email:    req.Email,
		ImageURL: req.ImageURL,
		IDToken:  req.IDToken,
	})
	if err != nil {
		h.writeSignInError(w, err)
		return
	}

	// 3. セッションCookieを設定（HTTP Only）
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    session.ID,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   h.config.SessionMaxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	if h.metrics != nil {
		h.metrics.RecordSignInLatency(time.Since(start))
	}

	// 4. 確定したプロフィールを返す（クライアントは表示をこの値で更新する）
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"user": userResponse{
			ID:    user.ID,
			Name:  user.Name,
			Email: user.Email,
		},
	})
}

// Logout はセッションを破棄する。
// POST /api/auth/logout
// サーバー側の削除に失敗してもCookieは必ずクリアする。
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(sessionCookieName)
	if err == nil && cookie.Value != "" {
		if logoutErr := h.service.Logout(r.Context(), cookie.Value); logoutErr != nil {
			slog.Error("failed to logout", slog.String("error", logoutErr.Error()))
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
	})
}

// Check はセッションの有効性を返す。
// GET /api/auth/check
// 有効なら200で{"authenticated":true,"user":{...}}、無効なら401で{"authenticated":false}を返す。
func (h *AuthHandler) Check(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		h.recordCheck(false)
		writeUnauthenticated(w)
		return
	}

	user, err := h.service.GetCurrentUser(r.Context(), cookie.Value)
	if err != nil {
		h.recordCheck(false)
		writeUnauthenticated(w)
		return
	}

	h.recordCheck(true)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"authenticated": true,
		"user": userResponse{
			ID:    user.ID,
			Name:  user.Name,
			Email: user.Email,
		},
	})
}

// recordCheck はメトリクスが設定されている場合のみセッションチェックを記録する。
func (h *AuthHandler) recordCheck(authenticated bool) {
	if h.metrics != nil {
		h.metrics.RecordSessionCheck(authenticated)
	}
}

// writeSignInError はサインインエラーをHTTPステータスにマッピングして書き込む。
func (h *AuthHandler) writeSignInError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		slog.Error("sign-in failed", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	switch apiErr.Code {
	case model.ErrCodeMissingFields:
		middleware.WriteErrorResponse(w, http.StatusBadRequest, apiErr)
	case model.ErrCodeInvalidIDToken, model.ErrCodeSignInRejected, model.ErrCodeUserNotFound:
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, apiErr)
	default:
		slog.Error("sign-in failed", slog.String("code", apiErr.Code))
		middleware.WriteInternalServerError(w)
	}
}

// writeUnauthenticated は未認証応答を書き込む。
// セッションミドルウェアと同じ応答形式に揃えている。
func writeUnauthenticated(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"authenticated": false,
	})
}
