// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, dataset, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeAuthRequired    = "AUTH_REQUIRED"
	ErrCodeInvalidIDToken  = "INVALID_ID_TOKEN"
	ErrCodeSignInRejected  = "SIGN_IN_REJECTED"
	ErrCodeMissingFields   = "MISSING_FIELDS"
	ErrCodeDatasetNotFound = "DATASET_NOT_FOUND"
	ErrCodeUserNotFound    = "USER_NOT_FOUND"
	ErrCodeSessionExpired  = "SESSION_EXPIRED"
)

// NewAuthRequiredError は未認証アクセスエラーを生成する。
// データセットダウンロード等のゲート付き操作で使用する。
func NewAuthRequiredError() *APIError {
	return &APIError{
		Code:     ErrCodeAuthRequired,
		Message:  "Authentication required.",
		Category: "auth",
		Action:   "Please sign in to download datasets.",
	}
}

// NewInvalidIDTokenError はIDトークン検証失敗エラーを生成する。
func NewInvalidIDTokenError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidIDToken,
		Message:  fmt.Sprintf("Google ID token verification failed: %s", reason),
		Category: "auth",
		Action:   "Please try signing in again.",
	}
}

// NewSignInRejectedError はサインイン拒否エラーを生成する。
func NewSignInRejectedError() *APIError {
	return &APIError{
		Code:     ErrCodeSignInRejected,
		Message:  "Sign-in could not be completed.",
		Category: "auth",
		Action:   "Please try signing in again.",
	}
}

// NewMissingFieldsError は必須フィールド欠落エラーを生成する。
func NewMissingFieldsError(fields ...string) *APIError {
	return &APIError{
		Code:     ErrCodeMissingFields,
		Message:  fmt.Sprintf("Missing required fields: %v", fields),
		Category: "validation",
		Action:   "Please retry with a complete sign-in payload.",
	}
}

// NewDatasetNotFoundError はデータセット未検出エラーを生成する。
func NewDatasetNotFoundError(name string) *APIError {
	return &APIError{
		Code:     ErrCodeDatasetNotFound,
		Message:  fmt.Sprintf("Dataset not found: %s", name),
		Category: "dataset",
		Action:   "Check the dataset name against the catalog.",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "User not found.",
		Category: "auth",
		Action:   "Please sign in again.",
	}
}

// NewSessionExpiredError はセッション期限切れエラーを生成する。
func NewSessionExpiredError() *APIError {
	return &APIError{
		Code:     ErrCodeSessionExpired,
		Message:  "Your session has expired.",
		Category: "auth",
		Action:   "Please sign in again.",
	}
}
