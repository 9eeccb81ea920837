// Package auth はIDトークン検証とセッション管理を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/gghhxx11299/finedata/internal/model"
	"github.com/gghhxx11299/finedata/internal/repository"
)

const providerGoogle = "google"

// SignInInput はクライアントから届くサインインペイロードを表す。
// プロフィールフィールドは参考情報であり、認可判断にはIDトークンのみを使用する。
type SignInInput struct {
	GoogleID string
	Name     string
	Email    string
	ImageURL string
	IDToken  string
}

// ProfileSanitizer はプロフィール文字列のサニタイズに必要なインターフェース。
// security.ProfileSanitizerServiceの部分集合として定義する。
type ProfileSanitizer interface {
	Sanitize(raw string) string
}

// AvatarFetcher はアバター取得に必要なインターフェース。
// avatar.FetcherServiceの部分集合として定義する。
type AvatarFetcher interface {
	Fetch(ctx context.Context, avatarURL string) (data []byte, mimeType string, err error)
}

// SignInMetrics はサインイン結果のメトリクス記録インターフェース。
type SignInMetrics interface {
	RecordSignInSuccess()
	RecordSignInFailure(reason string)
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge int // セッション有効期間（秒）
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	verifier    IDTokenVerifier
	userRepo    repository.UserRepository
	identRepo   repository.IdentityRepository
	sessionRepo repository.SessionRepository
	sanitizer   ProfileSanitizer
	avatars     AvatarFetcher
	metrics     SignInMetrics
	config      ServiceConfig
}

// NewService はServiceを生成する。
// sanitizer、avatars、metricsはnil許容（nilの場合は該当処理をスキップする）。
func NewService(
	verifier IDTokenVerifier,
	userRepo repository.UserRepository,
	identRepo repository.IdentityRepository,
	sessionRepo repository.SessionRepository,
	sanitizer ProfileSanitizer,
	avatars AvatarFetcher,
	metrics SignInMetrics,
	config ServiceConfig,
) *Service {
	return &Service{
		verifier:    verifier,
		userRepo:    userRepo,
		identRepo:   identRepo,
		sessionRepo: sessionRepo,
		sanitizer:   sanitizer,
		avatars:     avatars,
		metrics:     metrics,
		config:      config,
	}
}

// SignInWithGoogle はGoogle IDトークンを検証し、セッションを発行する。
// 未登録ユーザーの場合はusersレコードとidentitiesレコードを同時に自動作成する。
// 登録済みユーザーの場合はidentitiesテーブルで既存ユーザーを特定し、
// プロフィールをIdPの最新値で更新してログインする。
// クライアントから渡されたプロフィールではなく、検証済みクレームを優先する。
func (s *Service) SignInWithGoogle(ctx context.Context, input SignInInput) (*model.User, *model.Session, error) {
	// 1. 必須フィールドの検証
	if input.GoogleID == "" || input.Email == "" || input.IDToken == "" {
		s.recordFailure("missing_fields")
		return nil, nil, model.NewMissingFieldsError("googleId", "email", "idToken")
	}

	// 2. IDトークンの検証（唯一の信頼ポイント）
	claims, err := s.verifier.Verify(ctx, input.IDToken)
	if err != nil {
		s.recordFailure("invalid_token")
		slog.Warn("ID token verification failed", slog.String("error", err.Error()))
		return nil, nil, model.NewInvalidIDTokenError("token could not be verified")
	}

	// 3. トークンのsubjectと申告されたgoogleIdの一致を確認
	if claims.Sub != input.GoogleID {
		s.recordFailure("subject_mismatch")
		slog.Warn("ID token subject does not match claimed googleId",
			slog.String("claimed", input.GoogleID),
		)
		return nil, nil, model.NewInvalidIDTokenError("token subject mismatch")
	}

	// 4. プロフィールの確定: 検証済みクレームを優先し、欠落時のみ申告値を使う
	name := s.sanitize(firstNonEmpty(claims.Name, input.Name))
	email := s.sanitize(firstNonEmpty(claims.Email, input.Email))
	imageURL := firstNonEmpty(claims.Picture, input.ImageURL)

	// 5. identitiesテーブルで既存ユーザーを検索
	identity, err := s.identRepo.FindByProviderAndProviderUserID(ctx, providerGoogle, claims.Sub)
	if err != nil {
		s.recordFailure("internal")
		return nil, nil, fmt.Errorf("failed to find identity: %w", err)
	}

	var user *model.User

	if identity != nil {
		// 6a. 既存ユーザー: プロフィールをIdPの最新値で更新
		now := time.Now()
		if err := s.userRepo.UpdateProfile(ctx, identity.UserID, name, email, now); err != nil {
			s.recordFailure("internal")
			return nil, nil, fmt.Errorf("failed to update user profile: %w", err)
		}

		user, err = s.userRepo.FindByID(ctx, identity.UserID)
		if err != nil {
			s.recordFailure("internal")
			return nil, nil, fmt.Errorf("failed to find user: %w", err)
		}
		if user == nil {
			s.recordFailure("internal")
			return nil, nil, model.NewUserNotFoundError()
		}

		slog.Info("existing user signed in",
			slog.String("user_id", user.ID),
			slog.String("provider", providerGoogle),
		)
	} else {
		// 6b. 新規ユーザー: usersレコードとidentitiesレコードを同時に作成
		now := time.Now()
		user = &model.User{
			ID:          uuid.New().String(),
			Email:       email,
			Name:        name,
			CreatedAt:   now,
			UpdatedAt:   now,
			LastLoginAt: now,
		}
		newIdentity := &model.Identity{
			ID:             uuid.New().String(),
			UserID:         user.ID,
			Provider:       providerGoogle,
			ProviderUserID: claims.Sub,
			CreatedAt:      now,
		}

		if err := s.userRepo.CreateWithIdentity(ctx, user, newIdentity); err != nil {
			s.recordFailure("internal")
			return nil, nil, fmt.Errorf("failed to create user and identity: %w", err)
		}

		slog.Info("new user created",
			slog.String("user_id", user.ID),
			slog.String("provider", providerGoogle),
		)

		// アバターは新規作成時のみ取得する（ベストエフォート、失敗は無視）
		s.fetchAvatar(ctx, user, imageURL)
	}

	// 7. セッションを発行
	session, err := s.createSession(ctx, user.ID)
	if err != nil {
		s.recordFailure("internal")
		return nil, nil, fmt.Errorf("failed to create session: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordSignInSuccess()
	}

	return user, session, nil
}

// Logout はセッションを破棄する。
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("session ID is required")
	}

	if err := s.sessionRepo.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	slog.Info("user logged out", slog.String("session_id", sessionID))
	return nil
}

// GetCurrentUser はセッションから現在のユーザーを取得する。
func (s *Service) GetCurrentUser(ctx context.Context, sessionID string) (*model.User, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session ID is required")
	}

	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	if session == nil {
		return nil, fmt.Errorf("session not found or expired")
	}

	user, err := s.userRepo.FindByID(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("user not found")
	}

	return user, nil
}

// createSession はセッションを作成し永続化する。
func (s *Service) createSession(ctx context.Context, userID string) (*model.Session, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	session := &model.Session{
		ID:        sessionID,
		UserID:    userID,
		ExpiresAt: time.Now().Add(time.Duration(s.config.SessionMaxAge) * time.Second),
		CreatedAt: time.Now(),
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}

// fetchAvatar はアバターを取得してユーザーに保存する。
// 取得失敗はサインインを失敗させない。
func (s *Service) fetchAvatar(ctx context.Context, user *model.User, imageURL string) {
	if s.avatars == nil || imageURL == "" {
		return
	}

	data, mime, err := s.avatars.Fetch(ctx, imageURL)
	if err != nil || data == nil {
		return
	}

	if err := s.userRepo.UpdateAvatar(ctx, user.ID, data, mime); err != nil {
		slog.Warn("failed to save avatar", slog.String("user_id", user.ID), slog.String("error", err.Error()))
	}
}

// sanitize はサニタイザが設定されている場合のみサニタイズする。
func (s *Service) sanitize(raw string) string {
	if s.sanitizer == nil {
		return raw
	}
	return s.sanitizer.Sanitize(raw)
}

// recordFailure はメトリクスが設定されている場合のみ失敗を記録する。
func (s *Service) recordFailure(reason string) {
	if s.metrics != nil {
		s.metrics.RecordSignInFailure(reason)
	}
}

// firstNonEmpty は最初の非空文字列を返す。
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// generateSessionID は暗号的に安全なセッションIDを生成する。
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
