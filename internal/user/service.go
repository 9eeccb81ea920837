// Package user はユーザー管理のドメインロジックを提供する。
package user

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gghhxx11299/finedata/internal/model"
	"github.com/gghhxx11299/finedata/internal/repository"
)

// DownloadStore はユーザー単位のダウンロード記録へのアクセスインターフェース。
// repository.DownloadRepositoryの部分集合として定義する。
type DownloadStore interface {
	DeleteByUserID(ctx context.Context, userID string) error
	CountByUserID(ctx context.Context, userID string) (int, error)
}

// Service はユーザー管理のサービス層。
// プロフィール参照と退会処理のビジネスロジックを提供する。
type Service struct {
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	downloads   DownloadStore
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	downloads DownloadStore,
) *Service {
	return &Service{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		downloads:   downloads,
	}
}

// Profile はユーザーのプロフィールと累計ダウンロード数を返す。
// ユーザーが存在しない場合はUserNotFoundエラーを返す。
func (s *Service) Profile(ctx context.Context, userID string) (*model.User, int, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to look up user: %w", err)
	}
	if user == nil {
		return nil, 0, model.NewUserNotFoundError()
	}

	count := 0
	if s.downloads != nil {
		count, err = s.downloads.CountByUserID(ctx, userID)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to count downloads: %w", err)
		}
	}

	return user, count, nil
}

// Withdraw はユーザーの退会処理を実行する。
// 削除順序: downloads → sessions → user（+ CASCADE: identities）
// datasetsのダウンロードカウンタは集計値として残す。
func (s *Service) Withdraw(ctx context.Context, userID string) error {
	// ユーザー存在確認
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to look up user: %w", err)
	}
	if user == nil {
		return model.NewUserNotFoundError()
	}

	slog.Info("starting account withdrawal",
		slog.String("user_id", userID),
	)

	// 1. ダウンロード記録を削除
	if s.downloads != nil {
		if err := s.downloads.DeleteByUserID(ctx, userID); err != nil {
			return fmt.Errorf("failed to delete download records: %w", err)
		}
	}

	// 2. 全セッションを削除
	if err := s.sessionRepo.DeleteByUserID(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete sessions: %w", err)
	}

	// 3. ユーザーを削除（identitiesはCASCADE削除）
	if err := s.userRepo.DeleteByID(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	slog.Info("account withdrawal completed",
		slog.String("user_id", userID),
	)

	return nil
}
