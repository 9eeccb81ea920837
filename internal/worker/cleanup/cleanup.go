// Package cleanup は期限切れセッションと古いダウンロード記録の自動削除ジョブを提供する。
// 日次バッチとして実行され、冪等な削除処理を保証する。
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// SessionCleaner は期限切れセッションの削除インターフェース。
// repository.SessionRepositoryの部分集合として定義する。
type SessionCleaner interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// DownloadCleaner は保持期間超過ダウンロード記録の削除インターフェース。
// repository.DownloadRepositoryの部分集合として定義する。
type DownloadCleaner interface {
	DeleteOlderThan(ctx context.Context, retentionDays int) (int64, error)
}

// CleanupJob は期限切れデータの自動削除ジョブ。
type CleanupJob struct {
	sessions      SessionCleaner
	downloads     DownloadCleaner
	logger        *slog.Logger
	RetentionDays int // ダウンロード記録の保持日数（デフォルト: 365）
}

// NewCleanupJob は新しいCleanupJobを生成する。
// デフォルトの保持日数は365日。
func NewCleanupJob(sessions SessionCleaner, downloads DownloadCleaner, logger *slog.Logger) *CleanupJob {
	return &CleanupJob{
		sessions:      sessions,
		downloads:     downloads,
		logger:        logger,
		RetentionDays: 365,
	}
}

// Run は期限切れセッションと保持期間超過のダウンロード記録を削除する。
// 冪等: 削除対象がない場合でもエラーにならない。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := time.Now()

	// 1. 期限切れセッションの削除
	sessionCount, err := j.sessions.DeleteExpired(ctx)
	if err != nil {
		j.logger.Error("期限切れセッションの削除に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("セッションクリーンアップの実行に失敗: %w", err)
	}

	// 2. 保持期間超過のダウンロード記録の削除
	downloadCount, err := j.downloads.DeleteOlderThan(ctx, j.RetentionDays)
	if err != nil {
		j.logger.Error("ダウンロード記録の削除に失敗しました",
			slog.String("error", err.Error()),
			slog.Int("retention_days", j.RetentionDays),
		)
		return fmt.Errorf("ダウンロード記録クリーンアップの実行に失敗: %w", err)
	}

	duration := time.Since(start)
	j.logger.Info("クリーンアップジョブが完了しました",
		slog.Int64("deleted_sessions", sessionCount),
		slog.Int64("deleted_downloads", downloadCount),
		slog.Int("retention_days", j.RetentionDays),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}
