package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/gghhxx11299/finedata/internal/model"
)

// PostgresDownloadRepo はPostgreSQLを使用したダウンロード記録リポジトリ。
type PostgresDownloadRepo struct {
	db *sql.DB
}

// NewPostgresDownloadRepo はPostgresDownloadRepoを生成する。
func NewPostgresDownloadRepo(db *sql.DB) *PostgresDownloadRepo {
	return &PostgresDownloadRepo{db: db}
}

// Create はダウンロード記録を作成する。
func (r *PostgresDownloadRepo) Create(ctx context.Context, record *model.DownloadRecord) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO downloads (id, user_id, dataset_id, downloaded_at)
		 VALUES ($1, $2, $3, $4)`,
		record.ID, record.UserID, record.DatasetID, record.DownloadedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert download record: %w", err)
	}
	return nil
}

// CountByUserID はユーザーの累計ダウンロード数を返す。
func (r *PostgresDownloadRepo) CountByUserID(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM downloads WHERE user_id = $1`,
		userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count downloads: %w", err)
	}
	return count, nil
}

// DeleteByUserID はユーザーの全ダウンロード記録を削除する。
func (r *PostgresDownloadRepo) DeleteByUserID(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM downloads WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete user downloads: %w", err)
	}
	return nil
}

// DeleteOlderThan は保持期間を超過した記録を削除し、削除件数を返す。
func (r *PostgresDownloadRepo) DeleteOlderThan(ctx context.Context, retentionDays int) (int64, error) {
	interval := fmt.Sprintf("%d days", retentionDays)
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM downloads WHERE downloaded_at < now() - $1::interval`,
		interval,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old download records: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return deleted, nil
}

// compile-time interface check
var _ DownloadRepository = (*PostgresDownloadRepo)(nil)
