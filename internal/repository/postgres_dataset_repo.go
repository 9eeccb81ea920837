package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/gghhxx11299/finedata/internal/model"
)

// PostgresDatasetRepo はPostgreSQLを使用したデータセットリポジトリ。
type PostgresDatasetRepo struct {
	db *sql.DB
}

// NewPostgresDatasetRepo はPostgresDatasetRepoを生成する。
func NewPostgresDatasetRepo(db *sql.DB) *PostgresDatasetRepo {
	return &PostgresDatasetRepo{db: db}
}

// FindByName は指定名のデータセットを取得する。見つからない場合はnilを返す。
func (r *PostgresDatasetRepo) FindByName(ctx context.Context, name string) (*model.Dataset, error) {
	dataset := &model.Dataset{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, title, file_path, mime_type, size_bytes, download_count, created_at, updated_at
		 FROM datasets
		 WHERE name = $1`,
		name,
	).Scan(&dataset.ID, &dataset.Name, &dataset.Title, &dataset.FilePath, &dataset.MimeType,
		&dataset.SizeBytes, &dataset.DownloadCount, &dataset.CreatedAt, &dataset.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find dataset by name: %w", err)
	}

	return dataset, nil
}

// Create はデータセットメタデータを作成する。
func (r *PostgresDatasetRepo) Create(ctx context.Context, dataset *model.Dataset) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO datasets (id, name, title, file_path, mime_type, size_bytes, download_count, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		dataset.ID, dataset.Name, dataset.Title, dataset.FilePath, dataset.MimeType,
		dataset.SizeBytes, dataset.DownloadCount, dataset.CreatedAt, dataset.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert dataset: %w", err)
	}
	return nil
}

// IncrementDownloadCount はダウンロード数を1増やす。
func (r *PostgresDatasetRepo) IncrementDownloadCount(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE datasets SET download_count = download_count + 1, updated_at = now()
		 WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to increment download count: %w", err)
	}
	return nil
}

// compile-time interface check
var _ DatasetRepository = (*PostgresDatasetRepo)(nil)
