// Package dataset はデータセットの配信とダウンロード記録のドメインロジックを提供する。
// 実ファイルはデータセットディレクトリ配下に置かれ、メタデータはDBで管理する。
package dataset

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gghhxx11299/finedata/internal/model"
	"github.com/gghhxx11299/finedata/internal/repository"
)

// validName はデータセット名として許可するパターン。
// パストラバーサルを防ぐため、英数字とハイフン・アンダースコアのみを許可する。
var validName = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_-]*$`)

// DownloadMetrics はダウンロードのメトリクス記録インターフェース。
type DownloadMetrics interface {
	RecordDownload(datasetName string, sizeBytes int64)
}

// Service はデータセット配信のサービス層。
type Service struct {
	datasetRepo  repository.DatasetRepository
	downloadRepo repository.DownloadRepository
	baseDir      string
	metrics      DownloadMetrics
}

// NewService はServiceの新しいインスタンスを生成する。
// baseDirはデータセットファイルを置くディレクトリ。metricsはnil許容。
func NewService(
	datasetRepo repository.DatasetRepository,
	downloadRepo repository.DownloadRepository,
	baseDir string,
	metrics DownloadMetrics,
) *Service {
	return &Service{
		datasetRepo:  datasetRepo,
		downloadRepo: downloadRepo,
		baseDir:      baseDir,
		metrics:      metrics,
	}
}

// Open は指定名のデータセットのメタデータとファイルを開いて返す。
// 呼び出し元はReadCloserを必ずCloseすること。
// 不正な名前・未登録・ファイル欠落の場合はDatasetNotFoundエラーを返す。
func (s *Service) Open(ctx context.Context, name string) (*model.Dataset, io.ReadCloser, error) {
	// 1. 名前の検証（パストラバーサル防止）
	if !validName.MatchString(name) {
		return nil, nil, model.NewDatasetNotFoundError(name)
	}

	// 2. メタデータの取得
	ds, err := s.datasetRepo.FindByName(ctx, name)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to look up dataset: %w", err)
	}
	if ds == nil {
		return nil, nil, model.NewDatasetNotFoundError(name)
	}

	// 3. ファイルを開く
	path := filepath.Join(s.baseDir, filepath.Clean(ds.FilePath))
	f, err := os.Open(path)
	if err != nil {
		// メタデータはあるがファイルが無い場合も404相当として扱う
		slog.Error("dataset file missing",
			slog.String("dataset", name),
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return nil, nil, model.NewDatasetNotFoundError(name)
	}

	return ds, f, nil
}

// Seed はデータセットディレクトリを走査し、未登録のファイルをカタログに登録する。
// ファイル名（拡張子を除く）がデータセット名になる。冪等: 登録済みの名前はスキップする。
// 登録した件数を返す。
func (s *Service) Seed(ctx context.Context) (int, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return 0, fmt.Errorf("failed to read dataset directory: %w", err)
	}

	registered := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		fileName := entry.Name()
		ext := filepath.Ext(fileName)
		name := strings.TrimSuffix(fileName, ext)
		if !validName.MatchString(name) {
			slog.Warn("skipping file with invalid dataset name",
				slog.String("file", fileName),
			)
			continue
		}

		existing, err := s.datasetRepo.FindByName(ctx, name)
		if err != nil {
			return registered, fmt.Errorf("failed to look up dataset %s: %w", name, err)
		}
		if existing != nil {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			return registered, fmt.Errorf("failed to stat %s: %w", fileName, err)
		}

		mimeType := mimeTypeForExt(ext)

		now := time.Now()
		ds := &model.Dataset{
			ID:        uuid.New().String(),
			Name:      name,
			Title:     name,
			FilePath:  fileName,
			MimeType:  mimeType,
			SizeBytes: info.Size(),
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.datasetRepo.Create(ctx, ds); err != nil {
			return registered, fmt.Errorf("failed to register dataset %s: %w", name, err)
		}

		slog.Info("dataset registered",
			slog.String("dataset", name),
			slog.String("mime_type", mimeType),
			slog.Int64("size_bytes", info.Size()),
		)
		registered++
	}

	return registered, nil
}

// mimeByExt は配信形式として多いデータセット拡張子のMIMEタイプ。
// distroless環境には/etc/mime.typesが無いため、stdlibの表に頼らず明示する。
var mimeByExt = map[string]string{
	".csv":  "text/csv",
	".json": "application/json",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".zip":  "application/zip",
}

// mimeTypeForExt は拡張子からMIMEタイプを決定する。
func mimeTypeForExt(ext string) string {
	ext = strings.ToLower(ext)
	if m, ok := mimeByExt[ext]; ok {
		return m
	}
	if m := mime.TypeByExtension(ext); m != "" {
		return m
	}
	return "application/octet-stream"
}

// RecordDownload はダウンロードを記録する。
// ダウンロード記録の作成とデータセットのカウンタ更新を行う。
// 記録の失敗はダウンロード自体を失敗させない（呼び出し元でログのみ）。
func (s *Service) RecordDownload(ctx context.Context, userID string, ds *model.Dataset) error {
	record := &model.DownloadRecord{
		ID:           uuid.New().String(),
		UserID:       userID,
		DatasetID:    ds.ID,
		DownloadedAt: time.Now(),
	}

	if err := s.downloadRepo.Create(ctx, record); err != nil {
		return fmt.Errorf("failed to record download: %w", err)
	}

	if err := s.datasetRepo.IncrementDownloadCount(ctx, ds.ID); err != nil {
		return fmt.Errorf("failed to increment download count: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordDownload(ds.Name, ds.SizeBytes)
	}

	slog.Info("dataset downloaded",
		slog.String("dataset", ds.Name),
		slog.String("user_id", userID),
	)

	return nil
}
