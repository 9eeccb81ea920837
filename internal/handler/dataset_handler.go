package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/gghhxx11299/finedata/internal/middleware"
	"github.com/gghhxx11299/finedata/internal/model"
)

// DatasetServiceInterface はデータセットハンドラーが必要とするサービスインターフェース。
type DatasetServiceInterface interface {
	Open(ctx context.Context, name string) (*model.Dataset, io.ReadCloser, error)
	RecordDownload(ctx context.Context, userID string, ds *model.Dataset) error
}

// DatasetHandler はデータセット配信のHTTPハンドラー。
// すべてのエンドポイントはセッションミドルウェアの背後に配置される。
type DatasetHandler struct {
	service DatasetServiceInterface
}

// NewDatasetHandler はDatasetHandlerを生成する。
func NewDatasetHandler(service DatasetServiceInterface) *DatasetHandler {
	return &DatasetHandler{
		service: service,
	}
}

// Download はデータセットファイルを配信する。
// GET /api/datasets/{name}
func (h *DatasetHandler) Download(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		// セッションミドルウェアの背後でのみ到達するため通常は発生しない
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewAuthRequiredError())
		return
	}

	name := chi.URLParam(r, "name")

	// 1. データセットのメタデータとファイルを開く
	ds, file, err := h.service.Open(r.Context(), name)
	if err != nil {
		var apiErr *model.APIError
		if errors.As(err, &apiErr) && apiErr.Code == model.ErrCodeDatasetNotFound {
			middleware.WriteErrorResponse(w, http.StatusNotFound, apiErr)
			return
		}
		slog.Error("failed to open dataset",
			slog.String("dataset", name),
			slog.String("error", err.Error()),
		)
		middleware.WriteInternalServerError(w)
		return
	}
	defer file.Close()

	// 2. ダウンロードを記録（失敗しても配信は継続する）
	if err := h.service.RecordDownload(r.Context(), userID, ds); err != nil {
		slog.Warn("failed to record download",
			slog.String("dataset", ds.Name),
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}

	// 3. ファイルをストリーミング配信
	w.Header().Set("Content-Type", ds.MimeType)
	w.Header().Set("Content-Length", strconv.FormatInt(ds.SizeBytes, 10))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", ds.FilePath))

	if _, err := io.Copy(w, file); err != nil {
		// ヘッダー送信後のためエラーレスポンスは返せない
		slog.Warn("dataset streaming interrupted",
			slog.String("dataset", ds.Name),
			slog.String("error", err.Error()),
		)
	}
}
