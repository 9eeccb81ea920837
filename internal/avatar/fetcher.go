// Package avatar はユーザーのプロフィール画像の取得機能を提供する。
// アバターURLはIdPプロフィール由来の信頼できない値のため、
// 取得はSSRFガード経由で行い、失敗時はアバターなしとして扱う。
package avatar

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// defaultMaxSize はアバター画像の最大サイズ（2MB）。
const defaultMaxSize = 2 * 1024 * 1024

// defaultTimeout はアバター取得のタイムアウト。
const defaultTimeout = 5 * time.Second

// SSRFValidator はアバター取得に必要なSSRF防止機能のインターフェース。
// security.SSRFGuardServiceの部分集合として定義する。
type SSRFValidator interface {
	ValidateURL(rawURL string) error
	NewSafeClient(timeout time.Duration, maxResponseSize int64) *http.Client
}

// FetcherService はアバター取得のインターフェース。
type FetcherService interface {
	// Fetch は指定URLからアバター画像を取得する。
	// 取得失敗時はnilデータと空MIMEを返す（エラーは返さない）。
	Fetch(ctx context.Context, avatarURL string) (data []byte, mimeType string, err error)
}

// Fetcher はアバター取得機能の実装。
type Fetcher struct {
	ssrfGuard SSRFValidator
	timeout   time.Duration
	maxSize   int64
}

// NewFetcher はFetcherの新しいインスタンスを生成する。
// timeoutまたはmaxSizeがゼロ値の場合はデフォルト値を使用する。
func NewFetcher(ssrfGuard SSRFValidator, timeout time.Duration, maxSize int64) *Fetcher {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if maxSize <= 0 {
		maxSize = defaultMaxSize
	}
	return &Fetcher{
		ssrfGuard: ssrfGuard,
		timeout:   timeout,
		maxSize:   maxSize,
	}
}

// Fetch は指定URLからアバター画像を取得する。
// 取得失敗はサインイン全体を失敗させない（アバターなしとして保存する）。
func (f *Fetcher) Fetch(ctx context.Context, avatarURL string) ([]byte, string, error) {
	if avatarURL == "" {
		return nil, "", nil
	}

	// SSRF検証
	if f.ssrfGuard != nil {
		if err := f.ssrfGuard.ValidateURL(avatarURL); err != nil {
			slog.Warn("avatar fetch blocked by SSRF guard", "url", avatarURL, "error", err)
			return nil, "", nil
		}
	}

	client := f.getHTTPClient()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, avatarURL, nil)
	if err != nil {
		slog.Warn("avatar fetch: failed to create request", "url", avatarURL, "error", err)
		return nil, "", nil
	}
	req.Header.Set("User-Agent", "Finedata/1.0 Open Data Portal")

	resp, err := client.Do(req)
	if err != nil {
		slog.Warn("avatar fetch: request failed", "url", avatarURL, "error", err)
		return nil, "", nil
	}
	defer resp.Body.Close()

	// 2xx以外はアバター取得失敗として扱う
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		slog.Warn("avatar fetch: unexpected status", "url", avatarURL, "status", resp.StatusCode)
		return nil, "", nil
	}

	// レスポンスボディを読み込み（最大2MB）
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxSize+1))
	if err != nil {
		slog.Warn("avatar fetch: failed to read response", "url", avatarURL, "error", err)
		return nil, "", nil
	}

	// サイズ超過チェック
	if int64(len(body)) > f.maxSize {
		slog.Warn("avatar fetch: size limit exceeded", "url", avatarURL, "size", len(body))
		return nil, "", nil
	}

	// Content-Typeを取得
	contentType := resp.Header.Get("Content-Type")
	mimeType := extractMimeType(contentType)

	// 画像でない場合はnilを返す
	if !isImageMime(mimeType) {
		slog.Warn("avatar fetch: non-image content type", "url", avatarURL, "contentType", contentType)
		return nil, "", nil
	}

	return body, mimeType, nil
}

// getHTTPClient はHTTPクライアントを取得する。
func (f *Fetcher) getHTTPClient() *http.Client {
	if f.ssrfGuard != nil {
		return f.ssrfGuard.NewSafeClient(f.timeout, f.maxSize)
	}
	return &http.Client{Timeout: f.timeout}
}

// extractMimeType はContent-Typeヘッダーからメディアタイプ部分を取り出す。
func extractMimeType(contentType string) string {
	if contentType == "" {
		return ""
	}
	if idx := strings.Index(contentType, ";"); idx >= 0 {
		contentType = contentType[:idx]
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}

// isImageMime はMIMEタイプが画像かどうかを判定する。
func isImageMime(mimeType string) bool {
	return strings.HasPrefix(mimeType, "image/")
}

// compile-time interface check
var _ FetcherService = (*Fetcher)(nil)
