package gate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"
)

// DefaultTimeout はバックエンド呼び出しのデフォルトタイムアウト。
// タイムアウトはネットワークエラーと同様に扱われる。
const DefaultTimeout = 10 * time.Second

// UserInfo はバックエンドが返すユーザー情報。
type UserInfo struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// CheckResponse はGET /api/auth/checkの応答。
type CheckResponse struct {
	Authenticated bool      `json:"authenticated"`
	User          *UserInfo `json:"user"`
}

// SignInResponse はPOST /api/auth/googleの応答。
type SignInResponse struct {
	Success bool      `json:"success"`
	User    *UserInfo `json:"user"`
}

// Backend はセッションAPIへのアクセスを抽象化する。
type Backend interface {
	// Check はセッションの有効性を確認する。認証済み・未認証の両方が正常応答。
	Check(ctx context.Context) (*CheckResponse, error)

	// SignIn はAssertionをバックエンドに転送してセッション発行を試みる。
	// バックエンドによる拒否は(Success:false, nil)、転送失敗は(nil, error)。
	SignIn(ctx context.Context, a Assertion) (*SignInResponse, error)

	// SignOut はバックエンドのセッションを破棄する。
	SignOut(ctx context.Context) error

	// OpenDataset はゲート付きデータセットのダウンロードストリームを開く。
	OpenDataset(ctx context.Context, name string) (io.ReadCloser, error)
}

// ErrUnauthenticated はゲート付き操作が未認証で拒否されたことを表す。
var ErrUnauthenticated = fmt.Errorf("not authenticated")

// ErrDatasetNotFound はデータセットが見つからないことを表す。
var ErrDatasetNotFound = fmt.Errorf("dataset not found")

// Client はBackendのHTTP実装。
// セッションCookieを保持するCookieジャーを内蔵する。
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient はClientを生成する。
// Cookieジャー付きのHTTPクライアントをDefaultTimeoutで構成する。
func NewClient(baseURL string) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Jar:     jar,
			Timeout: DefaultTimeout,
		},
	}, nil
}

// NewClientWithHTTPClient はHTTPクライアントを差し替えてClientを生成する。テスト用。
func NewClientWithHTTPClient(baseURL string, httpClient *http.Client) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
	}
}

// Check はGET /api/auth/checkを呼び出す。
// 200と401はどちらも正常応答として本文をデコードする。
func (c *Client) Check(ctx context.Context) (*CheckResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/auth/check", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("session check request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusUnauthorized {
		return nil, fmt.Errorf("unexpected status from session check: %d", resp.StatusCode)
	}

	var out CheckResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode session check response: %w", err)
	}

	return &out, nil
}

// SignIn はPOST /api/auth/googleを呼び出す。
// 4xxはバックエンドによる拒否として(Success:false, nil)を返す。
func (c *Client) SignIn(ctx context.Context, a Assertion) (*SignInResponse, error) {
	body, err := json.Marshal(map[string]string{
		"googleId": a.GoogleID,
		"name":     a.Name,
		"email":    a.Email,
		"imageUrl": a.ImageURL,
		"idToken":  a.IDToken,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode sign-in payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/auth/google", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sign-in request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		var out SignInResponse
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return nil, fmt.Errorf("failed to decode sign-in response: %w", err)
		}
		return &out, nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		// バックエンドによる拒否
		return &SignInResponse{Success: false}, nil
	default:
		return nil, fmt.Errorf("unexpected status from sign-in: %d", resp.StatusCode)
	}
}

// SignOut はPOST /api/auth/logoutを呼び出す。
func (c *Client) SignOut(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/auth/logout", nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("logout request failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("unexpected status from logout: %d", resp.StatusCode)
	}

	return nil
}

// OpenDataset はGET /api/datasets/{name}を呼び出し、ダウンロードストリームを返す。
// 呼び出し元はReadCloserを必ずCloseすること。
func (c *Client) OpenDataset(ctx context.Context, name string) (io.ReadCloser, error) {
	u := c.baseURL + "/api/datasets/" + url.PathEscape(name)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("dataset request failed: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return resp.Body, nil
	case http.StatusUnauthorized:
		resp.Body.Close()
		return nil, ErrUnauthenticated
	case http.StatusNotFound:
		resp.Body.Close()
		return nil, ErrDatasetNotFound
	default:
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status from dataset download: %d", resp.StatusCode)
	}
}

// compile-time interface check
var _ Backend = (*Client)(nil)
