package gate

import (
	"context"
	"fmt"
	"sync"
)

// Assertion はIDプロバイダーが発行したサインインの主張。
// バックエンドにそのまま転送され、IDTokenのみが検証対象となる。
// プロフィールフィールドは参考情報。
type Assertion struct {
	GoogleID string
	Name     string
	Email    string
	ImageURL string
	IDToken  string
}

// Provider はIDプロバイダー（Googleサインイン）の抽象。
type Provider interface {
	// Init はプロバイダーをクライアントIDとスコープで初期化する。
	// ゲートの初期化時に最大1回だけ呼ばれる。
	Init(ctx context.Context, clientID string, scopes []string) error

	// SignIn は対話的なサインインハンドシェイクを実行する。
	// 必ず1回だけ成功または失敗で解決する（single-shot）。
	SignIn(ctx context.Context) (Assertion, error)

	// SignOut はプロバイダー側のサインアウトを実行する。
	SignOut(ctx context.Context) error
}

// StaticTokenProvider は事前発行されたIDトークンを返すプロバイダー実装。
// probeサブコマンド（合成監視）で対話的な同意画面の代わりに使用する。
type StaticTokenProvider struct {
	mu        sync.Mutex
	assertion Assertion
	clientID  string
	initCount int
}

// NewStaticTokenProvider はStaticTokenProviderを生成する。
func NewStaticTokenProvider(assertion Assertion) *StaticTokenProvider {
	return &StaticTokenProvider{
		assertion: assertion,
	}
}

// Init はクライアントIDを記録する。
func (p *StaticTokenProvider) Init(_ context.Context, clientID string, _ []string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if clientID == "" {
		return fmt.Errorf("client ID is required")
	}
	p.clientID = clientID
	p.initCount++
	return nil
}

// SignIn は事前発行されたAssertionを返す。
func (p *StaticTokenProvider) SignIn(_ context.Context) (Assertion, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.assertion.IDToken == "" {
		return Assertion{}, fmt.Errorf("no pre-issued ID token configured")
	}
	return p.assertion, nil
}

// SignOut は何もしない。事前発行トークンに取り消すセッションはない。
func (p *StaticTokenProvider) SignOut(_ context.Context) error {
	return nil
}

// InitCount はInitが呼ばれた回数を返す。テスト用。
func (p *StaticTokenProvider) InitCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.initCount
}

// compile-time interface check
var _ Provider = (*StaticTokenProvider)(nil)
