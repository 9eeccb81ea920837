package gate

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/gghhxx11299/finedata/internal/notify"
)

// Notifier は通知の発行インターフェース。
// notify.Centerの部分集合として定義する。
type Notifier interface {
	Notify(message string, level notify.Level) string
}

// DatasetSink はダウンロードしたデータセットの受け取り先。
// nil許容（nilの場合はストリームを読み捨てる）。
type DatasetSink interface {
	Consume(name string, r io.Reader) error
}

// Config はゲートの設定。
type Config struct {
	ClientID string // IDプロバイダーに登録するクライアントID
}

// providerScopes はIDプロバイダーに要求するスコープ。
var providerScopes = []string{"profile", "email"}

// Gate はセッションゲート本体。
// バックエンドのセッションAPIとIDプロバイダーの間を仲介し、
// 認証状態をUIに反映する。すべての失敗は未認証状態に収束する。
type Gate struct {
	provider Provider
	backend  Backend
	renderer Renderer
	notifier Notifier
	sink     DatasetSink
	config   Config

	mu            sync.Mutex
	initialized   bool
	providerReady bool
	current       Session

	signInMu  sync.Mutex
	signingIn bool

	signOutMu  sync.Mutex
	signingOut bool

	downloadMu  sync.Mutex
	downloading bool
}

// NewGate はGateを生成する。
// renderer、notifier、sinkはnil許容。
func NewGate(provider Provider, backend Backend, renderer Renderer, notifier Notifier, config Config) *Gate {
	return &Gate{
		provider: provider,
		backend:  backend,
		renderer: renderer,
		notifier: notifier,
		config:   config,
	}
}

// SetDatasetSink はダウンロードの受け取り先を設定する。
func (g *Gate) SetDatasetSink(sink DatasetSink) {
	g.sink = sink
}

// Initialize はゲートを初期化する。冪等: 2回目以降の呼び出しは何もしない。
// IDプロバイダーを登録し、初期UI（未認証）を反映した後、
// バックエンドにセッション確認を行って結果を反映する。
// プロバイダーの初期化失敗は致命的ではなく、サインインのみが不活性になる。
func (g *Gate) Initialize(ctx context.Context) {
	g.mu.Lock()
	if g.initialized {
		g.mu.Unlock()
		return
	}
	g.initialized = true
	g.mu.Unlock()

	// 1. IDプロバイダーの登録（最大1回）
	if err := g.provider.Init(ctx, g.config.ClientID, providerScopes); err != nil {
		slog.Warn("identity provider init failed, sign-in disabled",
			slog.String("error", err.Error()),
		)
		g.setProviderReady(false)
	} else {
		g.setProviderReady(true)
	}

	// 2. 初期UIは未認証
	g.applySession(Session{})

	// 3. 現在のセッション状態を確認して反映
	g.applySession(g.CheckSession(ctx))
}

// CheckSession はバックエンドにセッションの有効性を問い合わせる。
// 転送失敗・デコード失敗は未認証として扱い、エラーは返さない。
// 純粋な読み取りであり、UIには影響しない。
func (g *Gate) CheckSession(ctx context.Context) Session {
	resp, err := g.backend.Check(ctx)
	if err != nil {
		slog.Warn("session check failed, treating as unauthenticated",
			slog.String("error", err.Error()),
		)
		return Session{}
	}

	if !resp.Authenticated || resp.User == nil {
		return Session{}
	}

	return Session{
		Authenticated: true,
		UserName:      resp.User.Name,
		UserEmail:     resp.User.Email,
	}
}

// CompleteSignIn はAssertionをバックエンドに転送し、結果をUIに反映する。
// バックエンドの成功応答のみが認証済み状態の根拠となり、
// 表示にはバックエンドが返した名前・メールを使う。
// 拒否・転送失敗はどちらも未認証状態とエラー通知に収束する。
func (g *Gate) CompleteSignIn(ctx context.Context, a Assertion) bool {
	resp, err := g.backend.SignIn(ctx, a)
	if err != nil {
		slog.Warn("sign-in transport failed",
			slog.String("error", err.Error()),
		)
		g.applySession(Session{})
		g.notify("Sign-in failed. Please check your connection and try again.", notify.LevelError)
		return false
	}

	if !resp.Success || resp.User == nil {
		slog.Warn("sign-in rejected by backend")
		g.applySession(Session{})
		g.notify("Sign-in could not be completed. Please try again.", notify.LevelError)
		return false
	}

	g.applySession(Session{
		Authenticated: true,
		UserName:      resp.User.Name,
		UserEmail:     resp.User.Email,
	})
	g.notify("Signed in as "+resp.User.Name+".", notify.LevelSuccess)
	return true
}

// SignIn は対話的なサインインフローを実行する。
// プロバイダーのハンドシェイクの後にCompleteSignInを呼ぶ。
// 実行中に再度呼ばれた場合は何もせずfalseを返す。
func (g *Gate) SignIn(ctx context.Context) bool {
	g.signInMu.Lock()
	if g.signingIn {
		g.signInMu.Unlock()
		slog.Debug("sign-in already in flight, dropping")
		return false
	}
	g.signingIn = true
	g.signInMu.Unlock()

	defer func() {
		g.signInMu.Lock()
		g.signingIn = false
		g.signInMu.Unlock()
	}()

	if !g.isProviderReady() {
		g.notify("Sign-in is currently unavailable. Please reload and try again.", notify.LevelWarning)
		return false
	}

	assertion, err := g.provider.SignIn(ctx)
	if err != nil {
		slog.Warn("provider sign-in handshake failed",
			slog.String("error", err.Error()),
		)
		g.notify("Sign-in could not be completed. Please try again.", notify.LevelError)
		return false
	}

	return g.CompleteSignIn(ctx, assertion)
}

// SignOut はサインアウトを実行する。
// 順序: プロバイダー → バックエンド。どちらの失敗もログのみで中断しない。
// 両方の試行が完了した後、無条件にUIを未認証状態に戻す。
func (g *Gate) SignOut(ctx context.Context) {
	g.signOutMu.Lock()
	if g.signingOut {
		g.signOutMu.Unlock()
		slog.Debug("sign-out already in flight, dropping")
		return
	}
	g.signingOut = true
	g.signOutMu.Unlock()

	defer func() {
		g.signOutMu.Lock()
		g.signingOut = false
		g.signOutMu.Unlock()
	}()

	// 1. プロバイダー側のサインアウト（失敗しても続行）
	if err := g.provider.SignOut(ctx); err != nil {
		slog.Warn("provider sign-out failed",
			slog.String("error", err.Error()),
		)
	}

	// 2. バックエンドのセッション破棄（失敗しても続行）
	if err := g.backend.SignOut(ctx); err != nil {
		slog.Warn("backend sign-out failed",
			slog.String("error", err.Error()),
		)
	}

	// 3. 無条件にUIを未認証へ戻す
	g.applySession(Session{})
	g.notify("Signed out.", notify.LevelInfo)
}

// RequestGatedAction はゲート付き操作（データセットダウンロード）を実行する。
// 呼び出し時点で必ずセッションを再確認し、キャッシュされた状態には依存しない。
// 未認証の場合はサインインプロンプトを表示してfalseを返す。
// 実行中に再度呼ばれた場合は何もせずfalseを返す。
func (g *Gate) RequestGatedAction(ctx context.Context, datasetName string) bool {
	g.downloadMu.Lock()
	if g.downloading {
		g.downloadMu.Unlock()
		slog.Debug("gated action already in flight, dropping")
		return false
	}
	g.downloading = true
	g.downloadMu.Unlock()

	defer func() {
		g.downloadMu.Lock()
		g.downloading = false
		g.downloadMu.Unlock()
	}()

	// 1. 鮮度のあるセッション確認
	session := g.CheckSession(ctx)
	if !session.Authenticated {
		// 古い認証済みUIが残っていても、ここで未認証に揃える
		g.applySession(session)
		g.notify(DownloadTooltip+".", notify.LevelWarning)
		return false
	}

	// 2. データセットを開く
	rc, err := g.backend.OpenDataset(ctx, datasetName)
	if err != nil {
		switch {
		case errors.Is(err, ErrUnauthenticated):
			// 確認とダウンロードの間にセッションが失効した場合
			g.applySession(Session{})
			g.notify(DownloadTooltip+".", notify.LevelWarning)
		case errors.Is(err, ErrDatasetNotFound):
			g.notify("Dataset not found: "+datasetName, notify.LevelError)
		default:
			slog.Warn("dataset download failed",
				slog.String("dataset", datasetName),
				slog.String("error", err.Error()),
			)
			g.notify("Download failed. Please try again.", notify.LevelError)
		}
		return false
	}
	defer rc.Close()

	// 3. ストリームを受け取り先に渡す
	if g.sink != nil {
		if err := g.sink.Consume(datasetName, rc); err != nil {
			slog.Warn("dataset consume failed",
				slog.String("dataset", datasetName),
				slog.String("error", err.Error()),
			)
			g.notify("Download failed. Please try again.", notify.LevelError)
			return false
		}
	} else {
		io.Copy(io.Discard, rc)
	}

	return true
}

// CurrentSession は最後に反映したセッション状態を返す。
func (g *Gate) CurrentSession() Session {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.current
}

// CurrentUIState は最後に反映したセッション状態から導出したUI状態を返す。
func (g *Gate) CurrentUIState() UIState {
	return DeriveUIState(g.CurrentSession())
}

// applySession はセッション状態を記録し、導出したUI状態をレンダラーに反映する。
func (g *Gate) applySession(s Session) {
	g.mu.Lock()
	g.current = s
	g.mu.Unlock()

	if g.renderer != nil {
		g.renderer.Render(DeriveUIState(s))
	}
}

func (g *Gate) setProviderReady(ready bool) {
	g.mu.Lock()
	g.providerReady = ready
	g.mu.Unlock()
}

func (g *Gate) isProviderReady() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.providerReady
}

func (g *Gate) notify(message string, level notify.Level) {
	if g.notifier != nil {
		g.notifier.Notify(message, level)
	}
}
