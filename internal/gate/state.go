// Package gate はサインイン状態の確立とUIへの反映、サインイン・サインアウトの
// 往復処理を仲介するセッションゲートを提供する。
// 疑わしい場合は常に未認証側に倒す（fail open to logged-out）。
package gate

// AuthState はゲートの認証状態。
type AuthState int

const (
	// StateUnauthenticated は未認証状態。初期状態であり、全エラーの収束先。
	StateUnauthenticated AuthState = iota
	// StateAuthenticated は認証済み状態。
	StateAuthenticated
)

// String はAuthStateの文字列表現を返す。
func (s AuthState) String() string {
	switch s {
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unauthenticated"
	}
}

// DownloadTooltip はダウンロードが無効なときに表示するツールチップ文言。
const DownloadTooltip = "Please sign in to download datasets"

// Session は最後に確認したセッション状態。
// UIAuthStateはこの値のみから導出される。
type Session struct {
	Authenticated bool
	UserName      string
	UserEmail     string
}

// State はセッションに対応するAuthStateを返す。
func (s Session) State() AuthState {
	if s.Authenticated {
		return StateAuthenticated
	}
	return StateUnauthenticated
}

// UIState は抽象UIスロットの表示状態。
// 認証プロンプト、ユーザーメニュー、サインインコントロール、
// ゲート付きコントロール群の4スロットを持つ。
type UIState struct {
	ShowAuthPrompt    bool   // 「サインインしてください」バナー
	ShowUserMenu      bool   // ユーザー名・メールを表示するメニュー
	ShowSignInControl bool   // サインインボタン
	UserName          string // メニューに表示する名前
	UserEmail         string // メニューに表示するメール
	DownloadsEnabled  bool   // ゲート付きコントロール群の有効・無効
	DownloadTooltip   string // 無効時のツールチップ（有効時は空）
}

// DeriveUIState はセッション状態からUI表示状態を導出する純粋関数。
// 同じSessionに対しては常に同じUIStateを返す。
func DeriveUIState(s Session) UIState {
	if !s.Authenticated {
		return UIState{
			ShowAuthPrompt:    true,
			ShowUserMenu:      false,
			ShowSignInControl: true,
			DownloadsEnabled:  false,
			DownloadTooltip:   DownloadTooltip,
		}
	}

	return UIState{
		ShowAuthPrompt:    false,
		ShowUserMenu:      true,
		ShowSignInControl: false,
		UserName:          s.UserName,
		UserEmail:         s.UserEmail,
		DownloadsEnabled:  true,
		DownloadTooltip:   "",
	}
}

// Renderer はUI表示状態の反映先。差し替え可能。
type Renderer interface {
	Render(ui UIState)
}

// RendererFunc は関数をRendererとして使うためのアダプタ。
type RendererFunc func(ui UIState)

// Render はRendererインターフェースを実装する。
func (f RendererFunc) Render(ui UIState) {
	f(ui)
}
