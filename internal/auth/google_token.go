package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const defaultTokenInfoURL = "https://oauth2.googleapis.com/tokeninfo"

// googleIssuers はGoogleのIDトークンで許可されるissuer値。
var googleIssuers = []string{"accounts.google.com", "https://accounts.google.com"}

// TokenClaims は検証済みIDトークンから取り出したクレームを表す。
type TokenClaims struct {
	Sub     string
	Email   string
	Name    string
	Picture string
}

// IDTokenVerifier はGoogle IDトークン検証のインターフェース。
// クライアントはトークンを検証せずそのまま転送するため、
// 検証の責務はすべてサーバー側のこのコンポーネントにある。
type IDTokenVerifier interface {
	// Verify はIDトークンを検証し、クレームを返す。
	Verify(ctx context.Context, idToken string) (*TokenClaims, error)
}

// GoogleVerifierConfig はGoogle IDトークン検証器の設定。
type GoogleVerifierConfig struct {
	ClientID string

	// テスト用にオーバーライド可能なURL
	TokenInfoURL string
}

// GoogleIDTokenVerifier はGoogleのIDトークンを検証する。
// 2段階で検証する:
//  1. ローカルでJWTクレームを検証（aud, iss, exp）。署名検証前の早期リジェクト。
//  2. Googleのtokeninfoエンドポイントで署名を含めて確認する。
type GoogleIDTokenVerifier struct {
	config     GoogleVerifierConfig
	httpClient *http.Client
}

// NewGoogleIDTokenVerifier はGoogleIDTokenVerifierを生成する。
// httpClientがnilの場合は10秒タイムアウトのクライアントを使用する。
func NewGoogleIDTokenVerifier(config GoogleVerifierConfig, httpClient *http.Client) *GoogleIDTokenVerifier {
	if config.TokenInfoURL == "" {
		config.TokenInfoURL = defaultTokenInfoURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &GoogleIDTokenVerifier{
		config:     config,
		httpClient: httpClient,
	}
}

// Verify はIDトークンを検証し、クレームを返す。
func (v *GoogleIDTokenVerifier) Verify(ctx context.Context, idToken string) (*TokenClaims, error) {
	// 1. ローカルのクレーム検証（不正なトークンをネットワーク呼び出し前に弾く）
	localClaims, err := v.validateLocalClaims(idToken)
	if err != nil {
		return nil, fmt.Errorf("local claims validation failed: %w", err)
	}

	// 2. tokeninfoエンドポイントで署名を含めて確認
	info, err := v.fetchTokenInfo(ctx, idToken)
	if err != nil {
		return nil, fmt.Errorf("tokeninfo confirmation failed: %w", err)
	}

	// tokeninfoの結果とローカルクレームの突き合わせ
	if info.Aud != v.config.ClientID {
		return nil, fmt.Errorf("audience mismatch in tokeninfo response")
	}
	if info.Sub == "" || info.Sub != localClaims.Sub {
		return nil, fmt.Errorf("subject mismatch in tokeninfo response")
	}

	return &TokenClaims{
		Sub:     info.Sub,
		Email:   info.Email,
		Name:    info.Name,
		Picture: info.Picture,
	}, nil
}

// validateLocalClaims はJWTをパースし、aud/iss/expをローカルで検証する。
// 署名検証は行わない（tokeninfoエンドポイント側で行う）。
func (v *GoogleIDTokenVerifier) validateLocalClaims(idToken string) (*TokenClaims, error) {
	parser := jwt.NewParser()

	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(idToken, claims); err != nil {
		return nil, fmt.Errorf("malformed ID token: %w", err)
	}

	// audience検証
	aud, err := claims.GetAudience()
	if err != nil {
		return nil, fmt.Errorf("failed to read audience claim: %w", err)
	}
	if !containsAudience(aud, v.config.ClientID) {
		return nil, fmt.Errorf("audience does not match configured client ID")
	}

	// issuer検証
	iss, err := claims.GetIssuer()
	if err != nil {
		return nil, fmt.Errorf("failed to read issuer claim: %w", err)
	}
	if !isGoogleIssuer(iss) {
		return nil, fmt.Errorf("unexpected issuer: %s", iss)
	}

	// 有効期限検証
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return nil, fmt.Errorf("failed to read expiration claim: %w", err)
	}
	if exp == nil || exp.Before(time.Now()) {
		return nil, fmt.Errorf("ID token is expired")
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return nil, fmt.Errorf("missing subject claim")
	}

	result := &TokenClaims{Sub: sub}
	if email, ok := claims["email"].(string); ok {
		result.Email = email
	}
	if name, ok := claims["name"].(string); ok {
		result.Name = name
	}
	if picture, ok := claims["picture"].(string); ok {
		result.Picture = picture
	}

	return result, nil
}

// tokenInfoResponse はGoogleのtokeninfoエンドポイントのレスポンス。
type tokenInfoResponse struct {
	Aud     string `json:"aud"`
	Sub     string `json:"sub"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// fetchTokenInfo はtokeninfoエンドポイントでIDトークンを確認する。
// 署名が不正なトークンはここで400エラーになる。
func (v *GoogleIDTokenVerifier) fetchTokenInfo(ctx context.Context, idToken string) (*tokenInfoResponse, error) {
	reqURL := v.config.TokenInfoURL + "?id_token=" + url.QueryEscape(idToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create tokeninfo request: %w", err)
	}

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tokeninfo request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read tokeninfo response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tokeninfo returned status %d: %s", resp.StatusCode, string(body))
	}

	var info tokenInfoResponse
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("failed to parse tokeninfo response: %w", err)
	}

	return &info, nil
}

// containsAudience はaudienceクレームにclientIDが含まれるかを検証する。
func containsAudience(aud jwt.ClaimStrings, clientID string) bool {
	for _, a := range aud {
		if a == clientID {
			return true
		}
	}
	return false
}

// isGoogleIssuer はissuerがGoogleの既知の値かを検証する。
func isGoogleIssuer(iss string) bool {
	for _, known := range googleIssuers {
		if iss == known {
			return true
		}
	}
	return false
}

// compile-time interface check
var _ IDTokenVerifier = (*GoogleIDTokenVerifier)(nil)
