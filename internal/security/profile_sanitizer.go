// Package security はアプリケーションのセキュリティ機能を提供する。
//
// ProfileSanitizerService はIdPから渡されるプロフィール文字列（名前・メール）を
// サニタイズし、格納前にHTMLタグや制御文字を除去する。
// IdPプロフィールはクライアント経由で届く信頼できない入力として扱う。
package security

import (
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
)

// maxProfileFieldLen はプロフィール1フィールドの最大長。
// Google側の制約より十分大きく、DBカラム長より十分小さい値。
const maxProfileFieldLen = 255

// ProfileSanitizerService はプロフィール文字列のサニタイズ機能のインターフェースを定義する。
// サインイン時のユーザー作成・更新前に使用される。
type ProfileSanitizerService interface {
	// Sanitize はプロフィール文字列からHTMLタグと制御文字を除去し、
	// 前後空白をトリムした文字列を返す。
	// 255文字を超える入力は切り詰める。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(raw string) string
}

// profileSanitizer はProfileSanitizerServiceの実装。
// bluemondayのStrictPolicyを保持し、スレッドセーフにサニタイズ処理を行う。
type profileSanitizer struct {
	policy *bluemonday.Policy
}

// NewProfileSanitizer はProfileSanitizerServiceの新しいインスタンスを生成する。
// StrictPolicyは全てのHTMLタグを除去し、テキストのみを残す。
func NewProfileSanitizer() *profileSanitizer {
	return &profileSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize はプロフィール文字列をサニタイズする。
func (s *profileSanitizer) Sanitize(raw string) string {
	if raw == "" {
		return ""
	}

	// 1. HTMLタグの除去（StrictPolicy: タグは一切許可しない）
	cleaned := s.policy.Sanitize(raw)

	// 2. 制御文字の除去
	cleaned = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, cleaned)

	// 3. 前後空白のトリムと長さ制限
	cleaned = strings.TrimSpace(cleaned)
	if len(cleaned) > maxProfileFieldLen {
		cleaned = cleaned[:maxProfileFieldLen]
	}

	return cleaned
}

// compile-time interface check
var _ ProfileSanitizerService = (*profileSanitizer)(nil)
