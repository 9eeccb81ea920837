// Package model はドメインモデルを定義する。
package model

import "time"

// User はFinedataの利用ユーザーを表す。
// プロフィール（名前・メール）はサインインのたびにIdPの最新値で更新される。
type User struct {
	ID          string
	Email       string
	Name        string
	AvatarData  []byte
	AvatarMime  string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	LastLoginAt time.Time
}

// Identity は外部IdPとの紐付け情報を表す。
// 現在はGoogleのみだが、複数のIdPに対応可能な構造。
type Identity struct {
	ID             string
	UserID         string
	Provider       string
	ProviderUserID string
	CreatedAt      time.Time
}

// Session はユーザーのログインセッションを表す。
// IDは暗号的に安全な乱数で、HTTP Only Cookieとしてクライアントに渡される。
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}
