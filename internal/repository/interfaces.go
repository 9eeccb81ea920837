// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/gghhxx11299/finedata/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// CreateWithIdentity はユーザーとidentityを同一トランザクションで作成する。
	CreateWithIdentity(ctx context.Context, user *model.User, identity *model.Identity) error

	// UpdateProfile はユーザーの名前・メールと最終ログイン日時を更新する。
	// サインインのたびにIdPの最新プロフィールで上書きする。
	UpdateProfile(ctx context.Context, id, name, email string, loginAt time.Time) error

	// UpdateAvatar はユーザーのアバター画像データを更新する。
	UpdateAvatar(ctx context.Context, id string, avatarData []byte, avatarMime string) error

	// DeleteByID は指定IDのユーザーを削除する。
	// 関連するidentitiesはCASCADE削除される。
	DeleteByID(ctx context.Context, id string) error
}

// IdentityRepository は外部IdP紐付け情報の永続化インターフェース。
type IdentityRepository interface {
	// FindByProviderAndProviderUserID はproviderとprovider_user_idでidentityを検索する。
	// 見つからない場合はnilを返す。
	FindByProviderAndProviderUserID(ctx context.Context, provider, providerUserID string) (*model.Identity, error)
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
	// DeleteExpired は期限切れセッションを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context) (int64, error)
}

// DatasetRepository はデータセットメタデータの永続化インターフェース。
type DatasetRepository interface {
	// FindByName は指定名のデータセットを取得する。見つからない場合はnilを返す。
	FindByName(ctx context.Context, name string) (*model.Dataset, error)

	// Create はデータセットメタデータを作成する。
	Create(ctx context.Context, dataset *model.Dataset) error

	// IncrementDownloadCount はダウンロード数を1増やす。
	IncrementDownloadCount(ctx context.Context, id string) error
}

// DownloadRepository はダウンロード記録の永続化インターフェース。
type DownloadRepository interface {
	// Create はダウンロード記録を作成する。
	Create(ctx context.Context, record *model.DownloadRecord) error

	// CountByUserID はユーザーの累計ダウンロード数を返す。
	CountByUserID(ctx context.Context, userID string) (int, error)

	// DeleteByUserID はユーザーの全ダウンロード記録を削除する。
	DeleteByUserID(ctx context.Context, userID string) error

	// DeleteOlderThan は保持期間を超過した記録を削除し、削除件数を返す。
	DeleteOlderThan(ctx context.Context, retentionDays int) (int64, error)
}
