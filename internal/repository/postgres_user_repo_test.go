package repository

import (
	"testing"
	"time"

	"github.com/gghhxx11299/finedata/internal/model"
)

// PostgresUserRepoはUserRepositoryインターフェースを満たすことを検証
func TestPostgresUserRepo_ImplementsInterface(t *testing.T) {
	var _ UserRepository = (*PostgresUserRepo)(nil)
}

// PostgresIdentityRepoはIdentityRepositoryインターフェースを満たすことを検証
func TestPostgresIdentityRepo_ImplementsInterface(t *testing.T) {
	var _ IdentityRepository = (*PostgresIdentityRepo)(nil)
}

// NewPostgresUserRepoが正しく初期化されることを検証
func TestNewPostgresUserRepo_Initializes(t *testing.T) {
	repo := NewPostgresUserRepo(nil)
	if repo == nil {
		t.Fatal("expected non-nil repo")
	}
}

// NewPostgresIdentityRepoが正しく初期化されることを検証
func TestNewPostgresIdentityRepo_Initializes(t *testing.T) {
	repo := NewPostgresIdentityRepo(nil)
	if repo == nil {
		t.Fatal("expected non-nil repo")
	}
}

// ユニットテスト: CreateWithIdentityに渡すuserとidentityの紐付けの検証
// （DB接続なしでロジックのみ検証）
func TestPostgresUserRepo_CreateWithIdentity_LinksIdentity(t *testing.T) {
	now := time.Now()
	user := &model.User{
		ID:          "user-id-1",
		Email:       "abel@example.et",
		Name:        "Abel",
		CreatedAt:   now,
		UpdatedAt:   now,
		LastLoginAt: now,
	}
	identity := &model.Identity{
		ID:             "identity-id-1",
		UserID:         "user-id-1",
		Provider:       "google",
		ProviderUserID: "google-123",
		CreatedAt:      now,
	}

	// identityのUserIDがuserのIDと一致することを確認
	if identity.UserID != user.ID {
		t.Errorf("identity.UserID = %q, want %q", identity.UserID, user.ID)
	}
	if identity.Provider != "google" {
		t.Errorf("provider = %q, want google", identity.Provider)
	}
}
