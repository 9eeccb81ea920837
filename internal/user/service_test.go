package user

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gghhxx11299/finedata/internal/model"
	"github.com/gghhxx11299/finedata/internal/repository"
)

type mockUserRepo struct {
	findByIDFn   func(ctx context.Context, id string) (*model.User, error)
	deleteByIDFn func(ctx context.Context, id string) error
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockUserRepo) CreateWithIdentity(_ context.Context, _ *model.User, _ *model.Identity) error {
	return nil
}

func (m *mockUserRepo) UpdateProfile(_ context.Context, _, _, _ string, _ time.Time) error {
	return nil
}

func (m *mockUserRepo) UpdateAvatar(_ context.Context, _ string, _ []byte, _ string) error {
	return nil
}

func (m *mockUserRepo) DeleteByID(ctx context.Context, id string) error {
	if m.deleteByIDFn != nil {
		return m.deleteByIDFn(ctx, id)
	}
	return nil
}

// compile-time interface check
var _ repository.UserRepository = (*mockUserRepo)(nil)

type mockSessionRepo struct {
	deleteByUserIDFn func(ctx context.Context, userID string) error
}

func (m *mockSessionRepo) Create(_ context.Context, _ *model.Session) error { return nil }

func (m *mockSessionRepo) FindByID(_ context.Context, _ string) (*model.Session, error) {
	return nil, nil
}

func (m *mockSessionRepo) DeleteByID(_ context.Context, _ string) error { return nil }

func (m *mockSessionRepo) DeleteByUserID(ctx context.Context, userID string) error {
	if m.deleteByUserIDFn != nil {
		return m.deleteByUserIDFn(ctx, userID)
	}
	return nil
}

func (m *mockSessionRepo) DeleteExpired(_ context.Context) (int64, error) { return 0, nil }

// compile-time interface check
var _ repository.SessionRepository = (*mockSessionRepo)(nil)

type mockDownloadStore struct {
	deleteByUserIDFn func(ctx context.Context, userID string) error
	countByUserIDFn  func(ctx context.Context, userID string) (int, error)
}

func (m *mockDownloadStore) DeleteByUserID(ctx context.Context, userID string) error {
	if m.deleteByUserIDFn != nil {
		return m.deleteByUserIDFn(ctx, userID)
	}
	return nil
}

func (m *mockDownloadStore) CountByUserID(ctx context.Context, userID string) (int, error) {
	if m.countByUserIDFn != nil {
		return m.countByUserIDFn(ctx, userID)
	}
	return 0, nil
}

// compile-time interface check
var _ DownloadStore = (*mockDownloadStore)(nil)

func existingUserRepo() *mockUserRepo {
	return &mockUserRepo{
		findByIDFn: func(_ context.Context, id string) (*model.User, error) {
			return &model.User{ID: id, Name: "Abel"}, nil
		},
	}
}

func TestProfileReturnsUserAndDownloadCount(t *testing.T) {
	downloads := &mockDownloadStore{
		countByUserIDFn: func(_ context.Context, userID string) (int, error) {
			if userID != "u1" {
				t.Errorf("count requested for %q, want u1", userID)
			}
			return 7, nil
		},
	}
	s := NewService(existingUserRepo(), &mockSessionRepo{}, downloads)

	user, count, err := s.Profile(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Profile failed: %v", err)
	}
	if user.Name != "Abel" {
		t.Errorf("user name = %q, want Abel", user.Name)
	}
	if count != 7 {
		t.Errorf("download count = %d, want 7", count)
	}
}

func TestProfileUnknownUser(t *testing.T) {
	s := NewService(&mockUserRepo{}, &mockSessionRepo{}, &mockDownloadStore{})

	_, _, err := s.Profile(context.Background(), "gone")

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeUserNotFound {
		t.Errorf("want USER_NOT_FOUND, got %v", err)
	}
}

func TestProfilePropagatesCountFailure(t *testing.T) {
	downloads := &mockDownloadStore{
		countByUserIDFn: func(_ context.Context, _ string) (int, error) {
			return 0, errors.New("db down")
		},
	}
	s := NewService(existingUserRepo(), &mockSessionRepo{}, downloads)

	if _, _, err := s.Profile(context.Background(), "u1"); err == nil {
		t.Error("count failure should be reported")
	}
}

func TestWithdrawDeletesInOrder(t *testing.T) {
	var order []string

	userRepo := existingUserRepo()
	userRepo.deleteByIDFn = func(_ context.Context, id string) error {
		order = append(order, "user:"+id)
		return nil
	}
	sessionRepo := &mockSessionRepo{
		deleteByUserIDFn: func(_ context.Context, userID string) error {
			order = append(order, "sessions:"+userID)
			return nil
		},
	}
	downloads := &mockDownloadStore{
		deleteByUserIDFn: func(_ context.Context, userID string) error {
			order = append(order, "downloads:"+userID)
			return nil
		},
	}

	s := NewService(userRepo, sessionRepo, downloads)

	if err := s.Withdraw(context.Background(), "u1"); err != nil {
		t.Fatalf("Withdraw failed: %v", err)
	}

	want := []string{"downloads:u1", "sessions:u1", "user:u1"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("step %d = %q, want %q", i, order[i], want[i])
		}
	}
}

func TestWithdrawUnknownUser(t *testing.T) {
	s := NewService(&mockUserRepo{}, &mockSessionRepo{}, &mockDownloadStore{})

	err := s.Withdraw(context.Background(), "gone")

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeUserNotFound {
		t.Errorf("want USER_NOT_FOUND, got %v", err)
	}
}

func TestWithdrawStopsOnSessionDeleteFailure(t *testing.T) {
	userDeleted := false
	userRepo := existingUserRepo()
	userRepo.deleteByIDFn = func(_ context.Context, _ string) error {
		userDeleted = true
		return nil
	}
	sessionRepo := &mockSessionRepo{
		deleteByUserIDFn: func(_ context.Context, _ string) error {
			return errors.New("db down")
		},
	}

	s := NewService(userRepo, sessionRepo, &mockDownloadStore{})

	if err := s.Withdraw(context.Background(), "u1"); err == nil {
		t.Fatal("session delete failure should abort the withdrawal")
	}
	if userDeleted {
		t.Error("user must not be deleted when session cleanup fails")
	}
}
