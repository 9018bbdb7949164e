package service

import (
	"context"
	"errors"
	"testing"

	"doc-assistant-be/internal/model"
)

type fakeUserRepo struct {
	users   map[string]*model.User
	findErr error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[string]*model.User{}}
}

func (f *fakeUserRepo) Create(ctx context.Context, user *model.User) error {
	f.users[user.Username] = user
	return nil
}

func (f *fakeUserRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.users[username], nil
}

func TestSetUsername(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewUserService(repo)

	if err := svc.SetUsername(context.Background(), "alice"); err != nil {
		t.Fatalf("SetUsername: %v", err)
	}
	if _, ok := repo.users["alice"]; !ok {
		t.Fatal("user not persisted")
	}

	err := svc.SetUsername(context.Background(), "alice")
	if !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("duplicate SetUsername = %v, want ErrUsernameTaken", err)
	}
}

func TestSetUsernamePropagatesRepoError(t *testing.T) {
	repo := newFakeUserRepo()
	repo.findErr = errors.New("db down")
	svc := NewUserService(repo)

	if err := svc.SetUsername(context.Background(), "alice"); err == nil {
		t.Fatal("expected repository error to propagate")
	}
}
