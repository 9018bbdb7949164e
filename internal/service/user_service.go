package service

import (
	"context"
	"errors"

	"doc-assistant-be/internal/model"
	"doc-assistant-be/internal/repository"
)

var ErrUsernameTaken = errors.New("username already taken")

type IUserService interface {
	SetUsername(ctx context.Context, username string) error
}

type userService struct {
	users repository.IUserRepository
}

func NewUserService(users repository.IUserRepository) IUserService {
	return &userService{users: users}
}

// SetUsername records the chosen display name, rejecting duplicates.
func (s *userService) SetUsername(ctx context.Context, username string) error {
	existing, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return err
	}
	if existing != nil {
		return ErrUsernameTaken
	}
	return s.users.Create(ctx, &model.User{Username: username})
}
