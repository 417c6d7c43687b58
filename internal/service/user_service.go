package service

import (
	"context"
	"fmt"

	"github.com/maheshrc27/teampost/internal/models"
	"github.com/maheshrc27/teampost/internal/repository"
	"github.com/rs/zerolog/log"
)

type UserService interface {
	GetUserInfo(ctx context.Context, id int64) (*models.User, error)
	RemoveUser(ctx context.Context, userID int64) error
}

type userService struct {
	u repository.UserRepository
}

func NewUserService(u repository.UserRepository) UserService {
	return &userService{
		u: u,
	}
}

func (s *userService) GetUserInfo(ctx context.Context, id int64) (*models.User, error) {
	user, isExist, err := s.u.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("getting user info failed: %w", err)
	}
	if !isExist {
		return nil, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	return user, nil
}

// RemoveUser deletes the account together with its posts and schedules.
func (s *userService) RemoveUser(ctx context.Context, userID int64) error {
	if err := s.u.Remove(ctx, userID); err != nil {
		return err
	}
	log.Info().Int64("user_id", userID).Msg("user removed")
	return nil
}
