package service

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/maheshrc27/teampost/internal/models"
	"github.com/maheshrc27/teampost/internal/repository"
	"github.com/maheshrc27/teampost/internal/transfer"
	"github.com/rs/zerolog/log"
)

// PlatformService manages the LinkedIn connection of a user.
type PlatformService interface {
	Status(ctx context.Context, userID int64) (*transfer.LinkedinStatus, error)
	Disconnect(ctx context.Context, userID int64) error
}

type platformService struct {
	tx repository.Transactor
	ur repository.UserRepository
	sr repository.ScheduleRepository
	pr repository.PostRepository
}

func NewPlatformService(
	tx repository.Transactor,
	ur repository.UserRepository,
	sr repository.ScheduleRepository,
	pr repository.PostRepository) PlatformService {
	return &platformService{
		tx: tx,
		ur: ur,
		sr: sr,
		pr: pr,
	}
}

func (s *platformService) Status(ctx context.Context, userID int64) (*transfer.LinkedinStatus, error) {
	user, isExist, err := s.ur.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !isExist {
		return nil, fmt.Errorf("user %d: %w", userID, ErrNotFound)
	}

	status := &transfer.LinkedinStatus{Connected: user.LinkedinConnected()}
	if status.Connected {
		status.ExpiresAt = user.LinkedinTokenExpiry
	}
	return status, nil
}

// Disconnect forgets the LinkedIn tokens. Pending schedules could never be
// published afterwards, so they are removed and their posts go back to drafts.
func (s *platformService) Disconnect(ctx context.Context, userID int64) error {
	var reverted int
	err := s.tx.WithTx(ctx, func(tx *sql.Tx) error {
		if err := s.ur.ClearLinkedinCredentials(ctx, tx, userID); err != nil {
			return err
		}
		postIDs, err := s.sr.RemovePendingByUserID(ctx, tx, userID)
		if err != nil {
			return err
		}
		reverted = len(postIDs)
		return s.pr.UpdateStatuses(ctx, tx, models.PostStatusDraft, postIDs)
	})
	if err != nil {
		return fmt.Errorf("disconnecting linkedin failed: %w", err)
	}

	log.Info().Int64("user_id", userID).Int("reverted", reverted).Msg("linkedin account disconnected")
	return nil
}
