package service

import (
	"context"
	"fmt"
	"time"

	"github.com/maheshrc27/teampost/internal/repository"
)

type SubscriptionService interface {
	HasActiveSubscription(ctx context.Context, userID int64) (bool, error)
}

type subscriptionService struct {
	s   repository.SubscriptionRepository
	now func() time.Time
}

func NewSubscriptionService(s repository.SubscriptionRepository) SubscriptionService {
	return &subscriptionService{
		s:   s,
		now: time.Now,
	}
}

func (s *subscriptionService) HasActiveSubscription(ctx context.Context, userID int64) (bool, error) {
	subscription, isExist, err := s.s.GetByUserID(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("fetching subscription failed: %w", err)
	}
	if !isExist {
		return false, nil
	}
	return subscription.Active(s.now()), nil
}
