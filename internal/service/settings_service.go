package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/maheshrc27/teampost/internal/repository"
	"github.com/maheshrc27/teampost/internal/transfer"
)

const slackWebhookPrefix = "https://hooks.slack.com/"

type SettingsService interface {
	GetSettings(ctx context.Context, userID int64) (*transfer.SettingsInfo, error)
	UpdateSlackWebhook(ctx context.Context, userID int64, webhookURL string) error
}

type settingsService struct {
	ur        repository.UserRepository
	subs      SubscriptionService
	freeLimit int
}

func NewSettingsService(ur repository.UserRepository, subs SubscriptionService, freeLimit int) SettingsService {
	return &settingsService{
		ur:        ur,
		subs:      subs,
		freeLimit: freeLimit,
	}
}

func (s *settingsService) GetSettings(ctx context.Context, userID int64) (*transfer.SettingsInfo, error) {
	user, isExist, err := s.ur.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !isExist {
		return nil, fmt.Errorf("user %d: %w", userID, ErrNotFound)
	}

	subscribed, err := s.subs.HasActiveSubscription(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &transfer.SettingsInfo{
		LinkedinConnected: user.LinkedinConnected(),
		SlackConfigured:   user.SlackWebhookURL != "",
		SchedulesCreated:  user.SchedulesCreated,
		FreeScheduleLimit: s.freeLimit,
		Subscribed:        subscribed,
	}, nil
}

// UpdateSlackWebhook stores the webhook. An empty URL turns notifications off.
func (s *settingsService) UpdateSlackWebhook(ctx context.Context, userID int64, webhookURL string) error {
	webhookURL = strings.TrimSpace(webhookURL)
	if webhookURL != "" && !strings.HasPrefix(webhookURL, slackWebhookPrefix) {
		return invalid("webhookUrl must start with %s", slackWebhookPrefix)
	}
	return s.ur.SetSlackWebhook(ctx, userID, webhookURL)
}
