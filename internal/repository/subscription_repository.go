package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/maheshrc27/teampost/internal/models"
	"github.com/rs/zerolog/log"
)

type SubscriptionRepository interface {
	GetByUserID(ctx context.Context, userID int64) (*models.Subscription, bool, error)
}

type subscriptionRepository struct {
	db *sql.DB
}

func NewSubscriptionRepository(db *sql.DB) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

// GetByUserID returns the most recent subscription of a user.
func (r *subscriptionRepository) GetByUserID(ctx context.Context, userID int64) (*models.Subscription, bool, error) {
	var subscription models.Subscription
	query := `
		SELECT id, user_id, subscription_id, subscription_end_date, status, created_at, updated_at
		FROM subscriptions
		WHERE user_id = $1
		ORDER BY subscription_end_date DESC
		LIMIT 1
	`
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&subscription.ID,
		&subscription.UserID,
		&subscription.SubscriptionID,
		&subscription.SubscriptionEndDate,
		&subscription.Status,
		&subscription.CreatedAt,
		&subscription.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		log.Error().Err(err).Int64("user_id", userID).Msg("get subscription")
		return nil, false, err
	}
	return &subscription, true, nil
}
