package job

import (
	"context"
	"sync"
	"time"

	"github.com/maheshrc27/teampost/internal/metrics"
	"github.com/maheshrc27/teampost/internal/models"
	"github.com/maheshrc27/teampost/internal/repository"
	"github.com/maheshrc27/teampost/internal/service"
	"github.com/rs/zerolog/log"
)

const refreshWindow = 30 * time.Minute

type TokenRefreshJob struct {
	ur repository.UserRepository
	li service.LinkedinService
}

func NewTokenRefreshJob(ur repository.UserRepository, li service.LinkedinService) *TokenRefreshJob {
	return &TokenRefreshJob{
		ur: ur,
		li: li,
	}
}

// RefreshTokens renews every LinkedIn token expiring within the next half hour.
func (j *TokenRefreshJob) RefreshTokens() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	users, err := j.ur.ListExpiringLinkedinTokens(ctx, time.Now().Add(refreshWindow))
	if err != nil {
		return
	}

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, 10)

	for _, user := range users {
		wg.Add(1)
		semaphore <- struct{}{}

		go func(user *models.User) {
			defer wg.Done()
			defer func() { <-semaphore }()

			err := j.li.RefreshLinkedinToken(ctx, user)
			metrics.ObserveTokenRefresh(err)
			if err != nil {
				log.Warn().Err(err).Int64("user_id", user.ID).Msg("unable to refresh linkedin token")
			}
		}(user)
	}

	wg.Wait()
}
