package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/maheshrc27/teampost/internal/metrics"
	"github.com/maheshrc27/teampost/internal/models"
	"github.com/maheshrc27/teampost/internal/repository"
	"github.com/maheshrc27/teampost/internal/transfer"
	"github.com/maheshrc27/teampost/pkg/utils"
	"github.com/rs/zerolog/log"
)

const (
	errLinkedinNotConnected = "LinkedIn not connected"
	errLinkedinTokenExpired = "LinkedIn token expired"
	errLinkedinCredentials  = "LinkedIn credentials invalid"
)

// Publisher sends one post to LinkedIn.
type Publisher interface {
	Publish(ctx context.Context, accessToken, linkedinUserID, content string) transfer.PublishResult
}

// Notifier tells a user about the outcome of a scheduled post.
type Notifier interface {
	NotifySlack(ctx context.Context, webhookURL, text string) error
}

type SchedulerService interface {
	ProcessDue(ctx context.Context) (*transfer.BatchResult, error)
}

type SchedulerOptions struct {
	BatchSize int
	Lease     time.Duration
	SecretKey string
}

type schedulerService struct {
	tx        repository.Transactor
	sr        repository.ScheduleRepository
	pr        repository.PostRepository
	publisher Publisher
	notifier  Notifier
	opts      SchedulerOptions
	now       func() time.Time
	newOwner  func() string
}

func NewSchedulerService(
	tx repository.Transactor,
	sr repository.ScheduleRepository,
	pr repository.PostRepository,
	publisher Publisher,
	notifier Notifier,
	opts SchedulerOptions) SchedulerService {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 10
	}
	if opts.Lease <= 0 {
		opts.Lease = 10 * time.Minute
	}
	return &schedulerService{
		tx:        tx,
		sr:        sr,
		pr:        pr,
		publisher: publisher,
		notifier:  notifier,
		opts:      opts,
		now:       time.Now,
		newOwner:  uuid.NewString,
	}
}

var errLeaseLost = errors.New("schedule lease lost")

// ProcessDue claims the due schedules and publishes them one by one. Each
// outcome lands on the schedule and its post in a single transaction.
func (s *schedulerService) ProcessDue(ctx context.Context) (*transfer.BatchResult, error) {
	start := time.Now()
	defer func() {
		metrics.SchedulerBatchSeconds.Observe(time.Since(start).Seconds())
	}()

	owner := s.newOwner()
	due, err := s.sr.ClaimDue(ctx, s.now(), s.opts.BatchSize, s.opts.Lease, owner)
	if err != nil {
		metrics.SchedulerRuns.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("claiming due schedules failed: %w", err)
	}

	result := &transfer.BatchResult{Errors: []string{}}
	if len(due) == 0 {
		metrics.SchedulerRuns.WithLabelValues("empty").Inc()
		result.Message = "No posts to process"
		return result, nil
	}

	log.Info().Str("owner", owner).Int("count", len(due)).Msg("processing due schedules")

	for _, d := range due {
		outcome := s.publish(ctx, d)

		err := s.record(ctx, d, outcome, owner)
		if errors.Is(err, errLeaseLost) {
			log.Warn().Int64("schedule_id", d.Schedule.ID).Str("owner", owner).Msg("lease lost before outcome was recorded")
			continue
		}
		if err != nil {
			metrics.SchedulerRuns.WithLabelValues("error").Inc()
			return nil, fmt.Errorf("recording schedule %d failed: %w", d.Schedule.ID, err)
		}

		result.Processed++
		if outcome.Success {
			result.Success++
		} else {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("Schedule %d: %s", d.Schedule.ID, outcome.Error))
		}
		metrics.ObserveOutcome(outcome.Success)

		s.notify(ctx, d, outcome)
	}

	metrics.SchedulerRuns.WithLabelValues("ok").Inc()
	result.Message = fmt.Sprintf("Processed %d posts", result.Processed)
	return result, nil
}

func (s *schedulerService) publish(ctx context.Context, d *models.DueSchedule) transfer.PublishResult {
	creds := d.User
	if creds.AccessToken == "" || creds.LinkedinUserID == "" {
		return transfer.PublishResult{Error: errLinkedinNotConnected}
	}
	if creds.TokenExpiry != nil && creds.TokenExpiry.Before(s.now()) {
		return transfer.PublishResult{Error: errLinkedinTokenExpired}
	}

	accessToken, err := utils.Decrypt(creds.AccessToken, []byte(s.opts.SecretKey))
	if err != nil {
		log.Error().Err(err).Int64("user_id", creds.UserID).Msg("decrypt linkedin token")
		return transfer.PublishResult{Error: errLinkedinCredentials}
	}

	start := time.Now()
	outcome := s.publisher.Publish(ctx, accessToken, creds.LinkedinUserID, d.Post.Content)
	metrics.ObservePublish(start, outcome.Success)
	return outcome
}

func (s *schedulerService) record(ctx context.Context, d *models.DueSchedule, outcome transfer.PublishResult, owner string) error {
	at := s.now()
	return s.tx.WithTx(ctx, func(tx *sql.Tx) error {
		if outcome.Success {
			ok, err := s.sr.MarkCompleted(ctx, tx, d.Schedule.ID, owner, at)
			if err != nil {
				return err
			}
			if !ok {
				return errLeaseLost
			}
			return s.pr.MarkPosted(ctx, tx, d.Post.ID, outcome.PostID)
		}

		ok, err := s.sr.MarkFailed(ctx, tx, d.Schedule.ID, owner, outcome.Error, at)
		if err != nil {
			return err
		}
		if !ok {
			return errLeaseLost
		}
		return s.pr.UpdatePostStatus(ctx, tx, models.PostStatusFailed, d.Post.ID)
	})
}

func (s *schedulerService) notify(ctx context.Context, d *models.DueSchedule, outcome transfer.PublishResult) {
	if s.notifier == nil || d.User.SlackWebhookURL == "" {
		return
	}

	text := fmt.Sprintf("Your LinkedIn post was published: https://www.linkedin.com/feed/update/%s", outcome.PostID)
	if !outcome.Success {
		text = fmt.Sprintf("Your scheduled LinkedIn post could not be published: %s", outcome.Error)
	}

	if err := s.notifier.NotifySlack(ctx, d.User.SlackWebhookURL, text); err != nil {
		log.Warn().Err(err).Int64("schedule_id", d.Schedule.ID).Msg("slack notification not queued")
	}
}
