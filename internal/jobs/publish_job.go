package job

import (
	"context"
	"errors"
	"time"

	"github.com/maheshrc27/teampost/internal/lock"
	"github.com/maheshrc27/teampost/internal/service"
	"github.com/maheshrc27/teampost/internal/transfer"
	"github.com/rs/zerolog/log"
)

const publishLockKey = "teampost:scheduler:lock"

// PublishJob runs one scheduler batch at a time across all instances.
type PublishJob struct {
	s      service.SchedulerService
	locker lock.Locker
	ttl    time.Duration
}

func NewPublishJob(s service.SchedulerService, locker lock.Locker, ttl time.Duration) *PublishJob {
	return &PublishJob{
		s:      s,
		locker: locker,
		ttl:    ttl,
	}
}

func (j *PublishJob) Run(ctx context.Context) (*transfer.BatchResult, error) {
	if j.locker == nil {
		return j.s.ProcessDue(ctx)
	}

	var result *transfer.BatchResult
	err := j.locker.WithLock(ctx, publishLockKey, j.ttl, func(ctx context.Context) error {
		var err error
		if result, err = j.s.ProcessDue(ctx); err != nil {
			return &batchError{err: err}
		}
		return nil
	})

	var be *batchError
	switch {
	case err == nil:
		return result, nil
	case errors.Is(err, lock.ErrBusy):
		log.Info().Msg("scheduler batch skipped, another run holds the lock")
		return &transfer.BatchResult{Message: "Scheduler already running", Errors: []string{}}, nil
	case errors.As(err, &be):
		return nil, be.err
	default:
		// The lock store is unreachable. Row leases still keep runs apart.
		log.Warn().Err(err).Msg("scheduler lock unavailable, running without it")
		return j.s.ProcessDue(ctx)
	}
}

// RunScheduled is the cron entry point.
func (j *PublishJob) RunScheduled() {
	ctx, cancel := context.WithTimeout(context.Background(), j.ttl)
	defer cancel()

	result, err := j.Run(ctx)
	if err != nil {
		log.Error().Err(err).Msg("scheduled publish batch failed")
		return
	}
	log.Info().Str("message", result.Message).Int("processed", result.Processed).Int("failed", result.Failed).Msg("scheduled publish batch done")
}

// batchError marks a failure of the batch itself, as opposed to the lock.
type batchError struct{ err error }

func (e *batchError) Error() string { return e.err.Error() }
