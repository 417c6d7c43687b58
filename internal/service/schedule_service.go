package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	config "github.com/maheshrc27/teampost/configs"
	"github.com/maheshrc27/teampost/internal/models"
	"github.com/maheshrc27/teampost/internal/repository"
	"github.com/maheshrc27/teampost/internal/transfer"
	"github.com/rs/zerolog/log"
)

type ScheduleService interface {
	Next(ctx context.Context, userID int64, req *transfer.ScheduleNext) (*models.Schedule, error)
	Bulk(ctx context.Context, userID int64, req *transfer.BulkSchedule) ([]*models.Schedule, error)
	CreateRecurring(ctx context.Context, userID int64, req *transfer.RecurringSchedule) ([]*models.Schedule, error)
	List(ctx context.Context, userID int64) ([]*models.ScheduleWithPost, error)
	Get(ctx context.Context, userID, scheduleID int64) (*models.ScheduleWithPost, error)
	Update(ctx context.Context, userID, scheduleID int64, req *transfer.ScheduleUpdate) (*models.ScheduleWithPost, error)
	Delete(ctx context.Context, userID, scheduleID int64) error
}

type scheduleService struct {
	tx        repository.Transactor
	sr        repository.ScheduleRepository
	pr        repository.PostRepository
	ur        repository.UserRepository
	subs      SubscriptionService
	slot      WeeklySlot
	freeLimit int
	bulkQuota bool
	now       func() time.Time
}

func NewScheduleService(
	tx repository.Transactor,
	sr repository.ScheduleRepository,
	pr repository.PostRepository,
	ur repository.UserRepository,
	subs SubscriptionService,
	slot WeeklySlot,
	cfg config.Scheduling) ScheduleService {
	return &scheduleService{
		tx:        tx,
		sr:        sr,
		pr:        pr,
		ur:        ur,
		subs:      subs,
		slot:      slot,
		freeLimit: cfg.FreeScheduleLimit,
		bulkQuota: cfg.BulkQuotaEnforced,
		now:       time.Now,
	}
}

func (s *scheduleService) Next(ctx context.Context, userID int64, req *transfer.ScheduleNext) (*models.Schedule, error) {
	if req == nil || req.PostID == 0 {
		return nil, invalid("postId is required")
	}

	user, err := s.user(ctx, userID)
	if err != nil {
		return nil, err
	}

	post, err := s.ownedPost(ctx, userID, req.PostID)
	if err != nil {
		return nil, err
	}
	if post.Status == models.PostStatusPosted {
		return nil, invalid("post has already been published")
	}

	existing, err := s.scheduled(ctx, []int64{post.ID})
	if err != nil {
		return nil, err
	}
	fresh := 1
	if _, ok := existing[post.ID]; ok {
		fresh = 0
	}
	if err := s.checkQuota(ctx, user, fresh); err != nil {
		return nil, err
	}

	now := s.now()
	var scheduledFor time.Time
	if req.ScheduledFor != nil {
		if !req.ScheduledFor.After(now) {
			return nil, invalid("scheduledFor must be in the future")
		}
		scheduledFor = *req.ScheduledFor
	} else {
		taken, err := s.sr.ListPendingTimes(ctx, userID, post.ID)
		if err != nil {
			return nil, err
		}
		scheduledFor = s.slot.NextFree(now, taken)
	}

	schedule := &models.Schedule{
		UserID:       userID,
		PostID:       post.ID,
		ScheduledFor: scheduledFor,
		Status:       models.ScheduleStatusPending,
	}

	err = s.tx.WithTx(ctx, func(tx *sql.Tx) error {
		created, err := s.upsert(ctx, tx, schedule)
		if err != nil {
			return err
		}
		if created {
			if err := s.ur.IncrementSchedulesCreated(ctx, tx, userID, 1); err != nil {
				return err
			}
		}
		return s.pr.UpdatePostStatus(ctx, tx, models.PostStatusScheduled, post.ID)
	})
	if err != nil {
		return nil, fmt.Errorf("saving schedule failed: %w", err)
	}

	log.Info().Int64("user_id", userID).Int64("post_id", post.ID).Time("scheduled_for", scheduledFor).Msg("post scheduled")
	return schedule, nil
}

func (s *scheduleService) Bulk(ctx context.Context, userID int64, req *transfer.BulkSchedule) ([]*models.Schedule, error) {
	if req == nil || len(req.Schedules) == 0 {
		return nil, invalid("schedules must not be empty")
	}

	now := s.now()
	ids := make([]int64, 0, len(req.Schedules))
	seen := make(map[int64]struct{}, len(req.Schedules))
	for _, item := range req.Schedules {
		if item.PostID == 0 {
			return nil, invalid("postId is required")
		}
		if _, dup := seen[item.PostID]; dup {
			return nil, invalid("post %d appears more than once", item.PostID)
		}
		if !item.ScheduledFor.After(now) {
			return nil, invalid("scheduledFor for post %d must be in the future", item.PostID)
		}
		seen[item.PostID] = struct{}{}
		ids = append(ids, item.PostID)
	}

	posts, err := s.pr.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	owned := make(map[int64]*models.Post, len(posts))
	for _, p := range posts {
		if p.UserID == userID {
			owned[p.ID] = p
		}
	}
	for _, id := range ids {
		p, ok := owned[id]
		if !ok {
			return nil, fmt.Errorf("post %d: %w", id, ErrNotFound)
		}
		if p.Status == models.PostStatusPosted {
			return nil, invalid("post %d has already been published", id)
		}
	}

	existing, err := s.scheduled(ctx, ids)
	if err != nil {
		return nil, err
	}

	if s.bulkQuota {
		user, err := s.user(ctx, userID)
		if err != nil {
			return nil, err
		}
		if err := s.checkQuota(ctx, user, len(ids)-len(existing)); err != nil {
			return nil, err
		}
	}

	schedules := make([]*models.Schedule, 0, len(req.Schedules))
	err = s.tx.WithTx(ctx, func(tx *sql.Tx) error {
		created := 0
		for _, item := range req.Schedules {
			schedule := &models.Schedule{
				UserID:       userID,
				PostID:       item.PostID,
				ScheduledFor: item.ScheduledFor,
				Status:       models.ScheduleStatusPending,
			}
			isNew, err := s.upsert(ctx, tx, schedule)
			if err != nil {
				return err
			}
			if isNew {
				created++
			}
			schedules = append(schedules, schedule)
		}
		if err := s.ur.IncrementSchedulesCreated(ctx, tx, userID, created); err != nil {
			return err
		}
		return s.pr.UpdateStatuses(ctx, tx, models.PostStatusScheduled, ids)
	})
	if err != nil {
		return nil, fmt.Errorf("saving schedules failed: %w", err)
	}

	log.Info().Int64("user_id", userID).Int("count", len(schedules)).Msg("bulk schedules saved")
	return schedules, nil
}

func (s *scheduleService) CreateRecurring(ctx context.Context, userID int64, req *transfer.RecurringSchedule) ([]*models.Schedule, error) {
	if req == nil || req.DayOfWeek == "" || req.Time == "" || req.StartDate == "" {
		return nil, invalid("dayOfWeek, time and startDate are required")
	}

	weekday, err := ParseWeekday(req.DayOfWeek)
	if err != nil {
		return nil, invalid("%s", err.Error())
	}
	hour, minute, err := ParseTimeOfDay(req.Time)
	if err != nil {
		return nil, invalid("%s", err.Error())
	}
	start, err := time.ParseInLocation("2006-01-02", req.StartDate, s.slot.Location)
	if err != nil {
		return nil, invalid("invalid startDate %q", req.StartDate)
	}

	user, err := s.user(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.LinkedinConnected() {
		return nil, invalid("LinkedIn account is not connected")
	}

	drafts, err := s.pr.ListDraftsByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(drafts) == 0 {
		return nil, invalid("no draft posts to schedule")
	}

	slot := WeeklySlot{Weekday: weekday, Hour: hour, Minute: minute, Location: s.slot.Location}
	first := slot.FirstOnOrAfter(start)
	if !first.After(s.now()) {
		return nil, invalid("scheduled time must be in the future")
	}

	ids := make([]int64, len(drafts))
	for i, p := range drafts {
		ids[i] = p.ID
	}
	if _, err := s.scheduled(ctx, ids); err != nil {
		return nil, err
	}

	// Existing schedules of the drafts are moved in place.
	schedules := make([]*models.Schedule, 0, len(drafts))
	err = s.tx.WithTx(ctx, func(tx *sql.Tx) error {
		created := 0
		for i, p := range drafts {
			schedule := &models.Schedule{
				UserID:       userID,
				PostID:       p.ID,
				ScheduledFor: first.AddDate(0, 0, 7*i),
				Status:       models.ScheduleStatusPending,
			}
			isNew, err := s.upsert(ctx, tx, schedule)
			if err != nil {
				return err
			}
			if isNew {
				created++
			}
			schedules = append(schedules, schedule)
		}
		if err := s.ur.IncrementSchedulesCreated(ctx, tx, userID, created); err != nil {
			return err
		}
		return s.pr.UpdateStatuses(ctx, tx, models.PostStatusScheduled, ids)
	})
	if err != nil {
		return nil, fmt.Errorf("saving recurring schedules failed: %w", err)
	}

	log.Info().Int64("user_id", userID).Int("count", len(schedules)).Time("first", first).Msg("recurring schedules saved")
	return schedules, nil
}

func (s *scheduleService) List(ctx context.Context, userID int64) ([]*models.ScheduleWithPost, error) {
	schedules, err := s.sr.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing schedules failed: %w", err)
	}

	ids := make([]int64, len(schedules))
	for i, sc := range schedules {
		ids[i] = sc.PostID
	}
	posts, err := s.pr.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("listing schedules failed: %w", err)
	}
	byID := make(map[int64]*models.Post, len(posts))
	for _, p := range posts {
		byID[p.ID] = p
	}

	result := make([]*models.ScheduleWithPost, 0, len(schedules))
	for _, sc := range schedules {
		result = append(result, &models.ScheduleWithPost{Schedule: *sc, Post: byID[sc.PostID]})
	}
	return result, nil
}

func (s *scheduleService) Get(ctx context.Context, userID, scheduleID int64) (*models.ScheduleWithPost, error) {
	schedule, err := s.ownedSchedule(ctx, userID, scheduleID)
	if err != nil {
		return nil, err
	}
	post, err := s.pr.GetByID(ctx, schedule.PostID)
	if err != nil {
		return nil, err
	}
	return &models.ScheduleWithPost{Schedule: *schedule, Post: post}, nil
}

func (s *scheduleService) Update(ctx context.Context, userID, scheduleID int64, req *transfer.ScheduleUpdate) (*models.ScheduleWithPost, error) {
	if req == nil || (req.ScheduledFor == nil && req.Content == nil && req.ImageURL == nil) {
		return nil, invalid("nothing to update")
	}

	schedule, err := s.ownedSchedule(ctx, userID, scheduleID)
	if err != nil {
		return nil, err
	}
	if schedule.Status != models.ScheduleStatusPending {
		return nil, invalid("only pending schedules can be edited")
	}
	if req.ScheduledFor != nil && !req.ScheduledFor.After(s.now()) {
		return nil, invalid("scheduledFor must be in the future")
	}
	if req.Content != nil && strings.TrimSpace(*req.Content) == "" {
		return nil, invalid("content cannot be empty")
	}

	err = s.tx.WithTx(ctx, func(tx *sql.Tx) error {
		// Holds the row lock until commit, so a claim cannot slip in before the post edit.
		pending, err := s.sr.UpdatePending(ctx, tx, schedule.ID, req.ScheduledFor)
		if err != nil {
			return err
		}
		if !pending {
			return invalid("only pending schedules can be edited")
		}
		if req.Content != nil || req.ImageURL != nil {
			return s.pr.UpdateContent(ctx, tx, schedule.PostID, req.Content, req.ImageURL)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("updating schedule failed: %w", err)
	}

	return s.Get(ctx, userID, scheduleID)
}

func (s *scheduleService) Delete(ctx context.Context, userID, scheduleID int64) error {
	schedule, err := s.ownedSchedule(ctx, userID, scheduleID)
	if err != nil {
		return err
	}
	if schedule.Status == models.ScheduleStatusProcessing || schedule.Status == models.ScheduleStatusCompleted {
		return invalid("schedule can no longer be cancelled")
	}

	err = s.tx.WithTx(ctx, func(tx *sql.Tx) error {
		if err := s.sr.Remove(ctx, tx, schedule.ID); err != nil {
			return err
		}
		return s.pr.UpdatePostStatus(ctx, tx, models.PostStatusDraft, schedule.PostID)
	})
	if err != nil {
		return fmt.Errorf("removing schedule failed: %w", err)
	}
	return nil
}

// checkQuota rejects a user without a subscription when adding n new schedules
// would go past the free limit. Moving existing schedules is always allowed.
func (s *scheduleService) checkQuota(ctx context.Context, user *models.User, n int) error {
	if n <= 0 || user.SchedulesCreated+n <= s.freeLimit {
		return nil
	}
	subscribed, err := s.subs.HasActiveSubscription(ctx, user.ID)
	if err != nil {
		return err
	}
	if subscribed {
		return nil
	}
	log.Info().Int64("user_id", user.ID).Int("count", user.SchedulesCreated).Msg("free schedule limit reached")
	return &QuotaExceededError{Count: user.SchedulesCreated, Limit: s.freeLimit}
}

// scheduled returns the current schedules of the posts keyed by post id. It
// fails when one of them is being published.
func (s *scheduleService) scheduled(ctx context.Context, postIDs []int64) (map[int64]*models.Schedule, error) {
	schedules, err := s.sr.GetByPostIDs(ctx, postIDs)
	if err != nil {
		return nil, err
	}
	byPost := make(map[int64]*models.Schedule, len(schedules))
	for _, sc := range schedules {
		if sc.Status == models.ScheduleStatusProcessing {
			return nil, invalid("post %d is being published", sc.PostID)
		}
		byPost[sc.PostID] = sc
	}
	return byPost, nil
}

// upsert saves schedule and reports whether a new row was created.
func (s *scheduleService) upsert(ctx context.Context, tx *sql.Tx, schedule *models.Schedule) (bool, error) {
	id, created, err := s.sr.Upsert(ctx, tx, schedule)
	if errors.Is(err, repository.ErrScheduleInFlight) {
		return false, invalid("post %d is being published", schedule.PostID)
	}
	if err != nil {
		return false, err
	}
	schedule.ID = id
	return created, nil
}

func (s *scheduleService) user(ctx context.Context, userID int64) (*models.User, error) {
	user, isExist, err := s.ur.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !isExist {
		return nil, fmt.Errorf("user %d: %w", userID, ErrNotFound)
	}
	return user, nil
}

func (s *scheduleService) ownedPost(ctx context.Context, userID, postID int64) (*models.Post, error) {
	post, err := s.pr.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post == nil || post.UserID != userID {
		return nil, fmt.Errorf("post %d: %w", postID, ErrNotFound)
	}
	return post, nil
}

func (s *scheduleService) ownedSchedule(ctx context.Context, userID, scheduleID int64) (*models.Schedule, error) {
	schedule, err := s.sr.GetByID(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	if schedule == nil || schedule.UserID != userID {
		return nil, fmt.Errorf("schedule %d: %w", scheduleID, ErrNotFound)
	}
	return schedule, nil
}
