package repository

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"time"

	"github.com/lib/pq"
	"github.com/maheshrc27/teampost/internal/models"
	"github.com/rs/zerolog/log"
)

type ScheduleRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Schedule, error)
	ListByUserID(ctx context.Context, userID int64) ([]*models.Schedule, error)
	ListPendingTimes(ctx context.Context, userID, excludePostID int64) ([]time.Time, error)
	GetByPostIDs(ctx context.Context, postIDs []int64) ([]*models.Schedule, error)
	Upsert(ctx context.Context, tx *sql.Tx, s *models.Schedule) (int64, bool, error)
	UpdatePending(ctx context.Context, tx *sql.Tx, id int64, scheduledFor *time.Time) (bool, error)
	Remove(ctx context.Context, tx *sql.Tx, id int64) error
	RemovePendingByUserID(ctx context.Context, tx *sql.Tx, userID int64) ([]int64, error)
	ClaimDue(ctx context.Context, now time.Time, limit int, lease time.Duration, owner string) ([]*models.DueSchedule, error)
	MarkCompleted(ctx context.Context, tx *sql.Tx, id int64, owner string, postedAt time.Time) (bool, error)
	MarkFailed(ctx context.Context, tx *sql.Tx, id int64, owner string, message string, at time.Time) (bool, error)
}

// ErrScheduleInFlight is returned by Upsert when the post's schedule is being
// published and cannot be reset.
var ErrScheduleInFlight = errors.New("schedule is being published")

type scheduleRepository struct {
	db *sql.DB
}

func NewScheduleRepository(db *sql.DB) ScheduleRepository {
	return &scheduleRepository{db: db}
}

const scheduleColumns = `id, user_id, post_id, scheduled_for, status, COALESCE(error, ''), posted_at, created_at, updated_at`

func scanSchedule(row interface{ Scan(...any) error }, s *models.Schedule) error {
	return row.Scan(&s.ID, &s.UserID, &s.PostID, &s.ScheduledFor, &s.Status, &s.Error, &s.PostedAt, &s.CreatedAt, &s.UpdatedAt)
}

func (r *scheduleRepository) GetByID(ctx context.Context, id int64) (*models.Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules WHERE id = $1`

	var s models.Schedule
	if err := scanSchedule(r.db.QueryRowContext(ctx, query, id), &s); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		log.Error().Err(err).Int64("schedule_id", id).Msg("get schedule")
		return nil, err
	}
	return &s, nil
}

func (r *scheduleRepository) ListByUserID(ctx context.Context, userID int64) ([]*models.Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules WHERE user_id = $1 ORDER BY scheduled_for ASC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		log.Error().Err(err).Msg("list schedules")
		return nil, err
	}
	defer rows.Close()

	var schedules []*models.Schedule
	for rows.Next() {
		var s models.Schedule
		if err := scanSchedule(rows, &s); err != nil {
			log.Error().Err(err).Msg("scan schedule")
			return nil, err
		}
		schedules = append(schedules, &s)
	}
	return schedules, rows.Err()
}

func (r *scheduleRepository) ListPendingTimes(ctx context.Context, userID, excludePostID int64) ([]time.Time, error) {
	query := `SELECT scheduled_for FROM schedules WHERE user_id = $1 AND status = $2 AND post_id <> $3`

	rows, err := r.db.QueryContext(ctx, query, userID, models.ScheduleStatusPending, excludePostID)
	if err != nil {
		log.Error().Err(err).Msg("list pending schedule times")
		return nil, err
	}
	defer rows.Close()

	var times []time.Time
	for rows.Next() {
		var t time.Time
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		times = append(times, t)
	}
	return times, rows.Err()
}

func (r *scheduleRepository) GetByPostIDs(ctx context.Context, postIDs []int64) ([]*models.Schedule, error) {
	if len(postIDs) == 0 {
		return nil, nil
	}
	query := `SELECT ` + scheduleColumns + ` FROM schedules WHERE post_id = ANY($1)`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(postIDs))
	if err != nil {
		log.Error().Err(err).Msg("get schedules by post")
		return nil, err
	}
	defer rows.Close()

	var schedules []*models.Schedule
	for rows.Next() {
		var s models.Schedule
		if err := scanSchedule(rows, &s); err != nil {
			log.Error().Err(err).Msg("scan schedule")
			return nil, err
		}
		schedules = append(schedules, &s)
	}
	return schedules, rows.Err()
}

// A PROCESSING row is left alone, so the insert returns no row.
const upsertScheduleQuery = `
	INSERT INTO schedules (user_id, post_id, scheduled_for, status)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (post_id) DO UPDATE
	SET scheduled_for = EXCLUDED.scheduled_for,
		status = EXCLUDED.status,
		error = NULL,
		posted_at = NULL,
		lease_owner = NULL,
		lease_expires_at = NULL,
		updated_at = NOW()
	WHERE schedules.status <> $5
	RETURNING id, (xmax = 0)
`

// Upsert creates the schedule for a post or resets the existing one to PENDING.
// The boolean result is true when a new row was inserted.
func (r *scheduleRepository) Upsert(ctx context.Context, tx *sql.Tx, s *models.Schedule) (int64, bool, error) {
	var id int64
	var created bool
	err := conn(r.db, tx).QueryRowContext(ctx, upsertScheduleQuery,
		s.UserID, s.PostID, s.ScheduledFor, models.ScheduleStatusPending, models.ScheduleStatusProcessing,
	).Scan(&id, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, ErrScheduleInFlight
	}
	if err != nil {
		log.Error().Err(err).Int64("post_id", s.PostID).Msg("upsert schedule")
		return 0, false, err
	}
	return id, created, nil
}

const updatePendingQuery = `
	UPDATE schedules
	SET scheduled_for = COALESCE($1, scheduled_for),
		updated_at = NOW()
	WHERE id = $2 AND status = $3
`

// UpdatePending moves a PENDING schedule to scheduledFor, or only locks the
// row when scheduledFor is nil. It reports false when the schedule is no
// longer PENDING.
func (r *scheduleRepository) UpdatePending(ctx context.Context, tx *sql.Tx, id int64, scheduledFor *time.Time) (bool, error) {
	result, err := conn(r.db, tx).ExecContext(ctx, updatePendingQuery, scheduledFor, id, models.ScheduleStatusPending)
	if err != nil {
		log.Error().Err(err).Int64("schedule_id", id).Msg("update pending schedule")
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

func (r *scheduleRepository) Remove(ctx context.Context, tx *sql.Tx, id int64) error {
	if _, err := conn(r.db, tx).ExecContext(ctx, `DELETE FROM schedules WHERE id = $1`, id); err != nil {
		log.Error().Err(err).Int64("schedule_id", id).Msg("remove schedule")
		return err
	}
	return nil
}

// RemovePendingByUserID deletes every pending schedule of a user and returns the affected post ids.
func (r *scheduleRepository) RemovePendingByUserID(ctx context.Context, tx *sql.Tx, userID int64) ([]int64, error) {
	query := `DELETE FROM schedules WHERE user_id = $1 AND status = $2 RETURNING post_id`

	rows, err := conn(r.db, tx).QueryContext(ctx, query, userID, models.ScheduleStatusPending)
	if err != nil {
		log.Error().Err(err).Msg("remove pending schedules")
		return nil, err
	}
	defer rows.Close()

	var postIDs []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		postIDs = append(postIDs, id)
	}
	return postIDs, rows.Err()
}

const claimDueQuery = `
	WITH due AS (
		SELECT id FROM schedules
		WHERE (status = $1 AND scheduled_for <= $3)
		   OR (status = $2 AND lease_expires_at < $3)
		ORDER BY scheduled_for ASC, id ASC
		LIMIT $4
		FOR UPDATE SKIP LOCKED
	)
	UPDATE schedules s
	SET status = $2,
		lease_owner = $5,
		lease_expires_at = $6,
		updated_at = $3
	FROM due, posts p, users u
	WHERE s.id = due.id AND p.id = s.post_id AND u.id = s.user_id
	RETURNING s.id, s.user_id, s.post_id, s.scheduled_for, s.status, s.created_at,
		p.id, p.user_id, p.content, COALESCE(p.image_url, ''), p.week_number, p.status,
		COALESCE(u.linkedin_access_token, ''), u.linkedin_token_expiry,
		COALESCE(u.linkedin_user_id, ''), COALESCE(u.slack_webhook_url, '')
`

// ClaimDue selects up to limit due schedules and marks them PROCESSING under a
// lease held by owner, in one statement. Rows left PROCESSING by a run whose
// lease has expired are claimed again.
func (r *scheduleRepository) ClaimDue(ctx context.Context, now time.Time, limit int, lease time.Duration, owner string) ([]*models.DueSchedule, error) {
	rows, err := r.db.QueryContext(ctx, claimDueQuery,
		models.ScheduleStatusPending,
		models.ScheduleStatusProcessing,
		now,
		limit,
		owner,
		now.Add(lease),
	)
	if err != nil {
		log.Error().Err(err).Msg("claim due schedules")
		return nil, err
	}
	defer rows.Close()

	due := []*models.DueSchedule{}
	for rows.Next() {
		var d models.DueSchedule
		err := rows.Scan(
			&d.Schedule.ID, &d.Schedule.UserID, &d.Schedule.PostID, &d.Schedule.ScheduledFor, &d.Schedule.Status, &d.Schedule.CreatedAt,
			&d.Post.ID, &d.Post.UserID, &d.Post.Content, &d.Post.ImageURL, &d.Post.WeekNumber, &d.Post.Status,
			&d.User.AccessToken, &d.User.TokenExpiry,
			&d.User.LinkedinUserID, &d.User.SlackWebhookURL,
		)
		if err != nil {
			log.Error().Err(err).Msg("scan due schedule")
			return nil, err
		}
		d.Schedule.LeaseOwner = owner
		d.User.UserID = d.Schedule.UserID
		due = append(due, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// RETURNING does not keep the CTE order.
	sort.Slice(due, func(i, j int) bool {
		a, b := due[i].Schedule, due[j].Schedule
		if a.ScheduledFor.Equal(b.ScheduledFor) {
			return a.ID < b.ID
		}
		return a.ScheduledFor.Before(b.ScheduledFor)
	})
	return due, nil
}

const markCompletedQuery = `
	UPDATE schedules
	SET status = $1,
		posted_at = $2,
		error = NULL,
		lease_owner = NULL,
		lease_expires_at = NULL,
		updated_at = $2
	WHERE id = $3 AND lease_owner = $4 AND status = $5
`

func (r *scheduleRepository) MarkCompleted(ctx context.Context, tx *sql.Tx, id int64, owner string, postedAt time.Time) (bool, error) {
	return r.finish(ctx, tx, markCompletedQuery, models.ScheduleStatusCompleted, postedAt, id, owner, models.ScheduleStatusProcessing)
}

const markFailedQuery = `
	UPDATE schedules
	SET status = $1,
		error = $2,
		lease_owner = NULL,
		lease_expires_at = NULL,
		updated_at = $3
	WHERE id = $4 AND lease_owner = $5 AND status = $6
`

func (r *scheduleRepository) MarkFailed(ctx context.Context, tx *sql.Tx, id int64, owner string, message string, at time.Time) (bool, error) {
	return r.finish(ctx, tx, markFailedQuery, models.ScheduleStatusFailed, message, at, id, owner, models.ScheduleStatusProcessing)
}

func (r *scheduleRepository) finish(ctx context.Context, tx *sql.Tx, query string, args ...any) (bool, error) {
	result, err := conn(r.db, tx).ExecContext(ctx, query, args...)
	if err != nil {
		log.Error().Err(err).Msg("record schedule outcome")
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}
