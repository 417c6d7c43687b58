package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/maheshrc27/teampost/internal/models"
	"github.com/rs/zerolog/log"
)

type UserRepository interface {
	GetByID(ctx context.Context, id int64) (*models.User, bool, error)
	GetByEmail(ctx context.Context, email string) (*models.User, bool, error)
	Create(ctx context.Context, tx *sql.Tx, user *models.User) (int64, error)
	Update(ctx context.Context, user *models.User) error
	IncrementSchedulesCreated(ctx context.Context, tx *sql.Tx, userID int64, n int) error
	SetLinkedinCredentials(ctx context.Context, tx *sql.Tx, user *models.User) error
	ClearLinkedinCredentials(ctx context.Context, tx *sql.Tx, userID int64) error
	ListExpiringLinkedinTokens(ctx context.Context, before time.Time) ([]*models.User, error)
	SetSlackWebhook(ctx context.Context, userID int64, webhookURL string) error
	Remove(ctx context.Context, userID int64) error
}

type userRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) UserRepository {
	return &userRepository{db: db}
}

const userColumns = `id, COALESCE(google_id, ''), email, COALESCE(name, ''), COALESCE(profile_picture, ''),
	COALESCE(linkedin_access_token, ''), COALESCE(linkedin_refresh_token, ''), linkedin_token_expiry,
	COALESCE(linkedin_user_id, ''), COALESCE(slack_webhook_url, ''), schedules_created,
	created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }, u *models.User) error {
	return row.Scan(&u.ID, &u.GoogleID, &u.Email, &u.Name, &u.ProfilePicture,
		&u.LinkedinAccessToken, &u.LinkedinRefreshToken, &u.LinkedinTokenExpiry,
		&u.LinkedinUserID, &u.SlackWebhookURL, &u.SchedulesCreated,
		&u.CreatedAt, &u.UpdatedAt)
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*models.User, bool, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, bool, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

func (r *userRepository) getOne(ctx context.Context, query string, arg any) (*models.User, bool, error) {
	var user models.User
	if err := scanUser(r.db.QueryRowContext(ctx, query, arg), &user); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		log.Error().Err(err).Msg("get user")
		return nil, false, err
	}
	return &user, true, nil
}

func (r *userRepository) Create(ctx context.Context, tx *sql.Tx, user *models.User) (int64, error) {
	query := "INSERT INTO users (google_id, email, name, profile_picture) VALUES ($1, $2, $3, $4) RETURNING id"

	var id int64
	err := conn(r.db, tx).QueryRowContext(ctx, query, user.GoogleID, user.Email, user.Name, user.ProfilePicture).Scan(&id)
	if err != nil {
		log.Error().Err(err).Msg("create user")
		return 0, err
	}
	return id, nil
}

func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	query := `
		UPDATE users
		SET google_id = $1,
			name = $2,
			profile_picture = $3,
			updated_at = $4
		WHERE id = $5
	`
	_, err := r.db.ExecContext(ctx, query, user.GoogleID, user.Name, user.ProfilePicture, time.Now(), user.ID)
	if err != nil {
		log.Error().Err(err).Int64("user_id", user.ID).Msg("update user")
		return err
	}

	return nil
}

func (r *userRepository) IncrementSchedulesCreated(ctx context.Context, tx *sql.Tx, userID int64, n int) error {
	if n == 0 {
		return nil
	}
	query := `UPDATE users SET schedules_created = schedules_created + $1 WHERE id = $2`
	if _, err := conn(r.db, tx).ExecContext(ctx, query, n, userID); err != nil {
		log.Error().Err(err).Int64("user_id", userID).Msg("increment schedules created")
		return err
	}
	return nil
}

// SetLinkedinCredentials stores already encrypted LinkedIn tokens. An empty
// refresh token keeps the stored one, LinkedIn does not always rotate it.
func (r *userRepository) SetLinkedinCredentials(ctx context.Context, tx *sql.Tx, user *models.User) error {
	query := `
		UPDATE users
		SET linkedin_access_token = $1,
			linkedin_refresh_token = COALESCE(NULLIF($2, ''), linkedin_refresh_token),
			linkedin_token_expiry = $3,
			linkedin_user_id = COALESCE(NULLIF($4, ''), linkedin_user_id),
			updated_at = $5
		WHERE id = $6
	`
	_, err := conn(r.db, tx).ExecContext(ctx, query,
		user.LinkedinAccessToken,
		user.LinkedinRefreshToken,
		user.LinkedinTokenExpiry,
		user.LinkedinUserID,
		time.Now(),
		user.ID,
	)
	if err != nil {
		log.Error().Err(err).Int64("user_id", user.ID).Msg("set linkedin credentials")
		return err
	}
	return nil
}

func (r *userRepository) ClearLinkedinCredentials(ctx context.Context, tx *sql.Tx, userID int64) error {
	query := `
		UPDATE users
		SET linkedin_access_token = NULL,
			linkedin_refresh_token = NULL,
			linkedin_token_expiry = NULL,
			linkedin_user_id = NULL,
			updated_at = $1
		WHERE id = $2
	`
	if _, err := conn(r.db, tx).ExecContext(ctx, query, time.Now(), userID); err != nil {
		log.Error().Err(err).Int64("user_id", userID).Msg("clear linkedin credentials")
		return err
	}
	return nil
}

func (r *userRepository) ListExpiringLinkedinTokens(ctx context.Context, before time.Time) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users
		WHERE linkedin_refresh_token IS NOT NULL
		AND linkedin_refresh_token <> ''
		AND linkedin_token_expiry < $1`

	rows, err := r.db.QueryContext(ctx, query, before)
	if err != nil {
		log.Error().Err(err).Msg("list expiring linkedin tokens")
		return nil, err
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		var user models.User
		if err := scanUser(rows, &user); err != nil {
			log.Error().Err(err).Msg("scan user")
			return nil, err
		}
		users = append(users, &user)
	}
	return users, rows.Err()
}

func (r *userRepository) SetSlackWebhook(ctx context.Context, userID int64, webhookURL string) error {
	query := `UPDATE users SET slack_webhook_url = NULLIF($1, ''), updated_at = $2 WHERE id = $3`
	if _, err := r.db.ExecContext(ctx, query, webhookURL, time.Now(), userID); err != nil {
		log.Error().Err(err).Int64("user_id", userID).Msg("set slack webhook")
		return err
	}
	return nil
}

func (r *userRepository) Remove(ctx context.Context, userID int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, userID); err != nil {
		log.Error().Err(err).Int64("user_id", userID).Msg("remove user")
		return err
	}
	return nil
}
