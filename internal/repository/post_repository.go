package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"
	"github.com/maheshrc27/teampost/internal/models"
	"github.com/rs/zerolog/log"
)

type PostRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Post, error)
	GetByIDs(ctx context.Context, ids []int64) ([]*models.Post, error)
	Create(ctx context.Context, tx *sql.Tx, post *models.Post) (int64, error)
	GetByUserID(ctx context.Context, userID int64) ([]*models.Post, error)
	ListDraftsByUserID(ctx context.Context, userID int64) ([]*models.Post, error)
	UpdatePostStatus(ctx context.Context, tx *sql.Tx, status string, postID int64) error
	UpdateStatuses(ctx context.Context, tx *sql.Tx, status string, postIDs []int64) error
	MarkPosted(ctx context.Context, tx *sql.Tx, postID int64, linkedinPostID string) error
	UpdateContent(ctx context.Context, tx *sql.Tx, postID int64, content, imageURL *string) error
	SetApprovalStatus(ctx context.Context, postID int64, status string) error
	Remove(ctx context.Context, id int64) error
}

type postRepository struct {
	db *sql.DB
}

func NewPostRepository(db *sql.DB) PostRepository {
	return &postRepository{db: db}
}

const postColumns = `id, user_id, content, COALESCE(image_url, ''), week_number, status,
	COALESCE(linkedin_post_id, ''), likes, comments, shares,
	COALESCE(organization_id, 0), COALESCE(author_admin_id, 0),
	COALESCE(bulk_group_id, ''), COALESCE(approval_status, ''),
	created_at, updated_at`

func scanPost(row interface{ Scan(...any) error }, p *models.Post) error {
	return row.Scan(&p.ID, &p.UserID, &p.Content, &p.ImageURL, &p.WeekNumber, &p.Status,
		&p.LinkedinPostID, &p.Likes, &p.Comments, &p.Shares,
		&p.OrganizationID, &p.AuthorAdminID, &p.BulkGroupID, &p.ApprovalStatus,
		&p.CreatedAt, &p.UpdatedAt)
}

func (r *postRepository) Create(ctx context.Context, tx *sql.Tx, post *models.Post) (int64, error) {
	query := `
		INSERT INTO posts (user_id, content, image_url, week_number, status, organization_id, author_admin_id, bulk_group_id, approval_status)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, NULLIF($6, 0), NULLIF($7, 0), NULLIF($8, ''), NULLIF($9, ''))
		RETURNING id
	`

	var id int64
	err := conn(r.db, tx).QueryRowContext(ctx, query,
		post.UserID,
		post.Content,
		post.ImageURL,
		post.WeekNumber,
		post.Status,
		post.OrganizationID,
		post.AuthorAdminID,
		post.BulkGroupID,
		post.ApprovalStatus,
	).Scan(&id)
	if err != nil {
		log.Error().Err(err).Msg("create post")
		return 0, err
	}

	return id, nil
}

func (r *postRepository) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE id = $1`

	var post models.Post
	if err := scanPost(r.db.QueryRowContext(ctx, query, id), &post); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		log.Error().Err(err).Int64("post_id", id).Msg("get post")
		return nil, err
	}

	return &post, nil
}

func (r *postRepository) GetByIDs(ctx context.Context, ids []int64) ([]*models.Post, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return r.list(ctx, `SELECT `+postColumns+` FROM posts WHERE id = ANY($1)`, pq.Array(ids))
}

func (r *postRepository) GetByUserID(ctx context.Context, userID int64) ([]*models.Post, error) {
	return r.list(ctx, `SELECT `+postColumns+` FROM posts WHERE user_id = $1 ORDER BY created_at DESC`, userID)
}

func (r *postRepository) ListDraftsByUserID(ctx context.Context, userID int64) ([]*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE user_id = $1 AND status = $2 ORDER BY week_number ASC, id ASC`
	return r.list(ctx, query, userID, models.PostStatusDraft)
}

func (r *postRepository) list(ctx context.Context, query string, args ...any) ([]*models.Post, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error().Err(err).Msg("list posts")
		return nil, err
	}
	defer rows.Close()

	var posts []*models.Post
	for rows.Next() {
		var post models.Post
		if err := scanPost(rows, &post); err != nil {
			log.Error().Err(err).Msg("scan post")
			return nil, err
		}
		posts = append(posts, &post)
	}
	return posts, rows.Err()
}

func (r *postRepository) UpdatePostStatus(ctx context.Context, tx *sql.Tx, status string, postID int64) error {
	query := `
		UPDATE posts
		SET status = $1,
			updated_at = $2
		WHERE id = $3
	`
	_, err := conn(r.db, tx).ExecContext(ctx, query, status, time.Now(), postID)
	if err != nil {
		log.Error().Err(err).Int64("post_id", postID).Msg("update post status")
		return err
	}
	return nil
}

func (r *postRepository) UpdateStatuses(ctx context.Context, tx *sql.Tx, status string, postIDs []int64) error {
	if len(postIDs) == 0 {
		return nil
	}
	query := `UPDATE posts SET status = $1, updated_at = $2 WHERE id = ANY($3)`
	_, err := conn(r.db, tx).ExecContext(ctx, query, status, time.Now(), pq.Array(postIDs))
	if err != nil {
		log.Error().Err(err).Msg("update post statuses")
		return err
	}
	return nil
}

func (r *postRepository) MarkPosted(ctx context.Context, tx *sql.Tx, postID int64, linkedinPostID string) error {
	query := `
		UPDATE posts
		SET status = $1,
			linkedin_post_id = $2,
			updated_at = $3
		WHERE id = $4
	`
	_, err := conn(r.db, tx).ExecContext(ctx, query, models.PostStatusPosted, linkedinPostID, time.Now(), postID)
	if err != nil {
		log.Error().Err(err).Int64("post_id", postID).Msg("mark post posted")
		return err
	}
	return nil
}

// UpdateContent changes the text and/or the image of a post. Nil leaves the
// column untouched, an empty image clears it.
func (r *postRepository) UpdateContent(ctx context.Context, tx *sql.Tx, postID int64, content, imageURL *string) error {
	query := `
		UPDATE posts
		SET content = COALESCE($1, content),
			image_url = CASE WHEN $2::text IS NULL THEN image_url ELSE NULLIF($2, '') END,
			updated_at = $3
		WHERE id = $4
	`
	_, err := conn(r.db, tx).ExecContext(ctx, query, content, imageURL, time.Now(), postID)
	if err != nil {
		log.Error().Err(err).Int64("post_id", postID).Msg("update post content")
		return err
	}
	return nil
}

func (r *postRepository) SetApprovalStatus(ctx context.Context, postID int64, status string) error {
	query := `UPDATE posts SET approval_status = $1, updated_at = $2 WHERE id = $3`
	if _, err := r.db.ExecContext(ctx, query, status, time.Now(), postID); err != nil {
		log.Error().Err(err).Int64("post_id", postID).Msg("set approval status")
		return err
	}
	return nil
}

func (r *postRepository) Remove(ctx context.Context, id int64) error {
	query := `DELETE FROM posts WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)

	if err != nil {
		log.Error().Err(err).Int64("post_id", id).Msg("remove post")
		return err
	}
	return nil
}
