package service

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"strings"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
	"github.com/maheshrc27/teampost/internal/models"
	"github.com/maheshrc27/teampost/internal/repository"
	"github.com/maheshrc27/teampost/internal/transfer"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog/log"
)

const maxImageSize = 8 << 20

var allowedImageTypes = map[string]struct{}{
	"jpg": {}, "png": {}, "gif": {}, "webp": {},
}

type PostService interface {
	List(ctx context.Context, userID int64) ([]*models.Post, error)
	PostInfo(ctx context.Context, postID, userID int64) (*models.Post, error)
	CreateDraft(ctx context.Context, userID int64, pc *transfer.PostCreation) (*models.Post, error)
	Remove(ctx context.Context, userID, postID int64) error
	UploadImage(ctx context.Context, userID, postID int64, file *multipart.FileHeader) (*models.Post, error)
}

type postService struct {
	pr      repository.PostRepository
	storage ObjectStorage
}

func NewPostService(pr repository.PostRepository, storage ObjectStorage) PostService {
	return &postService{
		pr:      pr,
		storage: storage,
	}
}

func (s *postService) List(ctx context.Context, userID int64) ([]*models.Post, error) {
	posts, err := s.pr.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing posts failed: %w", err)
	}
	if posts == nil {
		posts = []*models.Post{}
	}
	return posts, nil
}

func (s *postService) PostInfo(ctx context.Context, postID, userID int64) (*models.Post, error) {
	if postID == 0 {
		return nil, invalid("post id is not valid")
	}

	post, err := s.pr.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post == nil || post.UserID != userID {
		return nil, fmt.Errorf("post %d: %w", postID, ErrNotFound)
	}
	return post, nil
}

func (s *postService) CreateDraft(ctx context.Context, userID int64, pc *transfer.PostCreation) (*models.Post, error) {
	if pc == nil || strings.TrimSpace(pc.Content) == "" {
		return nil, invalid("content cannot be empty")
	}
	if pc.WeekNumber < 0 {
		return nil, invalid("weekNumber must not be negative")
	}

	post := &models.Post{
		UserID:     userID,
		Content:    pc.Content,
		WeekNumber: pc.WeekNumber,
		Status:     models.PostStatusDraft,
	}

	id, err := s.pr.Create(ctx, nil, post)
	if err != nil {
		return nil, fmt.Errorf("creating post failed: %w", err)
	}
	post.ID = id
	return post, nil
}

// Remove deletes the post. Its schedule goes with it.
func (s *postService) Remove(ctx context.Context, userID, postID int64) error {
	if _, err := s.PostInfo(ctx, postID, userID); err != nil {
		return err
	}

	if err := s.pr.Remove(ctx, postID); err != nil {
		return fmt.Errorf("removing post failed: %w", err)
	}
	return nil
}

func (s *postService) UploadImage(ctx context.Context, userID, postID int64, file *multipart.FileHeader) (*models.Post, error) {
	post, err := s.PostInfo(ctx, postID, userID)
	if err != nil {
		return nil, err
	}
	if post.Status == models.PostStatusPosted {
		return nil, invalid("post has already been published")
	}
	if file == nil {
		return nil, invalid("no file provided")
	}
	if file.Size > maxImageSize {
		return nil, invalid("image is larger than %d MB", maxImageSize>>20)
	}

	content, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("error opening file: %w", err)
	}
	defer content.Close()

	data, err := io.ReadAll(io.LimitReader(content, maxImageSize+1))
	if err != nil {
		return nil, fmt.Errorf("error reading file content: %w", err)
	}
	if len(data) > maxImageSize {
		return nil, invalid("image is larger than %d MB", maxImageSize>>20)
	}

	kind, err := filetype.Match(data)
	if err != nil || kind == types.Unknown {
		return nil, invalid("unsupported file type")
	}
	if _, ok := allowedImageTypes[kind.Extension]; !ok {
		return nil, invalid("file type %s is not allowed", kind.Extension)
	}

	id, err := gonanoid.New()
	if err != nil {
		return nil, err
	}
	key := fmt.Sprintf("posts/%d/%s.%s", post.ID, id, kind.Extension)

	url, err := s.storage.Upload(ctx, key, data, kind.MIME.Value)
	if err != nil {
		return nil, fmt.Errorf("error uploading image: %w", err)
	}

	if err := s.pr.UpdateContent(ctx, nil, post.ID, nil, &url); err != nil {
		return nil, fmt.Errorf("saving image failed: %w", err)
	}

	log.Info().Int64("post_id", post.ID).Str("key", key).Msg("post image uploaded")
	post.ImageURL = url
	return post, nil
}
