package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/maheshrc27/teampost/internal/models"
	"github.com/maheshrc27/teampost/internal/repository"
	"github.com/maheshrc27/teampost/internal/transfer"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog/log"
)

// AdminPolicy decides who may use the admin endpoints.
type AdminPolicy interface {
	IsAdmin(user *models.User) bool
}

type emailPolicy map[string]struct{}

// NewEmailPolicy grants admin rights to the given addresses, compared case-insensitively.
func NewEmailPolicy(emails []string) AdminPolicy {
	p := emailPolicy{}
	for _, e := range emails {
		if e = strings.ToLower(strings.TrimSpace(e)); e != "" {
			p[e] = struct{}{}
		}
	}
	return p
}

func (p emailPolicy) IsAdmin(user *models.User) bool {
	if user == nil {
		return false
	}
	_, ok := p[strings.ToLower(user.Email)]
	return ok
}

type AdminService interface {
	IsAdmin(ctx context.Context, userID int64) (bool, error)
	CreatePost(ctx context.Context, adminID int64, req *transfer.AdminPostCreation) (*models.ScheduleWithPost, error)
	CreateBulk(ctx context.Context, adminID int64, req *transfer.AdminBulkCreation) (*transfer.BulkGroup, error)
	SetApproval(ctx context.Context, postID int64, req *transfer.ApprovalUpdate) error
}

type adminService struct {
	tx     repository.Transactor
	ur     repository.UserRepository
	pr     repository.PostRepository
	sr     repository.ScheduleRepository
	policy AdminPolicy
	now    func() time.Time
}

func NewAdminService(
	tx repository.Transactor,
	ur repository.UserRepository,
	pr repository.PostRepository,
	sr repository.ScheduleRepository,
	policy AdminPolicy) AdminService {
	return &adminService{
		tx:     tx,
		ur:     ur,
		pr:     pr,
		sr:     sr,
		policy: policy,
		now:    time.Now,
	}
}

func (s *adminService) IsAdmin(ctx context.Context, userID int64) (bool, error) {
	user, isExist, err := s.ur.GetByID(ctx, userID)
	if err != nil {
		return false, err
	}
	return isExist && s.policy.IsAdmin(user), nil
}

func (s *adminService) CreatePost(ctx context.Context, adminID int64, req *transfer.AdminPostCreation) (*models.ScheduleWithPost, error) {
	if req == nil || req.UserID == 0 {
		return nil, invalid("userId is required")
	}
	if strings.TrimSpace(req.Content) == "" {
		return nil, invalid("content cannot be empty")
	}
	if req.ScheduledFor != nil && !req.ScheduledFor.After(s.now()) {
		return nil, invalid("scheduledFor must be in the future")
	}
	if err := s.targetExists(ctx, req.UserID); err != nil {
		return nil, err
	}

	post := &models.Post{
		UserID:         req.UserID,
		Content:        req.Content,
		WeekNumber:     req.WeekNumber,
		Status:         models.PostStatusDraft,
		OrganizationID: req.OrganizationID,
		AuthorAdminID:  adminID,
		BulkGroupID:    req.BulkGroupID,
	}
	result := &models.ScheduleWithPost{Post: post}

	err := s.tx.WithTx(ctx, func(tx *sql.Tx) error {
		id, err := s.pr.Create(ctx, tx, post)
		if err != nil {
			return err
		}
		post.ID = id

		if req.ScheduledFor == nil {
			return nil
		}

		schedule := models.Schedule{
			UserID:       req.UserID,
			PostID:       id,
			ScheduledFor: *req.ScheduledFor,
			Status:       models.ScheduleStatusPending,
		}
		scheduleID, created, err := s.sr.Upsert(ctx, tx, &schedule)
		if err != nil {
			return err
		}
		schedule.ID = scheduleID
		result.Schedule = schedule

		if created {
			if err := s.ur.IncrementSchedulesCreated(ctx, tx, req.UserID, 1); err != nil {
				return err
			}
		}
		post.Status = models.PostStatusScheduled
		return s.pr.UpdatePostStatus(ctx, tx, models.PostStatusScheduled, id)
	})
	if err != nil {
		return nil, fmt.Errorf("creating admin post failed: %w", err)
	}

	log.Info().Int64("admin_id", adminID).Int64("user_id", req.UserID).Int64("post_id", post.ID).Msg("admin post created")
	return result, nil
}

func (s *adminService) CreateBulk(ctx context.Context, adminID int64, req *transfer.AdminBulkCreation) (*transfer.BulkGroup, error) {
	if req == nil || req.UserID == 0 {
		return nil, invalid("userId is required")
	}
	if len(req.Variants) == 0 {
		return nil, invalid("variants must not be empty")
	}
	for i, v := range req.Variants {
		if strings.TrimSpace(v) == "" {
			return nil, invalid("variant %d is empty", i+1)
		}
	}
	if err := s.targetExists(ctx, req.UserID); err != nil {
		return nil, err
	}

	groupID, err := gonanoid.New()
	if err != nil {
		return nil, err
	}
	group := &transfer.BulkGroup{BulkGroupID: groupID, PostIDs: make([]int64, 0, len(req.Variants))}

	err = s.tx.WithTx(ctx, func(tx *sql.Tx) error {
		for _, v := range req.Variants {
			id, err := s.pr.Create(ctx, tx, &models.Post{
				UserID:         req.UserID,
				Content:        v,
				WeekNumber:     req.WeekNumber,
				Status:         models.PostStatusDraft,
				OrganizationID: req.OrganizationID,
				AuthorAdminID:  adminID,
				BulkGroupID:    groupID,
				ApprovalStatus: models.ApprovalPending,
			})
			if err != nil {
				return err
			}
			group.PostIDs = append(group.PostIDs, id)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("creating bulk group failed: %w", err)
	}

	return group, nil
}

func (s *adminService) SetApproval(ctx context.Context, postID int64, req *transfer.ApprovalUpdate) error {
	if req == nil {
		return invalid("status is required")
	}
	status := strings.ToUpper(strings.TrimSpace(req.Status))
	if status != models.ApprovalApproved && status != models.ApprovalRejected {
		return invalid("status must be APPROVED or REJECTED")
	}

	post, err := s.pr.GetByID(ctx, postID)
	if err != nil {
		return err
	}
	if post == nil {
		return fmt.Errorf("post %d: %w", postID, ErrNotFound)
	}

	return s.pr.SetApprovalStatus(ctx, postID, status)
}

func (s *adminService) targetExists(ctx context.Context, userID int64) error {
	_, isExist, err := s.ur.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if !isExist {
		return fmt.Errorf("user %d: %w", userID, ErrNotFound)
	}
	return nil
}
