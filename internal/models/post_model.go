package models

import "time"

type Post struct {
	ID             int64     `db:"id" json:"id"`
	UserID         int64     `db:"user_id" json:"userId"`
	Content        string    `db:"content" json:"content"`
	ImageURL       string    `db:"image_url" json:"imageUrl,omitempty"`
	WeekNumber     int       `db:"week_number" json:"weekNumber"`
	Status         string    `db:"status" json:"status"` // DRAFT, SCHEDULED, POSTED, FAILED
	LinkedinPostID string    `db:"linkedin_post_id" json:"linkedinPostId,omitempty"`
	Likes          int       `db:"likes" json:"likes"`
	Comments       int       `db:"comments" json:"comments"`
	Shares         int       `db:"shares" json:"shares"`
	OrganizationID int64     `db:"organization_id" json:"organizationId,omitempty"`
	AuthorAdminID  int64     `db:"author_admin_id" json:"authorAdminId,omitempty"`
	BulkGroupID    string    `db:"bulk_group_id" json:"bulkGroupId,omitempty"`
	ApprovalStatus string    `db:"approval_status" json:"approvalStatus,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time `db:"updated_at" json:"updatedAt"`
}

const (
	PostStatusDraft     = "DRAFT"
	PostStatusScheduled = "SCHEDULED"
	PostStatusPosted    = "POSTED"
	PostStatusFailed    = "FAILED"
)

const (
	ApprovalPending  = "PENDING"
	ApprovalApproved = "APPROVED"
	ApprovalRejected = "REJECTED"
)
