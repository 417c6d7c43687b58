package models

import "time"

type Schedule struct {
	ID             int64      `db:"id" json:"id"`
	UserID         int64      `db:"user_id" json:"userId"`
	PostID         int64      `db:"post_id" json:"postId"`
	ScheduledFor   time.Time  `db:"scheduled_for" json:"scheduledFor"`
	Status         string     `db:"status" json:"status"` // PENDING, PROCESSING, COMPLETED, FAILED
	Error          string     `db:"error" json:"error,omitempty"`
	PostedAt       *time.Time `db:"posted_at" json:"postedAt,omitempty"`
	LeaseOwner     string     `db:"lease_owner" json:"-"`
	LeaseExpiresAt *time.Time `db:"lease_expires_at" json:"-"`
	CreatedAt      time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updatedAt"`
}

// ScheduleWithPost is what the user-facing API returns.
type ScheduleWithPost struct {
	Schedule
	Post *Post `json:"post"`
}

// DueSchedule is a claimed schedule joined with everything needed to publish it.
type DueSchedule struct {
	Schedule Schedule
	Post     Post
	User     PublishingCredentials
}

// PublishingCredentials is the subset of a user consulted before publishing.
// Tokens are still encrypted here.
type PublishingCredentials struct {
	UserID          int64
	AccessToken     string
	TokenExpiry     *time.Time
	LinkedinUserID  string
	SlackWebhookURL string
}

const (
	ScheduleStatusPending    = "PENDING"
	ScheduleStatusProcessing = "PROCESSING"
	ScheduleStatusCompleted  = "COMPLETED"
	ScheduleStatusFailed     = "FAILED"
)
