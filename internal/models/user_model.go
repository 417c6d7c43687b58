package models

import "time"

type User struct {
	ID                   int64      `db:"id" json:"id"`
	GoogleID             string     `db:"google_id" json:"-"`
	Email                string     `db:"email" json:"email"`
	Name                 string     `db:"name" json:"name"`
	ProfilePicture       string     `db:"profile_picture" json:"profilePicture"`
	LinkedinAccessToken  string     `db:"linkedin_access_token" json:"-"`
	LinkedinRefreshToken string     `db:"linkedin_refresh_token" json:"-"`
	LinkedinTokenExpiry  *time.Time `db:"linkedin_token_expiry" json:"-"`
	LinkedinUserID       string     `db:"linkedin_user_id" json:"-"`
	SlackWebhookURL      string     `db:"slack_webhook_url" json:"-"`
	SchedulesCreated     int        `db:"schedules_created" json:"schedulesCreated"`
	CreatedAt            time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt            time.Time  `db:"updated_at" json:"updatedAt"`
}

func (u *User) LinkedinConnected() bool {
	return u.LinkedinAccessToken != "" && u.LinkedinUserID != ""
}
