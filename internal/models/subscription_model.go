package models

import (
	"time"
)

type Subscription struct {
	ID                  int64     `db:"id" json:"id"`
	UserID              int64     `db:"user_id" json:"userId"`
	SubscriptionID      string    `db:"subscription_id" json:"subscriptionId"`
	SubscriptionEndDate time.Time `db:"subscription_end_date" json:"subscriptionEndDate"`
	Status              string    `db:"status" json:"status"`
	CreatedAt           time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt           time.Time `db:"updated_at" json:"updatedAt"`
}

// Active reports whether the subscription grants paid features at the given time.
func (s *Subscription) Active(now time.Time) bool {
	if s.Status != "active" && s.Status != "trialing" {
		return false
	}
	return s.SubscriptionEndDate.After(now)
}
