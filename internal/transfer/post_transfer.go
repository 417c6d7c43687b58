package transfer

import "time"

type PostCreation struct {
	Content    string `json:"content"`
	WeekNumber int    `json:"weekNumber"`
}

type AdminPostCreation struct {
	UserID         int64      `json:"userId"`
	Content        string     `json:"content"`
	WeekNumber     int        `json:"weekNumber"`
	OrganizationID int64      `json:"organizationId"`
	BulkGroupID    string     `json:"bulkGroupId"`
	ScheduledFor   *time.Time `json:"scheduledFor"`
}

// AdminBulkCreation creates one draft per variant, all sharing a new bulk group id.
type AdminBulkCreation struct {
	UserID         int64    `json:"userId"`
	OrganizationID int64    `json:"organizationId"`
	WeekNumber     int      `json:"weekNumber"`
	Variants       []string `json:"variants"`
}

type BulkGroup struct {
	BulkGroupID string  `json:"bulkGroupId"`
	PostIDs     []int64 `json:"postIds"`
}

type ApprovalUpdate struct {
	Status string `json:"status"`
}
