package transfer

import "time"

type ScheduleNext struct {
	PostID       int64      `json:"postId"`
	ScheduledFor *time.Time `json:"scheduledFor"`
}

type BulkScheduleItem struct {
	PostID       int64     `json:"postId"`
	ScheduledFor time.Time `json:"scheduledFor"`
}

type BulkSchedule struct {
	Schedules []BulkScheduleItem `json:"schedules"`
}

// RecurringSchedule spreads a user's drafts over consecutive weeks.
// DayOfWeek is an English weekday name, Time is "15:04" and StartDate "2006-01-02".
type RecurringSchedule struct {
	DayOfWeek string `json:"dayOfWeek"`
	Time      string `json:"time"`
	StartDate string `json:"startDate"`
}

type ScheduleUpdate struct {
	ScheduledFor *time.Time `json:"scheduledFor"`
	Content      *string    `json:"content"`
	ImageURL     *string    `json:"imageUrl"`
}

// BatchResult is what one run of the scheduling processor reports back to the cron caller.
type BatchResult struct {
	Message   string   `json:"message"`
	Processed int      `json:"processed"`
	Success   int      `json:"success"`
	Failed    int      `json:"failed"`
	Errors    []string `json:"errors"`
}
