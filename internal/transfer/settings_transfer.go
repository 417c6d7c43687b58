package transfer

import "time"

type SlackSettings struct {
	WebhookURL string `json:"webhookUrl"`
}

type SettingsInfo struct {
	LinkedinConnected bool `json:"linkedinConnected"`
	SlackConfigured   bool `json:"slackConfigured"`
	SchedulesCreated  int  `json:"schedulesCreated"`
	FreeScheduleLimit int  `json:"freeScheduleLimit"`
	Subscribed        bool `json:"subscribed"`
}

type LinkedinStatus struct {
	Connected bool       `json:"connected"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

type SlackMessage struct {
	Text string `json:"text"`
}
