package queue

import (
	"net/http"
	"time"
)

type Worker struct {
	client *http.Client
}

func NewWorker(client *http.Client) *Worker {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Worker{client: client}
}

const TaskTypeSlackNotify = "notify:slack"

type SlackNotifyPayload struct {
	WebhookURL string `json:"webhook_url"`
	Text       string `json:"text"`
}
