package queue

import (
	"context"
	"encoding/json"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"
)

// Notifier enqueues Slack messages for the worker to deliver.
type Notifier struct {
	client *asynq.Client
}

func NewNotifier(client *asynq.Client) *Notifier {
	return &Notifier{client: client}
}

func (n *Notifier) NotifySlack(ctx context.Context, webhookURL, text string) error {
	return EnqueueSlack(ctx, n.client, SlackNotifyPayload{WebhookURL: webhookURL, Text: text})
}

func EnqueueSlack(ctx context.Context, asynqClient *asynq.Client, payload SlackNotifyPayload) error {
	taskPayload, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	task := asynq.NewTask(TaskTypeSlackNotify, taskPayload, asynq.MaxRetry(3))

	info, err := asynqClient.EnqueueContext(ctx, task)
	if err != nil {
		log.Error().Err(err).Msg("enqueue slack notification")
		return err
	}

	log.Debug().Str("task_id", info.ID).Msg("slack notification enqueued")
	return nil
}
