package queue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/hibiken/asynq"
	"github.com/maheshrc27/teampost/internal/metrics"
	"github.com/maheshrc27/teampost/internal/transfer"
	"github.com/rs/zerolog/log"
)

func (w *Worker) HandleSlackNotifyTask(ctx context.Context, task *asynq.Task) error {
	var payload SlackNotifyPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode slack payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.WebhookURL == "" {
		return nil
	}

	err := w.PostSlack(ctx, payload.WebhookURL, payload.Text)
	metrics.ObserveSlack(err)
	return err
}

// PostSlack delivers one message to an incoming webhook.
func (w *Worker) PostSlack(ctx context.Context, webhookURL, text string) error {
	body, err := json.Marshal(transfer.SlackMessage{Text: text})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		log.Warn().Err(err).Msg("slack webhook request")
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("slack webhook returned %d", resp.StatusCode)
	}
	return nil
}
