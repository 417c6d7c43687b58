package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/teampost/internal/models"
	"github.com/maheshrc27/teampost/internal/service"
	"github.com/maheshrc27/teampost/internal/transfer"
)

// stubSchedules answers every call with err, or with a schedule owned by the caller.
type stubSchedules struct {
	err    error
	userID int64
}

func (s *stubSchedules) Next(ctx context.Context, userID int64, req *transfer.ScheduleNext) (*models.Schedule, error) {
	s.userID = userID
	if s.err != nil {
		return nil, s.err
	}
	return &models.Schedule{ID: 7, UserID: userID, PostID: req.PostID, Status: models.ScheduleStatusPending}, nil
}

func (s *stubSchedules) Bulk(ctx context.Context, userID int64, req *transfer.BulkSchedule) ([]*models.Schedule, error) {
	return nil, s.err
}

func (s *stubSchedules) CreateRecurring(ctx context.Context, userID int64, req *transfer.RecurringSchedule) ([]*models.Schedule, error) {
	return nil, s.err
}

func (s *stubSchedules) List(ctx context.Context, userID int64) ([]*models.ScheduleWithPost, error) {
	return []*models.ScheduleWithPost{}, s.err
}

func (s *stubSchedules) Get(ctx context.Context, userID, scheduleID int64) (*models.ScheduleWithPost, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &models.ScheduleWithPost{Schedule: models.Schedule{ID: scheduleID}}, nil
}

func (s *stubSchedules) Update(ctx context.Context, userID, scheduleID int64, req *transfer.ScheduleUpdate) (*models.ScheduleWithPost, error) {
	return nil, s.err
}

func (s *stubSchedules) Delete(ctx context.Context, userID, scheduleID int64) error {
	return s.err
}

func scheduleApp(svc service.ScheduleService) *fiber.App {
	h := NewScheduleHandler(svc)
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user_id", "42")
		return c.Next()
	})
	app.Post("/schedule/next", h.Next)
	app.Get("/schedule/:id", h.Get)
	app.Delete("/schedule/:id", h.Delete)
	return app
}

func do(t *testing.T, app *fiber.App, method, path, body string) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	out := map[string]any{}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil && err != io.EOF {
		t.Fatalf("decode response: %v", err)
	}
	return resp.StatusCode, out
}

func TestScheduleNextCreated(t *testing.T) {
	svc := &stubSchedules{}
	status, body := do(t, scheduleApp(svc), http.MethodPost, "/schedule/next", `{"postId":3}`)

	if status != fiber.StatusCreated {
		t.Fatalf("status = %d, want 201", status)
	}
	if svc.userID != 42 {
		t.Fatalf("user id = %d, want 42", svc.userID)
	}
	schedule, ok := body["schedule"].(map[string]any)
	if !ok || schedule["postId"] != float64(3) {
		t.Fatalf("body = %v", body)
	}
}

func TestScheduleErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"quota", &service.QuotaExceededError{Count: 10, Limit: 10}, fiber.StatusPaymentRequired},
		{"not found", fmt.Errorf("post 3: %w", service.ErrNotFound), fiber.StatusNotFound},
		{"validation", &service.ValidationError{Message: "scheduledFor must be in the future"}, fiber.StatusBadRequest},
		{"internal", errors.New("db down"), fiber.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := do(t, scheduleApp(&stubSchedules{err: tt.err}), http.MethodPost, "/schedule/next", `{"postId":3}`)
			if status != tt.want {
				t.Fatalf("status = %d, want %d", status, tt.want)
			}
			if _, ok := body["error"]; !ok {
				t.Fatalf("body has no error: %v", body)
			}
		})
	}
}

func TestQuotaBody(t *testing.T) {
	err := &service.QuotaExceededError{Count: 10, Limit: 10}
	_, body := do(t, scheduleApp(&stubSchedules{err: err}), http.MethodPost, "/schedule/next", `{"postId":3}`)

	if body["error"] != "Subscription required" || body["code"] != "SUBSCRIPTION_REQUIRED" {
		t.Fatalf("body = %v", body)
	}
	if body["currentCount"] != float64(10) || body["limit"] != float64(10) {
		t.Fatalf("body = %v", body)
	}
}

func TestValidationMessageIsReturned(t *testing.T) {
	err := &service.ValidationError{Message: "postId is required"}
	_, body := do(t, scheduleApp(&stubSchedules{err: err}), http.MethodPost, "/schedule/next", `{}`)

	if body["error"] != "postId is required" {
		t.Fatalf("error = %v", body["error"])
	}
}

func TestScheduleBadInput(t *testing.T) {
	app := scheduleApp(&stubSchedules{})

	if status, _ := do(t, app, http.MethodPost, "/schedule/next", `{"postId":`); status != fiber.StatusBadRequest {
		t.Fatalf("malformed json status = %d, want 400", status)
	}
	if status, _ := do(t, app, http.MethodGet, "/schedule/abc", ""); status != fiber.StatusBadRequest {
		t.Fatalf("bad id status = %d, want 400", status)
	}
	if status, _ := do(t, app, http.MethodDelete, "/schedule/0", ""); status != fiber.StatusBadRequest {
		t.Fatalf("zero id status = %d, want 400", status)
	}
	if status, body := do(t, app, http.MethodDelete, "/schedule/5", ""); status != fiber.StatusOK || body["message"] != "Schedule deleted" {
		t.Fatalf("delete = %d %v", status, body)
	}
}

type stubRunner struct {
	result *transfer.BatchResult
	err    error
}

func (r stubRunner) Run(ctx context.Context) (*transfer.BatchResult, error) {
	return r.result, r.err
}

func cronApp(r BatchRunner) *fiber.App {
	app := fiber.New()
	app.Get("/api/cron/post-scheduler", NewCronHandler(r).PostScheduler)
	return app
}

func TestPostSchedulerNothingToDo(t *testing.T) {
	app := cronApp(stubRunner{result: &transfer.BatchResult{Message: "No posts to process", Errors: []string{}}})

	status, body := do(t, app, http.MethodGet, "/api/cron/post-scheduler", "")
	if status != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	if body["message"] != "No posts to process" || body["processed"] != float64(0) {
		t.Fatalf("body = %v", body)
	}
	if _, ok := body["errors"]; ok {
		t.Fatalf("empty run should not report errors: %v", body)
	}
}

func TestPostSchedulerReportsBatch(t *testing.T) {
	app := cronApp(stubRunner{result: &transfer.BatchResult{
		Message:   "Processed 2 posts",
		Processed: 2,
		Success:   1,
		Failed:    1,
		Errors:    []string{"Schedule 9: LinkedIn not connected"},
	}})

	status, body := do(t, app, http.MethodGet, "/api/cron/post-scheduler", "")
	if status != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	if body["processed"] != float64(2) || body["success"] != float64(1) || body["failed"] != float64(1) {
		t.Fatalf("body = %v", body)
	}
	errs, ok := body["errors"].([]any)
	if !ok || len(errs) != 1 || errs[0] != "Schedule 9: LinkedIn not connected" {
		t.Fatalf("errors = %v", body["errors"])
	}
}

func TestPostSchedulerFailure(t *testing.T) {
	app := cronApp(stubRunner{err: errors.New("claiming due schedules failed: db down")})

	status, body := do(t, app, http.MethodGet, "/api/cron/post-scheduler", "")
	if status != fiber.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", status)
	}
	if body["error"] != "claiming due schedules failed: db down" {
		t.Fatalf("body = %v", body)
	}
}
