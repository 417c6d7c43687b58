package job

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/maheshrc27/teampost/internal/lock"
	"github.com/maheshrc27/teampost/internal/transfer"
)

type countingScheduler struct {
	calls  int
	result *transfer.BatchResult
	err    error
}

func (s *countingScheduler) ProcessDue(ctx context.Context) (*transfer.BatchResult, error) {
	s.calls++
	return s.result, s.err
}

// fakeLocker fails with err, or runs fn while recording the key.
type fakeLocker struct {
	err  error
	keys []string
}

func (l *fakeLocker) WithLock(ctx context.Context, key string, ttl time.Duration, fn func(ctx context.Context) error) error {
	l.keys = append(l.keys, key)
	if l.err != nil {
		return l.err
	}
	return fn(ctx)
}

func TestRunHoldsLock(t *testing.T) {
	s := &countingScheduler{result: &transfer.BatchResult{Message: "Processed 1 posts", Processed: 1}}
	l := &fakeLocker{}

	result, err := NewPublishJob(s, l, time.Minute).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Processed != 1 || s.calls != 1 {
		t.Fatalf("result = %+v, calls = %d", result, s.calls)
	}
	if len(l.keys) != 1 || l.keys[0] != publishLockKey {
		t.Fatalf("lock keys = %v", l.keys)
	}
}

func TestRunSkipsWhenBusy(t *testing.T) {
	s := &countingScheduler{}

	result, err := NewPublishJob(s, &fakeLocker{err: lock.ErrBusy}, time.Minute).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if s.calls != 0 {
		t.Fatalf("scheduler ran %d times while locked", s.calls)
	}
	if result.Message != "Scheduler already running" || result.Processed != 0 {
		t.Fatalf("result = %+v", result)
	}
}

func TestRunWithoutLockStore(t *testing.T) {
	s := &countingScheduler{result: &transfer.BatchResult{Message: "No posts to process"}}

	result, err := NewPublishJob(s, &fakeLocker{err: errors.New("redis: connection refused")}, time.Minute).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if s.calls != 1 || result.Message != "No posts to process" {
		t.Fatalf("calls = %d, result = %+v", s.calls, result)
	}

	s = &countingScheduler{result: &transfer.BatchResult{}}
	if _, err := NewPublishJob(s, nil, time.Minute).Run(context.Background()); err != nil || s.calls != 1 {
		t.Fatalf("nil locker: calls = %d, err = %v", s.calls, err)
	}
}

func TestRunReturnsBatchError(t *testing.T) {
	cause := errors.New("claiming due schedules failed")
	s := &countingScheduler{err: cause}

	_, err := NewPublishJob(s, &fakeLocker{}, time.Minute).Run(context.Background())
	if !errors.Is(err, cause) {
		t.Fatalf("error = %v, want %v", err, cause)
	}
	if s.calls != 1 {
		t.Fatalf("scheduler ran %d times, want 1", s.calls)
	}
}
