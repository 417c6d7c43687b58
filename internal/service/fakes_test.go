package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/maheshrc27/teampost/internal/models"
	"github.com/maheshrc27/teampost/internal/repository"
	"github.com/maheshrc27/teampost/internal/transfer"
)

var errStoreDown = errors.New("store unavailable")

type fakeTx struct{}

func (fakeTx) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	return fn(nil)
}

// memStore backs the fake repositories with plain maps.
type memStore struct {
	mu        sync.Mutex
	users     map[int64]*models.User
	posts     map[int64]*models.Post
	schedules map[int64]*models.Schedule
	lastID    int64

	claimErr  error
	recordErr error

	// beforeUpdate runs under the store lock ahead of UpdatePending.
	beforeUpdate func()
}

func newMemStore() *memStore {
	return &memStore{
		users:     map[int64]*models.User{},
		posts:     map[int64]*models.Post{},
		schedules: map[int64]*models.Schedule{},
	}
}

func (m *memStore) id() int64 {
	m.lastID++
	return m.lastID
}

func (m *memStore) addUser(u models.User) *models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID == 0 {
		u.ID = m.id()
	}
	m.users[u.ID] = &u
	return &u
}

func (m *memStore) addPost(p models.Post) *models.Post {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == 0 {
		p.ID = m.id()
	}
	if p.Status == "" {
		p.Status = models.PostStatusDraft
	}
	m.posts[p.ID] = &p
	return &p
}

func (m *memStore) addSchedule(s models.Schedule) *models.Schedule {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.ID == 0 {
		s.ID = m.id()
	}
	if s.Status == "" {
		s.Status = models.ScheduleStatusPending
	}
	m.schedules[s.ID] = &s
	return &s
}

func (m *memStore) post(id int64) models.Post {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.posts[id]
}

func (m *memStore) schedule(id int64) models.Schedule {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.schedules[id]
}

func (m *memStore) user(id int64) models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.users[id]
}

func (m *memStore) scheduleCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.schedules)
}

type fakeScheduleRepo struct{ m *memStore }

func (r fakeScheduleRepo) GetByID(ctx context.Context, id int64) (*models.Schedule, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	s, ok := r.m.schedules[id]
	if !ok {
		return nil, nil
	}
	c := *s
	return &c, nil
}

func (r fakeScheduleRepo) ListByUserID(ctx context.Context, userID int64) ([]*models.Schedule, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*models.Schedule
	for _, s := range r.m.schedules {
		if s.UserID == userID {
			c := *s
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledFor.Before(out[j].ScheduledFor) })
	return out, nil
}

func (r fakeScheduleRepo) ListPendingTimes(ctx context.Context, userID, excludePostID int64) ([]time.Time, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []time.Time
	for _, s := range r.m.schedules {
		if s.UserID == userID && s.Status == models.ScheduleStatusPending && s.PostID != excludePostID {
			out = append(out, s.ScheduledFor)
		}
	}
	return out, nil
}

func (r fakeScheduleRepo) GetByPostIDs(ctx context.Context, postIDs []int64) ([]*models.Schedule, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	ids := map[int64]bool{}
	for _, id := range postIDs {
		ids[id] = true
	}
	var out []*models.Schedule
	for _, s := range r.m.schedules {
		if ids[s.PostID] {
			c := *s
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r fakeScheduleRepo) Upsert(ctx context.Context, tx *sql.Tx, s *models.Schedule) (int64, bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, existing := range r.m.schedules {
		if existing.PostID == s.PostID {
			if existing.Status == models.ScheduleStatusProcessing {
				return 0, false, repository.ErrScheduleInFlight
			}
			existing.ScheduledFor = s.ScheduledFor
			existing.Status = models.ScheduleStatusPending
			existing.Error = ""
			existing.PostedAt = nil
			existing.LeaseOwner = ""
			existing.LeaseExpiresAt = nil
			return existing.ID, false, nil
		}
	}
	c := *s
	c.ID = r.m.id()
	c.Status = models.ScheduleStatusPending
	r.m.schedules[c.ID] = &c
	return c.ID, true, nil
}

func (r fakeScheduleRepo) UpdatePending(ctx context.Context, tx *sql.Tx, id int64, scheduledFor *time.Time) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.beforeUpdate != nil {
		r.m.beforeUpdate()
	}
	s, ok := r.m.schedules[id]
	if !ok || s.Status != models.ScheduleStatusPending {
		return false, nil
	}
	if scheduledFor != nil {
		s.ScheduledFor = *scheduledFor
	}
	return true, nil
}

func (r fakeScheduleRepo) Remove(ctx context.Context, tx *sql.Tx, id int64) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	delete(r.m.schedules, id)
	return nil
}

func (r fakeScheduleRepo) RemovePendingByUserID(ctx context.Context, tx *sql.Tx, userID int64) ([]int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var postIDs []int64
	for id, s := range r.m.schedules {
		if s.UserID == userID && s.Status == models.ScheduleStatusPending {
			postIDs = append(postIDs, s.PostID)
			delete(r.m.schedules, id)
		}
	}
	return postIDs, nil
}

func (r fakeScheduleRepo) ClaimDue(ctx context.Context, now time.Time, limit int, lease time.Duration, owner string) ([]*models.DueSchedule, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.claimErr != nil {
		return nil, r.m.claimErr
	}

	var due []*models.Schedule
	for _, s := range r.m.schedules {
		pending := s.Status == models.ScheduleStatusPending && !s.ScheduledFor.After(now)
		stale := s.Status == models.ScheduleStatusProcessing && s.LeaseExpiresAt != nil && s.LeaseExpiresAt.Before(now)
		if pending || stale {
			due = append(due, s)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].ScheduledFor.Equal(due[j].ScheduledFor) {
			return due[i].ID < due[j].ID
		}
		return due[i].ScheduledFor.Before(due[j].ScheduledFor)
	})
	if len(due) > limit {
		due = due[:limit]
	}

	out := []*models.DueSchedule{}
	expires := now.Add(lease)
	for _, s := range due {
		s.Status = models.ScheduleStatusProcessing
		s.LeaseOwner = owner
		s.LeaseExpiresAt = &expires

		u := r.m.users[s.UserID]
		out = append(out, &models.DueSchedule{
			Schedule: *s,
			Post:     *r.m.posts[s.PostID],
			User: models.PublishingCredentials{
				UserID:          u.ID,
				AccessToken:     u.LinkedinAccessToken,
				TokenExpiry:     u.LinkedinTokenExpiry,
				LinkedinUserID:  u.LinkedinUserID,
				SlackWebhookURL: u.SlackWebhookURL,
			},
		})
	}
	return out, nil
}

func (r fakeScheduleRepo) MarkCompleted(ctx context.Context, tx *sql.Tx, id int64, owner string, postedAt time.Time) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.recordErr != nil {
		return false, r.m.recordErr
	}
	s, ok := r.m.schedules[id]
	if !ok || s.LeaseOwner != owner || s.Status != models.ScheduleStatusProcessing {
		return false, nil
	}
	s.Status = models.ScheduleStatusCompleted
	s.PostedAt = &postedAt
	s.Error = ""
	s.LeaseOwner = ""
	s.LeaseExpiresAt = nil
	return true, nil
}

func (r fakeScheduleRepo) MarkFailed(ctx context.Context, tx *sql.Tx, id int64, owner string, message string, at time.Time) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.recordErr != nil {
		return false, r.m.recordErr
	}
	s, ok := r.m.schedules[id]
	if !ok || s.LeaseOwner != owner || s.Status != models.ScheduleStatusProcessing {
		return false, nil
	}
	s.Status = models.ScheduleStatusFailed
	s.Error = message
	s.LeaseOwner = ""
	s.LeaseExpiresAt = nil
	return true, nil
}

type fakePostRepo struct{ m *memStore }

func (r fakePostRepo) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	p, ok := r.m.posts[id]
	if !ok {
		return nil, nil
	}
	c := *p
	return &c, nil
}

func (r fakePostRepo) GetByIDs(ctx context.Context, ids []int64) ([]*models.Post, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*models.Post
	for _, id := range ids {
		if p, ok := r.m.posts[id]; ok {
			c := *p
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r fakePostRepo) Create(ctx context.Context, tx *sql.Tx, post *models.Post) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	c := *post
	c.ID = r.m.id()
	r.m.posts[c.ID] = &c
	return c.ID, nil
}

func (r fakePostRepo) GetByUserID(ctx context.Context, userID int64) ([]*models.Post, error) {
	return r.filter(func(p *models.Post) bool { return p.UserID == userID }), nil
}

func (r fakePostRepo) ListDraftsByUserID(ctx context.Context, userID int64) ([]*models.Post, error) {
	out := r.filter(func(p *models.Post) bool {
		return p.UserID == userID && p.Status == models.PostStatusDraft
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].WeekNumber == out[j].WeekNumber {
			return out[i].ID < out[j].ID
		}
		return out[i].WeekNumber < out[j].WeekNumber
	})
	return out, nil
}

func (r fakePostRepo) filter(keep func(p *models.Post) bool) []*models.Post {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*models.Post
	for _, p := range r.m.posts {
		if keep(p) {
			c := *p
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r fakePostRepo) UpdatePostStatus(ctx context.Context, tx *sql.Tx, status string, postID int64) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if p, ok := r.m.posts[postID]; ok {
		p.Status = status
	}
	return nil
}

func (r fakePostRepo) UpdateStatuses(ctx context.Context, tx *sql.Tx, status string, postIDs []int64) error {
	for _, id := range postIDs {
		if err := r.UpdatePostStatus(ctx, tx, status, id); err != nil {
			return err
		}
	}
	return nil
}

func (r fakePostRepo) MarkPosted(ctx context.Context, tx *sql.Tx, postID int64, linkedinPostID string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if p, ok := r.m.posts[postID]; ok {
		p.Status = models.PostStatusPosted
		p.LinkedinPostID = linkedinPostID
	}
	return nil
}

func (r fakePostRepo) UpdateContent(ctx context.Context, tx *sql.Tx, postID int64, content, imageURL *string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	p, ok := r.m.posts[postID]
	if !ok {
		return nil
	}
	if content != nil {
		p.Content = *content
	}
	if imageURL != nil {
		p.ImageURL = *imageURL
	}
	return nil
}

func (r fakePostRepo) SetApprovalStatus(ctx context.Context, postID int64, status string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if p, ok := r.m.posts[postID]; ok {
		p.ApprovalStatus = status
	}
	return nil
}

func (r fakePostRepo) Remove(ctx context.Context, id int64) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	delete(r.m.posts, id)
	for sid, s := range r.m.schedules {
		if s.PostID == id {
			delete(r.m.schedules, sid)
		}
	}
	return nil
}

type fakeUserRepo struct{ m *memStore }

func (r fakeUserRepo) GetByID(ctx context.Context, id int64) (*models.User, bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	u, ok := r.m.users[id]
	if !ok {
		return nil, false, nil
	}
	c := *u
	return &c, true, nil
}

func (r fakeUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, u := range r.m.users {
		if strings.EqualFold(u.Email, email) {
			c := *u
			return &c, true, nil
		}
	}
	return nil, false, nil
}

func (r fakeUserRepo) Create(ctx context.Context, tx *sql.Tx, user *models.User) (int64, error) {
	return r.m.addUser(*user).ID, nil
}

func (r fakeUserRepo) Update(ctx context.Context, user *models.User) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	c := *user
	r.m.users[user.ID] = &c
	return nil
}

func (r fakeUserRepo) IncrementSchedulesCreated(ctx context.Context, tx *sql.Tx, userID int64, n int) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if u, ok := r.m.users[userID]; ok {
		u.SchedulesCreated += n
	}
	return nil
}

func (r fakeUserRepo) SetLinkedinCredentials(ctx context.Context, tx *sql.Tx, user *models.User) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	u, ok := r.m.users[user.ID]
	if !ok {
		return nil
	}
	u.LinkedinAccessToken = user.LinkedinAccessToken
	if user.LinkedinRefreshToken != "" {
		u.LinkedinRefreshToken = user.LinkedinRefreshToken
	}
	u.LinkedinTokenExpiry = user.LinkedinTokenExpiry
	if user.LinkedinUserID != "" {
		u.LinkedinUserID = user.LinkedinUserID
	}
	return nil
}

func (r fakeUserRepo) ClearLinkedinCredentials(ctx context.Context, tx *sql.Tx, userID int64) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if u, ok := r.m.users[userID]; ok {
		u.LinkedinAccessToken = ""
		u.LinkedinRefreshToken = ""
		u.LinkedinTokenExpiry = nil
		u.LinkedinUserID = ""
	}
	return nil
}

func (r fakeUserRepo) ListExpiringLinkedinTokens(ctx context.Context, before time.Time) ([]*models.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*models.User
	for _, u := range r.m.users {
		if u.LinkedinRefreshToken != "" && u.LinkedinTokenExpiry != nil && u.LinkedinTokenExpiry.Before(before) {
			c := *u
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r fakeUserRepo) SetSlackWebhook(ctx context.Context, userID int64, webhookURL string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if u, ok := r.m.users[userID]; ok {
		u.SlackWebhookURL = webhookURL
	}
	return nil
}

func (r fakeUserRepo) Remove(ctx context.Context, userID int64) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	delete(r.m.users, userID)
	return nil
}

type fakeSubscriptions struct {
	active map[int64]bool
	err    error
}

func (f fakeSubscriptions) HasActiveSubscription(ctx context.Context, userID int64) (bool, error) {
	return f.active[userID], f.err
}

type publishCall struct {
	AccessToken    string
	LinkedinUserID string
	Content        string
}

// fakePublisher answers from results by content, success with "urn:<content>" otherwise.
type fakePublisher struct {
	mu      sync.Mutex
	calls   []publishCall
	results map[string]transfer.PublishResult
	hook    func()
}

func (f *fakePublisher) Publish(ctx context.Context, accessToken, linkedinUserID, content string) transfer.PublishResult {
	f.mu.Lock()
	f.calls = append(f.calls, publishCall{accessToken, linkedinUserID, content})
	hook := f.hook
	f.mu.Unlock()

	if hook != nil {
		hook()
	}
	if r, ok := f.results[content]; ok {
		return r
	}
	return transfer.PublishResult{Success: true, PostID: "urn:" + content}
}

type slackCall struct {
	WebhookURL string
	Text       string
}

type fakeNotifier struct {
	calls []slackCall
	err   error
}

func (f *fakeNotifier) NotifySlack(ctx context.Context, webhookURL, text string) error {
	f.calls = append(f.calls, slackCall{webhookURL, text})
	return f.err
}
