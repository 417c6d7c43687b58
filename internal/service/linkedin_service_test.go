package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	config "github.com/maheshrc27/teampost/configs"
	"github.com/maheshrc27/teampost/internal/models"
	"github.com/maheshrc27/teampost/internal/transfer"
	"github.com/maheshrc27/teampost/pkg/utils"
	"golang.org/x/oauth2"
)

func newTestLinkedin(t *testing.T, handler http.HandlerFunc) (*linkedinService, *memStore, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := config.Config{SecretKey: testSecret}
	cfg.Linkedin.APIBaseURL = srv.URL
	cfg.Linkedin.ClientID = "client"
	cfg.Linkedin.ClientSecret = "secret"

	store := newMemStore()
	svc := NewLinkedinService(cfg, fakeUserRepo{store}, srv.Client()).(*linkedinService)
	svc.oauth.Endpoint = oauth2.Endpoint{
		AuthURL:   srv.URL + "/oauth/v2/authorization",
		TokenURL:  srv.URL + "/oauth/v2/accessToken",
		AuthStyle: oauth2.AuthStyleInParams,
	}
	return svc, store, srv
}

func TestPublishUsesRestliHeader(t *testing.T) {
	var got transfer.LinkedinUGCPost
	svc, _, _ := newTestLinkedin(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v2/ugcPosts" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if h := r.Header.Get("Authorization"); h != "Bearer token-abc" {
			t.Errorf("Authorization = %q", h)
		}
		if h := r.Header.Get("X-Restli-Protocol-Version"); h != "2.0.0" {
			t.Errorf("X-Restli-Protocol-Version = %q", h)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Header().Set("X-RestLi-Id", "urn:li:share:123")
		w.WriteHeader(http.StatusCreated)
	})

	res := svc.Publish(context.Background(), "token-abc", "li-1", "hello world")
	if !res.Success || res.PostID != "urn:li:share:123" {
		t.Fatalf("result = %+v", res)
	}
	if got.Author != "urn:li:person:li-1" || got.LifecycleState != "PUBLISHED" {
		t.Fatalf("payload = %+v", got)
	}
	if got.SpecificContent.ShareContent.ShareCommentary.Text != "hello world" {
		t.Fatalf("commentary = %q", got.SpecificContent.ShareContent.ShareCommentary.Text)
	}
	if got.SpecificContent.ShareContent.ShareMediaCategory != "NONE" || got.Visibility.MemberNetworkVisibility != "PUBLIC" {
		t.Fatalf("payload = %+v", got)
	}
}

func TestPublishFallsBackToBodyID(t *testing.T) {
	svc, _, _ := newTestLinkedin(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"urn:li:share:456"}`))
	})

	res := svc.Publish(context.Background(), "t", "li-1", "x")
	if !res.Success || res.PostID != "urn:li:share:456" {
		t.Fatalf("result = %+v", res)
	}
}

func TestPublishErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"api message", http.StatusUnprocessableEntity, `{"message":"Content is a duplicate","status":422}`, "Content is a duplicate"},
		{"no message", http.StatusInternalServerError, `oops`, "LinkedIn API error: 500"},
		{"blank message", http.StatusUnauthorized, `{"message":"  "}`, "LinkedIn API error: 401"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, _ := newTestLinkedin(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			res := svc.Publish(context.Background(), "t", "li-1", "x")
			if res.Success || res.Error != tt.want {
				t.Fatalf("result = %+v, want error %q", res, tt.want)
			}
		})
	}
}

func TestPublishConnectionFailed(t *testing.T) {
	svc, _, srv := newTestLinkedin(t, func(w http.ResponseWriter, r *http.Request) {})
	srv.Close()

	res := svc.Publish(context.Background(), "t", "li-1", "x")
	if res.Success || res.Error != "connection failed" {
		t.Fatalf("result = %+v", res)
	}
}

func TestLinkedinCallbackStoresSealedTokens(t *testing.T) {
	svc, store, _ := newTestLinkedin(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/oauth/v2/accessToken":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"access_token":"access-1","refresh_token":"refresh-1","token_type":"Bearer","expires_in":3600}`))
		case "/v2/userinfo":
			if h := r.Header.Get("Authorization"); h != "Bearer access-1" {
				t.Errorf("userinfo Authorization = %q", h)
			}
			_, _ = w.Write([]byte(`{"sub":"li-42","name":"Ana"}`))
		default:
			http.NotFound(w, r)
		}
	})
	user := store.addUser(models.User{Email: "ana@example.com"})

	if err := svc.LinkedinCallback(context.Background(), "code-1", user.ID); err != nil {
		t.Fatalf("LinkedinCallback: %v", err)
	}

	got := store.user(user.ID)
	if got.LinkedinUserID != "li-42" {
		t.Fatalf("linkedin user id = %q", got.LinkedinUserID)
	}
	if got.LinkedinTokenExpiry == nil || !got.LinkedinTokenExpiry.After(time.Now()) {
		t.Fatalf("token expiry = %v", got.LinkedinTokenExpiry)
	}
	access, err := utils.Decrypt(got.LinkedinAccessToken, []byte(testSecret))
	if err != nil || access != "access-1" {
		t.Fatalf("access token = %q, %v", access, err)
	}
	refresh, err := utils.Decrypt(got.LinkedinRefreshToken, []byte(testSecret))
	if err != nil || refresh != "refresh-1" {
		t.Fatalf("refresh token = %q, %v", refresh, err)
	}
}

func TestLinkedinCallbackRejectsEmptyCode(t *testing.T) {
	svc, store, _ := newTestLinkedin(t, func(w http.ResponseWriter, r *http.Request) {})
	user := store.addUser(models.User{Email: "ana@example.com"})

	if err := svc.LinkedinCallback(context.Background(), "", user.ID); !errors.Is(err, ErrValidation) {
		t.Fatalf("error = %v, want validation error", err)
	}
}

func TestRefreshLinkedinTokenKeepsRefreshToken(t *testing.T) {
	svc, store, _ := newTestLinkedin(t, func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm: %v", err)
		}
		if r.Form.Get("grant_type") != "refresh_token" || r.Form.Get("refresh_token") != "refresh-1" {
			t.Errorf("form = %v", r.Form)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"access-2","token_type":"Bearer","expires_in":3600}`))
	})

	sealedRefresh := sealed(t, "refresh-1")
	user := store.addUser(models.User{
		Email:                "ana@example.com",
		LinkedinAccessToken:  sealed(t, "access-1"),
		LinkedinRefreshToken: sealedRefresh,
		LinkedinUserID:       "li-42",
	})

	if err := svc.RefreshLinkedinToken(context.Background(), user); err != nil {
		t.Fatalf("RefreshLinkedinToken: %v", err)
	}

	got := store.user(user.ID)
	access, err := utils.Decrypt(got.LinkedinAccessToken, []byte(testSecret))
	if err != nil || access != "access-2" {
		t.Fatalf("access token = %q, %v", access, err)
	}
	if got.LinkedinRefreshToken != sealedRefresh {
		t.Fatalf("refresh token was replaced")
	}
	if got.LinkedinUserID != "li-42" {
		t.Fatalf("linkedin user id = %q", got.LinkedinUserID)
	}
}
