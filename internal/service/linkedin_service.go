package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	config "github.com/maheshrc27/teampost/configs"
	"github.com/maheshrc27/teampost/internal/models"
	"github.com/maheshrc27/teampost/internal/repository"
	"github.com/maheshrc27/teampost/internal/transfer"
	"github.com/maheshrc27/teampost/pkg/utils"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/linkedin"
)

var linkedinScopes = []string{"openid", "profile", "email", "w_member_social"}

type LinkedinService interface {
	GetAuthURL(state string) string
	LinkedinCallback(ctx context.Context, code string, userID int64) error
	RefreshLinkedinToken(ctx context.Context, user *models.User) error
	Publish(ctx context.Context, accessToken, linkedinUserID, content string) transfer.PublishResult
}

type linkedinService struct {
	cfg    config.Config
	ur     repository.UserRepository
	oauth  *oauth2.Config
	client *http.Client
}

func NewLinkedinService(cfg config.Config, ur repository.UserRepository, client *http.Client) LinkedinService {
	if client == nil {
		client = &http.Client{Timeout: cfg.Linkedin.HTTPTimeout}
	}
	return &linkedinService{
		cfg: cfg,
		ur:  ur,
		oauth: &oauth2.Config{
			ClientID:     cfg.Linkedin.ClientID,
			ClientSecret: cfg.Linkedin.ClientSecret,
			RedirectURL:  cfg.Linkedin.RedirectURI,
			Scopes:       linkedinScopes,
			Endpoint:     linkedin.Endpoint,
		},
		client: client,
	}
}

func (s *linkedinService) GetAuthURL(state string) string {
	return s.oauth.AuthCodeURL(state)
}

func (s *linkedinService) LinkedinCallback(ctx context.Context, code string, userID int64) error {
	if code == "" {
		return invalid("authorization code is empty")
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.client)
	token, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		log.Error().Err(err).Int64("user_id", userID).Msg("linkedin code exchange")
		return err
	}

	info, err := s.userInfo(ctx, token)
	if err != nil {
		return err
	}
	if info.Sub == "" {
		return errors.New("linkedin user info has no subject")
	}

	user := &models.User{ID: userID, LinkedinUserID: info.Sub}
	if err := s.sealTokens(user, token); err != nil {
		return err
	}

	if err := s.ur.SetLinkedinCredentials(ctx, nil, user); err != nil {
		return err
	}

	log.Info().Int64("user_id", userID).Msg("linkedin account connected")
	return nil
}

func (s *linkedinService) RefreshLinkedinToken(ctx context.Context, user *models.User) error {
	refreshToken, err := utils.Decrypt(user.LinkedinRefreshToken, []byte(s.cfg.SecretKey))
	if err != nil {
		return err
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.client)
	expired := &oauth2.Token{RefreshToken: refreshToken, Expiry: time.Now().Add(-time.Minute)}
	token, err := s.oauth.TokenSource(ctx, expired).Token()
	if err != nil {
		log.Error().Err(err).Int64("user_id", user.ID).Msg("linkedin token refresh")
		return err
	}

	updated := &models.User{ID: user.ID}
	if token.RefreshToken == refreshToken {
		token.RefreshToken = ""
	}
	if err := s.sealTokens(updated, token); err != nil {
		return err
	}

	return s.ur.SetLinkedinCredentials(ctx, nil, updated)
}

// sealTokens encrypts the token pair onto user. A missing refresh token is left
// empty so the stored one survives.
func (s *linkedinService) sealTokens(user *models.User, token *oauth2.Token) error {
	key := []byte(s.cfg.SecretKey)

	accessToken, err := utils.Encrypt([]byte(token.AccessToken), key)
	if err != nil {
		return err
	}
	user.LinkedinAccessToken = accessToken

	if token.RefreshToken != "" {
		refreshToken, err := utils.Encrypt([]byte(token.RefreshToken), key)
		if err != nil {
			return err
		}
		user.LinkedinRefreshToken = refreshToken
	}

	if !token.Expiry.IsZero() {
		expiry := token.Expiry
		user.LinkedinTokenExpiry = &expiry
	}
	return nil
}

func (s *linkedinService) userInfo(ctx context.Context, token *oauth2.Token) (*transfer.LinkedinUserInfo, error) {
	client := s.oauth.Client(ctx, token)

	resp, err := client.Get(s.cfg.Linkedin.APIBaseURL + "/v2/userinfo")
	if err != nil {
		log.Error().Err(err).Msg("linkedin userinfo request")
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("linkedin userinfo returned %d", resp.StatusCode)
	}

	var info transfer.LinkedinUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, err
	}
	return &info, nil
}

// Publish creates a public text share for the member. Failures are reported
// in the result, never as a Go error.
func (s *linkedinService) Publish(ctx context.Context, accessToken, linkedinUserID, content string) transfer.PublishResult {
	payload := transfer.LinkedinUGCPost{
		Author:         "urn:li:person:" + linkedinUserID,
		LifecycleState: "PUBLISHED",
		SpecificContent: transfer.LinkedinSpecificContent{
			ShareContent: transfer.LinkedinShareContent{
				ShareCommentary:    transfer.LinkedinShareCommentary{Text: content},
				ShareMediaCategory: "NONE",
			},
		},
		Visibility: transfer.LinkedinVisibility{MemberNetworkVisibility: "PUBLIC"},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return transfer.PublishResult{Error: err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.Linkedin.APIBaseURL+"/v2/ugcPosts", bytes.NewReader(body))
	if err != nil {
		return transfer.PublishResult{Error: err.Error()}
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Restli-Protocol-Version", "2.0.0")

	resp, err := s.client.Do(req)
	if err != nil {
		log.Warn().Err(err).Msg("linkedin publish request")
		return transfer.PublishResult{Error: "connection failed"}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Warn().Err(err).Msg("linkedin publish response")
		return transfer.PublishResult{Error: "connection failed"}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr transfer.LinkedinErrorResponse
		if err := json.Unmarshal(respBody, &apiErr); err == nil && strings.TrimSpace(apiErr.Message) != "" {
			return transfer.PublishResult{Error: apiErr.Message}
		}
		return transfer.PublishResult{Error: fmt.Sprintf("LinkedIn API error: %d", resp.StatusCode)}
	}

	postID := resp.Header.Get("X-RestLi-Id")
	if postID == "" {
		var created transfer.LinkedinUGCResponse
		if err := json.Unmarshal(respBody, &created); err == nil {
			postID = created.ID
		}
	}

	return transfer.PublishResult{Success: true, PostID: postID}
}
