package service

import (
	"context"
	"errors"

	config "github.com/maheshrc27/teampost/configs"
	"github.com/maheshrc27/teampost/internal/models"
	"github.com/maheshrc27/teampost/internal/repository"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	googleoauth2 "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

type AuthService interface {
	GetAuthURL(state string) string
	LoginCallback(ctx context.Context, code string) (int64, error)
}

type authService struct {
	u     repository.UserRepository
	oauth *oauth2.Config
}

func NewAuthService(cfg config.Config, u repository.UserRepository) AuthService {
	return &authService{
		u: u,
		oauth: &oauth2.Config{
			ClientID:     cfg.Google.ClientID,
			ClientSecret: cfg.Google.ClientSecret,
			RedirectURL:  cfg.Google.RedirectURI,
			Scopes:       []string{googleoauth2.UserinfoEmailScope, googleoauth2.UserinfoProfileScope},
			Endpoint:     google.Endpoint,
		},
	}
}

func (s *authService) GetAuthURL(state string) string {
	return s.oauth.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

func (s *authService) LoginCallback(ctx context.Context, code string) (int64, error) {
	if code == "" {
		return 0, invalid("authorization code is empty")
	}
	if s.oauth.ClientID == "" || s.oauth.ClientSecret == "" {
		return 0, errors.New("google oauth configuration is incomplete")
	}

	token, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		log.Error().Err(err).Msg("google code exchange")
		return 0, err
	}

	svc, err := googleoauth2.NewService(ctx, option.WithTokenSource(s.oauth.TokenSource(ctx, token)))
	if err != nil {
		return 0, err
	}
	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		log.Error().Err(err).Msg("google userinfo")
		return 0, err
	}
	if info.Email == "" {
		return 0, errors.New("google account has no email")
	}

	user, isExist, err := s.u.GetByEmail(ctx, info.Email)
	if err != nil {
		return 0, err
	}

	if !isExist {
		return s.u.Create(ctx, nil, &models.User{
			GoogleID:       info.Id,
			Email:          info.Email,
			Name:           info.Name,
			ProfilePicture: info.Picture,
		})
	}

	if user.GoogleID == "" || user.Name != info.Name || user.ProfilePicture != info.Picture {
		user.GoogleID = info.Id
		user.Name = info.Name
		user.ProfilePicture = info.Picture
		if err := s.u.Update(ctx, user); err != nil {
			return 0, err
		}
	}
	return user.ID, nil
}
