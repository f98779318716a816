package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	config "github.com/maheshrc27/campaignflow/configs"
	"github.com/maheshrc27/campaignflow/internal/models"
	"github.com/maheshrc27/campaignflow/internal/repository"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	oauth2api "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

var (
	ErrOAuthNotConfigured = errors.New("OAuth2 configuration is incomplete")
	ErrNotAdmin           = errors.New("this account is not allowed to access the admin API")
)

type AuthService interface {
	LoginURL(state string) string
	LoginCallback(ctx context.Context, code string) (int64, error)
}

type authService struct {
	oauth  *oauth2.Config
	admins []string
	u      repository.UserRepository
}

func NewAuthService(cfg config.Config, u repository.UserRepository) AuthService {
	return &authService{
		oauth: &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleRedirectURI,
			Scopes:       []string{oauth2api.UserinfoEmailScope, oauth2api.UserinfoProfileScope},
			Endpoint:     google.Endpoint,
		},
		admins: cfg.AdminEmails,
		u:      u,
	}
}

func (s *authService) LoginURL(state string) string {
	return s.oauth.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

func (s *authService) LoginCallback(ctx context.Context, code string) (int64, error) {
	if code == "" {
		err := errors.New("authorization code is empty")
		slog.Info(err.Error())
		return 0, err
	}
	if s.oauth.ClientID == "" || s.oauth.ClientSecret == "" || s.oauth.RedirectURL == "" {
		slog.Info(ErrOAuthNotConfigured.Error())
		return 0, ErrOAuthNotConfigured
	}

	token, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	svc, err := oauth2api.NewService(ctx, option.WithHTTPClient(s.oauth.Client(ctx, token)))
	if err != nil {
		return 0, err
	}
	profile, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		slog.Info(err.Error())
		return 0, fmt.Errorf("error fetching user info: %w", err)
	}

	return s.authorize(ctx, profile)
}

// authorize admits allow-listed, verified Google accounts and records the login.
func (s *authService) authorize(ctx context.Context, profile *oauth2api.Userinfo) (int64, error) {
	email := strings.ToLower(profile.Email)
	verified := profile.VerifiedEmail != nil && *profile.VerifiedEmail
	if email == "" || !verified || !slices.Contains(s.admins, email) {
		slog.Warn("rejected login", "email", email, "verified", verified)
		return 0, ErrNotAdmin
	}

	user, isExist, err := s.u.GetByEmail(ctx, email)
	if err != nil {
		return 0, err
	}

	if !isExist {
		return s.u.Create(ctx, &models.User{
			GoogleID:       profile.Id,
			Email:          email,
			Name:           profile.Name,
			ProfilePicture: profile.Picture,
		})
	}

	user.GoogleID = profile.Id
	user.Name = profile.Name
	user.ProfilePicture = profile.Picture
	if err := s.u.RecordLogin(ctx, user); err != nil {
		return 0, err
	}
	return user.ID, nil
}
