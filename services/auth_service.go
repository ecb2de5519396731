package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/inventohq/festival-system/apiclient"
	"github.com/inventohq/festival-system/models"
	"github.com/inventohq/festival-system/store"
)

const sessionTTL = 24 * time.Hour

// AuthService проксирует credential exchange на бэкенд, собирает
// сессию и выдаёт собственный JWT шлюза.
type AuthService interface {
	LoginAdmin(ctx context.Context, creds models.Credentials) (*models.Session, string, error)
	LoginVolunteer(ctx context.Context, creds models.Credentials) (*models.Session, string, error)
	Logout(ctx context.Context, inventoID string) error
	Resolve(ctx context.Context, inventoID string) (*models.Session, error)
}

type authService struct {
	api       *apiclient.Client
	sessions  *store.SessionStore
	jwtSecret []byte
	logger    *slog.Logger
}

func NewAuthService(api *apiclient.Client, sessions *store.SessionStore, jwtSecret string, logger *slog.Logger) AuthService {
	return &authService{
		api:       api,
		sessions:  sessions,
		jwtSecret: []byte(jwtSecret),
		logger:    logger,
	}
}

func (s *authService) LoginAdmin(ctx context.Context, creds models.Credentials) (*models.Session, string, error) {
	return s.login(ctx, creds, s.api.LoginAdmin)
}

func (s *authService) LoginVolunteer(ctx context.Context, creds models.Credentials) (*models.Session, string, error) {
	return s.login(ctx, creds, s.api.LoginVolunteer)
}

func (s *authService) login(
	ctx context.Context,
	creds models.Credentials,
	exchange func(context.Context, models.Credentials) (*apiclient.LoginResult, error),
) (*models.Session, string, error) {
	res, err := exchange(ctx, creds)
	if err != nil {
		var apiErr *apiclient.APIError
		if errors.As(err, &apiErr) && (apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusBadRequest) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", fmt.Errorf("login exchange failed: %w", err)
	}

	role, ok := models.ParseRole(res.Role)
	if !ok {
		return nil, "", fmt.Errorf("upstream returned unknown role %q", res.Role)
	}

	sess := &models.Session{
		InventoID: res.InventoID,
		Email:     res.Email,
		Name:      res.Name,
		Role:      role,
		Team:      res.Team,
		Access:    res.Access,
		Onboarded: res.Onboarded,
		Token:     res.Token,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.sessions.Put(ctx, sess); err != nil {
		return nil, "", fmt.Errorf("failed to persist session: %w", err)
	}

	token, err := s.mintToken(sess)
	if err != nil {
		return nil, "", err
	}

	s.logger.Info("session created",
		slog.String("invento_id", sess.InventoID),
		slog.String("role", string(sess.Role)))
	return sess, token, nil
}

func (s *authService) Logout(ctx context.Context, inventoID string) error {
	return s.sessions.Invalidate(ctx, inventoID)
}

// Resolve восстанавливает полную сессию по subject'у JWT.
// Отсутствие записи означает logout или 401 от бэкенда.
func (s *authService) Resolve(ctx context.Context, inventoID string) (*models.Session, error) {
	sess, err := s.sessions.Get(ctx, inventoID)
	if err != nil {
		if errors.Is(err, store.ErrSessionNotFound) {
			return nil, ErrAuthenticationRequired
		}
		return nil, err
	}
	return sess, nil
}

func (s *authService) mintToken(sess *models.Session) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  sess.InventoID,
		"role": string(sess.Role),
		"iat":  now.Unix(),
		"exp":  now.Add(sessionTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}
