package auth

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log/slog"

	"github.com/abgdnv/productdesk/internal/config"
	perrors "github.com/abgdnv/productdesk/internal/product/errors"
)

// TokenPair is the result of a successful login.
type TokenPair struct {
	Access  string
	Refresh string
}

// Service authenticates the configured account and exchanges refresh tokens.
type Service struct {
	issuer   *Issuer
	username string
	password string
	logger   *slog.Logger
}

func NewService(issuer *Issuer, cfg config.AuthConfig, logger *slog.Logger) *Service {
	return &Service{
		issuer:   issuer,
		username: cfg.Username,
		password: cfg.Password,
		logger:   logger.With("component", "auth"),
	}
}

// Login returns a token pair for valid credentials, otherwise ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, username, password string) (*TokenPair, error) {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(s.password)) == 1
	if !userOK || !passOK {
		s.logger.WarnContext(ctx, "Login rejected", "username", username)
		return nil, perrors.ErrInvalidCredentials
	}
	access, err := s.issuer.IssueAccess(username)
	if err != nil {
		return nil, err
	}
	refresh, err := s.issuer.IssueRefresh(username)
	if err != nil {
		return nil, err
	}
	return &TokenPair{Access: access, Refresh: refresh}, nil
}

// Refresh returns a new access token for a valid refresh token, otherwise an ErrInvalidToken error.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, error) {
	token, err := s.issuer.VerifyRefresh(ctx, refreshToken)
	if err != nil {
		return "", err
	}
	subject, ok := token.Subject()
	if !ok {
		return "", fmt.Errorf("%w: no claim `sub`", perrors.ErrInvalidToken)
	}
	return s.issuer.IssueAccess(subject)
}
