// Package auth issues and verifies the access and refresh tokens of the product service.
package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/abgdnv/productdesk/internal/config"
	perrors "github.com/abgdnv/productdesk/internal/product/errors"
	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"
)

const (
	tokenTypeClaim   = "token_type"
	accessTokenType  = "access"
	refreshTokenType = "refresh"
)

type Verifier interface {
	Verify(ctx context.Context, tokenString string) (jwt.Token, error)
}

// Issuer signs HS256 tokens with a shared secret and verifies them.
type Issuer struct {
	key        jwk.Key
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewIssuer creates an Issuer from the auth configuration.
func NewIssuer(cfg config.AuthConfig) (*Issuer, error) {
	key, err := jwk.Import([]byte(cfg.Secret))
	if err != nil {
		return nil, fmt.Errorf("failed to import signing key: %w", err)
	}
	return &Issuer{
		key:        key,
		issuer:     cfg.Issuer,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		now:        time.Now,
	}, nil
}

// IssueAccess returns a signed access token for subject.
func (i *Issuer) IssueAccess(subject string) (string, error) {
	return i.issue(subject, accessTokenType, i.accessTTL)
}

// IssueRefresh returns a signed refresh token for subject.
func (i *Issuer) IssueRefresh(subject string) (string, error) {
	return i.issue(subject, refreshTokenType, i.refreshTTL)
}

// Verify validates an access token. Refresh tokens are rejected.
func (i *Issuer) Verify(_ context.Context, tokenString string) (jwt.Token, error) {
	return i.parse(tokenString, accessTokenType)
}

// VerifyRefresh validates a refresh token. Access tokens are rejected.
func (i *Issuer) VerifyRefresh(_ context.Context, tokenString string) (jwt.Token, error) {
	return i.parse(tokenString, refreshTokenType)
}

func (i *Issuer) issue(subject, tokenType string, ttl time.Duration) (string, error) {
	now := i.now()
	token, err := jwt.NewBuilder().
		Issuer(i.issuer).
		Subject(subject).
		JwtID(uuid.NewString()).
		IssuedAt(now).
		Expiration(now.Add(ttl)).
		Claim(tokenTypeClaim, tokenType).
		Build()
	if err != nil {
		return "", fmt.Errorf("failed to build %s token: %w", tokenType, err)
	}
	signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256(), i.key))
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", tokenType, err)
	}
	return string(signed), nil
}

func (i *Issuer) parse(tokenString, tokenType string) (jwt.Token, error) {
	token, err := jwt.Parse(
		[]byte(tokenString),
		jwt.WithKey(jwa.HS256(), i.key),
		jwt.WithValidate(true),
		jwt.WithClock(jwt.ClockFunc(i.now)),
		jwt.WithIssuer(i.issuer),
		jwt.WithClaimValue(tokenTypeClaim, tokenType),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", perrors.ErrInvalidToken, err)
	}
	return token, nil
}
