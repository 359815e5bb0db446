package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/abgdnv/productdesk/internal/platform/web"
	"github.com/abgdnv/productdesk/internal/product/auth"
	producterrors "github.com/abgdnv/productdesk/internal/product/errors"
	"github.com/go-playground/validator/v10"
)

// TokenService authenticates users and refreshes their access tokens.
type TokenService interface {
	Login(ctx context.Context, username, password string) (*auth.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
}

// AuthAPI defines HTTP handlers for the token endpoints.
type AuthAPI interface {
	Login(w http.ResponseWriter, r *http.Request)
	Refresh(w http.ResponseWriter, r *http.Request)
}

type authAPI struct {
	tokens   TokenService
	validate *validator.Validate
	logger   *slog.Logger
}

func NewAuthAPI(tokens TokenService, logger *slog.Logger) AuthAPI {
	return &authAPI{
		tokens:   tokens,
		validate: newValidator(),
		logger:   logger.With("component", "auth_api"),
	}
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Token   string `json:"token"`
	Refresh string `json:"refresh"`
}

type refreshRequest struct {
	Refresh string `json:"refresh" validate:"required"`
}

type refreshResponse struct {
	Access string `json:"access"`
}

// Login exchanges credentials for an access and a refresh token.
func (a *authAPI) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !a.decode(w, r, &req) {
		return
	}
	pair, err := a.tokens.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, producterrors.ErrInvalidCredentials) {
			web.RespondError(w, a.logger, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		a.logger.ErrorContext(r.Context(), "Error issuing tokens", "error", err)
		web.RespondError(w, a.logger, http.StatusInternalServerError, "Failed to log in")
		return
	}
	a.logger.InfoContext(r.Context(), "User logged in", "username", req.Username)
	web.RespondJSON(w, a.logger, http.StatusOK, loginResponse{Token: pair.Access, Refresh: pair.Refresh})
}

// Refresh exchanges a refresh token for a new access token.
func (a *authAPI) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !a.decode(w, r, &req) {
		return
	}
	access, err := a.tokens.Refresh(r.Context(), req.Refresh)
	if err != nil {
		if errors.Is(err, producterrors.ErrInvalidToken) {
			a.logger.WarnContext(r.Context(), "Refresh token rejected", "error", err)
			web.RespondError(w, a.logger, http.StatusUnauthorized, "Token is invalid or expired")
			return
		}
		a.logger.ErrorContext(r.Context(), "Error refreshing token", "error", err)
		web.RespondError(w, a.logger, http.StatusInternalServerError, "Failed to refresh token")
		return
	}
	web.RespondJSON(w, a.logger, http.StatusOK, refreshResponse{Access: access})
}

func (a *authAPI) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		web.RespondError(w, a.logger, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return validateStruct(a.validate, a.logger, w, r, v)
}
