package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/communitymapper/community-mapper/internal/domain"
	"github.com/communitymapper/community-mapper/internal/service"
)

func (s *Server) registerAuthRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "login",
		Method:      http.MethodPost,
		Path:        "/auth/login",
		Summary:     "User login",
		Description: "Authenticates a user, returns access and refresh tokens and sets the session cookie",
		Tags:        []string{"Authentication"},
	}, s.handleLogin)

	huma.Register(s.api, huma.Operation{
		OperationID: "refresh",
		Method:      http.MethodPost,
		Path:        "/auth/refresh",
		Summary:     "Refresh tokens",
		Description: "Exchanges a refresh token for new tokens",
		Tags:        []string{"Authentication"},
	}, s.handleRefresh)

	huma.Register(s.api, huma.Operation{
		OperationID:   "logout",
		Method:        http.MethodPost,
		Path:          "/auth/logout",
		Summary:       "Logout",
		Description:   "Ends the current session and clears the session cookie",
		Tags:          []string{"Authentication"},
		Security:      bearer,
		DefaultStatus: http.StatusNoContent,
	}, s.handleLogout)

	huma.Register(s.api, huma.Operation{
		OperationID: "getCurrentUser",
		Method:      http.MethodGet,
		Path:        "/auth/me",
		Summary:     "Current user",
		Description: "Returns the signed-in user",
		Tags:        []string{"Authentication"},
		Security:    bearer,
	}, s.handleMe)
}

// LoginInput wraps the login request for Huma.
type LoginInput struct {
	Body service.LoginRequest
}

// RefreshRequest is the request body for token refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" doc:"Refresh token"`
}

// RefreshInput wraps the refresh request for Huma.
type RefreshInput struct {
	Body RefreshRequest
}

// AuthOutput returns tokens and sets the session cookie.
type AuthOutput struct {
	SetCookie http.Cookie `header:"Set-Cookie"`
	Body      service.AuthResponse
}

// LogoutOutput clears the session cookie.
type LogoutOutput struct {
	SetCookie http.Cookie `header:"Set-Cookie"`
}

// UserOutput wraps a user for Huma.
type UserOutput struct {
	Body *domain.User
}

func (s *Server) handleLogin(ctx context.Context, input *LoginInput) (*AuthOutput, error) {
	resp, err := s.services.Auth.Login(ctx, input.Body, clientInfo(ctx))
	if err != nil {
		return nil, err
	}
	return &AuthOutput{SetCookie: s.sessionCookie(resp.AccessToken, resp.ExpiresAt), Body: *resp}, nil
}

func (s *Server) handleRefresh(ctx context.Context, input *RefreshInput) (*AuthOutput, error) {
	resp, err := s.services.Auth.Refresh(ctx, input.Body.RefreshToken, clientInfo(ctx))
	if err != nil {
		return nil, err
	}
	return &AuthOutput{SetCookie: s.sessionCookie(resp.AccessToken, resp.ExpiresAt), Body: *resp}, nil
}

func (s *Server) handleLogout(ctx context.Context, _ *struct{}) (*LogoutOutput, error) {
	claims, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.services.Auth.Logout(ctx, claims.SessionID); err != nil {
		return nil, err
	}
	return &LogoutOutput{SetCookie: s.sessionCookie("", time.Unix(0, 0))}, nil
}

func (s *Server) handleMe(ctx context.Context, _ *struct{}) (*UserOutput, error) {
	claims, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	user, err := s.services.Auth.Me(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	return &UserOutput{Body: user}, nil
}

// sessionCookie carries the access token for browser clients. An empty
// value expires the cookie.
func (s *Server) sessionCookie(value string, expires time.Time) http.Cookie {
	c := http.Cookie{
		Name:     s.opts.CookieName,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   s.opts.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	}
	if value == "" {
		c.MaxAge = -1
	}
	return c
}
