package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/communitymapper/community-mapper/internal/auth"
	"github.com/communitymapper/community-mapper/internal/domain"
	domainerrors "github.com/communitymapper/community-mapper/internal/errors"
	"github.com/communitymapper/community-mapper/internal/ratelimit"
	"github.com/communitymapper/community-mapper/internal/store"
	"github.com/communitymapper/community-mapper/internal/store/sqlstore"
	"github.com/communitymapper/community-mapper/internal/validation"
)

// AuthService signs users in and out and resolves access tokens to users.
type AuthService struct {
	store     *sqlstore.Store
	tokens    *auth.TokenService
	sessions  *SessionService
	limiter   *ratelimit.Limiter
	validator *validation.Validator
	logger    *slog.Logger
}

// NewAuthService creates an auth service. A nil limiter disables login
// throttling.
func NewAuthService(
	store *sqlstore.Store,
	tokens *auth.TokenService,
	sessions *SessionService,
	limiter *ratelimit.Limiter,
	validator *validation.Validator,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		store:     store,
		tokens:    tokens,
		sessions:  sessions,
		limiter:   limiter,
		validator: validator,
		logger:    logger,
	}
}

// LoginRequest contains user credentials.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,max=1024"`
}

// AuthResponse contains the signed-in user and a token pair.
type AuthResponse struct {
	User *domain.User `json:"user"`
	SessionResponse
}

// Login checks credentials and opens a session. Attempts are rate limited
// per client IP; unknown emails and wrong passwords look the same.
func (s *AuthService) Login(ctx context.Context, req LoginRequest, client ClientInfo) (*AuthResponse, error) {
	if s.limiter != nil && !s.limiter.Allow(client.IPAddress) {
		s.logger.Warn("login rate limited", "ip", client.IPAddress)
		return nil, domainerrors.RateLimited("too many login attempts, try again later")
	}

	req.Email = domain.NormalizeEmail(req.Email)
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	user, err := s.store.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.InvalidCredentials("invalid email or password")
		}
		return nil, fromStore(err, "user")
	}
	if !auth.VerifyPassword(user.PasswordHash, req.Password) {
		s.logger.Info("login failed", "user_id", user.ID, "ip", client.IPAddress)
		return nil, domainerrors.InvalidCredentials("invalid email or password")
	}

	resp, err := s.sessions.CreateSession(ctx, user, client)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user logged in", "user_id", user.ID, "session_id", resp.SessionID)
	return &AuthResponse{User: user, SessionResponse: *resp}, nil
}

// Refresh rotates a session's tokens.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string, client ClientInfo) (*AuthResponse, error) {
	if refreshToken == "" {
		return nil, domainerrors.Validation("refresh_token is required")
	}
	resp, user, err := s.sessions.RefreshSession(ctx, refreshToken, client)
	if err != nil {
		return nil, err
	}
	return &AuthResponse{User: user, SessionResponse: *resp}, nil
}

// Logout ends a session.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if err := s.sessions.DeleteSession(ctx, sessionID); err != nil {
		return err
	}
	s.logger.Info("user logged out", "session_id", sessionID)
	return nil
}

// Me returns the signed-in user.
func (s *AuthService) Me(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.Unauthorized("user no longer exists")
		}
		return nil, fromStore(err, "user")
	}
	return user, nil
}

// Authenticate verifies an access token and checks that its session is
// still open. It is the only way a request acquires a user id.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*auth.Claims, error) {
	if token == "" {
		return nil, domainerrors.Unauthorized("authentication required")
	}
	claims, err := s.tokens.VerifyAccessToken(token)
	if err != nil {
		return nil, domainerrors.Unauthorized("invalid or expired access token").WithCause(err)
	}
	session, err := s.sessions.ValidateSession(ctx, claims.SessionID)
	if err != nil {
		return nil, err
	}
	if session.UserID != claims.UserID {
		return nil, domainerrors.Unauthorized("invalid access token")
	}
	return claims, nil
}
