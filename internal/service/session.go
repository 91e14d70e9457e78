package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/communitymapper/community-mapper/internal/auth"
	"github.com/communitymapper/community-mapper/internal/domain"
	domainerrors "github.com/communitymapper/community-mapper/internal/errors"
	"github.com/communitymapper/community-mapper/internal/id"
	"github.com/communitymapper/community-mapper/internal/store"
	"github.com/communitymapper/community-mapper/internal/store/sqlstore"
)

// SessionService handles refresh-token sessions for signed-in clients.
type SessionService struct {
	store  *sqlstore.Store
	tokens *auth.TokenService
	logger *slog.Logger
}

// NewSessionService creates a new session management service.
func NewSessionService(store *sqlstore.Store, tokens *auth.TokenService, logger *slog.Logger) *SessionService {
	return &SessionService{store: store, tokens: tokens, logger: logger}
}

// ClientInfo describes the client opening or refreshing a session.
type ClientInfo struct {
	IPAddress string
	UserAgent string
}

// SessionResponse carries a freshly issued token pair.
type SessionResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresIn    int       `json:"expires_in"`
	ExpiresAt    time.Time `json:"expires_at"`
	SessionID    string    `json:"session_id"`
}

// CreateSession opens a session for user and issues its first token pair.
func (s *SessionService) CreateSession(ctx context.Context, user *domain.User, client ClientInfo) (*SessionResponse, error) {
	refreshToken, err := s.tokens.NewRefreshToken()
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}
	sessionID, err := id.Generate(id.PrefixSession)
	if err != nil {
		return nil, fmt.Errorf("generate session id: %w", err)
	}

	now := time.Now().UTC()
	session := &domain.Session{
		ID:               sessionID,
		UserID:           user.ID,
		RefreshTokenHash: auth.HashRefreshToken(refreshToken),
		ExpiresAt:        now.Add(s.tokens.RefreshTTL()),
		CreatedAt:        now,
		LastSeenAt:       now,
		IPAddress:        client.IPAddress,
		UserAgent:        truncate(client.UserAgent, 255),
	}
	if err := s.store.CreateSession(ctx, session); err != nil {
		return nil, fromStore(err, "session")
	}

	return s.issue(user, session, refreshToken)
}

// RefreshSession rotates the token pair of the session holding refreshToken.
// The old refresh token stops working.
func (s *SessionService) RefreshSession(ctx context.Context, refreshToken string, client ClientInfo) (*SessionResponse, *domain.User, error) {
	session, err := s.store.GetSessionByRefreshToken(ctx, auth.HashRefreshToken(refreshToken))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, domainerrors.Unauthorized("invalid or expired refresh token")
		}
		return nil, nil, fromStore(err, "session")
	}

	user, err := s.store.GetUser(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			_ = s.store.DeleteSession(ctx, session.ID)
			return nil, nil, domainerrors.Unauthorized("user no longer exists")
		}
		return nil, nil, fromStore(err, "user")
	}

	newRefresh, err := s.tokens.NewRefreshToken()
	if err != nil {
		return nil, nil, fmt.Errorf("generate refresh token: %w", err)
	}
	session.RefreshTokenHash = auth.HashRefreshToken(newRefresh)
	session.ExpiresAt = time.Now().UTC().Add(s.tokens.RefreshTTL())
	session.Touch()
	if client.IPAddress != "" {
		session.IPAddress = client.IPAddress
	}
	if client.UserAgent != "" {
		session.UserAgent = truncate(client.UserAgent, 255)
	}
	if err := s.store.UpdateSession(ctx, session); err != nil {
		return nil, nil, fromStore(err, "session")
	}

	resp, err := s.issue(user, session, newRefresh)
	if err != nil {
		return nil, nil, err
	}
	return resp, user, nil
}

// ValidateSession returns the session if it still exists and has not expired.
func (s *SessionService) ValidateSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.Unauthorized("session has ended")
		}
		return nil, fromStore(err, "session")
	}
	if session.IsExpired() {
		return nil, domainerrors.Unauthorized("session has expired")
	}
	return session, nil
}

// DeleteSession ends a session. Ending an unknown session is a no-op.
func (s *SessionService) DeleteSession(ctx context.Context, sessionID string) error {
	if err := s.store.DeleteSession(ctx, sessionID); err != nil && !errors.Is(err, store.ErrNotFound) {
		return fromStore(err, "session")
	}
	return nil
}

// ListUserSessions returns a user's sessions, oldest first.
func (s *SessionService) ListUserSessions(ctx context.Context, userID string) ([]*domain.Session, error) {
	sessions, err := s.store.ListUserSessions(ctx, userID)
	if err != nil {
		return nil, fromStore(err, "sessions")
	}
	return sessions, nil
}

// DeleteExpiredSessions removes every expired session and returns how many
// were removed.
func (s *SessionService) DeleteExpiredSessions(ctx context.Context) (int, error) {
	n, err := s.store.DeleteExpiredSessions(ctx)
	if err != nil {
		return 0, fromStore(err, "sessions")
	}
	if n > 0 {
		s.logger.Info("expired sessions removed", "count", n)
	}
	return n, nil
}

func (s *SessionService) issue(user *domain.User, session *domain.Session, refreshToken string) (*SessionResponse, error) {
	accessToken, expiresAt, err := s.tokens.IssueAccessToken(user, session.ID)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	return &SessionResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int(s.tokens.AccessTTL().Seconds()),
		ExpiresAt:    expiresAt,
		SessionID:    session.ID,
	}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
