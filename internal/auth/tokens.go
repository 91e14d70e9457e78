package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"time"

	"aidanwoods.dev/go-paseto"
	"github.com/communitymapper/community-mapper/internal/domain"
)

const (
	tokenIssuer      = "community-mapper"
	tokenAudience    = "community-mapper-client"
	refreshTokenSize = 32
)

// Claims is what a verified access token says about its bearer.
type Claims struct {
	UserID    string
	Email     string
	SessionID string
	ExpiresAt time.Time
}

// TokenService issues and verifies PASETO v4.local access tokens and opaque
// refresh tokens.
type TokenService struct {
	key        paseto.V4SymmetricKey
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewTokenService returns a token service using key.
func NewTokenService(key paseto.V4SymmetricKey, accessTTL, refreshTTL time.Duration) *TokenService {
	return &TokenService{key: key, accessTTL: accessTTL, refreshTTL: refreshTTL, now: time.Now}
}

// IssueAccessToken returns an encrypted access token bound to a session.
func (s *TokenService) IssueAccessToken(user *domain.User, sessionID string) (string, time.Time, error) {
	now := s.now()
	expires := now.Add(s.accessTTL)

	token := paseto.NewToken()
	token.SetIssuer(tokenIssuer)
	token.SetAudience(tokenAudience)
	token.SetSubject(user.ID)
	token.SetIssuedAt(now)
	token.SetNotBefore(now)
	token.SetExpiration(expires)
	if err := token.Set("email", user.Email); err != nil {
		return "", time.Time{}, fmt.Errorf("set email claim: %w", err)
	}
	if err := token.Set("sid", sessionID); err != nil {
		return "", time.Time{}, fmt.Errorf("set session claim: %w", err)
	}

	return token.V4Encrypt(s.key, nil), expires, nil
}

// VerifyAccessToken decrypts a token and checks issuer, audience and expiry.
func (s *TokenService) VerifyAccessToken(raw string) (*Claims, error) {
	parser := paseto.NewParser() // includes the expiry check
	parser.AddRule(paseto.IssuedBy(tokenIssuer))
	parser.AddRule(paseto.ForAudience(tokenAudience))
	parser.AddRule(paseto.ValidAt(s.now()))

	token, err := parser.ParseV4Local(s.key, raw, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	var c Claims
	if c.UserID, err = token.GetSubject(); err != nil {
		return nil, fmt.Errorf("token subject: %w", err)
	}
	if c.ExpiresAt, err = token.GetExpiration(); err != nil {
		return nil, fmt.Errorf("token expiration: %w", err)
	}
	c.Email, _ = token.GetString("email")
	c.SessionID, _ = token.GetString("sid")
	if c.UserID == "" {
		return nil, fmt.Errorf("invalid token: empty subject")
	}
	return &c, nil
}

// NewRefreshToken returns a random opaque refresh token. Only its hash is
// ever stored.
func (s *TokenService) NewRefreshToken() (string, error) {
	b := make([]byte, refreshTokenSize)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate refresh token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// AccessTTL returns the access token lifetime.
func (s *TokenService) AccessTTL() time.Duration { return s.accessTTL }

// RefreshTTL returns the refresh session lifetime.
func (s *TokenService) RefreshTTL() time.Duration { return s.refreshTTL }

// HashRefreshToken returns the SHA-256 hex digest stored for a refresh token.
func HashRefreshToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
