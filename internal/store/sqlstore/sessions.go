package sqlstore

import (
	"context"

	"github.com/communitymapper/community-mapper/internal/domain"
	"github.com/communitymapper/community-mapper/internal/store"
)

// sessionColumns must match the scan order in scanSession.
const sessionColumns = `id, user_id, refresh_token_hash, expires_at, created_at, last_seen_at,
	ip_address, user_agent`

func scanSession(scanner store.Scanner) (*domain.Session, error) {
	var (
		sess                             domain.Session
		expiresAt, createdAt, lastSeenAt string
	)
	err := scanner.Scan(&sess.ID, &sess.UserID, &sess.RefreshTokenHash,
		&expiresAt, &createdAt, &lastSeenAt, &sess.IPAddress, &sess.UserAgent)
	if err != nil {
		return nil, err
	}
	if sess.ExpiresAt, err = parseTime(expiresAt); err != nil {
		return nil, err
	}
	if err := parseCreatedUpdated(createdAt, lastSeenAt, &sess.CreatedAt, &sess.LastSeenAt); err != nil {
		return nil, err
	}
	return &sess, nil
}

func (s *Store) getSession(ctx context.Context, where string, arg string) (*domain.Session, error) {
	var sess *domain.Session
	err := s.pool.Get(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE `+where, []any{arg},
		func(row store.Scanner) (err error) {
			sess, err = scanSession(row)
			return err
		})
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// CreateSession inserts a new session.
func (s *Store) CreateSession(ctx context.Context, sess *domain.Session) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO sessions (`+sessionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.UserID, sess.RefreshTokenHash,
		formatTime(sess.ExpiresAt), formatTime(sess.CreatedAt), formatTime(sess.LastSeenAt),
		sess.IPAddress, sess.UserAgent,
	)
	return err
}

// GetSession retrieves a session by id.
func (s *Store) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	return s.getSession(ctx, `id = ?`, id)
}

// GetSessionByRefreshToken retrieves an unexpired session by refresh token hash.
func (s *Store) GetSessionByRefreshToken(ctx context.Context, tokenHash string) (*domain.Session, error) {
	sess, err := s.getSession(ctx, `refresh_token_hash = ?`, tokenHash)
	if err != nil {
		return nil, err
	}
	if sess.IsExpired() {
		return nil, store.ErrNotFound.WithMessage("session expired")
	}
	return sess, nil
}

// UpdateSession rotates the refresh token hash and refreshes last-seen data.
func (s *Store) UpdateSession(ctx context.Context, sess *domain.Session) error {
	res, err := s.pool.Exec(ctx, `
		UPDATE sessions SET
			refresh_token_hash = ?, expires_at = ?, last_seen_at = ?,
			ip_address = ?, user_agent = ?
		WHERE id = ?`,
		sess.RefreshTokenHash, formatTime(sess.ExpiresAt), formatTime(sess.LastSeenAt),
		sess.IPAddress, sess.UserAgent,
		sess.ID,
	)
	if err != nil {
		return err
	}
	return rowsAffected(res, "session")
}

// DeleteSession removes a session by id.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	res, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return rowsAffected(res, "session")
}

// ListUserSessions returns a user's sessions, oldest first.
func (s *Store) ListUserSessions(ctx context.Context, userID string) ([]*domain.Session, error) {
	sessions := []*domain.Session{}
	err := s.pool.Select(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE user_id = ? ORDER BY created_at, id`,
		[]any{userID},
		func(row store.Scanner) error {
			sess, err := scanSession(row)
			if err != nil {
				return err
			}
			sessions = append(sessions, sess)
			return nil
		})
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

// DeleteExpiredSessions removes every session past its expiry and returns
// how many were removed.
func (s *Store) DeleteExpiredSessions(ctx context.Context) (int, error) {
	res, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at < ?`, formatTime(now()))
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, store.Classify(err)
	}
	return int(n), nil
}
