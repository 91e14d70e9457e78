package sqlstore

import (
	"context"

	"github.com/communitymapper/community-mapper/internal/domain"
	"github.com/communitymapper/community-mapper/internal/store"
)

// userColumns must match the scan order in scanUser.
const userColumns = `id, email, display_name, password_hash, created_at, updated_at`

func scanUser(scanner store.Scanner) (*domain.User, error) {
	var (
		u                    domain.User
		createdAt, updatedAt string
	)
	if err := scanner.Scan(&u.ID, &u.Email, &u.DisplayName, &u.PasswordHash, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	if err := parseCreatedUpdated(createdAt, updatedAt, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateUser inserts a new user. The email is stored normalized.
// Returns store.ErrAlreadyExists when the email is taken.
func (s *Store) CreateUser(ctx context.Context, u *domain.User) error {
	u.Email = domain.NormalizeEmail(u.Email)
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES (?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.DisplayName, u.PasswordHash,
		formatTime(u.CreatedAt), formatTime(u.UpdatedAt),
	)
	return err
}

func (s *Store) getUser(ctx context.Context, query string, arg string) (*domain.User, error) {
	var u *domain.User
	err := s.pool.Get(ctx, query, []any{arg}, func(row store.Scanner) (err error) {
		u, err = scanUser(row)
		return err
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

// GetUser retrieves a user by id.
func (s *Store) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return s.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

// GetUserByEmail retrieves a user by email, ignoring case and surrounding space.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, domain.NormalizeEmail(email))
}

// ListUsers returns all users ordered by email.
func (s *Store) ListUsers(ctx context.Context) ([]*domain.User, error) {
	users := []*domain.User{}
	err := s.pool.Select(ctx, `SELECT `+userColumns+` FROM users ORDER BY email`, nil,
		func(row store.Scanner) error {
			u, err := scanUser(row)
			if err != nil {
				return err
			}
			users = append(users, u)
			return nil
		})
	if err != nil {
		return nil, err
	}
	return users, nil
}

// DeleteUser removes a user. Foreign keys cascade to everything the user owns.
func (s *Store) DeleteUser(ctx context.Context, id string) error {
	res, err := s.pool.Exec(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return rowsAffected(res, "user")
}
