package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/communitymapper/community-mapper/internal/auth"
	"github.com/communitymapper/community-mapper/internal/domain"
	domainerrors "github.com/communitymapper/community-mapper/internal/errors"
	"github.com/communitymapper/community-mapper/internal/id"
	"github.com/communitymapper/community-mapper/internal/media"
	"github.com/communitymapper/community-mapper/internal/normalize"
	"github.com/communitymapper/community-mapper/internal/store"
	"github.com/communitymapper/community-mapper/internal/store/sqlstore"
	"github.com/communitymapper/community-mapper/internal/validation"
)

// UserService provisions accounts. It backs the admin CLI; the HTTP API has
// no sign-up.
type UserService struct {
	store     *sqlstore.Store
	validator *validation.Validator
	search    *SearchService
	media     *media.Store
	logger    *slog.Logger
}

// NewUserService creates a user service. mediaStore may be nil.
func NewUserService(store *sqlstore.Store, validator *validation.Validator, search *SearchService, mediaStore *media.Store, logger *slog.Logger) *UserService {
	return &UserService{store: store, validator: validator, search: search, media: mediaStore, logger: logger}
}

// CreateUserRequest contains the data for a new account.
type CreateUserRequest struct {
	Email       string `json:"email" validate:"required,email,max=254"`
	DisplayName string `json:"display_name" validate:"max=100"`
	Password    string `json:"password" validate:"required,min=8,max=1024"`
}

// CreateUser hashes the password and stores a new account.
func (s *UserService) CreateUser(ctx context.Context, req CreateUserRequest) (*domain.User, error) {
	req.Email = domain.NormalizeEmail(req.Email)
	req.DisplayName = normalize.Text(req.DisplayName)
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, domainerrors.Validation(err.Error())
	}
	userID, err := id.Generate(id.PrefixUser)
	if err != nil {
		return nil, fmt.Errorf("generate user id: %w", err)
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:           userID,
		Email:        req.Email,
		DisplayName:  req.DisplayName,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		if store.KindOf(err) == store.KindAlreadyExists {
			return nil, domainerrors.AlreadyExists("a user with this email already exists").WithCause(err)
		}
		return nil, fromStore(err, "user")
	}

	s.logger.Info("user created", "user_id", user.ID, "email", user.Email)
	return user, nil
}

// ListUsers returns every account ordered by email.
func (s *UserService) ListUsers(ctx context.Context) ([]*domain.User, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, fromStore(err, "users")
	}
	return users, nil
}

// GetUserByEmail looks an account up by email.
func (s *UserService) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fromStore(err, "user")
	}
	return user, nil
}

// DeleteUser removes an account with everything it owns, including its
// people's media and search documents.
func (s *UserService) DeleteUser(ctx context.Context, userID string) error {
	people, err := s.store.ListPeopleForUser(ctx, userID)
	if err != nil {
		return fromStore(err, "people")
	}
	if err := s.store.DeleteUser(ctx, userID); err != nil {
		return fromStore(err, "user")
	}

	for _, p := range people {
		if s.media != nil {
			if err := s.media.RemoveAll(p.ID); err != nil {
				s.logger.Warn("failed to remove person media", "person_id", p.ID, "error", err)
			}
		}
		s.search.RemovePerson(p.ID)
	}
	s.logger.Info("user deleted", "user_id", userID, "people", len(people))
	return nil
}
