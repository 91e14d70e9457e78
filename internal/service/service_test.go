package service

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"aidanwoods.dev/go-paseto"
	"github.com/stretchr/testify/require"

	"github.com/communitymapper/community-mapper/internal/auth"
	"github.com/communitymapper/community-mapper/internal/domain"
	domainerrors "github.com/communitymapper/community-mapper/internal/errors"
	"github.com/communitymapper/community-mapper/internal/media"
	"github.com/communitymapper/community-mapper/internal/ratelimit"
	"github.com/communitymapper/community-mapper/internal/search"
	"github.com/communitymapper/community-mapper/internal/store"
	"github.com/communitymapper/community-mapper/internal/store/sqlstore"
	"github.com/communitymapper/community-mapper/internal/validation"
)

const testPassword = "correct horse battery"

var cheapParams = auth.PasswordParams{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

type testEnv struct {
	store      *sqlstore.Store
	index      *search.Index
	mediaStore *media.Store
	tokens     *auth.TokenService
	limiter    *ratelimit.Limiter

	searchSvc *SearchService
	people    *PersonService
	tags      *TagService
	rels      *RelationshipService
	media     *MediaService
	sessions  *SessionService
	auth      *AuthService
	users     *UserService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dir := t.TempDir()

	pool := store.NewPool(store.PoolConfig{
		Dialect:      store.DialectSQLite,
		DSN:          "file:" + filepath.Join(dir, "test.db") + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)",
		MaxOpenConns: 4,
		MaxIdleConns: 2,
		QueryTimeout: 5 * time.Second,
		Schema:       sqlstore.Schema(store.DialectSQLite),
	}, logger)
	t.Cleanup(func() { pool.Close() })
	st := sqlstore.New(pool, logger)

	index, err := search.NewIndex(search.Options{Logger: logger})
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })

	mediaStore, err := media.NewStore(filepath.Join(dir, "media"), logger)
	require.NoError(t, err)

	v := validation.New()
	tokens := auth.NewTokenService(paseto.NewV4SymmetricKey(), 15*time.Minute, time.Hour)
	limiter := ratelimit.PerMinute(5)
	t.Cleanup(limiter.Stop)

	env := &testEnv{store: st, index: index, mediaStore: mediaStore, tokens: tokens, limiter: limiter}
	env.searchSvc = NewSearchService(index, st, logger)
	env.people = NewPersonService(st, v, env.searchSvc, mediaStore, logger)
	env.tags = NewTagService(st, v, env.searchSvc, logger)
	env.rels = NewRelationshipService(st, v, logger)
	env.media = NewMediaService(st, mediaStore, 1<<20, logger)
	env.sessions = NewSessionService(st, tokens, logger)
	env.auth = NewAuthService(st, tokens, env.sessions, limiter, v, logger)
	env.users = NewUserService(st, v, env.searchSvc, mediaStore, logger)
	return env
}

// user stores an account directly with a cheap password hash.
func (e *testEnv) user(t *testing.T, id, email string) *domain.User {
	t.Helper()
	hash, err := cheapParams.Hash(testPassword)
	require.NoError(t, err)
	now := time.Now().UTC()
	u := &domain.User{ID: id, Email: email, PasswordHash: hash, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, e.store.CreateUser(context.Background(), u))
	return u
}

func (e *testEnv) person(t *testing.T, userID, name string) *domain.Person {
	t.Helper()
	p, err := e.people.Create(context.Background(), userID, PersonInput{Name: name, Context: "social", Proximity: "primeiro"})
	require.NoError(t, err)
	return p
}

func ptr[T any](v T) *T { return &v }

func requireCode(t *testing.T, want domainerrors.Code, err error) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, want, domainerrors.CodeOf(err), "error: %v", err)
}
