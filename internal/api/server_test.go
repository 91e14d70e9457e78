package api

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"aidanwoods.dev/go-paseto"
	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/require"

	"github.com/communitymapper/community-mapper/internal/auth"
	"github.com/communitymapper/community-mapper/internal/domain"
	"github.com/communitymapper/community-mapper/internal/media"
	"github.com/communitymapper/community-mapper/internal/ratelimit"
	"github.com/communitymapper/community-mapper/internal/search"
	"github.com/communitymapper/community-mapper/internal/service"
	"github.com/communitymapper/community-mapper/internal/store"
	"github.com/communitymapper/community-mapper/internal/store/sqlstore"
	"github.com/communitymapper/community-mapper/internal/validation"
)

const testPassword = "correct horse battery"

// testServer wraps the API server with the pieces tests reach into.
type testServer struct {
	*Server
	api    humatest.TestAPI
	store  *sqlstore.Store
	tokens *auth.TokenService
}

func setupTestServer(t *testing.T) *testServer {
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
	t.Cleanup(func() { _ = pool.Close() })
	st := sqlstore.New(pool, logger)

	index, err := search.NewIndex(search.Options{Logger: logger})
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })

	mediaStore, err := media.NewStore(filepath.Join(dir, "media"), logger)
	require.NoError(t, err)

	v := validation.New()
	tokens := auth.NewTokenService(paseto.NewV4SymmetricKey(), 15*time.Minute, time.Hour)
	limiter := ratelimit.PerMinute(100)
	t.Cleanup(limiter.Stop)

	searchSvc := service.NewSearchService(index, st, logger)
	sessions := service.NewSessionService(st, tokens, logger)
	services := &Services{
		Auth:          service.NewAuthService(st, tokens, sessions, limiter, v, logger),
		People:        service.NewPersonService(st, v, searchSvc, mediaStore, logger),
		Tags:          service.NewTagService(st, v, searchSvc, logger),
		Relationships: service.NewRelationshipService(st, v, logger),
		Media:         service.NewMediaService(st, mediaStore, 1<<20, logger),
		Search:        searchSvc,
	}

	s := NewServer(pool, services, Options{}, logger)
	return &testServer{Server: s, api: humatest.Wrap(t, s.API()), store: st, tokens: tokens}
}

// login creates an account and returns a bearer header for it.
func (ts *testServer) login(t *testing.T, id, email string) string {
	t.Helper()
	hash, err := auth.PasswordParams{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}.Hash(testPassword)
	require.NoError(t, err)
	now := time.Now().UTC()
	require.NoError(t, ts.store.CreateUser(context.Background(), &domain.User{
		ID: id, Email: email, PasswordHash: hash, CreatedAt: now, UpdatedAt: now,
	}))

	resp := ts.api.Post("/auth/login", map[string]any{"email": email, "password": testPassword})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var out service.AuthResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out))
	return "Authorization: Bearer " + out.AccessToken
}

// createPerson posts a minimal person and returns it.
func (ts *testServer) createPerson(t *testing.T, authz, name string) *domain.Person {
	t.Helper()
	resp := ts.api.Post("/people", authz, map[string]any{
		"name": name, "context": "social", "proximity": "primeiro",
	})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	var p domain.Person
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &p))
	return &p
}

func decode[T any](t *testing.T, body *bytes.Buffer) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(body.Bytes(), &v), body.String())
	return v
}

// requireError checks the status and machine-readable code of an error response.
func requireError(t *testing.T, body *bytes.Buffer, code int, gotCode int, want string) {
	t.Helper()
	require.Equal(t, code, gotCode, body.String())
	apiErr := decode[APIError](t, body)
	require.Equal(t, want, apiErr.Code)
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		for y := 0; y < 8; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 30), G: uint8(y * 30), B: 120, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}
