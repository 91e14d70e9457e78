package api

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/communitymapper/community-mapper/internal/domain"
	"github.com/communitymapper/community-mapper/internal/export"
	"github.com/communitymapper/community-mapper/internal/search"
)

func TestCreatePerson_Created(t *testing.T) {
	ts := setupTestServer(t)
	authz := ts.login(t, "usr-1", "ana@example.com")

	resp := ts.api.Post("/people", authz, map[string]any{
		"name":       "  Maria   Silva ",
		"context":    "social",
		"proximity":  "primeiro",
		"importance": 4,
		"user_id":    "usr-evil",
		"unknown":    "ignored",
	})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	p := decode[domain.Person](t, resp.Body)
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, "usr-1", p.UserID, "owner comes from the session")
	assert.Equal(t, "Maria Silva", p.Name)
	assert.Equal(t, 4, p.Importance)
}

func TestCreatePerson_MissingName(t *testing.T) {
	ts := setupTestServer(t)
	authz := ts.login(t, "usr-1", "ana@example.com")

	resp := ts.api.Post("/people", authz, map[string]any{"context": "social", "proximity": "primeiro"})
	requireError(t, resp.Body, http.StatusBadRequest, resp.Code, "VALIDATION_ERROR")
}

func TestCreatePerson_MalformedBody(t *testing.T) {
	ts := setupTestServer(t)
	authz := ts.login(t, "usr-1", "ana@example.com")

	resp := ts.api.Post("/people", authz, "Content-Type: application/json", strings.NewReader("{not json"))
	requireError(t, resp.Body, http.StatusBadRequest, resp.Code, "VALIDATION_ERROR")
}

func TestGetPeople_ScopedByOwner(t *testing.T) {
	ts := setupTestServer(t)
	ana := ts.login(t, "usr-1", "ana@example.com")
	bruno := ts.login(t, "usr-2", "bruno@example.com")
	mine := ts.createPerson(t, ana, "Carla")
	ts.createPerson(t, ana, "Alice")
	theirs := ts.createPerson(t, bruno, "Davi")

	resp := ts.api.Get("/people", ana)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	list := decode[PeopleResponse](t, resp.Body)
	require.Len(t, list.People, 2)
	assert.Equal(t, "Alice", list.People[0].Name)

	resp = ts.api.Get("/people?id="+mine.ID, ana)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "Carla", decode[domain.Person](t, resp.Body).Name)

	resp = ts.api.Get("/people?id="+theirs.ID, ana)
	requireError(t, resp.Body, http.StatusForbidden, resp.Code, "FORBIDDEN")

	resp = ts.api.Get("/people?id=missing", ana)
	requireError(t, resp.Body, http.StatusNotFound, resp.Code, "NOT_FOUND")
}

func TestGetPeople_OpenAPISchema(t *testing.T) {
	ts := setupTestServer(t)
	oapi := ts.API().OpenAPI()

	op := oapi.Paths["/people"].Get
	require.NotNil(t, op)
	schema := op.Responses["200"].Content["application/json"].Schema
	require.NotNil(t, schema)
	if schema.Ref != "" {
		schema = oapi.Components.Schemas.SchemaFromRef(schema.Ref)
	}
	require.Len(t, schema.OneOf, 2)

	var refs []string
	for _, s := range schema.OneOf {
		refs = append(refs, s.Ref)
	}
	assert.Contains(t, refs, "#/components/schemas/PeopleResponse")
	assert.Contains(t, refs, "#/components/schemas/Person")
}

func TestUpdatePerson(t *testing.T) {
	ts := setupTestServer(t)
	ana := ts.login(t, "usr-1", "ana@example.com")
	bruno := ts.login(t, "usr-2", "bruno@example.com")
	p := ts.createPerson(t, ana, "Carla")

	resp := ts.api.Put("/people", ana, map[string]any{"id": p.ID, "city": "Recife", "trust_level": 5})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	updated := decode[domain.Person](t, resp.Body)
	assert.Equal(t, "Recife", updated.City)
	assert.Equal(t, 5, updated.TrustLevel)
	assert.Equal(t, "Carla", updated.Name)

	resp = ts.api.Put("/people", bruno, map[string]any{"id": p.ID, "city": "Natal"})
	requireError(t, resp.Body, http.StatusForbidden, resp.Code, "FORBIDDEN")

	resp = ts.api.Put("/people", ana, map[string]any{"id": "missing", "city": "Natal"})
	requireError(t, resp.Body, http.StatusNotFound, resp.Code, "NOT_FOUND")

	resp = ts.api.Put("/people", ana, map[string]any{"city": "Natal"})
	requireError(t, resp.Body, http.StatusBadRequest, resp.Code, "VALIDATION_ERROR")

	resp = ts.api.Put("/people", ana, map[string]any{"id": p.ID, "trust_level": 9})
	requireError(t, resp.Body, http.StatusBadRequest, resp.Code, "VALIDATION_ERROR")
}

func TestDeletePerson(t *testing.T) {
	ts := setupTestServer(t)
	ana := ts.login(t, "usr-1", "ana@example.com")
	bruno := ts.login(t, "usr-2", "bruno@example.com")
	p := ts.createPerson(t, ana, "Carla")

	resp := ts.api.Delete("/people?id="+p.ID, bruno)
	requireError(t, resp.Body, http.StatusForbidden, resp.Code, "FORBIDDEN")

	resp = ts.api.Delete("/people?id="+p.ID, ana)
	require.Equal(t, http.StatusNoContent, resp.Code, resp.Body.String())

	resp = ts.api.Delete("/people?id="+p.ID, ana)
	requireError(t, resp.Body, http.StatusNotFound, resp.Code, "NOT_FOUND")
}

func TestSearchPeople(t *testing.T) {
	ts := setupTestServer(t)
	ana := ts.login(t, "usr-1", "ana@example.com")
	bruno := ts.login(t, "usr-2", "bruno@example.com")
	ts.createPerson(t, ana, "Joana Prado")
	ts.createPerson(t, bruno, "Joana Costa")

	resp := ts.api.Get("/people/search?q=joana", ana)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	res := decode[search.Result](t, resp.Body)
	require.Len(t, res.Hits, 1)
	assert.Equal(t, "Joana Prado", res.Hits[0].Name)
}

func TestSearchPeople_TagAndOffset(t *testing.T) {
	ts := setupTestServer(t)
	ana := ts.login(t, "usr-1", "ana@example.com")
	bia := ts.createPerson(t, ana, "Bia")
	ts.createPerson(t, ana, "Caio")
	dani := ts.createPerson(t, ana, "Dani")
	for _, p := range []string{bia.ID, dani.ID} {
		resp := ts.api.Post("/tags", ana, map[string]any{"personId": p, "name": "Volunteer"})
		require.Contains(t, []int{http.StatusCreated, http.StatusOK}, resp.Code, resp.Body.String())
	}

	resp := ts.api.Get("/people/search?tag=Volunteer", ana)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	res := decode[search.Result](t, resp.Body)
	require.Len(t, res.Hits, 2)
	assert.Equal(t, "Bia", res.Hits[0].Name)

	resp = ts.api.Get("/people/search?tag=Volunteer&offset=1", ana)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	res = decode[search.Result](t, resp.Body)
	require.Len(t, res.Hits, 1)
	assert.Equal(t, "Dani", res.Hits[0].Name)
}

func TestExportPeople(t *testing.T) {
	ts := setupTestServer(t)
	ana := ts.login(t, "usr-1", "ana@example.com")
	ts.createPerson(t, ana, "Carla")

	resp := ts.api.Get("/people/export", ana)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, export.ContentType, resp.Header().Get("Content-Type"))
	assert.Contains(t, resp.Header().Get("Content-Disposition"), "attachment")
	assert.True(t, strings.HasPrefix(resp.Body.String(), "PK"), "xlsx is a zip archive")
}
