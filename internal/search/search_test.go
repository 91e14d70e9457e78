package search

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/communitymapper/community-mapper/internal/domain"
)

func setupTestIndex(t *testing.T) *Index {
	t.Helper()
	index, err := NewIndex(Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })
	return index
}

func person(id, userID, name string) *domain.Person {
	return &domain.Person{
		ID: id, UserID: userID, Name: name,
		Context: "social", Proximity: "primeiro",
		UpdatedAt: time.Now(),
	}
}

func seed(t *testing.T, index *Index) {
	t.Helper()
	ana := person("per-1", "usr-42", "Ana")
	ana.City = "Recife"
	ana.Notes = "Runs the neighbourhood association meetings"
	bruno := person("per-2", "usr-42", "Bruno")
	bruno.PoliticalParty = "Verde"
	otherAna := person("per-3", "usr-99", "Ana")

	require.NoError(t, index.IndexPeople([]*PersonDocument{
		FromPerson(ana, []string{"Volunteer", "Major donor"}),
		FromPerson(bruno, []string{"Volunteer"}),
		FromPerson(otherAna, nil),
	}))
}

func ids(res *Result) []string {
	out := make([]string, 0, len(res.Hits))
	for _, h := range res.Hits {
		out = append(out, h.ID)
	}
	return out
}

func TestNewIndex_Memory(t *testing.T) {
	index := setupTestIndex(t)

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)
}

func TestNewIndex_OnDiskReopen(t *testing.T) {
	dir := t.TempDir()

	index, err := NewIndex(Options{DataPath: dir})
	require.NoError(t, err)
	require.NoError(t, index.IndexPerson(FromPerson(person("per-1", "usr-1", "Ana"), nil)))
	require.NoError(t, index.Close())

	version, err := os.ReadFile(filepath.Join(dir, "search.version"))
	require.NoError(t, err)
	assert.Equal(t, mappingVersion, string(version))

	index, err = NewIndex(Options{DataPath: dir})
	require.NoError(t, err)
	defer index.Close()

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
}

func TestNewIndex_StaleVersionRebuilds(t *testing.T) {
	dir := t.TempDir()

	index, err := NewIndex(Options{DataPath: dir})
	require.NoError(t, err)
	require.NoError(t, index.IndexPerson(FromPerson(person("per-1", "usr-1", "Ana"), nil)))
	require.NoError(t, index.Close())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "search.version"), []byte("0"), 0o644))

	index, err = NewIndex(Options{DataPath: dir})
	require.NoError(t, err)
	defer index.Close()

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count, "stale index must start empty")
}

func TestSearch_ScopedToOwner(t *testing.T) {
	index := setupTestIndex(t)
	seed(t, index)
	ctx := context.Background()

	res, err := index.Search(ctx, Params{UserID: "usr-42", Query: "ana"})
	require.NoError(t, err)
	assert.Equal(t, []string{"per-1"}, ids(res))

	res, err = index.Search(ctx, Params{UserID: "usr-99", Query: "ana"})
	require.NoError(t, err)
	assert.Equal(t, []string{"per-3"}, ids(res))

	res, err = index.Search(ctx, Params{UserID: "usr-7", Query: "ana"})
	require.NoError(t, err)
	assert.Empty(t, res.Hits)
}

func TestSearch_RequiresOwner(t *testing.T) {
	index := setupTestIndex(t)
	_, err := index.Search(context.Background(), Params{Query: "ana"})
	assert.ErrorIs(t, err, ErrNoUser)
}

func TestSearch_EmptyQueryListsOwnerPeople(t *testing.T) {
	index := setupTestIndex(t)
	seed(t, index)

	res, err := index.Search(context.Background(), Params{UserID: "usr-42"})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), res.Total)
	assert.ElementsMatch(t, []string{"per-1", "per-2"}, ids(res))
}

func TestSearch_Fields(t *testing.T) {
	index := setupTestIndex(t)
	seed(t, index)
	ctx := context.Background()

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"tag", "volunteer", []string{"per-1", "per-2"}},
		{"compound tag", "Major donor", []string{"per-1"}},
		{"city", "recife", []string{"per-1"}},
		{"party", "verde", []string{"per-2"}},
		{"notes stemmed", "meeting", []string{"per-1"}},
		{"fuzzy name", "brunp", []string{"per-2"}},
		{"name prefix", "bru", []string{"per-2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := index.Search(ctx, Params{UserID: "usr-42", Query: tt.query})
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.want, ids(res))
		})
	}
}

func TestSearch_TagFilter(t *testing.T) {
	index := setupTestIndex(t)
	seed(t, index)

	res, err := index.Search(context.Background(), Params{UserID: "usr-42", Tags: []string{"major donor"}})
	require.NoError(t, err)
	require.Len(t, res.Hits, 1)
	assert.Equal(t, "per-1", res.Hits[0].ID)
	assert.ElementsMatch(t, []string{"volunteer", "major donor"}, res.Hits[0].Tags)
}

func TestSearch_LimitIsCapped(t *testing.T) {
	index := setupTestIndex(t)
	docs := make([]*PersonDocument, 0, MaxLimit+10)
	for i := range MaxLimit + 10 {
		docs = append(docs, FromPerson(person(fmt.Sprintf("per-%03d", i), "usr-1", "Name"), nil))
	}
	require.NoError(t, index.IndexPeople(docs))

	res, err := index.Search(context.Background(), Params{UserID: "usr-1", Limit: 1000})
	require.NoError(t, err)
	assert.Len(t, res.Hits, MaxLimit)
	assert.Equal(t, uint64(MaxLimit+10), res.Total)
}

func TestDeleteAndRebuild(t *testing.T) {
	index := setupTestIndex(t)
	seed(t, index)

	require.NoError(t, index.DeletePerson("per-1"))
	require.NoError(t, index.DeletePerson("per-missing"))
	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), count)

	require.NoError(t, index.DeletePeople([]string{"per-2", "per-3"}))
	count, _ = index.DocumentCount()
	assert.Equal(t, uint64(0), count)

	seed(t, index)
	require.NoError(t, index.Rebuild())
	count, _ = index.DocumentCount()
	assert.Equal(t, uint64(0), count)
}
