package service

import (
	"context"
	"log/slog"
	"slices"
	"strings"

	"github.com/communitymapper/community-mapper/internal/domain"
	"github.com/communitymapper/community-mapper/internal/search"
	"github.com/communitymapper/community-mapper/internal/store/sqlstore"
)

// SearchService keeps the people index in step with the database and runs
// owner-scoped searches. A nil index disables full-text search; queries then
// fall back to a substring scan over the owner's people.
type SearchService struct {
	index  *search.Index
	store  *sqlstore.Store
	logger *slog.Logger
}

// NewSearchService creates a search service. index may be nil.
func NewSearchService(index *search.Index, store *sqlstore.Store, logger *slog.Logger) *SearchService {
	return &SearchService{index: index, store: store, logger: logger}
}

// Enabled reports whether a full-text index is attached.
func (s *SearchService) Enabled() bool {
	return s.index != nil
}

// DocumentCount returns the number of indexed people, or 0 without an index.
func (s *SearchService) DocumentCount() (uint64, error) {
	if s.index == nil {
		return 0, nil
	}
	return s.index.DocumentCount()
}

// IndexPerson (re)indexes p with its current tags. Failures are logged and
// swallowed: the index is derived data and never blocks a write.
func (s *SearchService) IndexPerson(ctx context.Context, p *domain.Person) {
	if s.index == nil {
		return
	}
	tags, err := s.store.ListTagsForPerson(ctx, p.ID)
	if err != nil {
		s.logger.Warn("failed to load tags for indexing", "person_id", p.ID, "error", err)
		return
	}
	names := make([]string, len(tags))
	for i, t := range tags {
		names[i] = t.Name
	}
	if err := s.index.IndexPerson(search.FromPerson(p, names)); err != nil {
		s.logger.Warn("failed to index person", "person_id", p.ID, "error", err)
	}
}

// ReindexPeople reindexes the given people, skipping any that are gone.
func (s *SearchService) ReindexPeople(ctx context.Context, personIDs []string) {
	if s.index == nil {
		return
	}
	for _, id := range personIDs {
		p, err := s.store.GetPerson(ctx, id)
		if err != nil {
			s.logger.Debug("skipping reindex", "person_id", id, "error", err)
			continue
		}
		s.IndexPerson(ctx, p)
	}
}

// RemovePerson drops a person from the index.
func (s *SearchService) RemovePerson(personID string) {
	if s.index == nil {
		return
	}
	if err := s.index.DeletePerson(personID); err != nil {
		s.logger.Warn("failed to remove person from index", "person_id", personID, "error", err)
	}
}

// Reindex rebuilds the index from every person in the database.
func (s *SearchService) Reindex(ctx context.Context) (int, error) {
	if s.index == nil {
		return 0, nil
	}
	people, err := s.store.ListAllPeople(ctx)
	if err != nil {
		return 0, fromStore(err, "people")
	}

	tagsByOwner := make(map[string]map[string][]string)
	docs := make([]*search.PersonDocument, 0, len(people))
	for _, p := range people {
		names, ok := tagsByOwner[p.UserID]
		if !ok {
			names, err = s.store.TagNamesByPerson(ctx, p.UserID)
			if err != nil {
				return 0, fromStore(err, "tags")
			}
			tagsByOwner[p.UserID] = names
		}
		docs = append(docs, search.FromPerson(p, names[p.ID]))
	}

	if err := s.index.Rebuild(); err != nil {
		return 0, err
	}
	if err := s.index.IndexPeople(docs); err != nil {
		return 0, err
	}
	s.logger.Info("search index rebuilt", "people", len(docs))
	return len(docs), nil
}

// EnsureIndexed rebuilds the index when it is empty but people exist.
func (s *SearchService) EnsureIndexed(ctx context.Context) error {
	if s.index == nil {
		return nil
	}
	count, err := s.index.DocumentCount()
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	_, err = s.Reindex(ctx)
	return err
}

// Search returns the owner's people matching params. params.UserID scopes
// the query and must be set.
func (s *SearchService) Search(ctx context.Context, params search.Params) (*search.Result, error) {
	if s.index != nil {
		return s.index.Search(ctx, params)
	}
	return s.scan(ctx, params)
}

// scan is the fallback used when the index is disabled.
func (s *SearchService) scan(ctx context.Context, params search.Params) (*search.Result, error) {
	if params.UserID == "" {
		return nil, search.ErrNoUser
	}
	limit := params.Limit
	if limit <= 0 {
		limit = search.DefaultLimit
	}
	limit = min(limit, search.MaxLimit)
	offset := max(params.Offset, 0)

	people, err := s.store.ListPeopleForUser(ctx, params.UserID)
	if err != nil {
		return nil, fromStore(err, "people")
	}
	tags, err := s.store.TagNamesByPerson(ctx, params.UserID)
	if err != nil {
		return nil, fromStore(err, "tags")
	}

	q := strings.ToLower(strings.TrimSpace(params.Query))
	res := &search.Result{Query: params.Query, Hits: []search.Hit{}}
	for _, p := range people {
		if q != "" && !matches(p, tags[p.ID], q) {
			continue
		}
		if !hasAllTags(tags[p.ID], params.Tags) {
			continue
		}
		res.Total++
		if res.Total <= uint64(offset) || len(res.Hits) >= limit {
			continue
		}
		res.Hits = append(res.Hits, search.Hit{ID: p.ID, Score: 1, Name: p.Name, City: p.City, Tags: tags[p.ID]})
	}
	return res, nil
}

func hasAllTags(have, want []string) bool {
	for _, w := range want {
		if !slices.ContainsFunc(have, func(t string) bool { return strings.EqualFold(t, w) }) {
			return false
		}
	}
	return true
}

func matches(p *domain.Person, tags []string, q string) bool {
	fields := []string{p.Name, p.City, p.PoliticalParty, p.Notes}
	if slices.ContainsFunc(fields, func(f string) bool { return strings.Contains(strings.ToLower(f), q) }) {
		return true
	}
	return slices.ContainsFunc(tags, func(t string) bool { return strings.EqualFold(t, q) })
}
