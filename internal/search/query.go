package search

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
)

// DefaultLimit and MaxLimit bound the number of hits per query.
const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Params configures a people search.
type Params struct {
	UserID string // required; results never cross owners
	Query  string
	Tags   []string // every listed tag must be attached
	Limit  int
	Offset int
}

// Result is a page of hits.
type Result struct {
	Query  string `json:"query"`
	Total  uint64 `json:"total"`
	TookMs int64  `json:"took_ms"`
	Hits   []Hit  `json:"hits"`
}

// Hit is one matching person.
type Hit struct {
	ID         string            `json:"id"`
	Score      float64           `json:"score"`
	Name       string            `json:"name"`
	City       string            `json:"city,omitempty"`
	Tags       []string          `json:"tags,omitempty"`
	Highlights map[string]string `json:"highlights,omitempty"`
}

// ErrNoUser is returned when a search is not scoped to an owner.
var ErrNoUser = errors.New("search: user id is required")

// Search runs a scoped query.
func (s *Index) Search(ctx context.Context, params Params) (*Result, error) {
	if params.UserID == "" {
		return nil, ErrNoUser
	}
	limit := params.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	req := bleve.NewSearchRequestOptions(buildQuery(params), limit, max(params.Offset, 0), false)
	if strings.TrimSpace(params.Query) == "" {
		req.SortBy([]string{"name", "_id"})
	} else {
		req.SortBy([]string{"-_score", "name"})
		req.Highlight = bleve.NewHighlight()
		req.Highlight.AddField("name")
	}
	req.Fields = []string{"id", "name", "city", "tags"}

	res, err := s.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("execute search: %w", err)
	}

	out := &Result{
		Query:  params.Query,
		Total:  res.Total,
		TookMs: res.Took.Milliseconds(),
		Hits:   make([]Hit, 0, len(res.Hits)),
	}
	for _, h := range res.Hits {
		hit := Hit{ID: h.ID, Score: h.Score}
		if n, ok := h.Fields["name"].(string); ok {
			hit.Name = n
		}
		if c, ok := h.Fields["city"].(string); ok {
			hit.City = c
		}
		hit.Tags = stringSlice(h.Fields["tags"])
		if len(h.Fragments) > 0 {
			hit.Highlights = make(map[string]string)
			for field, fragments := range h.Fragments {
				if len(fragments) > 0 {
					hit.Highlights[field] = fragments[0]
				}
			}
		}
		out.Hits = append(out.Hits, hit)
	}
	return out, nil
}

// buildQuery ANDs the owner filter with the text and tag clauses.
func buildQuery(params Params) query.Query {
	owner := bleve.NewTermQuery(params.UserID)
	owner.SetField("user_id")
	queries := []query.Query{owner}

	if q := strings.TrimSpace(params.Query); q != "" {
		lower := strings.ToLower(q)

		nameMatch := bleve.NewMatchQuery(q)
		nameMatch.SetField("name")
		nameMatch.SetBoost(3.0)

		tagMatch := bleve.NewTermQuery(lower)
		tagMatch.SetField("tags")
		tagMatch.SetBoost(2.0)

		notesMatch := bleve.NewMatchQuery(q)
		notesMatch.SetField("notes")

		cityMatch := bleve.NewMatchQuery(q)
		cityMatch.SetField("city")

		partyMatch := bleve.NewMatchQuery(q)
		partyMatch.SetField("political_party")

		fuzzy := bleve.NewFuzzyQuery(lower)
		fuzzy.SetFuzziness(1)
		fuzzy.SetField("name")
		fuzzy.SetBoost(0.8)

		text := []query.Query{nameMatch, tagMatch, notesMatch, cityMatch, partyMatch, fuzzy}

		if len(lower) >= 2 {
			prefix := bleve.NewPrefixQuery(lower)
			prefix.SetField("name")
			prefix.SetBoost(0.5)
			text = append(text, prefix)
		}
		queries = append(queries, bleve.NewDisjunctionQuery(text...))
	}

	for _, tag := range params.Tags {
		tq := bleve.NewTermQuery(strings.ToLower(tag))
		tq.SetField("tags")
		queries = append(queries, tq)
	}

	if len(queries) == 1 {
		return queries[0]
	}
	return bleve.NewConjunctionQuery(queries...)
}

// stringSlice reads a stored field that Bleve returns as a string when it
// holds one value and as []any when it holds several.
func stringSlice(v any) []string {
	switch t := v.(type) {
	case string:
		return []string{t}
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
