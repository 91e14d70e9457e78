// Package search keeps a full-text index of people so owners can find
// contacts by name, tag, notes and affiliation. Every query is scoped to a
// single owner.
package search

import (
	"strings"

	"github.com/communitymapper/community-mapper/internal/domain"
)

// PersonDocument is the indexed view of a person.
// Tags are denormalized so a single query covers names and tags.
type PersonDocument struct {
	ID             string   `json:"id"`
	UserID         string   `json:"user_id"`
	Name           string   `json:"name"`
	Context        string   `json:"context,omitempty"`
	Proximity      string   `json:"proximity,omitempty"`
	PoliticalParty string   `json:"political_party,omitempty"`
	City           string   `json:"city,omitempty"`
	Notes          string   `json:"notes,omitempty"`
	Tags           []string `json:"tags,omitempty"`
	IsCandidate    bool     `json:"is_candidate"`
	Importance     int      `json:"importance"`
	UpdatedAt      int64    `json:"updated_at"`
}

// FromPerson builds the document for p with its attached tag names.
func FromPerson(p *domain.Person, tags []string) *PersonDocument {
	names := make([]string, 0, len(tags))
	for _, t := range tags {
		names = append(names, strings.ToLower(t))
	}
	return &PersonDocument{
		ID:             p.ID,
		UserID:         p.UserID,
		Name:           p.Name,
		Context:        p.Context,
		Proximity:      p.Proximity,
		PoliticalParty: p.PoliticalParty,
		City:           p.City,
		Notes:          p.Notes,
		Tags:           names,
		IsCandidate:    p.IsCandidate,
		Importance:     p.Importance,
		UpdatedAt:      p.UpdatedAt.Unix(),
	}
}

// ToMap converts the document to the field names used by the mapping.
func (d *PersonDocument) ToMap() map[string]any {
	m := map[string]any{
		"id":           d.ID,
		"user_id":      d.UserID,
		"name":         d.Name,
		"is_candidate": d.IsCandidate,
		"importance":   float64(d.Importance),
		"updated_at":   float64(d.UpdatedAt),
	}
	if d.Context != "" {
		m["context"] = d.Context
	}
	if d.Proximity != "" {
		m["proximity"] = d.Proximity
	}
	if d.PoliticalParty != "" {
		m["political_party"] = d.PoliticalParty
	}
	if d.City != "" {
		m["city"] = d.City
	}
	if d.Notes != "" {
		m["notes"] = d.Notes
	}
	if len(d.Tags) > 0 {
		m["tags"] = d.Tags
	}
	return m
}
