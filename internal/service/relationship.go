package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/communitymapper/community-mapper/internal/domain"
	domainerrors "github.com/communitymapper/community-mapper/internal/errors"
	"github.com/communitymapper/community-mapper/internal/id"
	"github.com/communitymapper/community-mapper/internal/normalize"
	"github.com/communitymapper/community-mapper/internal/store"
	"github.com/communitymapper/community-mapper/internal/store/sqlstore"
	"github.com/communitymapper/community-mapper/internal/validation"
)

// RelationshipService manages undirected edges between a user's people.
type RelationshipService struct {
	store     *sqlstore.Store
	validator *validation.Validator
	logger    *slog.Logger
	now       func() time.Time
}

// NewRelationshipService creates a relationship service.
func NewRelationshipService(store *sqlstore.Store, validator *validation.Validator, logger *slog.Logger) *RelationshipService {
	return &RelationshipService{
		store:     store,
		validator: validator,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// RelationshipInput creates an edge. The two ids may come in either order.
type RelationshipInput struct {
	PersonAID string `json:"person_a_id"`
	PersonBID string `json:"person_b_id"`
	Type      string `json:"type"`
	Strength  *int   `json:"strength,omitempty"`
	Notes     string `json:"notes,omitempty"`
}

// RelationshipPatch updates the descriptive fields of an edge. The endpoints
// never change.
type RelationshipPatch struct {
	Type     *string `json:"type,omitempty"`
	Strength *int    `json:"strength,omitempty"`
	Notes    *string `json:"notes,omitempty"`
}

type relationshipFields struct {
	PersonAID string `json:"person_a_id" validate:"required"`
	PersonBID string `json:"person_b_id" validate:"required"`
	Type      string `json:"type" validate:"notblank,max=50"`
	Strength  int    `json:"strength" validate:"score"`
	Notes     string `json:"notes" validate:"max=5000"`
}

// Create links two of the caller's people. Self edges are rejected; an edge
// that already exists in either order is ALREADY_EXISTS.
func (s *RelationshipService) Create(ctx context.Context, callerID string, in RelationshipInput) (*domain.Relationship, error) {
	fields := relationshipFields{
		PersonAID: in.PersonAID,
		PersonBID: in.PersonBID,
		Type:      normalize.Text(in.Type),
		Strength:  domain.ScoreDefault,
		Notes:     normalize.Notes(in.Notes),
	}
	if in.Strength != nil {
		fields.Strength = *in.Strength
	}
	if err := s.validator.Validate(fields); err != nil {
		return nil, err
	}
	if fields.PersonAID == fields.PersonBID {
		return nil, domainerrors.Validation("a person cannot have a relationship with themselves")
	}

	for _, personID := range []string{fields.PersonAID, fields.PersonBID} {
		if _, err := ownedPerson(ctx, s.store, callerID, personID); err != nil {
			return nil, err
		}
	}

	relID, err := id.Generate(id.PrefixRelationship)
	if err != nil {
		return nil, fmt.Errorf("generate relationship id: %w", err)
	}
	a, b := domain.CanonicalPair(fields.PersonAID, fields.PersonBID)
	now := s.now()
	rel := &domain.Relationship{
		ID:        relID,
		UserID:    callerID,
		PersonAID: a,
		PersonBID: b,
		Type:      fields.Type,
		Strength:  fields.Strength,
		Notes:     fields.Notes,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.store.CreateRelationship(ctx, rel); err != nil {
		if store.KindOf(err) == store.KindAlreadyExists {
			return nil, domainerrors.AlreadyExists("these people are already related").WithCause(err)
		}
		return nil, fromStore(err, "relationship")
	}

	s.logger.Info("relationship created", "relationship_id", rel.ID, "user_id", callerID,
		"person_a_id", a, "person_b_id", b)
	return rel, nil
}

// Get returns an edge owned by the caller.
func (s *RelationshipService) Get(ctx context.Context, callerID, relID string) (*domain.Relationship, error) {
	rel, err := s.store.GetRelationship(ctx, relID)
	if err != nil {
		return nil, fromStore(err, "relationship")
	}
	if err := requireOwner(rel, callerID, "relationship"); err != nil {
		return nil, err
	}
	return rel, nil
}

// ListForPerson returns the edges touching a person owned by the caller.
func (s *RelationshipService) ListForPerson(ctx context.Context, callerID, personID string) ([]*domain.Relationship, error) {
	if _, err := ownedPerson(ctx, s.store, callerID, personID); err != nil {
		return nil, err
	}
	rels, err := s.store.ListRelationshipsForPerson(ctx, personID)
	if err != nil {
		return nil, fromStore(err, "relationships")
	}
	return rels, nil
}

// Update changes the type, strength or notes of an edge.
func (s *RelationshipService) Update(ctx context.Context, callerID, relID string, patch RelationshipPatch) (*domain.Relationship, error) {
	current, err := s.Get(ctx, callerID, relID)
	if err != nil {
		return nil, err
	}

	updated := *current
	if patch.Type != nil {
		updated.Type = normalize.Text(*patch.Type)
	}
	if patch.Strength != nil {
		updated.Strength = *patch.Strength
	}
	if patch.Notes != nil {
		updated.Notes = normalize.Notes(*patch.Notes)
	}
	if err := s.validator.Validate(relationshipFields{
		PersonAID: updated.PersonAID, PersonBID: updated.PersonBID,
		Type: updated.Type, Strength: updated.Strength, Notes: updated.Notes,
	}); err != nil {
		return nil, err
	}
	updated.UpdatedAt = s.now()

	if err := s.store.UpdateRelationship(ctx, &updated); err != nil {
		return nil, fromStore(err, "relationship")
	}
	s.logger.Info("relationship updated", "relationship_id", relID, "user_id", callerID)
	return &updated, nil
}

// Delete removes an edge owned by the caller.
func (s *RelationshipService) Delete(ctx context.Context, callerID, relID string) error {
	if _, err := s.Get(ctx, callerID, relID); err != nil {
		return err
	}
	if err := s.store.DeleteRelationship(ctx, relID, callerID); err != nil {
		return fromStore(err, "relationship")
	}
	s.logger.Info("relationship deleted", "relationship_id", relID, "user_id", callerID)
	return nil
}
