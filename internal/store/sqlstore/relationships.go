package sqlstore

import (
	"context"

	"github.com/communitymapper/community-mapper/internal/domain"
	"github.com/communitymapper/community-mapper/internal/store"
)

const relationshipColumns = `id, user_id, person_a_id, person_b_id, type, strength, notes, created_at, updated_at`

func scanRelationship(scanner store.Scanner) (*domain.Relationship, error) {
	var (
		r                    domain.Relationship
		createdAt, updatedAt string
	)
	err := scanner.Scan(&r.ID, &r.UserID, &r.PersonAID, &r.PersonBID,
		&r.Type, &r.Strength, &r.Notes, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	if err := parseCreatedUpdated(createdAt, updatedAt, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	return &r, nil
}

// CreateRelationship inserts an edge. The caller must already have put the
// pair in canonical order. Returns store.ErrAlreadyExists for an existing pair
// and store.ErrRejected for a self edge or a pair out of order.
func (s *Store) CreateRelationship(ctx context.Context, r *domain.Relationship) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO person_relationships (`+relationshipColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.UserID, r.PersonAID, r.PersonBID, r.Type, r.Strength, r.Notes,
		formatTime(r.CreatedAt), formatTime(r.UpdatedAt),
	)
	return err
}

// GetRelationship retrieves an edge by id regardless of owner.
func (s *Store) GetRelationship(ctx context.Context, id string) (*domain.Relationship, error) {
	var r *domain.Relationship
	err := s.pool.Get(ctx,
		`SELECT `+relationshipColumns+` FROM person_relationships WHERE id = ?`, []any{id},
		func(row store.Scanner) (err error) {
			r, err = scanRelationship(row)
			return err
		})
	if err != nil {
		return nil, err
	}
	return r, nil
}

// ListRelationshipsForPerson returns every edge touching personID, oldest first.
func (s *Store) ListRelationshipsForPerson(ctx context.Context, personID string) ([]*domain.Relationship, error) {
	rels := []*domain.Relationship{}
	err := s.pool.Select(ctx, `
		SELECT `+relationshipColumns+` FROM person_relationships
		WHERE person_a_id = ? OR person_b_id = ?
		ORDER BY created_at, id`,
		[]any{personID, personID},
		func(row store.Scanner) error {
			r, err := scanRelationship(row)
			if err != nil {
				return err
			}
			rels = append(rels, r)
			return nil
		})
	if err != nil {
		return nil, err
	}
	return rels, nil
}

// UpdateRelationship writes type, strength and notes. The endpoints never change.
func (s *Store) UpdateRelationship(ctx context.Context, r *domain.Relationship) error {
	res, err := s.pool.Exec(ctx, `
		UPDATE person_relationships SET type = ?, strength = ?, notes = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		r.Type, r.Strength, r.Notes, formatTime(r.UpdatedAt), r.ID, r.UserID,
	)
	if err != nil {
		return err
	}
	return rowsAffected(res, "relationship")
}

// DeleteRelationship removes one edge owned by userID.
func (s *Store) DeleteRelationship(ctx context.Context, id, userID string) error {
	res, err := s.pool.Exec(ctx,
		`DELETE FROM person_relationships WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return err
	}
	return rowsAffected(res, "relationship")
}
