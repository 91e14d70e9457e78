package sqlstore

import (
	"context"

	"github.com/communitymapper/community-mapper/internal/domain"
	"github.com/communitymapper/community-mapper/internal/store"
)

// personColumns must match the scan order in scanPerson.
const personColumns = `id, user_id, name, context, proximity,
	importance, trust_level, influence_level,
	political_party, political_position, is_candidate, candidate_office,
	email, phone, address, city, notes, photo_ref,
	created_at, updated_at`

func scanPerson(scanner store.Scanner) (*domain.Person, error) {
	var (
		p                    domain.Person
		createdAt, updatedAt string
	)
	err := scanner.Scan(
		&p.ID, &p.UserID, &p.Name, &p.Context, &p.Proximity,
		&p.Importance, &p.TrustLevel, &p.InfluenceLevel,
		&p.PoliticalParty, &p.PoliticalPosition, &p.IsCandidate, &p.CandidateOffice,
		&p.Email, &p.Phone, &p.Address, &p.City, &p.Notes, &p.PhotoRef,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := parseCreatedUpdated(createdAt, updatedAt, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

// ListPeopleForUser returns every person owned by userID, ordered by name
// (case-insensitive) and then id.
func (s *Store) ListPeopleForUser(ctx context.Context, userID string) ([]*domain.Person, error) {
	people := []*domain.Person{}
	err := s.pool.Select(ctx,
		`SELECT `+personColumns+` FROM people WHERE user_id = ? ORDER BY LOWER(name), name, id`,
		[]any{userID},
		func(row store.Scanner) error {
			p, err := scanPerson(row)
			if err != nil {
				return err
			}
			people = append(people, p)
			return nil
		})
	if err != nil {
		return nil, err
	}
	return people, nil
}

// ListAllPeople returns every person in the database. Used to rebuild the
// search index.
func (s *Store) ListAllPeople(ctx context.Context) ([]*domain.Person, error) {
	var people []*domain.Person
	err := s.pool.Select(ctx, `SELECT `+personColumns+` FROM people ORDER BY id`, nil,
		func(row store.Scanner) error {
			p, err := scanPerson(row)
			if err != nil {
				return err
			}
			people = append(people, p)
			return nil
		})
	return people, err
}

// GetPerson retrieves a person by id regardless of owner.
// Returns store.ErrNotFound if the person does not exist.
func (s *Store) GetPerson(ctx context.Context, id string) (*domain.Person, error) {
	var p *domain.Person
	err := s.pool.Get(ctx, `SELECT `+personColumns+` FROM people WHERE id = ?`, []any{id},
		func(row store.Scanner) (err error) {
			p, err = scanPerson(row)
			return err
		})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// CreatePerson inserts a new person.
func (s *Store) CreatePerson(ctx context.Context, p *domain.Person) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO people (`+personColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.UserID, p.Name, p.Context, p.Proximity,
		p.Importance, p.TrustLevel, p.InfluenceLevel,
		p.PoliticalParty, p.PoliticalPosition, p.IsCandidate, p.CandidateOffice,
		p.Email, p.Phone, p.Address, p.City, p.Notes,
		formatTime(p.CreatedAt), formatTime(p.UpdatedAt),
	)
	return err
}

// UpdatePerson writes the mutable columns of p. The row is matched on both
// id and owner; id, user_id, created_at and photo_ref are never written.
// SetPersonPhoto owns photo_ref.
// Returns store.ErrNotFound when no row matches.
func (s *Store) UpdatePerson(ctx context.Context, p *domain.Person) error {
	res, err := s.pool.Exec(ctx, `
		UPDATE people SET
			name = ?, context = ?, proximity = ?,
			importance = ?, trust_level = ?, influence_level = ?,
			political_party = ?, political_position = ?, is_candidate = ?, candidate_office = ?,
			email = ?, phone = ?, address = ?, city = ?, notes = ?,
			updated_at = ?
		WHERE id = ? AND user_id = ?`,
		p.Name, p.Context, p.Proximity,
		p.Importance, p.TrustLevel, p.InfluenceLevel,
		p.PoliticalParty, p.PoliticalPosition, p.IsCandidate, p.CandidateOffice,
		p.Email, p.Phone, p.Address, p.City, p.Notes,
		formatTime(p.UpdatedAt),
		p.ID, p.UserID,
	)
	if err != nil {
		return err
	}
	return rowsAffected(res, "person")
}

// SetPersonPhoto records the portrait reference for a person.
func (s *Store) SetPersonPhoto(ctx context.Context, id, userID, ref string) error {
	res, err := s.pool.Exec(ctx,
		`UPDATE people SET photo_ref = ?, updated_at = ? WHERE id = ? AND user_id = ?`,
		ref, formatTime(now()), id, userID)
	if err != nil {
		return err
	}
	return rowsAffected(res, "person")
}

// DeletePerson removes a person together with its tag associations and every
// relationship touching it, in one transaction.
// Returns store.ErrNotFound when no row matches.
func (s *Store) DeletePerson(ctx context.Context, id, userID string) error {
	return s.pool.WithTx(ctx, func(tx *store.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM person_tags WHERE person_id = ?`, id); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx,
			`DELETE FROM person_relationships WHERE person_a_id = ? OR person_b_id = ?`, id, id); err != nil {
			return err
		}
		res, err := tx.Exec(ctx, `DELETE FROM people WHERE id = ? AND user_id = ?`, id, userID)
		if err != nil {
			return err
		}
		return rowsAffected(res, "person")
	})
}
