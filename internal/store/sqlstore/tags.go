package sqlstore

import (
	"context"

	"github.com/communitymapper/community-mapper/internal/domain"
	"github.com/communitymapper/community-mapper/internal/store"
)

// tagColumns must match the scan order in scanTag.
const tagColumns = `id, user_id, name, color, description, created_at, updated_at`

func scanTag(scanner store.Scanner) (*domain.Tag, error) {
	var (
		t                    domain.Tag
		createdAt, updatedAt string
	)
	if err := scanner.Scan(&t.ID, &t.UserID, &t.Name, &t.Color, &t.Description, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	if err := parseCreatedUpdated(createdAt, updatedAt, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Store) selectTags(ctx context.Context, query string, args ...any) ([]*domain.Tag, error) {
	tags := []*domain.Tag{}
	err := s.pool.Select(ctx, query, args, func(row store.Scanner) error {
		t, err := scanTag(row)
		if err != nil {
			return err
		}
		tags = append(tags, t)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tags, nil
}

func (s *Store) getTag(ctx context.Context, query string, args ...any) (*domain.Tag, error) {
	var t *domain.Tag
	err := s.pool.Get(ctx, query, args, func(row store.Scanner) (err error) {
		t, err = scanTag(row)
		return err
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// CreateTag inserts a new tag.
// Returns store.ErrAlreadyExists when the owner already has a tag with that name.
func (s *Store) CreateTag(ctx context.Context, t *domain.Tag) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO tags (`+tagColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, t.Name, t.Color, t.Description,
		formatTime(t.CreatedAt), formatTime(t.UpdatedAt),
	)
	return err
}

// GetTag retrieves a tag by id regardless of owner.
// Returns store.ErrNotFound if the tag does not exist.
func (s *Store) GetTag(ctx context.Context, id string) (*domain.Tag, error) {
	return s.getTag(ctx, `SELECT `+tagColumns+` FROM tags WHERE id = ?`, id)
}

// GetTagByName retrieves one of a user's tags by its exact name.
// Returns store.ErrNotFound if the user has no such tag.
func (s *Store) GetTagByName(ctx context.Context, userID, name string) (*domain.Tag, error) {
	return s.getTag(ctx, `SELECT `+tagColumns+` FROM tags WHERE user_id = ? AND name = ?`, userID, name)
}

// UpdateTag writes name, color and description. The row is matched on id
// and owner. Returns store.ErrAlreadyExists on a rename onto an existing
// name and store.ErrNotFound when no row matches.
func (s *Store) UpdateTag(ctx context.Context, t *domain.Tag) error {
	res, err := s.pool.Exec(ctx, `
		UPDATE tags SET name = ?, color = ?, description = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		t.Name, t.Color, t.Description, formatTime(t.UpdatedAt),
		t.ID, t.UserID,
	)
	if err != nil {
		return err
	}
	return rowsAffected(res, "tag")
}

// ListTagsForUser returns the user's tags ordered by name. With attachedOnly
// set, only tags attached to at least one person are returned.
func (s *Store) ListTagsForUser(ctx context.Context, userID string, attachedOnly bool) ([]*domain.Tag, error) {
	query := `SELECT ` + tagColumns + ` FROM tags WHERE user_id = ?`
	if attachedOnly {
		query += ` AND EXISTS (
			SELECT 1 FROM person_tags pt
			JOIN people p ON p.id = pt.person_id
			WHERE pt.tag_id = tags.id AND p.user_id = tags.user_id)`
	}
	query += ` ORDER BY LOWER(name), name, id`
	return s.selectTags(ctx, query, userID)
}

// ListTagsForPerson returns the tags attached to a person ordered by name.
func (s *Store) ListTagsForPerson(ctx context.Context, personID string) ([]*domain.Tag, error) {
	return s.selectTags(ctx, `
		SELECT t.id, t.user_id, t.name, t.color, t.description, t.created_at, t.updated_at
		FROM tags t
		JOIN person_tags pt ON pt.tag_id = t.id
		WHERE pt.person_id = ?
		ORDER BY LOWER(t.name), t.name, t.id`, personID)
}

// TagNamesByPerson maps each of the user's people that has tags to the
// sorted names of those tags.
func (s *Store) TagNamesByPerson(ctx context.Context, userID string) (map[string][]string, error) {
	out := make(map[string][]string)
	err := s.pool.Select(ctx, `
		SELECT pt.person_id, t.name
		FROM person_tags pt
		JOIN tags t ON t.id = pt.tag_id
		WHERE t.user_id = ?
		ORDER BY pt.person_id, LOWER(t.name), t.name`,
		[]any{userID},
		func(row store.Scanner) error {
			var personID, name string
			if err := row.Scan(&personID, &name); err != nil {
				return err
			}
			out[personID] = append(out[personID], name)
			return nil
		})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListPersonIDsForTag returns the ids of every person the tag is attached to.
func (s *Store) ListPersonIDsForTag(ctx context.Context, tagID string) ([]string, error) {
	var ids []string
	err := s.pool.Select(ctx,
		`SELECT person_id FROM person_tags WHERE tag_id = ? ORDER BY person_id`,
		[]any{tagID},
		func(row store.Scanner) error {
			var id string
			if err := row.Scan(&id); err != nil {
				return err
			}
			ids = append(ids, id)
			return nil
		})
	return ids, err
}

// AttachTag links a tag to a person. Attaching an existing pair is a no-op.
// Reports whether a new association row was written.
func (s *Store) AttachTag(ctx context.Context, personID, tagID string) (bool, error) {
	res, err := s.pool.Exec(ctx, `
		INSERT INTO person_tags (person_id, tag_id, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT (person_id, tag_id) DO NOTHING`,
		personID, tagID, formatTime(now()),
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, store.Classify(err)
	}
	return n > 0, nil
}

// DetachTag removes a tag from a person. Detaching a missing pair is a no-op.
// Reports whether a row was removed.
func (s *Store) DetachTag(ctx context.Context, personID, tagID string) (bool, error) {
	res, err := s.pool.Exec(ctx,
		`DELETE FROM person_tags WHERE person_id = ? AND tag_id = ?`, personID, tagID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, store.Classify(err)
	}
	return n > 0, nil
}

// DeleteTag detaches a tag from every person and deletes it, in one
// transaction. Returns store.ErrNotFound when no row matches.
func (s *Store) DeleteTag(ctx context.Context, id, userID string) error {
	return s.pool.WithTx(ctx, func(tx *store.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM person_tags WHERE tag_id = ?`, id); err != nil {
			return err
		}
		res, err := tx.Exec(ctx, `DELETE FROM tags WHERE id = ? AND user_id = ?`, id, userID)
		if err != nil {
			return err
		}
		return rowsAffected(res, "tag")
	})
}
