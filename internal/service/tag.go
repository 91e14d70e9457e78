package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/communitymapper/community-mapper/internal/color"
	"github.com/communitymapper/community-mapper/internal/domain"
	domainerrors "github.com/communitymapper/community-mapper/internal/errors"
	"github.com/communitymapper/community-mapper/internal/id"
	"github.com/communitymapper/community-mapper/internal/normalize"
	"github.com/communitymapper/community-mapper/internal/store"
	"github.com/communitymapper/community-mapper/internal/store/sqlstore"
	"github.com/communitymapper/community-mapper/internal/validation"
)

// TagService manages a user's tags and their attachment to people.
// Tags are private to their owner; every operation checks that both the tag
// and the person belong to the caller.
type TagService struct {
	store     *sqlstore.Store
	validator *validation.Validator
	search    *SearchService
	logger    *slog.Logger
	now       func() time.Time
}

// NewTagService creates a new tag service.
func NewTagService(store *sqlstore.Store, validator *validation.Validator, search *SearchService, logger *slog.Logger) *TagService {
	return &TagService{
		store:     store,
		validator: validator,
		search:    search,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// TagInput is the data accepted when creating a tag. An empty color is
// derived from the name.
type TagInput struct {
	Name        string `json:"name" validate:"notblank,max=50"`
	Color       string `json:"color,omitempty" validate:"omitempty,hexrgb"`
	Description string `json:"description,omitempty" validate:"max=500"`
}

// TagPatch is a partial tag update.
type TagPatch struct {
	Name        *string `json:"name,omitempty"`
	Color       *string `json:"color,omitempty"`
	Description *string `json:"description,omitempty"`
}

// CreateTag creates a tag for userID. A name the user already has is
// DUPLICATE_NAME, whether found up front or raised by the unique constraint.
func (s *TagService) CreateTag(ctx context.Context, userID string, in TagInput) (*domain.Tag, error) {
	if userID == "" {
		return nil, domainerrors.Unauthorized("no authenticated user")
	}
	in.Name = normalize.TagName(in.Name)
	in.Color = cleanColor(in.Color)
	in.Description = normalize.Text(in.Description)
	if err := s.validator.Validate(in); err != nil {
		return nil, err
	}

	if _, err := s.store.GetTagByName(ctx, userID, in.Name); err == nil {
		return nil, domainerrors.DuplicateNamef("tag %q already exists", in.Name)
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, fromStore(err, "tag")
	}

	tag, err := s.insertTag(ctx, userID, in)
	if err != nil {
		if store.KindOf(err) == store.KindAlreadyExists {
			return nil, domainerrors.DuplicateNamef("tag %q already exists", in.Name).WithCause(err)
		}
		return nil, fromStore(err, "tag")
	}

	s.logger.Info("tag created", "tag_id", tag.ID, "user_id", userID, "name", tag.Name)
	return tag, nil
}

func (s *TagService) insertTag(ctx context.Context, userID string, in TagInput) (*domain.Tag, error) {
	tagID, err := id.Generate(id.PrefixTag)
	if err != nil {
		return nil, fmt.Errorf("generate tag id: %w", err)
	}
	if in.Color == "" {
		in.Color = color.ForTag(in.Name)
	}
	now := s.now()
	tag := &domain.Tag{
		ID:          tagID,
		UserID:      userID,
		Name:        in.Name,
		Color:       in.Color,
		Description: in.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.CreateTag(ctx, tag); err != nil {
		return nil, err
	}
	return tag, nil
}

// cleanColor upper-cases a valid color and leaves anything else as typed
// so validation rejects it.
func cleanColor(raw string) string {
	if c := color.Normalize(raw); c != "" {
		return c
	}
	return strings.TrimSpace(raw)
}

// GetTag returns a tag owned by the caller.
func (s *TagService) GetTag(ctx context.Context, callerID, tagID string) (*domain.Tag, error) {
	return ownedTag(ctx, s.store, callerID, tagID)
}

// UpdateTag applies patch to a tag owned by the caller. Renames onto an
// existing name are DUPLICATE_NAME.
func (s *TagService) UpdateTag(ctx context.Context, callerID, tagID string, patch TagPatch) (*domain.Tag, error) {
	current, err := ownedTag(ctx, s.store, callerID, tagID)
	if err != nil {
		return nil, err
	}

	in := TagInput{Name: current.Name, Color: current.Color, Description: current.Description}
	if patch.Name != nil {
		in.Name = normalize.TagName(*patch.Name)
	}
	if patch.Color != nil {
		in.Color = cleanColor(*patch.Color)
		if in.Color == "" {
			in.Color = color.ForTag(in.Name)
		}
	}
	if patch.Description != nil {
		in.Description = normalize.Text(*patch.Description)
	}
	if err := s.validator.Validate(in); err != nil {
		return nil, err
	}

	renamed := in.Name != current.Name
	if renamed {
		existing, err := s.store.GetTagByName(ctx, callerID, in.Name)
		if err == nil && existing.ID != current.ID {
			return nil, domainerrors.DuplicateNamef("tag %q already exists", in.Name)
		}
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return nil, fromStore(err, "tag")
		}
	}

	updated := *current
	updated.Name = in.Name
	updated.Color = in.Color
	updated.Description = in.Description
	updated.UpdatedAt = s.now()

	if err := s.store.UpdateTag(ctx, &updated); err != nil {
		if store.KindOf(err) == store.KindAlreadyExists {
			return nil, domainerrors.DuplicateNamef("tag %q already exists", in.Name).WithCause(err)
		}
		return nil, fromStore(err, "tag")
	}

	if renamed {
		s.reindexTagged(ctx, updated.ID)
	}
	s.logger.Info("tag updated", "tag_id", tagID, "user_id", callerID)
	return &updated, nil
}

// ListTagsForUser returns every tag the user owns, or with attachedOnly just
// those attached to at least one of the user's people.
func (s *TagService) ListTagsForUser(ctx context.Context, userID string, attachedOnly bool) ([]*domain.Tag, error) {
	tags, err := s.store.ListTagsForUser(ctx, userID, attachedOnly)
	if err != nil {
		return nil, fromStore(err, "tags")
	}
	return tags, nil
}

// ListTagsForPerson returns the tags attached to a person owned by the caller.
func (s *TagService) ListTagsForPerson(ctx context.Context, callerID, personID string) ([]*domain.Tag, error) {
	if _, err := ownedPerson(ctx, s.store, callerID, personID); err != nil {
		return nil, err
	}
	tags, err := s.store.ListTagsForPerson(ctx, personID)
	if err != nil {
		return nil, fromStore(err, "tags")
	}
	return tags, nil
}

// Attach links a tag to a person. Attaching twice is a no-op; the bool
// reports whether a new link was made.
func (s *TagService) Attach(ctx context.Context, callerID, personID, tagID string) (*domain.Tag, bool, error) {
	person, err := ownedPerson(ctx, s.store, callerID, personID)
	if err != nil {
		return nil, false, err
	}
	tag, err := ownedTag(ctx, s.store, callerID, tagID)
	if err != nil {
		return nil, false, err
	}
	return s.attach(ctx, person, tag)
}

// AttachByName attaches the caller's tag called name to a person, creating
// the tag first when it does not exist. The bool reports whether the tag
// was created.
func (s *TagService) AttachByName(ctx context.Context, callerID, personID, name, tagColor string) (*domain.Tag, bool, error) {
	person, err := ownedPerson(ctx, s.store, callerID, personID)
	if err != nil {
		return nil, false, err
	}

	in := TagInput{Name: normalize.TagName(name)}
	in.Color = cleanColor(tagColor)
	if err := s.validator.Validate(in); err != nil {
		return nil, false, err
	}

	created := false
	tag, err := s.store.GetTagByName(ctx, callerID, in.Name)
	if errors.Is(err, store.ErrNotFound) {
		tag, err = s.insertTag(ctx, callerID, in)
		switch {
		case err == nil:
			created = true
			s.logger.Info("tag created", "tag_id", tag.ID, "user_id", callerID, "name", tag.Name)
		case store.KindOf(err) == store.KindAlreadyExists:
			// Lost the race to a concurrent create; use the winner's row.
			tag, err = s.store.GetTagByName(ctx, callerID, in.Name)
		}
	}
	if err != nil {
		return nil, false, fromStore(err, "tag")
	}

	if _, _, err := s.attach(ctx, person, tag); err != nil {
		return nil, false, err
	}
	return tag, created, nil
}

func (s *TagService) attach(ctx context.Context, person *domain.Person, tag *domain.Tag) (*domain.Tag, bool, error) {
	added, err := s.store.AttachTag(ctx, person.ID, tag.ID)
	if err != nil {
		return nil, false, fromStore(err, "tag")
	}
	if added {
		s.search.IndexPerson(ctx, person)
		s.logger.Info("tag attached", "tag_id", tag.ID, "person_id", person.ID, "user_id", person.UserID)
	}
	return tag, added, nil
}

// Detach unlinks a tag from a person. Detaching a tag that is not attached
// is a no-op; the bool reports whether a link was removed.
func (s *TagService) Detach(ctx context.Context, callerID, personID, tagID string) (bool, error) {
	person, err := ownedPerson(ctx, s.store, callerID, personID)
	if err != nil {
		return false, err
	}
	if _, err := ownedTag(ctx, s.store, callerID, tagID); err != nil {
		return false, err
	}

	removed, err := s.store.DetachTag(ctx, personID, tagID)
	if err != nil {
		return false, fromStore(err, "tag")
	}
	if removed {
		s.search.IndexPerson(ctx, person)
		s.logger.Info("tag detached", "tag_id", tagID, "person_id", personID, "user_id", callerID)
	}
	return removed, nil
}

// DeleteTag detaches a tag everywhere and deletes it.
func (s *TagService) DeleteTag(ctx context.Context, callerID, tagID string) error {
	if _, err := ownedTag(ctx, s.store, callerID, tagID); err != nil {
		return err
	}

	tagged, err := s.store.ListPersonIDsForTag(ctx, tagID)
	if err != nil {
		return fromStore(err, "tag")
	}
	if err := s.store.DeleteTag(ctx, tagID, callerID); err != nil {
		return fromStore(err, "tag")
	}

	s.search.ReindexPeople(ctx, tagged)
	s.logger.Info("tag deleted", "tag_id", tagID, "user_id", callerID, "detached", len(tagged))
	return nil
}

// DeleteTagByName deletes the caller's tag called name.
func (s *TagService) DeleteTagByName(ctx context.Context, callerID, name string) error {
	tag, err := s.store.GetTagByName(ctx, callerID, normalize.TagName(name))
	if err != nil {
		return fromStore(err, "tag")
	}
	return s.DeleteTag(ctx, callerID, tag.ID)
}

func (s *TagService) reindexTagged(ctx context.Context, tagID string) {
	ids, err := s.store.ListPersonIDsForTag(ctx, tagID)
	if err != nil {
		s.logger.Warn("failed to list tagged people for reindex", "tag_id", tagID, "error", err)
		return
	}
	s.search.ReindexPeople(ctx, ids)
}
