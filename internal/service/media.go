package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/communitymapper/community-mapper/internal/domain"
	domainerrors "github.com/communitymapper/community-mapper/internal/errors"
	"github.com/communitymapper/community-mapper/internal/media"
	"github.com/communitymapper/community-mapper/internal/normalize"
	"github.com/communitymapper/community-mapper/internal/store/sqlstore"
)

// DefaultMaxUploadBytes caps a single upload when no limit is configured.
const DefaultMaxUploadBytes = 10 << 20

// MediaService stores portraits and attachments for people the caller owns.
type MediaService struct {
	store    *sqlstore.Store
	media    *media.Store
	maxBytes int64
	logger   *slog.Logger
}

// NewMediaService creates a media service. maxBytes <= 0 uses
// DefaultMaxUploadBytes.
func NewMediaService(store *sqlstore.Store, mediaStore *media.Store, maxBytes int64, logger *slog.Logger) *MediaService {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	return &MediaService{store: store, media: mediaStore, maxBytes: maxBytes, logger: logger}
}

// Upload is a file sent by a client.
type Upload struct {
	FileName    string
	ContentType string
	Data        []byte
	Title       string
	Description string
	Tags        []string
}

// MaxUploadBytes returns the configured upload limit.
func (s *MediaService) MaxUploadBytes() int64 {
	return s.maxBytes
}

func (s *MediaService) checkUpload(u Upload) error {
	if len(u.Data) == 0 {
		return domainerrors.Validation("file is empty")
	}
	if int64(len(u.Data)) > s.maxBytes {
		return domainerrors.Validationf("file exceeds the %d byte limit", s.maxBytes)
	}
	return nil
}

// SetPhoto stores a new portrait for a person, replacing any previous one,
// and records the reference on the person.
func (s *MediaService) SetPhoto(ctx context.Context, callerID, personID string, u Upload) (*domain.Person, *domain.MediaItem, error) {
	person, err := ownedPerson(ctx, s.store, callerID, personID)
	if err != nil {
		return nil, nil, err
	}
	if err := s.checkUpload(u); err != nil {
		return nil, nil, err
	}

	item, err := s.media.Save(personID, domain.MediaKindPhoto, u.FileName, u.ContentType, u.Data, media.Meta{})
	if err != nil {
		return nil, nil, mediaError(err)
	}
	if !media.IsImage(item.ContentType) {
		_ = s.media.Delete(personID, item.ID)
		return nil, nil, domainerrors.Validationf("photo must be a JPEG, PNG, GIF or WebP image, got %s", item.ContentType)
	}

	ref := domain.PhotoRef(item.ID)
	if err := s.store.SetPersonPhoto(ctx, personID, callerID, ref); err != nil {
		_ = s.media.Delete(personID, item.ID)
		return nil, nil, fromStore(err, "person")
	}

	if old, ok := photoItemID(person.PhotoRef); ok {
		if err := s.media.Delete(personID, old); err != nil && !errors.Is(err, media.ErrNotFound) {
			s.logger.Warn("failed to remove previous photo", "person_id", personID, "item_id", old, "error", err)
		}
	}

	person.PhotoRef = ref
	s.logger.Info("photo set", "person_id", personID, "user_id", callerID, "item_id", item.ID)
	return person, item, nil
}

// GetPhoto returns the portrait of a person and its bytes.
func (s *MediaService) GetPhoto(ctx context.Context, callerID, personID string) (*domain.MediaItem, []byte, error) {
	person, err := ownedPerson(ctx, s.store, callerID, personID)
	if err != nil {
		return nil, nil, err
	}
	itemID, ok := photoItemID(person.PhotoRef)
	if !ok {
		return nil, nil, domainerrors.NotFound("person has no photo")
	}
	item, data, err := s.media.Get(personID, itemID)
	if err != nil {
		return nil, nil, mediaError(err)
	}
	return item, data, nil
}

// DeletePhoto clears a person's portrait. Clearing an absent photo is a no-op.
func (s *MediaService) DeletePhoto(ctx context.Context, callerID, personID string) error {
	person, err := ownedPerson(ctx, s.store, callerID, personID)
	if err != nil {
		return err
	}
	itemID, ok := photoItemID(person.PhotoRef)
	if person.PhotoRef == "" {
		return nil
	}
	if err := s.store.SetPersonPhoto(ctx, personID, callerID, ""); err != nil {
		return fromStore(err, "person")
	}
	if ok {
		if err := s.media.Delete(personID, itemID); err != nil && !errors.Is(err, media.ErrNotFound) {
			s.logger.Warn("failed to remove photo file", "person_id", personID, "item_id", itemID, "error", err)
		}
	}
	s.logger.Info("photo removed", "person_id", personID, "user_id", callerID)
	return nil
}

// List returns a person's attachments, excluding the portrait.
func (s *MediaService) List(ctx context.Context, callerID, personID string) ([]*domain.MediaItem, error) {
	if _, err := ownedPerson(ctx, s.store, callerID, personID); err != nil {
		return nil, err
	}
	items, err := s.media.List(personID)
	if err != nil {
		return nil, mediaError(err)
	}
	out := make([]*domain.MediaItem, 0, len(items))
	for _, it := range items {
		if it.Kind == domain.MediaKindFile {
			out = append(out, it)
		}
	}
	return out, nil
}

// Add stores an attachment for a person.
func (s *MediaService) Add(ctx context.Context, callerID, personID string, u Upload) (*domain.MediaItem, error) {
	if _, err := ownedPerson(ctx, s.store, callerID, personID); err != nil {
		return nil, err
	}
	if err := s.checkUpload(u); err != nil {
		return nil, err
	}
	item, err := s.media.Save(personID, domain.MediaKindFile, u.FileName, u.ContentType, u.Data, media.Meta{
		Title:       normalize.Text(u.Title),
		Description: normalize.Text(u.Description),
		Tags:        cleanTags(u.Tags),
	})
	if err != nil {
		return nil, mediaError(err)
	}
	s.logger.Info("media added", "person_id", personID, "user_id", callerID, "item_id", item.ID, "size", item.Size)
	return item, nil
}

// Get returns an attachment and its bytes.
func (s *MediaService) Get(ctx context.Context, callerID, personID, itemID string) (*domain.MediaItem, []byte, error) {
	if _, err := ownedPerson(ctx, s.store, callerID, personID); err != nil {
		return nil, nil, err
	}
	item, data, err := s.media.Get(personID, itemID)
	if err != nil {
		return nil, nil, mediaError(err)
	}
	return item, data, nil
}

// MediaPatch updates an attachment's descriptive fields.
type MediaPatch struct {
	Title       *string  `json:"title,omitempty"`
	Description *string  `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// Update changes an attachment's title, description or tags.
func (s *MediaService) Update(ctx context.Context, callerID, personID, itemID string, patch MediaPatch) (*domain.MediaItem, error) {
	if _, err := ownedPerson(ctx, s.store, callerID, personID); err != nil {
		return nil, err
	}
	mp := media.MetaPatch{}
	if patch.Title != nil {
		t := normalize.Text(*patch.Title)
		mp.Title = &t
	}
	if patch.Description != nil {
		d := normalize.Text(*patch.Description)
		mp.Description = &d
	}
	if patch.Tags != nil {
		tags := cleanTags(patch.Tags)
		mp.Tags = &tags
	}
	item, err := s.media.UpdateMeta(personID, itemID, mp)
	if err != nil {
		return nil, mediaError(err)
	}
	return item, nil
}

// Delete removes an attachment.
func (s *MediaService) Delete(ctx context.Context, callerID, personID, itemID string) error {
	person, err := ownedPerson(ctx, s.store, callerID, personID)
	if err != nil {
		return err
	}
	if person.PhotoRef == domain.PhotoRef(itemID) {
		return s.DeletePhoto(ctx, callerID, personID)
	}
	if err := s.media.Delete(personID, itemID); err != nil {
		return mediaError(err)
	}
	s.logger.Info("media deleted", "person_id", personID, "user_id", callerID, "item_id", itemID)
	return nil
}

func photoItemID(ref string) (string, bool) {
	itemID, ok := strings.CutPrefix(ref, domain.PhotoRefPrefix)
	return itemID, ok && itemID != ""
}

func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = normalize.TagName(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func mediaError(err error) error {
	switch {
	case errors.Is(err, media.ErrNotFound):
		return domainerrors.NotFound("media not found").WithCause(err)
	case errors.Is(err, media.ErrInvalidID):
		return domainerrors.Validation("invalid media id").WithCause(err)
	case errors.Is(err, media.ErrEmpty):
		return domainerrors.Validation("file is empty").WithCause(err)
	}
	return err
}
