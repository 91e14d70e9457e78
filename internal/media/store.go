// Package media stores per-person blobs on disk next to JSON sidecars that
// describe them. A person's portrait is a media item of kind photo.
package media

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/communitymapper/community-mapper/internal/domain"
)

var (
	// ErrNotFound is returned when an item or its blob is missing.
	ErrNotFound = errors.New("media: item not found")
	// ErrInvalidID is returned for ids that could escape the store root.
	ErrInvalidID = errors.New("media: invalid id")
	// ErrEmpty is returned when saving zero bytes.
	ErrEmpty = errors.New("media: empty file")
)

var personIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// Meta holds the descriptive fields of an item.
type Meta struct {
	Title       string
	Description string
	Tags        []string
}

// MetaPatch updates descriptive fields; nil leaves a field unchanged.
type MetaPatch struct {
	Title       *string
	Description *string
	Tags        *[]string
}

// Store lays files out as <root>/people/<personID>/<itemID><ext> with a
// <itemID>.json sidecar. Safe for concurrent use.
type Store struct {
	root   string
	logger *slog.Logger
	mu     sync.RWMutex
	now    func() time.Time
}

// NewStore creates the people directory under root.
func NewStore(root string, logger *slog.Logger) (*Store, error) {
	if root == "" {
		return nil, fmt.Errorf("media root cannot be empty")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if err := os.MkdirAll(filepath.Join(root, "people"), 0o755); err != nil {
		return nil, fmt.Errorf("create media directory: %w", err)
	}
	return &Store{
		root:   root,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

// Root returns the directory the store was opened on.
func (s *Store) Root() string {
	return s.root
}

// Save writes data and its sidecar and returns the new item.
// An empty contentType is sniffed from the data.
func (s *Store) Save(personID string, kind domain.MediaKind, fileName, contentType string, data []byte, meta Meta) (*domain.MediaItem, error) {
	dir, err := s.personDir(personID)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, ErrEmpty
	}
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = strings.TrimSpace(contentType[:i])
	}

	now := s.now()
	item := &domain.MediaItem{
		ID:          uuid.NewString(),
		PersonID:    personID,
		Kind:        kind,
		FileName:    filepath.Base(fileName),
		ContentType: contentType,
		Size:        int64(len(data)),
		Title:       meta.Title,
		Description: meta.Description,
		Tags:        meta.Tags,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if item.FileName == "." || item.FileName == string(filepath.Separator) {
		item.FileName = ""
	}

	if IsImage(contentType) {
		hash, err := ComputeBlurHash(data)
		if err != nil {
			s.logger.Warn("failed to compute blurhash", "person_id", personID, "item_id", item.ID, "error", err)
		} else {
			item.BlurHash = hash
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create person media directory: %w", err)
	}
	blobPath := filepath.Join(dir, item.ID+extension(item.FileName))
	if err := writeFileAtomic(blobPath, data); err != nil {
		return nil, fmt.Errorf("write blob: %w", err)
	}
	if err := s.writeSidecar(dir, item); err != nil {
		_ = os.Remove(blobPath)
		return nil, err
	}
	return item, nil
}

// List returns a person's items, oldest first. A person without media
// yields an empty slice.
func (s *Store) List(personID string) ([]*domain.MediaItem, error) {
	dir, err := s.personDir(personID)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []*domain.MediaItem{}, nil
		}
		return nil, fmt.Errorf("read media directory: %w", err)
	}

	items := make([]*domain.MediaItem, 0, len(entries)/2)
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		item, err := readSidecar(filepath.Join(dir, e.Name()))
		if err != nil {
			s.logger.Warn("skipping unreadable sidecar", "path", e.Name(), "error", err)
			continue
		}
		items = append(items, item)
	}
	slices.SortFunc(items, func(a, b *domain.MediaItem) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return items, nil
}

// Item returns the sidecar of a single item.
func (s *Store) Item(personID, itemID string) (*domain.MediaItem, error) {
	dir, err := s.itemDir(personID, itemID)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return readSidecar(filepath.Join(dir, itemID+".json"))
}

// Get returns an item with its bytes.
func (s *Store) Get(personID, itemID string) (*domain.MediaItem, []byte, error) {
	dir, err := s.itemDir(personID, itemID)
	if err != nil {
		return nil, nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	item, err := readSidecar(filepath.Join(dir, itemID+".json"))
	if err != nil {
		return nil, nil, err
	}
	data, err := os.ReadFile(filepath.Join(dir, itemID+extension(item.FileName)))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("read blob: %w", err)
	}
	return item, data, nil
}

// UpdateMeta applies patch to the item's sidecar.
func (s *Store) UpdateMeta(personID, itemID string, patch MetaPatch) (*domain.MediaItem, error) {
	dir, err := s.itemDir(personID, itemID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	item, err := readSidecar(filepath.Join(dir, itemID+".json"))
	if err != nil {
		return nil, err
	}
	if patch.Title != nil {
		item.Title = *patch.Title
	}
	if patch.Description != nil {
		item.Description = *patch.Description
	}
	if patch.Tags != nil {
		item.Tags = *patch.Tags
	}
	item.UpdatedAt = s.now()
	if err := s.writeSidecar(dir, item); err != nil {
		return nil, err
	}
	return item, nil
}

// Delete removes an item's blob and sidecar.
func (s *Store) Delete(personID, itemID string) error {
	dir, err := s.itemDir(personID, itemID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sidecar := filepath.Join(dir, itemID+".json")
	item, err := readSidecar(sidecar)
	if err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(dir, itemID+extension(item.FileName))); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove blob: %w", err)
	}
	if err := os.Remove(sidecar); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove sidecar: %w", err)
	}
	return nil
}

// RemoveAll deletes every item of a person. Missing directories are fine.
func (s *Store) RemoveAll(personID string) error {
	dir, err := s.personDir(personID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("remove person media: %w", err)
	}
	return nil
}

func (s *Store) personDir(personID string) (string, error) {
	if !personIDPattern.MatchString(personID) {
		return "", ErrInvalidID
	}
	return filepath.Join(s.root, "people", personID), nil
}

func (s *Store) itemDir(personID, itemID string) (string, error) {
	if _, err := uuid.Parse(itemID); err != nil {
		return "", ErrInvalidID
	}
	return s.personDir(personID)
}

func (s *Store) writeSidecar(dir string, item *domain.MediaItem) error {
	data, err := json.MarshalIndent(item, "", "  ")
	if err != nil {
		return fmt.Errorf("encode sidecar: %w", err)
	}
	if err := writeFileAtomic(filepath.Join(dir, item.ID+".json"), data); err != nil {
		return fmt.Errorf("write sidecar: %w", err)
	}
	return nil
}

func readSidecar(path string) (*domain.MediaItem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read sidecar: %w", err)
	}
	var item domain.MediaItem
	if err := json.Unmarshal(data, &item); err != nil {
		return nil, fmt.Errorf("decode sidecar: %w", err)
	}
	return &item, nil
}

// extension keeps a short lowercase alphanumeric extension from name.
func extension(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if len(ext) < 2 || len(ext) > 8 {
		return ".bin"
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ".bin"
		}
	}
	return ext
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
