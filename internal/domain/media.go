package domain

import "time"

// MediaKind distinguishes a person's portrait from other attachments.
type MediaKind string

const (
	MediaKindPhoto MediaKind = "photo"
	MediaKindFile  MediaKind = "media"
)

// MediaItem is the sidecar metadata stored next to a blob.
type MediaItem struct {
	ID          string    `json:"id"`
	PersonID    string    `json:"person_id"`
	Kind        MediaKind `json:"kind"`
	FileName    string    `json:"file_name"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	Title       string    `json:"title,omitempty"`
	Description string    `json:"description,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	BlurHash    string    `json:"blur_hash,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// PhotoRefPrefix marks a Person.PhotoRef that points at a media item.
const PhotoRefPrefix = "media:"

// PhotoRef builds the reference stored on a person for a portrait item.
func PhotoRef(itemID string) string { return PhotoRefPrefix + itemID }
