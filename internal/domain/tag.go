package domain

import "time"

// Tag is a user-scoped label. Name is unique per owning user.
type Tag struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Name        string    `json:"name"`
	Color       string    `json:"color"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// OwnerID implements Owned.
func (t *Tag) OwnerID() string { return t.UserID }

// PersonTag links one person to one tag.
type PersonTag struct {
	PersonID  string    `json:"person_id"`
	TagID     string    `json:"tag_id"`
	CreatedAt time.Time `json:"created_at"`
}
