package domain

import "time"

// Relationship is an undirected edge between two people of the same owner.
// PersonAID is always the lower of the two ids, so (A,B) and (B,A) are one row.
type Relationship struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	PersonAID string    `json:"person_a_id"`
	PersonBID string    `json:"person_b_id"`
	Type      string    `json:"type"`
	Strength  int       `json:"strength"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// OwnerID implements Owned.
func (r *Relationship) OwnerID() string { return r.UserID }

// CanonicalPair orders two person ids so the lower one comes first.
func CanonicalPair(a, b string) (string, string) {
	if b < a {
		return b, a
	}
	return a, b
}

// Other returns the id on the opposite end of the edge from personID.
func (r *Relationship) Other(personID string) string {
	if r.PersonAID == personID {
		return r.PersonBID
	}
	return r.PersonAID
}
