package domain

import "time"

// Score bounds shared by importance, trust, influence and relationship strength.
const (
	ScoreMin     = 1
	ScoreMax     = 5
	ScoreDefault = 3
)

// Owned is implemented by every record that belongs to exactly one user.
type Owned interface {
	OwnerID() string
}

// Person is a tracked individual owned by exactly one user.
// UserID, ID and CreatedAt never change after creation.
type Person struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`
	Name   string `json:"name"`

	Context   string `json:"context"`   // how the owner knows this person, e.g. "social"
	Proximity string `json:"proximity"` // proximity tier, e.g. "primeiro"

	Importance     int `json:"importance"`
	TrustLevel     int `json:"trust_level"`
	InfluenceLevel int `json:"influence_level"`

	PoliticalParty    string `json:"political_party,omitempty"`
	PoliticalPosition string `json:"political_position,omitempty"`
	IsCandidate       bool   `json:"is_candidate"`
	CandidateOffice   string `json:"candidate_office,omitempty"`

	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
	City    string `json:"city,omitempty"`

	Notes    string `json:"notes,omitempty"`
	PhotoRef string `json:"photo_ref,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// OwnerID implements Owned.
func (p *Person) OwnerID() string { return p.UserID }

// ValidScore reports whether s lies on the 1..5 scale.
func ValidScore(s int) bool {
	return s >= ScoreMin && s <= ScoreMax
}
