package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/communitymapper/community-mapper/internal/domain"
	domainerrors "github.com/communitymapper/community-mapper/internal/errors"
	"github.com/communitymapper/community-mapper/internal/id"
	"github.com/communitymapper/community-mapper/internal/media"
	"github.com/communitymapper/community-mapper/internal/normalize"
	"github.com/communitymapper/community-mapper/internal/search"
	"github.com/communitymapper/community-mapper/internal/store/sqlstore"
	"github.com/communitymapper/community-mapper/internal/validation"
)

// PersonService owns the lifecycle of people: validation, defaults, ownership
// checks, and keeping media and the search index in step.
type PersonService struct {
	store     *sqlstore.Store
	validator *validation.Validator
	search    *SearchService
	media     *media.Store
	logger    *slog.Logger
	now       func() time.Time
}

// NewPersonService creates a person service. mediaStore may be nil.
func NewPersonService(
	store *sqlstore.Store,
	validator *validation.Validator,
	search *SearchService,
	mediaStore *media.Store,
	logger *slog.Logger,
) *PersonService {
	return &PersonService{
		store:     store,
		validator: validator,
		search:    search,
		media:     mediaStore,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// PersonInput is the data accepted when creating a person.
// Nil scores default to 3; a nil IsCandidate defaults to false.
type PersonInput struct {
	Name      string `json:"name"`
	Context   string `json:"context"`
	Proximity string `json:"proximity"`

	Importance     *int `json:"importance,omitempty"`
	TrustLevel     *int `json:"trust_level,omitempty"`
	InfluenceLevel *int `json:"influence_level,omitempty"`

	PoliticalParty    string `json:"political_party,omitempty"`
	PoliticalPosition string `json:"political_position,omitempty"`
	IsCandidate       *bool  `json:"is_candidate,omitempty"`
	CandidateOffice   string `json:"candidate_office,omitempty"`

	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
	City    string `json:"city,omitempty"`
	Notes   string `json:"notes,omitempty"`
}

// PersonPatch is a partial update. Nil fields are left unchanged. There is
// no way to express id, user_id or created_at.
type PersonPatch struct {
	Name      *string `json:"name,omitempty"`
	Context   *string `json:"context,omitempty"`
	Proximity *string `json:"proximity,omitempty"`

	Importance     *int `json:"importance,omitempty"`
	TrustLevel     *int `json:"trust_level,omitempty"`
	InfluenceLevel *int `json:"influence_level,omitempty"`

	PoliticalParty    *string `json:"political_party,omitempty"`
	PoliticalPosition *string `json:"political_position,omitempty"`
	IsCandidate       *bool   `json:"is_candidate,omitempty"`
	CandidateOffice   *string `json:"candidate_office,omitempty"`

	Email   *string `json:"email,omitempty"`
	Phone   *string `json:"phone,omitempty"`
	Address *string `json:"address,omitempty"`
	City    *string `json:"city,omitempty"`
	Notes   *string `json:"notes,omitempty"`
}

// personFields is the validated shape of a person after defaults or a patch
// have been applied.
type personFields struct {
	Name      string `json:"name" validate:"notblank,max=200"`
	Context   string `json:"context" validate:"notblank,max=100"`
	Proximity string `json:"proximity" validate:"notblank,max=100"`

	Importance     int `json:"importance" validate:"score"`
	TrustLevel     int `json:"trust_level" validate:"score"`
	InfluenceLevel int `json:"influence_level" validate:"score"`

	PoliticalParty    string `json:"political_party" validate:"max=100"`
	PoliticalPosition string `json:"political_position" validate:"max=100"`
	CandidateOffice   string `json:"candidate_office" validate:"max=100"`

	Email   string `json:"email" validate:"omitempty,email,max=254"`
	Phone   string `json:"phone" validate:"max=50"`
	Address string `json:"address" validate:"max=500"`
	City    string `json:"city" validate:"max=100"`
	Notes   string `json:"notes" validate:"max=20000"`
}

func fieldsOf(p *domain.Person) personFields {
	return personFields{
		Name: p.Name, Context: p.Context, Proximity: p.Proximity,
		Importance: p.Importance, TrustLevel: p.TrustLevel, InfluenceLevel: p.InfluenceLevel,
		PoliticalParty: p.PoliticalParty, PoliticalPosition: p.PoliticalPosition, CandidateOffice: p.CandidateOffice,
		Email: p.Email, Phone: p.Phone, Address: p.Address, City: p.City, Notes: p.Notes,
	}
}

// List returns the caller's people ordered by name.
func (s *PersonService) List(ctx context.Context, userID string) ([]*domain.Person, error) {
	people, err := s.store.ListPeopleForUser(ctx, userID)
	if err != nil {
		return nil, fromStore(err, "people")
	}
	return people, nil
}

// Get returns a single person owned by the caller.
func (s *PersonService) Get(ctx context.Context, callerID, personID string) (*domain.Person, error) {
	return ownedPerson(ctx, s.store, callerID, personID)
}

// Create validates in, applies defaults and stores a new person owned by userID.
func (s *PersonService) Create(ctx context.Context, userID string, in PersonInput) (*domain.Person, error) {
	if userID == "" {
		return nil, domainerrors.Unauthorized("no authenticated user")
	}

	p := &domain.Person{
		UserID:            userID,
		Name:              normalize.Text(in.Name),
		Context:           normalize.Text(in.Context),
		Proximity:         normalize.Text(in.Proximity),
		PoliticalParty:    normalize.Text(in.PoliticalParty),
		PoliticalPosition: normalize.Text(in.PoliticalPosition),
		CandidateOffice:   normalize.Text(in.CandidateOffice),
		Email:             normalize.Text(in.Email),
		Phone:             normalize.Text(in.Phone),
		Address:           normalize.Text(in.Address),
		City:              normalize.Text(in.City),
		Notes:             normalize.Notes(in.Notes),
		Importance:        domain.ScoreDefault,
		TrustLevel:        domain.ScoreDefault,
		InfluenceLevel:    domain.ScoreDefault,
	}
	if in.Importance != nil {
		p.Importance = *in.Importance
	}
	if in.TrustLevel != nil {
		p.TrustLevel = *in.TrustLevel
	}
	if in.InfluenceLevel != nil {
		p.InfluenceLevel = *in.InfluenceLevel
	}
	if in.IsCandidate != nil {
		p.IsCandidate = *in.IsCandidate
	}

	if err := s.validator.Validate(fieldsOf(p)); err != nil {
		return nil, err
	}

	personID, err := id.Generate(id.PrefixPerson)
	if err != nil {
		return nil, fmt.Errorf("generate person id: %w", err)
	}
	now := s.now()
	p.ID = personID
	p.CreatedAt = now
	p.UpdatedAt = now

	if err := s.store.CreatePerson(ctx, p); err != nil {
		return nil, fromStore(err, "person")
	}

	s.search.IndexPerson(ctx, p)
	s.logger.Info("person created", "person_id", p.ID, "user_id", userID)
	return p, nil
}

// Update applies patch to a person owned by the caller. Absent people are
// NOT_FOUND, other owners' people FORBIDDEN; the patch is validated before
// anything is written.
func (s *PersonService) Update(ctx context.Context, callerID, personID string, patch PersonPatch) (*domain.Person, error) {
	current, err := ownedPerson(ctx, s.store, callerID, personID)
	if err != nil {
		return nil, err
	}

	updated := *current
	applyPersonPatch(&updated, patch)

	if err := s.validator.Validate(fieldsOf(&updated)); err != nil {
		return nil, err
	}
	updated.UpdatedAt = s.now()

	if err := s.store.UpdatePerson(ctx, &updated); err != nil {
		return nil, fromStore(err, "person")
	}

	s.search.IndexPerson(ctx, &updated)
	s.logger.Info("person updated", "person_id", personID, "user_id", callerID)
	return &updated, nil
}

func applyPersonPatch(p *domain.Person, patch PersonPatch) {
	setText := func(dst *string, src *string) {
		if src != nil {
			*dst = normalize.Text(*src)
		}
	}
	setText(&p.Name, patch.Name)
	setText(&p.Context, patch.Context)
	setText(&p.Proximity, patch.Proximity)
	setText(&p.PoliticalParty, patch.PoliticalParty)
	setText(&p.PoliticalPosition, patch.PoliticalPosition)
	setText(&p.CandidateOffice, patch.CandidateOffice)
	setText(&p.Email, patch.Email)
	setText(&p.Phone, patch.Phone)
	setText(&p.Address, patch.Address)
	setText(&p.City, patch.City)
	if patch.Notes != nil {
		p.Notes = normalize.Notes(*patch.Notes)
	}
	if patch.Importance != nil {
		p.Importance = *patch.Importance
	}
	if patch.TrustLevel != nil {
		p.TrustLevel = *patch.TrustLevel
	}
	if patch.InfluenceLevel != nil {
		p.InfluenceLevel = *patch.InfluenceLevel
	}
	if patch.IsCandidate != nil {
		p.IsCandidate = *patch.IsCandidate
	}
}

// Delete removes a person with its tag links and relationships, then its
// media and search document.
func (s *PersonService) Delete(ctx context.Context, callerID, personID string) error {
	if _, err := ownedPerson(ctx, s.store, callerID, personID); err != nil {
		return err
	}

	if err := s.store.DeletePerson(ctx, personID, callerID); err != nil {
		return fromStore(err, "person")
	}

	if s.media != nil {
		if err := s.media.RemoveAll(personID); err != nil {
			s.logger.Warn("failed to remove person media", "person_id", personID, "error", err)
		}
	}
	s.search.RemovePerson(personID)

	s.logger.Info("person deleted", "person_id", personID, "user_id", callerID)
	return nil
}

// Search finds the caller's people by text and tags. Any UserID in params is
// replaced by userID.
func (s *PersonService) Search(ctx context.Context, userID string, params search.Params) (*search.Result, error) {
	if userID == "" {
		return nil, domainerrors.Unauthorized("no authenticated user")
	}
	params.UserID = userID
	return s.search.Search(ctx, params)
}
