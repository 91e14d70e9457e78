package api

import (
	"context"
	"encoding/json"
	"net/http"
	"reflect"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/communitymapper/community-mapper/internal/domain"
	domainerrors "github.com/communitymapper/community-mapper/internal/errors"
	"github.com/communitymapper/community-mapper/internal/export"
	"github.com/communitymapper/community-mapper/internal/search"
	"github.com/communitymapper/community-mapper/internal/service"
)

func (s *Server) registerPersonRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getPeople",
		Method:      http.MethodGet,
		Path:        "/people",
		Summary:     "List people or get one",
		Description: "Lists the caller's people, or returns a single person when id is given",
		Tags:        []string{"People"},
		Security:    bearer,
	}, s.handleGetPeople)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createPerson",
		Method:        http.MethodPost,
		Path:          "/people",
		Summary:       "Create person",
		Description:   "Creates a person owned by the caller",
		Tags:          []string{"People"},
		Security:      bearer,
		DefaultStatus: http.StatusCreated,
	}, s.handleCreatePerson)

	huma.Register(s.api, huma.Operation{
		OperationID: "updatePerson",
		Method:      http.MethodPut,
		Path:        "/people",
		Summary:     "Update person",
		Description: "Updates the person named by the id in the body. Attempts to change id, user_id or created_at are ignored.",
		Tags:        []string{"People"},
		Security:    bearer,
	}, s.handleUpdatePerson)

	huma.Register(s.api, huma.Operation{
		OperationID:   "deletePerson",
		Method:        http.MethodDelete,
		Path:          "/people",
		Summary:       "Delete person",
		Description:   "Deletes a person with their tag links, relationships and media",
		Tags:          []string{"People"},
		Security:      bearer,
		DefaultStatus: http.StatusNoContent,
	}, s.handleDeletePerson)

	huma.Register(s.api, huma.Operation{
		OperationID: "searchPeople",
		Method:      http.MethodGet,
		Path:        "/people/search",
		Summary:     "Search people",
		Description: "Full-text search over the caller's people",
		Tags:        []string{"People"},
		Security:    bearer,
	}, s.handleSearchPeople)

	huma.Register(s.api, huma.Operation{
		OperationID: "exportPeople",
		Method:      http.MethodGet,
		Path:        "/people/export",
		Summary:     "Export people",
		Description: "Downloads the caller's people as an XLSX workbook",
		Tags:        []string{"People"},
		Security:    bearer,
	}, s.handleExportPeople)
}

// GetPeopleInput selects a single person when ID is set.
type GetPeopleInput struct {
	ID string `query:"id" doc:"Person ID"`
}

// PeopleResponse contains a list of people.
type PeopleResponse struct {
	People []*domain.Person `json:"people" doc:"People owned by the caller"`
}

// PeopleOrPerson is the GET /people body: a PeopleResponse for a list, or
// the bare person when an id was given.
type PeopleOrPerson struct {
	list   *PeopleResponse
	person *domain.Person
}

// MarshalJSON writes whichever shape is set.
func (b PeopleOrPerson) MarshalJSON() ([]byte, error) {
	if b.person != nil {
		return json.Marshal(b.person)
	}
	return json.Marshal(b.list)
}

// Schema describes both shapes as a oneOf.
func (PeopleOrPerson) Schema(r huma.Registry) *huma.Schema {
	return &huma.Schema{
		OneOf: []*huma.Schema{
			r.Schema(reflect.TypeOf(PeopleResponse{}), true, "PeopleResponse"),
			r.Schema(reflect.TypeOf(domain.Person{}), true, "Person"),
		},
	}
}

// GetPeopleOutput wraps the GET /people body.
type GetPeopleOutput struct {
	Body PeopleOrPerson
}

// CreatePersonRequest is the request body for creating a person.
type CreatePersonRequest struct {
	_ struct{} `json:"-" additionalProperties:"true"`
	service.PersonInput
}

// CreatePersonInput wraps the create request for Huma.
type CreatePersonInput struct {
	Body CreatePersonRequest
}

// UpdatePersonRequest names the person to update and carries the changes.
type UpdatePersonRequest struct {
	_  struct{} `json:"-" additionalProperties:"true"`
	ID string   `json:"id" doc:"Person ID"`
	service.PersonPatch
}

// UpdatePersonInput wraps the update request for Huma.
type UpdatePersonInput struct {
	Body UpdatePersonRequest
}

// DeletePersonInput names the person to delete.
type DeletePersonInput struct {
	ID string `query:"id" required:"true" doc:"Person ID"`
}

// PersonOutput wraps a person for Huma.
type PersonOutput struct {
	Body *domain.Person
}

// SearchPeopleInput contains search parameters.
type SearchPeopleInput struct {
	Query  string   `query:"q" doc:"Search text; empty lists everyone by name"`
	Tags   []string `query:"tag" doc:"Only people carrying every listed tag"`
	Limit  int      `query:"limit" minimum:"0" maximum:"100" doc:"Maximum hits (default 20)"`
	Offset int      `query:"offset" minimum:"0" doc:"Hits to skip"`
}

// SearchPeopleOutput wraps search results for Huma.
type SearchPeopleOutput struct {
	Body *search.Result
}

// FileOutput streams a file download.
type FileOutput struct {
	ContentType        string `header:"Content-Type"`
	ContentDisposition string `header:"Content-Disposition"`
	CacheControl       string `header:"Cache-Control"`
	Body               []byte
}

func (s *Server) handleGetPeople(ctx context.Context, input *GetPeopleInput) (*GetPeopleOutput, error) {
	claims, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	if input.ID != "" {
		person, err := s.services.People.Get(ctx, claims.UserID, input.ID)
		if err != nil {
			return nil, err
		}
		return &GetPeopleOutput{Body: PeopleOrPerson{person: person}}, nil
	}

	people, err := s.services.People.List(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	return &GetPeopleOutput{Body: PeopleOrPerson{list: &PeopleResponse{People: people}}}, nil
}

func (s *Server) handleCreatePerson(ctx context.Context, input *CreatePersonInput) (*PersonOutput, error) {
	claims, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	person, err := s.services.People.Create(ctx, claims.UserID, input.Body.PersonInput)
	if err != nil {
		return nil, err
	}
	return &PersonOutput{Body: person}, nil
}

func (s *Server) handleUpdatePerson(ctx context.Context, input *UpdatePersonInput) (*PersonOutput, error) {
	claims, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	if input.Body.ID == "" {
		return nil, domainerrors.Validation("id is required")
	}
	person, err := s.services.People.Update(ctx, claims.UserID, input.Body.ID, input.Body.PersonPatch)
	if err != nil {
		return nil, err
	}
	return &PersonOutput{Body: person}, nil
}

func (s *Server) handleDeletePerson(ctx context.Context, input *DeletePersonInput) (*struct{}, error) {
	claims, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.services.People.Delete(ctx, claims.UserID, input.ID); err != nil {
		return nil, err
	}
	return nil, nil
}

func (s *Server) handleSearchPeople(ctx context.Context, input *SearchPeopleInput) (*SearchPeopleOutput, error) {
	claims, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	result, err := s.services.People.Search(ctx, claims.UserID, search.Params{
		Query:  input.Query,
		Tags:   input.Tags,
		Limit:  input.Limit,
		Offset: input.Offset,
	})
	if err != nil {
		return nil, err
	}
	return &SearchPeopleOutput{Body: result}, nil
}

func (s *Server) handleExportPeople(ctx context.Context, _ *struct{}) (*FileOutput, error) {
	claims, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	data, err := s.services.People.Export(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	return &FileOutput{
		ContentType:        export.ContentType,
		ContentDisposition: `attachment; filename="` + export.FileName(time.Now().Format(time.DateOnly)) + `"`,
		CacheControl:       CacheNoStore,
		Body:               data,
	}, nil
}
