package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/communitymapper/community-mapper/internal/domain"
	domainerrors "github.com/communitymapper/community-mapper/internal/errors"
	"github.com/communitymapper/community-mapper/internal/service"
)

func (s *Server) registerRelationshipRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listRelationships",
		Method:      http.MethodGet,
		Path:        "/relationships",
		Summary:     "List relationships",
		Description: "Returns the relationships of one of the caller's people",
		Tags:        []string{"Relationships"},
		Security:    bearer,
	}, s.handleListRelationships)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createRelationship",
		Method:        http.MethodPost,
		Path:          "/relationships",
		Summary:       "Create relationship",
		Description:   "Links two of the caller's people. The pair is stored once regardless of order.",
		Tags:          []string{"Relationships"},
		Security:      bearer,
		DefaultStatus: http.StatusCreated,
	}, s.handleCreateRelationship)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateRelationship",
		Method:      http.MethodPut,
		Path:        "/relationships",
		Summary:     "Update relationship",
		Description: "Updates the type, strength or notes of the relationship named by the id in the body",
		Tags:        []string{"Relationships"},
		Security:    bearer,
	}, s.handleUpdateRelationship)

	huma.Register(s.api, huma.Operation{
		OperationID:   "deleteRelationship",
		Method:        http.MethodDelete,
		Path:          "/relationships",
		Summary:       "Delete relationship",
		Tags:          []string{"Relationships"},
		Security:      bearer,
		DefaultStatus: http.StatusNoContent,
	}, s.handleDeleteRelationship)
}

// ListRelationshipsInput names the person whose edges to list.
type ListRelationshipsInput struct {
	PersonID string `query:"personId" required:"true" doc:"Person ID"`
}

// RelationshipsResponse contains a list of relationships.
type RelationshipsResponse struct {
	Relationships []*domain.Relationship `json:"relationships"`
}

// RelationshipsOutput wraps a relationship list for Huma.
type RelationshipsOutput struct {
	Body RelationshipsResponse
}

// CreateRelationshipRequest links two people.
type CreateRelationshipRequest struct {
	_ struct{} `json:"-" additionalProperties:"true"`
	service.RelationshipInput
}

// CreateRelationshipInput wraps the create request for Huma.
type CreateRelationshipInput struct {
	Body CreateRelationshipRequest
}

// UpdateRelationshipRequest names the edge to update and carries the changes.
type UpdateRelationshipRequest struct {
	_  struct{} `json:"-" additionalProperties:"true"`
	ID string   `json:"id" doc:"Relationship ID"`
	service.RelationshipPatch
}

// UpdateRelationshipInput wraps the update request for Huma.
type UpdateRelationshipInput struct {
	Body UpdateRelationshipRequest
}

// DeleteRelationshipInput names the edge to delete.
type DeleteRelationshipInput struct {
	ID string `query:"id" required:"true" doc:"Relationship ID"`
}

// RelationshipOutput wraps a relationship for Huma.
type RelationshipOutput struct {
	Body *domain.Relationship
}

func (s *Server) handleListRelationships(ctx context.Context, input *ListRelationshipsInput) (*RelationshipsOutput, error) {
	claims, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	rels, err := s.services.Relationships.ListForPerson(ctx, claims.UserID, input.PersonID)
	if err != nil {
		return nil, err
	}
	return &RelationshipsOutput{Body: RelationshipsResponse{Relationships: rels}}, nil
}

func (s *Server) handleCreateRelationship(ctx context.Context, input *CreateRelationshipInput) (*RelationshipOutput, error) {
	claims, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	rel, err := s.services.Relationships.Create(ctx, claims.UserID, input.Body.RelationshipInput)
	if err != nil {
		return nil, err
	}
	return &RelationshipOutput{Body: rel}, nil
}

func (s *Server) handleUpdateRelationship(ctx context.Context, input *UpdateRelationshipInput) (*RelationshipOutput, error) {
	claims, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	if input.Body.ID == "" {
		return nil, domainerrors.Validation("id is required")
	}
	rel, err := s.services.Relationships.Update(ctx, claims.UserID, input.Body.ID, input.Body.RelationshipPatch)
	if err != nil {
		return nil, err
	}
	return &RelationshipOutput{Body: rel}, nil
}

func (s *Server) handleDeleteRelationship(ctx context.Context, input *DeleteRelationshipInput) (*struct{}, error) {
	claims, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.services.Relationships.Delete(ctx, claims.UserID, input.ID); err != nil {
		return nil, err
	}
	return nil, nil
}
