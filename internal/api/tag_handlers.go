package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/communitymapper/community-mapper/internal/domain"
	domainerrors "github.com/communitymapper/community-mapper/internal/errors"
	"github.com/communitymapper/community-mapper/internal/service"
)

func (s *Server) registerTagRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listTags",
		Method:      http.MethodGet,
		Path:        "/tags",
		Summary:     "List tags",
		Description: "Returns the caller's tags, or the tags of one person when personId is given",
		Tags:        []string{"Tags"},
		Security:    bearer,
	}, s.handleListTags)

	huma.Register(s.api, huma.Operation{
		OperationID: "createOrAttachTag",
		Method:      http.MethodPost,
		Path:        "/tags",
		Summary:     "Create or attach tag",
		Description: "With personId and tagId attaches an existing tag. With personId and name attaches the named tag, creating it first if needed. With name alone creates a tag.",
		Tags:        []string{"Tags"},
		Security:    bearer,
	}, s.handlePostTag)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateTag",
		Method:      http.MethodPut,
		Path:        "/tags",
		Summary:     "Update tag",
		Description: "Updates the tag named by the id in the body",
		Tags:        []string{"Tags"},
		Security:    bearer,
	}, s.handleUpdateTag)

	huma.Register(s.api, huma.Operation{
		OperationID:   "deleteOrDetachTag",
		Method:        http.MethodDelete,
		Path:          "/tags",
		Summary:       "Delete or detach tag",
		Description:   "With personId and tagId detaches a tag. With id or name deletes the tag everywhere.",
		Tags:          []string{"Tags"},
		Security:      bearer,
		DefaultStatus: http.StatusNoContent,
	}, s.handleDeleteTag)
}

// ListTagsInput contains parameters for listing tags.
type ListTagsInput struct {
	PersonID string `query:"personId" doc:"Only tags attached to this person"`
	Attached bool   `query:"attached" doc:"Only tags attached to at least one person"`
}

// ListTagsResponse contains a list of tags.
type ListTagsResponse struct {
	Tags []*domain.Tag `json:"tags" doc:"List of tags"`
}

// ListTagsOutput wraps the list tags response for Huma.
type ListTagsOutput struct {
	Body ListTagsResponse
}

// TagRequest is the POST /tags body. Which fields are present picks the
// action.
type TagRequest struct {
	_           struct{} `json:"-" additionalProperties:"true"`
	PersonID    string   `json:"personId,omitempty" doc:"Person to attach to"`
	TagID       string   `json:"tagId,omitempty" doc:"Existing tag to attach"`
	Name        string   `json:"name,omitempty" doc:"Tag name to create or attach"`
	Color       string   `json:"color,omitempty" doc:"#RRGGBB color for a new tag"`
	Description string   `json:"description,omitempty" doc:"Description for a new tag"`
}

// TagInput wraps the POST /tags body for Huma.
type TagInput struct {
	Body TagRequest
}

// TagActionResponse reports what a POST /tags did.
type TagActionResponse struct {
	Tag      *domain.Tag `json:"tag" doc:"The tag"`
	Created  bool        `json:"created" doc:"Whether the tag was created"`
	Attached bool        `json:"attached" doc:"Whether a new person link was made"`
}

// TagActionOutput wraps the POST /tags response for Huma.
type TagActionOutput struct {
	Status int
	Body   TagActionResponse
}

// UpdateTagRequest is the request body for updating a tag.
type UpdateTagRequest struct {
	_  struct{} `json:"-" additionalProperties:"true"`
	ID string   `json:"id" doc:"Tag ID"`
	service.TagPatch
}

// UpdateTagInput wraps the update tag request for Huma.
type UpdateTagInput struct {
	Body UpdateTagRequest
}

// TagOutput wraps the tag response for Huma.
type TagOutput struct {
	Body *domain.Tag
}

// DeleteTagInput selects a detach or a delete.
type DeleteTagInput struct {
	PersonID string `query:"personId" doc:"Person to detach from"`
	TagID    string `query:"tagId" doc:"Tag to detach"`
	ID       string `query:"id" doc:"Tag to delete"`
	Name     string `query:"name" doc:"Name of the tag to delete"`
}

func (s *Server) handleListTags(ctx context.Context, input *ListTagsInput) (*ListTagsOutput, error) {
	claims, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	var tags []*domain.Tag
	if input.PersonID != "" {
		tags, err = s.services.Tags.ListTagsForPerson(ctx, claims.UserID, input.PersonID)
	} else {
		tags, err = s.services.Tags.ListTagsForUser(ctx, claims.UserID, input.Attached)
	}
	if err != nil {
		return nil, err
	}
	return &ListTagsOutput{Body: ListTagsResponse{Tags: tags}}, nil
}

func (s *Server) handlePostTag(ctx context.Context, input *TagInput) (*TagActionOutput, error) {
	claims, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	body := input.Body

	switch {
	case body.PersonID != "" && body.TagID != "":
		tag, attached, err := s.services.Tags.Attach(ctx, claims.UserID, body.PersonID, body.TagID)
		if err != nil {
			return nil, err
		}
		return &TagActionOutput{Status: http.StatusOK, Body: TagActionResponse{Tag: tag, Attached: attached}}, nil

	case body.PersonID != "" && body.Name != "":
		tag, created, err := s.services.Tags.AttachByName(ctx, claims.UserID, body.PersonID, body.Name, body.Color)
		if err != nil {
			return nil, err
		}
		status := http.StatusOK
		if created {
			status = http.StatusCreated
		}
		return &TagActionOutput{Status: status, Body: TagActionResponse{Tag: tag, Created: created, Attached: true}}, nil

	case body.PersonID == "" && body.Name != "":
		tag, err := s.services.Tags.CreateTag(ctx, claims.UserID, service.TagInput{
			Name:        body.Name,
			Color:       body.Color,
			Description: body.Description,
		})
		if err != nil {
			return nil, err
		}
		return &TagActionOutput{Status: http.StatusCreated, Body: TagActionResponse{Tag: tag, Created: true}}, nil
	}

	return nil, domainerrors.Validation("send personId with tagId or name, or a name to create a tag")
}

func (s *Server) handleUpdateTag(ctx context.Context, input *UpdateTagInput) (*TagOutput, error) {
	claims, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	if input.Body.ID == "" {
		return nil, domainerrors.Validation("id is required")
	}
	tag, err := s.services.Tags.UpdateTag(ctx, claims.UserID, input.Body.ID, input.Body.TagPatch)
	if err != nil {
		return nil, err
	}
	return &TagOutput{Body: tag}, nil
}

func (s *Server) handleDeleteTag(ctx context.Context, input *DeleteTagInput) (*struct{}, error) {
	claims, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	switch {
	case input.PersonID != "" && input.TagID != "":
		_, err = s.services.Tags.Detach(ctx, claims.UserID, input.PersonID, input.TagID)
	case input.ID != "":
		err = s.services.Tags.DeleteTag(ctx, claims.UserID, input.ID)
	case input.Name != "":
		err = s.services.Tags.DeleteTagByName(ctx, claims.UserID, input.Name)
	default:
		err = domainerrors.Validation("send personId and tagId to detach, or id or name to delete")
	}
	if err != nil {
		return nil, err
	}
	return nil, nil
}
