package api

import (
	"context"
	"mime"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/communitymapper/community-mapper/internal/domain"
	"github.com/communitymapper/community-mapper/internal/service"
)

func (s *Server) registerPhotoRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getPhoto",
		Method:      http.MethodGet,
		Path:        "/people/{id}/photo",
		Summary:     "Get photo",
		Description: "Returns the portrait of a person",
		Tags:        []string{"Media"},
		Security:    bearer,
	}, s.handleGetPhoto)

	huma.Register(s.api, huma.Operation{
		OperationID:  "setPhoto",
		Method:       http.MethodPut,
		Path:         "/people/{id}/photo",
		Summary:      "Set photo",
		Description:  "Replaces the portrait of a person. The body is the raw image.",
		Tags:         []string{"Media"},
		Security:     bearer,
		MaxBodyBytes: s.services.Media.MaxUploadBytes(),
	}, s.handleSetPhoto)

	huma.Register(s.api, huma.Operation{
		OperationID:   "deletePhoto",
		Method:        http.MethodDelete,
		Path:          "/people/{id}/photo",
		Summary:       "Delete photo",
		Tags:          []string{"Media"},
		Security:      bearer,
		DefaultStatus: http.StatusNoContent,
	}, s.handleDeletePhoto)
}

func (s *Server) registerMediaRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listMedia",
		Method:      http.MethodGet,
		Path:        "/people/{id}/media",
		Summary:     "List attachments",
		Tags:        []string{"Media"},
		Security:    bearer,
	}, s.handleListMedia)

	huma.Register(s.api, huma.Operation{
		OperationID:   "addMedia",
		Method:        http.MethodPost,
		Path:          "/people/{id}/media",
		Summary:       "Add attachment",
		Description:   "Stores a file for a person. The body is the raw file; metadata comes from the query.",
		Tags:          []string{"Media"},
		Security:      bearer,
		DefaultStatus: http.StatusCreated,
		MaxBodyBytes:  s.services.Media.MaxUploadBytes(),
	}, s.handleAddMedia)

	huma.Register(s.api, huma.Operation{
		OperationID: "getMedia",
		Method:      http.MethodGet,
		Path:        "/people/{id}/media/{mediaId}",
		Summary:     "Download attachment",
		Tags:        []string{"Media"},
		Security:    bearer,
	}, s.handleGetMedia)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateMedia",
		Method:      http.MethodPatch,
		Path:        "/people/{id}/media/{mediaId}",
		Summary:     "Update attachment metadata",
		Tags:        []string{"Media"},
		Security:    bearer,
	}, s.handleUpdateMedia)

	huma.Register(s.api, huma.Operation{
		OperationID:   "deleteMedia",
		Method:        http.MethodDelete,
		Path:          "/people/{id}/media/{mediaId}",
		Summary:       "Delete attachment",
		Tags:          []string{"Media"},
		Security:      bearer,
		DefaultStatus: http.StatusNoContent,
	}, s.handleDeleteMedia)
}

// PersonPathInput names a person in the path.
type PersonPathInput struct {
	ID string `path:"id" doc:"Person ID"`
}

// MediaPathInput names an attachment in the path.
type MediaPathInput struct {
	ID      string `path:"id" doc:"Person ID"`
	MediaID string `path:"mediaId" doc:"Media item ID"`
}

// UploadInput is a raw upload. The file name comes from the query or from
// a Content-Disposition header.
type UploadInput struct {
	ID                 string `path:"id" doc:"Person ID"`
	FileName           string `query:"filename" doc:"Original file name"`
	Title              string `query:"title" doc:"Attachment title"`
	Description        string `query:"description" doc:"Attachment description"`
	Tags               string `query:"tags" doc:"Comma-separated attachment tags"`
	ContentType        string `header:"Content-Type"`
	ContentDisposition string `header:"Content-Disposition"`
	RawBody            []byte
}

func (in *UploadInput) upload() service.Upload {
	name := in.FileName
	if name == "" && in.ContentDisposition != "" {
		if _, params, err := mime.ParseMediaType(in.ContentDisposition); err == nil {
			name = params["filename"]
		}
	}
	var tags []string
	if in.Tags != "" {
		tags = strings.Split(in.Tags, ",")
	}
	return service.Upload{
		FileName:    name,
		ContentType: in.ContentType,
		Data:        in.RawBody,
		Title:       in.Title,
		Description: in.Description,
		Tags:        tags,
	}
}

// PhotoResponse is returned after a portrait upload.
type PhotoResponse struct {
	Person *domain.Person    `json:"person"`
	Photo  *domain.MediaItem `json:"photo"`
}

// PhotoOutput wraps a PhotoResponse for Huma.
type PhotoOutput struct {
	Body PhotoResponse
}

// MediaListResponse contains a person's attachments.
type MediaListResponse struct {
	Items []*domain.MediaItem `json:"items"`
}

// MediaListOutput wraps a MediaListResponse for Huma.
type MediaListOutput struct {
	Body MediaListResponse
}

// MediaItemOutput wraps a media item for Huma.
type MediaItemOutput struct {
	Body *domain.MediaItem
}

// UpdateMediaInput carries attachment metadata changes.
type UpdateMediaInput struct {
	ID      string `path:"id" doc:"Person ID"`
	MediaID string `path:"mediaId" doc:"Media item ID"`
	Body    service.MediaPatch
}

func (s *Server) handleGetPhoto(ctx context.Context, input *PersonPathInput) (*FileOutput, error) {
	claims, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	item, data, err := s.services.Media.GetPhoto(ctx, claims.UserID, input.ID)
	if err != nil {
		return nil, err
	}
	return fileOutput(item, data, "inline"), nil
}

func (s *Server) handleSetPhoto(ctx context.Context, input *UploadInput) (*PhotoOutput, error) {
	claims, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	person, item, err := s.services.Media.SetPhoto(ctx, claims.UserID, input.ID, input.upload())
	if err != nil {
		return nil, err
	}
	return &PhotoOutput{Body: PhotoResponse{Person: person, Photo: item}}, nil
}

func (s *Server) handleDeletePhoto(ctx context.Context, input *PersonPathInput) (*struct{}, error) {
	claims, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.services.Media.DeletePhoto(ctx, claims.UserID, input.ID); err != nil {
		return nil, err
	}
	return nil, nil
}

func (s *Server) handleListMedia(ctx context.Context, input *PersonPathInput) (*MediaListOutput, error) {
	claims, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	items, err := s.services.Media.List(ctx, claims.UserID, input.ID)
	if err != nil {
		return nil, err
	}
	return &MediaListOutput{Body: MediaListResponse{Items: items}}, nil
}

func (s *Server) handleAddMedia(ctx context.Context, input *UploadInput) (*MediaItemOutput, error) {
	claims, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	item, err := s.services.Media.Add(ctx, claims.UserID, input.ID, input.upload())
	if err != nil {
		return nil, err
	}
	return &MediaItemOutput{Body: item}, nil
}

func (s *Server) handleGetMedia(ctx context.Context, input *MediaPathInput) (*FileOutput, error) {
	claims, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	item, data, err := s.services.Media.Get(ctx, claims.UserID, input.ID, input.MediaID)
	if err != nil {
		return nil, err
	}
	return fileOutput(item, data, "attachment"), nil
}

func (s *Server) handleUpdateMedia(ctx context.Context, input *UpdateMediaInput) (*MediaItemOutput, error) {
	claims, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	item, err := s.services.Media.Update(ctx, claims.UserID, input.ID, input.MediaID, input.Body)
	if err != nil {
		return nil, err
	}
	return &MediaItemOutput{Body: item}, nil
}

func (s *Server) handleDeleteMedia(ctx context.Context, input *MediaPathInput) (*struct{}, error) {
	claims, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.services.Media.Delete(ctx, claims.UserID, input.ID, input.MediaID); err != nil {
		return nil, err
	}
	return nil, nil
}

func fileOutput(item *domain.MediaItem, data []byte, disposition string) *FileOutput {
	return &FileOutput{
		ContentType:        item.ContentType,
		ContentDisposition: mime.FormatMediaType(disposition, map[string]string{"filename": item.FileName}),
		CacheControl:       CachePrivate,
		Body:               data,
	}
}
