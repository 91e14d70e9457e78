package api

import "github.com/communitymapper/community-mapper/internal/service"

// Services groups the business logic used by the API server.
type Services struct {
	Auth          *service.AuthService
	People        *service.PersonService
	Tags          *service.TagService
	Relationships *service.RelationshipService
	Media         *service.MediaService
	Search        *service.SearchService
}
