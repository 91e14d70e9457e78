package providers

import (
	"github.com/samber/do/v2"

	"github.com/communitymapper/community-mapper/internal/auth"
	"github.com/communitymapper/community-mapper/internal/config"
	"github.com/communitymapper/community-mapper/internal/logger"
	"github.com/communitymapper/community-mapper/internal/media"
	"github.com/communitymapper/community-mapper/internal/service"
	"github.com/communitymapper/community-mapper/internal/store/sqlstore"
	"github.com/communitymapper/community-mapper/internal/validation"
)

// ProvideSessionService provides the session management service.
func ProvideSessionService(i do.Injector) (*service.SessionService, error) {
	st := do.MustInvoke[*sqlstore.Store](i)
	tokenService := do.MustInvoke[*auth.TokenService](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewSessionService(st, tokenService, log.Logger), nil
}

// ProvideAuthService provides the authentication service.
func ProvideAuthService(i do.Injector) (*service.AuthService, error) {
	st := do.MustInvoke[*sqlstore.Store](i)
	tokenService := do.MustInvoke[*auth.TokenService](i)
	sessionService := do.MustInvoke[*service.SessionService](i)
	limiter := do.MustInvoke[*LoginLimiterHandle](i)
	validator := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewAuthService(st, tokenService, sessionService, limiter.Limiter, validator, log.Logger), nil
}

// ProvideUserService provides account administration.
func ProvideUserService(i do.Injector) (*service.UserService, error) {
	st := do.MustInvoke[*sqlstore.Store](i)
	validator := do.MustInvoke[*validation.Validator](i)
	searchService := do.MustInvoke[*service.SearchService](i)
	mediaStore := do.MustInvoke[*media.Store](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewUserService(st, validator, searchService, mediaStore, log.Logger), nil
}

// ProvidePersonService provides the person service.
func ProvidePersonService(i do.Injector) (*service.PersonService, error) {
	st := do.MustInvoke[*sqlstore.Store](i)
	validator := do.MustInvoke[*validation.Validator](i)
	searchService := do.MustInvoke[*service.SearchService](i)
	mediaStore := do.MustInvoke[*media.Store](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewPersonService(st, validator, searchService, mediaStore, log.Logger), nil
}

// ProvideTagService provides the tag service.
func ProvideTagService(i do.Injector) (*service.TagService, error) {
	st := do.MustInvoke[*sqlstore.Store](i)
	validator := do.MustInvoke[*validation.Validator](i)
	searchService := do.MustInvoke[*service.SearchService](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewTagService(st, validator, searchService, log.Logger), nil
}

// ProvideRelationshipService provides the relationship service.
func ProvideRelationshipService(i do.Injector) (*service.RelationshipService, error) {
	st := do.MustInvoke[*sqlstore.Store](i)
	validator := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewRelationshipService(st, validator, log.Logger), nil
}

// ProvideMediaService provides the photo and attachment service.
func ProvideMediaService(i do.Injector) (*service.MediaService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	st := do.MustInvoke[*sqlstore.Store](i)
	mediaStore := do.MustInvoke[*media.Store](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewMediaService(st, mediaStore, cfg.Media.MaxUploadBytes, log.Logger), nil
}
