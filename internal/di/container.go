// Package di provides dependency injection configuration for the community mapper.
package di

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/communitymapper/community-mapper/internal/config"
	"github.com/communitymapper/community-mapper/internal/di/providers"
	"github.com/communitymapper/community-mapper/internal/logger"
	"github.com/communitymapper/community-mapper/internal/service"
)

// NewContainer creates and configures the DI container with all providers.
// args are parsed as configuration flags.
func NewContainer(args []string) *do.RootScope {
	injector := do.New()

	do.ProvideValue(injector, providers.Args(args))

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideValidator)

	// Database layer
	do.Provide(injector, providers.ProvidePool)
	do.Provide(injector, providers.ProvideStore)

	// Storage and search
	do.Provide(injector, providers.ProvideMediaStore)
	do.Provide(injector, providers.ProvideSearchIndex)
	do.Provide(injector, providers.ProvideSearchService)

	// Auth layer
	do.Provide(injector, providers.ProvideAuthKey)
	do.Provide(injector, providers.ProvideTokenService)
	do.Provide(injector, providers.ProvideLoginLimiter)

	// Business services
	do.Provide(injector, providers.ProvideSessionService)
	do.Provide(injector, providers.ProvideAuthService)
	do.Provide(injector, providers.ProvideUserService)
	do.Provide(injector, providers.ProvidePersonService)
	do.Provide(injector, providers.ProvideTagService)
	do.Provide(injector, providers.ProvideRelationshipService)
	do.Provide(injector, providers.ProvideMediaService)

	// Workers
	do.Provide(injector, providers.ProvideSessionCleanupJob)

	// Server
	do.Provide(injector, providers.ProvideAPIServer)
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services, starts the background job and the
// HTTP server. The database is probed but an unreachable database does not
// stop startup; requests fail with UNAVAILABLE until it comes back.
func Bootstrap(injector *do.RootScope) error {
	if _, err := do.Invoke[*config.Config](injector); err != nil {
		return err
	}
	log := do.MustInvoke[*logger.Logger](injector)

	poolHandle, err := do.Invoke[*providers.PoolHandle](injector)
	if err != nil {
		return err
	}
	if err := poolHandle.Ping(context.Background()); err != nil {
		log.Warn("Database not reachable at startup", "error", err)
	}

	if _, err := do.Invoke[*service.SearchService](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*providers.SessionCleanupJob](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*providers.HTTPServerHandle](injector); err != nil {
		return err
	}

	providers.TriggerSearchReindexIfNeeded(injector)

	return nil
}
