package providers

import (
	"aidanwoods.dev/go-paseto"
	"github.com/samber/do/v2"

	"github.com/communitymapper/community-mapper/internal/auth"
	"github.com/communitymapper/community-mapper/internal/config"
	"github.com/communitymapper/community-mapper/internal/logger"
	"github.com/communitymapper/community-mapper/internal/ratelimit"
)

// ProvideAuthKey loads or generates the token key under the data path.
func ProvideAuthKey(i do.Injector) (paseto.V4SymmetricKey, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	key, err := auth.LoadOrCreateKey(cfg.App.DataPath)
	if err != nil {
		return paseto.V4SymmetricKey{}, err
	}

	log.Info("Authentication key loaded",
		"access_token_duration", cfg.Auth.AccessTokenDuration,
		"refresh_token_duration", cfg.Auth.RefreshTokenDuration,
	)

	return key, nil
}

// ProvideTokenService provides the PASETO token service.
func ProvideTokenService(i do.Injector) (*auth.TokenService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	key := do.MustInvoke[paseto.V4SymmetricKey](i)

	return auth.NewTokenService(key, cfg.Auth.AccessTokenDuration, cfg.Auth.RefreshTokenDuration), nil
}

// LoginLimiterHandle wraps the login limiter with shutdown capability.
type LoginLimiterHandle struct {
	*ratelimit.Limiter
}

// Shutdown implements do.Shutdownable.
func (h *LoginLimiterHandle) Shutdown() error {
	if h.Limiter != nil {
		h.Stop()
	}
	return nil
}

// ProvideLoginLimiter provides the per-IP login limiter. A zero rate turns
// throttling off.
func ProvideLoginLimiter(i do.Injector) (*LoginLimiterHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	if cfg.Auth.LoginRatePerMinute <= 0 {
		return &LoginLimiterHandle{}, nil
	}
	return &LoginLimiterHandle{Limiter: ratelimit.PerMinute(cfg.Auth.LoginRatePerMinute)}, nil
}
