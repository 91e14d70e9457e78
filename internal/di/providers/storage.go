package providers

import (
	"fmt"

	"github.com/samber/do/v2"

	"github.com/communitymapper/community-mapper/internal/config"
	"github.com/communitymapper/community-mapper/internal/logger"
	"github.com/communitymapper/community-mapper/internal/media"
)

// ProvideMediaStore provides the on-disk store for photos and attachments.
func ProvideMediaStore(i do.Injector) (*media.Store, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	ms, err := media.NewStore(cfg.Media.UploadDir, log.Logger)
	if err != nil {
		return nil, fmt.Errorf("media storage: %w", err)
	}

	log.Info("Media storage initialized", "root", ms.Root(), "max_upload_bytes", cfg.Media.MaxUploadBytes)

	return ms, nil
}
