package providers

import (
	"context"
	"path/filepath"

	"github.com/samber/do/v2"

	"github.com/communitymapper/community-mapper/internal/config"
	"github.com/communitymapper/community-mapper/internal/logger"
	"github.com/communitymapper/community-mapper/internal/search"
	"github.com/communitymapper/community-mapper/internal/service"
	"github.com/communitymapper/community-mapper/internal/store/sqlstore"
)

// SearchIndexHandle wraps the search index with shutdown capability. Index
// is nil when search is disabled.
type SearchIndexHandle struct {
	*search.Index
}

// Shutdown implements do.Shutdownable.
func (h *SearchIndexHandle) Shutdown() error {
	if h.Index == nil {
		return nil
	}
	return h.Close()
}

// ProvideSearchIndex provides the Bleve search index.
func ProvideSearchIndex(i do.Injector) (*SearchIndexHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if !cfg.Search.Enabled {
		log.Info("Search index disabled by configuration")
		return &SearchIndexHandle{}, nil
	}

	index, err := search.NewIndex(search.Options{
		DataPath: filepath.Join(cfg.App.DataPath, "search"),
		Logger:   log.Logger,
	})
	if err != nil {
		return nil, err
	}

	docCount, _ := index.DocumentCount()
	log.Info("Search index initialized", "documents", docCount)

	return &SearchIndexHandle{Index: index}, nil
}

// ProvideSearchService provides the search service.
func ProvideSearchService(i do.Injector) (*service.SearchService, error) {
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	st := do.MustInvoke[*sqlstore.Store](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewSearchService(indexHandle.Index, st, log.Logger), nil
}

// TriggerSearchReindexIfNeeded rebuilds an empty index in the background
// once people exist.
func TriggerSearchReindexIfNeeded(i do.Injector) {
	searchService := do.MustInvoke[*service.SearchService](i)
	log := do.MustInvoke[*logger.Logger](i)

	if !searchService.Enabled() {
		return
	}
	if docCount, _ := searchService.DocumentCount(); docCount > 0 {
		return
	}

	go func() {
		if err := searchService.EnsureIndexed(context.Background()); err != nil {
			log.Error("Initial search reindex failed", "error", err)
			return
		}
		count, _ := searchService.DocumentCount()
		log.Info("Initial search reindex completed", "documents", count)
	}()
}
