package main

import (
	"fmt"

	"github.com/JonnyWalker81/trendy/engagement/internal/achievement"
	"github.com/JonnyWalker81/trendy/engagement/internal/config"
	"github.com/JonnyWalker81/trendy/engagement/internal/logger"
	"github.com/JonnyWalker81/trendy/engagement/internal/metrics"
	"github.com/JonnyWalker81/trendy/engagement/internal/repository"
	"github.com/JonnyWalker81/trendy/engagement/pkg/supabase"
)

// storage bundles the repositories selected by storage.driver
type storage struct {
	events   repository.EventRepository
	progress repository.ProgressRepository
	close    func() error
}

func openStorage(cfg *config.Config) (*storage, error) {
	switch cfg.Storage.Driver {
	case config.DriverSQLite:
		store, err := repository.OpenSQLite(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		return &storage{events: store.Events(), progress: store.Progress(), close: store.Close}, nil
	case config.DriverSupabase:
		client := supabase.NewClient(cfg.Supabase.URL, cfg.Supabase.ServiceKey)
		return &storage{
			events:   repository.NewSupabaseEventRepository(client),
			progress: repository.NewSupabaseProgressRepository(client),
			close:    func() error { return nil },
		}, nil
	default:
		return &storage{
			events:   repository.NewMemoryEventRepository(),
			progress: repository.NewMemoryProgressRepository(),
			close:    func() error { return nil },
		}, nil
	}
}

// openCatalog returns the built-in catalog or the configured file.
// With catalog.watch the file is reloaded on change until stop is called.
func openCatalog(cfg config.CatalogConfig, m *metrics.Metrics, log logger.Logger) (source achievement.Source, stop func(), err error) {
	if cfg.Path == "" {
		return achievement.NewStaticSource(achievement.DefaultCatalog()), func() {}, nil
	}

	watcher, err := achievement.NewWatcher(cfg.Path, log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load achievement catalog: %w", err)
	}
	watcher.OnChange(func(*achievement.Catalog) { m.RecordCatalogReload(nil) })
	watcher.OnError(m.RecordCatalogReload)

	if !cfg.Watch {
		return watcher, func() {}, nil
	}
	stop, err = watcher.Watch()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to watch achievement catalog: %w", err)
	}
	return watcher, stop, nil
}
