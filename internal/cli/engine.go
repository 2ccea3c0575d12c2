package cli

import (
	"fmt"
	"net/http"
	"time"

	"github.com/hoardlabs/hoard/internal/config"
	"github.com/hoardlabs/hoard/internal/db"
	"github.com/hoardlabs/hoard/internal/imagecache"
	"github.com/hoardlabs/hoard/internal/netmon"
	"github.com/hoardlabs/hoard/internal/remote"
	"github.com/hoardlabs/hoard/internal/syncer"
)

// engine bundles the wired-up sync engine for a single CLI command.
type engine struct {
	cfg    *config.Config
	db     *db.DB
	syncer *syncer.Syncer
}

// openEngine loads config and wires the store, image cache, remote client,
// and connectivity monitor into a sync engine. The caller must close it.
func openEngine() (*engine, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	paths := config.GetPaths(cfg)
	database, err := db.New(db.DefaultConfig(paths.Database))
	if err != nil {
		return nil, fmt.Errorf("initialize database: %w", err)
	}

	httpClient := &http.Client{Timeout: 30 * time.Second}
	images, err := imagecache.New(paths.Images, imagecache.NewHTTPDownloader(httpClient))
	if err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("initialize image cache: %w", err)
	}

	client := remote.NewHTTPClient(cfg.API.URL, cfg.API.Token, httpClient)

	// The monitor is constructed before the syncer, so the callback goes
	// through an indirection.
	var s *syncer.Syncer
	monitor := netmon.New(netmon.NewDialProber(cfg.API.URL), 15*time.Second, func(status netmon.Status) {
		if s != nil {
			s.HandleConnectivityChange(status)
		}
	})
	s = syncer.New(database, images, client, monitor, cfg.Offline)

	return &engine{
		cfg:    cfg,
		db:     database,
		syncer: s,
	}, nil
}

// Close releases the engine's resources.
func (e *engine) Close() {
	_ = e.db.Close()
}
