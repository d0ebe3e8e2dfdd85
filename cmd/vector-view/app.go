package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/NikolayKlyatishev/vector-view/pkg/config"
	"github.com/NikolayKlyatishev/vector-view/pkg/debug"
	"github.com/NikolayKlyatishev/vector-view/pkg/embedding"
	"github.com/NikolayKlyatishev/vector-view/pkg/query"
	"github.com/NikolayKlyatishev/vector-view/pkg/session"
	"github.com/NikolayKlyatishev/vector-view/pkg/settings"
	"github.com/NikolayKlyatishev/vector-view/pkg/storage"
	"github.com/NikolayKlyatishev/vector-view/pkg/storage/file"
	"github.com/NikolayKlyatishev/vector-view/pkg/storage/memory"
	"github.com/NikolayKlyatishev/vector-view/pkg/storage/postgres"
	"github.com/NikolayKlyatishev/vector-view/pkg/transport"
	"github.com/NikolayKlyatishev/vector-view/pkg/vectordb/chromem"
)

// Ensure the core components satisfy the transport interfaces.
var (
	_ transport.ConnectionService = (*session.Manager)(nil)
	_ transport.QueryService      = (*query.Service)(nil)
	_ transport.PreferenceService = (*settings.Store)(nil)
	_ transport.SettingsService   = (*config.Holder)(nil)
)

// app is the core stack shared by every subcommand.
type app struct {
	cfg        *config.Config
	configPath string
	logger     *slog.Logger

	store   storage.DocumentStore
	prefs   *settings.Store
	opener  chromem.Opener
	loader  embedding.Loader
	manager *session.Manager

	closers []func() error
}

// loadApp loads the configuration and builds the stack. Close must be
// called on the returned app.
func loadApp(ctx context.Context, configPath string) (*app, error) {
	cfg, path, err := config.LoadWithPath(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	initLogging(cfg)
	logger := slog.Default()
	if path != "" {
		logger.Info("configuration loaded", "file", path)
	}

	a := &app{cfg: cfg, configPath: path, logger: logger, opener: chromem.Opener{Compress: cfg.Database.Compress}}

	a.store, err = openStore(ctx, cfg.Data)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, a.store.Close)

	loader, closeCache, err := newLoader(cfg.Embedding)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.loader = loader
	if closeCache != nil {
		a.closers = append(a.closers, closeCache)
	}

	a.prefs = settings.Load(ctx, a.store, logger)
	a.manager = session.New(ctx, a.store, a.opener, a.loader,
		session.WithLogger(logger),
		session.WithPreferences(a.prefs),
		session.WithSearchRoots(cfg.Session.SearchRoots),
	)
	return a, nil
}

// Close disconnects the session and releases the stores in reverse order.
func (a *app) Close() error {
	if a.manager != nil {
		a.manager.Disconnect(context.Background())
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func initLogging(cfg *config.Config) {
	level := cfg.Observability.LogLevel
	if level == "" && cfg.Server.Debug {
		level = "DEBUG"
	}
	debug.Init(cfg.Observability.Debug, level)
}

func openStore(ctx context.Context, cfg config.DataConfig) (storage.DocumentStore, error) {
	switch cfg.Backend {
	case "memory":
		slog.Info("data backend", "type", "memory")
		return memory.New(), nil
	case "postgres":
		s, err := postgres.New(ctx, postgres.Config{
			DSN:            cfg.Postgres.DSN,
			MaxConns:       cfg.Postgres.MaxConns,
			MigrateOnStart: cfg.Postgres.MigrateOnStart,
		})
		if err != nil {
			return nil, fmt.Errorf("opening postgres store: %w", err)
		}
		slog.Info("data backend", "type", "postgres")
		return s, nil
	default:
		s, err := file.New(cfg.Dir)
		if err != nil {
			return nil, err
		}
		slog.Info("data backend", "type", "file", "dir", s.Dir())
		return s, nil
	}
}

// newLoader builds the embedding loader. The returned close function is
// non-nil when a cache was opened.
func newLoader(cfg config.EmbeddingConfig) (embedding.Loader, func() error, error) {
	lc := embedding.Config{
		DefaultProvider: cfg.DefaultProvider,
		BaseURL:         cfg.BaseURL,
		APIKey:          cfg.APIKey,
		Timeout:         cfg.Timeout,
		ProbeOnLoad:     cfg.ProbeOnLoad,
	}
	var closeCache func() error
	if cfg.Cache.Enabled {
		c, err := embedding.OpenBadgerCache(cfg.Cache.Dir)
		if err != nil {
			return nil, nil, err
		}
		lc.Cache = c
		closeCache = c.Close
	}
	return embedding.NewLoader(lc), closeCache, nil
}
