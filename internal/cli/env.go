package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/csvstats/csvstats/internal/api"
	"github.com/csvstats/csvstats/internal/config"
	"github.com/csvstats/csvstats/internal/history"
	"github.com/csvstats/csvstats/internal/log"
	"github.com/csvstats/csvstats/internal/session"
	"github.com/csvstats/csvstats/internal/storage"
	"github.com/csvstats/csvstats/internal/tui"
	"github.com/csvstats/csvstats/internal/upload"
)

// env is the wired set of services a command works with.
type env struct {
	home     string
	cfg      *config.Config
	logger   *log.Logger
	closeKV  func() error
	client   *api.Client
	store    *session.Store
	pipeline *upload.Pipeline
	cache    *history.Cache // nil when the snapshot cache is off or unavailable
}

// setup loads config and opens storage, the event log and the session store.
func setup() (*env, error) {
	home, err := config.ResolveHome(homeFlag)
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(home)
	if err != nil {
		return nil, err
	}
	if apiURLFlag != "" {
		cfg.API.BaseURL = strings.TrimRight(apiURLFlag, "/")
	}

	dir := config.Dir(home)
	logger, err := log.NewLogger(dir, cfg.Log.Level, verbose)
	if err != nil {
		return nil, fmt.Errorf("opening event log: %w", err)
	}

	kv, closeKV, err := storage.Open(cfg.Storage.Backend, dir)
	if err != nil {
		_ = logger.Close()
		return nil, fmt.Errorf("opening credential storage: %w", err)
	}

	// The client reads the bearer token back from the store it serves.
	var store *session.Store
	client := api.NewClient(cfg.API.BaseURL,
		api.TokenFunc(func() string { return store.Token() }),
		api.WithTimeout(cfg.RequestTimeout()),
		api.WithUploadTimeout(cfg.UploadTimeout()),
		api.WithUserAgent("csvstats/"+version),
		api.WithLogger(logger.Zap()),
	)

	store, err = session.NewStore(kv, client, logger)
	if err != nil {
		_ = closeKV()
		_ = logger.Close()
		return nil, fmt.Errorf("loading session: %w", err)
	}

	e := &env{
		home:     home,
		cfg:      cfg,
		logger:   logger,
		closeKV:  closeKV,
		client:   client,
		store:    store,
		pipeline: upload.NewPipeline(client, logger),
	}

	if cfg.Uploads.HistoryCache {
		cache, err := history.Open(filepath.Join(dir, history.FileName))
		if err != nil {
			logger.Zap().Warn("history cache unavailable", zap.Error(err))
		} else {
			e.cache = cache
		}
	}

	return e, nil
}

// deps returns the TUI dependencies for this env.
func (e *env) deps(ctx context.Context) tui.Deps {
	return tui.Deps{
		Ctx:      ctx,
		Cfg:      e.cfg,
		Session:  e.store,
		Pipeline: e.pipeline,
		History:  e.cache,
	}
}

// Close releases storage, the cache and the log file.
func (e *env) Close() {
	if e.cache != nil {
		_ = e.cache.Close()
	}
	if e.closeKV != nil {
		_ = e.closeKV()
	}
	_ = e.logger.Close()
}

// commandContext returns the command's context, or Background when the
// command was not started through Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// requireSession returns an error directing the user to log in when no
// session is stored.
func (e *env) requireSession() error {
	if !e.store.IsAuthenticated() {
		return fmt.Errorf("not logged in; run: csvstats login")
	}
	return nil
}
