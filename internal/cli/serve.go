package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/tracetower/internal/server"
	"github.com/matzehuels/tracetower/pkg/cache"
)

// shutdownTimeout bounds how long in-flight requests may run after a
// shutdown signal.
const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	var (
		configPath  string
		db          string
		listen      string
		urlTemplate string
		cacheFlag   string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve lineage graphs over HTTP",
		Long: `Serve lineage graphs over HTTP.

Routes:
  GET /healthz
  GET /api/v1/graph/lineage/{artifact}?format=dot|svg
  GET /api/v1/graph/io/{execution}?format=dot|svg

SVG renders are cached keyed on the graph content, so repeated requests
for an unchanged lineage skip Graphviz entirely.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if db != "" {
				cfg.DB = db
			}
			if listen != "" {
				cfg.Listen = listen
			}
			if urlTemplate != "" {
				cfg.URLTemplate = urlTemplate
			}
			if cacheFlag != "" {
				cfg.Cache.Backend = cacheFlag
			}
			return runServe(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to a TOML config file")
	cmd.Flags().StringVar(&db, "db", "", "path to the metadata database (or set TRACETOWER_DB)")
	cmd.Flags().StringVar(&listen, "listen", "", "HTTP listen address (default :8080)")
	cmd.Flags().StringVar(&urlTemplate, "url-template", "",
		"template for node hyperlinks; variables: {{.node_type}} and {{.id}}")
	cmd.Flags().StringVar(&cacheFlag, "cache", "", "render cache backend: file, redis, none")
	return cmd
}

func runServe(ctx context.Context, cfg Config) error {
	logger := loggerFromContext(ctx)

	s, err := openStore(ctx, cfg.DB)
	if err != nil {
		return err
	}
	defer s.Close()

	renderCache, err := openCache(ctx, cfg.Cache)
	if err != nil {
		return err
	}
	defer renderCache.Close()

	ttl, err := cfg.Cache.cacheTTL()
	if err != nil {
		return err
	}

	srv := server.New(s, renderCache, logger, server.Options{
		URLTemplate: cfg.URLTemplate,
		CacheTTL:    ttl,
	})

	httpSrv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Listen, "cache", cfg.Cache.Backend)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// openCache builds the configured render cache backend.
func openCache(ctx context.Context, cfg CacheConfig) (cache.Cache, error) {
	switch cfg.Backend {
	case "", "none":
		return cache.NewNullCache(), nil
	case "file":
		dir, err := cfg.cacheDir()
		if err != nil {
			return nil, err
		}
		return cache.NewFileCache(dir)
	case "redis":
		if cfg.RedisURL == "" {
			return nil, fmt.Errorf("redis cache requires cache.redis_url")
		}
		return cache.NewRedisCache(ctx, cfg.RedisURL)
	default:
		return nil, fmt.Errorf("unknown cache backend %q (want file, redis, or none)", cfg.Backend)
	}
}
