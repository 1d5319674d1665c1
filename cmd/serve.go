package cmd

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/jonesrussell/apod-api/internal/api"
	"github.com/jonesrussell/apod-api/internal/apod"
	"github.com/jonesrussell/apod-api/internal/cache"
	"github.com/jonesrussell/apod-api/internal/concepts"
	"github.com/jonesrussell/apod-api/internal/config"
	"github.com/jonesrussell/apod-api/internal/httpserver"
	"github.com/jonesrussell/apod-api/internal/logger"
	"github.com/jonesrussell/apod-api/internal/metrics"
)

func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			log, err := logger.New(cfg.Logging)
			if err != nil {
				return fmt.Errorf("create logger: %w", err)
			}
			defer func() { _ = log.Sync() }()

			return runServer(cmd, cfg, log)
		},
	}
}

func runServer(cmd *cobra.Command, cfg *config.Config, log logger.Logger) error {
	ctx := cmd.Context()

	fetcher := apod.NewHTTPFetcher(apod.FetcherConfig{
		BaseURL:   cfg.APOD.BaseURL,
		UserAgent: cfg.APOD.UserAgent,
		Timeout:   cfg.APOD.RequestTimeout,
	})
	thumbs := apod.NewThumbnailResolver(nil)
	service := apod.NewService(fetcher, thumbs, cfg.APOD.BaseURL, log)

	var store *cache.Store
	var cachePing func() error
	if cfg.Cache.Enabled {
		var err error
		store, err = cache.New(ctx, cache.Config{
			Enabled:  cfg.Cache.Enabled,
			Addr:     cfg.Cache.Addr,
			Password: cfg.Cache.Password,
			TTL:      cfg.Cache.TTL,
		}, log)
		if err != nil {
			return fmt.Errorf("create cache: %w", err)
		}
		defer func() { _ = store.Close() }()

		cachePing = store.Ping
		log.Info("record cache enabled",
			logger.String("addr", cfg.Cache.Addr),
			logger.Duration("ttl", cfg.Cache.TTL))
	} else {
		log.Info("record cache disabled")
	}

	var tagger *concepts.Tagger
	if cfg.Concepts.APIKey != "" {
		tagger = concepts.New(concepts.Config{
			APIURL: cfg.Concepts.APIURL,
			APIKey: cfg.Concepts.APIKey,
		}, nil)
	}

	provider := metrics.NewProvider()
	handler := api.NewHandler(service, store, tagger, provider, log)

	server := httpserver.NewServer(&httpserver.Config{
		Port:           cfg.Service.Port,
		Debug:          cfg.Service.Debug,
		ServiceName:    cfg.Service.Name,
		ServiceVersion: cfg.Service.Version,
		CORS: httpserver.CORSConfig{
			Enabled:        cfg.CORS.Enabled,
			AllowedOrigins: cfg.CORS.AllowedOrigins,
			AllowedMethods: cfg.CORS.AllowedMethods,
			AllowedHeaders: cfg.CORS.AllowedHeaders,
			MaxAge:         time.Duration(cfg.CORS.MaxAge) * time.Second,
		},
	}, log, func(router *gin.Engine) {
		api.SetupRoutes(router, api.RouteOptions{
			Handler:     handler,
			Metrics:     provider,
			ServiceName: cfg.Service.Name,
			CachePing:   cachePing,
		})
	})

	return server.RunWithGracefulShutdown(ctx)
}
