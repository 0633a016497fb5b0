package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AnTengye/contractvigency/backend/config"
	"github.com/AnTengye/contractvigency/backend/handler"
	"github.com/AnTengye/contractvigency/backend/middleware"
	"github.com/AnTengye/contractvigency/backend/service"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig(cmd, os.Stdout)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg)
		},
	}
}

func runServe(ctx context.Context, cfg *config.Config) error {
	var storage service.ObjectStorage
	if cfg.Minio.Enabled() {
		minioSvc, err := service.NewStorageService(&cfg.Minio)
		if err != nil {
			return fmt.Errorf("failed to initialize MINIO service: %w", err)
		}
		if err := minioSvc.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("failed to ensure MINIO bucket: %w", err)
		}
		storage = minioSvc
	} else {
		slog.Warn("object storage disabled, uploaded files are not kept")
	}

	var cache service.BlobCache
	if sc := service.NewSourceCache(cfg.Redis, cfg.Source.CacheTTL); sc != nil {
		if err := sc.Ping(ctx); err != nil {
			slog.Warn("redis unreachable, source cache will miss", "addr", cfg.Redis.Addr, "error", err)
		}
		defer sc.Close()
		cache = sc
	}
	source := service.NewSourceService(&cfg.Source, cache)

	service.InitDatasetStore(&cfg.Store)
	vigency := service.NewVigencyService(service.GetDatasetStore(), storage, source, cfg)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      newRouter(cfg, vigency),
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("server starting", "port", cfg.Server.Port, "timezone", cfg.Pipeline.Timezone)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	slog.Info("server exited gracefully")
	return nil
}

func newRouter(cfg *config.Config, vigency *service.VigencyService) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(corsMiddleware())
	router.Use(noCacheMiddleware())
	router.Use(middleware.RateLimit(cfg.Server.RateLimit, time.Minute))
	router.MaxMultipartMemory = int64(cfg.Server.MaxUploadSizeMB) << 20

	authHandler := handler.NewAuthHandler(cfg)
	datasetHandler := handler.NewDatasetHandler(vigency, cfg.Server.MaxUploadSizeMB)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	api.POST("/auth/login", authHandler.Login)

	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(&cfg.Auth))
	{
		protected.GET("/auth/me", authHandler.GetCurrentUser)

		protected.POST("/datasets/upload", datasetHandler.Upload)
		protected.POST("/datasets/import", datasetHandler.Import)
		protected.GET("/datasets", datasetHandler.List)
		protected.GET("/datasets/:id", datasetHandler.Get)
		protected.DELETE("/datasets/:id", datasetHandler.Delete)
		protected.POST("/datasets/:id/reload", datasetHandler.Reload)

		protected.GET("/datasets/:id/contracts", datasetHandler.Contracts)
		protected.GET("/datasets/:id/dashboard", datasetHandler.Dashboard)
		protected.GET("/datasets/:id/expiring", datasetHandler.Expiring)
		protected.GET("/datasets/:id/distribution", datasetHandler.Distribution)
		protected.GET("/datasets/:id/value-by-status", datasetHandler.ValueByStatus)
		protected.GET("/datasets/:id/top-suppliers", datasetHandler.TopSuppliers)
	}

	return router
}

// corsMiddleware handles CORS headers
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, DELETE")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "X-Request-ID, Retry-After")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// noCacheMiddleware keeps clients from caching evaluations; "today" moves.
func noCacheMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
		c.Header("Pragma", "no-cache")
		c.Header("Expires", "0")
		c.Next()
	}
}
