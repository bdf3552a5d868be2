package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"

	"github.com/namaste/namaste/internal/domain/clinical"
	"github.com/namaste/namaste/internal/domain/terminology"
	"github.com/namaste/namaste/internal/platform/auth"
	"github.com/namaste/namaste/internal/platform/db"
	"github.com/namaste/namaste/internal/platform/middleware"
)

const sessionWatchInterval = 30 * time.Second

func serveCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the clinical gateway HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(g)
		},
	}
}

// gateway is the assembled HTTP surface. It is built separately from
// the listener so tests can drive it through httptest.
type gateway struct {
	e    *echo.Echo
	app  *app
	pool *pgxpool.Pool
}

func newGateway(ctx context.Context, a *app) (*gateway, error) {
	gw := &gateway{app: a}
	cfg, logger := a.cfg, a.logger

	// History store
	var history terminology.HistoryRepository
	if cfg.HistoryStoreKind() == "postgres" {
		pool, err := db.NewPool(ctx, db.PoolOptions{
			URL:      cfg.DatabaseURL,
			MaxConns: cfg.DBMaxConns,
			MinConns: cfg.DBMinConns,
			AppName:  "namaste-gateway",
		})
		if err != nil {
			return nil, err
		}
		repo := terminology.NewHistoryRepoPG(pool, terminology.DefaultHistoryCapacity)
		if err := repo.Migrate(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		gw.pool = pool
		history = repo
		logger.Info().Msg("translation history stored in postgres")
	} else {
		history = terminology.NewHistoryRepoMemory(terminology.DefaultHistoryCapacity)
	}

	termSvc, err := a.terminologyService(history)
	if err != nil {
		gw.close()
		return nil, err
	}
	searcher := terminology.NewSearcher(termSvc, terminology.SearchOptions{
		Debounce:  cfg.SearchDebounce,
		MinLength: cfg.SearchMinLength,
		Count:     cfg.SearchCount,
	})
	clinicalSvc := clinical.NewService(clinical.NewAssembler(cfg.MRNSystem), a.client, logger)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.ErrorHandler(logger)

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.BodyLimit(cfg.BodyLimit))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Content-Type", "X-Request-ID"},
	}))

	apiV1 := e.Group("/api/v1")
	requireSession := auth.RequireSession(a.tokens)

	auth.NewHandler(a.tokens).RegisterRoutes(apiV1)
	terminology.NewHandler(termSvc, searcher).RegisterRoutes(apiV1, requireSession)
	clinical.NewHandler(clinicalSvc, clinical.NewSession()).RegisterRoutes(apiV1, requireSession)

	checks := []db.Check{{Name: "terminology", Ping: a.client.Ping}}
	if a.redis != nil {
		rc := a.redis
		checks = append(checks, db.Check{
			Name: "redis",
			Ping: func(ctx context.Context) error { return rc.Ping(ctx).Err() },
		})
	}
	if gw.pool != nil {
		checks = append(checks, db.PoolCheck(gw.pool))
	}
	e.GET("/health", db.HealthHandler(checks...))

	gw.e = e
	return gw, nil
}

func (gw *gateway) close() {
	if gw.pool != nil {
		gw.pool.Close()
	}
}

func runServer(g *globals) error {
	cfg, logger, err := g.load()
	if err != nil {
		return err
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("failed to initialise terminology client")
		return err
	}
	defer a.close()

	gw, err := newGateway(ctx, a)
	if err != nil {
		logger.Error().Err(err).Msg("failed to build gateway")
		return err
	}
	defer gw.close()

	go a.tokens.Watch(ctx, sessionWatchInterval)

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("terminology", cfg.TerminologyBaseURL).Msg("starting server")
		if err := gw.e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := gw.e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
	}
	if err := a.tokens.Teardown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("token manager teardown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
