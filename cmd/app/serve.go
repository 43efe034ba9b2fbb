package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/osse101/CardVault_Go/internal/allocation"
	"github.com/osse101/CardVault_Go/internal/audit"
	"github.com/osse101/CardVault_Go/internal/bootstrap"
	"github.com/osse101/CardVault_Go/internal/catalog"
	"github.com/osse101/CardVault_Go/internal/collection"
	"github.com/osse101/CardVault_Go/internal/config"
	"github.com/osse101/CardVault_Go/internal/database"
	"github.com/osse101/CardVault_Go/internal/handler"
	"github.com/osse101/CardVault_Go/internal/server"
)

func newServeCommand() *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), migrate)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply pending migrations before serving")

	return cmd
}

// openDatabase loads config, installs the logger and connects to Postgres
func openDatabase(ctx context.Context) (*config.Config, *pgxpool.Pool, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	bootstrap.SetupLogger(cfg)
	for _, w := range cfg.Warnings() {
		slog.Warn(w)
	}

	pool, err := database.NewPool(ctx, cfg.GetDBConnString(), database.PoolConfig{
		MaxConns:    cfg.DBMaxConns,
		MaxConnIdle: cfg.DBMaxConnIdle,
		MaxConnLife: cfg.DBMaxConnLife,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return cfg, pool, nil
}

func runServe(parent context.Context, migrate bool) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, pool, err := openDatabase(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	if migrate {
		if err := database.Migrate(ctx, pool); err != nil {
			return err
		}
	}

	events, err := bootstrap.InitializeEventSystem(cfg)
	if err != nil {
		return err
	}

	repos := bootstrap.InitializeRepositories(pool)
	catalogService := catalog.NewService(repos.Catalog, cfg.CatalogCacheSize, cfg.CatalogCacheTTL)
	engine := allocation.NewEngine(catalogService)
	mover := allocation.NewService(repos.Stacks, engine)
	auditService := audit.NewService(repos.Audit, catalogService, engine, events.Publisher, cfg.AuditSessionTTL)
	collectionService := collection.NewService(repos.Stacks, catalogService, mover, events.Publisher)

	handler.GitCommit = GitCommit
	version := cfg.Version
	if version == "" || version == config.DefaultVersion {
		version = Version
	}
	srv := server.NewServer(server.Options{
		Port:               cfg.Port,
		Version:            version,
		JWTSecret:          cfg.JWTSecret,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		TrustedProxies:     cfg.TrustedProxies,
	}, pool, auditService, collectionService)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		bootstrap.GracefulShutdown(shutdownCtx, bootstrap.ShutdownComponents{
			Server: srv,
			Events: events,
		})
		return nil
	})

	return g.Wait()
}
