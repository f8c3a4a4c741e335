package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"orgadmin.io/internal/audit"
	"orgadmin.io/internal/auth"
	"orgadmin.io/internal/config"
	"orgadmin.io/internal/grpcapi"
	"orgadmin.io/internal/httpapi"
	"orgadmin.io/internal/migrate"
	"orgadmin.io/internal/obs"
	"orgadmin.io/internal/org"
)

// Set at link time with -ldflags "-X main.version=... -X main.commit=...".
var (
	version = "0.1.0"
	commit  = ""
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := obs.NewLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("orgadmin-api stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	obs.Init()
	obs.SetBuildInfo(version, commit)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		db        *sql.DB
		authStore auth.Store
		orgStore  org.Store
	)
	if cfg.PGDSN != "" {
		var err error
		db, err = sql.Open("pgx", cfg.PGDSN)
		if err != nil {
			return err
		}
		defer db.Close()
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(30 * time.Minute)

		if cfg.MigrateOnStart {
			mctx, cancel := context.WithTimeout(ctx, 30*time.Second)
			err := migrate.NewManager(db, migrate.WithLogger(logger)).Up(mctx)
			cancel()
			if err != nil {
				return err
			}
		}
		authStore = auth.NewPGStore(db)
		orgStore = org.NewPGStore(db)
	} else {
		logger.Warn("ORGADMIN_PG_DSN not set, using in-memory stores")
		authStore = auth.NewMemoryStore()
		orgStore = org.NewMemoryStore()
	}

	catalog := auth.NewCatalog(authStore.Catalog(ctx), logger)
	defer catalog.Close()
	if err := catalog.Init(ctx); err != nil {
		return err
	}

	tokens, err := auth.NewTokens(cfg.AuthSecret,
		auth.WithIssuer(cfg.AuthIssuer),
		auth.WithAccessTTL(cfg.AccessTTL),
		auth.WithRefreshTTL(cfg.RefreshTTL),
	)
	if err != nil {
		return err
	}
	hasher, err := auth.NewHasher(cfg.BcryptCost)
	if err != nil {
		return err
	}
	authSvc, err := auth.NewService(authStore, tokens, hasher, auth.WithLogger(logger))
	if err != nil {
		return err
	}

	api := httpapi.New(httpapi.Deps{
		Auth:       authSvc,
		Evaluator:  auth.NewEvaluator(authStore, logger),
		Catalog:    catalog,
		Org:        org.NewService(orgStore, logger),
		Ready:      httpapi.ReadyProbe{DB: db},
		Logger:     logger,
		Audit:      audit.New(logger),
		RateBurst:  cfg.RateBurst,
		RatePerSec: cfg.RatePerSecond,
	})
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("http listening", zap.String("addr", srv.Addr), zap.String("version", version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var grpcSrv *grpcapi.Server
	if cfg.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			return err
		}
		grpcSrv = grpcapi.NewServer(authSvc, logger)
		grpcSrv.SetServing(catalog.Ready())
		go func() {
			if err := grpcSrv.Serve(lis); err != nil {
				errCh <- err
			}
		}()
	}

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		logger.Error("server failed", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if grpcSrv != nil {
		grpcSrv.GracefulStop()
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("stopped")
	return nil
}
