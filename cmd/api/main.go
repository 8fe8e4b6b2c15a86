package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"google.golang.org/grpc"

	"tasklane.org/internal/accounts"
	"tasklane.org/internal/auth"
	"tasklane.org/internal/config"
	"tasklane.org/internal/httpapi"
	"tasklane.org/internal/obs"
	"tasklane.org/internal/session"
	"tasklane.org/internal/store/sqlstore"
	"tasklane.org/internal/stream"
	"tasklane.org/internal/todos"
)

var version = "0.1.0"

func main() {
	if err := run(); err != nil {
		obs.Logger().Error("tasklane-api stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := obs.NewLogger(cfg.Env, os.Stdout)
	obs.SetLogger(logger)
	slog.SetDefault(logger)
	obs.Init()
	obs.InitBuildInfo(version, string(cfg.AuthMode))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := sqlstore.Open(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return err
	}
	defer db.Close()

	migrateCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	applied, err := db.Migrate(migrateCtx)
	cancel()
	if err != nil {
		return err
	}
	if len(applied) > 0 {
		logger.Info("migrations applied", "driver", db.Driver(), "names", applied)
	}

	accountSvc := accounts.NewService(db.Accounts())
	events := stream.New()
	todoSvc := todos.NewService(db.Todos(), todos.WithPublisher(events))

	verifier, err := auth.NewVerifier(accountSvc, logger)
	if err != nil {
		return err
	}
	orchCfg := auth.OrchestratorConfig{
		Mode:     cfg.AuthMode,
		Verifier: verifier,
		Logger:   logger,
	}
	ready := httpapi.ReadyProbe{DB: db.SQL()}

	switch cfg.AuthMode {
	case auth.ModeToken:
		codec, err := auth.NewTokenCodec([]byte(cfg.AuthSecret), auth.WithIssuer(cfg.TokenIssuer))
		if err != nil {
			return err
		}
		orchCfg.Tokens = codec
		orchCfg.TokenTTL = cfg.TokenTTL
	case auth.ModeSession:
		opts := session.Options{IdleTimeout: cfg.SessionIdleTimeout, MaxLifetime: cfg.SessionMaxLifetime}
		switch cfg.SessionBackend {
		case config.SessionRedis:
			client := redis.NewClient(&redis.Options{
				Addr:     cfg.RedisAddr,
				Password: cfg.RedisPassword,
				DB:       cfg.RedisDB,
			})
			defer client.Close()
			store, err := session.NewRedis(client, opts)
			if err != nil {
				return err
			}
			orchCfg.Sessions = store
			ready.Sessions = store
		default:
			opts.OnCount = obs.SetActiveSessions
			store := session.NewMemory(opts)
			store.StartJanitor(ctx, time.Minute)
			orchCfg.Sessions = store
		}
	}

	orch, err := auth.NewOrchestrator(orchCfg)
	if err != nil {
		return err
	}

	api, err := httpapi.New(httpapi.Options{
		Version:  version,
		Logger:   logger,
		Ready:    ready,
		Accounts: accountSvc,
		Todos:    todoSvc,
		Auth:     orch,
		Sessions: orchCfg.Sessions,
		Gate:     httpapi.DefaultGate(cfg.GateDefault),
		Cookie: session.CookieOptions{
			Name:   cfg.CookieName,
			Secure: cfg.CookieSecure,
			MaxAge: int(cfg.SessionMaxLifetime.Seconds()),
		},
		Events:      events,
		RateBurst:   cfg.RateBurst,
		RatePerSec:  cfg.RatePerSec,
		CORSOrigins: cfg.CORSOrigins,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	health := httpapi.NewHealthServer(ready)
	grpcSrv := grpc.NewServer()
	health.Register(grpcSrv)
	go health.Run(ctx, 5*time.Second)

	errCh := make(chan error, 2)
	go func() {
		logger.Info("http listening", "addr", srv.Addr, "version", version, "auth_mode", string(cfg.AuthMode))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	if cfg.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			return err
		}
		go func() {
			logger.Info("grpc health listening", "addr", cfg.GRPCAddr)
			if err := grpcSrv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				errCh <- err
			}
		}()
	}

	select {
	case <-ctx.Done():
	case err = <-errCh:
	}
	logger.Info("shutting down")

	health.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if serr := srv.Shutdown(shutdownCtx); serr != nil {
		logger.Error("http shutdown", "error", serr)
	}
	grpcSrv.GracefulStop()
	logger.Info("stopped")
	return err
}
