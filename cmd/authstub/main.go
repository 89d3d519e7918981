package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/zmooth/console/internal/api"
	"github.com/zmooth/console/internal/api/handler"
	"github.com/zmooth/console/internal/core/domain"
	"github.com/zmooth/console/internal/core/ports"
	"github.com/zmooth/console/internal/core/service"
	"github.com/zmooth/console/internal/infrastructure/accounts"
	"github.com/zmooth/console/internal/infrastructure/db/redis"
	"github.com/zmooth/console/internal/infrastructure/memstore"
	"github.com/zmooth/console/internal/pkg/config"
	"github.com/zmooth/console/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.MustLoad(ctx)
	log := logger.Init(logger.Options{Level: cfg.LogLevel, Pretty: cfg.LogPretty, Service: "authstub"})

	seed, err := loadAccounts(cfg.Stub.AccountsFile)
	if err != nil {
		log.Fatal().Err(err).Msg("load accounts")
	}
	repo, err := memstore.NewAccountRepository(seed)
	if err != nil {
		log.Fatal().Err(err).Msg("index accounts")
	}

	sessions, closeStore, err := openRefreshStore(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("open refresh store")
	}
	defer closeStore()

	authService := service.NewAuthService(repo, sessions, cfg.Stub.JWTSecret, cfg.Stub.AccessTokenTTL, cfg.Stub.RefreshTokenTTL)

	e := api.NewRouter(api.Deps{
		Auth:     authService,
		Accounts: repo,
		Sessions: sessions,
		Cookie: handler.CookieConfig{
			Name:   cfg.Stub.RefreshCookieName,
			Secure: cfg.Stub.CookieSecure,
			MaxAge: cfg.Stub.RefreshTokenTTL,
		},
		CORSOrigins: cfg.Stub.CORSOrigins,
		Log:         log,
	})

	go func() {
		log.Info().Str("addr", cfg.Stub.Addr).Int("accounts", len(seed)).Msg("auth stub listening")
		if err := e.Start(cfg.Stub.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server stopped")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}

func loadAccounts(path string) ([]domain.Account, error) {
	if path == "" {
		return accounts.Default()
	}
	return accounts.LoadFile(path)
}

// openRefreshStore picks Redis when an address is configured and falls back
// to process memory otherwise.
func openRefreshStore(ctx context.Context, cfg config.RedisConfig, log zerolog.Logger) (ports.RefreshStore, func(), error) {
	if cfg.Addr == "" {
		store := memstore.NewRefreshStore(log)
		if err := store.Start(); err != nil {
			return nil, nil, err
		}
		log.Info().Msg("refresh sessions kept in memory")
		return store, store.Stop, nil
	}

	client, err := redis.Connect(ctx, redis.Config{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
	if err != nil {
		return nil, nil, err
	}
	log.Info().Str("addr", cfg.Addr).Int("db", cfg.DB).Msg("refresh sessions kept in redis")
	return redis.NewRefreshStore(client), func() { _ = client.Close() }, nil
}
