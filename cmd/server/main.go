package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	goredis "github.com/redis/go-redis/v9"

	"github.com/ashahrourr/job-tracker/internal/adapter/google"
	"github.com/ashahrourr/job-tracker/internal/adapter/httpserver"
	"github.com/ashahrourr/job-tracker/internal/adapter/postgres"
	redisadapter "github.com/ashahrourr/job-tracker/internal/adapter/redis"
	"github.com/ashahrourr/job-tracker/internal/app"
	"github.com/ashahrourr/job-tracker/internal/ingest"
	"github.com/ashahrourr/job-tracker/internal/platform/config"
	"github.com/ashahrourr/job-tracker/internal/platform/crypto"
	"github.com/ashahrourr/job-tracker/internal/platform/logging"
	"github.com/ashahrourr/job-tracker/internal/token"
)

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupDB(cfg *config.Config) *pgxpool.Pool {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := postgres.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	return pool
}

func setupRedis(ctx context.Context, cfg *config.Config) *goredis.Client {
	client, err := redisadapter.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	return client
}

func setupCrypto(cfg *config.Config) crypto.Service {
	if cfg.TokenEncryptionKey == "" {
		slog.Warn("TOKEN_ENCRYPTION_KEY not set, storing Gmail tokens unencrypted")
		return crypto.NoopService{}
	}

	svc, err := crypto.NewAesGcmService(cfg.TokenEncryptionKey)
	if err != nil {
		slog.Error("Failed to create crypto service", "error", err)
		os.Exit(1)
	}
	return svc
}

func runGracefulShutdown(srv *httpserver.Server, stopScheduler context.CancelFunc) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		stopScheduler()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.Init(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port)

	pool := setupDB(cfg)
	defer pool.Close()

	redisClient := setupRedis(context.Background(), cfg)
	defer func() { _ = redisClient.Close() }()

	cryptoSvc := setupCrypto(cfg)

	jobRepo := postgres.NewJobRepo(pool)
	tokenRepo := postgres.NewTokenRepo(pool, cryptoSvc)

	processed := redisadapter.NewProcessedCache(redisClient)
	syncLock := redisadapter.NewSyncLock(redisClient)

	oauthClient := google.NewOAuthClient(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURI)
	mailboxes := google.NewMailboxFactory(oauthClient, tokenRepo)

	openMailbox := func(ctx context.Context, userEmail string) (ingest.Mailbox, error) {
		return mailboxes.Mailbox(ctx, userEmail)
	}
	ingestSvc := ingest.NewService(openMailbox, jobRepo, processed, cfg.GmailQuery, cfg.GmailMaxResults)

	appSvc := app.NewService(jobRepo, tokenRepo, ingestSvc, syncLock)
	tokens := token.NewManager(cfg.JWTSecret, cfg.AccessTokenTTL, clock)

	healthChecks := []httpserver.HealthCheck{
		{Name: "postgres", Check: pool.Ping},
		{Name: "redis", Check: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }},
	}

	srv := httpserver.NewServer(cfg, appSvc, oauthClient, tokens, healthChecks)

	schedulerCtx, stopScheduler := context.WithCancel(context.Background())
	defer stopScheduler()
	scheduler := app.NewScheduler(appSvc, cfg.SyncInterval, clock)
	go scheduler.Run(schedulerCtx)

	done := runGracefulShutdown(srv, stopScheduler)

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
