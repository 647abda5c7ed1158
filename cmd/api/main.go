package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/tapcard-api/internal/application/activation"
	"github.com/tapcard-api/internal/config"
	"github.com/tapcard-api/internal/infrastructure/dynamo"
	jwtinfra "github.com/tapcard-api/internal/infrastructure/jwt"
	"github.com/tapcard-api/internal/infrastructure/metrics"
	redisinfra "github.com/tapcard-api/internal/infrastructure/redis"
	s3infra "github.com/tapcard-api/internal/infrastructure/s3"
	"github.com/tapcard-api/internal/infrastructure/smtp"
	transporthttp "github.com/tapcard-api/internal/transport/http"
	"github.com/tapcard-api/internal/transport/http/handler"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)})))
	metrics.MustRegister()

	// Bootstrap DynamoDB tables (creates them if they don't exist).
	dynamoClient := dynamo.NewClient(cfg)
	dynamo.Bootstrap(context.Background(), dynamoClient, cfg.DynamoTables)

	// JWT provider (optional, graceful fallback if keys are missing).
	var jwtProvider *jwtinfra.Provider
	if p, err := jwtinfra.NewProvider(cfg); err == nil {
		jwtProvider = p
	} else {
		slog.Warn("JWT provider not available", "err", err)
	}

	activationRepo := dynamo.NewActivationRepo(dynamoClient, cfg.DynamoTables.ActivationRecords, cfg.DynamoTables.ActivationKeys)
	readiness := map[string]handler.Check{"dynamodb": activationRepo.Ping}

	staging, redisClient := claimStaging(cfg)
	if redisClient != nil {
		defer redisClient.Close()
		readiness["redis"] = redisClient.Ping
	}

	s3Client := s3infra.NewClient(cfg)

	deps := &transporthttp.Deps{
		UserRepo:       dynamo.NewUserRepo(dynamoClient, cfg.DynamoTables.Users),
		SessionRepo:    dynamo.NewSessionRepo(dynamoClient, cfg.DynamoTables.Sessions),
		ActivationRepo: activationRepo,
		CardRepo:       dynamo.NewCardRepo(dynamoClient, cfg.DynamoTables.Cards, cfg.DynamoTables.ActivationRecords),
		ClaimStaging:   staging,
		S3Store:        s3infra.NewStore(s3Client, cfg.S3BucketName),
		Mailer:         smtp.NewMailer(cfg),
		JWTProvider:    jwtProvider,
		Readiness:      readiness,
	}

	router := transporthttp.NewRouter(cfg, deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "port", cfg.AppPort, "env", cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}
	slog.Info("server stopped")
}

// claimStaging connects to Redis when REDIS_ADDR is set. Without it, or when
// Redis is unreachable, deferred claims live in process memory and the
// returned client is nil.
func claimStaging(cfg *config.Config) (activation.Staging, *redisinfra.Client) {
	if cfg.RedisAddr == "" {
		slog.Warn("REDIS_ADDR not set, deferred claims kept in memory")
		return activation.NewMemoryStaging(cfg.ClaimIntentTTL), nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	client, err := redisinfra.NewClient(ctx, cfg)
	if err != nil {
		slog.Warn("redis unavailable, deferred claims kept in memory", "addr", cfg.RedisAddr, "err", err)
		return activation.NewMemoryStaging(cfg.ClaimIntentTTL), nil
	}
	return redisinfra.NewClaimStaging(client, cfg.ClaimIntentTTL), client
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
