package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/smartgarden/backend/internal/adapters/cache"
	"github.com/smartgarden/backend/internal/adapters/database"
	"github.com/smartgarden/backend/internal/adapters/search"
	"github.com/smartgarden/backend/internal/api/handlers"
	"github.com/smartgarden/backend/internal/api/routes"
	"github.com/smartgarden/backend/internal/application/services"
	"github.com/smartgarden/backend/internal/domain/providers"
	"github.com/smartgarden/backend/internal/domain/repositories"
	"github.com/smartgarden/backend/internal/infrastructure/clients/postgres"
	"github.com/smartgarden/backend/internal/infrastructure/clients/redis"
	"github.com/smartgarden/backend/internal/infrastructure/clients/typesense"
	"github.com/smartgarden/backend/internal/infrastructure/observability"
	"github.com/smartgarden/backend/pkg/config"
	"github.com/smartgarden/backend/pkg/secrets"
)

func main() {
	// Secrets from Vault land in the environment before configuration reads it
	vaultResult, err := secrets.Apply(context.Background(), secrets.ConfigFromEnv())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load vault secrets: %v\n", err)
		os.Exit(1)
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Environment)

	if err := cfg.ValidateServer(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	if vaultResult.Loaded+vaultResult.Skipped > 0 {
		log.Info().Int("loaded", vaultResult.Loaded).Int("skipped", vaultResult.Skipped).Msg("vault secrets applied")
	}

	// Set up context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry if enabled
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			log.Warn().Err(err).Msg("failed to set up OpenTelemetry")
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					log.Error().Err(err).Msg("error shutting down OpenTelemetry")
				}
			}()
			log.Info().Str("endpoint", cfg.OTEL.Endpoint).Msg("OpenTelemetry initialized")
		}
	}

	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize metrics")
	}

	// Initialize database client
	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize PostgreSQL client")
	}
	defer pgClient.Close()

	if err := pgClient.EnsureSchema(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to create schema")
	}

	healthChecks := map[string]handlers.HealthCheck{
		"postgres": pgClient.Ping,
	}

	// Redis is optional; the store works without a read cache
	var cacheProvider providers.CacheProvider
	if cfg.Redis.Enabled {
		redisClient, err := redis.NewClient(&cfg.Redis)
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable, continuing without cache")
		} else {
			defer redisClient.Close()
			cacheProvider = cache.NewRedisAdapter(redisClient, "smartgarden")
			healthChecks["redis"] = func(ctx context.Context) error {
				return redisClient.Client().Ping(ctx).Err()
			}
			log.Info().Str("addr", cfg.Redis.RedisAddr()).Msg("redis client initialized")
		}
	}

	// Typesense is optional; search falls back to scanning the user's records
	var searchIndex providers.PlantSearchIndex
	if cfg.Typesense.Enabled {
		typesenseClient, err := typesense.NewClient(&cfg.Typesense)
		if err != nil {
			log.Warn().Err(err).Msg("typesense unavailable, search will scan records")
		} else if err := typesenseClient.InitSchema(ctx); err != nil {
			log.Warn().Err(err).Msg("failed to initialize typesense schema, search will scan records")
		} else {
			searchIndex = search.NewTypesenseAdapter(typesenseClient)
		}
	}

	// Initialize adapters
	var plantRepo repositories.PlantRepository = database.NewPlantAdapter(pgClient)
	if cacheProvider != nil {
		plantRepo = database.NewCachedPlantAdapter(plantRepo, cacheProvider)
	}
	userRepo := database.NewUserAdapter(pgClient)

	// Initialize services
	if cfg.Auth.JWTSecret == "" {
		secret, err := ephemeralSecret()
		if err != nil {
			log.Fatal().Err(err).Msg("failed to generate development secret")
		}
		cfg.Auth.JWTSecret = secret
		log.Warn().Msg("JWT_SECRET not set, tokens will not survive a restart")
	}
	authService, err := services.NewAuthService(userRepo, &cfg.Auth)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize auth service")
	}
	plantService := services.NewPlantService(plantRepo, searchIndex)

	router := routes.NewRouter(
		handlers.NewPlantHandler(plantService),
		handlers.NewAuthHandler(authService),
		handlers.NewHealthHandler(healthChecks),
		authService,
		cfg.Server.AllowedOrigins,
		metrics,
	)

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router.SetupRoutes(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", serverAddr).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("server shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during server shutdown")
	}

	log.Info().Msg("server stopped")
}

func ephemeralSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
