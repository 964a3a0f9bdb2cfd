package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/tair/favorite-products/internal/catalog"
	favoriteHTTP "github.com/tair/favorite-products/internal/favorite/delivery/http"
	favoriteRepo "github.com/tair/favorite-products/internal/favorite/repository"
	"github.com/tair/favorite-products/internal/favorite/usecase/command"
	productHTTP "github.com/tair/favorite-products/internal/product/delivery/http"
	"github.com/tair/favorite-products/internal/product/reconciler"
	productRepo "github.com/tair/favorite-products/internal/product/repository"
	"github.com/tair/favorite-products/internal/product/resolver"
	"github.com/tair/favorite-products/internal/server"
	userHTTP "github.com/tair/favorite-products/internal/user/delivery/http"
	userRepo "github.com/tair/favorite-products/internal/user/repository"
	"github.com/tair/favorite-products/kafka"
	"github.com/tair/favorite-products/pkg/database"
	"github.com/tair/favorite-products/pkg/logger"
	"github.com/tair/favorite-products/pkg/ratelimit"
	"github.com/tair/favorite-products/pkg/tracing"
)

const serviceName = "favorite-products"

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	logger.Init(serviceName, getEnv("ENV", "development") == "development")
	logger.SetLevel(getEnv("LOG_LEVEL", "info"))

	tp, err := tracing.InitTracer(serviceName)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to initialize tracer")
	}

	dbConfig := database.Config{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnv("DB_PORT", "5432"),
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", "postgres"),
		DBName:   getEnv("DB_NAME", "favoritesdb"),
		SSLMode:  getEnv("DB_SSLMODE", "disable"),
	}

	db, err := database.NewGormConnection(dbConfig)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to connect to database")
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to get database instance")
	}
	defer sqlDB.Close()

	// Repositories and migrations
	users := userRepo.NewGormUserRepository(db)
	products := productRepo.NewGormProductRepositoryWithTracing(db)
	favorites := favoriteRepo.NewGormFavoriteRepository(db)

	for _, migrate := range []func() error{users.AutoMigrate, products.AutoMigrate, favorites.AutoMigrate} {
		if err := migrate(); err != nil {
			logger.Logger.Fatal().Err(err).Msg("Failed to run migrations")
		}
	}

	// External catalog client and the cache-or-fetch resolver
	catalogClient := catalog.NewClient(getEnv("CATALOG_URL", "https://fakestoreapi.com"))
	productResolver := resolver.New(products, catalogClient)

	// Kafka is optional; without brokers events are simply not published
	var producer *kafka.Publisher
	var favoritePublisher command.FavoritePublisher
	var reconcilePublisher reconciler.EventPublisher
	if brokers := getEnv("KAFKA_BROKERS", ""); brokers != "" {
		producer, err = kafka.NewPublisher(strings.Split(brokers, ","))
		if err != nil {
			logger.Logger.Fatal().Err(err).Msg("Failed to connect to Kafka")
		}
		defer producer.Close()
		favoritePublisher = producer
		reconcilePublisher = producer
	}

	rec := reconciler.New(products, catalogClient, reconcilePublisher, reconciler.Config{
		Prepopulate: getEnvBool("SYNC_PREPOPULATE", true),
	})

	// Periodic reconciliation
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to create scheduler")
	}

	syncInterval, err := time.ParseDuration(getEnv("SYNC_INTERVAL", "1h"))
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Invalid SYNC_INTERVAL")
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(syncInterval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
			defer cancel()

			result, err := rec.Run(ctx)
			if err != nil {
				logger.Logger.Error().Err(err).Msg("Scheduled reconciliation failed")
				return
			}
			logger.Logger.Info().
				Str("status", string(result.Status)).
				Int("checked", result.Checked).
				Int("updated", result.Updated).
				Int("created", result.Created).
				Int("stale", result.Stale).
				Msg("Scheduled reconciliation finished")
		}),
	)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to schedule reconciliation job")
	}
	scheduler.Start()

	// HTTP handlers
	userHandler := userHTTP.NewUserHandler(users)
	productHandler := productHTTP.NewProductHandler(products, productResolver, rec)
	favoriteHandler := favoriteHTTP.NewFavoriteHandler(favorites, productResolver, favoritePublisher)

	router := mux.NewRouter()
	server.RegisterMiddlewares(router, server.DefaultMiddlewareConfig(serviceName))

	// Redis-backed rate limiting on the API surface; optional like Kafka
	if redisAddr := getEnv("REDIS_ADDR", ""); redisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     redisAddr,
			Password: getEnv("REDIS_PASSWORD", ""),
		})
		limiter := ratelimit.NewRateLimiter(
			redisClient,
			getEnvInt("RATE_LIMIT_MAX", 100),
			time.Minute,
		)
		limited := limiter.Middleware(clientIdentifier)
		router.Use(func(next http.Handler) http.Handler {
			withLimit := limited(next)
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if strings.HasPrefix(r.URL.Path, "/api/") {
					withLimit.ServeHTTP(w, r)
					return
				}
				next.ServeHTTP(w, r)
			})
		})
	}

	userHandler.RegisterRoutes(router)
	productHandler.RegisterRoutes(router)
	productHandler.RegisterAdminRoutes(router)
	productHandler.RegisterHealthCheck(router, sqlDB)
	favoriteHandler.RegisterRoutes(router)

	router.Handle("/metrics", promhttp.Handler())
	router.PathPrefix("/swagger/").Handler(httpSwagger.Handler())

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	port := getEnv("HTTP_PORT", "8080")
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      c.Handler(router),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 3 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Logger.Info().
			Str("port", port).
			Str("sync_interval", syncInterval.String()).
			Msg("HTTP server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Logger.Fatal().Err(err).Msg("Failed to start HTTP server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Logger.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Logger.Error().Err(err).Msg("HTTP server shutdown failed")
	}
	if err := scheduler.Shutdown(); err != nil {
		logger.Logger.Error().Err(err).Msg("Scheduler shutdown failed")
	}
	if err := tracing.Shutdown(shutdownCtx, tp); err != nil {
		logger.Logger.Error().Err(err).Msg("Tracer shutdown failed")
	}
}

// clientIdentifier buckets rate limits per caller, preferring the bearer
// token over the remote address so NATed users are not throttled together
func clientIdentifier(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		return auth
	}
	return r.RemoteAddr
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}
