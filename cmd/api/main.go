package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sony/gobreaker/v2"

	"lugares/internal/adapter/api"
	"lugares/internal/adapter/api/handler"
	apimiddleware "lugares/internal/adapter/api/middleware"
	"lugares/internal/adapter/api/router"
	"lugares/internal/adapter/repository"
	domainrepo "lugares/internal/domain/repository"
	"lugares/internal/infrastructure/cache"
	"lugares/internal/infrastructure/firebase"
	"lugares/internal/infrastructure/metrics"
	"lugares/internal/infrastructure/ratelimit"
	"lugares/internal/infrastructure/websocket"
	"lugares/internal/usecase"
	"lugares/pkg/config"
	"lugares/pkg/logger"
	"lugares/pkg/response"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		log.Fatalf("%v", err)
	}
}

// run owns every client the server needs, so their deferred closes execute
// before main exits on any error.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger := logger.NewStructured(cfg.Environment)
	slog.SetDefault(appLogger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		store    domainrepo.DocumentStore
		verifier usecase.IdentityVerifier
	)

	if cfg.StoreDriver == config.StoreFirestore || cfg.AuthMode == config.AuthFirebase {
		opt, err := firebase.CredentialsOption(cfg.FirebaseServiceAccountJSON, cfg.FirebaseServiceAccountPath)
		if err != nil {
			return fmt.Errorf("failed to load Firebase credentials: %w", err)
		}

		firebaseApp, err := firebase.NewApp(ctx, cfg.FirebaseProject, opt)
		if err != nil {
			return fmt.Errorf("failed to initialize Firebase: %w", err)
		}

		if cfg.AuthMode == config.AuthFirebase {
			authClient, err := firebaseApp.Auth(ctx)
			if err != nil {
				return fmt.Errorf("failed to initialize Firebase Auth: %w", err)
			}
			verifier = firebase.NewFirebaseAuthClient(authClient)
		}

		if cfg.StoreDriver == config.StoreFirestore {
			firestoreClient, err := firebaseApp.Firestore(ctx)
			if err != nil {
				return fmt.Errorf("failed to create Firestore client: %w", err)
			}
			defer firestoreClient.Close()
			store = repository.NewFirestoreDocumentStore(firestoreClient, cfg.TransactionMaxAttempts)
		}
	}

	if store == nil {
		appLogger.Warn("using the in-memory document store, data is lost on restart")
		store = repository.NewMemoryDocumentStore(cfg.TransactionMaxAttempts)
	}
	if verifier == nil {
		appLogger.Warn("accepting development tokens, do not run this in production")
		verifier = firebase.NewDevTokenVerifier()
	}

	store = repository.NewBreakerDocumentStore(store, repository.BreakerSettings{
		Name:        "document-store",
		MaxFailures: cfg.BreakerMaxFailures,
		Timeout:     cfg.BreakerTimeout,
		OnStateChange: func(name string, from, to gobreaker.State) {
			appLogger.Warn("document store breaker changed state",
				slog.String("name", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
			metrics.SetBreakerState(name, to)
		},
	})

	var snapshots usecase.SnapshotCache = cache.NoopSnapshotCache{}
	if cfg.RedisAddr != "" {
		rdb, err := cache.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}
		defer rdb.Close()
		snapshots = cache.NewRedisSnapshotCache(rdb, cfg.CacheTTL)
	}

	wsManager := websocket.NewManager(appLogger)
	wsManager.Start(ctx)

	limiter := ratelimit.NewRateLimiter(ratelimit.DefaultPolicies())
	limiter.StartCleanupRoutine(ctx)

	restaurantUseCase := usecase.NewRestaurantUseCase(store, snapshots, cfg.RatingStrategy, cfg.RescanConcurrency, appLogger)
	ratingUseCase := usecase.NewRatingUseCase(store, cfg.RatingStrategy, snapshots, wsManager, appLogger)
	commentUseCase := usecase.NewCommentUseCase(store, appLogger)

	handler.Setup(restaurantUseCase, ratingUseCase, commentUseCase, store, wsManager, cfg.AllowedOrigins)

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = response.HTTPErrorHandler
	e.Validator = api.NewValidator()

	authMiddleware := apimiddleware.NewAuthMiddleware(verifier, appLogger)
	rateLimit := apimiddleware.NewRateLimitMiddleware(limiter, appLogger)

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{AllowOrigins: cfg.AllowedOrigins}))
	e.Use(apimiddleware.Metrics())
	e.Use(authMiddleware.Optional, rateLimit.General())

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	router.Setup(e, authMiddleware, rateLimit)
	router.SetupDevRouter(e, cfg.AuthMode)

	appLogger.Info("starting server",
		slog.String("port", cfg.ServerPort),
		slog.String("store", cfg.StoreDriver),
		slog.String("rating_strategy", ratingUseCase.Strategy()),
	)
	return serve(ctx, e, ":"+cfg.ServerPort, appLogger)
}

// serve runs e until ctx is done and then shuts it down gracefully. A
// listener failure ends it early with that error.
func serve(ctx context.Context, e *echo.Echo, addr string, logger *slog.Logger) error {
	serverErr := make(chan error, 1)
	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}
