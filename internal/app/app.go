// Package app provides application-level coordination and dependency
// injection. It wires configuration, observability, storage, the
// OpenWeather adapter, and the session controller into a running HTTP
// gateway and manages their lifecycles.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/sean-rowe/weather-app/internal/adapters/primary/rest"
	"github.com/sean-rowe/weather-app/internal/adapters/secondary/openweather"
	"github.com/sean-rowe/weather-app/internal/config"
	"github.com/sean-rowe/weather-app/internal/core/ports"
	"github.com/sean-rowe/weather-app/internal/core/services"
	"github.com/sean-rowe/weather-app/internal/infrastructure/cache"
	"github.com/sean-rowe/weather-app/internal/infrastructure/circuitbreaker"
	"github.com/sean-rowe/weather-app/internal/infrastructure/database"
	"github.com/sean-rowe/weather-app/internal/infrastructure/prefs"
	"github.com/sean-rowe/weather-app/internal/infrastructure/ratelimit"
	"github.com/sean-rowe/weather-app/internal/infrastructure/session"
	"github.com/sean-rowe/weather-app/internal/middleware"
	"github.com/sean-rowe/weather-app/internal/observability"
	"github.com/sean-rowe/weather-app/internal/version"
)

// App manages the application lifecycle and dependencies.
type App struct {
	cfg           *config.Config
	logger        *zap.Logger
	telemetry     *observability.Telemetry
	db            *database.PostgresDB
	server        *http.Server
	metricsServer *http.Server
	watchCancel   context.CancelFunc
}

// New creates a new application instance. Configuration is validated
// up front: without an OpenWeather API key every search would fail, so
// startup fails instead.
//
// Returns:
//   - *App: Configured application instance
//   - error: Logger initialization or configuration error
func New() (*App, error) {
	logger, err := zap.NewProduction()

	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	cfg := config.Load()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &App{
		cfg:    cfg,
		logger: logger,
	}, nil
}

// Start initializes and starts all application components.
//
// Parameters:
//   - ctx: Context for initialization
//
// Returns:
//   - error: Server start error
func (a *App) Start(ctx context.Context) error {
	if err := a.initTelemetry(ctx); err != nil {
		a.logger.Warn("failed to initialize telemetry, continuing without it", zap.Error(err))
	}

	cacheService, rateLimitService := a.initRedisServices(ctx)
	prefStore := a.initPreferences()

	owClient := a.initOpenWeatherClient()
	geoProvider := services.NewGeoLocationService(owClient, cacheService, a.logger)
	weatherProvider := services.NewWeatherService(owClient, cacheService, a.logger)

	controller := services.NewSessionController(
		geoProvider,
		weatherProvider,
		prefStore,
		session.NewMemorySavedState(),
		a.logger,
	)

	watchCtx, cancel := context.WithCancel(context.Background())
	a.watchCancel = cancel

	go controller.WatchPreferences(watchCtx)

	weatherHandler := rest.NewWeatherHandler(geoProvider, weatherProvider, a.logger)
	sessionHandler := rest.NewSessionHandler(controller, owClient, a.logger)

	rateLimitMiddleware := middleware.NewRateLimitMiddleware(
		rateLimitService,
		a.cfg.RateLimit.RPS,
		a.cfg.RateLimit.Window,
		a.logger,
	)

	router := a.setupRouter(weatherHandler, sessionHandler, rateLimitMiddleware)

	a.server = &http.Server{
		Addr:         fmt.Sprintf(":%s", a.cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
		IdleTimeout:  a.cfg.Server.IdleTimeout,
	}

	go func() {
		a.logger.Info("starting HTTP server", zap.String("port", a.cfg.Server.Port))

		if err := a.server.ListenAndServe(); err != nil {
			if !errors.Is(err, http.ErrServerClosed) {
				a.logger.Fatal("failed to start server", zap.Error(err))
			}
		}
	}()

	a.startMetricsServer()

	return nil
}

// Stop gracefully shuts down all application components.
func (a *App) Stop() {
	a.logger.Info("shutting down application...")

	if a.watchCancel != nil {
		a.watchCancel()
	}

	if a.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("failed to shutdown server gracefully", zap.Error(err))
		}
	}

	if a.metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := a.metricsServer.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("failed to shutdown metrics server gracefully", zap.Error(err))
		}
	}

	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Error("failed to close database connection", zap.Error(err))
		}
	}

	if a.telemetry != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := a.telemetry.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("failed to shutdown telemetry", zap.Error(err))
		}
	}

	if err := a.logger.Sync(); err != nil {
		// Sync can fail on some platforms, ignore the error
		_ = err
	}
}

// WaitForShutdown blocks until the server receives a shutdown signal.
func (a *App) WaitForShutdown() {
	quit := make(chan os.Signal, 1)

	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	a.logger.Info("shutdown signal received")
}

// initTelemetry initializes OpenTelemetry providers.
func (a *App) initTelemetry(ctx context.Context) error {
	telemetryConfig := observability.Config{
		ServiceName:    a.cfg.Observability.ServiceName,
		ServiceVersion: a.cfg.Observability.ServiceVersion,
		Environment:    a.cfg.Observability.Environment,
		OTLPEndpoint:   a.cfg.Observability.OTLPEndpoint,
		SampleRate:     a.cfg.Observability.SampleRate,
	}

	var err error
	a.telemetry, err = observability.InitTelemetry(ctx, telemetryConfig, a.logger)

	return err
}

// initRedisServices initializes Redis-based or memory-based cache and
// rate limiting. Redis failures fall back to memory so the app keeps
// working on a single instance.
//
// Returns:
//   - ports.CacheService: Cache implementation (Redis or memory)
//   - ports.RateLimitService: Rate limiter implementation (Redis or memory)
func (a *App) initRedisServices(ctx context.Context) (ports.CacheService, ports.RateLimitService) {
	if !a.cfg.Redis.Enabled {
		a.logger.Info("Redis disabled, using memory-based services")

		return a.memoryServices()
	}

	redisCfg := cache.Config{
		Addr:         a.cfg.Redis.Addr,
		Password:     a.cfg.Redis.Password,
		DB:           a.cfg.Redis.DB,
		PoolSize:     a.cfg.Redis.PoolSize,
		MinIdleConns: a.cfg.Redis.MinIdleConns,
		MaxRetries:   a.cfg.Redis.MaxRetries,
		DialTimeout:  a.cfg.Redis.DialTimeout,
		ReadTimeout:  a.cfg.Redis.ReadTimeout,
		WriteTimeout: a.cfg.Redis.WriteTimeout,
	}

	cacheService, err := cache.NewRedisCache(redisCfg, a.logger)

	if err != nil {
		a.logger.Warn("Redis connection failed, falling back to memory-based services", zap.Error(err))

		return a.memoryServices()
	}

	a.logger.Info("Redis connected successfully")

	redisCache := cacheService.(*cache.RedisCache)
	rateLimitService := ratelimit.NewRedisRateLimiter(redisCache.Client(), a.logger)

	return cacheService, rateLimitService
}

func (a *App) memoryServices() (ports.CacheService, ports.RateLimitService) {
	memCache := cache.NewMemoryCache(5*time.Minute, 10*time.Minute, a.logger)
	memRateLimit := middleware.NewMemoryRateLimiter(a.logger)

	return memCache, memRateLimit
}

// initPreferences builds the preference store over PostgreSQL when the
// database is enabled and reachable, otherwise over process memory.
// With the memory backend the persisted city does not survive a
// restart.
//
// Returns:
//   - ports.PreferenceStore: Preference store ready for use
func (a *App) initPreferences() ports.PreferenceStore {
	if !a.cfg.Database.Enabled {
		a.logger.Info("database disabled, preferences will not survive restarts")

		return prefs.NewStore(prefs.NewMemoryBackend(), a.logger)
	}

	dbConfig := database.Config{
		Host:                  a.cfg.Database.Host,
		Port:                  a.cfg.Database.Port,
		User:                  a.cfg.Database.User,
		Password:              a.cfg.Database.Password,
		Database:              a.cfg.Database.Database,
		SSLMode:               a.cfg.Database.SSLMode,
		MaxConnections:        a.cfg.Database.MaxConnections,
		MaxIdleConnections:    a.cfg.Database.MaxIdleConnections,
		ConnectionMaxLifetime: a.cfg.Database.ConnectionMaxLifetime,
	}

	db, err := database.NewPostgresDB(dbConfig, a.logger)

	if err != nil {
		a.logger.Warn("failed to connect to database, preferences will not survive restarts", zap.Error(err))

		return prefs.NewStore(prefs.NewMemoryBackend(), a.logger)
	}

	if err := database.RunMigrations(db.DB(), a.logger); err != nil {
		a.logger.Warn("failed to run migrations, preferences will not survive restarts", zap.Error(err))

		if closeErr := db.Close(); closeErr != nil {
			a.logger.Error("failed to close database connection", zap.Error(closeErr))
		}

		return prefs.NewStore(prefs.NewMemoryBackend(), a.logger)
	}

	a.db = db

	return prefs.NewStore(prefs.NewPostgresBackend(db), a.logger)
}

// initOpenWeatherClient creates the OpenWeather client with circuit
// breaker protection.
//
// Returns:
//   - *openweather.Client: Client for geocoding and weather fetches
func (a *App) initOpenWeatherClient() *openweather.Client {
	httpClient := &http.Client{
		Timeout: a.cfg.OpenWeather.HTTPTimeout,
	}

	breaker := circuitbreaker.New(circuitbreaker.Config{
		Name:        "openweather",
		MaxRequests: 3,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
	}, a.logger)

	return openweather.NewClient(
		a.cfg.OpenWeather.BaseURL,
		a.cfg.OpenWeather.APIKey,
		httpClient,
		breaker,
		a.logger,
	)
}

// setupRouter creates and configures the HTTP router with all
// middleware and routes.
//
// Parameters:
//   - weatherHandler: Handler for the stateless weather lookup
//   - sessionHandler: Handler for the session routes
//   - rateLimitMiddleware: Rate-limiting middleware instance
//
// Returns:
//   - http.Handler: Configured router with all routes and middleware
func (a *App) setupRouter(
	weatherHandler *rest.WeatherHandler,
	sessionHandler *rest.SessionHandler,
	rateLimitMiddleware *middleware.RateLimitMiddleware,
) http.Handler {
	router := mux.NewRouter()

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}).Methods("GET")

	router.HandleFunc("/version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)

		if err := json.NewEncoder(w).Encode(version.Get()); err != nil {
			a.logger.Error("failed to encode version info", zap.Error(err))
		}
	}).Methods("GET")

	if a.telemetry != nil {
		obsMiddleware := middleware.NewObservabilityMiddleware(a.telemetry, a.logger)
		router.Use(obsMiddleware.TracingMiddleware)
		router.Use(obsMiddleware.MetricsMiddleware)
		router.Use(obsMiddleware.LoggingMiddleware)
	}

	api := router.PathPrefix("/api/v1").Subrouter()

	// The stateless lookup is the only route open to arbitrary clients,
	// so it alone is throttled.
	weatherAPI := api.PathPrefix("/weather").Subrouter()
	weatherAPI.Use(rateLimitMiddleware.Middleware)
	weatherAPI.HandleFunc("", weatherHandler.GetWeather).Methods("GET")

	sessionAPI := api.PathPrefix("/session").Subrouter()
	sessionAPI.HandleFunc("", sessionHandler.GetSession).Methods("GET")
	sessionAPI.HandleFunc("/query", sessionHandler.UpdateQuery).Methods("PUT")
	sessionAPI.HandleFunc("/weather", sessionHandler.FetchWeather).Methods("POST")
	sessionAPI.HandleFunc("/retry", sessionHandler.Retry).Methods("POST")
	sessionAPI.HandleFunc("/search", sessionHandler.ShowSearch).Methods("POST")
	sessionAPI.HandleFunc("/location", sessionHandler.UpdateLocation).Methods("POST")
	sessionAPI.HandleFunc("/events", sessionHandler.StreamEvents).Methods("GET")

	return router
}

// startMetricsServer exposes the Prometheus endpoint on its own port so
// scrapes never compete with gateway traffic.
func (a *App) startMetricsServer() {
	if a.telemetry == nil {
		return
	}

	metricsRouter := mux.NewRouter()
	metricsRouter.Handle("/metrics", promhttp.Handler()).Methods("GET")

	a.metricsServer = &http.Server{
		Addr:    fmt.Sprintf(":%s", a.cfg.Server.MetricsPort),
		Handler: metricsRouter,
	}

	go func() {
		a.logger.Info("starting metrics server", zap.String("port", a.cfg.Server.MetricsPort))

		if err := a.metricsServer.ListenAndServe(); err != nil {
			if !errors.Is(err, http.ErrServerClosed) {
				a.logger.Error("metrics server failed", zap.Error(err))
			}
		}
	}()
}
