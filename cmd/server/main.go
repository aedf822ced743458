package main

import (
	"context"
	"errors"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"outliner/internal/auth"
	"outliner/internal/capabilities"
	"outliner/internal/config"
	"outliner/internal/domain/repositories"
	"outliner/internal/handler"
	"outliner/internal/middleware"
	"outliner/internal/repository/disk"
	"outliner/internal/repository/postgres"
	"outliner/internal/service/credentials"
	serviceLLM "outliner/internal/service/llm"
	"outliner/internal/service/preferences"
	"outliner/internal/service/session"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	// Load configuration
	cfg := config.Load()

	// Setup structured logging
	logLevel := slog.LevelInfo
	if cfg.Debug {
		logLevel = slog.LevelDebug
	}

	var logOutput io.Writer = os.Stdout
	if cfg.LogDir != "" {
		logFile, err := config.SetupLogFile(cfg.LogDir, "server", cfg.LogMaxFiles)
		if err != nil {
			log.Fatalf("Failed to set up log file: %v", err)
		}
		defer logFile.Close()
		logOutput = io.MultiWriter(os.Stdout, logFile)
	}

	logger := slog.New(slog.NewJSONHandler(logOutput, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"storage", cfg.StorageBackend,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Authentication: JWKS, shared secret, or a single anonymous local user
	verifier, err := newVerifier(cfg, logger)
	if err != nil {
		log.Fatalf("Failed to create JWT verifier: %v", err)
	}
	if verifier != nil {
		defer verifier.Close()
	} else {
		logger.Warn("authentication disabled: all requests run as the local user")
	}

	// Key-value storage for credentials and preferences
	store, closeStore, err := newStore(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to open storage: %v", err)
	}
	defer closeStore()

	// Initialize capability registry
	capabilityRegistry, err := capabilities.NewRegistry()
	if err != nil {
		log.Fatalf("Failed to initialize capability registry: %v", err)
	}
	logger.Info("capability registry initialized")

	credentialService := credentials.NewService(store, capabilityRegistry, cfg.ProviderKeys(), logger)
	preferencesService := preferences.NewService(store, capabilityRegistry, cfg.DefaultProvider, cfg.DefaultModel, logger)

	// Setup LLM providers (keys resolved per user, environment as fallback)
	providerRegistry, err := serviceLLM.SetupProviders(cfg, credentialService, logger)
	if err != nil {
		log.Fatalf("Failed to setup LLM providers: %v", err)
	}

	sessions := session.NewManager(providerRegistry, preferencesService, capabilityRegistry, session.Options{
		TTL:               cfg.SessionTTL,
		GenerationTimeout: cfg.GenerationTimeout,
	}, logger)
	defer sessions.Close()
	go sessions.Run(ctx)

	logger.Info("services initialized")

	// Create HTTP router (Go 1.22+ enhanced patterns)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux, handler.Handlers{
		Sessions:    handler.NewSessionHandler(sessions, logger),
		Events:      handler.NewSSEHandler(sessions, logger, nil),
		Credentials: handler.NewCredentialsHandler(credentialService, logger),
		Preferences: handler.NewUserPreferencesHandler(preferencesService, logger),
		Models:      handler.NewModelsHandler(capabilityRegistry, credentialService, logger),
		Suggestions: handler.NewSuggestionsHandler(providerRegistry.Prompts(), logger),
	})

	// Build middleware chain
	var h http.Handler = mux

	// Apply middleware in reverse order (they wrap each other)
	// Order: CORS → RequestID → Recovery → Auth → Logging → Routes
	// Logging sits inside Auth so the user id is on the request it logs.
	h = middleware.RequestLogger(logger)(h)
	h = middleware.AuthMiddleware(verifier, logger)(h)
	h = middleware.Recovery(logger)(h)
	h = middleware.RequestID(h)

	// CORS - Must be before auth to handle OPTIONS pre-flight requests
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization", "Last-Event-ID", middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: true,
	})
	h = corsHandler.Handler(h)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // Disabled to allow long-lived SSE streams
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", "error", err)
		}
	}()

	logger.Info("server listening", "port", cfg.Port)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// newVerifier returns nil when neither AUTH_JWKS_URL nor AUTH_JWT_SECRET is set.
func newVerifier(cfg *config.Config, logger *slog.Logger) (auth.JWTVerifier, error) {
	switch {
	case cfg.AuthJWKSURL != "":
		v, err := auth.NewJWKSVerifier(cfg.AuthJWKSURL, logger)
		if err != nil {
			return nil, err
		}
		return v, nil
	case cfg.AuthJWTSecret != "":
		v, err := auth.NewHMACVerifier(cfg.AuthJWTSecret, logger)
		if err != nil {
			return nil, err
		}
		return v, nil
	default:
		return nil, nil
	}
}

func newStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (repositories.KeyValueStore, func(), error) {
	switch cfg.StorageBackend {
	case config.StoragePostgres:
		pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("database connected", "table_prefix", cfg.TablePrefix)
		store := postgres.NewKVStore(&postgres.RepositoryConfig{
			Pool:   pool,
			Tables: postgres.NewTableNames(cfg.TablePrefix),
			Logger: logger,
		})
		return store, pool.Close, nil
	default:
		logger.Info("disk storage opened", "path", cfg.StoragePath)
		return disk.NewKVStore(cfg.StoragePath, logger), func() {}, nil
	}
}
