package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/fovea/waitlist/pkg/api"
	"github.com/fovea/waitlist/pkg/clients/airtable"
	"github.com/fovea/waitlist/pkg/clients/mx"
	"github.com/fovea/waitlist/pkg/clients/supabase"
	"github.com/fovea/waitlist/pkg/config"
	"github.com/fovea/waitlist/pkg/lock"
	"github.com/fovea/waitlist/pkg/repository/postgres"
	"github.com/fovea/waitlist/pkg/repository/sqlite"
	"github.com/fovea/waitlist/pkg/services"
)

func main() {
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file loaded, using process environment")
	}

	// Initialize configuration
	cfg := config.LoadConfig()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize the lead store
	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("Error initializing %s store: %v", cfg.Store, err)
	}
	defer closeStore.Close()
	if cfg.DevMode() {
		log.Println("No datastore configured: running in development mode, signups are not persisted")
	} else {
		log.Printf("Using %s lead store", cfg.Store)
	}

	// Initialize the MX resolver
	var mxClient mx.Client
	if cfg.DNSServer != "" {
		mxClient = mx.NewClient(cfg.DNSServer, cfg.DNSTimeout)
		log.Printf("Resolving MX records via %s", cfg.DNSServer)
	} else {
		mxClient = mx.NewSystemClient()
	}

	var opts []services.Option
	if cfg.RedisURL != "" {
		redisClient, err := lock.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatalf("Error connecting to Redis: %v", err)
		}
		defer redisClient.Close()

		opts = append(opts, services.WithEmailLock(func(key string) services.EmailLock {
			return lock.NewRedisLock(redisClient, key, cfg.LockTTL)
		}))
		log.Println("Per-email signup lock enabled")
	}

	// Initialize services
	signupService := services.NewSignupService(
		store,
		services.NewMailDomainVerifier(mxClient),
		cfg,
		opts...,
	)

	gin.SetMode(cfg.GinMode)

	// Initialize handlers and routes
	handlers := api.NewHandlers(signupService, cfg)
	router := api.NewRouter(handlers, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Server starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Error starting server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// openStore builds the LeadStore selected by configuration.
func openStore(ctx context.Context, cfg *config.Config) (services.LeadStore, io.Closer, error) {
	switch cfg.Store {
	case config.StoreNone:
		return services.NoopLeadStore{}, nopCloser{}, nil

	case config.StoreSupabase:
		if cfg.SupabaseURL == "" || cfg.SupabaseAnonKey == "" {
			return nil, nil, errors.New("SUPABASE_URL and SUPABASE_ANON_KEY are required")
		}
		return supabase.NewClient(cfg.SupabaseURL, cfg.SupabaseAnonKey, cfg.SupabaseTable), nopCloser{}, nil

	case config.StoreAirtable:
		if cfg.AirtableAPIKey == "" || cfg.AirtableBaseID == "" {
			return nil, nil, errors.New("AIRTABLE_API_KEY and AIRTABLE_BASE_ID are required")
		}
		if cfg.RedisURL == "" {
			log.Println("Warning: Airtable has no unique constraint; set REDIS_URL to serialize concurrent signups")
		}
		return airtable.NewClient(cfg.AirtableAPIKey, cfg.AirtableBaseID, cfg.AirtableTable), nopCloser{}, nil

	case config.StorePostgres:
		db, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := postgres.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, nil, err
		}
		return postgres.NewLeadRepo(db), db, nil

	case config.StoreSQLite:
		if cfg.SQLitePath == "" {
			return nil, nil, errors.New("SQLITE_PATH is required")
		}
		db, err := sqlite.New(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		repo := sqlite.NewLeadRepo(db)
		return repo, repo, nil
	}

	return nil, nil, fmt.Errorf("unknown store %q", cfg.Store)
}
