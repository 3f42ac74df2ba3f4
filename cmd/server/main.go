package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/ivanhernandez-dev/url-shortener/pkg/adapters/auth"
	"github.com/ivanhernandez-dev/url-shortener/pkg/adapters/handler"
	"github.com/ivanhernandez-dev/url-shortener/pkg/adapters/repository"
	"github.com/ivanhernandez-dev/url-shortener/pkg/config"
	"github.com/ivanhernandez-dev/url-shortener/pkg/core/services"
	"github.com/ivanhernandez-dev/url-shortener/pkg/logging"
	"github.com/ivanhernandez-dev/url-shortener/pkg/ports"
)

func main() {
	cfg := config.Load()

	logger, err := logging.New(cfg.LogFile)
	if err != nil {
		log.Fatalf("Failed to open log file: %v", err)
	}

	if cfg.IsProduction() && cfg.AuthServiceURL == "" && cfg.JWTSecret == "secret" {
		logger.Fatal("JWT_SECRET must be set in production")
	}

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.SentryDSN,
			Environment: cfg.AppEnv,
		}); err != nil {
			logger.Printf("Sentry disabled: %v", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	ctx := context.Background()

	// Initialize Repository
	store, err := repository.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer store.Close()
	repo := repository.WithTimeout(store, cfg.StoreTimeout)

	// Initialize Service
	gen, err := services.NewRandomCodeGenerator(cfg.ShortCodeLength)
	if err != nil {
		logger.Fatalf("Invalid short code length: %v", err)
	}
	service := services.NewLinkService(repo, gen,
		services.WithLogger(logger),
		services.WithMaxAttempts(cfg.MaxCodeAttempts),
	)

	// Initialize Router
	mux := handler.NewRouter(cfg, service, newIdentityResolver(ctx, cfg), logger)
	if cfg.SentryDSN != "" {
		mux = sentryhttp.New(sentryhttp.Options{Repanic: true}).Handle(mux)
	}

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	logger.Printf("Server starting on port %s (env=%s)", cfg.Port, cfg.AppEnv)
	if err := server.ListenAndServe(); err != nil {
		logger.Fatal(err)
	}
}

// newIdentityResolver prefers the remote auth service and falls back to
// locally verified JWTs.
func newIdentityResolver(ctx context.Context, cfg *config.Config) ports.IdentityResolver {
	if cfg.AuthServiceURL != "" {
		return auth.NewIntrospectionClient(ctx, cfg.AuthServiceURL, auth.ClientCredentials{
			ClientID:     cfg.AuthClientID,
			ClientSecret: cfg.AuthClientSecret,
			TokenURL:     cfg.AuthTokenURL,
		})
	}
	return auth.NewJWTResolver(cfg.JWTSecret)
}
