package handler

import (
	"context"
	"log"
	"net/http"
	"os"

	"github.com/ivanhernandez-dev/url-shortener/pkg/adapters/auth"
	"github.com/ivanhernandez-dev/url-shortener/pkg/adapters/handler"
	"github.com/ivanhernandez-dev/url-shortener/pkg/adapters/repository"
	"github.com/ivanhernandez-dev/url-shortener/pkg/config"
	"github.com/ivanhernandez-dev/url-shortener/pkg/core/services"
	"github.com/ivanhernandez-dev/url-shortener/pkg/ports"
)

var mux http.Handler

func init() {
	cfg := config.Load()
	logger := log.New(os.Stderr, "", log.LstdFlags)
	ctx := context.Background()

	// Note: On Vercel, db.sqlite is ephemeral unless using a remote SQL/Turso URL in DATABASE_URL
	store, err := repository.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		panic(err)
	}

	gen, err := services.NewRandomCodeGenerator(cfg.ShortCodeLength)
	if err != nil {
		panic(err)
	}
	service := services.NewLinkService(repository.WithTimeout(store, cfg.StoreTimeout), gen,
		services.WithLogger(logger),
		services.WithMaxAttempts(cfg.MaxCodeAttempts),
	)

	var resolver ports.IdentityResolver = auth.NewJWTResolver(cfg.JWTSecret)
	if cfg.AuthServiceURL != "" {
		resolver = auth.NewIntrospectionClient(ctx, cfg.AuthServiceURL, auth.ClientCredentials{
			ClientID:     cfg.AuthClientID,
			ClientSecret: cfg.AuthClientSecret,
			TokenURL:     cfg.AuthTokenURL,
		})
	}

	mux = handler.NewRouter(cfg, service, resolver, logger)
}

// Handler is the entrypoint for Vercel
func Handler(w http.ResponseWriter, r *http.Request) {
	mux.ServeHTTP(w, r)
}
