package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/ivanhernandez-dev/url-shortener/pkg/adapters/auth"
	"github.com/ivanhernandez-dev/url-shortener/pkg/adapters/repository"
	"github.com/ivanhernandez-dev/url-shortener/pkg/config"
	"github.com/ivanhernandez-dev/url-shortener/pkg/core/domain"
	"github.com/ivanhernandez-dev/url-shortener/pkg/ports"
)

const usage = "expected 'export', 'import' or 'token' subcommands"

func main() {
	exportCmd := flag.NewFlagSet("export", flag.ExitOnError)
	importCmd := flag.NewFlagSet("import", flag.ExitOnError)
	importFile := importCmd.String("file", "", "JSON file to import")
	tokenCmd := flag.NewFlagSet("token", flag.ExitOnError)
	tokenUser := tokenCmd.String("user", "", "user UUID (random if empty)")
	tokenTenant := tokenCmd.String("tenant", "", "optional tenant UUID")
	tokenTTL := tokenCmd.Duration("ttl", 24*time.Hour, "token lifetime")

	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	cfg := config.Load()

	if os.Args[1] == "token" {
		_ = tokenCmd.Parse(os.Args[2:])
		doToken(cfg, *tokenUser, *tokenTenant, *tokenTTL)
		return
	}

	ctx := context.Background()
	repo, err := repository.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to db: %v", err)
	}
	defer repo.Close()

	switch os.Args[1] {
	case "export":
		_ = exportCmd.Parse(os.Args[2:])
		if err := doExport(ctx, repo); err != nil {
			log.Fatalf("Export failed: %v", err)
		}
	case "import":
		_ = importCmd.Parse(os.Args[2:])
		if *importFile == "" {
			importCmd.PrintDefaults()
			os.Exit(1)
		}
		if err := doImport(ctx, repo, *importFile); err != nil {
			log.Fatalf("Import failed: %v", err)
		}
	default:
		fmt.Println(usage)
		os.Exit(1)
	}
}

func doExport(ctx context.Context, repo ports.LinkRepository) error {
	links, err := repo.Dump(ctx)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(links)
}

// doImport inserts every link whose code is free, counters included.
// Existing codes are skipped.
func doImport(ctx context.Context, repo ports.LinkRepository, filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	var links []domain.ShortLink
	if err := json.NewDecoder(file).Decode(&links); err != nil {
		return fmt.Errorf("decode: %w", err)
	}

	count := 0
	for i := range links {
		l := &links[i]
		if err := repo.Create(ctx, l); err != nil {
			log.Printf("Skipping %s: %v", l.ShortCode, err)
			continue
		}
		count++
	}
	log.Printf("Imported %d of %d links", count, len(links))
	return nil
}

func doToken(cfg *config.Config, user, tenant string, ttl time.Duration) {
	identity := domain.Identity{UserID: uuid.New()}
	if user != "" {
		id, err := uuid.Parse(user)
		if err != nil {
			log.Fatalf("Invalid user id: %v", err)
		}
		identity.UserID = id
	}
	if tenant != "" {
		id, err := uuid.Parse(tenant)
		if err != nil {
			log.Fatalf("Invalid tenant id: %v", err)
		}
		identity.TenantID = &id
	}

	now := time.Now()
	token, err := auth.NewJWTResolver(cfg.JWTSecret).Sign(identity, jwt.RegisteredClaims{
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	})
	if err != nil {
		log.Fatalf("Sign failed: %v", err)
	}
	fmt.Println(token)
}
