package main

import (
	"encoding/json"
	"flag"
	"log"
	"os"
	"strings"
	"time"

	"github.com/gatherhall/events-api/internal/domain"
	"github.com/gatherhall/events-api/internal/platform/auth/token"
)

// Tiny dev-only token minter.
//
// It signs a bearer token for an arbitrary user ID with the same TOKEN_* env
// vars the API server reads, so a locally minted token is accepted by a
// locally running server. Useful for exercising authenticated endpoints with
// curl without going through signup/login.
func main() {
	sub := flag.String("sub", "", "user ID to mint a token for (required)")
	ttl := flag.Duration("ttl", getenvDuration("TOKEN_TTL", 24*time.Hour), "token lifetime")
	flag.Parse()

	if strings.TrimSpace(*sub) == "" {
		flag.Usage()
		os.Exit(2)
	}

	secret := getenv("TOKEN_SECRET", "")
	if secret == "" {
		log.Fatal("TOKEN_SECRET is required")
	}

	mgr, err := token.NewManager(token.Config{
		Secret:   []byte(secret),
		Issuer:   getenv("TOKEN_ISSUER", "gatherhall"),
		Audience: getenv("TOKEN_AUDIENCE", "events-api"),
		TTL:      *ttl,
	})
	if err != nil {
		log.Fatalf("invalid token config: %v", err)
	}

	tok, err := mgr.Mint(domain.UserID(strings.TrimSpace(*sub)))
	if err != nil {
		log.Fatalf("mint: %v", err)
	}

	_ = json.NewEncoder(os.Stdout).Encode(map[string]any{
		"token": tok,
		"sub":   strings.TrimSpace(*sub),
		"exp":   time.Now().UTC().Add(*ttl).Unix(),
	})
}

func getenv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func getenvDuration(k string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
