package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gatherhall/events-api/internal/adapters/httpapi"
	memeventrepo "github.com/gatherhall/events-api/internal/adapters/memory/eventrepo"
	memreservationrepo "github.com/gatherhall/events-api/internal/adapters/memory/reservationrepo"
	memuserrepo "github.com/gatherhall/events-api/internal/adapters/memory/userrepo"
	"github.com/gatherhall/events-api/internal/adapters/postgres"
	pgeventrepo "github.com/gatherhall/events-api/internal/adapters/postgres/eventrepo"
	pgreservationrepo "github.com/gatherhall/events-api/internal/adapters/postgres/reservationrepo"
	pguserrepo "github.com/gatherhall/events-api/internal/adapters/postgres/userrepo"
	"github.com/gatherhall/events-api/internal/app/events"
	"github.com/gatherhall/events-api/internal/app/rsvp"
	"github.com/gatherhall/events-api/internal/app/users"
	"github.com/gatherhall/events-api/internal/platform/auth/token"
	platformclock "github.com/gatherhall/events-api/internal/platform/clock"
	"github.com/gatherhall/events-api/internal/platform/config"
	"github.com/gatherhall/events-api/internal/platform/eventlock"
	eventrepoport "github.com/gatherhall/events-api/internal/ports/out/eventrepo"
	reservationrepoport "github.com/gatherhall/events-api/internal/ports/out/reservationrepo"
	userrepoport "github.com/gatherhall/events-api/internal/ports/out/userrepo"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	// Auth configuration:
	// - Production: AUTH_MODE=token enforces signed bearer tokens
	// - Local dev: AUTH_MODE=dev trusts X-Debug-Subject
	var (
		authMW func(http.Handler) http.Handler
		tokens *token.Manager
	)
	switch cfg.AuthMode {
	case config.AuthModeDev:
		authMW = httpapi.NewDevAuthMiddleware(cfg.DevSubject)
	default:
		tokens, err = token.NewManager(token.Config{
			Secret:    []byte(cfg.TokenSecret),
			Issuer:    cfg.TokenIssuer,
			Audience:  cfg.TokenAudience,
			TTL:       cfg.TokenTTL,
			ClockSkew: cfg.TokenClockSkew,
		})
		if err != nil {
			log.Fatalf("invalid auth config: %v", err)
		}
		authMW = httpapi.NewAuthMiddleware(tokens)
	}

	clk := platformclock.NewSystemClock()

	var (
		eventRepo       eventrepoport.Repository
		reservationRepo reservationrepoport.Repository
		userRepo        userrepoport.Repository
		cleanup         func()
	)

	switch cfg.StorageBackend {
	case config.StoragePostgres:
		pool, err := postgres.NewPool(context.Background(), cfg.DatabaseURL, postgres.PoolOptions{})
		if err != nil {
			log.Fatalf("invalid postgres config: %v", err)
		}
		cleanup = pool.Close

		eventRepo = pgeventrepo.NewRepo(pool)
		reservationRepo = pgreservationrepo.NewRepo(pool)
		userRepo = pguserrepo.NewRepo(pool)
	default:
		eventRepo = memeventrepo.NewRepo()
		reservationRepo = memreservationrepo.NewRepo()
		userRepo = memuserrepo.NewRepo()
	}

	if cleanup != nil {
		defer cleanup()
	}

	// One lock map so capacity edits, deletes, and admissions for the same
	// event serialize on the same scope.
	locks := eventlock.New()

	usersSvc := users.NewService(userRepo, clk)
	eventsSvc := events.NewService(eventRepo, reservationRepo, clk, locks)
	rsvpSvc := rsvp.NewService(eventRepo, reservationRepo, userRepo, clk, locks)

	api := httpapi.NewServer(usersSvc, eventsSvc, rsvpSvc, tokens)
	handler := httpapi.NewRouter(api, authMW)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("api listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}
