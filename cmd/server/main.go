package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/codyseavey/card-catalog/internal/api"
	"github.com/codyseavey/card-catalog/internal/config"
	"github.com/codyseavey/card-catalog/internal/database"
	"github.com/codyseavey/card-catalog/internal/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize database
	if err := database.Initialize(cfg.DBPath); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	db := database.GetDB()

	fallback, err := services.NewFallbackCatalog(cfg.FallbackPath)
	if err != nil {
		log.Fatalf("Failed to load fallback catalog: %v", err)
	}

	store := services.NewGormCatalogStore(db)

	// Seed a fresh database so the first fetch has something to serve
	if cfg.SeedOnEmpty {
		count, err := store.Count(context.Background())
		if err != nil {
			log.Fatalf("Failed to count cards: %v", err)
		}
		if count == 0 {
			seeded, err := database.SeedCards(db, fallback.All())
			if err != nil {
				log.Fatalf("Failed to seed catalog: %v", err)
			}
			log.Printf("Seeded %d cards from the fallback catalog", seeded)
		}
	}

	broadcaster := services.NewBroadcaster()
	cache := services.NewCatalogCache(store, fallback, broadcaster,
		services.WithFetchTimeout(cfg.FetchTimeout))
	banListService := services.NewBanListService(store, broadcaster, cfg.BanListMaxBatch)

	// The deck checker reads through its own consumer so checks never wait on the store
	deckConsumer := services.NewCatalogConsumer(cache, broadcaster, true, cfg.ConsumerPollInterval)
	deckChecker := services.NewDeckChecker(deckConsumer, cfg.DeckCopyLimit)

	rateLimiter, err := api.NewClientRateLimiter(cfg.AdminRatePerSec, cfg.AdminRateBurst, cfg.AdminRateClients)
	if err != nil {
		log.Fatalf("Failed to create rate limiter: %v", err)
	}

	authorizer := api.NewTokenAuthorizer(cfg.AdminToken)
	if !authorizer.Enabled() {
		log.Println("Warning: ADMIN_TOKEN not set, admin endpoints are disabled")
	}

	router := api.SetupRouter(cfg, api.Services{
		Cache:       cache,
		Store:       store,
		BanList:     banListService,
		DeckChecker: deckChecker,
		Authorizer:  authorizer,
		RateLimiter: rateLimiter,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		runWithRecovery(gctx, "deck consumer", deckConsumer.Start)
		return nil
	})

	g.Go(func() error {
		log.Printf("Starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Println("Shutting down server...")

		// Give outstanding requests a deadline to complete
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("Server forced to shutdown: %v", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
	log.Println("Server exited")
}

// runWithRecovery runs a background loop, restarting it after a panic until ctx is done.
func runWithRecovery(ctx context.Context, name string, run func(context.Context)) {
	for {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("PANIC in %s: %v - restarting in 30 seconds", name, r)
				}
			}()
			run(ctx)
		}()

		select {
		case <-ctx.Done():
			return
		case <-time.After(30 * time.Second):
			log.Printf("%s restarting after panic recovery...", name)
		}
	}
}
