package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/chidhvilasa/access-control-backend/internal/access/keys"
	"github.com/chidhvilasa/access-control-backend/internal/access/service"
	"github.com/chidhvilasa/access-control-backend/internal/access/store/sqlite"
	"github.com/chidhvilasa/access-control-backend/internal/access/token"
	"github.com/chidhvilasa/access-control-backend/internal/config"
	"github.com/chidhvilasa/access-control-backend/internal/db"
	"github.com/chidhvilasa/access-control-backend/internal/httpapi"
)

func main() {
	_ = godotenv.Load()
	cfg := config.FromEnv()
	logger := log.New(os.Stdout, "accessd ", log.LstdFlags|log.LUTC)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Database
	sqlDB, err := db.Open(ctx, db.Config{Path: cfg.DBPath, Env: cfg.Env})
	if err != nil {
		logger.Fatalf("open db: %v", err)
	}
	defer sqlDB.Close()
	writer := db.NewWorker(sqlDB)
	defer writer.Close()

	// Stores
	directory := sqlite.NewDirectoryStore(sqlDB, writer)
	memberships := sqlite.NewMembershipStore(sqlDB, writer)
	keysets := sqlite.NewKeySetStore(sqlDB, writer)
	events := sqlite.NewEventStore(sqlDB, writer)
	nonces := sqlite.NewNonceStore(sqlDB, writer)
	pis := sqlite.NewPiStore(sqlDB, writer)

	// Services
	registry := keys.NewRegistry(keysets)
	issuer := token.NewIssuer(registry, cfg.TokenTTL)
	tokenSvc := service.NewTokenService(directory, memberships, issuer)
	membershipSvc := service.NewMembershipService(directory, directory, memberships)
	communitySvc := service.NewCommunityService(directory, registry)
	eventSvc := service.NewEventService(events, nonces, logger)
	piSvc := service.NewPiService(pis)

	// Retention
	noncePruner := service.NewPruner("nonce-mirror", nonces, cfg.NonceRetention, cfg.PruneInterval, logger)
	heartbeatPruner := service.NewPruner("pi-heartbeats", pis, cfg.HeartbeatRetention, cfg.PruneInterval, logger)
	noncePruner.Start(ctx)
	heartbeatPruner.Start(ctx)
	defer noncePruner.Stop()
	defer heartbeatPruner.Stop()

	// Admin credential: an explicit hash wins; otherwise hash the dev
	// password at startup so bcrypt is the only thing we ever compare.
	hash := cfg.AdminPasswordHash
	if hash == "" {
		pw := cfg.AdminPassword
		if pw == "" {
			if cfg.Env == "prod" {
				logger.Fatal("no admin credential configured")
			}
			pw = "admin"
			logger.Printf("WARNING: using default dev admin credential")
		}
		hash, err = httpapi.HashPassword(pw)
		if err != nil {
			logger.Fatalf("hash admin password: %v", err)
		}
	}
	auth := httpapi.NewAdminAuth(cfg.AdminUsername, hash, cfg.JWTSecret, cfg.AdminSessionTTL)

	srv := httpapi.NewServer(httpapi.Dependencies{
		Logger:      logger,
		Addr:        cfg.HTTPAddr,
		Auth:        auth,
		Tokens:      tokenSvc,
		Memberships: membershipSvc,
		Communities: communitySvc,
		Events:      eventSvc,
		Pis:         piSvc,
	})

	go func() {
		logger.Printf("listening on %s env=%s ttl=%s skew=%s", cfg.HTTPAddr, cfg.Env, cfg.TokenTTL, cfg.ClockSkew)
		if err := srv.Start(); err != nil {
			logger.Printf("server error: %v", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}
