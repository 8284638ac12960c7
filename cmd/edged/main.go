package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/chidhvilasa/access-control-backend/internal/access/replay"
	"github.com/chidhvilasa/access-control-backend/internal/access/token"
	"github.com/chidhvilasa/access-control-backend/internal/config"
	"github.com/chidhvilasa/access-control-backend/internal/edge"
)

func main() {
	_ = godotenv.Load()
	cfg := config.EdgeFromEnv()
	logger := log.New(os.Stdout, "edged ", log.LstdFlags|log.LUTC)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := &http.Client{Timeout: 10 * time.Second}

	keyCache := edge.NewKeyCache(cfg.KeyCachePath, client)
	if err := keyCache.Load(); err != nil {
		logger.Fatalf("key cache: %v", err)
	}

	// A token is verifiable from iat-skew up to its hard exp cutoff, so a
	// nonce can matter for at most ttl+skew. Past that the entry is dead
	// weight and may be evicted.
	ledger := replay.New(cfg.TokenTTL+cfg.ClockSkew, time.Minute)
	verifier := token.NewVerifier(ledger, cfg.ClockSkew)

	var reporter *edge.Reporter
	if cfg.BackendURL != "" {
		reporter = edge.NewReporter(logger, client, cfg.BackendURL, cfg.PiID, cfg.ReportInterval, cfg.ReportBuffer)
		reporter.Start()
		defer reporter.Stop()

		go syncLoop(ctx, logger, keyCache, cfg)
		go heartbeatLoop(ctx, logger, client, cfg)
	} else {
		logger.Printf("no backend configured, running fully offline")
	}

	presenter := edge.NewPresenter(logger, keyCache, verifier, reporter)
	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           presenter.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Printf("pi=%s listening on %s skew=%s", cfg.PiID, cfg.ListenAddr, cfg.ClockSkew)
		if err := srv.ListenAndServe(); err != nil {
			logger.Printf("server error: %v", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

// syncLoop refreshes the key cache on a timer. An immediate first sync picks
// up keys rotated while the unit was down.
func syncLoop(ctx context.Context, logger *log.Logger, keyCache *edge.KeyCache, cfg config.EdgeConfig) {
	sync := func() {
		syncCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		if err := keyCache.RefreshFromBackend(syncCtx, cfg.BackendURL, cfg.PiID); err != nil {
			logger.Printf("key sync failed, serving cached keys: %v", err)
		}
	}
	sync()

	ticker := time.NewTicker(cfg.SyncInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			sync()
		case <-ctx.Done():
			return
		}
	}
}

func heartbeatLoop(ctx context.Context, logger *log.Logger, client *http.Client, cfg config.EdgeConfig) {
	started := time.Now()
	beat := func() {
		body, _ := json.Marshal(map[string]any{
			"pi_id":    cfg.PiID,
			"uptime_s": uint64(time.Since(started).Seconds()),
		})
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.BackendURL+"/v1/pi/heartbeat", bytes.NewReader(body))
		if err != nil {
			return
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := client.Do(req)
		if err != nil {
			logger.Printf("heartbeat failed: %v", err)
			return
		}
		resp.Body.Close()
	}
	beat()

	ticker := time.NewTicker(cfg.HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			beat()
		case <-ctx.Done():
			return
		}
	}
}
