package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pquerna/otp/totp"

	"tradedash/config"
	"tradedash/internal/compute"
	"tradedash/internal/logger"
	"tradedash/internal/metrics"
	"tradedash/internal/registry"
	"tradedash/internal/server"
	redisstore "tradedash/internal/store/redis"
	sqlitestore "tradedash/internal/store/sqlite"
	"tradedash/pkg/smartconnect"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	log.Println("[indicatord] starting...")

	logger.Init("indicatord", slog.LevelInfo)

	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- SQLite indicator catalogue ----
	store, err := sqlitestore.Open(cfg.SQLitePath)
	if err != nil {
		log.Fatalf("[indicatord] sqlite: %v", err)
	}
	defer store.Close()

	reg, err := registry.Load(ctx, store)
	if err != nil {
		log.Fatalf("[indicatord] registry: %v", err)
	}
	log.Printf("[indicatord] registry loaded: %d indicators", len(reg.All()))

	// ---- Redis (optional) ----
	var cache *redisstore.Client
	if cfg.RedisEnabled {
		cache, err = redisstore.New(redisstore.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		if err != nil {
			log.Printf("[indicatord] WARNING: redis unavailable, running without cache: %v", err)
			cache = nil
		} else {
			defer cache.Close()
		}
	}

	// ---- Angel One broker (optional) ----
	var broker *smartconnect.Client
	if cfg.HasBrokerCreds() {
		broker = smartconnect.New(smartconnect.Config{APIKey: cfg.AngelAPIKey})
		if err := brokerLogin(ctx, broker, cfg); err != nil {
			log.Printf("[indicatord] WARNING: broker login failed, /api/history disabled: %v", err)
			broker = nil
		}
	} else {
		log.Println("[indicatord] no Angel One credentials, /api/history disabled")
	}

	// ---- Metrics ----
	prom := metrics.New()
	go prom.Serve(cfg.MetricsAddr)

	// ---- HTTP + WebSocket ----
	engine := compute.New(reg, prom)
	srv := server.New(reg, engine, store, cache, broker, prom, cfg.MaxCandles)

	mux := http.NewServeMux()
	srv.RegisterRoutes(mux)

	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("[indicatord] listening on %s", cfg.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("[indicatord] http server: %v", err)
		}
	}()

	// ---- Settings change fanout ----
	if cache != nil {
		go cache.SubscribeSettings(ctx, func(ev redisstore.SettingsEvent) {
			srv.BroadcastSettings(ev)
		})
	}

	// ---- Wait for shutdown signal ----
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Printf("[indicatord] received %v, shutting down...", sig)

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[indicatord] http shutdown: %v", err)
	}

	if broker != nil {
		if err := broker.TerminateSession(shutdownCtx, cfg.AngelClientCode); err != nil {
			log.Printf("[indicatord] broker logout: %v", err)
		}
	}

	log.Println("[indicatord] shutdown complete")
}

// brokerLogin generates a fresh TOTP code and establishes a SmartAPI session.
func brokerLogin(ctx context.Context, broker *smartconnect.Client, cfg *config.Config) error {
	code, err := totp.GenerateCode(cfg.AngelTOTPSecret, time.Now())
	if err != nil {
		return err
	}
	loginCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	return broker.GenerateSession(loginCtx, cfg.AngelClientCode, cfg.AngelPassword, code)
}
