package main

import (
	"context"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rollbook.org/internal/auth"
	"rollbook.org/internal/config"
	"rollbook.org/internal/httpapi"
	"rollbook.org/internal/obs"
	"rollbook.org/internal/school"
	"rollbook.org/internal/store/pg"
)

var (
	version = "0.3.0"
	commit  = "dev"
)

func main() {
	cfg := config.Load()

	obs.Init()
	obs.InitBuildInfo(version, commit)

	if cfg.AuthSecret == "" {
		log.Fatal("ROLLBOOK_AUTH_SECRET is required")
	}

	tokens, err := auth.NewTokenService(cfg.AuthSecret,
		auth.WithIssuer(cfg.TokenIssuer),
		auth.WithTTL(cfg.TokenTTL),
	)
	if err != nil {
		log.Fatalf("token service: %v", err)
	}

	// Postgres when a DSN is configured; in-memory store for local runs.
	var store school.Store
	var probe httpapi.ReadyProbe
	if cfg.DatabaseURL != "" {
		pgStore, err := pg.Open(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		defer pgStore.Close()
		store = pgStore
		probe = httpapi.ReadyProbe{DB: pgStore.DB()}
	} else {
		log.Println("DATABASE_URL not set, using in-memory store")
		store = school.NewMemStore()
	}

	svc, err := school.NewService(store, tokens)
	if err != nil {
		log.Fatalf("service: %v", err)
	}
	resolver := auth.NewResolver(tokens, store.Users())

	api := httpapi.New(svc, resolver, probe, version)
	api.SetRateLimit(cfg.RateBurst, cfg.RatePerSec)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// gRPC health listener next to HTTP.
	grpcSrv := httpapi.NewGRPCServer(probe)
	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		log.Fatalf("grpc listen: %v", err)
	}
	go func() {
		if err := grpcSrv.Serve(ctx, lis); err != nil {
			log.Printf("grpc serve: %v", err)
		}
	}()

	log.Printf("Starting rollbook-api %s on %s (grpc %s)", version, srv.Addr, cfg.GRPCAddr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	_ = srv.Shutdown(shutdownCtx)
	log.Println("Stopped")
}
