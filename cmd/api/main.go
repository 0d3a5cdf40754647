package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"github.com/oakline/ledger/internal/api"
	"github.com/oakline/ledger/internal/audit"
	"github.com/oakline/ledger/internal/config"
	"github.com/oakline/ledger/internal/queue"
	"github.com/oakline/ledger/internal/service"
	"github.com/oakline/ledger/internal/session"
	"github.com/oakline/ledger/internal/store"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()

	ledgerStore, err := store.NewStore(cfg.DBSource)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer ledgerStore.Close()

	if err := ledgerStore.InitSchema(ctx); err != nil {
		log.Fatalf("Unable to create schema: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("Unable to connect to redis: %v", err)
	}
	sessions := session.NewStore(rdb, cfg.SessionTTL)

	auditor, err := audit.NewEmitter(cfg.MongoURI, cfg.MongoDBName)
	if err != nil {
		log.Fatalf("Unable to connect to mongodb: %v", err)
	}
	defer auditor.Close(ctx)

	// Event publishing is optional; the transfer path works without it.
	var events service.Publisher
	if cfg.AMQPURL != "" {
		publisher, err := queue.NewPublisher(cfg.AMQPURL)
		if err != nil {
			log.Fatalf("Unable to connect to rabbitmq: %v", err)
		}
		defer publisher.Close()
		events = publisher
	}

	// All dependencies constructed once here and passed in explicitly.
	transfers := service.NewTransferService(ledgerStore, auditor, events, cfg.TransferLimit)
	auth := service.NewAuthService(ledgerStore, sessions, auditor)
	handler := api.NewHandler(transfers, auth, sessions)

	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	r.HandleFunc("/health", handler.HealthCheckHandler)
	handler.Register(r)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s (%s)", cfg.Port, cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server shutdown failed: %v", err)
	}
	log.Println("Server shut down successfully")
}
