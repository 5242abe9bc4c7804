package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"clauselens.org/internal/audit"
	"clauselens.org/internal/billing"
	"clauselens.org/internal/config"
	"clauselens.org/internal/enterprise"
	"clauselens.org/internal/httpapi"
	"clauselens.org/internal/notify"
	"clauselens.org/internal/obs"
)

var version = "0.3.0"

func main() {
	obs.Init()
	cfg := config.Load()

	var (
		db    *sql.DB
		store enterprise.Store
	)
	if cfg.PostgresDSN != "" {
		var err error
		db, err = sql.Open("pgx", cfg.PostgresDSN)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(30 * time.Minute)
		store = enterprise.NewPGStore(db)
	} else {
		log.Println("CLAUSELENS_PG_DSN not set, using in-memory store")
		store = enterprise.NewMemoryStore()
	}

	gateway, err := billing.NewClient(cfg.BillingSecretKey)
	if err != nil {
		log.Fatalf("billing client: %v", err)
	}

	var sender notify.Sender
	if cfg.NotifyAPIKey != "" {
		sender, err = notify.NewClient(cfg.NotifyAPIKey, cfg.ClientURL)
		if err != nil {
			log.Fatalf("notify client: %v", err)
		}
	} else {
		log.Println("CLAUSELENS_NOTIFY_API_KEY not set, notifications disabled")
	}

	recorder := audit.NewRecorder(store.Audit(context.Background()))

	svc, err := enterprise.NewService(store, gateway, sender, recorder, cfg.ClientURL)
	if err != nil {
		log.Fatalf("enterprise service: %v", err)
	}

	api := httpapi.New(httpapi.ReadyProbe{DB: db}, version, store, svc, cfg.BillingWebhookSecret)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting clauselens-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	if db != nil {
		_ = db.Close()
	}
	log.Println("Stopped")
}
