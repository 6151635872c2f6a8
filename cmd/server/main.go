package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"

	"example.com/eligibility/internal/api"
	"example.com/eligibility/internal/config"
	"example.com/eligibility/internal/notify"
	"example.com/eligibility/internal/pipeline"
	"example.com/eligibility/internal/scheduler"
	"example.com/eligibility/internal/silver"
	"example.com/eligibility/internal/vendorcfg"
	"example.com/eligibility/internal/warehouse"
)

func main() {
	log.Println("Starting Eligibility Staging Service...")

	cfg := config.Load()
	log.Printf("Configuration:")
	log.Printf("  DB driver: %s", cfg.DBDriver)
	log.Printf("  Input dir: %s", cfg.InputDir)
	log.Printf("  Output dir: %s", cfg.OutputDir)
	log.Printf("  Mappings dir: %s", cfg.MappingsDir)
	log.Printf("  Workers: %d", cfg.Workers)
	log.Printf("  Server port: %s", cfg.ServerPort)

	db, err := warehouse.Open(warehouse.Config{Driver: cfg.DBDriver, DSN: cfg.DBDSN})
	if err != nil {
		log.Fatalf("Failed to open warehouse database: %v", err)
	}
	if err := warehouse.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate warehouse schema: %v", err)
	}

	registry, err := vendorcfg.LoadDir(cfg.MappingsDir)
	if err != nil {
		log.Fatalf("Failed to load vendor mapping specs: %v", err)
	}
	log.Printf("Loaded %d vendor mapping specs from %s", registry.Len(), cfg.MappingsDir)

	rules, err := silver.LoadRules(cfg.RulesFile)
	if err != nil {
		log.Fatalf("Failed to load normalization rules: %v", err)
	}

	store := warehouse.NewStore(db)
	svc := pipeline.NewService(registry, store, rules, pipeline.Options{
		InputDir:  cfg.InputDir,
		OutputDir: cfg.OutputDir,
		Workers:   cfg.Workers,
	})

	if cfg.WebhookURL != "" {
		wh, err := notify.NewWebhookNotifier(cfg.WebhookURL, cfg.WebhookPayloadTemplate)
		if err != nil {
			log.Fatalf("Failed to configure webhook notifier: %v", err)
		}
		svc.AddNotifier(wh)
		log.Printf("Webhook notifier enabled for %s", cfg.WebhookURL)
	}

	if cfg.EmailTo != "" {
		mailer, err := notify.NewEmailNotifier(notify.EmailConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUser,
			Password: cfg.SMTPPass,
			From:     cfg.EmailFrom,
			To:       cfg.EmailTo,
		})
		if err != nil {
			log.Fatalf("Failed to configure email notifier: %v", err)
		}
		svc.AddNotifier(mailer)
		log.Printf("Email notifier enabled for %s", cfg.EmailTo)
	}

	if cfg.NATSURL != "" {
		nc, err := nats.Connect(cfg.NATSURL,
			nats.Timeout(10*time.Second),
			nats.RetryOnFailedConnect(true),
			nats.MaxReconnects(5),
			nats.ReconnectWait(time.Second))
		if err != nil {
			log.Fatalf("Failed to connect to NATS at %s: %v", cfg.NATSURL, err)
		}
		defer nc.Close()
		js, err := nc.JetStream()
		if err != nil {
			log.Fatalf("Failed to create JetStream context: %v", err)
		}
		svc.AddNotifier(notify.NewNATSPublisher(js))
		log.Printf("NATS run event publisher enabled at %s", cfg.NATSURL)
	}

	var sched *scheduler.Scheduler
	if cfg.CronSchedule != "" {
		sched = scheduler.New(svc, cfg.CronSchedule)
		if err := sched.Start(); err != nil {
			log.Fatalf("Failed to start scheduler: %v", err)
		}
	}

	router := api.NewRouter(svc)
	listenAddr := fmt.Sprintf(":%s", cfg.ServerPort)
	srv := &http.Server{Addr: listenAddr, Handler: router}

	go func() {
		log.Printf("Starting Eligibility Staging Service HTTP API on %s", listenAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start HTTP API: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Eligibility Staging Service is shutting down...")
	if sched != nil {
		sched.Stop()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}
	log.Println("Eligibility Staging Service stopped gracefully.")
}
