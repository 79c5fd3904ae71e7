package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"clinical-ehr-bridge/internal/app"
	"clinical-ehr-bridge/internal/config"
	"clinical-ehr-bridge/internal/events"
	apihttp "clinical-ehr-bridge/internal/http"
	"clinical-ehr-bridge/internal/observability"
)

func main() {
	cfg := config.Load()
	application := app.New(cfg)
	if err := application.Start(); err != nil {
		log.Fatalf("application start failed: %v", err)
	}

	// Kafka publisher for document lifecycle events
	publisher := events.New(&events.Config{
		Enabled:        cfg.Kafka.Enabled,
		Brokers:        cfg.Kafka.Brokers,
		TopicCreated:   cfg.Kafka.TopicCreated,
		TopicSubmitted: cfg.Kafka.TopicSubmitted,
		Principal:      cfg.Kafka.Principal,
	})
	defer publisher.Close()

	// Prometheus metrics and health probes
	obsServer := observability.NewServer(cfg.Service.MetricsAddr)
	obsServer.Start()

	router := apihttp.NewRouter(apihttp.NewHandler(publisher))
	server := &http.Server{
		Addr:         ":" + cfg.Service.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		application.Logger.Info().Str("port", cfg.Service.HTTPPort).Msg("HTTP API listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http serve failed: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		application.Logger.Error().Err(err).Msg("HTTP server shutdown error")
	}
	if err := obsServer.Shutdown(ctx); err != nil {
		application.Logger.Error().Err(err).Msg("Observability server shutdown error")
	}
	application.Shutdown()
}
