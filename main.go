package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"order-gateway/internal/api"
	"order-gateway/internal/events"
	"order-gateway/internal/fix"
	"order-gateway/internal/order"
	"order-gateway/internal/risk"
	"order-gateway/internal/session"
	"order-gateway/pkg/config"
	"order-gateway/pkg/db"
	"order-gateway/pkg/market/polygon"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	log.Printf("starting order gateway on port %s, db %s", cfg.Port, cfg.DBPath)

	// Core services
	bus := events.NewBus()

	database, err := db.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer database.Close()
	if err := db.ApplyMigrations(database); err != nil {
		log.Fatalf("apply migrations: %v", err)
	}

	md := polygon.NewClient(cfg.PolygonBaseURL, cfg.PolygonAPIKey)
	gateway := fix.NewBusGateway(bus)

	pluginOrder, err := config.LoadPluginOrder(cfg.RiskPluginsPath)
	if err != nil {
		log.Fatalf("load risk plugin config: %v", err)
	}
	plugins, err := risk.BuildPlugins(pluginOrder, database, md)
	if err != nil {
		log.Fatalf("build risk plugins: %v", err)
	}
	pipeline := risk.NewPipeline(database, plugins...)
	defer pipeline.Close()

	manager := order.NewManager(database, gateway, bus)
	manager.CancelPollInterval = cfg.CancelWaitInterval
	manager.CancelPollAttempts = cfg.CancelWaitAttempts

	router := session.NewRouter(database, md, pipeline, manager, gateway, bus, cfg.SessionQueueSize)
	defer router.Close()

	server := api.NewServer(bus, database)
	go func() {
		if err := server.Start(":" + cfg.Port); err != nil {
			log.Fatalf("api server: %v", err)
		}
	}()

	// Block until interrupted; deferred closes drain the router workers
	// and stop the throttle reset loop.
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down")
}
