package main

import (
	"context"
	"errors"

	"divisionone/internal/client"
	"divisionone/internal/eventlog"
	"divisionone/internal/handlers"
	"divisionone/internal/ledger"
	"divisionone/internal/routes"
	"divisionone/pkg/config"

	log "github.com/sirupsen/logrus"
)

func main() {
	log.SetFormatter(&log.JSONFormatter{})
	log.SetLevel(log.InfoLevel)

	settings, err := config.LoadSettings()
	if err != nil {
		log.Fatal("Failed to load settings: ", err)
	}

	var (
		store  ledger.Store = ledger.NewMemoryStore()
		events handlers.EventLister
	)
	if config.DatabaseConfigured() {
		config.InitDB()
		store = ledger.NewGormStore(config.DB)
		events = eventlog.NewRepository(config.DB)
		log.Info("Database initialized successfully")
	} else {
		log.Warn("Database not configured, serving an empty in-memory ledger")
	}

	chain := client.New(ledger.New(ledger.WithStore(store)))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize RabbitMQ (optional, will log warning if not configured)
	var hub *handlers.Hub
	if config.RabbitMQConfigured() {
		config.InitRabbitMQ()
		defer config.RabbitMQ.Close()

		hub = handlers.NewHub(settings.AllowedOrigins)
		consumer, err := config.NewConsumer(config.QueueProgramEventsStream)
		if err != nil {
			log.Fatal("Create consumer failed: ", err)
		}
		defer consumer.Close()

		go func() {
			if err := consumer.Consume(ctx, hub.HandleMessage); err != nil && !errors.Is(err, context.Canceled) {
				log.Errorf("Event stream consumer stopped: %v", err)
			}
		}()
		log.Info("RabbitMQ initialized successfully")
	} else {
		log.Warn("RabbitMQ not configured, event stream disabled")
	}

	r := routes.SetupRouter(handlers.New(chain, events, hub), settings)

	if err := r.Run(":" + settings.Port); err != nil {
		log.Fatal("Failed to start server: ", err)
	}
}
