package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"divisionone/internal/eventlog"
	"divisionone/pkg/config"

	logrus "github.com/sirupsen/logrus"
)

const (
	maxErrorCount = 3 // Maximum consecutive save failures before an event is dropped
)

func main() {
	purge := flag.Bool("purge", false, "purge the event queue before consuming")
	migrate := flag.Bool("migrate", false, "run SQL migrations before consuming")
	rollback := flag.Bool("rollback", false, "roll back the last SQL migration and exit")
	flag.Parse()

	// Initialize logger
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetLevel(logrus.InfoLevel)

	// Initialize database
	config.InitDB()
	if *rollback {
		config.RollbackMigration()
		return
	}
	if *migrate {
		config.ExecuteMigrations()
	}

	// Initialize RabbitMQ
	config.InitRabbitMQ()
	defer config.RabbitMQ.Close()

	if *purge {
		if err := config.PurgeQueue(config.QueueProgramEvents); err != nil {
			logrus.Fatal("Failed to purge queue: ", err)
		}
	}

	msgConsumer, err := config.NewConsumer(config.QueueProgramEvents)
	if err != nil {
		logrus.Fatal("Failed to create consumer: ", err)
	}
	defer msgConsumer.Close()

	processor := eventlog.NewProcessor(eventlog.NewRepository(config.DB), maxErrorCount)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logrus.Info("Event worker started, waiting for messages...")
	err = msgConsumer.Consume(ctx, processor.Handle)
	if err != nil && !errors.Is(err, context.Canceled) {
		logrus.Fatal("Consumer stopped: ", err)
	}
	logrus.Info("Event worker stopped")
}
