package main

import (
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tihomirborovcak/radni-nalozi/internal/config"
	"github.com/tihomirborovcak/radni-nalozi/internal/infrastructure/messaging"
	"github.com/tihomirborovcak/radni-nalozi/internal/infrastructure/storage/postgres"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Relay outbox events to Kafka",
	RunE:  runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, args []string) error {
	if cfg.Storage.Driver != config.DriverPostgres {
		return errors.New("worker requires storage.driver=postgres")
	}
	if len(cfg.Kafka.Brokers) == 0 {
		return errors.New("kafka.brokers is required")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(cfg.Database.DSN))
	if err != nil {
		return err
	}
	defer pool.Close()

	writer := messaging.NewKafkaWriter(messaging.KafkaConfig{
		Brokers:      cfg.Kafka.Brokers,
		Topic:        cfg.Kafka.Topic,
		BatchTimeout: cfg.Kafka.BatchTimeout,
	})
	publisher := messaging.NewOutboxPublisher(writer)
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Warnw("close kafka writer", "error", err)
		}
	}()

	relay := postgres.NewOutboxRelay(postgres.NewTxManager(pool), cfg.Outbox.BatchSize, publisher)

	log.Infow("outbox relay started",
		"brokers", cfg.Kafka.Brokers,
		"topic", cfg.Kafka.Topic,
		"batch_size", cfg.Outbox.BatchSize,
		"interval", cfg.Outbox.Interval,
	)
	if err := relay.Run(ctx, cfg.Outbox.Interval); err != nil && !errors.Is(err, ctx.Err()) {
		return err
	}
	log.Info("worker stopped")
	return nil
}
