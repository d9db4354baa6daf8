package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/oksasatya/linkfolio-api/config"
	"github.com/oksasatya/linkfolio-api/internal/application"
	"github.com/oksasatya/linkfolio-api/internal/domain/entity"
	"github.com/oksasatya/linkfolio-api/internal/infrastructure/search"
	"github.com/oksasatya/linkfolio-api/pkg/helpers"
)

// index_worker mirrors record events from RabbitMQ into Elasticsearch.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(helpers.LoggerOptions{App: cfg.AppName + "-index-worker", Env: cfg.Env, Level: cfg.LogLevel})

	if !cfg.EventsEnabled {
		log.Println("EVENTS_ENABLED=false; index worker disabled (the API publishes no events)")
		return
	}
	if cfg.RabbitMQURL == "" || cfg.RabbitMQEventsQueue == "" {
		log.Fatal("RabbitMQ not configured")
	}

	es, err := helpers.NewESClient(cfg.ESAddrs(), cfg.ElasticsearchUser, cfg.ElasticsearchPass)
	if err != nil {
		log.Fatalf("elasticsearch client: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	for _, kind := range entity.Kinds() {
		if err := helpers.EnsureIndex(ctx, es, cfg.ESIndexPrefix+kind.Name); err != nil {
			log.Fatalf("ensure index %s: %v", cfg.ESIndexPrefix+kind.Name, err)
		}
	}

	consumer, err := helpers.OpenConsumer(cfg.RabbitMQURL, cfg.RabbitMQEventsQueue, 16)
	if err != nil {
		log.Fatalf("amqp consumer: %v", err)
	}

	worker := application.NewIndexWorker(search.NewIndexer(es, 10*time.Second), cfg.ESIndexPrefix, logger)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for msg := range consumer.Deliveries {
			err := worker.Handle(ctx, msg.Body)
			switch {
			case err == nil:
				_ = msg.Ack(false)
			case errors.Is(err, application.ErrMalformedEvent):
				logger.WithError(err).WithField("message_id", msg.MessageId).Warn("dropping bad message")
				_ = msg.Nack(false, false)
			default:
				logger.WithError(err).WithField("message_id", msg.MessageId).Error("index failed; requeueing")
				_ = msg.Nack(false, true)
			}
		}
	}()

	logger.Infof("index worker listening on queue=%s", cfg.RabbitMQEventsQueue)
	<-stop
	logger.Info("shutting down...")
	cancel()
	consumer.Close()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
	}
}
