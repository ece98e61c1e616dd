// worker consumes raw patent documents from Kafka and runs each through the
// corpus pipeline: parse, classification match and the configured sinks.
// Failed deliveries are retried by the consumer and end up on the dead
// letter topic.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/turtacn/KeyIP-PatentDoc/internal/bootstrap"
	"github.com/turtacn/KeyIP-PatentDoc/internal/config"
	"github.com/turtacn/KeyIP-PatentDoc/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/KeyIP-PatentDoc/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyIP-PatentDoc/internal/infrastructure/monitoring/prometheus"
	httpserver "github.com/turtacn/KeyIP-PatentDoc/internal/interfaces/http"
	"github.com/turtacn/KeyIP-PatentDoc/internal/interfaces/http/handlers"
	"github.com/turtacn/KeyIP-PatentDoc/internal/interfaces/http/middleware"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "", "path to patentdoc.yaml (default: search ., ./configs, /etc/patentdoc)")
	workers := flag.Int("workers", 0, "parse workers per document batch (overrides corpus.workers)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, *workers, logger); err != nil {
		logger.Error("worker exited", logging.Err(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, workers int, logger logging.Logger) error {
	if !cfg.Messaging.Kafka.Enabled {
		return fmt.Errorf("messaging.kafka.enabled must be set for the worker")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	infra, err := bootstrap.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer infra.Close()

	builder, err := infra.NewBuilder(ctx, bootstrap.BuildOptions{Workers: workers})
	if err != nil {
		return err
	}

	consumer, err := kafka.NewConsumer(cfg.Messaging.Kafka.ConsumerConfig(), logger)
	if err != nil {
		return err
	}
	defer consumer.Close()

	topic := cfg.Messaging.Kafka.Topics.Raw
	handler := instrument(topic, kafka.NewRawDocumentHandler(builder, logger), infra.Metrics, cfg.Worker.HandlerTimeout)
	if err := consumer.Subscribe(topic, handler); err != nil {
		return err
	}

	healthSrv := newHealthServer(cfg, infra, consumer, logger)
	go func() {
		if err := healthSrv.Start(); err != nil {
			logger.Error("health server failed", logging.Err(err))
			stop()
		}
	}()

	if err := consumer.Start(ctx); err != nil {
		return err
	}
	logger.Info("patentdoc worker started",
		logging.String("version", version),
		logging.String("topic", topic),
		logging.String("group", cfg.Messaging.Kafka.GroupID),
		logging.Strings("components", infra.Components()))

	<-ctx.Done()
	logger.Info("shutting down worker")

	if err := consumer.Close(); err != nil {
		logger.Warn("closing consumer", logging.Err(err))
	}
	stats := consumer.Stats()
	logger.Info("patentdoc worker stopped",
		logging.Int64("consumed", stats.Consumed),
		logging.Int64("processed", stats.Processed),
		logging.Int64("dead_lettered", stats.DeadLettered))
	return healthSrv.Stop(context.Background())
}

// instrument bounds each delivery by timeout and records its outcome.
func instrument(topic string, next kafka.MessageHandler, m *prometheus.AppMetrics, timeout time.Duration) kafka.MessageHandler {
	return func(ctx context.Context, msg *kafka.Message) error {
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		start := time.Now()
		err := next(ctx, msg)
		if m != nil {
			prometheus.RecordMessage(m, topic, time.Since(start), err)
		}
		return err
	}
}

// newHealthServer serves the probes and metrics on worker.health_port.  The
// worker is ready while every store answers and the consumer is running.
func newHealthServer(cfg *config.Config, infra *bootstrap.Infrastructure, consumer *kafka.Consumer, logger logging.Logger) *httpserver.Server {
	checks := make(map[string]handlers.CheckFunc)
	for name, fn := range infra.HealthChecks() {
		checks[name] = fn
	}
	checks["kafka_consumer"] = consumerCheck(consumer)

	router := httpserver.NewRouter(httpserver.RouterConfig{
		HealthHandler:  handlers.NewHealthHandler(version, checks, infra.Metrics),
		Logging:        middleware.DefaultLoggingConfig(),
		Logger:         logger,
		Metrics:        infra.Metrics,
		MetricsHandler: infra.MetricsHandler(),
		MetricsPath:    cfg.Monitoring.Prometheus.Path,
	})

	srvCfg := cfg.Server
	srvCfg.Port = cfg.Worker.HealthPort
	return httpserver.NewServer(srvCfg, router, logger)
}

type runner interface {
	IsRunning() bool
}

func consumerCheck(c runner) handlers.CheckFunc {
	return func(context.Context) error {
		if !c.IsRunning() {
			return fmt.Errorf("consumer is not running")
		}
		return nil
	}
}

//Personal.AI order the ending
