// apiserver serves the patentdoc REST API and the gRPC health endpoint.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/turtacn/KeyIP-PatentDoc/internal/bootstrap"
	"github.com/turtacn/KeyIP-PatentDoc/internal/config"
	"github.com/turtacn/KeyIP-PatentDoc/internal/infrastructure/monitoring/logging"
	grpcserver "github.com/turtacn/KeyIP-PatentDoc/internal/interfaces/grpc"
	httpserver "github.com/turtacn/KeyIP-PatentDoc/internal/interfaces/http"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "", "path to patentdoc.yaml (default: search ., ./configs, /etc/patentdoc)")
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

	if err := run(cfg, config.Locate(*configPath), logger); err != nil {
		logger.Error("apiserver exited", logging.Err(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, configFile string, logger logging.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	infra, err := bootstrap.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer infra.Close()

	api, err := httpserver.NewAPI(infra, version)
	if err != nil {
		return err
	}
	httpSrv := httpserver.NewServer(cfg.Server, api, logger)

	if configFile != "" {
		if _, err := config.Watch(configFile, logger, api.Reload); err != nil {
			logger.Warn("configuration hot reload disabled", logging.String("path", configFile), logging.Err(err))
		}
	}

	var grpcSrv *grpcserver.Server
	if cfg.GRPC.Enabled {
		checks := make(map[string]grpcserver.CheckFunc)
		for name, fn := range infra.HealthChecks() {
			checks[name] = fn
		}
		grpcSrv = grpcserver.NewServer(cfg.GRPC, cfg.Server.Host,
			grpcserver.WithLogger(logger),
			grpcserver.WithMetrics(infra.Metrics),
			grpcserver.WithHealthChecks(checks, 0),
			grpcserver.WithGracefulTimeout(cfg.Server.ShutdownTimeout))
	}

	logger.Info("starting patentdoc apiserver",
		logging.String("version", version),
		logging.String("http_addr", httpSrv.Addr()),
		logging.Bool("grpc", grpcSrv != nil),
		logging.Strings("components", infra.Components()))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(httpSrv.Start)
	if grpcSrv != nil {
		g.Go(grpcSrv.Start)
		g.Go(func() error {
			grpcSrv.WatchHealth(gctx)
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx := context.Background()
		if grpcSrv != nil {
			grpcSrv.Stop(shutdownCtx)
		}
		return httpSrv.Stop(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("patentdoc apiserver stopped")
	return nil
}

//Personal.AI order the ending
