package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/joseph-ayodele/taxcerts/internal/async"
	"github.com/joseph-ayodele/taxcerts/internal/common"
	"github.com/joseph-ayodele/taxcerts/internal/core"
	"github.com/joseph-ayodele/taxcerts/internal/ingest"
	"github.com/joseph-ayodele/taxcerts/internal/repository"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "taxcertd:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := common.LoadConfig()

	inbox := flag.String("inbox", cfg.Server.InboxDir, "directory watched for new property archives")
	addr := flag.String("grpc-addr", cfg.Server.GRPCAddr, "gRPC health listen address")
	workers := flag.Int("workers", cfg.Batch.Workers, "concurrent pipeline workers")
	level := flag.String("log-level", "info", "debug | info | warn | error")
	jsonLogs := flag.Bool("json-logs", cfg.Log.JSON, "emit logs as JSON")
	flag.Parse()

	cfg.Server.InboxDir = *inbox
	cfg.Server.GRPCAddr = *addr
	cfg.Batch.Workers = *workers
	cfg.Log.Level = *level
	cfg.Log.JSON = *jsonLogs
	if err := cfg.Validate(true); err != nil {
		return err
	}

	logger, closeLog, err := common.NewLogger(cfg.Log, os.Stderr)
	if err != nil {
		return err
	}
	defer func() { _ = closeLog() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := os.MkdirAll(cfg.Server.InboxDir, 0o755); err != nil {
		return fmt.Errorf("create inbox: %w", err)
	}

	store, err := repository.Open(ctx, *cfg, logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("store close failed", "error", err)
		}
	}()

	ctrl, err := core.NewProcessor(cfg, store, core.Deps{}, logger)
	if err != nil {
		return err
	}

	// gRPC server
	grpcServer := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	reflection.Register(grpcServer)

	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	go func() {
		if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			logger.Error("grpc serve failed", "error", err)
			stop()
		}
	}()
	logger.Info("gRPC health serving", "addr", lis.Addr().String())

	if err := pingStore(ctx, store); err != nil {
		grpcServer.Stop()
		return fmt.Errorf("store health: %w", err)
	}
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	logger.Info("store health OK", "store", cfg.Storage.Kind)

	inboxer := newInbox(cfg.Server.InboxDir, logger)
	queue := async.NewProcessorQueue(ctrl, logger,
		async.WithWorkers(cfg.Batch.Workers),
		async.WithProcessTimeout(cfg.Batch.RunTimeout),
		async.WithResultHook(inboxer.settle),
	)

	events, watchErrs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
		Roots:       []string{cfg.Server.InboxDir},
		SkipDirs:    inboxer.outcomeDirs(),
		InitialScan: true,
		Debounce:    cfg.Server.Debounce,
		Logger:      logger,
	})
	if err != nil {
		grpcServer.Stop()
		return fmt.Errorf("start watcher: %w", err)
	}
	logger.Info("watching inbox", "dir", cfg.Server.InboxDir, "workers", cfg.Batch.Workers)

	inboxer.feed(ctx, events, watchErrs, queue)

	logger.Info("shutting down...")
	hs.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Batch.RunTimeout+5*time.Second)
	defer cancel()
	queue.Shutdown(shutdownCtx)
	grpcServer.GracefulStop()
	logger.Info("stopped")
	return nil
}

// pingStore checks stores that can be pinged; the filesystem store is always reachable.
func pingStore(ctx context.Context, store repository.DatasetStore) error {
	p, ok := store.(interface{ Ping(context.Context) error })
	if !ok {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return p.Ping(ctx)
}
