package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"blobmux/internal/config"
	"blobmux/internal/core/pubsub"
	natspub "blobmux/internal/core/pubsub/nats"
	"blobmux/internal/core/storage"
	"blobmux/internal/core/storage/scrub"
	"blobmux/internal/events"
	"blobmux/internal/healer"
	"blobmux/internal/logging"
	"blobmux/internal/ratelimit"
)

func main() {
	// 0. Parse Command Line Flags
	queueLimit := flag.Int("sync-queue-limit", 10000, "Maximum sync queue entries fetched per pass")
	dryRun := flag.Bool("dry-run", false, "Detect and log only, mutate nothing, run one pass")
	configDir := flag.String("config", "config", "Configuration directory")
	flag.Parse()

	// 1. Load Configuration
	cfg, err := config.LoadConfig(*configDir)
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}
	cfg.Healer.QueueLimit = *queueLimit
	cfg.Healer.DryRun = *dryRun
	if err := cfg.Healer.Validate(); err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	if err := logging.Initialize(cfg.Logging); err != nil {
		log.Fatalf("Failed to initialize logging: %v", err)
	}
	defer logging.Shutdown()

	// 2. Events publisher (optional)
	var publisher pubsub.Publisher
	if cfg.Events.Enabled {
		js, closeConn, err := natspub.Connect(cfg.Events.URL)
		if err != nil {
			log.Fatalf("Failed to connect event stream: %v", err)
		}
		defer closeConn()

		storageType := pubsub.FileStorage
		if cfg.Events.Storage == "memory" {
			storageType = pubsub.MemoryStorage
		}
		publisher, err = natspub.NewPublisher(js, pubsub.PublisherOptions{
			StreamName:    cfg.Events.Stream,
			SubjectPrefix: cfg.Events.SubjectPrefix,
			Storage:       storageType,
		})
		if err != nil {
			log.Fatalf("Failed to create event publisher: %v", err)
		}
		defer publisher.Close()
	}

	// 3. Build the storage stack
	initCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var handler scrub.Handler
	if publisher != nil {
		handler = events.NewRepairReporter(publisher, slog.Default())
	}
	stack, err := storage.NewStack(initCtx, cfg.Storage, handler, slog.Default())
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	defer stack.Close(context.Background())

	// 4. Build the healer
	replicas := stack.Replicas()
	queue := stack.Queue()
	if cfg.Healer.DryRun {
		var rec *healer.MutationRecorder
		replicas, queue, rec = healer.NewDryRunTopology(replicas, queue, slog.Default())
		defer func() {
			slog.Info("dry run finished", "suppressed_mutations", rec.Total())
		}()
	}

	limiter := ratelimit.NewLimiter(cfg.Healer.RateLimit)
	h := healer.New(replicas, queue, limiter, cfg.Healer, slog.Default())
	if publisher != nil {
		h.OnPass(events.NewPassObserver(publisher, cfg.Healer.DryRun, slog.Default()))
	}

	// 5. Run until terminated
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("Healer starting",
		"replicas", len(replicas),
		"queue_limit", cfg.Healer.QueueLimit,
		"dry_run", cfg.Healer.DryRun,
	)
	if err := h.Run(ctx); err != nil {
		slog.Error("Healer stopped with error", "err", err)
		os.Exit(1)
	}
	slog.Info("Healer stopped")
}
