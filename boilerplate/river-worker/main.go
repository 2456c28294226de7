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

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"

	"packit-service/boilerplate/river-worker/jobs"
	"packit-service/internal"
	"packit-service/pkg/events"
	"packit-service/pkg/packageconfig"
	"packit-service/pkg/providers/github"
	"packit-service/pkg/providers/pagure"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to app config")
	maxWorkers := flag.Int("max-workers", 5, "Max workers for the queue")
	flag.Parse()

	log.SetPrefix("packit/river-worker ")
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	cfg, err := internal.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	rq := cfg.Watermill.RiverQueue
	if rq.DSN == "" {
		log.Fatalf("watermill.riverqueue.dsn is required")
	}
	jobs.Kind = rq.Kind

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	dbPool, err := pgxpool.New(ctx, rq.DSN)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer dbPool.Close()

	logger := internal.NewLogger("river-worker")
	workers := river.NewWorkers()
	river.AddWorker(workers, &jobs.EventWorker{
		Resolvers: events.Resolvers{
			Config: cfg.User,
			GitHub: github.Resolver{},
			DistGit: pagure.Resolver{
				InstanceURL: cfg.User.PagureInstanceURL,
				Logger:      logger,
			},
			Loader: packageconfig.Loader{},
		},
		Logger: logger,
	})

	client, err := river.NewClient(riverpgxv5.New(dbPool), &river.Config{
		Logger: slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})),
		Queues: map[string]river.QueueConfig{
			rq.Queue: {MaxWorkers: *maxWorkers},
		},
		Workers: workers,
	})
	if err != nil {
		log.Fatalf("river client: %v", err)
	}

	if err := client.Start(ctx); err != nil {
		log.Fatalf("river start: %v", err)
	}
	log.Printf("consuming kind=%s queue=%s", rq.Kind, rq.Queue)

	<-ctx.Done()
	stopCtx, cancelStop := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelStop()
	if err := client.Stop(stopCtx); err != nil {
		log.Printf("river stop: %v", err)
	}
}
