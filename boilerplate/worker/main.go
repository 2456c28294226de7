package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill/message/router/middleware"

	"packit-service/boilerplate/worker/controllers"
	"packit-service/pkg/events"
	"packit-service/pkg/packageconfig"
	"packit-service/pkg/providers/github"
	"packit-service/pkg/providers/pagure"
	"packit-service/pkg/worker"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to app config")
	flag.Parse()

	log.SetPrefix("packit/worker-boilerplate ")
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := worker.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	sub, err := worker.BuildSubscriber(cfg.Watermill)
	if err != nil {
		log.Fatalf("subscriber: %v", err)
	}
	defer func() {
		if err := sub.Close(); err != nil {
			log.Printf("subscriber close: %v", err)
		}
	}()

	resolvers := events.Resolvers{
		Config: cfg.User,
		GitHub: github.Resolver{},
		DistGit: pagure.Resolver{
			InstanceURL: cfg.User.PagureInstanceURL,
			Logger:      log.Default(),
		},
		Loader: packageconfig.Loader{},
	}

	wk := worker.New(
		worker.WithSubscriber(sub),
		worker.WithTopics(cfg.Topics()...),
		worker.WithConcurrency(5),
		worker.WithRetry(worker.ConfigAwareRetry{}),
		worker.WithResolvers(resolvers),
		worker.WithMiddleware(worker.MiddlewareFromWatermill(middleware.Timeout(2*time.Minute))),
	)

	wk.HandleTrigger(events.TriggerRelease, controllers.HandleProjectEvent)
	wk.HandleTrigger(events.TriggerPullRequest, controllers.HandleProjectEvent)
	wk.HandleTrigger(events.TriggerCommit, controllers.HandleDistGitCommit)
	wk.HandleTrigger(events.TriggerInstallation, controllers.HandleInstallation)

	if err := wk.Run(ctx); err != nil {
		log.Fatal(err)
	}
}
