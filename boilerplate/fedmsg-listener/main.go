package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"packit-service/internal"
	"packit-service/pkg/events"
	"packit-service/pkg/fedmsg"
	"packit-service/pkg/webhook"
	"packit-service/pkg/worker"
)

// The listener bridges Fedora message-bus pushes into the same topics the
// webhook server publishes GitHub events to.
func main() {
	logger := internal.NewLogger("fedmsg")
	configPath := flag.String("config", "config.yaml", "Path to config file")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	appCfg, err := internal.LoadConfig(*configPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	busCfg, err := fedmsg.LoadConfig(*configPath)
	if err != nil {
		logger.Fatalf("load fedmsg config: %v", err)
	}

	ruleEngine, err := internal.NewRuleEngine(internal.RulesConfig{
		Rules:  appCfg.Rules,
		Logger: logger,
	}, appCfg.Watermill.TopicPrefix)
	if err != nil {
		logger.Fatalf("compile rules: %v", err)
	}

	publisher, err := internal.NewPublisher(appCfg.Watermill)
	if err != nil {
		logger.Fatalf("publisher: %v", err)
	}
	defer publisher.Close()

	sub, err := worker.BuildSubscriber(busCfg.Subscriber)
	if err != nil {
		logger.Fatalf("subscriber: %v", err)
	}
	defer sub.Close()

	wk := worker.New(
		worker.WithSubscriber(sub),
		worker.WithTopics(busCfg.Topics...),
		worker.WithCodec(fedmsg.Codec{}),
		worker.WithLogger(logger),
		worker.WithConcurrency(4),
	)
	wk.HandleTrigger(events.TriggerCommit, func(ctx context.Context, d *worker.Delivery) error {
		evt, ok := d.Event.(*events.DistGitEvent)
		if !ok {
			return nil
		}
		env := internal.Envelope{Event: evt, Source: "fedmsg", RequestID: evt.MsgID}
		return webhook.Emit(ctx, ruleEngine, publisher, internal.WithRequestID(logger, evt.MsgID), env)
	})

	logger.Printf("listening on %d fedmsg topics", len(busCfg.Topics))
	if err := wk.Run(ctx); err != nil {
		logger.Fatal(err)
	}
}
