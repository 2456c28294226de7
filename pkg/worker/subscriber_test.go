package worker

import (
	"errors"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

func withBuildTiming(t *testing.T, attempts uint, interval time.Duration) {
	t.Helper()
	prevAttempts, prevInterval := subscriberBuildAttempts, subscriberBuildInterval
	subscriberBuildAttempts, subscriberBuildInterval = attempts, interval
	t.Cleanup(func() {
		subscriberBuildAttempts, subscriberBuildInterval = prevAttempts, prevInterval
	})
}

func TestBuildSubscriberRejectsBadConfigWithoutRetry(t *testing.T) {
	// An hour between attempts: any retry would time the test out.
	withBuildTiming(t, 10, time.Hour)

	cases := map[string]SubscriberConfig{
		"unknown driver":  {Driver: "carrier-pigeon"},
		"amqp no url":     {Driver: "amqp"},
		"amqp bad mode":   {Driver: "amqp", AMQP: AMQPConfig{URL: "amqp://localhost", Mode: "fanout"}},
		"nats no ids":     {Driver: "nats"},
		"kafka no broker": {Driver: "kafka"},
		"sql no dsn":      {Driver: "sql", SQL: SQLConfig{Driver: "postgres"}},
		"sql unknown db":  {Driver: "sql", SQL: SQLConfig{Driver: "oracle", DSN: "x", Dialect: "postgres"}},
		"sql bad dialect": {Driver: "sql", SQL: SQLConfig{Driver: "postgres", DSN: "x", Dialect: "sqlite"}},
	}
	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := BuildSubscriber(cfg)
			if !errors.Is(err, ErrSubscriberConfig) {
				t.Fatalf("expected ErrSubscriberConfig, got %v", err)
			}
		})
	}
}

func TestBuildSubscriberRetriesConnect(t *testing.T) {
	withBuildTiming(t, 5, time.Millisecond)

	prev := subscriberDrivers["gochannel"]
	t.Cleanup(func() { subscriberDrivers["gochannel"] = prev })

	calls := 0
	subscriberDrivers["gochannel"] = func(cfg SubscriberConfig, logger watermill.LoggerAdapter) (message.Subscriber, error) {
		calls++
		if calls < 3 {
			return nil, errors.New("connection refused")
		}
		return gochannel.NewGoChannel(gochannel.Config{}, logger), nil
	}

	sub, err := BuildSubscriber(SubscriberConfig{})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer sub.Close()
	if calls != 3 {
		t.Fatalf("expected 3 connect attempts, got %d", calls)
	}
}

func TestBuildSubscriberGivesUpAfterAttempts(t *testing.T) {
	withBuildTiming(t, 2, time.Millisecond)

	prev := subscriberDrivers["kafka"]
	t.Cleanup(func() { subscriberDrivers["kafka"] = prev })

	calls := 0
	subscriberDrivers["kafka"] = func(SubscriberConfig, watermill.LoggerAdapter) (message.Subscriber, error) {
		calls++
		return nil, errors.New("no brokers reachable")
	}

	_, err := BuildSubscriber(SubscriberConfig{Driver: "Kafka", Kafka: KafkaConfig{Brokers: []string{"localhost:9092"}}})
	if err == nil || errors.Is(err, ErrSubscriberConfig) {
		t.Fatalf("expected connect error, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 connect attempts, got %d", calls)
	}
}
