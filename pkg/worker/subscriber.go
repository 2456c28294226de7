package worker

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmamaqp "github.com/ThreeDotsLabs/watermill-amqp/pkg/amqp"
	wmkafka "github.com/ThreeDotsLabs/watermill-kafka/pkg/kafka"
	wmnats "github.com/ThreeDotsLabs/watermill-nats/pkg/nats"
	wmsql "github.com/ThreeDotsLabs/watermill-sql/pkg/sql"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/cenkalti/backoff/v5"
	stan "github.com/nats-io/stan.go"
)

// ErrSubscriberConfig marks a subscriber configuration that can never connect.
var ErrSubscriberConfig = errors.New("invalid subscriber config")

var (
	subscriberBuildAttempts uint = 10
	subscriberBuildInterval      = 2 * time.Second
)

// connectFunc dials one broker. The config has already been checked.
type connectFunc func(cfg SubscriberConfig, logger watermill.LoggerAdapter) (message.Subscriber, error)

var subscriberDrivers = map[string]connectFunc{
	"gochannel": connectGoChannel,
	"amqp":      connectAMQP,
	"nats":      connectNATS,
	"kafka":     connectKafka,
	"sql":       connectSQL,
}

// BuildSubscriber creates the watermill subscriber for cfg.Driver.
//
// Building happens in two steps. The config is checked first, and a bad one
// (unknown driver, missing URL or brokers, unknown amqp mode or sql dialect,
// unregistered sql driver) fails at once with ErrSubscriberConfig. Only the
// connect step is retried, on a constant backoff, since a broker that is not
// up yet is the one failure that waiting can fix.
func BuildSubscriber(cfg SubscriberConfig) (message.Subscriber, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" {
		driver = "gochannel"
	}
	if err := checkSubscriberConfig(cfg, driver); err != nil {
		return nil, err
	}
	logger := watermill.NewStdLogger(false, false)
	connect := subscriberDrivers[driver]
	return backoff.Retry(context.Background(), func() (message.Subscriber, error) {
		sub, err := connect(cfg, logger)
		if err != nil {
			logger.Info("subscriber connect failed, retrying", watermill.LogFields{"driver": driver, "err": err.Error()})
		}
		return sub, err
	},
		backoff.WithBackOff(backoff.NewConstantBackOff(subscriberBuildInterval)),
		backoff.WithMaxTries(subscriberBuildAttempts))
}

func checkSubscriberConfig(cfg SubscriberConfig, driver string) error {
	invalid := func(format string, args ...interface{}) error {
		return fmt.Errorf("%w: %s", ErrSubscriberConfig, fmt.Sprintf(format, args...))
	}
	if _, ok := subscriberDrivers[driver]; !ok {
		return invalid("unsupported driver %q", driver)
	}
	switch driver {
	case "amqp":
		if cfg.AMQP.URL == "" {
			return invalid("amqp url is required")
		}
		if _, err := amqpConfig(cfg.AMQP); err != nil {
			return invalid("%v", err)
		}
	case "nats":
		if cfg.NATS.ClusterID == "" || cfg.NATS.ClientID == "" {
			return invalid("nats cluster_id and client_id are required")
		}
	case "kafka":
		if len(cfg.Kafka.Brokers) == 0 {
			return invalid("kafka brokers are required")
		}
	case "sql":
		if cfg.SQL.Driver == "" || cfg.SQL.DSN == "" {
			return invalid("sql driver and dsn are required")
		}
		if !slices.Contains(sql.Drivers(), cfg.SQL.Driver) {
			return invalid("sql driver %q is not registered", cfg.SQL.Driver)
		}
		if _, _, err := sqlAdapters(cfg.SQL.Dialect); err != nil {
			return invalid("%v", err)
		}
	}
	return nil
}

func connectGoChannel(cfg SubscriberConfig, logger watermill.LoggerAdapter) (message.Subscriber, error) {
	return gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer:            cfg.GoChannel.OutputChannelBuffer,
		Persistent:                     cfg.GoChannel.Persistent,
		BlockPublishUntilSubscriberAck: cfg.GoChannel.BlockPublishUntilSubscriberAck,
	}, logger), nil
}

func connectAMQP(cfg SubscriberConfig, logger watermill.LoggerAdapter) (message.Subscriber, error) {
	amqpCfg, err := amqpConfig(cfg.AMQP)
	if err != nil {
		return nil, err
	}
	return wmamaqp.NewSubscriber(amqpCfg, logger)
}

func connectNATS(cfg SubscriberConfig, logger watermill.LoggerAdapter) (message.Subscriber, error) {
	natsCfg := wmnats.StreamingSubscriberConfig{
		ClusterID:   cfg.NATS.ClusterID,
		ClientID:    cfg.NATS.ClientID + cfg.NATS.ClientIDSuffix,
		DurableName: cfg.NATS.Durable,
		Unmarshaler: wmnats.GobMarshaler{},
	}
	if cfg.NATS.URL != "" {
		natsCfg.StanOptions = append(natsCfg.StanOptions, stan.NatsURL(cfg.NATS.URL))
	}
	return wmnats.NewStreamingSubscriber(natsCfg, logger)
}

func connectKafka(cfg SubscriberConfig, logger watermill.LoggerAdapter) (message.Subscriber, error) {
	return wmkafka.NewSubscriber(wmkafka.SubscriberConfig{
		Brokers:       cfg.Kafka.Brokers,
		ConsumerGroup: cfg.Kafka.ConsumerGroup,
	}, nil, wmkafka.DefaultMarshaler{}, logger)
}

func connectSQL(cfg SubscriberConfig, logger watermill.LoggerAdapter) (message.Subscriber, error) {
	schema, offsets, err := sqlAdapters(cfg.SQL.Dialect)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(cfg.SQL.Driver, cfg.SQL.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	sub, err := wmsql.NewSubscriber(db, wmsql.SubscriberConfig{
		ConsumerGroup:    cfg.SQL.ConsumerGroup,
		SchemaAdapter:    schema,
		OffsetsAdapter:   offsets,
		InitializeSchema: cfg.SQL.InitializeSchema || cfg.SQL.AutoInitializeSchema,
	}, logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &dbSubscriber{Subscriber: sub, db: db}, nil
}

// dbSubscriber closes the database handle together with the subscriber.
type dbSubscriber struct {
	message.Subscriber
	db *sql.DB
}

func (s *dbSubscriber) Close() error {
	return errors.Join(s.Subscriber.Close(), s.db.Close())
}

func amqpConfig(cfg AMQPConfig) (wmamaqp.Config, error) {
	switch strings.ToLower(cfg.Mode) {
	case "", "durable_queue":
		return wmamaqp.NewDurableQueueConfig(cfg.URL), nil
	case "nondurable_queue":
		return wmamaqp.NewNonDurableQueueConfig(cfg.URL), nil
	case "durable_pubsub":
		return wmamaqp.NewDurablePubSubConfig(cfg.URL, nil), nil
	case "nondurable_pubsub":
		return wmamaqp.NewNonDurablePubSubConfig(cfg.URL, nil), nil
	default:
		return wmamaqp.Config{}, fmt.Errorf("unsupported amqp mode %q", cfg.Mode)
	}
}

func sqlAdapters(dialect string) (wmsql.SchemaAdapter, wmsql.OffsetsAdapter, error) {
	switch strings.ToLower(dialect) {
	case "postgres", "postgresql":
		return wmsql.DefaultPostgreSQLSchema{}, wmsql.DefaultPostgreSQLOffsetsAdapter{}, nil
	case "mysql":
		return wmsql.DefaultMySQLSchema{}, wmsql.DefaultMySQLOffsetsAdapter{}, nil
	default:
		return nil, nil, fmt.Errorf("unsupported sql dialect %q", dialect)
	}
}
