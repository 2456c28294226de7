package internal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"packit-service/pkg/events"
)

// riverQueuePublisher inserts events as jobs into a River job table so River
// workers can pick them up.
type riverQueuePublisher struct {
	db  *sql.DB
	cfg RiverQueueConfig
}

func newRiverQueuePublisher(cfg RiverQueueConfig) (*riverQueuePublisher, error) {
	if cfg.DSN == "" {
		return nil, errors.New("riverqueue dsn is required")
	}
	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, err
	}
	return &riverQueuePublisher{db: db, cfg: cfg}, nil
}

// Publish stores the event Dict as the job args.
func (p *riverQueuePublisher) Publish(ctx context.Context, topic string, env Envelope) error {
	args, err := events.Marshal(env.Event)
	if err != nil {
		return err
	}
	metadata, err := json.Marshal(map[string]string{
		"trigger":    env.Event.Trigger().String(),
		"source":     env.Source,
		"request_id": env.RequestID,
		"topic":      topic,
	})
	if err != nil {
		return err
	}

	_, err = p.db.ExecContext(ctx, riverInsertQuery(p.cfg.Table),
		string(args),
		p.cfg.Kind,
		p.cfg.MaxAttempts,
		string(metadata),
		p.cfg.Priority,
		p.cfg.Queue,
		pq.Array(p.cfg.Tags),
	)
	if err != nil {
		IncPublishError("riverqueue")
	}
	return err
}

func (p *riverQueuePublisher) PublishForDrivers(ctx context.Context, topic string, env Envelope, _ []string) error {
	return p.Publish(ctx, topic, env)
}

func (p *riverQueuePublisher) Close() error {
	if p.db == nil {
		return nil
	}
	return p.db.Close()
}

func riverInsertQuery(table string) string {
	table = strings.TrimSpace(table)
	if table == "" {
		table = "river_job"
	}
	return fmt.Sprintf(
		`INSERT INTO %s (args, kind, max_attempts, metadata, priority, queue, scheduled_at, tags)
VALUES ($1, $2, $3, $4, $5, $6, now(), $7)`,
		pq.QuoteIdentifier(table),
	)
}
