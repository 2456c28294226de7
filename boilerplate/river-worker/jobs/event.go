// Package jobs runs packit events inserted into a River job table.
package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	"github.com/riverqueue/river"

	"packit-service/pkg/events"
	"packit-service/pkg/packageconfig"
)

// Kind is the job kind the worker is registered for. Set it before AddWorker.
var Kind = "packit.event"

// EventArgs carries the event Dict exactly as the publisher stored it.
type EventArgs struct {
	Raw json.RawMessage
}

func (EventArgs) Kind() string { return Kind }

func (a EventArgs) MarshalJSON() ([]byte, error) {
	if len(a.Raw) == 0 {
		return []byte("null"), nil
	}
	return a.Raw, nil
}

func (a *EventArgs) UnmarshalJSON(data []byte) error {
	a.Raw = append(a.Raw[:0], data...)
	return nil
}

// EventWorker resolves the package config of every project event it receives.
type EventWorker struct {
	river.WorkerDefaults[EventArgs]

	Resolvers events.Resolvers
	Logger    *log.Logger
}

func (w *EventWorker) Work(ctx context.Context, job *river.Job[EventArgs]) error {
	logger := w.Logger
	if logger == nil {
		logger = log.Default()
	}
	logger.Printf("job=%d queue=%s kind=%s attempt=%d", job.ID, job.Queue, job.Kind, job.Attempt)
	err := Process(ctx, job.Args.Raw, w.Resolvers, logger)
	if Permanent(err) {
		logger.Printf("job=%d cancelled: %v", job.ID, err)
		return river.JobCancel(err)
	}
	return err
}

// Process decodes one event and loads the package config its project holds.
// Events without a project are logged and acknowledged.
func Process(ctx context.Context, raw []byte, resolvers events.Resolvers, logger *log.Logger) error {
	evt, err := events.Unmarshal(raw)
	if err != nil {
		return &decodeError{err: err}
	}
	pe, ok := evt.(events.ProjectEvent)
	if !ok {
		logger.Printf("trigger=%s has no project, nothing to do", evt.Trigger())
		return nil
	}
	cfg, err := pe.GetPackageConfig(ctx, resolvers)
	if err != nil {
		return err
	}
	jobs := cfg.JobsFor(evt.Trigger().String())
	logger.Printf("trigger=%s upstream=%s jobs=%d", evt.Trigger(), cfg.UpstreamProjectURL, len(jobs))
	for _, job := range jobs {
		logger.Printf("job=%s trigger=%s", job.Job, job.Trigger)
	}
	return nil
}

// Permanent reports whether retrying err cannot succeed.
func Permanent(err error) bool {
	var de *decodeError
	return errors.As(err, &de) ||
		errors.Is(err, packageconfig.ErrNoConfig) ||
		errors.Is(err, packageconfig.ErrMalformedConfig)
}

type decodeError struct{ err error }

func (e *decodeError) Error() string { return "decode event: " + e.err.Error() }
func (e *decodeError) Unwrap() error { return e.err }
