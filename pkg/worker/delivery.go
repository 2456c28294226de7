package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"packit-service/pkg/events"
	"packit-service/pkg/forge"
	"packit-service/pkg/packageconfig"
)

// ErrNoProject is returned when the delivered event does not point at a repository.
var ErrNoProject = errors.New("event has no project")

// Delivery is a message received by the worker.
type Delivery struct {
	// Topic is the name of the topic the message was received on.
	Topic string `json:"topic"`
	// Metadata contains message-broker-specific metadata.
	Metadata map[string]string `json:"metadata"`
	// Payload is the raw message payload.
	Payload json.RawMessage `json:"payload"`
	// Event is the decoded event.
	Event events.Event `json:"-"`
	// Resolvers are used by Project and PackageConfig.
	Resolvers events.Resolvers `json:"-"`
}

// Trigger returns the trigger of the decoded event, or "" before decoding.
func (d *Delivery) Trigger() events.JobTriggerType {
	if d == nil || d.Event == nil {
		return ""
	}
	return d.Event.Trigger()
}

// Project opens the repository the event refers to.
func (d *Delivery) Project(ctx context.Context) (forge.Project, error) {
	evt, err := d.projectEvent()
	if err != nil {
		return nil, err
	}
	return evt.GetProject(ctx, d.Resolvers)
}

// PackageConfig loads the package configuration for the event.
func (d *Delivery) PackageConfig(ctx context.Context) (*packageconfig.PackageConfig, error) {
	evt, err := d.projectEvent()
	if err != nil {
		return nil, err
	}
	return evt.GetPackageConfig(ctx, d.Resolvers)
}

func (d *Delivery) projectEvent() (events.ProjectEvent, error) {
	if d == nil || d.Event == nil {
		return nil, errors.New("delivery has no event")
	}
	evt, ok := d.Event.(events.ProjectEvent)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoProject, d.Event.Trigger())
	}
	return evt, nil
}
