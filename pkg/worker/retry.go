package worker

import (
	"context"
	"errors"

	"packit-service/pkg/packageconfig"
)

// RetryDecision defines whether a message should be retried or Nacked.
type RetryDecision struct {
	Retry bool
	Nack  bool
}

// RetryPolicy defines a policy for retrying failed messages.
type RetryPolicy interface {
	OnError(ctx context.Context, d *Delivery, err error) RetryDecision
}

// NoRetry is a retry policy that never retries.
type NoRetry struct{}

// OnError always returns a decision to not retry and to Nack the message.
func (NoRetry) OnError(ctx context.Context, d *Delivery, err error) RetryDecision {
	return RetryDecision{Retry: false, Nack: true}
}

// ConfigAwareRetry acks messages whose repository has no usable package
// config, since redelivery cannot fix them, and nacks everything else.
type ConfigAwareRetry struct{}

func (ConfigAwareRetry) OnError(ctx context.Context, d *Delivery, err error) RetryDecision {
	switch {
	case errors.Is(err, packageconfig.ErrNoConfig),
		errors.Is(err, packageconfig.ErrMalformedConfig),
		errors.Is(err, ErrNoProject):
		return RetryDecision{}
	default:
		return RetryDecision{Retry: true, Nack: true}
	}
}
