package worker

import (
	"encoding/json"
	"errors"

	"github.com/ThreeDotsLabs/watermill/message"

	"packit-service/pkg/events"
)

// ErrSkip tells the worker to acknowledge a message without handling it.
var ErrSkip = errors.New("skip message")

// Codec decodes messages from a message broker into a Delivery.
type Codec interface {
	Decode(topic string, msg *message.Message) (*Delivery, error)
}

// DefaultCodec decodes payloads written by the webhook server: the JSON dict
// of an event tagged with its trigger.
type DefaultCodec struct{}

func (DefaultCodec) Decode(topic string, msg *message.Message) (*Delivery, error) {
	evt, err := events.Unmarshal(msg.Payload)
	if err != nil {
		return nil, err
	}
	return NewDelivery(topic, msg, evt), nil
}

func copyMetadata(md message.Metadata) map[string]string {
	out := make(map[string]string, len(md))
	for key, value := range md {
		out[key] = value
	}
	return out
}

// NewDelivery builds a delivery for codecs living outside this package.
func NewDelivery(topic string, msg *message.Message, evt events.Event) *Delivery {
	return &Delivery{
		Topic:    topic,
		Metadata: copyMetadata(msg.Metadata),
		Payload:  json.RawMessage(msg.Payload),
		Event:    evt,
	}
}
