package fedmsg

import (
	"github.com/ThreeDotsLabs/watermill/message"

	"packit-service/pkg/worker"
)

// Codec decodes raw Fedora messages for a worker subscribed to bus topics.
// Messages that do not produce an event are skipped.
type Codec struct{}

func (Codec) Decode(topic string, msg *message.Message) (*worker.Delivery, error) {
	msgID := msg.Metadata.Get("message_id")
	if msgID == "" {
		msgID = msg.UUID
	}
	evt, err := ParseMessage(topic, msgID, msg.Payload)
	if err != nil {
		return nil, err
	}
	if evt == nil {
		return nil, worker.ErrSkip
	}
	return worker.NewDelivery(topic, msg, evt), nil
}
