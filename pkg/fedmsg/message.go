// Package fedmsg turns Fedora message-bus messages into events.
package fedmsg

import (
	"encoding/json"
	"errors"
	"fmt"

	"packit-service/pkg/events"
)

// ErrMalformedMessage is returned when a dist-git push lacks its commit block.
var ErrMalformedMessage = errors.New("malformed fedora message")

// Message is a fedmsg envelope. Fedora Messaging bodies carry only the
// inner msg, so both shapes are accepted.
type Message struct {
	Topic string          `json:"topic"`
	MsgID string          `json:"msg_id"`
	Msg   json.RawMessage `json:"msg"`
}

type commitBody struct {
	Commit *struct {
		Namespace string `json:"namespace"`
		Repo      string `json:"repo"`
		Branch    string `json:"branch"`
		Rev       string `json:"rev"`
	} `json:"commit"`
}

// ParseMessage builds a DistGitEvent from a git.receive message. Messages on
// other topics return a nil event. topic may be empty when the envelope
// carries it.
func ParseMessage(topic, msgID string, body []byte) (*events.DistGitEvent, error) {
	if topic != "" && !handled(topic) {
		return nil, nil
	}
	var envelope Message
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if topic == "" {
		topic = envelope.Topic
		if !handled(topic) {
			return nil, nil
		}
	}
	if envelope.MsgID != "" {
		msgID = envelope.MsgID
	}
	inner := []byte(envelope.Msg)
	if len(inner) == 0 {
		inner = body
	}

	var msg commitBody
	if err := json.Unmarshal(inner, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if msg.Commit == nil || msg.Commit.Repo == "" {
		return nil, fmt.Errorf("%w: missing commit", ErrMalformedMessage)
	}
	c := msg.Commit
	return events.NewDistGitEvent(events.TopicDistGitPush, c.Namespace, c.Repo, c.Rev, c.Branch, msgID), nil
}

// handled reports whether messages on topic produce an event.
func handled(topic string) bool {
	label, err := events.ParseFedmsgTopic(topic)
	return err == nil && label == events.TopicDistGitPush
}
