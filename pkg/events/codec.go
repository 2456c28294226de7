package events

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Marshal encodes an event as the JSON object of its Dict.
func Marshal(evt Event) ([]byte, error) {
	if evt == nil {
		return nil, errors.New("event is nil")
	}
	return json.Marshal(evt.Dict())
}

// Unmarshal decodes the output of Marshal back into the concrete event
// selected by its trigger.
func Unmarshal(data []byte) (Event, error) {
	var head struct {
		Trigger JobTriggerType `json:"trigger"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, err
	}

	var evt Event
	switch head.Trigger {
	case TriggerRelease:
		evt = &ReleaseEvent{}
	case TriggerPullRequest:
		evt = &PullRequestEvent{}
	case TriggerInstallation:
		evt = &InstallationEvent{}
	case TriggerCommit:
		evt = &DistGitEvent{}
	case "":
		return nil, errors.New("event trigger missing")
	default:
		return nil, fmt.Errorf("unknown event trigger %q", head.Trigger)
	}
	if err := json.Unmarshal(data, evt); err != nil {
		return nil, fmt.Errorf("decode %s event: %w", head.Trigger, err)
	}
	if inst, ok := evt.(*InstallationEvent); ok && inst.Status == "" {
		inst.Status = WhitelistWaiting
	}
	return evt, nil
}

// FromDict rebuilds an event from a mapping produced by Dict, for example
// one read back from a cache.
func FromDict(m map[string]interface{}) (Event, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return Unmarshal(data)
}
