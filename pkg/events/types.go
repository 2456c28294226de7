package events

import "fmt"

// JobTriggerType classifies what caused an event.
type JobTriggerType string

const (
	TriggerRelease      JobTriggerType = "release"
	TriggerPullRequest  JobTriggerType = "pull_request"
	TriggerInstallation JobTriggerType = "installation"
	TriggerCommit       JobTriggerType = "commit"
)

func (t JobTriggerType) String() string { return string(t) }

// MarshalText implements encoding.TextMarshaler.
func (t JobTriggerType) MarshalText() ([]byte, error) { return []byte(t), nil }

// UnmarshalText implements encoding.TextUnmarshaler. Any label is kept.
func (t *JobTriggerType) UnmarshalText(text []byte) error {
	*t = JobTriggerType(text)
	return nil
}

// PullRequestAction is the subset of pull request actions the service reacts to.
type PullRequestAction string

const (
	PullRequestOpened      PullRequestAction = "opened"
	PullRequestReopened    PullRequestAction = "reopened"
	PullRequestSynchronize PullRequestAction = "synchronize"
)

func (a PullRequestAction) String() string { return string(a) }

func (a PullRequestAction) MarshalText() ([]byte, error) { return []byte(a), nil }

// UnmarshalText keeps any label; ParsePullRequestAction is the validating path.
func (a *PullRequestAction) UnmarshalText(text []byte) error {
	*a = PullRequestAction(text)
	return nil
}

// ParsePullRequestAction returns the action for a webhook "action" value.
func ParsePullRequestAction(value string) (PullRequestAction, error) {
	switch v := PullRequestAction(value); v {
	case PullRequestOpened, PullRequestReopened, PullRequestSynchronize:
		return v, nil
	default:
		return "", fmt.Errorf("unsupported pull request action %q", value)
	}
}

// WhitelistStatus is the approval state of an account that installed the app.
type WhitelistStatus string

const (
	WhitelistApprovedAutomatically WhitelistStatus = "approved_automatically"
	WhitelistWaiting               WhitelistStatus = "waiting"
	WhitelistApprovedManually      WhitelistStatus = "approved_manually"
)

func (s WhitelistStatus) String() string { return string(s) }

func (s WhitelistStatus) MarshalText() ([]byte, error) { return []byte(s), nil }

// UnmarshalText keeps any label. An empty one decodes as waiting.
func (s *WhitelistStatus) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*s = WhitelistWaiting
		return nil
	}
	*s = WhitelistStatus(text)
	return nil
}

// FedmsgTopic identifies a message-bus topic the service consumes.
// The value is the short label; Topic returns the full bus topic.
type FedmsgTopic string

const (
	TopicDistGitPush       FedmsgTopic = "dist_git_push"
	TopicCoprBuildFinished FedmsgTopic = "copr_build_finished"
	TopicPRFlagAdded       FedmsgTopic = "pr_flag_added"
)

var fedmsgTopics = map[FedmsgTopic]string{
	TopicDistGitPush:       "org.fedoraproject.prod.git.receive",
	TopicCoprBuildFinished: "org.fedoraproject.prod.copr.build.end",
	TopicPRFlagAdded:       "org.fedoraproject.prod.pagure.pull-request.flag.added",
}

func (t FedmsgTopic) String() string { return string(t) }

// Topic returns the message-bus topic, or "" for an unknown label.
func (t FedmsgTopic) Topic() string { return fedmsgTopics[t] }

func (t FedmsgTopic) MarshalText() ([]byte, error) { return []byte(t), nil }

// UnmarshalText maps a full bus topic to its label and keeps anything else as is.
func (t *FedmsgTopic) UnmarshalText(text []byte) error {
	if v, err := ParseFedmsgTopic(string(text)); err == nil {
		*t = v
		return nil
	}
	*t = FedmsgTopic(text)
	return nil
}

// ParseFedmsgTopic accepts either a label ("dist_git_push") or a full bus topic.
func ParseFedmsgTopic(value string) (FedmsgTopic, error) {
	if _, ok := fedmsgTopics[FedmsgTopic(value)]; ok {
		return FedmsgTopic(value), nil
	}
	for label, topic := range fedmsgTopics {
		if topic == value {
			return label, nil
		}
	}
	return "", fmt.Errorf("unknown fedmsg topic %q", value)
}

// FedmsgTopics returns the full bus topics the service subscribes to.
func FedmsgTopics() []string {
	return []string{
		TopicDistGitPush.Topic(),
		TopicCoprBuildFinished.Topic(),
		TopicPRFlagAdded.Topic(),
	}
}
