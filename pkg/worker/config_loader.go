package worker

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"packit-service/pkg/config"
	"packit-service/pkg/events"
)

// AppConfig is the part of the service configuration a worker reads.
type AppConfig struct {
	Watermill SubscriberConfig  `yaml:"watermill"`
	User      config.UserConfig `yaml:"user"`
	Rules     []struct {
		Emit string `yaml:"emit"`
	} `yaml:"rules"`
}

// LoadConfig reads the shared service configuration file.
func LoadConfig(path string) (AppConfig, error) {
	var cfg AppConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return cfg, err
	}
	applySubscriberDefaults(&cfg.Watermill)
	if cfg.User.PagureInstanceURL == "" {
		cfg.User.PagureInstanceURL = config.DefaultPagureInstanceURL
	}
	return cfg, nil
}

func LoadSubscriberConfig(path string) (SubscriberConfig, error) {
	cfg, err := LoadConfig(path)
	return cfg.Watermill, err
}

// Topics returns the topics the webhook server publishes to: every rule's
// emit topic followed by the per-trigger topics events fall back to when no
// rule matches.
func (c AppConfig) Topics() []string {
	topics := make([]string, 0, len(c.Rules)+4)
	seen := make(map[string]struct{}, len(c.Rules)+4)
	for _, rule := range c.Rules {
		topic := strings.TrimSpace(rule.Emit)
		if topic == "" {
			continue
		}
		if _, ok := seen[topic]; ok {
			continue
		}
		seen[topic] = struct{}{}
		topics = append(topics, topic)
	}
	for _, trigger := range []events.JobTriggerType{
		events.TriggerRelease,
		events.TriggerPullRequest,
		events.TriggerInstallation,
		events.TriggerCommit,
	} {
		topic := c.Watermill.TopicPrefix + "." + trigger.String()
		if _, ok := seen[topic]; ok {
			continue
		}
		seen[topic] = struct{}{}
		topics = append(topics, topic)
	}
	return topics
}

func LoadTopicsFromConfig(path string) ([]string, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	return cfg.Topics(), nil
}

func applySubscriberDefaults(cfg *SubscriberConfig) {
	if cfg.Driver == "" {
		cfg.Driver = "gochannel"
	}
	if cfg.GoChannel.OutputChannelBuffer == 0 {
		cfg.GoChannel.OutputChannelBuffer = 64
	}
	if cfg.NATS.ClientIDSuffix == "" {
		cfg.NATS.ClientIDSuffix = "-worker"
	}
	if cfg.TopicPrefix == "" {
		cfg.TopicPrefix = "packit"
	}
}
