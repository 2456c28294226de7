package fedmsg

import (
	"os"

	"gopkg.in/yaml.v3"

	"packit-service/pkg/events"
	"packit-service/pkg/worker"
)

// Config is the fedmsg section of the service configuration.
type Config struct {
	// Subscriber connects to the Fedora message bus, usually over AMQP.
	Subscriber worker.SubscriberConfig `yaml:"subscriber"`
	// Topics are full bus topics; empty means every topic the service knows.
	Topics []string `yaml:"topics"`
}

func LoadConfig(path string) (Config, error) {
	var file struct {
		Fedmsg Config `yaml:"fedmsg"`
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return file.Fedmsg, err
	}
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &file); err != nil {
		return file.Fedmsg, err
	}
	cfg := file.Fedmsg
	if cfg.Subscriber.Driver == "" {
		cfg.Subscriber.Driver = "amqp"
	}
	if len(cfg.Topics) == 0 {
		cfg.Topics = events.FedmsgTopics()
	}
	return cfg, nil
}
