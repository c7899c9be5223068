package types

import (
	"fmt"
	"net/url"
	"os"

	"github.com/goccy/go-yaml"
)

const (
	DefaultWorkers = 4
	MaxWorkers     = 64
)

// Config is the process configuration. Sites come from a YAML file, the rest from the environment.
// Workers bounds the number of reconciliations running at once.
// SNSTopicArn, when set, forwards every change event to that topic.
type Config struct {
	Port        int    `yaml:"port"`
	Workers     int    `yaml:"workers"`
	SNSTopicArn string `yaml:"sns_topic_arn"`
	Sites       []Site `yaml:"sites"`
}

func (c Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port must be between 0 and 65535")
	}
	if c.Workers < 0 || c.Workers > MaxWorkers {
		return fmt.Errorf("workers must be between 0 and %d", MaxWorkers)
	}
	seen := make(map[int64]struct{}, len(c.Sites))
	for _, s := range c.Sites {
		if s.ID <= 0 {
			return fmt.Errorf("site id must be positive, got %d", s.ID)
		}
		if _, dup := seen[s.ID]; dup {
			return fmt.Errorf("duplicate site id %d", s.ID)
		}
		seen[s.ID] = struct{}{}
		if _, err := url.ParseRequestURI(s.APIRoot); err != nil {
			return fmt.Errorf("site %d: invalid api_root: %w", s.ID, err)
		}
	}
	return nil
}

// Site returns the configured site with the given local id.
func (c Config) Site(id int64) (Site, error) {
	for _, s := range c.Sites {
		if s.ID == id {
			return s, nil
		}
	}
	return Site{}, Err(ErrUnknownSite, nil, "site %d", id)
}

// LoadConfigFile reads and validates a YAML config file.
func LoadConfigFile(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, Err(ErrInvalidConfig, err, "parse %s", path)
	}
	if cfg.Workers == 0 {
		cfg.Workers = DefaultWorkers
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, Err(ErrInvalidConfig, err, "")
	}
	return cfg, nil
}
