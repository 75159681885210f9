package config

import (
	"errors"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type HTTP struct {
	Addr string `yaml:"addr"`
}

type Logging struct {
	Env       string `yaml:"env"`       // dev|prod
	Service   string `yaml:"service"`   // signal-service
	Version   string `yaml:"version"`   // v0.1.0
	Backend   string `yaml:"backend"`   // std|zap
	AddSource bool   `yaml:"addSource"` // false|true
	Debug     bool   `yaml:"debug"`     // false|true
}

type Room struct {
	ReadyDelay string `yaml:"readyDelay"` // operator readiness grace, default 500ms
	TokenBytes int    `yaml:"tokenBytes"` // random bytes per generated room id
}

type Static struct {
	Dir string `yaml:"dir"`
}

type RateLimit struct {
	Max    int    `yaml:"max"`    // requests per window on REST endpoints
	Window string `yaml:"window"` // window size, e.g. 1m
}

type Config struct {
	HTTP      HTTP      `yaml:"http"`
	Logging   Logging   `yaml:"logging"`
	Room      Room      `yaml:"room"`
	Static    Static    `yaml:"static"`
	RateLimit RateLimit `yaml:"rateLimit"`
}

func LoadConfig() (*Config, error) {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "./config/config.yaml"
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.HTTP.Addr == "" {
		return errors.New("http.addr is required")
	}
	if c.Logging.Service == "" {
		c.Logging.Service = "signal-service"
	}
	if c.Logging.Env == "" {
		c.Logging.Env = "dev"
	}
	if c.Logging.Version == "" {
		c.Logging.Version = "v0.1.0"
	}
	if c.Logging.Backend == "" {
		c.Logging.Backend = "std"
	}
	if c.Room.TokenBytes <= 0 {
		c.Room.TokenBytes = 6
	}
	if c.Static.Dir == "" {
		c.Static.Dir = "./static"
	}
	return nil
}

// ReadyDelayDuration parses room.readyDelay, defaulting to 500ms.
func (c *Config) ReadyDelayDuration() time.Duration {
	return parseDurationOr(500*time.Millisecond, c.Room.ReadyDelay)
}

// RateLimitWindowDuration parses rateLimit.window, defaulting to one minute.
func (c *Config) RateLimitWindowDuration() time.Duration {
	return parseDurationOr(time.Minute, c.RateLimit.Window)
}

func parseDurationOr(def time.Duration, s string) time.Duration {
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return def
}
