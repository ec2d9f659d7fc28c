package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	StorageMemory     = "memory"
	StorageRedis      = "redis"
	StorageClickHouse = "clickhouse"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
		CORSOrigins     []string      `yaml:"cors_origins"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"log"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Analytics struct {
		BaseURL    string        `yaml:"base_url"`
		Timeout    time.Duration `yaml:"timeout"`
		MaxRetries int           `yaml:"max_retries"`
	} `yaml:"analytics"`
	Forecast struct {
		Steps        int           `yaml:"steps"`
		Step         time.Duration `yaml:"step"`
		BoardTTL     time.Duration `yaml:"board_ttl"`
		AICacheTTL   time.Duration `yaml:"ai_cache_ttl"`
		OpenWait     time.Duration `yaml:"open_wait"`
		RefreshCron  string        `yaml:"refresh_cron"`
		SubmitPerMin int           `yaml:"submit_per_min"`
	} `yaml:"forecast"`
	Storage struct {
		Backend string `yaml:"backend"`
	} `yaml:"storage"`
	Redis struct {
		Addr        string        `yaml:"addr"`
		Password    string        `yaml:"password"`
		DB          int           `yaml:"db"`
		DialTimeout time.Duration `yaml:"dial_timeout"`
	} `yaml:"redis"`
	Kafka struct {
		Enabled          bool     `yaml:"enabled"`
		Brokers          []string `yaml:"brokers"`
		SubmissionsTopic string   `yaml:"submissions_topic"`
		ActualTopic      string   `yaml:"actual_topic"`
		GroupID          string   `yaml:"group_id"`
		RequiredAcks     int      `yaml:"required_acks"`
		Compression      string   `yaml:"compression"`
		AutoCreateTopics bool     `yaml:"auto_create_topics"`
	} `yaml:"kafka"`
	Queue struct {
		Enabled    bool          `yaml:"enabled"`
		Prefix     string        `yaml:"prefix"`
		Workers    int           `yaml:"workers"`
		RetryLimit int           `yaml:"retry_limit"`
		RetryDelay time.Duration `yaml:"retry_delay"`
		MaxPending int64         `yaml:"max_pending"`
	} `yaml:"queue"`
	ClickHouse struct {
		Host        string        `yaml:"host"`
		Port        int           `yaml:"port"`
		Database    string        `yaml:"database"`
		User        string        `yaml:"user"`
		Password    string        `yaml:"password"`
		UseHTTP     bool          `yaml:"use_http"`
		DialTimeout time.Duration `yaml:"dial_timeout"`
	} `yaml:"clickhouse"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML, fills defaults and validates.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	c.applyEnv()
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("ANALYTICS_URL"); v != "" {
		c.Analytics.BaseURL = v
	}
	if v := os.Getenv("STORAGE_BACKEND"); v != "" {
		c.Storage.Backend = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
	if c.Analytics.Timeout == 0 {
		c.Analytics.Timeout = 10 * time.Second
	}
	if c.Forecast.Steps == 0 {
		c.Forecast.Steps = 5
	}
	if c.Forecast.Step == 0 {
		c.Forecast.Step = time.Hour
	}
	if c.Forecast.BoardTTL == 0 {
		c.Forecast.BoardTTL = 2 * time.Hour
	}
	if c.Forecast.AICacheTTL == 0 {
		c.Forecast.AICacheTTL = 5 * time.Minute
	}
	if c.Forecast.OpenWait == 0 {
		c.Forecast.OpenWait = 3 * time.Second
	}
	if c.Forecast.RefreshCron == "" {
		c.Forecast.RefreshCron = "@every 5m"
	}
	if c.Forecast.SubmitPerMin == 0 {
		c.Forecast.SubmitPerMin = 30
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = StorageMemory
	}
	if c.Redis.DialTimeout == 0 {
		c.Redis.DialTimeout = 5 * time.Second
	}
	if c.Kafka.SubmissionsTopic == "" {
		c.Kafka.SubmissionsTopic = "forecast.submitted"
	}
	if c.Kafka.ActualTopic == "" {
		c.Kafka.ActualTopic = "candles.actual"
	}
	if c.Kafka.GroupID == "" {
		c.Kafka.GroupID = "finrisk"
	}
	if c.Queue.Prefix == "" {
		c.Queue.Prefix = "finrisk:queue"
	}
	if c.Queue.Workers == 0 {
		c.Queue.Workers = 2
	}
	if c.Queue.RetryLimit == 0 {
		c.Queue.RetryLimit = 3
	}
	if c.Queue.RetryDelay == 0 {
		c.Queue.RetryDelay = 10 * time.Second
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Analytics.BaseURL == "" {
		return fmt.Errorf("analytics.base_url is required")
	}
	if c.Forecast.Steps < 1 {
		return fmt.Errorf("forecast.steps must be >= 1, got %d", c.Forecast.Steps)
	}
	switch c.Storage.Backend {
	case StorageMemory, StorageRedis, StorageClickHouse:
	default:
		return fmt.Errorf("storage.backend must be 'memory', 'redis' or 'clickhouse', got '%s'", c.Storage.Backend)
	}
	if c.Storage.Backend == StorageRedis && c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required for redis storage")
	}
	if c.Storage.Backend == StorageClickHouse && c.ClickHouse.Host == "" {
		return fmt.Errorf("clickhouse.host is required for clickhouse storage")
	}
	if c.Queue.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required when the queue is enabled")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	return nil
}
