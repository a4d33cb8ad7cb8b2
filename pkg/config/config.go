package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Race struct {
		Track     string  `yaml:"track"`
		TotalLaps int     `yaml:"total_laps"`
		PitLoss   float64 `yaml:"pit_loss"` // seconds lost to a stop at this track
	} `yaml:"race"`
	Estimator struct {
		Lambda       float64 `yaml:"lambda"`         // forgetting factor
		OutlierSigma float64 `yaml:"outlier_sigma"`  // rejection threshold in stdevs
		MinCleanLaps int     `yaml:"min_clean_laps"` // laps before estimates are served
		TrafficGap   float64 `yaml:"traffic_gap"`    // seconds; closer than this is traffic
	} `yaml:"estimator"`
	Simulation struct {
		Trials        int           `yaml:"trials"`
		Workers       int           `yaml:"workers"`
		Timeout       time.Duration `yaml:"timeout"`
		SCProbability float64       `yaml:"sc_probability"`
	} `yaml:"simulation"`
	Feed struct {
		APIKey         string        `yaml:"api_key"`
		RestURL        string        `yaml:"rest_url"` // optional session metadata endpoint
		WebSocketURL   string        `yaml:"websocket_url"`
		SessionID      string        `yaml:"session_id"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay"`
		PingInterval   time.Duration `yaml:"ping_interval"`
	} `yaml:"feed"`
	Kafka struct {
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic"`      // recommendations out
		LapsTopic    string   `yaml:"laps_topic"` // lap records in, optional
		RequiredAcks int      `yaml:"required_acks"`
		Compression  string   `yaml:"compression"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id"`
			Workers    int           `yaml:"workers"`
			BufferSize int           `yaml:"buffer_size"`
			RetryMax   int           `yaml:"retry_max"`
			BackoffMin time.Duration `yaml:"backoff_min"`
			BackoffMax time.Duration `yaml:"backoff_max"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes"`
			MaxBytes   int           `yaml:"max_bytes"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		WriteTimeout     time.Duration `yaml:"write_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

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
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("FEED_API_KEY"); v != "" {
		c.Feed.APIKey = v
	}
	if v := os.Getenv("FEED_SESSION_ID"); v != "" {
		c.Feed.SessionID = v
	}
	if v := os.Getenv("FEED_REST_URL"); v != "" {
		c.Feed.RestURL = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}

	return c, nil
}

func (c *Config) applyDefaults() {
	if c.Estimator.Lambda == 0 {
		c.Estimator.Lambda = 0.97
	}
	if c.Estimator.OutlierSigma == 0 {
		c.Estimator.OutlierSigma = 2.0
	}
	if c.Estimator.MinCleanLaps == 0 {
		c.Estimator.MinCleanLaps = 5
	}
	if c.Estimator.TrafficGap == 0 {
		c.Estimator.TrafficGap = 1.0
	}
	if c.Simulation.Trials == 0 {
		c.Simulation.Trials = 500
	}
	if c.Simulation.Timeout == 0 {
		c.Simulation.Timeout = 5 * time.Second
	}
	if c.Race.PitLoss == 0 {
		c.Race.PitLoss = 22.0
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Race.TotalLaps <= 0 {
		return fmt.Errorf("race.total_laps must be positive")
	}
	if c.Race.PitLoss <= 0 {
		return fmt.Errorf("race.pit_loss must be positive")
	}
	if c.Estimator.Lambda <= 0 || c.Estimator.Lambda > 1 {
		return fmt.Errorf("estimator.lambda must be in (0, 1], got %v", c.Estimator.Lambda)
	}
	if c.Estimator.OutlierSigma <= 0 {
		return fmt.Errorf("estimator.outlier_sigma must be positive")
	}
	if c.Feed.WebSocketURL != "" && c.Feed.APIKey == "" {
		return fmt.Errorf("feed.api_key is required when feed.websocket_url is set")
	}
	if c.Simulation.SCProbability < 0 || c.Simulation.SCProbability > 1 {
		return fmt.Errorf("simulation.sc_probability must be in [0, 1]")
	}
	return nil
}
