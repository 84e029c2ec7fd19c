package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfiguration is returned for any configuration that must stop startup.
var ErrInvalidConfiguration = errors.New("invalid configuration")

var validate = validator.New()

type Config struct {
	Environment string `yaml:"environment" default:"development" validate:"required"`
	Log         struct {
		Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
		Format string `yaml:"format" default:"console" validate:"oneof=json console"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"log"`
	Server struct {
		Port            int           `yaml:"port" default:"8080" validate:"gt=0,lte=65535"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"30s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		CORS            bool          `yaml:"cors" default:"true"`
		RateLimit       struct {
			RPS   float64 `yaml:"rps" default:"20"`
			Burst int     `yaml:"burst" default:"40"`
		} `yaml:"rate_limit"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Run struct {
		Workers      int           `yaml:"workers" default:"8" validate:"gte=1,lte=256"`
		Bars         int           `yaml:"bars" default:"120" validate:"gte=60"`
		IndexSymbol  string        `yaml:"index_symbol" default:"NIFTY50"`
		VIXSymbol    string        `yaml:"vix_symbol" default:"INDIAVIX"`
		SnapshotTTL  time.Duration `yaml:"snapshot_ttl" default:"15m"`
		FetchTimeout time.Duration `yaml:"fetch_timeout" default:"20s"`
		Timezone     string        `yaml:"timezone" default:"Asia/Kolkata"`
		// SectorIndices maps a sector name to the index symbol tracking it.
		SectorIndices map[string]string `yaml:"sector_indices"`
		// Schedule is a cron expression for the watchlist run; empty disables it.
		Schedule  string      `yaml:"schedule"`
		Watchlist []WatchItem `yaml:"watchlist" validate:"dive"`
	} `yaml:"run"`
	Kafka struct {
		Enabled        bool     `yaml:"enabled"`
		Brokers        []string `yaml:"brokers"`
		RequestsTopic  string   `yaml:"requests_topic" default:"rebound.requests"`
		DecisionsTopic string   `yaml:"decisions_topic" default:"rebound.decisions"`
		RequiredAcks   int      `yaml:"required_acks" default:"-1"`
		Compression    string   `yaml:"compression" default:"gzip" validate:"oneof=gzip snappy lz4 zstd"`
		Producer       struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			Linger       time.Duration `yaml:"linger" default:"100ms"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id" default:"rebound-engine"`
			Workers    int           `yaml:"workers" default:"2"`
			BufferSize int           `yaml:"buffer_size" default:"16"`
			RetryMax   int           `yaml:"retry_max" default:"3"`
			BackoffMin time.Duration `yaml:"backoff_min" default:"50ms"`
			BackoffMax time.Duration `yaml:"backoff_max" default:"2s"`
			DLQTopic   string        `yaml:"dlq_topic" default:"rebound.requests.dlq"`
			MinBytes   int           `yaml:"min_bytes" default:"1"`
			MaxBytes   int           `yaml:"max_bytes" default:"10000000"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Enabled          bool          `yaml:"enabled"`
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"rebound"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout     time.Duration `yaml:"write_timeout" default:"10s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"30s"`
	} `yaml:"clickhouse"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Addr     string `yaml:"addr" default:"localhost:6379"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Quotes struct {
		Enabled        bool          `yaml:"enabled"`
		WebSocketURL   string        `yaml:"websocket_url"`
		APIKey         string        `yaml:"api_key"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay" default:"5s"`
		PingInterval   time.Duration `yaml:"ping_interval" default:"20s"`
		MaxAge         time.Duration `yaml:"max_age" default:"2m"`
	} `yaml:"quotes"`
	Collaborators struct {
		AIBridgeURL string        `yaml:"ai_bridge_url"`
		Timeout     time.Duration `yaml:"timeout" default:"5s"`
		Retries     int           `yaml:"retries" default:"3"`
		Breaker     struct {
			MaxRequests      uint32        `yaml:"max_requests" default:"1"`
			Interval         time.Duration `yaml:"interval" default:"60s"`
			OpenTimeout      time.Duration `yaml:"open_timeout" default:"30s"`
			FailureThreshold uint32        `yaml:"failure_threshold" default:"5"`
		} `yaml:"breaker"`
		Supervisor string `yaml:"supervisor" default:"rules" validate:"oneof=none rules ai"`
	} `yaml:"collaborators"`
	Engine Engine `yaml:"engine"`
}

type WatchItem struct {
	Ticker    string  `yaml:"ticker" json:"ticker" validate:"required"`
	Sector    string  `yaml:"sector" json:"sector,omitempty"`
	BaseScore float64 `yaml:"base_score" json:"base_score" validate:"gte=0,lte=100"`
}

// Location resolves Run.Timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Run.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Default returns a configuration populated only from struct defaults.
func Default() *Config {
	var c Config
	if err := defaults.Set(&c); err != nil {
		panic(fmt.Sprintf("config defaults: %v", err))
	}
	return &c
}

// Load reads and parses a YAML configuration file.
// Defaults are applied first so that keys present in the file always win.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML bytes on top of the defaults and validates the result.
func Parse(b []byte) (*Config, error) {
	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
		c.Kafka.Enabled = true
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
		c.ClickHouse.Enabled = true
	}
	if v := os.Getenv("CLICKHOUSE_PASSWORD"); v != "" {
		c.ClickHouse.Password = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
		c.Redis.Enabled = true
	}
	if v := os.Getenv("QUOTES_API_KEY"); v != "" {
		c.Quotes.APIKey = v
	}
	if v := os.Getenv("AI_BRIDGE_URL"); v != "" {
		c.Collaborators.AIBridgeURL = v
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfiguration, err)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("%w: kafka.brokers cannot be empty when kafka is enabled", ErrInvalidConfiguration)
	}
	if c.Quotes.Enabled && c.Quotes.WebSocketURL == "" {
		return fmt.Errorf("%w: quotes.websocket_url is required when quotes are enabled", ErrInvalidConfiguration)
	}
	if c.Collaborators.Supervisor == "ai" && c.Collaborators.AIBridgeURL == "" {
		return fmt.Errorf("%w: collaborators.ai_bridge_url is required for the ai supervisor", ErrInvalidConfiguration)
	}
	if c.Run.Schedule != "" && len(c.Run.Watchlist) == 0 {
		return fmt.Errorf("%w: run.watchlist is required when run.schedule is set", ErrInvalidConfiguration)
	}
	if _, err := time.LoadLocation(c.Run.Timezone); err != nil {
		return fmt.Errorf("%w: run.timezone: %v", ErrInvalidConfiguration, err)
	}
	if err := c.Engine.Validate(); err != nil {
		return err
	}
	if c.Run.Bars < c.Engine.Correction.Lookback {
		return fmt.Errorf("%w: run.bars (%d) must cover engine.correction.lookback (%d)", ErrInvalidConfiguration, c.Run.Bars, c.Engine.Correction.Lookback)
	}
	return nil
}
