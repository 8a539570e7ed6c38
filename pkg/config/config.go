package config

import (
	"fmt"
	"os"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"
)

// Backend names accepted by the selectable sections.
const (
	BackendNone       = "none"
	BackendMemory     = "memory"
	BackendRedis      = "redis"
	BackendLayered    = "layered"
	BackendSQLite     = "sqlite"
	BackendClickHouse = "clickhouse"
	BackendKafka      = "kafka"
	BackendHTTP       = "http"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Server     ServerConfig     `yaml:"server"`
	Logger     LoggerConfig     `yaml:"logger"`
	Redis      RedisConfig      `yaml:"redis"`
	ClickHouse ClickHouseConfig `yaml:"clickhouse"`
	SQLite     SQLiteConfig     `yaml:"sqlite"`
	Kafka      KafkaConfig      `yaml:"kafka"`
	History    HistoryConfig    `yaml:"history"`
	Analytics  AnalyticsConfig  `yaml:"analytics"`
	Engine     EngineConfig     `yaml:"engine"`
	Model      ModelConfig      `yaml:"model"`
	Queue      QueueConfig      `yaml:"queue"`
	Events     EventsConfig     `yaml:"events"`
	Cache      CacheConfig      `yaml:"cache"`
}

type AppConfig struct {
	Name        string `yaml:"name" default:"loadcoach"`
	Environment string `yaml:"environment" default:"development"`
}

type ServerConfig struct {
	Host            string          `yaml:"host" default:"0.0.0.0"`
	Port            int             `yaml:"port" default:"8080"`
	ReadTimeout     time.Duration   `yaml:"read_timeout" default:"10s"`
	WriteTimeout    time.Duration   `yaml:"write_timeout" default:"60s"`
	ShutdownTimeout time.Duration   `yaml:"shutdown_timeout" default:"15s"`
	CORS            bool            `yaml:"cors" default:"true"`
	MetricsPath     string          `yaml:"metrics_path" default:"/metrics"`
	RateLimit       RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig bounds training requests per user.
type RateLimitConfig struct {
	TrainBurst     float64 `yaml:"train_burst" default:"3"`
	TrainPerMinute float64 `yaml:"train_per_minute" default:"1"`
}

type LoggerConfig struct {
	Level  string `yaml:"level" default:"info"`
	Format string `yaml:"format" default:"json"`
	Output string `yaml:"output" default:"stdout"`
}

type RedisConfig struct {
	Host         string        `yaml:"host" default:"localhost"`
	Port         int           `yaml:"port" default:"6379"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	PoolSize     int           `yaml:"pool_size" default:"20"`
	MinIdleConns int           `yaml:"min_idle_conns" default:"5"`
	Timeout      time.Duration `yaml:"timeout" default:"3s"`
	Prefix       string        `yaml:"prefix" default:"loadcoach"`
}

type ClickHouseConfig struct {
	Host             string        `yaml:"host" default:"localhost"`
	Port             int           `yaml:"port" default:"9000"`
	Database         string        `yaml:"database" default:"loadcoach"`
	User             string        `yaml:"user" default:"default"`
	Password         string        `yaml:"password"`
	UseHTTP          bool          `yaml:"use_http"`
	AsyncInsert      bool          `yaml:"async_insert" default:"true"`
	WaitForAsync     bool          `yaml:"wait_for_async_insert"`
	InitSchema       bool          `yaml:"init_schema" default:"true"`
	MaxOpenConns     int           `yaml:"max_open_conns" default:"10"`
	MaxIdleConns     int           `yaml:"max_idle_conns" default:"5"`
	DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
	ReadTimeout      time.Duration `yaml:"read_timeout" default:"10s"`
	WriteTimeout     time.Duration `yaml:"write_timeout" default:"10s"`
	MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"30s"`
}

type SQLiteConfig struct {
	Path string `yaml:"path" default:"loadcoach.db"`
}

type KafkaConfig struct {
	Brokers      []string `yaml:"brokers" default:"[\"localhost:9092\"]"`
	RequiredAcks int      `yaml:"required_acks" default:"-1"`
	Compression  string   `yaml:"compression" default:"snappy"`
	Producer     struct {
		BatchSize    int           `yaml:"batch_size" default:"100"`
		BatchTimeout time.Duration `yaml:"batch_timeout" default:"1s"`
		Async        bool          `yaml:"async"`
	} `yaml:"producer"`
	Consumer struct {
		GroupID    string        `yaml:"group_id" default:"loadcoach"`
		Workers    int           `yaml:"workers" default:"4"`
		RetryMax   int           `yaml:"retry_max" default:"3"`
		BackoffMin time.Duration `yaml:"backoff_min" default:"200ms"`
		BackoffMax time.Duration `yaml:"backoff_max" default:"5s"`
		DLQTopic   string        `yaml:"dlq_topic" default:"workouts.completed.dlq"`
	} `yaml:"consumer"`
}

// HistoryConfig selects where completed sessions are read from.
type HistoryConfig struct {
	Backend      string        `yaml:"backend" default:"sqlite"`
	BaseURL      string        `yaml:"base_url"`
	Token        string        `yaml:"token"`
	Timeout      time.Duration `yaml:"timeout" default:"3s"`
	Attempts     int           `yaml:"attempts" default:"3"`
	LookbackDays int           `yaml:"lookback_days" default:"30"`
	ChronicTau   float64       `yaml:"chronic_tau" default:"42"`
	AcuteTau     float64       `yaml:"acute_tau" default:"7"`
	Breaker      struct {
		FailureThreshold uint32        `yaml:"failure_threshold" default:"5"`
		MaxRequests      uint32        `yaml:"max_requests" default:"1"`
		Interval         time.Duration `yaml:"interval" default:"1m"`
		Timeout          time.Duration `yaml:"timeout" default:"30s"`
	} `yaml:"breaker"`
}

// AnalyticsConfig selects the sink for recommendation events.
type AnalyticsConfig struct {
	Backend       string        `yaml:"backend" default:"none"`
	Topic         string        `yaml:"topic" default:"recommendations.generated"`
	BufferSize    int           `yaml:"buffer_size" default:"1000"`
	BatchSize     int           `yaml:"batch_size" default:"100"`
	FlushInterval time.Duration `yaml:"flush_interval" default:"2s"`
	MaxRetries    int           `yaml:"max_retries" default:"3"`
}

type EngineConfig struct {
	MinDataPoints         int     `yaml:"min_data_points" default:"5"`
	NewUserThresholdDays  int     `yaml:"new_user_threshold_days" default:"14"`
	FallbackEasy          float64 `yaml:"fallback_easy" default:"75"`
	FallbackModerate      float64 `yaml:"fallback_moderate" default:"150"`
	FallbackHard          float64 `yaml:"fallback_hard" default:"250"`
	MaxBalanceForHard     float64 `yaml:"max_balance_for_hard" default:"-15"`
	MinBalanceForRecovery float64 `yaml:"min_balance_for_recovery" default:"-25"`
	DetrainingCeiling     float64 `yaml:"detraining_ceiling" default:"50"`
}

type ModelConfig struct {
	Store            string        `yaml:"store" default:"sqlite"`
	WindowDays       int           `yaml:"window_days" default:"365"`
	ForestMinSamples int           `yaml:"forest_min_samples" default:"50"`
	BatchWorkers     int           `yaml:"batch_workers" default:"4"`
	LockTTL          time.Duration `yaml:"lock_ttl" default:"10m"`
	HydrateInterval  time.Duration `yaml:"hydrate_interval" default:"1m"`
	Ridge            float64       `yaml:"ridge" default:"0.1"`
	Trees            int           `yaml:"trees" default:"100"`
	MaxDepth         int           `yaml:"max_depth" default:"10"`
	Seed             int64         `yaml:"seed" default:"42"`
}

type QueueConfig struct {
	Backend    string        `yaml:"backend" default:"memory"`
	Workers    int           `yaml:"workers" default:"2"`
	QueueSize  int           `yaml:"queue_size" default:"1000"`
	RetryLimit int           `yaml:"retry_limit" default:"3"`
	RetryDelay time.Duration `yaml:"retry_delay" default:"30s"`
	KeyPrefix  string        `yaml:"key_prefix" default:"loadcoach:queue"`
}

// EventsConfig controls the workouts.completed consumer.
type EventsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Topic   string `yaml:"topic" default:"workouts.completed"`
}

type CacheConfig struct {
	Backend         string        `yaml:"backend" default:"memory"`
	TTL             time.Duration `yaml:"ttl" default:"1h"`
	MemoryMaxSize   int           `yaml:"memory_max_size" default:"10000"`
	CleanupInterval time.Duration `yaml:"cleanup_interval" default:"5m"`
	L1TTL           time.Duration `yaml:"l1_ttl" default:"1m"`
}

// Default returns a configuration populated from the default tags.
func Default() (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	return &c, nil
}

// Load reads and parses a YAML configuration file on top of the defaults.
// An empty path yields the defaults.
func Load(path string) (*Config, error) {
	c, err := Default()
	if err != nil {
		return nil, err
	}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, c); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads config from YAML and overrides it with LOADCOACH_*
// environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := c.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in 1..65535, got %d", c.Server.Port)
	}
	if err := oneOf("history.backend", c.History.Backend, BackendSQLite, BackendClickHouse, BackendHTTP); err != nil {
		return err
	}
	if c.History.Backend == BackendHTTP && c.History.BaseURL == "" {
		return fmt.Errorf("history.base_url is required for the http backend")
	}
	if err := oneOf("analytics.backend", c.Analytics.Backend, BackendNone, BackendSQLite, BackendClickHouse, BackendKafka); err != nil {
		return err
	}
	if err := oneOf("cache.backend", c.Cache.Backend, BackendMemory, BackendRedis, BackendLayered); err != nil {
		return err
	}
	if err := oneOf("model.store", c.Model.Store, BackendNone, BackendSQLite, BackendRedis); err != nil {
		return err
	}
	if err := oneOf("queue.backend", c.Queue.Backend, BackendMemory, BackendRedis); err != nil {
		return err
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be positive")
	}
	if c.Engine.MinDataPoints < 1 {
		return fmt.Errorf("engine.min_data_points must be at least 1")
	}
	if !(c.Engine.FallbackEasy <= c.Engine.FallbackModerate && c.Engine.FallbackModerate <= c.Engine.FallbackHard) {
		return fmt.Errorf("engine fallback levels must satisfy easy <= moderate <= hard")
	}
	if c.History.ChronicTau <= c.History.AcuteTau || c.History.AcuteTau <= 0 {
		return fmt.Errorf("history time constants must satisfy 0 < acute_tau < chronic_tau")
	}
	if c.Model.WindowDays < 30 {
		return fmt.Errorf("model.window_days must be at least 30, got %d", c.Model.WindowDays)
	}
	if (c.Events.Enabled || c.Analytics.Backend == BackendKafka) && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is used")
	}
	return nil
}

// UsesRedis reports whether any component needs a Redis connection.
func (c *Config) UsesRedis() bool {
	return c.Cache.Backend != BackendMemory || c.Model.Store == BackendRedis || c.Queue.Backend == BackendRedis
}

// UsesClickHouse reports whether any component needs a ClickHouse connection.
func (c *Config) UsesClickHouse() bool {
	return c.History.Backend == BackendClickHouse || c.Analytics.Backend == BackendClickHouse
}

// UsesSQLite reports whether any component needs the embedded database.
func (c *Config) UsesSQLite() bool {
	return c.History.Backend == BackendSQLite || c.Analytics.Backend == BackendSQLite || c.Model.Store == BackendSQLite
}

func oneOf(field, v string, allowed ...string) error {
	for _, a := range allowed {
		if v == a {
			return nil
		}
	}
	return fmt.Errorf("%s must be one of %v, got %q", field, allowed, v)
}
