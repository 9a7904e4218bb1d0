package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"

	EventsLog   = "log"
	EventsRedis = "redis"
	EventsKafka = "kafka"
	EventsNone  = "none"
)

type Config struct {
	Database   DatabaseConfig `mapstructure:"database"`
	Defaults   DefaultsConfig `mapstructure:"defaults"`
	Ledger     LedgerConfig   `mapstructure:"ledger"`
	Events     EventsConfig   `mapstructure:"events"`
	Log        LogConfig      `mapstructure:"log"`
	Metrics    MetricsConfig  `mapstructure:"metrics"`
	ConfigPath string         `mapstructure:"-"`
}

type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"`
	Path     string `mapstructure:"path"`
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"max_conns"`
}

type DefaultsConfig struct {
	Currency string `mapstructure:"currency"`
}

type LedgerConfig struct {
	ReferencePrefix string        `mapstructure:"reference_prefix"`
	MaxRetries      int           `mapstructure:"max_retries"`
	RetryBackoff    time.Duration `mapstructure:"retry_backoff"`
	MaxDescription  int           `mapstructure:"max_description"`
}

type EventsConfig struct {
	Driver       string        `mapstructure:"driver"`
	QueueSize    int           `mapstructure:"queue_size"`
	MaxAttempts  int           `mapstructure:"max_attempts"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
	Redis        RedisConfig   `mapstructure:"redis"`
	Kafka        KafkaConfig   `mapstructure:"kafka"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Channel  string `mapstructure:"channel"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// MetricsConfig enables writing ledger metrics to a node_exporter textfile
// when the process exits. Empty disables it.
type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"`
}

func NewDefault() *Config {
	return &Config{
		Database: DatabaseConfig{Driver: DriverSQLite, Path: "", MaxConns: 10},
		Defaults: DefaultsConfig{Currency: "USD"},
		Ledger: LedgerConfig{
			ReferencePrefix: "PSZ",
			MaxRetries:      3,
			RetryBackoff:    20 * time.Millisecond,
			MaxDescription:  255,
		},
		Events: EventsConfig{
			Driver:       EventsLog,
			QueueSize:    256,
			MaxAttempts:  3,
			RetryBackoff: 100 * time.Millisecond,
			Redis:        RedisConfig{Addr: "localhost:6379", Channel: "transaction_events"},
			Kafka:        KafkaConfig{Brokers: []string{"localhost:9092"}, Topic: "purse.transactions"},
		},
		Log: LogConfig{Level: "warn", Format: "console", Output: "stderr"},
	}
}

// SetDefaults registers every key with viper so environment variables can
// override keys that are missing from the config file.
func SetDefaults(v *viper.Viper) {
	d := NewDefault()

	v.SetDefault("database.driver", d.Database.Driver)
	v.SetDefault("database.path", d.Database.Path)
	v.SetDefault("database.dsn", d.Database.DSN)
	v.SetDefault("database.max_conns", d.Database.MaxConns)
	v.SetDefault("defaults.currency", "")

	v.SetDefault("ledger.reference_prefix", d.Ledger.ReferencePrefix)
	v.SetDefault("ledger.max_retries", d.Ledger.MaxRetries)
	v.SetDefault("ledger.retry_backoff", d.Ledger.RetryBackoff)
	v.SetDefault("ledger.max_description", d.Ledger.MaxDescription)

	v.SetDefault("events.driver", d.Events.Driver)
	v.SetDefault("events.queue_size", d.Events.QueueSize)
	v.SetDefault("events.max_attempts", d.Events.MaxAttempts)
	v.SetDefault("events.retry_backoff", d.Events.RetryBackoff)
	v.SetDefault("events.redis.addr", d.Events.Redis.Addr)
	v.SetDefault("events.redis.password", d.Events.Redis.Password)
	v.SetDefault("events.redis.db", d.Events.Redis.DB)
	v.SetDefault("events.redis.channel", d.Events.Redis.Channel)
	v.SetDefault("events.kafka.brokers", d.Events.Kafka.Brokers)
	v.SetDefault("events.kafka.topic", d.Events.Kafka.Topic)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.output", d.Log.Output)

	v.SetDefault("metrics.textfile", d.Metrics.Textfile)
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverSQLite, DriverMemory:
	case DriverPostgres:
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required when database.driver is %s", DriverPostgres)
		}
	default:
		return fmt.Errorf("unknown database.driver '%s' (must be sqlite, postgres or memory)", c.Database.Driver)
	}

	switch c.Events.Driver {
	case EventsLog, EventsNone:
	case EventsRedis:
		if c.Events.Redis.Addr == "" {
			return fmt.Errorf("events.redis.addr is required when events.driver is %s", EventsRedis)
		}
	case EventsKafka:
		if len(c.Events.Kafka.Brokers) == 0 || c.Events.Kafka.Topic == "" {
			return fmt.Errorf("events.kafka.brokers and events.kafka.topic are required when events.driver is %s", EventsKafka)
		}
	default:
		return fmt.Errorf("unknown events.driver '%s' (must be log, redis, kafka or none)", c.Events.Driver)
	}

	if c.Ledger.MaxRetries < 0 {
		return fmt.Errorf("ledger.max_retries can't be negative")
	}

	if strings.ContainsAny(c.Ledger.ReferencePrefix, "- ") {
		return fmt.Errorf("ledger.reference_prefix '%s' must not contain '-' or spaces", c.Ledger.ReferencePrefix)
	}

	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid log.level: %w", err)
	}

	if c.Log.Format != "console" && c.Log.Format != "json" {
		return fmt.Errorf("unknown log.format '%s' (must be console or json)", c.Log.Format)
	}
	return nil
}
