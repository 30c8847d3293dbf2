package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/emrgen/aphorium/internal/compress"
	"github.com/emrgen/aphorium/internal/lock"
	"github.com/emrgen/aphorium/internal/model"
	"github.com/emrgen/aphorium/internal/queue"
	"github.com/emrgen/aphorium/internal/service"
	"github.com/emrgen/aphorium/internal/similarity"
	_ "github.com/joho/godotenv/autoload"
	"github.com/robfig/cron"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const (
	envPrefix  = "APHORIUM"
	configName = "aphorium"

	LockLocal = "local"
	LockRedis = "redis"

	QueueNop   = "nop"
	QueueKafka = "kafka"
)

type Config struct {
	LogLevel  string   `mapstructure:"log_level"`
	Languages []string `mapstructure:"languages"`

	Database    DatabaseConfig       `mapstructure:"database"`
	Similarity  similarity.Config    `mapstructure:"similarity"`
	Linker      service.LinkerConfig `mapstructure:"linker"`
	Lock        LockConfig           `mapstructure:"lock"`
	Queue       QueueConfig          `mapstructure:"queue"`
	Compression string               `mapstructure:"compression"`
	Schedule    ScheduleConfig       `mapstructure:"schedule"`
}

type DatabaseConfig struct {
	// DSN is a postgres connection string or a sqlite file path.
	DSN string `mapstructure:"dsn"`
	// LogSQL logs every statement at info level.
	LogSQL bool `mapstructure:"log_sql"`
}

type LockConfig struct {
	Driver string           `mapstructure:"driver"`
	Redis  lock.RedisConfig `mapstructure:"redis"`
}

type QueueConfig struct {
	Driver string            `mapstructure:"driver"`
	Kafka  queue.KafkaConfig `mapstructure:"kafka"`
}

// ScheduleConfig holds the cron specs of the scheduled passes. An empty spec
// disables the pass.
type ScheduleConfig struct {
	Dedup string `mapstructure:"dedup"`
	Link  string `mapstructure:"link"`
	Purge string `mapstructure:"purge"`
	// TombstoneRetention is how long merge tombstones are kept.
	TombstoneRetention time.Duration `mapstructure:"tombstone_retention"`
}

func defaults() map[string]any {
	linker := service.DefaultLinkerConfig()
	scorer := similarity.DefaultConfig()

	return map[string]any{
		"log_level": "info",
		"languages": []string{model.LanguageEN, model.LanguageRU},

		"database.dsn":     "aphorium.db",
		"database.log_sql": false,

		"similarity.token_threshold":      scorer.TokenThreshold,
		"similarity.fuzzy_threshold":      scorer.FuzzyThreshold,
		"similarity.min_length_for_fuzzy": scorer.MinLengthForFuzzy,
		"similarity.fuzzy_prefilter":      scorer.FuzzyPrefilter,

		"linker.language":                        linker.Language,
		"linker.counterpart":                     linker.Counterpart,
		"linker.workers":                         linker.Workers,
		"linker.materialize_confidence":          linker.MaterializeConfidence,
		"linker.pairing.min_shared_tokens":       linker.Pairing.MinSharedTokens,
		"linker.pairing.source_match_confidence": linker.Pairing.SourceMatchConfidence,
		"linker.pairing.token_match_confidence":  linker.Pairing.TokenMatchConfidence,

		"lock.driver":         LockLocal,
		"lock.redis.addr":     "localhost:6379",
		"lock.redis.password": "",
		"lock.redis.db":       0,
		"lock.redis.ttl":      time.Minute,
		"lock.redis.max_wait": 30 * time.Second,

		"queue.driver":        QueueNop,
		"queue.kafka.brokers": "",
		"queue.kafka.topic":   "aphorium.events",

		"compression": compress.NameGZip,

		"schedule.dedup":               "@every 6h",
		"schedule.link":                "@every 6h",
		"schedule.purge":               "@daily",
		"schedule.tombstone_retention": 30 * 24 * time.Hour,
	}
}

// Load reads the configuration from path, or from aphorium.yaml in the
// working directory when path is empty, then applies APHORIUM_* environment
// overrides. A missing aphorium.yaml is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults() {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName(configName)
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadConfig loads the default configuration and exits on failure.
func LoadConfig() *Config {
	cfg, err := Load("")
	if err != nil {
		logrus.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func (c *Config) Validate() error {
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if len(c.Languages) == 0 {
		return errors.New("at least one language is required")
	}
	if c.Database.DSN == "" {
		return errors.New("database dsn is required")
	}
	if err := c.Similarity.Validate(); err != nil {
		return err
	}
	if err := c.Linker.Validate(); err != nil {
		return err
	}

	switch c.Lock.Driver {
	case LockLocal:
	case LockRedis:
		if c.Lock.Redis.Addr == "" {
			return errors.New("lock.redis.addr is required for the redis lock")
		}
	default:
		return fmt.Errorf("unknown lock driver %q", c.Lock.Driver)
	}

	switch c.Queue.Driver {
	case QueueNop:
	case QueueKafka:
		if c.Queue.Kafka.Brokers == "" || c.Queue.Kafka.Topic == "" {
			return errors.New("queue.kafka.brokers and queue.kafka.topic are required for the kafka queue")
		}
	default:
		return fmt.Errorf("unknown queue driver %q", c.Queue.Driver)
	}

	if _, err := compress.New(c.Compression); err != nil {
		return err
	}

	for name, spec := range map[string]string{
		"dedup": c.Schedule.Dedup,
		"link":  c.Schedule.Link,
		"purge": c.Schedule.Purge,
	} {
		if spec == "" {
			continue
		}
		if _, err := cron.Parse(spec); err != nil {
			return fmt.Errorf("schedule.%s: %w", name, err)
		}
	}
	if c.Schedule.TombstoneRetention < 0 {
		return errors.New("schedule.tombstone_retention cannot be negative")
	}

	return nil
}

// SetupLogging applies the configured log level to the standard logrus logger.
func SetupLogging(cfg *Config) {
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
}
