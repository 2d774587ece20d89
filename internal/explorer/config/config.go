package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/gartstein/visaexplorer/internal/explorer/db"
	"github.com/spf13/viper"
)

// DefaultPath is used when CONFIG_PATH is not set.
var DefaultPath = filepath.Join("internal", "explorer", "config", "config.yaml")

// Config holds every setting of the explorer service. Keys match the YAML
// file and the environment variables that override it.
type Config struct {
	HTTPPort int `mapstructure:"HTTP_PORT"`

	DBDriver          string        `mapstructure:"DB_DRIVER"`
	DBHost            string        `mapstructure:"DB_HOST"`
	DBPort            int           `mapstructure:"DB_PORT"`
	DBUser            string        `mapstructure:"DB_USER"`
	DBPassword        string        `mapstructure:"DB_PASSWORD"`
	DBName            string        `mapstructure:"DB_NAME"`
	DBSSLMode         string        `mapstructure:"DB_SSLMODE"`
	DBMaxOpenConns    int           `mapstructure:"DB_MAX_OPEN_CONNS"`
	DBMaxIdleConns    int           `mapstructure:"DB_MAX_IDLE_CONNS"`
	DBConnMaxLifetime time.Duration `mapstructure:"DB_CONN_MAX_LIFETIME"`
	QueryTimeout      time.Duration `mapstructure:"QUERY_TIMEOUT"`

	SearchURL      string `mapstructure:"SEARCH_URL"`
	SearchAPIKey   string `mapstructure:"SEARCH_API_KEY"`
	SearchIndex    string `mapstructure:"SEARCH_INDEX"`
	SearchPipeline string `mapstructure:"SEARCH_PIPELINE"`

	RedisURL string        `mapstructure:"REDIS_URL"`
	CacheTTL time.Duration `mapstructure:"CACHE_TTL"`

	KafkaBrokers []string `mapstructure:"KAFKA_BROKERS"`
	Topic        string   `mapstructure:"TOPIC"`
	IngestTopic  string   `mapstructure:"INGEST_TOPIC"`
	KafkaGroupID string   `mapstructure:"KAFKA_GROUP_ID"`

	ReindexSchedule string `mapstructure:"REINDEX_SCHEDULE"`
	JWTSecret       string `mapstructure:"JWT_SECRET"`
}

var defaults = map[string]interface{}{
	"HTTP_PORT":            8080,
	"DB_DRIVER":            "mysql",
	"DB_HOST":              "localhost",
	"DB_PORT":              3306,
	"DB_USER":              "",
	"DB_PASSWORD":          "",
	"DB_NAME":              "visa",
	"DB_SSLMODE":           "disable",
	"DB_MAX_OPEN_CONNS":    10,
	"DB_MAX_IDLE_CONNS":    5,
	"DB_CONN_MAX_LIFETIME": "30m",
	"QUERY_TIMEOUT":        "30s",
	"SEARCH_URL":           "",
	"SEARCH_API_KEY":       "",
	"SEARCH_INDEX":         "search-company",
	"SEARCH_PIPELINE":      "ent-search-generic-ingestion",
	"REDIS_URL":            "",
	"CACHE_TTL":            "10m",
	"KAFKA_BROKERS":        []string{},
	"TOPIC":                "explorer-events",
	"INGEST_TOPIC":         "",
	"KAFKA_GROUP_ID":       "visa-explorer",
	"REINDEX_SCHEDULE":     "",
	"JWT_SECRET":           "",
}

// Load reads the YAML file at CONFIG_PATH (or DefaultPath) and applies
// environment overrides. A missing default file is not an error; a missing
// explicit CONFIG_PATH is.
func Load() (*Config, error) {
	path, explicit := os.LookupEnv("CONFIG_PATH")
	if !explicit || path == "" {
		path, explicit = DefaultPath, false
	}
	return load(path, explicit)
}

func load(path string, required bool) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		if required || !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.DBDriver {
	case "mysql", "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	if c.HTTPPort <= 0 {
		return fmt.Errorf("invalid HTTP_PORT %d", c.HTTPPort)
	}
	if c.QueryTimeout < 0 || c.CacheTTL < 0 || c.DBConnMaxLifetime < 0 {
		return errors.New("durations must not be negative")
	}
	if c.IngestTopic != "" && len(c.KafkaBrokers) == 0 {
		return errors.New("INGEST_TOPIC requires KAFKA_BROKERS")
	}
	return nil
}

func (c *Config) SearchEnabled() bool { return c.SearchURL != "" }

func (c *Config) CacheEnabled() bool { return c.RedisURL != "" }

func (c *Config) EventsEnabled() bool { return len(c.KafkaBrokers) > 0 }

func (c *Config) ConsumerEnabled() bool { return c.EventsEnabled() && c.IngestTopic != "" }

func (c *Config) AuthEnabled() bool { return c.JWTSecret != "" }

// Database returns the connection settings of the dataset store.
func (c *Config) Database() *db.Config {
	return &db.Config{
		Driver:          c.DBDriver,
		Host:            c.DBHost,
		Port:            c.DBPort,
		User:            c.DBUser,
		Password:        c.DBPassword,
		DBName:          c.DBName,
		SSLMode:         c.DBSSLMode,
		MaxOpenConns:    c.DBMaxOpenConns,
		MaxIdleConns:    c.DBMaxIdleConns,
		ConnMaxLifetime: c.DBConnMaxLifetime,
	}
}
