// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for the
// archive, the dataset sources, the categorizer, every result sink, the lookup
// server, logging and metrics.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Archive          ArchiveConfig     `yaml:"archive"`
	Sources          []SourceConfig    `yaml:"sources"`
	ReferenceSamples ReferenceConfig   `yaml:"referenceSamples"`
	Categorizer      CategorizerConfig `yaml:"categorizer"`
	Output           OutputConfig      `yaml:"output"`
	SQLite           SQLiteConfig      `yaml:"sqlite"`
	Postgres         PostgresConfig    `yaml:"postgres"`
	Kafka            KafkaConfig       `yaml:"kafka"`
	Redis            RedisConfig       `yaml:"redis"`
	Server           ServerConfig      `yaml:"server"`
	Logging          LoggingConfig     `yaml:"logging"`
	Metrics          MetricsConfig     `yaml:"metrics"`
}

// ArchiveConfig locates the compressed indexed FoodData archive.
type ArchiveConfig struct {
	Path string `yaml:"path"`
	// Cache enables the read-through record cache on top of the archive.
	Cache bool `yaml:"cache"`
}

// SourceConfig describes one FoodData Central JSON dataset and how to pull
// the fields the categorizer needs out of its entries.
type SourceConfig struct {
	Name     string `yaml:"name"`
	Path     string `yaml:"path"`
	ListName string `yaml:"listName"`
	// IDField names the entry field used as ingredient code, e.g. "foodCode".
	IDField string `yaml:"idField"`
	// CategoryPath is the chain of nested keys leading to the category
	// description, e.g. ["wweiaFoodCategory", "wweiaFoodCategoryDescription"].
	CategoryPath []string `yaml:"categoryPath"`
}

// ReferenceConfig locates the human-curated reference sample CSV.
type ReferenceConfig struct {
	Path   string `yaml:"path"`
	Create bool   `yaml:"create"`
}

// Food inputs a categorization run can read from.
const (
	InputArchive = "archive"
	InputSQLite  = "sqlite"
)

// CategorizerConfig controls the categorization run.
type CategorizerConfig struct {
	Workers int `yaml:"workers"`
	// Input selects the food source: "archive" (default) or "sqlite".
	Input string `yaml:"input"`
	// SampleSeed seeds the random choice of sample foods; 0 picks a new
	// seed every run.
	SampleSeed uint64 `yaml:"sampleSeed"`
}

// OutputConfig controls the generated VegAttributes JSON.
type OutputConfig struct {
	Path  string `yaml:"path"`
	Debug bool   `yaml:"debug"`
	// Samples is the number of random example foods logged per category.
	Samples int `yaml:"samples"`
}

// SQLiteConfig points at the optional food_data.db produced by the schema
// script. When set, categories are written back into its Food table.
type SQLiteConfig struct {
	Path    string `yaml:"path"`
	Enabled bool   `yaml:"enabled"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Enabled       bool        `yaml:"enabled"`
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	BatchSize     int         `yaml:"batchSize"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	FoodCategorized string `yaml:"foodCategorized"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	TTL      time.Duration `yaml:"ttl"`
}

// ServerConfig holds lookup server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	MaxListResults  int           `yaml:"maxListResults"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with defaults for any missing
// values.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings that would otherwise fail deep inside a run.
func (c *Config) Validate() error {
	if c.Archive.Path == "" {
		return fmt.Errorf("archive.path must be set")
	}
	if c.Categorizer.Workers < 1 {
		return fmt.Errorf("categorizer.workers must be positive, got %d", c.Categorizer.Workers)
	}
	switch c.Categorizer.Input {
	case InputArchive, InputSQLite:
	default:
		return fmt.Errorf("categorizer.input must be %q or %q, got %q", InputArchive, InputSQLite, c.Categorizer.Input)
	}
	seen := make(map[string]struct{}, len(c.Sources))
	for i, s := range c.Sources {
		if s.Name == "" || s.ListName == "" || s.IDField == "" {
			return fmt.Errorf("sources[%d]: name, listName and idField are required", i)
		}
		if _, dup := seen[s.Name]; dup {
			return fmt.Errorf("sources[%d]: duplicate source name %q", i, s.Name)
		}
		seen[s.Name] = struct{}{}
	}
	return nil
}

// DefaultSources returns the three FoodData Central datasets the categorizer
// was built around: FNDDS survey foods, SR Legacy and Foundation Foods.
func DefaultSources() []SourceConfig {
	return []SourceConfig{
		{
			Name:         "survey",
			Path:         "FoodData_Central_survey_food_json_2022-10-28.json",
			ListName:     "SurveyFoods",
			IDField:      "foodCode",
			CategoryPath: []string{"wweiaFoodCategory", "wweiaFoodCategoryDescription"},
		},
		{
			Name:         "sr_legacy",
			Path:         "FoodData_Central_sr_legacy_food_json_2021-10-28.json",
			ListName:     "SRLegacyFoods",
			IDField:      "ndbNumber",
			CategoryPath: []string{"foodCategory", "description"},
		},
		{
			Name:         "foundation",
			Path:         "foundationDownload.json",
			ListName:     "FoundationFoods",
			IDField:      "ndbNumber",
			CategoryPath: []string{"foodCategory", "description"},
		},
	}
}

func defaultConfig() *Config {
	return &Config{
		Archive: ArchiveConfig{
			Path:  "indexed_FoodData_Central_survey_and_sr_legacy_food_json_2022-10-28.fcar",
			Cache: true,
		},
		Sources: DefaultSources(),
		ReferenceSamples: ReferenceConfig{
			Path:   "reference_samples.csv",
			Create: true,
		},
		Categorizer: CategorizerConfig{
			Workers: 4,
			Input:   InputArchive,
		},
		Output: OutputConfig{
			Path:    "VegAttributes_for_FoodData_Central_survey_and_sr_legacy_food_json_2022-10-28.json",
			Samples: 10,
		},
		SQLite: SQLiteConfig{
			Path: "food_data.db",
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "fooddata",
			User:            "fooddata",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "foodcat-projector",
			BatchSize:     500,
			Topics: KafkaTopics{
				FoodCategorized: "food-categorized",
			},
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
		},
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			MaxListResults:  500,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
		},
	}
}

// applyEnvOverrides reads FC_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("FC_ARCHIVE_PATH"); v != "" {
		cfg.Archive.Path = v
	}
	if v := os.Getenv("FC_REFERENCE_SAMPLES_PATH"); v != "" {
		cfg.ReferenceSamples.Path = v
	}
	if v := os.Getenv("FC_OUTPUT_PATH"); v != "" {
		cfg.Output.Path = v
	}
	if v := os.Getenv("FC_CATEGORIZER_INPUT"); v != "" {
		cfg.Categorizer.Input = v
	}
	if v := os.Getenv("FC_CATEGORIZER_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Categorizer.Workers = n
		}
	}
	if v := os.Getenv("FC_SQLITE_PATH"); v != "" {
		cfg.SQLite.Path = v
		cfg.SQLite.Enabled = true
	}
	if v := os.Getenv("FC_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
		cfg.Postgres.Enabled = true
	}
	if v := os.Getenv("FC_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("FC_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("FC_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("FC_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("FC_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
		cfg.Kafka.Enabled = true
	}
	if v := os.Getenv("FC_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
		cfg.Redis.Enabled = true
	}
	if v := os.Getenv("FC_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("FC_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("FC_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("FC_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
