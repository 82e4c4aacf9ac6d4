package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"

	"github.com/couchcryptid/quake-data-etl/internal/domain"
)

// Config holds all job settings, populated from environment variables.
// It is built once per process and passed by value; nothing reads the
// environment after Load returns.
type Config struct {
	LogLevel  string
	LogFormat string

	// Engine selects the query engine: "duckdb" or "native".
	Engine string

	// Source API.
	SourceURL     string
	SourceFormat  string
	SourceTimeout time.Duration

	// Destination partition.
	Bucket      string
	Layer       string
	SourceName  string
	FileName    string
	Format      string
	Compression string

	// Object storage. Credentials are not part of Config; they are resolved
	// from the secret store at run start.
	StorageDriver   string
	StorageEndpoint string
	StorageRegion   string
	StorageURLStyle string
	StorageUseSSL   bool

	// Secret store.
	SecretsBackend   string
	SecretsEnvPrefix string
	SecretsDir       string
	AccessKeyName    string
	SecretKeyName    string

	// DatabaseURL enables the Postgres run ledger and, with
	// SECRETS_BACKEND=postgres, the variable table secret store.
	DatabaseURL string

	// Downstream notification; disabled when KafkaBrokers is empty.
	KafkaBrokers []string
	KafkaTopic   string

	// PushgatewayURL enables pushing run metrics at process exit.
	PushgatewayURL string

	// MetricsAddr enables the status server during a backfill.
	MetricsAddr     string
	ShutdownTimeout time.Duration

	// Scheduling conventions shared with the orchestrator.
	Schedule     domain.DailySchedule
	StartDate    time.Time
	BackfillRate time.Duration
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	sourceTimeout, err := parsePositiveDuration("SOURCE_TIMEOUT", "2m")
	if err != nil {
		return nil, err
	}

	backfillRate, err := parsePositiveDuration("BACKFILL_RATE", "2s")
	if err != nil {
		return nil, err
	}

	useSSL, err := parseBool("STORAGE_USE_SSL", false)
	if err != nil {
		return nil, err
	}

	schedule, err := domain.ParseDailySchedule(sharedcfg.EnvOrDefault("SCHEDULE_AT", "05:00"))
	if err != nil {
		return nil, fmt.Errorf("invalid SCHEDULE_AT: %w", err)
	}

	startDate, err := domain.ParseDate(sharedcfg.EnvOrDefault("START_DATE", "2025-05-01"))
	if err != nil {
		return nil, fmt.Errorf("invalid START_DATE: %w", err)
	}

	var brokers []string
	if v := strings.TrimSpace(os.Getenv("KAFKA_BROKERS")); v != "" {
		brokers = sharedcfg.ParseBrokers(v)
	}

	cfg := &Config{
		LogLevel:  sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat: sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		Engine:    strings.ToLower(sharedcfg.EnvOrDefault("ENGINE", "duckdb")),

		SourceURL:     sharedcfg.EnvOrDefault("SOURCE_URL", domain.DefaultSourceURL),
		SourceFormat:  sharedcfg.EnvOrDefault("SOURCE_FORMAT", "csv"),
		SourceTimeout: sourceTimeout,

		Bucket:      sharedcfg.EnvOrDefault("BUCKET", "prod"),
		Layer:       sharedcfg.EnvOrDefault("LAYER", "raw"),
		SourceName:  sharedcfg.EnvOrDefault("SOURCE_NAME", "earthquake"),
		FileName:    sharedcfg.EnvOrDefault("FILE_NAME", "part-000"),
		Format:      strings.ToLower(sharedcfg.EnvOrDefault("FORMAT", "parquet")),
		Compression: strings.ToLower(sharedcfg.EnvOrDefault("COMPRESSION", "zstd")),

		StorageDriver:   strings.ToLower(sharedcfg.EnvOrDefault("STORAGE_DRIVER", "minio")),
		StorageEndpoint: sharedcfg.EnvOrDefault("STORAGE_ENDPOINT", "minio:9000"),
		StorageRegion:   sharedcfg.EnvOrDefault("STORAGE_REGION", "us-east-1"),
		StorageURLStyle: strings.ToLower(sharedcfg.EnvOrDefault("STORAGE_URL_STYLE", "path")),
		StorageUseSSL:   useSSL,

		SecretsBackend:   strings.ToLower(sharedcfg.EnvOrDefault("SECRETS_BACKEND", "env")),
		SecretsEnvPrefix: sharedcfg.EnvOrDefault("SECRETS_ENV_PREFIX", "ETL_VAR_"),
		SecretsDir:       sharedcfg.EnvOrDefault("SECRETS_DIR", "/run/secrets"),
		AccessKeyName:    sharedcfg.EnvOrDefault("ACCESS_KEY_NAME", "access_key"),
		SecretKeyName:    sharedcfg.EnvOrDefault("SECRET_KEY_NAME", "secret_key"),

		DatabaseURL: os.Getenv("DATABASE_URL"),

		KafkaBrokers: brokers,
		KafkaTopic:   sharedcfg.EnvOrDefault("KAFKA_TOPIC", "earthquake-partitions"),

		PushgatewayURL:  os.Getenv("PUSHGATEWAY_URL"),
		MetricsAddr:     os.Getenv("METRICS_ADDR"),
		ShutdownTimeout: shutdownTimeout,

		Schedule:     schedule,
		StartDate:    startDate,
		BackfillRate: backfillRate,
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Engine {
	case "duckdb", "native":
	default:
		return fmt.Errorf("ENGINE must be duckdb or native, got %q", c.Engine)
	}
	if c.Format != "parquet" {
		return fmt.Errorf("FORMAT must be parquet, got %q", c.Format)
	}
	switch c.Compression {
	case "zstd", "snappy", "gzip", "uncompressed":
	default:
		return fmt.Errorf("COMPRESSION must be zstd, snappy, gzip or uncompressed, got %q", c.Compression)
	}
	switch c.StorageDriver {
	case "minio", "s3":
	default:
		return fmt.Errorf("STORAGE_DRIVER must be minio or s3, got %q", c.StorageDriver)
	}
	switch c.StorageURLStyle {
	case "path", "vhost":
	default:
		return fmt.Errorf("STORAGE_URL_STYLE must be path or vhost, got %q", c.StorageURLStyle)
	}
	if strings.Contains(c.StorageEndpoint, "://") {
		return fmt.Errorf("STORAGE_ENDPOINT must not include a scheme: %q", c.StorageEndpoint)
	}
	if strings.TrimSpace(c.StorageEndpoint) == "" {
		return errors.New("STORAGE_ENDPOINT is required")
	}
	switch c.SecretsBackend {
	case "env", "file":
	case "postgres":
		if c.DatabaseURL == "" {
			return errors.New("SECRETS_BACKEND is postgres but DATABASE_URL is not set")
		}
	default:
		return fmt.Errorf("SECRETS_BACKEND must be env, file or postgres, got %q", c.SecretsBackend)
	}
	if c.AccessKeyName == "" || c.SecretKeyName == "" {
		return errors.New("ACCESS_KEY_NAME and SECRET_KEY_NAME are required")
	}
	if len(c.KafkaBrokers) > 0 && c.KafkaTopic == "" {
		return errors.New("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}

	probe := c.Partition(c.StartDate)
	if err := probe.Validate(); err != nil {
		return fmt.Errorf("invalid BUCKET/LAYER/SOURCE_NAME/FILE_NAME: %w", err)
	}
	return nil
}

// Partition returns the output partition for a run date.
func (c *Config) Partition(runDate time.Time) domain.Partition {
	return domain.Partition{
		Bucket:      c.Bucket,
		Layer:       c.Layer,
		Source:      c.SourceName,
		RunDate:     domain.TruncateDate(runDate),
		FileName:    c.FileName,
		Format:      c.Format,
		Compression: c.Compression,
	}
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseBool(key string, def bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}
