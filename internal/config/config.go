package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Store backends.
const (
	BackendSupabase = "supabase"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Backing store.
	StoreBackend string
	StoreTable   string
	StoreTimeout time.Duration
	SupabaseURL  string
	SupabaseKey  string
	DatabaseURL  string
	FixturePath  string

	BreakerMaxFailures uint32
	BreakerOpenTimeout time.Duration

	// Fetch discipline.
	QueueMaxConcurrent int
	QueueSettleDelay   time.Duration
	LatestTTL          time.Duration
	RefreshInterval    time.Duration
	HistoryDays        int
	DateFallback       string

	// Vessel profile.
	VesselName      string
	VesselType      string
	VesselCapacity  float64
	VesselTankCount int
	VesselDefaultID string

	// Snapshot publishing (feature-flagged via KAFKA_ENABLED).
	KafkaEnabled       bool
	KafkaBrokers       []string
	KafkaSnapshotTopic string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		StoreBackend: strings.ToLower(sharedcfg.EnvOrDefault("STORE_BACKEND", BackendSupabase)),
		StoreTable:   sharedcfg.EnvOrDefault("STORE_TABLE", "pacific_garnet"),
		SupabaseURL:  strings.TrimRight(os.Getenv("SUPABASE_URL"), "/"),
		SupabaseKey:  os.Getenv("SUPABASE_KEY"),
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		FixturePath:  os.Getenv("FIXTURE_PATH"),

		DateFallback: sharedcfg.EnvOrDefault("DATE_FALLBACK_POLICY", "today"),

		VesselName:      sharedcfg.EnvOrDefault("VESSEL_NAME", "MV CryoMaster"),
		VesselType:      sharedcfg.EnvOrDefault("VESSEL_TYPE", "MEGI"),
		VesselDefaultID: sharedcfg.EnvOrDefault("VESSEL_DEFAULT_ID", "V1000"),

		KafkaEnabled:       os.Getenv("KAFKA_ENABLED") == "true",
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSnapshotTopic: sharedcfg.EnvOrDefault("KAFKA_SNAPSHOT_TOPIC", "vessel-state-snapshots"),
	}

	if cfg.StoreTimeout, err = parsePositiveDuration("STORE_TIMEOUT", "15s"); err != nil {
		return nil, err
	}
	if cfg.BreakerOpenTimeout, err = parsePositiveDuration("BREAKER_OPEN_TIMEOUT", "30s"); err != nil {
		return nil, err
	}
	if cfg.LatestTTL, err = parsePositiveDuration("LATEST_TTL", "5m"); err != nil {
		return nil, err
	}
	if cfg.RefreshInterval, err = parsePositiveDuration("REFRESH_INTERVAL", "10m"); err != nil {
		return nil, err
	}

	settle, err := time.ParseDuration(sharedcfg.EnvOrDefault("QUEUE_SETTLE_DELAY", "300ms"))
	if err != nil || settle < 0 {
		return nil, errors.New("invalid QUEUE_SETTLE_DELAY")
	}
	cfg.QueueSettleDelay = settle

	if cfg.QueueMaxConcurrent, err = parsePositiveInt("QUEUE_MAX_CONCURRENT", 2); err != nil {
		return nil, err
	}
	if cfg.HistoryDays, err = parsePositiveInt("HISTORY_DAYS", 30); err != nil {
		return nil, err
	}
	if cfg.VesselTankCount, err = parsePositiveInt("VESSEL_TANK_COUNT", 2); err != nil {
		return nil, err
	}
	maxFailures, err := parsePositiveInt("BREAKER_MAX_FAILURES", 5)
	if err != nil {
		return nil, err
	}
	cfg.BreakerMaxFailures = uint32(maxFailures) //nolint:gosec // bounded by parsePositiveInt

	capacity, err := strconv.ParseFloat(sharedcfg.EnvOrDefault("VESSEL_CAPACITY", "170000"), 64)
	if err != nil || capacity <= 0 {
		return nil, errors.New("invalid VESSEL_CAPACITY")
	}
	cfg.VesselCapacity = capacity

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.StoreBackend {
	case BackendSupabase:
		if c.SupabaseURL == "" {
			return errors.New("SUPABASE_URL is required when STORE_BACKEND is supabase")
		}
		if c.SupabaseKey == "" {
			return errors.New("SUPABASE_KEY is required when STORE_BACKEND is supabase")
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required when STORE_BACKEND is postgres")
		}
	case BackendMemory:
		if c.FixturePath == "" {
			return errors.New("FIXTURE_PATH is required when STORE_BACKEND is memory")
		}
	default:
		return fmt.Errorf("invalid STORE_BACKEND %q", c.StoreBackend)
	}
	if c.StoreTable == "" {
		return errors.New("STORE_TABLE is required")
	}
	switch strings.ToLower(c.DateFallback) {
	case "today", "reject":
	default:
		return fmt.Errorf("invalid DATE_FALLBACK_POLICY %q", c.DateFallback)
	}
	if c.KafkaEnabled {
		if len(c.KafkaBrokers) == 0 {
			return errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED is true")
		}
		if c.KafkaSnapshotTopic == "" {
			return errors.New("KAFKA_SNAPSHOT_TOPIC is required when KAFKA_ENABLED is true")
		}
	}
	return nil
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parsePositiveInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return n, nil
}
