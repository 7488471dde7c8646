package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Server
	ServerPort   string
	ServerHost   string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// Database
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Redis
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// Kafka
	KafkaBrokers       []string
	KafkaGroupID       string
	SnapshotEventTopic string

	// OIDC (optional; auth disabled when issuer empty)
	OIDCIssuer       string
	OIDCClientID     string
	OIDCClientSecret string

	// Model artifact
	ModelArtifactPath string
	ModelTimeout      time.Duration

	// Feature engineering
	ThresholdsPath     string
	ConditionRulesPath string

	// Batch pipeline
	BatchWorkers      int
	ExplainSampleSize int
	RawSource         string // postgres or csv
	RawCSVPath        string

	// Snapshot
	SnapshotPath   string
	SnapshotTTL    time.Duration
	DetailCacheTTL time.Duration
}

func Load() *Config {
	return &Config{
		ServerPort:   getEnv("SERVER_PORT", "8080"),
		ServerHost:   getEnv("SERVER_HOST", "0.0.0.0"),
		ReadTimeout:  getDuration("READ_TIMEOUT", 30*time.Second),
		WriteTimeout: getDuration("WRITE_TIMEOUT", 30*time.Second),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "chronicare"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "chronicare123"),
		PostgresDB:       getEnv("POSTGRES_DB", "chronicare"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getIntEnv("REDIS_DB", 0),

		KafkaBrokers:       getStringSliceEnv("KAFKA_BROKERS", []string{"localhost:9092"}),
		KafkaGroupID:       getEnv("KAFKA_GROUP_ID", "chronicare-platform"),
		SnapshotEventTopic: getEnv("SNAPSHOT_EVENT_TOPIC", "risk.snapshots"),

		OIDCIssuer:       getEnv("OIDC_ISSUER", ""),
		OIDCClientID:     getEnv("OIDC_CLIENT_ID", ""),
		OIDCClientSecret: getEnv("OIDC_CLIENT_SECRET", ""),

		ModelArtifactPath: getEnv("MODEL_ARTIFACT_PATH", "artifacts/chronic_care_model.json"),
		ModelTimeout:      getDuration("MODEL_TIMEOUT", 5*time.Second),

		ThresholdsPath:     getEnv("CLINICAL_THRESHOLDS_PATH", ""),
		ConditionRulesPath: getEnv("CONDITION_RULES_PATH", ""),

		BatchWorkers:      getIntEnv("BATCH_WORKERS", 4),
		ExplainSampleSize: getIntEnv("EXPLAIN_SAMPLE_SIZE", 0),
		RawSource:         getEnv("RAW_SOURCE", "postgres"),
		RawCSVPath:        getEnv("RAW_CSV_PATH", "dataset/ehr_cleaned_dataset.csv"),

		SnapshotPath:   getEnv("SNAPSHOT_PATH", "data/dashboard_snapshot.json"),
		SnapshotTTL:    getDuration("SNAPSHOT_TTL", 24*time.Hour),
		DetailCacheTTL: getDuration("DETAIL_CACHE_TTL", 5*time.Minute),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getStringSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return []string{value}
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
