package config

import (
	"os"
	"strings"
	"time"

	stringsutil "civreg/pkg/platform/strings"
)

// Config captures process-level configuration. Stores fall back to in-memory
// implementations when their backing service is not configured, which keeps
// development and tests free of external dependencies.
type Config struct {
	Addr string

	// PostgresDSN selects the Postgres-backed stores when non-empty.
	PostgresDSN string

	// RedisURL selects the Redis push broker when non-empty.
	RedisURL string

	// KafkaBrokers enables the audit trail Kafka publisher when non-empty.
	KafkaBrokers    []string
	KafkaAuditTopic string

	JWTSigningKey string
	JWTIssuer     string
	JWTAudience   string

	// ManagerIDs lists the user IDs that receive manager broadcasts.
	ManagerIDs []string

	// SeedDemo populates the in-memory stores with sample records on boot.
	SeedDemo bool

	ShutdownTimeout time.Duration
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	cfg := Config{
		Addr:            envOr("CIVREG_ADDR", ":8080"),
		PostgresDSN:     os.Getenv("CIVREG_POSTGRES_DSN"),
		RedisURL:        os.Getenv("CIVREG_REDIS_URL"),
		KafkaAuditTopic: envOr("CIVREG_KAFKA_AUDIT_TOPIC", "civreg.audit"),
		JWTIssuer:       envOr("CIVREG_JWT_ISSUER", "civreg"),
		JWTAudience:     envOr("CIVREG_JWT_AUDIENCE", "civreg-api"),
		ShutdownTimeout: 10 * time.Second,
	}

	if brokers := os.Getenv("CIVREG_KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = splitCSV(brokers)
	}
	if managers := os.Getenv("CIVREG_MANAGER_IDS"); managers != "" {
		cfg.ManagerIDs = splitCSV(managers)
	}
	cfg.SeedDemo = os.Getenv("CIVREG_SEED_DEMO") == "true"

	cfg.JWTSigningKey = os.Getenv("CIVREG_JWT_SIGNING_KEY")
	if cfg.JWTSigningKey == "" {
		// Use a default for development - should be overridden in production
		cfg.JWTSigningKey = "dev-secret-key-change-in-production"
	}

	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitCSV(raw string) []string {
	return stringsutil.DedupeAndTrim(strings.Split(raw, ","))
}
