package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	SyncModeRefetch = "refetch"
	SyncModePatch   = "patch"
)

type Config struct {
	Port     string
	GinMode  string
	LogLevel string

	DBDriver string
	DBDSN    string

	JWTSecret string
	JWTTTL    time.Duration

	CORSOrigins []string

	UploadDir      string
	PublicBaseURL  string
	MaxUploadBytes int64

	KafkaBrokers []string
	KafkaTopic   string
	KafkaGroupID string

	ViewSyncMode          string
	SideEffectInterval    time.Duration
	SideEffectMaxAttempts int
	CartTTL               time.Duration
	RateLimitPerMinute    int
}

// Load reads .env (if present) and the process environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found or error loading: %v", err)
	}

	cfg := &Config{
		Port:     getenv("PORT", "8080"),
		GinMode:  getenv("GIN_MODE", "debug"),
		LogLevel: getenv("LOG_LEVEL", "info"),

		DBDriver: strings.ToLower(getenv("DB_DRIVER", "sqlite")),
		DBDSN:    getenv("DB_DSN", "restaurant.db"),

		JWTSecret: getenv("JWT_SECRET", ""),
		JWTTTL:    getDuration("JWT_TTL", 24*time.Hour),

		CORSOrigins: getCSV("CORS_ORIGINS", []string{"*"}),

		UploadDir:      getenv("UPLOAD_DIR", "public/uploads"),
		PublicBaseURL:  strings.TrimRight(getenv("PUBLIC_BASE_URL", "http://localhost:8080"), "/"),
		MaxUploadBytes: int64(getInt("MAX_UPLOAD_BYTES", 5<<20)),

		KafkaBrokers: getCSV("KAFKA_BROKERS", nil),
		KafkaTopic:   getenv("KAFKA_TOPIC", "restaurant.changes"),
		KafkaGroupID: getenv("KAFKA_GROUP_ID", "restaurant-api"),

		ViewSyncMode:          strings.ToLower(getenv("VIEW_SYNC_MODE", SyncModeRefetch)),
		SideEffectInterval:    getDuration("SIDE_EFFECT_INTERVAL", 5*time.Second),
		SideEffectMaxAttempts: getInt("SIDE_EFFECT_MAX_ATTEMPTS", 10),
		CartTTL:               getDuration("CART_TTL", 2*time.Hour),
		RateLimitPerMinute:    getInt("RATE_LIMIT_PER_MINUTE", 300),
	}

	if cfg.ViewSyncMode != SyncModePatch {
		cfg.ViewSyncMode = SyncModeRefetch
	}
	if cfg.JWTSecret == "" {
		log.Printf("Warning: JWT_SECRET not set, using development secret")
	}
	return cfg
}

// KafkaEnabled reports whether change notices are shared through Kafka.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func getenv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func getInt(k string, def int) int {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("Warning: invalid %s=%q, using %d", k, v, def)
		return def
	}
	return n
}

func getDuration(k string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		log.Printf("Warning: invalid %s=%q, using %s", k, v, def)
		return def
	}
	return d
}

func getCSV(k string, def []string) []string {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
