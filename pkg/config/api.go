package config

import (
	"log"
	"time"
)

// APIConfig holds runtime configuration for the API service.
type APIConfig struct {
	Environment          string
	LogLevel             string
	Addr                 string
	DatabaseURL          string
	MigrationsDir        string
	JWTSecret            string
	AuthDisabled         bool
	RateLimitRedisAddr   string
	RateLimitRedisPass   string
	RateLimitRedisDB     int
	SnapshotCacheAddr    string
	SnapshotCachePass    string
	SnapshotCacheDB      int
	SnapshotCacheTTL     time.Duration
	TelemetryPageLimit   int
	ClickMapCells        int
	ClickTargetLimit     int
	InsightDefaultDays   int
	InsightStreamEvery   time.Duration
	EstimateMaxHTMLBytes int64
}

// LoadAPIConfig constructs an APIConfig from environment variables, after loading a
// local .env file when one exists.
func LoadAPIConfig() APIConfig {
	if err := LoadEnvFile(); err != nil {
		log.Printf("load .env: %v", err)
	}
	return APIConfig{
		Environment:          GetString("APP_ENV", "development"),
		LogLevel:             GetString("LOG_LEVEL", "info"),
		Addr:                 GetString("API_ADDR", ":4000"),
		DatabaseURL:          GetString("DATABASE_URL", "postgres://heatlens:heatlens@db:5432/heatlens?sslmode=disable"),
		MigrationsDir:        GetString("DB_MIGRATIONS_DIR", ""),
		JWTSecret:            GetString("JWT_SECRET", "supersecuresecret"),
		AuthDisabled:         GetBool("AUTH_DISABLED", false),
		RateLimitRedisAddr:   GetString("RATE_LIMIT_REDIS_ADDR", ""),
		RateLimitRedisPass:   GetString("RATE_LIMIT_REDIS_PASSWORD", ""),
		RateLimitRedisDB:     GetInt("RATE_LIMIT_REDIS_DB", 0),
		SnapshotCacheAddr:    GetString("SNAPSHOT_CACHE_REDIS_ADDR", ""),
		SnapshotCachePass:    GetString("SNAPSHOT_CACHE_REDIS_PASSWORD", ""),
		SnapshotCacheDB:      GetInt("SNAPSHOT_CACHE_REDIS_DB", 0),
		SnapshotCacheTTL:     GetSeconds("SNAPSHOT_CACHE_TTL_SECONDS", 300),
		TelemetryPageLimit:   GetInt("TELEMETRY_PAGE_LIMIT", 5000),
		ClickMapCells:        GetInt("CLICK_MAP_CELLS", 200),
		ClickTargetLimit:     GetInt("CLICK_TARGET_LIMIT", 50),
		InsightDefaultDays:   GetInt("INSIGHT_DEFAULT_DAYS", 14),
		InsightStreamEvery:   GetSeconds("INSIGHT_STREAM_SECONDS", 60),
		EstimateMaxHTMLBytes: int64(GetInt("ESTIMATE_MAX_HTML_BYTES", 5<<20)),
	}
}
