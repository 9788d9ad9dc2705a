package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Cache    CacheConfig
	Vendors  VendorConfig
	Scoring  ScoringConfig
	NATS     NATSConfig
	Sentry   SentryConfig
	Tracing  TracingConfig
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port         string
	Environment  string
	ServiceName  string
	ReadTimeout  int
	WriteTimeout int
	CORSOrigins  string // Comma-separated list of allowed origins

	// RequestTimeout bounds a single risk API call end to end.
	RequestTimeout time.Duration
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int
	MinConns int

	// AutoMigrate applies pending schema migrations at startup.
	AutoMigrate bool
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Enabled             bool
	Host                string
	Port                string
	Password            string
	DB                  int
	ReadTimeoutSeconds  int
	WriteTimeoutSeconds int
}

// CacheConfig controls the signal cache key space and TTLs.
type CacheConfig struct {
	Prefix           string
	ShortTTL         time.Duration // point-in-time reputation and threat data
	DeviceTTL        time.Duration // device association history
	ResultTTL        time.Duration // per-transaction verdicts
	StrictDeviceLock bool
}

// VendorConfig selects and configures vendor adapters.
type VendorConfig struct {
	IdentityProvider     string
	IPReputationProvider string
	ThreatIntelProvider  string
	IdentityURL          string
	IPReputationURL      string
	ThreatIntelURL       string
	APIKey               string
	Timeout              time.Duration
	MaxAttempts          int
	GeoIPCityDBPath      string
	GeoIPASNDBPath       string
	TorExitListPath      string
}

// ScoringConfig holds engine feature flags and threshold overrides.
type ScoringConfig struct {
	VendorAPIsEnabled bool
	MLScoringEnabled  bool
	MediumThreshold   float64
	HighThreshold     float64
	CriticalThreshold float64
	Weights           WeightConfig
}

// WeightConfig holds the per-signal weights. Internal and vendor weights feed
// the verdict score; the composite weights feed the device/IP assessment.
type WeightConfig struct {
	AccountAge         float64
	TransactionHistory float64
	DeviceFingerprint  float64
	Velocity           float64
	BehaviorPattern    float64

	Identity     float64
	IPReputation float64
	ThreatIntel  float64
	Anomaly      float64

	CompositeIPReputation float64
	CompositeDevice       float64
	CompositeThreatIntel  float64
}

// NATSConfig holds NATS configuration for verdict events
type NATSConfig struct {
	URL           string
	Enabled       bool
	SubjectPrefix string
}

// SentryConfig holds Sentry configuration
type SentryConfig struct {
	DSN     string
	Enabled bool
}

// TracingConfig holds OpenTelemetry exporter configuration
type TracingConfig struct {
	Enabled      bool
	OTLPEndpoint string
	SampleRatio  float64
}

// Load loads configuration from environment variables
func Load(serviceName string) (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			Environment:  getEnv("ENVIRONMENT", "development"),
			ServiceName:  serviceName,
			ReadTimeout:  getEnvAsInt("READ_TIMEOUT", 10),
			WriteTimeout: getEnvAsInt("WRITE_TIMEOUT", 10),
			CORSOrigins:  getEnv("CORS_ORIGINS", "http://localhost:3000"),

			RequestTimeout: getEnvAsDuration("REQUEST_TIMEOUT", 8*time.Second),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "trustrisk"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			MaxConns: getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns: getEnvAsInt("DB_MIN_CONNS", 5),

			AutoMigrate: getEnvAsBool("DB_AUTO_MIGRATE", true),
		},
		Redis: RedisConfig{
			Enabled:             getEnvAsBool("REDIS_ENABLED", true),
			Host:                getEnv("REDIS_HOST", "localhost"),
			Port:                getEnv("REDIS_PORT", "6379"),
			Password:            getEnv("REDIS_PASSWORD", ""),
			DB:                  getEnvAsInt("REDIS_DB", 0),
			ReadTimeoutSeconds:  getEnvAsInt("REDIS_READ_TIMEOUT", 3),
			WriteTimeoutSeconds: getEnvAsInt("REDIS_WRITE_TIMEOUT", 3),
		},
		Cache: CacheConfig{
			Prefix:           getEnv("CACHE_PREFIX", "risk"),
			ShortTTL:         getEnvAsDuration("CACHE_SHORT_TTL", time.Hour),
			DeviceTTL:        getEnvAsDuration("CACHE_DEVICE_TTL", 30*24*time.Hour),
			ResultTTL:        getEnvAsDuration("CACHE_RESULT_TTL", 24*time.Hour),
			StrictDeviceLock: getEnvAsBool("CACHE_STRICT_DEVICE_LOCK", false),
		},
		Vendors: VendorConfig{
			IdentityProvider:     getEnv("VENDOR_IDENTITY_PROVIDER", "static"),
			IPReputationProvider: getEnv("VENDOR_IP_REPUTATION_PROVIDER", "static"),
			ThreatIntelProvider:  getEnv("VENDOR_THREAT_INTEL_PROVIDER", "static"),
			IdentityURL:          getEnv("VENDOR_IDENTITY_URL", ""),
			IPReputationURL:      getEnv("VENDOR_IP_REPUTATION_URL", ""),
			ThreatIntelURL:       getEnv("VENDOR_THREAT_INTEL_URL", ""),
			APIKey:               getEnv("VENDOR_API_KEY", ""),
			Timeout:              getEnvAsDuration("VENDOR_TIMEOUT", 5*time.Second),
			MaxAttempts:          getEnvAsInt("VENDOR_MAX_ATTEMPTS", 2),
			GeoIPCityDBPath:      getEnv("GEOIP_CITY_DB", "data/GeoLite2-City.mmdb"),
			GeoIPASNDBPath:       getEnv("GEOIP_ASN_DB", "data/GeoLite2-ASN.mmdb"),
			TorExitListPath:      getEnv("TOR_EXIT_LIST", ""),
		},
		Scoring: ScoringConfig{
			VendorAPIsEnabled: getEnvAsBool("SCORING_VENDOR_APIS_ENABLED", true),
			MLScoringEnabled:  getEnvAsBool("SCORING_ML_ENABLED", true),
			MediumThreshold:   getEnvAsFloat("SCORING_MEDIUM_THRESHOLD", 50),
			HighThreshold:     getEnvAsFloat("SCORING_HIGH_THRESHOLD", 70),
			CriticalThreshold: getEnvAsFloat("SCORING_CRITICAL_THRESHOLD", 85),
		},
		NATS: NATSConfig{
			URL:           getEnv("NATS_URL", "nats://localhost:4222"),
			Enabled:       getEnvAsBool("NATS_ENABLED", false),
			SubjectPrefix: getEnv("NATS_SUBJECT_PREFIX", "risk.verdict"),
		},
		Sentry: SentryConfig{
			DSN:     getEnv("SENTRY_DSN", ""),
			Enabled: getEnvAsBool("SENTRY_ENABLED", false),
		},
		Tracing: TracingConfig{
			Enabled:      getEnvAsBool("TRACING_ENABLED", false),
			OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			SampleRatio:  getEnvAsFloat("TRACING_SAMPLE_RATIO", 0.1),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks invariants that would otherwise fail at request time.
func (c *Config) Validate() error {
	s := c.Scoring
	if !(0 < s.MediumThreshold && s.MediumThreshold < s.HighThreshold &&
		s.HighThreshold < s.CriticalThreshold && s.CriticalThreshold <= 100) {
		return fmt.Errorf("scoring thresholds must satisfy 0 < medium < high < critical <= 100, got %.1f/%.1f/%.1f",
			s.MediumThreshold, s.HighThreshold, s.CriticalThreshold)
	}
	if err := s.Weights.validate(); err != nil {
		return err
	}
	if c.Vendors.Timeout <= 0 {
		return fmt.Errorf("vendor timeout must be positive")
	}
	return nil
}

func (w WeightConfig) validate() error {
	all := []float64{
		w.AccountAge, w.TransactionHistory, w.DeviceFingerprint, w.Velocity, w.BehaviorPattern,
		w.Identity, w.IPReputation, w.ThreatIntel, w.Anomaly,
		w.CompositeIPReputation, w.CompositeDevice, w.CompositeThreatIntel,
	}
	for _, v := range all {
		if v < 0 || v > 1 {
			return fmt.Errorf("signal weights must be within [0,1], got %v", v)
		}
	}
	return nil
}

// DSN returns the database connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// RedisReadTimeoutDuration returns the read timeout, defaulting to 3s.
func (c *RedisConfig) RedisReadTimeoutDuration() time.Duration {
	if c.ReadTimeoutSeconds <= 0 {
		return 3 * time.Second
	}
	return time.Duration(c.ReadTimeoutSeconds) * time.Second
}

// RedisWriteTimeoutDuration returns the write timeout, defaulting to 3s.
func (c *RedisConfig) RedisWriteTimeoutDuration() time.Duration {
	if c.WriteTimeoutSeconds <= 0 {
		return 3 * time.Second
	}
	return time.Duration(c.WriteTimeoutSeconds) * time.Second
}

// AllowedOrigins splits CORSOrigins into a list.
func (c *ServerConfig) AllowedOrigins() []string {
	parts := strings.Split(c.CORSOrigins, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			origins = append(origins, p)
		}
	}
	return origins
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
