package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything the services need, built once at startup and passed
// explicitly to constructors
type Config struct {
	Server  ServerConfig
	Backend BackendConfig
	Auth    AuthConfig
	Maps    MapsConfig
	Redis   RedisConfig
	Kafka   KafkaConfig
	Editing EditingConfig
	Sandbox SandboxConfig
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// BackendConfig points at the platform REST API
type BackendConfig struct {
	BaseURL        string
	RequestTimeout time.Duration
	MaxConcurrent  int
}

// AuthConfig selects how outbound requests are authenticated. A static token
// wins over JWT signing when both are set.
type AuthConfig struct {
	StaticToken string
	JWTSecret   string
	JWTSubject  string
	JWTTTL      time.Duration
}

type MapsConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	// CacheTTL bounds how long reverse geocoding results are reused
	CacheTTL time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// EditingConfig tunes the edit session workflow
type EditingConfig struct {
	PricingDebounce time.Duration
	SearchDebounce  time.Duration
	MenuCacheTTL    time.Duration
}

// SandboxConfig configures the in-memory backend
type SandboxConfig struct {
	Port          string
	ChaosEnabled  bool
	ChaosSlowMode bool
}

// Load reads configuration from the environment, after loading a .env file if present
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  getEnvAsDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
		},
		Backend: BackendConfig{
			BaseURL:        strings.TrimRight(getEnv("API_BASE_URL", "http://localhost:8090/api"), "/"),
			RequestTimeout: getEnvAsDuration("API_REQUEST_TIMEOUT", 3*time.Second),
			MaxConcurrent:  getEnvAsInt("API_MAX_CONCURRENT", 10),
		},
		Auth: AuthConfig{
			StaticToken: getEnv("API_AUTH_TOKEN", ""),
			JWTSecret:   getEnv("API_JWT_SECRET", ""),
			JWTSubject:  getEnv("API_JWT_SUBJECT", "order-edit-service"),
			JWTTTL:      getEnvAsDuration("API_JWT_TTL", 15*time.Minute),
		},
		Maps: MapsConfig{
			BaseURL:  strings.TrimRight(getEnv("MAPS_BASE_URL", "https://api.mapbox.com"), "/"),
			APIKey:   getEnv("MAPS_API_KEY", ""),
			Timeout:  getEnvAsDuration("MAPS_TIMEOUT", 10*time.Second),
			CacheTTL: getEnvAsDuration("MAPS_CACHE_TTL", 24*time.Hour),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(getEnv("KAFKA_BROKERS", "")),
			Topic:   getEnv("KAFKA_TOPIC", "order-edits"),
		},
		Editing: EditingConfig{
			PricingDebounce: getEnvAsDuration("PRICING_DEBOUNCE", 750*time.Millisecond),
			SearchDebounce:  getEnvAsDuration("ADDRESS_SEARCH_DEBOUNCE", 500*time.Millisecond),
			MenuCacheTTL:    getEnvAsDuration("MENU_CACHE_TTL", 5*time.Minute),
		},
		Sandbox: SandboxConfig{
			Port:          getEnv("SANDBOX_PORT", "8090"),
			ChaosEnabled:  getEnvAsBool("SANDBOX_CHAOS", false),
			ChaosSlowMode: getEnvAsBool("SANDBOX_SLOW", false),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
