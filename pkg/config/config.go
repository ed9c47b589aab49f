package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort      string
	Environment     string
	FirebaseProject string

	// StoreDriver selects the document store: "firestore" or "memory".
	StoreDriver string

	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	ProfileCacheTTL time.Duration

	TestChat TestChatConfig

	AvatarPrefetchCount int
	AvatarPrefetchRPS   float64
	// AvatarHosts lists the CDN hosts avatar prefetch may contact.
	AvatarHosts []string

	RateLimitRPS   float64
	RateLimitBurst int
}

// TestChatConfig names the fixed pair of accounts the dev-only test chat is
// created between.
type TestChatConfig struct {
	UserAID   string
	UserAName string
	UserBID   string
	UserBName string
}

func Load() (*Config, error) {
	godotenv.Load()

	config := &Config{
		ServerPort:      getEnv("SERVER_PORT", "8080"),
		Environment:     getEnv("ENVIRONMENT", "development"),
		FirebaseProject: getEnv("FIREBASE_PROJECT_ID", ""),
		StoreDriver:     getEnv("STORE_DRIVER", "firestore"),

		RedisAddr:       getEnv("REDIS_ADDR", ""),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		RedisDB:         getEnvAsInt("REDIS_DB", 0),
		ProfileCacheTTL: getEnvAsDuration("PROFILE_CACHE_TTL", 5*time.Minute),

		TestChat: TestChatConfig{
			UserAID:   getEnv("TEST_USER_A_ID", "test-user-alpha"),
			UserAName: getEnv("TEST_USER_A_NAME", "Test Alpha"),
			UserBID:   getEnv("TEST_USER_B_ID", "test-user-bravo"),
			UserBName: getEnv("TEST_USER_B_NAME", "Test Bravo"),
		},

		AvatarPrefetchCount: getEnvAsInt("AVATAR_PREFETCH_COUNT", 5),
		AvatarPrefetchRPS:   getEnvAsFloat("AVATAR_PREFETCH_RPS", 4),
		AvatarHosts:         getEnvAsList("AVATAR_CDN_HOSTS", []string{"firebasestorage.googleapis.com", "storage.googleapis.com"}),

		RateLimitRPS:   getEnvAsFloat("RATE_LIMIT_RPS", 10),
		RateLimitBurst: getEnvAsInt("RATE_LIMIT_BURST", 20),
	}

	return config, nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		intValue, err := strconv.Atoi(value)
		if err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		floatValue, err := strconv.ParseFloat(value, 64)
		if err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	var list []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			list = append(list, item)
		}
	}
	return list
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		d, err := time.ParseDuration(value)
		if err == nil {
			return d
		}
	}
	return defaultValue
}
