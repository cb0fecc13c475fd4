package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Config holds all process configuration, read from the environment
type Config struct {
	Port string

	MongoURI string // empty disables the match archive
	MongoDB  string
	RedisURI string // empty disables the room cache
	CacheTTL time.Duration

	JWTSecret        string
	OperatorUsername string
	OperatorPassword string

	PairingPrefix  string
	RoomIdleTTL    time.Duration // 0 disables the reaper
	ReaperInterval time.Duration

	WSRatePerSec float64
	WSRateBurst  int

	LogLevel    string
	LogPretty   bool
	CORSOrigins string
}

// Load reads the configuration from the environment
func Load() *Config {
	return &Config{
		Port: getEnv("PORT", "8080"),

		MongoURI: os.Getenv("MONGO_URI"),
		MongoDB:  getEnv("MONGO_DB", "tabletop"),
		RedisURI: strings.TrimPrefix(os.Getenv("REDIS_URI"), "redis://"),
		CacheTTL: getEnvDuration("CACHE_TTL", 24*time.Hour),

		JWTSecret:        getEnv("JWT_SECRET", "super-secret-key-change-in-production"),
		OperatorUsername: getEnv("OPERATOR_USERNAME", "admin"),
		OperatorPassword: getEnv("OPERATOR_PASSWORD", "password123"),

		PairingPrefix:  getEnv("PAIRING_PREFIX", "pair-"),
		RoomIdleTTL:    getEnvDuration("ROOM_IDLE_TTL", 0),
		ReaperInterval: getEnvDuration("REAPER_INTERVAL", time.Minute),

		WSRatePerSec: getEnvFloat("WS_RATE_PER_SEC", 20),
		WSRateBurst:  getEnvInt("WS_RATE_BURST", 40),

		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogPretty:   getEnvBool("LOG_PRETTY", false),
		CORSOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil || d < 0 {
		log.Warn().Str("key", key).Str("value", val).Msg("invalid duration, using default")
		return defaultVal
	}
	return d
}

func getEnvInt(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		log.Warn().Str("key", key).Str("value", val).Msg("invalid int, using default")
		return defaultVal
	}
	return n
}

func getEnvFloat(key string, defaultVal float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		log.Warn().Str("key", key).Str("value", val).Msg("invalid number, using default")
		return defaultVal
	}
	return f
}

func getEnvBool(key string, defaultVal bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		log.Warn().Str("key", key).Str("value", val).Msg("invalid bool, using default")
		return defaultVal
	}
	return b
}
