package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds all configuration for the application.
// The values are loaded from environment variables.
type AppConfig struct {
	// Core settings
	Port         string
	DatabasePath string
	LogLevel     string

	// Security settings
	JWTSecret          string
	SessionTokenExpiry time.Duration

	// Access control
	AccessKeys          []string
	MaxUnlockAttempts   int
	LockoutBaseDuration time.Duration

	// History gate
	HistoryAccessPIN   string
	EmergencyDeletePIN string
	HistorySessionTTL  time.Duration

	// Ledger defaults
	DefaultPricePerGram float64

	// Frontend URL for reference (CORS)
	FrontendBaseURL string
}

// Cfg is a global instance of the AppConfig.
var Cfg *AppConfig

// LoadConfig loads configuration from environment variables or a .env file.
// It centralizes all configuration logic for the application.
func LoadConfig() {
	// 1. Try loading from the current directory (standard behavior)
	errEnv := godotenv.Load()

	// 2. If not found, try loading from the parent directory (common when running from /backend)
	if errEnv != nil {
		errEnv = godotenv.Load("../.env")
	}

	if errEnv != nil {
		if os.IsNotExist(errEnv) {
			log.Println("Info: No .env file found in current or parent directory. Relying on OS environment variables (expected in production).")
		} else {
			log.Printf("Warning: Error loading .env file: %v. Relying on OS environment variables.", errEnv)
		}
	} else {
		log.Println(".env file loaded successfully.")
	}

	log.Println("Loading application configuration...")

	// --- Security & Tokens (Secrets) ---
	jwtSecret := getRequiredEnv("JWT_SECRET")

	accessKeys := getListEnv("ACCESS_KEYS")
	if len(accessKeys) == 0 {
		log.Fatalf("FATAL: ACCESS_KEYS is empty. At least one unlock key must be configured.")
	}

	historyPIN := getRequiredEnv("HISTORY_ACCESS_PIN")
	emergencyPIN := getRequiredEnv("EMERGENCY_DELETE_PIN")
	if historyPIN == emergencyPIN {
		log.Fatalf("FATAL: HISTORY_ACCESS_PIN and EMERGENCY_DELETE_PIN must differ.")
	}

	// --- Populate the Global Config Struct ---
	Cfg = &AppConfig{
		// Core
		Port:         getEnv("PORT", "8080"),
		DatabasePath: getEnv("DATABASE_PATH", "./gramstracker.db"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),

		// Security
		JWTSecret:          jwtSecret,
		SessionTokenExpiry: getEnvAsDuration("SESSION_TOKEN_EXPIRY", 12*time.Hour),

		// Access control
		AccessKeys:          accessKeys,
		MaxUnlockAttempts:   getEnvAsInt("MAX_UNLOCK_ATTEMPTS", 3),
		LockoutBaseDuration: getEnvAsDuration("LOCKOUT_BASE_DURATION", time.Minute),

		// History gate
		HistoryAccessPIN:   historyPIN,
		EmergencyDeletePIN: emergencyPIN,
		HistorySessionTTL:  getEnvAsDuration("HISTORY_SESSION_TTL", 15*time.Minute),

		// Ledger defaults
		DefaultPricePerGram: getEnvAsFloat("DEFAULT_PRICE_PER_GRAM", 0.10),

		FrontendBaseURL: getEnv("APP_BASE_URL", "http://localhost:3000"),
	}

	log.Printf("Configuration loaded: Port=%s, LogLevel=%s, DBPath=%s, AccessKeys=%d",
		Cfg.Port, Cfg.LogLevel, Cfg.DatabasePath, len(Cfg.AccessKeys))
}

// getEnv retrieves an environment variable or returns a fallback value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	log.Printf("Environment variable %s not set, using default: %s", key, fallback)
	return fallback
}

// getRequiredEnv retrieves an environment variable or terminates the application if not set.
func getRequiredEnv(key string) string {
	value, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(value) == "" {
		log.Fatalf("FATAL: Required environment variable %s is not set or is empty. Application cannot start securely.", key)
	}
	return value
}

// getEnvAsInt retrieves an environment variable as an integer or returns a fallback.
func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid integer value for %s ('%s'), using default: %d", key, valueStr, fallback)
	return fallback
}

// getEnvAsFloat retrieves an environment variable as a float64 or returns a fallback.
func getEnvAsFloat(key string, fallback float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	log.Printf("Invalid float value for %s ('%s'), using default: %f", key, valueStr, fallback)
	return fallback
}

// getEnvAsDuration retrieves an environment variable as a time.Duration or returns a fallback.
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid duration value for %s ('%s'), using default: %s", key, valueStr, fallback)
	return fallback
}

// getListEnv parses a comma-separated environment variable into a slice,
// trimming whitespace and dropping empty entries.
func getListEnv(key string) []string {
	raw := os.Getenv(key)
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
