package config

import (
	"errors"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	Environment string
	// LogLevel overrides the default threshold (debug in development, info otherwise).
	LogLevel string

	MongoURI      string
	MongoDatabase string

	JWTSecret string

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool
	// MinioPublicURL is the base that hosted image URLs are built on.
	MinioPublicURL string

	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	EmailFrom    string

	// ResetRateLimit is the number of password-reset requests allowed per minute.
	ResetRateLimit int
	CORSOrigins    string
}

// Load reads the configuration from the environment, honouring a .env file when present.
func Load() (*Config, error) {
	// Containers pass variables directly, so a missing .env file is not an error.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	endpoint := getEnv("MINIO_ENDPOINT", "localhost:9000")
	useSSL := getEnvAsBool("MINIO_USE_SSL", false)

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    os.Getenv("LOG_LEVEL"),

		MongoURI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase: getEnv("MONGO_DATABASE", "urbanscope"),

		JWTSecret: os.Getenv("JWT_SECRET"),

		MinioEndpoint:  endpoint,
		MinioAccessKey: getEnv("MINIO_ACCESS_KEY", "minioadmin"),
		MinioSecretKey: getEnv("MINIO_SECRET_KEY", "minioadmin"),
		MinioBucket:    getEnv("MINIO_BUCKET", "urban-scope"),
		MinioUseSSL:    useSSL,
		MinioPublicURL: strings.TrimRight(getEnv("MINIO_PUBLIC_URL", defaultPublicURL(endpoint, useSSL)), "/"),

		SMTPHost:     getEnv("SMTP_HOST", "smtp.gmail.com"),
		SMTPPort:     getEnv("SMTP_PORT", "587"),
		SMTPUsername: os.Getenv("SMTP_USERNAME"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		EmailFrom:    getEnv("EMAIL_FROM", os.Getenv("SMTP_USERNAME")),

		ResetRateLimit: getEnvAsInt("RESET_RATE_LIMIT", 5),
		CORSOrigins:    getEnv("CORS_ORIGINS", "*"),
	}

	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	return cfg, nil
}

// SeedConfig drives the first-admin seed command.
type SeedConfig struct {
	MongoURI      string
	MongoDatabase string
	Username      string
	Email         string
	Password      string
}

func LoadSeed() (*SeedConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &SeedConfig{
		MongoURI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase: getEnv("MONGO_DATABASE", "urbanscope"),
		Username:      getEnv("SEED_ADMIN_USERNAME", "superadmin"),
		Email:         strings.ToLower(getEnv("SEED_ADMIN_EMAIL", "admin@urbanscope.local")),
		Password:      os.Getenv("SEED_ADMIN_PASSWORD"),
	}
	if len(cfg.Password) < 6 {
		return nil, errors.New("SEED_ADMIN_PASSWORD must be at least 6 characters")
	}
	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func defaultPublicURL(endpoint string, useSSL bool) string {
	if useSSL {
		return "https://" + endpoint
	}
	return "http://" + endpoint
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvAsInt retrieves environment variable as int with default value
func getEnvAsInt(key string, defaultVal int) int {
	valStr := os.Getenv(key)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(valStr)
	if err != nil {
		log.Printf("Invalid %s value, using default: %d", key, defaultVal)
		return defaultVal
	}
	return val
}

func getEnvAsBool(key string, defaultVal bool) bool {
	valStr := os.Getenv(key)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.ParseBool(valStr)
	if err != nil {
		log.Printf("Invalid %s value, using default: %t", key, defaultVal)
		return defaultVal
	}
	return val
}
