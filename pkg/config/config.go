package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Storage drivers for post documents
const (
	StorageMongo  = "mongo"
	StorageBadger = "badger"
	StorageMemory = "memory"
)

// Auth providers
const (
	AuthJWT      = "jwt"
	AuthFirebase = "firebase"
)

type Config struct {
	Port                    string `validate:"required,numeric"`
	Env                     string
	LogLevel                string
	StorageDriver           string `validate:"oneof=mongo badger memory"`
	MongoURI                string `validate:"required_if=StorageDriver mongo"`
	MongoDatabase           string `validate:"required"`
	BadgerPath              string `validate:"required_if=StorageDriver badger"`
	PostgresConnStr         string
	AuthProvider            string `validate:"oneof=jwt firebase"`
	JWTSecret               string
	FirebaseCredentialsPath string `validate:"required_if=AuthProvider firebase"`
	MetricsPort             string `validate:"omitempty,numeric"`
	ConflictRetries         int    `validate:"min=0,max=100"`
}

// Load reads the configuration from the environment, after loading an
// optional .env file, and validates it.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, assuming environment variables are set.")
	}

	retries, err := strconv.Atoi(getEnv("CONFLICT_RETRIES", "3"))
	if err != nil {
		return nil, fmt.Errorf("CONFLICT_RETRIES must be an integer: %w", err)
	}

	cfg := &Config{
		Port:                    getEnv("PORT", "8080"),
		Env:                     getEnv("ENV", "development"),
		LogLevel:                getEnv("LOG_LEVEL", "info"),
		StorageDriver:           getEnv("STORAGE_DRIVER", StorageMongo),
		MongoURI:                getEnv("MONGO_URI", ""),
		MongoDatabase:           getEnv("MONGO_DATABASE", "memoria"),
		BadgerPath:              getEnv("BADGER_PATH", "./data/badger"),
		PostgresConnStr:         getEnv("POSTGRES_CONN_STR", ""),
		AuthProvider:            getEnv("AUTH_PROVIDER", AuthJWT),
		JWTSecret:               getEnv("JWT_SECRET", ""),
		FirebaseCredentialsPath: getEnv("FIREBASE_CREDENTIALS_PATH", ""),
		MetricsPort:             getEnv("METRICS_PORT", "9090"),
		ConflictRetries:         retries,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints and cross-field rules
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.AuthProvider == AuthJWT && c.JWTSecret == "" && c.Env != "development" {
		return fmt.Errorf("invalid configuration: JWT_SECRET must be set outside development")
	}
	return nil
}

// Secret returns the JWT signing secret, with a fixed fallback in development
func (c *Config) Secret() string {
	if c.JWTSecret == "" {
		return "supersecretjwtkey"
	}
	return c.JWTSecret
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
