package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

func ConnectDatabase() {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		getEnv("DATABASE_HOST", "localhost"),
		getEnv("DATABASE_USER", "postgres"),
		getEnv("DATABASE_PASSWORD", "postgres"),
		getEnv("DATABASE_NAME", "smashrank"),
		getEnv("DATABASE_PORT", "5432"),
		getEnv("DATABASE_SSLMODE", "disable"),
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	DB = db
	log.Println("Database connection established")
}

// ValkeyURL is where the pool index lives
func ValkeyURL() string {
	return getEnv("VALKEY_URL", "redis://localhost:6379")
}

// RematchWindow is how long a rematch offer stays open
func RematchWindow() time.Duration {
	return time.Duration(getEnvInt("MATCH_REMATCH_TIMEOUT_SECONDS", 20)) * time.Second
}

// EloLockTimeoutMS bounds how long a rating transaction waits on row locks
func EloLockTimeoutMS() int {
	return getEnvInt("ELO_LOCK_TIMEOUT_MS", 5000)
}

func Port() string {
	return getEnv("PORT", "8080")
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Invalid %s=%q, using default %d", key, value, fallback)
		return fallback
	}
	return parsed
}
