package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

var AppEnv Config

type Config struct {
	Port string

	// StoreDriver selects the document store: "mongo" or "memory".
	StoreDriver  string
	MongoURI     string
	DBName       string
	AppID        string
	PollInterval time.Duration

	InitialAuthToken string
	SessionToken     string
	JWTSecret        string
	SessionTTL       time.Duration
	OperatorPINHash  string

	RabbitMQURL    string
	NotifyExchange string

	ConfirmTTL time.Duration
}

func Load() {
	if err := godotenv.Load(); err != nil {
		log.Println(".env not loaded:", err)
	}
	AppEnv = Config{
		Port:             getEnvOrDefault("PORT", "8080"),
		StoreDriver:      strings.ToLower(getEnvOrDefault("STORE_DRIVER", "mongo")),
		MongoURI:         getEnvOrDefault("MONGO_URI", ""),
		DBName:           getEnvOrDefault("DB_NAME", "bbqpos"),
		AppID:            getEnvOrDefault("APP_ID", "default-app-id"),
		PollInterval:     getDurationEnv("POLL_INTERVAL", 2, time.Second),
		InitialAuthToken: getEnvOrDefault("INITIAL_AUTH_TOKEN", ""),
		SessionToken:     getEnvOrDefault("SESSION_TOKEN", ""),
		JWTSecret:        getEnvOrDefault("JWT_SECRET", ""),
		SessionTTL:       getDurationEnv("SESSION_TTL", 12, time.Hour),
		OperatorPINHash:  getEnvOrDefault("OPERATOR_PIN_HASH", ""),
		RabbitMQURL:      getEnvOrDefault("RABBITMQ_URL", ""),
		NotifyExchange:   getEnvOrDefault("NOTIFY_EXCHANGE", "pos_events"),
		ConfirmTTL:       getDurationEnv("CONFIRM_TTL", 120, time.Second),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue int, unit time.Duration) time.Duration {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			return time.Duration(parsed) * unit
		}
	}
	return time.Duration(defaultValue) * unit
}
