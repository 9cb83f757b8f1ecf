package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	JWTSecret   string
	MongoURI    string
	DBName      string
	SkipAuth    bool
	Environment string
	AppId       string

	// Retention for audit-style collections, enforced via Mongo TTL indexes.
	EventRetentionDays     int
	ExecutionRetentionDays int
	BulkRetentionDays      int

	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	SMTPFrom     string

	SlackWebhookURL string
	TeamsWebhookURL string

	ExportDir string // bulk export artifacts land here
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	} else {
		log.Println("Loaded .env file successfully")
	}

	return &Config{
		Port:        getEnv("PORT", "8080"),
		JWTSecret:   getEnv("JWT_SECRET", "secret"),
		MongoURI:    getEnv("MONGO_URI", "mongodb://localhost:27017"),
		DBName:      getEnv("DB_NAME", "go-fundadmin"),
		SkipAuth:    getEnv("SKIP_AUTH", "false") == "true",
		Environment: getEnv("ENVIRONMENT", "development"),
		AppId:       getEnv("APP_ID", "go-fundadmin"),

		EventRetentionDays:     getEnvInt("EVENT_RETENTION_DAYS", 90),
		ExecutionRetentionDays: getEnvInt("EXECUTION_RETENTION_DAYS", 90),
		BulkRetentionDays:      getEnvInt("BULK_RETENTION_DAYS", 180),

		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getEnvInt("SMTP_PORT", 587),
		SMTPUser:     getEnv("SMTP_USER", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		SMTPFrom:     getEnv("SMTP_FROM", ""),

		SlackWebhookURL: getEnv("SLACK_WEBHOOK_URL", ""),
		TeamsWebhookURL: getEnv("TEAMS_WEBHOOK_URL", ""),

		ExportDir: getEnv("EXPORT_DIR", "./exports"),
	}, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}
