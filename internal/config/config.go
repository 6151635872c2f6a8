package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds everything the pipeline needs, sourced from the process
// environment with development defaults.
type Config struct {
	DBDriver    string
	DBDSN       string
	InputDir    string
	OutputDir   string
	MappingsDir string
	RulesFile   string
	Workers     int
	ServerPort  string

	// CronSchedule enables the in-process scheduler when non-empty
	// (six-field cron expression, with seconds).
	CronSchedule string

	// NATSURL enables the JetStream run event publisher when non-empty.
	NATSURL string

	// WebhookURL enables the webhook notifier when non-empty.
	WebhookURL             string
	WebhookPayloadTemplate string

	// EmailTo enables the email notifier when non-empty. Without SMTP
	// host and port the notifier logs the rendered email instead of
	// sending it.
	EmailTo   string
	EmailFrom string
	SMTPHost  string
	SMTPPort  string
	SMTPUser  string
	SMTPPass  string
}

// Load reads .env when present, then the environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on process environment")
	}

	return &Config{
		DBDriver:    getEnv("DB_DRIVER", "sqlite"),
		DBDSN:       getEnv("DB_DSN", filepath.Join("output", "warehouse.db")),
		InputDir:    getEnv("INPUT_DIR", "input"),
		OutputDir:   getEnv("OUTPUT_DIR", "output"),
		MappingsDir: getEnv("MAPPINGS_DIR", filepath.Join("mappings", "vendors")),
		RulesFile:   getEnv("RULES_FILE", filepath.Join("mappings", "relationship_normalization.yaml")),
		Workers:     getEnvInt("PIPELINE_WORKERS", 1),
		ServerPort:  getEnv("SERVER_PORT", "8081"),

		CronSchedule:           getEnv("PIPELINE_CRON", ""),
		NATSURL:                getEnv("NATS_URL", ""),
		WebhookURL:             getEnv("WEBHOOK_URL", ""),
		WebhookPayloadTemplate: getEnv("WEBHOOK_PAYLOAD_TEMPLATE", ""),

		EmailTo:   getEnv("EMAIL_TO", ""),
		EmailFrom: getEnv("EMAIL_FROM", ""),
		SMTPHost:  getEnv("SMTP_HOST", ""),
		SMTPPort:  getEnv("SMTP_PORT", ""),
		SMTPUser:  getEnv("SMTP_USER", ""),
		SMTPPass:  getEnv("SMTP_PASS", ""),
	}
}

// getEnv reads an environment variable with a fallback value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt reads an integer environment variable with a fallback value.
func getEnvInt(key string, fallback int) int {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Invalid integer for %s: %q, using default %d", key, value, fallback)
		return fallback
	}
	return n
}
