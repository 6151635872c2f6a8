package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

var allKeys = []string{
	"DB_DRIVER", "DB_DSN", "INPUT_DIR", "OUTPUT_DIR", "MAPPINGS_DIR",
	"RULES_FILE", "PIPELINE_WORKERS", "SERVER_PORT", "PIPELINE_CRON",
	"NATS_URL", "WEBHOOK_URL", "WEBHOOK_PAYLOAD_TEMPLATE",
	"EMAIL_TO", "EMAIL_FROM", "SMTP_HOST", "SMTP_PORT", "SMTP_USER", "SMTP_PASS",
}

// clearEnv unsets every config key for the duration of the test.
// t.Setenv registers the restore, the explicit unset makes LookupEnv miss.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range allKeys {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoad(t *testing.T) {
	t.Run("Defaults apply when the environment is empty", func(t *testing.T) {
		clearEnv(t)

		cfg := Load()
		assert.Equal(t, "sqlite", cfg.DBDriver)
		assert.Equal(t, filepath.Join("output", "warehouse.db"), cfg.DBDSN)
		assert.Equal(t, "input", cfg.InputDir)
		assert.Equal(t, "output", cfg.OutputDir)
		assert.Equal(t, filepath.Join("mappings", "vendors"), cfg.MappingsDir)
		assert.Equal(t, filepath.Join("mappings", "relationship_normalization.yaml"), cfg.RulesFile)
		assert.Equal(t, 1, cfg.Workers)
		assert.Equal(t, "8081", cfg.ServerPort)
		assert.Empty(t, cfg.CronSchedule)
		assert.Empty(t, cfg.NATSURL)
		assert.Empty(t, cfg.WebhookURL)
		assert.Empty(t, cfg.EmailTo)
		assert.Empty(t, cfg.SMTPHost)
	})

	t.Run("Environment values override the defaults", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("DB_DRIVER", "postgres")
		t.Setenv("DB_DSN", "host=localhost user=pipeline dbname=eligibility")
		t.Setenv("INPUT_DIR", "/data/extracts")
		t.Setenv("PIPELINE_WORKERS", "8")
		t.Setenv("PIPELINE_CRON", "0 0 2 * * *")
		t.Setenv("NATS_URL", "nats://localhost:4222")
		t.Setenv("WEBHOOK_URL", "https://hooks.example.com/runs")
		t.Setenv("EMAIL_TO", "ops@example.com;oncall@example.com")
		t.Setenv("SMTP_HOST", "smtp.example.com")
		t.Setenv("SMTP_PORT", "587")

		cfg := Load()
		assert.Equal(t, "postgres", cfg.DBDriver)
		assert.Equal(t, "host=localhost user=pipeline dbname=eligibility", cfg.DBDSN)
		assert.Equal(t, "/data/extracts", cfg.InputDir)
		assert.Equal(t, 8, cfg.Workers)
		assert.Equal(t, "0 0 2 * * *", cfg.CronSchedule)
		assert.Equal(t, "nats://localhost:4222", cfg.NATSURL)
		assert.Equal(t, "https://hooks.example.com/runs", cfg.WebhookURL)
		assert.Equal(t, "ops@example.com;oncall@example.com", cfg.EmailTo)
		assert.Equal(t, "smtp.example.com", cfg.SMTPHost)
		assert.Equal(t, "587", cfg.SMTPPort)
	})

	t.Run("Invalid worker count falls back to the default", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("PIPELINE_WORKERS", "three")

		cfg := Load()
		assert.Equal(t, 1, cfg.Workers)
	})

	t.Run("An explicitly empty variable is still a value", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("SERVER_PORT", "")

		cfg := Load()
		assert.Empty(t, cfg.ServerPort)
	})
}

func TestGetEnvInt(t *testing.T) {
	t.Run("Parses a valid integer", func(t *testing.T) {
		t.Setenv("TEST_INT_VAR", "42")
		assert.Equal(t, 42, getEnvInt("TEST_INT_VAR", 7))
	})

	t.Run("Missing variable uses the fallback", func(t *testing.T) {
		os.Unsetenv("TEST_INT_VAR_MISSING")
		assert.Equal(t, 7, getEnvInt("TEST_INT_VAR_MISSING", 7))
	})

	t.Run("Garbage uses the fallback", func(t *testing.T) {
		t.Setenv("TEST_INT_VAR", "4x2")
		assert.Equal(t, 7, getEnvInt("TEST_INT_VAR", 7))
	})
}
