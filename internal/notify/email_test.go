package notify

import (
	"bytes"
	"context"
	"log"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/eligibility/internal/pipeline"
	"example.com/eligibility/internal/silver"
)

// Helper to capture log output for verification
func captureOutput(f func()) string {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	f()
	log.SetOutput(os.Stderr) // Reset to default
	return buf.String()
}

func TestNewEmailNotifier(t *testing.T) {
	t.Run("Requires at least one recipient", func(t *testing.T) {
		_, err := NewEmailNotifier(EmailConfig{To: "   "})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "at least one recipient")
	})

	t.Run("Defaults the From address when unset", func(t *testing.T) {
		var n *EmailNotifier
		var err error
		output := captureOutput(func() {
			n, err = NewEmailNotifier(EmailConfig{To: "ops@example.com"})
		})
		require.NoError(t, err)
		require.NotNil(t, n)
		assert.Contains(t, output, "EMAIL_FROM not set")
		assert.Contains(t, output, "Email sending will be simulated")
	})

	t.Run("Malformed subject template is rejected", func(t *testing.T) {
		_, err := NewEmailNotifier(EmailConfig{
			To:              "ops@example.com",
			SubjectTemplate: "{{.LoadRunID",
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "error parsing email subject template")
	})

	t.Run("Malformed body template is rejected", func(t *testing.T) {
		_, err := NewEmailNotifier(EmailConfig{
			To:           "ops@example.com",
			BodyTemplate: "{{if .Status}}no end",
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "error parsing email body template")
	})
}

func TestEmailNotifierNotifyRun(t *testing.T) {
	ctx := context.Background()

	t.Run("Simulation mode logs the full rendered email", func(t *testing.T) {
		n, err := NewEmailNotifier(EmailConfig{
			From: "pipeline@example.com",
			To:   "ops@example.com; oncall@example.com",
		})
		require.NoError(t, err)

		report := sampleReport(pipeline.StatusSucceeded)
		report.Ingestion.TotalRead = 43
		report.Silver = &silver.Result{RowsWritten: 40, RowsRejected: 1}

		output := captureOutput(func() {
			require.NoError(t, n.NotifyRun(ctx, report))
		})

		assert.Contains(t, output, "SIMULATING EMAIL SEND for run run1")
		assert.Contains(t, output, "To: ops@example.com, oncall@example.com")
		assert.Contains(t, output, "From: pipeline@example.com")
		assert.Contains(t, output, "Subject: Eligibility pipeline run run1: succeeded")
		assert.Contains(t, output, "Ingestion: 41 of 43 rows persisted, 2 skipped, 1 vendor(s) failed.")
		assert.Contains(t, output, "Silver: 40 rows normalized, 1 rejected.")
		assert.NotContains(t, output, "Error:", "successful runs carry no error line")
	})

	t.Run("Failed runs include the error line", func(t *testing.T) {
		n, err := NewEmailNotifier(EmailConfig{To: "ops@example.com"})
		require.NoError(t, err)

		report := sampleReport(pipeline.StatusFailed)
		report.Error = "manifest stage failed for run run1"

		output := captureOutput(func() {
			require.NoError(t, n.NotifyRun(ctx, report))
		})
		assert.Contains(t, output, "Subject: Eligibility pipeline run run1: failed")
		assert.Contains(t, output, "Error: manifest stage failed for run run1")
	})

	t.Run("Stages that did not run are omitted from the body", func(t *testing.T) {
		n, err := NewEmailNotifier(EmailConfig{To: "ops@example.com"})
		require.NoError(t, err)

		report := sampleReport(pipeline.StatusFailed)
		report.Ingestion = nil
		report.Silver = nil
		report.Error = "manifest: permission denied"

		output := captureOutput(func() {
			require.NoError(t, n.NotifyRun(ctx, report))
		})
		assert.NotContains(t, output, "Ingestion:")
		assert.NotContains(t, output, "Silver:")
	})

	t.Run("Custom subject template is used", func(t *testing.T) {
		n, err := NewEmailNotifier(EmailConfig{
			To:              "ops@example.com",
			SubjectTemplate: "[{{.Status}}] eligibility run {{.LoadRunID}}",
		})
		require.NoError(t, err)

		output := captureOutput(func() {
			require.NoError(t, n.NotifyRun(ctx, sampleReport(pipeline.StatusSucceeded)))
		})
		assert.Contains(t, output, "Subject: [succeeded] eligibility run run1")
	})

	t.Run("Template that fails at render time is an error", func(t *testing.T) {
		n, err := NewEmailNotifier(EmailConfig{
			To:              "ops@example.com",
			SubjectTemplate: "{{.NoSuchField}}",
		})
		require.NoError(t, err, "parse succeeds, the failure only shows at render time")

		err = n.NotifyRun(ctx, sampleReport(pipeline.StatusSucceeded))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "error rendering email subject")
	})
}

func TestParseRecipientList(t *testing.T) {
	t.Run("Handles various formats", func(t *testing.T) {
		assert.Equal(t, []string{"a@b.com"}, parseRecipientList("a@b.com"))
		assert.Equal(t, []string{"a@b.com", "c@d.com"}, parseRecipientList("a@b.com,c@d.com"))
		assert.Equal(t, []string{"a@b.com", "c@d.com"}, parseRecipientList("a@b.com;c@d.com"))
		assert.Equal(t, []string{"a@b.com", "c@d.com", "e@f.com"}, parseRecipientList("a@b.com, c@d.com; e@f.com"))
		assert.Equal(t, []string{}, parseRecipientList(""))
		assert.Equal(t, []string{}, parseRecipientList("   "))
		assert.Equal(t, []string{"a@b.com"}, parseRecipientList("  a@b.com  "))
	})
}
