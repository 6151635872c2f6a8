package notify

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"net/smtp"
	"strings"
	"text/template"

	"example.com/eligibility/internal/pipeline"
)

// Default templates rendered against the RunReport when no custom
// templates are configured.
const (
	DefaultEmailSubject = "Eligibility pipeline run {{.LoadRunID}}: {{.Status}}"

	DefaultEmailBody = `Pipeline run {{.LoadRunID}} finished with status {{.Status}}.
{{- if .Error}}
Error: {{.Error}}
{{- end}}
{{- with .Ingestion}}
Ingestion: {{.TotalIngested}} of {{.TotalRead}} rows persisted, {{.TotalSkipped}} skipped, {{.VendorsFailed}} vendor(s) failed.
{{- end}}
{{- with .Silver}}
Silver: {{.RowsWritten}} rows normalized, {{.RowsRejected}} rejected.
{{- end}}
`
)

// EmailConfig holds SMTP settings and the report templates. Leaving Host
// or Port empty puts the notifier in simulation mode: the rendered email
// is logged instead of sent, which keeps local runs working without a
// mail relay.
type EmailConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string

	// To is a comma or semicolon separated recipient list.
	To string

	SubjectTemplate string
	BodyTemplate    string
}

// EmailNotifier mails a run summary to a fixed recipient list when a
// pipeline run finishes.
type EmailNotifier struct {
	cfg        EmailConfig
	subject    *template.Template
	body       *template.Template
	recipients []string
}

// NewEmailNotifier parses the templates and recipient list up front so
// configuration mistakes surface at startup, not on the first run.
func NewEmailNotifier(cfg EmailConfig) (*EmailNotifier, error) {
	recipients := parseRecipientList(cfg.To)
	if len(recipients) == 0 {
		return nil, fmt.Errorf("email notifier needs at least one recipient, got %q", cfg.To)
	}
	if cfg.From == "" {
		cfg.From = "noreply@example.com"
		log.Printf("EMAIL_FROM not set, using default: %s", cfg.From)
	}

	subjectTmpl := cfg.SubjectTemplate
	if subjectTmpl == "" {
		subjectTmpl = DefaultEmailSubject
	}
	bodyTmpl := cfg.BodyTemplate
	if bodyTmpl == "" {
		bodyTmpl = DefaultEmailBody
	}

	subject, err := template.New("subject").Parse(subjectTmpl)
	if err != nil {
		return nil, fmt.Errorf("error parsing email subject template: %w", err)
	}
	body, err := template.New("body").Parse(bodyTmpl)
	if err != nil {
		return nil, fmt.Errorf("error parsing email body template: %w", err)
	}

	if cfg.Host == "" || cfg.Port == "" {
		log.Println("Warning: SMTP host or port not configured. Email sending will be simulated.")
	}

	return &EmailNotifier{
		cfg:        cfg,
		subject:    subject,
		body:       body,
		recipients: recipients,
	}, nil
}

// NotifyRun renders the subject and body for a finished run and delivers
// the message, or logs it verbatim in simulation mode.
func (e *EmailNotifier) NotifyRun(ctx context.Context, report *pipeline.RunReport) error {
	subject, err := renderTemplate(e.subject, report)
	if err != nil {
		return fmt.Errorf("run %s: error rendering email subject: %w", report.LoadRunID, err)
	}
	body, err := renderTemplate(e.body, report)
	if err != nil {
		return fmt.Errorf("run %s: error rendering email body: %w", report.LoadRunID, err)
	}

	var msg strings.Builder
	msg.WriteString(fmt.Sprintf("From: %s\r\n", e.cfg.From))
	msg.WriteString(fmt.Sprintf("To: %s\r\n", strings.Join(e.recipients, ", ")))
	msg.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body)

	if e.cfg.Host == "" || e.cfg.Port == "" {
		log.Printf("SIMULATING EMAIL SEND for run %s:\n---BEGIN EMAIL---\nTo: %s\nFrom: %s\nSubject: %s\n\n%s\n---END EMAIL---",
			report.LoadRunID, strings.Join(e.recipients, ", "), e.cfg.From, subject, body)
		return nil
	}

	auth := smtp.PlainAuth("", e.cfg.Username, e.cfg.Password, e.cfg.Host)
	addr := fmt.Sprintf("%s:%s", e.cfg.Host, e.cfg.Port)
	if err := smtp.SendMail(addr, auth, e.cfg.From, e.recipients, []byte(msg.String())); err != nil {
		return fmt.Errorf("run %s: error sending email via %s: %w", report.LoadRunID, addr, err)
	}
	log.Printf("Run %s: email sent to %s via %s", report.LoadRunID, strings.Join(e.recipients, ", "), addr)
	return nil
}

func renderTemplate(tmpl *template.Template, report *pipeline.RunReport) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, report); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// parseRecipientList parses a comma or semicolon separated list of emails.
func parseRecipientList(recipientsStr string) []string {
	if strings.TrimSpace(recipientsStr) == "" {
		return []string{}
	}
	normalized := strings.ReplaceAll(recipientsStr, ";", ",")

	var recipients []string
	for _, r := range strings.Split(normalized, ",") {
		trimmed := strings.TrimSpace(r)
		if trimmed != "" {
			recipients = append(recipients, trimmed)
		}
	}
	if recipients == nil {
		return []string{}
	}
	return recipients
}
