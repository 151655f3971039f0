package mailer

import (
	"bytes"
	"fmt"
	"html/template"
	"log"
	"net/smtp"
)

// Config holds SMTP configuration
type Config struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	FromName string
}

// Mailer handles sending emails
type Mailer struct {
	config Config
}

// New creates a new Mailer instance
func New(cfg Config) *Mailer {
	return &Mailer{config: cfg}
}

// SendExpiryNotice sends a subscription expiry notice. Used as the
// fallback channel when chat delivery fails.
func (m *Mailer) SendExpiryNotice(toEmail, name, body string) error {
	subject := "LicGate - About your subscription"

	html, err := m.renderExpiryTemplate(name, body)
	if err != nil {
		return fmt.Errorf("failed to render email template: %w", err)
	}

	return m.send(toEmail, subject, html)
}

// send delivers an email via SMTP
func (m *Mailer) send(to, subject, htmlBody string) error {
	addr := fmt.Sprintf("%s:%s", m.config.Host, m.config.Port)

	headers := map[string]string{
		"From":         fmt.Sprintf("%s <%s>", m.config.FromName, m.config.From),
		"To":           to,
		"Subject":      subject,
		"MIME-Version": "1.0",
		"Content-Type": "text/html; charset=\"utf-8\"",
	}

	var msg bytes.Buffer
	for k, v := range headers {
		msg.WriteString(fmt.Sprintf("%s: %s\r\n", k, v))
	}
	msg.WriteString("\r\n")
	msg.WriteString(htmlBody)

	var auth smtp.Auth
	if m.config.Username != "" && m.config.Password != "" {
		auth = smtp.PlainAuth("", m.config.Username, m.config.Password, m.config.Host)
	}

	err := smtp.SendMail(addr, auth, m.config.From, []string{to}, msg.Bytes())
	if err != nil {
		log.Printf("❌ Failed to send email to %s: %v", to, err)
		return fmt.Errorf("failed to send email: %w", err)
	}

	log.Printf("📧 Email sent to %s: %s", to, subject)
	return nil
}

// renderExpiryTemplate returns the HTML body for the expiry notice email
func (m *Mailer) renderExpiryTemplate(name, body string) (string, error) {
	tmpl := `<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="margin:0;padding:0;background-color:#0f172a;font-family:'Segoe UI',Tahoma,Geneva,Verdana,sans-serif;">
    <div style="max-width:500px;margin:40px auto;background:#1e293b;border-radius:16px;overflow:hidden;border:1px solid rgba(56,189,248,0.2);">
        <!-- Header -->
        <div style="background:linear-gradient(135deg,#0ea5e9 0%,#6366f1 100%);padding:32px;text-align:center;">
            <h1 style="color:#fff;margin:0;font-size:28px;font-weight:700;">🔑 LicGate</h1>
            <p style="color:rgba(255,255,255,0.85);margin:8px 0 0;font-size:14px;">Subscription Notice</p>
        </div>

        <!-- Body -->
        <div style="padding:32px;">
            <p style="color:#e2e8f0;font-size:16px;line-height:1.6;margin:0 0 24px;">
                Hi <strong style="color:#7dd3fc;">{{.Name}}</strong>,
            </p>
            <p style="color:#94a3b8;font-size:14px;line-height:1.6;margin:0 0 24px;">
                {{.Body}}
            </p>
            <p style="color:#64748b;font-size:13px;line-height:1.5;margin:0;">
                If you already renewed, please ignore this email.
            </p>
        </div>

        <!-- Footer -->
        <div style="padding:16px 32px;border-top:1px solid rgba(56,189,248,0.1);text-align:center;">
            <p style="color:#475569;font-size:12px;margin:0;">© 2026 LicGate. All rights reserved.</p>
        </div>
    </div>
</body>
</html>`

	t, err := template.New("expiry").Parse(tmpl)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	err = t.Execute(&buf, map[string]interface{}{
		"Name": name,
		"Body": body,
	})
	return buf.String(), err
}
