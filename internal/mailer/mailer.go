package mailer

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/smtp"
	"strings"
	"time"

	"go.uber.org/zap"
)

type Config struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

// SMTPMailer delivers the transactional emails over SMTP. It holds no per-request
// state and is shared by all handlers.
type SMTPMailer struct {
	cfg      Config
	log      *zap.Logger
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPMailer(cfg Config, log *zap.Logger) *SMTPMailer {
	return &SMTPMailer{cfg: cfg, log: log, sendMail: smtp.SendMail}
}

const brand = "UrbanScope"

var resetTemplate = template.Must(template.New("reset").Parse(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <div style="background: #667eea; padding: 30px; text-align: center; color: white;">
    <h1 style="margin: 0; font-size: 24px;">{{.Brand}}</h1>
  </div>
  <div style="padding: 30px; background: #f9f9f9;">
    <h2 style="color: #333;">Hello {{.Username}},</h2>
    <p style="color: #666;">You requested a password reset for your account. Use the verification code below to reset your password:</p>
    <div style="text-align: center; margin: 30px 0;">
      <div style="background: #333; color: white; padding: 20px; font-size: 32px; font-weight: bold; letter-spacing: 8px; border-radius: 8px; display: inline-block;">{{.Code}}</div>
    </div>
    <p style="color: #666;">This code will expire in {{.ValidFor}} for security reasons.</p>
    <p style="color: #666;">If you didn't request this, please ignore this email and your password will remain unchanged.</p>
  </div>
  <div style="background: #333; padding: 20px; text-align: center; color: #999;">
    <p style="margin: 0; font-size: 14px;">&copy; {{.Year}} {{.Brand}}. All rights reserved.</p>
  </div>
</div>`))

var welcomeTemplate = template.Must(template.New("welcome").Parse(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <div style="background: #667eea; padding: 30px; text-align: center; color: white;">
    <h1 style="margin: 0; font-size: 24px;">Welcome to {{.Brand}}!</h1>
  </div>
  <div style="padding: 30px; background: #f9f9f9;">
    <h2 style="color: #333;">Hello {{.Username}},</h2>
    <p style="color: #666;">Thank you for registering with {{.Brand}}! We're excited to have you on board.</p>
    <p style="color: #666;">Start exploring properties and find your dream home today!</p>
  </div>
  <div style="background: #333; padding: 20px; text-align: center; color: #999;">
    <p style="margin: 0; font-size: 14px;">&copy; {{.Year}} {{.Brand}}. All rights reserved.</p>
  </div>
</div>`))

// SendPasswordReset mails the plaintext reset code to the account owner.
func (m *SMTPMailer) SendPasswordReset(ctx context.Context, to, username, code string, validFor time.Duration) error {
	return m.send(ctx, to, "Password Reset Code - "+brand, resetTemplate, map[string]any{
		"Brand":    brand,
		"Username": username,
		"Code":     code,
		"ValidFor": humanMinutes(validFor),
		"Year":     time.Now().Year(),
	})
}

func (m *SMTPMailer) SendWelcome(ctx context.Context, to, username string) error {
	return m.send(ctx, to, "Welcome to "+brand+"!", welcomeTemplate, map[string]any{
		"Brand":    brand,
		"Username": username,
		"Year":     time.Now().Year(),
	})
}

func (m *SMTPMailer) send(ctx context.Context, to, subject string, tmpl *template.Template, data any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg, err := m.buildMessage(to, subject, tmpl, data)
	if err != nil {
		return err
	}

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	if err := m.sendMail(m.cfg.Host+":"+m.cfg.Port, auth, m.cfg.From, []string{to}, msg); err != nil {
		m.log.Error("Error sending email", zap.String("to", to), zap.String("subject", subject), zap.Error(err))
		return fmt.Errorf("send email: %w", err)
	}

	m.log.Info("Email sent", zap.String("to", to), zap.String("subject", subject))
	return nil
}

func (m *SMTPMailer) buildMessage(to, subject string, tmpl *template.Template, data any) ([]byte, error) {
	var body bytes.Buffer
	if err := tmpl.Execute(&body, data); err != nil {
		return nil, fmt.Errorf("render %s: %w", tmpl.Name(), err)
	}

	headers := []string{
		fmt.Sprintf("From: %q <%s>", brand, m.cfg.From),
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		`Content-Type: text/html; charset="utf-8"`,
	}

	var message strings.Builder
	for _, h := range headers {
		message.WriteString(h + "\r\n")
	}
	message.WriteString("\r\n")
	message.Write(body.Bytes())
	return []byte(message.String()), nil
}

func humanMinutes(d time.Duration) string {
	mins := int(d.Minutes())
	if mins == 1 {
		return "1 minute"
	}
	return fmt.Sprintf("%d minutes", mins)
}
