package services

import (
  "context"
  "crypto/tls"
  "fmt"
  "net"
  "net/smtp"
  "strings"
  "time"

  "github.com/sendgrid/rest"
  "github.com/sendgrid/sendgrid-go"
  "github.com/sendgrid/sendgrid-go/helpers/mail"

  "github.com/everything-automotive/ea-backend/internal/logger"
  "github.com/everything-automotive/ea-backend/internal/utils"
)

const (
  EmailProviderSendGrid = "sendgrid"
  EmailProviderSMTP     = "smtp"
  EmailProviderNone     = "none"
)

// EmailService sends one message to a list of addresses. It reports
// success instead of failing so callers can fire and forget.
type EmailService interface {
  Provider() string
  SendEmail(ctx context.Context, toEmails []string, subject, plainText, htmlContent string) bool
}

type EmailConfig struct {
  FromName          string
  SendGridAPIKey    string
  SendGridFrom      string
  SMTPHost          string
  SMTPPort          int
  SMTPUser          string
  SMTPPassword      string
}

// NewEmailService picks SendGrid when it is configured and falls back to
// SMTP, then to a service that only logs.
func NewEmailService(log *logger.Logger, cfg EmailConfig) EmailService {
  serviceLog := log.With("service", "EmailService")
  if cfg.SMTPHost == "" {
    cfg.SMTPHost = "smtp.gmail.com"
  }
  if cfg.SMTPPort == 0 {
    cfg.SMTPPort = 465
  }
  switch {
  case cfg.SendGridAPIKey != "" && cfg.SendGridFrom != "":
    serviceLog.Info("Using SendGrid for outbound email", "from", cfg.SendGridFrom)
    return &sendgridEmailService{
      log:      serviceLog,
      client:   sendgrid.NewSendClient(cfg.SendGridAPIKey),
      fromName: cfg.FromName,
      from:     cfg.SendGridFrom,
    }
  case cfg.SMTPUser != "" && cfg.SMTPPassword != "":
    serviceLog.Info("SendGrid not configured, using SMTP for outbound email", "host", cfg.SMTPHost)
    return &smtpEmailService{log: serviceLog, cfg: cfg, dialTimeout: 15 * time.Second}
  default:
    serviceLog.Warn("No email provider configured; outbound email disabled")
    return &noopEmailService{log: serviceLog}
  }
}

type sendgridClient interface {
  SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

type sendgridEmailService struct {
  log             *logger.Logger
  client          sendgridClient
  fromName        string
  from            string
}

func (es *sendgridEmailService) Provider() string { return EmailProviderSendGrid }

func (es *sendgridEmailService) SendEmail(ctx context.Context, toEmails []string, subject, plainText, htmlContent string) bool {
  recipients := utils.ValidRecipients(toEmails)
  if len(recipients) == 0 {
    es.log.Warn("No valid email recipients", "subject", subject)
    return false
  }
  if htmlContent == "" {
    htmlContent = plainText
  }
  message := mail.NewV3Mail()
  message.SetFrom(mail.NewEmail(es.fromName, es.from))
  message.Subject = subject
  p := mail.NewPersonalization()
  for _, r := range recipients {
    p.AddTos(mail.NewEmail("", r))
  }
  message.AddPersonalizations(p)
  if plainText != "" {
    message.AddContent(mail.NewContent("text/plain", plainText))
  }
  message.AddContent(mail.NewContent("text/html", htmlContent))

  response, err := es.client.SendWithContext(ctx, message)
  if err != nil {
    es.log.Warn("Sendgrid email send failed", "error", err)
    return false
  }
  if response.StatusCode < 200 || response.StatusCode > 299 {
    es.log.Warn("Sendgrid rejected email", "statusCode", response.StatusCode, "body", response.Body)
    return false
  }
  es.log.Info("Email sent", "recipients", len(recipients), "statusCode", response.StatusCode)
  return true
}

type smtpEmailService struct {
  log             *logger.Logger
  cfg             EmailConfig
  dialTimeout     time.Duration
}

func (es *smtpEmailService) Provider() string { return EmailProviderSMTP }

func (es *smtpEmailService) SendEmail(ctx context.Context, toEmails []string, subject, plainText, htmlContent string) bool {
  recipients := utils.ValidRecipients(toEmails)
  if len(recipients) == 0 {
    es.log.Warn("No valid email recipients", "subject", subject)
    return false
  }
  if plainText == "" {
    plainText = htmlContent
  }
  msg := buildPlainMessage(fmt.Sprintf("%s <%s>", es.cfg.FromName, es.cfg.SMTPUser), recipients, subject, plainText)
  if err := es.send(ctx, recipients, msg); err != nil {
    es.log.Warn("SMTP email send failed", "error", err)
    return false
  }
  es.log.Info("Email sent via SMTP", "recipients", len(recipients))
  return true
}

func (es *smtpEmailService) send(ctx context.Context, recipients []string, msg []byte) error {
  addr := net.JoinHostPort(es.cfg.SMTPHost, fmt.Sprint(es.cfg.SMTPPort))
  dialer := &tls.Dialer{
    NetDialer: &net.Dialer{Timeout: es.dialTimeout},
    Config:    &tls.Config{ServerName: es.cfg.SMTPHost, MinVersion: tls.VersionTLS12},
  }
  conn, err := dialer.DialContext(ctx, "tcp", addr)
  if err != nil {
    return fmt.Errorf("dial %s: %w", addr, err)
  }
  client, err := smtp.NewClient(conn, es.cfg.SMTPHost)
  if err != nil {
    conn.Close()
    return fmt.Errorf("smtp handshake: %w", err)
  }
  defer client.Close()

  if err := client.Auth(smtp.PlainAuth("", es.cfg.SMTPUser, es.cfg.SMTPPassword, es.cfg.SMTPHost)); err != nil {
    return fmt.Errorf("smtp auth: %w", err)
  }
  if err := client.Mail(es.cfg.SMTPUser); err != nil {
    return fmt.Errorf("smtp mail from: %w", err)
  }
  for _, r := range recipients {
    if err := client.Rcpt(r); err != nil {
      return fmt.Errorf("smtp rcpt %s: %w", r, err)
    }
  }
  w, err := client.Data()
  if err != nil {
    return fmt.Errorf("smtp data: %w", err)
  }
  if _, err := w.Write(msg); err != nil {
    w.Close()
    return fmt.Errorf("smtp write: %w", err)
  }
  if err := w.Close(); err != nil {
    return fmt.Errorf("smtp close data: %w", err)
  }
  return client.Quit()
}

func buildPlainMessage(from string, to []string, subject, body string) []byte {
  var b strings.Builder
  b.WriteString("From: " + from + "\r\n")
  b.WriteString("To: " + strings.Join(to, ", ") + "\r\n")
  b.WriteString("Subject: " + subject + "\r\n")
  b.WriteString("MIME-Version: 1.0\r\n")
  b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
  b.WriteString("\r\n")
  b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
  return []byte(b.String())
}

type noopEmailService struct {
  log             *logger.Logger
}

func (es *noopEmailService) Provider() string { return EmailProviderNone }

func (es *noopEmailService) SendEmail(ctx context.Context, toEmails []string, subject, plainText, htmlContent string) bool {
  es.log.Warn("Email not sent, no provider configured", "subject", subject)
  return false
}
