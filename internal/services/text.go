package services

import (
  "context"
  "strings"

  twilio "github.com/twilio/twilio-go"
  openapi "github.com/twilio/twilio-go/rest/api/v2010"

  "github.com/everything-automotive/ea-backend/internal/logger"
  "github.com/everything-automotive/ea-backend/internal/utils"
)

const whatsappPrefix = "whatsapp:"

type TextService interface {
  Configured() bool
  SendSMS(ctx context.Context, toNumbers []string, body string) bool
  SendWhatsApp(ctx context.Context, toNumbers []string, body string) bool
}

type messageCreator interface {
  CreateMessage(params *openapi.CreateMessageParams) (*openapi.ApiV2010Message, error)
}

type textService struct {
  log         *logger.Logger
  api         messageCreator
  from        string
}

// NewTextService returns a service that reports every send as failed when
// Twilio credentials are missing.
func NewTextService(log *logger.Logger, accountSid, authToken, fromNumber string) TextService {
  serviceLog := log.With("service", "TextService")
  if accountSid == "" || authToken == "" || fromNumber == "" {
    serviceLog.Warn("Missing Twilio env variables: TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN, TWILIO_FROM_NUMBER")
    return &textService{log: serviceLog}
  }
  client := twilio.NewRestClientWithParams(twilio.ClientParams{
    Username: accountSid,
    Password: authToken,
  })
  return &textService{
    log:      serviceLog,
    api:      client.Api,
    from:     fromNumber,
  }
}

func (ts *textService) Configured() bool {
  return ts.api != nil
}

func (ts *textService) SendSMS(ctx context.Context, toNumbers []string, body string) bool {
  return ts.sendEach(ctx, toNumbers, ts.from, body, "")
}

func (ts *textService) SendWhatsApp(ctx context.Context, toNumbers []string, body string) bool {
  return ts.sendEach(ctx, toNumbers, withWhatsAppPrefix(ts.from), body, whatsappPrefix)
}

// sendEach succeeds when at least one recipient accepted the message.
func (ts *textService) sendEach(ctx context.Context, toNumbers []string, from, body, prefix string) bool {
  if !ts.Configured() {
    ts.log.Warn("Text not sent, Twilio not configured")
    return false
  }
  recipients := utils.ValidRecipients(toNumbers)
  if len(recipients) == 0 {
    return false
  }
  sent := 0
  for _, number := range recipients {
    if ctx.Err() != nil {
      ts.log.Warn("Stopped sending texts", "error", ctx.Err())
      break
    }
    to := number
    if prefix != "" {
      to = withWhatsAppPrefix(number)
    }
    params := &openapi.CreateMessageParams{}
    params.SetTo(to)
    params.SetFrom(from)
    params.SetBody(body)

    resp, err := ts.api.CreateMessage(params)
    if err != nil {
      ts.log.Warn("Failed to send Text via Twilio", "toNumber", to, "error", err)
      continue
    }
    sid := ""
    if resp != nil && resp.Sid != nil {
      sid = *resp.Sid
    }
    ts.log.Info("Successfully sent Text via Twilio", "toNumber", to, "sid", sid)
    sent++
  }
  return sent > 0
}

func withWhatsAppPrefix(number string) string {
  if strings.HasPrefix(number, whatsappPrefix) {
    return number
  }
  return whatsappPrefix + number
}
