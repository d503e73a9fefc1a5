package services

import (
  "context"

  "golang.org/x/sync/errgroup"

  "github.com/everything-automotive/ea-backend/internal/logger"
  "github.com/everything-automotive/ea-backend/internal/metrics"
  "github.com/everything-automotive/ea-backend/internal/templates"
  "github.com/everything-automotive/ea-backend/internal/types"
  "github.com/everything-automotive/ea-backend/internal/utils"
)

const (
  ChannelEmail    = "email"
  ChannelSMS      = "sms"
  ChannelWhatsApp = "whatsapp"
)

type NotificationService interface {
  // NotifyAdmins returns the channels that reported a successful send.
  NotifyAdmins(ctx context.Context, subject, body, htmlBody string) []string
  NotifyCustomerRegistration(ctx context.Context, email string) bool
  NotifyCustomerOrderPlaced(ctx context.Context, email, orderNumber string) bool
  NotifyCustomerItemShipped(ctx context.Context, email, orderNumber, itemName string, etaDays *int) bool
}

type notificationService struct {
  log             *logger.Logger
  settings        SiteSettingsService
  email           EmailService
  text            TextService
  metrics         *metrics.Metrics
  companyName     string
}

func NewNotificationService(
  log             *logger.Logger,
  settings        SiteSettingsService,
  email           EmailService,
  text            TextService,
  m               *metrics.Metrics,
  company         types.CompanyInfo,
) NotificationService {
  serviceLog := log.With("service", "NotificationService")
  return &notificationService{
    log:          serviceLog,
    settings:     settings,
    email:        email,
    text:         text,
    metrics:      m,
    companyName:  company.Name,
  }
}

func (ns *notificationService) NotifyAdmins(ctx context.Context, subject, body, htmlBody string) []string {
  settings, err := ns.settings.AdminNotificationSettings(ctx)
  if err != nil {
    ns.log.Error("Could not fetch admin notification settings", "error", err)
    return nil
  }

  type send struct {
    channel   string
    fn        func(context.Context) bool
  }
  var sends []send

  emailTo := utils.ValidRecipients(settings.EmailRecipients)
  switch {
  case settings.EmailEnabled && len(emailTo) == 0:
    ns.log.Warn("Admin email enabled but no valid recipients configured")
  case settings.EmailEnabled && ns.email.Provider() == EmailProviderNone:
    ns.log.Warn("Admin email enabled but no email provider configured")
  case settings.EmailEnabled:
    html := htmlBody
    if html == "" {
      html = body
    }
    sends = append(sends, send{ChannelEmail, func(c context.Context) bool {
      return ns.email.SendEmail(c, emailTo, subject, body, html)
    }})
  }

  smsTo := utils.ValidRecipients(settings.SMSRecipients)
  switch {
  case settings.SMSEnabled && len(smsTo) == 0:
    ns.log.Warn("Admin SMS enabled but no valid recipients configured")
  case settings.SMSEnabled && !ns.text.Configured():
    ns.log.Warn("Admin SMS enabled but Twilio not configured")
  case settings.SMSEnabled:
    sends = append(sends, send{ChannelSMS, func(c context.Context) bool {
      return ns.text.SendSMS(c, smsTo, body)
    }})
  }

  waTo := utils.ValidRecipients(settings.WhatsAppRecipients)
  switch {
  case settings.WhatsAppEnabled && len(waTo) == 0:
    ns.log.Warn("Admin WhatsApp enabled but no valid recipients configured")
  case settings.WhatsAppEnabled && !ns.text.Configured():
    ns.log.Warn("Admin WhatsApp enabled but Twilio not configured")
  case settings.WhatsAppEnabled:
    sends = append(sends, send{ChannelWhatsApp, func(c context.Context) bool {
      return ns.text.SendWhatsApp(c, waTo, body)
    }})
  }

  if len(sends) == 0 {
    ns.log.Info("No admin notifications sent", "subject", subject)
    return nil
  }

  ns.log.Info("Sending admin notifications", "subject", subject, "channels", len(sends))
  results := make([]bool, len(sends))
  g, gctx := errgroup.WithContext(ctx)
  for i, s := range sends {
    g.Go(func() error {
      results[i] = s.fn(gctx)
      ns.metrics.ObserveNotification(s.channel, results[i])
      return nil
    })
  }
  _ = g.Wait()

  var delivered []string
  for i, s := range sends {
    if results[i] {
      delivered = append(delivered, s.channel)
    }
  }
  return delivered
}

func (ns *notificationService) NotifyCustomerRegistration(ctx context.Context, email string) bool {
  return ns.customer(ctx, email, templates.NotificationData{Kind: templates.NotificationRegistration})
}

func (ns *notificationService) NotifyCustomerOrderPlaced(ctx context.Context, email, orderNumber string) bool {
  return ns.customer(ctx, email, templates.NotificationData{
    Kind:        templates.NotificationOrderPlaced,
    OrderNumber: orderNumber,
  })
}

func (ns *notificationService) NotifyCustomerItemShipped(ctx context.Context, email, orderNumber, itemName string, etaDays *int) bool {
  return ns.customer(ctx, email, templates.NotificationData{
    Kind:        templates.NotificationItemShipped,
    OrderNumber: orderNumber,
    ItemName:    itemName,
    ETADays:     etaDays,
  })
}

func (ns *notificationService) customer(ctx context.Context, email string, data templates.NotificationData) bool {
  if ns.email.Provider() == EmailProviderNone {
    ns.log.Debug("Skipping customer notification, no email provider", "kind", data.Kind)
    return false
  }
  data.CompanyName = ns.companyName
  msg, err := templates.RenderNotification(data)
  if err != nil {
    ns.log.Error("Failed to render customer notification", "kind", data.Kind, "error", err)
    return false
  }
  ok := ns.email.SendEmail(ctx, []string{email}, msg.Subject, msg.Text, msg.HTML)
  ns.metrics.ObserveNotification(ChannelEmail, ok)
  return ok
}
