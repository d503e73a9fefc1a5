package types

const (
  AdminNotifySMSEnabledKey        = "admin_notify_sms_enabled"
  AdminNotifyWhatsAppEnabledKey   = "admin_notify_whatsapp_enabled"
  AdminNotifyEmailEnabledKey      = "admin_notify_email_enabled"
)

var (
  AdminSMSRecipientKeys         = []string{"admin_notification_sms_1", "admin_notification_sms_2", "admin_notification_sms_3"}
  AdminWhatsAppRecipientKeys    = []string{"admin_notification_whatsapp_1", "admin_notification_whatsapp_2", "admin_notification_whatsapp_3"}
  AdminEmailRecipientKeys       = []string{"admin_notification_email_1", "admin_notification_email_2", "admin_notification_email_3"}
)

type SiteInformation struct {
  InfoKey             string                    `gorm:"column:info_key;primaryKey"`
  InfoValue           *string                   `gorm:"column:info_value"`
}

func (SiteInformation) TableName() string {
  return "site_information"
}

type AdminNotificationSettings struct {
  SMSEnabled          bool                      `json:"sms_enabled"`
  WhatsAppEnabled     bool                      `json:"whatsapp_enabled"`
  EmailEnabled        bool                      `json:"email_enabled"`
  SMSRecipients       []string                  `json:"sms_recipients"`
  WhatsAppRecipients  []string                  `json:"whatsapp_recipients"`
  EmailRecipients     []string                  `json:"email_recipients"`
}

// AdminNotificationKeys lists every site_information key the settings are
// built from.
func AdminNotificationKeys() []string {
  keys := []string{AdminNotifySMSEnabledKey, AdminNotifyWhatsAppEnabledKey, AdminNotifyEmailEnabledKey}
  keys = append(keys, AdminSMSRecipientKeys...)
  keys = append(keys, AdminWhatsAppRecipientKeys...)
  keys = append(keys, AdminEmailRecipientKeys...)
  return keys
}
