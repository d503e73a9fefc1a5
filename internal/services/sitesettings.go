package services

import (
  "context"
  "fmt"
  "strings"
  "time"

  "github.com/everything-automotive/ea-backend/internal/cache"
  "github.com/everything-automotive/ea-backend/internal/logger"
  "github.com/everything-automotive/ea-backend/internal/repos"
  "github.com/everything-automotive/ea-backend/internal/types"
)

const adminSettingsCacheKey = "site:admin_notification_settings"

type SiteSettingsService interface {
  AdminNotificationSettings(ctx context.Context) (*types.AdminNotificationSettings, error)
  Invalidate(ctx context.Context) error
}

type siteSettingsService struct {
  log             *logger.Logger
  siteInfoRepo    repos.SiteInfoRepo
  cache           cache.Cache
  ttl             time.Duration
}

// NewSiteSettingsService reads straight from the store when c is nil.
func NewSiteSettingsService(log *logger.Logger, siteInfoRepo repos.SiteInfoRepo, c cache.Cache, ttl time.Duration) SiteSettingsService {
  serviceLog := log.With("service", "SiteSettingsService")
  return &siteSettingsService{
    log:          serviceLog,
    siteInfoRepo: siteInfoRepo,
    cache:        c,
    ttl:          ttl,
  }
}

func (ss *siteSettingsService) AdminNotificationSettings(ctx context.Context) (*types.AdminNotificationSettings, error) {
  if ss.cache != nil {
    var cached types.AdminNotificationSettings
    hit, err := ss.cache.GetJSON(ctx, adminSettingsCacheKey, &cached)
    if err != nil {
      ss.log.Warn("Settings cache read failed, falling back to database", "error", err)
    } else if hit {
      return &cached, nil
    }
  }

  values, err := ss.siteInfoRepo.GetValues(ctx, nil, types.AdminNotificationKeys())
  if err != nil {
    return nil, fmt.Errorf("load admin notification settings: %w", err)
  }
  settings := &types.AdminNotificationSettings{
    SMSEnabled:         isTrue(values[types.AdminNotifySMSEnabledKey]),
    WhatsAppEnabled:    isTrue(values[types.AdminNotifyWhatsAppEnabledKey]),
    EmailEnabled:       isTrue(values[types.AdminNotifyEmailEnabledKey]),
    SMSRecipients:      collect(values, types.AdminSMSRecipientKeys),
    WhatsAppRecipients: collect(values, types.AdminWhatsAppRecipientKeys),
    EmailRecipients:    collect(values, types.AdminEmailRecipientKeys),
  }

  if ss.cache != nil && ss.ttl > 0 {
    if err := ss.cache.SetJSON(ctx, adminSettingsCacheKey, settings, ss.ttl); err != nil {
      ss.log.Warn("Failed to cache admin notification settings", "error", err)
    }
  }
  return settings, nil
}

func (ss *siteSettingsService) Invalidate(ctx context.Context) error {
  if ss.cache == nil {
    return nil
  }
  return ss.cache.Delete(ctx, adminSettingsCacheKey)
}

func isTrue(v *string) bool {
  return v != nil && strings.EqualFold(strings.TrimSpace(*v), "true")
}

func collect(values map[string]*string, keys []string) []string {
  out := make([]string, 0, len(keys))
  for _, k := range keys {
    if v := values[k]; v != nil && strings.TrimSpace(*v) != "" {
      out = append(out, strings.TrimSpace(*v))
    }
  }
  return out
}
