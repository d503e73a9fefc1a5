package repos

import (
  "context"
  "fmt"

  "gorm.io/gorm"

  "github.com/everything-automotive/ea-backend/internal/logger"
  "github.com/everything-automotive/ea-backend/internal/types"
)

type SiteInfoRepo interface {
  GetValue(ctx context.Context, tx *gorm.DB, key string) (*string, error)
  GetValues(ctx context.Context, tx *gorm.DB, keys []string) (map[string]*string, error)
}

type siteInfoRepo struct {
  db          *gorm.DB
  log         *logger.Logger
}

func NewSiteInfoRepo(db *gorm.DB, baseLog *logger.Logger) SiteInfoRepo {
  repoLog := baseLog.With("repo", "SiteInfoRepo")
  return &siteInfoRepo{db: db, log: repoLog}
}

func (r *siteInfoRepo) GetValue(ctx context.Context, tx *gorm.DB, key string) (*string, error) {
  values, err := r.GetValues(ctx, tx, []string{key})
  if err != nil {
    return nil, err
  }
  return values[key], nil
}

// GetValues returns an entry for every requested key. Keys with no row map
// to nil.
func (r *siteInfoRepo) GetValues(ctx context.Context, tx *gorm.DB, keys []string) (map[string]*string, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  out := make(map[string]*string, len(keys))
  for _, k := range keys {
    out[k] = nil
  }
  if len(keys) == 0 {
    return out, nil
  }
  var rows []*types.SiteInformation
  if err := transaction.WithContext(ctx).
    Where("info_key IN ?", keys).
    Find(&rows).Error; err != nil {
    return out, fmt.Errorf("failed fetching site information: %w", err)
  }
  for _, row := range rows {
    out[row.InfoKey] = row.InfoValue
  }
  for _, k := range keys {
    if out[k] == nil {
      r.log.Warn("Site info key not found in database", "key", k)
    }
  }
  return out, nil
}
