package repos

import (
  "context"
  "fmt"

  "github.com/google/uuid"
  "gorm.io/gorm"

  "github.com/everything-automotive/ea-backend/internal/logger"
  "github.com/everything-automotive/ea-backend/internal/types"
)

type ProfileRepo interface {
  // READ
  GetByID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.Profile, error)

  // UPDATE
  UpdateFields(ctx context.Context, tx *gorm.DB, userID uuid.UUID, fields map[string]interface{}) (int64, error)
}

type profileRepo struct {
  db          *gorm.DB
  log         *logger.Logger
}

func NewProfileRepo(db *gorm.DB, baseLog *logger.Logger) ProfileRepo {
  repoLog := baseLog.With("repo", "ProfileRepo")
  return &profileRepo{db: db, log: repoLog}
}

// GetByID returns gorm.ErrRecordNotFound (wrapped) when no row exists.
func (pr *profileRepo) GetByID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.Profile, error) {
  transaction := tx
  if transaction == nil {
    transaction = pr.db
  }
  var profile types.Profile
  if err := transaction.WithContext(ctx).
    Where("id = ?", userID).
    Take(&profile).Error; err != nil {
    pr.log.Debug("Failed to fetch profile", "userID", userID, "error", err)
    return nil, fmt.Errorf("fetch profile %s: %w", userID, err)
  }
  return &profile, nil
}

func (pr *profileRepo) UpdateFields(ctx context.Context, tx *gorm.DB, userID uuid.UUID, fields map[string]interface{}) (int64, error) {
  transaction := tx
  if transaction == nil {
    transaction = pr.db
  }
  if len(fields) == 0 {
    return 0, nil
  }
  res := transaction.WithContext(ctx).
    Model(&types.Profile{}).
    Where("id = ?", userID).
    Updates(fields)
  if res.Error != nil {
    pr.log.Error("Failed to update profile", "userID", userID, "error", res.Error)
    return 0, fmt.Errorf("update profile %s: %w", userID, res.Error)
  }
  pr.log.Info("Updated profile", "userID", userID, "rows", res.RowsAffected)
  return res.RowsAffected, nil
}
