package services

import (
  "context"
  "errors"
  "strings"

  "github.com/google/uuid"
  "gorm.io/gorm"

  "github.com/everything-automotive/ea-backend/internal/logger"
  "github.com/everything-automotive/ea-backend/internal/repos"
  "github.com/everything-automotive/ea-backend/internal/types"
)

const (
  MsgProfileUpdated   = "Profile updated successfully."
  MsgProfileNoChanges = "No update data provided, returning current profile."
)

type ProfileService interface {
  GetProfile(ctx context.Context, userID uuid.UUID) (*types.Profile, error)
  UpdateProfile(ctx context.Context, userID uuid.UUID, update types.ProfileUpdate) (*types.Profile, string, error)
}

type profileService struct {
  db              *gorm.DB
  log             *logger.Logger
  profileRepo     repos.ProfileRepo
}

func NewProfileService(db *gorm.DB, log *logger.Logger, profileRepo repos.ProfileRepo) ProfileService {
  serviceLog := log.With("service", "ProfileService")
  return &profileService{
    db:           db,
    log:          serviceLog,
    profileRepo:  profileRepo,
  }
}

func (ps *profileService) GetProfile(ctx context.Context, userID uuid.UUID) (*types.Profile, error) {
  profile, err := ps.profileRepo.GetByID(ctx, nil, userID)
  if err != nil {
    if errors.Is(err, gorm.ErrRecordNotFound) {
      return nil, newServiceError(ErrProfileNotFound, "Profile not found.", err)
    }
    return nil, newServiceError(ErrProfileLoad, "An unexpected error occurred while loading the profile.", err)
  }
  return profile, nil
}

func (ps *profileService) UpdateProfile(ctx context.Context, userID uuid.UUID, update types.ProfileUpdate) (*types.Profile, string, error) {
  if update.IsEmpty() {
    profile, err := ps.profileRepo.GetByID(ctx, nil, userID)
    if err != nil {
      if errors.Is(err, gorm.ErrRecordNotFound) {
        return nil, "", newServiceError(ErrProfileNotFound, "No update data provided, and profile not found.", err)
      }
      return nil, "", newServiceError(ErrProfileUpdateFailed, "No update data provided, error fetching current profile.", err)
    }
    return profile, MsgProfileNoChanges, nil
  }

  fields := updateFields(update)
  var updated *types.Profile
  err := ps.db.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
    profile, err := ps.applyUpdate(ctx, txx, userID, fields)
    updated = profile
    return err
  })
  if err != nil {
    ps.log.Warn("Profile update failed", "userID", userID, "error", err)
    return nil, "", err
  }
  ps.log.Info("Profile updated", "userID", userID, "fields", len(fields))
  return updated, MsgProfileUpdated, nil
}

func (ps *profileService) applyUpdate(ctx context.Context, tx *gorm.DB, userID uuid.UUID, fields map[string]interface{}) (*types.Profile, error) {
  rows, err := ps.profileRepo.UpdateFields(ctx, tx, userID, fields)
  if err != nil {
    return nil, newServiceError(ErrProfileUpdateFailed, "Profile update failed: Database error.", err)
  }
  if rows == 0 {
    return nil, newServiceError(ErrProfileNotFound, "Profile update failed: User profile not found.", nil)
  }
  profile, err := ps.profileRepo.GetByID(ctx, tx, userID)
  if err != nil {
    return nil, newServiceError(ErrProfileUpdateFailed, "Profile updated, but failed to retrieve latest data.", err)
  }
  return profile, nil
}

// updateFields maps the set fields to columns. A blank phone clears it.
func updateFields(update types.ProfileUpdate) map[string]interface{} {
  fields := make(map[string]interface{}, 4)
  if update.FullName != nil {
    fields["full_name"] = *update.FullName
  }
  if update.Phone != nil {
    if strings.TrimSpace(*update.Phone) == "" {
      fields["phone"] = nil
    } else {
      fields["phone"] = *update.Phone
    }
  }
  if update.Address != nil {
    fields["address"] = *update.Address
  }
  if update.CompanyName != nil {
    fields["company_name"] = *update.CompanyName
  }
  return fields
}
