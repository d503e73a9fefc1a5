package services

import (
  "context"
  "errors"
  "testing"

  "github.com/google/uuid"
  "github.com/stretchr/testify/assert"
  "github.com/stretchr/testify/mock"
  "github.com/stretchr/testify/require"
  "gorm.io/gorm"

  "github.com/everything-automotive/ea-backend/internal/logger"
  "github.com/everything-automotive/ea-backend/internal/types"
)

func TestUpdateFieldsClearsBlankPhone(t *testing.T) {
  fields := updateFields(types.ProfileUpdate{Phone: strPtr("  "), Address: strPtr("12 Allen Avenue")})

  assert.Len(t, fields, 2)
  v, ok := fields["phone"]
  assert.True(t, ok)
  assert.Nil(t, v)
  assert.Equal(t, "12 Allen Avenue", fields["address"])
}

func TestUpdateFieldsLeavesUnsetFieldsOut(t *testing.T) {
  fields := updateFields(types.ProfileUpdate{FullName: strPtr("Ada")})
  assert.Equal(t, map[string]interface{}{"full_name": "Ada"}, fields)
}

func TestUpdateProfileWithoutChangesReturnsCurrent(t *testing.T) {
  userID := uuid.New()
  current := &types.Profile{ID: userID, Email: "a@example.com"}
  profiles := &mockProfileRepo{}
  profiles.On("GetByID", mock.Anything, mock.Anything, userID).Return(current, nil)
  svc := NewProfileService(nil, logger.NewNop(), profiles)

  profile, msg, err := svc.UpdateProfile(context.Background(), userID, types.ProfileUpdate{})

  require.NoError(t, err)
  assert.Same(t, current, profile)
  assert.Equal(t, MsgProfileNoChanges, msg)
  profiles.AssertNotCalled(t, "UpdateFields", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateProfileWithoutChangesMissingProfile(t *testing.T) {
  userID := uuid.New()
  profiles := &mockProfileRepo{}
  profiles.On("GetByID", mock.Anything, mock.Anything, userID).Return(nil, gorm.ErrRecordNotFound)
  svc := NewProfileService(nil, logger.NewNop(), profiles)

  _, _, err := svc.UpdateProfile(context.Background(), userID, types.ProfileUpdate{})
  assert.ErrorIs(t, err, ErrProfileNotFound)
}

func TestApplyUpdate(t *testing.T) {
  userID := uuid.New()
  fields := map[string]interface{}{"full_name": "Ada"}

  t.Run("no rows", func(t *testing.T) {
    profiles := &mockProfileRepo{}
    profiles.On("UpdateFields", mock.Anything, mock.Anything, userID, fields).Return(int64(0), nil)
    ps := NewProfileService(nil, logger.NewNop(), profiles).(*profileService)

    _, err := ps.applyUpdate(context.Background(), nil, userID, fields)
    assert.ErrorIs(t, err, ErrProfileNotFound)
    assert.Equal(t, "Profile update failed: User profile not found.", UserMessage(err, ""))
  })

  t.Run("database error", func(t *testing.T) {
    profiles := &mockProfileRepo{}
    profiles.On("UpdateFields", mock.Anything, mock.Anything, userID, fields).Return(int64(0), errors.New("deadlock"))
    ps := NewProfileService(nil, logger.NewNop(), profiles).(*profileService)

    _, err := ps.applyUpdate(context.Background(), nil, userID, fields)
    assert.ErrorIs(t, err, ErrProfileUpdateFailed)
  })

  t.Run("updated", func(t *testing.T) {
    fresh := &types.Profile{ID: userID, FullName: strPtr("Ada")}
    profiles := &mockProfileRepo{}
    profiles.On("UpdateFields", mock.Anything, mock.Anything, userID, fields).Return(int64(1), nil)
    profiles.On("GetByID", mock.Anything, mock.Anything, userID).Return(fresh, nil)
    ps := NewProfileService(nil, logger.NewNop(), profiles).(*profileService)

    profile, err := ps.applyUpdate(context.Background(), nil, userID, fields)
    require.NoError(t, err)
    assert.Same(t, fresh, profile)
  })
}

func TestGetProfileMapsErrors(t *testing.T) {
  missing, broken := uuid.New(), uuid.New()
  profiles := &mockProfileRepo{}
  profiles.On("GetByID", mock.Anything, mock.Anything, missing).Return(nil, gorm.ErrRecordNotFound)
  profiles.On("GetByID", mock.Anything, mock.Anything, broken).Return(nil, errors.New("timeout"))
  svc := NewProfileService(nil, logger.NewNop(), profiles)

  _, err := svc.GetProfile(context.Background(), missing)
  assert.ErrorIs(t, err, ErrProfileNotFound)
  _, err = svc.GetProfile(context.Background(), broken)
  assert.ErrorIs(t, err, ErrProfileLoad)
}
