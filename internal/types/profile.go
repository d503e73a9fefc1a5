package types

import (
  "time"

  "github.com/google/uuid"
)

const DefaultAccountType = "personal"

type Profile struct {
  ID                  uuid.UUID                 `gorm:"type:uuid;primaryKey" json:"id"`
  Email               string                    `gorm:"column:email" json:"email"`
  FullName            *string                   `gorm:"column:full_name" json:"full_name"`
  Phone               *string                   `gorm:"column:phone" json:"phone"`
  Address             *string                   `gorm:"column:address" json:"address"`
  AccountType         string                    `gorm:"column:account_type;default:'personal'" json:"account_type"`
  CompanyName         *string                   `gorm:"column:company_name" json:"company_name"`
  CreatedAt           time.Time                 `gorm:"not null;default:now()" json:"created_at"`
}

func (Profile) TableName() string {
  return "profiles"
}

// ProfileUpdate carries only the fields a user may change. A nil field is
// left untouched.
type ProfileUpdate struct {
  FullName            *string                   `json:"full_name" binding:"omitempty,min=1"`
  Phone               *string                   `json:"phone" binding:"omitempty,intlphone"`
  Address             *string                   `json:"address" binding:"omitempty,min=5"`
  CompanyName         *string                   `json:"company_name" binding:"omitempty,min=2"`
}

func (u ProfileUpdate) IsEmpty() bool {
  return u.FullName == nil && u.Phone == nil && u.Address == nil && u.CompanyName == nil
}
