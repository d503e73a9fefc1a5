package types

import (
  "encoding/json"
  "time"
)

// AuthUser is the identity provider's view of an account.
type AuthUser struct {
  ID                  string                    `json:"id"`
  Email               string                    `json:"email"`
  CreatedAt           time.Time                 `json:"created_at"`
  EmailConfirmedAt    *time.Time                `json:"email_confirmed_at,omitempty"`
  Identities          []json.RawMessage         `json:"identities"`
  UserMetadata        map[string]interface{}    `json:"user_metadata"`
}

// FullName returns user_metadata.full_name when it is a non-empty string.
func (u *AuthUser) FullName() *string {
  if u == nil || u.UserMetadata == nil {
    return nil
  }
  name, ok := u.UserMetadata["full_name"].(string)
  if !ok || name == "" {
    return nil
  }
  return &name
}

type AuthSession struct {
  AccessToken         string                    `json:"access_token"`
  TokenType           string                    `json:"token_type"`
  ExpiresIn           int                       `json:"expires_in"`
  RefreshToken        string                    `json:"refresh_token"`
  User                *AuthUser                 `json:"user,omitempty"`
}

// UserSession is what a successful login hands back to the client.
type UserSession struct {
  AccessToken         string                    `json:"access_token"`
  TokenType           string                    `json:"token_type"`
  ExpiresIn           int                       `json:"expires_in"`
  RefreshToken        string                    `json:"refresh_token"`
  User                *Profile                  `json:"user"`
}

type RegisterRequest struct {
  Email               string                    `json:"email" binding:"required,email"`
  Password            string                    `json:"password" binding:"required,min=6"`
  FullName            *string                   `json:"full_name"`
}

type LoginRequest struct {
  Email               string                    `json:"email" binding:"required,email"`
  Password            string                    `json:"password" binding:"required"`
}

type ForgotPasswordRequest struct {
  Email               string                    `json:"email" binding:"required,email"`
}

type ResetPasswordRequest struct {
  NewPassword         string                    `json:"new_password" binding:"required,min=6"`
  ConfirmNewPassword  string                    `json:"confirm_new_password" binding:"required,min=6,eqfield=NewPassword"`
}

type ChangePasswordRequest struct {
  CurrentPassword     string                    `json:"current_password" binding:"required,min=6"`
  NewPassword         string                    `json:"new_password" binding:"required,min=6"`
  ConfirmNewPassword  string                    `json:"confirm_new_password" binding:"required,min=6,eqfield=NewPassword"`
}
