package services

import (
  "errors"
  "strings"
)

var (
  ErrEmailAlreadyRegistered = errors.New("email already registered")
  ErrWeakPassword           = errors.New("password too short")
  ErrRegistrationFailed     = errors.New("registration failed")
  ErrInvalidCredentials     = errors.New("invalid login credentials")
  ErrEmailNotConfirmed      = errors.New("email not confirmed")
  ErrLoginFailed            = errors.New("login failed")
  ErrProfileLoad            = errors.New("profile load failed")
  ErrSessionExpired         = errors.New("session expired or invalid")
  ErrPasswordChangeFailed   = errors.New("password change failed")
  ErrResetLinkInvalid       = errors.New("reset link expired or invalid")
  ErrPasswordResetFailed    = errors.New("password reset failed")
  ErrProfileNotFound        = errors.New("profile not found")
  ErrProfileUpdateFailed    = errors.New("profile update failed")
)

// ServiceError pairs a sentinel with the message safe to show a client.
type ServiceError struct {
  Kind            error
  Message         string
  Err             error
}

func (e *ServiceError) Error() string {
  if e.Err != nil {
    return e.Kind.Error() + ": " + e.Err.Error()
  }
  return e.Kind.Error()
}

func (e *ServiceError) Unwrap() []error {
  if e.Err == nil {
    return []error{e.Kind}
  }
  return []error{e.Kind, e.Err}
}

func newServiceError(kind error, message string, cause error) *ServiceError {
  return &ServiceError{Kind: kind, Message: message, Err: cause}
}

// UserMessage returns the client-facing message carried by err, or fallback.
func UserMessage(err error, fallback string) string {
  var se *ServiceError
  if errors.As(err, &se) && se.Message != "" {
    return se.Message
  }
  return fallback
}

// providerMessage lowercases the provider's own message for matching.
func providerMessage(err error) (string, bool) {
  var perr *ProviderError
  if !errors.As(err, &perr) {
    return "", false
  }
  return strings.ToLower(perr.Message), true
}
