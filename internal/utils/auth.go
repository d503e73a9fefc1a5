package utils

import (
  "strings"
)

// BearerToken pulls the token out of an "Authorization: Bearer <token>"
// header value. The scheme match is case-insensitive.
func BearerToken(authHeader string) (string, bool) {
  authHeader = strings.TrimSpace(authHeader)
  if len(authHeader) <= 7 || !strings.EqualFold(authHeader[:7], "Bearer ") {
    return "", false
  }
  token := strings.TrimSpace(authHeader[7:])
  if token == "" {
    return "", false
  }
  return token, true
}

// NormalizeEmail trims and lowercases an email address.
func NormalizeEmail(email string) string {
  return strings.ToLower(strings.TrimSpace(email))
}

// ValidRecipients trims every entry and drops the blank ones.
func ValidRecipients(recipients []string) []string {
  out := make([]string, 0, len(recipients))
  for _, r := range recipients {
    r = strings.TrimSpace(r)
    if r != "" {
      out = append(out, r)
    }
  }
  return out
}
