package services

import (
  "bytes"
  "context"
  "encoding/json"
  "fmt"
  "io"
  "net/http"
  "net/url"
  "strings"
  "time"

  "github.com/everything-automotive/ea-backend/internal/logger"
  "github.com/everything-automotive/ea-backend/internal/types"
)

// IdentityProvider is the hosted auth backend. Passwords, confirmation
// mails and token issuance all live there.
type IdentityProvider interface {
  SignUp(ctx context.Context, email, password string, fullName *string, redirectTo string) (*types.AuthUser, *types.AuthSession, error)
  SignInWithPassword(ctx context.Context, email, password string) (*types.AuthSession, error)
  GetUser(ctx context.Context, accessToken string) (*types.AuthUser, error)
  SignOut(ctx context.Context, accessToken string) error
  RecoverPassword(ctx context.Context, email, redirectTo string) error
  UpdatePassword(ctx context.Context, accessToken, newPassword string) (*types.AuthUser, error)
}

// ProviderError is a non-2xx answer from the identity provider.
type ProviderError struct {
  Status          int
  Code            string
  Message         string
}

func (e *ProviderError) Error() string {
  if e.Code != "" {
    return fmt.Sprintf("identity provider HTTP %d (%s): %s", e.Status, e.Code, e.Message)
  }
  return fmt.Sprintf("identity provider HTTP %d: %s", e.Status, e.Message)
}

type goTrueProvider struct {
  log             *logger.Logger
  client          *http.Client
  baseURL         string
  apiKey          string
}

func NewGoTrueProvider(log *logger.Logger, supabaseURL, apiKey string, timeout time.Duration) (IdentityProvider, error) {
  serviceLog := log.With("service", "GoTrueProvider")
  if supabaseURL == "" || apiKey == "" {
    return nil, fmt.Errorf("missing SUPABASE_URL or SUPABASE_KEY")
  }
  if timeout <= 0 {
    timeout = 15 * time.Second
  }
  return &goTrueProvider{
    log:      serviceLog,
    client:   &http.Client{Timeout: timeout},
    baseURL:  strings.TrimRight(supabaseURL, "/") + "/auth/v1",
    apiKey:   apiKey,
  }, nil
}

// signUpResponse covers both shapes: a bare user when confirmation is
// pending, or a full session when the account is usable right away.
type signUpResponse struct {
  types.AuthSession
  types.AuthUser
}

func (p *goTrueProvider) SignUp(ctx context.Context, email, password string, fullName *string, redirectTo string) (*types.AuthUser, *types.AuthSession, error) {
  data := map[string]interface{}{}
  if fullName != nil && *fullName != "" {
    data["full_name"] = *fullName
  }
  body := map[string]interface{}{
    "email":    email,
    "password": password,
    "data":     data,
  }
  q := url.Values{}
  if redirectTo != "" {
    q.Set("redirect_to", redirectTo)
  }
  var out signUpResponse
  if err := p.do(ctx, http.MethodPost, "/signup", q, "", body, &out); err != nil {
    return nil, nil, err
  }
  if out.AccessToken != "" {
    session := out.AuthSession
    return session.User, &session, nil
  }
  if out.AuthUser.ID != "" {
    user := out.AuthUser
    return &user, nil, nil
  }
  return nil, nil, nil
}

func (p *goTrueProvider) SignInWithPassword(ctx context.Context, email, password string) (*types.AuthSession, error) {
  q := url.Values{}
  q.Set("grant_type", "password")
  var out types.AuthSession
  body := map[string]string{"email": email, "password": password}
  if err := p.do(ctx, http.MethodPost, "/token", q, "", body, &out); err != nil {
    return nil, err
  }
  return &out, nil
}

func (p *goTrueProvider) GetUser(ctx context.Context, accessToken string) (*types.AuthUser, error) {
  var out types.AuthUser
  if err := p.do(ctx, http.MethodGet, "/user", nil, accessToken, nil, &out); err != nil {
    return nil, err
  }
  if out.ID == "" {
    return nil, fmt.Errorf("identity provider returned no user")
  }
  return &out, nil
}

func (p *goTrueProvider) SignOut(ctx context.Context, accessToken string) error {
  return p.do(ctx, http.MethodPost, "/logout", nil, accessToken, nil, nil)
}

func (p *goTrueProvider) RecoverPassword(ctx context.Context, email, redirectTo string) error {
  q := url.Values{}
  if redirectTo != "" {
    q.Set("redirect_to", redirectTo)
  }
  return p.do(ctx, http.MethodPost, "/recover", q, "", map[string]string{"email": email}, nil)
}

func (p *goTrueProvider) UpdatePassword(ctx context.Context, accessToken, newPassword string) (*types.AuthUser, error) {
  var out types.AuthUser
  if err := p.do(ctx, http.MethodPut, "/user", nil, accessToken, map[string]string{"password": newPassword}, &out); err != nil {
    return nil, err
  }
  return &out, nil
}

func (p *goTrueProvider) do(ctx context.Context, method, path string, query url.Values, bearer string, body, out interface{}) error {
  reqURL := p.baseURL + path
  if len(query) > 0 {
    reqURL += "?" + query.Encode()
  }
  var reader io.Reader
  if body != nil {
    payload, err := json.Marshal(body)
    if err != nil {
      return fmt.Errorf("encode identity request: %w", err)
    }
    reader = bytes.NewReader(payload)
  }
  req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
  if err != nil {
    p.log.Warn("failed to build identity request", "path", path, "error", err)
    return err
  }
  req.Header.Set("apikey", p.apiKey)
  req.Header.Set("Accept", "application/json")
  if body != nil {
    req.Header.Set("Content-Type", "application/json")
  }
  if bearer != "" {
    req.Header.Set("Authorization", "Bearer "+bearer)
  }

  resp, err := p.client.Do(req)
  if err != nil {
    p.log.Warn("failed to call identity provider", "path", path, "error", err)
    return fmt.Errorf("identity provider %s %s: %w", method, path, err)
  }
  defer resp.Body.Close()

  bodyBytes, err := io.ReadAll(resp.Body)
  if err != nil {
    return fmt.Errorf("read identity response: %w", err)
  }
  if resp.StatusCode < 200 || resp.StatusCode > 299 {
    perr := decodeProviderError(resp.StatusCode, bodyBytes)
    p.log.Debug("identity provider responded with non-2xx", "path", path, "statusCode", resp.StatusCode, "code", perr.Code, "message", perr.Message)
    return perr
  }
  if out == nil || len(bytes.TrimSpace(bodyBytes)) == 0 {
    return nil
  }
  if err := json.Unmarshal(bodyBytes, out); err != nil {
    return fmt.Errorf("decode identity response: %w", err)
  }
  return nil
}

func decodeProviderError(status int, body []byte) *ProviderError {
  var raw struct {
    Msg               string      `json:"msg"`
    Message           string      `json:"message"`
    Error             string      `json:"error"`
    ErrorDescription  string      `json:"error_description"`
    ErrorCode         string      `json:"error_code"`
  }
  _ = json.Unmarshal(body, &raw)
  perr := &ProviderError{Status: status, Code: raw.ErrorCode}
  for _, m := range []string{raw.Msg, raw.ErrorDescription, raw.Message, raw.Error} {
    if m != "" {
      perr.Message = m
      break
    }
  }
  if perr.Code == "" {
    perr.Code = raw.Error
  }
  if perr.Message == "" {
    perr.Message = strings.TrimSpace(string(body))
  }
  return perr
}
