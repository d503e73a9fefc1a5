package services

import (
  "context"
  "errors"
  "fmt"
  "strings"
  "time"

  "github.com/golang-jwt/jwt/v5"
  "github.com/google/uuid"
  "gorm.io/gorm"

  "github.com/everything-automotive/ea-backend/internal/logger"
  "github.com/everything-automotive/ea-backend/internal/repos"
  "github.com/everything-automotive/ea-backend/internal/types"
)

type RegistrationOutcome int

const (
  RegistrationComplete RegistrationOutcome = iota
  RegistrationConfirmationRequired
)

const (
  MsgRegistrationComplete     = "Registration successful."
  MsgRegistrationConfirm      = "Registration successful. Please check your email to confirm your account."
  MsgLoginSuccessful          = "Login successful."
  MsgLogoutSuccessful         = "Logout successful. Please clear local tokens."
  MsgPasswordResetRequested   = "If an account with this email exists, a password reset link has been sent."
  MsgPasswordChanged          = "Password updated successfully. Please log in again for security."
  MsgPasswordChangeProcessed  = "Password update processed. Please log in again."
  MsgPasswordReset            = "Password has been reset successfully. Please log in with your new password."
)

func (o RegistrationOutcome) Message() string {
  if o == RegistrationConfirmationRequired {
    return MsgRegistrationConfirm
  }
  return MsgRegistrationComplete
}

// SupabaseClaims is the subset of an access token this service reads.
type SupabaseClaims struct {
  jwt.RegisteredClaims
  Email         string                  `json:"email,omitempty"`
  UserMetadata  map[string]interface{}  `json:"user_metadata,omitempty"`
}

type AuthService interface {
  Register(ctx context.Context, req types.RegisterRequest) (RegistrationOutcome, error)
  Login(ctx context.Context, email, password string) (*types.UserSession, error)
  Logout(ctx context.Context, accessToken string) string
  Authenticate(ctx context.Context, accessToken string) (*types.Profile, bool)
  ChangePassword(ctx context.Context, accessToken string, req types.ChangePasswordRequest) (string, error)
  RequestPasswordReset(ctx context.Context, email string) string
  ResetPassword(ctx context.Context, accessToken string, req types.ResetPasswordRequest) (string, error)
}

type authService struct {
  log                   *logger.Logger
  idp                   IdentityProvider
  profileRepo           repos.ProfileRepo
  notifier              NotificationService
  jwtSecretKey          string
  frontendURL           string
  confirmRedirectURL    string
  notifyTimeout         time.Duration
}

func NewAuthService(
  log                   *logger.Logger,
  idp                   IdentityProvider,
  profileRepo           repos.ProfileRepo,
  notifier              NotificationService,
  jwtSecretKey          string,
  frontendURL           string,
  confirmRedirectURL    string,
) AuthService {
  serviceLog := log.With("service", "AuthService")
  frontendURL = strings.TrimRight(frontendURL, "/")
  if confirmRedirectURL == "" && frontendURL != "" {
    confirmRedirectURL = frontendURL + "/"
  }
  return &authService{
    log:                serviceLog,
    idp:                idp,
    profileRepo:        profileRepo,
    notifier:           notifier,
    jwtSecretKey:       jwtSecretKey,
    frontendURL:        frontendURL,
    confirmRedirectURL: confirmRedirectURL,
    notifyTimeout:      30 * time.Second,
  }
}

func (as *authService) Register(ctx context.Context, req types.RegisterRequest) (RegistrationOutcome, error) {
  email := strings.TrimSpace(req.Email)
  as.log.Info("Attempting registration", "email", email)
  user, session, err := as.idp.SignUp(ctx, email, req.Password, req.FullName, as.confirmRedirectURL)
  if err != nil {
    return as.classifySignUpError(email, err)
  }

  switch {
  case user != nil && session == nil:
    if len(user.Identities) > 0 && user.EmailConfirmedAt == nil {
      as.log.Info("Registration pending email confirmation", "userID", user.ID)
      as.welcome(email)
      return RegistrationConfirmationRequired, nil
    }
    // An obfuscated user with no identities means the address is taken.
    as.log.Info("Registration hit an existing account", "email", email)
    return 0, newServiceError(ErrEmailAlreadyRegistered, "Email already registered.", nil)
  case user != nil && session != nil:
    as.log.Info("Registration complete", "userID", user.ID)
    as.welcome(email)
    return RegistrationComplete, nil
  case session != nil && session.User == nil:
    as.welcome(email)
    return RegistrationComplete, nil
  default:
    as.log.Warn("Identity provider returned neither user nor session on sign up", "email", email)
    return 0, newServiceError(ErrRegistrationFailed, "Registration failed: Invalid response from authentication server.", nil)
  }
}

func (as *authService) classifySignUpError(email string, err error) (RegistrationOutcome, error) {
  msg, ok := providerMessage(err)
  if !ok {
    as.log.Error("Unexpected error during registration", "email", email, "error", err)
    return 0, newServiceError(ErrRegistrationFailed, "An unexpected error occurred during registration.", err)
  }
  as.log.Warn("Identity provider rejected registration", "email", email, "error", err)
  switch {
  case strings.Contains(msg, "user already registered"):
    if strings.Contains(msg, "email link") {
      return RegistrationConfirmationRequired, nil
    }
    return 0, newServiceError(ErrEmailAlreadyRegistered, "Email already registered.", err)
  case strings.Contains(msg, "password should be at least 6 characters"):
    return 0, newServiceError(ErrWeakPassword, "Password must be at least 6 characters long.", err)
  }
  var perr *ProviderError
  errors.As(err, &perr)
  return 0, newServiceError(ErrRegistrationFailed, "Registration failed: "+perr.Message, err)
}

func (as *authService) welcome(email string) {
  if as.notifier == nil {
    return
  }
  go func() {
    ctx, cancel := context.WithTimeout(context.Background(), as.notifyTimeout)
    defer cancel()
    if !as.notifier.NotifyCustomerRegistration(ctx, email) {
      as.log.Warn("Welcome notification not delivered", "email", email)
    }
    as.notifier.NotifyAdmins(ctx, "New customer registration", fmt.Sprintf("A new customer registered with %s.", email), "")
  }()
}

func (as *authService) Login(ctx context.Context, email, password string) (*types.UserSession, error) {
  email = strings.TrimSpace(email)
  session, err := as.idp.SignInWithPassword(ctx, email, password)
  if err != nil {
    msg, ok := providerMessage(err)
    if !ok {
      as.log.Error("Unexpected error during login", "email", email, "error", err)
      return nil, newServiceError(ErrLoginFailed, "An unexpected error occurred during login.", err)
    }
    as.log.Info("Login rejected", "email", email, "reason", msg)
    switch {
    case strings.Contains(msg, "invalid login credentials"):
      return nil, newServiceError(ErrInvalidCredentials, "Invalid email or password.", err)
    case strings.Contains(msg, "email not confirmed"):
      return nil, newServiceError(ErrEmailNotConfirmed, "Please confirm your email address before logging in.", err)
    }
    var perr *ProviderError
    errors.As(err, &perr)
    return nil, newServiceError(ErrLoginFailed, "Login failed: "+perr.Message, err)
  }
  if session == nil || session.AccessToken == "" || session.User == nil {
    as.log.Warn("Identity provider returned an incomplete session", "email", email)
    return nil, newServiceError(ErrLoginFailed, "Login failed: Invalid response from authentication server.", nil)
  }

  profile, err := as.loadProfile(ctx, session.User)
  if err != nil {
    as.log.Error("Login succeeded but profile load failed", "userID", session.User.ID, "error", err)
    return nil, newServiceError(ErrProfileLoad, "Login successful, but failed to load user profile due to database error.", err)
  }
  as.log.Info("Login successful", "userID", profile.ID)
  return &types.UserSession{
    AccessToken:  session.AccessToken,
    TokenType:    session.TokenType,
    ExpiresIn:    session.ExpiresIn,
    RefreshToken: session.RefreshToken,
    User:         profile,
  }, nil
}

func (as *authService) Logout(ctx context.Context, accessToken string) string {
  if accessToken != "" {
    if err := as.idp.SignOut(ctx, accessToken); err != nil {
      as.log.Warn("Provider sign out failed, client tokens still cleared", "error", err)
    }
  }
  return MsgLogoutSuccessful
}

func (as *authService) Authenticate(ctx context.Context, accessToken string) (*types.Profile, bool) {
  if accessToken == "" {
    return nil, false
  }
  if as.jwtSecretKey != "" {
    if _, err := as.verifyToken(accessToken); err != nil {
      as.log.Debug("Rejected access token locally", "error", err)
      return nil, false
    }
  }
  user, err := as.idp.GetUser(ctx, accessToken)
  if err != nil {
    as.log.Debug("Token introspection failed", "error", err)
    return nil, false
  }
  profile, err := as.loadProfile(ctx, user)
  if err != nil {
    as.log.Warn("Failed to load profile for authenticated user", "userID", user.ID, "error", err)
    return nil, false
  }
  return profile, true
}

func (as *authService) verifyToken(tokenString string) (*SupabaseClaims, error) {
  parsed, err := jwt.ParseWithClaims(tokenString, &SupabaseClaims{}, func(token *jwt.Token) (interface{}, error) {
    return []byte(as.jwtSecretKey), nil
  }, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
  if err != nil {
    return nil, fmt.Errorf("failed to parse token: %w", err)
  }
  claims, ok := parsed.Claims.(*SupabaseClaims)
  if !ok || !parsed.Valid {
    return nil, fmt.Errorf("invalid or expired JWT token")
  }
  if _, err := uuid.Parse(claims.Subject); err != nil {
    return nil, fmt.Errorf("invalid user ID in token: %w", err)
  }
  return claims, nil
}

// loadProfile reads the profiles row, synthesizing one from the provider
// user when provisioning has not caught up yet.
func (as *authService) loadProfile(ctx context.Context, user *types.AuthUser) (*types.Profile, error) {
  userID, err := uuid.Parse(user.ID)
  if err != nil {
    return nil, fmt.Errorf("invalid user ID %q: %w", user.ID, err)
  }
  profile, err := as.profileRepo.GetByID(ctx, nil, userID)
  if err == nil {
    return profile, nil
  }
  if !errors.Is(err, gorm.ErrRecordNotFound) {
    return nil, err
  }
  as.log.Warn("Profile row missing, using provider identity", "userID", userID)
  createdAt := user.CreatedAt
  if createdAt.IsZero() {
    createdAt = time.Now().UTC()
  }
  return &types.Profile{
    ID:          userID,
    Email:       user.Email,
    FullName:    user.FullName(),
    AccountType: types.DefaultAccountType,
    CreatedAt:   createdAt,
  }, nil
}

func (as *authService) ChangePassword(ctx context.Context, accessToken string, req types.ChangePasswordRequest) (string, error) {
  user, err := as.idp.UpdatePassword(ctx, accessToken, req.NewPassword)
  defer as.signOutQuietly(accessToken)
  if err != nil {
    msg, ok := providerMessage(err)
    if !ok {
      as.log.Error("Unexpected error during password change", "error", err)
      return "", newServiceError(ErrPasswordChangeFailed, "An unexpected error occurred during password change.", err)
    }
    as.log.Warn("Password change rejected", "reason", msg)
    switch {
    case strings.Contains(msg, "token is expired") || strings.Contains(msg, "invalid jwt"):
      return "", newServiceError(ErrSessionExpired, "Your session has expired. Please log in again to change your password.", err)
    case strings.Contains(msg, "password should be at least 6 characters"):
      return "", newServiceError(ErrWeakPassword, "New password must be at least 6 characters long.", err)
    case strings.Contains(msg, "error updating user") || strings.Contains(msg, "database error"):
      return "", newServiceError(ErrSessionExpired, "Password change failed. Please ensure you are logged in correctly.", err)
    case strings.Contains(msg, "user not found"):
      return "", newServiceError(ErrPasswordChangeFailed, "Password change failed: User not found.", err)
    }
    var perr *ProviderError
    errors.As(err, &perr)
    if perr.Status == 401 || perr.Status == 403 {
      return "", newServiceError(ErrSessionExpired, "Your session has expired or is invalid. Please log in again.", err)
    }
    return "", newServiceError(ErrPasswordChangeFailed, "Password change failed: "+perr.Message, err)
  }
  if user == nil || user.ID == "" {
    return MsgPasswordChangeProcessed, nil
  }
  as.log.Info("Password updated", "userID", user.ID)
  return MsgPasswordChanged, nil
}

func (as *authService) RequestPasswordReset(ctx context.Context, email string) string {
  email = strings.TrimSpace(email)
  redirect := ""
  if as.frontendURL != "" {
    redirect = as.frontendURL + "/reset-password"
  }
  if err := as.idp.RecoverPassword(ctx, email, redirect); err != nil {
    as.log.Warn("Password reset request failed", "email", email, "error", err)
  } else {
    as.log.Info("Password reset requested", "email", email)
  }
  return MsgPasswordResetRequested
}

func (as *authService) ResetPassword(ctx context.Context, accessToken string, req types.ResetPasswordRequest) (string, error) {
  if accessToken == "" {
    return "", newServiceError(ErrResetLinkInvalid, "Password reset failed: Access token missing.", nil)
  }
  user, err := as.idp.UpdatePassword(ctx, accessToken, req.NewPassword)
  defer as.signOutQuietly(accessToken)
  if err != nil {
    msg, ok := providerMessage(err)
    if !ok {
      as.log.Error("Unexpected error during password reset", "error", err)
      return "", newServiceError(ErrPasswordResetFailed, "An unexpected error occurred during password reset.", err)
    }
    as.log.Warn("Password reset rejected", "reason", msg)
    var perr *ProviderError
    errors.As(err, &perr)
    switch {
    case strings.Contains(msg, "invalid jwt") || strings.Contains(msg, "token is expired") ||
      strings.Contains(msg, "invalid refresh token") || perr.Status == 401 || perr.Status == 403:
      return "", newServiceError(ErrResetLinkInvalid, "Password reset failed. The reset link has expired or is invalid. Please request a new one.", err)
    case strings.Contains(msg, "password should be at least 6 characters"):
      return "", newServiceError(ErrWeakPassword, "New password must be at least 6 characters long.", err)
    }
    return "", newServiceError(ErrPasswordResetFailed, "Password reset failed: "+perr.Message, err)
  }
  if user == nil || user.ID == "" {
    return "", newServiceError(ErrResetLinkInvalid, "Password reset failed. The reset link may have expired or is invalid. Please request a new one.", nil)
  }
  as.log.Info("Password reset", "userID", user.ID)
  return MsgPasswordReset, nil
}

func (as *authService) signOutQuietly(accessToken string) {
  ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
  defer cancel()
  if err := as.idp.SignOut(ctx, accessToken); err != nil {
    as.log.Debug("Sign out after password update failed", "error", err)
  }
}
