package handlers

import (
  "errors"
  "net/http"

  "github.com/gin-gonic/gin"

  "github.com/everything-automotive/ea-backend/internal/logger"
  "github.com/everything-automotive/ea-backend/internal/requestdata"
  "github.com/everything-automotive/ea-backend/internal/services"
  "github.com/everything-automotive/ea-backend/internal/types"
  "github.com/everything-automotive/ea-backend/internal/utils"
)

const (
  MsgInvalidInput       = "Invalid input data"
  MsgResetTokenMissing  = "Password reset failed. Invalid request or missing token."
)

type AuthHandler struct {
  log               *logger.Logger
  authService       services.AuthService
  profileService    services.ProfileService
}

func NewAuthHandler(log *logger.Logger, authService services.AuthService, profileService services.ProfileService) *AuthHandler {
  handlerLog := log.With("handler", "AuthHandler")
  return &AuthHandler{log: handlerLog, authService: authService, profileService: profileService}
}

// invalidInput answers a body that failed to bind.
func invalidInput(c *gin.Context, err error) {
  details, ok := utils.ValidationDetails(err)
  if !ok {
    details = []utils.FieldError{{Field: "body", Tag: "json", Message: "request body must be a JSON object"}}
  }
  c.JSON(http.StatusBadRequest, gin.H{"message": MsgInvalidInput, "errors": details})
}

func (ah *AuthHandler) Register(c *gin.Context) {
  var req types.RegisterRequest
  if err := c.ShouldBindJSON(&req); err != nil {
    invalidInput(c, err)
    return
  }
  outcome, err := ah.authService.Register(c.Request.Context(), req)
  if err != nil {
    status := http.StatusBadRequest
    if errors.Is(err, services.ErrEmailAlreadyRegistered) {
      status = http.StatusConflict
    }
    c.JSON(status, gin.H{"message": services.UserMessage(err, "Registration failed.")})
    return
  }
  c.JSON(http.StatusCreated, gin.H{"message": outcome.Message()})
}

func (ah *AuthHandler) Login(c *gin.Context) {
  var req types.LoginRequest
  if err := c.ShouldBindJSON(&req); err != nil {
    invalidInput(c, err)
    return
  }
  session, err := ah.authService.Login(c.Request.Context(), req.Email, req.Password)
  if err != nil {
    message := services.UserMessage(err, "Login failed.")
    ah.log.Info("Login failed", "message", message)
    c.JSON(http.StatusUnauthorized, gin.H{"message": message})
    return
  }
  c.JSON(http.StatusOK, gin.H{"message": services.MsgLoginSuccessful, "session": session})
}

func (ah *AuthHandler) Logout(c *gin.Context) {
  token, _ := utils.BearerToken(c.GetHeader("Authorization"))
  c.JSON(http.StatusOK, gin.H{"message": ah.authService.Logout(c.Request.Context(), token)})
}

func (ah *AuthHandler) GetUser(c *gin.Context) {
  rd := requestdata.GetRequestData(c.Request.Context())
  if rd == nil || rd.Profile == nil {
    c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid or expired token, or profile not found"})
    return
  }
  c.JSON(http.StatusOK, rd.Profile)
}

func (ah *AuthHandler) UpdateUser(c *gin.Context) {
  rd := requestdata.GetRequestData(c.Request.Context())
  if rd == nil {
    c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid or expired token, or profile not found"})
    return
  }
  var req types.ProfileUpdate
  if err := c.ShouldBindJSON(&req); err != nil {
    invalidInput(c, err)
    return
  }
  profile, message, err := ah.profileService.UpdateProfile(c.Request.Context(), rd.UserID, req)
  if err != nil {
    status := http.StatusBadRequest
    if errors.Is(err, services.ErrProfileNotFound) {
      status = http.StatusNotFound
    }
    c.JSON(status, gin.H{"message": services.UserMessage(err, "Profile update failed.")})
    return
  }
  c.JSON(http.StatusOK, gin.H{"message": message, "user": profile})
}

func (ah *AuthHandler) ForgotPassword(c *gin.Context) {
  var req types.ForgotPasswordRequest
  if err := c.ShouldBindJSON(&req); err != nil {
    invalidInput(c, err)
    return
  }
  c.JSON(http.StatusOK, gin.H{"message": ah.authService.RequestPasswordReset(c.Request.Context(), req.Email)})
}

// ResetPassword takes the recovery token from the reset link as its bearer.
func (ah *AuthHandler) ResetPassword(c *gin.Context) {
  token, ok := utils.BearerToken(c.GetHeader("Authorization"))
  if !ok {
    c.JSON(http.StatusUnauthorized, gin.H{"message": MsgResetTokenMissing})
    return
  }
  var req types.ResetPasswordRequest
  if err := c.ShouldBindJSON(&req); err != nil {
    invalidInput(c, err)
    return
  }
  message, err := ah.authService.ResetPassword(c.Request.Context(), token, req)
  if err != nil {
    status := http.StatusBadRequest
    if errors.Is(err, services.ErrResetLinkInvalid) {
      status = http.StatusUnauthorized
    }
    c.JSON(status, gin.H{"message": services.UserMessage(err, "Password reset failed.")})
    return
  }
  c.JSON(http.StatusOK, gin.H{"message": message})
}

func (ah *AuthHandler) ChangePassword(c *gin.Context) {
  rd := requestdata.GetRequestData(c.Request.Context())
  if rd == nil {
    c.JSON(http.StatusUnauthorized, gin.H{"message": "Authorization header missing or invalid"})
    return
  }
  var req types.ChangePasswordRequest
  if err := c.ShouldBindJSON(&req); err != nil {
    invalidInput(c, err)
    return
  }
  message, err := ah.authService.ChangePassword(c.Request.Context(), rd.TokenString, req)
  if err != nil {
    status := http.StatusBadRequest
    if errors.Is(err, services.ErrSessionExpired) {
      status = http.StatusUnauthorized
    }
    c.JSON(status, gin.H{"message": services.UserMessage(err, "Password change failed.")})
    return
  }
  c.JSON(http.StatusOK, gin.H{"message": message})
}
