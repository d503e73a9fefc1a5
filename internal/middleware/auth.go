package middleware

import (
  "net/http"

  "github.com/gin-gonic/gin"

  "github.com/everything-automotive/ea-backend/internal/logger"
  "github.com/everything-automotive/ea-backend/internal/requestdata"
  "github.com/everything-automotive/ea-backend/internal/services"
  "github.com/everything-automotive/ea-backend/internal/sse"
  "github.com/everything-automotive/ea-backend/internal/utils"
)

const (
  MsgAuthHeaderMissing      = "Authorization header missing or invalid"
  MsgInvalidToken           = "Invalid or expired token, or profile not found"
  MsgAuthRequired           = "Authentication required"
  MsgSessionInvalid         = "Invalid or expired token, or user profile not found. Please log in again."
  MsgStreamTokenInvalid     = "Invalid or expired token"
)

type AuthMiddleware struct {
  log               *logger.Logger
  authService       services.AuthService
}

func NewAuthMiddleware(log *logger.Logger, authService services.AuthService) *AuthMiddleware {
  middlewareLogger := log.With("Middleware", "AuthMiddleware")
  return &AuthMiddleware{log: middlewareLogger, authService: authService}
}

// RequireAuth rejects with a JSON body.
func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
  return am.require(MsgAuthHeaderMissing, MsgInvalidToken, rejectJSON)
}

// RequireHistoryAuth is RequireAuth with the chat history wording.
func (am *AuthMiddleware) RequireHistoryAuth() gin.HandlerFunc {
  return am.require(MsgAuthRequired, MsgSessionInvalid, rejectJSON)
}

// RequireStreamAuth rejects with a single event-stream frame so streaming
// clients can parse the failure.
func (am *AuthMiddleware) RequireStreamAuth() gin.HandlerFunc {
  return am.require(MsgAuthRequired, MsgStreamTokenInvalid, am.rejectStream)
}

type rejectFunc func(c *gin.Context, message string)

func rejectJSON(c *gin.Context, message string) {
  c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": message})
}

func (am *AuthMiddleware) rejectStream(c *gin.Context, message string) {
  if err := sse.Reject(c.Writer, http.StatusUnauthorized, gin.H{"error": message}); err != nil {
    am.log.Debug("Could not write stream rejection frame", "path", c.FullPath(), "error", err)
  }
  c.Abort()
}

func (am *AuthMiddleware) require(missingMsg, invalidMsg string, reject rejectFunc) gin.HandlerFunc {
  return func(c *gin.Context) {
    tokenString, ok := utils.BearerToken(c.GetHeader("Authorization"))
    if !ok {
      am.log.Debug("Rejected request without bearer token", "path", c.FullPath())
      reject(c, missingMsg)
      return
    }
    ctx := c.Request.Context()
    profile, ok := am.authService.Authenticate(ctx, tokenString)
    if !ok {
      am.log.Info("Rejected request with invalid token", "path", c.FullPath(), "requestID", requestdata.GetRequestID(ctx))
      reject(c, invalidMsg)
      return
    }
    ctx = requestdata.WithRequestData(ctx, &requestdata.RequestData{
      TokenString: tokenString,
      UserID:      profile.ID,
      Email:       profile.Email,
      Profile:     profile,
    })
    c.Request = c.Request.WithContext(ctx)
    c.Next()
  }
}
