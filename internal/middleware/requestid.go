package middleware

import (
  "github.com/gin-gonic/gin"
  "github.com/google/uuid"

  "github.com/everything-automotive/ea-backend/internal/requestdata"
)

const RequestIDHeader = "X-Request-ID"

// AttachRequestContext tags every request with an id, reusing the caller's
// when one is sent.
func AttachRequestContext() gin.HandlerFunc {
  return func(c *gin.Context) {
    id := c.GetHeader(RequestIDHeader)
    if id == "" || len(id) > 64 {
      id = uuid.NewString()
    }
    c.Writer.Header().Set(RequestIDHeader, id)
    ctx := requestdata.WithRequestID(c.Request.Context(), id)
    c.Request = c.Request.WithContext(ctx)
    c.Next()
  }
}
