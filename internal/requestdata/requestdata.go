package requestdata

import (
  "context"

  "github.com/google/uuid"

  "github.com/everything-automotive/ea-backend/internal/types"
)

type key struct{}

var requestDataKey key

func WithRequestData(ctx context.Context, rd *RequestData) context.Context {
  return context.WithValue(ctx, requestDataKey, rd)
}

func GetRequestData(ctx context.Context) *RequestData {
  val := ctx.Value(requestDataKey)
  if rd, ok := val.(*RequestData); ok {
    return rd
  }
  return nil
}

// RequestData is the authenticated identity attached to a request.
type RequestData struct {
  TokenString     string
  UserID          uuid.UUID
  Email           string
  Profile         *types.Profile
}

type requestIDKey struct{}

func WithRequestID(ctx context.Context, id string) context.Context {
  return context.WithValue(ctx, requestIDKey{}, id)
}

func GetRequestID(ctx context.Context) string {
  id, _ := ctx.Value(requestIDKey{}).(string)
  return id
}
