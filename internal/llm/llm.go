// Package llm wraps the streaming text-generation backends behind one
// small interface.
package llm

import (
  "context"
  "encoding/json"
  "errors"
  "strings"

  "github.com/sashabaranov/go-openai"
  "github.com/sashabaranov/go-openai/jsonschema"
)

type Role string

const (
  RoleUser          Role = "user"
  RoleAssistant     Role = "assistant"
)

type Turn struct {
  Role            Role
  Content         string
}

// Tool is a function the model may call while generating a reply.
type Tool interface {
  Name() string
  Description() string
  Parameters() jsonschema.Definition
  Call(ctx context.Context, args json.RawMessage) (string, error)
}

type Request struct {
  System          string
  Turns           []Turn
  Tools           []Tool
}

// TextStream yields reply fragments in generation order. Recv returns
// io.EOF once the reply is complete.
type TextStream interface {
  Recv() (string, error)
  Close() error
}

type Generator interface {
  Stream(ctx context.Context, req Request) (TextStream, error)
}

// ErrForeignTraceContext marks the benign failure raised when a tracing
// context token is released from a different execution context than the
// one that created it. No reply content is lost when it occurs.
var ErrForeignTraceContext = errors.New("llm: trace context token was created in a different Context")

const foreignContextMarker = "was created in a different Context"

// IsForeignContextError is the only place that decides whether a stream
// failure is the benign tracing artifact.
func IsForeignContextError(err error) bool {
  if err == nil {
    return false
  }
  if errors.Is(err, ErrForeignTraceContext) {
    return true
  }
  return strings.Contains(err.Error(), foreignContextMarker)
}

// ErrorKind names the category of a generation failure without exposing
// provider detail.
func ErrorKind(err error) string {
  var apiErr *openai.APIError
  var reqErr *openai.RequestError
  switch {
  case err == nil:
    return ""
  case errors.Is(err, context.DeadlineExceeded):
    return "TimeoutError"
  case errors.Is(err, context.Canceled):
    return "CancelledError"
  case errors.As(err, &apiErr):
    return "APIError"
  case errors.As(err, &reqErr):
    return "RequestError"
  default:
    return "GenerationError"
  }
}
