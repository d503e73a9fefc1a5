package services

import (
  "context"
  "errors"
  "fmt"
  "io"
  "strings"
  "time"

  "github.com/google/uuid"
  "go.opentelemetry.io/otel/attribute"
  "go.opentelemetry.io/otel/codes"
  "go.opentelemetry.io/otel/trace"

  "github.com/everything-automotive/ea-backend/internal/llm"
  "github.com/everything-automotive/ea-backend/internal/logger"
  "github.com/everything-automotive/ea-backend/internal/metrics"
  "github.com/everything-automotive/ea-backend/internal/repos"
  "github.com/everything-automotive/ea-backend/internal/sse"
  "github.com/everything-automotive/ea-backend/internal/telemetry"
  "github.com/everything-automotive/ea-backend/internal/types"
)

const streamErrorPrefix = "An error occurred during streaming: "

type ChatService interface {
  // StreamTurn runs one turn and reports how it ended. The reply is
  // persisted on every exit path, including client disconnects.
  StreamTurn(ctx context.Context, user *types.Profile, sessionID, message string, sink sse.Sink) string
  LoadFullHistory(ctx context.Context, userID uuid.UUID) []types.ChatMessage
  LoadSessionHistory(ctx context.Context, userID uuid.UUID, sessionID string) ([]types.ChatMessage, error)
}

type ChatConfig struct {
  TimestampOffset   time.Duration
  PersistTimeout    time.Duration
  Clock             func() time.Time
}

type chatService struct {
  log               *logger.Logger
  chatLogRepo       repos.ChatLogRepo
  generator         llm.Generator
  agent             MechanicAgent
  metrics           *metrics.Metrics
  tracer            trace.Tracer
  offset            time.Duration
  persistTimeout    time.Duration
  clock             func() time.Time
}

func NewChatService(
  log               *logger.Logger,
  chatLogRepo       repos.ChatLogRepo,
  generator         llm.Generator,
  agent             MechanicAgent,
  m                 *metrics.Metrics,
  cfg               ChatConfig,
) ChatService {
  serviceLog := log.With("service", "ChatService")
  if cfg.Clock == nil {
    cfg.Clock = time.Now
  }
  if cfg.PersistTimeout <= 0 {
    cfg.PersistTimeout = 10 * time.Second
  }
  return &chatService{
    log:            serviceLog,
    chatLogRepo:    chatLogRepo,
    generator:      generator,
    agent:          agent,
    metrics:        m,
    tracer:         telemetry.Tracer(),
    offset:         cfg.TimestampOffset,
    persistTimeout: cfg.PersistTimeout,
    clock:          cfg.Clock,
  }
}

func (cs *chatService) StreamTurn(ctx context.Context, user *types.Profile, sessionID, message string, sink sse.Sink) (outcome string) {
  started := time.Now()
  ctx, span := cs.tracer.Start(ctx, "chat.turn", trace.WithAttributes(
    attribute.String("chat.session_id", sessionID),
    attribute.String("chat.user_id", user.ID.String()),
  ))
  var reply strings.Builder
  defer func() {
    if reply.Len() > 0 {
      cs.persistDetached(ctx, user.ID, sessionID, types.ChatSenderAssistant, reply.String())
      span.AddEvent("persist.assistant")
    } else {
      cs.log.Debug("No reply text to persist", "sessionID", sessionID, "outcome", outcome)
    }
    cs.metrics.ObserveTurn(outcome, time.Since(started))
    span.SetAttributes(attribute.String("chat.outcome", outcome), attribute.Int("chat.reply_length", reply.Len()))
    span.End()
  }()

  cs.persist(ctx, user.ID, sessionID, types.ChatSenderUser, message)
  span.AddEvent("persist.user")

  history := cs.LoadFullHistory(ctx, user.ID)
  req := llm.Request{
    System: cs.agent.SystemPrompt(),
    Turns:  cs.agent.Turns(history, message),
    Tools:  cs.agent.Tools(user.ID),
  }
  cs.log.Debug("Opening generation stream", "sessionID", sessionID, "turns", len(req.Turns))
  stream, err := cs.generator.Stream(ctx, req)
  if err != nil {
    return cs.handleStreamError(ctx, span, sink, sessionID, err)
  }
  defer stream.Close()
  span.AddEvent("generate.open")

  for {
    if ctx.Err() != nil {
      cs.log.Info("Client went away mid-stream", "sessionID", sessionID)
      return metrics.OutcomeCancelled
    }
    chunk, err := stream.Recv()
    if errors.Is(err, io.EOF) {
      if werr := sink.End(); werr != nil {
        cs.log.Debug("Failed to write end frame", "error", werr)
      }
      return metrics.OutcomeCompleted
    }
    if err != nil {
      return cs.handleStreamError(ctx, span, sink, sessionID, err)
    }
    if chunk == "" {
      continue
    }
    reply.WriteString(chunk)
    if werr := sink.Fragment(chunk); werr != nil {
      cs.log.Info("Stopped forwarding, client write failed", "sessionID", sessionID, "error", werr)
      return metrics.OutcomeCancelled
    }
    cs.metrics.IncFragments()
  }
}

func (cs *chatService) handleStreamError(ctx context.Context, span trace.Span, sink sse.Sink, sessionID string, err error) string {
  if ctx.Err() != nil {
    cs.log.Info("Generation stopped after client disconnect", "sessionID", sessionID, "error", err)
    return metrics.OutcomeCancelled
  }
  if llm.IsForeignContextError(err) {
    cs.log.Info("Suppressing benign trace context error", "sessionID", sessionID, "error", err)
    return metrics.OutcomeSuppressed
  }
  cs.log.Error("Error during generation stream", "sessionID", sessionID, "error", err)
  span.RecordError(err)
  span.SetStatus(codes.Error, "generation failed")
  if werr := sink.Error(streamErrorPrefix + llm.ErrorKind(err)); werr != nil {
    cs.log.Debug("Failed to write error frame", "error", werr)
  }
  return metrics.OutcomeError
}

func (cs *chatService) timestamp() time.Time {
  return cs.clock().UTC().Add(cs.offset)
}

func (cs *chatService) persist(ctx context.Context, userID uuid.UUID, sessionID string, sender types.ChatSender, text string) {
  entry := &types.ChatLog{
    UserID:      userID,
    SessionID:   sessionID,
    Sender:      sender,
    MessageText: text,
    Timestamp:   cs.timestamp(),
  }
  if err := cs.chatLogRepo.Create(ctx, nil, entry); err != nil {
    cs.metrics.IncPersistFailure(string(sender))
    cs.log.Error("Failed to save chat message", "sender", sender, "sessionID", sessionID, "userID", userID, "error", err)
    return
  }
  cs.log.Debug("Saved chat message", "sender", sender, "sessionID", sessionID, "timestamp", entry.Timestamp)
}

// persistDetached outlives the request so a disconnect cannot drop the reply.
func (cs *chatService) persistDetached(ctx context.Context, userID uuid.UUID, sessionID string, sender types.ChatSender, text string) {
  pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cs.persistTimeout)
  defer cancel()
  cs.persist(pctx, userID, sessionID, sender, text)
}

func (cs *chatService) LoadFullHistory(ctx context.Context, userID uuid.UUID) []types.ChatMessage {
  rows, err := cs.chatLogRepo.GetByUser(ctx, nil, userID)
  if err != nil {
    cs.log.Error("Failed to load full chat history", "userID", userID, "error", err)
    return []types.ChatMessage{}
  }
  return toMessages(rows)
}

func (cs *chatService) LoadSessionHistory(ctx context.Context, userID uuid.UUID, sessionID string) ([]types.ChatMessage, error) {
  rows, err := cs.chatLogRepo.GetByUserSession(ctx, nil, userID, sessionID)
  if err != nil {
    cs.log.Error("Failed to load session chat history", "userID", userID, "sessionID", sessionID, "error", err)
    return []types.ChatMessage{}, fmt.Errorf("load session history: %w", err)
  }
  return toMessages(rows), nil
}

func toMessages(rows []*types.ChatLog) []types.ChatMessage {
  out := make([]types.ChatMessage, 0, len(rows))
  for _, r := range rows {
    if r == nil || strings.TrimSpace(r.MessageText) == "" {
      continue
    }
    out = append(out, types.ChatMessage{
      Sender:    r.Sender,
      Text:      r.MessageText,
      Context:   r.Context,
      Metadata:  r.Metadata,
      Timestamp: r.Timestamp,
    })
  }
  return out
}
