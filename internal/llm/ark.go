package llm

import (
  "context"
  "fmt"

  "github.com/cloudwego/eino-ext/components/model/ark"
  "github.com/cloudwego/eino/components/model"
  "github.com/cloudwego/eino/schema"

  "github.com/everything-automotive/ea-backend/internal/logger"
)

type ArkConfig struct {
  APIKey          string
  Model           string
  BaseURL         string
  Region          string
}

// arkGenerator streams through an eino chat model. Tools are not offered
// on this backend; the model answers from the conversation alone.
type arkGenerator struct {
  log             *logger.Logger
  chatModel       model.ChatModel
}

func NewArkGenerator(ctx context.Context, cfg ArkConfig, log *logger.Logger) (Generator, error) {
  genLog := log.With("service", "ArkGenerator")
  if cfg.APIKey == "" || cfg.Model == "" {
    return nil, fmt.Errorf("missing ark api key or model")
  }
  cm, err := ark.NewChatModel(ctx, &ark.ChatModelConfig{
    BaseURL:  cfg.BaseURL,
    Region:   cfg.Region,
    APIKey:   cfg.APIKey,
    Model:    cfg.Model,
  })
  if err != nil {
    return nil, fmt.Errorf("init ark chat model: %w", err)
  }
  genLog.Info("Initialized ark chat model", "model", cfg.Model)
  return newArkGenerator(cm, genLog), nil
}

func newArkGenerator(cm model.ChatModel, log *logger.Logger) *arkGenerator {
  log.Warn("Ark backend does not offer tools; history lookup and site page tools are unavailable to the model")
  return &arkGenerator{log: log, chatModel: cm}
}

func (g *arkGenerator) Stream(ctx context.Context, req Request) (TextStream, error) {
  messages := make([]*schema.Message, 0, len(req.Turns)+1)
  if req.System != "" {
    messages = append(messages, schema.SystemMessage(req.System))
  }
  for _, t := range req.Turns {
    if t.Role == RoleAssistant {
      messages = append(messages, schema.AssistantMessage(t.Content, nil))
    } else {
      messages = append(messages, schema.UserMessage(t.Content))
    }
  }
  sr, err := g.chatModel.Stream(ctx, messages)
  if err != nil {
    return nil, fmt.Errorf("ark stream open: %w", err)
  }
  return &arkStream{sr: sr}, nil
}

type arkStream struct {
  sr              *schema.StreamReader[*schema.Message]
}

func (s *arkStream) Recv() (string, error) {
  for {
    msg, err := s.sr.Recv()
    if err != nil {
      return "", err
    }
    if msg == nil || msg.Content == "" {
      continue
    }
    return msg.Content, nil
  }
}

func (s *arkStream) Close() error {
  s.sr.Close()
  return nil
}
