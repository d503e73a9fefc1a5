package llm

import (
  "context"
  "encoding/json"
  "errors"
  "fmt"
  "io"
  "sort"
  "strings"

  "github.com/sashabaranov/go-openai"

  "github.com/everything-automotive/ea-backend/internal/logger"
)

const defaultMaxToolRounds = 5

type OpenAIConfig struct {
  APIKey          string
  Model           string
  BaseURL         string
  MaxToolRounds   int
}

type openAIGenerator struct {
  log             *logger.Logger
  client          *openai.Client
  model           string
  maxToolRounds   int
}

func NewOpenAIGenerator(cfg OpenAIConfig, log *logger.Logger) (Generator, error) {
  genLog := log.With("service", "OpenAIGenerator")
  if cfg.APIKey == "" {
    return nil, fmt.Errorf("missing OpenAI API key")
  }
  if cfg.Model == "" {
    cfg.Model = openai.GPT4oMini
    genLog.Warn("OpenAI model not set, defaulting", "model", cfg.Model)
  }
  if cfg.MaxToolRounds <= 0 {
    cfg.MaxToolRounds = defaultMaxToolRounds
  }
  clientCfg := openai.DefaultConfig(cfg.APIKey)
  if cfg.BaseURL != "" {
    clientCfg.BaseURL = cfg.BaseURL
  }
  genLog.Info("Initializing OpenAI client", "model", cfg.Model)
  return &openAIGenerator{
    log:            genLog,
    client:         openai.NewClientWithConfig(clientCfg),
    model:          cfg.Model,
    maxToolRounds:  cfg.MaxToolRounds,
  }, nil
}

func (g *openAIGenerator) Stream(ctx context.Context, req Request) (TextStream, error) {
  messages := make([]openai.ChatCompletionMessage, 0, len(req.Turns)+1)
  if req.System != "" {
    messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.System})
  }
  for _, t := range req.Turns {
    role := openai.ChatMessageRoleUser
    if t.Role == RoleAssistant {
      role = openai.ChatMessageRoleAssistant
    }
    messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: t.Content})
  }

  s := &openAIStream{
    ctx:        ctx,
    g:          g,
    messages:   messages,
    tools:      make(map[string]Tool, len(req.Tools)),
  }
  for _, tool := range req.Tools {
    s.tools[tool.Name()] = tool
    params := tool.Parameters()
    s.toolDefs = append(s.toolDefs, openai.Tool{
      Type: openai.ToolTypeFunction,
      Function: &openai.FunctionDefinition{
        Name:         tool.Name(),
        Description:  tool.Description(),
        Parameters:   params,
      },
    })
  }
  if err := s.open(); err != nil {
    return nil, err
  }
  return s, nil
}

// openAIStream runs one reply, which may span several completion requests
// when the model asks for tools in between.
type openAIStream struct {
  ctx             context.Context
  g               *openAIGenerator
  messages        []openai.ChatCompletionMessage
  tools           map[string]Tool
  toolDefs        []openai.Tool
  stream          *openai.ChatCompletionStream
  pending         map[int]*openai.ToolCall
  content         strings.Builder
  rounds          int
  done            bool
}

func (s *openAIStream) open() error {
  req := openai.ChatCompletionRequest{
    Model:      s.g.model,
    Messages:   s.messages,
    Stream:     true,
  }
  if len(s.toolDefs) > 0 {
    req.Tools = s.toolDefs
  }
  stream, err := s.g.client.CreateChatCompletionStream(s.ctx, req)
  if err != nil {
    return fmt.Errorf("openai stream open: %w", err)
  }
  s.stream = stream
  s.pending = make(map[int]*openai.ToolCall)
  s.content.Reset()
  return nil
}

func (s *openAIStream) Recv() (string, error) {
  for {
    if s.done {
      return "", io.EOF
    }
    resp, err := s.stream.Recv()
    if errors.Is(err, io.EOF) {
      if len(s.pending) == 0 {
        s.done = true
        return "", io.EOF
      }
      if err := s.runTools(); err != nil {
        s.done = true
        return "", err
      }
      continue
    }
    if err != nil {
      return "", fmt.Errorf("openai stream recv: %w", err)
    }
    if len(resp.Choices) == 0 {
      continue
    }
    delta := resp.Choices[0].Delta
    for _, tc := range delta.ToolCalls {
      s.accumulate(tc)
    }
    if delta.Content != "" {
      s.content.WriteString(delta.Content)
      return delta.Content, nil
    }
  }
}

func (s *openAIStream) accumulate(tc openai.ToolCall) {
  idx := 0
  if tc.Index != nil {
    idx = *tc.Index
  }
  call, ok := s.pending[idx]
  if !ok {
    call = &openai.ToolCall{Type: openai.ToolTypeFunction}
    s.pending[idx] = call
  }
  if tc.ID != "" {
    call.ID = tc.ID
  }
  if tc.Function.Name != "" {
    call.Function.Name = tc.Function.Name
  }
  call.Function.Arguments += tc.Function.Arguments
}

func (s *openAIStream) runTools() error {
  s.rounds++
  if s.rounds > s.g.maxToolRounds {
    return fmt.Errorf("openai: exceeded %d tool rounds", s.g.maxToolRounds)
  }
  indexes := make([]int, 0, len(s.pending))
  for idx := range s.pending {
    indexes = append(indexes, idx)
  }
  sort.Ints(indexes)
  calls := make([]openai.ToolCall, 0, len(indexes))
  for _, idx := range indexes {
    calls = append(calls, *s.pending[idx])
  }
  s.messages = append(s.messages, openai.ChatCompletionMessage{
    Role:       openai.ChatMessageRoleAssistant,
    Content:    s.content.String(),
    ToolCalls:  calls,
  })
  for _, call := range calls {
    result := s.callTool(call)
    s.messages = append(s.messages, openai.ChatCompletionMessage{
      Role:       openai.ChatMessageRoleTool,
      Content:    result,
      ToolCallID: call.ID,
    })
  }
  s.stream.Close()
  return s.open()
}

func (s *openAIStream) callTool(call openai.ToolCall) string {
  tool, ok := s.tools[call.Function.Name]
  if !ok {
    s.g.log.Warn("Model requested unknown tool", "tool", call.Function.Name)
    return fmt.Sprintf("Error: unknown tool %q.", call.Function.Name)
  }
  args := json.RawMessage(call.Function.Arguments)
  if len(args) == 0 {
    args = json.RawMessage("{}")
  }
  s.g.log.Debug("Calling tool", "tool", call.Function.Name, "args", call.Function.Arguments)
  result, err := tool.Call(s.ctx, args)
  if err != nil {
    s.g.log.Warn("Tool call failed", "tool", call.Function.Name, "error", err)
    return fmt.Sprintf("An error occurred while running %s: %v", call.Function.Name, err)
  }
  return result
}

func (s *openAIStream) Close() error {
  if s.stream != nil {
    s.stream.Close()
  }
  return nil
}
