package services

import (
  "context"
  "encoding/json"
  "fmt"
  "time"

  "github.com/google/uuid"
  "github.com/sashabaranov/go-openai/jsonschema"

  "github.com/everything-automotive/ea-backend/internal/llm"
  "github.com/everything-automotive/ea-backend/internal/logger"
  "github.com/everything-automotive/ea-backend/internal/repos"
  "github.com/everything-automotive/ea-backend/internal/types"
)

const (
  toolConversationByTime = "get_conversation_by_time_tool"
  toolSearchHistory      = "search_conversation_history_tool"
  toolAboutPage          = "get_about_page_content_tool"
  toolContactPage        = "get_contact_page_content_tool"
  toolServicesPage       = "get_services_page_content_tool"

  defaultTimeRangeMinutes = 15
  timeWindowLimit         = 10
  defaultSearchResults    = 5
)

// MechanicAgent owns the assistant's instructions and the tools it may
// call on behalf of one user.
type MechanicAgent interface {
  SystemPrompt() string
  Tools(userID uuid.UUID) []llm.Tool
  Turns(history []types.ChatMessage, message string) []llm.Turn
}

type mechanicAgent struct {
  log             *logger.Logger
  chatLogRepo     repos.ChatLogRepo
  company         types.CompanyInfo
  prompt          string
}

func NewMechanicAgent(log *logger.Logger, chatLogRepo repos.ChatLogRepo, company types.CompanyInfo) MechanicAgent {
  serviceLog := log.With("service", "MechanicAgent")
  return &mechanicAgent{
    log:          serviceLog,
    chatLogRepo:  chatLogRepo,
    company:      company,
    prompt:       buildSystemPrompt(company.Name),
  }
}

func (ma *mechanicAgent) SystemPrompt() string {
  return ma.prompt
}

func (ma *mechanicAgent) Tools(userID uuid.UUID) []llm.Tool {
  return []llm.Tool{
    &conversationByTimeTool{log: ma.log, repo: ma.chatLogRepo, userID: userID},
    &searchHistoryTool{log: ma.log, repo: ma.chatLogRepo, userID: userID},
    &staticTool{
      name:        toolAboutPage,
      description: "Retrieves a summary of the content found on the " + ma.company.Name + " 'About Us' page. Use this tool when the user asks about the company, its mission, vision, services overview, or leadership.",
      content:     aboutPageContent(ma.company),
    },
    &staticTool{
      name:        toolContactPage,
      description: "Retrieves the contact information and operating hours for " + ma.company.Name + ". Use this tool when the user asks for phone numbers, email addresses, physical locations, or business hours.",
      content:     contactPageContent(ma.company),
    },
    &staticTool{
      name:        toolServicesPage,
      description: "Retrieves a summary of the main services offered by " + ma.company.Name + ", as listed on the Services page. Use this tool when the user asks about the range of services provided.",
      content:     servicesPageContent(ma.company),
    },
  }
}

// Turns maps stored history onto model roles. The inbound message is
// usually already the last stored row and is only appended when missing.
func (ma *mechanicAgent) Turns(history []types.ChatMessage, message string) []llm.Turn {
  turns := make([]llm.Turn, 0, len(history)+1)
  for _, m := range history {
    role := llm.RoleUser
    if m.Sender == types.ChatSenderAssistant {
      role = llm.RoleAssistant
    }
    turns = append(turns, llm.Turn{Role: role, Content: m.Text})
  }
  if n := len(turns); n == 0 || turns[n-1].Role != llm.RoleUser || turns[n-1].Content != message {
    turns = append(turns, llm.Turn{Role: llm.RoleUser, Content: message})
  }
  return turns
}

type historyEntry struct {
  Timestamp   string  `json:"timestamp"`
  Sender      string  `json:"sender"`
  Message     string  `json:"message"`
}

func encodeEntries(rows []*types.ChatLog) (string, error) {
  out := make([]historyEntry, 0, len(rows))
  for _, r := range rows {
    out = append(out, historyEntry{
      Timestamp: r.Timestamp.Format(time.RFC3339Nano),
      Sender:    string(r.Sender),
      Message:   r.MessageText,
    })
  }
  b, err := json.Marshal(out)
  if err != nil {
    return "", err
  }
  return string(b), nil
}

type conversationByTimeTool struct {
  log         *logger.Logger
  repo        repos.ChatLogRepo
  userID      uuid.UUID
}

type conversationTimeQuery struct {
  TargetDate        string  `json:"target_date"`
  TargetTime        string  `json:"target_time"`
  TimeRangeMinutes  *int    `json:"time_range_minutes"`
}

func (t *conversationByTimeTool) Name() string { return toolConversationByTime }

func (t *conversationByTimeTool) Description() string {
  return "Retrieves messages exchanged with this user around a specific past date and time."
}

func (t *conversationByTimeTool) Parameters() jsonschema.Definition {
  return jsonschema.Definition{
    Type: jsonschema.Object,
    Properties: map[string]jsonschema.Definition{
      "target_date":        {Type: jsonschema.String, Description: "The target date in YYYY-MM-DD format. Example: 2025-04-24"},
      "target_time":        {Type: jsonschema.String, Description: "The target time in HH:MM format (24-hour clock). Example: 14:30 for 2:30 PM"},
      "time_range_minutes": {Type: jsonschema.Integer, Description: "Optional: The +/- range in minutes around the target time to search within (e.g., 15). Defaults to 15 if not provided."},
    },
    Required: []string{"target_date", "target_time"},
  }
}

func (t *conversationByTimeTool) Call(ctx context.Context, args json.RawMessage) (string, error) {
  var q conversationTimeQuery
  if err := json.Unmarshal(args, &q); err != nil {
    return "Error: Invalid date or time format provided. Please use YYYY-MM-DD and HH:MM.", nil
  }
  target, err := time.ParseInLocation("2006-01-02 15:04", q.TargetDate+" "+q.TargetTime, time.UTC)
  if err != nil {
    t.log.Debug("Unparseable conversation time", "date", q.TargetDate, "time", q.TargetTime)
    return "Error: Invalid date or time format provided. Please use YYYY-MM-DD and HH:MM.", nil
  }
  rangeMinutes := defaultTimeRangeMinutes
  if q.TimeRangeMinutes != nil {
    rangeMinutes = *q.TimeRangeMinutes
  }
  window := time.Duration(rangeMinutes) * time.Minute
  rows, err := t.repo.GetByUserBetween(ctx, nil, t.userID, target.Add(-window), target.Add(window), timeWindowLimit)
  if err != nil {
    t.log.Warn("Conversation lookup by time failed", "userID", t.userID, "error", err)
    return fmt.Sprintf("An error occurred while retrieving conversation history: %v", err), nil
  }
  if len(rows) == 0 {
    return fmt.Sprintf("No conversation history found for user %s around %s %s +/- %d minutes.", t.userID, q.TargetDate, q.TargetTime, rangeMinutes), nil
  }
  return encodeEntries(rows)
}

type searchHistoryTool struct {
  log         *logger.Logger
  repo        repos.ChatLogRepo
  userID      uuid.UUID
}

type conversationContentQuery struct {
  SearchQuery   string  `json:"search_query"`
  MaxResults    *int    `json:"max_results"`
}

func (t *searchHistoryTool) Name() string { return toolSearchHistory }

func (t *searchHistoryTool) Description() string {
  return "Searches this user's past messages for a phrase or keyword."
}

func (t *searchHistoryTool) Parameters() jsonschema.Definition {
  return jsonschema.Definition{
    Type: jsonschema.Object,
    Properties: map[string]jsonschema.Definition{
      "search_query": {Type: jsonschema.String, Description: "The text phrase or keywords to search for within the conversation history."},
      "max_results":  {Type: jsonschema.Integer, Description: "Optional: Maximum number of matching messages to return. Defaults to 5 if not provided."},
    },
    Required: []string{"search_query"},
  }
}

func (t *searchHistoryTool) Call(ctx context.Context, args json.RawMessage) (string, error) {
  var q conversationContentQuery
  if err := json.Unmarshal(args, &q); err != nil {
    return "", fmt.Errorf("decode %s arguments: %w", toolSearchHistory, err)
  }
  limit := defaultSearchResults
  if q.MaxResults != nil && *q.MaxResults > 0 {
    limit = *q.MaxResults
  }
  rows, err := t.repo.SearchByUser(ctx, nil, t.userID, q.SearchQuery, limit)
  if err != nil {
    t.log.Warn("Conversation search failed", "userID", t.userID, "error", err)
    return fmt.Sprintf("An error occurred while searching conversation history: %v", err), nil
  }
  if len(rows) == 0 {
    return fmt.Sprintf("No messages found containing '%s'.", q.SearchQuery), nil
  }
  return encodeEntries(rows)
}

type staticTool struct {
  name          string
  description   string
  content       string
}

func (t *staticTool) Name() string        { return t.name }
func (t *staticTool) Description() string { return t.description }
func (t *staticTool) Parameters() jsonschema.Definition {
  return jsonschema.Definition{Type: jsonschema.Object, Properties: map[string]jsonschema.Definition{}}
}
func (t *staticTool) Call(ctx context.Context, args json.RawMessage) (string, error) {
  return t.content, nil
}
