package handlers

import (
  "encoding/json"
  "net/http"

  "github.com/gin-gonic/gin"
  "github.com/gin-gonic/gin/binding"

  "github.com/everything-automotive/ea-backend/internal/logger"
  "github.com/everything-automotive/ea-backend/internal/requestdata"
  "github.com/everything-automotive/ea-backend/internal/services"
  "github.com/everything-automotive/ea-backend/internal/sse"
  "github.com/everything-automotive/ea-backend/internal/types"
  "github.com/everything-automotive/ea-backend/internal/utils"
)

const (
  MsgChatBodyInvalid    = "Invalid request body. JSON expected."
  MsgHistoryFailed      = "An error occurred while fetching chat history."
)

type AIHandler struct {
  log               *logger.Logger
  chatService       services.ChatService
}

func NewAIHandler(log *logger.Logger, chatService services.ChatService) *AIHandler {
  handlerLog := log.With("handler", "AIHandler")
  return &AIHandler{log: handlerLog, chatService: chatService}
}

// Chat streams one mechanic turn as text/event-stream. Every rejection is
// also a single event-stream frame.
func (ah *AIHandler) Chat(c *gin.Context) {
  ctx := c.Request.Context()
  rd := requestdata.GetRequestData(ctx)
  if rd == nil || rd.Profile == nil {
    ah.reject(c, http.StatusUnauthorized, gin.H{"error": "Authentication required"})
    return
  }

  raw, err := c.GetRawData()
  var object map[string]json.RawMessage
  if err != nil || len(raw) == 0 || json.Unmarshal(raw, &object) != nil {
    ah.reject(c, http.StatusBadRequest, gin.H{"error": MsgChatBodyInvalid})
    return
  }
  var req types.ChatRequest
  if err := binding.JSON.BindBody(raw, &req); err != nil {
    details, _ := utils.ValidationDetails(err)
    ah.log.Info("Rejected chat request", "userID", rd.UserID, "error", err)
    ah.reject(c, http.StatusBadRequest, gin.H{"error": MsgInvalidInput, "details": details})
    return
  }

  writer, err := sse.NewWriter(c.Writer)
  if err != nil {
    ah.log.Error("Response writer cannot stream", "error", err)
    c.JSON(http.StatusInternalServerError, gin.H{"error": "Streaming not supported"})
    return
  }
  c.Status(http.StatusOK)
  outcome := ah.chatService.StreamTurn(ctx, rd.Profile, req.SessionID, req.Message, writer)
  ah.log.Info("Chat turn finished",
    "userID", rd.UserID,
    "sessionID", req.SessionID,
    "outcome", outcome,
    "requestID", requestdata.GetRequestID(ctx),
  )
}

func (ah *AIHandler) reject(c *gin.Context, status int, payload gin.H) {
  if err := sse.Reject(c.Writer, status, payload); err != nil {
    ah.log.Debug("Could not write chat rejection frame", "status", status, "error", err)
  }
}

func (ah *AIHandler) History(c *gin.Context) {
  ctx := c.Request.Context()
  rd := requestdata.GetRequestData(ctx)
  if rd == nil {
    c.JSON(http.StatusUnauthorized, gin.H{"message": "Authentication required"})
    return
  }
  sessionID := c.Param("session_id")
  messages, err := ah.chatService.LoadSessionHistory(ctx, rd.UserID, sessionID)
  if err != nil {
    c.JSON(http.StatusInternalServerError, gin.H{"message": MsgHistoryFailed})
    return
  }
  c.JSON(http.StatusOK, types.ChatHistoryResponse{SessionID: sessionID, Messages: messages})
}
