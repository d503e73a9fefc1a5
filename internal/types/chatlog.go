package types

import (
  "time"

  "github.com/google/uuid"
  "gorm.io/datatypes"
)

type ChatSender string

const (
  ChatSenderUser        ChatSender = "user"
  ChatSenderAssistant   ChatSender = "assistant"
)

// ChatLog is one persisted turn half. Rows are append-only.
type ChatLog struct {
  ID                  uuid.UUID                 `gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
  UserID              uuid.UUID                 `gorm:"type:uuid;not null;index:idx_ai_chat_logs_user_session_ts,priority:1"`
  SessionID           string                    `gorm:"not null;index:idx_ai_chat_logs_user_session_ts,priority:2"`
  Sender              ChatSender                `gorm:"type:varchar(20);not null"`
  MessageText         string                    `gorm:"column:message_text;type:text"`
  Context             datatypes.JSON            `gorm:"type:jsonb;column:context"`
  Metadata            datatypes.JSON            `gorm:"type:jsonb;column:metadata"`
  Timestamp           time.Time                 `gorm:"column:timestamp;not null;index:idx_ai_chat_logs_user_session_ts,priority:3"`
}

func (ChatLog) TableName() string {
  return "ai_chat_logs"
}

// ChatMessage is the read-side view of a ChatLog row.
type ChatMessage struct {
  Sender              ChatSender                `json:"sender"`
  Text                string                    `json:"text"`
  Context             datatypes.JSON            `json:"context"`
  Metadata            datatypes.JSON            `json:"metadata"`
  Timestamp           time.Time                 `json:"-"`
}

type ChatHistoryResponse struct {
  SessionID           string                    `json:"session_id"`
  Messages            []ChatMessage             `json:"messages"`
}

type ChatRequest struct {
  SessionID           string                    `json:"session_id" binding:"required"`
  Message             string                    `json:"message" binding:"required"`
}
