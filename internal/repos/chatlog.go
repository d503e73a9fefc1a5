package repos

import (
  "context"
  "fmt"
  "strings"
  "time"

  "github.com/google/uuid"
  "gorm.io/gorm"

  "github.com/everything-automotive/ea-backend/internal/logger"
  "github.com/everything-automotive/ea-backend/internal/types"
)

type ChatLogRepo interface {
  // CREATE
  Create(ctx context.Context, tx *gorm.DB, entry *types.ChatLog) error

  // READ
  GetByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.ChatLog, error)
  GetByUserSession(ctx context.Context, tx *gorm.DB, userID uuid.UUID, sessionID string) ([]*types.ChatLog, error)
  GetByUserBetween(ctx context.Context, tx *gorm.DB, userID uuid.UUID, from, to time.Time, limit int) ([]*types.ChatLog, error)
  SearchByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, query string, limit int) ([]*types.ChatLog, error)
}

type chatLogRepo struct {
  db          *gorm.DB
  log         *logger.Logger
}

func NewChatLogRepo(db *gorm.DB, baseLog *logger.Logger) ChatLogRepo {
  repoLog := baseLog.With("repo", "ChatLogRepo")
  return &chatLogRepo{db: db, log: repoLog}
}

func (r *chatLogRepo) Create(ctx context.Context, tx *gorm.DB, entry *types.ChatLog) error {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if entry.ID == uuid.Nil {
    entry.ID = uuid.New()
  }
  if err := transaction.WithContext(ctx).Create(entry).Error; err != nil {
    return fmt.Errorf("failed creating chat log: %w", err)
  }
  r.log.Debug("Chat log created", "id", entry.ID, "sessionID", entry.SessionID, "sender", entry.Sender)
  return nil
}

func (r *chatLogRepo) GetByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.ChatLog, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  var results []*types.ChatLog
  if err := transaction.WithContext(ctx).
    Where("user_id = ?", userID).
    Order("timestamp ASC").
    Find(&results).Error; err != nil {
    return nil, fmt.Errorf("failed fetching chat logs for user: %w", err)
  }
  return results, nil
}

func (r *chatLogRepo) GetByUserSession(ctx context.Context, tx *gorm.DB, userID uuid.UUID, sessionID string) ([]*types.ChatLog, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  var results []*types.ChatLog
  if err := transaction.WithContext(ctx).
    Where("user_id = ? AND session_id = ?", userID, sessionID).
    Order("timestamp ASC").
    Find(&results).Error; err != nil {
    return nil, fmt.Errorf("failed fetching chat logs for session: %w", err)
  }
  return results, nil
}

func (r *chatLogRepo) GetByUserBetween(ctx context.Context, tx *gorm.DB, userID uuid.UUID, from, to time.Time, limit int) ([]*types.ChatLog, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  var results []*types.ChatLog
  q := transaction.WithContext(ctx).
    Where("user_id = ?", userID).
    Where("timestamp >= ? AND timestamp <= ?", from, to).
    Order("timestamp ASC")
  if limit > 0 {
    q = q.Limit(limit)
  }
  if err := q.Find(&results).Error; err != nil {
    return nil, fmt.Errorf("failed fetching chat logs in time range: %w", err)
  }
  return results, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// containsPattern builds an ILIKE pattern matching query literally.
func containsPattern(query string) string {
  return "%" + likeEscaper.Replace(query) + "%"
}

// SearchByUser matches message text case-insensitively. The newest matches
// are selected, then returned oldest first.
func (r *chatLogRepo) SearchByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, query string, limit int) ([]*types.ChatLog, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  var results []*types.ChatLog
  q := transaction.WithContext(ctx).
    Where("user_id = ?", userID).
    Where("message_text ILIKE ?", containsPattern(query)).
    Order("timestamp DESC")
  if limit > 0 {
    q = q.Limit(limit)
  }
  if err := q.Find(&results).Error; err != nil {
    return nil, fmt.Errorf("failed searching chat logs: %w", err)
  }
  for i, j := 0, len(results)-1; i < j; i, j = i+1, j-1 {
    results[i], results[j] = results[j], results[i]
  }
  return results, nil
}
