package repos

import (
  "context"
  "testing"
  "time"

  "github.com/google/uuid"
  "github.com/stretchr/testify/assert"
  "github.com/stretchr/testify/require"
  "gorm.io/driver/postgres"
  "gorm.io/gorm"
  gormlogger "gorm.io/gorm/logger"

  "github.com/everything-automotive/ea-backend/internal/logger"
  "github.com/everything-automotive/ea-backend/internal/types"
)

// recordedQuery holds the last statement built by a dry-run gorm handle.
// rows, when set, are handed back as the query result.
type recordedQuery struct {
  sql       string
  vars      []interface{}
  rows      []*types.ChatLog
}

// newDryRunDB builds statements with the postgres dialect without ever
// opening a connection.
func newDryRunDB(t *testing.T) (*gorm.DB, *recordedQuery) {
  t.Helper()
  db, err := gorm.Open(postgres.New(postgres.Config{
    DSN:              "host=localhost user=ea dbname=ea sslmode=disable",
    WithoutReturning: true,
  }), &gorm.Config{
    DryRun:               true,
    DisableAutomaticPing: true,
    Logger:               gormlogger.Default.LogMode(gormlogger.Silent),
  })
  require.NoError(t, err)

  rec := &recordedQuery{}
  capture := func(d *gorm.DB) {
    rec.sql = d.Statement.SQL.String()
    rec.vars = append([]interface{}(nil), d.Statement.Vars...)
    if dest, ok := d.Statement.Dest.(*[]*types.ChatLog); ok && rec.rows != nil {
      *dest = append(*dest, rec.rows...)
    }
  }
  require.NoError(t, db.Callback().Query().After("gorm:query").Register("test:record_query", capture))
  require.NoError(t, db.Callback().Create().After("gorm:create").Register("test:record_create", capture))
  return db, rec
}

func TestChatLogGetByUserOrdersByTimestamp(t *testing.T) {
  db, rec := newDryRunDB(t)
  repo := NewChatLogRepo(db, logger.NewNop())
  userID := uuid.New()

  _, err := repo.GetByUser(context.Background(), nil, userID)

  require.NoError(t, err)
  assert.Equal(t, `SELECT * FROM "ai_chat_logs" WHERE user_id = $1 ORDER BY timestamp ASC`, rec.sql)
  assert.Equal(t, []interface{}{userID}, rec.vars)
}

func TestChatLogGetByUserSessionScopesToSession(t *testing.T) {
  db, rec := newDryRunDB(t)
  repo := NewChatLogRepo(db, logger.NewNop())
  userID := uuid.New()

  _, err := repo.GetByUserSession(context.Background(), nil, userID, "s1")

  require.NoError(t, err)
  assert.Equal(t, `SELECT * FROM "ai_chat_logs" WHERE user_id = $1 AND session_id = $2 ORDER BY timestamp ASC`, rec.sql)
  assert.Equal(t, []interface{}{userID, "s1"}, rec.vars)
}

func TestChatLogGetByUserBetweenIsInclusive(t *testing.T) {
  db, rec := newDryRunDB(t)
  repo := NewChatLogRepo(db, logger.NewNop())
  userID := uuid.New()
  from := time.Date(2024, 5, 1, 14, 15, 0, 0, time.UTC)
  to := from.Add(30 * time.Minute)

  t.Run("with limit", func(t *testing.T) {
    _, err := repo.GetByUserBetween(context.Background(), nil, userID, from, to, 10)
    require.NoError(t, err)
    assert.Equal(t,
      `SELECT * FROM "ai_chat_logs" WHERE user_id = $1 AND (timestamp >= $2 AND timestamp <= $3) ORDER BY timestamp ASC LIMIT $4`,
      rec.sql)
    assert.Equal(t, []interface{}{userID, from, to, 10}, rec.vars)
  })

  t.Run("without limit", func(t *testing.T) {
    _, err := repo.GetByUserBetween(context.Background(), nil, userID, from, to, 0)
    require.NoError(t, err)
    assert.NotContains(t, rec.sql, "LIMIT")
    assert.Equal(t, []interface{}{userID, from, to}, rec.vars)
  })
}

func TestChatLogSearchByUserQuery(t *testing.T) {
  db, rec := newDryRunDB(t)
  repo := NewChatLogRepo(db, logger.NewNop())
  userID := uuid.New()

  _, err := repo.SearchByUser(context.Background(), nil, userID, "brake pads", 5)

  require.NoError(t, err)
  assert.Equal(t,
    `SELECT * FROM "ai_chat_logs" WHERE user_id = $1 AND message_text ILIKE $2 ORDER BY timestamp DESC LIMIT $3`,
    rec.sql)
  assert.Equal(t, []interface{}{userID, "%brake pads%", 5}, rec.vars)
}

func TestChatLogSearchByUserReturnsNewestOldestFirst(t *testing.T) {
  db, rec := newDryRunDB(t)
  repo := NewChatLogRepo(db, logger.NewNop())
  base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
  // newest first, as the DESC query yields them
  rec.rows = []*types.ChatLog{
    {MessageText: "brakes again", Timestamp: base.Add(3 * time.Hour)},
    {MessageText: "brakes still squeak", Timestamp: base.Add(2 * time.Hour)},
    {MessageText: "my brakes squeak", Timestamp: base.Add(time.Hour)},
  }

  rows, err := repo.SearchByUser(context.Background(), nil, uuid.New(), "brakes", 3)

  require.NoError(t, err)
  require.Len(t, rows, 3)
  assert.Equal(t, "my brakes squeak", rows[0].MessageText)
  assert.Equal(t, "brakes still squeak", rows[1].MessageText)
  assert.Equal(t, "brakes again", rows[2].MessageText)
}

func TestContainsPatternEscapesWildcards(t *testing.T) {
  cases := map[string]string{
    "brakes":      "%brakes%",
    "50%":         `%50\%%`,
    "oil_filter":  `%oil\_filter%`,
    `C:\path`:     `%C:\\path%`,
    "":            "%%",
  }
  for in, want := range cases {
    assert.Equal(t, want, containsPattern(in), in)
  }
}

func TestChatLogSearchByUserEscapesQuery(t *testing.T) {
  db, rec := newDryRunDB(t)
  repo := NewChatLogRepo(db, logger.NewNop())

  _, err := repo.SearchByUser(context.Background(), nil, uuid.New(), "50% off", 5)

  require.NoError(t, err)
  require.Len(t, rec.vars, 3)
  assert.Equal(t, `%50\% off%`, rec.vars[1])
}

func TestChatLogUsesGivenTransaction(t *testing.T) {
  tx, rec := newDryRunDB(t)
  repo := NewChatLogRepo(nil, logger.NewNop())
  userID := uuid.New()

  _, err := repo.GetByUserSession(context.Background(), tx, userID, "s2")

  require.NoError(t, err)
  assert.Contains(t, rec.sql, "session_id = $2")
}

func TestChatLogCreateAssignsID(t *testing.T) {
  db, rec := newDryRunDB(t)
  repo := NewChatLogRepo(db, logger.NewNop())
  entry := &types.ChatLog{
    UserID:      uuid.New(),
    SessionID:   "s1",
    Sender:      types.ChatSenderUser,
    MessageText: "My brakes squeak",
    Timestamp:   time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
  }

  require.NoError(t, repo.Create(context.Background(), nil, entry))

  assert.NotEqual(t, uuid.Nil, entry.ID)
  assert.Contains(t, rec.sql, `INSERT INTO "ai_chat_logs"`)
  assert.Contains(t, rec.vars, entry.ID)
  assert.Contains(t, rec.vars, "My brakes squeak")
}
