package services

import (
  "context"
  "errors"
  "io"
  "sync"
  "time"

  "github.com/google/uuid"
  "github.com/stretchr/testify/mock"
  "gorm.io/gorm"

  "github.com/everything-automotive/ea-backend/internal/llm"
  "github.com/everything-automotive/ea-backend/internal/types"
)

type mockChatLogRepo struct {
  mock.Mock
  mu      sync.Mutex
  created []*types.ChatLog
}

func (m *mockChatLogRepo) Create(ctx context.Context, tx *gorm.DB, entry *types.ChatLog) error {
  args := m.Called(ctx, tx, entry)
  if args.Error(0) == nil {
    m.mu.Lock()
    m.created = append(m.created, entry)
    m.mu.Unlock()
  }
  return args.Error(0)
}

func (m *mockChatLogRepo) GetByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.ChatLog, error) {
  args := m.Called(ctx, tx, userID)
  rows, _ := args.Get(0).([]*types.ChatLog)
  return rows, args.Error(1)
}

func (m *mockChatLogRepo) GetByUserSession(ctx context.Context, tx *gorm.DB, userID uuid.UUID, sessionID string) ([]*types.ChatLog, error) {
  args := m.Called(ctx, tx, userID, sessionID)
  rows, _ := args.Get(0).([]*types.ChatLog)
  return rows, args.Error(1)
}

func (m *mockChatLogRepo) GetByUserBetween(ctx context.Context, tx *gorm.DB, userID uuid.UUID, from, to time.Time, limit int) ([]*types.ChatLog, error) {
  args := m.Called(ctx, tx, userID, from, to, limit)
  rows, _ := args.Get(0).([]*types.ChatLog)
  return rows, args.Error(1)
}

func (m *mockChatLogRepo) SearchByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, query string, limit int) ([]*types.ChatLog, error) {
  args := m.Called(ctx, tx, userID, query, limit)
  rows, _ := args.Get(0).([]*types.ChatLog)
  return rows, args.Error(1)
}

func (m *mockChatLogRepo) rowsBySender(sender types.ChatSender) []*types.ChatLog {
  m.mu.Lock()
  defer m.mu.Unlock()
  var out []*types.ChatLog
  for _, r := range m.created {
    if r.Sender == sender {
      out = append(out, r)
    }
  }
  return out
}

type mockProfileRepo struct {
  mock.Mock
}

func (m *mockProfileRepo) GetByID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.Profile, error) {
  args := m.Called(ctx, tx, userID)
  p, _ := args.Get(0).(*types.Profile)
  return p, args.Error(1)
}

func (m *mockProfileRepo) UpdateFields(ctx context.Context, tx *gorm.DB, userID uuid.UUID, fields map[string]interface{}) (int64, error) {
  args := m.Called(ctx, tx, userID, fields)
  return args.Get(0).(int64), args.Error(1)
}

type mockSiteInfoRepo struct {
  mock.Mock
}

func (m *mockSiteInfoRepo) GetValue(ctx context.Context, tx *gorm.DB, key string) (*string, error) {
  args := m.Called(ctx, tx, key)
  v, _ := args.Get(0).(*string)
  return v, args.Error(1)
}

func (m *mockSiteInfoRepo) GetValues(ctx context.Context, tx *gorm.DB, keys []string) (map[string]*string, error) {
  args := m.Called(ctx, tx, keys)
  v, _ := args.Get(0).(map[string]*string)
  return v, args.Error(1)
}

type mockIdentityProvider struct {
  mock.Mock
}

func (m *mockIdentityProvider) SignUp(ctx context.Context, email, password string, fullName *string, redirectTo string) (*types.AuthUser, *types.AuthSession, error) {
  args := m.Called(ctx, email, password, fullName, redirectTo)
  u, _ := args.Get(0).(*types.AuthUser)
  s, _ := args.Get(1).(*types.AuthSession)
  return u, s, args.Error(2)
}

func (m *mockIdentityProvider) SignInWithPassword(ctx context.Context, email, password string) (*types.AuthSession, error) {
  args := m.Called(ctx, email, password)
  s, _ := args.Get(0).(*types.AuthSession)
  return s, args.Error(1)
}

func (m *mockIdentityProvider) GetUser(ctx context.Context, accessToken string) (*types.AuthUser, error) {
  args := m.Called(ctx, accessToken)
  u, _ := args.Get(0).(*types.AuthUser)
  return u, args.Error(1)
}

func (m *mockIdentityProvider) SignOut(ctx context.Context, accessToken string) error {
  return m.Called(ctx, accessToken).Error(0)
}

func (m *mockIdentityProvider) RecoverPassword(ctx context.Context, email, redirectTo string) error {
  return m.Called(ctx, email, redirectTo).Error(0)
}

func (m *mockIdentityProvider) UpdatePassword(ctx context.Context, accessToken, newPassword string) (*types.AuthUser, error) {
  args := m.Called(ctx, accessToken, newPassword)
  u, _ := args.Get(0).(*types.AuthUser)
  return u, args.Error(1)
}

// scriptedStream replays fragments, then ends with err (io.EOF when nil).
type scriptedStream struct {
  fragments []string
  err       error
  pos       int
  closed    bool
}

func (s *scriptedStream) Recv() (string, error) {
  if s.pos < len(s.fragments) {
    f := s.fragments[s.pos]
    s.pos++
    return f, nil
  }
  if s.err != nil {
    return "", s.err
  }
  return "", io.EOF
}

func (s *scriptedStream) Close() error {
  s.closed = true
  return nil
}

type fakeGenerator struct {
  stream  *scriptedStream
  streams []*scriptedStream
  openErr error
  calls   int
  lastReq llm.Request
}

func (g *fakeGenerator) Stream(ctx context.Context, req llm.Request) (llm.TextStream, error) {
  g.calls++
  g.lastReq = req
  if g.openErr != nil {
    return nil, g.openErr
  }
  if len(g.streams) > 0 {
    next := g.streams[0]
    g.streams = g.streams[1:]
    return next, nil
  }
  return g.stream, nil
}

// recordingSink captures frames in order. failAfter > 0 makes the n-th
// fragment write fail.
type recordingSink struct {
  frames    []string
  fragments []string
  failAfter int
  onWrite   func()
}

var errBrokenPipe = errors.New("write: broken pipe")

func (s *recordingSink) Fragment(chunk string) error {
  if s.failAfter > 0 && len(s.fragments)+1 >= s.failAfter {
    return errBrokenPipe
  }
  s.fragments = append(s.fragments, chunk)
  s.frames = append(s.frames, "fragment")
  if s.onWrite != nil {
    s.onWrite()
  }
  return nil
}

func (s *recordingSink) End() error {
  s.frames = append(s.frames, "end")
  return nil
}

func (s *recordingSink) Error(message string) error {
  s.frames = append(s.frames, "error:"+message)
  return nil
}

type fakeEmail struct {
  provider string
  ok       bool
  mu       sync.Mutex
  sent     []sentEmail
}

type sentEmail struct {
  to      []string
  subject string
  text    string
  html    string
}

func (f *fakeEmail) Provider() string { return f.provider }

func (f *fakeEmail) SendEmail(ctx context.Context, toEmails []string, subject, plainText, htmlContent string) bool {
  f.mu.Lock()
  defer f.mu.Unlock()
  f.sent = append(f.sent, sentEmail{to: toEmails, subject: subject, text: plainText, html: htmlContent})
  return f.ok
}

type fakeText struct {
  configured bool
  ok         bool
  mu         sync.Mutex
  sms        [][]string
  whatsapp   [][]string
}

func (f *fakeText) Configured() bool { return f.configured }

func (f *fakeText) SendSMS(ctx context.Context, toNumbers []string, body string) bool {
  f.mu.Lock()
  defer f.mu.Unlock()
  f.sms = append(f.sms, toNumbers)
  return f.ok
}

func (f *fakeText) SendWhatsApp(ctx context.Context, toNumbers []string, body string) bool {
  f.mu.Lock()
  defer f.mu.Unlock()
  f.whatsapp = append(f.whatsapp, toNumbers)
  return f.ok
}

func strPtr(s string) *string { return &s }
