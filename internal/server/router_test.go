package server

import (
  "context"
  "encoding/json"
  "errors"
  "net/http"
  "net/http/httptest"
  "strings"
  "testing"

  "github.com/gin-gonic/gin"
  "github.com/google/uuid"
  "github.com/stretchr/testify/assert"
  "github.com/stretchr/testify/require"
  "go.uber.org/zap"
  "go.uber.org/zap/zapcore"
  "go.uber.org/zap/zaptest/observer"

  "github.com/everything-automotive/ea-backend/internal/handlers"
  "github.com/everything-automotive/ea-backend/internal/logger"
  "github.com/everything-automotive/ea-backend/internal/metrics"
  "github.com/everything-automotive/ea-backend/internal/middleware"
  "github.com/everything-automotive/ea-backend/internal/services"
  "github.com/everything-automotive/ea-backend/internal/sse"
  "github.com/everything-automotive/ea-backend/internal/types"
  "github.com/everything-automotive/ea-backend/internal/utils"
)

const validToken = "valid-token"

type fakeAuthService struct {
  profile         *types.Profile
  authCalls       int
  registerErr     error
  outcome         services.RegistrationOutcome
  loginErr        error
  resetErr        error
  changeErr       error
  changeToken     string
}

func (f *fakeAuthService) Register(ctx context.Context, req types.RegisterRequest) (services.RegistrationOutcome, error) {
  return f.outcome, f.registerErr
}

func (f *fakeAuthService) Login(ctx context.Context, email, password string) (*types.UserSession, error) {
  if f.loginErr != nil {
    return nil, f.loginErr
  }
  return &types.UserSession{AccessToken: validToken, TokenType: "bearer", ExpiresIn: 3600, User: f.profile}, nil
}

func (f *fakeAuthService) Logout(ctx context.Context, accessToken string) string {
  return services.MsgLogoutSuccessful
}

func (f *fakeAuthService) Authenticate(ctx context.Context, accessToken string) (*types.Profile, bool) {
  f.authCalls++
  if accessToken != validToken {
    return nil, false
  }
  return f.profile, true
}

func (f *fakeAuthService) ChangePassword(ctx context.Context, accessToken string, req types.ChangePasswordRequest) (string, error) {
  f.changeToken = accessToken
  if f.changeErr != nil {
    return "", f.changeErr
  }
  return services.MsgPasswordChanged, nil
}

func (f *fakeAuthService) RequestPasswordReset(ctx context.Context, email string) string {
  return services.MsgPasswordResetRequested
}

func (f *fakeAuthService) ResetPassword(ctx context.Context, accessToken string, req types.ResetPasswordRequest) (string, error) {
  if f.resetErr != nil {
    return "", f.resetErr
  }
  return services.MsgPasswordReset, nil
}

type fakeProfileService struct {
  updateErr       error
  lastUpdate      types.ProfileUpdate
}

func (f *fakeProfileService) GetProfile(ctx context.Context, userID uuid.UUID) (*types.Profile, error) {
  return &types.Profile{ID: userID}, nil
}

func (f *fakeProfileService) UpdateProfile(ctx context.Context, userID uuid.UUID, update types.ProfileUpdate) (*types.Profile, string, error) {
  f.lastUpdate = update
  if f.updateErr != nil {
    return nil, "", f.updateErr
  }
  return &types.Profile{ID: userID, FullName: update.FullName}, services.MsgProfileUpdated, nil
}

type fakeChatService struct {
  fragments       []string
  turns           int
  historyCalls    int
  history         []types.ChatMessage
  historyErr      error
  lastSession     string
}

func (f *fakeChatService) StreamTurn(ctx context.Context, user *types.Profile, sessionID, message string, sink sse.Sink) string {
  f.turns++
  f.lastSession = sessionID
  for _, frag := range f.fragments {
    if err := sink.Fragment(frag); err != nil {
      return metrics.OutcomeCancelled
    }
  }
  _ = sink.End()
  return metrics.OutcomeCompleted
}

func (f *fakeChatService) LoadFullHistory(ctx context.Context, userID uuid.UUID) []types.ChatMessage {
  return f.history
}

func (f *fakeChatService) LoadSessionHistory(ctx context.Context, userID uuid.UUID, sessionID string) ([]types.ChatMessage, error) {
  f.historyCalls++
  if f.historyErr != nil {
    return []types.ChatMessage{}, f.historyErr
  }
  return f.history, nil
}

type testServer struct {
  router    *gin.Engine
  auth      *fakeAuthService
  profiles  *fakeProfileService
  chat      *fakeChatService
}

func newTestServer(t *testing.T) *testServer {
  t.Helper()
  return newTestServerWithLogger(t, logger.NewNop())
}

func newTestServerWithLogger(t *testing.T, log *logger.Logger) *testServer {
  t.Helper()
  gin.SetMode(gin.TestMode)
  require.NoError(t, utils.RegisterValidators())
  name := "Ada"
  ts := &testServer{
    auth:     &fakeAuthService{profile: &types.Profile{ID: uuid.New(), Email: "ada@example.com", FullName: &name, AccountType: types.DefaultAccountType}},
    profiles: &fakeProfileService{},
    chat:     &fakeChatService{},
  }
  ts.router = NewRouter(RouterConfig{
    AuthHandler:    handlers.NewAuthHandler(log, ts.auth, ts.profiles),
    AIHandler:      handlers.NewAIHandler(log, ts.chat),
    AuthMiddleware: middleware.NewAuthMiddleware(log, ts.auth),
    Metrics:        metrics.New(),
    FrontendURL:    "https://everythingautomotive.example",
  })
  return ts
}

func (ts *testServer) do(method, path, token, body string) *httptest.ResponseRecorder {
  req := httptest.NewRequest(method, path, strings.NewReader(body))
  if body != "" {
    req.Header.Set("Content-Type", "application/json")
  }
  if token != "" {
    req.Header.Set("Authorization", "Bearer "+token)
  }
  rec := httptest.NewRecorder()
  ts.router.ServeHTTP(rec, req)
  return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
  t.Helper()
  var out map[string]interface{}
  require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
  return out
}

func TestHealthRoutes(t *testing.T) {
  ts := newTestServer(t)
  for _, path := range []string{"/", "/healthz"} {
    rec := ts.do(http.MethodGet, path, "", "")
    assert.Equal(t, http.StatusOK, rec.Code)
    assert.Equal(t, "ok", decode(t, rec)["status"])
    assert.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader))
  }
}

func TestMetricsRoute(t *testing.T) {
  ts := newTestServer(t)
  ts.do(http.MethodGet, "/healthz", "", "")

  rec := ts.do(http.MethodGet, "/metrics", "", "")
  assert.Equal(t, http.StatusOK, rec.Code)
  assert.Contains(t, rec.Body.String(), "ea_http_requests_total")
}

func TestChatAuthGate(t *testing.T) {
  ts := newTestServer(t)

  rec := ts.do(http.MethodPost, "/api/ai/chat", "", `{"session_id":"s1","message":"hi"}`)
  assert.Equal(t, http.StatusUnauthorized, rec.Code)
  assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
  assert.Equal(t, "data: {\"error\":\"Authentication required\"}\n\n", rec.Body.String())

  rec = ts.do(http.MethodPost, "/api/ai/chat", "expired", `{"session_id":"s1","message":"hi"}`)
  assert.Equal(t, http.StatusUnauthorized, rec.Code)
  assert.Equal(t, "data: {\"error\":\"Invalid or expired token\"}\n\n", rec.Body.String())

  assert.Zero(t, ts.chat.turns)
}

func TestHistoryAuthGate(t *testing.T) {
  ts := newTestServer(t)

  rec := ts.do(http.MethodGet, "/api/ai/history/s1", "", "")
  assert.Equal(t, http.StatusUnauthorized, rec.Code)
  assert.Equal(t, "Authentication required", decode(t, rec)["message"])

  rec = ts.do(http.MethodGet, "/api/ai/history/s1", "forged", "")
  assert.Equal(t, http.StatusUnauthorized, rec.Code)
  assert.Equal(t, middleware.MsgSessionInvalid, decode(t, rec)["message"])

  assert.Zero(t, ts.chat.historyCalls)
}

func TestChatStreamsFrames(t *testing.T) {
  ts := newTestServer(t)
  ts.chat.fragments = []string{"Based ", "on your description..."}

  rec := ts.do(http.MethodPost, "/api/ai/chat", validToken, `{"session_id":"s1","message":"My brakes squeak"}`)

  assert.Equal(t, http.StatusOK, rec.Code)
  assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
  assert.Equal(t,
    "data: {\"response\":\"Based \"}\n\n"+
      "data: {\"response\":\"on your description...\"}\n\n"+
      "event: end\ndata: {}\n\n",
    rec.Body.String())
  assert.Equal(t, "s1", ts.chat.lastSession)
}

func TestChatRejectsBadBodies(t *testing.T) {
  ts := newTestServer(t)

  rec := ts.do(http.MethodPost, "/api/ai/chat", validToken, `not json`)
  assert.Equal(t, http.StatusBadRequest, rec.Code)
  assert.Equal(t, "data: {\"error\":\"Invalid request body. JSON expected.\"}\n\n", rec.Body.String())

  rec = ts.do(http.MethodPost, "/api/ai/chat", validToken, `{"session_id":"s1"}`)
  assert.Equal(t, http.StatusBadRequest, rec.Code)
  body := strings.TrimSuffix(strings.TrimPrefix(rec.Body.String(), "data: "), "\n\n")
  var frame struct {
    Error   string              `json:"error"`
    Details []utils.FieldError  `json:"details"`
  }
  require.NoError(t, json.Unmarshal([]byte(body), &frame))
  assert.Equal(t, "Invalid input data", frame.Error)
  require.Len(t, frame.Details, 1)
  assert.Equal(t, "message", frame.Details[0].Field)

  assert.Zero(t, ts.chat.turns)
}

func TestHistoryReturnsSessionMessages(t *testing.T) {
  ts := newTestServer(t)
  ts.chat.history = []types.ChatMessage{
    {Sender: types.ChatSenderUser, Text: "My brakes squeak"},
    {Sender: types.ChatSenderAssistant, Text: "Based on your description..."},
  }

  rec := ts.do(http.MethodGet, "/api/ai/history/s1", validToken, "")

  require.Equal(t, http.StatusOK, rec.Code)
  var resp types.ChatHistoryResponse
  require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
  assert.Equal(t, "s1", resp.SessionID)
  require.Len(t, resp.Messages, 2)
  assert.Equal(t, types.ChatSenderAssistant, resp.Messages[1].Sender)
}

func TestHistoryStoreFailure(t *testing.T) {
  ts := newTestServer(t)
  ts.chat.historyErr = assert.AnError

  rec := ts.do(http.MethodGet, "/api/ai/history/s1", validToken, "")
  assert.Equal(t, http.StatusInternalServerError, rec.Code)
  assert.Equal(t, handlers.MsgHistoryFailed, decode(t, rec)["message"])
}

func TestRegisterStatusCodes(t *testing.T) {
  ts := newTestServer(t)

  ts.auth.outcome = services.RegistrationConfirmationRequired
  rec := ts.do(http.MethodPost, "/api/auth/register", "", `{"email":"a@example.com","password":"secret1"}`)
  assert.Equal(t, http.StatusCreated, rec.Code)
  assert.Equal(t, services.MsgRegistrationConfirm, decode(t, rec)["message"])

  ts.auth.registerErr = &services.ServiceError{Kind: services.ErrEmailAlreadyRegistered, Message: "Email already registered."}
  rec = ts.do(http.MethodPost, "/api/auth/register", "", `{"email":"a@example.com","password":"secret1"}`)
  assert.Equal(t, http.StatusConflict, rec.Code)
  assert.Equal(t, "Email already registered.", decode(t, rec)["message"])

  rec = ts.do(http.MethodPost, "/api/auth/register", "", `{"email":"not-an-email","password":"123"}`)
  assert.Equal(t, http.StatusBadRequest, rec.Code)
  body := decode(t, rec)
  assert.Equal(t, "Invalid input data", body["message"])
  assert.Len(t, body["errors"], 2)
}

func TestLogin(t *testing.T) {
  ts := newTestServer(t)

  rec := ts.do(http.MethodPost, "/api/auth/login", "", `{"email":"a@example.com","password":"pw"}`)
  require.Equal(t, http.StatusOK, rec.Code)
  body := decode(t, rec)
  assert.Equal(t, services.MsgLoginSuccessful, body["message"])
  session := body["session"].(map[string]interface{})
  assert.Equal(t, validToken, session["access_token"])

  ts.auth.loginErr = &services.ServiceError{Kind: services.ErrInvalidCredentials, Message: "Invalid email or password."}
  rec = ts.do(http.MethodPost, "/api/auth/login", "", `{"email":"a@example.com","password":"bad"}`)
  assert.Equal(t, http.StatusUnauthorized, rec.Code)
  assert.Equal(t, "Invalid email or password.", decode(t, rec)["message"])
}

func TestLogoutAlwaysOK(t *testing.T) {
  ts := newTestServer(t)
  rec := ts.do(http.MethodPost, "/api/auth/logout", "", "")
  assert.Equal(t, http.StatusOK, rec.Code)
  assert.Equal(t, services.MsgLogoutSuccessful, decode(t, rec)["message"])
}

func TestUserProfileRoutes(t *testing.T) {
  ts := newTestServer(t)

  rec := ts.do(http.MethodGet, "/api/auth/user", "", "")
  assert.Equal(t, http.StatusUnauthorized, rec.Code)
  assert.Equal(t, middleware.MsgAuthHeaderMissing, decode(t, rec)["message"])

  rec = ts.do(http.MethodGet, "/api/auth/user", validToken, "")
  require.Equal(t, http.StatusOK, rec.Code)
  assert.Equal(t, "ada@example.com", decode(t, rec)["email"])

  rec = ts.do(http.MethodPut, "/api/auth/user", validToken, `{"full_name":"Ada Obi"}`)
  require.Equal(t, http.StatusOK, rec.Code)
  body := decode(t, rec)
  assert.Equal(t, services.MsgProfileUpdated, body["message"])
  assert.Equal(t, "Ada Obi", body["user"].(map[string]interface{})["full_name"])

  rec = ts.do(http.MethodPut, "/api/auth/user", validToken, `{"phone":"12"}`)
  assert.Equal(t, http.StatusBadRequest, rec.Code)

  ts.profiles.updateErr = &services.ServiceError{Kind: services.ErrProfileNotFound, Message: "Profile update failed: User profile not found."}
  rec = ts.do(http.MethodPut, "/api/auth/user", validToken, `{"address":"5 Adejuwon Street"}`)
  assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPasswordRoutes(t *testing.T) {
  ts := newTestServer(t)

  rec := ts.do(http.MethodPut, "/api/auth/password", validToken, `{"current_password":"oldpass","new_password":"newpass","confirm_new_password":"newpass"}`)
  assert.Equal(t, http.StatusOK, rec.Code)
  assert.Equal(t, validToken, ts.auth.changeToken)

  rec = ts.do(http.MethodPut, "/api/auth/password", validToken, `{"current_password":"oldpass","new_password":"newpass","confirm_new_password":"other1"}`)
  assert.Equal(t, http.StatusBadRequest, rec.Code)

  ts.auth.changeErr = &services.ServiceError{Kind: services.ErrSessionExpired, Message: "Your session has expired. Please log in again to change your password."}
  rec = ts.do(http.MethodPut, "/api/auth/password", validToken, `{"current_password":"oldpass","new_password":"newpass","confirm_new_password":"newpass"}`)
  assert.Equal(t, http.StatusUnauthorized, rec.Code)

  rec = ts.do(http.MethodPost, "/api/auth/forgot-password", "", `{"email":"a@example.com"}`)
  assert.Equal(t, http.StatusOK, rec.Code)
  assert.Equal(t, services.MsgPasswordResetRequested, decode(t, rec)["message"])

  rec = ts.do(http.MethodPost, "/api/auth/reset-password", "", `{"new_password":"newpass","confirm_new_password":"newpass"}`)
  assert.Equal(t, http.StatusUnauthorized, rec.Code)
  assert.Equal(t, handlers.MsgResetTokenMissing, decode(t, rec)["message"])

  ts.auth.resetErr = &services.ServiceError{Kind: services.ErrResetLinkInvalid, Message: "Password reset failed. The reset link has expired or is invalid. Please request a new one."}
  rec = ts.do(http.MethodPost, "/api/auth/reset-password", "recovery", `{"new_password":"newpass","confirm_new_password":"newpass"}`)
  assert.Equal(t, http.StatusUnauthorized, rec.Code)

  ts.auth.resetErr = nil
  rec = ts.do(http.MethodPost, "/api/auth/reset-password", "recovery", `{"new_password":"newpass","confirm_new_password":"newpass"}`)
  assert.Equal(t, http.StatusOK, rec.Code)
  assert.Equal(t, services.MsgPasswordReset, decode(t, rec)["message"])
}

func TestAllowedOrigins(t *testing.T) {
  got := allowedOrigins(" https://app.example.com/ , example.org,")
  assert.Equal(t, []string{"http://localhost:3000", "http://localhost:5173", "https://app.example.com"}, got)
}

// disconnectedWriter is a streaming response whose client has gone away.
type disconnectedWriter struct {
  header    http.Header
  status    int
}

func (w *disconnectedWriter) Header() http.Header      { return w.header }
func (w *disconnectedWriter) WriteHeader(status int)   { w.status = status }
func (w *disconnectedWriter) Flush()                   {}
func (w *disconnectedWriter) Write(p []byte) (int, error) {
  return 0, errors.New("write: broken pipe")
}

func TestChatRejectionWriteFailuresAreLogged(t *testing.T) {
  core, logs := observer.New(zapcore.DebugLevel)
  ts := newTestServerWithLogger(t, logger.FromZap(zap.New(core)))

  send := func(token, body string) *disconnectedWriter {
    req := httptest.NewRequest(http.MethodPost, "/api/ai/chat", strings.NewReader(body))
    req.Header.Set("Content-Type", "application/json")
    if token != "" {
      req.Header.Set("Authorization", "Bearer "+token)
    }
    w := &disconnectedWriter{header: http.Header{}}
    ts.router.ServeHTTP(w, req)
    return w
  }

  w := send("", `{"session_id":"s1","message":"hi"}`)
  assert.Equal(t, http.StatusUnauthorized, w.status)
  assert.Equal(t, 1, logs.FilterMessage("Could not write stream rejection frame").Len())

  w = send(validToken, `not json`)
  assert.Equal(t, http.StatusBadRequest, w.status)
  w = send(validToken, `{"session_id":"s1"}`)
  assert.Equal(t, http.StatusBadRequest, w.status)

  failures := logs.FilterMessage("Could not write chat rejection frame")
  require.Equal(t, 2, failures.Len())
  for _, entry := range failures.All() {
    assert.Equal(t, zapcore.DebugLevel, entry.Level)
    assert.Contains(t, entry.ContextMap()["error"], "broken pipe")
  }
  assert.Zero(t, ts.chat.turns)
}
