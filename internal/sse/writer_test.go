package sse

import (
  "net/http"
  "net/http/httptest"
  "testing"

  "github.com/stretchr/testify/assert"
  "github.com/stretchr/testify/require"
)

func TestWriterFrames(t *testing.T) {
  rec := httptest.NewRecorder()
  w, err := NewWriter(rec)
  require.NoError(t, err)

  require.NoError(t, w.Fragment("Based "))
  require.NoError(t, w.Fragment(`say "hi"`))
  require.NoError(t, w.End())

  assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
  assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))
  assert.True(t, rec.Flushed)
  assert.Equal(t,
    "data: {\"response\":\"Based \"}\n\n"+
      "data: {\"response\":\"say \\\"hi\\\"\"}\n\n"+
      "event: end\ndata: {}\n\n",
    rec.Body.String())
}

func TestWriterError(t *testing.T) {
  rec := httptest.NewRecorder()
  w, err := NewWriter(rec)
  require.NoError(t, err)

  require.NoError(t, w.Error("An error occurred during streaming: APIError"))
  assert.Equal(t, "event: error\ndata: {\"error\":\"An error occurred during streaming: APIError\"}\n\n", rec.Body.String())
}

func TestWriterData(t *testing.T) {
  rec := httptest.NewRecorder()
  w, err := NewWriter(rec)
  require.NoError(t, err)

  require.NoError(t, w.Data(map[string]string{"error": "Authentication required"}))
  assert.Equal(t, "data: {\"error\":\"Authentication required\"}\n\n", rec.Body.String())
}

func TestReject(t *testing.T) {
  rec := httptest.NewRecorder()
  require.NoError(t, Reject(rec, http.StatusUnauthorized, map[string]string{"error": "Invalid or expired token"}))

  assert.Equal(t, http.StatusUnauthorized, rec.Code)
  assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
  assert.Equal(t, "data: {\"error\":\"Invalid or expired token\"}\n\n", rec.Body.String())
}
