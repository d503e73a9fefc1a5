// Package sse frames chat output as a text/event-stream.
package sse

import (
  "encoding/json"
  "errors"
  "fmt"
  "io"
  "net/http"
)

var ErrStreamingUnsupported = errors.New("sse: response writer does not support flushing")

// Sink receives the frames of one turn. Every call writes exactly one
// frame.
type Sink interface {
  Fragment(chunk string) error
  End() error
  Error(message string) error
}

type Writer struct {
  w             io.Writer
  flusher       http.Flusher
}

// NewWriter sets the stream headers on w. Headers must not have been
// written yet.
func NewWriter(w http.ResponseWriter) (*Writer, error) {
  flusher, ok := w.(http.Flusher)
  if !ok {
    return nil, ErrStreamingUnsupported
  }
  SetHeaders(w)
  return &Writer{w: w, flusher: flusher}, nil
}

func SetHeaders(w http.ResponseWriter) {
  h := w.Header()
  h.Set("Content-Type", "text/event-stream")
  h.Set("Cache-Control", "no-cache")
  h.Set("Connection", "keep-alive")
  h.Set("X-Accel-Buffering", "no")
}

func (s *Writer) Fragment(chunk string) error {
  return s.Data(map[string]string{"response": chunk})
}

func (s *Writer) End() error {
  return s.write("event: end\ndata: {}\n\n")
}

func (s *Writer) Error(message string) error {
  payload, err := json.Marshal(map[string]string{"error": message})
  if err != nil {
    return err
  }
  return s.write(fmt.Sprintf("event: error\ndata: %s\n\n", payload))
}

// Data writes an unnamed event carrying v as JSON.
func (s *Writer) Data(v interface{}) error {
  payload, err := json.Marshal(v)
  if err != nil {
    return err
  }
  return s.write(fmt.Sprintf("data: %s\n\n", payload))
}

func (s *Writer) write(frame string) error {
  if _, err := io.WriteString(s.w, frame); err != nil {
    return err
  }
  s.flusher.Flush()
  return nil
}

// Reject answers a request that never reaches streaming: status plus a
// single unnamed data frame carrying payload.
func Reject(w http.ResponseWriter, status int, payload interface{}) error {
  sw, err := NewWriter(w)
  if err != nil {
    return err
  }
  w.WriteHeader(status)
  return sw.Data(payload)
}
