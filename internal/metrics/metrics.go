// Package metrics holds the Prometheus collectors for the backend.
package metrics

import (
  "net/http"
  "strconv"
  "time"

  "github.com/gin-gonic/gin"
  "github.com/prometheus/client_golang/prometheus"
  "github.com/prometheus/client_golang/prometheus/collectors"
  "github.com/prometheus/client_golang/prometheus/promauto"
  "github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
  OutcomeCompleted    = "completed"
  OutcomeError        = "error"
  OutcomeSuppressed   = "suppressed"
  OutcomeCancelled    = "cancelled"
)

type Metrics struct {
  registry                *prometheus.Registry

  // HTTP
  HTTPRequestsTotal       *prometheus.CounterVec
  HTTPRequestDuration     *prometheus.HistogramVec

  // Chat
  ChatTurnsTotal          *prometheus.CounterVec
  ChatTurnDuration        prometheus.Histogram
  ChatFragmentsTotal      prometheus.Counter
  ChatPersistFailures     *prometheus.CounterVec

  // Notifications
  NotificationsTotal      *prometheus.CounterVec
}

// New registers every collector on a fresh registry, so several instances
// can coexist in one process.
func New() *Metrics {
  reg := prometheus.NewRegistry()
  reg.MustRegister(
    collectors.NewGoCollector(),
    collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
  )
  factory := promauto.With(reg)

  m := &Metrics{registry: reg}

  m.HTTPRequestsTotal = factory.NewCounterVec(
    prometheus.CounterOpts{
      Name: "ea_http_requests_total",
      Help: "Total number of HTTP requests",
    },
    []string{"method", "route", "status"},
  )
  m.HTTPRequestDuration = factory.NewHistogramVec(
    prometheus.HistogramOpts{
      Name:    "ea_http_request_duration_seconds",
      Help:    "Duration of HTTP requests in seconds",
      Buckets: prometheus.DefBuckets,
    },
    []string{"method", "route"},
  )

  m.ChatTurnsTotal = factory.NewCounterVec(
    prometheus.CounterOpts{
      Name: "ea_chat_turns_total",
      Help: "Chat turns by how they ended",
    },
    []string{"outcome"},
  )
  m.ChatTurnDuration = factory.NewHistogram(
    prometheus.HistogramOpts{
      Name:    "ea_chat_turn_duration_seconds",
      Help:    "Wall time of a chat turn from inbound persist to outbound persist",
      Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 80},
    },
  )
  m.ChatFragmentsTotal = factory.NewCounter(
    prometheus.CounterOpts{
      Name: "ea_chat_fragments_total",
      Help: "Reply fragments forwarded to clients",
    },
  )
  m.ChatPersistFailures = factory.NewCounterVec(
    prometheus.CounterOpts{
      Name: "ea_chat_persist_failures_total",
      Help: "Chat messages that could not be written",
    },
    []string{"sender"},
  )

  m.NotificationsTotal = factory.NewCounterVec(
    prometheus.CounterOpts{
      Name: "ea_notifications_total",
      Help: "Outbound notification attempts",
    },
    []string{"channel", "result"},
  )
  return m
}

func (m *Metrics) Registry() *prometheus.Registry {
  if m == nil {
    return nil
  }
  return m.registry
}

func (m *Metrics) Handler() http.Handler {
  return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveTurn(outcome string, d time.Duration) {
  if m == nil {
    return
  }
  m.ChatTurnsTotal.WithLabelValues(outcome).Inc()
  m.ChatTurnDuration.Observe(d.Seconds())
}

func (m *Metrics) IncFragments() {
  if m == nil {
    return
  }
  m.ChatFragmentsTotal.Inc()
}

func (m *Metrics) IncPersistFailure(sender string) {
  if m == nil {
    return
  }
  m.ChatPersistFailures.WithLabelValues(sender).Inc()
}

func (m *Metrics) ObserveNotification(channel string, ok bool) {
  if m == nil {
    return
  }
  result := "failure"
  if ok {
    result = "success"
  }
  m.NotificationsTotal.WithLabelValues(channel, result).Inc()
}

// GinMiddleware records request counts and latency per matched route.
func (m *Metrics) GinMiddleware() gin.HandlerFunc {
  return func(c *gin.Context) {
    start := time.Now()
    c.Next()
    route := c.FullPath()
    if route == "" {
      route = "unmatched"
    }
    m.HTTPRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
    m.HTTPRequestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
  }
}
