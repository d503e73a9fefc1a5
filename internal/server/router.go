package server

import (
  "strings"

  "github.com/gin-contrib/cors"
  "github.com/gin-gonic/gin"
  "go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

  "github.com/everything-automotive/ea-backend/internal/handlers"
  "github.com/everything-automotive/ea-backend/internal/metrics"
  "github.com/everything-automotive/ea-backend/internal/middleware"
)

type RouterConfig struct {
  AuthHandler           *handlers.AuthHandler
  AIHandler             *handlers.AIHandler
  AuthMiddleware        *middleware.AuthMiddleware
  Metrics               *metrics.Metrics
  ServiceName           string
  FrontendURL           string
}

// allowedOrigins keeps local development working next to the configured
// frontend.
func allowedOrigins(frontendURL string) []string {
  origins := []string{"http://localhost:3000", "http://localhost:5173"}
  for _, o := range strings.Split(frontendURL, ",") {
    o = strings.TrimRight(strings.TrimSpace(o), "/")
    if strings.HasPrefix(o, "http://") || strings.HasPrefix(o, "https://") {
      origins = append(origins, o)
    }
  }
  return origins
}

func NewRouter(cfg RouterConfig) *gin.Engine {
  router := gin.Default()

  //-----------------------------------------
  // Cors Setup
  //-----------------------------------------
  router.Use(cors.New(cors.Config{
    AllowOrigins:     allowedOrigins(cfg.FrontendURL),
    AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
    AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With", middleware.RequestIDHeader},
    ExposeHeaders:    []string{middleware.RequestIDHeader},
    AllowCredentials: true,
  }))

  //-----------------------------------------
  // Observability
  //-----------------------------------------
  if cfg.ServiceName != "" {
    router.Use(otelgin.Middleware(cfg.ServiceName))
  }
  router.Use(middleware.AttachRequestContext())
  if cfg.Metrics != nil {
    router.Use(cfg.Metrics.GinMiddleware())
    router.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
  }

  //-----------------------------------------
  // Health Routes
  //-----------------------------------------
  router.GET("/", handlers.Healthz)
  router.GET("/healthz", handlers.Healthz)

  api := router.Group("/api")

  //-----------------------------------------
  // Auth Routes
  //-----------------------------------------
  auth := api.Group("/auth")
  {
    auth.POST("/register", cfg.AuthHandler.Register)
    auth.POST("/login", cfg.AuthHandler.Login)
    auth.POST("/logout", cfg.AuthHandler.Logout)
    auth.POST("/forgot-password", cfg.AuthHandler.ForgotPassword)
    auth.POST("/reset-password", cfg.AuthHandler.ResetPassword)
  }
  protected := auth.Group("/")
  protected.Use(cfg.AuthMiddleware.RequireAuth())
  protected.GET("/user", cfg.AuthHandler.GetUser)
  protected.PUT("/user", cfg.AuthHandler.UpdateUser)
  protected.PUT("/password", cfg.AuthHandler.ChangePassword)

  //------------------------------------------
  // AI Routes
  //------------------------------------------
  ai := api.Group("/ai")
  ai.POST("/chat", cfg.AuthMiddleware.RequireStreamAuth(), cfg.AIHandler.Chat)
  ai.GET("/history/:session_id", cfg.AuthMiddleware.RequireHistoryAuth(), cfg.AIHandler.History)

  return router
}
