package main

import (
  "context"
  "errors"
  "fmt"
  "net/http"
  "os"
  "os/signal"
  "strings"
  "syscall"
  "time"

  "github.com/joho/godotenv"

  "github.com/everything-automotive/ea-backend/internal/cache"
  "github.com/everything-automotive/ea-backend/internal/db"
  "github.com/everything-automotive/ea-backend/internal/handlers"
  "github.com/everything-automotive/ea-backend/internal/llm"
  "github.com/everything-automotive/ea-backend/internal/logger"
  "github.com/everything-automotive/ea-backend/internal/metrics"
  "github.com/everything-automotive/ea-backend/internal/middleware"
  "github.com/everything-automotive/ea-backend/internal/repos"
  "github.com/everything-automotive/ea-backend/internal/server"
  "github.com/everything-automotive/ea-backend/internal/services"
  "github.com/everything-automotive/ea-backend/internal/telemetry"
  "github.com/everything-automotive/ea-backend/internal/types"
  "github.com/everything-automotive/ea-backend/internal/utils"
)

const serviceName = "ea-backend"

func main() {
  envErr := godotenv.Load()

  // Logger Setup
  logMode := os.Getenv("LOG_MODE")
  if logMode == "" {
    logMode = "development"
  }
  log, err := logger.New(logMode)
  if err != nil {
    fmt.Printf("failed to init logger: %v\n", err)
    os.Exit(1)
  }
  defer log.Sync()
  if envErr != nil {
    log.Warn("No .env file loaded, using process environment", "error", envErr)
  }

  ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
  defer stop()

  // Environment Variables
  log.Info("Attempting to load environment variables for Main now...")
  port := utils.GetEnv("PORT", "5000", log)
  frontendURL := utils.GetEnv("FRONTEND_URL", "http://localhost:3000", log)
  confirmRedirectURL := utils.GetEnv("EMAIL_CONFIRMATION_REDIRECT_URL", "", log)
  supabaseURL := utils.GetEnv("SUPABASE_URL", "", log)
  supabaseKey := utils.GetEnv("SUPABASE_KEY", "", log)
  jwtSecretKey := utils.GetEnv("SUPABASE_JWT_SECRET", "", log)
  redisAddress := utils.GetEnv("REDIS_ADDRESS", "", log)
  redisPassword := utils.GetEnv("REDIS_PASSWORD", "", log)
  settingsTTL := utils.GetEnvAsInt("SITE_SETTINGS_TTL", 300, log)
  offsetMinutes := utils.GetEnvAsInt("CHAT_TIMESTAMP_OFFSET_MINUTES", 60, log)
  autoMigrate := utils.GetEnvAsBool("DB_AUTO_MIGRATE", false, log)
  log.Debug("Environment variables loaded for Main :)",
    "port", port,
    "frontendURL", frontendURL,
    "supabaseURL", supabaseURL,
    "jwtPrecheck", jwtSecretKey != "",
    "redisAddress", redisAddress,
    "settingsTTL", settingsTTL,
    "offsetMinutes", offsetMinutes,
  )

  // Telemetry Setup
  log.Info("Setting Up Telemetry from Main now...")
  shutdownTracing, err := telemetry.Init(ctx, telemetry.Config{
    ServiceName:   serviceName,
    Environment:   logMode,
    TraceExporter: utils.GetEnv("OTEL_TRACES_EXPORTER", "none", log),
    OTLPEndpoint:  utils.GetEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317", log),
    OTLPInsecure:  utils.GetEnvAsBool("OTEL_EXPORTER_OTLP_INSECURE", true, log),
  })
  if err != nil {
    log.Warn("Tracing disabled", "error", err)
  }
  appMetrics := metrics.New()
  log.Info("Telemetry Set Up From Main Successful :)")

  // Postgres Setup
  log.Info("Setting Up Postgres from Main now...")
  postgresService, err := db.NewPostgresService(log)
  if err != nil {
    log.Error("Fatal error: Cannot connect to Postgres", "error", err)
    os.Exit(1)
  }
  defer postgresService.Close()
  if autoMigrate {
    if err := postgresService.AutoMigrateAll(); err != nil {
      log.Warn("Postgres auto migration failed", "error", err)
    }
  }
  thePG := postgresService.DB()
  log.Info("Postgres Setup From Main Successful :)")

  // Redis Setup
  var settingsCache cache.Cache
  if redisAddress != "" {
    log.Info("Setting Up Redis Cache From Main Now...")
    redisCache, err := cache.NewRedisCache(log, redisAddress, redisPassword, serviceName+":")
    if err != nil {
      log.Warn("Redis unavailable, settings read straight from Postgres", "error", err)
    } else {
      settingsCache = redisCache
      defer redisCache.Close()
      log.Info("Redis Cache Set Up From Main Successful :)")
    }
  }

  // Repositories Setup
  log.Info("Setting Up Repositories from Main now...")
  profileRepo := repos.NewProfileRepo(thePG, log)
  chatLogRepo := repos.NewChatLogRepo(thePG, log)
  siteInfoRepo := repos.NewSiteInfoRepo(thePG, log)
  log.Info("Repositories Set Up From Main Successful :)")

  // Generator Setup
  log.Info("Setting Up Generation Backend from Main now...")
  generator, err := newGenerator(ctx, log)
  if err != nil {
    log.Error("Fatal error: Cannot init generation backend", "error", err)
    os.Exit(1)
  }
  log.Info("Generation Backend Set Up From Main Successful :)")

  // Services Setup
  log.Info("Setting up Services from Main now...")
  company := loadCompanyInfo(log)
  identity, err := services.NewGoTrueProvider(log, supabaseURL, supabaseKey, 15*time.Second)
  if err != nil {
    log.Error("Fatal error: Cannot init identity provider", "error", err)
    os.Exit(1)
  }
  emailService := services.NewEmailService(log, services.EmailConfig{
    FromName:       company.Name,
    SendGridAPIKey: utils.GetEnv("SENDGRID_API_KEY", "", log),
    SendGridFrom:   utils.GetEnv("SENDGRID_FROM_EMAIL", "", log),
    SMTPHost:       utils.GetEnv("SMTP_HOST", "smtp.gmail.com", log),
    SMTPPort:       utils.GetEnvAsInt("SMTP_PORT", 465, log),
    SMTPUser:       utils.GetEnv("GMAIL_SENDER_EMAIL", "", log),
    SMTPPassword:   utils.GetEnv("GMAIL_APP_PASSWORD", "", log),
  })
  textService := services.NewTextService(log,
    utils.GetEnv("TWILIO_ACCOUNT_SID", "", log),
    utils.GetEnv("TWILIO_AUTH_TOKEN", "", log),
    utils.GetEnv("TWILIO_FROM_NUMBER", "", log),
  )
  siteSettingsService := services.NewSiteSettingsService(log, siteInfoRepo, settingsCache, time.Duration(settingsTTL)*time.Second)
  notificationService := services.NewNotificationService(log, siteSettingsService, emailService, textService, appMetrics, company)
  authService := services.NewAuthService(log, identity, profileRepo, notificationService, jwtSecretKey, frontendURL, confirmRedirectURL)
  profileService := services.NewProfileService(thePG, log, profileRepo)
  mechanicAgent := services.NewMechanicAgent(log, chatLogRepo, company)
  chatService := services.NewChatService(log, chatLogRepo, generator, mechanicAgent, appMetrics, services.ChatConfig{
    TimestampOffset: time.Duration(offsetMinutes) * time.Minute,
  })
  log.Info("Services Set Up From Main Successful :)")

  //  Handler Setup
  log.Info("Setting Up Handlers from Main now...")
  if err := utils.RegisterValidators(); err != nil {
    log.Warn("Custom validators not registered", "error", err)
  }
  authHandler := handlers.NewAuthHandler(log, authService, profileService)
  aiHandler := handlers.NewAIHandler(log, chatService)
  log.Info("Handlers Set Up From Main Successful :)")

  // MiddleWare Setup
  log.Info("Setting Up Middleware from Main now...")
  authMiddleware := middleware.NewAuthMiddleware(log, authService)
  log.Info("Middleware Set Up From Main Successful :)")

  // Router Setup
  log.Info("Setting Up Router from Main now...")
  router := server.NewRouter(server.RouterConfig{
    AuthHandler:    authHandler,
    AIHandler:      aiHandler,
    AuthMiddleware: authMiddleware,
    Metrics:        appMetrics,
    ServiceName:    serviceName,
    FrontendURL:    frontendURL,
  })
  log.Info("Router Set Up From Main Successful :)")

  srv := &http.Server{
    Addr:              ":" + port,
    Handler:           router,
    ReadHeaderTimeout: 10 * time.Second,
  }
  go func() {
    log.Info("Server listening", "addr", srv.Addr)
    if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
      log.Error("Server failed", "error", err)
      stop()
    }
  }()

  // On Shutdown
  <-ctx.Done()
  log.Info("Shutting down server...")
  shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
  defer cancel()
  if err := srv.Shutdown(shutdownCtx); err != nil {
    log.Warn("Graceful shutdown failed", "error", err)
  }
  if err := shutdownTracing(shutdownCtx); err != nil {
    log.Warn("Tracer shutdown failed", "error", err)
  }
  log.Info("Server stopped :)")
}

func newGenerator(ctx context.Context, log *logger.Logger) (llm.Generator, error) {
  provider := strings.ToLower(utils.GetEnv("LLM_PROVIDER", "openai", log))
  switch provider {
  case "openai":
    return llm.NewOpenAIGenerator(llm.OpenAIConfig{
      APIKey:  utils.GetEnv("OPENAI_API_KEY", "", log),
      Model:   utils.GetEnv("OPENAI_MODEL", "gpt-4o-mini", log),
      BaseURL: utils.GetEnv("OPENAI_BASE_URL", "", log),
    }, log)
  case "ark":
    return llm.NewArkGenerator(ctx, llm.ArkConfig{
      APIKey:  utils.GetEnv("ARK_API_KEY", "", log),
      Model:   utils.GetEnv("ARK_MODEL", "", log),
      BaseURL: utils.GetEnv("ARK_BASE_URL", "", log),
      Region:  utils.GetEnv("ARK_REGION", "", log),
    }, log)
  }
  return nil, fmt.Errorf("unknown LLM_PROVIDER %q", provider)
}

func loadCompanyInfo(log *logger.Logger) types.CompanyInfo {
  c := types.DefaultCompanyInfo()
  c.Name = utils.GetEnv("COMPANY_NAME", c.Name, log)
  c.Mission = utils.GetEnv("COMPANY_MISSION", c.Mission, log)
  c.LagosHeadOfficeAddress = utils.GetEnv("COMPANY_LAGOS_ADDRESS", c.LagosHeadOfficeAddress, log)
  c.EdoBranchAddress = utils.GetEnv("COMPANY_EDO_ADDRESS", c.EdoBranchAddress, log)
  c.MainPhone = utils.GetEnv("COMPANY_MAIN_PHONE", c.MainPhone, log)
  c.MainEmail = utils.GetEnv("COMPANY_MAIN_EMAIL", c.MainEmail, log)
  c.SupportPhone = utils.GetEnv("COMPANY_SUPPORT_PHONE", c.SupportPhone, log)
  c.SupportEmail = utils.GetEnv("COMPANY_SUPPORT_EMAIL", c.SupportEmail, log)
  c.ServiceOverview = utils.GetEnv("COMPANY_SERVICE_OVERVIEW", c.ServiceOverview, log)
  return c
}
