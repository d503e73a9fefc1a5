package db

import (
  "fmt"
  "time"

  "gorm.io/driver/postgres"
  "gorm.io/gorm"
  gormlogger "gorm.io/gorm/logger"

  "github.com/everything-automotive/ea-backend/internal/logger"
  "github.com/everything-automotive/ea-backend/internal/types"
  "github.com/everything-automotive/ea-backend/internal/utils"
)

type PostgresService struct {
  db          *gorm.DB
  log         *logger.Logger
}

func NewPostgresService(log *logger.Logger) (*PostgresService, error) {
  serviceLog := log.With("service", "PostgresService")

  //1) Get and Set Environment Variables
  serviceLog.Info("Attempting to load environment variables for Postgres now...")
  dsn := utils.GetEnv("DATABASE_URL", "", log)
  if dsn == "" {
    postgresHost := utils.GetEnv("POSTGRES_HOST", "localhost", log)
    postgresPort := utils.GetEnv("POSTGRES_PORT", "5432", log)
    postgresUser := utils.GetEnv("POSTGRES_USER", "postgres", log)
    postgresPassword := utils.GetEnv("POSTGRES_PASSWORD", "", log)
    postgresName := utils.GetEnv("POSTGRES_NAME", "postgres", log)
    postgresSSLMode := utils.GetEnv("POSTGRES_SSLMODE", "require", log)
    serviceLog.Debug("Environment variables loaded for Postgres",
      "host", postgresHost,
      "port", postgresPort,
      "user", postgresUser,
      "dbname", postgresName,
      "sslmode", postgresSSLMode,
    )

    //2) Construct DSN From Environment Variables
    dsn = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", postgresUser, postgresPassword, postgresHost, postgresPort, postgresName, postgresSSLMode)
  }
  serviceLog.Info("Environment variables loaded for Postgres :)")

  //3) Attempt DB Connection
  serviceLog.Info("Attempting to connect to Postgres DB now...")
  db, err := gorm.Open(postgres.New(postgres.Config{
    DSN:                  dsn,
    PreferSimpleProtocol: true,
  }), &gorm.Config{
    DisableForeignKeyConstraintWhenMigrating: true,
    Logger:                                   gormlogger.Default.LogMode(gormlogger.Warn),
    NowFunc:                                  func() time.Time { return time.Now().UTC() },
  })
  if err != nil {
    serviceLog.Error("Failed to connect to Postgres DB", "error", err)
    return nil, fmt.Errorf("failed to connect to Postgres DB: %w", err)
  }
  serviceLog.Info("Successfully Connected to Postgres DB :)")

  //4) Enable uuid-ossp Extension
  serviceLog.Debug("Attempting to enable uuid-ossp extension now...")
  if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`).Error; err != nil {
    serviceLog.Warn("Failed to enable uuid-ossp extension :(", "error", err)
  }

  return &PostgresService{db: db, log: serviceLog}, nil
}

// AutoMigrateAll creates the tables this service owns. The profiles table
// normally comes from the identity provider's own migrations, so it is
// only created when missing.
func (s *PostgresService) AutoMigrateAll() error {
  s.log.Info("Starting AutoMigrateAll for all GORM models now...")
  if err := s.db.AutoMigrate(
    &types.ChatLog{},
    &types.SiteInformation{},
  ); err != nil {
    s.log.Error("AutoMigrateAll failed :(", "error", err)
    return fmt.Errorf("auto migrate: %w", err)
  }
  if !s.db.Migrator().HasTable(&types.Profile{}) {
    if err := s.db.Migrator().CreateTable(&types.Profile{}); err != nil {
      return fmt.Errorf("create profiles table: %w", err)
    }
  }
  s.log.Info("AutoMigrateAll completed successfully :)")
  return nil
}

func (s *PostgresService) DB() *gorm.DB {
  return s.db
}

func (s *PostgresService) Close() error {
  sqlDB, err := s.db.DB()
  if err != nil {
    return err
  }
  return sqlDB.Close()
}
