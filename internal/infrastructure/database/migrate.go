package database

import (
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrate applies the embedded SQL migrations with goose.
// The schema carries partial unique indexes that AutoMigrate cannot express.
func Migrate(db *gorm.DB, logger *zap.Logger) error {
	logger.Info("Running database migrations...")

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying SQL database: %w", err)
	}

	goose.SetBaseFS(migrations)
	goose.SetLogger(&gooseLogger{logger: logger.Sugar()})
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}

	before, err := goose.GetDBVersion(sqlDB)
	if err != nil {
		logger.Error("Failed to read schema version", zap.Error(err))
		return err
	}

	if err := goose.Up(sqlDB, "migrations"); err != nil {
		logger.Error("Failed to run migrations", zap.Error(err))
		return err
	}

	after, err := goose.GetDBVersion(sqlDB)
	if err != nil {
		return err
	}
	logger.Info("Database migrations completed successfully",
		zap.Int64("from_version", before),
		zap.Int64("to_version", after))
	return nil
}

type gooseLogger struct {
	logger *zap.SugaredLogger
}

func (l *gooseLogger) Fatalf(format string, v ...interface{}) { l.logger.Fatalf(format, v...) }
func (l *gooseLogger) Printf(format string, v ...interface{}) { l.logger.Infof(format, v...) }
