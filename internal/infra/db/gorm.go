package db

import (
	"fmt"

	"storefront/internal/config"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Connect opens Postgres through gorm. DATABASE_URL wins over the POSTGRES_* parts.
func Connect(cfg config.Config, log *logrus.Logger) (*gorm.DB, error) {
	level := gormlogger.Warn
	if !cfg.IsProduction() && log.IsLevelEnabled(logrus.DebugLevel) {
		level = gormlogger.Info
	}

	gdb, err := gorm.Open(postgres.Open(cfg.PostgresDSN()), &gorm.Config{
		Logger: gormlogger.New(log, gormlogger.Config{
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return gdb, nil
}
