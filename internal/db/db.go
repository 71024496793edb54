package db

import (
	"context"
	"fmt"
	"ideaboard/internal/config"
	"ideaboard/internal/logging"
	"ideaboard/internal/models"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

// Init opens the configured database, migrates it and stores the handle in DB
func Init(cfg *config.Config) error {
	conn, err := Open(cfg)
	if err != nil {
		return err
	}
	logrus.Infof("Database connection established (%s)", cfg.DBType)

	if err := AutoMigrate(conn); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	logrus.Info("Database migration completed")

	seedAdmins(conn, cfg.AdminLogins)

	DB = conn
	return nil
}

// Open connects to the database selected by cfg.DBType
func Open(cfg *config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch cfg.DBType {
	case "postgres", "postgresql":
		dialector = postgres.Open(cfg.DatabaseURL)
	case "mysql", "mariadb":
		dialector = mysql.Open(cfg.DatabaseURL)
	case "sqlite":
		dialector = sqlite.Open(cfg.DatabaseURL)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.DBType)
	}

	conn, err := gorm.Open(dialector, &gorm.Config{
		Logger: logging.GormLogger(cfg.IsProduction()),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying SQL DB: %w", err)
	}

	if cfg.DBType == "sqlite" {
		// sqlite allows a single writer
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(cfg.DBMaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.DBMaxIdleConns)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	return conn, nil
}

// AutoMigrate creates or updates every table the service owns
func AutoMigrate(conn *gorm.DB) error {
	return conn.AutoMigrate(
		&models.User{},
		&models.Idea{},
		&models.Post{},
		&models.PostLike{},
		&models.PostDislike{},
		&models.PostSpamReport{},
	)
}

// Ping checks connectivity, used by the health endpoint and cmd/healthcheck
func Ping(ctx context.Context, conn *gorm.DB) error {
	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the database connection
func Close(conn *gorm.DB) error {
	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// seedAdmins grants the admin flag to the configured logins that already exist
func seedAdmins(conn *gorm.DB, logins []string) {
	if len(logins) == 0 {
		return
	}

	result := conn.Model(&models.User{}).
		Where("username IN ? AND is_admin = ?", logins, false).
		Update("is_admin", true)
	if result.Error != nil {
		logrus.Warnf("Failed to seed admins %s: %v", strings.Join(logins, ","), result.Error)
		return
	}
	if result.RowsAffected > 0 {
		logrus.Infof("Granted admin to %d user(s)", result.RowsAffected)
	}
}
