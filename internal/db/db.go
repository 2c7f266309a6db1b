package db

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"pageguard/internal/config"
	"pageguard/internal/models"
	console "pageguard/internal/utils/logger"
)

var DB *gorm.DB
var log = console.New("DB")

// GormConfig is shared by the postgres connection and test databases.
func GormConfig(level string) *gorm.Config {
	return &gorm.Config{
		Logger:                                   logger.Default.LogMode(gormLogLevel(level)),
		DisableForeignKeyConstraintWhenMigrating: true,
		AllowGlobalUpdate:                        false,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}
}

func gormLogLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}

func Connect(cfg *config.Config) error {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s",
		cfg.Database.Host,
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Name,
		cfg.Database.Port,
		cfg.Database.SSLMode,
	)

	log.Info("Connecting to database %s@%s:%d/%s", cfg.Database.User, cfg.Database.Host, cfg.Database.Port, cfg.Database.Name)
	maxRetries := 5
	var err error
	for i := 0; i < maxRetries; i++ {
		gormCfg := GormConfig(cfg.Database.LogLevel)
		gormCfg.PrepareStmt = true
		DB, err = gorm.Open(postgres.Open(dsn), gormCfg)
		if err == nil {
			log.Success("Connected to database")

			sqlDB, err := DB.DB()
			if err != nil {
				return log.Error("Failed to get underlying *sql.DB instance", err)
			}

			sqlDB.SetMaxOpenConns(100)
			sqlDB.SetMaxIdleConns(10)
			sqlDB.SetConnMaxLifetime(time.Hour)
			sqlDB.SetConnMaxIdleTime(time.Minute * 30)

			if err := Migrate(DB); err != nil {
				return log.Error("Failed to run migrations", err)
			}

			log.Success("Migrations completed")

			return nil
		}
		log.Warn("Failed to connect to database (attempt %d/%d): %v", i+1, maxRetries, err)
		time.Sleep(time.Second * 5)
	}
	return log.Error("Failed to connect to database after %d attempts", err, maxRetries)
}

// Migrate creates or updates every table the application uses.
func Migrate(db *gorm.DB) error {
	log.Info("Running migrations...")
	return db.Transaction(func(tx *gorm.DB) error {
		return tx.AutoMigrate(
			// Base models without foreign keys
			&models.User{},
			&models.Page{},

			// Models with foreign keys
			&models.PagePermission{},
			&models.Comment{},
			&models.CommentHistory{},
			&models.PasswordReset{},
			&models.AuthSession{},
			&models.UserArchive{},
		)
	})
}

func Close() error {
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func GetDB() *gorm.DB {
	return DB
}
