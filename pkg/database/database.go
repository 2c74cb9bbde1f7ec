package database

import (
	"fmt"
	"log"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"school-service/internal/model"
	"school-service/pkg/config"
)

var DB *gorm.DB

// Initialize initializes the database connection with the provided configuration
func Initialize(cfg config.DBConfig) error {
	var err error

	logLevel := cfg.LogLevel
	if logLevel == 0 {
		logLevel = gormlogger.Warn
	}

	// PreferSimpleProtocol disables implicit prepared statement usage to
	// prevent "prepared statement already exists" errors behind poolers.
	pgConfig := postgres.Config{
		DSN:                  cfg.GetDSN(),
		PreferSimpleProtocol: true,
	}

	// TranslateError turns driver duplicate-key failures into
	// gorm.ErrDuplicatedKey, which the store layer depends on.
	DB, err = gorm.Open(postgres.New(pgConfig), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(logLevel),
		TranslateError: true,
	})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
		return err
	}

	sqlDB, err := DB.DB()
	if err != nil {
		log.Fatalf("Failed to get database connection: %v", err)
		return err
	}

	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	err = DB.AutoMigrate(
		&model.School{},
		&model.Grade{},
		&model.Classroom{},
		&model.Student{},
		&model.User{},
		&model.ClassroomAssignment{},
	)
	if err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
		return err
	}

	fmt.Println("Database connected and migrated successfully")
	return nil
}

// GetDB returns the database instance
func GetDB() *gorm.DB {
	return DB
}
