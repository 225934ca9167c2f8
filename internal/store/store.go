package store

import (
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/openbootdotdev/openboot.dev/internal/models"
)

// Store wraps the GORM connection and exposes typed data access for all
// entities. Every mutation of shared rows (CLI auth codes, tokens) goes
// through conditional updates; the store never holds in-memory locks.
type Store struct {
	db *gorm.DB
}

func New(driver, dsn string) (*Store, error) {
	dialector, err := GetDialector(driver, dsn)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Config{},
		&models.APIToken{},
		&models.CLIAuthCode{},
	); err != nil {
		return nil, err
	}

	return &Store{db: db}, nil
}

// Health checks the database connection.
func (s *Store) Health() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// DB returns the underlying GORM connection (for transactions).
func (s *Store) DB() *gorm.DB {
	return s.db
}
