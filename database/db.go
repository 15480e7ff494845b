package database

import (
	"meetpoint/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect opens the sqlite store at path and migrates the schema. Tests
// point this at a temp file.
func Connect(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	// Auto-migrate models
	err = db.AutoMigrate(&models.Group{}, &models.Member{}, &models.Presence{}, &models.Activity{})
	if err != nil {
		return nil, err
	}

	return db, nil
}
