package database

import (
	"os"
	"path/filepath"

	"github.com/otoscore/otoscore/internal/database/models"
	"go.uber.org/zap"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func Init(dsn string) (*gorm.DB, error) {
	if _, err := os.Stat(dsn); os.IsNotExist(err) {
		zap.S().Infof("database file not found at '%s', creating directory for it.", dsn)
		// Ensure the directory for the database file exists.
		dbDir := filepath.Dir(dsn)
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			return nil, err
		}
	}

	// TranslateError turns unique-constraint violations into
	// gorm.ErrDuplicatedKey so races on unique columns are classifiable.
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}

	// Auto migrate schema
	err = db.AutoMigrate(
		&models.User{},
		&models.Player{},
		&models.ProfileRecent{},
		&models.ProfileHistory{},
		&models.ScoreRecent{},
		&models.ScoreHistory{},
		&models.Song{},
	)
	if err != nil {
		return nil, err
	}

	return db, nil
}
