// Package history persists prompt and reply activity to SQLite, feeding
// the `helio log` command, the dashboard, and the daily digest.
package history

import (
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// PromptRecord is one forwarded prompt.
type PromptRecord struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	SessionID string `gorm:"size:64;index"`
	Kind      string `gorm:"size:16"`
	ToolName  string `gorm:"size:64"`
	Answered  bool   `gorm:"default:false"`
	Response  string `gorm:"size:16"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// InboxRecord is one uncorrelated operator message.
type InboxRecord struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	SessionID string `gorm:"size:64;index"`
	Sender    string `gorm:"size:64"`
	Text      string `gorm:"type:text"`
	CreatedAt time.Time
}

// Open opens (or creates) the history database at path and migrates the
// schema. Use ":memory:" for tests.
func Open(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("history: open %s: %w", path, err)
	}
	if err := db.AutoMigrate(&PromptRecord{}, &InboxRecord{}); err != nil {
		return nil, fmt.Errorf("history: migrate: %w", err)
	}
	return db, nil
}
