package history

import (
	"fmt"

	"github.com/zulandar/heliograph/internal/state"
	"gorm.io/gorm"
)

// Recorder writes relay activity to the history database.
type Recorder struct {
	db *gorm.DB
}

// NewRecorder creates a Recorder.
func NewRecorder(db *gorm.DB) (*Recorder, error) {
	if db == nil {
		return nil, fmt.Errorf("history: db is required")
	}
	return &Recorder{db: db}, nil
}

// RecordPrompt records a forwarded prompt.
func (r *Recorder) RecordPrompt(sessionID string, kind state.PromptKind, toolName string) error {
	rec := PromptRecord{SessionID: sessionID, Kind: string(kind), ToolName: toolName}
	if err := r.db.Create(&rec).Error; err != nil {
		return fmt.Errorf("history: record prompt: %w", err)
	}
	return nil
}

// RecordAnswer marks the newest unanswered prompt of the given kind as
// answered. A reply arriving after its prompt row is gone (e.g. a fresh
// database) is recorded as a standalone answered prompt.
func (r *Recorder) RecordAnswer(sessionID string, kind state.PromptKind, response string) error {
	var rec PromptRecord
	err := r.db.
		Where("session_id = ? AND kind = ? AND answered = ?", sessionID, string(kind), false).
		Order("created_at DESC").
		First(&rec).Error
	if err == gorm.ErrRecordNotFound {
		rec = PromptRecord{SessionID: sessionID, Kind: string(kind), Answered: true, Response: response}
		if err := r.db.Create(&rec).Error; err != nil {
			return fmt.Errorf("history: record answer: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("history: find prompt: %w", err)
	}

	rec.Answered = true
	rec.Response = response
	if err := r.db.Save(&rec).Error; err != nil {
		return fmt.Errorf("history: record answer: %w", err)
	}
	return nil
}

// RecordInbox records an uncorrelated operator message.
func (r *Recorder) RecordInbox(sessionID, sender, text string) error {
	rec := InboxRecord{SessionID: sessionID, Sender: sender, Text: text}
	if err := r.db.Create(&rec).Error; err != nil {
		return fmt.Errorf("history: record inbox entry: %w", err)
	}
	return nil
}

// RecentPrompts returns the newest prompts for a session, newest first.
// An empty sessionID returns prompts across all sessions.
func (r *Recorder) RecentPrompts(sessionID string, limit int) ([]PromptRecord, error) {
	q := r.db.Order("created_at DESC").Limit(limit)
	if sessionID != "" {
		q = q.Where("session_id = ?", sessionID)
	}
	var recs []PromptRecord
	if err := q.Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("history: recent prompts: %w", err)
	}
	return recs, nil
}

// RecentInbox returns the newest inbox records for a session, newest first.
func (r *Recorder) RecentInbox(sessionID string, limit int) ([]InboxRecord, error) {
	q := r.db.Order("created_at DESC").Limit(limit)
	if sessionID != "" {
		q = q.Where("session_id = ?", sessionID)
	}
	var recs []InboxRecord
	if err := q.Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("history: recent inbox: %w", err)
	}
	return recs, nil
}
