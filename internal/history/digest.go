package history

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

// Digest builds daily activity summaries from the history database.
type Digest struct {
	rec *Recorder
	now func() time.Time
}

// NewDigest creates a Digest over the given Recorder.
func NewDigest(rec *Recorder) (*Digest, error) {
	if rec == nil {
		return nil, fmt.Errorf("history: recorder is required")
	}
	return &Digest{rec: rec, now: time.Now}, nil
}

// SetClock overrides the time source. For tests.
func (d *Digest) SetClock(now func() time.Time) { d.now = now }

// BuildDailyDigest summarizes the last 24 hours of activity for a session
// as an HTML message. Returns "" when there was no activity.
func (d *Digest) BuildDailyDigest(sessionID string) (string, error) {
	since := d.now().Add(-24 * time.Hour)

	promptQuery := func() *gorm.DB {
		q := d.rec.db.Model(&PromptRecord{}).Where("created_at >= ?", since)
		if sessionID != "" {
			q = q.Where("session_id = ?", sessionID)
		}
		return q
	}

	var prompts, answered int64
	if err := promptQuery().Count(&prompts).Error; err != nil {
		return "", fmt.Errorf("history: count prompts: %w", err)
	}
	if err := promptQuery().Where("answered = ?", true).Count(&answered).Error; err != nil {
		return "", fmt.Errorf("history: count answered: %w", err)
	}

	var inbox int64
	iq := d.rec.db.Model(&InboxRecord{}).Where("created_at >= ?", since)
	if sessionID != "" {
		iq = iq.Where("session_id = ?", sessionID)
	}
	if err := iq.Count(&inbox).Error; err != nil {
		return "", fmt.Errorf("history: count inbox: %w", err)
	}

	if prompts == 0 && inbox == 0 {
		return "", nil
	}

	var b strings.Builder
	b.WriteString("📊 <b>Daily digest</b>\n")
	fmt.Fprintf(&b, "\nPrompts forwarded: <b>%d</b>", prompts)
	fmt.Fprintf(&b, "\nAnswered remotely: <b>%d</b>", answered)
	if prompts > answered {
		fmt.Fprintf(&b, "\nUnanswered: <b>%d</b>", prompts-answered)
	}
	if inbox > 0 {
		fmt.Fprintf(&b, "\nQueued messages: <b>%d</b>", inbox)
	}
	return b.String(), nil
}
