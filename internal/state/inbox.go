package state

import (
	"log"
	"os"
	"time"

	"github.com/zulandar/heliograph/internal/session"
)

// inboxFile holds queued messages not yet delivered to the local session.
const inboxFile = "inbox.json"

// DefaultInboxCapacity bounds the inbox; the oldest entries are dropped on
// overflow. A remote operator who sends 50+ unread messages has lost the
// thread anyway.
const DefaultInboxCapacity = 50

// InboxEntry is one undelivered generic message from the remote operator.
type InboxEntry struct {
	From       string    `json:"from"`
	Text       string    `json:"text"`
	Attachment string    `json:"attachment,omitempty"` // local path of a downloaded image
	ReceivedAt time.Time `json:"received_at"`
}

// inboxRecord is the on-disk shape.
type inboxRecord struct {
	Messages []InboxEntry `json:"messages"`
}

// Inbox is the bounded FIFO of undelivered messages, drained by the local
// session on its own cadence (once per prompt turn).
type Inbox struct {
	sess     session.Session
	capacity int
}

// NewInbox creates an Inbox with the default capacity.
func NewInbox(sess session.Session) *Inbox {
	return &Inbox{sess: sess, capacity: DefaultInboxCapacity}
}

// SetCapacity overrides the bound. Values < 1 are ignored.
func (i *Inbox) SetCapacity(n int) {
	if n >= 1 {
		i.capacity = n
	}
}

// Enqueue appends an entry, truncating to the newest entries when over
// capacity. Storage failure is logged and swallowed.
func (i *Inbox) Enqueue(e InboxEntry) {
	var rec inboxRecord
	readJSON(i.sess.Path(inboxFile), &rec)

	rec.Messages = append(rec.Messages, e)
	if len(rec.Messages) > i.capacity {
		rec.Messages = rec.Messages[len(rec.Messages)-i.capacity:]
	}

	if err := writeJSON(i.sess, inboxFile, rec); err != nil {
		log.Printf("state: inbox: write: %v", err)
	}
}

// Drain returns all queued entries in arrival order and clears the queue.
// Overlapping drains are not supported; writes are serialized by the single
// relay actor in practice.
func (i *Inbox) Drain() []InboxEntry {
	path := i.sess.Path(inboxFile)
	var rec inboxRecord
	if !readJSON(path, &rec) || len(rec.Messages) == 0 {
		return nil
	}
	if err := writeJSON(i.sess, inboxFile, inboxRecord{Messages: []InboxEntry{}}); err != nil {
		log.Printf("state: inbox: clear: %v", err)
	}
	return rec.Messages
}

// Peek returns all queued entries without clearing the queue.
func (i *Inbox) Peek() []InboxEntry {
	var rec inboxRecord
	readJSON(i.sess.Path(inboxFile), &rec)
	return rec.Messages
}

// Len returns the number of queued entries without draining.
func (i *Inbox) Len() int {
	var rec inboxRecord
	readJSON(i.sess.Path(inboxFile), &rec)
	return len(rec.Messages)
}

// Remove deletes the inbox file entirely. Used by session cleanup.
func (i *Inbox) Remove() {
	if err := os.Remove(i.sess.Path(inboxFile)); err != nil && !os.IsNotExist(err) {
		log.Printf("state: inbox: remove: %v", err)
	}
}
