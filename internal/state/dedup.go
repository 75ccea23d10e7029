package state

import (
	"log"

	"github.com/zulandar/heliograph/internal/session"
)

// dedupFile persists the set of already-processed message IDs.
const dedupFile = "dedup.json"

// DefaultDedupCapacity bounds the dedup set. When exceeded, the oldest half
// is dropped — amortized O(1) per insert, no strict LRU needed because
// platform redeliveries arrive close to the original.
const DefaultDedupCapacity = 1000

// dedupRecord is the on-disk shape: insertion-ordered IDs, oldest first.
type dedupRecord struct {
	IDs []string `json:"ids"`
}

// DedupSet is a bounded, file-backed record of external message IDs that
// have already been processed. It gates all inbound message handling so a
// redelivered message never produces duplicate side effects.
type DedupSet struct {
	sess     session.Session
	capacity int
}

// NewDedupSet creates a DedupSet with the default capacity.
func NewDedupSet(sess session.Session) *DedupSet {
	return &DedupSet{sess: sess, capacity: DefaultDedupCapacity}
}

// SetCapacity overrides the bound. Values < 2 are ignored.
func (d *DedupSet) SetCapacity(n int) {
	if n >= 2 {
		d.capacity = n
	}
}

// Admit returns true exactly once per distinct id: the first time it is
// seen. Every later call with the same id returns false, even across
// process restarts, as long as the id has not been evicted.
func (d *DedupSet) Admit(id string) bool {
	if id == "" {
		return false
	}

	var rec dedupRecord
	readJSON(d.sess.Path(dedupFile), &rec)

	for _, seen := range rec.IDs {
		if seen == id {
			return false
		}
	}

	rec.IDs = append(rec.IDs, id)
	if len(rec.IDs) > d.capacity {
		rec.IDs = rec.IDs[len(rec.IDs)/2:]
	}

	if err := writeJSON(d.sess, dedupFile, rec); err != nil {
		// The id is still admitted this once; a lost write only risks a
		// duplicate after restart, which downstream slots tolerate.
		log.Printf("state: dedup: write: %v", err)
	}
	return true
}

// Len returns the number of tracked IDs.
func (d *DedupSet) Len() int {
	var rec dedupRecord
	readJSON(d.sess.Path(dedupFile), &rec)
	return len(rec.IDs)
}
