// Package state implements the file-backed per-session stores that
// Heliograph processes coordinate through: the pending-prompt slot, the
// dedup set, the trigger/response channel, and the inbox queue.
//
// Every store lives in the session's storage directory and follows the same
// degradation rule: a missing, unreadable, or unparseable file is treated as
// absent state, never as a fatal error. All stores tolerate last-writer-wins
// because each is a single slot or a bounded list written by one logical
// actor at a time.
package state

import (
	"encoding/json"
	"os"

	"github.com/zulandar/heliograph/internal/session"
)

// readJSON loads path into v. Returns false when the file is missing or
// corrupt — callers treat both as absent state.
func readJSON(path string, v interface{}) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	return json.Unmarshal(data, v) == nil
}

// writeJSON marshals v and writes it to a file inside the session directory,
// creating the directory on first write. The write goes through a temp file
// and rename so a concurrently polling reader never sees a torn record.
func writeJSON(sess session.Session, name string, v interface{}) error {
	if err := sess.EnsureDir(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(sess.Dir(), name+".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), sess.Path(name)); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}
