package dashboard

import (
	"encoding/json"
	"html/template"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/heliograph/internal/history"
	"github.com/zulandar/heliograph/internal/session"
	"github.com/zulandar/heliograph/internal/state"
)

// sessionStatus is the JSON shape of one session row.
type sessionStatus struct {
	ID           string `json:"id"`
	PendingKind  string `json:"pendingKind,omitempty"`
	PendingAgeMS int64  `json:"pendingAgeMs,omitempty"`
	WatcherPID   int    `json:"watcherPid,omitempty"`
	InboxLen     int    `json:"inboxLen"`
	TriggerSet   bool   `json:"triggerSet"`
}

var indexTmpl = template.Must(template.New("index").Parse(`<!doctype html>
<html><head><title>Heliograph</title></head>
<body>
<h1>Heliograph</h1>
<p>State root: <code>{{.Root}}</code></p>
<ul>
<li><a href="/api/sessions">/api/sessions</a></li>
<li><a href="/api/prompts">/api/prompts</a></li>
<li><a href="/api/inbox">/api/inbox</a></li>
</ul>
</body></html>`))

func handleIndex(opts StartOpts) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Status(http.StatusOK)
		c.Header("Content-Type", "text/html; charset=utf-8")
		indexTmpl.Execute(c.Writer, gin.H{"Root": opts.StateRoot})
	}
}

// handleSessions scans the state root and reports each session's live
// relay state.
func handleSessions(root string) gin.HandlerFunc {
	return func(c *gin.Context) {
		entries, err := os.ReadDir(root)
		if err != nil {
			if os.IsNotExist(err) {
				c.JSON(http.StatusOK, []sessionStatus{})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		statuses := make([]sessionStatus, 0, len(entries))
		for _, e := range entries {
			if !e.IsDir() {
				continue
			}
			statuses = append(statuses, sessionStatusFor(root, e.Name()))
		}
		c.JSON(http.StatusOK, statuses)
	}
}

func sessionStatusFor(root, id string) sessionStatus {
	sess := session.Session{ID: id, Root: root}
	st := sessionStatus{ID: id}

	if pending, ok := state.NewPendingStore(sess).Peek(); ok {
		st.PendingKind = string(pending.Kind)
		st.PendingAgeMS = time.Since(pending.CreatedAt).Milliseconds()
	}
	if rec, ok := readLease(sess); ok {
		st.WatcherPID = rec
	}
	st.InboxLen = state.NewInbox(sess).Len()
	st.TriggerSet = state.NewTrigger(sess).Pending()
	return st
}

// readLease reports the pid from a fresh watcher lease, without importing
// the watch package's manager (read-only view).
func readLease(sess session.Session) (int, bool) {
	data, err := os.ReadFile(filepath.Join(sess.Dir(), "watcher.json"))
	if err != nil {
		return 0, false
	}
	var rec struct {
		PID        int       `json:"pid"`
		AcquiredAt time.Time `json:"acquiredAt"`
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		return 0, false
	}
	if time.Since(rec.AcquiredAt) >= 30*time.Second {
		return 0, false
	}
	return rec.PID, true
}

func handlePrompts(rec *history.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rec == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "history disabled"})
			return
		}
		prompts, err := rec.RecentPrompts(c.Query("session"), queryLimit(c))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, prompts)
	}
}

func handleInbox(rec *history.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rec == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "history disabled"})
			return
		}
		entries, err := rec.RecentInbox(c.Query("session"), queryLimit(c))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, entries)
	}
}

func queryLimit(c *gin.Context) int {
	n, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || n <= 0 {
		return 50
	}
	return n
}

