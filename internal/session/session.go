// Package session derives stable per-project session identities and the
// on-disk layout of Heliograph's relay state.
package session

import (
	"crypto/md5"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
)

// DefaultRootDirName is the directory under the user's home that holds all
// session state directories.
const DefaultRootDirName = ".heliograph"

// Session identifies one relay instance, scoped to a local working context
// (project path). The ID combines a filesystem-safe slug of the path's last
// segment with a short hash of the full path, so two projects with the same
// basename never collide and the same path always resolves to the same
// session across process restarts.
type Session struct {
	ID   string // e.g. "myproject-a1b2c3"
	Root string // state root, e.g. ~/.heliograph
}

// Resolve derives the Session for contextPath under the given state root.
// It is a pure function of its inputs and never fails. An empty root falls
// back to DefaultRoot().
func Resolve(root, contextPath string) Session {
	if root == "" {
		root = DefaultRoot()
	}
	sum := md5.Sum([]byte(contextPath))
	hash := hex.EncodeToString(sum[:])[:6]
	return Session{
		ID:   slugify(filepath.Base(contextPath)) + "-" + hash,
		Root: root,
	}
}

// DefaultRoot returns ~/.heliograph, or a relative fallback when the home
// directory cannot be determined.
func DefaultRoot() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultRootDirName
	}
	return filepath.Join(home, DefaultRootDirName)
}

// Dir returns the session's storage directory. The directory is not created;
// callers that write state use EnsureDir first.
func (s Session) Dir() string {
	return filepath.Join(s.Root, s.ID)
}

// EnsureDir creates the session's storage directory if it does not exist.
func (s Session) EnsureDir() error {
	return os.MkdirAll(s.Dir(), 0o755)
}

// Path returns the path of a named state file inside the session directory.
func (s Session) Path(name string) string {
	return filepath.Join(s.Dir(), name)
}

// slugify replaces every character outside [A-Za-z0-9_-] with an underscore.
func slugify(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
