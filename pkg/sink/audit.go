package sink

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// AuditTimeLayout is the timestamp layout used inside audit lines.
const AuditTimeLayout = "2006-01-02 150405"

// AuditLine formats one audit entry.
func AuditLine(ts time.Time, message string) string {
	return fmt.Sprintf("Timestamp >>> %s : %s", ts.Format(AuditTimeLayout), message)
}

// AuditLog appends text lines to artifacts under Root. There is no rotation.
type AuditLog struct {
	Root  string
	locks pathLocks
}

func NewAuditLog(root string) *AuditLog {
	return &AuditLog{Root: root}
}

// Append writes message as a single line to the named artifact, creating the
// root directory and the artifact when absent.
func (a *AuditLog) Append(artifact, message string) error {
	if err := os.MkdirAll(a.Root, 0o755); err != nil {
		return fmt.Errorf("audit: create log root: %w", err)
	}

	path := filepath.Join(a.Root, artifact)
	unlock := a.locks.lock(path)
	defer unlock()

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("audit: open %q: %w", path, err)
	}
	defer f.Close()

	if !strings.HasSuffix(message, "\n") {
		message += "\n"
	}
	if _, err := f.WriteString(message); err != nil {
		return fmt.Errorf("audit: write %q: %w", path, err)
	}
	return nil
}
