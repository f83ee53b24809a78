package audit

import (
	"context"
	"log"
	"time"
)

// LogLogger writes audit entries as log lines when no database is configured.
type LogLogger struct {
	logger *log.Logger
	now    func() time.Time
}

// NewLogLogger constructs a log-backed audit logger.
func NewLogLogger(logger *log.Logger) *LogLogger {
	if logger == nil {
		logger = log.Default()
	}
	return &LogLogger{logger: logger, now: time.Now}
}

// Log prints the entry.
func (l *LogLogger) Log(ctx context.Context, entry Entry) error {
	_ = ctx
	entry = prepare(entry, l.now())
	l.logger.Printf("event=audit id=%s branch_id=%s actor=%s role=%s action=%s resource=%s/%s ip=%s digest=%s metadata=%s",
		entry.ID, entry.BranchID, entry.Actor, entry.Role, entry.Action, entry.ResourceType, entry.ResourceID,
		entry.IP, entry.PayloadDigest, string(entry.Metadata))
	return nil
}
