// Package jobs holds the background maintenance tasks processed by the
// Asynq worker. Lockout state is intentionally not touched here: locks
// expire lazily on read, no sweeper exists.
package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskSessionPurge removes expired session rows from postgres.
	TaskSessionPurge = "sessions:purge"
	// TaskAuditTrim deletes audit log entries past the retention window.
	TaskAuditTrim = "audit:trim"
)

// SessionPurgePayload carries scheduling metadata.
type SessionPurgePayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewSessionPurgeTask constructs an Asynq task for session purging.
func NewSessionPurgeTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(SessionPurgePayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSessionPurge, body, asynq.Queue(QueueDefault)), nil
}

// AuditTrimPayload bounds the retention applied by one trim run.
type AuditTrimPayload struct {
	Retention    time.Duration `json:"retention"`
	ScheduledFor time.Time     `json:"scheduled_for"`
}

// NewAuditTrimTask constructs an Asynq task for audit retention.
func NewAuditTrimTask(retention time.Duration, at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(AuditTrimPayload{Retention: retention, ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAuditTrim, body, asynq.Queue(QueueDefault)), nil
}
