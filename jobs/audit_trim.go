package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	jobmetrics "github.com/aegis-erp/aegis-erp/internal/jobs"
)

// DefaultAuditRetention applies when a trim task carries no retention.
const DefaultAuditRetention = 90 * 24 * time.Hour

// AuditTrimmer drops audit log entries older than the retention window.
type AuditTrimmer struct {
	pool    *pgxpool.Pool
	logger  *slog.Logger
	metrics *jobmetrics.Metrics
}

// NewAuditTrimmer constructs an AuditTrimmer.
func NewAuditTrimmer(pool *pgxpool.Pool, logger *slog.Logger, metrics *jobmetrics.Metrics) *AuditTrimmer {
	return &AuditTrimmer{pool: pool, logger: logger, metrics: metrics}
}

// Handle processes TaskAuditTrim tasks.
func (a *AuditTrimmer) Handle(ctx context.Context, t *asynq.Task) error {
	var payload AuditTrimPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	retention := payload.Retention
	if retention <= 0 {
		retention = DefaultAuditRetention
	}
	tracker := a.metrics.Track("audit_trim")
	cutoff := time.Now().Add(-retention)
	tag, err := a.pool.Exec(ctx, `DELETE FROM audit_logs WHERE created_at < $1`, cutoff)
	if err != nil {
		a.logger.Error("trim audit logs", slog.Any("error", err))
		return tracker.End(err)
	}
	a.logger.Info("trimmed audit logs",
		slog.Int64("deleted", tag.RowsAffected()),
		slog.Time("cutoff", cutoff))
	return tracker.End(nil)
}
