package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	jobmetrics "github.com/aegis-erp/aegis-erp/internal/jobs"
)

// SessionPurger deletes session rows whose expiry has passed. The Redis copy
// of each session already expired on its own TTL; this keeps the audit trail
// table from growing without bound.
type SessionPurger struct {
	pool    *pgxpool.Pool
	logger  *slog.Logger
	metrics *jobmetrics.Metrics
}

// NewSessionPurger constructs a SessionPurger.
func NewSessionPurger(pool *pgxpool.Pool, logger *slog.Logger, metrics *jobmetrics.Metrics) *SessionPurger {
	return &SessionPurger{pool: pool, logger: logger, metrics: metrics}
}

// Handle processes TaskSessionPurge tasks.
func (p *SessionPurger) Handle(ctx context.Context, t *asynq.Task) error {
	var payload SessionPurgePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	tracker := p.metrics.Track("session_purge")
	tag, err := p.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at < NOW()`)
	if err != nil {
		p.logger.Error("purge sessions", slog.Any("error", err))
		return tracker.End(err)
	}
	p.logger.Info("purged sessions", slog.Int64("deleted", tag.RowsAffected()))
	return tracker.End(nil)
}
