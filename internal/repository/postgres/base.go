package postgres

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/osirix/clinique-api/pkg/metrics"
)

// BaseRepository provides common functionality for all repositories
type BaseRepository struct {
	db      *sqlx.DB
	metrics *metrics.Metrics
}

// NewBaseRepository creates a new base repository. m may be nil.
func NewBaseRepository(db *sqlx.DB, m *metrics.Metrics) BaseRepository {
	return BaseRepository{db: db, metrics: m}
}

// GetDB returns the database instance
func (r *BaseRepository) GetDB() *sqlx.DB {
	return r.db
}

// Ping checks the connection, used by the readiness probe.
func (r *BaseRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// observe records latency and outcome of operation, meant to be deferred.
func (r *BaseRepository) observe(operation string, start time.Time, err *error) {
	r.metrics.ObserveDB(operation, start, *err)
}
