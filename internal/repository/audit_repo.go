package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"go-content-dashboard/internal/metrics"
	"go-content-dashboard/internal/model"
)

const (
	defaultAuditLimit = 50
	maxAuditLimit     = 200
)

type AuditRepository struct {
	pool *pgxpool.Pool
}

func NewAuditRepository(pool *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{pool: pool}
}

func (r *AuditRepository) Log(ctx context.Context, entry model.AuditEntry) error {
	defer metrics.ObserveStore(ctx, "audit.log")()

	_, err := r.pool.Exec(ctx,
		`INSERT INTO audit_entries (id, action, actor_id, resource, occurred_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		entry.ID, entry.Action, entry.ActorID, entry.Resource, entry.OccurredAt)
	if err != nil {
		return fmt.Errorf("log audit entry: %w", err)
	}
	return nil
}

func (r *AuditRepository) Query(ctx context.Context, query model.AuditQuery) ([]model.AuditEntry, error) {
	limit := clampAuditLimit(query.Limit)
	defer metrics.ObserveStore(ctx, "audit.query")()

	rows, err := r.pool.Query(ctx,
		`SELECT id, action, actor_id, resource, occurred_at
		 FROM audit_entries WHERE actor_id = $1
		 ORDER BY occurred_at DESC, id
		 LIMIT $2`, query.ActorID, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	entries := make([]model.AuditEntry, 0)
	for rows.Next() {
		var e model.AuditEntry
		if err := rows.Scan(&e.ID, &e.Action, &e.ActorID, &e.Resource, &e.OccurredAt); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func clampAuditLimit(limit int) int {
	if limit <= 0 {
		return defaultAuditLimit
	}
	if limit > maxAuditLimit {
		return maxAuditLimit
	}
	return limit
}
