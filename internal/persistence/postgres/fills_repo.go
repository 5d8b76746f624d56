// Package postgres adapts the teacher's sqlx/lib-pq trades repository
// (internal/persistence/postgres/trades_repo.go in the source pack)
// into the fills/hedges audit sink of SPEC_FULL.md §2.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/sawpanic/xvenue-mm/internal/persistence"
)

type fillsRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

func NewFillsRepo(db *sqlx.DB, timeout time.Duration) persistence.FillsRepo {
	return &fillsRepo{db: db, timeout: timeout}
}

func (r *fillsRepo) Insert(ctx context.Context, fill persistence.Fill) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	attrs, err := json.Marshal(fill.Attributes)
	if err != nil {
		return fmt.Errorf("marshal fill attributes: %w", err)
	}

	const query = `
		INSERT INTO fills (ts, base, venue, side, price, qty, client_id, attributes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`

	err = r.db.QueryRowxContext(ctx, query,
		fill.Timestamp, fill.Base, fill.Venue, fill.Side,
		fill.Price, fill.Qty, fill.ClientID, attrs).
		Scan(&fill.ID, &fill.CreatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return fmt.Errorf("duplicate fill: %w", err)
		}
		return fmt.Errorf("insert fill: %w", err)
	}
	return nil
}

func (r *fillsRepo) ListByBase(ctx context.Context, base string, tr persistence.TimeRange, limit int) ([]persistence.Fill, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	const query = `
		SELECT id, ts, base, venue, side, price, qty, client_id, attributes, created_at
		FROM fills
		WHERE base = $1 AND ts >= $2 AND ts <= $3
		ORDER BY ts DESC
		LIMIT $4`

	rows, err := r.db.QueryxContext(ctx, query, base, tr.From, tr.To, limit)
	if err != nil {
		return nil, fmt.Errorf("query fills by base: %w", err)
	}
	defer rows.Close()

	var out []persistence.Fill
	for rows.Next() {
		var f persistence.Fill
		var attrs []byte
		if err := rows.Scan(&f.ID, &f.Timestamp, &f.Base, &f.Venue, &f.Side,
			&f.Price, &f.Qty, &f.ClientID, &attrs, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan fill: %w", err)
		}
		if len(attrs) > 0 {
			if err := json.Unmarshal(attrs, &f.Attributes); err != nil {
				return nil, fmt.Errorf("unmarshal fill attributes: %w", err)
			}
		} else {
			f.Attributes = make(map[string]interface{})
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

type hedgesRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

func NewHedgesRepo(db *sqlx.DB, timeout time.Duration) persistence.HedgesRepo {
	return &hedgesRepo{db: db, timeout: timeout}
}

func (r *hedgesRepo) Insert(ctx context.Context, hedge persistence.HedgeExecution) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	const query = `
		INSERT INTO hedge_executions
			(ts, base, venue, side, qty, residual_before, residual_after, attempt, success, error_kind)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at`

	err := r.db.QueryRowxContext(ctx, query,
		hedge.Timestamp, hedge.Base, hedge.Venue, hedge.Side, hedge.Qty,
		hedge.ResidualBefore, hedge.ResidualAfter, hedge.Attempt, hedge.Success, hedge.ErrorKind).
		Scan(&hedge.ID, &hedge.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert hedge execution: %w", err)
	}
	return nil
}

func (r *hedgesRepo) ListByBase(ctx context.Context, base string, tr persistence.TimeRange, limit int) ([]persistence.HedgeExecution, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	const query = `
		SELECT id, ts, base, venue, side, qty, residual_before, residual_after, attempt, success, error_kind, created_at
		FROM hedge_executions
		WHERE base = $1 AND ts >= $2 AND ts <= $3
		ORDER BY ts DESC
		LIMIT $4`

	rows, err := r.db.QueryxContext(ctx, query, base, tr.From, tr.To, limit)
	if err != nil {
		return nil, fmt.Errorf("query hedge executions by base: %w", err)
	}
	defer rows.Close()

	var out []persistence.HedgeExecution
	for rows.Next() {
		var h persistence.HedgeExecution
		var errKind sql.NullString
		if err := rows.Scan(&h.ID, &h.Timestamp, &h.Base, &h.Venue, &h.Side, &h.Qty,
			&h.ResidualBefore, &h.ResidualAfter, &h.Attempt, &h.Success, &errKind, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan hedge execution: %w", err)
		}
		h.ErrorKind = errKind.String
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
