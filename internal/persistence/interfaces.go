// Package persistence defines the optional append-only audit trail the
// core owns for fills and hedge executions. This is a data sink the
// engine writes to, not the reporting job named out of scope by the
// specification (see SPEC_FULL.md §6.1) — nothing here reads the trail
// back out for the core's own decisions.
package persistence

import (
	"context"
	"time"
)

// TimeRange bounds a query window.
type TimeRange struct {
	From time.Time
	To   time.Time
}

// Fill records a confirmed quoting-venue order fill.
type Fill struct {
	ID        int64                  `json:"id" db:"id"`
	Timestamp time.Time              `json:"ts" db:"ts"`
	Base      string                 `json:"base" db:"base"`
	Venue     string                 `json:"venue" db:"venue"`
	Side      string                 `json:"side" db:"side"`
	Price     float64                `json:"price" db:"price"`
	Qty       float64                `json:"qty" db:"qty"`
	ClientID  string                 `json:"client_id" db:"client_id"`
	Attributes map[string]interface{} `json:"attributes" db:"attributes"`
	CreatedAt time.Time              `json:"created_at" db:"created_at"`
}

// HedgeExecution records a hedge-venue order placement, successful or
// not, including the residual before and after.
type HedgeExecution struct {
	ID              int64     `json:"id" db:"id"`
	Timestamp       time.Time `json:"ts" db:"ts"`
	Base            string    `json:"base" db:"base"`
	Venue           string    `json:"venue" db:"venue"`
	Side            string    `json:"side" db:"side"`
	Qty             float64   `json:"qty" db:"qty"`
	ResidualBefore  float64   `json:"residual_before" db:"residual_before"`
	ResidualAfter   float64   `json:"residual_after" db:"residual_after"`
	Attempt         int       `json:"attempt" db:"attempt"`
	Success         bool      `json:"success" db:"success"`
	ErrorKind       string    `json:"error_kind,omitempty" db:"error_kind"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}

// FillsRepo persists quoting-venue fills.
type FillsRepo interface {
	Insert(ctx context.Context, fill Fill) error
	ListByBase(ctx context.Context, base string, tr TimeRange, limit int) ([]Fill, error)
}

// HedgesRepo persists hedge-venue execution attempts.
type HedgesRepo interface {
	Insert(ctx context.Context, hedge HedgeExecution) error
	ListByBase(ctx context.Context, base string, tr TimeRange, limit int) ([]HedgeExecution, error)
}

// Repository aggregates both audit sinks.
type Repository struct {
	Fills  FillsRepo
	Hedges HedgesRepo
}
