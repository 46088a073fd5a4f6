// Package audit persists reconciliation outcomes so a submission can be
// traced after the fact even when the upstream ticket system has moved on.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"deskbridge/pkg/db"
)

// Entry is one recorded submission outcome.
type Entry struct {
	ID                 int64     `json:"id" db:"id"`
	Tag                string    `json:"tag" db:"tag"`
	AssetID            string    `json:"asset_id" db:"asset_id"`
	Operation          string    `json:"operation" db:"operation"`
	ModelID            string    `json:"model_id" db:"model_id"`
	ClearedAssignments int       `json:"cleared_assignments" db:"cleared_assignments"`
	Error              string    `json:"error" db:"error"`
	At                 time.Time `json:"at" db:"at"`
}

// Recorder writes audit rows. A Recorder over a nil pool is valid and records
// nothing, which keeps the bridge usable without a database.
type Recorder struct {
	pool *pgxpool.Pool
	log  zerolog.Logger
}

// NewRecorder builds a Recorder. pool may be nil.
func NewRecorder(pool *pgxpool.Pool, logger zerolog.Logger) *Recorder {
	return &Recorder{pool: pool, log: logger}
}

// Enabled reports whether entries are actually persisted.
func (r *Recorder) Enabled() bool {
	return r != nil && r.pool != nil
}

// Record persists e along with the submitted record fields. Audit writes must
// never fail a submission, so errors are logged and swallowed.
func (r *Recorder) Record(ctx context.Context, e Entry, record any) {
	if !r.Enabled() {
		return
	}

	raw, err := json.Marshal(record)
	if err != nil {
		r.log.Warn().Err(err).Str("tag", e.Tag).Msg("encode audit record")
		raw = []byte("{}")
	}

	_, err = db.Exec(ctx, r.pool,
		`INSERT INTO submission_audit (tag, asset_id, operation, model_id, cleared_assignments, error, record)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.Tag, e.AssetID, e.Operation, e.ModelID, e.ClearedAssignments, e.Error, raw)
	if err != nil {
		r.log.Warn().Err(err).Str("tag", e.Tag).Msg("write audit row")
	}
}

// Recent returns the newest audit entries, capped at limit.
func (r *Recorder) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if !r.Enabled() {
		return nil, nil
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	var entries []Entry
	err := db.Select(ctx, r.pool, &entries,
		`SELECT id, tag, asset_id, operation, model_id, cleared_assignments, error, at
		 FROM submission_audit ORDER BY at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	return entries, nil
}
