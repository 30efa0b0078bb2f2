package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/prototypedave/hybridTool/internal/model"
)

// resultTables maps each result kind to its table.
// Table names never come from user input.
var resultTables = map[model.ResultKind]string{
	model.ResultPerformance: "results_performance",
	model.ResultPing:        "results_ping",
	model.ResultTraceroute:  "results_traceroute",
	model.ResultSecurity:    "results_security",
}

func tableFor(kind model.ResultKind) (string, error) {
	table, ok := resultTables[kind]
	if !ok {
		return "", fmt.Errorf("%w: unknown result kind %q", model.ErrPersistence, kind)
	}
	return table, nil
}

// Save upserts the payload for (kind, target) and clears any recorded failure.
// Kinds are written independently; there is no atomicity across kinds.
func (d *DB) Save(ctx context.Context, kind model.ResultKind, target, jobID string, payload any) error {
	table, err := tableFor(kind)
	if err != nil {
		return err
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%w: failed to serialize %s result: %w", model.ErrPersistence, kind, err)
	}

	//nolint:gosec // table name comes from resultTables
	query := fmt.Sprintf(`
	INSERT INTO %s (target, job_id, payload, updated_at, last_error, last_error_at)
	VALUES (?, ?, ?, ?, '', NULL)
	ON CONFLICT(target) DO UPDATE SET
		job_id = excluded.job_id,
		payload = excluded.payload,
		updated_at = excluded.updated_at,
		last_error = '',
		last_error_at = NULL
	`, table)

	if _, err := d.db.ExecContext(ctx, query, target, jobID, string(data), formatTimestamp(d.now())); err != nil {
		return fmt.Errorf("%w: failed to save %s result: %w", model.ErrPersistence, kind, err)
	}
	return nil
}

// RecordFailure marks the latest attempt for (kind, target) as failed.
// A previously stored payload is kept so readers still see the last good result.
func (d *DB) RecordFailure(ctx context.Context, kind model.ResultKind, target, jobID string, cause error) error {
	table, err := tableFor(kind)
	if err != nil {
		return err
	}

	msg := "unknown error"
	if cause != nil {
		msg = cause.Error()
	}
	now := formatTimestamp(d.now())

	//nolint:gosec // table name comes from resultTables
	query := fmt.Sprintf(`
	INSERT INTO %s (target, job_id, payload, updated_at, last_error, last_error_at)
	VALUES (?, ?, NULL, ?, ?, ?)
	ON CONFLICT(target) DO UPDATE SET
		job_id = excluded.job_id,
		last_error = excluded.last_error,
		last_error_at = excluded.last_error_at
	`, table)

	if _, err := d.db.ExecContext(ctx, query, target, jobID, now, msg, now); err != nil {
		return fmt.Errorf("%w: failed to record %s failure: %w", model.ErrPersistence, kind, err)
	}
	return nil
}

// ClearFailure drops the failure recorded for (kind, target) and keeps the
// payload and its timestamp. It is a no-op when no failure is recorded.
func (d *DB) ClearFailure(ctx context.Context, kind model.ResultKind, target string) error {
	table, err := tableFor(kind)
	if err != nil {
		return err
	}

	//nolint:gosec // table name comes from resultTables
	query := fmt.Sprintf(`
	UPDATE %s SET last_error = '', last_error_at = NULL
	WHERE target = ? AND last_error != ''
	`, table)

	if _, err := d.db.ExecContext(ctx, query, target); err != nil {
		return fmt.Errorf("%w: failed to clear %s failure: %w", model.ErrPersistence, kind, err)
	}
	return nil
}

// Latest returns the stored record for (kind, target).
// It returns model.ErrNotFound when nothing, not even a failure, was recorded.
func (d *DB) Latest(ctx context.Context, kind model.ResultKind, target string) (*model.Record, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}

	//nolint:gosec // table name comes from resultTables
	query := fmt.Sprintf(`
	SELECT job_id, payload, updated_at, last_error, last_error_at
	FROM %s
	WHERE target = ?
	`, table)

	var (
		rec         = model.Record{Kind: kind, Target: target}
		payload     sql.NullString
		updatedAt   string
		lastErrorAt sql.NullString
	)
	err = d.db.QueryRowContext(ctx, query, target).Scan(
		&rec.JobID,
		&payload,
		&updatedAt,
		&rec.LastError,
		&lastErrorAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s for %s", model.ErrNotFound, kind, target)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read %s result: %w", model.ErrPersistence, kind, err)
	}

	if payload.Valid {
		rec.Payload = json.RawMessage(payload.String)
	}
	rec.UpdatedAt = parseTimestamp(updatedAt)
	rec.LastErrorAt = parseNullTimestamp(lastErrorAt)
	return &rec, nil
}

// LatestSecurity decodes the stored security result for target.
// It returns nil without error when nothing has been stored yet.
func (d *DB) LatestSecurity(ctx context.Context, target string) (*model.SecurityResult, error) {
	rec, err := d.Latest(ctx, model.ResultSecurity, target)
	if errors.Is(err, model.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !rec.HasPayload() {
		return nil, nil
	}

	var res model.SecurityResult
	if err := rec.Decode(&res); err != nil {
		return nil, fmt.Errorf("%w: failed to decode security result: %w", model.ErrPersistence, err)
	}
	return &res, nil
}
