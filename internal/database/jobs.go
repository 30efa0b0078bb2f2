package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/prototypedave/hybridTool/internal/model"
)

const jobColumns = `id, target, options, status, error, submitted_at, started_at, finished_at`

// CreateIfAbsent stores job unless a pending or running job already exists
// for the same target. It returns the stored job and whether it was created.
//
// The insert and the existence check are one statement guarded by the
// partial unique index, so two processes sharing the file cannot both
// create an active job for a target.
func (d *DB) CreateIfAbsent(ctx context.Context, job *model.Job) (*model.Job, bool, error) {
	// A second pass covers a conflicting job that finished between the
	// insert and the lookup.
	for range 2 {
		stored, created, err := d.createIfAbsent(ctx, job)
		if err != nil || stored != nil {
			return stored, created, err
		}
	}
	return nil, false, fmt.Errorf("%w: job %s conflicts with an existing row", model.ErrPersistence, job.ID)
}

func (d *DB) createIfAbsent(ctx context.Context, job *model.Job) (*model.Job, bool, error) {
	opts, err := json.Marshal(job.Options)
	if err != nil {
		return nil, false, fmt.Errorf("%w: failed to serialize job options: %w", model.ErrPersistence, err)
	}

	res, err := d.db.ExecContext(ctx, `
	INSERT INTO jobs (id, target, options, status, error, submitted_at, started_at, finished_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT DO NOTHING
	`,
		job.ID,
		job.Target,
		string(opts),
		string(job.Status),
		job.Error,
		formatTimestamp(job.SubmittedAt),
		nullTimestamp(job.StartedAt),
		nullTimestamp(job.FinishedAt),
	)
	if err != nil {
		return nil, false, fmt.Errorf("%w: failed to insert job: %w", model.ErrPersistence, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("%w: %w", model.ErrPersistence, err)
	}
	if n == 1 {
		return job, true, nil
	}

	existing, err := d.ActiveJobForTarget(ctx, job.Target)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// ActiveJobForTarget returns the pending or running job for target, or nil.
func (d *DB) ActiveJobForTarget(ctx context.Context, target string) (*model.Job, error) {
	row := d.db.QueryRowContext(ctx, `
	SELECT `+jobColumns+`
	FROM jobs
	WHERE target = ? AND status IN ('pending', 'running')
	`, target)

	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get active job: %w", model.ErrPersistence, err)
	}
	return job, nil
}

// GetJob returns the job with the given id.
func (d *DB) GetJob(ctx context.Context, id string) (*model.Job, error) {
	row := d.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)

	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", model.ErrJobNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get job: %w", model.ErrPersistence, err)
	}
	return job, nil
}

// UpdateJob persists the lifecycle fields of job.
func (d *DB) UpdateJob(ctx context.Context, job *model.Job) error {
	res, err := d.db.ExecContext(ctx, `
	UPDATE jobs
	SET status = ?, error = ?, started_at = ?, finished_at = ?
	WHERE id = ?
	`,
		string(job.Status),
		job.Error,
		nullTimestamp(job.StartedAt),
		nullTimestamp(job.FinishedAt),
		job.ID,
	)
	if err != nil {
		return fmt.Errorf("%w: failed to update job: %w", model.ErrPersistence, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %w", model.ErrPersistence, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", model.ErrJobNotFound, job.ID)
	}
	return nil
}

// DeleteJob removes a terminal job.
// Active jobs cannot be deleted because the queue still references them.
func (d *DB) DeleteJob(ctx context.Context, id string) error {
	job, err := d.GetJob(ctx, id)
	if err != nil {
		return err
	}
	if !job.Status.IsTerminal() {
		return fmt.Errorf("%w: %s is %s", model.ErrJobActive, id, job.Status)
	}

	if _, err := d.db.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?`, id); err != nil {
		return fmt.Errorf("%w: failed to delete job: %w", model.ErrPersistence, err)
	}
	return nil
}

// ListActiveJobs returns pending and running jobs in submission order.
// The queue uses it to rebuild its state after a restart.
func (d *DB) ListActiveJobs(ctx context.Context) ([]*model.Job, error) {
	rows, err := d.db.QueryContext(ctx, `
	SELECT `+jobColumns+`
	FROM jobs
	WHERE status IN ('pending', 'running')
	ORDER BY submitted_at ASC, rowid ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list active jobs: %w", model.ErrPersistence, err)
	}
	defer rows.Close()

	var jobs []*model.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to scan job: %w", model.ErrPersistence, err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrPersistence, err)
	}
	return jobs, nil
}

// ListJobsForTarget returns the jobs of one target, newest first.
func (d *DB) ListJobsForTarget(ctx context.Context, target string, limit int) ([]*model.Job, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := d.db.QueryContext(ctx, `
	SELECT `+jobColumns+`
	FROM jobs
	WHERE target = ?
	ORDER BY submitted_at DESC, rowid DESC
	LIMIT ?
	`, target, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list jobs: %w", model.ErrPersistence, err)
	}
	defer rows.Close()

	var jobs []*model.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to scan job: %w", model.ErrPersistence, err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrPersistence, err)
	}
	return jobs, nil
}

// ListTargets returns every target that was ever submitted, sorted.
func (d *DB) ListTargets(ctx context.Context) ([]string, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT DISTINCT target FROM jobs ORDER BY target`)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list targets: %w", model.ErrPersistence, err)
	}
	defer rows.Close()

	var targets []string
	for rows.Next() {
		var target string
		if err := rows.Scan(&target); err != nil {
			return nil, fmt.Errorf("%w: failed to scan target: %w", model.ErrPersistence, err)
		}
		targets = append(targets, target)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrPersistence, err)
	}
	return targets, nil
}

// CountJobs returns the number of jobs per status.
func (d *DB) CountJobs(ctx context.Context) (map[model.JobStatus]int, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to count jobs: %w", model.ErrPersistence, err)
	}
	defer rows.Close()

	counts := make(map[model.JobStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("%w: failed to scan count: %w", model.ErrPersistence, err)
		}
		counts[model.JobStatus(status)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrPersistence, err)
	}
	return counts, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*model.Job, error) {
	var (
		job         model.Job
		opts        string
		status      string
		submittedAt string
		startedAt   sql.NullString
		finishedAt  sql.NullString
	)
	if err := row.Scan(
		&job.ID,
		&job.Target,
		&opts,
		&status,
		&job.Error,
		&submittedAt,
		&startedAt,
		&finishedAt,
	); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(opts), &job.Options); err != nil {
		return nil, fmt.Errorf("failed to parse options of job %s: %w", job.ID, err)
	}
	job.Status = model.JobStatus(status)
	job.SubmittedAt = parseTimestamp(submittedAt)
	job.StartedAt = parseNullTimestamp(startedAt)
	job.FinishedAt = parseNullTimestamp(finishedAt)
	return &job, nil
}
