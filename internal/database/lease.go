package database

import (
	"context"
	"fmt"
	"time"

	"github.com/prototypedave/hybridTool/internal/model"
)

// AcquireWorkerLease makes owner the only process allowed to run jobs
// until now+ttl. It succeeds when the lease is free, expired, or already
// held by owner, in which case the expiry is extended.
func (d *DB) AcquireWorkerLease(ctx context.Context, owner string, now time.Time, ttl time.Duration) (bool, error) {
	res, err := d.db.ExecContext(ctx, `
	INSERT INTO worker_lease (id, owner, expires_at) VALUES (1, ?, ?)
	ON CONFLICT(id) DO UPDATE
	SET owner = excluded.owner, expires_at = excluded.expires_at
	WHERE worker_lease.owner = excluded.owner OR worker_lease.expires_at < ?
	`,
		owner,
		formatTimestamp(now.Add(ttl)),
		formatTimestamp(now),
	)
	if err != nil {
		return false, fmt.Errorf("%w: failed to acquire worker lease: %w", model.ErrPersistence, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: %w", model.ErrPersistence, err)
	}
	return n == 1, nil
}

// ReleaseWorkerLease frees the lease if owner holds it.
func (d *DB) ReleaseWorkerLease(ctx context.Context, owner string) error {
	if _, err := d.db.ExecContext(ctx, `DELETE FROM worker_lease WHERE owner = ?`, owner); err != nil {
		return fmt.Errorf("%w: failed to release worker lease: %w", model.ErrPersistence, err)
	}
	return nil
}
