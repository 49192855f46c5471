package reminder

import (
	"context"
	"time"
)

// Repository is the storage contract the dispatch engine runs against.
// The lock operations are the single point of cross-process
// synchronization: TryLock must be an atomic conditional update, never a
// read-then-write pair.
type Repository interface {
	// GetTenant returns the tenant's reminder enablement flag and
	// payment alias. Returns apperrors.ErrNotFound for unknown tenants.
	GetTenant(ctx context.Context, tenantID int64) (*Tenant, error)

	// ReclaimOrphanLocks clears reminder locks left behind by runs that
	// crashed before releasing them: lock set but last notification
	// stamped before today (or never). Returns the number of rows cleared.
	ReclaimOrphanLocks(ctx context.Context, tenantID int64, today time.Time) (int64, error)

	// FindDueCredits returns the tenant's non-voided credits with a
	// positive outstanding balance due on or before today+5 days, not
	// locked and not yet notified today, ordered by due date ascending.
	FindDueCredits(ctx context.Context, tenantID int64, today time.Time) ([]Credit, error)

	// TryLock atomically marks a credit as being notified. It reports
	// true when this caller won the lock, false when the credit was
	// already locked by a concurrent run.
	TryLock(ctx context.Context, creditID int64) (bool, error)

	// ReleaseNotified stamps the last-notified timestamp and clears the
	// lock for the given credits. Called only after a confirmed send.
	ReleaseNotified(ctx context.Context, creditIDs []int64, notifiedAt time.Time) error

	// SaveOutboundMessage records a message the engine sent. Best effort:
	// callers treat failures as non-fatal.
	SaveOutboundMessage(ctx context.Context, msg *OutboundMessage) error
}
