package repository

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"

	"github.com/tmhaka/handoff"
)

// ActivityLogs implements handoff.ActivityLogs using Bun.
type ActivityLogs struct {
	db *bun.DB
}

var _ handoff.ActivityLogs = (*ActivityLogs)(nil)

// NewActivityLogsRepository creates a new repository.
func NewActivityLogsRepository(db *bun.DB) *ActivityLogs {
	return &ActivityLogs{db: db}
}

// Create implements handoff.ActivityLogs. Entries are append-only.
func (r *ActivityLogs) Create(ctx context.Context, entry *handoff.ActivityLog) (*handoff.ActivityLog, error) {
	if entry == nil {
		return nil, goerrors.New("activity entry must not be nil", goerrors.CategoryBadInput)
	}

	now := time.Now()
	if entry.CreatedAt == nil {
		entry.CreatedAt = &now
	}

	if _, err := r.db.NewInsert().Model(entry).Exec(ctx); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "could not create activity entry")
	}

	return entry, nil
}

// ListByUser implements handoff.ActivityLogs, newest first.
func (r *ActivityLogs) ListByUser(ctx context.Context, userID int64) ([]*handoff.ActivityLog, error) {
	var entries []*handoff.ActivityLog
	err := r.db.NewSelect().
		Model(&entries).
		Where("?TableAlias.user_id = ?", userID).
		Order("created_at DESC", "id DESC").
		Scan(ctx)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "activity lookup failed")
	}
	return entries, nil
}
