// Package repository provides a bun-backed RepositoryManager so the
// demo can swap its in-memory maps for a real database without
// touching callers.
package repository

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"

	"github.com/tmhaka/handoff"
)

type mngr struct {
	db           *bun.DB
	users        *Users
	activityLogs *ActivityLogs
}

var _ handoff.RepositoryManager = (*mngr)(nil)

// NewManager creates a RepositoryManager over the given bun DB.
func NewManager(db *bun.DB) handoff.RepositoryManager {
	return &mngr{
		db:           db,
		users:        NewUsersRepository(db),
		activityLogs: NewActivityLogsRepository(db),
	}
}

func (m *mngr) Users() handoff.Users {
	return m.users
}

func (m *mngr) ActivityLogs() handoff.ActivityLogs {
	return m.activityLogs
}

func (m *mngr) Validate() error {
	if m.users == nil {
		return goerrors.New("repository users should be initialized", goerrors.CategoryInternal)
	}
	if m.activityLogs == nil {
		return goerrors.New("repository activityLogs should be initialized", goerrors.CategoryInternal)
	}
	return nil
}

// ResetSchema creates the users and activity_logs tables. Meant for
// the demo server's startup against SQLite, not for migrations.
func ResetSchema(ctx context.Context, db *bun.DB) error {
	models := []any{
		(*handoff.User)(nil),
		(*handoff.ActivityLog)(nil),
	}

	for _, model := range models {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create table")
		}
	}

	return nil
}
