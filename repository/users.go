package repository

import (
	"context"
	"database/sql"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"

	"github.com/tmhaka/handoff"
)

// Users implements handoff.Users using Bun.
type Users struct {
	db *bun.DB
}

var _ handoff.Users = (*Users)(nil)

// NewUsersRepository creates a new repository.
func NewUsersRepository(db *bun.DB) *Users {
	return &Users{db: db}
}

// GetByID implements handoff.Users.
func (r *Users) GetByID(ctx context.Context, id int64) (*handoff.User, error) {
	record := &handoff.User{}
	err := r.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, wrapNotFound(err, map[string]any{"id": id})
	}
	return record, nil
}

// GetByUsername implements handoff.Users.
func (r *Users) GetByUsername(ctx context.Context, username string) (*handoff.User, error) {
	record := &handoff.User{}
	err := r.db.NewSelect().
		Model(record).
		Where("?TableAlias.username = ?", username).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, wrapNotFound(err, map[string]any{"username": username})
	}
	return record, nil
}

// GetByProviderEmail implements handoff.Users.
func (r *Users) GetByProviderEmail(ctx context.Context, provider, email string) (*handoff.User, error) {
	record := &handoff.User{}
	err := r.db.NewSelect().
		Model(record).
		Where("?TableAlias.provider = ? AND ?TableAlias.email = ?", provider, email).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, wrapNotFound(err, map[string]any{"provider": provider, "email": email})
	}
	return record, nil
}

// Create implements handoff.Users. The database assigns the next
// sequential id.
func (r *Users) Create(ctx context.Context, record *handoff.User) (*handoff.User, error) {
	if record == nil {
		return nil, goerrors.New("user must not be nil", goerrors.CategoryBadInput)
	}

	now := time.Now()
	if record.CreatedAt == nil {
		record.CreatedAt = &now
	}

	if _, err := r.db.NewInsert().Model(record).Exec(ctx); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryConflict, "could not create user")
	}

	return record, nil
}

// UpdateSession implements handoff.Users: refreshes the token expiry.
func (r *Users) UpdateSession(ctx context.Context, id int64) (*handoff.User, error) {
	expiry := time.Now().Add(time.Hour)

	res, err := r.db.NewUpdate().
		Model((*handoff.User)(nil)).
		Set("token_expiry = ?", expiry).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to refresh session")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, handoff.ErrUserNotFound
	}

	return r.GetByID(ctx, id)
}

// UpdateToken implements handoff.Users: replaces the access token and
// refreshes the expiry.
func (r *Users) UpdateToken(ctx context.Context, id int64, token string) (*handoff.User, error) {
	expiry := time.Now().Add(time.Hour)

	res, err := r.db.NewUpdate().
		Model((*handoff.User)(nil)).
		Set("access_token = ?", token).
		Set("token_expiry = ?", expiry).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update token")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, handoff.ErrUserNotFound
	}

	return r.GetByID(ctx, id)
}

func wrapNotFound(err error, meta map[string]any) error {
	if goerrors.Is(err, sql.ErrNoRows) {
		return handoff.ErrUserNotFound.Clone().WithMetadata(meta)
	}
	return goerrors.Wrap(err, goerrors.CategoryInternal, "user lookup failed")
}
