package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/oksasatya/pulse-correction-bot/internal/domain/entity"
	"github.com/oksasatya/pulse-correction-bot/internal/domain/repository"
)

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Get(ctx context.Context, id int64) (*entity.User, error) {
	var (
		u        = &entity.User{ID: id}
		username sql.NullString
		status   string
	)
	row := r.db.QueryRowContext(ctx, `
		SELECT username, full_name, status
		FROM bot_users
		WHERE id = $1
	`, id)
	if err := row.Scan(&username, &u.FullName, &status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	u.Username = username.String
	s, err := entity.ParseStatus(status)
	if err != nil {
		return nil, err
	}
	u.Status = s
	return u, nil
}

// Upsert inserts the row or merges the non-nil patch fields into it.
// A new row without an explicit status starts as pending.
func (r *UserRepository) Upsert(ctx context.Context, id int64, patch entity.UserPatch) error {
	var username, fullName, status sql.NullString
	if patch.Username != nil {
		// an empty handle is stored as NULL but still overwrites
		username = sql.NullString{String: *patch.Username, Valid: true}
	}
	if patch.FullName != nil {
		fullName = sql.NullString{String: *patch.FullName, Valid: true}
	}
	if patch.Status != nil {
		status = sql.NullString{String: patch.Status.String(), Valid: true}
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO bot_users (id, username, full_name, status)
		VALUES ($1, NULLIF($2, ''), COALESCE($3, ''), COALESCE($4, 'pending'))
		ON CONFLICT (id) DO UPDATE SET
			username   = CASE WHEN $2::text IS NULL THEN bot_users.username ELSE NULLIF($2, '') END,
			full_name  = COALESCE($3, bot_users.full_name),
			status     = COALESCE($4, bot_users.status),
			updated_at = NOW()
	`, id, username, fullName, status)
	return err
}

func (r *UserRepository) SetStatus(ctx context.Context, id int64, status entity.Status) error {
	return r.Upsert(ctx, id, entity.UserPatch{Status: &status})
}

func (r *UserRepository) CompareAndSetStatus(ctx context.Context, id int64, from, to entity.Status) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE bot_users
		SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
	`, id, from.String(), to.String())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

var _ repository.UserRepository = (*UserRepository)(nil)
