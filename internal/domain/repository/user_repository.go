package repository

import (
	"context"
	"errors"

	"github.com/oksasatya/pulse-correction-bot/internal/domain/entity"
)

// ErrNotFound is returned by Get when no record exists for the id.
var ErrNotFound = errors.New("user not found")

// UserRepository is the durable user directory. Every call is durable before it returns
// and re-reads current truth; implementations must not cache.
type UserRepository interface {
	Get(ctx context.Context, id int64) (*entity.User, error)
	// Upsert creates the record if missing and merges the non-nil patch fields into it.
	Upsert(ctx context.Context, id int64, patch entity.UserPatch) error
	SetStatus(ctx context.Context, id int64, status entity.Status) error
	// CompareAndSetStatus moves the record from one status to another atomically.
	// It returns false without writing when the current status is not from.
	CompareAndSetStatus(ctx context.Context, id int64, from, to entity.Status) (bool, error)
}
