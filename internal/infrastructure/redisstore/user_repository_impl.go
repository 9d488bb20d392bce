package redisstore

import (
	"context"
	"errors"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/oksasatya/pulse-correction-bot/internal/domain/entity"
	"github.com/oksasatya/pulse-correction-bot/internal/domain/repository"
)

const userKeyPrefix = "tg:user:"

// userKey returns the hash holding one user record.
func userKey(id int64) string { return userKeyPrefix + strconv.FormatInt(id, 10) }

// casStatusScript moves the status field only when it still holds the expected value.
var casStatusScript = redis.NewScript(`
local cur = redis.call("HGET", KEYS[1], "status")
if cur == ARGV[1] then
  redis.call("HSET", KEYS[1], "status", ARGV[2])
  return 1
end
return 0
`)

type UserRepository struct {
	rdb *redis.Client
}

func NewUserRepository(rdb *redis.Client) *UserRepository {
	return &UserRepository{rdb: rdb}
}

func (r *UserRepository) Get(ctx context.Context, id int64) (*entity.User, error) {
	data, err := r.rdb.HGetAll(ctx, userKey(id)).Result()
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, repository.ErrNotFound
	}
	status, err := entity.ParseStatus(data["status"])
	if err != nil {
		return nil, err
	}
	return &entity.User{
		ID:       id,
		Username: data["username"],
		FullName: data["full_name"],
		Status:   status,
	}, nil
}

func (r *UserRepository) Upsert(ctx context.Context, id int64, patch entity.UserPatch) error {
	key := userKey(id)
	fields := map[string]any{"id": id}
	if patch.Username != nil {
		fields["username"] = *patch.Username
	}
	if patch.FullName != nil {
		fields["full_name"] = *patch.FullName
	}
	if patch.Status != nil {
		fields["status"] = patch.Status.String()
	}
	_, err := r.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, key, fields)
		// a record created without a status starts pending
		p.HSetNX(ctx, key, "status", entity.StatusPending.String())
		return nil
	})
	return err
}

func (r *UserRepository) SetStatus(ctx context.Context, id int64, status entity.Status) error {
	return r.Upsert(ctx, id, entity.UserPatch{Status: &status})
}

func (r *UserRepository) CompareAndSetStatus(ctx context.Context, id int64, from, to entity.Status) (bool, error) {
	n, err := casStatusScript.Run(ctx, r.rdb, []string{userKey(id)}, from.String(), to.String()).Int()
	if err != nil && !errors.Is(err, redis.Nil) {
		return false, err
	}
	return n == 1, nil
}

var _ repository.UserRepository = (*UserRepository)(nil)
