package userstore

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/pulse-correction-bot/config"
	"github.com/oksasatya/pulse-correction-bot/internal/domain/entity"
	"github.com/oksasatya/pulse-correction-bot/internal/infrastructure/jsonfile"
	"github.com/oksasatya/pulse-correction-bot/internal/infrastructure/redisstore"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestOpen_JSON(t *testing.T) {
	cfg := &config.Config{UserStore: "json", UsersFile: filepath.Join(t.TempDir(), "users.json")}
	o, err := Open(context.Background(), cfg, nil, quietLogger())
	require.NoError(t, err)
	defer o.Close()
	assert.IsType(t, &jsonfile.UserRepository{}, o.Users)
	assert.Nil(t, o.Pool)
}

func TestOpen_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cfg := &config.Config{UserStore: "redis"}

	o, err := Open(context.Background(), cfg, rdb, quietLogger())
	require.NoError(t, err)
	defer o.Close()
	assert.IsType(t, &redisstore.UserRepository{}, o.Users)

	require.NoError(t, o.Users.Upsert(context.Background(), 1, entity.PatchFromActor(entity.Actor{ID: 1, FullName: "A"}, entity.StatusPending)))
	u, err := o.Users.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusPending, u.Status)
}

func TestOpen_RedisWithoutClient(t *testing.T) {
	_, err := Open(context.Background(), &config.Config{UserStore: "redis"}, nil, quietLogger())
	assert.ErrorIs(t, err, ErrRedisRequired)
}

func TestOpen_Unknown(t *testing.T) {
	_, err := Open(context.Background(), &config.Config{UserStore: "sqlite"}, nil, quietLogger())
	assert.Error(t, err)
}
