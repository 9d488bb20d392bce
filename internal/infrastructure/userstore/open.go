// Package userstore picks the user directory backend named by USER_STORE.
package userstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/pulse-correction-bot/config"
	repo "github.com/oksasatya/pulse-correction-bot/internal/domain/repository"
	"github.com/oksasatya/pulse-correction-bot/internal/infrastructure/jsonfile"
	"github.com/oksasatya/pulse-correction-bot/internal/infrastructure/postgres"
	"github.com/oksasatya/pulse-correction-bot/internal/infrastructure/redisstore"
)

var ErrRedisRequired = errors.New("USER_STORE=redis requires REDIS_ADDR")

// Opened is a user directory together with the connections it owns.
type Opened struct {
	Users repo.UserRepository
	Pool  *pgxpool.Pool

	closers []func()
}

// Close releases the connections opened for the directory, not the shared redis client.
func (o *Opened) Close() {
	for i := len(o.closers) - 1; i >= 0; i-- {
		o.closers[i]()
	}
	o.closers = nil
}

// Open builds the configured directory. Postgres gets its pool opened and migrations applied.
// rdb may be nil unless the redis store is selected.
func Open(ctx context.Context, cfg *config.Config, rdb *redis.Client, logger *logrus.Logger) (*Opened, error) {
	switch cfg.UserStore {
	case "json":
		return &Opened{Users: jsonfile.NewUserRepository(cfg.UsersFile)}, nil

	case "redis":
		if rdb == nil {
			return nil, ErrRedisRequired
		}
		c, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := rdb.Ping(c).Err(); err != nil {
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		return &Opened{Users: redisstore.NewUserRepository(rdb)}, nil

	case "postgres":
		pool, err := postgres.NewPool(ctx, cfg.PostgresDSN(), cfg.DBMaxConns, cfg.DBMinConns, cfg.DBMaxConnLife)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		db := postgres.OpenDB(pool)
		o := &Opened{Users: postgres.NewUserRepository(db), Pool: pool}
		o.closers = append(o.closers, pool.Close, func() { _ = db.Close() })
		if err := postgres.RunMigrations(db, cfg.MigrationsDir, logger); err != nil {
			o.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		return o, nil

	default:
		return nil, fmt.Errorf("unknown user store %q", cfg.UserStore)
	}
}
