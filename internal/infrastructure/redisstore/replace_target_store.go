package redisstore

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/oksasatya/pulse-correction-bot/internal/domain/entity"
	"github.com/oksasatya/pulse-correction-bot/internal/domain/repository"
	"github.com/oksasatya/pulse-correction-bot/pkg/helpers"
)

type replaceTarget struct {
	OrderID int64 `json:"order_id"`
}

// ReplaceTargetStore keeps pending replace targets with a TTL so a forgotten one expires.
type ReplaceTargetStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewReplaceTargetStore(rdb *redis.Client, ttl time.Duration) *ReplaceTargetStore {
	return &ReplaceTargetStore{rdb: rdb, ttl: ttl}
}

func replaceKey(k entity.ConversationKey) string {
	return fmt.Sprintf("tg:replace:%d:%d", k.ChatID, k.UserID)
}

func (s *ReplaceTargetStore) Set(ctx context.Context, key entity.ConversationKey, orderID int64) error {
	return helpers.RedisSetJSON(ctx, s.rdb, replaceKey(key), replaceTarget{OrderID: orderID}, s.ttl)
}

func (s *ReplaceTargetStore) Take(ctx context.Context, key entity.ConversationKey) (int64, bool, error) {
	var t replaceTarget
	ok, err := helpers.RedisTakeJSON(ctx, s.rdb, replaceKey(key), &t)
	if err != nil || !ok {
		return 0, false, err
	}
	return t.OrderID, true, nil
}

var _ repository.ReplaceTargetRepository = (*ReplaceTargetStore)(nil)
