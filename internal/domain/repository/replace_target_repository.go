package repository

import (
	"context"

	"github.com/oksasatya/pulse-correction-bot/internal/domain/entity"
)

// ReplaceTargetRepository keeps the order id the next batch of a conversation should replace.
type ReplaceTargetRepository interface {
	Set(ctx context.Context, key entity.ConversationKey, orderID int64) error
	// Take returns the pending order id and clears it. ok is false when none is set.
	Take(ctx context.Context, key entity.ConversationKey) (orderID int64, ok bool, err error)
}
