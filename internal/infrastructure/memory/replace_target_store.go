package memory

import (
	"context"
	"sync"

	"github.com/oksasatya/pulse-correction-bot/internal/domain/entity"
	"github.com/oksasatya/pulse-correction-bot/internal/domain/repository"
)

// ReplaceTargetStore is the process-local replace target store. Targets are lost on restart.
type ReplaceTargetStore struct {
	mu      sync.Mutex
	targets map[entity.ConversationKey]int64
}

func NewReplaceTargetStore() *ReplaceTargetStore {
	return &ReplaceTargetStore{targets: map[entity.ConversationKey]int64{}}
}

func (s *ReplaceTargetStore) Set(_ context.Context, key entity.ConversationKey, orderID int64) error {
	s.mu.Lock()
	s.targets[key] = orderID
	s.mu.Unlock()
	return nil
}

func (s *ReplaceTargetStore) Take(_ context.Context, key entity.ConversationKey) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.targets[key]
	if ok {
		delete(s.targets, key)
	}
	return id, ok, nil
}

var _ repository.ReplaceTargetRepository = (*ReplaceTargetStore)(nil)
