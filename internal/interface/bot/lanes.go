package bot

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/pulse-correction-bot/internal/domain/entity"
	"github.com/oksasatya/pulse-correction-bot/pkg/helpers"
)

// Lanes runs events on per-user serial lanes. Events of one user are handled in arrival
// order; different users run concurrently. A lane goroutine exits once its queue drains.
type Lanes struct {
	mu     sync.Mutex
	ctx    context.Context
	handle HandlerFunc
	logger *logrus.Logger
	lanes  map[int64]*lane
	wg     sync.WaitGroup
	closed bool
}

type lane struct {
	queue []entity.Event
}

// NewLanes binds the lanes to ctx; handlers receive a context derived from it.
func NewLanes(ctx context.Context, handle HandlerFunc, logger *logrus.Logger) *Lanes {
	return &Lanes{ctx: ctx, handle: handle, logger: logger, lanes: map[int64]*lane{}}
}

// Submit queues ev on its actor's lane. It never blocks on handler work and reports false
// once Close has been called.
func (l *Lanes) Submit(ev entity.Event) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return false
	}
	ln, ok := l.lanes[ev.Actor.ID]
	if !ok {
		ln = &lane{}
		l.lanes[ev.Actor.ID] = ln
		l.wg.Add(1)
		go l.run(ev.Actor.ID, ln)
	}
	ln.queue = append(ln.queue, ev)
	return true
}

func (l *Lanes) run(id int64, ln *lane) {
	defer l.wg.Done()
	for {
		l.mu.Lock()
		if len(ln.queue) == 0 {
			delete(l.lanes, id)
			l.mu.Unlock()
			return
		}
		ev := ln.queue[0]
		ln.queue[0] = entity.Event{}
		ln.queue = ln.queue[1:]
		l.mu.Unlock()

		l.dispatch(&ev)
	}
}

func (l *Lanes) dispatch(ev *entity.Event) {
	if err := l.handle(l.ctx, ev); err != nil {
		helpers.LogError(l.logger, "event handling failed", err, logrus.Fields{
			"user_id":   ev.Actor.ID,
			"update_id": ev.UpdateID,
		})
	}
}

// Active returns the number of lanes with queued or running work.
func (l *Lanes) Active() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.lanes)
}

// Close stops accepting events and waits for queued ones to finish, or for ctx to end.
func (l *Lanes) Close(ctx context.Context) error {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()

	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
