package application

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/pulse-correction-bot/internal/domain/entity"
	"github.com/oksasatya/pulse-correction-bot/internal/infrastructure/metrics"
	"github.com/oksasatya/pulse-correction-bot/pkg/helpers"
)

// Timer is a pending callback that can be cancelled.
type Timer interface {
	Stop() bool
}

// Scheduler runs f once after d.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
	Now() time.Time
}

type wallScheduler struct{}

func (wallScheduler) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }
func (wallScheduler) Now() time.Time                            { return time.Now() }

// WallClock is the production scheduler.
var WallClock Scheduler = wallScheduler{}

// AlbumPolicy selects how later photos affect the pending timer.
type AlbumPolicy string

const (
	// PolicyReset re-arms the quiet period on every photo, bounded by MaxWait.
	PolicyReset AlbumPolicy = "reset"
	// PolicyFixed flushes one quiet period after the first photo.
	PolicyFixed AlbumPolicy = "fixed"
)

type AlbumConfig struct {
	QuietPeriod time.Duration
	MaxWait     time.Duration
	Policy      AlbumPolicy
}

// FlushFunc receives every batch exactly once.
type FlushFunc func(ctx context.Context, batch entity.AlbumBatch)

type pendingAlbum struct {
	ctx     context.Context
	events  []entity.Event
	timer   Timer
	gen     uint64
	armedAt time.Time
}

// AlbumAggregator collapses photos that share a correlation key into one batch.
// All state lives behind mu; a timer only pops its batch when its generation still matches.
type AlbumAggregator struct {
	mu      sync.Mutex
	cfg     AlbumConfig
	sched   Scheduler
	flush   FlushFunc
	logger  *logrus.Logger
	pending map[string]*pendingAlbum
	gen     uint64
	closed  bool
}

func NewAlbumAggregator(cfg AlbumConfig, sched Scheduler, flush FlushFunc, logger *logrus.Logger) *AlbumAggregator {
	if sched == nil {
		sched = WallClock
	}
	if cfg.Policy == "" {
		cfg.Policy = PolicyReset
	}
	return &AlbumAggregator{
		cfg:     cfg,
		sched:   sched,
		flush:   flush,
		logger:  logger,
		pending: map[string]*pendingAlbum{},
	}
}

// albumKey scopes the transport correlation id to its chat.
func albumKey(ev *entity.Event) string {
	return strconv.FormatInt(ev.ChatID, 10) + ":" + ev.MediaGroupID
}

// OnEvent buffers a photo. A photo without a correlation key is flushed synchronously as a batch of one.
func (a *AlbumAggregator) OnEvent(ctx context.Context, ev entity.Event) {
	if ev.MediaGroupID == "" {
		a.emit(ctx, entity.AlbumBatch{Events: []entity.Event{ev}})
		return
	}
	key := albumKey(&ev)

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}

	b, ok := a.pending[key]
	if !ok {
		b = &pendingAlbum{
			// the flush outlives the update that armed it
			ctx:     context.WithoutCancel(ctx),
			armedAt: a.sched.Now(),
		}
		a.pending[key] = b
		b.events = append(b.events, ev)
		a.arm(key, b, a.cfg.QuietPeriod)
		return
	}
	b.events = append(b.events, ev)

	if a.cfg.Policy != PolicyReset {
		return
	}
	delay := a.cfg.QuietPeriod
	if a.cfg.MaxWait > 0 {
		left := a.cfg.MaxWait - a.sched.Now().Sub(b.armedAt)
		if left <= 0 {
			// cap reached; let the running timer fire
			return
		}
		if left < delay {
			delay = left
		}
	}
	b.timer.Stop()
	a.arm(key, b, delay)
}

// arm must be called with mu held.
func (a *AlbumAggregator) arm(key string, b *pendingAlbum, d time.Duration) {
	a.gen++
	gen := a.gen
	b.gen = gen
	b.timer = a.sched.AfterFunc(d, func() { a.fire(key, gen) })
}

func (a *AlbumAggregator) fire(key string, gen uint64) {
	a.mu.Lock()
	b, ok := a.pending[key]
	if !ok || b.gen != gen || a.closed {
		a.mu.Unlock()
		return
	}
	delete(a.pending, key)
	a.mu.Unlock()

	a.emit(b.ctx, entity.AlbumBatch{Key: key, Events: b.events})
}

// emit runs on the timer goroutine for albums, outside the event middleware, so it
// recovers on its own.
func (a *AlbumAggregator) emit(ctx context.Context, batch entity.AlbumBatch) {
	defer func() {
		if r := recover(); r != nil {
			helpers.LogError(a.logger, "album flush panicked", fmt.Errorf("panic: %v", r),
				logrus.Fields{"key": batch.Key, "photos": len(batch.Events)})
		}
	}()
	metrics.AlbumsFlushed.Inc()
	metrics.AlbumSize.Observe(float64(len(batch.Events)))
	a.flush(ctx, batch)
}

// Pending returns the number of batches waiting for their timer.
func (a *AlbumAggregator) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.pending)
}

// Close stops every timer and drops the unflushed batches.
func (a *AlbumAggregator) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	a.closed = true
	for key, b := range a.pending {
		b.timer.Stop()
		metrics.AlbumsDropped.Inc()
		helpers.LogInfo(a.logger, "album dropped at shutdown", logrus.Fields{"key": key, "photos": len(b.events)})
	}
	a.pending = map[string]*pendingAlbum{}
}
