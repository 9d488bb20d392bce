package application

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/pulse-correction-bot/internal/domain/entity"
)

type batchSink struct {
	mu      sync.Mutex
	batches []entity.AlbumBatch
}

func (s *batchSink) flush(_ context.Context, b entity.AlbumBatch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches = append(s.batches, b)
}

func (s *batchSink) snapshot() []entity.AlbumBatch {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]entity.AlbumBatch(nil), s.batches...)
}

func fileIDs(b entity.AlbumBatch) []string {
	out := make([]string, 0, len(b.Events))
	for _, ev := range b.Events {
		out = append(out, ev.PhotoFileID)
	}
	return out
}

func newTestAggregator(policy AlbumPolicy, quiet, maxWait time.Duration) (*AlbumAggregator, *fakeScheduler, *batchSink) {
	sched := newFakeScheduler()
	sink := &batchSink{}
	agg := NewAlbumAggregator(AlbumConfig{QuietPeriod: quiet, MaxWait: maxWait, Policy: policy}, sched, sink.flush, quietLogger())
	return agg, sched, sink
}

func TestAlbum_StandalonePhotoFlushesImmediately(t *testing.T) {
	agg, sched, sink := newTestAggregator(PolicyReset, 700*time.Millisecond, 5*time.Second)

	agg.OnEvent(context.Background(), photoEvent(10, 42, 1, "f1", "", "broken shelf"))

	batches := sink.snapshot()
	require.Len(t, batches, 1)
	assert.Equal(t, []string{"f1"}, fileIDs(batches[0]))
	assert.Empty(t, batches[0].Key)
	assert.Zero(t, agg.Pending())
	assert.Zero(t, sched.armed())
}

func TestAlbum_NPhotosFlushOnceInArrivalOrder(t *testing.T) {
	agg, sched, sink := newTestAggregator(PolicyReset, 700*time.Millisecond, 5*time.Second)
	ctx := context.Background()

	for i, id := range []string{"a", "b", "c", "d", "e"} {
		agg.OnEvent(ctx, photoEvent(10, 42, i+1, id, "g1", ""))
		sched.Advance(50 * time.Millisecond)
	}
	assert.Empty(t, sink.snapshot())

	sched.Advance(time.Second)
	sched.Advance(time.Second)

	batches := sink.snapshot()
	require.Len(t, batches, 1)
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, fileIDs(batches[0]))
	assert.Equal(t, "10:g1", batches[0].Key)
	assert.Zero(t, agg.Pending())
}

func TestAlbum_ResetPolicyExtendsQuietPeriod(t *testing.T) {
	agg, sched, sink := newTestAggregator(PolicyReset, 700*time.Millisecond, 5*time.Second)
	ctx := context.Background()

	agg.OnEvent(ctx, photoEvent(10, 42, 1, "a", "g1", ""))
	sched.Advance(400 * time.Millisecond)
	agg.OnEvent(ctx, photoEvent(10, 42, 2, "b", "g1", ""))
	sched.Advance(400 * time.Millisecond)
	agg.OnEvent(ctx, photoEvent(10, 42, 3, "c", "g1", ""))

	sched.Advance(699 * time.Millisecond)
	assert.Empty(t, sink.snapshot(), "quiet period restarts on each photo")

	sched.Advance(time.Millisecond)
	require.Len(t, sink.snapshot(), 1)
	assert.Equal(t, []string{"a", "b", "c"}, fileIDs(sink.snapshot()[0]))
}

func TestAlbum_ResetPolicyIsCappedByMaxWait(t *testing.T) {
	agg, sched, sink := newTestAggregator(PolicyReset, 700*time.Millisecond, time.Second)
	ctx := context.Background()

	agg.OnEvent(ctx, photoEvent(10, 42, 1, "a", "g1", ""))
	sched.Advance(600 * time.Millisecond)
	agg.OnEvent(ctx, photoEvent(10, 42, 2, "b", "g1", ""))
	sched.Advance(300 * time.Millisecond)
	agg.OnEvent(ctx, photoEvent(10, 42, 3, "c", "g1", ""))

	sched.Advance(100 * time.Millisecond)
	batches := sink.snapshot()
	require.Len(t, batches, 1, "flushed at max wait although photos kept coming")
	assert.Len(t, batches[0].Events, 3)
}

func TestAlbum_FixedPolicyKeepsFirstTimer(t *testing.T) {
	agg, sched, sink := newTestAggregator(PolicyFixed, 700*time.Millisecond, 0)
	ctx := context.Background()

	agg.OnEvent(ctx, photoEvent(10, 42, 1, "a", "g1", ""))
	sched.Advance(600 * time.Millisecond)
	agg.OnEvent(ctx, photoEvent(10, 42, 2, "b", "g1", ""))
	sched.Advance(100 * time.Millisecond)

	require.Len(t, sink.snapshot(), 1)
	assert.Equal(t, []string{"a", "b"}, fileIDs(sink.snapshot()[0]))
}

func TestAlbum_LatePhotoStartsNewBatch(t *testing.T) {
	agg, sched, sink := newTestAggregator(PolicyReset, 700*time.Millisecond, 5*time.Second)
	ctx := context.Background()

	agg.OnEvent(ctx, photoEvent(10, 42, 1, "a", "g1", ""))
	sched.Advance(time.Second)
	agg.OnEvent(ctx, photoEvent(10, 42, 2, "b", "g1", ""))
	sched.Advance(time.Second)

	batches := sink.snapshot()
	require.Len(t, batches, 2)
	assert.Equal(t, []string{"a"}, fileIDs(batches[0]))
	assert.Equal(t, []string{"b"}, fileIDs(batches[1]))
}

func TestAlbum_KeysAreScopedPerChat(t *testing.T) {
	agg, sched, sink := newTestAggregator(PolicyReset, 700*time.Millisecond, 5*time.Second)
	ctx := context.Background()

	agg.OnEvent(ctx, photoEvent(10, 42, 1, "a", "g1", ""))
	agg.OnEvent(ctx, photoEvent(11, 43, 1, "b", "g1", ""))
	assert.Equal(t, 2, agg.Pending())

	sched.Advance(time.Second)
	assert.Len(t, sink.snapshot(), 2)
}

func TestAlbum_CloseDropsPendingBatches(t *testing.T) {
	agg, sched, sink := newTestAggregator(PolicyReset, 700*time.Millisecond, 5*time.Second)
	ctx := context.Background()

	agg.OnEvent(ctx, photoEvent(10, 42, 1, "a", "g1", ""))
	agg.Close()
	sched.Advance(time.Second)
	agg.OnEvent(ctx, photoEvent(10, 42, 2, "b", "g2", ""))
	sched.Advance(time.Second)

	assert.Empty(t, sink.snapshot())
	assert.Zero(t, agg.Pending())
}

func TestAlbum_FlushContextOutlivesEvent(t *testing.T) {
	sched := newFakeScheduler()
	var got context.Context
	agg := NewAlbumAggregator(AlbumConfig{QuietPeriod: time.Second, Policy: PolicyReset}, sched,
		func(ctx context.Context, _ entity.AlbumBatch) { got = ctx }, quietLogger())

	ctx, cancel := context.WithCancel(context.WithValue(context.Background(), ctxKey{}, "trace-1"))
	agg.OnEvent(ctx, photoEvent(10, 42, 1, "a", "g1", ""))
	cancel()
	sched.Advance(time.Second)

	require.NotNil(t, got)
	assert.NoError(t, got.Err())
	assert.Equal(t, "trace-1", got.Value(ctxKey{}))
}

type ctxKey struct{}

func TestAlbum_WallClockThreePhotosWithinHalfSecond(t *testing.T) {
	sink := &batchSink{}
	agg := NewAlbumAggregator(AlbumConfig{QuietPeriod: 300 * time.Millisecond, MaxWait: 2 * time.Second, Policy: PolicyReset},
		WallClock, sink.flush, quietLogger())
	defer agg.Close()
	ctx := context.Background()

	for i, id := range []string{"a", "b", "c"} {
		agg.OnEvent(ctx, photoEvent(10, 42, i+1, id, "g1", ""))
		time.Sleep(100 * time.Millisecond)
	}

	require.Eventually(t, func() bool { return len(sink.snapshot()) == 1 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(400 * time.Millisecond)
	batches := sink.snapshot()
	require.Len(t, batches, 1)
	assert.Equal(t, []string{"a", "b", "c"}, fileIDs(batches[0]))
}

func TestAlbum_PanickingFlushIsRecoveredAndLogged(t *testing.T) {
	logger, hook := test.NewNullLogger()
	sched := newFakeScheduler()
	calls := 0
	agg := NewAlbumAggregator(AlbumConfig{QuietPeriod: 700 * time.Millisecond, Policy: PolicyReset}, sched,
		func(context.Context, entity.AlbumBatch) {
			calls++
			panic("backend exploded")
		}, logger)

	agg.OnEvent(context.Background(), photoEvent(10, 42, 1, "f1", "g1", ""))
	agg.OnEvent(context.Background(), photoEvent(10, 42, 2, "f2", "g1", ""))
	assert.NotPanics(t, func() { sched.Advance(time.Second) })

	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, agg.Pending())
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
	assert.Equal(t, "album flush panicked", hook.LastEntry().Message)
	assert.Equal(t, 2, hook.LastEntry().Data["photos"])

	// the aggregator keeps working after the panic
	agg.OnEvent(context.Background(), photoEvent(10, 42, 3, "f3", "g2", ""))
	assert.NotPanics(t, func() { sched.Advance(time.Second) })
	assert.Equal(t, 2, calls)
}
