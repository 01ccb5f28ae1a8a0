package infra

import (
	"context"
	"errors"
	"testing"
	"time"

	"slot-gateway/async/slot/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

func accepted(listener string, src domain.Key) domain.StatsEvent {
	return domain.StatsEvent{Hub: "h1", Listener: listener, Source: src, Accepted: true, At: time.Now()}
}

func rejected(listener string, src domain.Key, reason domain.Reason) domain.StatsEvent {
	return domain.StatsEvent{Hub: "h1", Listener: listener, Source: src, Reason: reason, Wait: 50 * time.Millisecond, At: time.Now()}
}

func TestMemoryStatsStore_CountsByListenerAndReason(t *testing.T) {
	s := NewMemoryStatsStore()
	ctx := context.Background()

	require.NoError(t, s.Record(ctx, accepted("ints", "a")))
	require.NoError(t, s.Record(ctx, accepted("ints", "b")))
	require.NoError(t, s.Record(ctx, rejected("ints", "a", domain.ReasonTimeout)))
	require.NoError(t, s.Record(ctx, rejected("strs", "c", domain.ReasonPaced)))

	assert.Equal(t, Counters{Accepted: 2, Rejected: 2}, s.Total())
	assert.Equal(t, Counters{Accepted: 2, Rejected: 1}, s.ByListener()["ints"])
	assert.Equal(t, Counters{Rejected: 1}, s.ByListener()["strs"])
	assert.Equal(t, map[domain.Reason]int64{domain.ReasonTimeout: 1, domain.ReasonPaced: 1}, s.Rejections())
	assert.Empty(t, s.BySource(), "sources are only tracked on demand")
}

func TestMemoryStatsStore_TrackSources(t *testing.T) {
	s := NewMemoryStatsStore(WithTrackSources(true))
	ctx := context.Background()

	require.NoError(t, s.Record(ctx, accepted("ints", "a")))
	require.NoError(t, s.Record(ctx, rejected("ints", "a", domain.ReasonTimeout)))

	assert.Equal(t, Counters{Accepted: 1, Rejected: 1}, s.BySource()["a"])
}

func TestRedisStatsStore_WritesHashes(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	s := NewRedisStatsStore(rdb,
		WithStatsPrefix("test:stats:"),
		WithStatsTTL(time.Hour),
		WithStatsTrackSources(true),
	)
	ctx := context.Background()

	require.NoError(t, s.Record(ctx, accepted("ints", "sensor-a")))
	require.NoError(t, s.Record(ctx, rejected("ints", "sensor-a", domain.ReasonTimeout)))
	require.NoError(t, s.Record(ctx, rejected("ints", "sensor-b", domain.ReasonTimeout)))

	base := s.HubKey("h1")
	assert.Equal(t, "test:stats:h1", base)
	assert.Equal(t, "1", mr.HGet(base+":total", "accepted"))
	assert.Equal(t, "2", mr.HGet(base+":total", "rejected"))
	assert.Equal(t, "2", mr.HGet(base+":listener", "ints:rejected"))
	assert.Equal(t, "2", mr.HGet(base+":reason", "timeout"))
	assert.Equal(t, "1", mr.HGet(base+":source:sensor-a", "accepted"))
	assert.Greater(t, mr.TTL(base+":source:sensor-a"), time.Duration(0))
	assert.Equal(t, time.Duration(0), mr.TTL(base+":total"), "total must not expire")
}

func TestRedisStatsStore_NoBucketSkipsMinuteKeys(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	s := NewRedisStatsStore(rdb, WithStatsBucket("none"))
	require.NoError(t, s.Record(context.Background(), accepted("ints", "")))

	keys := mr.Keys()
	for _, k := range keys {
		assert.NotContains(t, k, ":minute:")
	}
	assert.Contains(t, keys, "slot:stats:h1:total")
}

func TestRedisStatsStore_NilIsNoop(t *testing.T) {
	var s *RedisStatsStore
	assert.NoError(t, s.Record(context.Background(), accepted("ints", "a")))
}

func TestPromStatsStore_CountsOutcomes(t *testing.T) {
	reg := prometheus.NewPedanticRegistry()
	s, err := NewPromStatsStore(reg, "test")
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.Record(ctx, accepted("ints", "a")))
	require.NoError(t, s.Record(ctx, rejected("ints", "a", domain.ReasonTimeout)))
	require.NoError(t, s.Record(ctx, rejected("ints", "b", domain.ReasonTimeout)))

	assert.Equal(t, 1.0, testutil.ToFloat64(s.deliveries.WithLabelValues("h1", "ints", "accepted", "")))
	assert.Equal(t, 2.0, testutil.ToFloat64(s.deliveries.WithLabelValues("h1", "ints", "rejected", "timeout")))
	assert.Equal(t, 2, testutil.CollectAndCount(s.gateWait))

	_, err = NewPromStatsStore(reg, "test")
	assert.Error(t, err, "registering twice in the same registry must fail")
}

type failingStats struct{ err error }

func (f failingStats) Record(context.Context, domain.StatsEvent) error { return f.err }

func TestMultiStatsStore_FansOutAndCombinesErrors(t *testing.T) {
	mem := NewMemoryStatsStore()
	errA := errors.New("a down")
	errB := errors.New("b down")

	m := MultiStatsStore{failingStats{errA}, nil, mem, failingStats{errB}}
	err := m.Record(context.Background(), accepted("ints", "a"))

	require.Error(t, err)
	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errB)
	assert.Len(t, multierr.Errors(err), 2)
	assert.Equal(t, Counters{Accepted: 1}, mem.Total(), "healthy stores still record")
}
