package infra

import (
	"context"
	"fmt"
	"strings"
	"time"

	"slot-gateway/async/slot/domain"

	"github.com/redis/go-redis/v9"
)

// RedisStatsStore grava contadores de admissão em hashes do Redis.
//
// Layout (prefixo padrão "slot:stats"):
//
//	<prefix>:<hub>:total               accepted / rejected (cumulativo)
//	<prefix>:<hub>:minute:<yyyymmddHHMM> accepted / rejected (expira)
//	<prefix>:<hub>:listener            <listener>:accepted, <listener>:rejected
//	<prefix>:<hub>:reason              <reason>
//	<prefix>:<hub>:source:<source>     accepted / rejected (expira, opcional)
type RedisStatsStore struct {
	rdb redis.Cmdable

	prefix string
	// ttl aplica apenas em chaves de série temporal / por origem.
	// total é cumulativo e não expira.
	ttl time.Duration

	bucket string // "minute" (padrão) ou "none"

	trackSources bool
}

type RedisStatsOption func(*RedisStatsStore)

func WithStatsPrefix(prefix string) RedisStatsOption {
	return func(s *RedisStatsStore) {
		s.prefix = strings.Trim(prefix, ":")
	}
}

func WithStatsTTL(d time.Duration) RedisStatsOption {
	return func(s *RedisStatsStore) { s.ttl = d }
}

func WithStatsBucket(bucket string) RedisStatsOption {
	return func(s *RedisStatsStore) { s.bucket = strings.ToLower(strings.TrimSpace(bucket)) }
}

func WithStatsTrackSources(track bool) RedisStatsOption {
	return func(s *RedisStatsStore) { s.trackSources = track }
}

func NewRedisStatsStore(rdb redis.Cmdable, opts ...RedisStatsOption) *RedisStatsStore {
	s := &RedisStatsStore{
		rdb:    rdb,
		prefix: "slot:stats",
		ttl:    24 * time.Hour,
		bucket: "minute",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// HubKey retorna o prefixo das chaves de um hub.
func (s *RedisStatsStore) HubKey(hub string) string {
	hub = strings.TrimSpace(hub)
	if hub == "" {
		hub = "default"
	}
	return s.prefix + ":" + hub
}

func (s *RedisStatsStore) Record(ctx context.Context, ev domain.StatsEvent) error {
	if s == nil || s.rdb == nil {
		return nil
	}

	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}

	field := "rejected"
	if ev.Accepted {
		field = "accepted"
	}

	base := s.HubKey(ev.Hub)

	pipe := s.rdb.Pipeline()
	pipe.HIncrBy(ctx, base+":total", field, 1)

	if s.bucket == "minute" {
		bucketKey := fmt.Sprintf("%s:minute:%s", base, at.UTC().Format("200601021504"))
		pipe.HIncrBy(ctx, bucketKey, field, 1)
		if s.ttl > 0 {
			pipe.Expire(ctx, bucketKey, s.ttl)
		}
	}

	if l := strings.TrimSpace(ev.Listener); l != "" {
		pipe.HIncrBy(ctx, base+":listener", l+":"+field, 1)
	}

	if !ev.Accepted && ev.Reason != domain.ReasonNone {
		pipe.HIncrBy(ctx, base+":reason", string(ev.Reason), 1)
	}

	if s.trackSources {
		src := strings.TrimSpace(string(ev.Source))
		if src != "" {
			srcKey := base + ":source:" + src
			pipe.HIncrBy(ctx, srcKey, field, 1)
			if s.ttl > 0 {
				pipe.Expire(ctx, srcKey, s.ttl)
			}
		}
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis stats: %w", err)
	}
	return nil
}
