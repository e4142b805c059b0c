package tokenstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/guardkit/pkg/opaque"
)

// Redis stores each token as a JSON record whose key TTL follows ExpiresAt.
// A set per owner indexes the series for listing.
type Redis struct {
	client    redis.UniversalClient
	mapper    Mapper
	tokenType string
	prefix    string
	now       func() time.Time
}

// NewRedis creates a Redis-backed store for one bucket.
func NewRedis(client redis.UniversalClient, mapper Mapper, tokenType string, opts ...Option) *Redis {
	o := applyOptions(opts)
	return &Redis{
		client:    client,
		mapper:    mapper,
		tokenType: tokenType,
		prefix:    o.prefix,
		now:       o.now,
	}
}

func (s *Redis) key(series string) string {
	return s.prefix + ":" + s.tokenType + ":" + series
}

func (s *Redis) indexKey(tokenableID string) string {
	return s.prefix + ":" + s.tokenType + ":tokenable:" + tokenableID
}

// ttl returns 0 (no expiry) for non-expiring records.
func (s *Redis) ttl(rec Record) time.Duration {
	if rec.ExpiresAt == nil {
		return 0
	}
	d := rec.ExpiresAt.Sub(s.now())
	if d <= 0 {
		return time.Millisecond
	}
	return d
}

// CreateToken stores the record unless the series is taken.
func (s *Redis) CreateToken(ctx context.Context, token *opaque.Token) error {
	if token == nil {
		return ErrNilToken
	}
	token.Type = s.tokenType

	rec, err := s.mapper.ToRecord(token)
	if err != nil {
		return err
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}

	ok, err := s.client.SetNX(ctx, s.key(rec.Series), data, s.ttl(rec)).Result()
	if err != nil {
		return fmt.Errorf("redis error: %w", err)
	}
	if !ok {
		return ErrDuplicateSeries
	}

	// An unindexed record would be invisible to the owner-wide operations.
	if err := s.client.SAdd(ctx, s.indexKey(rec.TokenableID), rec.Series).Err(); err != nil {
		if delErr := s.client.Del(ctx, s.key(rec.Series)).Err(); delErr != nil {
			err = errors.Join(err, delErr)
		}
		return fmt.Errorf("redis error: %w", err)
	}
	return nil
}

func (s *Redis) load(ctx context.Context, series string) (Record, error) {
	data, err := s.client.Get(ctx, s.key(series)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Record{}, ErrTokenNotFound
		}
		return Record{}, fmt.Errorf("redis error: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("decode record: %w", err)
	}
	if rec.Type != s.tokenType {
		return Record{}, ErrTokenNotFound
	}
	return rec, nil
}

func (s *Redis) save(ctx context.Context, rec Record, ttl time.Duration) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	ok, err := s.client.SetXX(ctx, s.key(rec.Series), data, ttl).Result()
	if err != nil {
		return fmt.Errorf("redis error: %w", err)
	}
	if !ok {
		return ErrTokenNotFound
	}
	return nil
}

// GetTokenBySeries checks expiry after fetch in addition to the key TTL.
func (s *Redis) GetTokenBySeries(ctx context.Context, series string) (*opaque.Token, error) {
	rec, err := s.load(ctx, series)
	if err != nil {
		return nil, err
	}
	if rec.expiredAt(s.now()) {
		return nil, ErrTokenNotFound
	}
	return s.mapper.FromRecord(rec)
}

// DeleteTokenBySeries removes the record and its index entry.
func (s *Redis) DeleteTokenBySeries(ctx context.Context, series string) error {
	rec, err := s.load(ctx, series)
	if err != nil {
		if errors.Is(err, ErrTokenNotFound) {
			return nil
		}
		return err
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.key(series))
		pipe.SRem(ctx, s.indexKey(rec.TokenableID), series)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis error: %w", err)
	}
	return nil
}

// UpdateTokenBySeries rotates hash and expiry and resets the key TTL.
func (s *Redis) UpdateTokenBySeries(ctx context.Context, series, hash string, expiresAt *time.Time) error {
	rec, err := s.load(ctx, series)
	if err != nil {
		return err
	}

	rec.Hash = hash
	rec.ExpiresAt = expiresAt
	rec.UpdatedAt = s.now()

	return s.save(ctx, rec, s.ttl(rec))
}

// ListByTokenable returns non-expired tokens of the owner, newest first.
// Index entries whose record is gone are pruned.
func (s *Redis) ListByTokenable(ctx context.Context, tokenableID string) ([]*opaque.Token, error) {
	members, err := s.client.SMembers(ctx, s.indexKey(tokenableID)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis error: %w", err)
	}
	if len(members) == 0 {
		return nil, nil
	}

	keys := make([]string, len(members))
	for i, series := range members {
		keys[i] = s.key(series)
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis error: %w", err)
	}

	now := s.now()
	recs := make([]Record, 0, len(values))
	var stale []any
	for i, v := range values {
		str, ok := v.(string)
		if !ok {
			stale = append(stale, members[i])
			continue
		}
		var rec Record
		if err := json.Unmarshal([]byte(str), &rec); err != nil {
			return nil, fmt.Errorf("decode record: %w", err)
		}
		if rec.expiredAt(now) {
			continue
		}
		recs = append(recs, rec)
	}

	if len(stale) > 0 {
		_ = s.client.SRem(ctx, s.indexKey(tokenableID), stale...).Err()
	}

	slices.SortFunc(recs, func(a, b Record) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	tokens := make([]*opaque.Token, 0, len(recs))
	for _, rec := range recs {
		t, err := s.mapper.FromRecord(rec)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, t)
	}
	return tokens, nil
}

// DeleteByTokenable removes every token of the owner and the index.
func (s *Redis) DeleteByTokenable(ctx context.Context, tokenableID string) error {
	members, err := s.client.SMembers(ctx, s.indexKey(tokenableID)).Result()
	if err != nil {
		return fmt.Errorf("redis error: %w", err)
	}

	keys := make([]string, 0, len(members)+1)
	for _, series := range members {
		keys = append(keys, s.key(series))
	}
	keys = append(keys, s.indexKey(tokenableID))

	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis error: %w", err)
	}
	return nil
}

// TouchLastUsed keeps the current TTL.
func (s *Redis) TouchLastUsed(ctx context.Context, series string, at time.Time) error {
	rec, err := s.load(ctx, series)
	if err != nil {
		return err
	}
	rec.LastUsedAt = &at
	return s.save(ctx, rec, redis.KeepTTL)
}
