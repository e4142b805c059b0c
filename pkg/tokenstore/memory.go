package tokenstore

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/dmitrymomot/guardkit/pkg/opaque"
)

// Memory keeps records in a map. Expiry is checked after fetch.
type Memory struct {
	mu        *sync.RWMutex
	records   map[string]Record
	mapper    Mapper
	tokenType string
	now       func() time.Time
}

// NewMemory creates an in-memory store for one bucket.
func NewMemory(mapper Mapper, tokenType string, opts ...Option) *Memory {
	o := applyOptions(opts)
	return &Memory{
		mu:        &sync.RWMutex{},
		records:   make(map[string]Record),
		mapper:    mapper,
		tokenType: tokenType,
		now:       o.now,
	}
}

// CreateToken stores the token record.
func (m *Memory) CreateToken(ctx context.Context, token *opaque.Token) error {
	if token == nil {
		return ErrNilToken
	}
	token.Type = m.tokenType

	rec, err := m.mapper.ToRecord(token)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.records[rec.Series]; exists {
		return ErrDuplicateSeries
	}
	m.records[rec.Series] = rec
	return nil
}

// GetTokenBySeries returns the token or ErrTokenNotFound.
func (m *Memory) GetTokenBySeries(ctx context.Context, series string) (*opaque.Token, error) {
	m.mu.RLock()
	rec, exists := m.records[series]
	m.mu.RUnlock()

	if !exists || rec.Type != m.tokenType || rec.expiredAt(m.now()) {
		return nil, ErrTokenNotFound
	}

	return m.mapper.FromRecord(rec)
}

// DeleteTokenBySeries removes the token if present.
func (m *Memory) DeleteTokenBySeries(ctx context.Context, series string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if rec, exists := m.records[series]; exists && rec.Type == m.tokenType {
		delete(m.records, series)
	}
	return nil
}

// UpdateTokenBySeries rotates the hash and expiry.
func (m *Memory) UpdateTokenBySeries(ctx context.Context, series, hash string, expiresAt *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, exists := m.records[series]
	if !exists || rec.Type != m.tokenType {
		return ErrTokenNotFound
	}

	rec.Hash = hash
	rec.ExpiresAt = expiresAt
	rec.UpdatedAt = m.now()
	m.records[series] = rec
	return nil
}

// ListByTokenable returns non-expired tokens of the owner, newest first.
func (m *Memory) ListByTokenable(ctx context.Context, tokenableID string) ([]*opaque.Token, error) {
	now := m.now()

	m.mu.RLock()
	recs := make([]Record, 0)
	for _, rec := range m.records {
		if rec.Type == m.tokenType && rec.TokenableID == tokenableID && !rec.expiredAt(now) {
			recs = append(recs, rec)
		}
	}
	m.mu.RUnlock()

	slices.SortFunc(recs, func(a, b Record) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	tokens := make([]*opaque.Token, 0, len(recs))
	for _, rec := range recs {
		t, err := m.mapper.FromRecord(rec)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, t)
	}
	return tokens, nil
}

// DeleteByTokenable removes every token of the owner in this bucket.
func (m *Memory) DeleteByTokenable(ctx context.Context, tokenableID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for series, rec := range m.records {
		if rec.Type == m.tokenType && rec.TokenableID == tokenableID {
			delete(m.records, series)
		}
	}
	return nil
}

// TouchLastUsed records the time of the last successful verification.
func (m *Memory) TouchLastUsed(ctx context.Context, series string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, exists := m.records[series]
	if !exists || rec.Type != m.tokenType {
		return ErrTokenNotFound
	}
	rec.LastUsedAt = &at
	m.records[series] = rec
	return nil
}

// DeleteExpired drops expired records across all buckets.
func (m *Memory) DeleteExpired(ctx context.Context) (int64, error) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for series, rec := range m.records {
		if rec.expiredAt(now) {
			delete(m.records, series)
			n++
		}
	}
	return n, nil
}

// Share returns a store for another bucket backed by the same map, the
// in-memory equivalent of two stores pointing at one table.
func (m *Memory) Share(mapper Mapper, tokenType string) *Memory {
	return &Memory{
		mu:        m.mu,
		records:   m.records,
		mapper:    mapper,
		tokenType: tokenType,
		now:       m.now,
	}
}
