package tokenstore

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmitrymomot/guardkit/pkg/opaque"
	"github.com/dmitrymomot/guardkit/pkg/pg"
)

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const recordColumns = "series, tokenable_id, type, name, hash, abilities, created_at, updated_at, last_used_at, expires_at"

// Postgres stores tokens in a single table shared by all buckets.
type Postgres struct {
	db        DBTX
	mapper    Mapper
	tokenType string
	table     string
	now       func() time.Time
}

// NewPostgres creates a Postgres-backed store for one bucket.
func NewPostgres(db DBTX, mapper Mapper, tokenType string, opts ...Option) *Postgres {
	o := applyOptions(opts)
	return &Postgres{
		db:        db,
		mapper:    mapper,
		tokenType: tokenType,
		table:     pgx.Identifier{o.table}.Sanitize(),
		now:       o.now,
	}
}

// WithTx returns a copy of the store bound to tx.
func (s *Postgres) WithTx(tx pgx.Tx) *Postgres {
	cp := *s
	cp.db = tx
	return &cp
}

// CreateToken inserts the token row.
func (s *Postgres) CreateToken(ctx context.Context, token *opaque.Token) error {
	if token == nil {
		return ErrNilToken
	}
	token.Type = s.tokenType

	rec, err := s.mapper.ToRecord(token)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`, s.table, recordColumns)
	if _, err := s.db.Exec(ctx, query,
		rec.Series, rec.TokenableID, rec.Type, rec.Name, rec.Hash, rec.Abilities,
		rec.CreatedAt, rec.UpdatedAt, rec.LastUsedAt, rec.ExpiresAt,
	); err != nil {
		if pg.IsDuplicateKeyError(err) {
			return ErrDuplicateSeries
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// GetTokenBySeries filters foreign buckets and expired rows in the query.
func (s *Postgres) GetTokenBySeries(ctx context.Context, series string) (*opaque.Token, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s
		WHERE series = $1 AND type = $2 AND (expires_at IS NULL OR expires_at >= $3)`, recordColumns, s.table)

	rec, err := scanRecord(s.db.QueryRow(ctx, query, series, s.tokenType, s.now()))
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, ErrTokenNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return s.mapper.FromRecord(rec)
}

// DeleteTokenBySeries deletes the row if it exists.
func (s *Postgres) DeleteTokenBySeries(ctx context.Context, series string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE series = $1 AND type = $2`, s.table)
	if _, err := s.db.Exec(ctx, query, series, s.tokenType); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// UpdateTokenBySeries rotates hash and expiry in a single statement.
func (s *Postgres) UpdateTokenBySeries(ctx context.Context, series, hash string, expiresAt *time.Time) error {
	query := fmt.Sprintf(`UPDATE %s SET hash = $3, expires_at = $4, updated_at = $5
		WHERE series = $1 AND type = $2`, s.table)

	tag, err := s.db.Exec(ctx, query, series, s.tokenType, hash, expiresAt, s.now())
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTokenNotFound
	}
	return nil
}

// ListByTokenable returns non-expired tokens of the owner, newest first.
func (s *Postgres) ListByTokenable(ctx context.Context, tokenableID string) ([]*opaque.Token, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s
		WHERE tokenable_id = $1 AND type = $2 AND (expires_at IS NULL OR expires_at >= $3)
		ORDER BY created_at DESC`, recordColumns, s.table)

	rows, err := s.db.Query(ctx, query, tokenableID, s.tokenType, s.now())
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var tokens []*opaque.Token
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		t, err := s.mapper.FromRecord(rec)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return tokens, nil
}

// DeleteByTokenable removes every token of the owner in this bucket.
func (s *Postgres) DeleteByTokenable(ctx context.Context, tokenableID string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE tokenable_id = $1 AND type = $2`, s.table)
	if _, err := s.db.Exec(ctx, query, tokenableID, s.tokenType); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// TouchLastUsed records the time of the last successful verification.
func (s *Postgres) TouchLastUsed(ctx context.Context, series string, at time.Time) error {
	query := fmt.Sprintf(`UPDATE %s SET last_used_at = $3 WHERE series = $1 AND type = $2`, s.table)
	tag, err := s.db.Exec(ctx, query, series, s.tokenType, at)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTokenNotFound
	}
	return nil
}

// DeleteExpired purges expired rows of every bucket.
func (s *Postgres) DeleteExpired(ctx context.Context) (int64, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE expires_at IS NOT NULL AND expires_at < $1`, s.table)
	tag, err := s.db.Exec(ctx, query, s.now())
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanRecord(row pgx.Row) (Record, error) {
	var rec Record
	err := row.Scan(
		&rec.Series, &rec.TokenableID, &rec.Type, &rec.Name, &rec.Hash, &rec.Abilities,
		&rec.CreatedAt, &rec.UpdatedAt, &rec.LastUsedAt, &rec.ExpiresAt,
	)
	return rec, err
}
