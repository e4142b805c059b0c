package tokenstore_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/guardkit/migrations"
	"github.com/dmitrymomot/guardkit/pkg/logger"
	"github.com/dmitrymomot/guardkit/pkg/pg"
	"github.com/dmitrymomot/guardkit/pkg/tokenstore"
)

type mockDB struct {
	mock.Mock
}

func (m *mockDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	called := m.Called(ctx, sql, args)
	return called.Get(0).(pgconn.CommandTag), called.Error(1)
}

func (m *mockDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	called := m.Called(ctx, sql, args)
	if called.Get(0) == nil {
		return nil, called.Error(1)
	}
	return called.Get(0).(pgx.Rows), called.Error(1)
}

func (m *mockDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	called := m.Called(ctx, sql, args)
	return called.Get(0).(pgx.Row)
}

type errRow struct{ err error }

func (r errRow) Scan(...any) error { return r.err }

func TestPostgres_ErrorMapping(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	clock := newFakeClock()
	anything := mock.Anything

	t.Run("duplicate key", func(t *testing.T) {
		t.Parallel()
		db := &mockDB{}
		db.On("Exec", anything, mock.AnythingOfType("string"), anything).
			Return(pgconn.CommandTag{}, &pgconn.PgError{Code: "23505"})

		store := tokenstore.NewPostgres(db, tokenstore.AccessTokenMapper(), tokenstore.AccessTokenType, tokenstore.WithClock(clock.Now))
		err := store.CreateToken(ctx, newAccessToken(t, clock, "1", time.Hour))
		assert.ErrorIs(t, err, tokenstore.ErrDuplicateSeries)
		db.AssertExpectations(t)
	})

	t.Run("no rows", func(t *testing.T) {
		t.Parallel()
		db := &mockDB{}
		db.On("QueryRow", anything, mock.AnythingOfType("string"), []any{"series", tokenstore.AccessTokenType, clock.Now()}).
			Return(errRow{err: pgx.ErrNoRows})

		store := tokenstore.NewPostgres(db, tokenstore.AccessTokenMapper(), tokenstore.AccessTokenType, tokenstore.WithClock(clock.Now))
		_, err := store.GetTokenBySeries(ctx, "series")
		assert.ErrorIs(t, err, tokenstore.ErrTokenNotFound)
		db.AssertExpectations(t)
	})

	t.Run("driver failure is wrapped", func(t *testing.T) {
		t.Parallel()
		boom := errors.New("connection reset")
		db := &mockDB{}
		db.On("QueryRow", anything, mock.AnythingOfType("string"), anything).Return(errRow{err: boom})

		store := tokenstore.NewPostgres(db, tokenstore.AccessTokenMapper(), tokenstore.AccessTokenType)
		_, err := store.GetTokenBySeries(ctx, "series")
		require.ErrorIs(t, err, boom)
		assert.NotErrorIs(t, err, tokenstore.ErrTokenNotFound)
		assert.Contains(t, err.Error(), "db error")
	})

	t.Run("update without rows", func(t *testing.T) {
		t.Parallel()
		db := &mockDB{}
		db.On("Exec", anything, mock.AnythingOfType("string"), anything).Return(pgconn.NewCommandTag("UPDATE 0"), nil)

		store := tokenstore.NewPostgres(db, tokenstore.AccessTokenMapper(), tokenstore.AccessTokenType)
		err := store.UpdateTokenBySeries(ctx, "series", "hash", nil)
		assert.ErrorIs(t, err, tokenstore.ErrTokenNotFound)
	})

	t.Run("delete expired reports rows", func(t *testing.T) {
		t.Parallel()
		db := &mockDB{}
		db.On("Exec", anything, mock.AnythingOfType("string"), []any{clock.Now()}).Return(pgconn.NewCommandTag("DELETE 3"), nil)

		store := tokenstore.NewPostgres(db, tokenstore.AccessTokenMapper(), tokenstore.AccessTokenType, tokenstore.WithClock(clock.Now))
		n, err := store.DeleteExpired(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)
	})

	t.Run("expiry boundary is inclusive", func(t *testing.T) {
		t.Parallel()
		db := &mockDB{}
		db.On("QueryRow", anything, mock.MatchedBy(func(sql string) bool {
			return strings.Contains(sql, "expires_at >= $3")
		}), anything).Return(errRow{err: pgx.ErrNoRows})
		db.On("Exec", anything, mock.MatchedBy(func(sql string) bool {
			return strings.Contains(sql, "expires_at < $1")
		}), anything).Return(pgconn.NewCommandTag("DELETE 0"), nil)

		store := tokenstore.NewPostgres(db, tokenstore.AccessTokenMapper(), tokenstore.AccessTokenType, tokenstore.WithClock(clock.Now))
		_, err := store.GetTokenBySeries(ctx, "series")
		assert.ErrorIs(t, err, tokenstore.ErrTokenNotFound)
		_, err = store.DeleteExpired(ctx)
		require.NoError(t, err)
		db.AssertExpectations(t)
	})

	t.Run("custom table is quoted", func(t *testing.T) {
		t.Parallel()
		db := &mockDB{}
		db.On("Exec", anything, mock.MatchedBy(func(sql string) bool {
			return strings.Contains(sql, `DELETE FROM "api_tokens"`)
		}), anything).Return(pgconn.NewCommandTag("DELETE 1"), nil)

		store := tokenstore.NewPostgres(db, tokenstore.AccessTokenMapper(), tokenstore.AccessTokenType, tokenstore.WithTable("api_tokens"))
		require.NoError(t, store.DeleteTokenBySeries(ctx, "series"))
		db.AssertExpectations(t)
	})
}

func TestPostgres(t *testing.T) {
	url := os.Getenv("PG_CONN_URL")
	if url == "" {
		t.Skip("PG_CONN_URL is not set")
	}

	ctx := context.Background()
	cfg := pg.Config{
		ConnectionString: url,
		MaxOpenConns:     4,
		RetryAttempts:    1,
		MigrationsDir:    ".",
		MigrationsTable:  "guardkit_test_migrations",
	}
	pool, err := pg.Connect(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, pg.Migrate(ctx, pool, cfg, migrations.FS, logger.Discard()))

	runStoreContract(t, postgresFactory(pool))
}

// postgresFactory runs every case inside a transaction that is rolled back.
func postgresFactory(pool *pgxpool.Pool) storeFactory {
	return func(t *testing.T, clock *fakeClock) (tokenstore.Store, tokenstore.Store) {
		t.Helper()
		tx, err := pool.Begin(context.Background())
		require.NoError(t, err)
		t.Cleanup(func() {
			if err := tx.Rollback(context.Background()); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
				slog.Default().Warn("rollback failed", logger.Error(err))
			}
		})

		access := tokenstore.NewPostgres(tx, tokenstore.AccessTokenMapper(), tokenstore.AccessTokenType, tokenstore.WithClock(clock.Now))
		remember := tokenstore.NewPostgres(tx, tokenstore.RememberMeMapper(), tokenstore.RememberMeType("web"), tokenstore.WithClock(clock.Now))
		return access, remember
	}
}
