package users_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrymomot/guardkit/pkg/guard"
	"github.com/dmitrymomot/guardkit/pkg/users"
)

func newService() (*users.Service, *users.Memory) {
	repo := users.NewMemory()
	return users.NewService(repo, users.WithHasher(users.NewBcryptHasher(bcrypt.MinCost))), repo
}

func TestService_Register(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, repo := newService()

	u, err := svc.Register(ctx, "  Ada@Example.COM ", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", u.Email)
	assert.NotEqual(t, uuid.Nil, u.ID)
	assert.NotContains(t, string(u.PasswordHash), "correct horse")

	stored, err := repo.FindByEmail(ctx, "ADA@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, stored.ID)

	found, err := svc.FindByEmail(ctx, " ADA@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, found.ID)

	_, err = svc.Register(ctx, "ada@example.com", "another password")
	assert.ErrorIs(t, err, users.ErrEmailTaken)

	_, err = svc.Register(ctx, "not-an-email", "correct horse")
	assert.ErrorIs(t, err, users.ErrInvalidEmail)

	_, err = svc.Register(ctx, "bob@example.com", "short")
	assert.ErrorIs(t, err, users.ErrWeakPassword)
}

func TestService_Authenticate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _ := newService()

	u, err := svc.Register(ctx, "ada@example.com", "correct horse")
	require.NoError(t, err)

	got, err := svc.Authenticate(ctx, "ADA@example.com", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = svc.Authenticate(ctx, "ada@example.com", "wrong horse")
	assert.ErrorIs(t, err, users.ErrInvalidCredentials)

	_, err = svc.Authenticate(ctx, "nobody@example.com", "correct horse")
	assert.ErrorIs(t, err, users.ErrInvalidCredentials)

	require.NoError(t, svc.ChangePassword(ctx, u.ID, "correct horse", "battery staple"))
	_, err = svc.Authenticate(ctx, "ada@example.com", "battery staple")
	assert.NoError(t, err)
	assert.ErrorIs(t, svc.ChangePassword(ctx, u.ID, "correct horse", "whatever1"), users.ErrInvalidCredentials)
}

type stubFinder struct {
	user *users.User
	err  error
}

func (f stubFinder) FindByUID(context.Context, string) (*users.User, error) { return f.user, f.err }
func (f stubFinder) PasswordHash(u *users.User) []byte                     { return u.PasswordHash }

func TestVerifyCredentials(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	hasher := users.NewBcryptHasher(bcrypt.MinCost)

	hash, err := hasher.Hash("secret-password")
	require.NoError(t, err)
	u := &users.User{ID: uuid.New(), PasswordHash: hash}

	got, err := users.VerifyCredentials[*users.User](ctx, stubFinder{user: u}, hasher, "uid", "secret-password")
	require.NoError(t, err)
	assert.Same(t, u, got)

	_, err = users.VerifyCredentials[*users.User](ctx, stubFinder{err: users.ErrUserNotFound}, hasher, "uid", "x")
	assert.ErrorIs(t, err, users.ErrInvalidCredentials)

	boom := errors.New("db down")
	_, err = users.VerifyCredentials[*users.User](ctx, stubFinder{err: boom}, hasher, "uid", "x")
	assert.ErrorIs(t, err, boom)

	assert.NotEmpty(t, hasher.DummyHash())
}

func TestProvider(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _ := newService()
	p := users.NewProvider(svc)

	u, err := svc.Register(ctx, "ada@example.com", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, u.ID.String(), p.UserID(u))

	got, err := p.FindByID(ctx, u.ID.String())
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = p.FindByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, guard.ErrUserNotFound)

	_, err = p.FindByID(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, guard.ErrUserNotFound)

	_, err = p.VerifyCredentials(ctx, "ada@example.com", "nope")
	assert.ErrorIs(t, err, guard.ErrInvalidCredentials)

	got, err = p.VerifyCredentials(ctx, "ada@example.com", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
}

func TestMemory_Delete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := users.NewMemory()
	u := &users.User{ID: uuid.New(), Email: "Ada@example.com"}

	require.NoError(t, repo.Create(ctx, u))
	require.NoError(t, repo.Delete(ctx, u.ID))
	require.NoError(t, repo.Delete(ctx, u.ID))

	_, err := repo.FindByEmail(ctx, "ada@example.com")
	assert.ErrorIs(t, err, users.ErrUserNotFound)
	require.NoError(t, repo.Create(ctx, u))
}
