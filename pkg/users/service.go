package users

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	minPasswordLength = 8
	maxPasswordLength = 72 // bcrypt input limit
)

// Service registers users and checks their credentials.
type Service struct {
	repo   Repository
	hasher Hasher
	now    func() time.Time
}

type ServiceOption func(*Service)

func WithHasher(h Hasher) ServiceOption {
	return func(s *Service) { s.hasher = h }
}

func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

func NewService(repo Repository, opts ...ServiceOption) *Service {
	s := &Service{
		repo:   repo,
		hasher: NewBcryptHasher(0),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates a user with a hashed password.
func (s *Service) Register(ctx context.Context, email, password string) (*User, error) {
	email = NormalizeEmail(email)
	if !validEmail(email) {
		return nil, ErrInvalidEmail
	}
	if n := utf8.RuneCountInString(password); n < minPasswordLength || len(password) > maxPasswordLength {
		return nil, ErrWeakPassword
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Authenticate checks an email and password pair.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	return VerifyCredentials[*User](ctx, finder{s.repo}, s.hasher, email, password)
}

// FindByEmail looks a user up by normalized email.
func (s *Service) FindByEmail(ctx context.Context, email string) (*User, error) {
	return s.repo.FindByEmail(ctx, NormalizeEmail(email))
}

// ChangePassword verifies the current password and stores a new hash.
func (s *Service) ChangePassword(ctx context.Context, id uuid.UUID, current, next string) error {
	u, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.hasher.Compare(u.PasswordHash, current); err != nil {
		return ErrInvalidCredentials
	}
	if n := utf8.RuneCountInString(next); n < minPasswordLength || len(next) > maxPasswordLength {
		return ErrWeakPassword
	}

	hash, err := s.hasher.Hash(next)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.repo.UpdatePasswordHash(ctx, id, hash)
}

// finder adapts a Repository to Finder[*User] with the email as uid.
type finder struct {
	repo Repository
}

func (f finder) FindByUID(ctx context.Context, uid string) (*User, error) {
	return f.repo.FindByEmail(ctx, uid)
}

func (f finder) PasswordHash(u *User) []byte {
	return u.PasswordHash
}
