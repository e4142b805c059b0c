package users

import (
	"errors"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// Hasher hashes and checks passwords.
type Hasher interface {
	Hash(password string) ([]byte, error)
	// Compare returns ErrInvalidCredentials on mismatch.
	Compare(hash []byte, password string) error
	// DummyHash is compared against when the user does not exist, so the
	// response time does not reveal whether an email is registered.
	DummyHash() []byte
}

// BcryptHasher hashes passwords with bcrypt.
type BcryptHasher struct {
	cost  int
	once  sync.Once
	dummy []byte
}

// NewBcryptHasher creates a hasher. Out of range costs fall back to
// bcrypt.DefaultCost.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

func (h *BcryptHasher) Hash(password string) ([]byte, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return nil, ErrWeakPassword
		}
		return nil, err
	}
	return hash, nil
}

func (h *BcryptHasher) Compare(hash []byte, password string) error {
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

func (h *BcryptHasher) DummyHash() []byte {
	h.once.Do(func() {
		h.dummy, _ = bcrypt.GenerateFromPassword([]byte("guardkit-dummy-password"), h.cost)
	})
	return h.dummy
}
