package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/dmitrymomot/guardkit/pkg/guard"
)

// Provider exposes a Service to guards.
type Provider struct {
	svc *Service
}

var _ guard.CredentialsProvider[*User] = (*Provider)(nil)

func NewProvider(svc *Service) *Provider {
	return &Provider{svc: svc}
}

func (p *Provider) UserID(u *User) string {
	return u.ID.String()
}

func (p *Provider) FindByID(ctx context.Context, id string) (*User, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, guard.ErrUserNotFound
	}

	u, err := p.svc.repo.FindByID(ctx, uid)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, fmt.Errorf("%w: %w", guard.ErrUserNotFound, err)
		}
		return nil, err
	}
	return u, nil
}

func (p *Provider) VerifyCredentials(ctx context.Context, uid, password string) (*User, error) {
	u, err := p.svc.Authenticate(ctx, uid, password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			return nil, fmt.Errorf("%w: %w", guard.ErrInvalidCredentials, err)
		}
		return nil, err
	}
	return u, nil
}
