package tokenstore

import (
	"context"
	"time"

	"github.com/dmitrymomot/guardkit/pkg/opaque"
)

// RememberTokens manages remember-me tokens for one session guard.
type RememberTokens struct {
	provider Provider
	guard    string
	now      func() time.Time
}

// NewRememberTokens binds provider to guard. The provider should be bound to
// the RememberMeType(guard) bucket.
func NewRememberTokens(provider Provider, guard string, opts ...ServiceOption) *RememberTokens {
	o := applyServiceOptions(opts)
	return &RememberTokens{
		provider: provider,
		guard:    guard,
		now:      o.now,
	}
}

// Guard returns the guard name the tokens belong to.
func (s *RememberTokens) Guard() string {
	return s.guard
}

// Create issues and persists a token for tokenableID.
func (s *RememberTokens) Create(ctx context.Context, tokenableID string, expiresIn time.Duration) (*opaque.Token, error) {
	tok, err := opaque.Create(opaque.RememberMe, opaque.CreateParams{
		TokenableID: tokenableID,
		Type:        RememberMeType(s.guard),
		ExpiresIn:   expiresIn,
		Now:         s.now(),
	})
	if err != nil {
		return nil, err
	}

	if err := s.provider.CreateToken(ctx, tok); err != nil {
		return nil, err
	}
	return tok, nil
}

// Verify fetches the token by series and checks the secret and expiry.
// Any mismatch is ErrTokenNotFound; storage failures are returned as is.
func (s *RememberTokens) Verify(ctx context.Context, decoded opaque.Decoded) (*opaque.Token, error) {
	if decoded.Identifier == "" || decoded.Secret == nil {
		return nil, ErrTokenNotFound
	}

	tok, err := s.provider.GetTokenBySeries(ctx, decoded.Identifier)
	if err != nil {
		return nil, err
	}

	if !tok.Verify(decoded.Secret.Release()) || tok.IsExpiredAt(s.now()) {
		return nil, ErrTokenNotFound
	}
	return tok, nil
}

// Recycle rotates the secret of tok under the same series and extends its
// expiry. tok.Value holds the new cookie value afterwards.
func (s *RememberTokens) Recycle(ctx context.Context, tok *opaque.Token, expiresIn time.Duration) error {
	if err := tok.Recycle(s.now(), expiresIn); err != nil {
		return err
	}
	return s.provider.UpdateTokenBySeries(ctx, tok.Identifier, tok.Hash, tok.ExpiresAt)
}

// Delete removes the token. Missing tokens are ignored.
func (s *RememberTokens) Delete(ctx context.Context, series string) error {
	return s.provider.DeleteTokenBySeries(ctx, series)
}
