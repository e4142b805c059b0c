package tokenstore

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dmitrymomot/guardkit/pkg/logger"
	"github.com/dmitrymomot/guardkit/pkg/opaque"
)

// AccessTokenType is the bucket discriminator of access tokens.
const AccessTokenType = "access_token"

// CreateOptions configures a new access token.
type CreateOptions struct {
	Name      string
	Abilities []string
	// ExpiresIn of zero falls back to the service default; a negative value
	// creates a non-expiring token.
	ExpiresIn time.Duration
}

// AccessTokens issues and verifies long-lived API tokens.
type AccessTokens struct {
	store     Store
	now       func() time.Time
	expiresIn time.Duration
	logger    *slog.Logger
}

// ServiceOption configures AccessTokens and RememberTokens.
type ServiceOption func(*serviceOptions)

type serviceOptions struct {
	now       func() time.Time
	expiresIn time.Duration
	logger    *slog.Logger
}

// WithServiceClock overrides time.Now.
func WithServiceClock(now func() time.Time) ServiceOption {
	return func(o *serviceOptions) {
		if now != nil {
			o.now = now
		}
	}
}

// WithDefaultExpiry sets the lifetime applied when CreateOptions.ExpiresIn is zero.
func WithDefaultExpiry(d time.Duration) ServiceOption {
	return func(o *serviceOptions) {
		o.expiresIn = d
	}
}

// WithServiceLogger sets the logger used for non-fatal storage failures.
func WithServiceLogger(l *slog.Logger) ServiceOption {
	return func(o *serviceOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

func applyServiceOptions(opts []ServiceOption) serviceOptions {
	o := serviceOptions{
		now:    time.Now,
		logger: logger.Discard(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// NewAccessTokens creates the access token service on top of store.
func NewAccessTokens(store Store, opts ...ServiceOption) *AccessTokens {
	o := applyServiceOptions(opts)
	return &AccessTokens{
		store:     store,
		now:       o.now,
		expiresIn: o.expiresIn,
		logger:    o.logger.With(logger.Component("access_tokens")),
	}
}

// Create issues a token for tokenableID. The returned token carries the
// plaintext value in Value; it cannot be recovered later.
func (s *AccessTokens) Create(ctx context.Context, tokenableID string, opts CreateOptions) (*opaque.Token, error) {
	expiresIn := opts.ExpiresIn
	if expiresIn == 0 {
		expiresIn = s.expiresIn
	}
	if expiresIn < 0 {
		expiresIn = 0
	}

	tok, err := opaque.Create(opaque.AccessToken, opaque.CreateParams{
		TokenableID: tokenableID,
		Type:        AccessTokenType,
		Name:        opts.Name,
		Abilities:   opts.Abilities,
		ExpiresIn:   expiresIn,
		Now:         s.now(),
	})
	if err != nil {
		return nil, err
	}

	if err := s.store.CreateToken(ctx, tok); err != nil {
		return nil, err
	}

	return tok, nil
}

// Verify resolves a shareable value to its token. Malformed, unknown,
// tampered and expired values all return ErrTokenNotFound. Storage failures
// are returned as is.
func (s *AccessTokens) Verify(ctx context.Context, value string) (*opaque.Token, error) {
	decoded, ok := opaque.Decode(opaque.AccessToken, value)
	if !ok {
		return nil, ErrTokenNotFound
	}

	tok, err := s.store.GetTokenBySeries(ctx, decoded.Identifier)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if !tok.Verify(decoded.Secret.Release()) || tok.IsExpiredAt(now) {
		return nil, ErrTokenNotFound
	}

	if err := s.store.TouchLastUsed(ctx, tok.Identifier, now); err != nil {
		s.logger.WarnContext(ctx, "failed to record token usage",
			logger.Error(err),
			logger.TokenID(tok.Identifier),
		)
	} else {
		tok.LastUsedAt = &now
	}

	return tok, nil
}

// All lists the live tokens of tokenableID, newest first.
func (s *AccessTokens) All(ctx context.Context, tokenableID string) ([]*opaque.Token, error) {
	return s.store.ListByTokenable(ctx, tokenableID)
}

// Delete removes one token, but only when it belongs to tokenableID.
func (s *AccessTokens) Delete(ctx context.Context, tokenableID, identifier string) error {
	tok, err := s.store.GetTokenBySeries(ctx, identifier)
	if err != nil {
		if errors.Is(err, ErrTokenNotFound) {
			return nil
		}
		return err
	}
	if tok.TokenableID != tokenableID {
		return ErrTokenNotFound
	}
	return s.store.DeleteTokenBySeries(ctx, identifier)
}

// Invalidate revokes the token a client presented. It reports whether a
// token was found and deleted.
func (s *AccessTokens) Invalidate(ctx context.Context, value string) (bool, error) {
	tok, err := s.Verify(ctx, value)
	if err != nil {
		if errors.Is(err, ErrTokenNotFound) {
			return false, nil
		}
		return false, err
	}
	if err := s.store.DeleteTokenBySeries(ctx, tok.Identifier); err != nil {
		return false, err
	}
	return true, nil
}

// DeleteAll revokes every token of tokenableID.
func (s *AccessTokens) DeleteAll(ctx context.Context, tokenableID string) error {
	return s.store.DeleteByTokenable(ctx, tokenableID)
}
