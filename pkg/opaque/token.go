package opaque

import (
	"strings"
	"time"
)

const delimiter = "."

// Token is a persisted opaque token. Value is only populated right after the
// secret was generated (Create, NewFromTransient, Recycle).
type Token struct {
	Kind        Kind
	Identifier  string
	TokenableID string
	Type        string
	Name        string
	Hash        string
	Abilities   []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	LastUsedAt  *time.Time
	ExpiresAt   *time.Time

	Value *Secret
}

// CreateParams configures Create. Zero values fall back to the Kind defaults.
type CreateParams struct {
	Identifier  string
	TokenableID string
	Type        string
	Name        string
	Abilities   []string
	ExpiresIn   time.Duration
	Size        int
	Now         time.Time
}

// Decoded is the result of decoding a shareable value.
type Decoded struct {
	Identifier string
	Secret     *Secret
}

// Create generates fresh secret material and returns a token ready to be
// persisted. The identifier is generated by the kind unless supplied.
func Create(kind Kind, p CreateParams) (*Token, error) {
	if kind.RequireExpiry && p.ExpiresIn <= 0 {
		return nil, ErrExpiryRequired
	}

	identifier := p.Identifier
	if identifier == "" {
		if kind.Identifier == nil {
			return nil, ErrInvalidIdentifier
		}
		id, err := kind.Identifier()
		if err != nil {
			return nil, err
		}
		identifier = id
	}

	transient, err := GenerateSecret(kind.secretSize(p.Size), kind.Checksum)
	if err != nil {
		return nil, err
	}

	return NewFromTransient(kind, identifier, transient, p)
}

// NewFromTransient binds pre-generated secret material to an identifier.
func NewFromTransient(kind Kind, identifier string, t Transient, p CreateParams) (*Token, error) {
	if identifier == "" || strings.Contains(identifier, delimiter) {
		return nil, ErrInvalidIdentifier
	}
	if kind.RequireExpiry && p.ExpiresIn <= 0 {
		return nil, ErrExpiryRequired
	}

	now := p.Now
	if now.IsZero() {
		now = time.Now()
	}

	tok := &Token{
		Kind:        kind,
		Identifier:  identifier,
		TokenableID: p.TokenableID,
		Type:        p.Type,
		Name:        p.Name,
		Hash:        t.Hash,
		Abilities:   normalizeAbilities(kind, p.Abilities),
		CreatedAt:   now,
		UpdatedAt:   now,
		Value:       NewSecret(Encode(kind, identifier, t.Secret.Release())),
	}
	if p.ExpiresIn > 0 {
		exp := now.Add(p.ExpiresIn)
		tok.ExpiresAt = &exp
	}

	return tok, nil
}

// Encode builds the shareable value.
func Encode(kind Kind, identifier, secret string) string {
	return kind.Prefix + EncodeBase64URL([]byte(identifier)) + delimiter + EncodeBase64URL([]byte(secret))
}

// Decode splits a shareable value into identifier and secret. It is total:
// any malformed input returns false.
func Decode(kind Kind, value string) (Decoded, bool) {
	if value == "" {
		return Decoded{}, false
	}

	if kind.Prefix != "" {
		if !strings.HasPrefix(value, kind.Prefix) {
			return Decoded{}, false
		}
		value = strings.TrimPrefix(value, kind.Prefix)
	}

	idPart, secretPart, found := strings.Cut(value, delimiter)
	if !found || idPart == "" || secretPart == "" {
		return Decoded{}, false
	}

	identifier, ok := DecodeBase64URL(idPart)
	if !ok || len(identifier) == 0 {
		return Decoded{}, false
	}

	secret, ok := DecodeBase64URL(secretPart)
	if !ok || len(secret) == 0 {
		return Decoded{}, false
	}

	return Decoded{
		Identifier: string(identifier),
		Secret:     NewSecret(string(secret)),
	}, true
}

// Parse is Decode with an error contract for call sites that must fail loudly.
func Parse(kind Kind, value string) (Decoded, error) {
	d, ok := Decode(kind, value)
	if !ok {
		return Decoded{}, ErrInvalidToken
	}
	return d, nil
}

// Verify compares the hash of secret with the stored hash in constant time.
func (t *Token) Verify(secret string) bool {
	if t == nil || t.Hash == "" {
		return false
	}
	return Equal(t.Hash, HashSecret(secret))
}

// IsExpired reports whether the token expired as of now.
func (t *Token) IsExpired() bool {
	return t.IsExpiredAt(time.Now())
}

// IsExpiredAt reports whether ExpiresAt is set and strictly before now.
func (t *Token) IsExpiredAt(now time.Time) bool {
	return t.ExpiresAt != nil && t.ExpiresAt.Before(now)
}

// IsFresh reports whether the token was created or last rotated less than
// window ago.
func (t *Token) IsFresh(now time.Time, window time.Duration) bool {
	return t.UpdatedAt.Add(window).After(now)
}

// Recycle rotates the secret in place, keeping the identifier. The new
// shareable value is available through Value.
func (t *Token) Recycle(now time.Time, expiresIn time.Duration) error {
	if t.Kind.RequireExpiry && expiresIn <= 0 {
		return ErrExpiryRequired
	}

	transient, err := GenerateSecret(t.Kind.secretSize(0), t.Kind.Checksum)
	if err != nil {
		return err
	}

	t.Hash = transient.Hash
	t.UpdatedAt = now
	if expiresIn > 0 {
		exp := now.Add(expiresIn)
		t.ExpiresAt = &exp
	}
	t.Value = NewSecret(Encode(t.Kind, t.Identifier, transient.Secret.Release()))

	return nil
}
