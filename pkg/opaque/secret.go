package opaque

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"hash/crc32"
	"log/slog"
)

const redacted = "[redacted]"

// DefaultSecretSize is the number of random characters in a secret.
const DefaultSecretSize = 40

// Secret wraps a plaintext value so it cannot leak through fmt, slog or JSON.
type Secret struct {
	value string
}

// NewSecret wraps value.
func NewSecret(value string) *Secret {
	return &Secret{value: value}
}

// Release returns the plaintext.
func (s *Secret) Release() string {
	if s == nil {
		return ""
	}
	return s.value
}

func (s *Secret) String() string   { return redacted }
func (s *Secret) GoString() string { return redacted }

func (s *Secret) LogValue() slog.Value {
	return slog.StringValue(redacted)
}

func (s *Secret) MarshalJSON() ([]byte, error) {
	return []byte(`"` + redacted + `"`), nil
}

// Transient is freshly generated secret material that is not bound to a
// storage row yet. It lets callers insert the hash first and learn the
// identifier from the database afterwards.
type Transient struct {
	Secret *Secret
	Hash   string
}

// GenerateSecret returns size URL-safe random characters, optionally suffixed
// with the 8-hex-digit CRC32 of the random part, together with its hash.
func GenerateSecret(size int, checksum bool) (Transient, error) {
	if size <= 0 {
		size = DefaultSecretSize
	}

	seed, err := randomString(size)
	if err != nil {
		return Transient{}, err
	}

	if checksum {
		seed += fmt.Sprintf("%08x", crc32.ChecksumIEEE([]byte(seed)))
	}

	return Transient{
		Secret: NewSecret(seed),
		Hash:   HashSecret(seed),
	}, nil
}

// HashSecret returns hex(SHA256(secret)).
func HashSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

// randomString returns exactly n characters from the base64url alphabet.
func randomString(n int) (string, error) {
	b := make([]byte, base64.RawURLEncoding.DecodedLen(n)+1)
	if _, err := rand.Read(b); err != nil {
		return "", errors.Join(ErrSecretGeneration, err)
	}
	return base64.RawURLEncoding.EncodeToString(b)[:n], nil
}
