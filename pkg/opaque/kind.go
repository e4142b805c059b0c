package opaque

import "github.com/google/uuid"

// Kind describes a token family. Tokens of different kinds share every
// algorithm and differ only in these knobs.
type Kind struct {
	// Name is stored as part of the bucket discriminator and shows up in logs.
	Name string

	// Prefix is prepended to the shareable value. Decode rejects values that
	// do not start with it. Empty disables the check.
	Prefix string

	// SecretSize is the number of random characters before the checksum.
	SecretSize int

	// Checksum appends a CRC32 suffix so secret scanners can validate hits.
	Checksum bool

	// RequireExpiry rejects creation without an expiry.
	RequireExpiry bool

	// Identifier generates a lookup key when the caller does not supply one.
	Identifier func() (string, error)
}

var (
	AccessToken = Kind{
		Name:       "access_token",
		Prefix:     "oat_",
		SecretSize: DefaultSecretSize,
		Checksum:   true,
		Identifier: func() (string, error) {
			id, err := uuid.NewRandom()
			if err != nil {
				return "", err
			}
			return id.String(), nil
		},
	}

	RememberMe = Kind{
		Name:          "remember_me",
		SecretSize:    DefaultSecretSize,
		RequireExpiry: true,
		Identifier:    func() (string, error) { return randomString(24) },
	}
)

func (k Kind) secretSize(override int) int {
	if override > 0 {
		return override
	}
	if k.SecretSize > 0 {
		return k.SecretSize
	}
	return DefaultSecretSize
}
