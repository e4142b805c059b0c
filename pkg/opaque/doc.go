// Package opaque implements secret-bearing opaque tokens shared by access
// tokens and remember-me tokens.
//
// A token is a lookup identifier plus a random secret. Only the SHA-256 hash of
// the secret is ever persisted; the plaintext travels to the client exactly once
// as the shareable value:
//
//	<prefix><base64url(identifier)>.<base64url(secret)>
//
// Token families are described by a Kind value instead of separate types. The
// package ships two kinds: AccessToken (prefix "oat_", CRC32 checksum suffix for
// secret scanners, UUID identifiers) and RememberMe (no prefix, mandatory expiry,
// random series identifiers).
//
// # Usage
//
//	tok, err := opaque.Create(opaque.AccessToken, opaque.CreateParams{
//	    TokenableID: user.ID.String(),
//	    Abilities:   []string{"posts:read"},
//	    ExpiresIn:   30 * 24 * time.Hour,
//	})
//	if err != nil {
//	    return err
//	}
//	plain := tok.Value.Release() // hand to the client once
//
//	// later, on an incoming request
//	decoded, ok := opaque.Decode(opaque.AccessToken, plain)
//	if !ok {
//	    return ErrUnauthorized
//	}
//	stored := lookup(decoded.Identifier)
//	if !stored.Verify(decoded.Secret.Release()) || stored.IsExpired() {
//	    return ErrUnauthorized
//	}
//
// Decode never fails loudly: malformed input of any shape yields false. Parse is
// the error-returning variant for call sites that must surface ErrInvalidToken.
package opaque
