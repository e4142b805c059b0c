// Package cookie reads and writes HTTP cookies, optionally signed with
// HMAC-SHA256 or encrypted with AES-256-GCM.
//
// Session guards keep the remember-me token in an encrypted cookie named
// remember_<guard>, and the session package carries the session id in a
// signed cookie. Both go through a Manager:
//
//	jar, err := cookie.New([]string{os.Getenv("COOKIE_SECRET")}, cookie.WithSecure(true))
//	if err != nil {
//		return err
//	}
//
//	_ = jar.SetEncrypted(w, "remember_web", token.Value.Release(), cookie.WithLifetime(30*24*time.Hour))
//	value, err := jar.GetEncrypted(r, "remember_web")
//
// # Secret rotation
//
// The first secret signs and encrypts. Every configured secret is tried when
// reading, so a new secret can be prepended while cookies issued under the
// old one keep working until they expire.
//
// # Errors
//
// Missing cookies return ErrCookieNotFound. Tampered or foreign values return
// ErrInvalidSignature, ErrDecryptionFailed or ErrInvalidFormat; callers
// treating the cookie as a credential should handle all of them as "absent".
package cookie
