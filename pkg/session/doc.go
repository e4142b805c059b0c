// Package session provides server-side HTTP sessions.
//
// A Manager reads the session id from a signed cookie, loads the session
// from a Store (memory or Redis) and exposes it to handlers as a *Handle via
// FromContext. Handles buffer changes; the middleware persists them and
// refreshes the cookie just before the response header is written.
//
// Sessions have a sliding idle timeout capped by a maximum lifetime. Reads
// that happen more than ActivityUpdateThreshold after the last save extend
// the idle window.
//
//	jar, _ := cookie.New([]string{secret})
//	mgr := session.New(session.NewMemoryStore(time.Minute), session.NewCookieTransport(jar, "sid"))
//	r.Use(mgr.Middleware)
//
//	func handler(w http.ResponseWriter, r *http.Request) {
//		h, _ := session.FromContext(r.Context())
//		h.Put("theme", "dark")
//		_ = h.Regenerate(r.Context())
//	}
package session
