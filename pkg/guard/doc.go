// Package guard authenticates HTTP requests.
//
// Three drivers are provided. SessionGuard reads the user id from the
// request session and falls back to a remember-me cookie backed by
// opaque tokens. AccessTokenGuard verifies "Authorization: Bearer" tokens.
// BasicAuthGuard checks HTTP basic credentials.
//
// Guards are request scoped. Authenticate runs once per request; repeated
// calls return the first outcome without doing any I/O. Every failed
// attempt yields an *UnauthorizedError carrying the driver name, so the
// HTTP layer can pick between a redirect, a 401 or a basic auth challenge
// without learning why the credentials were rejected.
//
// Remember-me tokens are recycled lazily. A token rotated less than
// RecycleWindow ago is reused unchanged, which keeps parallel requests that
// share one cookie from invalidating each other.
//
// A Manager maps guard names to factories. Middleware and Silent install a
// request Authenticator that handlers retrieve with FromContext or
// UserFromContext.
package guard
