package session

import (
	"net/http"
	"time"

	"github.com/dmitrymomot/guardkit/pkg/cookie"
)

// CookieTransport stores the session id in a signed cookie.
type CookieTransport struct {
	jar     *cookie.Manager
	name    string
	options []cookie.Option
}

// NewCookieTransport creates a transport writing cookie name through jar.
func NewCookieTransport(jar *cookie.Manager, name string, opts ...cookie.Option) *CookieTransport {
	return &CookieTransport{jar: jar, name: name, options: opts}
}

func (t *CookieTransport) GetToken(r *http.Request) (string, error) {
	token, err := t.jar.GetSigned(r, t.name)
	if err != nil || token == "" {
		return "", ErrSessionNotFound
	}
	return token, nil
}

func (t *CookieTransport) SetToken(w http.ResponseWriter, token string, ttl time.Duration) error {
	opts := append([]cookie.Option{cookie.WithLifetime(ttl)}, t.options...)
	return t.jar.SetSigned(w, t.name, token, opts...)
}

func (t *CookieTransport) ClearToken(w http.ResponseWriter) error {
	t.jar.Delete(w, t.name, t.options...)
	return nil
}
