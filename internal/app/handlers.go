package app

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/guardkit/pkg/guard"
	"github.com/dmitrymomot/guardkit/pkg/logger"
	"github.com/dmitrymomot/guardkit/pkg/opaque"
	"github.com/dmitrymomot/guardkit/pkg/tokenstore"
	"github.com/dmitrymomot/guardkit/pkg/users"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Remember bool   `json:"remember,omitempty"`
}

type userResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	Guard     string    `json:"guard,omitempty"`
}

func newUserResponse(u *users.User, via string) userResponse {
	return userResponse{ID: u.ID.String(), Email: u.Email, CreatedAt: u.CreatedAt, Guard: via}
}

type createTokenRequest struct {
	Name      string   `json:"name"`
	Abilities []string `json:"abilities,omitempty"`
	// ExpiresIn is in seconds. Zero uses the configured default.
	ExpiresIn int64 `json:"expires_in,omitempty"`
}

type tokenResponse struct {
	ID         string     `json:"id"`
	Type       string     `json:"type"`
	Name       string     `json:"name,omitempty"`
	Token      string     `json:"token,omitempty"`
	Abilities  []string   `json:"abilities"`
	CreatedAt  time.Time  `json:"created_at"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
}

func newTokenResponse(tok *opaque.Token) tokenResponse {
	resp := tokenResponse{
		ID:         tok.Identifier,
		Type:       "bearer",
		Name:       tok.Name,
		Abilities:  tok.Abilities,
		CreatedAt:  tok.CreatedAt,
		LastUsedAt: tok.LastUsedAt,
		ExpiresAt:  tok.ExpiresAt,
	}
	if tok.Value != nil {
		resp.Token = tok.Value.Release()
	}
	return resp
}

func (a *App) register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := bindJSON(r, &req); err != nil {
		renderBindError(w, err)
		return
	}

	u, err := a.Users.Register(r.Context(), req.Email, req.Password)
	switch {
	case err == nil:
		renderJSON(w, http.StatusCreated, newUserResponse(u, ""))
	case errors.Is(err, users.ErrEmailTaken):
		renderError(w, http.StatusConflict, "email_taken", "Email is already registered")
	case errors.Is(err, users.ErrInvalidEmail):
		renderError(w, http.StatusUnprocessableEntity, "invalid_email", "Email address is invalid")
	case errors.Is(err, users.ErrWeakPassword):
		renderError(w, http.StatusUnprocessableEntity, "weak_password", "Password must be 8 to 72 characters long")
	default:
		a.internalError(w, r, err)
	}
}

// login verifies credentials and starts a web session, optionally with a
// remember-me cookie.
func (a *App) login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := bindJSON(r, &req); err != nil {
		renderBindError(w, err)
		return
	}

	ctx := r.Context()
	u, err := a.Provider.VerifyCredentials(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, guard.ErrInvalidCredentials) {
			a.log.WarnContext(ctx, "login rejected", logger.Guard(GuardWeb), logger.Component("login"))
			renderError(w, http.StatusBadRequest, "invalid_credentials", "Invalid user credentials")
			return
		}
		a.internalError(w, r, err)
		return
	}

	sg, err := a.sessionGuard(w, r)
	if err != nil {
		a.internalError(w, r, err)
		return
	}
	if err := sg.Login(ctx, u, req.Remember); err != nil {
		if errors.Is(err, guard.ErrRememberMeDisabled) {
			renderError(w, http.StatusBadRequest, "remember_me_disabled", "Remember me is not enabled")
			return
		}
		a.internalError(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, newUserResponse(u, GuardWeb))
}

func (a *App) logout(w http.ResponseWriter, r *http.Request) {
	sg, err := a.sessionGuard(w, r)
	if err != nil {
		a.internalError(w, r, err)
		return
	}
	if err := sg.Logout(r.Context()); err != nil {
		a.internalError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *App) me(w http.ResponseWriter, r *http.Request) {
	auth, ok := guard.FromContext[*users.User](r.Context())
	if !ok {
		a.internalError(w, r, errors.New("authenticator missing from context"))
		return
	}
	u, err := auth.GetUserOrFail()
	if err != nil {
		guard.ErrorHandler(w, r, err)
		return
	}
	via, _ := auth.AuthenticatedVia()
	renderJSON(w, http.StatusOK, newUserResponse(u, via))
}

func (a *App) createToken(w http.ResponseWriter, r *http.Request) {
	var req createTokenRequest
	if err := bindJSON(r, &req); err != nil {
		renderBindError(w, err)
		return
	}
	if req.ExpiresIn < 0 {
		renderError(w, http.StatusUnprocessableEntity, "invalid_expiry", "expires_in must not be negative")
		return
	}

	u, _ := guard.UserFromContext[*users.User](r.Context())
	tg, err := a.accessTokenGuard(w, r)
	if err != nil {
		a.internalError(w, r, err)
		return
	}
	tok, err := tg.CreateToken(r.Context(), u, tokenstore.CreateOptions{
		Name:      req.Name,
		Abilities: req.Abilities,
		ExpiresIn: time.Duration(req.ExpiresIn) * time.Second,
	})
	if err != nil {
		a.internalError(w, r, err)
		return
	}
	renderJSON(w, http.StatusCreated, newTokenResponse(tok))
}

func (a *App) listTokens(w http.ResponseWriter, r *http.Request) {
	u, _ := guard.UserFromContext[*users.User](r.Context())
	list, err := a.AccessTokens.All(r.Context(), a.Provider.UserID(u))
	if err != nil {
		a.internalError(w, r, err)
		return
	}
	resp := make([]tokenResponse, 0, len(list))
	for _, tok := range list {
		resp = append(resp, newTokenResponse(tok))
	}
	renderJSON(w, http.StatusOK, resp)
}

func (a *App) deleteToken(w http.ResponseWriter, r *http.Request) {
	u, _ := guard.UserFromContext[*users.User](r.Context())
	err := a.AccessTokens.Delete(r.Context(), a.Provider.UserID(u), chi.URLParam(r, "id"))
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, tokenstore.ErrTokenNotFound):
		renderError(w, http.StatusNotFound, "not_found", "Token not found")
	default:
		a.internalError(w, r, err)
	}
}

// revokeCurrentToken deletes the bearer token the request was made with.
func (a *App) revokeCurrentToken(w http.ResponseWriter, r *http.Request) {
	tg, err := a.accessTokenGuard(w, r)
	if err != nil {
		a.internalError(w, r, err)
		return
	}
	deleted, err := tg.Invalidate(r.Context())
	if err != nil {
		a.internalError(w, r, err)
		return
	}
	if !deleted {
		renderError(w, http.StatusBadRequest, "no_access_token", "Request was not made with an access token")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// requireAbility rejects access token requests lacking ability. Requests
// authenticated by other guards pass through.
func (a *App) requireAbility(ability string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth, ok := guard.FromContext[*users.User](r.Context())
			if !ok {
				a.internalError(w, r, errors.New("authenticator missing from context"))
				return
			}
			if via, _ := auth.AuthenticatedVia(); via == GuardAPI {
				g, err := auth.Use(GuardAPI)
				if err != nil {
					a.internalError(w, r, err)
					return
				}
				if err := g.(*guard.AccessTokenGuard[*users.User]).Authorize(ability); err != nil {
					a.log.WarnContext(r.Context(), "ability denied",
						logger.Guard(GuardAPI), logger.Component("authorize"),
						slog.String("ability", ability))
					guard.ErrorHandler(w, r, err)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (a *App) sessionGuard(w http.ResponseWriter, r *http.Request) (*guard.SessionGuard[*users.User], error) {
	g, err := a.use(w, r, GuardWeb)
	if err != nil {
		return nil, err
	}
	return g.(*guard.SessionGuard[*users.User]), nil
}

func (a *App) accessTokenGuard(w http.ResponseWriter, r *http.Request) (*guard.AccessTokenGuard[*users.User], error) {
	g, err := a.use(w, r, GuardAPI)
	if err != nil {
		return nil, err
	}
	return g.(*guard.AccessTokenGuard[*users.User]), nil
}

// use returns the named guard from the request authenticator so that state
// from an earlier Authenticate call is shared.
func (a *App) use(w http.ResponseWriter, r *http.Request, name string) (guard.Guard[*users.User], error) {
	auth, ok := guard.FromContext[*users.User](r.Context())
	if !ok {
		auth = a.Guards.Authenticator(w, r)
	}
	return auth.Use(name)
}

func (a *App) internalError(w http.ResponseWriter, r *http.Request, err error) {
	a.log.ErrorContext(r.Context(), "request failed", logger.Error(err), logger.Component("http"))
	renderError(w, http.StatusInternalServerError, "internal_error", http.StatusText(http.StatusInternalServerError))
}
