package guard

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/dmitrymomot/guardkit/pkg/opaque"
)

// ErrorHandlerFunc renders an authentication or authorization error.
type ErrorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorHandler renders guard errors:
//
//   - session: 302 to the login URL for browser requests, 401 JSON otherwise
//   - basic_auth: 401 with a WWW-Authenticate challenge
//   - access_token: 401 JSON
//   - opaque.ErrForbidden: 403 JSON
//
// Anything else is a 500.
func ErrorHandler(w http.ResponseWriter, r *http.Request, err error) {
	if ue, ok := AsUnauthorized(err); ok {
		switch ue.Driver {
		case DriverSession:
			if ue.RedirectTo != "" && wantsHTML(r) {
				http.Redirect(w, r, ue.RedirectTo, http.StatusFound)
				return
			}
		case DriverBasicAuth:
			w.Header().Set("WWW-Authenticate", fmt.Sprintf("Basic realm=%q, charset=\"UTF-8\"", ue.Realm))
		}
		writeError(w, http.StatusUnauthorized, "unauthorized", ue.Message)
		return
	}

	if errors.Is(err, opaque.ErrForbidden) {
		writeError(w, http.StatusForbidden, "forbidden", "Access denied")
		return
	}

	writeError(w, http.StatusInternalServerError, "internal_error", http.StatusText(http.StatusInternalServerError))
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Error: errorDetail{Code: code, Message: message}})
}

// wantsHTML reports whether the client is a browser navigation.
func wantsHTML(r *http.Request) bool {
	if r.Header.Get("X-Requested-With") == "XMLHttpRequest" {
		return false
	}
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "text/html")
}
