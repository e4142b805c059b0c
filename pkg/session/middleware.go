package session

import (
	"net/http"
	"sync"

	"github.com/dmitrymomot/guardkit/pkg/logger"
)

// Middleware installs a session Handle into the request context. Changes are
// committed right before the response header is written, or after the
// handler returns if it never wrote anything.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h, err := m.Load(r)
		if err != nil {
			m.log.ErrorContext(r.Context(), "failed to load session", logger.Component("session"), logger.Error(err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		cw := &commitWriter{ResponseWriter: w}
		cw.commit = func() {
			if err := m.Commit(r.Context(), w, h, true); err != nil {
				m.log.ErrorContext(r.Context(), "failed to commit session", logger.Component("session"), logger.Error(err))
			}
		}

		next.ServeHTTP(cw, r.WithContext(WithHandle(r.Context(), h)))

		if !cw.fire() {
			// Headers are gone; persist late changes without a cookie.
			if err := m.Commit(r.Context(), w, h, false); err != nil {
				m.log.ErrorContext(r.Context(), "failed to commit session", logger.Component("session"), logger.Error(err))
			}
		}
	})
}

// commitWriter runs commit once before the response header goes out.
type commitWriter struct {
	http.ResponseWriter
	commit func()
	once   sync.Once
}

// fire runs commit if it has not run yet and reports whether it ran now.
func (w *commitWriter) fire() bool {
	ran := false
	w.once.Do(func() {
		ran = true
		w.commit()
	})
	return ran
}

func (w *commitWriter) WriteHeader(code int) {
	w.fire()
	w.ResponseWriter.WriteHeader(code)
}

func (w *commitWriter) Write(b []byte) (int, error) {
	w.fire()
	return w.ResponseWriter.Write(b)
}

func (w *commitWriter) Flush() {
	w.fire()
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *commitWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
