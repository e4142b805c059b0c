package session

import (
	"context"
	"fmt"
	"sync"
)

// Handle is the per-request view of a session. Mutations are buffered on the
// handle and persisted by Manager.Commit.
type Handle struct {
	manager *Manager

	mu        sync.Mutex
	sess      *Session
	isNew     bool
	dirty     bool
	destroyed bool
}

// ID returns the current session id. It changes after Regenerate.
func (h *Handle) ID() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.sess.ID
}

// IsNew reports whether the session has never been persisted.
func (h *Handle) IsNew() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.isNew
}

func (h *Handle) Get(key string) (any, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	v, ok := h.sess.Data[key]
	return v, ok
}

// GetString returns the value under key if it is a string.
func (h *Handle) GetString(key string) (string, bool) {
	v, ok := h.Get(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func (h *Handle) Put(key string, value any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sess.Data[key] = value
	h.dirty = true
	h.destroyed = false
}

func (h *Handle) Forget(key string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.sess.Data[key]; !ok {
		return
	}
	delete(h.sess.Data, key)
	h.dirty = true
}

// Regenerate moves the session data to a new id and drops the old record.
func (h *Handle) Regenerate(ctx context.Context) error {
	id, err := newSessionID()
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.isNew {
		if err := h.manager.store.Delete(ctx, h.sess.ID); err != nil {
			return fmt.Errorf("regenerate session: %w", err)
		}
	}

	h.sess = h.sess.clone()
	h.sess.ID = id
	h.sess.CreatedAt = h.manager.now()
	h.isNew = true
	h.dirty = true
	return nil
}

// Destroy deletes the session record and clears all data. The cookie is
// removed on commit.
func (h *Handle) Destroy(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.isNew {
		if err := h.manager.store.Delete(ctx, h.sess.ID); err != nil {
			return fmt.Errorf("destroy session: %w", err)
		}
	}
	h.sess.Data = make(map[string]any)
	h.destroyed = true
	h.dirty = false
	return nil
}
